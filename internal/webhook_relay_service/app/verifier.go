package app

import (
	"context"
	"log/slog"

	"github.com/aradsms/webhook_relay/internal/webhook_relay_service/domain"
)

// VerificationFailedBody is returned to callers whose verify token does not match.
const VerificationFailedBody = "Verification failed"

// WebhookVerifier answers the platform's subscription verification challenge.
type WebhookVerifier struct {
	verifyToken string
	logger      *slog.Logger
}

func NewWebhookVerifier(verifyToken string, logger *slog.Logger) *WebhookVerifier {
	return &WebhookVerifier{
		verifyToken: verifyToken,
		logger:      logger.With("component", "webhook_verifier"),
	}
}

// Verify returns challenge unchanged when token equals the configured secret
// (exact comparison, no normalization), otherwise ErrVerificationMismatch.
func (v *WebhookVerifier) Verify(ctx context.Context, token string, challenge string) (string, error) {
	if token != v.verifyToken {
		verificationsCounter.WithLabelValues("failed").Inc()
		v.logger.WarnContext(ctx, "Webhook verification failed")
		return "", domain.ErrVerificationMismatch
	}
	verificationsCounter.WithLabelValues("verified").Inc()
	v.logger.InfoContext(ctx, "Webhook verified")
	return challenge, nil
}
