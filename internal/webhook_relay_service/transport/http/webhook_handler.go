package http

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	chi_middleware "github.com/go-chi/chi/v5/middleware"

	"github.com/aradsms/webhook_relay/internal/webhook_relay_service/app"
	"github.com/aradsms/webhook_relay/internal/webhook_relay_service/domain"
)

// MaxDeliveryBytes caps the size of a webhook delivery body.
const MaxDeliveryBytes = 1 << 20

// Query parameters of the subscription verification request.
const (
	queryVerifyToken = "hub.verify_token"
	queryChallenge   = "hub.challenge"
)

// Verifier answers subscription verification challenges.
type Verifier interface {
	Verify(ctx context.Context, token string, challenge string) (string, error)
}

// Dispatcher processes one raw delivery body.
type Dispatcher interface {
	Dispatch(ctx context.Context, raw []byte) (*app.DispatchResult, error)
}

type WebhookHandler struct {
	verifier   Verifier
	dispatcher Dispatcher
	logger     *slog.Logger
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(verifier Verifier, dispatcher Dispatcher, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		verifier:   verifier,
		dispatcher: dispatcher,
		logger:     logger.With("handler", "webhook"),
	}
}

// HandleVerification echoes hub.challenge when hub.verify_token matches.
// Both outcomes answer 200; only the body differs.
func (h *WebhookHandler) HandleVerification(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With("request_id", chi_middleware.GetReqID(ctx))
	logger.InfoContext(ctx, "Webhook verification request received")

	query := r.URL.Query()
	body, err := h.verifier.Verify(ctx, query.Get(queryVerifyToken), query.Get(queryChallenge))
	if err != nil {
		if !errors.Is(err, domain.ErrVerificationMismatch) {
			logger.ErrorContext(ctx, "Unexpected verification error", "error", err)
		}
		body = app.VerificationFailedBody
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, body)
}

// HandleDelivery reads a delivery body and hands it to the dispatcher. It
// answers 200 with an empty body unless the payload is structurally unusable,
// in which case it answers 500 with an empty body.
func (h *WebhookHandler) HandleDelivery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With("request_id", chi_middleware.GetReqID(ctx))
	logger.InfoContext(ctx, "Webhook POST request received")

	body, err := readDelivery(w, r)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to read request body", "error", err)
		w.WriteHeader(readErrorStatus(err))
		return
	}

	// Processing continues if the platform hangs up mid-request.
	result, err := h.dispatcher.Dispatch(context.WithoutCancel(ctx), body)
	if err != nil {
		logger.ErrorContext(ctx, "Error handling incoming message", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	logger.DebugContext(ctx, "Delivery processed", "kind", result.Kind.String(), "skip_reason", result.SkipReason)
	w.WriteHeader(http.StatusOK)
}

// readDelivery reads at most MaxDeliveryBytes of the request body.
func readDelivery(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	defer r.Body.Close()
	return io.ReadAll(http.MaxBytesReader(w, r.Body, MaxDeliveryBytes))
}

func readErrorStatus(err error) int {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusInternalServerError
}
