package app

import (
	"context"
	"log/slog"

	"github.com/aradsms/webhook_relay/internal/webhook_relay_service/domain"
)

// StartupNotificationText is sent to the configured recipient once the store is reachable.
const StartupNotificationText = "Bot connected to the message store and ready to receive messages!"

// SendStartupNotification sends StartupNotificationText to recipient. An empty
// recipient disables it. Failures are logged and returned; callers are not
// expected to abort on them.
func SendStartupNotification(ctx context.Context, sender domain.MessageSender, recipient string, logger *slog.Logger) error {
	if recipient == "" {
		logger.DebugContext(ctx, "Startup notification disabled")
		return nil
	}
	return SendManual(ctx, sender, recipient, StartupNotificationText, "startup", logger)
}

// SendManual issues one Send API call outside the webhook flow and logs the result.
func SendManual(ctx context.Context, sender domain.MessageSender, to, text, purpose string, logger *slog.Logger) error {
	result, err := sender.SendText(ctx, to, text)
	if err != nil {
		repliesSentCounter.WithLabelValues(purpose, "error").Inc()
		logger.ErrorContext(ctx, "Error sending message", "purpose", purpose, "to", to, "error", err)
		return err
	}
	repliesSentCounter.WithLabelValues(purpose, "success").Inc()
	var providerMessageID string
	if result != nil {
		providerMessageID = result.ProviderMessageID
	}
	logger.InfoContext(ctx, "Message sent", "purpose", purpose, "to", to, "provider_message_id", providerMessageID)
	return nil
}
