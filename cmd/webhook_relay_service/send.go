package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/aradsms/webhook_relay/internal/platform/config"
	"github.com/aradsms/webhook_relay/internal/platform/logger"
	"github.com/aradsms/webhook_relay/internal/webhook_relay_service/adapters/whatsapp"
	"github.com/aradsms/webhook_relay/internal/webhook_relay_service/app"
)

func sendCmd() *cobra.Command {
	var to, text string

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send one text message through the WhatsApp Cloud API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if to == "" || text == "" {
				return errors.New("--to and --text are required")
			}
			return runSend(cmd.Context(), to, text)
		},
	}
	cmd.Flags().StringVar(&to, "to", "", "recipient phone number (international format, digits only)")
	cmd.Flags().StringVar(&text, "text", "", "message body")
	return cmd
}

func runSend(ctx context.Context, to, text string) error {
	cfg, err := config.Load(serviceName)
	if err != nil {
		slog.Error("Failed to load configuration", "service", serviceName, "error", err)
		return err
	}
	if err := cfg.ValidateForSend(); err != nil {
		slog.Error("Invalid configuration", "service", serviceName, "error", err)
		return err
	}

	appLogger := logger.New(cfg.LogLevel).With("service", serviceName)
	sender := whatsapp.NewClient(whatsapp.ClientConfig{
		BaseURL:       cfg.WhatsAppAPIBaseURL,
		APIVersion:    cfg.WhatsAppAPIVersion,
		PhoneNumberID: cfg.WhatsAppPhoneID,
		AccessToken:   cfg.WhatsAppToken,
		Timeout:       cfg.SendTimeout,
	}, nil, appLogger)

	return app.SendManual(ctx, sender, to, text, "manual", appLogger)
}
