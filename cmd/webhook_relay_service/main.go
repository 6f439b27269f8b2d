package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
)

const serviceName = "webhook_relay_service"

func main() {
	root := &cobra.Command{
		Use:          serviceName,
		Short:        "WhatsApp webhook relay: verifies, stores and auto-replies to inbound messages",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}

	root.AddCommand(serveCmd())
	root.AddCommand(sendCmd())

	if err := root.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
