package domain

import "context"

// SendResult describes an accepted Send API call.
type SendResult struct {
	ProviderMessageID string
	StatusCode        int
}

// MessageSender sends a plain text message through the messaging platform.
type MessageSender interface {
	// SendText issues exactly one Send API request. There is no retry; failures
	// are reported as ErrSendFailure.
	SendText(ctx context.Context, to string, body string) (*SendResult, error)
}
