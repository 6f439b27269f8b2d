package domain

import "context"

// MessageReceived is announced after an inbound message has been handled.
type MessageReceived struct {
	RecordID          string `json:"record_id,omitempty"`
	PhoneNumber       string `json:"phone_number"`
	Text              string `json:"text"`
	ProviderMessageID string `json:"provider_message_id,omitempty"`
	Stored            bool   `json:"stored"`
	Replied           bool   `json:"replied"`
}

// EventAnnouncer publishes processed webhook events to interested consumers.
type EventAnnouncer interface {
	MessageReceived(ctx context.Context, event MessageReceived) error
	StatusReceived(ctx context.Context, status StatusUpdate) error
}
