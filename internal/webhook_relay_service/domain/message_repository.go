package domain

import (
	"context"
)

// MessageRepository is the only write path to the message store.
type MessageRepository interface {
	// Create inserts one StoredMessage for phoneNumber/text and returns the new record id.
	// Failures are reported as ErrStorageFailure.
	Create(ctx context.Context, phoneNumber string, text string) (string, error)
}
