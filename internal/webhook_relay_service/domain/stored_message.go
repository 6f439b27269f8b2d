package domain

import "time"

// StoredMessage is the append-only record written for every processed inbound message.
// Timestamp is assigned when the record is stored, not taken from the provider.
type StoredMessage struct {
	ID          string    `json:"id"`
	PhoneNumber string    `json:"phoneNumber"`
	Text        string    `json:"text"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewStoredMessage builds a record stamped with now in UTC.
func NewStoredMessage(phoneNumber, text string, now time.Time) *StoredMessage {
	return &StoredMessage{
		PhoneNumber: phoneNumber,
		Text:        text,
		Timestamp:   now.UTC(),
	}
}
