package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewStoredMessage(t *testing.T) {
	local := time.Date(2025, 3, 1, 11, 0, 0, 0, time.FixedZone("CET", 3600))

	record := NewStoredMessage("393401234567", "hello", local)

	assert.Empty(t, record.ID)
	assert.Equal(t, "393401234567", record.PhoneNumber)
	assert.Equal(t, "hello", record.Text)
	assert.True(t, record.Timestamp.Equal(local))
	assert.Equal(t, time.UTC, record.Timestamp.Location())
}
