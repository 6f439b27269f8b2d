package domain

import "errors"

var (
	// ErrVerificationMismatch is returned when hub.verify_token does not match the configured secret.
	ErrVerificationMismatch = errors.New("webhook verification token mismatch")
	// ErrMalformedPayload is returned when a delivery body is not a JSON object.
	ErrMalformedPayload = errors.New("malformed delivery payload")
	// ErrStorageFailure wraps any failure to persist an inbound message.
	ErrStorageFailure = errors.New("storage failure")
	// ErrSendFailure wraps any failure of the platform Send API call.
	ErrSendFailure = errors.New("send failure")
)
