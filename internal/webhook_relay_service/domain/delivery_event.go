package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// EventKind tags what a delivery payload carries.
type EventKind int

const (
	EventKindUnrecognized EventKind = iota
	EventKindMessage
	EventKindStatus
)

func (k EventKind) String() string {
	switch k {
	case EventKindMessage:
		return "message"
	case EventKindStatus:
		return "status"
	default:
		return "unrecognized"
	}
}

// InboundMessage is one element of value.messages. Only From and Text.Body are
// needed downstream; the rest is kept for logging and dedupe.
type InboundMessage struct {
	From      string       `json:"from" validate:"required"`
	ID        string       `json:"id"`
	Timestamp string       `json:"timestamp"`
	Type      string       `json:"type"`
	Text      *TextContent `json:"text" validate:"required"`
}

// TextContent holds a text message body. An empty body is still a text message.
type TextContent struct {
	Body string `json:"body"`
}

// Body returns the text body or "" when the message has none.
func (m *InboundMessage) Body() string {
	if m == nil || m.Text == nil {
		return ""
	}
	return m.Text.Body
}

// StatusUpdate is one element of value.statuses (sent, delivered, read, failed).
type StatusUpdate struct {
	ID          string            `json:"id"`
	Status      string            `json:"status"`
	Timestamp   string            `json:"timestamp"`
	RecipientID string            `json:"recipient_id"`
	Errors      []json.RawMessage `json:"errors,omitempty"`
}

// ClassifiedEvent is the tagged result of Classify. Exactly one of Message and
// Status is set for the matching Kind; Raw always holds the original body.
type ClassifiedEvent struct {
	Kind    EventKind
	Message *InboundMessage
	Status  *StatusUpdate
	Raw     []byte
}

// Classify inspects entry[0].changes[0].value of a delivery payload.
// A non-empty messages list wins over statuses; only the first element of
// either list is used. Missing or wrongly typed nested fields make the event
// unrecognized. The only error is ErrMalformedPayload, for bodies that are not
// a JSON object.
func Classify(raw []byte) (*ClassifiedEvent, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}
	if top == nil {
		return nil, fmt.Errorf("%w: body is not a JSON object", ErrMalformedPayload)
	}

	event := &ClassifiedEvent{Kind: EventKindUnrecognized, Raw: raw}

	entry := asObject(firstElement(top["entry"]))
	change := asObject(firstElement(entry["changes"]))
	value := asObject(change["value"])

	if first := firstElement(value["messages"]); first != nil {
		var msg InboundMessage
		// Partially typed elements still count as a message; validation happens later.
		_ = json.Unmarshal(first, &msg)
		event.Kind = EventKindMessage
		event.Message = &msg
		return event, nil
	}

	if first := firstElement(value["statuses"]); first != nil {
		var status StatusUpdate
		_ = json.Unmarshal(first, &status)
		event.Kind = EventKindStatus
		event.Status = &status
		return event, nil
	}

	return event, nil
}

func firstElement(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil || len(items) == 0 {
		return nil
	}
	if bytes.Equal(bytes.TrimSpace(items[0]), []byte("null")) {
		return nil
	}
	return items[0]
}

func asObject(raw json.RawMessage) map[string]json.RawMessage {
	if len(raw) == 0 {
		return nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil
	}
	return obj
}
