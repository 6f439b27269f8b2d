package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/google/uuid"

	"github.com/aradsms/webhook_relay/internal/webhook_relay_service/domain"
)

const (
	EventTypeMessageReceived = "whatsapp.message.received"
	EventTypeStatusReceived  = "whatsapp.status.received"

	SubjectInboundMessage = "whatsapp.inbound.message"
	SubjectInboundStatus  = "whatsapp.inbound.status"
)

// Publisher is satisfied by *messagebroker.NATSClient.
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// CloudEventAnnouncer publishes processed webhook events as structured-mode
// CloudEvents (JSON) on NATS subjects.
type CloudEventAnnouncer struct {
	publisher Publisher
	source    string
	logger    *slog.Logger
	now       func() time.Time
}

func NewCloudEventAnnouncer(publisher Publisher, source string, logger *slog.Logger) *CloudEventAnnouncer {
	return &CloudEventAnnouncer{
		publisher: publisher,
		source:    source,
		logger:    logger.With("component", "event_announcer"),
		now:       time.Now,
	}
}

func (a *CloudEventAnnouncer) MessageReceived(ctx context.Context, event domain.MessageReceived) error {
	return a.publish(ctx, SubjectInboundMessage, EventTypeMessageReceived, event.PhoneNumber, event)
}

func (a *CloudEventAnnouncer) StatusReceived(ctx context.Context, status domain.StatusUpdate) error {
	return a.publish(ctx, SubjectInboundStatus, EventTypeStatusReceived, status.RecipientID, status)
}

func (a *CloudEventAnnouncer) publish(ctx context.Context, subject, eventType, eventSubject string, data any) error {
	ce := cloudevents.NewEvent()
	ce.SetID(uuid.NewString())
	ce.SetSource(a.source)
	ce.SetType(eventType)
	ce.SetTime(a.now().UTC())
	if eventSubject != "" {
		ce.SetSubject(eventSubject)
	}
	if err := ce.SetData(cloudevents.ApplicationJSON, data); err != nil {
		return fmt.Errorf("set %s data: %w", eventType, err)
	}
	if err := ce.Validate(); err != nil {
		return fmt.Errorf("invalid %s event: %w", eventType, err)
	}

	payload, err := json.Marshal(ce)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", eventType, err)
	}
	if err := a.publisher.Publish(ctx, subject, payload); err != nil {
		return fmt.Errorf("publish %s event: %w", eventType, err)
	}

	a.logger.DebugContext(ctx, "Event announced", "subject", subject, "type", eventType, "id", ce.ID())
	return nil
}

// NopAnnouncer is used when no event bus is configured.
type NopAnnouncer struct{}

func (NopAnnouncer) MessageReceived(context.Context, domain.MessageReceived) error { return nil }
func (NopAnnouncer) StatusReceived(context.Context, domain.StatusUpdate) error     { return nil }
