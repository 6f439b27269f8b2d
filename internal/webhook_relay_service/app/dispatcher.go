package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/aradsms/webhook_relay/internal/webhook_relay_service/domain"
)

// ReplyPrefix is prepended to the inbound body to form the automatic reply.
const ReplyPrefix = "You said: "

// Reasons an inbound message is neither stored nor replied to.
const (
	SkipReasonInvalidMessage = "invalid_message"
	SkipReasonDuplicate      = "duplicate"
)

// ReplyText builds the automatic reply for an inbound body.
func ReplyText(body string) string {
	return ReplyPrefix + body
}

// StoreOutcome is the result of persisting an inbound message.
type StoreOutcome struct {
	Attempted bool
	RecordID  string
	Err       error
}

// SendOutcome is the result of the automatic reply.
type SendOutcome struct {
	Attempted         bool
	ProviderMessageID string
	Err               error
}

// DispatchResult reports what happened to one delivery. Sub-step failures are
// recorded here instead of being returned as errors.
type DispatchResult struct {
	Kind       domain.EventKind
	Message    *domain.InboundMessage
	Status     *domain.StatusUpdate
	SkipReason string
	Store      StoreOutcome
	Send       SendOutcome
}

// EventDispatcher classifies delivery payloads and routes them.
type EventDispatcher struct {
	repo      domain.MessageRepository
	sender    domain.MessageSender
	announcer domain.EventAnnouncer
	dedupe    *DedupeWindow
	validate  *validator.Validate
	logger    *slog.Logger
}

// NewEventDispatcher wires the dispatcher. dedupe may be nil.
func NewEventDispatcher(
	repo domain.MessageRepository,
	sender domain.MessageSender,
	announcer domain.EventAnnouncer,
	dedupe *DedupeWindow,
	validate *validator.Validate,
	logger *slog.Logger,
) *EventDispatcher {
	return &EventDispatcher{
		repo:      repo,
		sender:    sender,
		announcer: announcer,
		dedupe:    dedupe,
		validate:  validate,
		logger:    logger.With("component", "event_dispatcher"),
	}
}

// Dispatch processes one raw delivery body. It returns an error only when the
// body is not a JSON object (domain.ErrMalformedPayload); storage, send and
// announcement failures are logged and reported in the result.
func (d *EventDispatcher) Dispatch(ctx context.Context, raw []byte) (*DispatchResult, error) {
	start := time.Now()

	event, err := domain.Classify(raw)
	if err != nil {
		webhookEventsCounter.WithLabelValues("malformed").Inc()
		d.logger.ErrorContext(ctx, "Error handling incoming delivery", "error", err)
		return nil, err
	}

	kind := event.Kind.String()
	webhookEventsCounter.WithLabelValues(kind).Inc()
	defer func() {
		dispatchDurationHist.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	}()

	result := &DispatchResult{Kind: event.Kind, Message: event.Message, Status: event.Status}

	switch event.Kind {
	case domain.EventKindMessage:
		d.handleMessage(ctx, event.Message, result)
	case domain.EventKindStatus:
		d.handleStatus(ctx, event.Status)
	default:
		d.logger.InfoContext(ctx, "No message or status data found", "payload", string(raw))
	}
	return result, nil
}

func (d *EventDispatcher) handleMessage(ctx context.Context, msg *domain.InboundMessage, result *DispatchResult) {
	logger := d.logger.With("from", msg.From, "provider_message_id", msg.ID, "type", msg.Type)
	logger.InfoContext(ctx, "Incoming message")

	if err := d.validate.StructCtx(ctx, msg); err != nil {
		result.SkipReason = SkipReasonInvalidMessage
		messagesSkippedCounter.WithLabelValues(SkipReasonInvalidMessage).Inc()
		logger.WarnContext(ctx, "Message has no sender or text body, skipping", "error", err)
		return
	}

	if d.dedupe.SeenRecently(msg.ID) {
		result.SkipReason = SkipReasonDuplicate
		messagesSkippedCounter.WithLabelValues(SkipReasonDuplicate).Inc()
		logger.InfoContext(ctx, "Duplicate delivery of message, skipping")
		return
	}

	// Store and reply are independent: a storage failure does not prevent the reply.
	result.Store = d.store(ctx, msg, logger)
	result.Send = d.reply(ctx, msg, logger)

	announcement := domain.MessageReceived{
		RecordID:          result.Store.RecordID,
		PhoneNumber:       msg.From,
		Text:              msg.Body(),
		ProviderMessageID: msg.ID,
		Stored:            result.Store.Err == nil,
		Replied:           result.Send.Err == nil,
	}
	if err := d.announcer.MessageReceived(ctx, announcement); err != nil {
		logger.WarnContext(ctx, "Failed to announce received message", "error", err)
	}
}

func (d *EventDispatcher) store(ctx context.Context, msg *domain.InboundMessage, logger *slog.Logger) StoreOutcome {
	id, err := d.repo.Create(ctx, msg.From, msg.Body())
	if err != nil {
		messagesStoredCounter.WithLabelValues("error").Inc()
		logger.ErrorContext(ctx, "Error storing message", "error", err)
		return StoreOutcome{Attempted: true, Err: err}
	}
	messagesStoredCounter.WithLabelValues("success").Inc()
	logger.InfoContext(ctx, "Message stored", "record_id", id)
	return StoreOutcome{Attempted: true, RecordID: id}
}

func (d *EventDispatcher) reply(ctx context.Context, msg *domain.InboundMessage, logger *slog.Logger) SendOutcome {
	sent, err := d.sender.SendText(ctx, msg.From, ReplyText(msg.Body()))
	if err != nil {
		repliesSentCounter.WithLabelValues("reply", "error").Inc()
		logger.ErrorContext(ctx, "Error sending reply", "error", err)
		return SendOutcome{Attempted: true, Err: err}
	}
	repliesSentCounter.WithLabelValues("reply", "success").Inc()

	outcome := SendOutcome{Attempted: true}
	if sent != nil {
		outcome.ProviderMessageID = sent.ProviderMessageID
	}
	logger.InfoContext(ctx, "Response sent to user", "reply_message_id", outcome.ProviderMessageID)
	return outcome
}

func (d *EventDispatcher) handleStatus(ctx context.Context, status *domain.StatusUpdate) {
	d.logger.InfoContext(ctx, "Message status update",
		"status_message_id", status.ID,
		"status", status.Status,
		"recipient_id", status.RecipientID,
		"timestamp", status.Timestamp,
	)
	if err := d.announcer.StatusReceived(ctx, *status); err != nil {
		d.logger.WarnContext(ctx, "Failed to announce status update", "error", err)
	}
}
