package dispatch

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ajayykmr/crm-dispatch-go/internal/models"
	"github.com/ajayykmr/crm-dispatch-go/internal/providers/common"
	"github.com/ajayykmr/crm-dispatch-go/internal/store"
)

// ErrUnsupportedChannel is returned for channel tags outside email, sms and
// whatsapp. This is a caller error, reported distinctly from a provider
// failure: nothing is sent and nothing is persisted.
var ErrUnsupportedChannel = errors.New("unsupported channel")

// MessageInput is the caller-supplied message content.
type MessageInput struct {
	To          string
	Subject     string
	BodyText    string
	BodyHTML    string
	ScheduledAt *time.Time
}

// Outcome is the normalized dispatch result handed back to the caller. The
// Record is the persisted row, present for failures too.
type Outcome struct {
	Status            string                  `json:"status"`
	ProviderMessageID string                  `json:"provider_message_id,omitempty"`
	FailureReason     string                  `json:"failure_reason,omitempty"`
	Record            *models.OutboundMessage `json:"record,omitempty"`
}

// EventPublisher receives a copy of every persisted dispatch record. Used
// for the optional audit stream; publish failures never affect the outcome.
type EventPublisher interface {
	PublishDispatch(ctx context.Context, msg *models.OutboundMessage) error
}

// Dispatcher is the single entry point for outbound sends. It routes to the
// matching channel sender, then persists the attempt whether it succeeded or
// not: the persisted record is a correctness contract, not a log line.
//
// The dispatcher does not retry and does not deduplicate. Calling it twice
// with identical content produces two records and, for providers without
// their own dedupe, two deliveries.
type Dispatcher struct {
	senders  map[string]Sender
	messages store.MessageStore
	events   EventPublisher
	logger   zerolog.Logger
	now      func() time.Time
	newID    func() string
}

// DispatcherOption customises dispatcher behaviour.
type DispatcherOption func(*Dispatcher)

// WithEventPublisher attaches the optional audit publisher.
func WithEventPublisher(pub EventPublisher) DispatcherOption {
	return func(d *Dispatcher) {
		d.events = pub
	}
}

// WithClock overrides the clock used for record timestamps.
func WithClock(now func() time.Time) DispatcherOption {
	return func(d *Dispatcher) {
		if now != nil {
			d.now = now
		}
	}
}

// WithIDGenerator overrides record id generation.
func WithIDGenerator(gen func() string) DispatcherOption {
	return func(d *Dispatcher) {
		if gen != nil {
			d.newID = gen
		}
	}
}

// NewDispatcher constructs the facade over the channel senders and the
// persistence sink.
func NewDispatcher(email, sms, whatsapp Sender, messages store.MessageStore, logger zerolog.Logger, opts ...DispatcherOption) (*Dispatcher, error) {
	if email == nil || sms == nil || whatsapp == nil {
		return nil, errors.New("dispatcher: all three channel senders are required")
	}
	if messages == nil {
		return nil, errors.New("dispatcher: message store is required")
	}
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}

	d := &Dispatcher{
		senders: map[string]Sender{
			models.ChannelEmail:    email,
			models.ChannelSMS:      sms,
			models.ChannelWhatsApp: whatsapp,
		},
		messages: messages,
		logger:   logger,
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d, nil
}

// Dispatch sends one message on the given channel for the tenant and
// persists the attempt. The returned error is non-nil only for caller
// errors (unsupported channel) and persistence failures; provider failures
// come back as a failed Outcome.
func (d *Dispatcher) Dispatch(ctx context.Context, tenantID, channel string, input *MessageInput) (*Outcome, error) {
	if input == nil {
		return nil, errors.New("dispatcher: message input is required")
	}

	if !models.IsSupportedChannel(channel) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedChannel, channel)
	}
	sender := d.senders[channel]

	record := &models.OutboundMessage{
		ID:          d.newID(),
		TenantID:    tenantID,
		Channel:     channel,
		Direction:   models.DirectionOutbound,
		Recipient:   input.To,
		Subject:     input.Subject,
		BodyText:    input.BodyText,
		BodyHTML:    input.BodyHTML,
		ScheduledAt: input.ScheduledAt,
		CreatedAt:   d.now().UTC(),
	}

	result := sender.Send(ctx, tenantID, record)
	record.Status = result.Status
	record.ProviderMessageID = result.ProviderMessageID
	// Failure reasons may embed a raw provider body; cap what gets persisted.
	record.FailureReason = common.TruncateRaw(result.FailureReason, common.DefaultRawBodyLimit)

	stored, err := d.messages.InsertMessage(ctx, record)
	if err != nil {
		d.logger.Error().Str("tenant_id", tenantID).Str("channel", channel).Err(err).
			Msg("failed to persist dispatch record")
		return nil, fmt.Errorf("persist dispatch record: %w", err)
	}

	outcome := &Outcome{
		Status:            result.Status,
		ProviderMessageID: result.ProviderMessageID,
		FailureReason:     record.FailureReason,
		Record:            stored,
	}

	if d.events != nil {
		if err := d.events.PublishDispatch(ctx, stored); err != nil {
			d.logger.Warn().Str("message_id", stored.ID).Err(err).Msg("dispatch audit event publish failed")
		}
	}

	d.logger.Info().
		Str("tenant_id", tenantID).
		Str("channel", channel).
		Str("message_id", stored.ID).
		Str("status", result.Status).
		Msg("dispatch completed")

	return outcome, nil
}
