// Package events emits dispatch audit records to Kafka. The stream is an
// optional observer of the dispatch flow: the dispatcher already persisted
// the record before an event is published, and publish failures are logged,
// never surfaced to the sender.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"github.com/rs/zerolog"

	"github.com/ajayykmr/crm-dispatch-go/internal/models"
)

var errProducerNotInitialised = errors.New("events publisher: producer not initialised")

// SyncProducer captures the subset of producer behaviour required by the
// publisher.
type SyncProducer interface {
	PublishSync(topic string, key, payload []byte) error
}

// DispatchPublisher emits one event per persisted dispatch record.
type DispatchPublisher struct {
	producer SyncProducer
	topic    string
	logger   zerolog.Logger
}

// NewDispatchPublisher constructs a DispatchPublisher. A nil producer yields
// a nil publisher, which callers treat as "auditing disabled".
func NewDispatchPublisher(prod SyncProducer, topic string, logger zerolog.Logger) *DispatchPublisher {
	if prod == nil {
		return nil
	}
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}
	return &DispatchPublisher{producer: prod, topic: topic, logger: logger}
}

// PublishDispatch writes the record to the audit topic keyed by message id.
func (p *DispatchPublisher) PublishDispatch(_ context.Context, msg *models.OutboundMessage) error {
	if p == nil || p.producer == nil {
		return errProducerNotInitialised
	}
	if msg == nil {
		return errors.New("events publisher: message is required")
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("events publisher: marshal dispatch record: %w", err)
	}

	if err := p.producer.PublishSync(p.topic, []byte(msg.ID), payload); err != nil {
		return fmt.Errorf("events publisher: publish dispatch record: %w", err)
	}
	return nil
}
