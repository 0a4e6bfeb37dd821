package events

import (
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog"
)

// Producer wraps a Sarama sync producer for the audit event stream. Audit
// publishing is best effort, so the producer favours quick failure over
// delivery guarantees.
type Producer struct {
	logger zerolog.Logger
	sync   sarama.SyncProducer
}

// ProducerOption customises the producer during construction.
type ProducerOption func(*sarama.Config)

// WithProducerConfig mutates the Sarama config before the client is built.
func WithProducerConfig(mutate func(*sarama.Config)) ProducerOption {
	return func(cfg *sarama.Config) {
		if mutate != nil {
			mutate(cfg)
		}
	}
}

// NewProducer connects a sync producer to the supplied brokers.
func NewProducer(brokers []string, logger zerolog.Logger, opts ...ProducerOption) (*Producer, error) {
	if len(brokers) == 0 {
		return nil, errors.New("events producer: at least one broker is required")
	}
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}

	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForLocal
	cfg.Producer.Timeout = 5 * time.Second
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}

	sp, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("events producer: create sync producer: %w", err)
	}

	return &Producer{logger: logger, sync: sp}, nil
}

// PublishSync writes one record to the topic.
func (p *Producer) PublishSync(topic string, key, payload []byte) error {
	msg := &sarama.ProducerMessage{
		Topic: topic,
		Value: sarama.ByteEncoder(payload),
	}
	if len(key) > 0 {
		msg.Key = sarama.ByteEncoder(key)
	}
	if _, _, err := p.sync.SendMessage(msg); err != nil {
		return fmt.Errorf("events producer: send: %w", err)
	}
	return nil
}

// Close releases the underlying producer.
func (p *Producer) Close() error {
	return p.sync.Close()
}
