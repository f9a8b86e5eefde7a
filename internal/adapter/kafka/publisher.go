package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/flowmap-core/internal/config"
	"github.com/couchcryptid/storm-data-shared/retry"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	kafkago "github.com/segmentio/kafka-go"
)

const (
	defaultMaxAttempts    = 3
	defaultInitialBackoff = 200 * time.Millisecond
	defaultMaxBackoff     = 2 * time.Second
)

// StateMessage is the value of a published shareable state message.
type StateMessage struct {
	SessionID   string    `json:"session_id"`
	Query       string    `json:"query"`
	PublishedAt time.Time `json:"published_at"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher produces shareable state strings to a Kafka topic, keyed by
// session so one session's states stay ordered on one partition.
// It implements urlsync.Publisher.
type Publisher struct {
	writer    messageWriter
	sessionID uuid.UUID
	clock     clockwork.Clock
	logger    *slog.Logger

	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration
}

// NewPublisher creates a Kafka producer for the configured state topic.
func NewPublisher(cfg *config.Config, sessionID uuid.UUID, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaStateTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return newPublisher(w, sessionID, clockwork.NewRealClock(), logger)
}

func newPublisher(w messageWriter, sessionID uuid.UUID, clock clockwork.Clock, logger *slog.Logger) *Publisher {
	return &Publisher{
		writer:         w,
		sessionID:      sessionID,
		clock:          clock,
		logger:         logger,
		maxAttempts:    defaultMaxAttempts,
		initialBackoff: defaultInitialBackoff,
		maxBackoff:     defaultMaxBackoff,
	}
}

// Name labels the sink in metrics.
func (p *Publisher) Name() string { return "kafka" }

// Publish writes one state message, retrying with exponential backoff.
func (p *Publisher) Publish(ctx context.Context, query string) error {
	msg, err := serializeToMessage(StateMessage{
		SessionID:   p.sessionID.String(),
		Query:       query,
		PublishedAt: p.clock.Now().UTC(),
	})
	if err != nil {
		return err
	}

	backoff := p.initialBackoff
	for attempt := 1; ; attempt++ {
		err = p.writer.WriteMessages(ctx, msg)
		if err == nil {
			return nil
		}
		if attempt >= p.maxAttempts {
			return fmt.Errorf("publish state after %d attempts: %w", attempt, err)
		}
		p.logger.Warn("state publish failed, retrying",
			"session_id", p.sessionID,
			"attempt", attempt,
			"backoff", backoff,
			"error", err,
		)
		if !retry.SleepWithContext(ctx, backoff) {
			return fmt.Errorf("publish state: %w", ctx.Err())
		}
		backoff = retry.NextBackoff(backoff, p.maxBackoff)
	}
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals a StateMessage into a Kafka message.
func serializeToMessage(m StateMessage) (kafkago.Message, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize state message: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(m.SessionID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "session_id", Value: []byte(m.SessionID)},
			{Key: "published_at", Value: []byte(m.PublishedAt.Format(time.RFC3339))},
		},
	}, nil
}
