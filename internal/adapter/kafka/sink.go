// Package kafka publishes finished observations to the import topic and
// reads the topic's tail to resume an interrupted import.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/SENERGY-Platform/import-radolan/internal/config"
	"github.com/SENERGY-Platform/import-radolan/internal/domain"
	"github.com/SENERGY-Platform/import-radolan/internal/observability"
)

const (
	importTimeHeader = "import_time"
	importIDHeader   = "import_id"

	// publishRetryDelay is the fixed backoff between publish attempts.
	// Sink failures are assumed transient; observations are never dropped.
	publishRetryDelay = 2 * time.Second

	tailReadTimeout = 30 * time.Second
)

// Sink implements domain.Sink on a single-partition Kafka topic. Resume
// reads (last timestamp, recent messages) seek absolute offsets on
// partition 0, mirroring how the platform's import library tails its topic.
type Sink struct {
	writer   *kafkago.Writer
	broker   string
	topic    string
	importID string
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// NewSink creates a Kafka producer for the configured import topic.
func NewSink(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) *Sink {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Sink{
		writer:   w,
		broker:   cfg.KafkaBrokers[0],
		topic:    cfg.KafkaTopic,
		importID: cfg.ImportID,
		metrics:  metrics,
		logger:   logger,
	}
}

// Put serializes and publishes one observation, retrying with a fixed short
// backoff until it succeeds or the context ends.
func (s *Sink) Put(ctx context.Context, ts time.Time, obs domain.Observation) error {
	msg, err := serializeMessage(s.importID, ts, obs)
	if err != nil {
		return err
	}

	for {
		err := s.writer.WriteMessages(ctx, msg)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return fmt.Errorf("publish observation: %w", err)
		}
		s.logger.Warn("publish failed, retrying", "error", err, "topic", s.topic)
		s.metrics.PublishRetries.Inc()
		if !sleepWithContext(ctx, publishRetryDelay) {
			return fmt.Errorf("publish observation: %w", err)
		}
	}
}

// LastPublishedTimestamp returns the import timestamp of the newest message
// on the topic, or ok=false when the topic is empty.
func (s *Sink) LastPublishedTimestamp(ctx context.Context) (time.Time, bool, error) {
	msgs, err := s.readTail(ctx, 1)
	if err != nil {
		return time.Time{}, false, err
	}
	if len(msgs) == 0 {
		return time.Time{}, false, nil
	}
	return msgs[len(msgs)-1].Timestamp, true, nil
}

// RecentMessages returns up to n of the newest messages in publish order.
func (s *Sink) RecentMessages(ctx context.Context, n int) ([]domain.TimedMessage, error) {
	return s.readTail(ctx, n)
}

func (s *Sink) readTail(ctx context.Context, n int) ([]domain.TimedMessage, error) {
	if n <= 0 {
		return nil, nil
	}

	conn, err := kafkago.DialLeader(ctx, "tcp", s.broker, s.topic, 0)
	if err != nil {
		return nil, fmt.Errorf("dial topic %s: %w", s.topic, err)
	}
	defer conn.Close()

	first, err := conn.ReadFirstOffset()
	if err != nil {
		return nil, fmt.Errorf("read first offset: %w", err)
	}
	last, err := conn.ReadLastOffset()
	if err != nil {
		return nil, fmt.Errorf("read last offset: %w", err)
	}
	if last <= first {
		return nil, nil
	}

	start := last - int64(n)
	if start < first {
		start = first
	}
	if _, err := conn.Seek(start, kafkago.SeekAbsolute); err != nil {
		return nil, fmt.Errorf("seek offset %d: %w", start, err)
	}
	if err := conn.SetReadDeadline(time.Now().Add(tailReadTimeout)); err != nil {
		return nil, fmt.Errorf("set read deadline: %w", err)
	}

	var msgs []domain.TimedMessage
	remaining := last - start
	batch := conn.ReadBatch(1, 10e6)
	defer batch.Close()
	for remaining > 0 {
		msg, err := batch.ReadMessage()
		if err != nil {
			// A deadline or short batch just ends the tail read; whatever
			// was recovered is still usable for seeding history.
			break
		}
		msgs = append(msgs, domain.TimedMessage{
			Timestamp: messageTime(msg),
			Payload:   msg.Value,
		})
		remaining--
	}
	return msgs, nil
}

// Close flushes and closes the producer.
func (s *Sink) Close() error {
	return s.writer.Close()
}

// serializeMessage marshals an observation into a Kafka message keyed by the
// import ID, with the import timestamp in a header so resume logic can
// recover it without parsing the payload.
func serializeMessage(importID string, ts time.Time, obs domain.Observation) (kafkago.Message, error) {
	data, err := json.Marshal(obs)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize observation: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(importID),
		Value: data,
		Time:  ts,
		Headers: []kafkago.Header{
			{Key: importTimeHeader, Value: []byte(ts.Format(time.RFC3339))},
			{Key: importIDHeader, Value: []byte(importID)},
		},
	}, nil
}

// messageTime recovers the import timestamp from the header, falling back to
// the broker-assigned message time.
func messageTime(msg kafkago.Message) time.Time {
	for _, h := range msg.Headers {
		if h.Key == importTimeHeader {
			if ts, err := time.Parse(time.RFC3339, string(h.Value)); err == nil {
				return ts
			}
		}
	}
	return msg.Time
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
