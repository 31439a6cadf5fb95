package mq

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/tablehop/apiserver/config"
)

const (
	kafkaMessageIDHeader = "message_id"
	kafkaErrorHeader     = "error"

	// kafkaMaxAttempts bounds handler retries before a message is dead-lettered.
	kafkaMaxAttempts = 5
	kafkaRetryBase   = 500 * time.Millisecond
	kafkaRetryMax    = 10 * time.Second
)

type kafkaReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type kafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaClient publishes to and consumes from Kafka topics. Channels map
// one-to-one onto topics; each has a <topic>.dlq companion.
type KafkaClient struct {
	brokers []string
	groupID string

	newReader func(topic string) kafkaReader
	newWriter func(topic string) kafkaWriter
	backoff   func(attempt int) time.Duration

	mu      sync.Mutex
	writers map[string]kafkaWriter
}

// NewKafkaClient constructs a Kafka client from config.
func NewKafkaClient(cfg config.KafkaConfig) (*KafkaClient, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	if strings.TrimSpace(cfg.GroupID) == "" {
		return nil, errors.New("kafka group id is required")
	}
	k := &KafkaClient{
		brokers: cfg.Brokers,
		groupID: cfg.GroupID,
		backoff: kafkaBackoff,
		writers: make(map[string]kafkaWriter),
	}
	k.newReader = k.groupReader
	k.newWriter = k.topicWriter
	return k, nil
}

// Publish writes a message to the named topic. The reservation id, when
// present, is the partition key so events for one reservation stay ordered.
func (k *KafkaClient) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	if strings.TrimSpace(channel) == "" {
		return "", errors.New("kafka channel is required")
	}

	messageID := uuid.NewString()
	headers := make([]kafka.Header, 0, len(attrs)+1)
	headers = append(headers, kafka.Header{Key: kafkaMessageIDHeader, Value: []byte(messageID)})
	for key, value := range attrs {
		headers = append(headers, kafka.Header{Key: key, Value: []byte(value)})
	}

	msg := kafka.Message{
		Key:     []byte(attrs["reservation_id"]),
		Value:   data,
		Time:    time.Now(),
		Headers: headers,
	}
	if err := k.writer(channel).WriteMessages(ctx, msg); err != nil {
		return "", err
	}
	return messageID, nil
}

// Subscribe consumes the named topic as part of the configured consumer
// group. A message is committed only once it is handled or dead-lettered:
// a failing handler is retried with backoff, and after kafkaMaxAttempts
// the message is copied to <topic>.dlq. Offsets never move past an
// unhandled message.
func (k *KafkaClient) Subscribe(ctx context.Context, channel string, handler Handler) error {
	if strings.TrimSpace(channel) == "" {
		return errors.New("kafka channel is required")
	}

	reader := k.newReader(channel)
	defer reader.Close()

	for {
		m, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}

		if err := k.handle(ctx, channel, m, handler); err != nil {
			return err
		}
		if err := reader.CommitMessages(ctx, m); err != nil {
			return err
		}
	}
}

// handle runs handler on m until it succeeds or attempts run out, then
// dead-letters it. A non-nil error means m must not be committed.
func (k *KafkaClient) handle(ctx context.Context, topic string, m kafka.Message, handler Handler) error {
	message := Message{
		Data:       m.Value,
		Attributes: kafkaHeadersToAttributes(m.Headers),
	}
	message.ID = message.Attributes[kafkaMessageIDHeader]

	var lastErr error
	for attempt := 1; attempt <= kafkaMaxAttempts; attempt++ {
		if lastErr = handler(ctx, message); lastErr == nil {
			return nil
		}
		if attempt == kafkaMaxAttempts {
			break
		}
		timer := time.NewTimer(k.backoff(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	dead := kafka.Message{
		Key:     m.Key,
		Value:   m.Value,
		Time:    time.Now(),
		Headers: append(append([]kafka.Header{}, m.Headers...), kafka.Header{Key: kafkaErrorHeader, Value: []byte(lastErr.Error())}),
	}
	if err := k.writer(topic+deadLetterSuffix).WriteMessages(ctx, dead); err != nil {
		return fmt.Errorf("dead-letter offset %d: %w", m.Offset, err)
	}
	return nil
}

// Close flushes and closes every topic writer.
func (k *KafkaClient) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()

	var errs []error
	for topic, w := range k.writers {
		if err := w.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(k.writers, topic)
	}
	return errors.Join(errs...)
}

func (k *KafkaClient) writer(topic string) kafkaWriter {
	k.mu.Lock()
	defer k.mu.Unlock()

	if w, ok := k.writers[topic]; ok {
		return w
	}
	w := k.newWriter(topic)
	k.writers[topic] = w
	return w
}

func (k *KafkaClient) topicWriter(topic string) kafkaWriter {
	return &kafka.Writer{
		Addr:                   kafka.TCP(k.brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
}

func (k *KafkaClient) groupReader(topic string) kafkaReader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  k.brokers,
		GroupID:  k.groupID,
		Topic:    topic,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
}

// kafkaBackoff doubles from kafkaRetryBase up to kafkaRetryMax.
func kafkaBackoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 16 {
		return kafkaRetryMax
	}
	d := kafkaRetryBase << (attempt - 1)
	if d > kafkaRetryMax {
		return kafkaRetryMax
	}
	return d
}

func kafkaHeadersToAttributes(headers []kafka.Header) map[string]string {
	if len(headers) == 0 {
		return nil
	}
	attrs := make(map[string]string, len(headers))
	for _, h := range headers {
		attrs[h.Key] = string(h.Value)
	}
	return attrs
}
