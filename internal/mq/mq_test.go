package mq

import (
	"context"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tablehop/apiserver/config"
)

type recordingBackend struct {
	published []string
	closed    bool
}

func (b *recordingBackend) Publish(_ context.Context, channel string, data []byte, _ map[string]string) (string, error) {
	b.published = append(b.published, channel+":"+string(data))
	return "id-1", nil
}

func (b *recordingBackend) Subscribe(ctx context.Context, channel string, handler Handler) error {
	return handler(ctx, Message{ID: "id-1", Data: []byte(channel)})
}

func (b *recordingBackend) Close() error {
	b.closed = true
	return nil
}

func TestMQ_DelegatesToBackend(t *testing.T) {
	backend := &recordingBackend{}
	m := New(backend)

	id, err := m.Publish(context.Background(), "reservations", []byte("hello"), nil)
	require.NoError(t, err)
	assert.Equal(t, "id-1", id)
	assert.Equal(t, []string{"reservations:hello"}, backend.published)

	var got Message
	err = m.Subscribe(context.Background(), "reservations", func(_ context.Context, msg Message) error {
		got = msg
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "reservations", string(got.Data))

	require.NoError(t, m.Close())
	assert.True(t, backend.closed)
}

func TestOpen_NoBackend(t *testing.T) {
	m, err := Open(context.Background(), config.MQConfig{Backend: config.MQBackendNone})
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestOpen_Unknown(t *testing.T) {
	_, err := Open(context.Background(), config.MQConfig{Backend: "smoke-signals"})
	require.Error(t, err)
}

func TestOpen_MissingSettings(t *testing.T) {
	_, err := Open(context.Background(), config.MQConfig{Backend: config.MQBackendRabbitMQ})
	require.Error(t, err)

	_, err = Open(context.Background(), config.MQConfig{Backend: config.MQBackendPubSub})
	require.Error(t, err)

	_, err = Open(context.Background(), config.MQConfig{Backend: config.MQBackendKafka})
	require.Error(t, err)
}

func TestKafkaClient_WriterPerTopic(t *testing.T) {
	k, err := NewKafkaClient(config.KafkaConfig{Brokers: []string{"localhost:9092"}, GroupID: "g"})
	require.NoError(t, err)

	w1 := k.writer("reservations")
	w2 := k.writer("reservations")
	w3 := k.writer("other")
	assert.Same(t, w1, w2)
	assert.NotSame(t, w1, w3)
	require.NoError(t, k.Close())
	assert.Empty(t, k.writers)
}

func TestKafkaClient_RequiresGroup(t *testing.T) {
	_, err := NewKafkaClient(config.KafkaConfig{Brokers: []string{"localhost:9092"}})
	require.Error(t, err)
}

func TestKafkaClient_PublishRequiresChannel(t *testing.T) {
	k, err := NewKafkaClient(config.KafkaConfig{Brokers: []string{"localhost:9092"}, GroupID: "g"})
	require.NoError(t, err)
	_, err = k.Publish(context.Background(), " ", nil, nil)
	require.Error(t, err)
}

func TestHeaderConversion(t *testing.T) {
	attrs := kafkaHeadersToAttributes([]kafka.Header{
		{Key: "type", Value: []byte("reservation.created")},
		{Key: kafkaMessageIDHeader, Value: []byte("m1")},
	})
	assert.Equal(t, "reservation.created", attrs["type"])
	assert.Equal(t, "m1", attrs[kafkaMessageIDHeader])
	assert.Nil(t, kafkaHeadersToAttributes(nil))

	amqpAttrs := headersToAttributes(amqp.Table{"type": "reservation.deleted", "raw": []byte("x"), "n": int32(3)})
	assert.Equal(t, "reservation.deleted", amqpAttrs["type"])
	assert.Equal(t, "x", amqpAttrs["raw"])
	assert.Equal(t, "3", amqpAttrs["n"])
}

func TestRabbitMQQueueArgs(t *testing.T) {
	args := queueArgs("reservations")
	assert.Equal(t, "", args["x-dead-letter-exchange"])
	assert.Equal(t, "reservations.dlq", args["x-dead-letter-routing-key"])
}
