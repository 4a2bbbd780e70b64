package queue

import (
	"context"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProducer_NoBrokerDisablesPublishing(t *testing.T) {
	p := NewProducer("", "identity.events", "", "", nil)
	require.Nil(t, p)

	assert.NoError(t, p.PublishMessage(context.Background(), []byte("k"), []byte("v")))
	assert.NoError(t, p.Close())
}

func TestNewProducer_Transport(t *testing.T) {
	plainText := NewProducer("localhost:9092", "identity.events", "", "", nil)
	require.NotNil(t, plainText)
	assert.Nil(t, plainText.writer.Transport)
	assert.Equal(t, "identity.events", plainText.writer.Topic)
	assert.Equal(t, kafka.RequireAll, plainText.writer.RequiredAcks)

	sasl := NewProducer("broker:9093", "identity.events", "user", "secret", nil)
	require.NotNil(t, sasl)
	transport, ok := sasl.writer.Transport.(*kafka.Transport)
	require.True(t, ok)
	assert.NotNil(t, transport.SASL)
	assert.NotNil(t, transport.TLS)
}

func TestNewMessage(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	msg := newMessage([]byte("u1"), []byte(`{"type":"identity.verified","user_id":"u1"}`), at)

	assert.Equal(t, []byte("u1"), msg.Key)
	assert.JSONEq(t, `{"type":"identity.verified","user_id":"u1"}`, string(msg.Value))
	assert.Equal(t, at, msg.Time)
}
