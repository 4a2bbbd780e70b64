package queue

import (
	"context"
	"crypto/tls"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl/plain"
)

const publishTimeout = 5 * time.Second

type Producer struct {
	writer *kafka.Writer
	log    *slog.Logger
}

// NewProducer returns nil when no broker is configured; a nil *Producer
// skips every publish.
func NewProducer(broker, topic, username, password string, log *slog.Logger) *Producer {
	if broker == "" {
		return nil
	}
	if log == nil {
		log = slog.Default()
	}

	var transport *kafka.Transport
	if username != "" {
		transport = &kafka.Transport{
			SASL: plain.Mechanism{
				Username: username,
				Password: password,
			},
			TLS: &tls.Config{MinVersion: tls.VersionTLS12},
		}
	}

	w := &kafka.Writer{
		Addr:                   kafka.TCP(broker),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		Async:                  false,
		WriteTimeout:           10 * time.Second,
		AllowAutoTopicCreation: true,
	}
	// a typed nil would shadow the default transport
	if transport != nil {
		w.Transport = transport
	}

	return &Producer{writer: w, log: log}
}

// PublishMessage writes one event. Callers key by user ID; the hash balancer
// keeps every event with the same key on one partition.
func (p *Producer) PublishMessage(ctx context.Context, key, value []byte) error {
	if p == nil || p.writer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err := p.writer.WriteMessages(ctx, newMessage(key, value, time.Now()))
	if err != nil {
		p.log.WarnContext(ctx, "kafka publish failed", "topic", p.writer.Topic, "err", err)
	}
	return err
}

func (p *Producer) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}

func newMessage(key, value []byte, at time.Time) kafka.Message {
	return kafka.Message{
		Key:   key,
		Value: value,
		Time:  at,
	}
}
