package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/segmentio/kafka-go"

	"busnode/config"
	"busnode/topology"
)

type kafkaTransport struct {
	mu      sync.Mutex
	addr    string
	groupID string
	writer  *kafka.Writer
	readers map[string]*kafka.Reader
}

// dialKafka builds a writer and lazily-created readers against one broker
// address. Nothing is dialed until the first publish or subscribe, so a node
// can initialize while the broker is still coming up.
func dialKafka(_ context.Context, cfg *config.MessagingConfig, addr string) (Transport, error) {
	hostPort := topology.HostPort(addr)
	if hostPort == "" {
		return nil, fmt.Errorf("kafka: empty address")
	}
	return &kafkaTransport{
		addr:    hostPort,
		groupID: cfg.Kafka.GroupID,
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(hostPort),
			Balancer:               &kafka.LeastBytes{},
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: true,
		},
		readers: make(map[string]*kafka.Reader),
	}, nil
}

func (t *kafkaTransport) Publish(ctx context.Context, topic string, payload []byte) error {
	t.mu.Lock()
	w := t.writer
	t.mu.Unlock()
	if w == nil {
		return ErrClosed
	}
	return w.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Value: payload,
	})
}

func (t *kafkaTransport) Subscribe(topic string, handler MessageHandler) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.writer == nil {
		return ErrClosed
	}
	if _, ok := t.readers[topic]; ok {
		return fmt.Errorf("kafka: already subscribed to %s", topic)
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: []string{t.addr},
		Topic:   topic,
		GroupID: t.groupID,
	})
	t.readers[topic] = reader
	go func() {
		for {
			msg, err := reader.ReadMessage(context.Background())
			if err != nil {
				return
			}
			handler(msg.Topic, msg.Value)
		}
	}()
	return nil
}

func (t *kafkaTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	var errs []error
	for topic, r := range t.readers {
		if err := r.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close reader %s: %w", topic, err))
		}
		delete(t.readers, topic)
	}
	if t.writer != nil {
		if err := t.writer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close writer: %w", err))
		}
		t.writer = nil
	}
	return errors.Join(errs...)
}
