package messaging

import (
	"context"
	"fmt"

	"busnode/config"
)

type MessageHandler func(topic string, payload []byte)

// Transport is one socket onto the broker fabric. A client holds up to three:
// push (to the broker), pull (commands from the broker) and sub (broadcasts).
type Transport interface {
	Publish(ctx context.Context, topic string, payload []byte) error
	Subscribe(topic string, handler MessageHandler) error
	Close() error
}

// Dialer opens a transport to one endpoint address (scheme://host:port).
type Dialer func(ctx context.Context, addr string) (Transport, error)

// DialerFor picks the transport implementation configured for the fabric.
func DialerFor(cfg *config.MessagingConfig) (Dialer, error) {
	switch cfg.Backend {
	case "kafka":
		return func(ctx context.Context, addr string) (Transport, error) {
			return dialKafka(ctx, cfg, addr)
		}, nil
	case "mqtt":
		return func(ctx context.Context, addr string) (Transport, error) {
			return dialMQTT(ctx, cfg, addr)
		}, nil
	case "memory":
		return NewMemoryHub().Dialer(), nil
	default:
		return nil, fmt.Errorf("unknown messaging backend: %s", cfg.Backend)
	}
}
