package messaging

import (
	"context"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"busnode/config"
)

type mqttTransport struct {
	conn    mqtt.Client
	qos     byte
	timeout time.Duration
}

func dialMQTT(ctx context.Context, cfg *config.MessagingConfig, addr string) (Transport, error) {
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if dl, ok := ctx.Deadline(); ok && time.Until(dl) < timeout {
		timeout = time.Until(dl)
	}

	// Several transports share one configured client id, so each connection
	// gets a unique suffix or the broker would kick the previous one off.
	clientID := fmt.Sprintf("%s-%s", cfg.MQTT.ClientID, uuid.NewString()[:8])
	opts := mqtt.NewClientOptions().
		AddBroker(addr).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(timeout)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(timeout) {
		return nil, fmt.Errorf("mqtt connect %s: timed out after %s", addr, timeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", addr, err)
	}
	return &mqttTransport{conn: client, qos: cfg.MQTT.QoS, timeout: timeout}, nil
}

func (t *mqttTransport) Publish(ctx context.Context, topic string, payload []byte) error {
	if !t.conn.IsConnected() {
		return fmt.Errorf("mqtt not connected")
	}
	token := t.conn.Publish(topic, t.qos, false, payload)
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *mqttTransport) Subscribe(topic string, handler MessageHandler) error {
	token := t.conn.Subscribe(topic, t.qos, func(_ mqtt.Client, msg mqtt.Message) {
		handler(msg.Topic(), msg.Payload())
	})
	if !token.WaitTimeout(t.timeout) {
		return fmt.Errorf("mqtt subscribe %s: timed out", topic)
	}
	return token.Error()
}

func (t *mqttTransport) Close() error {
	t.conn.Disconnect(250)
	return nil
}
