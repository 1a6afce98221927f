package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hashicorp/go-hclog"

	"busnode/topology"
)

// Client is one broker client: a push socket towards the broker plus
// optional pull and sub sockets. Closing it is idempotent.
type Client struct {
	mu        sync.RWMutex
	name      string
	token     string
	endpoints topology.RoleEndpoints
	fabric    *Context

	push Transport
	pull Transport
	sub  Transport

	receiver *Receiver
	started  bool
	closed   bool
	logger   hclog.Logger
}

func (c *Client) Name() string { return c.name }

func (c *Client) Endpoints() topology.RoleEndpoints { return c.endpoints }

// Init dials the client's sockets. On failure anything already dialed is
// closed again and the client stays uninitialized.
func (c *Client) Init(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if c.push != nil {
		return nil
	}

	var opened []Transport
	dial := func(addr string) (Transport, error) {
		if addr == "" {
			return nil, nil
		}
		t, err := c.fabric.dial(ctx, addr)
		if err != nil {
			for _, o := range opened {
				o.Close()
			}
			return nil, fmt.Errorf("client %s: dial %s: %w", c.name, addr, err)
		}
		opened = append(opened, t)
		return t, nil
	}

	push, err := dial(c.endpoints.Push)
	if err != nil {
		return err
	}
	pull, err := dial(c.endpoints.Pull)
	if err != nil {
		return err
	}
	sub, err := dial(c.endpoints.Sub)
	if err != nil {
		return err
	}
	c.push, c.pull, c.sub = push, pull, sub
	c.logger.Debug("broker client initialized", "push", c.endpoints.Push, "pull", c.endpoints.Pull, "sub", c.endpoints.Sub)
	return nil
}

// SetReceiver installs the receiver inbound pull messages are routed to.
// Must be called before Start.
func (c *Client) SetReceiver(r *Receiver) {
	c.mu.Lock()
	c.receiver = r
	c.mu.Unlock()
}

// Start begins receiving commands on the pull socket and broadcasts on the
// sub socket.
func (c *Client) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if c.push == nil {
		return ErrNotInitialized
	}
	if c.started || c.pull == nil || c.receiver == nil {
		return nil
	}
	if err := c.pull.Subscribe(CommandTopic(c.name), c.receiver.HandleRaw); err != nil {
		return fmt.Errorf("client %s: subscribe commands: %w", c.name, err)
	}
	if c.sub != nil {
		if err := c.sub.Subscribe(TopicBroadcast, c.receiver.HandleRaw); err != nil {
			return fmt.Errorf("client %s: subscribe broadcasts: %w", c.name, err)
		}
	}
	c.started = true
	return nil
}

// Send wraps payload in an envelope and pushes it to topic.
func (c *Client) Send(ctx context.Context, msgType, topic string, payload any) error {
	c.mu.RLock()
	push, closed := c.push, c.closed
	c.mu.RUnlock()

	if closed {
		return ErrClosed
	}
	if push == nil {
		return ErrNotInitialized
	}
	env, err := NewEnvelope(msgType, c.name, c.token, payload)
	if err != nil {
		return err
	}
	data, err := env.Encode()
	if err != nil {
		return err
	}
	return push.Publish(ctx, topic, data)
}

// SendDirective pushes a connector directive to the given sub-topic.
func (c *Client) SendDirective(ctx context.Context, d Directive, topic string) error {
	return c.Send(ctx, "directive", topic, d)
}

// Subscribe registers a handler for broadcasts on topic via the sub socket.
func (c *Client) Subscribe(topic string, handler MessageHandler) error {
	c.mu.RLock()
	sub, closed := c.sub, c.closed
	c.mu.RUnlock()

	if closed {
		return ErrClosed
	}
	if sub == nil {
		return fmt.Errorf("client %s: no sub endpoint", c.name)
	}
	return sub.Subscribe(topic, handler)
}

// Close closes all sockets and detaches from the messaging context.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	var errs []error
	for _, t := range []Transport{c.push, c.pull, c.sub} {
		if t == nil {
			continue
		}
		if err := t.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	c.push, c.pull, c.sub = nil, nil, nil
	c.mu.Unlock()

	c.fabric.forget(c)
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("client %s: close: %w", c.name, err)
	}
	return nil
}
