package messaging

import (
	"errors"
	"fmt"
	"sync"

	"github.com/hashicorp/go-hclog"

	"busnode/config"
	"busnode/topology"
)

// Context is the process-wide messaging context. Every broker client is
// created through it, and Term tears down whatever is still open. Exactly one
// Context exists per process; it is owned by the engine.
type Context struct {
	mu         sync.Mutex
	dial       Dialer
	clients    map[*Client]struct{}
	terminated bool
	logger     hclog.Logger
}

// NewContext builds a messaging context for the configured backend.
func NewContext(cfg *config.MessagingConfig, logger hclog.Logger) (*Context, error) {
	dial, err := DialerFor(cfg)
	if err != nil {
		return nil, err
	}
	return NewContextWithDialer(dial, logger), nil
}

// NewContextWithDialer builds a context over an arbitrary dialer. Tests use
// it with in-memory transports.
func NewContextWithDialer(dial Dialer, logger hclog.Logger) *Context {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Context{
		dial:    dial,
		clients: make(map[*Client]struct{}),
		logger:  logger.Named("messaging"),
	}
}

// NewClient creates an uninitialized client bound to this context. Nothing
// is dialed until Init.
func (c *Context) NewClient(name, token string, eps topology.RoleEndpoints) (*Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.terminated {
		return nil, ErrTerminated
	}
	if eps.Push == "" {
		return nil, fmt.Errorf("messaging: client %s has no push endpoint", name)
	}
	cl := &Client{
		name:      name,
		token:     token,
		endpoints: eps,
		fabric:    c,
		logger:    c.logger.Named(name),
	}
	c.clients[cl] = struct{}{}
	return cl, nil
}

func (c *Context) forget(cl *Client) {
	c.mu.Lock()
	delete(c.clients, cl)
	c.mu.Unlock()
}

// Term closes every client still open and refuses new ones. Safe to call
// more than once.
func (c *Context) Term() error {
	c.mu.Lock()
	if c.terminated {
		c.mu.Unlock()
		return nil
	}
	c.terminated = true
	open := make([]*Client, 0, len(c.clients))
	for cl := range c.clients {
		open = append(open, cl)
	}
	c.mu.Unlock()

	var errs []error
	for _, cl := range open {
		if err := cl.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(open) > 0 {
		c.logger.Debug("messaging context terminated", "closed_clients", len(open))
	}
	return errors.Join(errs...)
}

// Terminated reports whether Term has run.
func (c *Context) Terminated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.terminated
}

// OpenClients returns the number of clients not yet closed.
func (c *Context) OpenClients() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.clients)
}
