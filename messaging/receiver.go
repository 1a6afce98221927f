package messaging

import (
	"fmt"
	"sync"

	"github.com/hashicorp/go-hclog"
)

type ActionHandler func(env *Envelope) error

// Receiver routes inbound broker messages to the handler registered for
// their action code. Handlers are registered explicitly at initialization;
// anything without a handler is logged and dropped.
type Receiver struct {
	mu       sync.RWMutex
	handlers map[Action]ActionHandler
	filter   func(*Envelope) bool
	logger   hclog.Logger
}

func NewReceiver(logger hclog.Logger) *Receiver {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Receiver{
		handlers: make(map[Action]ActionHandler),
		logger:   logger,
	}
}

// Register binds a handler to an action. Registering the same action twice
// is a programming error.
func (r *Receiver) Register(action Action, h ActionHandler) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.handlers[action]; ok {
		return fmt.Errorf("receiver: action %s already registered", action)
	}
	r.handlers[action] = h
	return nil
}

// SetFilter installs a predicate run before dispatch; rejected messages are
// dropped silently.
func (r *Receiver) SetFilter(f func(*Envelope) bool) {
	r.mu.Lock()
	r.filter = f
	r.mu.Unlock()
}

// HandleRaw decodes and dispatches one message. Errors never propagate to
// the transport's read loop.
func (r *Receiver) HandleRaw(_ string, data []byte) {
	env, err := DecodeEnvelope(data)
	if err != nil {
		r.logger.Error("could not decode broker message", "error", err)
		return
	}
	r.Handle(env)
}

func (r *Receiver) Handle(env *Envelope) {
	r.mu.RLock()
	filter := r.filter
	r.mu.RUnlock()

	if filter != nil && !filter(env) {
		r.logger.Debug("rejecting broker message", "msg_id", env.MsgID, "msg_type", env.MsgType)
		return
	}

	action, err := env.Action()
	if err != nil {
		r.logger.Error("could not handle broker message", "msg_id", env.MsgID, "error", err)
		return
	}

	r.mu.RLock()
	h, ok := r.handlers[action]
	r.mu.RUnlock()
	if !ok {
		r.logger.Warn("no handler for broker action", "action", action, "msg_id", env.MsgID)
		return
	}
	if err := h(env); err != nil {
		r.logger.Error("broker message handler failed", "action", action, "msg_id", env.MsgID, "error", err)
	}
}
