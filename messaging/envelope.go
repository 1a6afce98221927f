package messaging

import (
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
)

// Envelope wraps every message carried by the broker fabric. The payload is
// kept raw so receivers can peek at the action before decoding the body.
type Envelope struct {
	MsgType   string          `json:"msg_type"`
	MsgID     string          `json:"msg_id"`
	Client    string          `json:"client"`
	Token     string          `json:"token"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// NewEnvelope creates an outbound envelope with a new UUID and timestamp.
func NewEnvelope(msgType, client, token string, payload any) (*Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return &Envelope{
		MsgType:   msgType,
		MsgID:     uuid.New().String(),
		Client:    client,
		Token:     token,
		Timestamp: time.Now(),
		Payload:   data,
	}, nil
}

// Encode marshals an envelope to JSON.
func (e *Envelope) Encode() ([]byte, error) {
	return json.Marshal(e)
}

func DecodeEnvelope(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	if env.MsgType == "" {
		return nil, fmt.Errorf("decode envelope: missing msg_type")
	}
	return &env, nil
}

// Action returns the payload's action code without decoding the rest of it.
func (e *Envelope) Action() (Action, error) {
	var head struct {
		Action Action `json:"action"`
	}
	if err := json.Unmarshal(e.Payload, &head); err != nil {
		return "", fmt.Errorf("decode action: %w", err)
	}
	return head.Action, nil
}

// DecodePayload unmarshals the payload into v.
func (e *Envelope) DecodePayload(v any) error {
	return json.Unmarshal(e.Payload, v)
}
