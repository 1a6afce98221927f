package engine

import (
	"busnode/connector"
)

// connectorEmitter bridges the connector package's emitter interface to the EventBus.
type connectorEmitter struct {
	bus *EventBus
}

func (e *connectorEmitter) EmitConnectorStarted(h connector.Handle) {
	e.bus.Emit(Event{Type: EventConnectorStarted, Payload: ConnectorStartedEvent{
		Kind:      h.Kind,
		ID:        h.ID,
		PID:       h.PID,
		StartedAt: h.StartedAt,
	}})
}

func (e *connectorEmitter) EmitConnectorFailed(kind string, id int64, err error) {
	e.bus.Emit(Event{Type: EventConnectorFailed, Payload: ConnectorFailedEvent{
		Kind:   kind,
		ID:     id,
		Detail: err.Error(),
	}})
}

func (e *connectorEmitter) EmitDirectiveSent(family, topic string, err error) {
	ev := DirectiveSentEvent{Family: family, Topic: topic}
	if err != nil {
		ev.Detail = err.Error()
	}
	e.bus.Emit(Event{Type: EventDirectiveSent, Payload: ev})
}
