package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventBusFiltersByType(t *testing.T) {
	bus := NewEventBus()
	var all, joined []EventType
	bus.Subscribe(func(evt Event) { all = append(all, evt.Type) })
	bus.Subscribe(func(evt Event) { joined = append(joined, evt.Type) }, EventNodeJoined)

	bus.Emit(Event{Type: EventNodeJoined})
	bus.Emit(Event{Type: EventShutdownStep})

	assert.Equal(t, []EventType{EventNodeJoined, EventShutdownStep}, all)
	assert.Equal(t, []EventType{EventNodeJoined}, joined)
}

func TestEventBusStampsTimestamp(t *testing.T) {
	bus := NewEventBus()
	var got Event
	bus.Subscribe(func(evt Event) { got = evt })
	bus.Emit(Event{Type: EventShutdownStep})
	assert.False(t, got.Timestamp.IsZero())
}
