package engine

import "testing"

func TestEventBus_SubscribeReceivesAll(t *testing.T) {
	bus := NewEventBus()
	var got []EventType
	bus.Subscribe(func(evt Event) { got = append(got, evt.Type) })

	bus.Emit(Event{Type: EventRobotConnected})
	bus.Emit(Event{Type: EventMapUpdated})

	if len(got) != 2 || got[0] != EventRobotConnected || got[1] != EventMapUpdated {
		t.Errorf("received = %v", got)
	}
}

func TestEventBus_SubscribeTypesFilters(t *testing.T) {
	bus := NewEventBus()
	var got []EventType
	bus.SubscribeTypes(func(evt Event) { got = append(got, evt.Type) }, EventMapUpdated, EventJobStarted)

	bus.Emit(Event{Type: EventRobotConnected})
	bus.Emit(Event{Type: EventMapUpdated})
	bus.Emit(Event{Type: EventJobStarted})

	if len(got) != 2 || got[0] != EventMapUpdated || got[1] != EventJobStarted {
		t.Errorf("received = %v", got)
	}
}

func TestEventBus_Unsubscribe(t *testing.T) {
	bus := NewEventBus()
	count := 0
	id := bus.Subscribe(func(Event) { count++ })

	bus.Emit(Event{Type: EventRobotConnected})
	bus.Unsubscribe(id)
	bus.Emit(Event{Type: EventRobotConnected})

	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}
}

func TestEventBus_TimestampSet(t *testing.T) {
	bus := NewEventBus()
	var got Event
	bus.Subscribe(func(evt Event) { got = evt })

	bus.Emit(Event{Type: EventRobotConnected})
	if got.Timestamp.IsZero() {
		t.Error("emit should stamp a zero timestamp")
	}
}

// Handlers may emit follow-up events; the engine's wiring does this for
// segment changes and job completion.
func TestEventBus_NestedEmit(t *testing.T) {
	bus := NewEventBus()
	var got []EventType
	bus.SubscribeTypes(func(Event) {
		bus.Emit(Event{Type: EventSegmentsChanged})
	}, EventMapUpdated)
	bus.Subscribe(func(evt Event) { got = append(got, evt.Type) })

	bus.Emit(Event{Type: EventMapUpdated})

	if len(got) != 2 || got[0] != EventSegmentsChanged || got[1] != EventMapUpdated {
		t.Errorf("received = %v", got)
	}
}
