package core

import "testing"

func TestEventBusFireStopsAtFirstHandler(t *testing.T) {
	bus := NewEventBus()

	var calls []string
	first, second := "first", "second"
	bus.Register(EVENT_CODE_KEY_PRESSED, first, func(ctx EventContext) bool {
		calls = append(calls, first)
		return true
	})
	bus.Register(EVENT_CODE_KEY_PRESSED, second, func(ctx EventContext) bool {
		calls = append(calls, second)
		return false
	})

	if !bus.Fire(EventContext{Type: EVENT_CODE_KEY_PRESSED, Data: &KeyEvent{KeyCode: KEY_1}}) {
		t.Fatal("expected event to be handled")
	}
	if len(calls) != 1 || calls[0] != first {
		t.Fatalf("expected only the first listener to run, got %v", calls)
	}
}

func TestEventBusRejectsDuplicateListener(t *testing.T) {
	bus := NewEventBus()
	l := &struct{}{}
	noop := func(EventContext) bool { return false }

	if !bus.Register(EVENT_CODE_RESIZED, l, noop) {
		t.Fatal("first registration should succeed")
	}
	if bus.Register(EVENT_CODE_RESIZED, l, noop) {
		t.Fatal("duplicate registration should fail")
	}
	if !bus.Unregister(EVENT_CODE_RESIZED, l) {
		t.Fatal("unregister should find the listener")
	}
	if bus.Unregister(EVENT_CODE_RESIZED, l) {
		t.Fatal("second unregister should report not found")
	}
	if bus.Fire(EventContext{Type: EVENT_CODE_RESIZED}) {
		t.Fatal("no listener left, event must not be handled")
	}
}

func TestEventBusListenerMayUnregisterDuringFire(t *testing.T) {
	bus := NewEventBus()
	l := &struct{}{}
	fired := 0
	bus.Register(EVENT_CODE_ASSET_CHANGED, l, func(EventContext) bool {
		fired++
		bus.Unregister(EVENT_CODE_ASSET_CHANGED, l)
		return false
	})

	bus.Fire(EventContext{Type: EVENT_CODE_ASSET_CHANGED})
	bus.Fire(EventContext{Type: EVENT_CODE_ASSET_CHANGED})
	if fired != 1 {
		t.Fatalf("expected a single delivery, got %d", fired)
	}
}
