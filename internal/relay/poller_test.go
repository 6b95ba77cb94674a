package relay

import (
	"testing"
	"time"

	"relayctl/internal/device"
	"relayctl/internal/parse"
)

func TestPollerSweepNotifiesChanges(t *testing.T) {
	drv := device.NewMock()
	drv.AddModule("6QMBS", 6, 0b000001)
	p := NewPoller(drv, time.Minute, nil)

	var events []State
	p.Subscribe(func(st State) { events = append(events, st) })

	p.Sweep()
	if len(events) != 1 {
		t.Fatalf("events after first sweep = %d, want 1", len(events))
	}
	if events[0].Bits != "100000" {
		t.Errorf("bits = %q, want 100000", events[0].Bits)
	}

	// Unchanged state produces no event.
	p.Sweep()
	if len(events) != 1 {
		t.Fatalf("events after unchanged sweep = %d, want 1", len(events))
	}

	drv.AddModule("6QMBS", 6, 0b000011)
	p.Sweep()
	if len(events) != 2 {
		t.Fatalf("events after change = %d, want 2", len(events))
	}
	if events[1].Bits != "110000" {
		t.Errorf("bits = %q, want 110000", events[1].Bits)
	}
}

func TestPollerApply(t *testing.T) {
	drv := device.NewMock()
	drv.AddModule("6QMBS", 6, 0)
	p := NewPoller(drv, time.Minute, nil)
	p.Sweep()

	if err := p.Apply("6QMBS", 3, parse.Set); err != nil {
		t.Fatal(err)
	}
	states := p.Snapshot()
	if len(states) != 1 {
		t.Fatalf("snapshot = %d states, want 1", len(states))
	}
	if states[0].Mask != 0b100 {
		t.Errorf("mask = %#b, want 0b100", states[0].Mask)
	}

	// DontCare is a no-op.
	if err := p.Apply("6QMBS", 1, parse.DontCare); err != nil {
		t.Fatal(err)
	}
	if got := drv.Mask("6QMBS"); got != 0b100 {
		t.Errorf("mask after DontCare = %#b, want 0b100", got)
	}
}

func TestPollerApplyPattern(t *testing.T) {
	drv := device.NewMock()
	drv.AddModule("6QMBS", 6, 0b111111)
	p := NewPoller(drv, time.Minute, nil)
	p.Sweep()

	if err := p.ApplyPattern("6QMBS", "011XX0"); err != nil {
		t.Fatal(err)
	}
	// Channels 4 and 5 keep their previous state.
	if got := drv.Mask("6QMBS"); got != 0b011110 {
		t.Errorf("mask = %#b, want 0b011110", got)
	}

	if err := p.ApplyPattern("6QMBS", "012"); err == nil {
		t.Error("bad pattern accepted")
	}
}

func TestPollerUnsubscribe(t *testing.T) {
	drv := device.NewMock()
	drv.AddModule("6QMBS", 6, 1)
	p := NewPoller(drv, time.Minute, nil)

	calls := 0
	unsub := p.Subscribe(func(State) { calls++ })
	p.Sweep()
	unsub()
	drv.AddModule("6QMBS", 6, 3)
	p.Sweep()

	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}
