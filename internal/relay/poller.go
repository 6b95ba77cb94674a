package relay

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"relayctl/internal/device"
	"relayctl/internal/parse"
)

// State is the last known status of one module.
type State struct {
	SerialNumber string `json:"serial_number"`
	Channels     int    `json:"channels"`
	Mask         uint16 `json:"mask"`
	Bits         string `json:"bits"`
}

// bitString renders the low n bits of mask, channel 1 first.
func bitString(mask uint16, n int) string {
	buf := make([]byte, n)
	for i := 0; i < n; i++ {
		if mask&(1<<i) != 0 {
			buf[i] = '1'
		} else {
			buf[i] = '0'
		}
	}
	return string(buf)
}

// Poller sweeps module status on an interval and fans out change events
// to subscribers (the MQTT bridge and the WebSocket hub). It owns the
// driver for the lifetime of Run and serializes all device access.
type Poller struct {
	drv      device.Driver
	interval time.Duration
	logger   *slog.Logger

	// devMu serializes driver access between the sweep goroutine and
	// Apply* callers; the backends are not safe for concurrent use.
	devMu sync.Mutex

	mu     sync.Mutex
	states map[string]State
	subs   map[int]func(State)
	nextID int
}

// NewPoller creates a poller over the given driver.
func NewPoller(drv device.Driver, interval time.Duration, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &Poller{
		drv:      drv,
		interval: interval,
		logger:   logger.With("component", "poller"),
		states:   make(map[string]State),
		subs:     make(map[int]func(State)),
	}
}

// Subscribe registers a change callback and returns an unsubscribe
// function. The callback runs on the poller goroutine.
func (p *Poller) Subscribe(fn func(State)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextID
	p.nextID++
	p.subs[id] = fn
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.subs, id)
	}
}

// Snapshot returns the last known state of every module.
func (p *Poller) Snapshot() []State {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]State, 0, len(p.states))
	for _, st := range p.states {
		out = append(out, st)
	}
	return out
}

// Run initializes the driver and sweeps until ctx is done.
func (p *Poller) Run(ctx context.Context) error {
	if err := p.drv.Init(); err != nil {
		return fmt.Errorf("driver init: %w", err)
	}
	defer p.drv.Close()

	p.Sweep()
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.Sweep()
		}
	}
}

// Sweep performs one status pass over every enumerated module,
// updating states and notifying subscribers of changes.
func (p *Poller) Sweep() {
	p.devMu.Lock()
	defer p.devMu.Unlock()
	infos, err := p.drv.Enumerate()
	if err != nil {
		p.logger.Warn("enumerate", "err", err)
		return
	}
	for _, info := range infos {
		mod, err := p.drv.Open(info.SerialNumber)
		if err != nil {
			p.logger.Debug("open module", "serial", info.SerialNumber, "err", err)
			continue
		}
		mask, err := mod.Status()
		mod.Close()
		if err != nil {
			p.logger.Debug("read status", "serial", info.SerialNumber, "err", err)
			continue
		}
		p.update(info, mask)
	}
}

func (p *Poller) update(info device.Info, mask uint16) {
	st := State{
		SerialNumber: info.SerialNumber,
		Channels:     info.Channels,
		Mask:         mask,
		Bits:         bitString(mask, info.Channels),
	}

	p.mu.Lock()
	prev, seen := p.states[info.SerialNumber]
	p.states[info.SerialNumber] = st
	var subs []func(State)
	if !seen || prev.Mask != mask {
		subs = make([]func(State), 0, len(p.subs))
		for _, fn := range p.subs {
			subs = append(subs, fn)
		}
	}
	p.mu.Unlock()

	for _, fn := range subs {
		fn(st)
	}
}

// Apply drives one channel of one module and refreshes its state
// immediately so subscribers see the change without waiting a tick.
func (p *Poller) Apply(serial string, ch int, state parse.Logic) error {
	if state == parse.DontCare {
		return nil
	}
	p.devMu.Lock()
	defer p.devMu.Unlock()
	mod, err := p.drv.Open(serial)
	if err != nil {
		return fmt.Errorf("open module %s: %w", serial, err)
	}
	defer mod.Close()

	if err := mod.SetChannel(ch, state == parse.Set); err != nil {
		return fmt.Errorf("set channel %d: %w", ch, err)
	}
	p.refresh(serial, mod)
	return nil
}

// ApplyPattern drives a compact pattern against one module.
func (p *Poller) ApplyPattern(serial, pattern string) error {
	states, ok := parse.ParsePattern(pattern)
	if !ok {
		return fmt.Errorf("bad pattern %q", pattern)
	}
	p.devMu.Lock()
	defer p.devMu.Unlock()
	mod, err := p.drv.Open(serial)
	if err != nil {
		return fmt.Errorf("open module %s: %w", serial, err)
	}
	defer mod.Close()

	for i, st := range states {
		if st == parse.DontCare {
			continue
		}
		if err := mod.SetChannel(i+1, st == parse.Set); err != nil {
			return fmt.Errorf("set channel %d: %w", i+1, err)
		}
	}
	p.refresh(serial, mod)
	return nil
}

// ApplyAll drives every channel of one module.
func (p *Poller) ApplyAll(serial string, on bool) error {
	p.devMu.Lock()
	defer p.devMu.Unlock()
	mod, err := p.drv.Open(serial)
	if err != nil {
		return fmt.Errorf("open module %s: %w", serial, err)
	}
	defer mod.Close()

	if err := mod.SetAll(on); err != nil {
		return fmt.Errorf("set all: %w", err)
	}
	p.refresh(serial, mod)
	return nil
}

func (p *Poller) refresh(serial string, mod device.Module) {
	mask, err := mod.Status()
	if err != nil {
		p.logger.Debug("refresh status", "serial", serial, "err", err)
		return
	}
	p.mu.Lock()
	info := device.Info{SerialNumber: serial, Channels: p.states[serial].Channels}
	p.mu.Unlock()
	p.update(info, mask)
}
