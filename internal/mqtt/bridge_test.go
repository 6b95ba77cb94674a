package mqtt

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"relayctl/internal/alias"
	"relayctl/internal/device"
	"relayctl/internal/relay"
	"relayctl/internal/settings"
)

// fakeMessage satisfies pahomqtt.Message without a broker.
type fakeMessage struct {
	topic   string
	payload string
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 0 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 0 }
func (m fakeMessage) Payload() []byte   { return []byte(m.payload) }
func (m fakeMessage) Ack()              {}

func newTestBridge(t *testing.T) (*Bridge, *device.MockDriver) {
	t.Helper()
	drv := device.NewMock()
	drv.AddModule("6QMBS", 6, 0)

	poller := relay.NewPoller(drv, time.Second, nil)
	poller.Sweep()

	table := alias.NewTable(alias.NewStore(settings.NewMemStore(), nil))
	table.Assign("lamp", "6QMBS")

	b := &Bridge{
		poller: poller,
		table:  table,
		prefix: "relayctl",
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	return b, drv
}

func TestCommandSetChannel(t *testing.T) {
	b, drv := newTestBridge(t)

	b.handleCommand(nil, fakeMessage{"relayctl/6QMBS/3/set", "ON"})
	if got := drv.Mask("6QMBS"); got != 0b100 {
		t.Errorf("mask = %#b, want 0b100", got)
	}

	b.handleCommand(nil, fakeMessage{"relayctl/6QMBS/3/set", "OFF"})
	if got := drv.Mask("6QMBS"); got != 0 {
		t.Errorf("mask = %#b, want 0", got)
	}
}

func TestCommandSetPattern(t *testing.T) {
	b, drv := newTestBridge(t)

	b.handleCommand(nil, fakeMessage{"relayctl/lamp/set", "011XX0"})
	if got := drv.Mask("6QMBS"); got != 0b000110 {
		t.Errorf("mask = %#b, want 0b000110", got)
	}
}

func TestCommandAliasTopic(t *testing.T) {
	b, drv := newTestBridge(t)

	b.handleCommand(nil, fakeMessage{"relayctl/lamp/2/set", "1"})
	if got := drv.Mask("6QMBS"); got != 0b10 {
		t.Errorf("mask = %#b, want 0b10", got)
	}
}

func TestCommandIgnored(t *testing.T) {
	b, drv := newTestBridge(t)

	for _, msg := range []fakeMessage{
		{"relayctl/NOSUCH!/set", "1"},      // unresolvable token
		{"relayctl/6QMBS/9/set", "ON"},     // channel out of range
		{"relayctl/6QMBS/3/set", "MAYBE"},  // unknown state payload
		{"relayctl/6QMBS/state", "101010"}, // not a command topic
		{"relayctl/6QMBS/set", "012"},      // malformed pattern
	} {
		b.handleCommand(nil, msg)
	}
	if got := drv.Mask("6QMBS"); got != 0 {
		t.Errorf("mask = %#b, want untouched", got)
	}
}
