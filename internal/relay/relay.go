// Package relay executes enumerate, query and set operations against a
// device.Driver, preserving the output shapes of the original utility:
// enumeration as "SN(channels)" comma-joined, queries as one bit-string
// per module, and set plans applied one module at a time with each
// handle closed before the next opens.
package relay

import (
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"relayctl/internal/device"
	"relayctl/internal/parse"
)

// Inventory is the result of one enumeration pass.
type Inventory []device.Info

// Has reports whether serial is present in the inventory.
func (inv Inventory) Has(serial string) bool {
	if serial == "" {
		return false
	}
	for _, info := range inv {
		if info.SerialNumber == serial {
			return true
		}
	}
	return false
}

// Channels returns the channel count for serial, or 0 when the serial
// is absent (or the backend could not determine the count).
func (inv Inventory) Channels(serial string) int {
	if serial == "" {
		return 0
	}
	for _, info := range inv {
		if info.SerialNumber == serial {
			return info.Channels
		}
	}
	return 0
}

// Query selects channels of one module. An empty Channels slice means
// all channels of the module in ascending order.
type Query struct {
	Serial   string
	Channels []int
}

// Plan maps serial number to per-channel target states. DontCare
// channels are never sent to the device.
type Plan map[string]map[int]parse.Logic

// Channel records a target state for one channel of one module,
// creating the module entry on first use.
func (p Plan) Channel(serial string, ch int, state parse.Logic) {
	m, ok := p[serial]
	if !ok {
		m = make(map[int]parse.Logic)
		p[serial] = m
	}
	m[ch] = state
}

// Controller runs relay operations. Command output goes to Out; logs go
// through the injected logger.
type Controller struct {
	drv    device.Driver
	out    io.Writer
	logger *slog.Logger
}

// NewController creates a Controller over the given driver.
func NewController(drv device.Driver, out io.Writer, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{drv: drv, out: out, logger: logger.With("component", "relay")}
}

// Inventory performs one init/enumerate/close pass. An empty
// enumeration is ErrNoDevices; an init failure is ErrDriverInit.
func (c *Controller) Inventory() (Inventory, error) {
	if err := c.drv.Init(); err != nil {
		c.logger.Debug("driver init", "err", err)
		return nil, ErrDriverInit
	}
	defer c.drv.Close()

	infos, err := c.drv.Enumerate()
	if err != nil {
		c.logger.Debug("enumerate", "err", err)
		return nil, ErrNoDevices
	}
	if len(infos) == 0 {
		return nil, ErrNoDevices
	}
	return Inventory(infos), nil
}

// Enumerate prints every discovered module as "SN(channels)", comma
// joined. An unknown channel count prints as "?".
func (c *Controller) Enumerate() error {
	inv, err := c.Inventory()
	if err != nil {
		return err
	}
	parts := make([]string, 0, len(inv))
	for _, info := range inv {
		if info.Channels > 0 {
			parts = append(parts, fmt.Sprintf("%s(%d)", info.SerialNumber, info.Channels))
		} else {
			parts = append(parts, info.SerialNumber+"(?)")
		}
	}
	fmt.Fprintln(c.out, strings.Join(parts, ","))
	return nil
}

// RunQueries reads each module's status bitmask once and prints one bit
// per requested channel in the literal request order, modules separated
// by spaces. Channel digits above the module's channel count are
// skipped at print time; the caller validates list lengths.
func (c *Controller) RunQueries(queries []Query, inv Inventory) error {
	if err := c.drv.Init(); err != nil {
		c.logger.Debug("driver init", "err", err)
		return ErrDriverInit
	}
	defer c.drv.Close()

	outputs := make([]string, 0, len(queries))
	for _, q := range queries {
		numChannels := inv.Channels(q.Serial)

		mod, err := c.drv.Open(q.Serial)
		if err != nil {
			c.logger.Warn("open module", "serial", q.Serial, "err", err)
			continue
		}
		mask, err := mod.Status()
		mod.Close()
		if err != nil {
			c.logger.Warn("read status", "serial", q.Serial, "err", err)
			continue
		}

		channels := q.Channels
		if len(channels) == 0 {
			channels = make([]int, numChannels)
			for i := range channels {
				channels[i] = i + 1
			}
		}

		var bits strings.Builder
		for _, ch := range channels {
			if ch < 1 || ch > numChannels {
				continue
			}
			if mask&(1<<(ch-1)) != 0 {
				bits.WriteByte('1')
			} else {
				bits.WriteByte('0')
			}
		}
		outputs = append(outputs, bits.String())
	}

	fmt.Fprintln(c.out, strings.Join(outputs, " "))
	return nil
}

// RunPlan applies a set plan, one module at a time in serial-number
// order, closing each handle before the next opens. DontCare channels
// produce no device call.
func (c *Controller) RunPlan(plan Plan) error {
	if err := c.drv.Init(); err != nil {
		c.logger.Debug("driver init", "err", err)
		return ErrDriverInit
	}
	defer c.drv.Close()

	serials := make([]string, 0, len(plan))
	for sn := range plan {
		serials = append(serials, sn)
	}
	sort.Strings(serials)

	for _, sn := range serials {
		mod, err := c.drv.Open(sn)
		if err != nil {
			c.logger.Warn("open module", "serial", sn, "err", err)
			continue
		}

		channels := make([]int, 0, len(plan[sn]))
		for ch := range plan[sn] {
			channels = append(channels, ch)
		}
		sort.Ints(channels)

		for _, ch := range channels {
			var seterr error
			switch plan[sn][ch] {
			case parse.Set:
				seterr = mod.SetChannel(ch, true)
			case parse.Clear:
				seterr = mod.SetChannel(ch, false)
			}
			if seterr != nil {
				c.logger.Warn("set channel", "serial", sn, "channel", ch, "err", seterr)
			}
		}

		mod.Close()
	}
	return nil
}
