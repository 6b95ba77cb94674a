package device

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/sstallion/go-hid"

	"relayctl/internal/parse"
)

// The common USB relay boards enumerate as a V-USB HID device.
const (
	hidVendorID  = 0x16C0
	hidProductID = 0x05DF
)

// Feature report commands, one report of 8 payload bytes. The report
// also carries the board serial (bytes 1-5) and the channel bitmask
// (byte 8) on reads.
const (
	hidReportLen = 9
	cmdSetOne    = 0xFF
	cmdClearOne  = 0xFD
	cmdSetAll    = 0xFE
	cmdClearAll  = 0xFC
)

// HIDDriver drives USB HID relay boards through hidapi.
type HIDDriver struct {
	logger *slog.Logger
}

// NewHID creates the USB HID backend.
func NewHID(logger *slog.Logger) *HIDDriver {
	if logger == nil {
		logger = slog.Default()
	}
	return &HIDDriver{logger: logger.With("component", "hid")}
}

func (d *HIDDriver) Init() error {
	if err := hid.Init(); err != nil {
		return fmt.Errorf("hidapi init: %w", err)
	}
	return nil
}

func (d *HIDDriver) Close() error {
	return hid.Exit()
}

// channelsFromProduct parses the channel count from product strings
// like "USBRelay2". Returns 0 when the string has no trailing count.
func channelsFromProduct(product string) int {
	i := len(product)
	for i > 0 && product[i-1] >= '0' && product[i-1] <= '9' {
		i--
	}
	if i == len(product) {
		return 0
	}
	n, err := strconv.Atoi(product[i:])
	if err != nil || n < 1 || n > parse.MaxChannels {
		return 0
	}
	return n
}

// readBoard opens one enumerated path and reads its feature report.
func (d *HIDDriver) readBoard(path string) (serial string, mask uint16, channels int, err error) {
	dev, err := hid.OpenPath(path)
	if err != nil {
		return "", 0, 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer dev.Close()

	buf := make([]byte, hidReportLen)
	if _, err := dev.GetFeatureReport(buf); err != nil {
		return "", 0, 0, fmt.Errorf("feature report %s: %w", path, err)
	}
	serial = strings.ToUpper(strings.TrimRight(string(buf[1:1+parse.SerialNumberLen]), "\x00"))
	mask = uint16(buf[8])

	info, err := dev.GetDeviceInfo()
	if err == nil {
		channels = channelsFromProduct(info.ProductStr)
	}
	return serial, mask, channels, nil
}

func (d *HIDDriver) Enumerate() ([]Info, error) {
	var infos []Info
	err := hid.Enumerate(hidVendorID, hidProductID, func(ei *hid.DeviceInfo) error {
		serial, _, channels, err := d.readBoard(ei.Path)
		if err != nil {
			// Board present but unreadable (permissions, unplugged
			// mid-enumeration); skip it like the vendor library does.
			d.logger.Debug("skip board", "path", ei.Path, "err", err)
			return nil
		}
		if channels == 0 {
			channels = channelsFromProduct(ei.ProductStr)
		}
		infos = append(infos, Info{SerialNumber: serial, Channels: channels})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("enumerate hid devices: %w", err)
	}
	return infos, nil
}

func (d *HIDDriver) Open(serial string) (Module, error) {
	var path string
	err := hid.Enumerate(hidVendorID, hidProductID, func(ei *hid.DeviceInfo) error {
		if path != "" {
			return nil
		}
		sn, _, _, err := d.readBoard(ei.Path)
		if err == nil && sn == serial {
			path = ei.Path
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("enumerate hid devices: %w", err)
	}
	if path == "" {
		return nil, fmt.Errorf("module %s not found", serial)
	}
	dev, err := hid.OpenPath(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", serial, err)
	}
	return &hidModule{dev: dev}, nil
}

type hidModule struct {
	dev *hid.Device
}

func (m *hidModule) Status() (uint16, error) {
	buf := make([]byte, hidReportLen)
	if _, err := m.dev.GetFeatureReport(buf); err != nil {
		return 0, fmt.Errorf("read status: %w", err)
	}
	return uint16(buf[8]), nil
}

func (m *hidModule) command(cmd, arg byte) error {
	buf := make([]byte, hidReportLen)
	buf[1] = cmd
	buf[2] = arg
	if _, err := m.dev.SendFeatureReport(buf); err != nil {
		return fmt.Errorf("send command %#02x: %w", cmd, err)
	}
	return nil
}

func (m *hidModule) SetChannel(ch int, on bool) error {
	if on {
		return m.command(cmdSetOne, byte(ch))
	}
	return m.command(cmdClearOne, byte(ch))
}

func (m *hidModule) SetAll(on bool) error {
	if on {
		return m.command(cmdSetAll, 0)
	}
	return m.command(cmdClearAll, 0)
}

func (m *hidModule) Close() error {
	return m.dev.Close()
}
