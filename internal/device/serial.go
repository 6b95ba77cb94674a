package device

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.bug.st/serial"

	"relayctl/internal/parse"
)

// Board describes one serial-protocol relay board. These boards carry
// no factory serial number, so the config assigns one.
type Board struct {
	Port     string
	Serial   string
	Channels int
	Baud     int
}

// SerialDriver drives LC-style relay boards over a serial port. A set
// command is the 4-byte frame {0xA0, channel, state, checksum}; a 0xFF
// probe makes the board report every channel as a "CHn:ON" or "CHn:OFF"
// line.
type SerialDriver struct {
	boards []Board
	logger *slog.Logger
}

// NewSerial creates the serial backend for the configured boards.
func NewSerial(boards []Board, logger *slog.Logger) *SerialDriver {
	if logger == nil {
		logger = slog.Default()
	}
	return &SerialDriver{boards: boards, logger: logger.With("component", "serial")}
}

func (d *SerialDriver) Init() error {
	return nil
}

func (d *SerialDriver) Close() error {
	return nil
}

func (d *SerialDriver) Enumerate() ([]Info, error) {
	infos := make([]Info, 0, len(d.boards))
	for _, b := range d.boards {
		infos = append(infos, Info{
			SerialNumber: parse.Normalize(b.Serial),
			Channels:     b.Channels,
		})
	}
	return infos, nil
}

func (d *SerialDriver) Open(serialNumber string) (Module, error) {
	for _, b := range d.boards {
		if parse.Normalize(b.Serial) != serialNumber {
			continue
		}
		baud := b.Baud
		if baud == 0 {
			baud = 9600
		}
		mode := &serial.Mode{
			BaudRate: baud,
			DataBits: 8,
			Parity:   serial.NoParity,
			StopBits: serial.OneStopBit,
		}
		port, err := serial.Open(b.Port, mode)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", b.Port, err)
		}
		return &serialModule{port: port, channels: b.Channels}, nil
	}
	return nil, fmt.Errorf("module %s not found", serialNumber)
}

type serialModule struct {
	port     serial.Port
	channels int
}

// setFrame builds the 4-byte set command; the checksum is the low byte
// of the sum of the first three.
func setFrame(ch int, on bool) []byte {
	state := byte(0)
	if on {
		state = 1
	}
	frame := []byte{0xA0, byte(ch), state, 0}
	frame[3] = frame[0] + frame[1] + frame[2]
	return frame
}

func (m *serialModule) SetChannel(ch int, on bool) error {
	if _, err := m.port.Write(setFrame(ch, on)); err != nil {
		return fmt.Errorf("write set frame: %w", err)
	}
	return nil
}

func (m *serialModule) SetAll(on bool) error {
	for ch := 1; ch <= m.channels; ch++ {
		if err := m.SetChannel(ch, on); err != nil {
			return err
		}
	}
	return nil
}

func (m *serialModule) Status() (uint16, error) {
	if _, err := m.port.Write([]byte{0xFF}); err != nil {
		return 0, fmt.Errorf("write status probe: %w", err)
	}
	if err := m.port.SetReadTimeout(500 * time.Millisecond); err != nil {
		return 0, fmt.Errorf("set read timeout: %w", err)
	}

	// The board answers with one text line per channel; a zero-length
	// read marks the timeout and the end of the report.
	var raw []byte
	buf := make([]byte, 64)
	for {
		n, err := m.port.Read(buf)
		if err != nil {
			return 0, fmt.Errorf("read status: %w", err)
		}
		if n == 0 {
			break
		}
		raw = append(raw, buf[:n]...)
	}
	return parseStatusReport(string(raw)), nil
}

// parseStatusReport extracts a channel bitmask from "CHn:ON"/"CHn:OFF"
// lines. Unrecognized lines are ignored.
func parseStatusReport(report string) uint16 {
	var mask uint16
	for _, line := range strings.Split(report, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "CH") {
			continue
		}
		rest := line[2:]
		i := strings.IndexByte(rest, ':')
		if i != 1 || rest[0] < '1' || rest[0] > '8' {
			continue
		}
		if strings.EqualFold(rest[i+1:], "ON") {
			mask |= 1 << (rest[0] - '1')
		}
	}
	return mask
}

func (m *serialModule) Close() error {
	return m.port.Close()
}
