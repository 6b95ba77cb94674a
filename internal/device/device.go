// Package device is the boundary to the relay hardware. A Driver
// enumerates modules and opens them by serial number; a Module exposes
// the status bitmask and per-channel switching. Three backends exist:
// USB HID boards (hid.go), serial-protocol boards declared in the
// config file (serial.go) and an in-memory fake (mock.go).
package device

// Info describes one enumerated relay module. Channels is 0 when the
// backend could not determine the channel count.
type Info struct {
	SerialNumber string
	Channels     int
}

// Driver enumerates and opens relay modules. Implementations are not
// safe for concurrent use; the CLI is single-threaded and the serve
// poller serializes access itself.
type Driver interface {
	// Init prepares the backend. It must be called before Enumerate
	// or Open and balanced with Close.
	Init() error
	// Enumerate lists all reachable modules.
	Enumerate() ([]Info, error)
	// Open opens the module with the given (upper-case) serial number.
	Open(serial string) (Module, error)
	// Close releases the backend.
	Close() error
}

// Module is one opened relay module.
type Module interface {
	// Status returns the channel bitmask; bit n-1 set means channel n
	// is energized.
	Status() (uint16, error)
	// SetChannel drives one channel (1-based).
	SetChannel(ch int, on bool) error
	// SetAll drives every channel at once.
	SetAll(on bool) error
	// Close releases the module handle.
	Close() error
}
