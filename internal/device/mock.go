package device

import (
	"fmt"
	"sort"
	"sync"
)

// MockDriver is an in-memory Driver for tests and the "mock" driver
// setting. Channel state survives across Open/Close within one process.
type MockDriver struct {
	mu      sync.Mutex
	modules map[string]*mockState

	// FailInit makes Init fail, for exercising the driver-init path.
	FailInit bool

	// Calls records every SetChannel/SetAll in application order, as
	// "SN:3=H" / "SN:ALL=L" strings.
	Calls []string

	inited bool
}

type mockState struct {
	channels int
	mask     uint16
}

// NewMock creates an empty mock driver.
func NewMock() *MockDriver {
	return &MockDriver{modules: make(map[string]*mockState)}
}

// AddModule registers a module with the given serial number, channel
// count and initial status bitmask.
func (d *MockDriver) AddModule(serial string, channels int, mask uint16) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.modules[serial] = &mockState{channels: channels, mask: mask}
}

// Mask returns the current bitmask of a module.
func (d *MockDriver) Mask(serial string) uint16 {
	d.mu.Lock()
	defer d.mu.Unlock()
	if st, ok := d.modules[serial]; ok {
		return st.mask
	}
	return 0
}

func (d *MockDriver) Init() error {
	if d.FailInit {
		return fmt.Errorf("mock driver init refused")
	}
	d.inited = true
	return nil
}

func (d *MockDriver) Close() error {
	d.inited = false
	return nil
}

func (d *MockDriver) Enumerate() ([]Info, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	serials := make([]string, 0, len(d.modules))
	for sn := range d.modules {
		serials = append(serials, sn)
	}
	sort.Strings(serials)
	infos := make([]Info, 0, len(serials))
	for _, sn := range serials {
		infos = append(infos, Info{SerialNumber: sn, Channels: d.modules[sn].channels})
	}
	return infos, nil
}

func (d *MockDriver) Open(serial string) (Module, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	st, ok := d.modules[serial]
	if !ok {
		return nil, fmt.Errorf("module %s not found", serial)
	}
	return &mockModule{drv: d, serial: serial, state: st}, nil
}

type mockModule struct {
	drv    *MockDriver
	serial string
	state  *mockState
}

func (m *mockModule) Status() (uint16, error) {
	m.drv.mu.Lock()
	defer m.drv.mu.Unlock()
	return m.state.mask, nil
}

func (m *mockModule) SetChannel(ch int, on bool) error {
	m.drv.mu.Lock()
	defer m.drv.mu.Unlock()
	if ch < 1 || ch > m.state.channels {
		return fmt.Errorf("channel %d out of range", ch)
	}
	bit := uint16(1) << (ch - 1)
	call := fmt.Sprintf("%s:%d=L", m.serial, ch)
	if on {
		m.state.mask |= bit
		call = fmt.Sprintf("%s:%d=H", m.serial, ch)
	} else {
		m.state.mask &^= bit
	}
	m.drv.Calls = append(m.drv.Calls, call)
	return nil
}

func (m *mockModule) SetAll(on bool) error {
	m.drv.mu.Lock()
	defer m.drv.mu.Unlock()
	call := m.serial + ":ALL=L"
	if on {
		m.state.mask = 1<<m.state.channels - 1
		call = m.serial + ":ALL=H"
	} else {
		m.state.mask = 0
	}
	m.drv.Calls = append(m.drv.Calls, call)
	return nil
}

func (m *mockModule) Close() error {
	return nil
}
