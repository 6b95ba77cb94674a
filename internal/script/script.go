// Package script runs one-shot Lua control scripts against the relay
// driver. Scripts see a `relay` global module with list/query/set
// operations; token arguments go through the alias table exactly like
// command-line tokens.
package script

import (
	"fmt"
	"log/slog"
	"time"

	lua "github.com/yuin/gopher-lua"

	"relayctl/internal/alias"
	"relayctl/internal/device"
	"relayctl/internal/parse"
)

// Session is one script run. The driver is initialized once for the
// whole script and released when Run returns.
type Session struct {
	drv    device.Driver
	table  *alias.Table
	logger *slog.Logger

	// Sleep is swappable so tests do not wait.
	Sleep func(time.Duration)
}

// NewSession creates a Session over the given driver and alias table.
func NewSession(drv device.Driver, table *alias.Table, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		drv:    drv,
		table:  table,
		logger: logger.With("component", "script"),
		Sleep:  time.Sleep,
	}
}

// Run executes the Lua file at path.
func (s *Session) Run(path string) error {
	if err := s.drv.Init(); err != nil {
		return fmt.Errorf("driver init: %w", err)
	}
	defer s.drv.Close()

	L := lua.NewState()
	defer L.Close()
	s.registerRelayModule(L)

	if err := L.DoFile(path); err != nil {
		return fmt.Errorf("script %s: %w", path, err)
	}
	return nil
}

// RunString executes Lua source directly; used by tests.
func (s *Session) RunString(src string) error {
	if err := s.drv.Init(); err != nil {
		return fmt.Errorf("driver init: %w", err)
	}
	defer s.drv.Close()

	L := lua.NewState()
	defer L.Close()
	s.registerRelayModule(L)

	return L.DoString(src)
}

func (s *Session) registerRelayModule(L *lua.LState) {
	mod := L.NewTable()

	mod.RawSetString("list", L.NewFunction(s.luaList))
	mod.RawSetString("resolve", L.NewFunction(s.luaResolve))
	mod.RawSetString("query", L.NewFunction(s.luaQuery))
	mod.RawSetString("set", L.NewFunction(s.luaSet))
	mod.RawSetString("set_pattern", L.NewFunction(s.luaSetPattern))
	mod.RawSetString("set_all", L.NewFunction(s.luaSetAll))
	mod.RawSetString("sleep", L.NewFunction(s.luaSleep))
	mod.RawSetString("log", L.NewFunction(s.luaLog))

	L.SetGlobal("relay", mod)
}

// relay.list() -> { {serial=..., channels=...}, ... }
func (s *Session) luaList(L *lua.LState) int {
	infos, err := s.drv.Enumerate()
	if err != nil {
		L.RaiseError("enumerate: %v", err)
		return 0
	}
	result := L.NewTable()
	for _, info := range infos {
		entry := L.NewTable()
		entry.RawSetString("serial", lua.LString(info.SerialNumber))
		entry.RawSetString("channels", lua.LNumber(info.Channels))
		result.Append(entry)
	}
	L.Push(result)
	return 1
}

// relay.resolve(token) -> sernum | nil
func (s *Session) luaResolve(L *lua.LState) int {
	sn := s.table.Resolve(L.CheckString(1))
	if sn == "" {
		L.Push(lua.LNil)
	} else {
		L.Push(lua.LString(sn))
	}
	return 1
}

// open resolves a script token and opens the module, raising a Lua
// error when either step fails.
func (s *Session) open(L *lua.LState, token string) (device.Module, string) {
	sn := s.table.Resolve(token)
	if sn == "" {
		L.RaiseError("not a serial number or alias: %s", token)
		return nil, ""
	}
	mod, err := s.drv.Open(sn)
	if err != nil {
		L.RaiseError("open %s: %v", sn, err)
		return nil, ""
	}
	return mod, sn
}

// relay.query(token) -> bitstring, channel 1 first
func (s *Session) luaQuery(L *lua.LState) int {
	token := L.CheckString(1)
	mod, sn := s.open(L, token)
	defer mod.Close()

	mask, err := mod.Status()
	if err != nil {
		L.RaiseError("status %s: %v", sn, err)
		return 0
	}

	channels := 0
	infos, err := s.drv.Enumerate()
	if err == nil {
		for _, info := range infos {
			if info.SerialNumber == sn {
				channels = info.Channels
			}
		}
	}

	bits := make([]byte, channels)
	for i := 0; i < channels; i++ {
		if mask&(1<<i) != 0 {
			bits[i] = '1'
		} else {
			bits[i] = '0'
		}
	}
	L.Push(lua.LString(bits))
	return 1
}

// relay.set(token, channel, state)
func (s *Session) luaSet(L *lua.LState) int {
	token := L.CheckString(1)
	ch := L.CheckInt(2)
	state := parse.ParseState(L.CheckString(3))
	if state == parse.DontCare {
		return 0
	}
	if ch < 1 || ch > parse.MaxChannels {
		L.RaiseError("channel %d out of range", ch)
		return 0
	}

	mod, sn := s.open(L, token)
	defer mod.Close()

	if err := mod.SetChannel(ch, state == parse.Set); err != nil {
		L.RaiseError("set %s channel %d: %v", sn, ch, err)
	}
	return 0
}

// relay.set_pattern(token, pattern)
func (s *Session) luaSetPattern(L *lua.LState) int {
	token := L.CheckString(1)
	pattern := L.CheckString(2)
	states, ok := parse.ParsePattern(pattern)
	if !ok {
		L.RaiseError("bad pattern %q", pattern)
		return 0
	}

	mod, sn := s.open(L, token)
	defer mod.Close()

	for i, st := range states {
		if st == parse.DontCare {
			continue
		}
		if err := mod.SetChannel(i+1, st == parse.Set); err != nil {
			L.RaiseError("set %s channel %d: %v", sn, i+1, err)
			return 0
		}
	}
	return 0
}

// relay.set_all(token, state)
func (s *Session) luaSetAll(L *lua.LState) int {
	token := L.CheckString(1)
	state := parse.ParseState(L.CheckString(2))
	if state == parse.DontCare {
		return 0
	}

	mod, sn := s.open(L, token)
	defer mod.Close()

	if err := mod.SetAll(state == parse.Set); err != nil {
		L.RaiseError("set all %s: %v", sn, err)
	}
	return 0
}

// relay.sleep(ms)
func (s *Session) luaSleep(L *lua.LState) int {
	ms := L.CheckInt(1)
	if ms > 0 {
		s.Sleep(time.Duration(ms) * time.Millisecond)
	}
	return 0
}

// relay.log(msg)
func (s *Session) luaLog(L *lua.LState) int {
	s.logger.Info(L.CheckString(1))
	return 0
}
