// Package parse validates and classifies the token shapes used on the
// command line: serial numbers, alias names, logic states, channel
// patterns and channel lists. Everything is case-insensitive; callers
// receive normalized (upper-case) values.
package parse

import "strings"

// Logic is the tri-state value a channel can be driven to.
type Logic int

const (
	DontCare Logic = iota // leave the channel untouched
	Set                   // energize (closed)
	Clear                 // de-energize (open)
)

func (l Logic) String() string {
	switch l {
	case Set:
		return "H"
	case Clear:
		return "L"
	default:
		return "X"
	}
}

// SerialNumberLen is the fixed length of a module serial number.
const SerialNumberLen = 5

// MaxChannels is the largest channel count any supported module has.
const MaxChannels = 8

// Normalize upper-cases a token for storage or comparison.
func Normalize(s string) string {
	return strings.ToUpper(s)
}

func isAlnum(c byte) bool {
	return c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z' || c >= '0' && c <= '9'
}

func isAliasExtra(c byte) bool {
	return c == '_' || c == '#' || c == '~' || c == '@'
}

// IsSerialNumber reports whether s looks like a module serial number:
// exactly five characters, letters and digits only.
func IsSerialNumber(s string) bool {
	if len(s) != SerialNumberLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isAlnum(s[i]) {
			return false
		}
	}
	return true
}

// IsAliasName reports whether s is a syntactically valid alias name.
// Aliases start with a letter, digit or one of _#~@ and may contain '-'
// after the first character. Every serial number is also a valid alias
// name; resolution order disambiguates.
func IsAliasName(s string) bool {
	if s == "" {
		return false
	}
	if c := s[0]; !isAlnum(c) && !isAliasExtra(c) {
		return false
	}
	for i := 1; i < len(s); i++ {
		if c := s[i]; !isAlnum(c) && !isAliasExtra(c) && c != '-' {
			return false
		}
	}
	return true
}

// ParseState classifies a state word. ON, 1, H and NO mean Set; OFF, 0,
// L and NC mean Clear. Anything else is DontCare.
func ParseState(s string) Logic {
	switch Normalize(s) {
	case "ON", "1", "H", "NO":
		return Set
	case "OFF", "0", "L", "NC":
		return Clear
	default:
		return DontCare
	}
}

// patternState maps one pattern character to a Logic value.
func patternState(c byte) (Logic, bool) {
	switch c {
	case '1', 'H', 'h':
		return Set, true
	case '0', 'L', 'l':
		return Clear, true
	case 'X', 'x', '_', '.':
		return DontCare, true
	default:
		return DontCare, false
	}
}

// ParsePattern parses a compact channel pattern such as "011XX0".
// Position i drives channel i+1. Returns false if s is empty, longer
// than MaxChannels, or contains a character outside [01LHX_.].
func ParsePattern(s string) ([]Logic, bool) {
	if len(s) == 0 || len(s) > MaxChannels {
		return nil, false
	}
	states := make([]Logic, len(s))
	for i := 0; i < len(s); i++ {
		st, ok := patternState(s[i])
		if !ok {
			return nil, false
		}
		states[i] = st
	}
	return states, true
}

// ParseChannelList parses a channel selection such as "1456": one to
// eight digits 1-8, order preserved, duplicates allowed.
func ParseChannelList(s string) ([]int, bool) {
	if len(s) == 0 || len(s) > MaxChannels {
		return nil, false
	}
	chs := make([]int, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] < '1' || s[i] > '8' {
			return nil, false
		}
		chs[i] = int(s[i] - '0')
	}
	return chs, true
}

// ParseChannelState parses a "CH=STATE" token such as "3=ON". The state
// word must be one of the recognized on/off spellings; a bare pattern
// character is not accepted here.
func ParseChannelState(s string) (ch int, state Logic, ok bool) {
	i := strings.IndexByte(s, '=')
	if i != 1 || s[0] < '1' || s[0] > '8' {
		return 0, DontCare, false
	}
	state = ParseState(s[2:])
	if state == DontCare {
		return 0, DontCare, false
	}
	return int(s[0] - '0'), state, true
}

// SplitBinding splits an "ALIAS=SERNUM" or "ALIAS:SERNUM" token into its
// normalized halves. Only the shapes are validated, not device presence.
func SplitBinding(s string) (alias, sernum string, ok bool) {
	i := strings.IndexAny(s, "=:")
	if i < 0 {
		return "", "", false
	}
	alias, sernum = s[:i], s[i+1:]
	if !IsAliasName(alias) || !IsSerialNumber(sernum) {
		return "", "", false
	}
	return Normalize(alias), Normalize(sernum), true
}
