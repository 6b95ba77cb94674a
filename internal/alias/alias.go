// Package alias persists human-readable names for module serial numbers.
// The whole list lives under a single settings key as
// "ALIAS=SERNUM,ALIAS=SERNUM,..." and is reparsed and rewritten in full
// on every mutation. Concurrent processes race on that read-modify-write
// window (last writer wins for the whole list); the original tool had
// the same behavior and no lock is taken here either.
package alias

import (
	"log/slog"
	"strings"

	"relayctl/internal/parse"
	"relayctl/internal/settings"
)

// Key is the settings key holding the serialized alias list.
const Key = "aliases"

// Entry binds one alias to a serial number. Aliases are unique within a
// list; serial numbers may appear any number of times.
type Entry struct {
	Alias  string
	Serial string
}

// ParseList decodes a serialized alias list. Malformed fragments are
// skipped rather than rejected, matching the tolerant reader of the
// original tool. Both '=' and ':' are accepted between alias and serial.
func ParseList(s string) []Entry {
	var list []Entry
	for _, field := range strings.Split(s, ",") {
		if field == "" {
			continue
		}
		a, sn, ok := parse.SplitBinding(field)
		if !ok {
			continue
		}
		list = append(list, Entry{Alias: a, Serial: sn})
	}
	return list
}

// FormatList encodes entries as "ALIAS=SERNUM" pairs joined by commas,
// with no trailing comma and no spaces.
func FormatList(list []Entry) string {
	var b strings.Builder
	for i, e := range list {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(e.Alias)
		b.WriteByte('=')
		b.WriteString(e.Serial)
	}
	return b.String()
}

// Store loads and saves the alias list from the settings store.
type Store struct {
	settings settings.Store
	logger   *slog.Logger
}

// NewStore creates a Store over the given settings backend.
func NewStore(st settings.Store, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{settings: st, logger: logger.With("component", "alias")}
}

// Load reads the persisted list. A missing key is created with an empty
// default (a first read on a fresh installation writes the setting);
// any other store failure degrades to an empty list so callers simply
// observe "no aliases".
func (s *Store) Load() []Entry {
	raw, err := s.settings.Get(Key)
	if err != nil {
		if err == settings.ErrNotFound {
			if werr := s.settings.Set(Key, ""); werr != nil {
				s.logger.Debug("create default alias list", "err", werr)
			}
		} else {
			s.logger.Debug("load alias list", "err", err)
		}
		return nil
	}
	return ParseList(raw)
}

// Save serializes and overwrites the persisted list. Returns false when
// the settings store is unwritable.
func (s *Store) Save(list []Entry) bool {
	if err := s.settings.Set(Key, FormatList(list)); err != nil {
		s.logger.Debug("save alias list", "err", err)
		return false
	}
	return true
}

// Table provides the alias operations used by the CLI. Every operation
// reads the persisted list fresh and writes it back after a mutation;
// nothing is cached across calls.
type Table struct {
	store *Store
}

// NewTable creates a Table over the given Store.
func NewTable(store *Store) *Table {
	return &Table{store: store}
}

// Assign binds alias to sernum, replacing any existing binding for the
// alias. The new entry is prepended, so List shows newest first. The
// serial number is not validated here; the CLI layer checks shapes
// before calling.
func (t *Table) Assign(alias, sernum string) {
	alias = parse.Normalize(alias)
	sernum = parse.Normalize(sernum)

	t.Remove(alias)

	list := t.store.Load()
	list = append([]Entry{{Alias: alias, Serial: sernum}}, list...)
	t.store.Save(list)
}

// Remove deletes any binding for alias. When nothing matches the store
// is left untouched (no write).
func (t *Table) Remove(alias string) {
	alias = parse.Normalize(alias)

	list := t.store.Load()
	kept := list[:0:0]
	found := false
	for _, e := range list {
		if e.Alias == alias {
			found = true
			continue
		}
		kept = append(kept, e)
	}
	if found {
		t.store.Save(kept)
	}
}

// List returns all current entries in stored order.
func (t *Table) List() []Entry {
	return t.store.Load()
}

// Resolve turns a command-line token into a serial number. The alias
// table is consulted first in stored order; failing that, a token that
// is itself shaped like a serial number is returned normalized. An
// empty result means the token is not resolvable. A serial number that
// happens to match a stored alias resolves through the table; the
// original tool had the same precedence.
func (t *Table) Resolve(token string) string {
	token = parse.Normalize(token)
	for _, e := range t.store.Load() {
		if e.Alias == token {
			return e.Serial
		}
	}
	if parse.IsSerialNumber(token) {
		return token
	}
	return ""
}
