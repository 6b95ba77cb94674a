package alias

import (
	"errors"
	"reflect"
	"testing"

	"relayctl/internal/settings"
)

func newTestTable(t *testing.T) (*Table, *settings.MemStore) {
	t.Helper()
	mem := settings.NewMemStore()
	return NewTable(NewStore(mem, nil)), mem
}

func TestParseList(t *testing.T) {
	list := ParseList("#2=5XARZ,#1=6QMBS")
	want := []Entry{{"#2", "5XARZ"}, {"#1", "6QMBS"}}
	if !reflect.DeepEqual(list, want) {
		t.Errorf("list = %v, want %v", list, want)
	}

	if got := ParseList(""); got != nil {
		t.Errorf("empty string parsed to %v, want nil", got)
	}

	// Malformed fragments are skipped, colon separators accepted.
	list = ParseList("bad alias,LAMP:6QMBS,,X=YY")
	want = []Entry{{"LAMP", "6QMBS"}}
	if !reflect.DeepEqual(list, want) {
		t.Errorf("list = %v, want %v", list, want)
	}
}

func TestFormatRoundTrip(t *testing.T) {
	want := []Entry{{"#2", "5XARZ"}, {"#1", "6QMBS"}, {"LAMP", "6QMBS"}}
	got := ParseList(FormatList(want))
	if !reflect.DeepEqual(got, want) {
		t.Errorf("round trip = %v, want %v", got, want)
	}
	if s := FormatList(want); s != "#2=5XARZ,#1=6QMBS,LAMP=6QMBS" {
		t.Errorf("FormatList = %q", s)
	}
	if s := FormatList(nil); s != "" {
		t.Errorf("FormatList(nil) = %q, want empty", s)
	}
}

func TestLoadCreatesDefault(t *testing.T) {
	mem := settings.NewMemStore()
	store := NewStore(mem, nil)

	if list := store.Load(); len(list) != 0 {
		t.Errorf("fresh Load = %v, want empty", list)
	}
	// The first read creates the setting with an empty default.
	raw, err := mem.Get(Key)
	if err != nil || raw != "" {
		t.Errorf("persisted value = (%q, %v), want (\"\", nil)", raw, err)
	}
}

type brokenStore struct{}

func (brokenStore) Get(string) (string, error) { return "", errors.New("store unavailable") }
func (brokenStore) Set(string, string) error   { return errors.New("store unavailable") }

func TestLoadDegradesToEmpty(t *testing.T) {
	store := NewStore(brokenStore{}, nil)
	if list := store.Load(); len(list) != 0 {
		t.Errorf("Load on broken store = %v, want empty", list)
	}
	if store.Save([]Entry{{"A", "6QMBS"}}) {
		t.Error("Save on broken store reported success")
	}
}

func TestAssignPrepends(t *testing.T) {
	table, _ := newTestTable(t)
	table.Assign("#1", "6QMBS")
	table.Assign("#2", "5XARZ")

	want := []Entry{{"#2", "5XARZ"}, {"#1", "6QMBS"}}
	if got := table.List(); !reflect.DeepEqual(got, want) {
		t.Errorf("List = %v, want %v", got, want)
	}
}

func TestAssignReplacesExisting(t *testing.T) {
	table, _ := newTestTable(t)
	table.Assign("A", "6QMBS")
	table.Assign("B", "11111")
	table.Assign("A", "5XARZ")

	if got := table.Resolve("A"); got != "5XARZ" {
		t.Errorf("Resolve(A) = %q, want 5XARZ", got)
	}
	// No duplicate entry survives the re-assignment.
	count := 0
	for _, e := range table.List() {
		if e.Alias == "A" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("entries for A = %d, want 1", count)
	}
}

func TestAssignNormalizesCase(t *testing.T) {
	table, _ := newTestTable(t)
	table.Assign("lamp", "6qmbs")

	want := []Entry{{"LAMP", "6QMBS"}}
	if got := table.List(); !reflect.DeepEqual(got, want) {
		t.Errorf("List = %v, want %v", got, want)
	}
	if got := table.Resolve("Lamp"); got != "6QMBS" {
		t.Errorf("Resolve(Lamp) = %q, want 6QMBS", got)
	}
}

func TestRemoveMissingIsNoWrite(t *testing.T) {
	table, mem := newTestTable(t)
	table.Assign("A", "6QMBS")
	writes := mem.Writes

	table.Remove("NOPE")
	if mem.Writes != writes {
		t.Errorf("writes = %d, want %d (no write for missing alias)", mem.Writes, writes)
	}
	if got := table.Resolve("A"); got != "6QMBS" {
		t.Errorf("Resolve(A) = %q after no-op remove", got)
	}
}

func TestRemove(t *testing.T) {
	table, _ := newTestTable(t)
	table.Assign("A", "6QMBS")
	table.Assign("B", "5XARZ")
	table.Remove("a")

	want := []Entry{{"B", "5XARZ"}}
	if got := table.List(); !reflect.DeepEqual(got, want) {
		t.Errorf("List = %v, want %v", got, want)
	}
}

func TestResolveFallsBackToSerial(t *testing.T) {
	table, _ := newTestTable(t)

	// No alias bound: a syntactically valid serial number resolves to
	// itself, normalized.
	if got := table.Resolve("6qmbs"); got != "6QMBS" {
		t.Errorf("Resolve(6qmbs) = %q, want 6QMBS", got)
	}
	if got := table.Resolve("not-a-serial"); got != "" {
		t.Errorf("Resolve(not-a-serial) = %q, want empty", got)
	}
}

func TestResolveAliasWinsOverSerialShape(t *testing.T) {
	table, _ := newTestTable(t)
	// An alias shaped exactly like a serial number: table lookup wins.
	table.Assign("AAAAA", "6QMBS")
	if got := table.Resolve("AAAAA"); got != "6QMBS" {
		t.Errorf("Resolve(AAAAA) = %q, want 6QMBS", got)
	}
}

func TestListIdempotent(t *testing.T) {
	table, _ := newTestTable(t)
	table.Assign("#1", "6QMBS")
	table.Assign("#2", "5XARZ")

	first := table.List()
	second := table.List()
	if !reflect.DeepEqual(first, second) {
		t.Errorf("List not stable: %v then %v", first, second)
	}
}
