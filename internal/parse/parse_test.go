package parse

import (
	"reflect"
	"testing"
)

func TestIsSerialNumber(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"6QMBS", true},
		{"5xarz", true},
		{"AB123", true},
		{"ABCD", false},
		{"ABCDEF", false},
		{"AB_12", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsSerialNumber(tt.in); got != tt.want {
			t.Errorf("IsSerialNumber(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestIsAliasName(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"#1", true},
		{"RELAY-1", true},
		{"_x~@", true},
		{"6QMBS", true}, // every serial number is a valid alias name
		{"-lead", false},
		{"a=b", false},
		{"a:b", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsAliasName(tt.in); got != tt.want {
			t.Errorf("IsAliasName(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseState(t *testing.T) {
	for _, s := range []string{"ON", "on", "1", "H", "h", "NO"} {
		if got := ParseState(s); got != Set {
			t.Errorf("ParseState(%q) = %v, want Set", s, got)
		}
	}
	for _, s := range []string{"OFF", "off", "0", "L", "l", "NC"} {
		if got := ParseState(s); got != Clear {
			t.Errorf("ParseState(%q) = %v, want Clear", s, got)
		}
	}
	for _, s := range []string{"X", "", "HIGH", "2"} {
		if got := ParseState(s); got != DontCare {
			t.Errorf("ParseState(%q) = %v, want DontCare", s, got)
		}
	}
}

func TestParsePattern(t *testing.T) {
	states, ok := ParsePattern("011XX0")
	if !ok {
		t.Fatal("ParsePattern(011XX0) not ok")
	}
	want := []Logic{Clear, Set, Set, DontCare, DontCare, Clear}
	if !reflect.DeepEqual(states, want) {
		t.Errorf("states = %v, want %v", states, want)
	}

	if _, ok := ParsePattern("lh_."); !ok {
		t.Error("lower-case and punctuation pattern rejected")
	}
	for _, bad := range []string{"", "012345678", "01B"} {
		if _, ok := ParsePattern(bad); ok {
			t.Errorf("ParsePattern(%q) ok, want rejection", bad)
		}
	}
}

func TestParseChannelList(t *testing.T) {
	chs, ok := ParseChannelList("1456")
	if !ok {
		t.Fatal("ParseChannelList(1456) not ok")
	}
	if want := []int{1, 4, 5, 6}; !reflect.DeepEqual(chs, want) {
		t.Errorf("chs = %v, want %v", chs, want)
	}

	// Duplicates and arbitrary order are allowed.
	if _, ok := ParseChannelList("8811"); !ok {
		t.Error("duplicate channels rejected")
	}
	for _, bad := range []string{"", "0", "9", "123456781"} {
		if _, ok := ParseChannelList(bad); ok {
			t.Errorf("ParseChannelList(%q) ok, want rejection", bad)
		}
	}
}

func TestParseChannelState(t *testing.T) {
	ch, state, ok := ParseChannelState("3=ON")
	if !ok || ch != 3 || state != Set {
		t.Errorf("ParseChannelState(3=ON) = (%d, %v, %v), want (3, Set, true)", ch, state, ok)
	}
	ch, state, ok = ParseChannelState("8=nc")
	if !ok || ch != 8 || state != Clear {
		t.Errorf("ParseChannelState(8=nc) = (%d, %v, %v), want (8, Clear, true)", ch, state, ok)
	}
	for _, bad := range []string{"0=ON", "9=ON", "3=X", "3=", "=ON", "3:ON", "12=ON"} {
		if _, _, ok := ParseChannelState(bad); ok {
			t.Errorf("ParseChannelState(%q) ok, want rejection", bad)
		}
	}
}

func TestSplitBinding(t *testing.T) {
	a, sn, ok := SplitBinding("#1=6qmbs")
	if !ok || a != "#1" || sn != "6QMBS" {
		t.Errorf("SplitBinding(#1=6qmbs) = (%q, %q, %v)", a, sn, ok)
	}
	// ':' is accepted as separator.
	if _, _, ok := SplitBinding("lamp:5XARZ"); !ok {
		t.Error("colon separator rejected")
	}
	for _, bad := range []string{"A=TOOLONG", "A=ABC", "=6QMBS", "A6QMBS", "-A=6QMBS"} {
		if _, _, ok := SplitBinding(bad); ok {
			t.Errorf("SplitBinding(%q) ok, want rejection", bad)
		}
	}
}
