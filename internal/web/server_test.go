package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"relayctl/internal/alias"
	"relayctl/internal/device"
	"relayctl/internal/parse"
	"relayctl/internal/relay"
	"relayctl/internal/settings"
)

func newTestServer(t *testing.T) (*Server, *device.MockDriver) {
	t.Helper()
	drv := device.NewMock()
	drv.AddModule("5XARZ", 2, 0b01)
	drv.AddModule("6QMBS", 6, 0)

	poller := relay.NewPoller(drv, time.Second, nil)
	poller.Sweep()

	table := alias.NewTable(alias.NewStore(settings.NewMemStore(), nil))
	table.Assign("lamp", "6QMBS")

	return NewServer(poller, table, nil), drv
}

func TestListModules(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/api/modules", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body struct {
		Modules []relay.State `json:"modules"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Modules) != 2 {
		t.Fatalf("got %d modules, want 2", len(body.Modules))
	}
	if body.Modules[0].SerialNumber != "5XARZ" || body.Modules[0].Bits != "10" {
		t.Errorf("first module = %+v", body.Modules[0])
	}
	if body.Modules[1].SerialNumber != "6QMBS" || body.Modules[1].Channels != 6 {
		t.Errorf("second module = %+v", body.Modules[1])
	}
}

func TestSetChannel(t *testing.T) {
	srv, drv := newTestServer(t)

	req := httptest.NewRequest("POST", "/api/modules/lamp/set",
		strings.NewReader(`{"channel": 3, "state": "ON"}`))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if got := drv.Mask("6QMBS"); got != 0b100 {
		t.Errorf("mask = %#b, want 0b100", got)
	}
}

func TestSetPattern(t *testing.T) {
	srv, drv := newTestServer(t)

	req := httptest.NewRequest("POST", "/api/modules/6QMBS/set",
		strings.NewReader(`{"pattern": "01X1"}`))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if got := drv.Mask("6QMBS"); got != 0b1010 {
		t.Errorf("mask = %#b, want 0b1010", got)
	}
}

func TestSetErrors(t *testing.T) {
	srv, _ := newTestServer(t)

	tests := []struct {
		name string
		url  string
		body string
		code int
	}{
		{"unknown module", "/api/modules/nosuch!/set", `{"channel":1,"state":"ON"}`, http.StatusNotFound},
		{"bad json", "/api/modules/lamp/set", `{`, http.StatusBadRequest},
		{"missing channel and pattern", "/api/modules/lamp/set", `{}`, http.StatusBadRequest},
		{"bad state", "/api/modules/lamp/set", `{"channel":1,"state":"MAYBE"}`, http.StatusBadRequest},
		{"bad pattern", "/api/modules/lamp/set", `{"pattern":"012"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", tt.url, strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, req)
			if rec.Code != tt.code {
				t.Errorf("status = %d, want %d", rec.Code, tt.code)
			}
		})
	}
}

func TestEventOnChange(t *testing.T) {
	drv := device.NewMock()
	drv.AddModule("6QMBS", 6, 0)
	poller := relay.NewPoller(drv, time.Second, nil)

	var events []relay.State
	unsub := poller.Subscribe(func(st relay.State) {
		events = append(events, st)
	})
	defer unsub()

	poller.Sweep()
	if len(events) != 1 {
		t.Fatalf("got %d events after first sweep, want 1", len(events))
	}

	if err := poller.Apply("6QMBS", 2, parse.Set); err != nil {
		t.Fatal(err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events after apply, want 2", len(events))
	}
	if events[1].Bits != "010000" {
		t.Errorf("bits = %q, want 010000", events[1].Bits)
	}
}
