// Package web serves module state over a small JSON API plus a
// WebSocket event stream, for serve mode.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"relayctl/internal/alias"
	"relayctl/internal/parse"
	"relayctl/internal/relay"
)

// Server is the HTTP server for serve mode.
type Server struct {
	poller *relay.Poller
	table  *alias.Table
	hub    *WSHub
	logger *slog.Logger
	mux    *http.ServeMux
}

// NewServer creates the server and its routes.
func NewServer(poller *relay.Poller, table *alias.Table, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "web")
	s := &Server{
		poller: poller,
		table:  table,
		hub:    NewWSHub(logger),
		logger: logger,
		mux:    http.NewServeMux(),
	}
	s.mux.HandleFunc("GET /api/modules", s.handleModules)
	s.mux.HandleFunc("POST /api/modules/{token}/set", s.handleSet)
	s.mux.Handle("GET /api/events", s.hub)
	return s
}

// Run serves on addr until ctx is done.
func (s *Server) Run(ctx context.Context, addr string) error {
	unsub := s.poller.Subscribe(func(st relay.State) {
		s.hub.Broadcast(map[string]interface{}{"type": "state", "module": st})
	})
	defer unsub()

	go s.hub.Run()
	defer s.hub.Stop()

	srv := &http.Server{Addr: addr, Handler: s.mux}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.logger.Info("web server listening", "addr", addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug("write response", "err", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleModules(w http.ResponseWriter, r *http.Request) {
	states := s.poller.Snapshot()
	sort.Slice(states, func(i, j int) bool {
		return states[i].SerialNumber < states[j].SerialNumber
	})
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"modules": states})
}

// setRequest drives either one channel or a whole pattern.
type setRequest struct {
	Channel int    `json:"channel,omitempty"`
	State   string `json:"state,omitempty"`
	Pattern string `json:"pattern,omitempty"`
}

func (s *Server) handleSet(w http.ResponseWriter, r *http.Request) {
	sn := s.table.Resolve(r.PathValue("token"))
	if sn == "" {
		s.writeError(w, http.StatusNotFound, "unknown module")
		return
	}

	var req setRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "bad request body")
		return
	}

	switch {
	case req.Pattern != "":
		if err := s.poller.ApplyPattern(sn, req.Pattern); err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	case req.Channel >= 1 && req.Channel <= parse.MaxChannels:
		state := parse.ParseState(req.State)
		if state == parse.DontCare {
			s.writeError(w, http.StatusBadRequest, "bad state")
			return
		}
		if err := s.poller.Apply(sn, req.Channel, state); err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	default:
		s.writeError(w, http.StatusBadRequest, "channel or pattern required")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Handler exposes the mux for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}
