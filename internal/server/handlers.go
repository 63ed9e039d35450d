package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/muurk/wificfg/internal/eventloop"
	"github.com/muurk/wificfg/internal/logging"
	"github.com/muurk/wificfg/internal/scancache"
	"github.com/muurk/wificfg/internal/settings"
)

// maxFormSize bounds a settings submission. The largest legal form is a few
// hundred bytes.
const maxFormSize = 4 << 10

// Handler returns the service's HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /wifi/wifiscan.cgi", s.handleScan)
	mux.HandleFunc("POST /wifi/settings.cgi", s.handleSettings)
	mux.HandleFunc("GET /wifi/field/{token}", s.handleField)
	mux.HandleFunc("GET /wifi/fields", s.handleFields)
	mux.HandleFunc("GET /wifi/ws", s.handleWebSocket)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return logRequests(mux)
}

// handleScan reports the cached scan. When no scan is running the cached
// list is returned and a fresh scan is started for the next poll.
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var snap scancache.Snapshot
	err := s.loop.Do(r.Context(), func() {
		snap = s.cache.Snapshot()
		if !snap.InProgress {
			s.cache.StartScan()
		}
	})
	if err != nil {
		s.loopError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	if err := snap.WriteJSON(w); err != nil {
		logging.Debug("Failed to write scan status", zap.Error(err))
	}
}

// handleSettings applies a settings form. The browser is answered with 204
// whatever was decided; the restart, if any, happens after the response.
func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormSize)
	if err := r.ParseForm(); err != nil {
		logging.Warn("Rejected settings request", zap.Error(err))
		http.Error(w, "malformed form", http.StatusBadRequest)
		return
	}

	var (
		action   settings.PendingAction
		applyErr error
	)
	// Settings come from the body only; query parameters are not settings.
	err := s.loop.Do(r.Context(), func() {
		action, applyErr = s.reconciler.Apply(r.PostForm)
	})
	if err != nil {
		s.loopError(w, err)
		return
	}

	if applyErr != nil {
		logging.Error("Settings were not fully applied",
			zap.Stringer("action", action),
			zap.Error(applyErr),
		)
	}
	logging.Info("Settings request handled",
		zap.String("remote_addr", r.RemoteAddr),
		zap.Stringer("action", action),
	)

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleField(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")

	var (
		value string
		ok    bool
	)
	if err := s.loop.Do(r.Context(), func() { value, ok = s.fields.Lookup(token) }); err != nil {
		s.loopError(w, err)
		return
	}
	if !ok {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write([]byte(value))
}

func (s *Server) handleFields(w http.ResponseWriter, r *http.Request) {
	var all map[string]string
	if err := s.loop.Do(r.Context(), func() { all = s.fields.All() }); err != nil {
		s.loopError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	if err := json.NewEncoder(w).Encode(all); err != nil {
		logging.Debug("Failed to write fields", zap.Error(err))
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

// loopError answers a request the event loop could not run.
func (s *Server) loopError(w http.ResponseWriter, err error) {
	if errors.Is(err, eventloop.ErrStopped) {
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}
	// The client went away while waiting.
	logging.Debug("Request abandoned", zap.Error(err))
	http.Error(w, "request cancelled", http.StatusServiceUnavailable)
}
