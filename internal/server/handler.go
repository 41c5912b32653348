package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/glasstokey/glasstokey/internal/host"
)

// handleIndex redirects to the embedded settings page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Location", "/static/index.html")
	w.WriteHeader(http.StatusFound)
}

// statusResponse mirrors host.Snapshot plus the live tunables, so the
// settings page can render both from one fetch.
type statusResponse struct {
	Mode       string `json:"mode"`
	QueueDepth int    `json:"queue_depth"`
	Dropped    uint64 `json:"dropped"`
	Forced     uint64 `json:"forced"`

	Left  sideStatus `json:"left"`
	Right sideStatus `json:"right"`

	Version string `json:"version"`

	TstartMS   int `json:"tstart_ms"`
	TtapMS     int `json:"ttap_ms"`
	TholdMS    int `json:"thold_ms"`
	TgestureMS int `json:"tgesture_ms"`

	DmoveMM  float64 `json:"dmove_mm"`
	DswipeMM float64 `json:"dswipe_mm"`

	HapticOnKeyTap bool `json:"haptic_on_keytap"`
}

type sideStatus struct {
	ActiveSessions int    `json:"active_sessions"`
	ActiveTouches  int    `json:"active_touches"`
	Pressure       string `json:"pressure"`
	Layer          int    `json:"layer"`
	Paused         bool   `json:"paused"`
}

func toSideStatus(s host.SideSnapshot) sideStatus {
	return sideStatus{
		ActiveSessions: s.ActiveSessions,
		ActiveTouches:  s.ActiveTouches,
		Pressure:       s.Pressure.String(),
		Layer:          s.Layer,
		Paused:         s.Paused,
	}
}

// handleStatus returns the current host snapshot and live tunables.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	snap := s.host.Snapshot()
	cfg := s.cfg.Snapshot()

	resp := statusResponse{
		Mode:       snap.Mode.String(),
		QueueDepth: snap.QueueDepth,
		Dropped:    snap.Dropped,
		Forced:     snap.Forced,
		Left:       toSideStatus(snap.Left),
		Right:      toSideStatus(snap.Right),
		Version:    s.version,

		TstartMS:   cfg.TstartMS,
		TtapMS:     cfg.TtapMS,
		TholdMS:    cfg.TholdMS,
		TgestureMS: cfg.TgestureMS,
		DmoveMM:    cfg.DmoveMM,
		DswipeMM:   cfg.DswipeMM,

		HapticOnKeyTap: cfg.HapticOnKeyTap,
	}
	writeJSON(w, http.StatusOK, resp)
}

// modeRequest is the JSON body for POST /mode.
type modeRequest struct {
	Mode string `json:"mode"`
}

// handleMode sets the active mode (mouse_only | mixed | keyboard_only).
func (s *Server) handleMode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req modeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("bad request: %v", err), http.StatusBadRequest)
		return
	}
	switch req.Mode {
	case "mouse_only", "mixed", "keyboard_only":
	default:
		http.Error(w, "mode must be one of mouse_only, mixed, keyboard_only", http.StatusBadRequest)
		return
	}

	if err := s.cfg.SetMode(req.Mode); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.reconfigureHost()
	writeJSON(w, http.StatusOK, map[string]string{"mode": req.Mode})
}

// configRequest is the live-tunable subset POST /config accepts — it
// deliberately omits SessionPoolSize, decoder hints, and pressure-forced
// flags, which only take effect at startup.
type configRequest struct {
	TstartMS   int `json:"tstart_ms"`
	TtapMS     int `json:"ttap_ms"`
	TholdMS    int `json:"thold_ms"`
	TgestureMS int `json:"tgesture_ms"`

	DmoveMM  float64 `json:"dmove_mm"`
	DswipeMM float64 `json:"dswipe_mm"`

	HapticOnKeyTap bool `json:"haptic_on_keytap"`
}

// handleConfig updates the live-tunable subset of config and pushes it
// into the running host.
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req configRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("bad request: %v", err), http.StatusBadRequest)
		return
	}

	next := s.cfg.Snapshot()
	next.TstartMS = req.TstartMS
	next.TtapMS = req.TtapMS
	next.TholdMS = req.TholdMS
	next.TgestureMS = req.TgestureMS
	next.DmoveMM = req.DmoveMM
	next.DswipeMM = req.DswipeMM
	next.HapticOnKeyTap = req.HapticOnKeyTap

	if err := s.cfg.Update(next); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.reconfigureHost()
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleKeymapReload re-parses the keymap file from disk and swaps it
// into the running host.
func (s *Server) handleKeymapReload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.Reload == nil {
		http.Error(w, "keymap reload not configured", http.StatusServiceUnavailable)
		return
	}
	if err := s.Reload(); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reloaded"})
}

// autoStartRequest is the JSON body for POST /autostart.
type autoStartRequest struct {
	Enabled bool `json:"enabled"`
}

// handleAutoStart reads or toggles the persisted auto-start preference.
// Applying it to the OS is the caller's job (cmd/glasstokeyd applies it
// through internal/autostart via OnAutoStart whenever this flips).
func (s *Server) handleAutoStart(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]bool{"enabled": s.cfg.GetAutoStart()})
	case http.MethodPost:
		var req autoStartRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, fmt.Sprintf("bad request: %v", err), http.StatusBadRequest)
			return
		}
		if err := s.cfg.SetAutoStart(req.Enabled); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if s.OnAutoStart != nil {
			s.OnAutoStart(req.Enabled)
		}
		writeJSON(w, http.StatusOK, map[string]bool{"enabled": req.Enabled})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
