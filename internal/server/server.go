// Package server provides the local HTTP server for the settings UI:
// status, mode switching, live tuning, and keymap reload (spec §6 is
// reachable here, but nothing in this package is read by the core).
package server

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/glasstokey/glasstokey/internal/config"
	"github.com/glasstokey/glasstokey/internal/host"
	"github.com/glasstokey/glasstokey/internal/web"
)

// Server serves the settings UI on localhost.
type Server struct {
	httpServer *http.Server
	listener   net.Listener

	host    *host.Host
	cfg     *config.Config
	version string

	deviceMaxX, deviceMaxY uint16

	// Reload re-parses the keymap file from disk and swaps it into host.
	// Left nil in tests that don't exercise /keymap/reload.
	Reload func() error

	// OnAutoStart is invoked after /autostart persists a new preference,
	// so the caller can apply it via internal/autostart. Left nil in
	// tests that don't exercise /autostart.
	OnAutoStart func(enabled bool)
}

// New creates a settings server.
func New(h *host.Host, cfg *config.Config, version string) *Server {
	return &Server{host: h, cfg: cfg, version: version}
}

// SetDeviceExtents records the attached device's reported max_x/max_y so
// Reconfigure calls never clobber them back to engine.DefaultParams's
// placeholder (config itself carries no device geometry).
func (s *Server) SetDeviceExtents(maxX, maxY uint16) {
	s.deviceMaxX, s.deviceMaxY = maxX, maxY
}

// Start begins serving on a random localhost port. Returns the URL.
func (s *Server) Start() (string, error) {
	mux := http.NewServeMux()

	staticFS, err := fs.Sub(web.StaticFiles, "static")
	if err != nil {
		return "", fmt.Errorf("static fs: %w", err)
	}
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))

	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/mode", s.handleMode)
	mux.HandleFunc("/config", s.handleConfig)
	mux.HandleFunc("/keymap/reload", s.handleKeymapReload)
	mux.HandleFunc("/autostart", s.handleAutoStart)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", fmt.Errorf("listen: %w", err)
	}
	s.listener = ln

	s.httpServer = &http.Server{
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Printf("[server] error: %v", err)
		}
	}()

	url := fmt.Sprintf("http://%s", ln.Addr().String())
	log.Printf("[server] settings available at %s", url)
	return url, nil
}

// Stop shuts down the HTTP server.
func (s *Server) Stop() {
	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		s.httpServer.Shutdown(ctx)
	}
}

// URL returns the server's URL, or empty string if not started.
func (s *Server) URL() string {
	if s.listener == nil {
		return ""
	}
	return fmt.Sprintf("http://%s", s.listener.Addr().String())
}

// reconfigureHost pushes cfg's tunables into the running host, preserving
// the device extents recorded via SetDeviceExtents.
func (s *Server) reconfigureHost() {
	hc := s.cfg.HostConfig()
	if s.deviceMaxX != 0 {
		hc.Engine.DeviceMaxX = s.deviceMaxX
	}
	if s.deviceMaxY != 0 {
		hc.Engine.DeviceMaxY = s.deviceMaxY
	}
	s.host.Reconfigure(hc)
}
