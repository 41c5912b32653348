// Package config loads and persists the daemon's tunable parameters (spec
// §6): the intent-engine timing/distance thresholds, active mode, haptic
// settings, and per-side decoder/pressure hints. Values are stored as TOML
// and swapped atomically so readers on the dispatch pump thread never see
// a half-written struct.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/BurntSushi/toml"
)

const fileName = "config.toml"

// Config holds every tunable the core accepts at init or via Reconfigure.
type Config struct {
	mu sync.RWMutex `toml:"-"`

	TstartMS    int `toml:"tstart_ms"`
	TtapMS      int `toml:"ttap_ms"`
	TholdMS     int `toml:"thold_ms"`
	TgestureMS  int `toml:"tgesture_ms"`
	TstaleMS    int `toml:"tstale_ms"`

	DmoveMM  float64 `toml:"dmove_mm"`
	DswipeMM float64 `toml:"dswipe_mm"`

	SessionPoolSize int `toml:"session_pool_size"`

	Mode string `toml:"mode"` // "mouse_only" | "mixed" | "keyboard_only"

	HapticOnKeyTap    bool `toml:"haptic_on_keytap"`
	HapticMinInterval int  `toml:"haptic_min_interval_ms"`

	DecoderHintLeft  string `toml:"decoder_hint_left"`  // "official" | "legacy" | "auto"
	DecoderHintRight string `toml:"decoder_hint_right"`

	PressureUnsupportedLeft  bool `toml:"pressure_unsupported_left"`
	PressureUnsupportedRight bool `toml:"pressure_unsupported_right"`

	AutoStart bool `toml:"auto_start"`
}

// Tunables is a lock-free copy of every field Config guards with mu — the
// DTO Snapshot returns and Update accepts. Config itself is never copied by
// value (it embeds a live sync.RWMutex, so copying it trips go vet's
// copylocks check); callers that need a consistent read or want to stage a
// batch of changes go through Tunables instead.
type Tunables struct {
	TstartMS   int
	TtapMS     int
	TholdMS    int
	TgestureMS int
	TstaleMS   int

	DmoveMM  float64
	DswipeMM float64

	SessionPoolSize int

	Mode string

	HapticOnKeyTap    bool
	HapticMinInterval int

	DecoderHintLeft  string
	DecoderHintRight string

	PressureUnsupportedLeft  bool
	PressureUnsupportedRight bool

	AutoStart bool
}

// DefaultConfig returns spec §4.E/§6 defaults.
func DefaultConfig() *Config {
	return &Config{
		TstartMS:   20,
		TtapMS:     180,
		TholdMS:    250,
		TgestureMS: 30,
		TstaleMS:   170,

		DmoveMM:  3,
		DswipeMM: 20,

		SessionPoolSize: 10,

		Mode: "mixed",

		HapticOnKeyTap:    true,
		HapticMinInterval: 40,

		DecoderHintLeft:  "auto",
		DecoderHintRight: "auto",
	}
}

// Dir returns the OS-appropriate config directory for glasstokey.
func Dir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("user config dir: %w", err)
	}
	return filepath.Join(base, "glasstokey"), nil
}

// Path returns the full path to the config file.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, fileName), nil
}

// Load reads the config from disk. If the file doesn't exist, it creates a
// default config and saves it.
func Load() (*Config, error) {
	p, err := Path()
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if _, err := os.Stat(p); os.IsNotExist(err) {
		if saveErr := cfg.Save(); saveErr != nil {
			return nil, fmt.Errorf("create default config: %w", saveErr)
		}
		return cfg, nil
	}

	if _, err := toml.DecodeFile(p, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Save writes the config to disk atomically (write temp, rename).
func (c *Config) Save() error {
	c.mu.RLock()
	var buf bytes.Buffer
	err := toml.NewEncoder(&buf).Encode(c)
	c.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	p, err := Path()
	if err != nil {
		return err
	}

	dir := filepath.Dir(p)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write temp config: %w", err)
	}
	if err := os.Rename(tmp, p); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename config: %w", err)
	}
	return nil
}

// Snapshot returns a copy of every tunable safe to read without the caller
// holding any lock of its own.
func (c *Config) Snapshot() Tunables {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Tunables{
		TstartMS:   c.TstartMS,
		TtapMS:     c.TtapMS,
		TholdMS:    c.TholdMS,
		TgestureMS: c.TgestureMS,
		TstaleMS:   c.TstaleMS,

		DmoveMM:  c.DmoveMM,
		DswipeMM: c.DswipeMM,

		SessionPoolSize: c.SessionPoolSize,

		Mode: c.Mode,

		HapticOnKeyTap:    c.HapticOnKeyTap,
		HapticMinInterval: c.HapticMinInterval,

		DecoderHintLeft:  c.DecoderHintLeft,
		DecoderHintRight: c.DecoderHintRight,

		PressureUnsupportedLeft:  c.PressureUnsupportedLeft,
		PressureUnsupportedRight: c.PressureUnsupportedRight,

		AutoStart: c.AutoStart,
	}
}

// SetMode updates the active mode and saves to disk.
func (c *Config) SetMode(mode string) error {
	c.mu.Lock()
	c.Mode = mode
	c.mu.Unlock()
	return c.Save()
}

// GetMode returns the current active mode.
func (c *Config) GetMode() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Mode
}

// SetAutoStart updates the auto-start setting and saves to disk.
func (c *Config) SetAutoStart(enabled bool) error {
	c.mu.Lock()
	c.AutoStart = enabled
	c.mu.Unlock()
	return c.Save()
}

// GetAutoStart returns the current auto-start setting.
func (c *Config) GetAutoStart() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.AutoStart
}

// Update replaces every tunable at once (used by the settings server's
// POST /config) and saves to disk.
func (c *Config) Update(next Tunables) error {
	c.mu.Lock()
	c.TstartMS, c.TtapMS, c.TholdMS, c.TgestureMS, c.TstaleMS = next.TstartMS, next.TtapMS, next.TholdMS, next.TgestureMS, next.TstaleMS
	c.DmoveMM, c.DswipeMM = next.DmoveMM, next.DswipeMM
	c.SessionPoolSize = next.SessionPoolSize
	c.Mode = next.Mode
	c.HapticOnKeyTap, c.HapticMinInterval = next.HapticOnKeyTap, next.HapticMinInterval
	c.DecoderHintLeft, c.DecoderHintRight = next.DecoderHintLeft, next.DecoderHintRight
	c.PressureUnsupportedLeft, c.PressureUnsupportedRight = next.PressureUnsupportedLeft, next.PressureUnsupportedRight
	c.AutoStart = next.AutoStart
	c.mu.Unlock()
	return c.Save()
}
