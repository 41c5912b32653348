package config

import "testing"

func TestLoadCreatesDefaultWhenMissing(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Mode != "mixed" {
		t.Fatalf("expected default mode mixed, got %q", cfg.Mode)
	}

	p, err := Path()
	if err != nil {
		t.Fatalf("Path: %v", err)
	}
	reloaded, err := Load()
	if err != nil {
		t.Fatalf("second Load: %v", err)
	}
	if reloaded.TstartMS != cfg.TstartMS {
		t.Fatalf("config file at %s did not round-trip Tstart", p)
	}
}

func TestSetModePersists(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := cfg.SetMode("keyboard_only"); err != nil {
		t.Fatalf("SetMode: %v", err)
	}

	reloaded, err := Load()
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.GetMode() != "keyboard_only" {
		t.Fatalf("expected persisted mode keyboard_only, got %q", reloaded.GetMode())
	}
}

func TestEngineParamsTranslatesTunables(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TstartMS = 25
	cfg.Mode = "mouse_only"

	p := cfg.EngineParams()
	if p.Mode.String() != "mouse_only" {
		t.Fatalf("expected mouse_only, got %v", p.Mode)
	}
	if p.Tstart == 0 {
		t.Fatalf("expected nonzero Tstart")
	}
}
