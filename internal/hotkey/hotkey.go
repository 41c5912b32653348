// Package hotkey registers the global mode-cycle hotkey (spec §4.G): a
// single short-press shortcut that advances Mouse-only → Mixed →
// Keyboard-only. Adapted from the teacher's hold-to-talk manager: that
// package tracked separate down/up callbacks for a push-to-talk window,
// but a mode cycle only needs a keydown trigger.
package hotkey

import (
	"context"
	"fmt"
	"log"
	"runtime"
	"sync"
	"time"

	"golang.design/x/hotkey"
)

// repeatGuard suppresses the auto-repeat keydowns X11 generates while a
// key is held, so one physical press advances the mode exactly once.
const repeatGuard = 200 * time.Millisecond

// Manager handles global hotkey registration for a single short-press
// trigger.
type Manager struct {
	mu        sync.Mutex
	hk        *hotkey.Hotkey
	cancel    context.CancelFunc
	onTrigger func()
	lastFired time.Time
}

// NewManager creates a hotkey manager that calls onTrigger once per
// physical keypress of the registered hotkey.
func NewManager(onTrigger func()) *Manager {
	return &Manager{onTrigger: onTrigger}
}

// Register sets up a global hotkey with the given modifiers and key. If a
// hotkey is already registered, it is unregistered first.
func (m *Manager) Register(mods []string, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.unregisterLocked()

	parsedMods, err := ParseModifiers(mods)
	if err != nil {
		return fmt.Errorf("parse modifiers: %w", err)
	}
	parsedKey, err := ParseKey(key)
	if err != nil {
		return fmt.Errorf("parse key: %w", err)
	}

	hk := hotkey.New(parsedMods, parsedKey)
	if err := hk.Register(); err != nil {
		return fmt.Errorf("register hotkey: %w", err)
	}
	m.hk = hk

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	go m.listen(ctx, hk)

	log.Printf("[hotkey] mode-cycle hotkey registered: %v+%s", mods, key)
	return nil
}

// listen loops on the keydown channel and fires the trigger callback,
// debounced against held-key auto-repeat on Linux/X11.
func (m *Manager) listen(ctx context.Context, hk *hotkey.Hotkey) {
	isLinux := runtime.GOOS == "linux"
	for {
		select {
		case <-ctx.Done():
			return
		case <-hk.Keydown():
			m.mu.Lock()
			since := time.Since(m.lastFired)
			fire := !isLinux || since > repeatGuard
			if fire {
				m.lastFired = time.Now()
			}
			m.mu.Unlock()
			if fire && m.onTrigger != nil {
				m.onTrigger()
			}
		case <-hk.Keyup():
			// no-op: this is a toggle, not a hold
		}
	}
}

// Unregister removes the current global hotkey.
func (m *Manager) Unregister() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unregisterLocked()
}

func (m *Manager) unregisterLocked() {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	if m.hk != nil {
		m.hk.Unregister()
		m.hk = nil
	}
}
