// Package tray manages the system tray icon and menu: per-side connection
// state, the active intent-gating mode, and a fault counter, plus a mode
// cycle menu item.
package tray

import (
	"fmt"

	"fyne.io/systray"

	"github.com/glasstokey/glasstokey/internal/engine"
	"github.com/glasstokey/glasstokey/internal/host"
)

// RunOpts configures the system tray.
type RunOpts struct {
	Version          string
	AutoStartEnabled bool
	OnReady          func()
	OnSettings       func()
	OnCycleMode      func() // advance Mouse-only → Mixed → Keyboard-only
	OnAutoStart      func(enabled bool)
	OnQuit           func()
}

var (
	mStatus *systray.MenuItem
	mMode   *systray.MenuItem
	mFault  *systray.MenuItem
)

// Run starts the system tray. It blocks on the main thread.
func Run(opts RunOpts) {
	systray.Run(func() {
		systray.SetIcon(IconMixed)
		systray.SetTitle("")
		systray.SetTooltip("GlassToKey")

		versionLabel := "GlassToKey"
		if opts.Version != "" && opts.Version != "dev" {
			versionLabel += " " + opts.Version
		}
		mVersion := systray.AddMenuItem(versionLabel, "")
		mVersion.Disable()

		systray.AddSeparator()

		mSettings := systray.AddMenuItem("Settings...", "Open the settings page")
		mode := systray.AddMenuItem("Mode: Mixed", "Click to cycle Mouse-only / Mixed / Keyboard-only")
		mAutoStart := systray.AddMenuItemCheckbox("Start on Login", "Launch automatically on login", opts.AutoStartEnabled)

		systray.AddSeparator()

		status := systray.AddMenuItem("Status: no device", "")
		status.Disable()
		fault := systray.AddMenuItem("Faults: 0", "")
		fault.Disable()

		systray.AddSeparator()

		mQuit := systray.AddMenuItem("Quit", "Exit GlassToKey")

		mStatus = status
		mMode = mode
		mFault = fault

		if opts.OnReady != nil {
			opts.OnReady()
		}

		go func() {
			for {
				select {
				case <-mSettings.ClickedCh:
					if opts.OnSettings != nil {
						opts.OnSettings()
					}
				case <-mode.ClickedCh:
					if opts.OnCycleMode != nil {
						opts.OnCycleMode()
					}
				case <-mAutoStart.ClickedCh:
					if mAutoStart.Checked() {
						mAutoStart.Uncheck()
						if opts.OnAutoStart != nil {
							opts.OnAutoStart(false)
						}
					} else {
						mAutoStart.Check()
						if opts.OnAutoStart != nil {
							opts.OnAutoStart(true)
						}
					}
				case <-mQuit.ClickedCh:
					if opts.OnQuit != nil {
						opts.OnQuit()
					}
					systray.Quit()
				}
			}
		}()
	}, func() {
		// cleanup on systray exit
	})
}

// Update reflects a host.Snapshot in the tray icon, tooltip, and menu
// labels. Safe to call from any goroutine that owns the systray loop's
// event thread (the caller is expected to serialize calls, matching
// systray's own single-threaded menu item API).
func Update(snap host.Snapshot) {
	switch snap.Mode {
	case engine.MouseOnly:
		systray.SetIcon(IconMouseOnly)
	case engine.KeyboardOnly:
		systray.SetIcon(IconKeyboardOnly)
	default:
		systray.SetIcon(IconMixed)
	}
	if snap.Left.Paused || snap.Right.Paused {
		systray.SetIcon(IconFault)
	}

	systray.SetTooltip(fmt.Sprintf("GlassToKey — %s", snap.Mode))

	if mMode != nil {
		mMode.SetTitle(fmt.Sprintf("Mode: %s", modeLabel(snap.Mode)))
	}
	if mStatus != nil {
		mStatus.SetTitle(fmt.Sprintf("Status: L=%d touches R=%d touches", snap.Left.ActiveTouches, snap.Right.ActiveTouches))
	}
	if mFault != nil {
		faults := 0
		if snap.Left.Paused {
			faults++
		}
		if snap.Right.Paused {
			faults++
		}
		mFault.SetTitle(fmt.Sprintf("Faults: %d side(s) paused, %d dropped", faults, snap.Dropped))
	}
}

func modeLabel(m engine.Mode) string {
	switch m {
	case engine.MouseOnly:
		return "Mouse-only"
	case engine.KeyboardOnly:
		return "Keyboard-only"
	default:
		return "Mixed"
	}
}

// Quit stops the system tray.
func Quit() {
	systray.Quit()
}
