// GlassToKey daemon — trackpad-to-virtual-keyboard touch processing
// engine.
//
// Wires the raw-input readers (hidraw or capture replay) into the
// runtime host's dispatch pump, drains the outbound dispatch queue into
// a USB HID output adapter, and exposes a tray icon plus a local
// settings server for mode switching and live tuning.
package main

import (
	"context"
	"flag"
	"log"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"github.com/google/gousb"

	"github.com/glasstokey/glasstokey/internal/autostart"
	"github.com/glasstokey/glasstokey/internal/config"
	"github.com/glasstokey/glasstokey/internal/hidout"
	"github.com/glasstokey/glasstokey/internal/host"
	"github.com/glasstokey/glasstokey/internal/hotkey"
	"github.com/glasstokey/glasstokey/internal/keymapfile"
	"github.com/glasstokey/glasstokey/internal/platform"
	"github.com/glasstokey/glasstokey/internal/rawinput"
	"github.com/glasstokey/glasstokey/internal/rawinput/hidraw"
	"github.com/glasstokey/glasstokey/internal/rawinput/replay"
	"github.com/glasstokey/glasstokey/internal/server"
	"github.com/glasstokey/glasstokey/internal/side"
	"github.com/glasstokey/glasstokey/internal/tray"
)

var version = "dev"

// defaultVendorID/defaultProductID are the standard Android Open
// Accessory 2.0 identifiers a host-mode peripheral enumerates under once
// it has switched into accessory mode.
const (
	defaultVendorID  = 0x18d1
	defaultProductID = 0x2d00
)

const (
	defaultKeymapRows = 3
	defaultKeymapCols = 6
)

func main() {
	var (
		leftDevice  = flag.String("left-device", "", "hidraw device path for the left surface (e.g. /dev/hidraw0)")
		rightDevice = flag.String("right-device", "", "hidraw device path for the right surface")
		replayLeft  = flag.String("replay-left", "", "capture file to replay for the left surface instead of a live device")
		replayRight = flag.String("replay-right", "", "capture file to replay for the right surface instead of a live device")
		replayRT    = flag.Bool("replay-realtime", true, "pace replay to recorded arrival timestamps")
		keymapPath  = flag.String("keymap", "", "keymap text file (defaults to <config dir>/keymap.txt)")
		vendorID    = flag.Uint("vid", defaultVendorID, "USB vendor ID of the AOA2 accessory target")
		productID   = flag.Uint("pid", defaultProductID, "USB product ID of the AOA2 accessory target")
		serial      = flag.String("serial", "", "USB serial number to match, empty matches any")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[glasstokeyd] config: %v", err)
	}

	h := host.New(cfg.HostConfig())
	h.OnFault(func(s side.Side, context string) {
		log.Printf("[glasstokeyd] %s side paused: %s", s, context)
	})

	kmPath := *keymapPath
	if kmPath == "" {
		dir, err := config.Dir()
		if err != nil {
			log.Fatalf("[glasstokeyd] config dir: %v", err)
		}
		kmPath = dir + "/keymap.txt"
	}
	loadKeymap := func() error {
		km, err := keymapfile.Load(kmPath, defaultKeymapRows, defaultKeymapCols)
		if err != nil {
			return err
		}
		h.SetKeymap(km)
		return nil
	}
	if err := loadKeymap(); err != nil {
		log.Printf("[glasstokeyd] keymap: %v (starting with no bindings)", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	sources := map[side.Side]rawinput.Source{}
	if *replayLeft != "" {
		r, err := replay.Open(*replayLeft, 64, *replayRT)
		if err != nil {
			log.Fatalf("[glasstokeyd] open left replay: %v", err)
		}
		sources[side.Left] = r
	} else if *leftDevice != "" {
		r, err := hidraw.Open(*leftDevice, side.Left, 64)
		if err != nil {
			log.Fatalf("[glasstokeyd] open left device: %v", err)
		}
		sources[side.Left] = r
	}
	if *replayRight != "" {
		r, err := replay.Open(*replayRight, 64, *replayRT)
		if err != nil {
			log.Fatalf("[glasstokeyd] open right replay: %v", err)
		}
		sources[side.Right] = r
	} else if *rightDevice != "" {
		r, err := hidraw.Open(*rightDevice, side.Right, 64)
		if err != nil {
			log.Fatalf("[glasstokeyd] open right device: %v", err)
		}
		sources[side.Right] = r
	}
	if len(sources) == 0 {
		log.Printf("[glasstokeyd] no raw-input source configured — pass -left-device/-right-device or -replay-left/-replay-right")
	}

	for s, src := range sources {
		go pumpSource(ctx, h, s, src)
	}

	var sink *hidout.Sink
	dev, err := hidout.Open(gousb.ID(*vendorID), gousb.ID(*productID), *serial)
	if err != nil {
		log.Printf("[glasstokeyd] HID output device unavailable: %v (dispatch events will be dropped)", err)
	} else if err := registerDescriptors(dev); err != nil {
		log.Printf("[glasstokeyd] HID descriptor registration failed: %v (dispatch events will be dropped)", err)
		dev.Close()
		dev = nil
	} else {
		sink = hidout.NewSink(dev, time.Duration(cfg.Snapshot().HapticMinInterval)*time.Millisecond)
		go sink.Run(ctx, h.Queue())
	}

	hkMgr := hotkey.NewManager(func() {
		next := cycleMode(cfg.GetMode())
		if err := cfg.SetMode(next); err != nil {
			log.Printf("[glasstokeyd] save mode: %v", err)
		}
		hc := cfg.HostConfig()
		h.Reconfigure(hc)
		log.Printf("[glasstokeyd] mode -> %s", next)
	})

	srv := server.New(h, cfg, version)
	srv.Reload = loadKeymap
	srv.OnAutoStart = applyAutoStart

	tray.Run(tray.RunOpts{
		Version:          version,
		AutoStartEnabled: cfg.GetAutoStart(),

		OnReady: func() {
			if err := hkMgr.Register([]string{"ctrl", "alt"}, "m"); err != nil {
				log.Printf("[glasstokeyd] mode hotkey register failed: %v", err)
			}

			if _, err := srv.Start(); err != nil {
				log.Printf("[glasstokeyd] settings server: %v", err)
			}

			go func() {
				ticker := time.NewTicker(500 * time.Millisecond)
				defer ticker.Stop()
				for {
					select {
					case <-ctx.Done():
						return
					case <-ticker.C:
						tray.Update(h.Snapshot())
					}
				}
			}()

			log.Printf("[glasstokeyd] ready (version %s)", version)
		},

		OnSettings: func() {
			if url := srv.URL(); url != "" {
				openBrowser(url)
			}
		},

		OnCycleMode: func() {
			next := cycleMode(cfg.GetMode())
			if err := cfg.SetMode(next); err != nil {
				log.Printf("[glasstokeyd] save mode: %v", err)
			}
			h.Reconfigure(cfg.HostConfig())
		},

		OnAutoStart: func(enabled bool) {
			applyAutoStart(enabled)
			if err := cfg.SetAutoStart(enabled); err != nil {
				log.Printf("[glasstokeyd] save autostart: %v", err)
			}
		},

		OnQuit: func() {
			cancel()
			hkMgr.Unregister()
			for _, src := range sources {
				src.Close()
			}
			if dev != nil {
				dev.Close()
			}
			srv.Stop()
		},
	})
}

// ingestMu serializes Ingest across the per-side pump goroutines; the host
// does not support concurrent Ingest calls.
var ingestMu sync.Mutex

// pumpSource drains one side's raw-input channel into the host, pinning
// itself to an OS thread for consistent scheduling (spec §5).
func pumpSource(ctx context.Context, h *host.Host, s side.Side, src rawinput.Source) {
	platform.PinPumpThread()
	for {
		select {
		case <-ctx.Done():
			return
		case r, ok := <-src.Reports():
			if !ok {
				return
			}
			ingestMu.Lock()
			h.Ingest(s, r.Buf, r.ArrivalTick, r.FrameNumber)
			ingestMu.Unlock()
		}
	}
}

// registerDescriptors registers the keyboard, mouse, and consumer-control
// HID report descriptors the sink needs before it can send any report.
func registerDescriptors(dev *hidout.Device) error {
	for _, dt := range []hidout.DescriptorType{hidout.DescKeyboard, hidout.DescMouse, hidout.DescConsumerControl} {
		if _, err := dev.Register(dt); err != nil {
			return err
		}
	}
	return nil
}

func cycleMode(current string) string {
	switch current {
	case "mouse_only":
		return "mixed"
	case "mixed":
		return "keyboard_only"
	default:
		return "mouse_only"
	}
}

func applyAutoStart(enabled bool) {
	var err error
	if enabled {
		err = autostart.Enable()
	} else {
		err = autostart.Disable()
	}
	if err != nil {
		log.Printf("[glasstokeyd] autostart: %v", err)
	}
}

func openBrowser(url string) {
	var cmd string
	var args []string
	switch runtime.GOOS {
	case "darwin":
		cmd, args = "open", []string{url}
	case "windows":
		cmd, args = "cmd", []string{"/c", "start", url}
	default:
		cmd, args = "xdg-open", []string{url}
	}
	if err := exec.Command(cmd, args...).Start(); err != nil {
		log.Printf("[glasstokeyd] open browser: %v", err)
	}
}
