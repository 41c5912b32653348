// Package host implements the Runtime Host (spec §4.O): it owns the
// per-side pipelines (decoder selector, session pool, pressure probe,
// intent engine) and the single shared dispatch queue, and routes an
// inbound (side, byte-buffer) pair through R→D→S→P→E→L→X synchronously on
// the dispatch pump thread (spec §5).
package host

import (
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/glasstokey/glasstokey/internal/decoder"
	"github.com/glasstokey/glasstokey/internal/dispatch"
	"github.com/glasstokey/glasstokey/internal/engine"
	"github.com/glasstokey/glasstokey/internal/hidframe"
	"github.com/glasstokey/glasstokey/internal/layer"
	"github.com/glasstokey/glasstokey/internal/pressure"
	"github.com/glasstokey/glasstokey/internal/session"
	"github.com/glasstokey/glasstokey/internal/side"
)

// sessionPoolCapacity is M from spec §4.S: session pool size per side.
const sessionPoolCapacity = 10

// faultWindow and faultLimit bound the RepeatedFault cooldown (spec §7).
const (
	faultWindow = 5 * time.Second
	faultLimit  = 20
	faultCooldown = 3 * time.Second
)

// Config is the subset of spec §6 configuration the host applies at
// construction and on Reconfigure; engine.Params carries the rest.
type Config struct {
	Engine engine.Params

	SessionThresholdDeviceUnits uint32
	TstaleTicks                 uint64 // ArrivalTick units (ns)

	DecoderHint      map[side.Side]decoder.Hint
	UsagePage        uint16
	PressureForced   map[side.Side]bool

	// SessionPoolSize is M from spec §4.S: session pool size per side.
	// Zero falls back to sessionPoolCapacity.
	SessionPoolSize int

	DispatchQueueCapacity int
}

// DefaultConfig returns spec §6 defaults.
func DefaultConfig() Config {
	return Config{
		Engine:                      engine.DefaultParams(),
		SessionThresholdDeviceUnits: 255, // default Dmove: 3mm at the 85 units/mm placeholder scale
		TstaleTicks:                 uint64(170 * time.Millisecond),
		DecoderHint:                 map[side.Side]decoder.Hint{side.Left: decoder.HintAuto, side.Right: decoder.HintAuto},
		PressureForced:              map[side.Side]bool{},
		SessionPoolSize:             sessionPoolCapacity,
		DispatchQueueCapacity:       256,
	}
}

// sidePipeline bundles one side's D/S/P/E instances plus the zero-alloc
// scratch Frame/DecodedFrame R and D write into each Ingest call.
type sidePipeline struct {
	selector *decoder.Selector
	pool     *session.Pool
	probe    *pressure.Probe
	engine   *engine.Engine

	frame   hidframe.Frame
	decoded decoder.DecodedFrame

	faultTimestamps []time.Time
	pausedUntil     time.Time
}

// Snapshot is the immutable, observer-facing view of one frame's outcome,
// published via a single-writer/multi-reader atomic pointer swap (spec §9,
// "lock-held snapshot of mutable state for UI").
type Snapshot struct {
	Left, Right SideSnapshot
	Mode        engine.Mode
	QueueDepth  int
	Dropped     uint64
	Forced      uint64
}

// SideSnapshot is the per-side slice of a Snapshot.
type SideSnapshot struct {
	ActiveSessions int
	ActiveTouches  int
	Pressure       pressure.Support
	Layer          int
	Paused         bool
}

// Host is the top-level pipeline owner. Not safe for concurrent Ingest
// calls — the caller (the raw-input adapter's dispatch pump) is expected to
// serialize Ingest per spec §5's single-writer discipline.
type Host struct {
	mu     sync.Mutex
	cfg    Config
	ids    *session.IDCounter
	sides  map[side.Side]*sidePipeline
	keymap *layer.Keymap
	queue  *dispatch.Queue

	snapshot atomic.Pointer[Snapshot]

	faultObserver func(side side.Side, context string)
}

// New builds a Host with one pipeline per physical side.
func New(cfg Config) *Host {
	poolSize := cfg.SessionPoolSize
	if poolSize <= 0 {
		poolSize = sessionPoolCapacity
	}
	h := &Host{
		cfg:   cfg,
		ids:   &session.IDCounter{},
		sides: make(map[side.Side]*sidePipeline, 2),
		queue: dispatch.NewQueue(cfg.DispatchQueueCapacity),
	}
	for _, s := range side.Both {
		hint := cfg.DecoderHint[s]
		h.sides[s] = &sidePipeline{
			selector: decoder.NewSelector(hint, cfg.UsagePage),
			pool:     session.NewPool(poolSize, h.ids),
			probe:    pressure.NewProbe(cfg.PressureForced[s]),
			engine:   engine.NewEngine(s, cfg.Engine),
		}
		h.sides[s].pool.SetThreshold(cfg.SessionThresholdDeviceUnits)
		h.sides[s].pool.SetStaleTicks(cfg.TstaleTicks)
	}
	h.queue.OnForceDispatch(func(e dispatch.Event) {
		log.Printf("[host] dispatch queue wedged — force-dispatched %s past the adapter", e.Kind)
	})
	h.publishSnapshot()
	return h
}

// Queue returns the shared dispatch queue the OS-input adapter drains.
func (h *Host) Queue() *dispatch.Queue { return h.queue }

// Snapshot returns the most recently published observer snapshot. Safe for
// concurrent use from any number of reader goroutines.
func (h *Host) Snapshot() Snapshot {
	if p := h.snapshot.Load(); p != nil {
		return *p
	}
	return Snapshot{}
}

// OnFault registers a callback invoked whenever RepeatedFault pauses
// ingestion for a side.
func (h *Host) OnFault(fn func(s side.Side, context string)) {
	h.mu.Lock()
	h.faultObserver = fn
	h.mu.Unlock()
}

// SetKeymap swaps the active keymap handle atomically for every side's
// engine. Per spec §5, this must only be observed at a frame boundary —
// Go's single-writer discipline on the pump thread guarantees that here.
func (h *Host) SetKeymap(km *layer.Keymap) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.keymap = km
	for _, sp := range h.sides {
		sp.engine.SetKeymap(km)
	}
}

// Reconfigure applies new tunables at the next frame boundary.
func (h *Host) Reconfigure(cfg Config) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cfg = cfg
	for _, sp := range h.sides {
		sp.pool.SetThreshold(cfg.SessionThresholdDeviceUnits)
		sp.pool.SetStaleTicks(cfg.TstaleTicks)
		sp.engine.SetParams(cfg.Engine)
	}
}

// Ingest routes one raw HID report buffer through R→D→S→P→E→L→X for side s.
// Recoverable errors (ShortBuffer, DecoderFault) are counted and absorbed
// per spec §7; Ingest never returns an error for them.
func (h *Host) Ingest(s side.Side, buf []byte, arrivalTick uint64, frameNumber uint64) {
	h.mu.Lock()
	sp, ok := h.sides[s]
	if !ok {
		h.mu.Unlock()
		return
	}
	if !sp.pausedUntil.IsZero() && time.Now().Before(sp.pausedUntil) {
		h.mu.Unlock()
		return
	}
	h.mu.Unlock()

	if err := hidframe.Parse(buf, arrivalTick, s, &sp.frame); err != nil {
		h.recordFault(s, sp, "short_buffer")
		return
	}

	sp.selector.Decode(&sp.frame, &sp.decoded)

	for i := 0; i < sp.decoded.Count; i++ {
		sp.probe.Observe(sp.decoded.Contacts[i].Pressure)
	}

	bound, closed := sp.pool.Step(&sp.decoded, frameNumber)

	events := sp.engine.Step(bound, closed, arrivalTick)
	for _, ev := range events {
		h.queue.Push(ev)
	}

	h.publishSnapshot()
}

// recordFault increments s's sliding-window fault counter and, once
// faultLimit faults have accumulated within faultWindow, pauses ingestion on that side
// for faultCooldown (spec §7, RepeatedFault).
func (h *Host) recordFault(s side.Side, sp *sidePipeline, context string) {
	now := time.Now()
	sp.faultTimestamps = append(sp.faultTimestamps, now)
	cutoff := now.Add(-faultWindow)
	kept := sp.faultTimestamps[:0]
	for _, ts := range sp.faultTimestamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	sp.faultTimestamps = kept

	if len(sp.faultTimestamps) < faultLimit {
		return
	}

	sp.pausedUntil = now.Add(faultCooldown)
	sp.faultTimestamps = sp.faultTimestamps[:0]
	log.Printf("[host] repeated fault on %s side (%s) — pausing ingestion for %v", s, context, faultCooldown)

	h.mu.Lock()
	cb := h.faultObserver
	h.mu.Unlock()
	if cb != nil {
		cb(s, context)
	}
}

func (h *Host) publishSnapshot() {
	snap := &Snapshot{
		Mode:       h.cfg.Engine.Mode,
		QueueDepth: h.queue.Len(),
		Dropped:    h.queue.Dropped(),
		Forced:     h.queue.Forced(),
	}
	if sp, ok := h.sides[side.Left]; ok {
		snap.Left = sideSnapshot(sp)
	}
	if sp, ok := h.sides[side.Right]; ok {
		snap.Right = sideSnapshot(sp)
	}
	h.snapshot.Store(snap)
}

func sideSnapshot(sp *sidePipeline) SideSnapshot {
	return SideSnapshot{
		ActiveSessions: sp.pool.ActiveCount(),
		ActiveTouches:  sp.engine.ActiveTouchCount(),
		Pressure:       sp.probe.Decision(),
		Layer:          sp.engine.Stack().Top(),
		Paused:         time.Now().Before(sp.pausedUntil),
	}
}
