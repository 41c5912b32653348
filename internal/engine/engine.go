// Package engine implements the Intent Engine (spec §4.E): the per-TouchKey
// state machine that turns stable contact sessions into KeyDown/KeyUp,
// MouseDown/MouseMove/MouseUp, and N-finger gesture dispatch events.
package engine

import (
	"sync/atomic"

	"github.com/glasstokey/glasstokey/internal/dispatch"
	"github.com/glasstokey/glasstokey/internal/layer"
	"github.com/glasstokey/glasstokey/internal/session"
	"github.com/glasstokey/glasstokey/internal/side"
)

// Engine runs the state machine for every TouchKey on one physical side.
// Step is not safe for concurrent use — the runtime host's dispatch pump is
// its only caller. SetParams/SetKeymap, however, are: they publish through
// atomic.Pointer so a config-reload or hotkey goroutine can call them while
// the pump thread is mid-Step without tearing the multi-field Params struct
// or racing the keymap pointer. Step loads both once at frame start, so a
// concurrent swap is only ever observed at a frame boundary.
type Engine struct {
	side   side.Side
	params atomic.Pointer[Params]
	keymap atomic.Pointer[layer.Keymap]
	stack  *layer.Stack

	states map[uint64]*touchState

	pendingGroup *group
	nextGroupID  uint64

	lastHapticTick uint64
	curTick        uint64

	// curParams/curKeymap are the snapshots loaded at the top of the frame
	// currently being stepped; every helper below reads these, never the
	// atomics directly, so one Step sees one consistent config.
	curParams Params
	curKeymap *layer.Keymap

	outBuf []dispatch.Event
}

// NewEngine creates an Engine for one side. A keymap must be supplied via
// SetKeymap before the first Step call that needs to resolve a binding;
// until then, KeyCandidate commits resolve to NoOp.
func NewEngine(s side.Side, params Params) *Engine {
	e := &Engine{
		side:   s,
		stack:  layer.NewStack(),
		states: make(map[uint64]*touchState),
		outBuf: make([]dispatch.Event, 0, 16),
	}
	e.params.Store(&params)
	return e
}

// SetParams publishes new tunable parameters, effective on the next Step
// call (spec §5: "Keymap updates happen via pointer/handle swap at frame
// boundaries only"). Safe to call from any goroutine.
func (e *Engine) SetParams(p Params) { e.params.Store(&p) }

// SetKeymap publishes a new keymap handle, effective on the next Step call.
// Safe to call from any goroutine.
func (e *Engine) SetKeymap(km *layer.Keymap) { e.keymap.Store(km) }

// Stack exposes the live layer stack for observers (read-only use expected).
func (e *Engine) Stack() *layer.Stack { return e.stack }

// ActiveTouchCount reports the number of TouchKeys not yet closed, used by
// tray/visualizer observers.
func (e *Engine) ActiveTouchCount() int {
	n := 0
	for _, ts := range e.states {
		if !ts.closedPending {
			n++
		}
	}
	return n
}

// Step advances every TouchKey on this side by one frame, given the bound
// and closed contacts S produced this frame, and returns the dispatch
// events produced (a slice reused across calls — copy before retaining).
func (e *Engine) Step(bound []session.BoundContact, closed []session.ClosedSession, now uint64) []dispatch.Event {
	e.outBuf = e.outBuf[:0]
	e.curTick = now
	if p := e.params.Load(); p != nil {
		e.curParams = *p
	}
	e.curKeymap = e.keymap.Load()

	// A touch absent from this frame has moved zero since the previous one.
	for _, ts := range e.states {
		ts.pendingDX, ts.pendingDY = 0, 0
	}

	for _, b := range bound {
		if b.Opened {
			e.states[b.StableID] = &touchState{
				stableID:      b.StableID,
				key:           Nascent,
				firstSeenTick: now,
				lastTick:      now,
				originX:       b.X,
				originY:       b.Y,
				lastX:         b.X,
				lastY:         b.Y,
				layerSnapshot: e.stack.Clone(),
			}
			continue
		}
		ts, ok := e.states[b.StableID]
		if !ok {
			// Matched a session S never reported opening — shouldn't happen,
			// but treat it as a fresh open rather than panicking on a nil.
			ts = &touchState{stableID: b.StableID, key: Nascent, firstSeenTick: now,
				originX: b.X, originY: b.Y, lastX: b.X, lastY: b.Y, layerSnapshot: e.stack.Clone()}
			e.states[b.StableID] = ts
		}
		ts.pendingDX = int32(b.X) - int32(ts.lastX)
		ts.pendingDY = int32(b.Y) - int32(ts.lastY)
		ts.lastTick = now
		ts.lastX, ts.lastY = b.X, b.Y
		dOriginX := int32(b.X) - int32(ts.originX)
		dOriginY := int32(b.Y) - int32(ts.originY)
		d := uint32(dOriginX*dOriginX + dOriginY*dOriginY)
		if d > ts.maxDisplacementSq {
			ts.maxDisplacementSq = d
		}
	}

	e.updateGestures(now)

	activeCount := e.activeCount()
	for _, ts := range e.states {
		if ts.closedPending || ts.suppressed {
			continue
		}
		e.advance(ts, now, activeCount)
	}

	for _, c := range closed {
		ts, ok := e.states[c.StableID]
		if !ok {
			continue
		}
		if ts.grp != nil && !ts.grp.cancelled {
			ts.closedPending = true
			g := ts.grp
			allClosed := true
			for _, m := range g.members {
				if !m.closedPending {
					allClosed = false
					break
				}
			}
			if allClosed {
				e.finalizeGroup(g, now)
				for _, m := range g.members {
					delete(e.states, m.stableID)
				}
			}
			continue
		}
		e.terminalClose(ts, now)
		delete(e.states, c.StableID)
	}

	return e.outBuf
}

// activeCount counts open TouchKeys for the multi-finger check in advance.
// A touch holding an MO layer is a modifier, not a second finger, and is
// not counted.
func (e *Engine) activeCount() int {
	n := 0
	for _, ts := range e.states {
		if !ts.closedPending && !ts.moOwned {
			n++
		}
	}
	return n
}

// advance runs one per-frame state transition for an unsuppressed,
// not-yet-closed TouchKey (spec §4.E step 2).
func (e *Engine) advance(ts *touchState, now uint64, activeCount int) {
	switch ts.key {
	case Nascent:
		moved := ts.maxDisplacementSq > sq32(e.curParams.Dmove/2)
		if moved || activeCount >= 2 {
			ts.key = MouseCandidate
			return
		}
		if now-ts.firstSeenTick >= e.curParams.Tstart {
			ts.key = KeyCandidate
			e.commit(ts, now)
		}
	case KeyCandidate:
		// Reached only if a previous Step left it uncommitted; commit now.
		e.commit(ts, now)
	case MouseCandidate:
		if ts.maxDisplacementSq > sq32(e.curParams.Dmove) {
			ts.key = MouseActive
			e.emitGated(dispatch.Event{Kind: dispatch.MouseDown, Button: 1}, ts)
			ts.mouseDownSent = true
			if ts.pendingDX != 0 || ts.pendingDY != 0 {
				e.emitGated(dispatch.Event{Kind: dispatch.MouseMove, DX: ts.pendingDX, DY: ts.pendingDY}, ts)
			}
		}
	case MouseActive:
		if ts.pendingDX != 0 || ts.pendingDY != 0 {
			e.emitGated(dispatch.Event{Kind: dispatch.MouseMove, DX: ts.pendingDX, DY: ts.pendingDY}, ts)
		}
	case KeyActive:
		e.checkHold(ts, now)
	}
}

// commit resolves the key binding for a committing TouchKey and applies its
// effect (spec §4.E step 2, KeyCandidate → KeyActive).
func (e *Engine) commit(ts *touchState, now uint64) {
	ts.key = KeyActive
	ts.holdStartTick = now

	b := e.resolve(ts)
	ts.binding = &b

	switch b.Kind {
	case layer.MO:
		e.stack.Push(b.Layer)
		ts.moOwned = true
		ts.moLayer = b.Layer
	case layer.TO:
		ts.toCommitted = true
		ts.toLayer = b.Layer
	case layer.Mouse:
		e.emitGated(dispatch.Event{Kind: dispatch.MouseDown, Button: b.Button}, ts)
		ts.mouseDownSent = true
	case layer.Chord:
		e.emitGated(dispatch.Event{Kind: dispatch.Chord, KeySequence: b.Sequence}, ts)
	case layer.NoOp:
		// nothing to dispatch.
	default: // Char, KeyCode, Modifier
		e.emitGated(keyEvent(&b, dispatch.KeyDown), ts)
	}
}

// checkHold fires a binding's distinct hold variant once Thold has elapsed
// on a committed key (spec §4.E step 2, KeyActive hold-timer branch).
func (e *Engine) checkHold(ts *touchState, now uint64) {
	if ts.holdFired || ts.binding == nil || ts.binding.Hold == nil {
		return
	}
	if now-ts.holdStartTick < e.curParams.Thold {
		return
	}
	switch ts.binding.Kind {
	case layer.Mouse:
		e.emitGated(dispatch.Event{Kind: dispatch.MouseUp, Button: ts.binding.Button}, ts)
	case layer.Chord, layer.MO, layer.TO, layer.NoOp:
		// nothing to release before switching to the hold variant.
	default:
		e.emitGated(keyEvent(ts.binding, dispatch.KeyUp), ts)
	}
	hold := *ts.binding.Hold
	e.emitGated(keyEvent(&hold, dispatch.KeyDown), ts)
	ts.binding = &hold
	ts.holdFired = true
}

// terminalClose resolves the closing transition for a TouchKey that was not
// part of an unresolved gesture grouping (spec §4.E step 3).
func (e *Engine) terminalClose(ts *touchState, now uint64) {
	switch ts.key {
	case KeyActive:
		if ts.binding != nil {
			switch ts.binding.Kind {
			case layer.Mouse:
				e.emitGated(dispatch.Event{Kind: dispatch.MouseUp, Button: ts.binding.Button}, ts)
			case layer.Chord, layer.MO, layer.TO, layer.NoOp:
				// one-shot / stack-only bindings have nothing to release.
			default:
				e.emitGated(keyEvent(ts.binding, dispatch.KeyUp), ts)
			}
		}
		if ts.moOwned {
			e.stack.Pop(ts.moLayer)
		}
		if ts.toCommitted {
			e.stack.Replace(ts.toLayer)
		}
	case MouseActive:
		if ts.mouseDownSent {
			e.emitGated(dispatch.Event{Kind: dispatch.MouseUp, Button: 1}, ts)
		}
	case Nascent, KeyCandidate:
		dur := now - ts.firstSeenTick
		if dur < e.curParams.Ttap && ts.maxDisplacementSq <= sq32(e.curParams.Dmove/2) {
			b := e.resolve(ts)
			switch b.Kind {
			case layer.Chord:
				e.emitGated(dispatch.Event{Kind: dispatch.Chord, KeySequence: b.Sequence}, ts)
			case layer.Mouse:
				e.emitGated(dispatch.Event{Kind: dispatch.MouseDown, Button: b.Button}, ts)
				e.emitGated(dispatch.Event{Kind: dispatch.MouseUp, Button: b.Button}, ts)
			case layer.MO, layer.TO, layer.NoOp:
				// a momentary/toggle/no-op binding produces no tap dispatch.
			default:
				e.emitGated(keyEvent(&b, dispatch.KeyDown), ts)
				e.emitGated(keyEvent(&b, dispatch.KeyUp), ts)
			}
		}
	case MouseCandidate:
		// evaporated before crossing the drag threshold: nothing to emit.
	}
}

func (e *Engine) resolve(ts *touchState) layer.KeyBinding {
	if e.curKeymap == nil {
		return layer.NoOpBinding()
	}
	xNorm := float64(ts.lastX) / float64(maxOrOne(e.curParams.DeviceMaxX))
	yNorm := float64(ts.lastY) / float64(maxOrOne(e.curParams.DeviceMaxY))
	return layer.Resolve(e.curKeymap, e.side, xNorm, yNorm, ts.layerSnapshot)
}

func maxOrOne(v uint16) uint16 {
	if v == 0 {
		return 1
	}
	return v
}

func keyEvent(b *layer.KeyBinding, kind dispatch.Kind) dispatch.Event {
	return dispatch.Event{Kind: kind, Char: b.Char, KeyCode: b.KeyCode, ModMask: b.ModMask}
}

// emitGated applies mode gating (spec §4.E "Mode policy") and the haptic
// flag/throttle, then appends to the frame's output buffer. ts may be nil
// for gesture events, which are not subject to per-touch MO bypass.
func (e *Engine) emitGated(ev dispatch.Event, ts *touchState) {
	ev.Side = e.side

	bypass := ts != nil && ts.moOwned
	if !bypass {
		isMouse := ev.Kind == dispatch.MouseDown || ev.Kind == dispatch.MouseUp || ev.Kind == dispatch.MouseMove
		isKey := ev.Kind == dispatch.KeyDown || ev.Kind == dispatch.KeyUp
		if e.curParams.Mode == MouseOnly && isKey {
			return
		}
		if e.curParams.Mode == KeyboardOnly && isMouse {
			return
		}
	}

	if ev.Kind == dispatch.KeyDown && e.curParams.HapticOnKeyTap {
		if e.curTick-e.lastHapticTick >= e.curParams.HapticMinInterval {
			ev.Flags |= dispatch.Haptic
			e.lastHapticTick = e.curTick
		}
	}

	e.outBuf = append(e.outBuf, ev)
}

func (e *Engine) emitGesture(name string) {
	e.emitGated(dispatch.Event{Kind: dispatch.Chord, Gesture: name}, nil)
}
