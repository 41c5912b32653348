package engine

import (
	"github.com/glasstokey/glasstokey/internal/layer"
	"github.com/glasstokey/glasstokey/internal/side"
)

// TouchKey is the lifecycle identity intent state is stored under — a
// (side, stable_id) pair, never the raw contact id (spec §3).
type TouchKey struct {
	Side     side.Side
	StableID uint64
}

// State is one node of the per-TouchKey state machine.
type State int

const (
	Idle State = iota
	Nascent
	MouseCandidate
	MouseActive
	KeyCandidate
	KeyActive
	Closed
)

func (s State) String() string {
	switch s {
	case Nascent:
		return "nascent"
	case MouseCandidate:
		return "mouse_candidate"
	case MouseActive:
		return "mouse_active"
	case KeyCandidate:
		return "key_candidate"
	case KeyActive:
		return "key_active"
	case Closed:
		return "closed"
	default:
		return "idle"
	}
}

// touchState is the mutable per-TouchKey record (spec's EngineTouchState).
// Owned exclusively by the Engine that created it; never shared.
type touchState struct {
	stableID uint64
	key      State

	firstSeenTick uint64
	lastTick      uint64

	originX, originY uint16
	lastX, lastY     uint16
	// pendingDX/DY is the delta since the previous frame, used to drive the
	// MouseActive MouseMove stream.
	pendingDX, pendingDY int32
	// maxDisplacementSq is the largest squared distance from origin seen so
	// far, used against the Dmove/2 and Dmove thresholds.
	maxDisplacementSq uint32

	layerSnapshot *layer.Stack
	binding       *layer.KeyBinding

	holdFired     bool
	holdStartTick uint64

	moOwned     bool
	moLayer     int
	toCommitted bool
	toLayer     int

	mouseDownSent bool

	// Gesture bookkeeping — non-nil while this TouchKey is a candidate
	// member of an as-yet-unresolved N-finger tap/swipe group.
	grp           *group
	suppressed    bool
	closedPending bool
}
