// Package session implements the allocation-free contact session tracker
// (spec §4.S): mapping each frame's decoded contacts onto stable session
// identities that survive raw-id churn and brief slot reordering.
package session

import (
	"sync/atomic"

	"github.com/glasstokey/glasstokey/internal/hidframe"
)

// pool.go's thresholdSq/staleTicks are atomics rather than plain fields:
// SetThreshold/SetStaleTicks are called from Reconfigure on a goroutine
// other than the dispatch pump, while Step (the pump's only caller) reads
// them every frame. Step loads each once at the top of the frame, matching
// the "config updates happen only at frame boundaries" contract.

// ContactSession is a mutable record that lives across frames. Exactly one
// is active per stable_id at a time; the pool never reuses a stable_id.
type ContactSession struct {
	Active         bool
	StableID       uint64
	RawIDLast      uint32
	X, Y           uint16
	LastSeenFrame  uint64
	LastSeenTick   uint64
	FirstSeenTick  uint64
}

// BoundContact is one current-frame contact resolved to its session.
type BoundContact struct {
	StableID uint64
	X, Y     uint16
	// ContactIndex is the index into the decoder.DecodedFrame this binding
	// came from, so callers can read pressure/phase without a second pass.
	ContactIndex int
	// Opened is true the first frame a session exists (used by the intent
	// engine to create EngineTouchState).
	Opened bool
}

// ClosedSession is emitted for every session the tracker releases this
// frame, whether by loss-of-match or by Tstale force-close.
type ClosedSession struct {
	StableID uint64
}

// IDCounter hands out process-lifetime-unique stable ids. Shared across
// both side pools so stable_id collisions never occur between Left and
// Right even though TouchKey already disambiguates by side.
type IDCounter struct {
	n atomic.Uint64
}

// Next returns the next stable id, starting at 1 (0 is reserved/unused).
func (c *IDCounter) Next() uint64 {
	return c.n.Add(1)
}

// Pool is a fixed-size, pre-allocated set of ContactSessions for one
// physical side. All of Pool's methods are intended to be called from a
// single thread (the dispatch pump) — no internal locking.
type Pool struct {
	sessions []ContactSession // len == capacity, allocated once
	ids      *IDCounter

	thresholdSq atomic.Uint32 // squared nearest-position match threshold, device units
	staleTicks  atomic.Uint64 // Tstale in the same tick units as ArrivalTick (ns)

	// Scratch buffers reused every Step call — the allocation-free
	// contract in spec §4.S.
	matchedSession []bool
	matchedContact []bool
	boundBuf       []BoundContact
	closedBuf      []ClosedSession
}

// NewPool allocates a pool of the given capacity once. capacity (M) must be
// >= the device's max simultaneous contacts + headroom; spec recommends
// M >= 10.
func NewPool(capacity int, ids *IDCounter) *Pool {
	if capacity < 1 {
		capacity = 1
	}
	return &Pool{
		sessions:       make([]ContactSession, capacity),
		ids:            ids,
		matchedSession: make([]bool, capacity),
		matchedContact: make([]bool, 0, hidframe.MaxContacts),
		boundBuf:       make([]BoundContact, 0, capacity),
		closedBuf:      make([]ClosedSession, 0, capacity),
	}
}

// SetThreshold sets the nearest-position match threshold, in device units.
// Safe to call from any goroutine; Step picks up the new value at the next
// frame boundary (§5: keymap/config updates happen only at frame
// boundaries).
func (p *Pool) SetThreshold(deviceUnits uint32) {
	p.thresholdSq.Store(deviceUnits * deviceUnits)
}

// SetStaleTicks sets Tstale expressed in ArrivalTick units (ns). Safe to
// call from any goroutine.
func (p *Pool) SetStaleTicks(ticks uint64) {
	p.staleTicks.Store(ticks)
}

// ActiveCount returns the number of currently active sessions.
func (p *Pool) ActiveCount() int {
	n := 0
	for i := range p.sessions {
		if p.sessions[i].Active {
			n++
		}
	}
	return n
}

// Snapshot copies active sessions into dst (grown as needed) for observer
// use; this is the only place session.Pool allocates, and only when an
// observer asks — never on the hot path.
func (p *Pool) Snapshot(dst []ContactSession) []ContactSession {
	dst = dst[:0]
	for i := range p.sessions {
		if p.sessions[i].Active {
			dst = append(dst, p.sessions[i])
		}
	}
	return dst
}
