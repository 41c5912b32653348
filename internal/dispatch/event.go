// Package dispatch implements the ordered, single-producer/single-consumer
// outbound event queue consumed by the OS-input adapter (spec §4.X).
package dispatch

import "github.com/glasstokey/glasstokey/internal/side"

// Kind identifies the dispatch event variant.
type Kind int

const (
	KeyDown Kind = iota
	KeyUp
	MouseDown
	MouseUp
	MouseMove
	Chord
)

func (k Kind) String() string {
	switch k {
	case KeyDown:
		return "key_down"
	case KeyUp:
		return "key_up"
	case MouseDown:
		return "mouse_down"
	case MouseUp:
		return "mouse_up"
	case MouseMove:
		return "mouse_move"
	case Chord:
		return "chord"
	default:
		return "unknown"
	}
}

// Flags is a bitset carried on an Event.
type Flags uint8

const (
	// Haptic marks an event that should trigger haptic feedback on the
	// originating side (set on KeyDown when haptics are enabled).
	Haptic Flags = 1 << iota
)

// Event is one outbound instruction for the OS-input adapter.
type Event struct {
	Kind Kind
	Side side.Side

	KeyCode     uint16
	Char        rune
	ModMask     uint32
	Button      int
	DX, DY      int32    // relative mouse motion, device units
	KeySequence []uint16 // Chord payload: an ordered key-code burst
	Gesture     string   // Chord payload: an N-finger tap/swipe descriptor

	Flags    Flags
	Sequence uint64
}
