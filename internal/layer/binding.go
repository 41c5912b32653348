// Package layer resolves an (x,y) point on a side to a key binding under
// the active layer stack (spec §4.L), and defines the KeyBinding/Keymap/
// Layout data model (spec §3).
package layer

// BindingKind tags the KeyBinding variant.
type BindingKind int

const (
	NoOp BindingKind = iota
	Char
	KeyCode
	Modifier
	MO // momentary layer push
	TO // toggle: replace stack with target layer
	Mouse
	Chord
)

func (k BindingKind) String() string {
	switch k {
	case Char:
		return "char"
	case KeyCode:
		return "keycode"
	case Modifier:
		return "modifier"
	case MO:
		return "mo"
	case TO:
		return "to"
	case Mouse:
		return "mouse"
	case Chord:
		return "chord"
	default:
		return "noop"
	}
}

// KeyBinding is the tagged-variant result of layer resolution. Only the
// field matching Kind is meaningful.
type KeyBinding struct {
	Kind BindingKind

	Char     rune
	KeyCode  uint16
	ModMask  uint32
	Layer    int      // MO / TO target
	Button   int      // Mouse
	Sequence []uint16 // Chord: key codes sent in order

	// Hold is an optional distinct action taken over when a committed key
	// is held past Thold (spec §4.E, KeyActive hold-timer branch). Nil
	// means the binding has no hold variant.
	Hold *KeyBinding
}

// Binding constructors, used by the keymap file loader and by tests.

func NoOpBinding() KeyBinding { return KeyBinding{Kind: NoOp} }

func CharBinding(c rune) KeyBinding { return KeyBinding{Kind: Char, Char: c} }

func KeyCodeBinding(vk uint16) KeyBinding { return KeyBinding{Kind: KeyCode, KeyCode: vk} }

func ModifierBinding(mask uint32) KeyBinding { return KeyBinding{Kind: Modifier, ModMask: mask} }

func MOBinding(layer int) KeyBinding { return KeyBinding{Kind: MO, Layer: layer} }

func TOBinding(layer int) KeyBinding { return KeyBinding{Kind: TO, Layer: layer} }

func MouseBinding(button int) KeyBinding { return KeyBinding{Kind: Mouse, Button: button} }

func ChordBinding(seq ...uint16) KeyBinding { return KeyBinding{Kind: Chord, Sequence: seq} }

// WithHold returns a copy of b with its hold-variant set.
func (b KeyBinding) WithHold(hold KeyBinding) KeyBinding {
	b.Hold = &hold
	return b
}

// IsDispatchable reports whether resolving to this binding should produce
// an outbound dispatch event at all (NoOp, MO and TO are resolved but
// never themselves dispatched — MO/TO only mutate the layer stack).
func (b KeyBinding) IsDispatchable() bool {
	switch b.Kind {
	case NoOp, MO, TO:
		return false
	default:
		return true
	}
}
