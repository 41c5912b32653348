package layer

import "github.com/glasstokey/glasstokey/internal/side"

// Stack is the active layer stack: index 0 is always the base layer (0);
// later indices are layers pushed on top by MO, or swapped in by TO. The
// stack never empties.
type Stack struct {
	layers []int
}

// NewStack returns a stack containing only the base layer.
func NewStack() *Stack {
	return &Stack{layers: []int{0}}
}

// Clone returns an independent copy, used to snapshot the stack onto a
// TouchKey's EngineTouchState at Nascent entry (spec §4.E step 1).
func (s *Stack) Clone() *Stack {
	cp := make([]int, len(s.layers))
	copy(cp, s.layers)
	return &Stack{layers: cp}
}

// Push adds a momentary layer on top of the stack.
func (s *Stack) Push(layer int) {
	s.layers = append(s.layers, layer)
}

// Pop removes the topmost occurrence of layer, if present. The base layer
// (index 0) is never removed.
func (s *Stack) Pop(layer int) {
	for i := len(s.layers) - 1; i >= 1; i-- {
		if s.layers[i] == layer {
			s.layers = append(s.layers[:i], s.layers[i+1:]...)
			return
		}
	}
}

// Replace swaps the whole stack down to a single target layer on top of
// base (spec: "TO ... replaces the stack to a single target layer on key
// release"). Base (layer 0) is preserved beneath it unless target is 0.
func (s *Stack) Replace(target int) {
	if target == 0 {
		s.layers = []int{0}
		return
	}
	s.layers = []int{0, target}
}

// Top returns the active (topmost) layer.
func (s *Stack) Top() int {
	return s.layers[len(s.layers)-1]
}

// Layers returns the stack base-to-top, read-only.
func (s *Stack) Layers() []int {
	return s.layers
}

// Resolve finds the binding at (xNorm,yNorm) on side s under stack,
// descending from the top of the stack to base and, within each layer,
// checking custom buttons before the grid (spec §4.L). Returns NoOp if no
// rectangle on any layer in the stack contains the point.
func Resolve(km *Keymap, s side.Side, xNorm, yNorm float64, stack *Stack) KeyBinding {
	layers := stack.Layers()
	for i := len(layers) - 1; i >= 0; i-- {
		ls := km.layers[layers[i]][s]
		if ls == nil {
			continue
		}
		if b, ok := firstMatch(ls.custom, xNorm, yNorm); ok {
			return b
		}
		if b, ok := firstMatch(ls.grid, xNorm, yNorm); ok {
			return b
		}
	}
	return NoOpBinding()
}

func firstMatch(entries []entry, x, y float64) (KeyBinding, bool) {
	for _, e := range entries {
		if e.rect.Contains(x, y) {
			return e.binding, true
		}
	}
	return KeyBinding{}, false
}
