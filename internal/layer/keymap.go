package layer

import "github.com/glasstokey/glasstokey/internal/side"

// NormalizedRect is a key rectangle in [0,1]² on one side. Contains is
// inclusive on both edges so that, combined with declaration-ordered
// iteration, a point exactly on a shared border resolves to the
// lower-indexed (earlier-declared) rectangle — spec §8 boundary behavior.
type NormalizedRect struct {
	X0, Y0, X1, Y1 float64
}

func (r NormalizedRect) Contains(x, y float64) bool {
	return x >= r.X0 && x <= r.X1 && y >= r.Y0 && y <= r.Y1
}

// GridCell is one (row,col) cell of the grid Layout for one side.
type GridCell struct {
	Row, Col int
	Rect     NormalizedRect
}

// Layout is the read-only key-rectangle geometry shared by every layer on
// a side, produced by the out-of-scope layout builder.
type Layout struct {
	Cells map[side.Side][]GridCell
}

// UniformGrid builds a Layout dividing both sides into an evenly spaced
// rows×cols grid — the geometry a keymap file's (row,col) indices index
// into, since the text format itself carries no rectangle data (spec §6).
func UniformGrid(rows, cols int) *Layout {
	l := &Layout{Cells: make(map[side.Side][]GridCell, 2)}
	for _, s := range []side.Side{side.Left, side.Right} {
		cells := make([]GridCell, 0, rows*cols)
		for row := 0; row < rows; row++ {
			for col := 0; col < cols; col++ {
				cells = append(cells, GridCell{
					Row: row, Col: col,
					Rect: NormalizedRect{
						X0: float64(col) / float64(cols),
						Y0: float64(row) / float64(rows),
						X1: float64(col+1) / float64(cols),
						Y1: float64(row+1) / float64(rows),
					},
				})
			}
		}
		l.Cells[s] = cells
	}
	return l
}

// RectFor looks up the geometry for a (side,row,col) grid cell.
func (l *Layout) RectFor(s side.Side, row, col int) (NormalizedRect, bool) {
	for _, c := range l.Cells[s] {
		if c.Row == row && c.Col == col {
			return c.Rect, true
		}
	}
	return NormalizedRect{}, false
}

// entry is one resolvable binding: a rectangle plus the binding it yields.
type entry struct {
	rect    NormalizedRect
	binding KeyBinding
}

// layerSide holds one layer's entries for one side, split so custom
// free-form buttons are always checked before the grid (spec §4.L).
type layerSide struct {
	custom []entry
	grid   []entry
}

// Keymap is the immutable (layout_name, side, layer, row, col) → KeyBinding
// mapping. Keymaps are swapped wholesale (never mutated in place) so the
// pump can hold a stable pointer for an entire frame.
type Keymap struct {
	LayoutName string
	layers     map[int]map[side.Side]*layerSide
}

// Builder constructs a Keymap incrementally; used by the keymap file
// loader (component K) and by tests. Builder is not safe for concurrent
// use and is discarded after Build.
type Builder struct {
	km *Keymap
}

func NewBuilder(layoutName string) *Builder {
	return &Builder{km: &Keymap{
		LayoutName: layoutName,
		layers:     make(map[int]map[side.Side]*layerSide),
	}}
}

func (b *Builder) sideEntry(layer int, s side.Side) *layerSide {
	ls, ok := b.km.layers[layer]
	if !ok {
		ls = make(map[side.Side]*layerSide)
		b.km.layers[layer] = ls
	}
	e, ok := ls[s]
	if !ok {
		e = &layerSide{}
		ls[s] = e
	}
	return e
}

// AddGrid adds a grid binding at (side,layer,row,col), looking up its
// rectangle from layout. Returns false if the layout has no such cell.
func (b *Builder) AddGrid(layout *Layout, s side.Side, layer, row, col int, binding KeyBinding) bool {
	rect, ok := layout.RectFor(s, row, col)
	if !ok {
		return false
	}
	e := b.sideEntry(layer, s)
	e.grid = append(e.grid, entry{rect: rect, binding: binding})
	return true
}

// AddCustom adds a free-form (non-grid) button with an explicit rectangle.
func (b *Builder) AddCustom(s side.Side, layer int, rect NormalizedRect, binding KeyBinding) {
	e := b.sideEntry(layer, s)
	e.custom = append(e.custom, entry{rect: rect, binding: binding})
}

// Build finalizes the Keymap. The Builder must not be reused afterward.
func (b *Builder) Build() *Keymap {
	return b.km
}
