package engine

import (
	"testing"

	"github.com/glasstokey/glasstokey/internal/dispatch"
	"github.com/glasstokey/glasstokey/internal/layer"
	"github.com/glasstokey/glasstokey/internal/session"
	"github.com/glasstokey/glasstokey/internal/side"
)

func testParams() Params {
	p := DefaultParams()
	p.Tstart = 20
	p.Ttap = 180
	p.Thold = 250
	p.Tgesture = 30
	p.Dmove = 300
	p.Dswipe = 2400
	p.DeviceMaxX = 1000
	p.DeviceMaxY = 1000
	return p
}

func wholeSideLayout() *layer.Layout {
	return &layer.Layout{Cells: map[side.Side][]layer.GridCell{
		side.Right: {{Row: 0, Col: 0, Rect: layer.NormalizedRect{X0: 0, Y0: 0, X1: 1, Y1: 1}}},
	}}
}

func kindCounts(events []dispatch.Event) map[dispatch.Kind]int {
	out := map[dispatch.Kind]int{}
	for _, e := range events {
		out[e.Kind]++
	}
	return out
}

func TestSimpleTapEmitsKeyDownThenKeyUp(t *testing.T) {
	layout := wholeSideLayout()
	b := layer.NewBuilder("test")
	b.AddGrid(layout, side.Right, 0, 0, 0, layer.CharBinding('k'))
	km := b.Build()

	e := NewEngine(side.Right, testParams())
	e.SetKeymap(km)

	first := e.Step([]session.BoundContact{{StableID: 1, X: 500, Y: 500, Opened: true}}, nil, 0)
	if len(first) != 0 {
		t.Fatalf("expected no events on open, got %+v", first)
	}

	second := e.Step(nil, []session.ClosedSession{{StableID: 1}}, 5)
	if len(second) != 2 || second[0].Kind != dispatch.KeyDown || second[1].Kind != dispatch.KeyUp {
		t.Fatalf("expected KeyDown then KeyUp, got %+v", second)
	}
	if second[0].Char != 'k' || second[1].Char != 'k' {
		t.Fatalf("expected char 'k', got %+v", second)
	}
}

func TestHeldKeyEmitsKeyUpOnClose(t *testing.T) {
	layout := wholeSideLayout()
	b := layer.NewBuilder("test")
	b.AddGrid(layout, side.Right, 0, 0, 0, layer.CharBinding('k'))
	km := b.Build()

	e := NewEngine(side.Right, testParams())
	e.SetKeymap(km)

	e.Step([]session.BoundContact{{StableID: 1, X: 500, Y: 500, Opened: true}}, nil, 0)
	// Contact commits to KeyActive once Tstart elapses...
	committed := e.Step([]session.BoundContact{{StableID: 1, X: 500, Y: 500}}, nil, 25)
	if len(committed) != 1 || committed[0].Kind != dispatch.KeyDown {
		t.Fatalf("expected KeyDown on commit, got %+v", committed)
	}
	// ...and then a held key's close emits KeyUp, not a swallowed non-tap.
	closed := e.Step(nil, []session.ClosedSession{{StableID: 1}}, 400)
	if len(closed) != 1 || closed[0].Kind != dispatch.KeyUp {
		t.Fatalf("expected KeyUp on close of held key, got %+v", closed)
	}
}

func TestMOHoldGatesSecondFingerLayer(t *testing.T) {
	layout := &layer.Layout{Cells: map[side.Side][]layer.GridCell{
		side.Right: {
			{Row: 0, Col: 0, Rect: layer.NormalizedRect{X0: 0, Y0: 0, X1: 0.5, Y1: 1}},
			{Row: 0, Col: 1, Rect: layer.NormalizedRect{X0: 0.5, Y0: 0, X1: 1, Y1: 1}},
		},
	}}
	b := layer.NewBuilder("test")
	b.AddGrid(layout, side.Right, 0, 0, 0, layer.MOBinding(1))
	b.AddGrid(layout, side.Right, 1, 0, 1, layer.CharBinding('2'))
	km := b.Build()

	e := NewEngine(side.Right, testParams())
	e.SetKeymap(km)

	// Contact 1 opens in the MO cell and stays long enough to commit.
	e.Step([]session.BoundContact{{StableID: 1, X: 250, Y: 500, Opened: true}}, nil, 0)
	committed := e.Step([]session.BoundContact{{StableID: 1, X: 250, Y: 500}}, nil, 25)
	if len(committed) != 0 {
		t.Fatalf("MO commit should dispatch nothing, got %+v", committed)
	}
	if e.Stack().Top() != 1 {
		t.Fatalf("expected MO to push layer 1, stack=%+v", e.Stack().Layers())
	}

	// Contact 2 opens under the now-active layer 1 and resolves to '2'.
	e.Step([]session.BoundContact{
		{StableID: 1, X: 250, Y: 500},
		{StableID: 2, X: 750, Y: 500, Opened: true},
	}, nil, 30)
	second := e.Step([]session.BoundContact{
		{StableID: 1, X: 250, Y: 500},
		{StableID: 2, X: 750, Y: 500},
	}, nil, 55)
	if len(second) != 1 || second[0].Kind != dispatch.KeyDown || second[0].Char != '2' {
		t.Fatalf("expected KeyDown('2'), got %+v", second)
	}

	closedSecond := e.Step([]session.BoundContact{{StableID: 1, X: 250, Y: 500}}, []session.ClosedSession{{StableID: 2}}, 60)
	if len(closedSecond) != 1 || closedSecond[0].Kind != dispatch.KeyUp || closedSecond[0].Char != '2' {
		t.Fatalf("expected KeyUp('2'), got %+v", closedSecond)
	}

	closedFirst := e.Step(nil, []session.ClosedSession{{StableID: 1}}, 65)
	if len(closedFirst) != 0 {
		t.Fatalf("MO release should dispatch nothing, got %+v", closedFirst)
	}
	if e.Stack().Top() != 0 {
		t.Fatalf("expected MO layer popped back to base, stack=%+v", e.Stack().Layers())
	}
}

func TestDragEmitsMouseMoveThenMouseUpNoKeyDown(t *testing.T) {
	e := NewEngine(side.Right, testParams())

	e.Step([]session.BoundContact{{StableID: 1, X: 100, Y: 100, Opened: true}}, nil, 0)
	e.Step([]session.BoundContact{{StableID: 1, X: 150, Y: 100}}, nil, 5)
	e.Step([]session.BoundContact{{StableID: 1, X: 300, Y: 100}}, nil, 10) // crosses Dmove/2 → MouseCandidate
	active := e.Step([]session.BoundContact{{StableID: 1, X: 450, Y: 100}}, nil, 15) // crosses Dmove → MouseActive

	counts := kindCounts(active)
	if counts[dispatch.KeyDown] != 0 {
		t.Fatalf("drag must never emit KeyDown, got %+v", active)
	}
	if counts[dispatch.MouseDown] != 1 || counts[dispatch.MouseMove] != 1 {
		t.Fatalf("expected one MouseDown and one MouseMove on the activating frame, got %+v", active)
	}

	closed := e.Step(nil, []session.ClosedSession{{StableID: 1}}, 20)
	if len(closed) != 1 || closed[0].Kind != dispatch.MouseUp {
		t.Fatalf("expected MouseUp on release, got %+v", closed)
	}
}

func TestTwoFingerTapGestureSuppressesIndividualDispatch(t *testing.T) {
	layout := wholeSideLayout()
	b := layer.NewBuilder("test")
	b.AddGrid(layout, side.Right, 0, 0, 0, layer.CharBinding('k'))
	km := b.Build()

	e := NewEngine(side.Right, testParams())
	e.SetKeymap(km)

	e.Step([]session.BoundContact{{StableID: 1, X: 200, Y: 200, Opened: true}}, nil, 0)
	e.Step([]session.BoundContact{
		{StableID: 1, X: 200, Y: 200},
		{StableID: 2, X: 800, Y: 200, Opened: true},
	}, nil, 10)

	closedOne := e.Step([]session.BoundContact{{StableID: 2, X: 800, Y: 200}},
		[]session.ClosedSession{{StableID: 1}}, 50)
	if len(closedOne) != 0 {
		t.Fatalf("expected no dispatch while gesture group unresolved, got %+v", closedOne)
	}

	resolved := e.Step(nil, []session.ClosedSession{{StableID: 2}}, 55)
	if len(resolved) != 1 || resolved[0].Kind != dispatch.Chord || resolved[0].Gesture != "2-finger-tap" {
		t.Fatalf("expected a 2-finger-tap gesture event, got %+v", resolved)
	}
}

func TestModeGatingSuppressesMouseInKeyboardOnly(t *testing.T) {
	p := testParams()
	p.Mode = KeyboardOnly
	e := NewEngine(side.Right, p)

	e.Step([]session.BoundContact{{StableID: 1, X: 100, Y: 100, Opened: true}}, nil, 0)
	e.Step([]session.BoundContact{{StableID: 1, X: 150, Y: 100}}, nil, 5)
	e.Step([]session.BoundContact{{StableID: 1, X: 300, Y: 100}}, nil, 10)
	active := e.Step([]session.BoundContact{{StableID: 1, X: 450, Y: 100}}, nil, 15)

	if len(active) != 0 {
		t.Fatalf("Keyboard-only mode must suppress all mouse events, got %+v", active)
	}
}

func TestStaleForceCloseEmitsKeyUpForKeyActive(t *testing.T) {
	layout := wholeSideLayout()
	b := layer.NewBuilder("test")
	b.AddGrid(layout, side.Right, 0, 0, 0, layer.CharBinding('k'))
	km := b.Build()

	e := NewEngine(side.Right, testParams())
	e.SetKeymap(km)

	e.Step([]session.BoundContact{{StableID: 1, X: 500, Y: 500, Opened: true}}, nil, 0)
	e.Step([]session.BoundContact{{StableID: 1, X: 500, Y: 500}}, nil, 25)

	// session tracker's Tstale sweep force-closes and reports it the same
	// way an ordinary departure would — the engine must not distinguish.
	forced := e.Step(nil, []session.ClosedSession{{StableID: 1}}, 300)
	if len(forced) != 1 || forced[0].Kind != dispatch.KeyUp {
		t.Fatalf("expected KeyUp on stale force-close of a KeyActive touch, got %+v", forced)
	}
}
