package engine

// group is a candidate N-finger tap/swipe grouping (spec §4.E "Gestures").
// Only one group is ever forming at a time per side — a second gesture
// cannot start accumulating until the first resolves or cancels, which
// keeps the open-within-Tgesture window unambiguous at the cost of not
// recognizing two fully independent simultaneous gestures.
type group struct {
	id           uint64
	members      []*touchState
	earliestOpen uint64
	cancelled    bool
	resolved     bool
}

// updateGestures links a just-opened touch to any other still-open,
// ungrouped (or still-forming-group) touch that opened within Tgesture of
// now, and cancels the pending group the moment any member drags past
// Dmove. Only one group is tracked forming at a time per side.
func (e *Engine) updateGestures(now uint64) {
	for _, ts := range e.states {
		if ts.firstSeenTick != now || ts.grp != nil || ts.closedPending {
			continue
		}

		var partner *touchState
		for _, other := range e.states {
			if other == ts || other.closedPending {
				continue
			}
			// Only a touch still undecided (hasn't committed to a key or a
			// drag) can join a forming gesture — a key/mouse already active
			// is not a gesture participant, only a nearby coincidence.
			if other.key == KeyActive || other.key == MouseActive {
				continue
			}
			if other.grp != nil {
				if !other.grp.cancelled && !other.grp.resolved && now-other.grp.earliestOpen <= e.curParams.Tgesture {
					partner = other
					break
				}
				continue
			}
			if now-other.firstSeenTick <= e.curParams.Tgesture {
				partner = other
				break
			}
		}
		if partner == nil {
			continue
		}

		g := partner.grp
		if g == nil {
			if pg := e.pendingGroup; pg != nil && !pg.cancelled && !pg.resolved {
				// Another group is still unresolved on this side; this touch
				// stays independent.
				continue
			}
			e.nextGroupID++
			g = &group{id: e.nextGroupID, earliestOpen: partner.firstSeenTick}
			partner.grp = g
			partner.suppressed = true
			g.members = append(g.members, partner)
		}
		ts.grp = g
		ts.suppressed = true
		g.members = append(g.members, ts)
		e.pendingGroup = g
	}

	g := e.pendingGroup
	if g == nil || g.cancelled || g.resolved {
		return
	}
	for _, m := range g.members {
		if m.maxDisplacementSq > sq32(e.curParams.Dmove) {
			e.cancelGroup(g)
			return
		}
	}
}

// cancelGroup releases every member back to independent per-touch
// processing; their firstSeenTick is untouched, so Tstart/Ttap evaluation
// simply resumes from wherever elapsed time already carried it.
func (e *Engine) cancelGroup(g *group) {
	g.cancelled = true
	for _, m := range g.members {
		m.suppressed = false
		m.grp = nil
	}
}

// finalizeGroup is called once every member of g has closed. It classifies
// the group as a tap, a swipe, or neither, and emits a single Chord/gesture
// dispatch event for a recognized gesture. An unrecognized grouping (one
// that was neither a clean synchronized tap nor a consistent swipe) is
// silently swallowed — the member touches never individually dispatched
// anything while suppressed, so nothing is emitted at all for it (spec's
// Open Question (b) leaves this case's exact fallback unspecified).
func (e *Engine) finalizeGroup(g *group, now uint64) {
	g.resolved = true

	allTap := true
	for _, m := range g.members {
		dur := m.lastTick - m.firstSeenTick
		if dur > e.curParams.Ttap || m.maxDisplacementSq > sq32(e.curParams.Dmove) {
			allTap = false
			break
		}
	}
	if allTap {
		e.emitGesture(gestureName(len(g.members)))
		return
	}

	var sumDX, sumDY int64
	for _, m := range g.members {
		sumDX += int64(m.lastX) - int64(m.originX)
		sumDY += int64(m.lastY) - int64(m.originY)
	}
	n := int64(len(g.members))
	avgDX, avgDY := sumDX/n, sumDY/n
	if avgDX*avgDX+avgDY*avgDY > int64(sq32(e.curParams.Dswipe)) {
		e.emitGesture("swipe-" + swipeDirection(avgDX, avgDY))
	}
}

func gestureName(n int) string {
	switch n {
	case 2:
		return "2-finger-tap"
	case 3:
		return "3-finger-tap"
	default:
		return "n-finger-tap"
	}
}

func swipeDirection(dx, dy int64) string {
	if abs64(dx) >= abs64(dy) {
		if dx >= 0 {
			return "right"
		}
		return "left"
	}
	if dy >= 0 {
		return "down"
	}
	return "up"
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
