package session

import "github.com/glasstokey/glasstokey/internal/decoder"

// Step maps frame's decoded contacts onto stable sessions using the
// four-pass algorithm in spec §4.S:
//
//  1. raw-id exact match
//  2. nearest-position match within the configured threshold
//  3. open a new session from a free pool slot
//  4. release every session that stays unmatched
//
// plus a Tstale sweep at frame start that force-closes sessions the device
// has stopped reporting even without an explicit departure.
//
// The returned slices alias Pool-owned buffers and are only valid until
// the next call to Step.
func (p *Pool) Step(frame *decoder.DecodedFrame, frameNumber uint64) ([]BoundContact, []ClosedSession) {
	p.boundBuf = p.boundBuf[:0]
	p.closedBuf = p.closedBuf[:0]

	thresholdSq := p.thresholdSq.Load()
	staleTicks := p.staleTicks.Load()

	for i := range p.matchedSession {
		p.matchedSession[i] = false
	}
	if cap(p.matchedContact) < frame.Count {
		p.matchedContact = make([]bool, frame.Count)
	}
	p.matchedContact = p.matchedContact[:frame.Count]
	for i := range p.matchedContact {
		p.matchedContact[i] = false
	}

	// Step 0 — stale sweep. A session the device stopped reporting is
	// force-closed even if no contact ever explicitly vacated its slot.
	if staleTicks > 0 {
		for i := range p.sessions {
			s := &p.sessions[i]
			if !s.Active {
				continue
			}
			if frame.ArrivalTick > s.LastSeenTick && frame.ArrivalTick-s.LastSeenTick > staleTicks {
				p.closeSession(i)
			}
		}
	}

	// Pass 1 — raw-id exact match. Only unmatched, active sessions are
	// eligible; a session already bound this pass is excluded from later
	// passes by matchedSession.
	for ci := 0; ci < frame.Count; ci++ {
		c := frame.Contacts[ci]
		for si := range p.sessions {
			s := &p.sessions[si]
			if !s.Active || p.matchedSession[si] {
				continue
			}
			if s.RawIDLast == c.ID {
				p.bind(si, ci, c, frameNumber, frame.ArrivalTick)
				break
			}
		}
	}

	// Pass 2 — nearest-position match among still-unbound contacts and
	// still-unmatched sessions. Ties broken by ascending contact index
	// then ascending session slot index (deterministic iteration order
	// below already guarantees this).
	for ci := 0; ci < frame.Count; ci++ {
		if p.matchedContact[ci] {
			continue
		}
		c := frame.Contacts[ci]

		best := -1
		var bestDistSq uint32
		for si := range p.sessions {
			s := &p.sessions[si]
			if !s.Active || p.matchedSession[si] {
				continue
			}
			d := distSq(c.X, c.Y, s.X, s.Y)
			if best == -1 || d < bestDistSq {
				best = si
				bestDistSq = d
			}
		}
		if best != -1 && bestDistSq <= thresholdSq {
			p.bind(best, ci, c, frameNumber, frame.ArrivalTick)
		}
	}

	// Pass 3 — open a new session for every contact still unbound.
	for ci := 0; ci < frame.Count; ci++ {
		if p.matchedContact[ci] {
			continue
		}
		c := frame.Contacts[ci]

		slot := p.freeSlot()
		if slot == -1 {
			// SessionPoolExhausted — impossible under invariants; force-
			// release the oldest active session and retry once.
			slot = p.forceReleaseOldest()
		}
		s := &p.sessions[slot]
		*s = ContactSession{
			Active:        true,
			StableID:      p.ids.Next(),
			RawIDLast:     c.ID,
			X:             c.X,
			Y:             c.Y,
			LastSeenFrame: frameNumber,
			LastSeenTick:  frame.ArrivalTick,
			FirstSeenTick: frame.ArrivalTick,
		}
		p.matchedSession[slot] = true
		p.matchedContact[ci] = true
		p.boundBuf = append(p.boundBuf, BoundContact{
			StableID:     s.StableID,
			X:            c.X,
			Y:            c.Y,
			ContactIndex: ci,
			Opened:       true,
		})
	}

	// Pass 4 — release every session that remains unmatched this frame.
	for si := range p.sessions {
		s := &p.sessions[si]
		if s.Active && !p.matchedSession[si] {
			p.closeSession(si)
		}
	}

	return p.boundBuf, p.closedBuf
}

// bind records a session/contact match and appends the binding to the
// frame's output, shared by passes 1 and 2.
func (p *Pool) bind(si, ci int, c decoder.Contact, frameNumber uint64, tick uint64) {
	s := &p.sessions[si]
	s.RawIDLast = c.ID
	s.X = c.X
	s.Y = c.Y
	s.LastSeenFrame = frameNumber
	s.LastSeenTick = tick
	p.matchedSession[si] = true
	p.matchedContact[ci] = true
	p.boundBuf = append(p.boundBuf, BoundContact{
		StableID:     s.StableID,
		X:            c.X,
		Y:            c.Y,
		ContactIndex: ci,
	})
}

func (p *Pool) closeSession(si int) {
	s := &p.sessions[si]
	p.closedBuf = append(p.closedBuf, ClosedSession{StableID: s.StableID})
	s.Active = false
}

func (p *Pool) freeSlot() int {
	for i := range p.sessions {
		if !p.sessions[i].Active {
			return i
		}
	}
	return -1
}

// forceReleaseOldest frees the session with the smallest FirstSeenTick and
// returns its slot index. Only reachable if the pool capacity is smaller
// than the device's declared max contacts, which spec treats as a
// programming error (SessionPoolExhausted) rather than a normal edge case.
func (p *Pool) forceReleaseOldest() int {
	oldest := -1
	var oldestTick uint64
	for i := range p.sessions {
		if !p.sessions[i].Active {
			continue
		}
		if oldest == -1 || p.sessions[i].FirstSeenTick < oldestTick {
			oldest = i
			oldestTick = p.sessions[i].FirstSeenTick
		}
	}
	if oldest == -1 {
		oldest = 0
	}
	p.closeSession(oldest)
	return oldest
}

func distSq(x1, y1, x2, y2 uint16) uint32 {
	dx := int32(x1) - int32(x2)
	dy := int32(y1) - int32(y2)
	return uint32(dx*dx + dy*dy)
}
