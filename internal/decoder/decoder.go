// Package decoder chooses between the official and legacy PTP decoding
// profiles and normalizes contact id assignment before a frame reaches the
// session tracker. It is the only component that filters contacts (R never
// rejects any).
package decoder

import (
	"github.com/glasstokey/glasstokey/internal/hidframe"
)

// Profile selects how a device's raw slot fields are interpreted.
type Profile int

const (
	// ProfileLegacy trusts the raw parser fields as-is, except that
	// suspicious raw ids are normalized to the slot index.
	ProfileLegacy Profile = iota
	// ProfileOfficial rescales x/y by fixed factors and always treats a
	// populated slot as tip+confidence true; raw id is never trusted and
	// is always normalized to the slot index.
	ProfileOfficial
)

// Hint is the device-reported decoding hint passed in at init (spec §6,
// "Decoder profile hint per side").
type Hint int

const (
	HintAuto Hint = iota
	HintOfficial
	HintLegacy
)

// Official rescale factors (device-unit full scale for a raw coordinate
// range of 1<<16), fixed per spec §4.D.
const (
	officialScaleX = 14720
	officialScaleY = 10240
)

// legacyIDSuspiciousMax is the threshold above which a raw id is considered
// "packed" rather than a genuine small contact id.
const legacyIDSuspiciousMax = 0xFF

// Contact is a decoder-normalized, tip-true contact ready for the session
// tracker. Unlike hidframe.ContactFrame, ID has already been normalized
// and non-tip/non-confident slots have been filtered out.
type Contact struct {
	ID   uint32
	X, Y uint16
	Pressure uint8
	Phase    uint8
}

// DecodedFrame mirrors hidframe.Frame but carries only filtered,
// normalized contacts.
type DecodedFrame struct {
	ArrivalTick uint64
	Contacts    [hidframe.MaxContacts]Contact
	Count       int
}

// Selector chooses and remembers the profile for one physical side. The
// profile is chosen once per device at construction and never changes —
// §4.D: "chosen once per device via hints passed in from the runtime host."
type Selector struct {
	profile Profile
}

// NewSelector resolves hint (and, for HintAuto, the device's reported USB
// HID usage page) into a concrete Profile.
func NewSelector(hint Hint, usagePage uint16) *Selector {
	p := ProfileLegacy
	switch hint {
	case HintOfficial:
		p = ProfileOfficial
	case HintLegacy:
		p = ProfileLegacy
	case HintAuto:
		if usagePage == 0xFF00 {
			p = ProfileOfficial
		}
	}
	return &Selector{profile: p}
}

// Profile returns the selector's fixed decoding profile.
func (s *Selector) Profile() Profile { return s.profile }

// Decode filters and normalizes f's contacts according to s's profile,
// writing into out with zero allocation.
func (s *Selector) Decode(f *hidframe.Frame, out *DecodedFrame) {
	out.ArrivalTick = f.ArrivalTick
	out.Count = 0

	switch s.profile {
	case ProfileOfficial:
		s.decodeOfficial(f, out)
	default:
		s.decodeLegacy(f, out)
	}
}

func (s *Selector) decodeOfficial(f *hidframe.Frame, out *DecodedFrame) {
	for i := 0; i < f.Count; i++ {
		c := f.Contacts[i]
		if c.X == 0 && c.Y == 0 && c.RawID == 0 && c.Pressure == 0 && c.Phase == 0 {
			// An all-zero slot on an official-profile device is an
			// unpopulated slot, not a real contact at the origin.
			continue
		}
		out.Contacts[out.Count] = Contact{
			ID:       uint32(i), // official ids are never trustworthy
			X:        rescale(c.X, officialScaleX),
			Y:        rescale(c.Y, officialScaleY),
			Pressure: c.Pressure,
			Phase:    c.Phase,
		}
		out.Count++
	}
}

func (s *Selector) decodeLegacy(f *hidframe.Frame, out *DecodedFrame) {
	suspicious := legacyIDsSuspicious(f)
	for i := 0; i < f.Count; i++ {
		c := f.Contacts[i]
		if !c.Tip || !c.Confidence {
			continue
		}
		id := c.RawID
		if suspicious {
			id = uint32(i)
		}
		out.Contacts[out.Count] = Contact{
			ID:       id,
			X:        c.X,
			Y:        c.Y,
			Pressure: c.Pressure,
			Phase:    c.Phase,
		}
		out.Count++
	}
}

// legacyIDsSuspicious reports whether the raw ids in this frame look
// packed (exceed 0xFF) or non-monotonic across populated, tip-true slots —
// spec §4.D's trigger for id normalization on the legacy profile.
func legacyIDsSuspicious(f *hidframe.Frame) bool {
	var last uint32
	seenAny := false
	for i := 0; i < f.Count; i++ {
		c := f.Contacts[i]
		if !c.Tip || !c.Confidence {
			continue
		}
		if c.RawID > legacyIDSuspiciousMax {
			return true
		}
		if seenAny && c.RawID <= last {
			return true
		}
		last = c.RawID
		seenAny = true
	}
	return false
}

// rescale maps a raw official-profile coordinate into device units using
// the fixed factor. The factor is a numerator over 1<<16, so integer
// inputs in [0,1<<16) map into [0,factor) without floats.
func rescale(v uint16, factor uint32) uint16 {
	scaled := (uint32(v) * factor) >> 16
	if scaled > 0xFFFF {
		scaled = 0xFFFF
	}
	return uint16(scaled)
}
