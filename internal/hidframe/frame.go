// Package hidframe decodes raw HID touch report buffers into Frames of
// ContactFrames. It performs no interpretation beyond the wire layout —
// id normalization and contact filtering are the decoder package's job.
package hidframe

import "github.com/glasstokey/glasstokey/internal/side"

// MaxContacts is the largest number of simultaneous contacts GlassToKey
// tracks per frame. Current devices report at most 5; the array is sized
// to the spec's stated upper bound of 10 so a firmware with more slots
// doesn't require a layout change.
const MaxContacts = 10

// slotSize is the byte width of one PTP touch slot (flags, id, x, y,
// pressure, scan-time/phase).
const slotSize = 9

// MinReportLen is the shortest buffer Parse will accept: a report-id byte
// followed by 5 populated slots.
const MinReportLen = 1 + 5*slotSize

// TouchReportID is the report id of interest on the inbound byte stream;
// other report ids are not touch data and should not reach Parse.
const TouchReportID = 0x05

// ContactFrame is one immutable slot of a parsed report.
type ContactFrame struct {
	RawID      uint32
	X, Y       uint16
	Tip        bool
	Confidence bool
	Phase      uint8
	Pressure   uint8
}

// Frame is a decoded report: a shared arrival timestamp, a side tag, and a
// bounded, caller-owned set of ContactFrames. Count is the number of valid
// entries in Contacts; entries beyond Count are stale and must be ignored.
type Frame struct {
	ArrivalTick uint64 // monotonic, high-resolution (ns)
	Side        side.Side
	Contacts    [MaxContacts]ContactFrame
	Count       int
}

// ShortBufferError is returned by Parse when buf is too small to hold a
// complete touch report.
type ShortBufferError struct {
	Got, Want int
}

func (e *ShortBufferError) Error() string {
	return "hidframe: short buffer"
}
