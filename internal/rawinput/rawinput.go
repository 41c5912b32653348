// Package rawinput implements the raw-input thread (spec §5): it owns
// nothing but a bounded per-side queue, handing byte buffers of any length
// to the dispatch pump tagged with side and arrival monotonic timestamp. Two Source implementations exist: hidraw (a live device-node
// reader) and replay (a capture-file reader for the §8 round-trip test).
package rawinput

import (
	"time"

	"github.com/glasstokey/glasstokey/internal/side"
)

// MinReportLen mirrors hidframe.MinReportLen. Neither Source implementation
// checks buffer length against it; short buffers reach the dispatch pump,
// where hidframe.Parse rejects them.
const MinReportLen = 46

// Report is one raw HID buffer tagged with its origin side and arrival
// monotonic timestamp (nanoseconds, spec §6 inbound interface).
type Report struct {
	Side        side.Side
	Buf         []byte
	ArrivalTick uint64
	FrameNumber uint64
}

// Source is anything that produces a stream of raw HID reports for the
// dispatch pump to drain. Close stops production and unblocks Reports.
type Source interface {
	// Reports returns the channel the dispatch pump receives from. Closed
	// when the source is exhausted or Close is called.
	Reports() <-chan Report
	Close() error
}

// clockNow returns a monotonic nanosecond timestamp compatible with
// engine.Params/ArrivalTick's unit (time.Duration nanoseconds since an
// arbitrary epoch — only deltas matter to the intent engine).
func clockNow(start time.Time) uint64 {
	return uint64(time.Since(start))
}
