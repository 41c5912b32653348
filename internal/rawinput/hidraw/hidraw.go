// Package hidraw reads HID report buffers (one report per read) from a Linux
// hidraw device node (/dev/hidrawN) and feeds them to the dispatch pump
// through a bounded, drop-oldest channel — the raw-input thread's "lock-free
// queue" realized as a single-producer/single-consumer buffered channel
// (spec §5).
package hidraw

import (
	"io"
	"log"
	"os"
	"time"

	"github.com/glasstokey/glasstokey/internal/rawinput"
	"github.com/glasstokey/glasstokey/internal/side"
)

// MaxReportLen bounds one read — comfortably above any touch report this
// device family emits.
const MaxReportLen = 256

// Reader implements rawinput.Source over a single device node. One Reader
// per physical side.
type Reader struct {
	f     *os.File
	side  side.Side
	start time.Time

	out    chan rawinput.Report
	closed chan struct{}

	frameNumber uint64
}

// Open opens the device node at path and starts reading in the background.
// Reads begin immediately; the caller drains Reports().
func Open(path string, s side.Side, queueDepth int) (*Reader, error) {
	f, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return nil, err
	}
	r := &Reader{
		f:      f,
		side:   s,
		start:  time.Now(),
		out:    make(chan rawinput.Report, queueDepth),
		closed: make(chan struct{}),
	}
	go r.loop()
	return r, nil
}

func (r *Reader) loop() {
	defer close(r.out)
	buf := make([]byte, MaxReportLen)
	for {
		n, err := r.f.Read(buf)
		if err != nil {
			if err != io.EOF {
				log.Printf("[hidraw] read error on %s side: %v", r.side, err)
			}
			return
		}
		if n == 0 {
			continue
		}

		r.frameNumber++
		report := rawinput.Report{
			Side:        r.side,
			Buf:         append([]byte(nil), buf[:n]...),
			ArrivalTick: uint64(time.Since(r.start)),
			FrameNumber: r.frameNumber,
		}

		select {
		case r.out <- report:
		default:
			// Queue full: drop the oldest queued report to make room
			// rather than block the device read loop (spec §5 sanctions
			// report-buffer drops on backpressure).
			select {
			case <-r.out:
			default:
			}
			select {
			case r.out <- report:
			default:
			}
		}

		select {
		case <-r.closed:
			return
		default:
		}
	}
}

func (r *Reader) Reports() <-chan rawinput.Report { return r.out }

func (r *Reader) Close() error {
	select {
	case <-r.closed:
	default:
		close(r.closed)
	}
	return r.f.Close()
}
