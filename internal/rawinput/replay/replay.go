// Package replay reads a capture file — a recorded sequence of
// (side, monotonic_ns, length, bytes) records — and feeds it to the
// dispatch pump, either at the recorded relative timing or as fast as
// possible. It exists to drive the §8 round-trip property test: record a
// live session once, then replay it deterministically without hardware.
package replay

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/glasstokey/glasstokey/internal/rawinput"
	"github.com/glasstokey/glasstokey/internal/side"
)

// Record is one capture-file entry.
type Record struct {
	Side          side.Side
	ArrivalTickNS uint64
	Buf           []byte
}

// WriteRecord appends one record to w in the wire format Reader expects:
// side(1) | arrival_ns(8 LE) | length(4 LE) | bytes.
func WriteRecord(w io.Writer, rec Record) error {
	var header [13]byte
	header[0] = byte(rec.Side)
	binary.LittleEndian.PutUint64(header[1:9], rec.ArrivalTickNS)
	binary.LittleEndian.PutUint32(header[9:13], uint32(len(rec.Buf)))
	if _, err := w.Write(header[:]); err != nil {
		return err
	}
	_, err := w.Write(rec.Buf)
	return err
}

// Reader implements rawinput.Source by replaying a capture file opened
// from path.
type Reader struct {
	f   *os.File
	r   *bufio.Reader
	out chan rawinput.Report

	// RealTime replays at the recorded relative timing when true; when
	// false (the default) records are fed as fast as the channel accepts
	// them, for deterministic tests.
	RealTime bool

	frameNumber uint64
	closed      chan struct{}
}

// Open opens the capture file at path. realTime replays at the recorded
// relative timing when true; pass false to feed records as fast as the
// channel accepts them. Accepting it here (rather than letting the
// caller set the RealTime field after Open returns) avoids a data race
// against the reader goroutine Open starts.
func Open(path string, queueDepth int, realTime bool) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r := &Reader{
		f:        f,
		r:        bufio.NewReader(f),
		out:      make(chan rawinput.Report, queueDepth),
		closed:   make(chan struct{}),
		RealTime: realTime,
	}
	go r.loop()
	return r, nil
}

func (r *Reader) loop() {
	defer close(r.out)

	var prevTick uint64
	first := true

	for {
		var header [13]byte
		if _, err := io.ReadFull(r.r, header[:]); err != nil {
			return
		}
		s := side.Side(header[0])
		tick := binary.LittleEndian.Uint64(header[1:9])
		length := binary.LittleEndian.Uint32(header[9:13])

		buf := make([]byte, length)
		if _, err := io.ReadFull(r.r, buf); err != nil {
			return
		}

		if r.RealTime {
			if first {
				first = false
			} else if tick > prevTick {
				time.Sleep(time.Duration(tick - prevTick))
			}
			prevTick = tick
		}

		r.frameNumber++
		report := rawinput.Report{
			Side:        s,
			Buf:         buf,
			ArrivalTick: tick,
			FrameNumber: r.frameNumber,
		}

		select {
		case r.out <- report:
		case <-r.closed:
			return
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

// ReadAll reads every record from path without replaying through a
// channel — used by the round-trip property test to compare the full
// recorded input against the full dispatch output.
func ReadAll(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	br := bufio.NewReader(f)
	var records []Record
	for {
		var header [13]byte
		if _, err := io.ReadFull(br, header[:]); err != nil {
			if err == io.EOF {
				return records, nil
			}
			return nil, fmt.Errorf("read record header: %w", err)
		}
		s := side.Side(header[0])
		tick := binary.LittleEndian.Uint64(header[1:9])
		length := binary.LittleEndian.Uint32(header[9:13])

		buf := make([]byte, length)
		if _, err := io.ReadFull(br, buf); err != nil {
			return nil, fmt.Errorf("read record body: %w", err)
		}
		records = append(records, Record{Side: s, ArrivalTickNS: tick, Buf: buf})
	}
}
