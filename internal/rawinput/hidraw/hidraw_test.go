package hidraw

import (
	"os"
	"testing"
	"time"

	"github.com/glasstokey/glasstokey/internal/side"
)

func TestOpenFeedsReportsFromDeviceNode(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "hidraw-*")
	if err != nil {
		t.Fatalf("create temp device node: %v", err)
	}
	payload := make([]byte, 64)
	payload[0] = 0x01
	if _, err := f.Write(payload); err != nil {
		t.Fatalf("write payload: %v", err)
	}
	path := f.Name()
	f.Close()

	r, err := Open(path, side.Left, 4)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	select {
	case rep, ok := <-r.Reports():
		if !ok {
			t.Fatal("reports channel closed before delivering a report")
		}
		if rep.Side != side.Left {
			t.Errorf("side = %v, want Left", rep.Side)
		}
		if len(rep.Buf) != len(payload) {
			t.Errorf("len(Buf) = %d, want %d", len(rep.Buf), len(payload))
		}
		if rep.FrameNumber != 1 {
			t.Errorf("FrameNumber = %d, want 1", rep.FrameNumber)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for report")
	}
}

func TestCloseStopsReaderWithoutPanicking(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "hidraw-*")
	if err != nil {
		t.Fatalf("create temp device node: %v", err)
	}
	path := f.Name()
	f.Close()

	r, err := Open(path, side.Right, 4)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// A reader over an already-exhausted (EOF, zero-length) file closes
	// its own channel once the read loop observes EOF.
	select {
	case _, ok := <-r.Reports():
		if ok {
			t.Fatal("expected no reports from an empty device node")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the reports channel to close")
	}
}
