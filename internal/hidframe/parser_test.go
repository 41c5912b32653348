package hidframe

import (
	"testing"

	"github.com/glasstokey/glasstokey/internal/side"
)

func slot(flags byte, id byte, x, y uint16, pressure, phase byte) []byte {
	return []byte{
		flags, id,
		byte(x), byte(x >> 8),
		byte(y), byte(y >> 8),
		pressure, phase, 0x00,
	}
}

func buildReport(slots ...[]byte) []byte {
	buf := []byte{TouchReportID}
	for _, s := range slots {
		buf = append(buf, s...)
	}
	return buf
}

func TestParseShortBuffer(t *testing.T) {
	var out Frame
	err := Parse([]byte{TouchReportID, 0x01}, 1, side.Left, &out)
	if err == nil {
		t.Fatal("expected ShortBufferError")
	}
	if _, ok := err.(*ShortBufferError); !ok {
		t.Fatalf("wrong error type: %T", err)
	}
	if out.Count != 0 {
		t.Fatalf("Count should be reset to 0, got %d", out.Count)
	}
}

func TestParseSingleContact(t *testing.T) {
	buf := buildReport(
		slot(0x05, 0x02, 100, 200, 50, 1), // tip+confidence, id=2
		slot(0x00, 0x00, 0, 0, 0, 0),
		slot(0x00, 0x00, 0, 0, 0, 0),
		slot(0x00, 0x00, 0, 0, 0, 0),
		slot(0x00, 0x00, 0, 0, 0, 0),
	)

	var out Frame
	if err := Parse(buf, 42, side.Right, &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Count != 5 {
		t.Fatalf("expected 5 slots decoded, got %d", out.Count)
	}
	if out.ArrivalTick != 42 || out.Side != side.Right {
		t.Fatalf("frame metadata not set correctly")
	}
	c := out.Contacts[0]
	if !c.Tip || !c.Confidence {
		t.Fatalf("expected tip+confidence true, got %+v", c)
	}
	if c.RawID != 2 || c.X != 100 || c.Y != 200 || c.Pressure != 50 || c.Phase != 1 {
		t.Fatalf("unexpected contact fields: %+v", c)
	}
	for i := 1; i < 5; i++ {
		if out.Contacts[i].Tip {
			t.Fatalf("slot %d expected tip=false", i)
		}
	}
}

func TestParseStaleCountReset(t *testing.T) {
	buf := buildReport(
		slot(0x01, 0x01, 1, 1, 1, 0),
		slot(0x01, 0x02, 2, 2, 1, 0),
		slot(0x00, 0, 0, 0, 0, 0),
		slot(0x00, 0, 0, 0, 0, 0),
		slot(0x00, 0, 0, 0, 0, 0),
	)
	var out Frame
	out.Count = 9 // pretend a previous, longer frame populated this
	if err := Parse(buf, 1, side.Left, &out); err != nil {
		t.Fatal(err)
	}
	if out.Count != 5 {
		t.Fatalf("Count must reflect the current buffer, got %d", out.Count)
	}
}
