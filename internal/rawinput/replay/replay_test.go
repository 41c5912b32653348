package replay

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/glasstokey/glasstokey/internal/side"
)

func TestWriteRecordThenReadAllRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "capture.bin")

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	want := []Record{
		{Side: side.Left, ArrivalTickNS: 0, Buf: []byte{0x05, 1, 2, 3}},
		{Side: side.Right, ArrivalTickNS: 1_500_000, Buf: []byte{0x05, 4, 5, 6, 7}},
	}
	for _, rec := range want {
		if err := WriteRecord(f, rec); err != nil {
			t.Fatalf("WriteRecord: %v", err)
		}
	}
	f.Close()

	got, err := ReadAll(path)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d records, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i].Side != want[i].Side || got[i].ArrivalTickNS != want[i].ArrivalTickNS || !bytes.Equal(got[i].Buf, want[i].Buf) {
			t.Fatalf("record %d mismatch: got %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestReaderFeedsRecordsInOrder(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "capture.bin")

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	_ = WriteRecord(f, Record{Side: side.Left, ArrivalTickNS: 0, Buf: []byte{0xAA}})
	_ = WriteRecord(f, Record{Side: side.Left, ArrivalTickNS: 10, Buf: []byte{0xBB}})
	f.Close()

	r, err := Open(path, 8, false)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	first := <-r.Reports()
	if first.Buf[0] != 0xAA {
		t.Fatalf("expected first record 0xAA, got %v", first.Buf)
	}
	second := <-r.Reports()
	if second.Buf[0] != 0xBB {
		t.Fatalf("expected second record 0xBB, got %v", second.Buf)
	}
	if _, ok := <-r.Reports(); ok {
		t.Fatalf("expected the channel to close after the last record")
	}
}
