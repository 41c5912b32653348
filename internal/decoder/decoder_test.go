package decoder

import (
	"testing"

	"github.com/glasstokey/glasstokey/internal/hidframe"
)

func mkFrame(contacts ...hidframe.ContactFrame) *hidframe.Frame {
	var f hidframe.Frame
	f.Count = len(contacts)
	for i, c := range contacts {
		f.Contacts[i] = c
	}
	return &f
}

func TestLegacyFiltersNonTip(t *testing.T) {
	sel := NewSelector(HintLegacy, 0)
	f := mkFrame(
		hidframe.ContactFrame{RawID: 1, Tip: true, Confidence: true, X: 10, Y: 10},
		hidframe.ContactFrame{RawID: 2, Tip: false, Confidence: true, X: 20, Y: 20},
	)
	var out DecodedFrame
	sel.Decode(f, &out)
	if out.Count != 1 {
		t.Fatalf("expected 1 contact after filtering, got %d", out.Count)
	}
	if out.Contacts[0].ID != 1 {
		t.Fatalf("expected raw id preserved on legacy profile, got %d", out.Contacts[0].ID)
	}
}

func TestLegacySuspiciousIDsNormalizeToSlotIndex(t *testing.T) {
	sel := NewSelector(HintLegacy, 0)
	f := mkFrame(
		hidframe.ContactFrame{RawID: 300, Tip: true, Confidence: true}, // >0xFF, suspicious
		hidframe.ContactFrame{RawID: 1, Tip: true, Confidence: true},
	)
	var out DecodedFrame
	sel.Decode(f, &out)
	if out.Count != 2 {
		t.Fatalf("expected both contacts, got %d", out.Count)
	}
	if out.Contacts[0].ID != 0 || out.Contacts[1].ID != 1 {
		t.Fatalf("expected slot-index normalized ids [0 1], got [%d %d]", out.Contacts[0].ID, out.Contacts[1].ID)
	}
}

func TestLegacyNonMonotonicNormalizes(t *testing.T) {
	sel := NewSelector(HintLegacy, 0)
	f := mkFrame(
		hidframe.ContactFrame{RawID: 5, Tip: true, Confidence: true},
		hidframe.ContactFrame{RawID: 3, Tip: true, Confidence: true}, // decreasing -> suspicious
	)
	var out DecodedFrame
	sel.Decode(f, &out)
	if out.Contacts[0].ID != 0 || out.Contacts[1].ID != 1 {
		t.Fatalf("expected normalization on non-monotonic ids, got [%d %d]", out.Contacts[0].ID, out.Contacts[1].ID)
	}
}

func TestOfficialForcesTipAndNormalizesID(t *testing.T) {
	sel := NewSelector(HintOfficial, 0)
	f := mkFrame(
		hidframe.ContactFrame{RawID: 77, Tip: false, Confidence: false, X: 1000, Y: 1000},
	)
	var out DecodedFrame
	sel.Decode(f, &out)
	if out.Count != 1 {
		t.Fatalf("expected populated slot kept even with tip=false, got %d", out.Count)
	}
	if out.Contacts[0].ID != 0 {
		t.Fatalf("official profile must normalize id to slot index, got %d", out.Contacts[0].ID)
	}
}

func TestOfficialSkipsTrulyEmptySlot(t *testing.T) {
	sel := NewSelector(HintOfficial, 0)
	f := mkFrame(hidframe.ContactFrame{})
	var out DecodedFrame
	sel.Decode(f, &out)
	if out.Count != 0 {
		t.Fatalf("expected all-zero slot skipped, got %d contacts", out.Count)
	}
}

func TestAutoHintUsesUsagePage(t *testing.T) {
	sel := NewSelector(HintAuto, 0xFF00)
	if sel.Profile() != ProfileOfficial {
		t.Fatalf("expected official profile for usage page 0xFF00")
	}
	sel2 := NewSelector(HintAuto, 0x0D)
	if sel2.Profile() != ProfileLegacy {
		t.Fatalf("expected legacy profile as auto default")
	}
}
