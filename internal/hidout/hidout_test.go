package hidout

import "testing"

func TestCharToUsage(t *testing.T) {
	cases := map[rune]uint16{
		'a': 0x04, 'z': 0x1d,
		'A': 0x04, 'Z': 0x1d,
		'1': 0x1e, '9': 0x26, '0': 0x27,
		'!': 0,
	}
	for r, want := range cases {
		if got := charToUsage(r); got != want {
			t.Errorf("charToUsage(%q) = 0x%02x, want 0x%02x", r, got, want)
		}
	}
}

func TestClampRel(t *testing.T) {
	if got := clampRel(500); got != byte(int8(127)) {
		t.Errorf("clampRel(500) = %d, want 127", int8(got))
	}
	if got := clampRel(-500); got != byte(int8(-127)) {
		t.Errorf("clampRel(-500) = %d, want -127", int8(got))
	}
	if got := clampRel(10); got != byte(int8(10)) {
		t.Errorf("clampRel(10) = %d, want 10", int8(got))
	}
}

func TestHeldCodeRollover(t *testing.T) {
	var held []uint16
	for i := uint16(1); i <= 8; i++ {
		if !containsCode(held, i) {
			if len(held) >= 6 {
				held = held[1:]
			}
			held = append(held, i)
		}
	}
	if len(held) != 6 {
		t.Fatalf("expected 6-key rollover cap, got %d keys: %v", len(held), held)
	}
	if held[0] != 3 {
		t.Fatalf("expected oldest keys to have been dropped, got %v", held)
	}

	held = removeCode(held, 5)
	if containsCode(held, 5) {
		t.Fatalf("expected 5 removed, got %v", held)
	}
}
