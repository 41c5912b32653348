package pressure

import "testing"

func TestForcedHintDecidesImmediately(t *testing.T) {
	p := NewProbe(true)
	if p.Decision() != Unsupported {
		t.Fatalf("expected forced Unsupported, got %v", p.Decision())
	}
	p.Observe(50) // should be a no-op
	if p.Decision() != Unsupported {
		t.Fatalf("forced decision must not change on Observe")
	}
}

func TestEarlyDecisionSupported(t *testing.T) {
	p := NewProbe(false)
	// Alternate small steps so deltas stay below the large-jump threshold,
	// and keep values non-zero.
	vals := []uint8{10, 12, 14, 16, 18, 20, 22, 24, 26, 28, 30, 32, 34, 36, 38, 40}
	for _, v := range vals {
		p.Observe(v)
	}
	if p.Decision() != Supported {
		t.Fatalf("expected early Supported decision, got %v", p.Decision())
	}
}

func TestEarlyDecisionUnsupported(t *testing.T) {
	p := NewProbe(false)
	vals := []uint8{1, 60, 2, 61, 3, 62, 4, 63, 5, 61, 6, 60, 7, 59, 8, 58}
	for _, v := range vals {
		p.Observe(v)
	}
	if p.Decision() != Unsupported {
		t.Fatalf("expected early Unsupported decision from high jump ratio, got %v", p.Decision())
	}
}

func TestAllZeroIsUnsupportedAt40(t *testing.T) {
	p := NewProbe(false)
	for i := 0; i < 40; i++ {
		p.Observe(0)
	}
	if p.Decision() != Unsupported {
		t.Fatalf("expected Unsupported for all-zero samples, got %v", p.Decision())
	}
}

func TestMaxProbeDecides(t *testing.T) {
	p := NewProbe(false)
	// 40 noisy-but-inconclusive samples (a 0,40,40 cycle keeps the jump
	// ratio at about two thirds, between the supported and unsupported
	// bounds at both 16 and 40), then enough smooth samples to resolve by
	// 120.
	for i := 0; i < 40; i++ {
		if i%3 == 0 {
			p.Observe(0)
		} else {
			p.Observe(40)
		}
	}
	if p.Decision() != Unknown {
		t.Fatalf("expected still undecided at 40 oscillating samples, got %v", p.Decision())
	}
	for i := 0; i < 80; i++ {
		p.Observe(uint8(20 + i%3))
	}
	if p.Decision() == Unknown {
		t.Fatalf("expected a decision by 120 samples")
	}
}
