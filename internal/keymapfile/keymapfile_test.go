package keymapfile

import (
	"strings"
	"testing"

	"github.com/glasstokey/glasstokey/internal/layer"
	"github.com/glasstokey/glasstokey/internal/side"
)

func TestParseGridAndCustomLines(t *testing.T) {
	src := `
# comment lines and blanks are ignored
qwerty right 0 0 0 CHAR:k
qwerty right 0 0 1 KC:enter
qwerty right 1 0 0 MO:1
qwerty right 0 CUSTOM:mute:0.8:0.0:0.2:0.2:MOUSE:1
qwerty right 0 1 0 NOOP
`
	km, err := Parse(strings.NewReader(src), 6, 3)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if km.LayoutName != "qwerty" {
		t.Fatalf("expected layout name qwerty, got %q", km.LayoutName)
	}

	stack := layer.NewStack()
	down := layer.Resolve(km, side.Right, 0.05, 0.05, stack)
	if down.Kind != layer.Char || down.Char != 'k' {
		t.Fatalf("expected CHAR 'k' at (0,0), got %+v", down)
	}

	mute := layer.Resolve(km, side.Right, 0.85, 0.05, stack)
	if mute.Kind != layer.Mouse || mute.Button != 1 {
		t.Fatalf("expected MOUSE button 1 for the custom mute button, got %+v", mute)
	}
}

func TestParseRejectsUnknownBindingKind(t *testing.T) {
	src := "qwerty right 0 0 0 BOGUS:x\n"
	if _, err := Parse(strings.NewReader(src), 6, 3); err == nil {
		t.Fatalf("expected an error for an unknown binding kind")
	}
}

func TestParseRejectsMismatchedLayoutName(t *testing.T) {
	src := "qwerty right 0 0 0 CHAR:k\nother right 0 0 1 CHAR:l\n"
	if _, err := Parse(strings.NewReader(src), 6, 3); err == nil {
		t.Fatalf("expected an error for a mismatched layout name")
	}
}
