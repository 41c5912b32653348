// Package keymapfile parses the spec §6 keymap text format into an
// immutable layer.Keymap the core consumes read-only. Parsing — and any
// validation of the input file — is entirely a host-side concern; the core
// itself never sees the text format.
package keymapfile

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/glasstokey/glasstokey/internal/layer"
	"github.com/glasstokey/glasstokey/internal/side"
)

// Load reads a keymap file from path and parses it against a uniform
// rows×cols grid layout.
func Load(path string, rows, cols int) (*layer.Keymap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open keymap: %w", err)
	}
	defer f.Close()
	return Parse(f, rows, cols)
}

// Parse reads the text format from r. rows/cols describe the uniform grid
// geometry both sides share — the format itself carries no geometry, only
// (row,col) indices into it (spec §6).
func Parse(r io.Reader, rows, cols int) (*layer.Keymap, error) {
	layout := layer.UniformGrid(rows, cols)

	var builder *layer.Builder
	var layoutName string

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 2 {
			return nil, fmt.Errorf("keymap line %d: too few fields", lineNo)
		}
		name := fields[0]
		if builder == nil {
			layoutName = name
			builder = layer.NewBuilder(layoutName)
		} else if name != layoutName {
			return nil, fmt.Errorf("keymap line %d: layout name %q does not match %q", lineNo, name, layoutName)
		}

		if len(fields) >= 4 && strings.HasPrefix(fields[3], "CUSTOM:") {
			if err := parseCustomLine(builder, fields, lineNo); err != nil {
				return nil, err
			}
			continue
		}

		if err := parseGridLine(builder, layout, fields, lineNo); err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read keymap: %w", err)
	}
	if builder == nil {
		return nil, fmt.Errorf("keymap file contained no bindings")
	}
	return builder.Build(), nil
}

// parseGridLine handles "layout_name side layer row col binding_spec".
func parseGridLine(b *layer.Builder, layout *layer.Layout, fields []string, lineNo int) error {
	if len(fields) != 6 {
		return fmt.Errorf("keymap line %d: grid entry wants 6 fields, got %d", lineNo, len(fields))
	}
	s, err := parseSide(fields[1])
	if err != nil {
		return fmt.Errorf("keymap line %d: %w", lineNo, err)
	}
	l, err := strconv.Atoi(fields[2])
	if err != nil {
		return fmt.Errorf("keymap line %d: bad layer %q: %w", lineNo, fields[2], err)
	}
	row, err := strconv.Atoi(fields[3])
	if err != nil {
		return fmt.Errorf("keymap line %d: bad row %q: %w", lineNo, fields[3], err)
	}
	col, err := strconv.Atoi(fields[4])
	if err != nil {
		return fmt.Errorf("keymap line %d: bad col %q: %w", lineNo, fields[4], err)
	}
	binding, err := parseBindingSpec(fields[5])
	if err != nil {
		return fmt.Errorf("keymap line %d: %w", lineNo, err)
	}
	if !b.AddGrid(layout, s, l, row, col, binding) {
		return fmt.Errorf("keymap line %d: no layout cell at (%s,%d,%d)", lineNo, s, row, col)
	}
	return nil
}

// parseCustomLine handles "layout_name side layer CUSTOM:id:x:y:w:h:binding_spec".
func parseCustomLine(b *layer.Builder, fields []string, lineNo int) error {
	if len(fields) != 4 {
		return fmt.Errorf("keymap line %d: custom entry wants 4 fields, got %d", lineNo, len(fields))
	}
	s, err := parseSide(fields[1])
	if err != nil {
		return fmt.Errorf("keymap line %d: %w", lineNo, err)
	}
	l, err := strconv.Atoi(fields[2])
	if err != nil {
		return fmt.Errorf("keymap line %d: bad layer %q: %w", lineNo, fields[2], err)
	}

	parts := strings.SplitN(fields[3], ":", 7)
	if len(parts) != 7 || parts[0] != "CUSTOM" {
		return fmt.Errorf("keymap line %d: malformed CUSTOM entry %q", lineNo, fields[3])
	}
	x, errX := strconv.ParseFloat(parts[2], 64)
	y, errY := strconv.ParseFloat(parts[3], 64)
	w, errW := strconv.ParseFloat(parts[4], 64)
	h, errH := strconv.ParseFloat(parts[5], 64)
	if errX != nil || errY != nil || errW != nil || errH != nil {
		return fmt.Errorf("keymap line %d: malformed CUSTOM geometry %q", lineNo, fields[3])
	}
	binding, err := parseBindingSpec(parts[6])
	if err != nil {
		return fmt.Errorf("keymap line %d: %w", lineNo, err)
	}

	rect := layer.NormalizedRect{X0: x, Y0: y, X1: x + w, Y1: y + h}
	b.AddCustom(s, l, rect, binding)
	return nil
}

func parseSide(s string) (side.Side, error) {
	switch strings.ToLower(s) {
	case "left":
		return side.Left, nil
	case "right":
		return side.Right, nil
	default:
		return side.Unknown, fmt.Errorf("unknown side %q", s)
	}
}

// parseBindingSpec parses CHAR:x | KC:name | MOD:mask | MO:n | TO:n |
// MOUSE:btn | CHORD:seq | NOOP.
func parseBindingSpec(spec string) (layer.KeyBinding, error) {
	if spec == "NOOP" {
		return layer.NoOpBinding(), nil
	}

	kind, arg, ok := strings.Cut(spec, ":")
	if !ok {
		return layer.KeyBinding{}, fmt.Errorf("malformed binding_spec %q", spec)
	}

	switch kind {
	case "CHAR":
		if len(arg) == 0 {
			return layer.KeyBinding{}, fmt.Errorf("CHAR binding missing a character: %q", spec)
		}
		r := []rune(arg)
		return layer.CharBinding(r[0]), nil

	case "KC":
		code, ok := keycodeNames[strings.ToLower(arg)]
		if !ok {
			return layer.KeyBinding{}, fmt.Errorf("unknown keycode name %q", arg)
		}
		return layer.KeyCodeBinding(code), nil

	case "MOD":
		mask, err := strconv.ParseUint(arg, 0, 32)
		if err != nil {
			return layer.KeyBinding{}, fmt.Errorf("bad modifier mask %q: %w", arg, err)
		}
		return layer.ModifierBinding(uint32(mask)), nil

	case "MO":
		n, err := strconv.Atoi(arg)
		if err != nil {
			return layer.KeyBinding{}, fmt.Errorf("bad MO layer %q: %w", arg, err)
		}
		return layer.MOBinding(n), nil

	case "TO":
		n, err := strconv.Atoi(arg)
		if err != nil {
			return layer.KeyBinding{}, fmt.Errorf("bad TO layer %q: %w", arg, err)
		}
		return layer.TOBinding(n), nil

	case "MOUSE":
		btn, err := strconv.Atoi(arg)
		if err != nil {
			return layer.KeyBinding{}, fmt.Errorf("bad mouse button %q: %w", arg, err)
		}
		return layer.MouseBinding(btn), nil

	case "CHORD":
		names := strings.Split(arg, ",")
		seq := make([]uint16, 0, len(names))
		for _, n := range names {
			code, ok := keycodeNames[strings.ToLower(strings.TrimSpace(n))]
			if !ok {
				return layer.KeyBinding{}, fmt.Errorf("unknown chord keycode name %q", n)
			}
			seq = append(seq, code)
		}
		if len(seq) == 0 {
			return layer.KeyBinding{}, fmt.Errorf("CHORD binding has no keys: %q", spec)
		}
		return layer.ChordBinding(seq...), nil

	default:
		return layer.KeyBinding{}, fmt.Errorf("unknown binding kind %q in %q", kind, spec)
	}
}

// keycodeNames maps KC:name/CHORD keycode names to USB HID usage-page-0x07
// key codes. Only the subset a trackpad-to-keyboard layout plausibly needs.
var keycodeNames = map[string]uint16{
	"enter": 0x28, "esc": 0x29, "escape": 0x29, "backspace": 0x2a, "tab": 0x2b,
	"space": 0x2c, "minus": 0x2d, "equal": 0x2e, "lbracket": 0x2f, "rbracket": 0x30,
	"backslash": 0x31, "semicolon": 0x33, "quote": 0x34, "grave": 0x35,
	"comma": 0x36, "period": 0x37, "slash": 0x38, "capslock": 0x39,
	"f1": 0x3a, "f2": 0x3b, "f3": 0x3c, "f4": 0x3d, "f5": 0x3e, "f6": 0x3f,
	"f7": 0x40, "f8": 0x41, "f9": 0x42, "f10": 0x43, "f11": 0x44, "f12": 0x45,
	"left": 0x50, "right": 0x4f, "up": 0x52, "down": 0x51,
	"home": 0x4a, "end": 0x4d, "pageup": 0x4b, "pagedown": 0x4e,
	"insert": 0x49, "delete": 0x4c,
	"lctrl": 0xe0, "lshift": 0xe1, "lalt": 0xe2, "lsuper": 0xe3,
	"rctrl": 0xe4, "rshift": 0xe5, "ralt": 0xe6, "rsuper": 0xe7,
}
