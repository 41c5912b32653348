package engine

import "time"

// Mode is the runtime-wide output gating policy (spec §4.E "Mode policy").
type Mode int

const (
	Mixed Mode = iota
	MouseOnly
	KeyboardOnly
)

func (m Mode) String() string {
	switch m {
	case MouseOnly:
		return "mouse_only"
	case KeyboardOnly:
		return "keyboard_only"
	default:
		return "mixed"
	}
}

// Params holds every tunable the intent engine reads at frame boundaries
// (spec §6 configuration). Time values are expressed in ArrivalTick units
// (nanoseconds); distances are device units, matching session.Pool's
// nearest-position threshold.
type Params struct {
	Tstart   uint64
	Ttap     uint64
	Thold    uint64
	Tgesture uint64

	Dmove  uint32
	Dswipe uint32

	Mode Mode

	HapticOnKeyTap    bool
	HapticMinInterval uint64

	// DeviceMaxX/Y normalize device-unit coordinates into [0,1] for layer
	// resolution (spec §4.L). Populated by the runtime host from the
	// device's reported report descriptor.
	DeviceMaxX, DeviceMaxY uint16
}

// DefaultParams returns the spec §4.E defaults. Tstart's default resolves
// Open Question (a) — spec.md documents both 20ms and 40ms as observed in
// the original running configuration; 20ms is taken as the stated default,
// left fully configurable.
func DefaultParams() Params {
	return Params{
		Tstart:            uint64(20 * time.Millisecond),
		Ttap:              uint64(180 * time.Millisecond),
		Thold:             uint64(250 * time.Millisecond),
		Tgesture:          uint64(30 * time.Millisecond),
		Dmove:             devUnitsFromMM(3),
		Dswipe:            devUnitsFromMM(3) * 8,
		Mode:              Mixed,
		HapticOnKeyTap:    true,
		HapticMinInterval: uint64(50 * time.Millisecond),
		DeviceMaxX:        5000,
		DeviceMaxY:        5000,
	}
}

// devUnitsFromMM is a placeholder conversion used only for defaults; real
// deployments derive device-units-per-mm from the device's reported
// max_x/max_y and known physical dimensions and override these fields via
// config (spec §4.S threshold note).
func devUnitsFromMM(mm uint32) uint32 {
	const unitsPerMM = 85
	return mm * unitsPerMM
}

func sq32(v uint32) uint32 { return v * v }
