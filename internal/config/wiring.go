package config

import (
	"time"

	"github.com/glasstokey/glasstokey/internal/decoder"
	"github.com/glasstokey/glasstokey/internal/engine"
	"github.com/glasstokey/glasstokey/internal/host"
	"github.com/glasstokey/glasstokey/internal/side"
)

// unitsPerMM mirrors engine.devUnitsFromMM's placeholder scale; a real
// deployment overrides Dmove/Dswipe directly once the device's reported
// max_x/max_y and physical dimensions are known.
const unitsPerMM = 85

func devUnits(mm float64) uint32 {
	if mm < 0 {
		mm = 0
	}
	return uint32(mm * unitsPerMM)
}

func parseMode(s string) engine.Mode {
	switch s {
	case "mouse_only":
		return engine.MouseOnly
	case "keyboard_only":
		return engine.KeyboardOnly
	default:
		return engine.Mixed
	}
}

func parseDecoderHint(s string) decoder.Hint {
	switch s {
	case "official":
		return decoder.HintOfficial
	case "legacy":
		return decoder.HintLegacy
	default:
		return decoder.HintAuto
	}
}

// EngineParams translates the persisted tunables into engine.Params. Callers
// still need to populate DeviceMaxX/Y from the attached device's reported
// report descriptor; this only carries spec §6 tunables.
func (c *Config) EngineParams() engine.Params {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p := engine.DefaultParams()
	p.Tstart = uint64(time.Duration(c.TstartMS) * time.Millisecond)
	p.Ttap = uint64(time.Duration(c.TtapMS) * time.Millisecond)
	p.Thold = uint64(time.Duration(c.TholdMS) * time.Millisecond)
	p.Tgesture = uint64(time.Duration(c.TgestureMS) * time.Millisecond)
	p.Dmove = devUnits(c.DmoveMM)
	p.Dswipe = devUnits(c.DswipeMM)
	p.Mode = parseMode(c.Mode)
	p.HapticOnKeyTap = c.HapticOnKeyTap
	p.HapticMinInterval = uint64(time.Duration(c.HapticMinInterval) * time.Millisecond)
	return p
}

// HostConfig translates the persisted tunables into host.Config, leaving
// DeviceMaxX/Y and UsagePage for the caller to fill in once the device is
// attached.
func (c *Config) HostConfig() host.Config {
	engineParams := c.EngineParams()

	c.mu.RLock()
	defer c.mu.RUnlock()

	return host.Config{
		Engine:                      engineParams,
		SessionThresholdDeviceUnits: devUnits(c.DmoveMM),
		TstaleTicks:                 uint64(time.Duration(c.TstaleMS) * time.Millisecond),
		SessionPoolSize:             c.SessionPoolSize,
		DecoderHint: map[side.Side]decoder.Hint{
			side.Left:  parseDecoderHint(c.DecoderHintLeft),
			side.Right: parseDecoderHint(c.DecoderHintRight),
		},
		PressureForced: map[side.Side]bool{
			side.Left:  c.PressureUnsupportedLeft,
			side.Right: c.PressureUnsupportedRight,
		},
		DispatchQueueCapacity: 256,
	}
}
