package systems

import (
	"github.com/pthm-cable/brine/config"
	"github.com/pthm-cable/brine/fluid"
)

// EmitterSystem drives the configured impulse sources. Each emitter
// fires on its own period/phase, injecting a velocity impulse and
// optionally dye at a fixed relative position.
type EmitterSystem struct {
	emitters       []config.EmitterConfig
	worldW, worldH float32
}

// NewEmitterSystem captures the emitter list from config.
func NewEmitterSystem(cfg *config.Config) *EmitterSystem {
	return &EmitterSystem{
		emitters: cfg.Emitters,
		worldW:   cfg.Derived.WorldW32,
		worldH:   cfg.Derived.WorldH32,
	}
}

// Apply fires every emitter due at this tick into the backend and
// returns how many fired.
func (es *EmitterSystem) Apply(tick int64, f fluid.Backend) int {
	fired := 0
	for _, e := range es.emitters {
		if e.PeriodTicks <= 0 {
			continue
		}
		period := int64(e.PeriodTicks)
		if emitterMod(tick-int64(e.PhaseTicks), period) != 0 {
			continue
		}

		x := float32(e.X) * es.worldW
		y := float32(e.Y) * es.worldH
		strength := float32(e.Strength)

		f.AddVelocity(x, y, float32(e.DX), float32(e.DY), strength)
		if e.DyeR > 0 || e.DyeG > 0 || e.DyeB > 0 {
			f.AddDensity(x, y, float32(e.DyeR), float32(e.DyeG), float32(e.DyeB), strength)
		}
		fired++
	}
	return fired
}

func emitterMod(a, m int64) int64 {
	r := a % m
	if r < 0 {
		r += m
	}
	return r
}
