package telemetry

import (
	"github.com/pthm-cable/brine/components"
	"github.com/pthm-cable/brine/config"
	"github.com/pthm-cable/brine/fluid"
)

// SuppressReason says why an otherwise willing body was not allowed to
// reproduce this tick.
type SuppressReason string

const (
	SuppressDisabled SuppressReason = "disabled"
	SuppressCeiling  SuppressReason = "ceiling"
	SuppressEnergy   SuppressReason = "energy"
	SuppressCooldown SuppressReason = "cooldown"
)

// Sample carries the instantaneous world state captured at flush time,
// as opposed to the counters the Collector accumulates over the window.
type Sample struct {
	LiveBodies    int
	LiveParticles int
	Energies      []float64
	IslandCount   int
	IslandMax     int
	IslandMean    float64
	Fluid         fluid.FieldStats
	GridPoints    int
	GridMaxBucket int
	NutrientTotal float64
}

// Collector accumulates events within time windows and produces
// WindowStats. Counters reset each window; the removed-energy total is
// cumulative for the run.
type Collector struct {
	windowTicks int64
	dt          float64

	// Current window tracking
	windowStartTick int64

	// Event counters for current window
	births      int
	floorSpawns int

	removedPhysics    int
	removedNonPhysics int
	removedUnknown    int

	suppressed map[SuppressReason]int

	removedEnergyTotal float64
}

// NewCollector creates a new stats collector.
func NewCollector(cfg *config.Config) *Collector {
	window := int64(cfg.Telemetry.StatsWindowTicks)
	if window < 1 {
		window = 1
	}
	return &Collector{
		windowTicks: window,
		dt:          cfg.Physics.DT,
		suppressed:  make(map[SuppressReason]int),
	}
}

// RecordBirth records a birth event by origin.
func (c *Collector) RecordBirth(origin components.BirthOrigin) {
	if origin == components.OriginFloorSpawn {
		c.floorSpawns++
		return
	}
	c.births++
}

// RecordRemoval records a removal event by class and folds the body's
// remaining energy into the cumulative total.
func (c *Collector) RecordRemoval(class Class, energy float64) {
	switch class {
	case ClassPhysics:
		c.removedPhysics++
	case ClassNonPhysics:
		c.removedNonPhysics++
	default:
		c.removedUnknown++
	}
	c.removedEnergyTotal += energy
}

// RecordSuppression records a reproduction attempt turned away.
func (c *Collector) RecordSuppression(r SuppressReason) {
	c.suppressed[r]++
}

// ShouldFlush returns true if enough ticks have passed to flush the window.
func (c *Collector) ShouldFlush(currentTick int64) bool {
	return currentTick-c.windowStartTick >= c.windowTicks
}

// Flush produces a WindowStats and resets counters for the next window.
func (c *Collector) Flush(currentTick int64, s Sample) WindowStats {
	mean, p10, p50, p90 := ComputeEnergyStats(s.Energies)

	stats := WindowStats{
		WindowStartTick: c.windowStartTick,
		WindowEndTick:   currentTick,
		SimTimeSec:      float64(currentTick) * c.dt,

		LiveBodies:    s.LiveBodies,
		LiveParticles: s.LiveParticles,

		Births:            c.births,
		FloorSpawns:       c.floorSpawns,
		RemovedPhysics:    c.removedPhysics,
		RemovedNonPhysics: c.removedNonPhysics,
		RemovedUnknown:    c.removedUnknown,

		SuppressedDisabled: c.suppressed[SuppressDisabled],
		SuppressedCeiling:  c.suppressed[SuppressCeiling],
		SuppressedEnergy:   c.suppressed[SuppressEnergy],
		SuppressedCooldown: c.suppressed[SuppressCooldown],

		EnergyMean:         mean,
		EnergyP10:          p10,
		EnergyP50:          p50,
		EnergyP90:          p90,
		RemovedEnergyTotal: c.removedEnergyTotal,

		IslandCount: s.IslandCount,
		IslandMax:   s.IslandMax,
		IslandMean:  s.IslandMean,

		FluidAvgSpeed:      s.Fluid.AvgSpeed,
		FluidMaxSpeed:      s.Fluid.MaxSpeed,
		FluidAvgDivergence: s.Fluid.AvgDivergence,
		FluidDyeTotal:      s.Fluid.DyeTotal,

		GridPoints:    s.GridPoints,
		GridMaxBucket: s.GridMaxBucket,

		NutrientTotal: s.NutrientTotal,
	}

	// Reset for next window
	c.windowStartTick = currentTick
	c.births = 0
	c.floorSpawns = 0
	c.removedPhysics = 0
	c.removedNonPhysics = 0
	c.removedUnknown = 0
	clear(c.suppressed)

	return stats
}

// WindowTicks returns the number of ticks per window.
func (c *Collector) WindowTicks() int64 {
	return c.windowTicks
}
