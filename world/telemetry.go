package world

import "github.com/pthm-cable/brine/telemetry"

// ShouldFlush reports whether the stats window has elapsed.
func (w *World) ShouldFlush() bool { return w.collector.ShouldFlush(w.tick) }

// FlushWindow closes the current stats window: it samples the live
// state, folds in the window counters, and resets them.
func (w *World) FlushWindow() telemetry.WindowStats {
	return w.collector.Flush(w.tick, w.sample())
}

func (w *World) sample() telemetry.Sample {
	energies := make([]float64, 0, len(w.bodies))
	for _, b := range w.bodies {
		energies = append(energies, b.Energy())
	}
	gridPoints, gridMax := w.grid.BucketLoad()
	return telemetry.Sample{
		LiveBodies:    len(w.bodies),
		LiveParticles: w.particles.Count(),
		Energies:      energies,
		IslandCount:   w.lastIslands.Count,
		IslandMax:     w.lastIslands.MaxSize,
		IslandMean:    w.lastIslands.MeanSize,
		Fluid:         w.fld.Stats(),
		GridPoints:    gridPoints,
		GridMaxBucket: gridMax,
		NutrientTotal: w.nutrients.Total(),
	}
}
