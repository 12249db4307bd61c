package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// WindowStats holds aggregated statistics for a time window.
type WindowStats struct {
	WindowStartTick int64   `csv:"-"`
	WindowEndTick   int64   `csv:"window_end"`
	SimTimeSec      float64 `csv:"sim_time"`

	// Population counts at window end
	LiveBodies    int `csv:"live_bodies"`
	LiveParticles int `csv:"live_particles"`

	// Events during window
	Births            int `csv:"births"`
	FloorSpawns       int `csv:"floor_spawns"`
	RemovedPhysics    int `csv:"removed_physics"`
	RemovedNonPhysics int `csv:"removed_non_physics"`
	RemovedUnknown    int `csv:"removed_unknown"`

	// Reproduction suppression breakdown
	SuppressedDisabled int `csv:"suppressed_disabled"`
	SuppressedCeiling  int `csv:"suppressed_ceiling"`
	SuppressedEnergy   int `csv:"suppressed_energy"`
	SuppressedCooldown int `csv:"suppressed_cooldown"`

	// Energy distribution (sampled at window end)
	EnergyMean float64 `csv:"energy_mean"`
	EnergyP10  float64 `csv:"energy_p10"`
	EnergyP50  float64 `csv:"energy_p50"`
	EnergyP90  float64 `csv:"energy_p90"`

	// Cumulative energy folded out of removed bodies
	RemovedEnergyTotal float64 `csv:"removed_energy_total"`

	// Contact graph shape at window end
	IslandCount int     `csv:"island_count"`
	IslandMax   int     `csv:"island_max"`
	IslandMean  float64 `csv:"island_mean"`

	// Fluid field health
	FluidAvgSpeed      float64 `csv:"fluid_avg_speed"`
	FluidMaxSpeed      float64 `csv:"fluid_max_speed"`
	FluidAvgDivergence float64 `csv:"fluid_avg_divergence"`
	FluidDyeTotal      float64 `csv:"fluid_dye_total"`

	// Spatial grid load
	GridPoints    int `csv:"grid_points"`
	GridMaxBucket int `csv:"grid_max_bucket"`

	NutrientTotal float64 `csv:"nutrient_total"`
}

// ComputeEnergyStats calculates mean and percentiles from energy values.
func ComputeEnergyStats(values []float64) (mean, p10, p50, p90 float64) {
	n := len(values)
	if n == 0 {
		return 0, 0, 0, 0
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	mean = stat.Mean(sorted, nil)
	p10 = stat.Quantile(0.10, stat.LinInterp, sorted, nil)
	p50 = stat.Quantile(0.50, stat.LinInterp, sorted, nil)
	p90 = stat.Quantile(0.90, stat.LinInterp, sorted, nil)

	return mean, p10, p50, p90
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("window_end", s.WindowEndTick),
		slog.Float64("sim_time", s.SimTimeSec),
		slog.Int("live_bodies", s.LiveBodies),
		slog.Int("live_particles", s.LiveParticles),
		slog.Int("births", s.Births),
		slog.Int("floor_spawns", s.FloorSpawns),
		slog.Int("removed_physics", s.RemovedPhysics),
		slog.Int("removed_non_physics", s.RemovedNonPhysics),
		slog.Int("removed_unknown", s.RemovedUnknown),
		slog.Float64("energy_mean", s.EnergyMean),
		slog.Float64("energy_p50", s.EnergyP50),
		slog.Float64("removed_energy_total", s.RemovedEnergyTotal),
		slog.Int("island_count", s.IslandCount),
		slog.Float64("fluid_avg_speed", s.FluidAvgSpeed),
		slog.Float64("fluid_avg_divergence", s.FluidAvgDivergence),
		slog.Float64("nutrient_total", s.NutrientTotal),
	)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	slog.Info("stats",
		"window_end", s.WindowEndTick,
		"sim_time", s.SimTimeSec,
		"live_bodies", s.LiveBodies,
		"live_particles", s.LiveParticles,
		"births", s.Births,
		"floor_spawns", s.FloorSpawns,
		"removed_physics", s.RemovedPhysics,
		"removed_non_physics", s.RemovedNonPhysics,
		"removed_unknown", s.RemovedUnknown,
		"suppressed_disabled", s.SuppressedDisabled,
		"suppressed_ceiling", s.SuppressedCeiling,
		"suppressed_energy", s.SuppressedEnergy,
		"suppressed_cooldown", s.SuppressedCooldown,
		"energy_mean", s.EnergyMean,
		"energy_p10", s.EnergyP10,
		"energy_p50", s.EnergyP50,
		"energy_p90", s.EnergyP90,
		"removed_energy_total", s.RemovedEnergyTotal,
		"island_count", s.IslandCount,
		"island_max", s.IslandMax,
		"island_mean", s.IslandMean,
		"fluid_avg_speed", s.FluidAvgSpeed,
		"fluid_max_speed", s.FluidMaxSpeed,
		"fluid_avg_divergence", s.FluidAvgDivergence,
		"fluid_dye_total", s.FluidDyeTotal,
		"grid_points", s.GridPoints,
		"grid_max_bucket", s.GridMaxBucket,
		"nutrient_total", s.NutrientTotal,
	)
}
