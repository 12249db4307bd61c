package telemetry

import (
	"math"
	"testing"
)

func TestComputeEnergyStats(t *testing.T) {
	values := []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0}
	mean, p10, p50, p90 := ComputeEnergyStats(values)

	if math.Abs(mean-0.55) > 0.001 {
		t.Errorf("mean = %v, want 0.55", mean)
	}

	// Quantile estimators differ in interpolation at the tails; pin
	// behavior to the bracket every sane estimator satisfies.
	if p10 < 0.1 || p10 > 0.2 {
		t.Errorf("p10 = %v, want within [0.1, 0.2]", p10)
	}
	if p50 < 0.4 || p50 > 0.6 {
		t.Errorf("p50 = %v, want within [0.4, 0.6]", p50)
	}
	if p90 < 0.85 || p90 > 1.0 {
		t.Errorf("p90 = %v, want within [0.85, 1.0]", p90)
	}

	if !(p10 <= p50 && p50 <= p90) {
		t.Errorf("quantiles not monotone: p10=%v p50=%v p90=%v", p10, p50, p90)
	}
}

func TestComputeEnergyStatsUnsortedInput(t *testing.T) {
	values := []float64{0.9, 0.1, 0.5}
	mean, p10, _, p90 := ComputeEnergyStats(values)

	if math.Abs(mean-0.5) > 0.001 {
		t.Errorf("mean = %v, want 0.5", mean)
	}
	if p10 < 0.1 || p90 > 0.9 {
		t.Errorf("quantiles escaped sample range: p10=%v p90=%v", p10, p90)
	}

	// Input order must be preserved
	if values[0] != 0.9 || values[1] != 0.1 || values[2] != 0.5 {
		t.Errorf("input mutated: %v", values)
	}
}

func TestComputeEnergyStatsSingle(t *testing.T) {
	mean, p10, p50, p90 := ComputeEnergyStats([]float64{7.5})

	if mean != 7.5 || p10 != 7.5 || p50 != 7.5 || p90 != 7.5 {
		t.Errorf("single value should dominate all stats: mean=%v p10=%v p50=%v p90=%v", mean, p10, p50, p90)
	}
}

func TestComputeEnergyStatsEmpty(t *testing.T) {
	mean, p10, p50, p90 := ComputeEnergyStats([]float64{})

	if mean != 0 || p10 != 0 || p50 != 0 || p90 != 0 {
		t.Error("empty slice should return all zeros")
	}
}
