package telemetry

import (
	"testing"
	"time"
)

func TestPerfCollector_BasicTiming(t *testing.T) {
	pc := NewPerfCollector(10)

	// Simulate a few ticks
	for i := 0; i < 5; i++ {
		pc.StartTick()
		pc.StartPhase(PhaseSpatialGrid)
		time.Sleep(100 * time.Microsecond)
		pc.StartPhase(PhaseBodies)
		time.Sleep(200 * time.Microsecond)
		pc.EndTick()
	}

	stats := pc.Stats()

	// Verify we got timing data
	if stats.AvgTickDuration <= 0 {
		t.Error("expected positive average tick duration")
	}

	// Verify phases are tracked
	if len(stats.PhaseAvg) == 0 {
		t.Error("expected phase averages to be populated")
	}

	if _, ok := stats.PhaseAvg[PhaseSpatialGrid]; !ok {
		t.Error("expected spatial_grid phase to be tracked")
	}

	if _, ok := stats.PhaseAvg[PhaseBodies]; !ok {
		t.Error("expected bodies phase to be tracked")
	}
}

func TestPerfCollector_ReenteredPhaseAccumulates(t *testing.T) {
	pc := NewPerfCollector(10)

	// The particles phase runs twice per tick (maintenance, then aging)
	pc.StartTick()
	pc.StartPhase(PhaseParticles)
	time.Sleep(100 * time.Microsecond)
	pc.StartPhase(PhaseFluid)
	time.Sleep(50 * time.Microsecond)
	pc.StartPhase(PhaseParticles)
	time.Sleep(100 * time.Microsecond)
	pc.EndTick()

	stats := pc.Stats()

	if stats.PhaseAvg[PhaseParticles] <= stats.PhaseAvg[PhaseFluid] {
		t.Errorf("re-entered phase should accumulate both visits: particles=%v fluid=%v",
			stats.PhaseAvg[PhaseParticles], stats.PhaseAvg[PhaseFluid])
	}
}

func TestPerfCollector_RollingWindow(t *testing.T) {
	pc := NewPerfCollector(5) // Small window

	// Fill window completely
	for i := 0; i < 10; i++ {
		pc.StartTick()
		pc.StartPhase(PhaseSpatialGrid)
		pc.EndTick()
	}

	stats := pc.Stats()

	// Should have data
	if stats.AvgTickDuration <= 0 {
		t.Error("expected positive average tick duration after window filled")
	}

	if stats.TicksPerSecond <= 0 {
		t.Error("expected positive ticks per second")
	}
}

func TestPerfCollector_PhasePercentages(t *testing.T) {
	pc := NewPerfCollector(10)

	// Simulate with uneven phase durations
	for i := 0; i < 5; i++ {
		pc.StartTick()
		pc.StartPhase("fast")
		time.Sleep(10 * time.Microsecond)
		pc.StartPhase("slow")
		time.Sleep(100 * time.Microsecond)
		pc.EndTick()
	}

	stats := pc.Stats()

	fastPct := stats.PhasePct["fast"]
	slowPct := stats.PhasePct["slow"]

	// Slow phase should take more % than fast
	if slowPct <= fastPct {
		t.Errorf("expected slow phase (%v%%) > fast phase (%v%%)", slowPct, fastPct)
	}
}

func TestPerfCollector_EmptyStats(t *testing.T) {
	pc := NewPerfCollector(10)

	stats := pc.Stats()

	// Empty collector should return zero values without panicking
	if stats.AvgTickDuration != 0 {
		t.Error("expected zero avg tick duration for empty collector")
	}

	if stats.PhaseAvg == nil {
		t.Error("expected non-nil PhaseAvg map")
	}

	if stats.PhasePct == nil {
		t.Error("expected non-nil PhasePct map")
	}
}

func TestPerfStatsToCSV(t *testing.T) {
	pc := NewPerfCollector(10)

	pc.StartTick()
	pc.StartPhase(PhaseFluid)
	time.Sleep(100 * time.Microsecond)
	pc.EndTick()

	row := pc.Stats().ToCSV(600)

	if row.WindowEnd != 600 {
		t.Errorf("WindowEnd = %d, want 600", row.WindowEnd)
	}
	if row.AvgTickUS <= 0 {
		t.Error("expected positive avg tick in CSV row")
	}
	if row.FluidPct <= 0 {
		t.Error("expected fluid phase percentage in CSV row")
	}
}
