package systems

import (
	"testing"

	"github.com/pthm-cable/brine/config"
	"github.com/pthm-cable/brine/fluid"
)

// recordingBackend counts injections without running a solver.
type recordingBackend struct {
	fluid.Backend
	velocity int
	dye      int
}

func (r *recordingBackend) AddVelocity(x, y, dx, dy, strength float32) { r.velocity++ }
func (r *recordingBackend) AddDensity(x, y, rr, g, b, strength float32) {
	r.dye++
}

func TestEmittersFireOnPeriod(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("loading defaults: %v", err)
	}
	cfg.Emitters = []config.EmitterConfig{
		{X: 0.5, Y: 0.5, DX: 10, Strength: 5, DyeR: 1, PeriodTicks: 4, PhaseTicks: 1},
	}
	es := NewEmitterSystem(cfg)
	rec := &recordingBackend{}

	// Fires at ticks 1, 5, 9 within the first ten.
	firedAt := []int64{}
	for tick := int64(0); tick < 10; tick++ {
		if es.Apply(tick, rec) > 0 {
			firedAt = append(firedAt, tick)
		}
	}

	want := []int64{1, 5, 9}
	if len(firedAt) != len(want) {
		t.Fatalf("fired at %v, want %v", firedAt, want)
	}
	for i := range want {
		if firedAt[i] != want[i] {
			t.Fatalf("fired at %v, want %v", firedAt, want)
		}
	}
	if rec.velocity != 3 || rec.dye != 3 {
		t.Errorf("velocity=%d dye=%d, want 3 each", rec.velocity, rec.dye)
	}
}

func TestEmitterWithoutDyeSkipsDensity(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("loading defaults: %v", err)
	}
	cfg.Emitters = []config.EmitterConfig{
		{X: 0.2, Y: 0.2, DX: 5, Strength: 3, PeriodTicks: 1},
	}
	es := NewEmitterSystem(cfg)
	rec := &recordingBackend{}

	es.Apply(0, rec)
	if rec.velocity != 1 || rec.dye != 0 {
		t.Errorf("velocity=%d dye=%d, want 1 and 0", rec.velocity, rec.dye)
	}
}

func TestDisabledEmitterNeverFires(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("loading defaults: %v", err)
	}
	cfg.Emitters = []config.EmitterConfig{
		{X: 0.2, Y: 0.2, DX: 5, Strength: 3, PeriodTicks: 0},
	}
	es := NewEmitterSystem(cfg)
	rec := &recordingBackend{}

	for tick := int64(0); tick < 20; tick++ {
		if es.Apply(tick, rec) != 0 {
			t.Fatalf("zero-period emitter fired at tick %d", tick)
		}
	}
}
