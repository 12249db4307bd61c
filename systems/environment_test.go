package systems

import (
	"testing"

	"github.com/pthm-cable/brine/config"
)

func envConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("loading defaults: %v", err)
	}
	return cfg
}

func TestLightDecreasesWithDepth(t *testing.T) {
	cfg := envConfig(t)
	lf := NewLightField(cfg, 3)

	top := lf.Sample(600, 20)
	bottom := lf.Sample(600, cfg.Derived.WorldH32-20)
	if top <= bottom {
		t.Errorf("light at surface %v should exceed light at depth %v", top, bottom)
	}
	if bottom < 0 {
		t.Errorf("light went negative at depth: %v", bottom)
	}
}

func TestLightDayCycle(t *testing.T) {
	cfg := envConfig(t)
	cfg.Light.DayCycleTicks = 100
	lf := NewLightField(cfg, 3)

	lf.Step(0)
	noon := lf.Sample(600, 100)
	lf.Step(50)
	midnight := lf.Sample(600, 100)
	lf.Step(100)
	noonAgain := lf.Sample(600, 100)

	if noon <= midnight {
		t.Errorf("cycle peak %v should exceed trough %v", noon, midnight)
	}
	if midnight > noon*0.01 {
		t.Errorf("trough %v not near zero (peak %v)", midnight, noon)
	}
	if noonAgain != noon {
		t.Errorf("full cycle did not return to start: %v vs %v", noonAgain, noon)
	}
}

func TestLightStaticWithoutCycle(t *testing.T) {
	cfg := envConfig(t)
	cfg.Light.DayCycleTicks = 0
	lf := NewLightField(cfg, 3)

	before := lf.Sample(600, 100)
	lf.Step(12345)
	after := lf.Sample(600, 100)
	if before != after {
		t.Errorf("static field changed across ticks: %v -> %v", before, after)
	}
}

func TestViscosityWithinBand(t *testing.T) {
	cfg := envConfig(t)
	vf := NewViscosityField(cfg, 11)

	lo := float32(0)
	hi := float32(cfg.Viscosity.Base+cfg.Viscosity.Variation) + 1e-4
	for y := float32(10); y < cfg.Derived.WorldH32; y += 97 {
		for x := float32(10); x < cfg.Derived.WorldW32; x += 113 {
			v := vf.Sample(x, y)
			if v < lo || v > hi {
				t.Fatalf("viscosity at (%v,%v) = %v outside [0,%v]", x, y, v, hi)
			}
		}
	}
}

func TestViscositySeedDeterminism(t *testing.T) {
	cfg := envConfig(t)
	a := NewViscosityField(cfg, 5)
	b := NewViscosityField(cfg, 5)
	for i := range a.vals {
		if a.vals[i] != b.vals[i] {
			t.Fatal("same seed produced different viscosity grids")
		}
	}
}
