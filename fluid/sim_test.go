package fluid

import (
	"math"
	"testing"

	"github.com/pthm-cable/brine/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("load defaults: %v", err)
	}
	cfg.Fluid.GridWidth = 48
	cfg.Fluid.GridHeight = 48
	cfg.Rederive()
	return cfg
}

func TestImpulseRoundTrip(t *testing.T) {
	cfg := testConfig(t)
	s := NewSim(cfg)

	cx := cfg.Derived.WorldW32 / 2
	cy := cfg.Derived.WorldH32 / 2
	s.AddVelocity(cx, cy, 12, 0, 25)

	vx, vy := s.VelocityAt(cx, cy, SpaceWorld)
	if vx <= 0 {
		t.Fatalf("expected positive vx at impulse centre before step, got %v", vx)
	}
	if math.Abs(float64(vy)) > 1e-3 {
		t.Errorf("expected ~zero vy at impulse centre, got %v", vy)
	}

	s.Step()

	// One step transports momentum downstream of the impulse.
	cellW := cfg.Derived.WorldW32 / float32(cfg.Fluid.GridWidth)
	dvx, _ := s.VelocityAt(cx+cellW, cy, SpaceWorld)
	if dvx == 0 {
		t.Errorf("expected nonzero transported velocity one cell downstream after step")
	}
}

func TestProjectionReducesDivergence(t *testing.T) {
	cfg := testConfig(t)
	s := NewSim(cfg)

	// An isolated splat is strongly divergent before projection.
	s.AddVelocity(cfg.Derived.WorldW32*0.4, cfg.Derived.WorldH32*0.6, 20, -8, 25)
	before := s.Stats().AvgDivergence
	if before == 0 {
		t.Fatal("expected nonzero divergence after injection")
	}

	s.Step()
	after := s.Stats().AvgDivergence
	if after >= before {
		t.Errorf("projection did not reduce divergence: before=%v after=%v", before, after)
	}
}

func TestViscosityDecayFactor(t *testing.T) {
	cfg := testConfig(t)
	cfg.Fluid.Boundary = "wrap"
	cfg.Fluid.DiffusionIters = 2
	cfg.Rederive()
	s := NewSim(cfg)

	// A uniform field is a fixed point of advection, diffusion, and
	// projection, so one step applies exactly the two decay factors.
	for i := range s.u {
		s.u[i] = 10
	}
	s.Step()

	want := 10 / (1 + 4*s.visc*s.dt) * s.advectDecay
	got, _ := s.VelocityAt(1, 1, SpaceGrid)
	if math.Abs(float64(got-want)) > 1e-3 {
		t.Errorf("uniform field after step = %v, want %v", got, want)
	}
}

func TestDyeFade(t *testing.T) {
	cfg := testConfig(t)
	cfg.Fluid.Boundary = "wrap"
	cfg.Rederive()
	s := NewSim(cfg)

	for i := range s.r {
		s.r[i] = 1
	}
	s.Step()

	r, g, b := s.DensityAt(3, 3, SpaceGrid)
	if math.Abs(float64(r-s.dyeFade)) > 1e-4 {
		t.Errorf("dye after one step = %v, want fade %v", r, s.dyeFade)
	}
	if g != 0 || b != 0 {
		t.Errorf("untouched channels moved: g=%v b=%v", g, b)
	}
}

func TestInjectionClampsComponents(t *testing.T) {
	cfg := testConfig(t)
	s := NewSim(cfg)

	huge := float32(cfg.Fluid.MaxVelComponent) * 50
	s.AddVelocity(cfg.Derived.WorldW32/2, cfg.Derived.WorldH32/2, huge, -huge, 25)

	limit := float32(cfg.Fluid.MaxVelComponent)
	for i := range s.u {
		if s.u[i] > limit || s.u[i] < -limit {
			t.Fatalf("u[%d]=%v outside clamp %v", i, s.u[i], limit)
		}
		if s.v[i] > limit || s.v[i] < -limit {
			t.Fatalf("v[%d]=%v outside clamp %v", i, s.v[i], limit)
		}
	}
}

func TestCoordSpaceAgreement(t *testing.T) {
	cfg := testConfig(t)
	s := NewSim(cfg)
	s.AddVelocity(cfg.Derived.WorldW32*0.3, cfg.Derived.WorldH32*0.7, 9, 4, 25)

	tests := []struct {
		name   string
		wx, wy float32
	}{
		{"impulse centre", cfg.Derived.WorldW32 * 0.3, cfg.Derived.WorldH32 * 0.7},
		{"off centre", cfg.Derived.WorldW32 * 0.31, cfg.Derived.WorldH32 * 0.69},
		{"far corner", cfg.Derived.WorldW32 * 0.9, cfg.Derived.WorldH32 * 0.1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gx := tt.wx / cfg.Derived.WorldW32 * float32(cfg.Fluid.GridWidth)
			gy := tt.wy / cfg.Derived.WorldH32 * float32(cfg.Fluid.GridHeight)

			wvx, wvy := s.VelocityAt(tt.wx, tt.wy, SpaceWorld)
			gvx, gvy := s.VelocityAt(gx, gy, SpaceGrid)
			if math.Abs(float64(wvx-gvx)) > 1e-4 || math.Abs(float64(wvy-gvy)) > 1e-4 {
				t.Errorf("world (%v,%v) vs grid (%v,%v) sample mismatch", wvx, wvy, gvx, gvy)
			}
		})
	}
}

func TestBoundaryModes(t *testing.T) {
	t.Run("clamp keeps outside samples finite", func(t *testing.T) {
		cfg := testConfig(t)
		s := NewSim(cfg)
		s.AddVelocity(10, 10, 5, 5, 25)

		vx, vy := s.VelocityAt(-500, -500, SpaceWorld)
		if math.IsNaN(float64(vx)) || math.IsNaN(float64(vy)) {
			t.Error("clamp-mode sample outside the world returned NaN")
		}
	})

	t.Run("wrap tiles the field", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Fluid.Boundary = "wrap"
		cfg.Rederive()
		s := NewSim(cfg)
		s.AddVelocity(cfg.Derived.WorldW32*0.25, cfg.Derived.WorldH32*0.25, 7, 3, 25)

		x := cfg.Derived.WorldW32 * 0.25
		y := cfg.Derived.WorldH32 * 0.25
		ax, ay := s.VelocityAt(x, y, SpaceWorld)
		bx, by := s.VelocityAt(x+cfg.Derived.WorldW32, y, SpaceWorld)
		if math.Abs(float64(ax-bx)) > 1e-4 || math.Abs(float64(ay-by)) > 1e-4 {
			t.Errorf("wrapped sample differs: (%v,%v) vs (%v,%v)", ax, ay, bx, by)
		}
	})
}

func TestStatsDyeFootprint(t *testing.T) {
	cfg := testConfig(t)
	s := NewSim(cfg)

	if fp := s.Stats().DyeFootprint; fp != 0 {
		t.Fatalf("empty field footprint = %v, want 0", fp)
	}
	s.AddDensity(cfg.Derived.WorldW32/2, cfg.Derived.WorldH32/2, 1, 0.5, 0.25, 25)
	st := s.Stats()
	if st.DyeFootprint <= 0 {
		t.Error("expected positive footprint after dye injection")
	}
	if st.DyeTotal <= 0 {
		t.Error("expected positive dye total after dye injection")
	}
}
