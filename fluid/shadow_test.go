package fluid

import (
	"errors"
	"math"
	"testing"
)

// simDevice adapts the CPU solver to the Device contract so parity
// tests can drive a DeviceBackend with a real field behind it.
type simDevice struct {
	sim *Sim
}

func (d *simDevice) AddVelocity(x, y, dx, dy, strength float32) {
	d.sim.AddVelocity(x, y, dx, dy, strength)
}

func (d *simDevice) AddDensity(x, y, r, g, b, strength float32) {
	d.sim.AddDensity(x, y, r, g, b, strength)
}

func (d *simDevice) Step() error {
	d.sim.Step()
	return nil
}

type failingDevice struct{}

func (failingDevice) AddVelocity(x, y, dx, dy, strength float32) {}
func (failingDevice) AddDensity(x, y, r, g, b, strength float32) {}
func (failingDevice) Step() error                                { return errors.New("device lost") }

func TestShadowMirrorsImpulse(t *testing.T) {
	cfg := testConfig(t)
	sf := NewShadowField(cfg)

	cx := cfg.Derived.WorldW32 / 2
	cy := cfg.Derived.WorldH32 / 2
	sf.AddVelocity(cx, cy, 8, -3, 25)

	vx, vy := sf.VelocityAt(cx, cy, SpaceWorld)
	if vx <= 0 {
		t.Errorf("shadow vx at impulse = %v, want > 0", vx)
	}
	if vy >= 0 {
		t.Errorf("shadow vy at impulse = %v, want < 0", vy)
	}
}

func TestShadowDecays(t *testing.T) {
	cfg := testConfig(t)
	sf := NewShadowField(cfg)

	cx := cfg.Derived.WorldW32 / 2
	cy := cfg.Derived.WorldH32 / 2
	sf.AddVelocity(cx, cy, 10, 0, 25)

	prev := math.Inf(1)
	for i := 0; i < 5; i++ {
		sf.Step()
		st := sf.Stats()
		if st.MaxSpeed >= prev {
			t.Fatalf("step %d: shadow speed %v did not decay from %v", i, st.MaxSpeed, prev)
		}
		prev = st.MaxSpeed
	}
	if prev > 10*float64(sf.decay) {
		t.Errorf("after 5 steps max speed %v decayed too little", prev)
	}
}

func TestDeviceBackendParityWithinTolerance(t *testing.T) {
	cfg := testConfig(t)

	ref := NewSim(cfg)
	dev := &simDevice{sim: NewSim(cfg)}
	backend := NewDeviceBackend(cfg, dev)

	cx := cfg.Derived.WorldW32 * 0.5
	cy := cfg.Derived.WorldH32 * 0.5
	ref.AddVelocity(cx, cy, 15, 6, 25)
	backend.AddVelocity(cx, cy, 15, 6, 25)

	ref.Step()
	backend.Step()

	rvx, rvy := ref.VelocityAt(cx, cy, SpaceWorld)
	svx, svy := backend.VelocityAt(cx, cy, SpaceWorld)

	// The shadow is an approximation; require directional agreement
	// and the same order of magnitude, not equality.
	dot := float64(rvx*svx + rvy*svy)
	if dot <= 0 {
		t.Errorf("shadow disagrees with solver direction: ref=(%v,%v) shadow=(%v,%v)", rvx, rvy, svx, svy)
	}
	refMag := math.Hypot(float64(rvx), float64(rvy))
	shMag := math.Hypot(float64(svx), float64(svy))
	if shMag > refMag*4 || shMag < refMag/4 {
		t.Errorf("shadow magnitude %v outside tolerance of solver magnitude %v", shMag, refMag)
	}
}

func TestDeviceErrorDoesNotStopStepping(t *testing.T) {
	cfg := testConfig(t)
	backend := NewDeviceBackend(cfg, failingDevice{})

	backend.AddVelocity(cfg.Derived.WorldW32/2, cfg.Derived.WorldH32/2, 5, 0, 25)
	backend.Step()
	backend.Step()

	count, err := backend.DeviceErr()
	if count != 2 {
		t.Errorf("device error count = %d, want 2", count)
	}
	if err == nil {
		t.Error("expected retained device error")
	}
	// The shadow keeps answering queries regardless.
	vx, _ := backend.VelocityAt(cfg.Derived.WorldW32/2, cfg.Derived.WorldH32/2, SpaceWorld)
	if vx <= 0 {
		t.Errorf("shadow sample after device failure = %v, want > 0", vx)
	}
}
