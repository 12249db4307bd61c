package systems

import (
	"math/rand"
	"testing"

	"github.com/pthm-cable/brine/config"
	"github.com/pthm-cable/brine/fluid"
)

func particleFixture(t *testing.T, mutate func(*config.Config)) (*ParticleSystem, *config.Config) {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("loading defaults: %v", err)
	}
	if mutate != nil {
		mutate(cfg)
		cfg.Rederive()
	}
	sim := fluid.NewSim(cfg)
	nf := NewNutrientField(cfg, 1)
	return NewParticleSystem(cfg, sim, nf), cfg
}

func TestMaintainRefillsToFloor(t *testing.T) {
	ps, cfg := particleFixture(t, nil)
	rng := rand.New(rand.NewSource(1))

	spawned := ps.Maintain(rng)
	if spawned != cfg.Particles.Floor {
		t.Fatalf("spawned = %d, want floor %d", spawned, cfg.Particles.Floor)
	}
	if ps.Count() != cfg.Particles.Floor {
		t.Fatalf("count = %d, want %d", ps.Count(), cfg.Particles.Floor)
	}
}

func TestMaintainAccruesFractionalDebt(t *testing.T) {
	ps, _ := particleFixture(t, func(cfg *config.Config) {
		cfg.Particles.Floor = 0
		cfg.Particles.EmissionRate = 1.5
	})
	rng := rand.New(rand.NewSource(1))

	// 1.5/tick: whole particles come out as 1, 2, 1, 2 while the
	// half-particle debt carries over.
	want := []int{1, 2, 1, 2}
	for i, w := range want {
		if got := ps.Maintain(rng); got != w {
			t.Fatalf("tick %d spawned %d, want %d", i, got, w)
		}
	}
}

func TestMaintainRespectsMaxCount(t *testing.T) {
	ps, cfg := particleFixture(t, func(cfg *config.Config) {
		cfg.Particles.Floor = 0
		cfg.Particles.EmissionRate = 50
		cfg.Particles.MaxCount = 10
	})
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 5; i++ {
		ps.Maintain(rng)
		if ps.Count() > cfg.Particles.MaxCount {
			t.Fatalf("tick %d: count %d exceeds max %d", i, ps.Count(), cfg.Particles.MaxCount)
		}
	}
	if ps.Count() != cfg.Particles.MaxCount {
		t.Fatalf("count = %d, want pool filled to %d", ps.Count(), cfg.Particles.MaxCount)
	}
}

func TestParticlesFollowFlow(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("loading defaults: %v", err)
	}
	cfg.Particles.Drag = 1 // snap to fluid velocity
	cfg.Rederive()
	sim := fluid.NewSim(cfg)
	ps := NewParticleSystem(cfg, sim, nil)
	rng := rand.New(rand.NewSource(1))

	cx, cy := cfg.Derived.WorldW32/2, cfg.Derived.WorldH32/2
	sim.AddVelocity(cx, cy, 30, 0, 20)

	ps.Spawn(cx, cy, rng)
	startX := cx

	for i := 0; i < 10; i++ {
		ps.Update()
	}

	var endX float32
	query := ps.filter.Query()
	for query.Next() {
		pos, _, _ := query.Get()
		endX = pos.X
	}
	if endX <= startX {
		t.Errorf("particle did not drift with the flow: %v -> %v", startX, endX)
	}
}

func TestCullExpiredRecyclesNutrients(t *testing.T) {
	ps, _ := particleFixture(t, func(cfg *config.Config) {
		cfg.Particles.Floor = 0
		cfg.Particles.LifeTicks = 1
		cfg.Particles.LifeJitter = 0
	})
	rng := rand.New(rand.NewSource(1))

	ps.Spawn(600, 400, rng)
	before := ps.nutrients.Total()

	ps.Update() // life hits zero
	culled := ps.CullExpired()

	if culled != 1 {
		t.Fatalf("culled = %d, want 1", culled)
	}
	if ps.Count() != 0 {
		t.Fatalf("count = %d after cull, want 0", ps.Count())
	}
	after := ps.nutrients.Total()
	if after <= before-1e-6 {
		t.Errorf("nutrients not recycled: %v -> %v", before, after)
	}
}

func TestCullLeavesYoungParticles(t *testing.T) {
	ps, _ := particleFixture(t, func(cfg *config.Config) {
		cfg.Particles.Floor = 0
		cfg.Particles.LifeTicks = 100
		cfg.Particles.LifeJitter = 0
	})
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 5; i++ {
		ps.Spawn(float32(100+i*50), 400, rng)
	}
	ps.Update()
	if culled := ps.CullExpired(); culled != 0 {
		t.Fatalf("culled %d young particles", culled)
	}
	if ps.Count() != 5 {
		t.Fatalf("count = %d, want 5", ps.Count())
	}
}

func TestInsertIntoGrid(t *testing.T) {
	ps, cfg := particleFixture(t, func(cfg *config.Config) {
		cfg.Particles.Floor = 20
	})
	rng := rand.New(rand.NewSource(1))
	ps.Maintain(rng)

	grid := NewSpatialGrid(cfg.Derived.WorldW32, cfg.Derived.WorldH32, cfg.Derived.CellSize32, false)
	ps.InsertInto(grid)

	if total := grid.ParticleLoad(); total != 20 {
		t.Errorf("grid holds %d particle refs, want 20", total)
	}
}

func TestParticleMassBudget(t *testing.T) {
	// Emission debt never creates more than rate*ticks particles.
	ps, _ := particleFixture(t, func(cfg *config.Config) {
		cfg.Particles.Floor = 0
		cfg.Particles.EmissionRate = 0.3
	})
	rng := rand.New(rand.NewSource(1))

	total := 0
	for i := 0; i < 100; i++ {
		total += ps.Maintain(rng)
	}
	if total > 30 {
		t.Errorf("100 ticks at 0.3/tick spawned %d, want <= 30", total)
	}
	if total < 29 {
		t.Errorf("100 ticks at 0.3/tick spawned %d, want >= 29", total)
	}
}
