package world

import (
	"math/rand"

	"github.com/pthm-cable/brine/config"
	"github.com/pthm-cable/brine/fluid"
	"github.com/pthm-cable/brine/systems"
	"github.com/pthm-cable/brine/telemetry"
)

// World holds one simulation: the fluid backend, environment fields,
// spatial index, particle pool, and the insertion-ordered body list.
// All randomness flows through the single rng; Step never consults any
// other source.
type World struct {
	cfg     *config.Config
	rng     *rand.Rand
	seed    int64
	factory BodyFactory

	fld        fluid.Backend
	nutrients  *systems.NutrientField
	light      *systems.LightField
	viscosity  *systems.ViscosityField
	grid       *systems.SpatialGrid
	islands    *systems.IslandBuilder
	stabilizer *systems.Stabilizer
	particles  *systems.ParticleSystem
	emitters   *systems.EmitterSystem

	bodies     []Body
	tick       int64
	nextBodyID uint32

	collector *telemetry.Collector
	deaths    *telemetry.InstabilityTracker
	lifetimes *telemetry.LifetimeTracker
	leaders   *telemetry.LeaderBoard
	perf      *telemetry.PerfCollector

	recorder *impulseRecorder
	pool     *islandPool

	lastIslands systems.IslandStats
	newborns    []Body
}

// NewWorld builds a world from config and seeds the initial population.
// The same seed always produces the same trajectory. dev may be nil
// unless the config selects the device fluid backend.
func NewWorld(cfg *config.Config, factory BodyFactory, seed int64, dev fluid.Device) (*World, error) {
	fld, err := fluid.New(cfg, dev)
	if err != nil {
		return nil, err
	}
	w := newWorld(cfg, factory, seed, fld)
	w.seedPopulation()
	return w, nil
}

// newWorld wires the subsystems without admitting any bodies. The
// environment fields derive their noise seeds from the world seed so a
// restore regenerates them exactly.
func newWorld(cfg *config.Config, factory BodyFactory, seed int64, fld fluid.Backend) *World {
	wrap := cfg.Fluid.Boundary == "wrap"
	nutrients := systems.NewNutrientField(cfg, seed)

	w := &World{
		cfg:     cfg,
		rng:     rand.New(rand.NewSource(seed)),
		seed:    seed,
		factory: factory,

		fld:        fld,
		nutrients:  nutrients,
		light:      systems.NewLightField(cfg, seed+1),
		viscosity:  systems.NewViscosityField(cfg, seed+2),
		grid:       systems.NewSpatialGrid(cfg.Derived.WorldW32, cfg.Derived.WorldH32, cfg.Derived.CellSize32, wrap),
		islands:    systems.NewIslandBuilder(cfg.Execution.NeighborCells),
		stabilizer: systems.NewStabilizer(cfg),
		particles:  systems.NewParticleSystem(cfg, fld, nutrients),
		emitters:   systems.NewEmitterSystem(cfg),

		nextBodyID: 1,

		collector: telemetry.NewCollector(cfg),
		lifetimes: telemetry.NewLifetimeTracker(),
		leaders:   telemetry.NewLeaderBoard(cfg.Telemetry.LeaderBoardSize, cfg.Telemetry.LeaderMinAgeTicks),
		perf:      telemetry.NewPerfCollector(cfg.Telemetry.PerfWindow),

		recorder: &impulseRecorder{backend: fld},
	}
	if cfg.Execution.ParallelIslands {
		w.pool = newIslandPool(cfg.Derived.MaxWorkers)
	}
	return w
}

func (w *World) seedPopulation() {
	for i := 0; i < w.cfg.Population.Initial; i++ {
		x, y := w.spawnPosition()
		id := w.nextBodyID
		w.nextBodyID++
		w.admit(w.factory.CreateBody(id, x, y, w.rng))
	}
}

// spawnPosition picks a uniform position with a margin so a fresh plan
// does not instantiate across the boundary.
func (w *World) spawnPosition() (float32, float32) {
	margin := float32(w.cfg.Body.Radius) * 2
	x := margin + w.rng.Float32()*(w.cfg.Derived.WorldW32-2*margin)
	y := margin + w.rng.Float32()*(w.cfg.Derived.WorldH32-2*margin)
	return x, y
}

// admit is the single entry point for live bodies: stabilize if the
// body has not been through the stabilizer yet, wire the shared field
// references, append, and account the birth. Snapshot restores bypass
// admit because a restore is not a birth.
func (w *World) admit(b Body) {
	meta := b.Meta()
	if !meta.Stabilized {
		w.stabilizer.Stabilize(b.Shape())
		meta.Stabilized = true
	}
	w.attach(b)
	w.bodies = append(w.bodies, b)
	w.lifetimes.Register(meta)
	w.collector.RecordBirth(meta.Origin)
}

// admitChild assigns the next body ID to a newborn and credits the
// parent's lifetime record.
func (w *World) admitChild(b Body) {
	meta := b.Meta()
	meta.ID = w.nextBodyID
	w.nextBodyID++
	w.admit(b)
	w.lifetimes.RecordChild(meta.ParentID)
}

func (w *World) attach(b Body) {
	b.SetNutrientField(w.nutrients)
	b.SetLightField(w.light)
	b.SetViscosityField(w.viscosity)
	b.SetParticles(w.particles)
	b.SetSpatialGrid(w.grid)
}

// Tick returns the number of completed steps.
func (w *World) Tick() int64 { return w.tick }

// LiveBodies returns the current body count.
func (w *World) LiveBodies() int { return len(w.bodies) }

// ParticleCount returns the current particle count.
func (w *World) ParticleCount() int { return w.particles.Count() }

// Leaders exposes the reseed leader board.
func (w *World) Leaders() *telemetry.LeaderBoard { return w.leaders }

// Lifetimes exposes the per-body lifetime tracker.
func (w *World) Lifetimes() *telemetry.LifetimeTracker { return w.lifetimes }

// Perf exposes the phase timing collector.
func (w *World) Perf() *telemetry.PerfCollector { return w.perf }

// Deaths exposes the removal tracker. It is created on first use so a
// world that never removes a body never allocates the ring.
func (w *World) Deaths() *telemetry.InstabilityTracker {
	if w.deaths == nil {
		w.deaths = telemetry.NewInstabilityTracker(w.cfg)
	}
	return w.deaths
}

// Close releases the island worker pool, if any. The world must not be
// stepped after Close.
func (w *World) Close() {
	if w.pool != nil {
		w.pool.stop()
	}
}
