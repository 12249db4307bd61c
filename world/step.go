package world

import (
	"log/slog"

	"github.com/pthm-cable/brine/components"
	"github.com/pthm-cable/brine/fluid"
	"github.com/pthm-cable/brine/systems"
	"github.com/pthm-cable/brine/telemetry"
)

// leaderReseedChance is the probability a floor spawn revives a leader
// board lineage instead of rolling a fresh plan, keeping some plan
// diversity flowing even when the board is full.
const leaderReseedChance = 0.5

// SuppressionCounts breaks down reproduction gate failures for one
// tick, one counter per gate in check order.
type SuppressionCounts struct {
	Disabled int
	Ceiling  int
	Energy   int
	Cooldown int
}

// TickSummary reports what one Step did. It is a pure return value;
// window accounting lives in the collector and is flushed separately.
type TickSummary struct {
	Tick      int64
	Live      int
	Particles int

	Births      int
	FloorSpawns int

	Removed           int
	RemovedPhysics    int
	RemovedNonPhysics int
	Deaths            []telemetry.DeathRecord

	Suppressed SuppressionCounts

	EmittersFired int
	Islands       systems.IslandStats
	Fluid         fluid.FieldStats
}

// Step advances the world one tick. The phase order is fixed: fields,
// catch-up stabilization, grid rebuild, emitters, particle upkeep,
// fluid, body updates, reproduction, particle aging, removal, floor
// spawn. Body fluid reactions are queued during the update phase and
// merged afterwards in island order, so every body reads the same
// field regardless of execution order or worker scheduling.
func (w *World) Step() TickSummary {
	w.perf.StartTick()
	w.tick++
	deaths := w.Deaths()
	sum := TickSummary{Tick: w.tick}

	w.perf.StartPhase(telemetry.PhaseFields)
	w.nutrients.Step()
	w.light.Step(w.tick)

	// Bodies injected outside the admission paths still get one
	// stabilizer pass before touching the grid.
	for _, b := range w.bodies {
		if meta := b.Meta(); !meta.Stabilized {
			w.stabilizer.Stabilize(b.Shape())
			meta.Stabilized = true
		}
	}

	w.perf.StartPhase(telemetry.PhaseSpatialGrid)
	w.rebuildGrid()

	w.perf.StartPhase(telemetry.PhaseEmitters)
	sum.EmittersFired = w.emitters.Apply(w.tick, w.fld)

	w.perf.StartPhase(telemetry.PhaseParticles)
	w.particles.Maintain(w.rng)

	w.perf.StartPhase(telemetry.PhaseFluid)
	w.fld.Step()

	w.perf.StartPhase(telemetry.PhaseIslands)
	islands, istats := w.islands.Partition(w.grid, len(w.bodies))
	w.lastIslands = istats
	sum.Islands = istats
	order := w.executionOrder(islands)

	w.perf.StartPhase(telemetry.PhaseBodies)
	w.updateBodies(order, islands)

	w.perf.StartPhase(telemetry.PhaseReproduction)
	w.reproducePass(order, &sum)

	w.perf.StartPhase(telemetry.PhaseParticles)
	w.particles.Update()
	w.particles.CullExpired()

	w.perf.StartPhase(telemetry.PhaseCleanup)
	w.removeUnstable(deaths, &sum)

	w.perf.StartPhase(telemetry.PhaseSpawn)
	w.maintainFloor(&sum)

	w.perf.StartPhase(telemetry.PhaseTelemetry)
	for _, b := range w.bodies {
		w.lifetimes.UpdateEnergy(b.ID(), b.Energy())
	}
	sum.Live = len(w.bodies)
	sum.Particles = w.particles.Count()
	sum.Fluid = w.fld.Stats()

	w.perf.EndTick()
	return sum
}

// rebuildGrid re-indexes every body point and particle. Queries made
// during the tick resolve against these start-of-tick positions.
func (w *World) rebuildGrid() {
	w.grid.Clear()
	for bi, b := range w.bodies {
		pts := b.Shape().Points
		for pi := range pts {
			ref := systems.PointRef{Body: int32(bi), Point: int32(pi)}
			w.grid.InsertPoint(ref, b.ID(), pts[pi].X, pts[pi].Y)
		}
	}
	w.particles.InsertInto(w.grid)
}

// executionOrder flattens the partition under the configured policy.
// With parallel islands enabled the order is always the deterministic
// one: worker dispatch follows the partition itself, and the shuffled
// policy only makes sense for a serial walk.
func (w *World) executionOrder(islands [][]int32) []int32 {
	mode := w.cfg.Execution.Mode
	shuffle := w.cfg.Execution.ShuffleWithinIsland
	if w.pool != nil {
		mode = systems.OrderIslandsDeterministic
		shuffle = false
	}
	return w.islands.Order(mode, islands, len(w.bodies), w.rng, shuffle)
}

func (w *World) updateBodies(order []int32, islands [][]int32) {
	dt := w.cfg.Derived.DT32
	if w.pool != nil && len(islands) >= w.cfg.Execution.ParallelThreshold {
		w.pool.run(w.fld, w.bodies, islands, dt)
		return
	}

	w.recorder.reset()
	for _, bi := range order {
		w.bodies[bi].UpdateSelf(dt, w.recorder)
	}
	w.recorder.replay()
}

// reproducePass walks bodies in execution order and applies the gates:
// reproduction enabled, ceiling headroom, energy threshold, cooldown.
// The first failing gate is counted and ends the attempt. Bodies that
// pass every gate are still asked via CanReproduce, which also covers
// the lifetime cap; that refusal is the body's own and is not counted
// as suppression.
func (w *World) reproducePass(order []int32, sum *TickSummary) {
	rcfg := &w.cfg.Reproduction
	ceiling := w.cfg.Population.Ceiling
	w.newborns = w.newborns[:0]

	for _, bi := range order {
		b := w.bodies[bi]
		meta := b.Meta()
		if meta.Unstable {
			continue
		}

		if !rcfg.Enabled {
			w.suppress(telemetry.SuppressDisabled, &sum.Suppressed.Disabled)
			continue
		}
		slots := ceiling - len(w.bodies) - len(w.newborns)
		if slots <= 0 {
			w.suppress(telemetry.SuppressCeiling, &sum.Suppressed.Ceiling)
			continue
		}
		if b.Energy() < rcfg.EnergyThreshold {
			w.suppress(telemetry.SuppressEnergy, &sum.Suppressed.Energy)
			continue
		}
		if w.tick < meta.CooldownUntil {
			w.suppress(telemetry.SuppressCooldown, &sum.Suppressed.Cooldown)
			continue
		}
		if !b.CanReproduce(w.tick) {
			continue
		}

		budget := min(rcfg.MaxOffspring, slots)
		w.newborns = append(w.newborns, b.Reproduce(budget, w.tick, w.rng)...)
	}

	for _, child := range w.newborns {
		w.admitChild(child)
		sum.Births++
	}
}

func (w *World) suppress(r telemetry.SuppressReason, counter *int) {
	w.collector.RecordSuppression(r)
	*counter++
}

// removeUnstable drops every body whose update marked it unstable,
// folding its lifetime, recording the death, and offering it to the
// leader board. Survivors keep their insertion order.
func (w *World) removeUnstable(deaths *telemetry.InstabilityTracker, sum *TickSummary) {
	alive := 0
	for _, b := range w.bodies {
		meta := b.Meta()
		if !meta.Unstable {
			w.bodies[alive] = b
			alive++
			continue
		}

		shape := b.Shape()
		energy := b.Energy()
		state := telemetry.CaptureBody(meta, energy, shape)
		cx, cy := shape.Centroid()
		rec := deaths.Observe(w.tick, meta.UnstableReason, meta, len(shape.Points), len(shape.Springs), energy, cx, cy, nil)
		stats := w.lifetimes.Fold(meta.ID, w.tick, energy)
		w.leaders.Consider(rec, stats, state)
		w.collector.RecordRemoval(rec.Class, energy)

		sum.Removed++
		switch rec.Class {
		case telemetry.ClassPhysics:
			sum.RemovedPhysics++
		case telemetry.ClassNonPhysics:
			sum.RemovedNonPhysics++
		}
		sum.Deaths = append(sum.Deaths, rec)
	}
	for i := alive; i < len(w.bodies); i++ {
		w.bodies[i] = nil
	}
	w.bodies = w.bodies[:alive]
}

// maintainFloor spawns bodies until the population floor holds. Spawns
// revive a leader board lineage by coin flip when the board has
// entries; otherwise they roll a fresh plan.
func (w *World) maintainFloor(sum *TickSummary) {
	for len(w.bodies) < w.cfg.Population.Floor {
		x, y := w.spawnPosition()
		if w.leaders.Size() > 0 && w.rng.Float64() < leaderReseedChance {
			w.reseedFromLeader(w.leaders.Sample(w.rng), x, y)
		} else {
			w.spawnFresh(x, y)
		}
		sum.FloorSpawns++
	}
}

func (w *World) spawnFresh(x, y float32) {
	id := w.nextBodyID
	w.nextBodyID++
	b := w.factory.CreateBody(id, x, y, w.rng)
	meta := b.Meta()
	meta.Origin = components.OriginFloorSpawn
	meta.BirthTick = w.tick
	w.admit(b)
}

// reseedFromLeader rebuilds a leader's captured geometry at a new
// position under a fresh lifecycle that extends the old lineage.
func (w *World) reseedFromLeader(entry *telemetry.LeaderEntry, x, y float32) {
	state := telemetry.BodyState{Points: entry.Points, Springs: entry.Springs}
	shape := state.Geometry()
	centerShape(shape, x, y)

	id := w.nextBodyID
	w.nextBodyID++
	lc := components.Lifecycle{
		ID:         id,
		Origin:     components.OriginFloorSpawn,
		Generation: entry.Generation + 1,
		ParentID:   entry.BodyID,
		LineageID:  entry.LineageID,
		BirthTick:  w.tick,
	}
	b := w.factory.RestoreBody(lc, w.cfg.Energy.Initial, shape)
	w.admit(b)

	slog.Info("leader reseed",
		"tick", w.tick,
		"body", id,
		"lineage", entry.LineageID,
		"generation", lc.Generation,
		"fitness", entry.Fitness,
	)
}

// centerShape translates a body so its centroid lands on (x,y),
// carrying the previous positions so no velocity is introduced.
func centerShape(sb *components.SoftBody, x, y float32) {
	cx, cy := sb.Centroid()
	dx, dy := x-cx, y-cy
	for i := range sb.Points {
		p := &sb.Points[i]
		p.X += dx
		p.Y += dy
		p.PrevX += dx
		p.PrevY += dy
	}
}
