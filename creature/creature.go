// Package creature implements the soft-body organisms that inhabit
// the world: blueprint-stamped Verlet mass-spring shapes coupled to
// the fluid, metabolising nutrients, light, and drifting particles
// into energy, and splitting off offspring when they can afford it.
package creature

import (
	"math"
	"math/rand"

	"github.com/pthm-cable/brine/components"
	"github.com/pthm-cable/brine/systems"
	"github.com/pthm-cable/brine/world"
)

// Creature is the canonical world.Body. All per-tick work happens in
// UpdateSelf; the world schedules it, reads state, and collects
// offspring, but never mutates creature internals.
type Creature struct {
	lc     components.Lifecycle
	shape  *components.SoftBody
	bp     *Blueprint
	par    *params
	energy float64

	ticks    int64   // local tick count driving the fin oscillator
	finPhase float32 // randomized so siblings do not stroke in sync

	// Captured lazily on the first update, after the birth
	// stabilization pass has finalized scale and rest lengths.
	baseRest []float32
	baseDiag float32

	nutrients *systems.NutrientField
	light     *systems.LightField
	viscosity *systems.ViscosityField
	particles *systems.ParticleSystem
	grid      *systems.SpatialGrid

	// Scratch reused across ticks to keep the update loop
	// allocation-free.
	fx, fy    []float32
	neighbors []systems.PointNeighbor
}

var _ world.Body = (*Creature)(nil)

func (c *Creature) ID() uint32 { return c.lc.ID }

func (c *Creature) Shape() *components.SoftBody { return c.shape }

func (c *Creature) Meta() *components.Lifecycle { return &c.lc }

func (c *Creature) Energy() float64 { return c.energy }

func (c *Creature) SetNutrientField(nf *systems.NutrientField) { c.nutrients = nf }

func (c *Creature) SetLightField(lf *systems.LightField) { c.light = lf }

func (c *Creature) SetViscosityField(vf *systems.ViscosityField) { c.viscosity = vf }

func (c *Creature) SetParticles(ps *systems.ParticleSystem) { c.particles = ps }

func (c *Creature) SetSpatialGrid(g *systems.SpatialGrid) { c.grid = g }

// CanReproduce gates on the body's own state only. The global toggle
// and the population ceiling are the world's checks.
func (c *Creature) CanReproduce(tick int64) bool {
	if c.lc.Unstable {
		return false
	}
	if c.energy < c.par.reproThreshold {
		return false
	}
	if tick < c.lc.CooldownUntil {
		return false
	}
	if c.par.maxReproCount > 0 && c.lc.ReproCount >= c.par.maxReproCount {
		return false
	}
	return true
}

// Reproduce splits off up to maxOffspring children, each funded by the
// configured fraction of the parent's remaining energy and placed at a
// random angle near the parent. Children carry lineage metadata but no
// ID; the world assigns IDs when it admits them. One call counts as
// one reproduction regardless of litter size.
func (c *Creature) Reproduce(maxOffspring int, tick int64, rng *rand.Rand) []world.Body {
	if maxOffspring <= 0 {
		return nil
	}
	cx, cy := c.shape.Centroid()
	children := make([]world.Body, 0, maxOffspring)
	for i := 0; i < maxOffspring; i++ {
		childEnergy := c.energy * c.par.energySplit
		c.energy -= childEnergy

		ang := rng.Float64() * 2 * math.Pi
		dist := c.par.spawnOffset + rng.Float32()*10
		x := cx + dist*float32(math.Cos(ang))
		y := cy + dist*float32(math.Sin(ang))

		child := &Creature{
			lc: components.Lifecycle{
				Origin:     components.OriginReproduced,
				Generation: c.lc.Generation + 1,
				ParentID:   c.lc.ID,
				LineageID:  c.lc.LineageID,
				BirthTick:  tick,
			},
			bp:       c.bp.Clone(),
			par:      c.par,
			energy:   childEnergy,
			finPhase: rng.Float32() * float32(c.par.finPeriod),
		}
		child.shape = child.bp.Instantiate(x, y)
		children = append(children, child)
	}
	c.lc.ReproCount++
	c.lc.CooldownUntil = tick + c.par.cooldownTicks
	return children
}
