// Package world owns the per-tick orchestration: it holds the live
// body and particle populations, the fluid backend and environment
// fields, and advances everything in a fixed step sequence. Bodies
// themselves are opaque behind the Body contract; the world only
// schedules them, enforces population policy, and accounts removals.
package world

import (
	"math/rand"

	"github.com/pthm-cable/brine/components"
	"github.com/pthm-cable/brine/fluid"
	"github.com/pthm-cable/brine/systems"
)

// Body is the contract a soft-body creature fulfills. UpdateSelf
// advances the body's own physics and energy for one tick and may
// mark the lifecycle unstable; the world never mutates body internals
// directly. Setters rewire shared references whenever a body enters
// the world, so implementations must tolerate repeated calls.
type Body interface {
	ID() uint32
	Shape() *components.SoftBody
	Meta() *components.Lifecycle
	Energy() float64

	UpdateSelf(dt float32, f fluid.Backend)

	// CanReproduce is the body's own gate: stable, energy above the
	// configured threshold, cooldown expired, lifetime cap not hit.
	CanReproduce(tick int64) bool

	// Reproduce yields up to maxOffspring children carrying lineage
	// metadata but no IDs; the world assigns IDs when appending.
	Reproduce(maxOffspring int, tick int64, rng *rand.Rand) []Body

	SetNutrientField(nf *systems.NutrientField)
	SetLightField(lf *systems.LightField)
	SetViscosityField(vf *systems.ViscosityField)
	SetParticles(ps *systems.ParticleSystem)
	SetSpatialGrid(grid *systems.SpatialGrid)
}

// BodyFactory builds bodies for the world. CreateBody produces a
// fresh body from the factory's default plan; RestoreBody rebuilds
// one from captured geometry, used by snapshot restore and by
// leader-board reseeding.
type BodyFactory interface {
	CreateBody(id uint32, x, y float32, rng *rand.Rand) Body
	RestoreBody(lc components.Lifecycle, energy float64, shape *components.SoftBody) Body
}
