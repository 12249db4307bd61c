package systems

import (
	"math/rand"
	"sync"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/brine/components"
	"github.com/pthm-cable/brine/config"
	"github.com/pthm-cable/brine/fluid"
)

// ParticleSystem owns the drifting tracer particles. Particles carry
// no behavior of their own: they relax toward the local fluid
// velocity, age out, and return a little nutrient mass where they
// expire.
type ParticleSystem struct {
	world  *ecs.World
	mapper *ecs.Map3[components.Position, components.Velocity, components.Life]
	filter *ecs.Filter3[components.Position, components.Velocity, components.Life]
	posMap *ecs.Map1[components.Position]

	fluidField fluid.Backend
	nutrients  *NutrientField

	worldW, worldH float32
	wrap           bool
	dt             float32
	drag           float32
	floor          int
	maxCount       int
	emissionRate   float64
	lifeTicks      float64
	lifeJitter     float64
	recycle        float32

	count    int
	emitDebt float64

	// Guards entity removal in ConsumeNear, which island workers may
	// call concurrently. Island separation keeps their reach disjoint,
	// so removals commute; the store itself still needs one writer.
	mu sync.Mutex

	// Scratch for collect-then-apply culling.
	expired []expiredParticle
}

type expiredParticle struct {
	entity ecs.Entity
	x, y   float32
}

// NewParticleSystem creates an empty particle pool coupled to the
// fluid backend and nutrient field.
func NewParticleSystem(cfg *config.Config, fluidField fluid.Backend, nutrients *NutrientField) *ParticleSystem {
	world := ecs.NewWorld()
	pc := cfg.Particles
	return &ParticleSystem{
		world:        world,
		mapper:       ecs.NewMap3[components.Position, components.Velocity, components.Life](world),
		filter:       ecs.NewFilter3[components.Position, components.Velocity, components.Life](world),
		posMap:       ecs.NewMap1[components.Position](world),
		fluidField:   fluidField,
		nutrients:    nutrients,
		worldW:       cfg.Derived.WorldW32,
		worldH:       cfg.Derived.WorldH32,
		wrap:         cfg.Fluid.Boundary == "wrap",
		dt:           cfg.Derived.DT32,
		drag:         float32(pc.Drag),
		floor:        pc.Floor,
		maxCount:     pc.MaxCount,
		emissionRate: pc.EmissionRate,
		lifeTicks:    pc.LifeTicks,
		lifeJitter:   pc.LifeJitter,
		recycle:      float32(pc.NutrientRecycle),
	}
}

// Count returns the number of live particles.
func (ps *ParticleSystem) Count() int { return ps.count }

// Spawn creates one particle at (x,y) with jittered life and a small
// random initial velocity.
func (ps *ParticleSystem) Spawn(x, y float32, rng *rand.Rand) ecs.Entity {
	pos := components.Position{X: x, Y: y}
	vel := components.Velocity{
		X: (rng.Float32()*2 - 1) * 2,
		Y: (rng.Float32()*2 - 1) * 2,
	}
	life := components.Life{
		Remaining: float32(ps.lifeTicks * (1 + ps.lifeJitter*(2*rng.Float64()-1))),
	}
	entity := ps.mapper.NewEntity(&pos, &vel, &life)
	ps.count++
	return entity
}

// Maintain enforces the population policy for one tick: refill to the
// floor when below it, otherwise accrue fractional emission debt and
// spawn whole particles while the pool has room. Returns the number
// spawned.
func (ps *ParticleSystem) Maintain(rng *rand.Rand) int {
	spawned := 0
	if ps.count < ps.floor {
		need := ps.floor - ps.count
		for i := 0; i < need; i++ {
			ps.Spawn(rng.Float32()*ps.worldW, rng.Float32()*ps.worldH, rng)
			spawned++
		}
		return spawned
	}

	ps.emitDebt += ps.emissionRate
	for ps.emitDebt >= 1 && ps.count < ps.maxCount {
		ps.Spawn(rng.Float32()*ps.worldW, rng.Float32()*ps.worldH, rng)
		ps.emitDebt--
		spawned++
	}
	if ps.emitDebt > float64(ps.maxCount) {
		ps.emitDebt = float64(ps.maxCount)
	}
	return spawned
}

// Update advances every particle one tick: blend velocity toward the
// sampled fluid flow, integrate, apply the boundary, and age.
func (ps *ParticleSystem) Update() {
	query := ps.filter.Query()
	for query.Next() {
		pos, vel, life := query.Get()

		fvx, fvy := ps.fluidField.VelocityAt(pos.X, pos.Y, fluid.SpaceWorld)
		vel.X += (fvx - vel.X) * ps.drag
		vel.Y += (fvy - vel.Y) * ps.drag

		pos.X += vel.X * ps.dt
		pos.Y += vel.Y * ps.dt

		if ps.wrap {
			pos.X = envFract(pos.X/ps.worldW) * ps.worldW
			pos.Y = envFract(pos.Y/ps.worldH) * ps.worldH
		} else {
			if pos.X < 0 {
				pos.X, vel.X = 0, 0
			} else if pos.X > ps.worldW {
				pos.X, vel.X = ps.worldW, 0
			}
			if pos.Y < 0 {
				pos.Y, vel.Y = 0, 0
			} else if pos.Y > ps.worldH {
				pos.Y, vel.Y = ps.worldH, 0
			}
		}

		life.Remaining--
	}
}

// CullExpired removes particles whose life ran out, recycling their
// nutrient mass into the field. Returns the number removed.
func (ps *ParticleSystem) CullExpired() int {
	ps.expired = ps.expired[:0]

	query := ps.filter.Query()
	for query.Next() {
		pos, _, life := query.Get()
		if life.Remaining <= 0 {
			ps.expired = append(ps.expired, expiredParticle{
				entity: query.Entity(), x: pos.X, y: pos.Y,
			})
		}
	}

	// Remove after iteration completes.
	for _, e := range ps.expired {
		if ps.nutrients != nil && ps.recycle > 0 {
			ps.nutrients.Deposit(e.x, e.y, ps.recycle)
		}
		ps.mapper.Remove(e.entity)
		ps.count--
	}
	return len(ps.expired)
}

// InsertInto registers every particle with the spatial grid for
// neighborhood queries.
func (ps *ParticleSystem) InsertInto(grid *SpatialGrid) {
	query := ps.filter.Query()
	for query.Next() {
		pos, _, _ := query.Get()
		grid.InsertParticle(query.Entity(), pos.X, pos.Y)
	}
}

// ConsumeNear removes particles within radius of (x,y), using the
// grid's particle buckets from the last rebuild. Grid entries may be
// stale within the tick, so liveness is checked per entity. Returns
// the number swallowed.
func (ps *ParticleSystem) ConsumeNear(grid *SpatialGrid, x, y, radius float32) int {
	if grid == nil {
		return 0
	}
	ps.mu.Lock()
	defer ps.mu.Unlock()

	cellRadius := int(radius/grid.CellSize()) + 1
	centerCol, centerRow := grid.CellCoords(x, y)
	radiusSq := radius * radius
	cols, rows := grid.Cols(), grid.Rows()

	eaten := 0
	for dr := -cellRadius; dr <= cellRadius; dr++ {
		for dc := -cellRadius; dc <= cellRadius; dc++ {
			col, row := centerCol+dc, centerRow+dr
			if grid.wrap {
				col, row = sysModInt(col, cols), sysModInt(row, rows)
			} else if col < 0 || col >= cols || row < 0 || row >= rows {
				continue
			}
			for _, e := range grid.ParticlesIn(col, row) {
				if !ps.world.Alive(e) {
					continue
				}
				pos := ps.posMap.Get(e)
				ddx, ddy := grid.delta(x, y, pos.X, pos.Y)
				if ddx*ddx+ddy*ddy > radiusSq {
					continue
				}
				ps.mapper.Remove(e)
				ps.count--
				eaten++
			}
		}
	}
	return eaten
}
