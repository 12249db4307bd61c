package creature

import (
	"math/rand"

	"github.com/pthm-cable/brine/components"
	"github.com/pthm-cable/brine/config"
	"github.com/pthm-cable/brine/world"
)

// params is the resolved slice of config a creature touches every
// tick, converted once to the types the hot loop wants. One instance
// is shared by every body a factory creates.
type params struct {
	dragCoeff        float32
	fluidReaction    float32
	contactRadius    float32
	contactStiffness float32
	mouthReach       float32
	maxStepTravel    float32
	explosionFactor  float32
	finAmplitude     float32
	finPeriod        int

	worldW, worldH float32
	wrap           bool

	baseCost      float64
	moveCost      float64
	grazeRate     float32
	grazeEff      float64
	photoRate     float64
	particleValue float64
	maxEnergy     float64
	initialEnergy float64

	reproThreshold float64
	cooldownTicks  int64
	maxReproCount  int32
	energySplit    float64
	spawnOffset    float32
}

func resolveParams(cfg *config.Config) *params {
	return &params{
		dragCoeff:        float32(cfg.Body.DragCoefficient),
		fluidReaction:    float32(cfg.Body.FluidReaction),
		contactRadius:    float32(cfg.Body.ContactRadius),
		contactStiffness: float32(cfg.Body.ContactStiffness),
		mouthReach:       float32(cfg.Body.MouthReach),
		maxStepTravel:    float32(cfg.Body.MaxStepTravel),
		explosionFactor:  float32(cfg.Body.ExplosionFactor),
		finAmplitude:     float32(cfg.Body.FinAmplitude),
		finPeriod:        cfg.Body.FinPeriodTicks,

		worldW: cfg.Derived.WorldW32,
		worldH: cfg.Derived.WorldH32,
		wrap:   cfg.Fluid.Boundary == "wrap",

		baseCost:      cfg.Energy.BaseCost,
		moveCost:      cfg.Energy.MoveCost,
		grazeRate:     float32(cfg.Energy.GrazeRate),
		grazeEff:      cfg.Energy.GrazeEfficiency,
		photoRate:     cfg.Energy.PhotoRate,
		particleValue: cfg.Energy.ParticleValue,
		maxEnergy:     cfg.Energy.Max,
		initialEnergy: cfg.Energy.Initial,

		reproThreshold: cfg.Reproduction.EnergyThreshold,
		cooldownTicks:  int64(cfg.Reproduction.CooldownTicks),
		maxReproCount:  int32(cfg.Reproduction.MaxReproCount),
		energySplit:    cfg.Reproduction.EnergySplit,
		spawnOffset:    float32(cfg.Reproduction.SpawnOffset),
	}
}

// Factory builds creatures from a resolved config. It satisfies
// world.BodyFactory.
type Factory struct {
	cfg *config.Config
	par *params
}

var _ world.BodyFactory = (*Factory)(nil)

// NewFactory resolves the config once and returns a factory whose
// bodies all share the resolved parameters.
func NewFactory(cfg *config.Config) *Factory {
	return &Factory{cfg: cfg, par: resolveParams(cfg)}
}

// CreateBody stamps a fresh default-plan creature at a position. The
// body starts its own lineage; callers adjust origin and birth tick
// through Meta for non-seed spawns.
func (f *Factory) CreateBody(id uint32, x, y float32, rng *rand.Rand) world.Body {
	bp := DefaultPlan(f.cfg, rng)
	c := &Creature{
		lc: components.Lifecycle{
			ID:        id,
			Origin:    components.OriginSeed,
			LineageID: id,
		},
		bp:       bp,
		par:      f.par,
		energy:   f.par.initialEnergy,
		finPhase: rng.Float32() * float32(f.par.finPeriod),
	}
	c.shape = bp.Instantiate(x, y)
	return c
}

// RestoreBody rebuilds a creature around captured geometry with its
// lifecycle carried over verbatim. Snapshot restore and leader-board
// reseeding both come through here. The fin phase derives from the ID
// so restores stay deterministic.
func (f *Factory) RestoreBody(lc components.Lifecycle, energy float64, shape *components.SoftBody) world.Body {
	c := &Creature{
		lc:     lc,
		shape:  shape,
		bp:     BlueprintFromShape(shape),
		par:    f.par,
		energy: energy,
	}
	if f.par.finPeriod > 0 {
		c.finPhase = float32(lc.ID % uint32(f.par.finPeriod))
	}
	return c
}
