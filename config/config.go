// Package config provides configuration loading and validation for the
// simulation. Load returns an explicit *Config that callers thread into
// every constructor; there is no package-level instance.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"runtime"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	World        WorldConfig        `yaml:"world"`
	Physics      PhysicsConfig      `yaml:"physics"`
	Fluid        FluidConfig        `yaml:"fluid"`
	Execution    ExecutionConfig    `yaml:"execution"`
	Stabilizer   StabilizerConfig   `yaml:"stabilizer"`
	Population   PopulationConfig   `yaml:"population"`
	Reproduction ReproductionConfig `yaml:"reproduction"`
	Energy       EnergyConfig       `yaml:"energy"`
	Body         BodyConfig         `yaml:"body"`
	Particles    ParticlesConfig    `yaml:"particles"`
	Nutrients    NutrientsConfig    `yaml:"nutrients"`
	Light        LightConfig        `yaml:"light"`
	Viscosity    ViscosityConfig    `yaml:"viscosity"`
	Emitters     []EmitterConfig    `yaml:"emitters"`
	Telemetry    TelemetryConfig    `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// WorldConfig holds simulation world dimensions in world units.
type WorldConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// PhysicsConfig holds integration parameters.
type PhysicsConfig struct {
	DT           float64 `yaml:"dt"`             // timestep per tick
	GridCellSize float64 `yaml:"grid_cell_size"` // spatial hash cell size in world units
}

// FluidConfig holds fluid solver parameters. Iteration counts and
// splat radii are tuned values, not invariants; change freely.
type FluidConfig struct {
	Backend            string  `yaml:"backend"`              // cpu | device
	GridWidth          int     `yaml:"grid_width"`           // solver cells across
	GridHeight         int     `yaml:"grid_height"`          // solver cells down
	Viscosity          float64 `yaml:"viscosity"`            // kinematic viscosity for decay 1/(1+4*nu*dt)
	DiffusionIters     int     `yaml:"diffusion_iters"`      // Jacobi velocity diffusion sweeps
	PressureIters      int     `yaml:"pressure_iters"`       // Jacobi pressure sweeps (clamped 5..120)
	DyeFade            float64 `yaml:"dye_fade"`             // dye multiplier per step
	AdvectDecay        float64 `yaml:"advect_decay"`         // velocity multiplier applied during advection
	MaxVelComponent    float64 `yaml:"max_vel_component"`    // hard clamp on injected velocity components
	ImpulseRadiusScale float64 `yaml:"impulse_radius_scale"` // splat radius as a fraction of min grid dimension
	Boundary           string  `yaml:"boundary"`             // clamp | wrap
	ShadowDecay        float64 `yaml:"shadow_decay"`         // per-step exponential decay of the shadow mirror
	ShadowSplatRadius  int     `yaml:"shadow_splat_radius"`  // tent splat radius in cells for shadow injection
	DyeThreshold       float64 `yaml:"dye_threshold"`        // footprint counts cells above this
}

// ExecutionConfig selects the body execution-order policy.
type ExecutionConfig struct {
	Mode                string `yaml:"mode"`                  // legacy_reverse | islands_deterministic | islands_shuffled
	NeighborCells       int    `yaml:"neighbor_cells"`        // island linking radius in grid cells
	ShuffleWithinIsland bool   `yaml:"shuffle_within_island"` // islands_shuffled also permutes members
	ParallelIslands     bool   `yaml:"parallel_islands"`      // run island updates on a worker pool
	ParallelThreshold   int    `yaml:"parallel_threshold"`    // minimum island count before going parallel
	Workers             int    `yaml:"workers"`               // worker count, 0 = GOMAXPROCS
}

// SpringClampConfig bounds one spring class during stabilization.
type SpringClampConfig struct {
	StiffnessCeiling float64 `yaml:"stiffness_ceiling"` // ceiling at reference world size and timestep
	StiffnessFloor   float64 `yaml:"stiffness_floor"`   // never clamp below this
	DampingCeiling   float64 `yaml:"damping_ceiling"`
	DampingFloor     float64 `yaml:"damping_floor"`
	SizeExponent     float64 `yaml:"size_exponent"` // ceiling scales by (worldMinDim/reference_dim)^this
	DTExponent       float64 `yaml:"dt_exponent"`   // ceiling scales by clamp((dt_reference/dt)^this, dt_scale_min, dt_scale_max)
}

// StabilizerConfig holds newborn stabilization parameters.
type StabilizerConfig struct {
	Padding      float64           `yaml:"padding"`       // interior margin in world units
	MinScale     float64           `yaml:"min_scale"`     // lower bound for containment shrink
	ReferenceDim float64           `yaml:"reference_dim"` // world size at which ceilings apply unscaled
	DTReference  float64           `yaml:"dt_reference"`  // timestep at which ceilings apply unscaled
	DTScaleMin   float64           `yaml:"dt_scale_min"`
	DTScaleMax   float64           `yaml:"dt_scale_max"`
	Rigid        SpringClampConfig `yaml:"rigid"`
	Soft         SpringClampConfig `yaml:"soft"`
}

// PopulationConfig holds body population management parameters.
type PopulationConfig struct {
	Initial int `yaml:"initial"` // bodies seeded at world creation
	Floor   int `yaml:"floor"`   // spawn up to this when below
	Ceiling int `yaml:"ceiling"` // reproduction stops at this
}

// ReproductionConfig holds reproduction gating parameters.
type ReproductionConfig struct {
	Enabled         bool    `yaml:"enabled"`
	EnergyThreshold float64 `yaml:"energy_threshold"` // minimum energy to attempt reproduction
	CooldownTicks   int     `yaml:"cooldown_ticks"`   // ticks between attempts per body
	MaxOffspring    int     `yaml:"max_offspring"`    // per attempt, before ceiling capping
	MaxReproCount   int     `yaml:"max_repro_count"`  // lifetime cap per body, 0 = unlimited
	EnergySplit     float64 `yaml:"energy_split"`     // fraction of parent energy given to each child
	SpawnOffset     float64 `yaml:"spawn_offset"`     // child placement distance in world units
}

// EnergyConfig holds the body energy economy.
type EnergyConfig struct {
	Initial         float64 `yaml:"initial"`
	Max             float64 `yaml:"max"`
	BaseCost        float64 `yaml:"base_cost"`        // upkeep per tick
	MoveCost        float64 `yaml:"move_cost"`        // per unit of total point displacement
	GrazeRate       float64 `yaml:"graze_rate"`       // nutrient mass a mouth node pulls per tick
	GrazeEfficiency float64 `yaml:"graze_efficiency"` // fraction of grazed mass converted to energy
	PhotoRate       float64 `yaml:"photo_rate"`       // energy per leaf node per tick at full light
	ParticleValue   float64 `yaml:"particle_value"`   // energy per drifting particle a mouth swallows
}

// BodyConfig holds default body plan and instability guard parameters.
type BodyConfig struct {
	Radius           float64 `yaml:"radius"`       // default plan radius in world units
	RingPoints       int     `yaml:"ring_points"`  // points on the outer ring
	FinCount         int     `yaml:"fin_count"`    // fin nodes attached to the ring
	PointRadius      float64 `yaml:"point_radius"` // collision radius per mass point
	PointMass        float64 `yaml:"point_mass"`
	SoftStiffness    float64 `yaml:"soft_stiffness"`
	SoftDamping      float64 `yaml:"soft_damping"`
	RigidStiffness   float64 `yaml:"rigid_stiffness"`
	RigidDamping     float64 `yaml:"rigid_damping"`
	FinAmplitude     float64 `yaml:"fin_amplitude"` // rest-length oscillation fraction
	FinPeriodTicks   int     `yaml:"fin_period_ticks"`
	DragCoefficient  float64 `yaml:"drag_coefficient"` // coupling toward local fluid velocity
	FluidReaction    float64 `yaml:"fluid_reaction"`   // fraction of the drag exchange pushed back into the fluid
	ContactRadius    float64 `yaml:"contact_radius"`   // point separation distance against other bodies
	ContactStiffness float64 `yaml:"contact_stiffness"`
	MouthReach       float64 `yaml:"mouth_reach"`       // particle feeding distance around a mouth node
	AnchorChance     float64 `yaml:"anchor_chance"`     // probability a new plan roots one node to the substrate
	MaxStepTravel    float64 `yaml:"max_step_travel"`   // per-point displacement per tick before invalid_motion
	ExplosionFactor  float64 `yaml:"explosion_factor"`  // AABB diagonal growth factor before geometric_explosion
}

// ParticlesConfig holds drifting particle parameters.
type ParticlesConfig struct {
	Floor           int     `yaml:"floor"`         // minimum live particles
	EmissionRate    float64 `yaml:"emission_rate"` // particles per tick; fractions accrue as debt
	MaxCount        int     `yaml:"max_count"`
	LifeTicks       float64 `yaml:"life_ticks"`
	LifeJitter      float64 `yaml:"life_jitter"`      // +/- fraction of life_ticks
	Drag            float64 `yaml:"drag"`             // blend toward sampled fluid velocity per tick
	NutrientRecycle float64 `yaml:"nutrient_recycle"` // nutrient mass returned where a particle expires
}

// NutrientsConfig holds the nutrient field parameters.
type NutrientsConfig struct {
	GridWidth   int     `yaml:"grid_width"`
	GridHeight  int     `yaml:"grid_height"`
	Regrow      float64 `yaml:"regrow"`       // growth toward capacity per tick
	Diffuse     float64 `yaml:"diffuse"`      // Laplacian diffusion rate (stability clamps at 0.25)
	NoiseScale  float64 `yaml:"noise_scale"`  // capacity noise frequency
	Octaves     int     `yaml:"octaves"`
	MaxCapacity float64 `yaml:"max_capacity"`
	GrazeRadius int     `yaml:"graze_radius"` // consumption kernel radius in cells
}

// LightConfig holds the light field parameters.
type LightConfig struct {
	GridWidth     int     `yaml:"grid_width"`
	GridHeight    int     `yaml:"grid_height"`
	SurfaceLight  float64 `yaml:"surface_light"`   // intensity at the top row
	Falloff       float64 `yaml:"falloff"`         // exponential falloff with depth
	NoiseScale    float64 `yaml:"noise_scale"`     // attenuation noise frequency
	DayCycleTicks int     `yaml:"day_cycle_ticks"` // 0 = static light
}

// ViscosityConfig holds the viscosity modifier field parameters.
type ViscosityConfig struct {
	GridWidth  int     `yaml:"grid_width"`
	GridHeight int     `yaml:"grid_height"`
	Base       float64 `yaml:"base"`        // multiplier applied to body drag everywhere
	Variation  float64 `yaml:"variation"`   // noise amplitude around base
	NoiseScale float64 `yaml:"noise_scale"`
}

// EmitterConfig describes one periodic impulse source. Position is in
// relative world coordinates (0..1 on both axes).
type EmitterConfig struct {
	X           float64 `yaml:"x"`
	Y           float64 `yaml:"y"`
	DX          float64 `yaml:"dx"`
	DY          float64 `yaml:"dy"`
	Strength    float64 `yaml:"strength"`
	DyeR        float64 `yaml:"dye_r"`
	DyeG        float64 `yaml:"dye_g"`
	DyeB        float64 `yaml:"dye_b"`
	PeriodTicks int     `yaml:"period_ticks"` // fire every N ticks
	PhaseTicks  int     `yaml:"phase_ticks"`  // offset within the period
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindowTicks     int      `yaml:"stats_window_ticks"`
	DeathRingSize        int      `yaml:"death_ring_size"`
	DiagMinIntervalTicks int      `yaml:"diag_min_interval_ticks"` // per-reason floor between diagnostics
	WatchedReasons       []string `yaml:"watched_reasons"`         // reason prefixes that emit diagnostics
	PerfWindow           int      `yaml:"perf_window"`             // rolling sample count for phase timings
	StageJuvenileTicks   int64    `yaml:"stage_juvenile_ticks"`    // age boundary juvenile -> mature
	StageMatureTicks     int64    `yaml:"stage_mature_ticks"`      // age boundary mature -> elder
	LeaderBoardSize      int      `yaml:"leader_board_size"`       // 0 disables the leader board
	LeaderMinAgeTicks    int64    `yaml:"leader_min_age_ticks"`    // minimum age to qualify
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	DT32          float32 // Physics.DT as float32
	WorldW32      float32
	WorldH32      float32
	CellSize32    float32 // spatial hash cell size as float32
	PressureIters int     // Fluid.PressureIters clamped to the stable range
	MaxWorkers    int     // Execution.Workers resolved (>=1)
}

// Load loads configuration from a YAML file, merging with embedded
// defaults. If path is empty, only embedded defaults are used.
// Validation failures surface here, before any tick work begins.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.computeDerived()

	return cfg, nil
}

// Validate rejects configurations that cannot produce a runnable world.
func (c *Config) Validate() error {
	if c.World.Width <= 0 || c.World.Height <= 0 {
		return fmt.Errorf("world dimensions must be positive, got %dx%d", c.World.Width, c.World.Height)
	}
	if c.Physics.DT <= 0 {
		return fmt.Errorf("physics.dt must be positive, got %v", c.Physics.DT)
	}
	if c.Physics.GridCellSize <= 0 {
		return fmt.Errorf("physics.grid_cell_size must be positive, got %v", c.Physics.GridCellSize)
	}
	if c.Fluid.GridWidth < 3 || c.Fluid.GridHeight < 3 {
		return fmt.Errorf("fluid grid must be at least 3x3, got %dx%d", c.Fluid.GridWidth, c.Fluid.GridHeight)
	}
	switch c.Fluid.Backend {
	case "cpu", "device":
	default:
		return fmt.Errorf("unknown fluid backend %q", c.Fluid.Backend)
	}
	switch c.Fluid.Boundary {
	case "clamp", "wrap":
	default:
		return fmt.Errorf("unknown fluid boundary mode %q", c.Fluid.Boundary)
	}
	switch c.Execution.Mode {
	case "legacy_reverse", "islands_deterministic", "islands_shuffled":
	default:
		return fmt.Errorf("unknown execution mode %q", c.Execution.Mode)
	}
	if c.Execution.NeighborCells < 1 {
		return fmt.Errorf("execution.neighbor_cells must be at least 1, got %d", c.Execution.NeighborCells)
	}
	if c.Population.Floor < 0 || c.Population.Ceiling < c.Population.Floor {
		return fmt.Errorf("population floor/ceiling invalid: floor=%d ceiling=%d", c.Population.Floor, c.Population.Ceiling)
	}
	if c.Body.RingPoints < 3 {
		return fmt.Errorf("body.ring_points must be at least 3, got %d", c.Body.RingPoints)
	}
	if c.Stabilizer.ReferenceDim <= 0 {
		return fmt.Errorf("stabilizer.reference_dim must be positive, got %v", c.Stabilizer.ReferenceDim)
	}
	if c.Stabilizer.DTReference <= 0 {
		return fmt.Errorf("stabilizer.dt_reference must be positive, got %v", c.Stabilizer.DTReference)
	}
	if c.Telemetry.DeathRingSize <= 0 {
		return fmt.Errorf("telemetry.death_ring_size must be positive, got %d", c.Telemetry.DeathRingSize)
	}
	return nil
}

// Rederive recomputes derived values after programmatic field
// changes, e.g. when a tool sweeps parameters on a loaded config.
func (c *Config) Rederive() { c.computeDerived() }

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.DT32 = float32(c.Physics.DT)
	c.Derived.WorldW32 = float32(c.World.Width)
	c.Derived.WorldH32 = float32(c.World.Height)
	c.Derived.CellSize32 = float32(c.Physics.GridCellSize)

	iters := c.Fluid.PressureIters
	if iters < 5 {
		iters = 5
	}
	if iters > 120 {
		iters = 120
	}
	c.Derived.PressureIters = iters

	workers := c.Execution.Workers
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}
	c.Derived.MaxWorkers = workers
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
