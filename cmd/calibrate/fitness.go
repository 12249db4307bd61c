package main

import (
	"math"
	"sync"

	"github.com/pthm-cable/brine/config"
	"github.com/pthm-cable/brine/creature"
	"github.com/pthm-cable/brine/telemetry"
	"github.com/pthm-cable/brine/world"
)

// FitnessEvaluator runs headless simulations and computes fitness.
type FitnessEvaluator struct {
	params     *ParamVector
	maxTicks   int64
	seeds      []int64
	baseConfig *config.Config

	// Best run tracking
	mu          sync.Mutex
	bestFitness float64
	bestLeaders *telemetry.LeaderBoard
	lastQuality float64 // quality from most recent Evaluate call
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, maxTicks int64, seeds []int64, baseCfg *config.Config) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:      params,
		maxTicks:    maxTicks,
		seeds:       seeds,
		baseConfig:  baseCfg,
		bestFitness: math.Inf(1),
	}
}

// BestLeaders returns the leader board from the best evaluation.
func (fe *FitnessEvaluator) BestLeaders() *telemetry.LeaderBoard {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.bestLeaders
}

// LastQuality returns the quality score from the most recent evaluation.
func (fe *FitnessEvaluator) LastQuality() float64 {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastQuality
}

// Failure criteria. A window with a physics removal burst means the
// constants let geometry blow up; a long stretch of floor-pinned
// windows with no births means nothing lives on its own.
const (
	physicsBurstLimit = 5
	stagnationWindows = 6
)

// runResult holds the results from a single simulation run.
type runResult struct {
	survivalTicks int64
	windowStats   []telemetry.WindowStats
	leaders       *telemetry.LeaderBoard
}

// seedResult holds the result from one seed evaluation.
type seedResult struct {
	fitness float64
	quality float64
	leaders *telemetry.LeaderBoard
}

// Evaluate computes fitness for a parameter vector (lower = better).
// Fitness is negative survival ticks: longer survival = lower (better)
// fitness, with a quality bonus of up to 20%.
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	// Worlds are self-contained, so seeds run in parallel.
	results := make([]seedResult, len(fe.seeds))
	var wg sync.WaitGroup

	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			result := fe.runSimulation(x, s)
			results[idx] = seedResult{
				fitness: fe.computeFitness(result),
				quality: fe.computeQuality(result.windowStats),
				leaders: result.leaders,
			}
		}(i, seed)
	}
	wg.Wait()

	var totalFitness, totalQuality float64
	bestSeedFitness := math.Inf(1)
	var bestSeedLeaders *telemetry.LeaderBoard

	for _, r := range results {
		totalFitness += r.fitness
		totalQuality += r.quality
		if r.fitness < bestSeedFitness {
			bestSeedFitness = r.fitness
			bestSeedLeaders = r.leaders
		}
	}

	n := float64(len(fe.seeds))
	avgFitness := totalFitness / n

	fe.mu.Lock()
	if avgFitness < fe.bestFitness {
		fe.bestFitness = avgFitness
		fe.bestLeaders = bestSeedLeaders
	}
	fe.lastQuality = totalQuality / n
	fe.mu.Unlock()

	return avgFitness
}

// runSimulation executes a single headless run until a failure
// criterion fires or maxTicks elapse.
func (fe *FitnessEvaluator) runSimulation(x []float64, seed int64) *runResult {
	cfg := fe.copyConfig()
	fe.params.ApplyToConfig(cfg, x)
	cfg.Rederive()

	result := &runResult{}

	w, err := world.NewWorld(cfg, creature.NewFactory(cfg), seed, nil)
	if err != nil {
		// An unbuildable config is the worst possible outcome.
		result.survivalTicks = 0
		return result
	}
	defer w.Close()

	deadWindows := 0
	for w.Tick() < fe.maxTicks {
		w.Step()
		if !w.ShouldFlush() {
			continue
		}

		stats := w.FlushWindow()
		result.windowStats = append(result.windowStats, stats)

		if stats.RemovedPhysics >= physicsBurstLimit {
			break
		}
		if stats.Births == 0 && stats.LiveBodies <= cfg.Population.Floor {
			deadWindows++
			if deadWindows >= stagnationWindows {
				break
			}
		} else {
			deadWindows = 0
		}
	}

	result.survivalTicks = w.Tick()
	result.leaders = w.Leaders()
	return result
}

// copyConfig creates a deep copy of the base config.
func (fe *FitnessEvaluator) copyConfig() *config.Config {
	cfg, _ := config.Load("")

	cfg.World = fe.baseConfig.World
	cfg.Physics = fe.baseConfig.Physics
	cfg.Fluid = fe.baseConfig.Fluid
	cfg.Execution = fe.baseConfig.Execution
	cfg.Stabilizer = fe.baseConfig.Stabilizer
	cfg.Population = fe.baseConfig.Population
	cfg.Reproduction = fe.baseConfig.Reproduction
	cfg.Energy = fe.baseConfig.Energy
	cfg.Body = fe.baseConfig.Body
	cfg.Particles = fe.baseConfig.Particles
	cfg.Nutrients = fe.baseConfig.Nutrients
	cfg.Light = fe.baseConfig.Light
	cfg.Viscosity = fe.baseConfig.Viscosity
	cfg.Emitters = append([]config.EmitterConfig(nil), fe.baseConfig.Emitters...)
	cfg.Telemetry = fe.baseConfig.Telemetry
	cfg.Rederive()

	return cfg
}

// computeFitness calculates the scalar fitness (lower = better).
// Formula: -(survivalTicks × (1.0 + 0.2 × quality)). Survival
// dominates; quality differentiates configs that survive equally long.
func (fe *FitnessEvaluator) computeFitness(r *runResult) float64 {
	survival := float64(r.survivalTicks)
	quality := fe.computeQuality(r.windowStats)
	return -(survival * (1.0 + 0.2*quality))
}

// Quality component weights and shape constants.
const (
	qualityWeightClean     = 0.35
	qualityWeightStability = 0.25
	qualityWeightEnergy    = 0.20
	qualityWeightBirths    = 0.20

	qualityWarmup     = 3    // windows skipped before scoring
	qualityEnergyGoal = 0.5  // EnergyP50 target as a fraction of max
	qualityEnergyBand = 0.25 // gaussian width around the target
)

// computeQuality computes ecosystem quality in [0,1] from window stats.
func (fe *FitnessEvaluator) computeQuality(windows []telemetry.WindowStats) float64 {
	if len(windows) <= qualityWarmup {
		return 0
	}
	valid := windows[qualityWarmup:]

	var cleanSum, energySum, birthSum float64
	liveCounts := make([]float64, 0, len(valid))

	maxEnergy := fe.baseConfig.Energy.Max
	for _, w := range valid {
		liveCounts = append(liveCounts, float64(w.LiveBodies))

		// 1. Physics cleanliness: every physics removal halves the score.
		cleanSum += math.Exp2(-float64(w.RemovedPhysics))

		// 2. Energy health: median energy near half the cap.
		frac := w.EnergyP50 / maxEnergy
		energySum += math.Exp(-math.Pow((frac-qualityEnergyGoal)/qualityEnergyBand, 2))

		// 3. Reproduction activity: saturating reward on births.
		birthSum += 1.0 - math.Exp(-float64(w.Births)/2.0)
	}

	n := float64(len(valid))
	cleanScore := cleanSum / n
	energyScore := energySum / n
	birthScore := birthSum / n

	// 4. Population stability (CV across valid windows).
	stabilityScore := 0.0
	if len(liveCounts) >= 2 {
		c := cv(liveCounts)
		stabilityScore = math.Exp(-c * c * 4.0)
	}

	quality := qualityWeightClean*cleanScore +
		qualityWeightStability*stabilityScore +
		qualityWeightEnergy*energyScore +
		qualityWeightBirths*birthScore

	return clamp01(quality)
}

// cv computes the coefficient of variation (std/mean) for a slice of values.
func cv(values []float64) float64 {
	n := float64(len(values))
	if n == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / n
	if mean == 0 {
		return 0
	}
	var sqDiff float64
	for _, v := range values {
		d := v - mean
		sqDiff += d * d
	}
	return math.Sqrt(sqDiff/n) / mean
}

// clamp01 clamps x to [0, 1].
func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
