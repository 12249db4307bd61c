// Fluid solver probe: inject an impulse, step the solver, and emit
// per-step field stats as JSON lines. Useful for eyeballing dissipation
// and divergence cleanup when tuning solver parameters.
//
// Usage: go run ./cmd/fluidprobe -steps 200 | jq .avg_divergence
package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"

	"github.com/pthm-cable/brine/config"
	"github.com/pthm-cable/brine/fluid"
)

type probeRecord struct {
	Step int `json:"step"`
	fluid.FieldStats
}

func main() {
	configPath := flag.String("config", "", "Config YAML file (empty = use defaults)")
	steps := flag.Int("steps", 200, "Number of solver steps")
	strength := flag.Float64("strength", 30, "Impulse strength")
	pulseEvery := flag.Int("pulse-every", 0, "Re-inject every N steps (0 = once at start)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	// The probe watches the CPU solver; a device backend has no fields
	// to read back.
	cfg.Fluid.Backend = "cpu"

	sim, err := fluid.New(cfg, nil)
	if err != nil {
		log.Fatalf("failed to build solver: %v", err)
	}

	cx := cfg.Derived.WorldW32 / 2
	cy := cfg.Derived.WorldH32 / 2
	s := float32(*strength)

	inject := func() {
		sim.AddVelocity(cx, cy, s, 0, s)
		sim.AddDensity(cx, cy, 1, 1, 1, s)
	}
	inject()

	enc := json.NewEncoder(os.Stdout)
	for i := 1; i <= *steps; i++ {
		if *pulseEvery > 0 && i%*pulseEvery == 0 {
			inject()
		}
		sim.Step()

		if err := enc.Encode(probeRecord{Step: i, FieldStats: sim.Stats()}); err != nil {
			log.Fatalf("failed to encode stats: %v", err)
		}
	}
}
