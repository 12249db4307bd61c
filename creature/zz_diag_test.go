package creature

import (
	"testing"
)

// Temporary diagnostic: trace per-tick max point step for a default
// body at rest in still water. Not part of the suite; deleted after
// build validation.
func TestZZDiagRestingStepTrace(t *testing.T) {
	cfg := testConfig(t)
	cfg.Body.AnchorChance = 0
	cfg.Body.FinAmplitude = 0
	c := newTestCreature(t, cfg, 1, 600, 400, 1)

	prev := make([][2]float32, len(c.shape.Points))
	for tick := 1; tick <= 10; tick++ {
		for i, p := range c.shape.Points {
			prev[i] = [2]float32{p.X, p.Y}
		}
		c.UpdateSelf(cfg.Derived.DT32, &testWater{})
		var maxStep float64
		for i, p := range c.shape.Points {
			dx := float64(p.X - prev[i][0])
			dy := float64(p.Y - prev[i][1])
			s := dx*dx + dy*dy
			if s > maxStep {
				maxStep = s
			}
		}
		t.Logf("tick %d: maxStep=%.6g unstable=%v reason=%q", tick, maxStep, c.lc.Unstable, c.lc.UnstableReason)
		if c.lc.Unstable {
			break
		}
	}
}
