package creature

import "github.com/pthm-cable/brine/components"

// metabolize settles the tick's energy ledger: upkeep scaled by how
// far the body moved, intake through mouth and leaf nodes, then the
// capacity clamp. Running dry is terminal.
func (c *Creature) metabolize(moved float64) {
	c.energy -= c.par.baseCost + c.par.moveCost*moved

	for i := range c.shape.Points {
		p := &c.shape.Points[i]
		switch p.Kind {
		case components.NodeMouth:
			if c.nutrients != nil {
				c.energy += float64(c.nutrients.Graze(p.X, p.Y, c.par.grazeRate)) * c.par.grazeEff
			}
			if c.particles != nil && c.grid != nil {
				eaten := c.particles.ConsumeNear(c.grid, p.X, p.Y, c.par.mouthReach)
				c.energy += float64(eaten) * c.par.particleValue
			}
		case components.NodeLeaf:
			if c.light != nil {
				c.energy += float64(c.light.Sample(p.X, p.Y)) * c.par.photoRate
			}
		}
	}

	if c.energy > c.par.maxEnergy {
		c.energy = c.par.maxEnergy
	}
	if c.energy <= 0 {
		c.energy = 0
		c.lc.MarkUnstable("starvation")
	}
}
