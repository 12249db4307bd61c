package creature

import (
	"math"

	"github.com/pthm-cable/brine/components"
	"github.com/pthm-cable/brine/fluid"
	"github.com/pthm-cable/brine/systems"
)

const (
	// maxLocalDrag caps the Verlet fluid blend; at 1.0 a point would
	// surrender its entire history velocity in one tick.
	maxLocalDrag = 0.95

	// Splat strengths for reaction impulses. Strength sizes the splat
	// footprint, so point pushes stay much smaller than emitter jets.
	pointPushStrength  = 2
	anchorPushStrength = 4
)

// UpdateSelf advances the body one tick: drive the fin oscillator,
// accumulate spring and contact forces, integrate with fluid-coupled
// Verlet, run the instability guards, then metabolize. Unstable bodies
// are inert; the world removes them at end of tick.
func (c *Creature) UpdateSelf(dt float32, f fluid.Backend) {
	if c.lc.Unstable {
		return
	}
	c.ticks++

	if c.baseRest == nil {
		c.captureBaseline()
	}

	c.oscillateFins()
	c.accumulateForces(dt)
	moved := c.integrate(dt, f)
	if c.lc.Unstable {
		return
	}
	if !c.checkBounds() {
		return
	}
	c.metabolize(moved)
}

// captureBaseline records rest lengths and body size on the first
// update, after birth stabilization may have rescaled the plan.
func (c *Creature) captureBaseline() {
	c.baseRest = make([]float32, len(c.shape.Springs))
	for i := range c.shape.Springs {
		c.baseRest[i] = c.shape.Springs[i].Rest
	}
	c.baseDiag = c.diag()
}

func (c *Creature) diag() float32 {
	minX, minY, maxX, maxY := c.shape.AABB()
	dx := maxX - minX
	dy := maxY - minY
	return float32(math.Sqrt(float64(dx*dx + dy*dy)))
}

// oscillateFins modulates the rest length of every spring touching a
// fin node around its captured baseline.
func (c *Creature) oscillateFins() {
	if c.par.finAmplitude <= 0 || c.par.finPeriod <= 0 {
		return
	}
	phase := 2 * math.Pi * (float64(c.ticks) + float64(c.finPhase)) / float64(c.par.finPeriod)
	swing := c.par.finAmplitude * float32(math.Sin(phase))
	for i := range c.shape.Springs {
		sp := &c.shape.Springs[i]
		if c.shape.Points[sp.A].Kind != components.NodeFin && c.shape.Points[sp.B].Kind != components.NodeFin {
			continue
		}
		sp.Rest = c.baseRest[i] * (1 + swing)
	}
}

func (c *Creature) accumulateForces(dt float32) {
	n := len(c.shape.Points)
	if cap(c.fx) < n {
		c.fx = make([]float32, n)
		c.fy = make([]float32, n)
	}
	c.fx = c.fx[:n]
	c.fy = c.fy[:n]
	for i := range c.fx {
		c.fx[i] = 0
		c.fy[i] = 0
	}
	c.springForces(dt)
	c.contactForces()
}

// springForces applies Hooke's law plus axial damping per spring.
// Point velocities come from Verlet history, so damping divides by dt
// to get world units per second.
func (c *Creature) springForces(dt float32) {
	inv := 1 / dt
	for i := range c.shape.Springs {
		sp := &c.shape.Springs[i]
		a := &c.shape.Points[sp.A]
		b := &c.shape.Points[sp.B]
		dx := b.X - a.X
		dy := b.Y - a.Y
		dist := float32(math.Sqrt(float64(dx*dx + dy*dy)))
		if dist < 1e-6 {
			continue
		}
		ux := dx / dist
		uy := dy / dist

		stretch := dist - sp.Rest
		axial := ((b.X-b.PrevX)-(a.X-a.PrevX))*ux + ((b.Y-b.PrevY)-(a.Y-a.PrevY))*uy
		mag := sp.Stiffness*stretch + sp.Damping*axial*inv

		c.fx[sp.A] += ux * mag
		c.fy[sp.A] += uy * mag
		c.fx[sp.B] -= ux * mag
		c.fy[sp.B] -= uy * mag
	}
}

// contactForces pushes points apart from other bodies' points inside
// the contact radius. The grid holds positions frozen at grid build,
// so contact reads the same neighborhood for every body in a tick.
func (c *Creature) contactForces() {
	if c.grid == nil || c.par.contactRadius <= 0 {
		return
	}
	if c.neighbors == nil {
		c.neighbors = make([]systems.PointNeighbor, 0, systems.MaxQueryResults)
	}
	r := c.par.contactRadius
	for i := range c.shape.Points {
		p := &c.shape.Points[i]
		c.neighbors = c.grid.QueryPointsInto(c.neighbors[:0], p.X, p.Y, r, c.lc.ID)
		for _, nb := range c.neighbors {
			dist := float32(math.Sqrt(float64(nb.DistSq)))
			if dist < 1e-6 {
				continue
			}
			overlap := r - dist
			if overlap <= 0 {
				continue
			}
			push := c.par.contactStiffness * overlap / dist
			c.fx[i] -= nb.DX * push
			c.fy[i] -= nb.DY * push
		}
	}
}

// integrate advances every point one Verlet step blended toward the
// local fluid velocity, pushing a share of the exchange back into the
// field. Returns total point travel for the metabolic move cost.
func (c *Creature) integrate(dt float32, f fluid.Backend) float64 {
	var travel float64
	inv := 1 / dt
	maxStepSq := c.par.maxStepTravel * c.par.maxStepTravel

	for i := range c.shape.Points {
		p := &c.shape.Points[i]
		if p.Fixed {
			// Rooted points resist the flow; the reaction slows the
			// fluid around them.
			fvx, fvy := f.VelocityAt(p.X, p.Y, fluid.SpaceWorld)
			if c.par.fluidReaction > 0 && (fvx != 0 || fvy != 0) {
				f.AddVelocity(p.X, p.Y, -fvx*c.par.fluidReaction, -fvy*c.par.fluidReaction, anchorPushStrength)
			}
			p.PrevX, p.PrevY = p.X, p.Y
			continue
		}

		vx := p.X - p.PrevX
		vy := p.Y - p.PrevY
		fvx, fvy := f.VelocityAt(p.X, p.Y, fluid.SpaceWorld)

		drag := c.par.dragCoeff
		if c.viscosity != nil {
			drag *= c.viscosity.Sample(p.X, p.Y)
		}
		if drag < 0 {
			drag = 0
		} else if drag > maxLocalDrag {
			drag = maxLocalDrag
		}

		ax := c.fx[i] / p.Mass
		ay := c.fy[i] / p.Mass

		nx := p.X + vx*(1-drag) + fvx*drag*dt + ax*dt*dt
		ny := p.Y + vy*(1-drag) + fvy*drag*dt + ay*dt*dt

		if !finite(nx) || !finite(ny) {
			c.lc.MarkUnstable("non_finite_numeric:update")
			return travel
		}
		sx := nx - p.X
		sy := ny - p.Y
		stepSq := sx*sx + sy*sy
		if stepSq > maxStepSq {
			c.lc.MarkUnstable("invalid_motion:speed")
			return travel
		}

		if c.par.fluidReaction > 0 {
			f.AddVelocity(p.X, p.Y, (vx*inv-fvx)*c.par.fluidReaction, (vy*inv-fvy)*c.par.fluidReaction, pointPushStrength)
		}

		p.PrevX, p.PrevY = p.X, p.Y
		p.X, p.Y = nx, ny
		travel += math.Sqrt(float64(stepSq))
	}
	return travel
}

// checkBounds runs the whole-body guards after integration. Wrap mode
// translates a body whose centroid left the world back onto the torus;
// clamp mode marks it unstable instead.
func (c *Creature) checkBounds() bool {
	if c.baseDiag > 0 && c.diag() > c.baseDiag*c.par.explosionFactor {
		c.lc.MarkUnstable("geometric_explosion:bbox")
		return false
	}

	cx, cy := c.shape.Centroid()
	if c.par.wrap {
		var tx, ty float32
		switch {
		case cx < 0:
			tx = c.par.worldW
		case cx >= c.par.worldW:
			tx = -c.par.worldW
		}
		switch {
		case cy < 0:
			ty = c.par.worldH
		case cy >= c.par.worldH:
			ty = -c.par.worldH
		}
		if tx != 0 || ty != 0 {
			c.translate(tx, ty)
		}
		return true
	}

	if cx < 0 || cx >= c.par.worldW || cy < 0 || cy >= c.par.worldH {
		c.lc.MarkUnstable("boundary_exit:world")
		return false
	}
	return true
}

// translate shifts the whole body, history included, so implicit
// velocities survive a torus wrap.
func (c *Creature) translate(dx, dy float32) {
	for i := range c.shape.Points {
		p := &c.shape.Points[i]
		p.X += dx
		p.Y += dy
		p.PrevX += dx
		p.PrevY += dy
	}
}

func finite(v float32) bool {
	f := float64(v)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
