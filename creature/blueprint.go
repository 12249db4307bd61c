package creature

import (
	"math"
	"math/rand"

	"github.com/pthm-cable/brine/components"
	"github.com/pthm-cable/brine/config"
)

// PlanPoint is one mass point of a body plan, placed relative to the
// plan origin.
type PlanPoint struct {
	DX, DY float32
	Radius float32
	Mass   float32
	Kind   components.NodeKind
	Fixed  bool
}

// Blueprint is a reusable body plan: point offsets around an origin
// plus the spring graph over them. Instantiate stamps it at a world
// position; children clone the parent's plan.
type Blueprint struct {
	Points  []PlanPoint
	Springs []components.Spring
}

// DefaultPlan builds the standard radial body: a heavy core ringed by
// radially jittered perimeter points, one mouth and one leaf on
// opposite sides, and fin nodes sprung off the ring on oscillating
// soft springs. With probability cfg.Body.AnchorChance the plan roots
// one ring node to the substrate, yielding a sessile variant that
// keeps a leaf on the adjacent slot.
func DefaultPlan(cfg *config.Config, rng *rand.Rand) *Blueprint {
	ringN := cfg.Body.RingPoints
	if ringN < 3 {
		ringN = 3
	}
	finN := cfg.Body.FinCount
	radius := float32(cfg.Body.Radius)
	pointR := float32(cfg.Body.PointRadius)
	pointM := float32(cfg.Body.PointMass)
	softK := float32(cfg.Body.SoftStiffness)
	softD := float32(cfg.Body.SoftDamping)
	rigidK := float32(cfg.Body.RigidStiffness)
	rigidD := float32(cfg.Body.RigidDamping)

	bp := &Blueprint{Points: make([]PlanPoint, 0, 1+ringN+finN)}

	// Core carries double mass so the interior resists ring collapse.
	bp.Points = append(bp.Points, PlanPoint{Radius: pointR, Mass: pointM * 2, Kind: components.NodeCore})

	base := rng.Float32() * 2 * math.Pi
	for i := 0; i < ringN; i++ {
		ang := float64(base) + float64(i)/float64(ringN)*2*math.Pi
		r := radius * (1 + (rng.Float32()-0.5)*0.16)
		kind := components.NodeCore
		switch i {
		case 0:
			kind = components.NodeMouth
		case ringN / 2:
			kind = components.NodeLeaf
		}
		bp.Points = append(bp.Points, PlanPoint{
			DX:     r * float32(math.Cos(ang)),
			DY:     r * float32(math.Sin(ang)),
			Radius: pointR,
			Mass:   pointM,
			Kind:   kind,
		})
	}

	// Structure: rigid spokes and perimeter, soft cross braces two
	// slots apart. A triangle's braces would duplicate the perimeter
	// and a square has only its two diagonals.
	for i := 0; i < ringN; i++ {
		bp.link(0, 1+i, rigidK, rigidD, true)
		bp.link(1+i, 1+(i+1)%ringN, rigidK, rigidD, true)
	}
	switch {
	case ringN == 4:
		bp.link(1, 3, softK, softD, false)
		bp.link(2, 4, softK, softD, false)
	case ringN >= 5:
		for i := 0; i < ringN; i++ {
			bp.link(1+i, 1+(i+2)%ringN, softK, softD, false)
		}
	}

	// Fins sit beyond the ring between two adjacent slots, attached by
	// a V of soft springs. Fin springs are the ones the oscillator
	// drives, so they stay soft regardless of config.
	for k := 0; k < finN; k++ {
		slot := (k*ringN/finN + 1) % ringN
		ang := float64(base) + (float64(slot)+0.5)/float64(ringN)*2*math.Pi
		fin := len(bp.Points)
		bp.Points = append(bp.Points, PlanPoint{
			DX:     radius * 1.5 * float32(math.Cos(ang)),
			DY:     radius * 1.5 * float32(math.Sin(ang)),
			Radius: pointR,
			Mass:   pointM * 0.5,
			Kind:   components.NodeFin,
		})
		bp.link(fin, 1+slot, softK, softD, false)
		bp.link(fin, 1+(slot+1)%ringN, softK, softD, false)
	}

	if cfg.Body.AnchorChance > 0 && rng.Float64() < cfg.Body.AnchorChance {
		root := 1 + ringN/2
		bp.Points[root].Kind = components.NodeAnchor
		bp.Points[root].Fixed = true
		bp.Points[1+(ringN/2+1)%ringN].Kind = components.NodeLeaf
	}

	return bp
}

// link appends a spring between plan points a and b with rest length
// equal to their plan-space separation.
func (bp *Blueprint) link(a, b int, stiffness, damping float32, rigid bool) {
	dx := bp.Points[b].DX - bp.Points[a].DX
	dy := bp.Points[b].DY - bp.Points[a].DY
	bp.Springs = append(bp.Springs, components.Spring{
		A:         a,
		B:         b,
		Rest:      float32(math.Sqrt(float64(dx*dx + dy*dy))),
		Stiffness: stiffness,
		Damping:   damping,
		Rigid:     rigid,
	})
}

// Instantiate stamps the plan at a world position. Prev positions
// match point positions so the first tick carries no implicit
// velocity.
func (bp *Blueprint) Instantiate(x, y float32) *components.SoftBody {
	sb := &components.SoftBody{
		Points:  make([]components.MassPoint, len(bp.Points)),
		Springs: make([]components.Spring, len(bp.Springs)),
	}
	for i, pp := range bp.Points {
		px, py := x+pp.DX, y+pp.DY
		sb.Points[i] = components.MassPoint{
			X:      px,
			Y:      py,
			PrevX:  px,
			PrevY:  py,
			Radius: pp.Radius,
			Mass:   pp.Mass,
			Kind:   pp.Kind,
			Fixed:  pp.Fixed,
		}
	}
	copy(sb.Springs, bp.Springs)
	return sb
}

// Clone deep-copies the plan so offspring own their point and spring
// slices.
func (bp *Blueprint) Clone() *Blueprint {
	c := &Blueprint{
		Points:  make([]PlanPoint, len(bp.Points)),
		Springs: make([]components.Spring, len(bp.Springs)),
	}
	copy(c.Points, bp.Points)
	copy(c.Springs, bp.Springs)
	return c
}

// BlueprintFromShape recovers a plan from live geometry, with offsets
// taken about the shape centroid. Restored bodies reproduce with the
// shape they were captured with, current deformation included.
func BlueprintFromShape(sb *components.SoftBody) *Blueprint {
	cx, cy := sb.Centroid()
	bp := &Blueprint{
		Points:  make([]PlanPoint, len(sb.Points)),
		Springs: make([]components.Spring, len(sb.Springs)),
	}
	for i := range sb.Points {
		p := &sb.Points[i]
		bp.Points[i] = PlanPoint{
			DX:     p.X - cx,
			DY:     p.Y - cy,
			Radius: p.Radius,
			Mass:   p.Mass,
			Kind:   p.Kind,
			Fixed:  p.Fixed,
		}
	}
	copy(bp.Springs, sb.Springs)
	return bp
}
