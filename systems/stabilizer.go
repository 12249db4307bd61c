package systems

import (
	"math"

	"github.com/pthm-cable/brine/components"
	"github.com/pthm-cable/brine/config"
)

// StabilizeReport records what one stabilization pass changed.
type StabilizeReport struct {
	Scale          float32 // applied containment scale, 1 when untouched
	Translated     bool
	PointsClamped  int
	SpringsClamped int
}

// springCeilings is one spring class resolved against the current
// world size and timestep.
type springCeilings struct {
	stiffness float32
	damping   float32
}

// Stabilizer fits freshly created bodies inside the world interior
// and lowers spring constants to ceilings the current world size and
// timestep can integrate. Applied exactly once per body; re-applying
// to a compliant body changes nothing.
type Stabilizer struct {
	worldW, worldH float32
	padding        float32
	minScale       float32
	rigid          springCeilings
	soft           springCeilings
}

// NewStabilizer resolves clamp ceilings for the configured world.
// Ceilings shrink with world size and scale with timestep; both
// classes keep their configured floors.
func NewStabilizer(cfg *config.Config) *Stabilizer {
	s := &Stabilizer{
		worldW:   cfg.Derived.WorldW32,
		worldH:   cfg.Derived.WorldH32,
		padding:  float32(cfg.Stabilizer.Padding),
		minScale: float32(cfg.Stabilizer.MinScale),
	}

	minDim := math.Min(float64(cfg.World.Width), float64(cfg.World.Height))
	sizeRatio := minDim / cfg.Stabilizer.ReferenceDim
	dtRatio := cfg.Stabilizer.DTReference / cfg.Physics.DT

	s.rigid = resolveCeilings(cfg.Stabilizer.Rigid, sizeRatio, dtRatio,
		cfg.Stabilizer.DTScaleMin, cfg.Stabilizer.DTScaleMax)
	s.soft = resolveCeilings(cfg.Stabilizer.Soft, sizeRatio, dtRatio,
		cfg.Stabilizer.DTScaleMin, cfg.Stabilizer.DTScaleMax)
	return s
}

func resolveCeilings(cc config.SpringClampConfig, sizeRatio, dtRatio, dtMin, dtMax float64) springCeilings {
	sizeFactor := math.Pow(sizeRatio, cc.SizeExponent)
	dtFactor := math.Pow(dtRatio, cc.DTExponent)
	if dtFactor < dtMin {
		dtFactor = dtMin
	}
	if dtFactor > dtMax {
		dtFactor = dtMax
	}

	stiff := cc.StiffnessCeiling * sizeFactor * dtFactor
	if stiff < cc.StiffnessFloor {
		stiff = cc.StiffnessFloor
	}
	damp := cc.DampingCeiling * sizeFactor * dtFactor
	if damp < cc.DampingFloor {
		damp = cc.DampingFloor
	}
	return springCeilings{stiffness: float32(stiff), damping: float32(damp)}
}

// Stabilize contains the body inside the world interior and clamps
// its spring constants. Positions and previous positions move
// together so implicit velocity survives containment; only the final
// per-point clamp zeroes velocity, and only for points it moved.
func (s *Stabilizer) Stabilize(body *components.SoftBody) StabilizeReport {
	report := StabilizeReport{Scale: 1}
	if len(body.Points) == 0 {
		return report
	}

	// 1. Shrink about the centroid until the AABB fits the interior.
	minX, minY, maxX, maxY := body.AABB()
	boundsW, boundsH := maxX-minX, maxY-minY
	availW := s.worldW - 2*s.padding
	availH := s.worldH - 2*s.padding

	if boundsW > availW || boundsH > availH {
		scale := float32(1)
		if boundsW > 0 {
			scale = availW / boundsW
		}
		if boundsH > 0 && availH/boundsH < scale {
			scale = availH / boundsH
		}
		if scale < s.minScale {
			scale = s.minScale
		}
		if scale < 1 {
			cx, cy := body.Centroid()
			for i := range body.Points {
				p := &body.Points[i]
				p.X = cx + (p.X-cx)*scale
				p.Y = cy + (p.Y-cy)*scale
				p.PrevX = cx + (p.PrevX-cx)*scale
				p.PrevY = cy + (p.PrevY-cy)*scale
			}
			for i := range body.Springs {
				body.Springs[i].Rest *= scale
			}
			report.Scale = scale
			minX, minY, maxX, maxY = body.AABB()
		}
	}

	// 2. Translate the AABB into [padding, size-padding]. A body still
	// wider than the interior after the scale floor gets centered.
	tx := containShift(minX, maxX, s.padding, s.worldW)
	ty := containShift(minY, maxY, s.padding, s.worldH)
	if tx != 0 || ty != 0 {
		for i := range body.Points {
			p := &body.Points[i]
			p.X += tx
			p.Y += ty
			p.PrevX += tx
			p.PrevY += ty
		}
		report.Translated = true
	}

	// 3. Per-point clamp to [radius, size-radius]. A clamped point has
	// its implicit velocity zeroed so it does not re-exit next tick.
	for i := range body.Points {
		p := &body.Points[i]
		nx := stClamp(p.X, p.Radius, s.worldW-p.Radius)
		ny := stClamp(p.Y, p.Radius, s.worldH-p.Radius)
		if nx != p.X || ny != p.Y {
			p.X, p.Y = nx, ny
			p.PrevX, p.PrevY = nx, ny
			report.PointsClamped++
		}
	}

	// 4. Lower spring constants to the class ceilings. Never raised.
	for i := range body.Springs {
		sp := &body.Springs[i]
		ceil := s.soft
		if sp.Rigid {
			ceil = s.rigid
		}
		clamped := false
		if sp.Stiffness > ceil.stiffness {
			sp.Stiffness = ceil.stiffness
			clamped = true
		}
		if sp.Damping > ceil.damping {
			sp.Damping = ceil.damping
			clamped = true
		}
		if clamped {
			report.SpringsClamped++
		}
	}

	return report
}

// RigidStiffnessCeiling exposes the resolved rigid ceiling for
// calibration sweeps.
func (s *Stabilizer) RigidStiffnessCeiling() float32 { return s.rigid.stiffness }

// SoftStiffnessCeiling exposes the resolved soft ceiling.
func (s *Stabilizer) SoftStiffnessCeiling() float32 { return s.soft.stiffness }

// containShift returns the translation that moves [min,max] into
// [pad, size-pad], or centers it when it cannot fit.
func containShift(min, max, pad, size float32) float32 {
	if max-min > size-2*pad {
		return size/2 - (min+max)/2
	}
	if min < pad {
		return pad - min
	}
	if max > size-pad {
		return size - pad - max
	}
	return 0
}

func stClamp(v, lo, hi float32) float32 {
	if hi < lo {
		return (lo + hi) / 2
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
