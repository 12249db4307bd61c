package systems

import (
	"math"
	"reflect"
	"testing"

	"github.com/pthm-cable/brine/components"
	"github.com/pthm-cable/brine/config"
)

func stabilizerConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("loading defaults: %v", err)
	}
	return cfg
}

// ringBody builds a core plus four ring points around (cx,cy), rigid
// spokes and soft ring segments, at rest.
func ringBody(cx, cy, radius float32) *components.SoftBody {
	body := &components.SoftBody{}
	body.Points = append(body.Points, components.MassPoint{
		X: cx, Y: cy, PrevX: cx, PrevY: cy, Radius: 4, Mass: 1, Kind: components.NodeCore,
	})
	offsets := [][2]float32{{radius, 0}, {0, radius}, {-radius, 0}, {0, -radius}}
	for _, o := range offsets {
		x, y := cx+o[0], cy+o[1]
		body.Points = append(body.Points, components.MassPoint{
			X: x, Y: y, PrevX: x, PrevY: y, Radius: 4, Mass: 1, Kind: components.NodeMouth,
		})
	}
	for i := 1; i <= 4; i++ {
		body.Springs = append(body.Springs, components.Spring{
			A: 0, B: i, Rest: radius, Stiffness: 900, Damping: 0.5, Rigid: true,
		})
		next := i%4 + 1
		body.Springs = append(body.Springs, components.Spring{
			A: i, B: next, Rest: radius * 1.41421, Stiffness: 220, Damping: 0.1, Rigid: false,
		})
	}
	return body
}

func TestStabilizeContainsOutOfBoundsBody(t *testing.T) {
	cfg := stabilizerConfig(t)
	s := NewStabilizer(cfg)

	// Centered past the right edge.
	body := ringBody(cfg.Derived.WorldW32+50, 400, 30)
	report := s.Stabilize(body)

	if !report.Translated && report.PointsClamped == 0 {
		t.Fatal("out-of-bounds body was not moved")
	}
	for i, p := range body.Points {
		if p.X < p.Radius || p.X > cfg.Derived.WorldW32-p.Radius {
			t.Errorf("point %d x=%v outside [r, w-r]", i, p.X)
		}
		if p.Y < p.Radius || p.Y > cfg.Derived.WorldH32-p.Radius {
			t.Errorf("point %d y=%v outside [r, h-r]", i, p.Y)
		}
	}
}

func TestStabilizeShrinksOversizedBody(t *testing.T) {
	cfg := stabilizerConfig(t)
	s := NewStabilizer(cfg)

	// Wider than the 1200-unit world.
	body := ringBody(600, 400, 2000)
	report := s.Stabilize(body)

	if report.Scale >= 1 {
		t.Fatalf("scale = %v, want < 1 for oversized body", report.Scale)
	}
	minX, minY, maxX, maxY := body.AABB()
	pad := float32(cfg.Stabilizer.Padding)
	if minX < pad-0.01 || maxX > cfg.Derived.WorldW32-pad+0.01 {
		t.Errorf("x bounds [%v,%v] outside interior", minX, maxX)
	}
	if minY < pad-0.01 || maxY > cfg.Derived.WorldH32-pad+0.01 {
		t.Errorf("y bounds [%v,%v] outside interior", minY, maxY)
	}

	// Rest lengths shrink by the same factor as the geometry.
	wantRest := 2000 * report.Scale
	if math.Abs(float64(body.Springs[0].Rest-wantRest)) > 0.01 {
		t.Errorf("rigid rest = %v, want %v", body.Springs[0].Rest, wantRest)
	}
}

func TestStabilizeScaleFloor(t *testing.T) {
	cfg := stabilizerConfig(t)
	s := NewStabilizer(cfg)

	// So large that even the minimum scale cannot fit it; points must
	// still end inside via the per-point clamp.
	body := ringBody(600, 400, 80000)
	report := s.Stabilize(body)

	if math.Abs(float64(report.Scale)-cfg.Stabilizer.MinScale) > 1e-6 {
		t.Fatalf("scale = %v, want floor %v", report.Scale, cfg.Stabilizer.MinScale)
	}
	if report.PointsClamped == 0 {
		t.Fatal("expected per-point clamping after scale floor")
	}
	for i, p := range body.Points {
		if p.X < p.Radius || p.X > cfg.Derived.WorldW32-p.Radius ||
			p.Y < p.Radius || p.Y > cfg.Derived.WorldH32-p.Radius {
			t.Errorf("point %d at (%v,%v) escaped the world", i, p.X, p.Y)
		}
	}
}

func TestStabilizeZeroesVelocityOfClampedPoints(t *testing.T) {
	cfg := stabilizerConfig(t)
	s := NewStabilizer(cfg)

	// Point radius exceeds the padding, so after the AABB lands at the
	// padding line the first point still violates its radius bound and
	// takes the per-point clamp; the second point is untouched.
	body := &components.SoftBody{Points: []components.MassPoint{
		{X: -40, Y: 400, PrevX: -90, PrevY: 400, Radius: 20, Mass: 1},
		{X: 60, Y: 400, PrevX: 60, PrevY: 400, Radius: 20, Mass: 1},
	}}

	report := s.Stabilize(body)

	if report.PointsClamped != 1 {
		t.Fatalf("points clamped = %d, want 1", report.PointsClamped)
	}
	p := body.Points[0]
	if p.X != 20 || p.X != p.PrevX || p.Y != p.PrevY {
		t.Errorf("clamped point keeps velocity: pos=(%v,%v) prev=(%v,%v)", p.X, p.Y, p.PrevX, p.PrevY)
	}
	q := body.Points[1]
	if q.X != 108 || q.PrevX != 108 {
		t.Errorf("untouched point moved oddly: x=%v prev=%v, want both 108", q.X, q.PrevX)
	}
}

func TestStabilizeIdempotent(t *testing.T) {
	cfg := stabilizerConfig(t)
	s := NewStabilizer(cfg)

	cases := []struct {
		name string
		body *components.SoftBody
	}{
		{"inside", ringBody(600, 400, 30)},
		{"out of bounds", ringBody(1500, -40, 30)},
		{"oversized", ringBody(600, 400, 5000)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s.Stabilize(tc.body)
			before := tc.body.Clone()
			report := s.Stabilize(tc.body)
			if !reflect.DeepEqual(tc.body, before) {
				t.Error("second application changed the body")
			}
			if report.Scale != 1 || report.Translated || report.PointsClamped != 0 || report.SpringsClamped != 0 {
				t.Errorf("second application reported work: %+v", report)
			}
		})
	}
}

func TestSpringClampSmallWorld(t *testing.T) {
	cfg := stabilizerConfig(t)
	cfg.World.Width = 100
	cfg.World.Height = 100
	cfg.Rederive()
	s := NewStabilizer(cfg)

	body := ringBody(50, 50, 10)
	body.Springs[0].Stiffness = 500000 // rigid
	base := body.Springs[0].Stiffness

	s.Stabilize(body)

	got := body.Springs[0].Stiffness
	if got > base {
		t.Fatalf("stiffness raised: %v > %v", got, base)
	}
	if got > 10000 {
		t.Fatalf("100x100 world: rigid stiffness = %v, want <= 10000", got)
	}
	if got <= float32(cfg.Stabilizer.Rigid.StiffnessFloor)-1 {
		t.Fatalf("stiffness %v fell below floor %v", got, cfg.Stabilizer.Rigid.StiffnessFloor)
	}
}

func TestSpringClampOnlyLowers(t *testing.T) {
	cfg := stabilizerConfig(t)
	s := NewStabilizer(cfg)

	body := ringBody(600, 400, 30)
	// Defaults sit below every ceiling at the reference world size.
	var stiffBefore, dampBefore []float32
	for _, sp := range body.Springs {
		stiffBefore = append(stiffBefore, sp.Stiffness)
		dampBefore = append(dampBefore, sp.Damping)
	}

	report := s.Stabilize(body)

	if report.SpringsClamped != 0 {
		t.Fatalf("springs clamped at reference scale: %d", report.SpringsClamped)
	}
	for i, sp := range body.Springs {
		if sp.Stiffness != stiffBefore[i] || sp.Damping != dampBefore[i] {
			t.Errorf("spring %d changed: k %v->%v c %v->%v",
				i, stiffBefore[i], sp.Stiffness, dampBefore[i], sp.Damping)
		}
	}
}

func TestSpringClampClassesIndependent(t *testing.T) {
	cfg := stabilizerConfig(t)
	cfg.World.Width = 100
	cfg.World.Height = 100
	cfg.Rederive()
	s := NewStabilizer(cfg)

	if s.RigidStiffnessCeiling() <= s.SoftStiffnessCeiling() {
		t.Errorf("rigid ceiling %v should exceed soft ceiling %v",
			s.RigidStiffnessCeiling(), s.SoftStiffnessCeiling())
	}

	body := ringBody(50, 50, 10)
	for i := range body.Springs {
		body.Springs[i].Stiffness = 500000
	}
	s.Stabilize(body)

	for _, sp := range body.Springs {
		if sp.Rigid && sp.Stiffness != s.RigidStiffnessCeiling() {
			t.Errorf("rigid spring clamped to %v, want %v", sp.Stiffness, s.RigidStiffnessCeiling())
		}
		if !sp.Rigid && sp.Stiffness != s.SoftStiffnessCeiling() {
			t.Errorf("soft spring clamped to %v, want %v", sp.Stiffness, s.SoftStiffnessCeiling())
		}
	}
}

func TestSpringClampTimestepFactor(t *testing.T) {
	cfg := stabilizerConfig(t)

	// Smaller dt allows higher stiffness, bounded by dt_scale_max.
	cfg.Physics.DT = cfg.Stabilizer.DTReference / 10
	cfg.Rederive()
	fast := NewStabilizer(cfg)

	cfg.Physics.DT = cfg.Stabilizer.DTReference
	cfg.Rederive()
	ref := NewStabilizer(cfg)

	if fast.RigidStiffnessCeiling() < ref.RigidStiffnessCeiling() {
		t.Errorf("smaller dt lowered ceiling: %v < %v",
			fast.RigidStiffnessCeiling(), ref.RigidStiffnessCeiling())
	}
	maxAllowed := float64(ref.RigidStiffnessCeiling()) * cfg.Stabilizer.DTScaleMax
	if float64(fast.RigidStiffnessCeiling()) > maxAllowed+1 {
		t.Errorf("dt factor escaped clamp: %v > %v", fast.RigidStiffnessCeiling(), maxAllowed)
	}
}
