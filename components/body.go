package components

import "fmt"

// NodeKind classifies the role a mass point plays in a body plan.
type NodeKind uint8

const (
	NodeCore NodeKind = iota
	NodeMouth
	NodeLeaf
	NodeFin
	NodeAnchor
)

// NodeKindNames returns the display names for all node kinds.
// The order matches the NodeKind constants.
func NodeKindNames() []string {
	return []string{"Core", "Mouth", "Leaf", "Fin", "Anchor"}
}

// String returns the display name for a NodeKind.
func (k NodeKind) String() string {
	names := NodeKindNames()
	if int(k) < len(names) {
		return names[k]
	}
	return "Unknown"
}

// MassPoint is one node of a soft body. Velocity is implicit: the
// integrator reads it as pos minus prevPos, so constructors must set
// PrevX/PrevY equal to X/Y for a body at rest.
type MassPoint struct {
	X, Y         float32
	PrevX, PrevY float32
	Radius       float32
	Mass         float32
	Kind         NodeKind
	Fixed        bool
}

// Spring connects two points of the same body by index. Rigid springs
// hold structural shape and tolerate higher stiffness ceilings than
// soft tissue springs.
type Spring struct {
	A, B      int
	Rest      float32
	Stiffness float32
	Damping   float32
	Rigid     bool
}

// SoftBody is the physical state of one creature: an ordered point
// list plus the springs that constrain it. Ordering is load-bearing;
// spring endpoints index into Points.
type SoftBody struct {
	Points  []MassPoint
	Springs []Spring
}

// Validate checks spring endpoint indexes against the point list.
// Bodies failing validation must never enter the world.
func (b *SoftBody) Validate() error {
	n := len(b.Points)
	if n == 0 {
		return fmt.Errorf("soft body has no points")
	}
	for i, s := range b.Springs {
		if s.A < 0 || s.A >= n || s.B < 0 || s.B >= n {
			return fmt.Errorf("spring %d endpoint out of range: %d-%d with %d points", i, s.A, s.B, n)
		}
		if s.A == s.B {
			return fmt.Errorf("spring %d connects point %d to itself", i, s.A)
		}
	}
	return nil
}

// AABB returns the axis-aligned bounding box over all points.
func (b *SoftBody) AABB() (minX, minY, maxX, maxY float32) {
	minX, minY = b.Points[0].X, b.Points[0].Y
	maxX, maxY = minX, minY
	for _, p := range b.Points[1:] {
		if p.X < minX {
			minX = p.X
		}
		if p.X > maxX {
			maxX = p.X
		}
		if p.Y < minY {
			minY = p.Y
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}
	return minX, minY, maxX, maxY
}

// Centroid returns the unweighted mean point position.
func (b *SoftBody) Centroid() (cx, cy float32) {
	for _, p := range b.Points {
		cx += p.X
		cy += p.Y
	}
	n := float32(len(b.Points))
	return cx / n, cy / n
}

// Clone deep-copies the body state.
func (b *SoftBody) Clone() *SoftBody {
	c := &SoftBody{
		Points:  make([]MassPoint, len(b.Points)),
		Springs: make([]Spring, len(b.Springs)),
	}
	copy(c.Points, b.Points)
	copy(c.Springs, b.Springs)
	return c
}
