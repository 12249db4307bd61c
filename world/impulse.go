package world

import "github.com/pthm-cable/brine/fluid"

// impulseRecorder wraps the fluid backend for the body update phase.
// Reads pass through to the field as it stood after the fluid step;
// writes queue until replay. Every body therefore couples against the
// same frozen field, and the merged reactions become visible at the
// next tick's advection, whatever order bodies ran in.
type impulseRecorder struct {
	backend fluid.Backend
	queued  []queuedImpulse
}

type queuedImpulse struct {
	dye      bool
	x, y     float32
	a, b, c  float32
	strength float32
}

var _ fluid.Backend = (*impulseRecorder)(nil)

// Step is never driven through the recorder; the world steps the
// backend directly before the body phase.
func (r *impulseRecorder) Step() {}

func (r *impulseRecorder) AddVelocity(x, y, dx, dy, strength float32) {
	r.queued = append(r.queued, queuedImpulse{x: x, y: y, a: dx, b: dy, strength: strength})
}

func (r *impulseRecorder) AddDensity(x, y, dr, dg, db, strength float32) {
	r.queued = append(r.queued, queuedImpulse{dye: true, x: x, y: y, a: dr, b: dg, c: db, strength: strength})
}

func (r *impulseRecorder) VelocityAt(x, y float32, space fluid.CoordSpace) (float32, float32) {
	return r.backend.VelocityAt(x, y, space)
}

func (r *impulseRecorder) DensityAt(x, y float32, space fluid.CoordSpace) (float32, float32, float32) {
	return r.backend.DensityAt(x, y, space)
}

func (r *impulseRecorder) Stats() fluid.FieldStats { return r.backend.Stats() }

func (r *impulseRecorder) Resolution() (int, int) { return r.backend.Resolution() }

func (r *impulseRecorder) reset() { r.queued = r.queued[:0] }

// replay applies the queued impulses to the backend in queue order.
func (r *impulseRecorder) replay() {
	for _, q := range r.queued {
		if q.dye {
			r.backend.AddDensity(q.x, q.y, q.a, q.b, q.c, q.strength)
		} else {
			r.backend.AddVelocity(q.x, q.y, q.a, q.b, q.strength)
		}
	}
}
