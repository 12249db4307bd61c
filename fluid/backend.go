// Package fluid implements the grid fluid layer: a CPU solver, a
// decaying shadow mirror for device-backed setups, and the sampling
// contract bodies couple against.
package fluid

import (
	"fmt"

	"github.com/pthm-cable/brine/config"
)

// CoordSpace tells samplers how to interpret point coordinates.
// Callers always state the space explicitly; nothing is inferred from
// value magnitudes.
type CoordSpace uint8

const (
	// SpaceWorld is world units over [0,worldW)x[0,worldH).
	SpaceWorld CoordSpace = iota
	// SpaceGrid is solver cells over [0,gridW)x[0,gridH).
	SpaceGrid
)

// Backend is the fluid contract the simulation couples against.
// Step advances one tick; injection applies Gaussian-falloff impulses
// over a strength-derived radius; sampling is bilinear at an arbitrary
// point in the stated coordinate space.
type Backend interface {
	Step()
	AddVelocity(x, y, dx, dy, strength float32)
	AddDensity(x, y, r, g, b, strength float32)
	VelocityAt(x, y float32, space CoordSpace) (vx, vy float32)
	DensityAt(x, y float32, space CoordSpace) (r, g, b float32)
	Stats() FieldStats
	Resolution() (w, h int)
}

// Device is the contract an external compute pipeline fulfills when
// the configured backend is "device". The core never reads fields back
// from it; coupling queries go to the shadow mirror.
type Device interface {
	AddVelocity(x, y, dx, dy, strength float32)
	AddDensity(x, y, r, g, b, strength float32)
	Step() error
}

// New constructs the configured backend. A device backend requires a
// non-nil Device.
func New(cfg *config.Config, dev Device) (Backend, error) {
	switch cfg.Fluid.Backend {
	case "cpu":
		return NewSim(cfg), nil
	case "device":
		if dev == nil {
			return nil, fmt.Errorf("fluid backend %q requires a device", cfg.Fluid.Backend)
		}
		return NewDeviceBackend(cfg, dev), nil
	default:
		return nil, fmt.Errorf("unknown fluid backend %q", cfg.Fluid.Backend)
	}
}
