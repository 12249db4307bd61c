package fluid

import "github.com/pthm-cable/brine/config"

// DeviceBackend pairs an external compute pipeline with a shadow
// mirror. Impulses go to both; every sample is answered by the shadow,
// so the physics path never blocks on the device. Device step errors
// are retained for inspection but do not interrupt the tick: the
// shadow keeps the coupling alive while the host decides what to do.
type DeviceBackend struct {
	dev    Device
	shadow *ShadowField

	errCount int
	lastErr  error
}

// NewDeviceBackend wraps dev with a shadow mirror sized from cfg.
func NewDeviceBackend(cfg *config.Config, dev Device) *DeviceBackend {
	return &DeviceBackend{
		dev:    dev,
		shadow: NewShadowField(cfg),
	}
}

// Step advances the shadow, then submits the device step.
func (d *DeviceBackend) Step() {
	d.shadow.Step()
	if err := d.dev.Step(); err != nil {
		d.errCount++
		d.lastErr = err
	}
}

// AddVelocity forwards the impulse to the device and mirrors it.
func (d *DeviceBackend) AddVelocity(x, y, dx, dy, strength float32) {
	d.dev.AddVelocity(x, y, dx, dy, strength)
	d.shadow.AddVelocity(x, y, dx, dy, strength)
}

// AddDensity forwards the impulse to the device and mirrors it.
func (d *DeviceBackend) AddDensity(x, y, r, g, b, strength float32) {
	d.dev.AddDensity(x, y, r, g, b, strength)
	d.shadow.AddDensity(x, y, r, g, b, strength)
}

// VelocityAt samples the shadow mirror.
func (d *DeviceBackend) VelocityAt(x, y float32, space CoordSpace) (float32, float32) {
	return d.shadow.VelocityAt(x, y, space)
}

// DensityAt samples the shadow mirror.
func (d *DeviceBackend) DensityAt(x, y float32, space CoordSpace) (float32, float32, float32) {
	return d.shadow.DensityAt(x, y, space)
}

// Stats reports shadow-side statistics.
func (d *DeviceBackend) Stats() FieldStats { return d.shadow.Stats() }

// Resolution returns the shadow grid dimensions.
func (d *DeviceBackend) Resolution() (int, int) { return d.shadow.Resolution() }

// DeviceErr returns how many device steps have failed and the most
// recent error.
func (d *DeviceBackend) DeviceErr() (int, error) { return d.errCount, d.lastErr }
