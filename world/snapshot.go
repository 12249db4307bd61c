package world

import (
	"fmt"

	"github.com/pthm-cable/brine/config"
	"github.com/pthm-cable/brine/fluid"
	"github.com/pthm-cable/brine/telemetry"
)

// Snapshot captures the body population for persistence. Fluid,
// particles, and environment fields are not captured: the fields
// regenerate exactly from the stored seed, the rest re-settles within
// a few ticks.
func (w *World) Snapshot() *telemetry.Snapshot {
	snap := &telemetry.Snapshot{
		Version:     telemetry.SnapshotVersion,
		RNGSeed:     w.seed,
		WorldWidth:  w.cfg.Derived.WorldW32,
		WorldHeight: w.cfg.Derived.WorldH32,
		Tick:        w.tick,
		NextBodyID:  w.nextBodyID,
		Bodies:      make([]telemetry.BodyState, 0, len(w.bodies)),
	}
	for _, b := range w.bodies {
		bs := telemetry.CaptureBody(b.Meta(), b.Energy(), b.Shape())
		if lt := w.lifetimes.Get(b.ID()); lt != nil {
			cp := *lt
			bs.Lifetime = &cp
		}
		snap.Bodies = append(snap.Bodies, bs)
	}
	return snap
}

// FromSnapshot reconstructs a world from a validated snapshot. The RNG
// restarts from the stored seed, so the continuation is deterministic
// but is not a splice of the original run's random stream.
func FromSnapshot(cfg *config.Config, factory BodyFactory, snap *telemetry.Snapshot, dev fluid.Device) (*World, error) {
	if err := snap.Validate(); err != nil {
		return nil, err
	}
	if snap.WorldWidth != cfg.Derived.WorldW32 || snap.WorldHeight != cfg.Derived.WorldH32 {
		return nil, fmt.Errorf("snapshot world %gx%g does not match configured %gx%g",
			snap.WorldWidth, snap.WorldHeight, cfg.Derived.WorldW32, cfg.Derived.WorldH32)
	}

	fld, err := fluid.New(cfg, dev)
	if err != nil {
		return nil, err
	}
	w := newWorld(cfg, factory, snap.RNGSeed, fld)
	w.tick = snap.Tick
	w.nextBodyID = max(snap.NextBodyID, 1)

	for i := range snap.Bodies {
		bs := &snap.Bodies[i]
		b := factory.RestoreBody(bs.Lifecycle(), bs.Energy, bs.Geometry())
		w.attach(b)
		w.bodies = append(w.bodies, b)
		w.lifetimes.Register(b.Meta())
	}
	return w, nil
}
