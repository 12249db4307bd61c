package components

// BirthOrigin records how a body entered the world. Telemetry keys
// removal counters by it, so values are stable strings.
type BirthOrigin string

const (
	OriginSeed       BirthOrigin = "seed"
	OriginReproduced BirthOrigin = "reproduced"
	OriginFloorSpawn BirthOrigin = "floor_spawn"
)

// Lifecycle bundles identity, lineage, and removal state for a body.
// A body with Unstable set is pending removal: it stays in the world
// until end-of-tick cleanup so accounting runs against a stable final
// state, then is dropped exactly once.
type Lifecycle struct {
	ID         uint32
	Origin     BirthOrigin
	Generation int32
	ParentID   uint32 // zero for seed and floor-spawn bodies
	LineageID  uint32 // founder ID shared down the lineage
	BirthTick  int64

	ReproCount    int32
	CooldownUntil int64 // tick at which reproduction unlocks again

	Stabilized     bool // newborn stabilization has run
	Unstable       bool
	UnstableReason string
}

// MarkUnstable flags the body for end-of-tick removal. The first
// reason wins; later calls in the same tick are ignored.
func (lc *Lifecycle) MarkUnstable(reason string) {
	if lc.Unstable {
		return
	}
	lc.Unstable = true
	lc.UnstableReason = reason
}

// AgeTicks returns the body age at the given tick.
func (lc *Lifecycle) AgeTicks(tick int64) int64 {
	a := tick - lc.BirthTick
	if a < 0 {
		return 0
	}
	return a
}
