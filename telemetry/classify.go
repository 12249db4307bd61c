package telemetry

import "strings"

// Class partitions removal reasons into physics failures, expected
// lifecycle removals, and everything else.
type Class string

const (
	ClassPhysics    Class = "physics"
	ClassNonPhysics Class = "non_physics"
	ClassUnknown    Class = "unknown"
)

// PhysicsKind refines physics-class removals. Non-physics removals
// carry KindNone.
type PhysicsKind string

const (
	KindBoundaryExit       PhysicsKind = "boundary_exit"
	KindInvalidMotion      PhysicsKind = "invalid_motion"
	KindNonFiniteNumeric   PhysicsKind = "non_finite_numeric"
	KindGeometricExplosion PhysicsKind = "geometric_explosion"
	KindNumericOrNaN       PhysicsKind = "numeric_or_nan"
	KindOtherPhysics       PhysicsKind = "other_physics"
	KindNone               PhysicsKind = ""
)

// nonPhysicsReasons are the expected lifecycle removals. Reasons are
// matched by prefix so call sites can append detail after a colon.
var nonPhysicsReasons = []string{"starvation", "culled", "aged_out"}

// Classify maps a free-form removal reason to its class and physics
// kind via prefix rules. Reasons follow the convention
// "<kind>:<detail>"; unrecognized reasons classify as unknown rather
// than failing, since reasons originate from body implementations the
// core does not control.
func Classify(reason string) (Class, PhysicsKind) {
	switch {
	case reason == "":
		return ClassUnknown, KindNone
	case strings.HasPrefix(reason, "boundary_exit"):
		return ClassPhysics, KindBoundaryExit
	case strings.HasPrefix(reason, "invalid_motion"):
		return ClassPhysics, KindInvalidMotion
	case strings.HasPrefix(reason, "non_finite"), strings.HasPrefix(reason, "nan"):
		return ClassPhysics, KindNonFiniteNumeric
	case strings.HasPrefix(reason, "geometric_explosion"):
		return ClassPhysics, KindGeometricExplosion
	case strings.HasPrefix(reason, "numeric"):
		return ClassPhysics, KindNumericOrNaN
	case strings.HasPrefix(reason, "physics"):
		return ClassPhysics, KindOtherPhysics
	}
	for _, p := range nonPhysicsReasons {
		if strings.HasPrefix(reason, p) {
			return ClassNonPhysics, KindNone
		}
	}
	return ClassUnknown, KindNone
}

// Lifecycle stages keyed by age, for removal counters.
const (
	StageJuvenile = "juvenile"
	StageMature   = "mature"
	StageElder    = "elder"
)

// StageFor buckets an age into a lifecycle stage given the two
// configured boundaries.
func StageFor(ageTicks, juvenileTicks, matureTicks int64) string {
	switch {
	case ageTicks < juvenileTicks:
		return StageJuvenile
	case ageTicks < matureTicks:
		return StageMature
	default:
		return StageElder
	}
}
