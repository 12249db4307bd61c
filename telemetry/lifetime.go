package telemetry

import "github.com/pthm-cable/brine/components"

// LifetimeStats tracks per-body statistics over its lifetime.
type LifetimeStats struct {
	BirthTick  int64
	Origin     components.BirthOrigin
	Generation int32
	LineageID  uint32

	// Reproduction
	Children int

	// Energy
	PeakEnergy     float64
	EnergyAtFold   float64
	AgeTicksAtFold int64
}

// LifetimeTracker manages per-body lifetime statistics. Stats for
// removed bodies are folded into run-wide aggregates rather than kept.
type LifetimeTracker struct {
	stats map[uint32]*LifetimeStats

	foldedCount       int
	foldedEnergyTotal float64
	foldedAgeTicks    int64
	foldedChildren    int
}

// NewLifetimeTracker creates a new lifetime tracker.
func NewLifetimeTracker() *LifetimeTracker {
	return &LifetimeTracker{
		stats: make(map[uint32]*LifetimeStats),
	}
}

// Register creates lifetime stats for a new body.
func (lt *LifetimeTracker) Register(lc *components.Lifecycle) {
	lt.stats[lc.ID] = &LifetimeStats{
		BirthTick:  lc.BirthTick,
		Origin:     lc.Origin,
		Generation: lc.Generation,
		LineageID:  lc.LineageID,
	}
}

// Get returns the lifetime stats for a body, or nil if not found.
func (lt *LifetimeTracker) Get(bodyID uint32) *LifetimeStats {
	return lt.stats[bodyID]
}

// RecordChild increments the parent's children count.
func (lt *LifetimeTracker) RecordChild(parentID uint32) {
	if s := lt.stats[parentID]; s != nil {
		s.Children++
	}
}

// UpdateEnergy tracks peak energy.
func (lt *LifetimeTracker) UpdateEnergy(bodyID uint32, energy float64) {
	if s := lt.stats[bodyID]; s != nil {
		if energy > s.PeakEnergy {
			s.PeakEnergy = energy
		}
	}
}

// Fold removes a body's stats and folds its remaining energy and age
// into the run-wide aggregates. The folded stats are returned for
// logging; nil means the body was never registered.
func (lt *LifetimeTracker) Fold(bodyID uint32, tick int64, energy float64) *LifetimeStats {
	s := lt.stats[bodyID]
	if s == nil {
		return nil
	}
	delete(lt.stats, bodyID)

	s.EnergyAtFold = energy
	s.AgeTicksAtFold = tick - s.BirthTick

	lt.foldedCount++
	lt.foldedEnergyTotal += energy
	lt.foldedAgeTicks += s.AgeTicksAtFold
	lt.foldedChildren += s.Children

	return s
}

// FoldedEnergyTotal returns the cumulative energy held by bodies at
// the moment they were removed.
func (lt *LifetimeTracker) FoldedEnergyTotal() float64 {
	return lt.foldedEnergyTotal
}

// MeanFoldedAge returns the mean lifetime in ticks of removed bodies.
func (lt *LifetimeTracker) MeanFoldedAge() float64 {
	if lt.foldedCount == 0 {
		return 0
	}
	return float64(lt.foldedAgeTicks) / float64(lt.foldedCount)
}

// FoldedCount returns how many bodies have been folded.
func (lt *LifetimeTracker) FoldedCount() int {
	return lt.foldedCount
}

// Count returns the number of live tracked bodies.
func (lt *LifetimeTracker) Count() int {
	return len(lt.stats)
}
