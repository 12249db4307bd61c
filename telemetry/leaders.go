package telemetry

import (
	"encoding/json"
	"math/rand"
	"sort"
)

// childrenFitnessWeight converts offspring count into the tick scale
// used for age so both contribute to one score.
const childrenFitnessWeight = 2000

// LeaderEntry records a removed body that earned a leader board slot.
// The captured geometry can reseed a floor spawn.
type LeaderEntry struct {
	BodyID     uint32  `json:"body_id"`
	LineageID  uint32  `json:"lineage_id"`
	Generation int32   `json:"generation"`
	Fitness    float64 `json:"fitness"`
	AgeTicks   int64   `json:"age_ticks"`
	Children   int     `json:"children"`
	PeakEnergy float64 `json:"peak_energy"`

	Points  []PointState  `json:"points"`
	Springs []SpringState `json:"springs"`
}

// LeaderBoard stores the longest-lived lineages for reseeding when the
// population falls to the floor. Entries stay sorted by descending
// fitness; the board is bounded.
type LeaderBoard struct {
	entries []LeaderEntry
	maxSize int
	minAge  int64
}

// NewLeaderBoard creates a board with the given capacity. A minimum
// age filters out bodies that never established themselves. maxSize
// below 1 disables the board.
func NewLeaderBoard(maxSize int, minAgeTicks int64) *LeaderBoard {
	return &LeaderBoard{
		entries: make([]LeaderEntry, 0, max(maxSize, 0)),
		maxSize: maxSize,
		minAge:  minAgeTicks,
	}
}

// Consider evaluates a removed body for a board slot. Only non-physics
// removals qualify; geometry that blew up must not reseed. Returns
// true if the body was added.
func (lb *LeaderBoard) Consider(rec DeathRecord, stats *LifetimeStats, state BodyState) bool {
	if lb.maxSize < 1 {
		return false
	}
	if rec.Class != ClassNonPhysics {
		return false
	}
	if rec.AgeTicks < lb.minAge {
		return false
	}

	children := 0
	peak := 0.0
	if stats != nil {
		children = stats.Children
		peak = stats.PeakEnergy
	}

	entry := LeaderEntry{
		BodyID:     rec.BodyID,
		LineageID:  rec.LineageID,
		Generation: rec.Generation,
		Fitness:    float64(rec.AgeTicks) + float64(children)*childrenFitnessWeight,
		AgeTicks:   rec.AgeTicks,
		Children:   children,
		PeakEnergy: peak,
		Points:     state.Points,
		Springs:    state.Springs,
	}

	// Find insertion point (sorted descending by fitness)
	idx := sort.Search(len(lb.entries), func(i int) bool {
		return lb.entries[i].Fitness < entry.Fitness
	})

	// If the board is full and the entry would fall off the end, skip it
	if len(lb.entries) >= lb.maxSize && idx >= lb.maxSize {
		return false
	}

	lb.entries = append(lb.entries, LeaderEntry{})
	copy(lb.entries[idx+1:], lb.entries[idx:])
	lb.entries[idx] = entry

	if len(lb.entries) > lb.maxSize {
		lb.entries = lb.entries[:lb.maxSize]
	}

	return true
}

// Sample selects an entry using tournament selection with k=3.
// Returns nil if the board is empty.
func (lb *LeaderBoard) Sample(rng *rand.Rand) *LeaderEntry {
	if len(lb.entries) == 0 {
		return nil
	}

	const tournamentSize = 3
	var best *LeaderEntry

	for i := 0; i < tournamentSize && i < len(lb.entries); i++ {
		idx := rng.Intn(len(lb.entries))
		candidate := &lb.entries[idx]
		if best == nil || candidate.Fitness > best.Fitness {
			best = candidate
		}
	}

	if best == nil {
		return nil
	}

	entryCopy := *best
	return &entryCopy
}

// Size returns the number of entries on the board.
func (lb *LeaderBoard) Size() int {
	return len(lb.entries)
}

// TopFitness returns the highest fitness on the board, or 0 when empty.
func (lb *LeaderBoard) TopFitness() float64 {
	if len(lb.entries) == 0 {
		return 0
	}
	return lb.entries[0].Fitness
}

// MarshalJSON serializes the board to JSON, best entry first.
func (lb *LeaderBoard) MarshalJSON() ([]byte, error) {
	return json.MarshalIndent(lb.entries, "", "  ")
}
