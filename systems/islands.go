package systems

import (
	"math/rand"
)

// Execution-order policies. legacy_reverse predates islands and is
// kept as a regression baseline; islands_shuffled exists to prove
// outcomes are order-insensitive within the physics.
const (
	OrderLegacyReverse        = "legacy_reverse"
	OrderIslandsDeterministic = "islands_deterministic"
	OrderIslandsShuffled      = "islands_shuffled"
)

// IslandStats summarizes a partition for telemetry.
type IslandStats struct {
	Count    int
	MinSize  int
	MaxSize  int
	MeanSize float64
}

// IslandBuilder partitions live bodies into interaction islands:
// connected components under "any point of A within N cells of any
// point of B" on the populated spatial grid. Bodies in different
// islands cannot interact within the tick.
type IslandBuilder struct {
	neighborCells int
	parent        []int32
}

// NewIslandBuilder creates a builder linking bodies within
// neighborCells grid cells of each other.
func NewIslandBuilder(neighborCells int) *IslandBuilder {
	return &IslandBuilder{neighborCells: neighborCells}
}

// Partition computes the island decomposition of bodyCount bodies
// from the already-populated grid. Islands are ordered by their
// smallest member slot; members keep insertion order. The union of
// all islands is exactly the live set and islands are disjoint.
func (ib *IslandBuilder) Partition(grid *SpatialGrid, bodyCount int) ([][]int32, IslandStats) {
	if bodyCount == 0 {
		return nil, IslandStats{}
	}

	if cap(ib.parent) < bodyCount {
		ib.parent = make([]int32, bodyCount)
	}
	ib.parent = ib.parent[:bodyCount]
	for i := range ib.parent {
		ib.parent[i] = int32(i)
	}

	n := ib.neighborCells
	cols, rows := grid.Cols(), grid.Rows()
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			bucket := grid.PointsIn(col, row)
			if len(bucket) == 0 {
				continue
			}
			first := bucket[0].Ref.Body
			for _, gp := range bucket[1:] {
				ib.union(first, gp.Ref.Body)
			}

			// Forward half-neighborhood: each unordered cell pair is
			// visited from one side.
			for dr := 0; dr <= n; dr++ {
				dcMin := -n
				if dr == 0 {
					dcMin = 1
				}
				for dc := dcMin; dc <= n; dc++ {
					ncol, nrow := col+dc, row+dr
					if grid.wrap {
						ncol = sysModInt(ncol, cols)
						nrow = sysModInt(nrow, rows)
					} else if ncol < 0 || ncol >= cols || nrow < 0 || nrow >= rows {
						continue
					}
					for _, other := range grid.PointsIn(ncol, nrow) {
						ib.union(first, other.Ref.Body)
					}
				}
			}
		}
	}

	// Group by root. Iterating slots in ascending order makes island
	// order follow each island's smallest member.
	islandOf := make(map[int32]int, bodyCount)
	var islands [][]int32
	for i := 0; i < bodyCount; i++ {
		root := ib.find(int32(i))
		idx, ok := islandOf[root]
		if !ok {
			idx = len(islands)
			islandOf[root] = idx
			islands = append(islands, nil)
		}
		islands[idx] = append(islands[idx], int32(i))
	}

	stats := IslandStats{Count: len(islands), MinSize: bodyCount, MaxSize: 0}
	for _, is := range islands {
		if len(is) < stats.MinSize {
			stats.MinSize = len(is)
		}
		if len(is) > stats.MaxSize {
			stats.MaxSize = len(is)
		}
	}
	stats.MeanSize = float64(bodyCount) / float64(len(islands))
	return islands, stats
}

// Order flattens a partition into a body execution order under the
// named policy. The RNG is only consulted for islands_shuffled.
func (ib *IslandBuilder) Order(mode string, islands [][]int32, bodyCount int, rng *rand.Rand, shuffleWithin bool) []int32 {
	order := make([]int32, 0, bodyCount)

	switch mode {
	case OrderLegacyReverse:
		for i := bodyCount - 1; i >= 0; i-- {
			order = append(order, int32(i))
		}

	case OrderIslandsDeterministic:
		for _, is := range islands {
			order = append(order, is...)
		}

	case OrderIslandsShuffled:
		perm := make([]int, len(islands))
		for i := range perm {
			perm[i] = i
		}
		rng.Shuffle(len(perm), func(i, j int) { perm[i], perm[j] = perm[j], perm[i] })
		for _, pi := range perm {
			members := islands[pi]
			if shuffleWithin && len(members) > 1 {
				shuffled := make([]int32, len(members))
				copy(shuffled, members)
				rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
				members = shuffled
			}
			order = append(order, members...)
		}
	}

	return order
}

func (ib *IslandBuilder) find(x int32) int32 {
	for ib.parent[x] != x {
		ib.parent[x] = ib.parent[ib.parent[x]]
		x = ib.parent[x]
	}
	return x
}

func (ib *IslandBuilder) union(a, b int32) {
	ra, rb := ib.find(a), ib.find(b)
	if ra == rb {
		return
	}
	// Attach the larger root to the smaller so island identity stays
	// anchored to the lowest slot.
	if ra < rb {
		ib.parent[rb] = ra
	} else {
		ib.parent[ra] = rb
	}
}
