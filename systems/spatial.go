// Package systems provides the spatial grid, interaction islands,
// newborn stabilization, environment fields, drifting particles, and
// impulse emitters.
package systems

import (
	"github.com/mlange-42/ark/ecs"
)

// PointRef identifies one mass point of a live body by its slot in
// the world's insertion-ordered body list.
type PointRef struct {
	Body  int32
	Point int32
}

// GridPoint is one indexed body point: its slot reference, the stable
// body ID it belongs to, and its position at grid-build time. Queries
// resolve against these frozen positions, so every body in a tick
// reads the same start-of-tick neighborhood.
type GridPoint struct {
	Ref   PointRef
	Owner uint32
	X, Y  float32
}

// PointNeighbor holds a nearby point with precomputed spatial data so
// callers avoid recomputing deltas in hot paths.
type PointNeighbor struct {
	Ref    PointRef
	DX, DY float32
	DistSq float32
}

// MaxQueryResults caps the number of neighbors returned by spatial
// queries. This prevents density spikes from causing unbounded work.
const MaxQueryResults = 128

// SpatialGrid buckets body points and particle entities by cell,
// keyed by floor(pos/cellSize). It is rebuilt from scratch every
// tick; Clear keeps bucket capacity.
type SpatialGrid struct {
	cellSize float32
	cols     int
	rows     int
	width    float32
	height   float32
	wrap     bool

	points    [][]GridPoint
	particles [][]ecs.Entity
}

// NewSpatialGrid creates a grid covering the given world size. The
// wrap flag matches the fluid boundary mode so adjacency is toroidal
// exactly when the world is.
func NewSpatialGrid(width, height, cellSize float32, wrap bool) *SpatialGrid {
	// Ceiling division. A trailing partial cell is real; a phantom
	// full cell would break modular adjacency across the wrap seam.
	cols := int(width / cellSize)
	if float32(cols)*cellSize < width {
		cols++
	}
	rows := int(height / cellSize)
	if float32(rows)*cellSize < height {
		rows++
	}

	points := make([][]GridPoint, cols*rows)
	particles := make([][]ecs.Entity, cols*rows)
	for i := range points {
		points[i] = make([]GridPoint, 0, 8)
	}

	return &SpatialGrid{
		cellSize:  cellSize,
		cols:      cols,
		rows:      rows,
		width:     width,
		height:    height,
		wrap:      wrap,
		points:    points,
		particles: particles,
	}
}

// Cols returns the number of grid columns.
func (g *SpatialGrid) Cols() int { return g.cols }

// Rows returns the number of grid rows.
func (g *SpatialGrid) Rows() int { return g.rows }

// CellSize returns the cell edge length in world units.
func (g *SpatialGrid) CellSize() float32 { return g.cellSize }

// Clear removes all references, keeping allocated capacity.
func (g *SpatialGrid) Clear() {
	for i := range g.points {
		g.points[i] = g.points[i][:0]
	}
	for i := range g.particles {
		g.particles[i] = g.particles[i][:0]
	}
}

// InsertPoint adds a body point at its current position. Owner is the
// stable body ID, used by queries to exclude a body's own points.
func (g *SpatialGrid) InsertPoint(ref PointRef, owner uint32, x, y float32) {
	idx := g.cellIndex(x, y)
	g.points[idx] = append(g.points[idx], GridPoint{Ref: ref, Owner: owner, X: x, Y: y})
}

// InsertParticle adds a particle entity at the given position.
func (g *SpatialGrid) InsertParticle(e ecs.Entity, x, y float32) {
	idx := g.cellIndex(x, y)
	g.particles[idx] = append(g.particles[idx], e)
}

// CellCoords returns the column/row for a world position, clamped to
// the grid in clamp mode and wrapped in wrap mode.
func (g *SpatialGrid) CellCoords(x, y float32) (int, int) {
	col := int(x / g.cellSize)
	row := int(y / g.cellSize)
	if g.wrap {
		return sysModInt(col, g.cols), sysModInt(row, g.rows)
	}
	if col < 0 {
		col = 0
	} else if col >= g.cols {
		col = g.cols - 1
	}
	if row < 0 {
		row = 0
	} else if row >= g.rows {
		row = g.rows - 1
	}
	return col, row
}

// PointsIn returns the body point bucket for a cell.
func (g *SpatialGrid) PointsIn(col, row int) []GridPoint {
	return g.points[row*g.cols+col]
}

// ParticlesIn returns the particle bucket for a cell.
func (g *SpatialGrid) ParticlesIn(col, row int) []ecs.Entity {
	return g.particles[row*g.cols+col]
}

// QueryPointsInto appends points within radius of (x,y) to dst, up to
// MaxQueryResults, excluding points owned by excludeOwner. Positions
// are the ones captured at grid build. Returns the updated slice;
// reuse dst across calls to avoid allocations.
func (g *SpatialGrid) QueryPointsInto(dst []PointNeighbor, x, y, radius float32, excludeOwner uint32) []PointNeighbor {
	cellRadius := int(radius/g.cellSize) + 1
	centerCol := int(x / g.cellSize)
	centerRow := int(y / g.cellSize)
	radiusSq := radius * radius

	for dr := -cellRadius; dr <= cellRadius; dr++ {
		for dc := -cellRadius; dc <= cellRadius; dc++ {
			col := centerCol + dc
			row := centerRow + dr
			if g.wrap {
				col = sysModInt(col, g.cols)
				row = sysModInt(row, g.rows)
			} else if col < 0 || col >= g.cols || row < 0 || row >= g.rows {
				continue
			}

			for _, gp := range g.points[row*g.cols+col] {
				if gp.Owner == excludeOwner {
					continue
				}
				dx, dy := g.delta(x, y, gp.X, gp.Y)
				distSq := dx*dx + dy*dy
				if distSq <= radiusSq {
					dst = append(dst, PointNeighbor{Ref: gp.Ref, DX: dx, DY: dy, DistSq: distSq})
					if len(dst) >= MaxQueryResults {
						return dst
					}
				}
			}
		}
	}
	return dst
}

// BucketLoad reports total stored points and the largest single
// bucket, a cheap congestion signal for telemetry.
func (g *SpatialGrid) BucketLoad() (total, maxBucket int) {
	for i := range g.points {
		n := len(g.points[i])
		total += n
		if n > maxBucket {
			maxBucket = n
		}
	}
	return total, maxBucket
}

// ParticleLoad returns the number of particle refs currently indexed.
func (g *SpatialGrid) ParticleLoad() int {
	total := 0
	for i := range g.particles {
		total += len(g.particles[i])
	}
	return total
}

// cellIndex returns the flat index for a world position.
func (g *SpatialGrid) cellIndex(x, y float32) int {
	col, row := g.CellCoords(x, y)
	return row*g.cols + col
}

// delta returns the shortest path from (x1,y1) to (x2,y2), toroidal
// when the grid wraps.
func (g *SpatialGrid) delta(x1, y1, x2, y2 float32) (float32, float32) {
	dx := x2 - x1
	dy := y2 - y1
	if g.wrap {
		if dx > g.width/2 {
			dx -= g.width
		} else if dx < -g.width/2 {
			dx += g.width
		}
		if dy > g.height/2 {
			dy -= g.height
		} else if dy < -g.height/2 {
			dy += g.height
		}
	}
	return dx, dy
}

func sysModInt(a, m int) int {
	r := a % m
	if r < 0 {
		r += m
	}
	return r
}
