package fluid

import (
	"log/slog"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// FieldStats summarizes fluid field health. Divergence is measured on
// the current (post-projection) velocity, so AvgDivergence near zero
// means the projection is holding.
type FieldStats struct {
	AvgSpeed      float64 `csv:"avg_speed" json:"avg_speed"`
	MaxSpeed      float64 `csv:"max_speed" json:"max_speed"`
	AvgDivergence float64 `csv:"avg_divergence" json:"avg_divergence"`
	MaxDivergence float64 `csv:"max_divergence" json:"max_divergence"`
	DyeTotal      float64 `csv:"dye_total" json:"dye_total"`
	DyeFootprint  float64 `csv:"dye_footprint" json:"dye_footprint"`
}

// LogValue implements slog.LogValuer for structured logging.
func (fs FieldStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Float64("avg_speed", fs.AvgSpeed),
		slog.Float64("max_speed", fs.MaxSpeed),
		slog.Float64("avg_divergence", fs.AvgDivergence),
		slog.Float64("max_divergence", fs.MaxDivergence),
		slog.Float64("dye_total", fs.DyeTotal),
		slog.Float64("dye_footprint", fs.DyeFootprint),
	)
}

// Stats computes field statistics for the CPU solver.
func (s *Sim) Stats() FieldStats {
	return fieldStats(s.u, s.v, s.r, s.g, s.b, s.w, s.h, s.wrap, s.dyeThreshold)
}

func fieldStats(u, v, r, g, b []float32, w, h int, wrap bool, dyeThreshold float32) FieldStats {
	n := w * h
	speeds := make([]float64, n)
	divs := make([]float64, n)

	at := func(grid []float32, x, y int) float32 {
		if wrap {
			return grid[flModInt(y, h)*w+flModInt(x, w)]
		}
		if x < 0 {
			x = 0
		} else if x >= w {
			x = w - 1
		}
		if y < 0 {
			y = 0
		} else if y >= h {
			y = h - 1
		}
		return grid[y*w+x]
	}

	var dyeTotal float64
	var footprint int
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			speeds[i] = math.Hypot(float64(u[i]), float64(v[i]))
			d := 0.5 * (at(u, x+1, y) - at(u, x-1, y) + at(v, x, y+1) - at(v, x, y-1))
			divs[i] = math.Abs(float64(d))

			dye := r[i] + g[i] + b[i]
			dyeTotal += float64(dye)
			if dye > dyeThreshold {
				footprint++
			}
		}
	}

	return FieldStats{
		AvgSpeed:      stat.Mean(speeds, nil),
		MaxSpeed:      floats.Max(speeds),
		AvgDivergence: stat.Mean(divs, nil),
		MaxDivergence: floats.Max(divs),
		DyeTotal:      dyeTotal,
		DyeFootprint:  float64(footprint) / float64(n),
	}
}
