package systems

import (
	"math"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/pthm-cable/brine/config"
)

// LightField is a depth-attenuated light intensity grid. The base
// grid is static; an optional day cycle scales it by a factor updated
// once per tick. Depth runs down the y axis, so sampling clamps
// rather than tiles.
type LightField struct {
	W, H int

	base           []float32
	worldW, worldH float32

	dayCycleTicks int
	dayFactor     float32
}

// NewLightField builds the base grid: surface intensity, exponential
// depth falloff, and seeded noise for patchy attenuation.
func NewLightField(cfg *config.Config, seed int64) *LightField {
	lc := cfg.Light
	lf := &LightField{
		W: lc.GridWidth, H: lc.GridHeight,
		base:          make([]float32, lc.GridWidth*lc.GridHeight),
		worldW:        cfg.Derived.WorldW32,
		worldH:        cfg.Derived.WorldH32,
		dayCycleTicks: lc.DayCycleTicks,
		dayFactor:     1,
	}

	noise := opensimplex.NewNormalized(seed)
	for y := 0; y < lf.H; y++ {
		depth := (float64(y) + 0.5) / float64(lf.H)
		falloff := math.Exp(-lc.Falloff * depth)
		for x := 0; x < lf.W; x++ {
			u := (float64(x) + 0.5) / float64(lf.W)
			n := noise.Eval2(u*lc.NoiseScale, depth*lc.NoiseScale)
			atten := 1 - 0.3*n
			lf.base[y*lf.W+x] = float32(lc.SurfaceLight * falloff * atten)
		}
	}
	return lf
}

// Step updates the day-cycle factor for the given tick. A zero cycle
// length keeps the field static at full intensity.
func (lf *LightField) Step(tick int64) {
	if lf.dayCycleTicks <= 0 {
		return
	}
	phase := 2 * math.Pi * float64(tick) / float64(lf.dayCycleTicks)
	lf.dayFactor = float32(0.5 + 0.5*math.Cos(phase))
}

// Sample returns light intensity at world coordinates.
func (lf *LightField) Sample(x, y float32) float32 {
	return envSampleClamped(lf.base, lf.W, lf.H, lf.worldW, lf.worldH, x, y) * lf.dayFactor
}

// ViscosityField is a static multiplier grid applied to body drag.
// Values vary around the configured base by seeded noise.
type ViscosityField struct {
	W, H int

	vals           []float32
	worldW, worldH float32
}

// NewViscosityField builds the multiplier grid.
func NewViscosityField(cfg *config.Config, seed int64) *ViscosityField {
	vc := cfg.Viscosity
	vf := &ViscosityField{
		W: vc.GridWidth, H: vc.GridHeight,
		vals:   make([]float32, vc.GridWidth*vc.GridHeight),
		worldW: cfg.Derived.WorldW32,
		worldH: cfg.Derived.WorldH32,
	}

	noise := opensimplex.NewNormalized(seed)
	for y := 0; y < vf.H; y++ {
		v := (float64(y) + 0.5) / float64(vf.H)
		for x := 0; x < vf.W; x++ {
			u := (float64(x) + 0.5) / float64(vf.W)
			n := noise.Eval2(u*vc.NoiseScale, v*vc.NoiseScale)
			val := vc.Base + vc.Variation*(2*n-1)
			if val < 0 {
				val = 0
			}
			vf.vals[y*vf.W+x] = float32(val)
		}
	}
	return vf
}

// Sample returns the drag multiplier at world coordinates.
func (vf *ViscosityField) Sample(x, y float32) float32 {
	return envSampleClamped(vf.vals, vf.W, vf.H, vf.worldW, vf.worldH, x, y)
}

// envSampleClamped bilinearly samples a grid in world coordinates,
// clamping at the edges instead of tiling.
func envSampleClamped(grid []float32, w, h int, worldW, worldH, x, y float32) float32 {
	fx := x / worldW * float32(w)
	fy := y / worldH * float32(h)

	x0 := int(math.Floor(float64(fx)))
	y0 := int(math.Floor(float64(fy)))
	tx := fx - float32(x0)
	ty := fy - float32(y0)

	x0 = envClampInt(x0, 0, w-1)
	y0 = envClampInt(y0, 0, h-1)
	x1 := envClampInt(x0+1, 0, w-1)
	y1 := envClampInt(y0+1, 0, h-1)

	a := grid[y0*w+x0] + (grid[y0*w+x1]-grid[y0*w+x0])*tx
	b := grid[y1*w+x0] + (grid[y1*w+x1]-grid[y1*w+x0])*tx
	return a + (b-a)*ty
}

func envClampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
