package fluid

import (
	"math"

	"github.com/pthm-cable/brine/config"
)

// ShadowField is the CPU-resident approximate mirror kept alongside a
// device-backed fluid. It exists so coupling queries never wait on
// device readback: impulses are mirrored with cheap tent splats, and
// Step applies exponential decay plus one simplified bilinear
// self-advection pass. It deliberately skips diffusion and projection,
// so it only ever agrees with the real field within tolerances.
type ShadowField struct {
	w, h           int
	worldW, worldH float32
	dt             float32
	decay          float32
	splatRadius    int
	maxVel         float32
	dyeThreshold   float32
	wrap           bool

	u, v         []float32
	r, g, b      []float32
	uSnap, vSnap []float32
	scratch      []float32
}

// NewShadowField builds a shadow mirror with the solver's grid
// geometry.
func NewShadowField(cfg *config.Config) *ShadowField {
	w, h := cfg.Fluid.GridWidth, cfg.Fluid.GridHeight
	n := w * h
	return &ShadowField{
		w:            w,
		h:            h,
		worldW:       cfg.Derived.WorldW32,
		worldH:       cfg.Derived.WorldH32,
		dt:           cfg.Derived.DT32,
		decay:        float32(cfg.Fluid.ShadowDecay),
		splatRadius:  cfg.Fluid.ShadowSplatRadius,
		maxVel:       float32(cfg.Fluid.MaxVelComponent),
		dyeThreshold: float32(cfg.Fluid.DyeThreshold),
		wrap:         cfg.Fluid.Boundary == "wrap",
		u:            make([]float32, n),
		v:            make([]float32, n),
		r:            make([]float32, n),
		g:            make([]float32, n),
		b:            make([]float32, n),
		uSnap:        make([]float32, n),
		vSnap:        make([]float32, n),
		scratch:      make([]float32, n),
	}
}

// Resolution returns the shadow grid dimensions.
func (sf *ShadowField) Resolution() (int, int) { return sf.w, sf.h }

// Step decays the mirrored fields and self-advects them with a single
// bilinear pass. All grids trace along the same velocity snapshot.
func (sf *ShadowField) Step() {
	copy(sf.uSnap, sf.u)
	copy(sf.vSnap, sf.v)
	sf.selfAdvect(sf.u)
	sf.selfAdvect(sf.v)
	sf.selfAdvect(sf.r)
	sf.selfAdvect(sf.g)
	sf.selfAdvect(sf.b)
	for i := range sf.u {
		sf.u[i] *= sf.decay
		sf.v[i] *= sf.decay
		sf.r[i] *= sf.decay
		sf.g[i] *= sf.decay
		sf.b[i] *= sf.decay
	}
}

// AddVelocity mirrors a velocity impulse with a tent splat.
func (sf *ShadowField) AddVelocity(x, y, dx, dy, strength float32) {
	gx, gy := sf.gridCoords(x, y, SpaceWorld)
	sf.tentSplat(gx, gy, func(i int, w float32) {
		sf.u[i] = flClampAbs(sf.u[i]+dx*w, sf.maxVel)
		sf.v[i] = flClampAbs(sf.v[i]+dy*w, sf.maxVel)
	})
}

// AddDensity mirrors a dye impulse with a tent splat.
func (sf *ShadowField) AddDensity(x, y, r, g, b, strength float32) {
	gx, gy := sf.gridCoords(x, y, SpaceWorld)
	sf.tentSplat(gx, gy, func(i int, w float32) {
		sf.r[i] += r * w
		sf.g[i] += g * w
		sf.b[i] += b * w
	})
}

// VelocityAt bilinearly samples the mirrored velocity.
func (sf *ShadowField) VelocityAt(x, y float32, space CoordSpace) (float32, float32) {
	gx, gy := sf.gridCoords(x, y, space)
	return sf.sampleGrid(sf.u, gx, gy), sf.sampleGrid(sf.v, gx, gy)
}

// DensityAt bilinearly samples the mirrored dye.
func (sf *ShadowField) DensityAt(x, y float32, space CoordSpace) (float32, float32, float32) {
	gx, gy := sf.gridCoords(x, y, space)
	return sf.sampleGrid(sf.r, gx, gy), sf.sampleGrid(sf.g, gx, gy), sf.sampleGrid(sf.b, gx, gy)
}

// Stats computes field statistics on the mirror.
func (sf *ShadowField) Stats() FieldStats {
	return fieldStats(sf.u, sf.v, sf.r, sf.g, sf.b, sf.w, sf.h, sf.wrap, sf.dyeThreshold)
}

func (sf *ShadowField) gridCoords(x, y float32, space CoordSpace) (float32, float32) {
	var gx, gy float32
	switch space {
	case SpaceWorld:
		gx = x / sf.worldW * float32(sf.w)
		gy = y / sf.worldH * float32(sf.h)
	case SpaceGrid:
		gx, gy = x, y
	}
	if sf.wrap {
		gx = flFract(gx/float32(sf.w)) * float32(sf.w)
		gy = flFract(gy/float32(sf.h)) * float32(sf.h)
	} else {
		gx = flClamp(gx, 0, float32(sf.w)-1)
		gy = flClamp(gy, 0, float32(sf.h)-1)
	}
	return gx, gy
}

func (sf *ShadowField) cellAt(cx, cy int) int {
	if sf.wrap {
		return flModInt(cy, sf.h)*sf.w + flModInt(cx, sf.w)
	}
	if cx < 0 {
		cx = 0
	} else if cx >= sf.w {
		cx = sf.w - 1
	}
	if cy < 0 {
		cy = 0
	} else if cy >= sf.h {
		cy = sf.h - 1
	}
	return cy*sf.w + cx
}

func (sf *ShadowField) sampleGrid(grid []float32, gx, gy float32) float32 {
	x0 := int(math.Floor(float64(gx)))
	y0 := int(math.Floor(float64(gy)))
	tx := gx - float32(x0)
	ty := gy - float32(y0)

	i00 := sf.cellAt(x0, y0)
	i10 := sf.cellAt(x0+1, y0)
	i01 := sf.cellAt(x0, y0+1)
	i11 := sf.cellAt(x0+1, y0+1)

	a := grid[i00] + (grid[i10]-grid[i00])*tx
	b := grid[i01] + (grid[i11]-grid[i01])*tx
	return a + (b-a)*ty
}

// tentSplat spreads weight over a small kernel, 1 at the centre
// falling linearly to 0 at the radius.
func (sf *ShadowField) tentSplat(gx, gy float32, fn func(i int, w float32)) {
	cx := int(gx)
	cy := int(gy)
	r := sf.splatRadius
	for oy := -r; oy <= r; oy++ {
		for ox := -r; ox <= r; ox++ {
			if !sf.wrap {
				if cx+ox < 0 || cx+ox >= sf.w || cy+oy < 0 || cy+oy >= sf.h {
					continue
				}
			}
			d := flAbsInt(ox) + flAbsInt(oy)
			w := float32(r+1-d) / float32(r+1)
			if w <= 0 {
				continue
			}
			fn(sf.cellAt(cx+ox, cy+oy), w)
		}
	}
}

// selfAdvect back-traces a single grid along the snapshot velocity and
// resamples in place.
func (sf *ShadowField) selfAdvect(grid []float32) {
	cellsPerUnitX := float32(sf.w) / sf.worldW
	cellsPerUnitY := float32(sf.h) / sf.worldH
	for y := 0; y < sf.h; y++ {
		for x := 0; x < sf.w; x++ {
			i := y*sf.w + x
			px := float32(x) - sf.dt*sf.uSnap[i]*cellsPerUnitX
			py := float32(y) - sf.dt*sf.vSnap[i]*cellsPerUnitY
			px, py = sf.gridCoords(px, py, SpaceGrid)
			sf.scratch[i] = sf.sampleGrid(grid, px, py)
		}
	}
	copy(grid, sf.scratch)
}

func flAbsInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
