package systems

import (
	"math"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/pthm-cable/brine/config"
)

// NutrientField is a toroidal nutrient grid that mouth nodes graze
// from. Cells regrow toward a noise-derived capacity and diffuse into
// depleted neighbors. Rates are per tick.
type NutrientField struct {
	W, H int

	// Current nutrient mass per cell, what bodies consume.
	Res []float32
	// Capacity per cell, what Res regrows toward.
	Cap []float32

	worldW, worldH float32

	regrow      float32
	diffuseRate float32
	maxCapacity float32
	grazeRadius int

	noise opensimplex.Noise
	tmp   []float32
}

// NewNutrientField builds the capacity grid from seeded simplex FBM
// and starts the field full.
func NewNutrientField(cfg *config.Config, seed int64) *NutrientField {
	nc := cfg.Nutrients
	nf := &NutrientField{
		W: nc.GridWidth, H: nc.GridHeight,
		Res:         make([]float32, nc.GridWidth*nc.GridHeight),
		Cap:         make([]float32, nc.GridWidth*nc.GridHeight),
		tmp:         make([]float32, nc.GridWidth*nc.GridHeight),
		worldW:      cfg.Derived.WorldW32,
		worldH:      cfg.Derived.WorldH32,
		regrow:      float32(nc.Regrow),
		diffuseRate: float32(nc.Diffuse),
		maxCapacity: float32(nc.MaxCapacity),
		grazeRadius: nc.GrazeRadius,
		noise:       opensimplex.NewNormalized(seed),
	}

	scale := nc.NoiseScale
	for y := 0; y < nf.H; y++ {
		v := (float64(y) + 0.5) / float64(nf.H)
		for x := 0; x < nf.W; x++ {
			u := (float64(x) + 0.5) / float64(nf.W)
			nf.Cap[y*nf.W+x] = nf.maxCapacity * nf.fbm(u*scale, v*scale, nc.Octaves)
		}
	}
	copy(nf.Res, nf.Cap)
	return nf
}

// Sample returns the nutrient level at world coordinates using
// bilinear interpolation on the toroidal grid.
func (nf *NutrientField) Sample(x, y float32) float32 {
	u := envFract(x / nf.worldW)
	v := envFract(y / nf.worldH)
	return nf.sampleBilinear(nf.Res, u, v)
}

// Graze removes up to want nutrient mass near (x,y), spread over a
// tent kernel of the configured radius, and returns the amount
// actually removed. Depleted cells yield nothing.
func (nf *NutrientField) Graze(x, y, want float32) float32 {
	if want <= 0 {
		return 0
	}
	u := envFract(x / nf.worldW)
	v := envFract(y / nf.worldH)
	cx := int(u * float32(nf.W))
	cy := int(v * float32(nf.H))

	r := nf.grazeRadius
	var wsum float32
	for oy := -r; oy <= r; oy++ {
		for ox := -r; ox <= r; ox++ {
			w := float32(r+1) - float32(envAbsInt(ox)+envAbsInt(oy))
			if w > 0 {
				wsum += w
			}
		}
	}

	var removed float32
	for oy := -r; oy <= r; oy++ {
		yy := sysModInt(cy+oy, nf.H)
		for ox := -r; ox <= r; ox++ {
			w := float32(r+1) - float32(envAbsInt(ox)+envAbsInt(oy))
			if w <= 0 {
				continue
			}
			xx := sysModInt(cx+ox, nf.W)
			i := yy*nf.W + xx
			take := want * (w / wsum)
			if take > nf.Res[i] {
				take = nf.Res[i]
			}
			nf.Res[i] -= take
			removed += take
		}
	}
	return removed
}

// Deposit returns nutrient mass to the cell under (x,y). Used to
// recycle expired particles; cells cap at the global maximum.
func (nf *NutrientField) Deposit(x, y, amount float32) {
	if amount <= 0 {
		return
	}
	u := envFract(x / nf.worldW)
	v := envFract(y / nf.worldH)
	cx := sysModInt(int(u*float32(nf.W)), nf.W)
	cy := sysModInt(int(v*float32(nf.H)), nf.H)
	i := cy*nf.W + cx
	nf.Res[i] += amount
	if nf.Res[i] > nf.maxCapacity {
		nf.Res[i] = nf.maxCapacity
	}
}

// Step advances the field one tick: regrowth toward capacity, then
// Laplacian diffusion on the torus.
func (nf *NutrientField) Step() {
	if nf.regrow > 0 {
		for i := range nf.Res {
			nf.Res[i] += (nf.Cap[i] - nf.Res[i]) * nf.regrow
		}
	}
	if nf.diffuseRate > 0 {
		nf.diffuse()
	}
}

// Total returns the summed nutrient mass, for conservation checks.
func (nf *NutrientField) Total() float64 {
	var total float64
	for _, v := range nf.Res {
		total += float64(v)
	}
	return total
}

func (nf *NutrientField) diffuse() {
	a := nf.diffuseRate
	// Stability clamp for explicit diffusion.
	if a > 0.25 {
		a = 0.25
	}

	w, h := nf.W, nf.H
	src, dst := nf.Res, nf.tmp
	for y := 0; y < h; y++ {
		yN := sysModInt(y-1, h)
		yS := sysModInt(y+1, h)
		for x := 0; x < w; x++ {
			xW := sysModInt(x-1, w)
			xE := sysModInt(x+1, w)
			i := y*w + x
			c := src[i]
			dst[i] = c + a*(src[yN*w+x]+src[yS*w+x]+src[y*w+xE]+src[y*w+xW]-4*c)
		}
	}
	nf.Res, nf.tmp = dst, src
}

// fbm sums simplex octaves, normalized back to [0,1].
func (nf *NutrientField) fbm(u, v float64, octaves int) float32 {
	sum, amp, norm := 0.0, 0.5, 0.0
	freq := 1.0
	for o := 0; o < octaves; o++ {
		sum += amp * nf.noise.Eval2(u*freq, v*freq)
		norm += amp
		freq *= 2
		amp *= 0.5
	}
	if norm == 0 {
		return 0
	}
	return float32(sum / norm)
}

func (nf *NutrientField) sampleBilinear(grid []float32, u, v float32) float32 {
	fx := u * float32(nf.W)
	fy := v * float32(nf.H)

	x0 := int(math.Floor(float64(fx)))
	y0 := int(math.Floor(float64(fy)))
	tx := fx - float32(x0)
	ty := fy - float32(y0)

	x0 = sysModInt(x0, nf.W)
	y0 = sysModInt(y0, nf.H)
	x1 := sysModInt(x0+1, nf.W)
	y1 := sysModInt(y0+1, nf.H)

	a := grid[y0*nf.W+x0] + (grid[y0*nf.W+x1]-grid[y0*nf.W+x0])*tx
	b := grid[y1*nf.W+x0] + (grid[y1*nf.W+x1]-grid[y1*nf.W+x0])*tx
	return a + (b-a)*ty
}

func envFract(x float32) float32 {
	return x - float32(math.Floor(float64(x)))
}

func envAbsInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
