package fluid

import (
	"math"

	"github.com/pthm-cable/brine/config"
)

// refImpulseStrength is the impulse magnitude at which a splat reaches
// half of its configured maximum radius.
const refImpulseStrength = 25.0

// Sim is the CPU reference solver: semi-Lagrangian advection, Jacobi
// diffusion, and Jacobi pressure projection over flat row-major grids.
// Velocity is stored in world units per second; dye is three channels.
type Sim struct {
	w, h           int
	worldW, worldH float32
	dt             float32

	visc           float32
	diffusionIters int
	pressureIters  int
	dyeFade        float32
	advectDecay    float32
	maxVel         float32
	radiusScale    float32
	dyeThreshold   float32
	wrap           bool

	u, v       []float32
	u0, v0     []float32
	r, g, b    []float32
	r0, g0, b0 []float32
	p, div     []float32
}

// NewSim builds a solver from config. Grid geometry, iteration budgets
// and decay constants all come from cfg.Fluid; PressureIters uses the
// clamped derived value.
func NewSim(cfg *config.Config) *Sim {
	w, h := cfg.Fluid.GridWidth, cfg.Fluid.GridHeight
	n := w * h
	return &Sim{
		w:              w,
		h:              h,
		worldW:         cfg.Derived.WorldW32,
		worldH:         cfg.Derived.WorldH32,
		dt:             cfg.Derived.DT32,
		visc:           float32(cfg.Fluid.Viscosity),
		diffusionIters: cfg.Fluid.DiffusionIters,
		pressureIters:  cfg.Derived.PressureIters,
		dyeFade:        float32(cfg.Fluid.DyeFade),
		advectDecay:    float32(cfg.Fluid.AdvectDecay),
		maxVel:         float32(cfg.Fluid.MaxVelComponent),
		radiusScale:    float32(cfg.Fluid.ImpulseRadiusScale),
		dyeThreshold:   float32(cfg.Fluid.DyeThreshold),
		wrap:           cfg.Fluid.Boundary == "wrap",
		u:              make([]float32, n),
		v:              make([]float32, n),
		u0:             make([]float32, n),
		v0:             make([]float32, n),
		r:              make([]float32, n),
		g:              make([]float32, n),
		b:              make([]float32, n),
		r0:             make([]float32, n),
		g0:             make([]float32, n),
		b0:             make([]float32, n),
		p:              make([]float32, n),
		div:            make([]float32, n),
	}
}

// Resolution returns the solver grid dimensions.
func (s *Sim) Resolution() (int, int) { return s.w, s.h }

// Step advances the field one tick: velocity advection with viscosity
// decay, Jacobi diffusion, pressure projection, then dye advection
// with fade.
func (s *Sim) Step() {
	s.advectVelocity()
	s.diffuseVelocity()
	s.project()
	s.advectDye()
}

// AddVelocity splats a velocity impulse with Gaussian falloff around
// (x,y) in world units. The radius derives from strength; components
// are hard-clamped to the configured maximum after injection.
func (s *Sim) AddVelocity(x, y, dx, dy, strength float32) {
	gx, gy := s.gridCoords(x, y, SpaceWorld)
	s.splat(gx, gy, strength, func(i int, w float32) {
		s.u[i] = flClampAbs(s.u[i]+dx*w, s.maxVel)
		s.v[i] = flClampAbs(s.v[i]+dy*w, s.maxVel)
	})
}

// AddDensity splats dye with Gaussian falloff around (x,y) in world
// units.
func (s *Sim) AddDensity(x, y, r, g, b, strength float32) {
	gx, gy := s.gridCoords(x, y, SpaceWorld)
	s.splat(gx, gy, strength, func(i int, w float32) {
		s.r[i] += r * w
		s.g[i] += g * w
		s.b[i] += b * w
	})
}

// VelocityAt bilinearly samples velocity at a point in the stated
// coordinate space.
func (s *Sim) VelocityAt(x, y float32, space CoordSpace) (float32, float32) {
	gx, gy := s.gridCoords(x, y, space)
	return s.sampleGrid(s.u, gx, gy), s.sampleGrid(s.v, gx, gy)
}

// DensityAt bilinearly samples the dye channels at a point in the
// stated coordinate space.
func (s *Sim) DensityAt(x, y float32, space CoordSpace) (float32, float32, float32) {
	gx, gy := s.gridCoords(x, y, space)
	return s.sampleGrid(s.r, gx, gy), s.sampleGrid(s.g, gx, gy), s.sampleGrid(s.b, gx, gy)
}

// gridCoords converts a point into grid cell coordinates. World input
// maps through worldW/worldH; grid input passes through untouched
// apart from boundary normalization.
func (s *Sim) gridCoords(x, y float32, space CoordSpace) (float32, float32) {
	var gx, gy float32
	switch space {
	case SpaceWorld:
		gx = x / s.worldW * float32(s.w)
		gy = y / s.worldH * float32(s.h)
	case SpaceGrid:
		gx, gy = x, y
	}
	if s.wrap {
		gx = flFract(gx/float32(s.w)) * float32(s.w)
		gy = flFract(gy/float32(s.h)) * float32(s.h)
	} else {
		gx = flClamp(gx, 0, float32(s.w)-1)
		gy = flClamp(gy, 0, float32(s.h)-1)
	}
	return gx, gy
}

// cellAt resolves integer cell coordinates under the boundary flag.
// Clamp mode pins out-of-range cells to the border so splats near the
// edge stay inside.
func (s *Sim) cellAt(cx, cy int) int {
	if s.wrap {
		return flModInt(cy, s.h)*s.w + flModInt(cx, s.w)
	}
	if cx < 0 {
		cx = 0
	} else if cx >= s.w {
		cx = s.w - 1
	}
	if cy < 0 {
		cy = 0
	} else if cy >= s.h {
		cy = s.h - 1
	}
	return cy*s.w + cx
}

// sampleGrid bilinearly interpolates a grid at fractional cell
// coordinates.
func (s *Sim) sampleGrid(grid []float32, gx, gy float32) float32 {
	x0 := int(math.Floor(float64(gx)))
	y0 := int(math.Floor(float64(gy)))
	tx := gx - float32(x0)
	ty := gy - float32(y0)

	i00 := s.cellAt(x0, y0)
	i10 := s.cellAt(x0+1, y0)
	i01 := s.cellAt(x0, y0+1)
	i11 := s.cellAt(x0+1, y0+1)

	a := grid[i00] + (grid[i10]-grid[i00])*tx
	b := grid[i01] + (grid[i11]-grid[i01])*tx
	return a + (b-a)*ty
}

// splat applies fn over the Gaussian footprint centred at grid coords
// (gx,gy). Weight is 1 at the centre falling to ~0.14 at the radius.
func (s *Sim) splat(gx, gy, strength float32, fn func(i int, w float32)) {
	minDim := s.w
	if s.h < minDim {
		minDim = s.h
	}
	radius := s.radiusScale * float32(minDim) * (strength / (strength + refImpulseStrength))
	if radius < 1 {
		radius = 1
	}
	sigma2 := radius * radius * 0.25 // sigma = radius/2

	x0 := int(math.Floor(float64(gx - radius)))
	x1 := int(math.Ceil(float64(gx + radius)))
	y0 := int(math.Floor(float64(gy - radius)))
	y1 := int(math.Ceil(float64(gy + radius)))

	for cy := y0; cy <= y1; cy++ {
		for cx := x0; cx <= x1; cx++ {
			if !s.wrap && (cx < 0 || cx >= s.w || cy < 0 || cy >= s.h) {
				continue
			}
			ddx := float32(cx) - gx
			ddy := float32(cy) - gy
			d2 := ddx*ddx + ddy*ddy
			if d2 > radius*radius {
				continue
			}
			w := float32(math.Exp(float64(-d2 / (2 * sigma2))))
			fn(s.cellAt(cx, cy), w)
		}
	}
}

// advectVelocity back-traces each cell along the current velocity and
// resamples, applying the viscosity decay 1/(1+4*nu*dt) and the
// advection decay on the way.
func (s *Sim) advectVelocity() {
	decay := 1 / (1 + 4*s.visc*s.dt) * s.advectDecay
	cellsPerUnitX := float32(s.w) / s.worldW
	cellsPerUnitY := float32(s.h) / s.worldH

	for y := 0; y < s.h; y++ {
		for x := 0; x < s.w; x++ {
			i := y*s.w + x
			px := float32(x) - s.dt*s.u[i]*cellsPerUnitX
			py := float32(y) - s.dt*s.v[i]*cellsPerUnitY
			px, py = s.gridCoords(px, py, SpaceGrid)
			s.u0[i] = s.sampleGrid(s.u, px, py) * decay
			s.v0[i] = s.sampleGrid(s.v, px, py) * decay
		}
	}
	s.u, s.u0 = s.u0, s.u
	s.v, s.v0 = s.v0, s.v
	if !s.wrap {
		s.zeroEdges(s.u)
		s.zeroEdges(s.v)
	}
}

// diffuseVelocity runs a small Jacobi diffusion budget over both
// velocity components.
func (s *Sim) diffuseVelocity() {
	a := s.visc * s.dt
	if a <= 0 || s.diffusionIters <= 0 {
		return
	}
	for it := 0; it < s.diffusionIters; it++ {
		s.jacobiDiffuse(s.u, s.u0, a)
		s.jacobiDiffuse(s.v, s.v0, a)
		s.u, s.u0 = s.u0, s.u
		s.v, s.v0 = s.v0, s.v
	}
	if !s.wrap {
		s.zeroEdges(s.u)
		s.zeroEdges(s.v)
	}
}

func (s *Sim) jacobiDiffuse(src, dst []float32, a float32) {
	inv := 1 / (1 + 4*a)
	for y := 0; y < s.h; y++ {
		for x := 0; x < s.w; x++ {
			i := y*s.w + x
			l := src[s.cellAt(x-1, y)]
			r := src[s.cellAt(x+1, y)]
			t := src[s.cellAt(x, y-1)]
			bm := src[s.cellAt(x, y+1)]
			dst[i] = (src[i] + a*(l+r+t+bm)) * inv
		}
	}
}

// project makes the velocity field approximately divergence-free:
// central-difference divergence, Jacobi pressure solve, gradient
// subtraction.
func (s *Sim) project() {
	for y := 0; y < s.h; y++ {
		for x := 0; x < s.w; x++ {
			i := y*s.w + x
			ur := s.u[s.cellAt(x+1, y)]
			ul := s.u[s.cellAt(x-1, y)]
			vb := s.v[s.cellAt(x, y+1)]
			vt := s.v[s.cellAt(x, y-1)]
			s.div[i] = 0.5 * (ur - ul + vb - vt)
			s.p[i] = 0
		}
	}

	for it := 0; it < s.pressureIters; it++ {
		for y := 0; y < s.h; y++ {
			for x := 0; x < s.w; x++ {
				i := y*s.w + x
				pl := s.p[s.cellAt(x-1, y)]
				pr := s.p[s.cellAt(x+1, y)]
				pt := s.p[s.cellAt(x, y-1)]
				pb := s.p[s.cellAt(x, y+1)]
				s.u0[i] = (pl + pr + pt + pb - s.div[i]) * 0.25
			}
		}
		s.p, s.u0 = s.u0, s.p
	}

	for y := 0; y < s.h; y++ {
		for x := 0; x < s.w; x++ {
			i := y*s.w + x
			pr := s.p[s.cellAt(x+1, y)]
			pl := s.p[s.cellAt(x-1, y)]
			pb := s.p[s.cellAt(x, y+1)]
			pt := s.p[s.cellAt(x, y-1)]
			s.u[i] -= 0.5 * (pr - pl)
			s.v[i] -= 0.5 * (pb - pt)
		}
	}
	if !s.wrap {
		s.zeroEdges(s.u)
		s.zeroEdges(s.v)
	}
}

// advectDye transports the dye channels along the projected velocity
// and applies the per-tick fade.
func (s *Sim) advectDye() {
	cellsPerUnitX := float32(s.w) / s.worldW
	cellsPerUnitY := float32(s.h) / s.worldH

	for y := 0; y < s.h; y++ {
		for x := 0; x < s.w; x++ {
			i := y*s.w + x
			px := float32(x) - s.dt*s.u[i]*cellsPerUnitX
			py := float32(y) - s.dt*s.v[i]*cellsPerUnitY
			px, py = s.gridCoords(px, py, SpaceGrid)
			s.r0[i] = s.sampleGrid(s.r, px, py) * s.dyeFade
			s.g0[i] = s.sampleGrid(s.g, px, py) * s.dyeFade
			s.b0[i] = s.sampleGrid(s.b, px, py) * s.dyeFade
		}
	}
	s.r, s.r0 = s.r0, s.r
	s.g, s.g0 = s.g0, s.g
	s.b, s.b0 = s.b0, s.b
}

// zeroEdges clears the border ring. Clamp-mode boundaries treat edges
// as solid.
func (s *Sim) zeroEdges(grid []float32) {
	for x := 0; x < s.w; x++ {
		grid[x] = 0
		grid[(s.h-1)*s.w+x] = 0
	}
	for y := 0; y < s.h; y++ {
		grid[y*s.w] = 0
		grid[y*s.w+s.w-1] = 0
	}
}

func flFract(x float32) float32 {
	return x - float32(math.Floor(float64(x)))
}

func flClamp(x, lo, hi float32) float32 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

func flClampAbs(x, limit float32) float32 {
	if x > limit {
		return limit
	}
	if x < -limit {
		return -limit
	}
	return x
}

func flModInt(a, m int) int {
	r := a % m
	if r < 0 {
		r += m
	}
	return r
}
