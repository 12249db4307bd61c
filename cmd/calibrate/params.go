// Package main provides CMA-ES calibration for simulation constants
// that trade physical stability against ecosystem liveliness.
package main

import (
	"github.com/pthm-cable/brine/config"
)

// ParamSpec defines a single calibratable parameter.
type ParamSpec struct {
	Name    string  // Human-readable name
	Path    string  // Config path for logging
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Default float64 // Default value
}

// ParamVector holds the set of all calibratable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates the standard set of calibratable parameters.
// Spring constants and drag dominate whether bodies explode; the energy
// economy dominates whether anything lives long enough to tell.
func NewParamVector() *ParamVector {
	return &ParamVector{
		Specs: []ParamSpec{
			// Body physics
			{Name: "drag_coefficient", Path: "body.drag_coefficient", Min: 0.10, Max: 0.90, Default: 0.55},
			{Name: "fluid_reaction", Path: "body.fluid_reaction", Min: 0.0, Max: 0.8, Default: 0.30},
			{Name: "soft_stiffness", Path: "body.soft_stiffness", Min: 60, Max: 800, Default: 220},
			{Name: "soft_damping", Path: "body.soft_damping", Min: 0.4, Max: 6.0, Default: 1.8},
			{Name: "rigid_stiffness", Path: "body.rigid_stiffness", Min: 300, Max: 3000, Default: 900},
			{Name: "rigid_damping", Path: "body.rigid_damping", Min: 1.0, Max: 12.0, Default: 4.0},
			{Name: "contact_stiffness", Path: "body.contact_stiffness", Min: 40, Max: 400, Default: 140},
			{Name: "fin_amplitude", Path: "body.fin_amplitude", Min: 0.10, Max: 0.60, Default: 0.35},
			// Fluid
			{Name: "fluid_viscosity", Path: "fluid.viscosity", Min: 0.05, Max: 1.0, Default: 0.28},
			// Energy economy
			{Name: "base_cost", Path: "energy.base_cost", Min: 0.01, Max: 0.12, Default: 0.04},
			{Name: "move_cost", Path: "energy.move_cost", Min: 0.0005, Max: 0.010, Default: 0.002},
			{Name: "graze_rate", Path: "energy.graze_rate", Min: 0.10, Max: 1.0, Default: 0.35},
			{Name: "photo_rate", Path: "energy.photo_rate", Min: 0.0, Max: 0.20, Default: 0.05},
			// Reproduction
			{Name: "repro_threshold", Path: "reproduction.energy_threshold", Min: 55, Max: 110, Default: 70},
			{Name: "energy_split", Path: "reproduction.energy_split", Min: 0.15, Max: 0.45, Default: 0.30},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default parameter values as a slice.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		val := v[i]
		if val < spec.Min {
			val = spec.Min
		}
		if val > spec.Max {
			val = spec.Max
		}
		clamped[i] = val
	}
	return clamped
}

// ApplyToConfig applies parameter values to a Config struct.
// Order must match Specs order.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	c := pv.Clamp(values)

	cfg.Body.DragCoefficient = c[0]
	cfg.Body.FluidReaction = c[1]
	cfg.Body.SoftStiffness = c[2]
	cfg.Body.SoftDamping = c[3]
	cfg.Body.RigidStiffness = c[4]
	cfg.Body.RigidDamping = c[5]
	cfg.Body.ContactStiffness = c[6]
	cfg.Body.FinAmplitude = c[7]

	cfg.Fluid.Viscosity = c[8]

	cfg.Energy.BaseCost = c[9]
	cfg.Energy.MoveCost = c[10]
	cfg.Energy.GrazeRate = c[11]
	cfg.Energy.PhotoRate = c[12]

	cfg.Reproduction.EnergyThreshold = c[13]
	cfg.Reproduction.EnergySplit = c[14]
}

// ExtractFromConfig extracts current parameter values from a Config struct.
func (pv *ParamVector) ExtractFromConfig(cfg *config.Config) []float64 {
	return []float64{
		cfg.Body.DragCoefficient,
		cfg.Body.FluidReaction,
		cfg.Body.SoftStiffness,
		cfg.Body.SoftDamping,
		cfg.Body.RigidStiffness,
		cfg.Body.RigidDamping,
		cfg.Body.ContactStiffness,
		cfg.Body.FinAmplitude,
		cfg.Fluid.Viscosity,
		cfg.Energy.BaseCost,
		cfg.Energy.MoveCost,
		cfg.Energy.GrazeRate,
		cfg.Energy.PhotoRate,
		cfg.Reproduction.EnergyThreshold,
		cfg.Reproduction.EnergySplit,
	}
}
