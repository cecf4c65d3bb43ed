// Package source models illumination sources as pure functions of position.
package source

import (
	"math"

	"github.com/leb-epfl/imajin/imerr"
)

// Source is a narrow, closed capability: irradiance at a point, in photons
// per unit time per unit area.
type Source interface {
	Irradiance(x, y float64) float64
}

// EField computes the electric-field amplitude implied by an irradiance and
// a medium impedance: e = sqrt(impedance * irradiance).
func EField(s Source, x, y, impedance float64) float64 {
	return math.Sqrt(impedance * s.Irradiance(x, y))
}

// UniformMono2D is a monochromatic source of uniform irradiance over a
// rectangle and zero outside it.
type UniformMono2D struct {
	power    float64
	powerMax float64
	xLim     [2]float64
	yLim     [2]float64
}

// NewUniformMono2D constructs a UniformMono2D. 0 <= power <= powerMax must
// hold, and xLim/yLim must each be strictly increasing.
func NewUniformMono2D(power, powerMax float64, xLim, yLim [2]float64) (*UniformMono2D, error) {
	if powerMax < 0 {
		return nil, imerr.Invalid("source: power_max must be non-negative")
	}
	if power < 0 || power > powerMax {
		return nil, imerr.Invalid("source: power must satisfy 0 <= power <= power_max")
	}
	if xLim[0] >= xLim[1] {
		return nil, imerr.Invalid("source: x_lim[0] must be < x_lim[1]")
	}
	if yLim[0] >= yLim[1] {
		return nil, imerr.Invalid("source: y_lim[0] must be < y_lim[1]")
	}
	return &UniformMono2D{power: power, powerMax: powerMax, xLim: xLim, yLim: yLim}, nil
}

// Power returns the current power setting.
func (u *UniformMono2D) Power() float64 { return u.power }

// PowerMax returns the immutable maximum power this source can be set to.
func (u *UniformMono2D) PowerMax() float64 { return u.powerMax }

// SetPower updates the power, enforcing 0 <= power <= power_max.
func (u *UniformMono2D) SetPower(power float64) error {
	if power < 0 || power > u.powerMax {
		return imerr.Invalid("source: power must satisfy 0 <= power <= power_max")
	}
	u.power = power
	return nil
}

// area is the rectangle's area, used to convert power to irradiance.
func (u *UniformMono2D) area() float64 {
	return (u.xLim[1] - u.xLim[0]) * (u.yLim[1] - u.yLim[0])
}

// Snapshot captures the source's mutable state (its power setting).
func (u *UniformMono2D) Snapshot() any { return u.power }

// Restore replaces the source's power setting with a previously-captured
// Snapshot.
func (u *UniformMono2D) Restore(v any) { u.power = v.(float64) }

// Irradiance is power/area inside the rectangle, 0 outside. The boundary
// test is intentionally closed on both edges (x_lim[0] <= x <= x_lim[1]),
// following the reference source literally rather than the more common
// half-open pixel convention — see SPEC_FULL.md §9 Open Question 1.
func (u *UniformMono2D) Irradiance(x, y float64) float64 {
	if x < u.xLim[0] || x > u.xLim[1] || y < u.yLim[0] || y > u.yLim[1] {
		return 0
	}
	return u.power / u.area()
}
