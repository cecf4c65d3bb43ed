// Package psf models the point-spread function: a normalized 2D intensity
// distribution describing where photons from a point emitter land in the
// image plane.
//
// Pixel geometry uses the corner-origin convention throughout: the
// upper-left corner of pixel (0,0) sits at continuous coordinate (0,0), and
// Bin integrates over the half-open rectangle [x, x+dx) x [y, y+dy). This
// is the convention the optics package's edge-clipping math assumes (see
// SPEC_FULL.md §9 Open Question 2).
package psf

import (
	"math"

	"github.com/leb-epfl/imajin/imerr"
)

// PSF is a normalized 2D point-spread function.
type PSF interface {
	// Sample evaluates the PDF at (x,y) for an emitter centered at (x0,y0).
	Sample(x, y, x0, y0 float64) float64
	// Bin integrates the PDF over the pixel whose upper-left corner is
	// (x,y) and whose sides are (dx,dy), for an emitter centered at
	// (x0,y0). Bin over a complete covering of the plane sums to 1; over a
	// bounded region it sums to <= 1.
	Bin(x, y, x0, y0, dx, dy float64) float64
}

// Gaussian2D is an isotropic 2D Gaussian PSF parameterized by its full
// width at half maximum.
type Gaussian2D struct {
	fwhm  float64
	sigma float64
}

const fwhmToSigma = 2.3548200450309493 // 2*sqrt(2*ln2)

// NewGaussian2D constructs a Gaussian2D PSF. fwhm must be > 0.
func NewGaussian2D(fwhm float64) (*Gaussian2D, error) {
	if fwhm <= 0 {
		return nil, imerr.Invalid("psf: fwhm must be > 0")
	}
	return &Gaussian2D{fwhm: fwhm, sigma: fwhm / fwhmToSigma}, nil
}

// FWHM returns the configured full width at half maximum.
func (g *Gaussian2D) FWHM() float64 { return g.fwhm }

// Sigma returns the derived standard deviation, fwhm/2.3548.
func (g *Gaussian2D) Sigma() float64 { return g.sigma }

// Sample evaluates the isotropic 2D Gaussian PDF.
func (g *Gaussian2D) Sample(x, y, x0, y0 float64) float64 {
	dx := x - x0
	dy := y - y0
	norm := 1.0 / (2 * math.Pi * g.sigma * g.sigma)
	return norm * math.Exp(-(dx*dx+dy*dy)/(2*g.sigma*g.sigma))
}

// Bin integrates the Gaussian over a rectangular pixel using the separable
// erf closed form.
func (g *Gaussian2D) Bin(x, y, x0, y0, dx, dy float64) float64 {
	sq2sigma := math.Sqrt2 * g.sigma
	ix := math.Erf((x-x0+dx)/sq2sigma) - math.Erf((x-x0)/sq2sigma)
	iy := math.Erf((y-y0+dy)/sq2sigma) - math.Erf((y-y0)/sq2sigma)
	return 0.25 * ix * iy
}
