// Package optics turns a SampleResponse into a photon image: for each
// emitter, the PSF distributes its photons over the pixel grid, and
// safe_round preserves the integer photon total exactly.
package optics

import (
	"math"
	"sort"

	"github.com/leb-epfl/imajin/imerr"
	"github.com/leb-epfl/imajin/psf"
	"github.com/leb-epfl/imajin/sample"
)

// Image is a non-negative integer photon count per pixel, row-major with
// shape (H, W) = (yLim[1]-yLim[0], xLim[1]-xLim[0]).
type Image struct {
	Width, Height int
	Pixels        []uint64 // row-major, length Width*Height
}

// At returns the photon count at pixel (row, col).
func (img *Image) At(row, col int) uint64 { return img.Pixels[row*img.Width+col] }

// Sum returns the total photon count in the image.
func (img *Image) Sum() uint64 {
	var total uint64
	for _, v := range img.Pixels {
		total += v
	}
	return total
}

// Optics accumulates emitter responses into a photon image through a PSF.
type Optics struct {
	p psf.PSF
}

// New constructs an Optics that distributes photons through p.
func New(p psf.PSF) *Optics {
	return &Optics{p: p}
}

// Response builds the photon image for sr over the pixel rectangle
// [xLim[0], xLim[1]) x [yLim[0], yLim[1]).
func (o *Optics) Response(xLim, yLim [2]int, sr sample.SampleResponse) (*Image, error) {
	if xLim[0] >= xLim[1] {
		return nil, imerr.Invalid("optics: x_lim[0] must be < x_lim[1]")
	}
	if yLim[0] >= yLim[1] {
		return nil, imerr.Invalid("optics: y_lim[0] must be < y_lim[1]")
	}

	width := xLim[1] - xLim[0]
	height := yLim[1] - yLim[0]
	acc := make([]float64, width*height)

	for _, e := range sr {
		o.accumulate(acc, width, height, xLim, yLim, e)
	}

	pixels := make([]uint64, len(acc))
	for i, v := range acc {
		pixels[i] = uint64(v)
	}
	return &Image{Width: width, Height: height, Pixels: pixels}, nil
}

// accumulate adds one emitter's photon-conserving-rounded contribution into
// acc, an already-allocated row-major width*height buffer.
func (o *Optics) accumulate(acc []float64, width, height int, xLim, yLim [2]int, e sample.EmitterResponse) {
	if e.Photons == 0 {
		return
	}

	// Clipped fraction: integral of the PSF over the whole image rectangle.
	rho := o.p.Bin(float64(xLim[0]), float64(yLim[0]), e.X, e.Y, float64(width), float64(height))
	if rho <= 0 {
		return
	}
	nE := float64(e.Photons) * rho

	// Per-pixel real-valued distribution.
	dist := make([]float64, width*height)
	for row := 0; row < height; row++ {
		py := float64(yLim[0] + row)
		for col := 0; col < width; col++ {
			px := float64(xLim[0] + col)
			dist[row*width+col] = o.p.Bin(px, py, e.X, e.Y, 1, 1) * nE
		}
	}

	safeRound(dist, nE)

	for i, v := range dist {
		acc[i] += v
	}
}

// safeRound rounds dist componentwise in place, then nudges |k| pixels by
// sign(k) so that the sum over pixels equals round(nE) exactly
// (SPEC_FULL.md §4.5 step 4). The |k| pixels chosen are those with the
// smallest (value - rounded) residual, in ascending order, regardless of
// the sign of k — this looks backwards (it bumps the *least*-deserving
// pixels when k > 0) but it is the ground-truth behavior: np.argsort
// ascending over (array - rounded_array), then np.copysign(1, error)
// applied to the first abs(error) indices of that ascending order. A
// deliberate, undocumented-in-spec deviation from the more "obvious"
// largest-residual selection; see DESIGN.md's Open Question decisions.
func safeRound(dist []float64, nE float64) {
	rounded := make([]float64, len(dist))
	residual := make([]float64, len(dist))
	sum := 0.0
	for i, v := range dist {
		r := math.Round(v)
		rounded[i] = r
		residual[i] = v - r
		sum += r
	}

	k := int(math.Round(nE)) - int(math.Round(sum))
	if k == 0 {
		copy(dist, rounded)
		return
	}
	sign := 1.0
	n := k
	if n < 0 {
		sign = -1.0
		n = -n
	}

	idx := make([]int, len(dist))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return residual[idx[a]] < residual[idx[b]] })

	if n > len(idx) {
		n = len(idx)
	}
	for _, i := range idx[:n] {
		rounded[i] += sign
	}

	copy(dist, rounded)
}
