// Package detector models a CMOS sensor: shot noise, read noise, gain,
// baseline, and saturation/quantization to a configured bit depth.
package detector

import (
	"math"

	"github.com/leb-epfl/imajin/imerr"
	"github.com/leb-epfl/imajin/optics"
)

// RNG is the narrow capability Response needs: Poisson shot noise and
// Gaussian read noise draws. *rng.Source satisfies it; tests substitute a
// fixed-value fake to exercise the seed scenarios in SPEC_FULL.md §8
// without depending on a particular draw sequence.
type RNG interface {
	Poisson(lambda float64) float64
	Normal(mu, sigma float64) float64
}

// BitDepth is a supported detector quantization width.
type BitDepth int

// Supported bit depths.
const (
	BitDepth8  BitDepth = 8
	BitDepth10 BitDepth = 10
	BitDepth12 BitDepth = 12
	BitDepth16 BitDepth = 16
	BitDepth32 BitDepth = 32
)

func (b BitDepth) valid() bool {
	switch b {
	case BitDepth8, BitDepth10, BitDepth12, BitDepth16, BitDepth32:
		return true
	}
	return false
}

func (b BitDepth) max() float64 {
	return math.Pow(2, float64(b)) - 1
}

// SimpleCMOS is the reference CMOS sensor model.
type SimpleCMOS struct {
	Baseline          float64
	BitDepth          BitDepth
	DarkNoise         float64 // electrons, Gaussian sigma
	NumPixels         [2]int  // (height, width)
	QuantumEfficiency float64
	Sensitivity       float64 // ADU per electron
}

// NewSimpleCMOS constructs a SimpleCMOS sensor model, validating every
// invariant in SPEC_FULL.md §4.6.
func NewSimpleCMOS(baseline float64, bitDepth BitDepth, darkNoise float64, numPixels [2]int, quantumEfficiency, sensitivity float64) (*SimpleCMOS, error) {
	if baseline < 0 {
		return nil, imerr.Invalid("detector: baseline must be non-negative")
	}
	if !bitDepth.valid() {
		return nil, imerr.Invalid("detector: bit_depth must be one of 8,10,12,16,32")
	}
	if darkNoise < 0 {
		return nil, imerr.Invalid("detector: dark_noise must be non-negative")
	}
	if numPixels[0] <= 0 || numPixels[1] <= 0 {
		return nil, imerr.Invalid("detector: num_pixels must be positive")
	}
	if quantumEfficiency < 0 || quantumEfficiency > 1 {
		return nil, imerr.Invalid("detector: quantum_efficiency must be in [0,1]")
	}
	if sensitivity <= 0 {
		return nil, imerr.Invalid("detector: sensitivity must be > 0")
	}
	return &SimpleCMOS{
		Baseline:          baseline,
		BitDepth:          bitDepth,
		DarkNoise:         darkNoise,
		NumPixels:         numPixels,
		QuantumEfficiency: quantumEfficiency,
		Sensitivity:       sensitivity,
	}, nil
}

// Snapshot captures the sensor's configuration as a value, for Simulator's
// reset. SimpleCMOS exposes no mutators, so in practice this only guards
// against a caller reaching in and mutating the exported fields directly.
func (d *SimpleCMOS) Snapshot() any { return *d }

// Restore replaces the sensor's configuration with a previously-captured
// Snapshot.
func (d *SimpleCMOS) Restore(v any) { *d = v.(SimpleCMOS) }

// Image is a quantized ADU image, row-major with shape NumPixels.
type Image struct {
	Width, Height int
	ADU           []uint32
}

// At returns the ADU value at pixel (row, col).
func (img *Image) At(row, col int) uint32 { return img.ADU[row*img.Width+col] }

// Response converts a photon image to an ADU image: Poisson shot noise,
// Gaussian read noise, gain+baseline, then clamp-and-quantize. photons may
// be nil, meaning "no signal" (all zero). The two noise draws are made in a
// fixed sequence — Poisson over the whole image, then Normal over the
// whole image — so a single RNG seed reproduces a frame bit-for-bit.
func (d *SimpleCMOS) Response(photons *optics.Image, src RNG) (*Image, error) {
	h, w := d.NumPixels[0], d.NumPixels[1]
	n := h * w

	p := make([]float64, n)
	if photons != nil {
		if photons.Height != h || photons.Width != w {
			return nil, imerr.Invalid("detector: photon image shape does not match num_pixels")
		}
		for i, v := range photons.Pixels {
			p[i] = float64(v)
		}
	}

	electrons := make([]float64, n)
	for i, v := range p {
		electrons[i] = src.Poisson(d.QuantumEfficiency * v)
	}
	for i := range electrons {
		electrons[i] += src.Normal(0, d.DarkNoise)
	}

	maxADU := d.BitDepth.max()
	adu := make([]uint32, n)
	for i, e := range electrons {
		a := e*d.Sensitivity + d.Baseline
		if a < 0 {
			a = 0
		}
		if a > maxADU {
			a = maxADU
		}
		adu[i] = uint32(a)
	}

	return &Image{Width: w, Height: h, ADU: adu}, nil
}
