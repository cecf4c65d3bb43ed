// Package sample implements the Sample/Emitter layer: the photon emissions
// of a population of point emitters over a time step, including the
// stochastic Fluorophore whose photon output is gated by a continuous-time
// Markov state machine.
package sample

import (
	"github.com/leb-epfl/imajin/imerr"
	"github.com/leb-epfl/imajin/source"
)

// EmitterResponse is the immutable photon emission of one emitter over one
// step.
type EmitterResponse struct {
	X, Y, Z    float64
	Photons    uint64
	Wavelength float64
}

// NewEmitterResponse validates and constructs an EmitterResponse. photons
// must be >= 0 and wavelength must be > 0.
func NewEmitterResponse(x, y, z float64, photons int64, wavelength float64) (EmitterResponse, error) {
	if photons < 0 {
		return EmitterResponse{}, imerr.Invalid("sample: photons must be non-negative")
	}
	if wavelength <= 0 {
		return EmitterResponse{}, imerr.Invalid("sample: wavelength must be > 0")
	}
	return EmitterResponse{X: x, Y: y, Z: z, Photons: uint64(photons), Wavelength: wavelength}, nil
}

// SampleResponse is the ordered photon emissions of every emitter in a
// Sample over one step.
type SampleResponse []EmitterResponse

// Emitter is a single point emitter, consumed by the Emitters collection
// (or driven standalone) over one step.
type Emitter interface {
	Response(time, dt float64, src source.Source) (EmitterResponse, error)
}

// Sample produces the combined photon emissions of a population of
// emitters over one step.
type Sample interface {
	Response(time, dt float64, src source.Source) (SampleResponse, error)
}
