package sample

import (
	"math"

	"github.com/leb-epfl/imajin/imerr"
	"github.com/leb-epfl/imajin/source"
)

// ConstantEmitter is a fixed-position emitter with a constant photon rate,
// independent of the illumination source.
type ConstantEmitter struct {
	X, Y, Z    float64
	Rate       float64 // photons per unit time
	Wavelength float64
}

// ConstantEmitters is a Sample of ConstantEmitter values. Each emitter emits
// floor(rate*dt) photons per step, independent of the source; it is not
// parallelizable (the computation per emitter is already O(1)).
type ConstantEmitters struct {
	emitters []ConstantEmitter
}

// NewConstantEmitters constructs a ConstantEmitters sample, validating every
// emitter's rate and wavelength.
func NewConstantEmitters(emitters []ConstantEmitter) (*ConstantEmitters, error) {
	for _, e := range emitters {
		if e.Rate < 0 {
			return nil, imerr.Invalid("sample: constant emitter rate must be non-negative")
		}
		if e.Wavelength <= 0 {
			return nil, imerr.Invalid("sample: constant emitter wavelength must be > 0")
		}
	}
	return &ConstantEmitters{emitters: append([]ConstantEmitter(nil), emitters...)}, nil
}

// Response emits floor(rate*dt) photons from every emitter, in stored order.
func (c *ConstantEmitters) Response(time, dt float64, src source.Source) (SampleResponse, error) {
	if len(c.emitters) == 0 {
		return nil, nil
	}
	out := make(SampleResponse, 0, len(c.emitters))
	for _, e := range c.emitters {
		n := int64(math.Floor(e.Rate * dt))
		er, err := NewEmitterResponse(e.X, e.Y, e.Z, n, e.Wavelength)
		if err != nil {
			return nil, err
		}
		out = append(out, er)
	}
	return out, nil
}
