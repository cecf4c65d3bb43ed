package sample

import "github.com/leb-epfl/imajin/source"

// NullSample is a Sample with no emitters; it always reports an empty
// response.
type NullSample struct{}

// Response always returns an empty SampleResponse.
func (NullSample) Response(time, dt float64, src source.Source) (SampleResponse, error) {
	return nil, nil
}
