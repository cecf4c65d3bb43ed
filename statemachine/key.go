package statemachine

import (
	"hash/fnv"
	"math"
	"strconv"
)

// canonicalKey builds a stable cache key from a structural tensor hash and
// an optional control-parameter vector. It is not collision-proof (fnv-128
// would be), but a 64-bit fnv hash plus the explicit state count is ample
// for a process-local memoization cache, and keeps the key itself small.
func canonicalKey(structuralHash uint64, n int, p []float64) string {
	h := fnv.New64a()
	var buf [8]byte
	writeUint64(h, structuralHash)
	writeUint64(h, uint64(n))
	for _, v := range p {
		putFloat64(buf[:], v)
		h.Write(buf[:])
	}
	return strconv.FormatUint(h.Sum64(), 36)
}

// structuralHash hashes rate_constants and rate_coefficients together: two
// StateMachine configurations with the same tensors (regardless of control
// vector) share this hash, which is what the stopped-state cache keys on.
func structuralHash(rateConstants [][]float64, rateCoefficients [][][][]float64) uint64 {
	h := fnv.New64a()
	var buf [8]byte
	for _, row := range rateConstants {
		for _, v := range row {
			putFloat64(buf[:], v)
			h.Write(buf[:])
		}
	}
	for _, l := range rateCoefficients {
		for _, m := range l {
			for _, row := range m {
				for _, v := range row {
					putFloat64(buf[:], v)
					h.Write(buf[:])
				}
			}
		}
	}
	return h.Sum64()
}

func putFloat64(buf []byte, v float64) {
	bits := math.Float64bits(v)
	for i := 0; i < 8; i++ {
		buf[i] = byte(bits >> (8 * i))
	}
}

func writeUint64(h interface{ Write([]byte) (int, error) }, v uint64) {
	var buf [8]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(v >> (8 * i))
	}
	h.Write(buf[:])
}
