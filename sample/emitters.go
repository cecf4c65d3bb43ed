package sample

import (
	"runtime"
	"sync"

	"github.com/leb-epfl/imajin/rng"
	"github.com/leb-epfl/imajin/source"
	"github.com/leb-epfl/imajin/statemachine"
)

// rngUser is satisfied by emitters whose Response draws from a shared RNG
// rather than being a pure function of (time, dt, src) — currently just
// Fluorophore, via its attached StateMachine. Emitters.Response's parallel
// branch uses it to hand each worker chunk an independent substream split
// from the driver RNG before dispatch, so concurrent emitters never draw
// from the same underlying generator (spec.md §5: each emitter must be
// given an independent substream; the driver RNG must not be touched
// concurrently).
type rngUser interface {
	UseRNG(src statemachine.RNG)
}

// Emitters is a heterogeneous collection of emitters. In sequential mode it
// invokes each emitter's Response in stored order. In parallel mode it
// chunks the collection across a worker pool sized to GOMAXPROCS, the way
// the teacher's parallelState splits entity snapshots into per-worker
// ranges — each worker writes directly into its own slice range, so result
// order is preserved without any synchronization beyond the final
// sync.WaitGroup join.
type Emitters struct {
	emitters  []Emitter
	parallel  bool
	driverRNG *rng.Source
}

// resettable is satisfied by emitters that carry mutable run-time state
// (e.g. Fluorophore's attached StateMachine). Members that don't implement
// it (e.g. a stateless test double) are simply left alone by Snapshot and
// Restore.
type resettable interface {
	Snapshot() any
	Restore(any)
}

// NewEmitters constructs an Emitters collection. When parallel is true,
// Response fans out per-emitter evaluation across a worker pool; driverRNG
// is split into one independent substream per worker chunk on every call,
// handed to any member implementing rngUser, so members sharing a single
// RNG at construction time (the ordinary construction pattern) never draw
// from it concurrently. driverRNG may be nil if no member implements
// rngUser (e.g. a population of non-stochastic emitters).
func NewEmitters(emitters []Emitter, parallel bool, driverRNG *rng.Source) *Emitters {
	return &Emitters{emitters: append([]Emitter(nil), emitters...), parallel: parallel, driverRNG: driverRNG}
}

// Response evaluates every emitter over [time, time+dt], returning their
// responses in the collection's stored order regardless of dispatch mode.
func (e *Emitters) Response(time, dt float64, src source.Source) (SampleResponse, error) {
	n := len(e.emitters)
	if n == 0 {
		return nil, nil
	}
	out := make(SampleResponse, n)

	if !e.parallel || n == 1 {
		for i, em := range e.emitters {
			r, err := em.Response(time, dt, src)
			if err != nil {
				return nil, err
			}
			out[i] = r
		}
		return out, nil
	}

	numWorkers := runtime.GOMAXPROCS(0)
	if numWorkers > n {
		numWorkers = n
	}
	chunkSize := (n + numWorkers - 1) / numWorkers

	// Split one substream per worker up front, sequentially, before any
	// goroutine starts: Split() itself draws from the driver RNG, so doing
	// it here (rather than inside each goroutine) keeps that draw off the
	// concurrent path entirely.
	var workerRNGs []*rng.Source
	if e.driverRNG != nil {
		workerRNGs = make([]*rng.Source, numWorkers)
		for w := range workerRNGs {
			workerRNGs[w] = e.driverRNG.Split()
		}
	}

	var wg sync.WaitGroup
	errs := make([]error, numWorkers)
	for w := 0; w < numWorkers; w++ {
		start := w * chunkSize
		end := start + chunkSize
		if end > n {
			end = n
		}
		if start >= end {
			continue
		}
		wg.Add(1)
		go func(worker, i0, i1 int) {
			defer wg.Done()
			var workerRNG *rng.Source
			if workerRNGs != nil {
				workerRNG = workerRNGs[worker]
			}
			for i := i0; i < i1; i++ {
				if workerRNG != nil {
					if ru, ok := e.emitters[i].(rngUser); ok {
						ru.UseRNG(workerRNG)
					}
				}
				r, err := e.emitters[i].Response(time, dt, src)
				if err != nil {
					errs[worker] = err
					return
				}
				out[i] = r
			}
		}(w, start, end)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Snapshot captures the mutable state of every member that has any (e.g.
// each Fluorophore's StateMachine); members without mutable state snapshot
// as nil.
func (e *Emitters) Snapshot() any {
	snaps := make([]any, len(e.emitters))
	for i, em := range e.emitters {
		if r, ok := em.(resettable); ok {
			snaps[i] = r.Snapshot()
		}
	}
	return snaps
}

// Restore replaces every member's mutable state with a previously-captured
// Snapshot.
func (e *Emitters) Restore(v any) {
	snaps := v.([]any)
	for i, em := range e.emitters {
		if snaps[i] == nil {
			continue
		}
		if r, ok := em.(resettable); ok {
			r.Restore(snaps[i])
		}
	}
}
