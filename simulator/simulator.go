// Package simulator drives the per-step pipeline — Source -> Sample ->
// Optics -> Detector — owning the clock and the shared RNG, and exposing
// the sole extensibility point: registered pre- and post-step processors.
package simulator

import (
	"fmt"
	"log/slog"

	"github.com/leb-epfl/imajin/detector"
	"github.com/leb-epfl/imajin/imerr"
	"github.com/leb-epfl/imajin/optics"
	"github.com/leb-epfl/imajin/rng"
	"github.com/leb-epfl/imajin/sample"
	"github.com/leb-epfl/imajin/source"
)

// OpticsEngine is the capability Simulator needs from an optics stage.
type OpticsEngine interface {
	Response(xLim, yLim [2]int, sr sample.SampleResponse) (*optics.Image, error)
}

// DetectorEngine is the capability Simulator needs from a detector stage.
type DetectorEngine interface {
	Response(photons *optics.Image, src detector.RNG) (*detector.Image, error)
}

// resettable is satisfied by any owned component that carries mutable
// run-time state and therefore needs restoring on Reset.
type resettable interface {
	Snapshot() any
	Restore(any)
}

// PreProcessor is invoked before a step's body runs, for side effects only;
// it may inspect or mutate the simulator (other than its clock).
type PreProcessor func(sim *Simulator) error

// PostProcessor is invoked after a step completes, with the StepResponse
// the step produced.
type PostProcessor func(sim *Simulator, step *StepResponse) error

// StepResponse bundles the three outputs of one simulation step.
type StepResponse struct {
	Sample   sample.SampleResponse
	Optics   *optics.Image
	Detector *detector.Image
}

// Config holds the Simulator's scalar/clock configuration, with the
// defaults from SPEC_FULL.md §4.7.
type Config struct {
	Time            float64
	Dt              float64
	XLim            [2]int
	YLim            [2]int
	NumMeasurements int
	Backup          bool
}

// DefaultConfig returns {time:0, dt:1.0, x_lim:(0,32), y_lim:(0,32),
// num_measurements:100, backup:true}.
func DefaultConfig() Config {
	return Config{
		Time:            0,
		Dt:              1.0,
		XLim:            [2]int{0, 32},
		YLim:            [2]int{0, 32},
		NumMeasurements: 100,
		Backup:          true,
	}
}

// Simulator owns the Detector, Optics, Sample, Source, clock, and processor
// lists for one simulation run.
type Simulator struct {
	detector DetectorEngine
	optics   OpticsEngine
	sample   sample.Sample
	source   source.Source

	time            float64
	dt              float64
	xLim            [2]int
	yLim            [2]int
	numMeasurements int
	backup          bool

	pre  []PreProcessor
	post []PostProcessor

	rng *rng.Source

	snap *snapshot
}

type snapshot struct {
	time       float64
	rngState   []byte
	sourceSnap any
	sampleSnap any
	detSnap    any
}

// New constructs a Simulator. XLim/YLim must be strictly increasing and
// NumMeasurements must be >= 0.
func New(cfg Config, det DetectorEngine, opt OpticsEngine, smp sample.Sample, src source.Source, rngSrc *rng.Source) (*Simulator, error) {
	if cfg.XLim[0] >= cfg.XLim[1] {
		return nil, imerr.Invalid("simulator: x_lim[0] must be < x_lim[1]")
	}
	if cfg.YLim[0] >= cfg.YLim[1] {
		return nil, imerr.Invalid("simulator: y_lim[0] must be < y_lim[1]")
	}
	if cfg.NumMeasurements < 0 {
		return nil, imerr.Invalid("simulator: num_measurements must be non-negative")
	}

	s := &Simulator{
		detector:        det,
		optics:          opt,
		sample:          smp,
		source:          src,
		time:            cfg.Time,
		dt:              cfg.Dt,
		xLim:            cfg.XLim,
		yLim:            cfg.YLim,
		numMeasurements: cfg.NumMeasurements,
		backup:          cfg.Backup,
		rng:             rngSrc,
	}
	if cfg.Backup {
		snap, err := s.captureSnapshot()
		if err != nil {
			return nil, fmt.Errorf("simulator: capturing construction-time snapshot: %w", err)
		}
		s.snap = snap
	}
	return s, nil
}

// AddPreProcessor registers a pre-processor, called in registration order
// before each step's body.
func (s *Simulator) AddPreProcessor(p PreProcessor) { s.pre = append(s.pre, p) }

// AddPostProcessor registers a post-processor, called in registration order
// after each step completes.
func (s *Simulator) AddPostProcessor(p PostProcessor) { s.post = append(s.post, p) }

// Time returns the simulator's current clock value.
func (s *Simulator) Time() float64 { return s.time }

// RNG returns the simulator's shared RNG source.
func (s *Simulator) RNG() *rng.Source { return s.rng }

// captureSnapshot captures the RNG's exact current generator state rather
// than its construction seed: draws can happen before the Simulator that
// owns the RNG is even built (a StateMachine's first pending event is
// precomputed inside statemachine.New, before simulator.New runs), so
// rewinding to the seed on Reset would replay those pre-construction draws
// as if they were fresh continuation draws, diverging the post-reset run
// from the first.
func (s *Simulator) captureSnapshot() (*snapshot, error) {
	rngState, err := s.rng.State()
	if err != nil {
		return nil, err
	}
	snap := &snapshot{time: s.time, rngState: rngState}
	if r, ok := s.source.(resettable); ok {
		snap.sourceSnap = r.Snapshot()
	}
	if r, ok := s.sample.(resettable); ok {
		snap.sampleSnap = r.Snapshot()
	}
	if r, ok := s.detector.(resettable); ok {
		snap.detSnap = r.Snapshot()
	}
	return snap, nil
}

// Step runs one iteration of the pipeline: preprocessors, Sample.Response,
// Optics.Response, Detector.Response, clock advance, postprocessors. A
// failure from the core pipeline or a preprocessor leaves the clock
// unadvanced; a failure from a postprocessor does not, since the clock
// advances before postprocessors run (SPEC_FULL.md §7).
func (s *Simulator) Step() (*StepResponse, error) {
	for _, p := range s.pre {
		if err := p(s); err != nil {
			return nil, err
		}
	}

	sr, err := s.sample.Response(s.time, s.dt, s.source)
	if err != nil {
		return nil, err
	}
	or, err := s.optics.Response(s.xLim, s.yLim, sr)
	if err != nil {
		return nil, err
	}
	dr, err := s.detector.Response(or, s.rng)
	if err != nil {
		return nil, err
	}

	s.time += s.dt
	slog.Debug("simulator step", "time", s.time, "photons", or.Sum())

	step := &StepResponse{Sample: sr, Optics: or, Detector: dr}
	for _, p := range s.post {
		if err := p(s, step); err != nil {
			slog.Error("post-processor failed", "error", err)
			return step, err
		}
	}
	return step, nil
}

// Reset restores every owned field to the snapshot taken at construction,
// including the RNG. It fails with ErrStateInvalidated if Backup was not
// enabled.
func (s *Simulator) Reset() error {
	if s.snap == nil {
		return imerr.Invalidated("simulator: reset requires backup=true")
	}
	s.time = s.snap.time
	if err := s.rng.RestoreState(s.snap.rngState); err != nil {
		return fmt.Errorf("simulator: restoring rng state: %w", err)
	}
	if s.snap.sourceSnap != nil {
		if r, ok := s.source.(resettable); ok {
			r.Restore(s.snap.sourceSnap)
		}
	}
	if s.snap.sampleSnap != nil {
		if r, ok := s.sample.(resettable); ok {
			r.Restore(s.snap.sampleSnap)
		}
	}
	if s.snap.detSnap != nil {
		if r, ok := s.detector.(resettable); ok {
			r.Restore(s.snap.detSnap)
		}
	}
	return nil
}

// FrameStack is a (NumMeasurements, Height, Width) stack of ADU frames.
type FrameStack struct {
	NumMeasurements, Height, Width int
	Frames                        []uint32
}

// At returns the ADU value at (measurement k, row, col).
func (fs *FrameStack) At(k, row, col int) uint32 {
	return fs.Frames[(k*fs.Height+row)*fs.Width+col]
}

// Run calls Step NumMeasurements times, storing each resulting detector
// frame into the returned FrameStack, then optionally Resets.
func (s *Simulator) Run(reset bool) (*FrameStack, error) {
	h := s.yLim[1] - s.yLim[0]
	w := s.xLim[1] - s.xLim[0]
	fs := &FrameStack{
		NumMeasurements: s.numMeasurements,
		Height:          h,
		Width:           w,
		Frames:          make([]uint32, s.numMeasurements*h*w),
	}
	for k := 0; k < s.numMeasurements; k++ {
		step, err := s.Step()
		if err != nil {
			return nil, err
		}
		copy(fs.Frames[k*h*w:(k+1)*h*w], step.Detector.ADU)
	}
	if reset {
		if err := s.Reset(); err != nil {
			return nil, err
		}
	}
	return fs, nil
}
