package sample

import (
	"math"

	"github.com/leb-epfl/imajin/imerr"
	"github.com/leb-epfl/imajin/source"
	"github.com/leb-epfl/imajin/statemachine"
)

// Fluorophore is a stochastic point emitter whose photon output over a step
// is gated by the on-fraction of its attached continuous-time Markov state
// machine — the central algorithm of the sample layer (SPEC_FULL.md §4.3).
type Fluorophore struct {
	x, y, z           float64
	crossSection      float64
	lifetime          float64
	quantumYield      float64
	wavelength        float64
	fluorescenceState int
	sm                *statemachine.StateMachine
}

// NewFluorophore constructs a Fluorophore. crossSection and lifetime must
// be > 0, quantumYield in (0,1], wavelength > 0, and fluorescenceState must
// be a valid state index of sm (§9 Open Question 3: an out-of-range value
// is an InvalidArgument, not a silently-zero on-fraction).
func NewFluorophore(x, y, z, crossSection, lifetime, quantumYield, wavelength float64, fluorescenceState int, sm *statemachine.StateMachine) (*Fluorophore, error) {
	if crossSection <= 0 {
		return nil, imerr.Invalid("sample: fluorophore cross_section must be > 0")
	}
	if lifetime <= 0 {
		return nil, imerr.Invalid("sample: fluorophore fluorescence_lifetime must be > 0")
	}
	if quantumYield <= 0 || quantumYield > 1 {
		return nil, imerr.Invalid("sample: fluorophore quantum_yield must be in (0,1]")
	}
	if wavelength <= 0 {
		return nil, imerr.Invalid("sample: fluorophore wavelength must be > 0")
	}
	if fluorescenceState < 0 || fluorescenceState >= sm.NumStates() {
		return nil, imerr.Invalid("sample: fluorophore fluorescence_state out of range")
	}
	return &Fluorophore{
		x: x, y: y, z: z,
		crossSection:      crossSection,
		lifetime:          lifetime,
		quantumYield:      quantumYield,
		wavelength:        wavelength,
		fluorescenceState: fluorescenceState,
		sm:                sm,
	}, nil
}

// FluorescenceState returns the current state of the attached state
// machine.
func (f *Fluorophore) FluorescenceState() int { return f.sm.CurrentState() }

// Snapshot captures the attached state machine's mutable state.
func (f *Fluorophore) Snapshot() any { return f.sm.Snapshot() }

// Restore replaces the attached state machine's mutable state with a
// previously-captured Snapshot.
func (f *Fluorophore) Restore(v any) { f.sm.Restore(v) }

// UseRNG replaces the attached state machine's RNG source. Emitters uses
// this to hand a Fluorophore an independent substream before dispatching
// it to a parallel worker.
func (f *Fluorophore) UseRNG(src statemachine.RNG) { f.sm.UseRNG(src) }

// Response drives the attached state machine with the local irradiance as
// its single control parameter, computes the on-fraction of the step spent
// in the fluorescence state, and emits round(on_fraction * R(I) * dt)
// photons, clamped to >= 0.
func (f *Fluorophore) Response(time, dt float64, src source.Source) (EmitterResponse, error) {
	irradiance := src.Irradiance(f.x, f.y)

	prevState := f.sm.CurrentState()
	events, err := f.sm.Collect([]float64{irradiance}, time, dt)
	if err != nil {
		return EmitterResponse{}, err
	}

	onFraction := f.onFraction(prevState, events, time, dt)
	rate := f.saturatingRate(irradiance)

	photons := int64(math.Round(onFraction * rate * dt))
	if photons < 0 {
		photons = 0
	}
	return NewEmitterResponse(f.x, f.y, f.z, photons, f.wavelength)
}

// onFraction is the proportion of [time, time+dt] spent in
// fluorescenceState, per SPEC_FULL.md §4.3 step 3.
func (f *Fluorophore) onFraction(prevState int, events []statemachine.Event, time, dt float64) float64 {
	if len(events) == 0 {
		if prevState == f.fluorescenceState {
			return 1
		}
		return 0
	}

	total := 0.0
	prevT := time
	for _, ev := range events {
		length := ev.Time - prevT
		if ev.FromState == f.fluorescenceState {
			total += length
		}
		prevT = ev.Time
	}
	lastState := events[len(events)-1].ToState
	finalLen := (time + dt) - prevT
	if lastState == f.fluorescenceState {
		total += finalLen
	}
	return total / dt
}

// saturatingRate computes R(I) = q*sigma*I / (1 + I/I_sat) with
// I_sat = 1 / (sigma*q*tau).
func (f *Fluorophore) saturatingRate(irradiance float64) float64 {
	iSat := 1.0 / (f.crossSection * f.quantumYield * f.lifetime)
	return f.quantumYield * f.crossSection * irradiance / (1 + irradiance/iSat)
}
