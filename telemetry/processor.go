package telemetry

import (
	"github.com/leb-epfl/imajin/simulator"
)

// Processor wires a Collector and OutputManager into a
// simulator.PostProcessor: every step is folded into the current window,
// and a completed window is flushed to CSV. It is the example extensibility
// point SPEC_FULL.md §6 describes — registered with
// Simulator.AddPostProcessor, never imported by the simulation core.
type Processor struct {
	collector *Collector
	out       *OutputManager
	step      int32
}

// NewProcessor builds a Processor. out may be nil (from
// NewOutputManager("")), in which case PostProcessor is a no-op collector
// that never writes.
func NewProcessor(windowDurationSec, dt float64, out *OutputManager) *Processor {
	return &Processor{collector: NewCollector(windowDurationSec, dt), out: out}
}

// PostProcessor returns the simulator.PostProcessor closure to register
// with Simulator.AddPostProcessor.
func (p *Processor) PostProcessor() simulator.PostProcessor {
	return func(sim *simulator.Simulator, step *simulator.StepResponse) error {
		var emitted uint64
		for _, r := range step.Sample {
			emitted += uint64(r.Photons)
		}
		var imaged uint64
		if step.Optics != nil {
			imaged = uint64(step.Optics.Sum())
		}
		var adu []uint32
		if step.Detector != nil {
			adu = step.Detector.ADU
		}
		p.collector.Record(emitted, imaged, adu)
		p.step++

		if !p.collector.ShouldFlush(p.step) {
			return nil
		}
		stats := p.collector.Flush(p.step)
		stats.LogStats()
		return p.out.WriteTelemetry(stats)
	}
}

// Close releases the underlying OutputManager's resources.
func (p *Processor) Close() error {
	if p.out == nil {
		return nil
	}
	return p.out.Close()
}
