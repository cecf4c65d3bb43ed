package telemetry

// Collector accumulates per-step photon and ADU samples within a time
// window and produces WindowStats on Flush, adapted from the teacher's
// Collector (telemetry/collector.go) — same window-duration-in-seconds
// bookkeeping and reset-on-flush shape, now folding in optics/detector
// output instead of predator-prey events.
type Collector struct {
	windowDurationSec   float64
	windowDurationSteps int32
	dt                  float64

	windowStartStep int32

	steps          int
	emittedPhotons uint64
	imagedPhotons  uint64
	aduSamples     []float64
	aduMax         uint32
}

// NewCollector creates a new stats collector.
// windowDurationSec: how long each stats window lasts in simulated seconds.
// dt: seconds per simulator step, used for step-to-time conversion.
func NewCollector(windowDurationSec, dt float64) *Collector {
	stepsPerWindow := int32(windowDurationSec / dt)
	if stepsPerWindow < 1 {
		stepsPerWindow = 1
	}

	return &Collector{
		windowDurationSec:   windowDurationSec,
		windowDurationSteps: stepsPerWindow,
		dt:                  dt,
	}
}

// Record folds one step's photon and ADU totals into the current window.
// emittedPhotons is the photon count the sample emitted before the optics
// image plane; imagedPhotons is the total landing within the image bounds;
// adu is the detector's quantized output for the step.
func (c *Collector) Record(emittedPhotons, imagedPhotons uint64, adu []uint32) {
	c.steps++
	c.emittedPhotons += emittedPhotons
	c.imagedPhotons += imagedPhotons
	for _, v := range adu {
		c.aduSamples = append(c.aduSamples, float64(v))
		if v > c.aduMax {
			c.aduMax = v
		}
	}
}

// ShouldFlush returns true if enough steps have passed to flush the window.
func (c *Collector) ShouldFlush(currentStep int32) bool {
	return currentStep-c.windowStartStep >= c.windowDurationSteps
}

// Flush produces a WindowStats for the window ending at currentStep, then
// resets the accumulators for the next window.
func (c *Collector) Flush(currentStep int32) WindowStats {
	mean, p10, p50, p90 := ComputeADUStats(c.aduSamples)

	stats := WindowStats{
		WindowStartStep: c.windowStartStep,
		WindowEndStep:   currentStep,
		SimTimeSec:      float64(currentStep) * c.dt,

		Steps: c.steps,

		EmittedPhotons: c.emittedPhotons,
		ImagedPhotons:  c.imagedPhotons,

		ADUMean: mean,
		ADUP10:  p10,
		ADUP50:  p50,
		ADUP90:  p90,
		ADUMax:  c.aduMax,
	}
	if c.emittedPhotons > 0 {
		lost := c.emittedPhotons - c.imagedPhotons
		stats.ClippingLossPct = float64(lost) / float64(c.emittedPhotons) * 100
	}

	// Reset for next window
	c.windowStartStep = currentStep
	c.steps = 0
	c.emittedPhotons = 0
	c.imagedPhotons = 0
	c.aduSamples = c.aduSamples[:0]
	c.aduMax = 0

	return stats
}

// WindowDurationSteps returns the number of steps per window.
func (c *Collector) WindowDurationSteps() int32 {
	return c.windowDurationSteps
}
