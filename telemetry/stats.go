package telemetry

import (
	"log/slog"
	"sort"
)

// WindowStats holds aggregated photon/ADU statistics for a time window,
// adapted from the teacher's WindowStats (telemetry/stats.go): same
// windowed-CSV-record shape and percentile machinery, now tracking photon
// accounting instead of predator-prey population counts.
type WindowStats struct {
	WindowStartStep int32   `csv:"-"`
	WindowEndStep   int32   `csv:"window_end"`
	SimTimeSec      float64 `csv:"sim_time"`

	Steps int `csv:"steps"`

	EmittedPhotons  uint64  `csv:"emitted_photons"`
	ImagedPhotons   uint64  `csv:"imaged_photons"`
	ClippingLossPct float64 `csv:"clipping_loss_pct"`

	ADUMean float64 `csv:"adu_mean"`
	ADUP10  float64 `csv:"adu_p10"`
	ADUP50  float64 `csv:"adu_p50"`
	ADUP90  float64 `csv:"adu_p90"`
	ADUMax  uint32  `csv:"adu_max"`
}

// Percentile calculates the p-th percentile of a sorted slice by linear
// interpolation. p should be in [0, 1]. Returns 0 if slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	idx := p * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// ComputeADUStats calculates the mean and 10th/50th/90th percentiles of a
// window's ADU values.
func ComputeADUStats(values []float64) (mean, p10, p50, p90 float64) {
	n := len(values)
	if n == 0 {
		return 0, 0, 0, 0
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean = sum / float64(n)

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	p10 = Percentile(sorted, 0.10)
	p50 = Percentile(sorted, 0.50)
	p90 = Percentile(sorted, 0.90)

	return mean, p10, p50, p90
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("window_end", int(s.WindowEndStep)),
		slog.Float64("sim_time", s.SimTimeSec),
		slog.Int("steps", s.Steps),
		slog.Uint64("emitted_photons", s.EmittedPhotons),
		slog.Uint64("imaged_photons", s.ImagedPhotons),
		slog.Float64("clipping_loss_pct", s.ClippingLossPct),
		slog.Float64("adu_mean", s.ADUMean),
		slog.Float64("adu_p10", s.ADUP10),
		slog.Float64("adu_p50", s.ADUP50),
		slog.Float64("adu_p90", s.ADUP90),
		slog.Uint64("adu_max", uint64(s.ADUMax)),
	)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	slog.Info("telemetry window", "stats", s)
}
