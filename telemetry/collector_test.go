package telemetry

import "testing"

func TestCollectorShouldFlush(t *testing.T) {
	c := NewCollector(10, 1.0) // 10 steps per window
	if c.ShouldFlush(5) {
		t.Error("should not flush before window elapses")
	}
	if !c.ShouldFlush(10) {
		t.Error("should flush once window elapses")
	}
}

func TestCollectorFlushResets(t *testing.T) {
	c := NewCollector(2, 1.0)
	c.Record(1000, 900, []uint32{10, 20, 30})
	c.Record(500, 450, []uint32{40, 50})

	stats := c.Flush(2)
	if stats.Steps != 2 {
		t.Errorf("Steps = %d, want 2", stats.Steps)
	}
	if stats.EmittedPhotons != 1500 {
		t.Errorf("EmittedPhotons = %d, want 1500", stats.EmittedPhotons)
	}
	if stats.ImagedPhotons != 1350 {
		t.Errorf("ImagedPhotons = %d, want 1350", stats.ImagedPhotons)
	}
	wantLoss := float64(1500-1350) / 1500 * 100
	if stats.ClippingLossPct != wantLoss {
		t.Errorf("ClippingLossPct = %v, want %v", stats.ClippingLossPct, wantLoss)
	}
	if stats.ADUMax != 50 {
		t.Errorf("ADUMax = %d, want 50", stats.ADUMax)
	}

	// Accumulators must reset after Flush.
	next := c.Flush(4)
	if next.Steps != 0 || next.EmittedPhotons != 0 || next.ADUMax != 0 {
		t.Errorf("expected zeroed window after flush, got %+v", next)
	}
}

func TestCollectorFlushNoEmission(t *testing.T) {
	c := NewCollector(1, 1.0)
	c.Record(0, 0, nil)
	stats := c.Flush(1)
	if stats.ClippingLossPct != 0 {
		t.Errorf("ClippingLossPct = %v, want 0 when no photons emitted", stats.ClippingLossPct)
	}
}
