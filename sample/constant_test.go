package sample

import "testing"

func TestNewConstantEmittersValidatesRate(t *testing.T) {
	_, err := NewConstantEmitters([]ConstantEmitter{{Rate: -1, Wavelength: 500e-9}})
	if err == nil {
		t.Fatal("expected error for negative rate")
	}
}

func TestNewConstantEmittersValidatesWavelength(t *testing.T) {
	_, err := NewConstantEmitters([]ConstantEmitter{{Rate: 1, Wavelength: 0}})
	if err == nil {
		t.Fatal("expected error for zero wavelength")
	}
}

func TestConstantEmittersResponseFloorsRateByDt(t *testing.T) {
	c, err := NewConstantEmitters([]ConstantEmitter{
		{X: 16, Y: 16, Z: 0, Rate: 1e6, Wavelength: 0.7e-6},
	})
	if err != nil {
		t.Fatalf("NewConstantEmitters() error: %v", err)
	}
	sr, err := c.Response(0, 0.01, nil)
	if err != nil {
		t.Fatalf("Response() error: %v", err)
	}
	if len(sr) != 1 {
		t.Fatalf("len(Response()) = %d, want 1", len(sr))
	}
	if sr[0].Photons != 10000 {
		t.Errorf("Photons = %d, want 10000", sr[0].Photons)
	}
}

func TestConstantEmittersResponseIndependentOfSource(t *testing.T) {
	c, err := NewConstantEmitters([]ConstantEmitter{{X: 1, Y: 1, Rate: 100, Wavelength: 500e-9}})
	if err != nil {
		t.Fatalf("NewConstantEmitters() error: %v", err)
	}
	sr, err := c.Response(0, 1, nil)
	if err != nil {
		t.Fatalf("Response() with nil source error: %v", err)
	}
	if sr[0].Photons != 100 {
		t.Errorf("Photons = %d, want 100", sr[0].Photons)
	}
}

func TestConstantEmittersEmptyResponse(t *testing.T) {
	c, err := NewConstantEmitters(nil)
	if err != nil {
		t.Fatalf("NewConstantEmitters() error: %v", err)
	}
	sr, err := c.Response(0, 1, nil)
	if err != nil {
		t.Fatalf("Response() error: %v", err)
	}
	if sr != nil {
		t.Errorf("Response() = %v, want nil", sr)
	}
}
