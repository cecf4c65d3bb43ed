package detector

import (
	"testing"

	"github.com/leb-epfl/imajin/optics"
)

// fixedRNG is a mocked RNG returning fixed values regardless of parameters,
// matching the "mocked Poisson/Normal" seed scenarios in SPEC_FULL.md §8.
type fixedRNG struct {
	poisson float64
	normal  float64
}

func (f fixedRNG) Poisson(lambda float64) float64    { return f.poisson }
func (f fixedRNG) Normal(mu, sigma float64) float64  { return f.normal }

func TestNewSimpleCMOSValidates(t *testing.T) {
	cases := []struct {
		name              string
		baseline          float64
		bitDepth          BitDepth
		darkNoise         float64
		numPixels         [2]int
		quantumEfficiency float64
		sensitivity       float64
	}{
		{"negative baseline", -1, BitDepth12, 1, [2]int{32, 32}, 0.5, 1},
		{"bad bit depth", 100, BitDepth(11), 1, [2]int{32, 32}, 0.5, 1},
		{"negative dark noise", 100, BitDepth12, -1, [2]int{32, 32}, 0.5, 1},
		{"zero pixels", 100, BitDepth12, 1, [2]int{0, 32}, 0.5, 1},
		{"QE above 1", 100, BitDepth12, 1, [2]int{32, 32}, 1.5, 1},
		{"zero sensitivity", 100, BitDepth12, 1, [2]int{32, 32}, 0.5, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewSimpleCMOS(tc.baseline, tc.bitDepth, tc.darkNoise, tc.numPixels, tc.quantumEfficiency, tc.sensitivity)
			if err == nil {
				t.Errorf("expected error for %s", tc.name)
			}
		})
	}
}

// TestResponseNoSignal is seed scenario S1.
func TestResponseNoSignal(t *testing.T) {
	d, err := NewSimpleCMOS(100, BitDepth12, 2.94, [2]int{128, 128}, 0.69, 1)
	if err != nil {
		t.Fatalf("NewSimpleCMOS() error: %v", err)
	}
	img, err := d.Response(nil, fixedRNG{poisson: 0, normal: 0})
	if err != nil {
		t.Fatalf("Response() error: %v", err)
	}
	if img.Height != 128 || img.Width != 128 {
		t.Fatalf("shape = (%d,%d), want (128,128)", img.Height, img.Width)
	}
	for _, v := range img.ADU {
		if v != 100 {
			t.Fatalf("ADU = %d, want baseline 100 with zero noise", v)
		}
	}
}

// TestResponseConstantSignalMockedRNG is seed scenario S2.
func TestResponseConstantSignalMockedRNG(t *testing.T) {
	d, err := NewSimpleCMOS(100, BitDepth12, 2.94, [2]int{32, 32}, 0.69, 2)
	if err != nil {
		t.Fatalf("NewSimpleCMOS() error: %v", err)
	}
	pixels := make([]uint64, 32*32)
	for i := range pixels {
		pixels[i] = 100
	}
	photons := &optics.Image{Width: 32, Height: 32, Pixels: pixels}

	img, err := d.Response(photons, fixedRNG{poisson: 110, normal: 10})
	if err != nil {
		t.Fatalf("Response() error: %v", err)
	}
	want := uint32((110 + 10) * 2 + 100)
	for i, v := range img.ADU {
		if v != want {
			t.Fatalf("ADU[%d] = %d, want %d", i, v, want)
		}
	}
}

// TestResponseSaturation is seed scenario S3.
func TestResponseSaturation(t *testing.T) {
	d, err := NewSimpleCMOS(0, BitDepth8, 0, [2]int{32, 32}, 1.0, 1)
	if err != nil {
		t.Fatalf("NewSimpleCMOS() error: %v", err)
	}
	pixels := make([]uint64, 32*32)
	for i := range pixels {
		pixels[i] = 1e10
	}
	photons := &optics.Image{Width: 32, Height: 32, Pixels: pixels}

	img, err := d.Response(photons, fixedRNG{poisson: 1e10, normal: 0})
	if err != nil {
		t.Fatalf("Response() error: %v", err)
	}
	for i, v := range img.ADU {
		if v != 255 {
			t.Fatalf("ADU[%d] = %d, want 255 (saturated 8-bit)", i, v)
		}
	}
}

func TestResponseShapeMismatchIsError(t *testing.T) {
	d, err := NewSimpleCMOS(100, BitDepth12, 1, [2]int{32, 32}, 0.69, 1)
	if err != nil {
		t.Fatalf("NewSimpleCMOS() error: %v", err)
	}
	photons := &optics.Image{Width: 16, Height: 16, Pixels: make([]uint64, 256)}
	_, err = d.Response(photons, fixedRNG{})
	if err == nil {
		t.Fatal("expected error for mismatched photon image shape")
	}
}

func TestResponseClampsNegativeToZero(t *testing.T) {
	d, err := NewSimpleCMOS(0, BitDepth8, 100, [2]int{1, 1}, 1.0, 1)
	if err != nil {
		t.Fatalf("NewSimpleCMOS() error: %v", err)
	}
	img, err := d.Response(nil, fixedRNG{poisson: 0, normal: -1000})
	if err != nil {
		t.Fatalf("Response() error: %v", err)
	}
	if img.ADU[0] != 0 {
		t.Errorf("ADU = %d, want 0 (clamped)", img.ADU[0])
	}
}
