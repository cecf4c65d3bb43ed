package statemachine

import "testing"

func TestCacheSizesFromEnvDefaults(t *testing.T) {
	t.Setenv(envCacheSizeRates, "")
	t.Setenv(envCacheSizeStoppedStates, "")

	rates, stopped := CacheSizesFromEnv()
	if rates != defaultCacheSizeRates {
		t.Errorf("rates = %d, want %d", rates, defaultCacheSizeRates)
	}
	if stopped != defaultCacheSizeStoppedStates {
		t.Errorf("stopped = %d, want %d", stopped, defaultCacheSizeStoppedStates)
	}
}

func TestCacheSizesFromEnvOverride(t *testing.T) {
	t.Setenv(envCacheSizeRates, "5000")
	t.Setenv(envCacheSizeStoppedStates, "2")

	rates, stopped := CacheSizesFromEnv()
	if rates != 5000 {
		t.Errorf("rates = %d, want 5000", rates)
	}
	if stopped != 2 {
		t.Errorf("stopped = %d, want 2", stopped)
	}
}

func TestCacheSizesFromEnvInvalidFallsBackToDefault(t *testing.T) {
	t.Setenv(envCacheSizeRates, "not-a-number")
	rates, _ := CacheSizesFromEnv()
	if rates != defaultCacheSizeRates {
		t.Errorf("rates = %d, want default %d for unparsable value", rates, defaultCacheSizeRates)
	}
}

func TestCanonicalKeyStableAndDistinguishing(t *testing.T) {
	k1 := canonicalKey(42, 2, []float64{1, 2})
	k2 := canonicalKey(42, 2, []float64{1, 2})
	if k1 != k2 {
		t.Errorf("canonicalKey not stable: %q != %q", k1, k2)
	}
	k3 := canonicalKey(42, 2, []float64{1, 3})
	if k1 == k3 {
		t.Error("canonicalKey should differ for different control vectors")
	}
}

func TestStructuralHashStable(t *testing.T) {
	rc := [][]float64{{0, 1}, {1, 0}}
	h1 := structuralHash(rc, nil)
	h2 := structuralHash(rc, nil)
	if h1 != h2 {
		t.Errorf("structuralHash not stable: %d != %d", h1, h2)
	}
}
