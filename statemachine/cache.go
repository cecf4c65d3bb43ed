package statemachine

import (
	"os"
	"strconv"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"gonum.org/v1/gonum/mat"
)

const (
	envCacheSizeRates         = "CACHE_SIZE_SM_RATES"
	envCacheSizeStoppedStates = "CACHE_SIZE_SM_STOPPED_STATES"

	defaultCacheSizeRates         = 100000
	defaultCacheSizeStoppedStates = 1
)

// process-wide caches, shared across every StateMachine instance so that
// large populations of structurally-identical emitters amortize the cost of
// expanding Q(p) and finding stopped states. Both are safe for concurrent
// readers (golang-lru/v2 guards its own mutex).
var (
	cacheOnce    sync.Once
	rateCache    *lru.Cache[string, *mat.Dense]
	stoppedCache *lru.Cache[string, []bool]
)

func caches() (*lru.Cache[string, *mat.Dense], *lru.Cache[string, []bool]) {
	cacheOnce.Do(func() {
		rSize, sSize := CacheSizesFromEnv()
		// lru.New rejects a size <= 0, so a configured size of 0 is raised
		// to 1; memoization stays on.
		if rSize <= 0 {
			rSize = 1
		}
		if sSize <= 0 {
			sSize = 1
		}
		rateCache, _ = lru.New[string, *mat.Dense](rSize)
		stoppedCache, _ = lru.New[string, []bool](sSize)
	})
	return rateCache, stoppedCache
}

// CacheSizesFromEnv reads CACHE_SIZE_SM_RATES and CACHE_SIZE_SM_STOPPED_STATES
// from the environment, falling back to the spec defaults (100000 and 1)
// when unset or unparsable.
func CacheSizesFromEnv() (rates, stoppedStates int) {
	rates = envInt(envCacheSizeRates, defaultCacheSizeRates)
	stoppedStates = envInt(envCacheSizeStoppedStates, defaultCacheSizeStoppedStates)
	return rates, stoppedStates
}

func envInt(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}
