package app

import (
	"os"
	"sync/atomic"
)

const testModeEnv = "RENTDASH_TEST_MODE"

const (
	testModeUnknown int32 = iota
	testModeOff
	testModeOn
)

var testMode atomic.Int32

// InTestMode reports whether RENTDASH_TEST_MODE=1. The binaries return before
// dialing Postgres or Redis when it is set.
func InTestMode() bool {
	if v := testMode.Load(); v != testModeUnknown {
		return v == testModeOn
	}
	return RefreshTestMode()
}

// RefreshTestMode re-reads the environment and returns the new value.
func RefreshTestMode() bool {
	on := os.Getenv(testModeEnv) == "1"
	if on {
		testMode.Store(testModeOn)
	} else {
		testMode.Store(testModeOff)
	}
	return on
}
