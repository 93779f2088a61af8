// Package guard switches the binaries into test mode when imported by a test.
package guard

import "os"

func init() {
	if os.Getenv("RENTDASH_TEST_MODE") == "" {
		_ = os.Setenv("RENTDASH_TEST_MODE", "1")
	}
}
