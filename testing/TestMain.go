// Package testing is blank-imported by test packages to pin the process into
// test mode and point every outbound dependency at an unroutable address.
package testing

import (
	"os"
	"sync"
	stdtesting "testing"
)

var once sync.Once

// unreachable refuses connections immediately.
const unreachable = "http://127.0.0.1:0"

func ensureTestMode() {
	once.Do(func() {
		_ = os.Setenv("ODYSSEY_TEST_MODE", "1")
		for _, key := range []string{"GOTENBERG_URL", "API_BASE_URL"} {
			if os.Getenv(key) == "" {
				_ = os.Setenv(key, unreachable)
			}
		}
		// Keep worker credentials from a developer shell out of tests.
		_ = os.Unsetenv("API_SERVICE_EMAIL")
		_ = os.Unsetenv("API_SERVICE_PASSWORD")
	})
}

func init() {
	ensureTestMode()
}

// TestMain runs m with test mode enabled.
func TestMain(m *stdtesting.M) {
	ensureTestMode()
	os.Exit(m.Run())
}
