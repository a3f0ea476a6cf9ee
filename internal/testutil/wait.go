package testutil

import (
	"testing"
	"time"
)

// WaitFor polls cond every 10ms until it returns true or timeout elapses,
// then fails the test with msg
func WaitFor(t testing.TB, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s: %s", timeout, msg)
}
