// Package assert reports internal invariant violations. Builds tagged
// voxeldebug panic on a violation; release builds log a warning and let the
// caller ignore the offending operation.
package assert

import (
	"fmt"
	"log"
)

// Logger receives release-build warnings. Defaults to the standard logger.
var Logger = log.Default()

// That reports a violation when cond is false and returns cond, so callers
// can write `if !assert.That(ok, "...") { return }`.
func That(cond bool, format string, args ...any) bool {
	if cond {
		return true
	}
	Fail(format, args...)
	return false
}

// Fail reports an unconditional invariant violation.
func Fail(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if Enabled {
		panic("invariant violation: " + msg)
	}
	Logger.Printf("WARN invariant violation: %s", msg)
}
