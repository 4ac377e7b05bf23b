//go:build !linux && !darwin

package lock

// currentBootToken has no portable implementation on other platforms;
// staleness detection falls back to PID liveness alone.
func currentBootToken() string {
	return ""
}
