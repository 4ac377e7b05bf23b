//go:build linux

package lock

import (
	"os"
	"strings"
)

// currentBootToken identifies the current machine boot. The kernel
// regenerates boot_id on every boot, which lets stale-lock detection catch
// PIDs recycled across a power cycle.
func currentBootToken() string {
	data, err := os.ReadFile("/proc/sys/kernel/random/boot_id")
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
