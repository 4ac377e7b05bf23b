//go:build darwin

package lock

import "syscall"

// currentBootToken identifies the current machine boot via the boot
// timestamp, which changes on every boot.
func currentBootToken() string {
	v, err := syscall.Sysctl("kern.boottime")
	if err != nil {
		return ""
	}
	return v
}
