//go:build !linux

package platform

import "runtime"

func pinPumpThread() {
	runtime.LockOSThread()
}
