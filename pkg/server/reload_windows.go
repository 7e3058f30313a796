//go:build windows

package server

import "os"

// SIGHUP does not exist on Windows; reload is unavailable there.
func notifyReload(chan<- os.Signal) func() {
	return func() {}
}
