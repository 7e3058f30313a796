//go:build !windows

package server

import (
	"os"
	"os/signal"
	"syscall"
)

// notifyReload delivers SIGHUP to ch until the returned stop func is called.
func notifyReload(ch chan<- os.Signal) func() {
	signal.Notify(ch, syscall.SIGHUP)
	return func() { signal.Stop(ch) }
}
