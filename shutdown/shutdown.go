// Package shutdown relays the OS signals that end a dictation run.
package shutdown

import (
	"os"
	"os/signal"
)

// Notify delivers interrupt and termination signals to ch until Stop.
func Notify(ch chan<- os.Signal) {
	signal.Notify(ch, signals...)
}

func Stop(ch chan<- os.Signal) {
	signal.Stop(ch)
}
