// Package hotkey delivers global push-to-talk key presses and releases.
package hotkey

import "errors"

var ErrUnknownKey = errors.New("unknown hotkey")

type Hotkey interface {
	Register() error
	Unregister()
	Keydown() <-chan struct{}
	Keyup() <-chan struct{}
	String() string
}

// latch turns raw key events into strict press/release alternation.
// Auto-repeated presses and releases without a press are swallowed.
type latch struct {
	held bool
}

func (l *latch) press() bool {
	if l.held {
		return false
	}
	l.held = true
	return true
}

func (l *latch) release() bool {
	if !l.held {
		return false
	}
	l.held = false
	return true
}
