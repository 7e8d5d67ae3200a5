// Package indicator shows the dictation status to the user through optional
// hardware or sound. Absent hardware degrades to a no-op.
package indicator

import (
	"errors"
	"sync"

	"pttwhisper/log"
)

// ErrUnavailable means the requested indicator hardware is not present.
var ErrUnavailable = errors.New("indicator unavailable")

type Status string

const (
	Listening     Status = "listening"
	Idle          Status = "idle"
	Transcribing  Status = "transcribing"
	Hallucination Status = "hallucination"
	Error         Status = "error"
	Off           Status = "off"
)

type Indicator interface {
	SetStatus(s Status) error
	Close() error
}

// Null discards every status.
type Null struct{}

func (Null) SetStatus(Status) error { return nil }
func (Null) Close() error           { return nil }

// Multi fans a status out to several indicators. Every child is updated even
// when an earlier one fails.
type Multi []Indicator

func (m Multi) SetStatus(s Status) error {
	var errs []error
	for _, ind := range m {
		if err := ind.SetStatus(s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, ind := range m {
		if err := ind.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Safe serializes status updates and logs failures instead of returning
// them, so a broken LED never interrupts dictation.
type Safe struct {
	mu    sync.Mutex
	inner Indicator
	last  Status
}

func NewSafe(inner Indicator) *Safe {
	if inner == nil {
		inner = Null{}
	}
	return &Safe{inner: inner}
}

func (s *Safe) SetStatus(st Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = st
	if err := s.inner.SetStatus(st); err != nil {
		log.IndicatorFailure(string(st), err)
	}
	return nil
}

// Last reports the most recent status set.
func (s *Safe) Last() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *Safe) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.inner.Close(); err != nil {
		log.IndicatorFailure("close", err)
	}
	return nil
}

// Recorder remembers every status it is given. Tests and the TUI use it to
// observe the status sequence.
type Recorder struct {
	mu       sync.Mutex
	statuses []Status
	notify   func(Status)
}

func NewRecorder(notify func(Status)) *Recorder {
	return &Recorder{notify: notify}
}

func (r *Recorder) SetStatus(s Status) error {
	r.mu.Lock()
	r.statuses = append(r.statuses, s)
	fn := r.notify
	r.mu.Unlock()
	if fn != nil {
		fn(s)
	}
	return nil
}

func (r *Recorder) Close() error { return nil }

func (r *Recorder) Statuses() []Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Status(nil), r.statuses...)
}
