package transcriber

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Fake returns canned segments, optionally after a delay or with an error.
type Fake struct {
	mu       sync.Mutex
	segments []Segment
	err      error
	delay    time.Duration
	calls    []FakeCall
}

type FakeCall struct {
	Path string
	Opts Options
}

// NewFake splits text on ". " into segments with a leading space each, the
// way Whisper reports them.
func NewFake(text string) *Fake {
	var segs []Segment
	if text != "" {
		for _, part := range strings.Split(text, ". ") {
			segs = append(segs, Segment{Text: " " + part})
		}
	}
	return &Fake{segments: numbered(segs)}
}

func NewFakeSegments(segs ...Segment) *Fake {
	return &Fake{segments: numbered(segs)}
}

func NewFakeError(err error) *Fake {
	return &Fake{err: err}
}

func (f *Fake) WithDelay(d time.Duration) *Fake {
	f.delay = d
	return f
}

func (f *Fake) Name() string { return "fake" }

func (f *Fake) Transcribe(ctx context.Context, path string, opts Options) ([]Segment, error) {
	f.mu.Lock()
	f.calls = append(f.calls, FakeCall{Path: path, Opts: opts})
	segs := append([]Segment(nil), f.segments...)
	err := f.err
	delay := f.delay
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, recognitionError(f.Name(), ctx.Err())
		}
	}
	if err != nil {
		return nil, recognitionError(f.Name(), err)
	}
	return segs, nil
}

func (f *Fake) Calls() []FakeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]FakeCall(nil), f.calls...)
}
