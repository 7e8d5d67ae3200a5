// Package session implements push-to-talk dictation: a press starts a
// recording, a release hands it to a background recognition task, and the
// accepted transcript is emitted as text.
package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
	"unicode/utf8"

	"pttwhisper/indicator"
	"pttwhisper/keyboard"
	"pttwhisper/log"
	"pttwhisper/transcriber"
	"pttwhisper/transcript"
)

type State int

const (
	Idle State = iota
	Recording
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Recording:
		return "recording"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Recorder captures one recording at a time into a file.
type Recorder interface {
	Start(path string) error
	Stop() (time.Duration, error)
	Close()
}

type EventKind int

const (
	RecordingStarted EventKind = iota
	RecordingFailed
	RecordingStopped
	Recognized
)

type Event struct {
	Kind     EventKind
	ID       int
	Path     string
	Duration time.Duration
	Pending  int
	Text     string // assembled text, before filtering
	Verdict  transcript.Verdict
	Elapsed  time.Duration
	Err      error
}

// Observer is told about every recording and recognition. It is called
// without session locks held, possibly from several goroutines.
type Observer func(Event)

type Deps struct {
	Recorder    Recorder
	Transcriber transcriber.Transcriber
	Sink        keyboard.Sink
	Indicator   indicator.Indicator
	Observer    Observer
}

type Options struct {
	Dir        string // recordings land here as recording<id>.wav
	Keep       bool   // keep recordings after recognition
	Workers    int
	Transcribe transcriber.Options
	Filter     transcript.Filter
}

type recording struct {
	id       int
	path     string
	started  time.Time
	duration time.Duration
}

type Snapshot struct {
	State     State
	Pending   int
	NextID    int
	Completed int
	LastText  string
}

type Session struct {
	ctx      context.Context
	rec      Recorder
	tr       transcriber.Transcriber
	sink     keyboard.Sink
	ind      *indicator.Safe
	observer Observer
	opts     Options
	pool     *Pool

	// edge serializes Press, Release and Close so device calls can run
	// without holding mu.
	edge      sync.Mutex
	mu        sync.Mutex
	state     State
	current   *recording
	nextID    int
	pending   int
	completed int
	lastText  string
	closed    bool
	tasks     sync.WaitGroup
	closeOnce sync.Once
}

func New(ctx context.Context, deps Deps, opts Options) (*Session, error) {
	if deps.Recorder == nil || deps.Transcriber == nil || deps.Sink == nil {
		return nil, errors.New("session needs a recorder, a transcriber and a sink")
	}
	if opts.Dir == "" {
		return nil, errors.New("session needs a recordings directory")
	}
	if err := os.MkdirAll(opts.Dir, 0755); err != nil {
		return nil, fmt.Errorf("recordings directory: %w", err)
	}
	if opts.Filter == (transcript.Filter{}) {
		opts.Filter = transcript.DefaultFilter()
	}
	s := &Session{
		ctx:      ctx,
		rec:      deps.Recorder,
		tr:       deps.Transcriber,
		sink:     keyboard.NewSerialized(deps.Sink),
		ind:      indicator.NewSafe(deps.Indicator),
		observer: deps.Observer,
		opts:     opts,
		pool:     NewPool(opts.Workers),
	}
	s.ind.SetStatus(indicator.Idle)
	return s, nil
}

func (s *Session) notify(ev Event) {
	if s.observer == nil {
		return
	}
	defer func() {
		if p := recover(); p != nil {
			log.Errorf("observer panicked on recording %d: %v", ev.ID, p)
		}
	}()
	s.observer(ev)
}

// Press starts a recording. It is a no-op while already recording, so key
// repeat cannot start overlapping recordings.
func (s *Session) Press() {
	s.edge.Lock()
	defer s.edge.Unlock()

	s.mu.Lock()
	if s.closed || s.state == Recording {
		s.mu.Unlock()
		return
	}
	id := s.nextID
	s.mu.Unlock()

	path := filepath.Join(s.opts.Dir, fmt.Sprintf("recording%d.wav", id))
	if err := s.rec.Start(path); err != nil {
		s.ind.SetStatus(indicator.Error)
		log.Errorf("recording %d: start failed: %v", id, err)
		s.notify(Event{Kind: RecordingFailed, ID: id, Path: path, Err: err})
		return
	}

	s.mu.Lock()
	s.nextID++
	s.state = Recording
	s.current = &recording{id: id, path: path, started: time.Now()}
	pending := s.pending
	s.mu.Unlock()
	// finish leaves the status alone while recording
	s.ind.SetStatus(indicator.Listening)

	log.RecordingStart(id, path)
	s.notify(Event{Kind: RecordingStarted, ID: id, Path: path, Pending: pending})
}

// Release stops the active recording and queues its recognition. It is a
// no-op when nothing is recording.
func (s *Session) Release() {
	s.edge.Lock()
	defer s.edge.Unlock()

	s.mu.Lock()
	r := s.current
	s.mu.Unlock()
	if r == nil {
		return
	}
	d, err := s.rec.Stop()
	if err != nil {
		log.Warnf("recording %d: stop: %v", r.id, err)
	}
	if d == 0 {
		d = time.Since(r.started)
	}
	r.duration = d

	s.mu.Lock()
	s.current = nil
	s.state = Idle
	s.pending++
	pending := s.pending
	s.tasks.Add(1)
	s.ind.SetStatus(indicator.Transcribing)
	s.mu.Unlock()

	log.RecordingStop(r.id, d.Seconds(), pending)
	s.notify(Event{Kind: RecordingStopped, ID: r.id, Path: r.path, Duration: d, Pending: pending})

	if !s.pool.Submit(func() { s.recognize(r) }) {
		// Pool already closed; account for the task anyway.
		s.finish(r, outcomeFailed, "")
	}
}

type outcome int

const (
	outcomeAccepted outcome = iota
	outcomeRejected
	outcomeFailed
)

func (s *Session) recognize(r *recording) {
	start := time.Now()
	var (
		text    string
		verdict transcript.Verdict
		err     error
	)
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("recognition panicked: %v", p)
			log.Errorf("recording %d: %v", r.id, err)
		}
		result := outcomeAccepted
		switch {
		case err != nil:
			result = outcomeFailed
		case !verdict.Accepted:
			result = outcomeRejected
		}
		s.notify(Event{
			Kind:     Recognized,
			ID:       r.id,
			Path:     r.path,
			Duration: r.duration,
			Text:     text,
			Verdict:  verdict,
			Elapsed:  time.Since(start),
			Err:      err,
		})
		s.finish(r, result, verdict.Text)
	}()

	var segs []transcriber.Segment
	segs, err = s.tr.Transcribe(s.ctx, r.path, s.opts.Transcribe)
	if err != nil {
		log.Errorf("recording %d: %v", r.id, err)
		return
	}

	text = transcript.Assemble(segs)
	verdict = s.opts.Filter.Check(transcript.Transcript{Text: text, Duration: r.duration.Seconds()})
	log.RecognitionDone(log.Recognition{
		ID:        r.id,
		Backend:   s.tr.Name(),
		Segments:  len(segs),
		Chars:     utf8.RuneCountInString(text),
		DurationS: r.duration.Seconds(),
		ElapsedMs: float64(time.Since(start).Milliseconds()),
		Accepted:  verdict.Accepted,
	})
	if !verdict.Accepted {
		log.Hallucination(r.id, string(verdict.Reason), verdict.Rate)
		return
	}
	if verdict.Text == "" {
		return
	}
	log.TranscriptionText(verdict.Text)
	if emitErr := s.sink.Emit(verdict.Text); emitErr != nil {
		log.Errorf("recording %d: emit: %v", r.id, emitErr)
	}
}

// finish releases the task's share of pending and picks the status to show.
func (s *Session) finish(r *recording, result outcome, emitted string) {
	s.mu.Lock()
	s.pending--
	s.completed++
	if result == outcomeAccepted && emitted != "" {
		s.lastText = emitted
	}
	switch {
	case s.state == Recording:
		// the listening status stays up
	case result == outcomeFailed:
		s.ind.SetStatus(indicator.Error)
	case result == outcomeRejected:
		s.ind.SetStatus(indicator.Hallucination)
	case s.pending > 0:
		if last := s.ind.Last(); last != indicator.Transcribing {
			s.ind.SetStatus(indicator.Transcribing)
		}
	default:
		s.ind.SetStatus(indicator.Idle)
	}
	s.mu.Unlock()

	if !s.opts.Keep {
		if rmErr := os.Remove(r.path); rmErr != nil && !os.IsNotExist(rmErr) {
			log.Warnf("recording %d: remove %s: %v", r.id, r.path, rmErr)
		}
	}
	s.tasks.Done()
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		State:     s.state,
		Pending:   s.pending,
		NextID:    s.nextID,
		Completed: s.completed,
		LastText:  s.lastText,
	}
}

// Wait blocks until every queued recognition has finished.
func (s *Session) Wait() {
	s.tasks.Wait()
}

// Close discards an unfinished recording, lets queued recognitions finish,
// switches the indicator off and releases the recorder.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.edge.Lock()
		defer s.edge.Unlock()
		s.mu.Lock()
		s.closed = true
		abandoned := s.current
		s.current = nil
		s.state = Idle
		s.mu.Unlock()

		if abandoned != nil {
			s.rec.Stop()
			if !s.opts.Keep {
				os.Remove(abandoned.path)
			}
		}

		s.pool.Close()
		s.tasks.Wait()

		s.ind.SetStatus(indicator.Off)
		s.ind.Close()
		s.rec.Close()
		if !s.opts.Keep {
			// Only succeeds when every recording was cleaned up.
			os.Remove(s.opts.Dir)
		}

		log.SessionEnd(s.Snapshot().Completed)
	})
}
