// Package keyboard delivers recognized text to the focused application.
package keyboard

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"pttwhisper/log"
)

// ErrUnmappable is returned by a Tapper for a symbol it has no key for.
var ErrUnmappable = errors.New("symbol has no key mapping")

// Sink receives accepted transcripts.
type Sink interface {
	Emit(text string) error
}

// Tapper presses and releases the key(s) producing one symbol.
type Tapper interface {
	Tap(r rune) error
}

// Clipboard is the system clipboard plus the chord that pastes from it.
type Clipboard interface {
	Read() (string, error)
	Write(text string) error
	PasteChord() error
}

// Serialized makes Emit calls from concurrent recognitions run one at a
// time, so their keystrokes never interleave.
type Serialized struct {
	mu   sync.Mutex
	sink Sink
}

func NewSerialized(s Sink) *Serialized {
	return &Serialized{sink: s}
}

func (s *Serialized) Emit(text string) error {
	if text == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sink.Emit(text)
}

// Console writes each transcript as a line.
type Console struct {
	mu sync.Mutex
	w  io.Writer
}

func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

func (c *Console) Emit(text string) error {
	if text == "" {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := fmt.Fprintln(c.w, text)
	return err
}

// Paster puts the whole text on the clipboard, sends the paste chord and
// then restores what the clipboard held before.
type Paster struct {
	clip   Clipboard
	settle time.Duration
}

func NewPaster(clip Clipboard) *Paster {
	return &Paster{clip: clip, settle: 100 * time.Millisecond}
}

func (p *Paster) Emit(text string) error {
	if text == "" {
		return nil
	}
	prev, prevErr := p.clip.Read()
	if err := p.clip.Write(text); err != nil {
		return fmt.Errorf("clipboard write: %w", err)
	}
	if err := p.clip.PasteChord(); err != nil {
		return fmt.Errorf("paste: %w", err)
	}
	if prevErr == nil {
		// The target application reads the clipboard asynchronously.
		time.Sleep(p.settle)
		p.clip.Write(prev)
	}
	return nil
}

// Typer types text symbol by symbol. Symbols the tapper cannot produce are
// pasted through the clipboard instead; a symbol that fails both ways is
// logged and skipped.
type Typer struct {
	tap   Tapper
	clip  Clipboard // nil disables the paste fallback
	delay time.Duration
}

func NewTyper(tap Tapper, clip Clipboard, delay time.Duration) *Typer {
	return &Typer{tap: tap, clip: clip, delay: delay}
}

func (t *Typer) Emit(text string) error {
	if text == "" {
		return nil
	}
	if t.delay > 0 {
		time.Sleep(t.delay)
	}
	var restore *string
	for _, r := range text {
		err := t.tap.Tap(r)
		if err == nil {
			continue
		}
		if t.clip != nil {
			if restore == nil {
				if prev, rerr := t.clip.Read(); rerr == nil {
					restore = &prev
				}
			}
			if err = t.pasteSymbol(r); err == nil {
				continue
			}
		}
		log.EmitFailure(r, err)
	}
	if restore != nil {
		time.Sleep(50 * time.Millisecond)
		t.clip.Write(*restore)
	}
	return nil
}

func (t *Typer) pasteSymbol(r rune) error {
	if err := t.clip.Write(string(r)); err != nil {
		return err
	}
	return t.clip.PasteChord()
}
