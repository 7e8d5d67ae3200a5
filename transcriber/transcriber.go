// Package transcriber turns a finished recording into ordered text segments.
package transcriber

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrRecognition wraps every failure reported by a backend.
var ErrRecognition = errors.New("recognition failed")

type Segment struct {
	Index        int
	Text         string
	Start        float64
	End          float64
	NoSpeechProb float64
}

// Options are decoding parameters forwarded to the backend unchanged.
type Options struct {
	Language    string
	Prompt      string
	BeamSize    int
	BestOf      int
	Temperature float64
	Patience    float64
	Threads     int
}

type Transcriber interface {
	Name() string
	Transcribe(ctx context.Context, path string, opts Options) ([]Segment, error)
}

type NetworkMetrics struct {
	DNS         time.Duration
	ConnWait    time.Duration
	TCP         time.Duration
	TLS         time.Duration
	ReqHeaders  time.Duration
	ReqBody     time.Duration
	TTFB        time.Duration
	Download    time.Duration
	Total       time.Duration
	ConnReused  bool
	TLSProtocol string
}

func (m *NetworkMetrics) Sum() time.Duration {
	return m.ConnWait + m.DNS + m.TCP + m.TLS + m.ReqHeaders + m.ReqBody + m.TTFB + m.Download
}

func firstNonEmpty(h http.Header, keys ...string) string {
	for _, k := range keys {
		if v := h.Get(k); v != "" {
			return v
		}
	}
	return "?"
}

// Settings select and configure a backend.
type Settings struct {
	Backend   string
	Model     string
	Device    string
	Python    string
	GroqKey   string
	OpenAIKey string
	OpenAIURL string
}

func New(s Settings) (Transcriber, error) {
	switch s.Backend {
	case "faster-whisper":
		return NewFasterWhisper(s.Python, s.Model, s.Device), nil
	case "groq":
		if s.GroqKey == "" {
			return nil, fmt.Errorf("set GROQ_API_KEY to use the groq backend")
		}
		return NewGroq(s.GroqKey, s.Model), nil
	case "openai":
		return NewOpenAI(s.OpenAIKey, s.OpenAIURL, s.Model), nil
	case "fake":
		return NewFake("Hello world"), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", s.Backend)
	}
}

func recognitionError(backend string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrRecognition, backend, err)
}

func numbered(segs []Segment) []Segment {
	for i := range segs {
		segs[i].Index = i
	}
	return segs
}
