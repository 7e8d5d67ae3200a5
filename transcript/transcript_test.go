package transcript

import (
	"strings"
	"testing"

	"pttwhisper/transcriber"
)

func segs(texts ...string) []transcriber.Segment {
	out := make([]transcriber.Segment, len(texts))
	for i, t := range texts {
		out[i] = transcriber.Segment{Index: i, Text: t}
	}
	return out
}

func TestAssemble(t *testing.T) {
	for _, tt := range []struct {
		name string
		in   []transcriber.Segment
		want string
	}{
		{"empty", nil, ""},
		{"single", segs("hello world"), "Hello world"},
		{"leading spaces", segs(" hi", " there"), "Hi. There"},
		{"ellipsis", segs("done..."), "Done."},
		{"ellipsis on last segment", segs(" one", " two..."), "One. Two."},
		{"single char", segs("a"), "A"},
		{"single space", segs(" "), ""},
		{"empty segment", segs(""), ""},
		{"only one space stripped", segs("  indented"), " indented"},
		{"already capitalized", segs("Already"), "Already"},
		{"non ascii", segs(" élan"), "Élan"},
		{"digit first", segs("42 things"), "42 things"},
		{"two dots kept", segs("wait.."), "Wait.."},
	} {
		t.Run(tt.name, func(t *testing.T) {
			if got := Assemble(tt.in); got != tt.want {
				t.Errorf("Assemble() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFilterCheck(t *testing.T) {
	f := DefaultFilter()
	for _, tt := range []struct {
		name     string
		text     string
		duration float64
		accepted bool
		reason   Reason
	}{
		{"below duration floor", "hello", 0.3, false, ReasonTooShort},
		{"zero duration", "", 0, false, ReasonTooShort},
		{"at duration floor", "hello", 0.45, true, ReasonNone},
		{"fast and long", strings.Repeat("x", 50), 1.0, false, ReasonTooDense},
		{"normal rate", strings.Repeat("x", 20), 1.0, true, ReasonNone},
		{"fast but short", strings.Repeat("x", 40), 1.0, true, ReasonNone},
		{"long but slow", strings.Repeat("x", 100), 5.0, true, ReasonNone},
		{"empty text", "", 2.0, true, ReasonNone},
	} {
		t.Run(tt.name, func(t *testing.T) {
			v := f.Check(Transcript{Text: tt.text, Duration: tt.duration})
			if v.Accepted != tt.accepted {
				t.Fatalf("Accepted = %v, want %v", v.Accepted, tt.accepted)
			}
			if v.Reason != tt.reason {
				t.Errorf("Reason = %q, want %q", v.Reason, tt.reason)
			}
			if tt.accepted && v.Text != tt.text {
				t.Errorf("Text = %q, want unchanged %q", v.Text, tt.text)
			}
			if !tt.accepted && v.Text != "" {
				t.Errorf("rejected transcript kept text %q", v.Text)
			}
		})
	}
}

func TestFilterCustomLimits(t *testing.T) {
	f := Filter{MinDuration: 1, MaxCharsPerSecond: 5, MinFlaggedLength: 3}
	if v := f.Check(Transcript{Text: "abcdefgh", Duration: 1}); v.Accepted {
		t.Error("expected rejection with tightened limits")
	}
	if v := f.Check(Transcript{Text: "abcd", Duration: 1}); !v.Accepted {
		t.Errorf("expected acceptance, got %q", v.Reason)
	}
}
