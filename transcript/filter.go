package transcript

import "unicode/utf8"

const (
	DefaultMinDuration       = 0.45
	DefaultMaxCharsPerSecond = 25.0
	DefaultMinFlaggedLength  = 40
)

// Reason says why a transcript was rejected.
type Reason string

const (
	ReasonNone     Reason = ""
	ReasonTooShort Reason = "too_short"
	ReasonTooDense Reason = "too_dense"
)

// Filter rejects transcripts whose length does not fit the recording duration.
// It is a heuristic: speech recognizers invent text on silent or very short audio.
type Filter struct {
	MinDuration       float64 // seconds; shorter recordings are always rejected
	MaxCharsPerSecond float64
	MinFlaggedLength  int // the rate check only applies above this many characters
}

func DefaultFilter() Filter {
	return Filter{
		MinDuration:       DefaultMinDuration,
		MaxCharsPerSecond: DefaultMaxCharsPerSecond,
		MinFlaggedLength:  DefaultMinFlaggedLength,
	}
}

// Verdict is the outcome of Check. On rejection Text is empty.
type Verdict struct {
	Text     string
	Accepted bool
	Reason   Reason
	Rate     float64 // characters per second, zero when the duration check failed first
}

// Check applies the duration floor first, then the character-rate ceiling.
// Both the rate and the length must exceed their limits for a rate rejection.
func (f Filter) Check(t Transcript) Verdict {
	if t.Duration < f.MinDuration || t.Duration <= 0 {
		return Verdict{Reason: ReasonTooShort}
	}

	n := utf8.RuneCountInString(t.Text)
	rate := float64(n) / t.Duration
	if rate > f.MaxCharsPerSecond && n > f.MinFlaggedLength {
		return Verdict{Reason: ReasonTooDense, Rate: rate}
	}
	return Verdict{Text: t.Text, Accepted: true, Rate: rate}
}
