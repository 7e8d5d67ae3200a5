// Package transcript turns recognizer segments into the text that gets typed,
// and decides whether that text is believable for the recording it came from.
package transcript

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"pttwhisper/transcriber"
)

const (
	sentenceSep = ". "
	ellipsis    = "..."
)

// Transcript is assembled text plus the duration of the recording it came from.
type Transcript struct {
	Text     string
	Duration float64 // seconds
}

// Assemble joins segments in order into one sentence-separated string.
// Each segment loses a single leading space and has its first character
// capitalized; segments after the first are prefixed with ". ".
// A trailing "..." is cut down to a single ".".
func Assemble(segments []transcriber.Segment) string {
	if len(segments) == 0 {
		return ""
	}

	var b strings.Builder
	for i, seg := range segments {
		if i > 0 {
			b.WriteString(sentenceSep)
		}
		b.WriteString(capitalize(strings.TrimPrefix(seg.Text, " ")))
	}

	text := b.String()
	if strings.HasSuffix(text, ellipsis) {
		text = text[:len(text)-2]
	}
	return text
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 || r == utf8.RuneError {
		return s
	}
	up := unicode.ToUpper(r)
	if up == r {
		return s
	}
	return string(up) + s[size:]
}
