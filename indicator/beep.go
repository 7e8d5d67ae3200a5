package indicator

import (
	"math"
	"sync"
)

const (
	toneRate = 44100

	// Start beep: high pitch, short
	startFreq   = 1200
	startVolume = 0.5
	startDecay  = 60

	// End beep: medium pitch, slightly longer
	endFreq   = 900
	endVolume = 0.5
	endDecay  = 40

	// Error beep: low pitch double-beep
	errorFreq   = 350
	errorVolume = 0.6
	errorDecay  = 30
)

func generateTick(freq, duration, volume, decay float64) []int16 {
	n := int(toneRate * duration)
	samples := make([]int16, n)
	for i := range samples {
		t := float64(i) / toneRate
		envelope := math.Exp(-t * decay)
		samples[i] = int16(math.Sin(2*math.Pi*freq*t) * 32767 * volume * envelope)
	}
	return samples
}

func generateDoubleBeep(freq, beepDur, gapDur, volume, decay float64) []int16 {
	beep := generateTick(freq, beepDur, volume, decay)
	gap := make([]int16, int(toneRate*gapDur))
	result := make([]int16, 0, len(beep)*2+len(gap))
	result = append(result, beep...)
	result = append(result, gap...)
	result = append(result, beep...)
	return result
}

// player plays mono 16-bit samples at toneRate without blocking the caller.
type player interface {
	play(samples []int16) error
	close() error
}

// Beep plays a short tone when recording starts or stops and a double beep
// on errors and discarded transcripts. The stop tone only follows
// Listening; transcribing entered any other way is silent.
type Beep struct {
	p     player
	tones map[Status][]int16

	mu   sync.Mutex
	last Status
}

func NewBeep() (*Beep, error) {
	p, err := newPlayer()
	if err != nil {
		return nil, err
	}
	return newBeep(p), nil
}

func newBeep(p player) *Beep {
	errTone := generateDoubleBeep(errorFreq, 0.08, 0.05, errorVolume, errorDecay)
	return &Beep{
		p: p,
		tones: map[Status][]int16{
			Listening:     generateTick(startFreq, 0.2, startVolume, startDecay),
			Transcribing:  generateTick(endFreq, 0.2, endVolume, endDecay),
			Hallucination: errTone,
			Error:         errTone,
		},
	}
}

func (b *Beep) SetStatus(s Status) error {
	b.mu.Lock()
	prev := b.last
	b.last = s
	b.mu.Unlock()
	if s == Transcribing && prev != Listening {
		return nil
	}
	tone, ok := b.tones[s]
	if !ok {
		return nil
	}
	return b.p.play(tone)
}

func (b *Beep) Close() error {
	return b.p.close()
}
