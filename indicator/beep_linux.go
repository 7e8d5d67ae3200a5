//go:build linux

package indicator

import (
	"fmt"
	"sync"

	"github.com/jfreymuth/pulse"
)

type pulsePlayer struct {
	mu     sync.Mutex
	client *pulse.Client
}

func newPlayer() (player, error) {
	c, err := pulse.NewClient(pulse.ClientApplicationName("pttwhisper"))
	if err != nil {
		return nil, fmt.Errorf("%w: pulse: %w", ErrUnavailable, err)
	}
	return &pulsePlayer{client: c}, nil
}

func (p *pulsePlayer) play(samples []int16) error {
	if len(samples) == 0 {
		return nil
	}
	pos := 0
	reader := pulse.Int16Reader(func(buf []int16) (int, error) {
		if pos >= len(samples) {
			return 0, pulse.EndOfData
		}
		n := copy(buf, samples[pos:])
		pos += n
		return n, nil
	})

	p.mu.Lock()
	stream, err := p.client.NewPlayback(reader,
		pulse.PlaybackMono,
		pulse.PlaybackSampleRate(toneRate),
		pulse.PlaybackLatency(0.1),
		pulse.PlaybackMediaName("pttwhisper status"),
	)
	p.mu.Unlock()
	if err != nil {
		return fmt.Errorf("pulse playback: %w", err)
	}
	go func() {
		stream.Start()
		stream.Drain()
		stream.Stop()
		stream.Close()
	}()
	return nil
}

func (p *pulsePlayer) close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.client.Close()
	return nil
}
