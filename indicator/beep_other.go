//go:build !linux

package indicator

import (
	"encoding/binary"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"
)

type malgoPlayer struct {
	ctx    *malgo.AllocatedContext
	device *malgo.Device

	// Playback state - accessed atomically from callback
	samples atomic.Pointer[[]byte]
	pos     atomic.Uint32
	mu      sync.Mutex
}

func newPlayer() (player, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	p := &malgoPlayer{ctx: ctx}
	if err := p.initDevice(); err != nil {
		ctx.Uninit()
		ctx.Free()
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return p, nil
}

func (p *malgoPlayer) initDevice() error {
	config := malgo.DefaultDeviceConfig(malgo.Playback)
	config.Playback.Format = malgo.FormatS16
	config.Playback.Channels = 1
	config.SampleRate = toneRate

	dev, err := malgo.InitDevice(p.ctx.Context, config, malgo.DeviceCallbacks{Data: p.dataCallback})
	if err != nil {
		return err
	}
	p.device = dev
	return nil
}

func (p *malgoPlayer) dataCallback(out, _ []byte, frameCount uint32) {
	clear(out)
	s := p.samples.Load()
	if s == nil {
		return
	}
	pos := p.pos.Load()
	total := uint32(len(*s))
	if pos >= total {
		p.samples.Store(nil)
		return
	}
	n := min(frameCount*2, total-pos)
	copy(out[:n], (*s)[pos:pos+n])
	p.pos.Store(pos + n)
}

func (p *malgoPlayer) play(samples []int16) error {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	// Stop device first to ensure clean state (no-op if not running)
	p.device.Stop()
	p.pos.Store(0)
	p.samples.Store(&buf)

	if err := p.device.Start(); err != nil {
		// Try recreating device (handles macOS sleep/wake)
		p.device.Uninit()
		if err := p.initDevice(); err != nil {
			p.samples.Store(nil)
			return err
		}
		if err := p.device.Start(); err != nil {
			p.samples.Store(nil)
			return err
		}
	}
	return nil
}

func (p *malgoPlayer) close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.device.Uninit()
	p.ctx.Uninit()
	p.ctx.Free()
	return nil
}
