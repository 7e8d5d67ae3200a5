//go:build linux

package audio

import (
	"encoding/binary"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/jfreymuth/pulse"
)

const pulseLatency = 0.05 // seconds

type pulseContext struct {
	client *pulse.Client
}

func NewContext() (Context, error) {
	c, err := pulse.NewClient(pulse.ClientApplicationName("pttwhisper"))
	if err != nil {
		return nil, fmt.Errorf("%w: pulse: %w", ErrDeviceUnavailable, err)
	}
	return &pulseContext{client: c}, nil
}

func (p *pulseContext) Devices() ([]DeviceInfo, error) {
	sources, err := p.client.ListSources()
	if err != nil {
		return nil, fmt.Errorf("pulse sources: %w", err)
	}
	devices := make([]DeviceInfo, 0, len(sources))
	for _, s := range sources {
		devices = append(devices, DeviceInfo{ID: s.ID(), Name: s.Name()})
	}
	return devices, nil
}

// NewCapture resolves the source up front so the device name reported for
// bluetooth detection is the real one, not "default".
func (p *pulseContext) NewCapture(device *DeviceInfo, config CaptureConfig) (CaptureDevice, error) {
	var (
		src *pulse.Source
		err error
	)
	if device != nil {
		src, err = p.client.SourceByID(device.ID)
	} else {
		src, err = p.client.DefaultSource()
	}
	if err != nil {
		return nil, fmt.Errorf("%w: pulse source: %w", ErrDeviceUnavailable, err)
	}
	return &pulseCapture{client: p.client, source: src, config: config}, nil
}

func (p *pulseContext) Close() {
	p.client.Close()
}

// pulseCapture opens a fresh record stream per recording. Samples arrive as
// int16 and are handed on as little-endian bytes.
type pulseCapture struct {
	client   *pulse.Client
	source   *pulse.Source
	config   CaptureConfig
	callback atomic.Pointer[DataCallback]

	mu     sync.Mutex
	stream *pulse.RecordStream
	buf    []byte
}

func (c *pulseCapture) write(samples []int16) (int, error) {
	cb := c.callback.Load()
	if cb == nil || len(samples) == 0 {
		return len(samples), nil
	}
	if need := len(samples) * 2; cap(c.buf) < need {
		c.buf = make([]byte, need)
	}
	data := c.buf[:len(samples)*2]
	for i, s := range samples {
		binary.LittleEndian.PutUint16(data[i*2:], uint16(s))
	}
	(*cb)(data, uint32(len(samples)))
	return len(samples), nil
}

func (c *pulseCapture) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stream != nil {
		return nil
	}
	stream, err := c.client.NewRecord(pulse.Int16Writer(c.write),
		pulse.RecordMono,
		pulse.RecordSampleRate(int(c.config.SampleRate)),
		pulse.RecordLatency(pulseLatency),
		pulse.RecordMediaName("dictation"),
		pulse.RecordSource(c.source),
	)
	if err != nil {
		return fmt.Errorf("%w: pulse record: %w", ErrDeviceUnavailable, err)
	}
	stream.Start()
	c.stream = stream
	return nil
}

func (c *pulseCapture) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stream == nil {
		return
	}
	c.stream.Stop()
	c.stream.Close()
	c.stream = nil
}

func (c *pulseCapture) Close() { c.Stop() }

func (c *pulseCapture) SetCallback(cb DataCallback) { c.callback.Store(&cb) }

func (c *pulseCapture) ClearCallback() { c.callback.Store(nil) }

func (c *pulseCapture) DeviceName() string {
	if c.source == nil {
		return "system default"
	}
	return c.source.Name()
}
