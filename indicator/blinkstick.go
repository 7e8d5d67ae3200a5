package indicator

import (
	"fmt"
	"sync"

	"github.com/sstallion/go-hid"

	"pttwhisper/log"
)

const (
	blinkStickVID = 0x20a0
	blinkStickPID = 0x41e5

	defaultBrightness = 5
)

type rgb struct{ r, g, b float64 }

// Colours are relative to the brightness level; 1.0 is full level.
var statusColors = map[Status]rgb{
	Listening:     {0, 1, 0},        // green
	Idle:          {0, 0, 1.2},      // blue
	Transcribing:  {1, 1, 0},        // yellow
	Hallucination: {1.2, 0.33, 0.4}, // pink
	Error:         {2, 0, 0},        // red
	Off:           {0, 0, 0},
}

type featureDevice interface {
	SendFeatureReport(p []byte) (int, error)
	Close() error
}

// BlinkStick drives a BlinkStick USB RGB LED.
type BlinkStick struct {
	mu         sync.Mutex
	dev        featureDevice
	brightness float64
	hidOpen    bool
}

// OpenBlinkStick finds the first attached BlinkStick. It returns an error
// wrapping ErrUnavailable when none is connected.
func OpenBlinkStick(brightness uint8) (*BlinkStick, error) {
	if err := hid.Init(); err != nil {
		return nil, fmt.Errorf("%w: hid init: %w", ErrUnavailable, err)
	}
	dev, err := hid.OpenFirst(blinkStickVID, blinkStickPID)
	if err != nil {
		hid.Exit()
		return nil, fmt.Errorf("%w: blinkstick: %w", ErrUnavailable, err)
	}
	if serial, err := dev.GetSerialNbr(); err == nil {
		log.Infof("found BlinkStick USB LED %s", serial)
	}
	b := newBlinkStick(dev, brightness)
	b.hidOpen = true
	return b, nil
}

func newBlinkStick(dev featureDevice, brightness uint8) *BlinkStick {
	if brightness == 0 {
		brightness = defaultBrightness
	}
	return &BlinkStick{dev: dev, brightness: float64(brightness)}
}

func (b *BlinkStick) report(s Status) ([]byte, error) {
	c, ok := statusColors[s]
	if !ok {
		return nil, fmt.Errorf("no colour for status %q", s)
	}
	scale := func(v float64) byte {
		x := v * b.brightness
		if x > 255 {
			x = 255
		}
		return byte(x)
	}
	// Report 1 sets the colour of LED 0.
	return []byte{1, scale(c.r), scale(c.g), scale(c.b)}, nil
}

func (b *BlinkStick) SetStatus(s Status) error {
	r, err := b.report(s)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.dev == nil {
		return ErrUnavailable
	}
	if _, err := b.dev.SendFeatureReport(r); err != nil {
		return fmt.Errorf("blinkstick: %w", err)
	}
	return nil
}

func (b *BlinkStick) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.dev == nil {
		return nil
	}
	err := b.dev.Close()
	b.dev = nil
	if b.hidOpen {
		hid.Exit()
	}
	return err
}
