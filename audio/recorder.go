package audio

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"pttwhisper/encoder"
	"pttwhisper/log"
)

// Recorder writes one capture at a time to a WAV file. The capture device
// is opened once and streamed only while a recording is active.
type Recorder struct {
	dev CaptureDevice

	mu       sync.Mutex
	w        *encoder.WAVWriter
	writeErr error
}

func NewRecorder(ctx Context, device *DeviceInfo) (*Recorder, error) {
	dev, err := ctx.NewCapture(device, CaptureConfig{SampleRate: encoder.SampleRate, Channels: encoder.Channels})
	if err != nil {
		if errors.Is(err, ErrDeviceUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
	}
	return &Recorder{dev: dev}, nil
}

func (r *Recorder) DeviceName() string { return r.dev.DeviceName() }

func (r *Recorder) Start(path string) error {
	r.mu.Lock()
	if r.w != nil {
		r.mu.Unlock()
		return ErrAlreadyRecording
	}
	w, err := encoder.CreateWAV(path)
	if err != nil {
		r.mu.Unlock()
		return err
	}
	r.w, r.writeErr = w, nil
	r.mu.Unlock()

	r.dev.SetCallback(r.onData)
	if err := r.dev.Start(); err != nil {
		r.dev.ClearCallback()
		r.mu.Lock()
		r.w = nil
		r.mu.Unlock()
		w.Close()
		os.Remove(path)
		if errors.Is(err, ErrDeviceUnavailable) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
	}
	return nil
}

func (r *Recorder) onData(data []byte, _ uint32) {
	r.mu.Lock()
	w := r.w
	r.mu.Unlock()
	if w == nil {
		return
	}
	if err := w.WritePCM(data); err != nil && !errors.Is(err, os.ErrClosed) {
		r.mu.Lock()
		if r.writeErr == nil {
			r.writeErr = err
			log.Warnf("recording write failed: %v", err)
		}
		r.mu.Unlock()
	}
}

// Stop ends the active recording, finalizes the file and reports how much
// audio it holds.
func (r *Recorder) Stop() (time.Duration, error) {
	r.mu.Lock()
	w := r.w
	r.w = nil
	r.mu.Unlock()
	if w == nil {
		return 0, ErrNotRecording
	}

	r.dev.Stop()
	r.dev.ClearCallback()

	d := w.Duration()
	if err := w.Close(); err != nil {
		return d, err
	}
	r.mu.Lock()
	werr := r.writeErr
	r.mu.Unlock()
	return d, werr
}

func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.w != nil
}

// Close stops any active recording and releases the device.
func (r *Recorder) Close() {
	if r.Recording() {
		r.Stop()
	}
	r.dev.Close()
}
