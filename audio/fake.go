package audio

import (
	"encoding/binary"
	"sync"
	"time"

	"pttwhisper/encoder"
)

const (
	fakeFrameSize     = 1024
	fakeBytesPerFrame = 2 // 16-bit mono
)

// FakeContext replays fixed PCM every time a capture starts.
type FakeContext struct {
	pcm      []byte
	realtime bool
	startErr error
	newErr   error
	mu       sync.Mutex
	captures []*FakeCapture
}

// NewFakeContext replays the samples of a WAV file. With realtime set, chunks
// are paced at the capture sample rate.
func NewFakeContext(wavPath string, realtime bool) (*FakeContext, error) {
	samples, _, err := encoder.ReadWAV(wavPath)
	if err != nil {
		return nil, err
	}
	return NewFakeContextPCM(samples, realtime), nil
}

func NewFakeContextPCM(samples []int16, realtime bool) *FakeContext {
	pcm := make([]byte, len(samples)*fakeBytesPerFrame)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(s))
	}
	return &FakeContext{pcm: pcm, realtime: realtime}
}

// FailStart makes every capture created afterwards fail to start with err.
func (f *FakeContext) FailStart(err error) *FakeContext {
	f.startErr = err
	return f
}

// FailOpen makes NewCapture fail with err.
func (f *FakeContext) FailOpen(err error) *FakeContext {
	f.newErr = err
	return f
}

func (f *FakeContext) Devices() ([]DeviceInfo, error) {
	return []DeviceInfo{{ID: "fake", Name: "fake"}}, nil
}

func (f *FakeContext) Close() {}

func (f *FakeContext) NewCapture(_ *DeviceInfo, _ CaptureConfig) (CaptureDevice, error) {
	if f.newErr != nil {
		return nil, f.newErr
	}
	c := &FakeCapture{pcm: f.pcm, realtime: f.realtime, startErr: f.startErr}
	f.mu.Lock()
	f.captures = append(f.captures, c)
	f.mu.Unlock()
	return c, nil
}

type FakeCapture struct {
	pcm      []byte
	realtime bool
	startErr error

	mu        sync.Mutex
	cb        DataCallback
	stopCh    chan struct{}
	feedDone  chan struct{}
	audioDone chan struct{}
	starts    int
	closed    bool
}

// AudioDone is closed once the current replay has delivered every sample.
func (f *FakeCapture) AudioDone() <-chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.audioDone
}

func (f *FakeCapture) Starts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts
}

func (f *FakeCapture) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *FakeCapture) SetCallback(cb DataCallback) {
	f.mu.Lock()
	f.cb = cb
	f.mu.Unlock()
}

func (f *FakeCapture) ClearCallback() {
	f.mu.Lock()
	f.cb = nil
	f.mu.Unlock()
}

func (f *FakeCapture) DeviceName() string { return "fake" }

func (f *FakeCapture) Start() error {
	if f.startErr != nil {
		return f.startErr
	}
	f.mu.Lock()
	stopCh := make(chan struct{})
	feedDone := make(chan struct{})
	audioDone := make(chan struct{})
	f.stopCh, f.feedDone, f.audioDone = stopCh, feedDone, audioDone
	f.starts++
	f.mu.Unlock()

	interval := time.Duration(fakeFrameSize) * time.Second / time.Duration(encoder.SampleRate)
	chunkBytes := fakeFrameSize * fakeBytesPerFrame

	go func() {
		defer close(feedDone)
		for pos := 0; pos < len(f.pcm); {
			select {
			case <-stopCh:
				return
			default:
			}
			end := min(pos+chunkBytes, len(f.pcm))
			f.mu.Lock()
			cb := f.cb
			f.mu.Unlock()
			if cb != nil {
				cb(f.pcm[pos:end], uint32((end-pos)/fakeBytesPerFrame))
			}
			pos = end
			if f.realtime {
				select {
				case <-stopCh:
					return
				case <-time.After(interval):
				}
			}
		}
		close(audioDone)
	}()
	return nil
}

func (f *FakeCapture) Stop() {
	f.mu.Lock()
	stopCh, feedDone := f.stopCh, f.feedDone
	f.stopCh = nil
	f.mu.Unlock()
	if stopCh == nil {
		return
	}
	close(stopCh)
	<-feedDone
}

func (f *FakeCapture) Close() {
	f.Stop()
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
}

// LastCapture returns the most recently created capture, or nil.
func (f *FakeContext) LastCapture() *FakeCapture {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.captures) == 0 {
		return nil
	}
	return f.captures[len(f.captures)-1]
}
