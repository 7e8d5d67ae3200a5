// Package encoder converts captured PCM into the file formats recognizers
// accept: WAV for local models and FLAC for uploads.
package encoder

import "time"

const (
	SampleRate    = 16000
	Channels      = 1
	BitsPerSample = 16
	BlockSize     = 4096
)

type Encoder interface {
	EncodeBlock(block []int16) error
	Close() error
	Bytes() []byte
	TotalFrames() uint64
}

// FramesDuration converts a mono frame count at rate into wall time.
func FramesDuration(frames uint64, rate int) time.Duration {
	if rate <= 0 {
		return 0
	}
	return time.Duration(frames) * time.Second / time.Duration(rate)
}
