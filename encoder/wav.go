package encoder

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

var ErrInvalidWAV = errors.New("not a valid WAV file")

// WAVWriter streams 16 kHz mono s16le PCM into a WAV file.
type WAVWriter struct {
	mu     sync.Mutex
	f      *os.File
	enc    *wav.Encoder
	buf    *audio.IntBuffer
	frames uint64
	closed bool
}

func CreateWAV(path string) (*WAVWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	return &WAVWriter{
		f:   f,
		enc: wav.NewEncoder(f, SampleRate, BitsPerSample, Channels, 1),
		buf: &audio.IntBuffer{
			Format:         &audio.Format{NumChannels: Channels, SampleRate: SampleRate},
			SourceBitDepth: BitsPerSample,
		},
	}, nil
}

// WritePCM appends little-endian 16-bit samples. A trailing odd byte is dropped.
func (w *WAVWriter) WritePCM(pcm []byte) error {
	n := len(pcm) / 2
	if n == 0 {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return os.ErrClosed
	}
	if cap(w.buf.Data) < n {
		w.buf.Data = make([]int, n)
	}
	w.buf.Data = w.buf.Data[:n]
	for i := range n {
		w.buf.Data[i] = int(int16(binary.LittleEndian.Uint16(pcm[i*2:])))
	}
	if err := w.enc.Write(w.buf); err != nil {
		return fmt.Errorf("write wav samples: %w", err)
	}
	w.frames += uint64(n)
	return nil
}

func (w *WAVWriter) Frames() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.frames
}

func (w *WAVWriter) Duration() time.Duration {
	return FramesDuration(w.Frames(), SampleRate)
}

// Close finalizes the header and closes the file. Safe to call twice.
func (w *WAVWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	var encErr error
	if w.frames == 0 {
		// The header is only emitted on first write.
		w.buf.Data = w.buf.Data[:0]
		encErr = w.enc.Write(w.buf)
	}
	if err := w.enc.Close(); encErr == nil {
		encErr = err
	}
	fileErr := w.f.Close()
	if encErr != nil {
		return fmt.Errorf("finalize wav: %w", encErr)
	}
	return fileErr
}

// ReadWAV decodes a PCM WAV file into mono 16-bit samples and its sample rate.
// Multi-channel input is averaged down to one channel.
func ReadWAV(path string) ([]int16, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return nil, 0, fmt.Errorf("%s: %w", path, ErrInvalidWAV)
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("decode %s: %w", path, err)
	}

	var shift uint
	switch d.BitDepth {
	case 16:
	case 24:
		shift = 8
	case 32:
		shift = 16
	default:
		return nil, 0, fmt.Errorf("%s: unsupported bit depth %d", path, d.BitDepth)
	}

	chans := int(d.NumChans)
	if chans < 1 {
		chans = 1
	}
	out := make([]int16, len(buf.Data)/chans)
	for i := range out {
		sum := 0
		for c := range chans {
			sum += buf.Data[i*chans+c] >> shift
		}
		out[i] = int16(sum / chans)
	}
	return out, int(d.SampleRate), nil
}

// WAVDuration reports the playing time of a WAV file.
func WAVDuration(path string) (time.Duration, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return 0, fmt.Errorf("%s: %w", path, ErrInvalidWAV)
	}
	return d.Duration()
}
