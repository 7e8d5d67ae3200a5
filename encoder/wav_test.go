package encoder

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWAVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rec.wav")
	w, err := CreateWAV(path)
	if err != nil {
		t.Fatal(err)
	}
	want := sine(SampleRate / 2)
	pcm := pcmBytes(want)
	// Uneven chunks, as a capture callback would deliver them.
	for len(pcm) > 0 {
		n := min(777, len(pcm))
		if err := w.WritePCM(pcm[:n]); err != nil {
			t.Fatal(err)
		}
		pcm = pcm[n:]
	}
	if got := w.Duration(); got != 500*time.Millisecond {
		t.Errorf("Duration = %v, want 500ms", got)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}

	got, rate, err := ReadWAV(path)
	if err != nil {
		t.Fatalf("ReadWAV: %v", err)
	}
	if rate != SampleRate {
		t.Errorf("rate = %d, want %d", rate, SampleRate)
	}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sample %d = %d, want %d", i, got[i], want[i])
		}
	}

	d, err := WAVDuration(path)
	if err != nil {
		t.Fatal(err)
	}
	if d != 500*time.Millisecond {
		t.Errorf("WAVDuration = %v, want 500ms", d)
	}
}

func TestWAVWriteAfterClose(t *testing.T) {
	w, err := CreateWAV(filepath.Join(t.TempDir(), "x.wav"))
	if err != nil {
		t.Fatal(err)
	}
	w.Close()
	if err := w.WritePCM([]byte{1, 0}); !errors.Is(err, os.ErrClosed) {
		t.Errorf("WritePCM after Close = %v, want os.ErrClosed", err)
	}
}

func TestReadWAVInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.wav")
	os.WriteFile(path, []byte("definitely not riff data"), 0644)
	if _, _, err := ReadWAV(path); !errors.Is(err, ErrInvalidWAV) {
		t.Errorf("ReadWAV = %v, want ErrInvalidWAV", err)
	}
}

func TestFramesDuration(t *testing.T) {
	if got := FramesDuration(16000, 16000); got != time.Second {
		t.Errorf("got %v, want 1s", got)
	}
	if got := FramesDuration(100, 0); got != 0 {
		t.Errorf("got %v, want 0", got)
	}
}

func TestWAVEmptyRecording(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.wav")
	w, err := CreateWAV(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	fi, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if fi.Size() != 44 {
		t.Errorf("empty recording is %d bytes, want a bare 44-byte header", fi.Size())
	}
}
