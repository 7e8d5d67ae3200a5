package audio

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"pttwhisper/encoder"
)

func tone(n int) []int16 {
	s := make([]int16, n)
	for i := range s {
		s[i] = int16(i%64) * 256
	}
	return s
}

func waitAudio(t *testing.T, c *FakeCapture) {
	t.Helper()
	select {
	case <-c.AudioDone():
	case <-time.After(5 * time.Second):
		t.Fatal("fake capture never finished replay")
	}
}

func TestRecorderWritesWAV(t *testing.T) {
	ctx := NewFakeContextPCM(tone(encoder.SampleRate), false)
	rec, err := NewRecorder(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer rec.Close()

	path := filepath.Join(t.TempDir(), "recording0.wav")
	if err := rec.Start(path); err != nil {
		t.Fatal(err)
	}
	if !rec.Recording() {
		t.Error("Recording() = false after Start")
	}
	waitAudio(t, ctx.LastCapture())

	d, err := rec.Stop()
	if err != nil {
		t.Fatal(err)
	}
	if d != time.Second {
		t.Errorf("duration = %v, want 1s", d)
	}

	samples, rate, err := encoder.ReadWAV(path)
	if err != nil {
		t.Fatal(err)
	}
	if rate != encoder.SampleRate || len(samples) != encoder.SampleRate {
		t.Errorf("got %d samples at %d Hz", len(samples), rate)
	}
}

func TestRecorderTwoRecordings(t *testing.T) {
	ctx := NewFakeContextPCM(tone(encoder.SampleRate/2), false)
	rec, err := NewRecorder(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer rec.Close()

	dir := t.TempDir()
	for i, name := range []string{"recording0.wav", "recording1.wav"} {
		if err := rec.Start(filepath.Join(dir, name)); err != nil {
			t.Fatalf("start %d: %v", i, err)
		}
		waitAudio(t, ctx.LastCapture())
		d, err := rec.Stop()
		if err != nil {
			t.Fatalf("stop %d: %v", i, err)
		}
		if d != 500*time.Millisecond {
			t.Errorf("recording %d duration = %v, want 500ms", i, d)
		}
	}
	if got := ctx.LastCapture().Starts(); got != 2 {
		t.Errorf("device started %d times, want 2", got)
	}
}

func TestRecorderStateErrors(t *testing.T) {
	ctx := NewFakeContextPCM(nil, false)
	rec, err := NewRecorder(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer rec.Close()

	if _, err := rec.Stop(); !errors.Is(err, ErrNotRecording) {
		t.Errorf("Stop before Start = %v, want ErrNotRecording", err)
	}
	dir := t.TempDir()
	if err := rec.Start(filepath.Join(dir, "a.wav")); err != nil {
		t.Fatal(err)
	}
	if err := rec.Start(filepath.Join(dir, "b.wav")); !errors.Is(err, ErrAlreadyRecording) {
		t.Errorf("second Start = %v, want ErrAlreadyRecording", err)
	}
	if d, err := rec.Stop(); err != nil || d != 0 {
		t.Errorf("Stop = %v, %v; want 0, nil", d, err)
	}
}

func TestRecorderStartFailure(t *testing.T) {
	ctx := NewFakeContextPCM(tone(100), false).FailStart(errors.New("device busy"))
	rec, err := NewRecorder(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer rec.Close()

	path := filepath.Join(t.TempDir(), "recording0.wav")
	if err := rec.Start(path); !errors.Is(err, ErrDeviceUnavailable) {
		t.Fatalf("Start = %v, want ErrDeviceUnavailable", err)
	}
	if rec.Recording() {
		t.Error("Recording() = true after failed Start")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("failed start left %s behind", path)
	}
}

func TestRecorderOpenFailure(t *testing.T) {
	ctx := NewFakeContextPCM(nil, false).FailOpen(errors.New("no such device"))
	if _, err := NewRecorder(ctx, nil); !errors.Is(err, ErrDeviceUnavailable) {
		t.Errorf("NewRecorder = %v, want ErrDeviceUnavailable", err)
	}
}

func TestRecorderCloseStopsRecording(t *testing.T) {
	ctx := NewFakeContextPCM(tone(100), false)
	rec, err := NewRecorder(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := rec.Start(filepath.Join(t.TempDir(), "a.wav")); err != nil {
		t.Fatal(err)
	}
	rec.Close()
	if rec.Recording() {
		t.Error("still recording after Close")
	}
	if !ctx.LastCapture().Closed() {
		t.Error("device not closed")
	}
}

func TestIsBluetooth(t *testing.T) {
	for name, want := range map[string]bool{
		"AirPods Pro":                 true,
		"WH-1000XM4 Hands-Free":       true,
		"Built-in Audio Analog Stereo": false,
		"Blue Yeti":                   false,
	} {
		if got := IsBluetooth(name); got != want {
			t.Errorf("IsBluetooth(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestFakeContextFromWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.wav")
	w, err := encoder.CreateWAV(path)
	if err != nil {
		t.Fatal(err)
	}
	w.WritePCM(make([]byte, 3200))
	w.Close()

	ctx, err := NewFakeContext(path, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(ctx.pcm) != 3200 {
		t.Errorf("pcm = %d bytes, want 3200", len(ctx.pcm))
	}
}
