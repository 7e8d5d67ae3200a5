package indicator

import (
	"bytes"
	"errors"
	"slices"
	"testing"
)

type failing struct {
	err    error
	closed bool
}

func (f *failing) SetStatus(Status) error { return f.err }
func (f *failing) Close() error           { f.closed = true; return f.err }

func TestNull(t *testing.T) {
	var ind Indicator = Null{}
	for _, s := range []Status{Listening, Idle, Transcribing, Hallucination, Error, Off} {
		if err := ind.SetStatus(s); err != nil {
			t.Errorf("SetStatus(%s) = %v", s, err)
		}
	}
	if err := ind.Close(); err != nil {
		t.Error(err)
	}
}

func TestMultiUpdatesEveryChild(t *testing.T) {
	boom := errors.New("boom")
	bad := &failing{err: boom}
	rec := NewRecorder(nil)
	m := Multi{bad, rec}

	if err := m.SetStatus(Listening); !errors.Is(err, boom) {
		t.Errorf("SetStatus = %v, want boom", err)
	}
	if got := rec.Statuses(); !slices.Equal(got, []Status{Listening}) {
		t.Errorf("second child saw %v", got)
	}
	m.Close()
	if !bad.closed {
		t.Error("first child not closed")
	}
}

func TestSafeSwallowsFailures(t *testing.T) {
	s := NewSafe(&failing{err: errors.New("usb unplugged")})
	if err := s.SetStatus(Transcribing); err != nil {
		t.Errorf("SetStatus = %v, want nil", err)
	}
	if s.Last() != Transcribing {
		t.Errorf("Last() = %s", s.Last())
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close = %v, want nil", err)
	}
	if err := NewSafe(nil).SetStatus(Idle); err != nil {
		t.Errorf("Safe(nil) = %v", err)
	}
}

func TestRecorderNotifies(t *testing.T) {
	var seen []Status
	r := NewRecorder(func(s Status) { seen = append(seen, s) })
	r.SetStatus(Listening)
	r.SetStatus(Transcribing)
	want := []Status{Listening, Transcribing}
	if !slices.Equal(seen, want) || !slices.Equal(r.Statuses(), want) {
		t.Errorf("seen %v, recorded %v", seen, r.Statuses())
	}
}

type fakeHID struct {
	reports [][]byte
	err     error
	closed  bool
}

func (f *fakeHID) SendFeatureReport(p []byte) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.reports = append(f.reports, append([]byte(nil), p...))
	return len(p), nil
}

func (f *fakeHID) Close() error { f.closed = true; return nil }

func TestBlinkStickColours(t *testing.T) {
	dev := &fakeHID{}
	b := newBlinkStick(dev, 0)
	for _, tt := range []struct {
		s    Status
		want []byte
	}{
		{Listening, []byte{1, 0, 5, 0}},
		{Idle, []byte{1, 0, 0, 6}},
		{Transcribing, []byte{1, 5, 5, 0}},
		{Error, []byte{1, 10, 0, 0}},
		{Off, []byte{1, 0, 0, 0}},
	} {
		if err := b.SetStatus(tt.s); err != nil {
			t.Fatalf("SetStatus(%s): %v", tt.s, err)
		}
		if got := dev.reports[len(dev.reports)-1]; !bytes.Equal(got, tt.want) {
			t.Errorf("%s report = %v, want %v", tt.s, got, tt.want)
		}
	}
	if err := b.SetStatus("rainbow"); err == nil {
		t.Error("unknown status accepted")
	}
}

func TestBlinkStickBrightnessClamps(t *testing.T) {
	dev := &fakeHID{}
	b := newBlinkStick(dev, 200)
	b.SetStatus(Error)
	if got := dev.reports[0]; got[1] != 255 {
		t.Errorf("red = %d, want clamped 255", got[1])
	}
}

func TestBlinkStickClosed(t *testing.T) {
	dev := &fakeHID{}
	b := newBlinkStick(dev, 5)
	if err := b.Close(); err != nil {
		t.Fatal(err)
	}
	if !dev.closed {
		t.Error("device not closed")
	}
	if err := b.SetStatus(Idle); !errors.Is(err, ErrUnavailable) {
		t.Errorf("SetStatus after Close = %v, want ErrUnavailable", err)
	}
	if err := b.Close(); err != nil {
		t.Errorf("second Close = %v", err)
	}
}

type fakePlayer struct {
	played [][]int16
	closed bool
}

func (p *fakePlayer) play(s []int16) error { p.played = append(p.played, s); return nil }
func (p *fakePlayer) close() error         { p.closed = true; return nil }

func TestBeepTones(t *testing.T) {
	p := &fakePlayer{}
	b := newBeep(p)
	for _, s := range []Status{Listening, Transcribing, Idle, Off, Hallucination, Error} {
		b.SetStatus(s)
	}
	if len(p.played) != 4 {
		t.Fatalf("played %d tones, want 4 (no tone for idle/off)", len(p.played))
	}
	if len(p.played[0]) != int(toneRate*0.2) {
		t.Errorf("start tone has %d samples", len(p.played[0]))
	}
	if len(p.played[2]) <= len(p.played[1]) {
		t.Error("error double-beep should be longer than a single tick")
	}
	b.Close()
	if !p.closed {
		t.Error("player not closed")
	}
}

func TestBeepStopToneOnlyAfterListening(t *testing.T) {
	p := &fakePlayer{}
	b := newBeep(p)
	for _, s := range []Status{Listening, Transcribing, Transcribing, Hallucination, Transcribing, Idle} {
		b.SetStatus(s)
	}
	// start, stop, discarded
	if len(p.played) != 3 {
		t.Fatalf("played %d tones, want 3", len(p.played))
	}
}
