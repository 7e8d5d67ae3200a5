package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"golang.org/x/term"

	"pttwhisper/audio"
	"pttwhisper/config"
	"pttwhisper/doctor"
	"pttwhisper/encoder"
	"pttwhisper/hotkey"
	"pttwhisper/indicator"
	"pttwhisper/keyboard"
	"pttwhisper/log"
	"pttwhisper/session"
	"pttwhisper/shutdown"
	"pttwhisper/transcriber"
	"pttwhisper/transcript"
)

var version = "dev"

const blinkStickBrightness = 5

func run() {
	config.LoadEnvFiles()
	cfg, err := config.Parse(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	if cfg.Version {
		fmt.Printf("pttwhisper %s\n", version)
		os.Exit(0)
	}

	// Resolve log directory early
	logPath, err := log.ResolveDir(cfg.LogPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to resolve log directory: %v\n", err)
		os.Exit(1)
	}
	log.SetDir(logPath)
	if err := log.EnsureDir(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not create log directory: %v\n", err)
	}
	initCrashLog()

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	if cfg.Doctor {
		os.Exit(doctor.Run(cfg))
	}

	useTUI := cfg.TUI && cfg.File == "" && cfg.Test == "" &&
		cfg.Emitter != config.EmitterConsole && term.IsTerminal(int(os.Stdout.Fd()))

	var console io.Writer
	if cfg.Verbose && !useTUI {
		console = os.Stderr
	}
	if err := log.Init(console); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}
	defer log.Close()

	tr, err := transcriber.New(cfg.Transcriber())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer closeTranscriber(tr)

	switch {
	case cfg.File != "":
		code := transcribeFile(os.Stdout, cfg, tr)
		closeTranscriber(tr)
		log.Close()
		os.Exit(code)
	case cfg.Test != "":
		runTestMode(cfg, tr)
	default:
		runDictation(cfg, tr, useTUI)
	}
}

func initCrashLog() {
	crashPath := filepath.Join(log.Dir(), "crash_log.txt")
	crashFile, err := os.OpenFile(crashPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return
	}
	fmt.Fprintf(crashFile, "\n=== Session %s [pid=%d] ===\n", time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
	debug.SetCrashOutput(crashFile, debug.CrashOptions{})
}

func closeTranscriber(tr transcriber.Transcriber) {
	if c, ok := tr.(interface{ Close() }); ok {
		c.Close()
	}
}

// runDir is the per-run directory recordings are written to.
func runDir(cfg config.Config) (id, dir string) {
	id = uuid.NewString()
	return id, filepath.Join(cfg.RecordingsDir, id)
}

func sessionOptions(cfg config.Config, dir string) session.Options {
	return session.Options{
		Dir:        dir,
		Keep:       cfg.KeepRecordings,
		Workers:    cfg.Workers,
		Transcribe: cfg.Decoding(),
		Filter:     cfg.Filter(),
	}
}

func newSink(cfg config.Config) (keyboard.Sink, error) {
	var clip keyboard.Clipboard
	if keyboard.ClipboardAvailable() {
		clip = keyboard.SystemClipboard{}
	}
	switch cfg.Emitter {
	case config.EmitterConsole:
		return keyboard.NewConsole(os.Stdout), nil
	case config.EmitterPaste:
		if clip == nil {
			return nil, errors.New("no clipboard available for -emit paste")
		}
		if err := keyboard.Init(); err != nil {
			log.Warnf("paste chord unavailable: %v", err)
		}
		return keyboard.NewPaster(clip), nil
	default:
		tap, err := keyboard.NewTapper()
		if err != nil {
			return nil, fmt.Errorf("keyboard output: %w", err)
		}
		return keyboard.NewTyper(tap, clip, cfg.TypeDelay), nil
	}
}

// newIndicator picks the status outputs once at startup. A missing LED is
// not an error.
func newIndicator(cfg config.Config, extra ...indicator.Indicator) indicator.Indicator {
	var outs indicator.Multi
	if cfg.LED {
		led, err := indicator.OpenBlinkStick(blinkStickBrightness)
		if err != nil {
			log.Infof("no status LED: %v", err)
		} else {
			outs = append(outs, led)
		}
	}
	if cfg.Beeps {
		b, err := indicator.NewBeep()
		if err != nil {
			log.Warnf("beeps disabled: %v", err)
		} else {
			outs = append(outs, b)
		}
	}
	outs = append(outs, extra...)
	switch len(outs) {
	case 0:
		return indicator.Null{}
	case 1:
		return outs[0]
	}
	return outs
}

func runDictation(cfg config.Config, tr transcriber.Transcriber, useTUI bool) {
	runID, dir := runDir(cfg)
	log.SessionStart(runID, tr.Name(), cfg.Model, cfg.Emitter)

	ctx, err := audio.NewContext()
	if err != nil {
		log.Errorf("audio context init error: %v", err)
		fmt.Fprintf(os.Stderr, "Error initializing audio context: %v\n", err)
		os.Exit(1)
	}
	defer ctx.Close()

	rec, err := audio.NewRecorder(ctx, nil)
	if err != nil {
		log.Errorf("capture device init error: %v", err)
		fmt.Fprintf(os.Stderr, "Error initializing capture device: %v\n", err)
		os.Exit(1)
	}
	deviceName := rec.DeviceName()
	log.Info("recording_device: " + deviceName)
	if audio.IsBluetooth(deviceName) {
		log.Warn("bluetooth microphone: expect narrowband audio")
	}

	sink, err := newSink(cfg)
	if err != nil {
		rec.Close()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		fmt.Fprintln(os.Stderr, "Fix with: sudo chmod 660 /dev/uinput && sudo chgrp input /dev/uinput, or use -emit paste")
		os.Exit(1)
	}

	hk, err := hotkey.New(cfg.Key)
	if err != nil {
		rec.Close()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := hk.Register(); err != nil {
		rec.Close()
		log.Errorf("hotkey register error: %v", err)
		fmt.Fprintf(os.Stderr, "Error registering hotkey: %v\n", err)
		os.Exit(1)
	}
	defer hk.Unregister()

	var ui *TUI
	var uiDone <-chan struct{}
	var extra []indicator.Indicator
	var observer session.Observer
	if useTUI {
		ui = NewTUI(headerLine(tr, cfg), deviceName, hk.String())
		uiDone = ui.Start()
		extra = append(extra, ui)
		observer = ui.Observe
	}

	sess, err := session.New(context.Background(), session.Deps{
		Recorder:    rec,
		Transcriber: tr,
		Sink:        sink,
		Indicator:   newIndicator(cfg, extra...),
		Observer:    observer,
	}, sessionOptions(cfg, dir))
	if err != nil {
		rec.Close()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	quit := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	shutdown.Notify(sigChan)
	if ui == nil {
		fmt.Printf("pttwhisper %s: hold %s to dictate, Ctrl+C to quit\n", version, hk.String())
	}
	go func() {
		select {
		case <-sigChan:
		case <-uiDone:
		}
		close(quit)
	}()

	listen(hk, sess, quit)
	shutdown.Stop(sigChan)

	log.Info("shutting down")
	sess.Close()
	if ui != nil {
		ui.Quit()
	}
}

// listen feeds hotkey edges to the session until quit closes. Edges
// alternate, so after a press only the release is waited for.
func listen(hk hotkey.Hotkey, sess *session.Session, quit <-chan struct{}) {
	for {
		select {
		case <-hk.Keydown():
			sess.Press()
		case <-quit:
			return
		}
		select {
		case <-hk.Keyup():
			sess.Release()
		case <-quit:
			return
		}
	}
}

// transcribeFile runs one WAV file through recognition and the hallucination
// filter and prints the accepted text.
func transcribeFile(w io.Writer, cfg config.Config, tr transcriber.Transcriber) int {
	d, err := encoder.WAVDuration(cfg.File)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	start := time.Now()
	segs, err := tr.Transcribe(context.Background(), cfg.File, cfg.Decoding())
	if err != nil {
		log.Errorf("%s: %v", cfg.File, err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	text := transcript.Assemble(segs)
	v := cfg.Filter().Check(transcript.Transcript{Text: text, Duration: d.Seconds()})
	log.RecognitionDone(log.Recognition{
		Backend:   tr.Name(),
		Segments:  len(segs),
		Chars:     len([]rune(text)),
		DurationS: d.Seconds(),
		ElapsedMs: float64(time.Since(start).Milliseconds()),
		Accepted:  v.Accepted,
	})
	if !v.Accepted {
		fmt.Fprintf(os.Stderr, "rejected (%s): %q\n", v.Reason, text)
		return 1
	}
	log.TranscriptionText(v.Text)
	fmt.Fprintln(w, v.Text)
	return 0
}
