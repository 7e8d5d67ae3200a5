// Package doctor checks that the machine can run a dictation session.
package doctor

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"pttwhisper/audio"
	"pttwhisper/config"
	"pttwhisper/encoder"
	"pttwhisper/hotkey"
	"pttwhisper/keyboard"
	"pttwhisper/log"
	"pttwhisper/shutdown"
	"pttwhisper/transcriber"
	"pttwhisper/transcript"
)

type check struct {
	name string
	run  func(w io.Writer, cfg config.Config) bool
}

var checks = []check{
	{"Log directory", checkLogDir},
	{"Microphone", checkAudio},
	{"Hotkey access", checkHotkey},
	{"Text output", checkOutput},
	{"Recognition backend", checkBackend},
}

// Run executes every check and returns an exit code (0=all pass, 1=any fail).
// With -file set, the backend check transcribes that file end to end.
func Run(cfg config.Config) int {
	setupInterruptHandler()

	fmt.Println("pttwhisper doctor - system diagnostics")
	fmt.Println("======================================")
	if runChecks(os.Stdout, cfg, checks) {
		return 0
	}
	return 1
}

func runChecks(w io.Writer, cfg config.Config, list []check) bool {
	allPass := true
	for i, c := range list {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "[%d/%d] %s\n", i+1, len(list), c.name)
		if !c.run(w, cfg) {
			allPass = false
		}
	}

	fmt.Fprintln(w)
	if allPass {
		fmt.Fprintln(w, "All checks passed!")
	} else {
		fmt.Fprintln(w, "Some checks failed. See details above.")
	}
	return allPass
}

func setupInterruptHandler() {
	sigChan := make(chan os.Signal, 1)
	shutdown.Notify(sigChan)
	go func() {
		<-sigChan
		println("\nInterrupted")
		os.Exit(1)
	}()
}

func checkLogDir(w io.Writer, _ config.Config) bool {
	if err := log.EnsureDir(); err != nil {
		fmt.Fprintf(w, "  FAIL: %v\n", err)
		return false
	}
	probe, err := os.CreateTemp(log.Dir(), ".doctor-*")
	if err != nil {
		fmt.Fprintf(w, "  FAIL: %s is not writable: %v\n", log.Dir(), err)
		return false
	}
	probe.Close()
	os.Remove(probe.Name())
	fmt.Fprintf(w, "  PASS: %s\n", log.Dir())
	return true
}

func checkAudio(w io.Writer, _ config.Config) bool {
	ctx, err := audio.NewContext()
	if err != nil {
		fmt.Fprintf(w, "  FAIL: cannot connect to audio: %v\n", err)
		return false
	}
	defer ctx.Close()

	devices, err := ctx.Devices()
	if err != nil {
		fmt.Fprintf(w, "  FAIL: cannot list devices: %v\n", err)
		return false
	}
	if len(devices) == 0 {
		fmt.Fprintln(w, "  FAIL: no capture devices found")
		return false
	}
	for _, d := range devices {
		suffix := ""
		if audio.IsBluetooth(d.Name) {
			suffix = " (bluetooth: narrowband, expect worse recognition)"
		}
		fmt.Fprintf(w, "  - %s%s\n", d.Name, suffix)
	}

	rec, err := audio.NewRecorder(ctx, nil)
	if err != nil {
		fmt.Fprintf(w, "  FAIL: cannot open default device: %v\n", err)
		return false
	}
	defer rec.Close()
	fmt.Fprintf(w, "  PASS: recording from %s\n", rec.DeviceName())
	return true
}

func checkHotkey(w io.Writer, cfg config.Config) bool {
	if _, err := hotkey.New(cfg.Key); err != nil {
		fmt.Fprintf(w, "  FAIL: %v\n", err)
		return false
	}
	msg, err := hotkey.Diagnose()
	if err != nil {
		fmt.Fprintf(w, "  FAIL: %v\n", err)
		return false
	}
	fmt.Fprintf(w, "  PASS: %s\n", msg)
	return true
}

func checkOutput(w io.Writer, cfg config.Config) bool {
	switch cfg.Emitter {
	case config.EmitterConsole:
		fmt.Fprintln(w, "  PASS: console output needs nothing")
		return true
	case config.EmitterPaste:
		if !keyboard.ClipboardAvailable() {
			fmt.Fprintln(w, "  FAIL: no clipboard utility found (install xclip, xsel or wl-clipboard)")
			return false
		}
	}
	if err := keyboard.Init(); err != nil {
		fmt.Fprintf(w, "  FAIL: %v\n", err)
		fmt.Fprintln(w, "  Fix with: sudo chmod 660 /dev/uinput && sudo chgrp input /dev/uinput")
		return false
	}
	msg, err := keyboard.Verify()
	if err != nil {
		fmt.Fprintf(w, "  FAIL: %v\n", err)
		return false
	}
	if !keyboard.ClipboardAvailable() {
		fmt.Fprintln(w, "  note: no clipboard, symbols without a key cannot be pasted")
	}
	fmt.Fprintf(w, "  PASS: %s\n", msg)
	return true
}

func checkBackend(w io.Writer, cfg config.Config) bool {
	if cfg.Backend == config.BackendFasterWhisper {
		python, err := exec.LookPath(cfg.Python)
		if err != nil {
			fmt.Fprintf(w, "  FAIL: %s not found: %v\n", cfg.Python, err)
			return false
		}
		out, err := exec.Command(python, "-c", "import faster_whisper").CombinedOutput()
		if err != nil {
			fmt.Fprintf(w, "  FAIL: faster_whisper is not importable: %s\n", strings.TrimSpace(string(out)))
			fmt.Fprintln(w, "  Fix with: pip install faster-whisper")
			return false
		}
	}

	tr, err := transcriber.New(cfg.Transcriber())
	if err != nil {
		fmt.Fprintf(w, "  FAIL: %v\n", err)
		return false
	}
	if c, ok := tr.(interface{ Close() }); ok {
		defer c.Close()
	}
	if cfg.File == "" {
		fmt.Fprintf(w, "  PASS: %s configured (pass -file to test a recording)\n", tr.Name())
		return true
	}

	d, err := encoder.WAVDuration(cfg.File)
	if err != nil {
		fmt.Fprintf(w, "  FAIL: %v\n", err)
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	start := time.Now()
	segs, err := tr.Transcribe(ctx, cfg.File, cfg.Decoding())
	if err != nil {
		fmt.Fprintf(w, "  FAIL: %v\n", err)
		return false
	}
	text := transcript.Assemble(segs)
	v := cfg.Filter().Check(transcript.Transcript{Text: text, Duration: d.Seconds()})
	fmt.Fprintf(w, "  Transcribed %.1fs of audio in %dms: %q\n", d.Seconds(), time.Since(start).Milliseconds(), text)
	if !v.Accepted {
		fmt.Fprintf(w, "  FAIL: transcript would be discarded (%s)\n", v.Reason)
		return false
	}
	fmt.Fprintf(w, "  PASS: %s\n", tr.Name())
	return true
}
