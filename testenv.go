package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"pttwhisper/audio"
	"pttwhisper/config"
	"pttwhisper/indicator"
	"pttwhisper/log"
	"pttwhisper/session"
	"pttwhisper/transcriber"
)

// runTestMode drives a session from stdin with a capture device that replays
// cfg.Test instead of the microphone.
func runTestMode(cfg config.Config, tr transcriber.Transcriber) {
	runID, dir := runDir(cfg)
	log.SessionStart(runID, tr.Name(), cfg.Model, cfg.Emitter)

	fakeCtx, err := audio.NewFakeContext(cfg.Test, true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading WAV: %v\n", err)
		os.Exit(1)
	}
	rec, err := audio.NewRecorder(fakeCtx, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating capture: %v\n", err)
		os.Exit(1)
	}

	sink, err := newSink(cfg)
	if err != nil {
		rec.Close()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	sess, err := session.New(context.Background(), session.Deps{
		Recorder:    rec,
		Transcriber: tr,
		Sink:        sink,
		Indicator:   indicator.Null{},
	}, sessionOptions(cfg, dir))
	if err != nil {
		rec.Close()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer sess.Close()

	if err := driveSession(os.Stdin, sess, fakeCtx.LastCapture()); err != nil {
		log.Errorf("test driver: %v", err)
	}
}

// driveSession executes one command per line: KEYDOWN, KEYUP, WAIT (all
// recognitions finished), WAIT_AUDIO_DONE, SLEEP <ms> and QUIT.
func driveSession(r io.Reader, sess *session.Session, capture *audio.FakeCapture) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		cmd := strings.TrimSpace(scanner.Text())
		switch cmd {
		case "":
		case "KEYDOWN":
			sess.Press()
		case "KEYUP":
			sess.Release()
		case "WAIT":
			sess.Wait()
		case "WAIT_AUDIO_DONE":
			if capture == nil {
				break
			}
			if done := capture.AudioDone(); done != nil {
				<-done
			}
		case "QUIT":
			return nil
		default:
			ms, ok := strings.CutPrefix(cmd, "SLEEP ")
			if !ok {
				return fmt.Errorf("unknown command %q", cmd)
			}
			n, err := strconv.Atoi(ms)
			if err != nil {
				return fmt.Errorf("bad SLEEP argument %q", ms)
			}
			time.Sleep(time.Duration(n) * time.Millisecond)
		}
	}
	return scanner.Err()
}
