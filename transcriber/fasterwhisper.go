package transcriber

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

//go:embed assets/faster_whisper.py
var fwScript []byte

// FasterWhisper runs local inference through a small Python helper that
// prints segments as JSON.
type FasterWhisper struct {
	python string
	model  string
	device string // auto|cpu|cuda

	once       sync.Once
	scriptPath string
	scriptErr  error
}

func NewFasterWhisper(python, model, device string) *FasterWhisper {
	if python == "" {
		python = "python3"
	}
	if device == "" {
		device = "auto"
	}
	return &FasterWhisper{python: python, model: model, device: device}
}

func (f *FasterWhisper) Name() string { return "faster-whisper" }

type fwOut struct {
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
	Segments []struct {
		Start        float64 `json:"start"`
		End          float64 `json:"end"`
		Text         string  `json:"text"`
		NoSpeechProb float64 `json:"no_speech_prob"`
	} `json:"segments"`
}

func (f *FasterWhisper) script() (string, error) {
	f.once.Do(func() {
		tmp, err := os.CreateTemp("", "pttwhisper_faster_whisper_*.py")
		if err != nil {
			f.scriptErr = fmt.Errorf("write helper script: %w", err)
			return
		}
		_, err = tmp.Write(fwScript)
		if cerr := tmp.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			os.Remove(tmp.Name())
			f.scriptErr = fmt.Errorf("write helper script: %w", err)
			return
		}
		f.scriptPath = tmp.Name()
	})
	return f.scriptPath, f.scriptErr
}

func (f *FasterWhisper) args(script, path string, opts Options) []string {
	args := []string{script,
		"--audio", path,
		"--model", f.model,
		"--device", f.device,
	}
	if opts.Language != "" {
		args = append(args, "--language", opts.Language)
	}
	if opts.Prompt != "" {
		args = append(args, "--prompt", opts.Prompt)
	}
	if opts.BeamSize > 0 {
		args = append(args, "--beam-size", strconv.Itoa(opts.BeamSize))
	}
	if opts.BestOf > 0 {
		args = append(args, "--best-of", strconv.Itoa(opts.BestOf))
	}
	if opts.Threads > 0 {
		args = append(args, "--threads", strconv.Itoa(opts.Threads))
	}
	args = append(args,
		"--temperature", strconv.FormatFloat(opts.Temperature, 'f', -1, 64),
		"--patience", strconv.FormatFloat(opts.Patience, 'f', -1, 64),
	)
	return args
}

func (f *FasterWhisper) Transcribe(ctx context.Context, path string, opts Options) ([]Segment, error) {
	script, err := f.script()
	if err != nil {
		return nil, recognitionError(f.Name(), err)
	}
	if _, err := os.Stat(path); err != nil {
		return nil, recognitionError(f.Name(), err)
	}

	cmd := exec.CommandContext(ctx, f.python, f.args(script, path, opts)...)
	cmd.Env = os.Environ()
	cmd.Dir = filepath.Dir(path)
	out, err := cmd.Output()
	if err != nil {
		var ee *exec.ExitError
		if errors.As(err, &ee) {
			return nil, recognitionError(f.Name(), fmt.Errorf("helper exited: %s", strings.TrimSpace(string(ee.Stderr))))
		}
		return nil, recognitionError(f.Name(), fmt.Errorf("run helper: %w", err))
	}
	return parseHelperOutput(out)
}

func parseHelperOutput(out []byte) ([]Segment, error) {
	var parsed fwOut
	if err := json.Unmarshal(out, &parsed); err != nil {
		return nil, recognitionError("faster-whisper", fmt.Errorf("parse helper output: %w", err))
	}
	segs := make([]Segment, 0, len(parsed.Segments))
	for _, s := range parsed.Segments {
		segs = append(segs, Segment{Text: s.Text, Start: s.Start, End: s.End, NoSpeechProb: s.NoSpeechProb})
	}
	return numbered(segs), nil
}

// Close removes the extracted helper script.
func (f *FasterWhisper) Close() {
	if f.scriptPath != "" {
		os.Remove(f.scriptPath)
	}
}
