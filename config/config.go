// Package config collects command-line flags and environment variables into
// a validated Config.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"pttwhisper/transcriber"
	"pttwhisper/transcript"
)

const (
	BackendFasterWhisper = "faster-whisper"
	BackendGroq          = "groq"
	BackendOpenAI        = "openai"
	BackendFake          = "fake"

	EmitterType    = "type"
	EmitterPaste   = "paste"
	EmitterConsole = "console"
)

var (
	backends = []string{BackendFasterWhisper, BackendGroq, BackendOpenAI, BackendFake}
	emitters = []string{EmitterType, EmitterPaste, EmitterConsole}
)

// Config holds every tunable of a dictation run.
type Config struct {
	Backend     string
	Model       string
	Language    string
	Prompt      string
	BeamSize    int
	BestOf      int
	Temperature float64
	Patience    float64
	Threads     int
	Device      string // faster-whisper compute device: auto|cpu|cuda
	Python      string // interpreter for the faster-whisper helper

	GroqKey   string
	OpenAIKey string
	OpenAIURL string

	RecordingsDir  string
	KeepRecordings bool

	Emitter   string
	TypeDelay time.Duration
	LED       bool
	Beeps     bool
	Key       string

	Workers           int
	MinDuration       float64
	MaxCharsPerSecond float64
	MinFlaggedLength  int

	LogPath string
	Verbose bool
	TUI     bool

	// Modes
	File    string
	Test    string
	Doctor  bool
	Version bool
}

func Default() Config {
	return Config{
		Backend:           BackendFasterWhisper,
		Model:             "small.en",
		Language:          "en",
		BeamSize:          5,
		BestOf:            5,
		Temperature:       0,
		Patience:          1,
		Threads:           4,
		Device:            "auto",
		Python:            "python3",
		OpenAIURL:         "https://api.openai.com/v1",
		RecordingsDir:     filepath.Join(os.TempDir(), "pttwhisper"),
		Emitter:           EmitterType,
		TypeDelay:         200 * time.Millisecond,
		LED:               true,
		Beeps:             false,
		Workers:           1,
		MinDuration:       0.45,
		MaxCharsPerSecond: 25,
		MinFlaggedLength:  40,
		TUI:               true,
	}
}

// LoadEnvFiles loads PTT_ENV, ~/.pttwhisper.env and ./.env when present.
// Variables already set in the environment are never overwritten.
func LoadEnvFiles() {
	var paths []string
	if p := strings.TrimSpace(os.Getenv("PTT_ENV")); p != "" {
		paths = append(paths, p)
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".pttwhisper.env"))
	}
	paths = append(paths, ".env")

	for _, p := range paths {
		if fi, err := os.Stat(p); err != nil || fi.IsDir() {
			continue
		}
		_ = godotenv.Load(p)
	}
}

// Parse builds a Config from defaults, environment and args (without the program name).
func Parse(args []string) (Config, error) {
	cfg := Default()
	applyEnv(&cfg)

	fs := flag.NewFlagSet("pttwhisper", flag.ContinueOnError)
	fs.StringVar(&cfg.Backend, "backend", cfg.Backend, "Recognizer: "+strings.Join(backends, ", "))
	fs.StringVar(&cfg.Model, "model", cfg.Model, "Model name or path for the recognizer")
	fs.StringVar(&cfg.Language, "lang", cfg.Language, "Language hint (e.g. en, de). Empty = auto-detect")
	fs.StringVar(&cfg.Prompt, "prompt", cfg.Prompt, "Initial prompt passed to the recognizer")
	fs.IntVar(&cfg.BeamSize, "beam", cfg.BeamSize, "Beam size")
	fs.IntVar(&cfg.BestOf, "bestof", cfg.BestOf, "Candidates when sampling with non-zero temperature")
	fs.Float64Var(&cfg.Temperature, "temperature", cfg.Temperature, "Sampling temperature")
	fs.Float64Var(&cfg.Patience, "patience", cfg.Patience, "Beam search patience factor")
	fs.IntVar(&cfg.Threads, "threads", cfg.Threads, "CPU threads for local inference")
	fs.StringVar(&cfg.Device, "compute", cfg.Device, "faster-whisper device: auto, cpu or cuda")
	fs.StringVar(&cfg.Python, "python", cfg.Python, "Python interpreter running the faster-whisper helper")
	fs.StringVar(&cfg.OpenAIURL, "openai-url", cfg.OpenAIURL, "Base URL of an OpenAI-compatible API (e.g. a LocalAI server)")
	fs.StringVar(&cfg.RecordingsDir, "recordings", cfg.RecordingsDir, "Directory for recording files")
	fs.BoolVar(&cfg.KeepRecordings, "keep", cfg.KeepRecordings, "Keep recording files after recognition")
	fs.StringVar(&cfg.Emitter, "emit", cfg.Emitter, "Text output: "+strings.Join(emitters, ", "))
	fs.DurationVar(&cfg.TypeDelay, "typedelay", cfg.TypeDelay, "Pause before typing so the hotkey is fully released")
	fs.BoolVar(&cfg.LED, "led", cfg.LED, "Show status on a BlinkStick USB LED when one is connected")
	fs.BoolVar(&cfg.Beeps, "beep", cfg.Beeps, "Play start/stop tones")
	fs.StringVar(&cfg.Key, "key", cfg.Key, "Push-to-talk key (linux: numlock, scrolllock, pause, f13-f16, rightctrl)")
	fs.IntVar(&cfg.Workers, "workers", cfg.Workers, "Recognitions allowed to run at the same time")
	fs.Float64Var(&cfg.MinDuration, "minduration", cfg.MinDuration, "Recordings shorter than this many seconds are discarded")
	fs.Float64Var(&cfg.MaxCharsPerSecond, "maxrate", cfg.MaxCharsPerSecond, "Characters per second above which long text is treated as hallucinated")
	fs.IntVar(&cfg.MinFlaggedLength, "minflagged", cfg.MinFlaggedLength, "Text at or below this length is never rate-checked")
	fs.StringVar(&cfg.LogPath, "logpath", cfg.LogPath, "log directory path (default: OS-specific location, use ./ for current dir)")
	fs.BoolVar(&cfg.Verbose, "verbose", cfg.Verbose, "Mirror diagnostics to stderr")
	fs.BoolVar(&cfg.TUI, "tui", cfg.TUI, "Run with terminal UI when attached to a terminal")
	fs.StringVar(&cfg.File, "file", cfg.File, "Transcribe a WAV file, print the text and exit")
	fs.StringVar(&cfg.Test, "test", cfg.Test, "Test mode: replay this WAV file, driven by KEYDOWN/KEYUP lines on stdin")
	fs.BoolVar(&cfg.Doctor, "doctor", cfg.Doctor, "Run system diagnostics and exit")
	fs.BoolVar(&cfg.Version, "version", cfg.Version, "Print version and exit")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.GroqKey = os.Getenv("GROQ_API_KEY")
	cfg.OpenAIKey = os.Getenv("OPENAI_API_KEY")
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		cfg.OpenAIURL = v
	}
	if v := os.Getenv("PTT_BACKEND"); v != "" {
		cfg.Backend = v
	} else if cfg.GroqKey != "" {
		cfg.Backend = BackendGroq
	}
	if v := os.Getenv("PTT_MODEL"); v != "" {
		cfg.Model = v
	}
	if v, ok := os.LookupEnv("PTT_LANG"); ok {
		cfg.Language = v
	}
	if v := os.Getenv("PTT_PROMPT"); v != "" {
		cfg.Prompt = v
	}
	if v := os.Getenv("PTT_PYTHON"); v != "" {
		cfg.Python = v
	}
	if v := os.Getenv("PTT_RECORDINGS"); v != "" {
		cfg.RecordingsDir = v
	}
}

var (
	ErrUnknownBackend = errors.New("unknown backend")
	ErrUnknownEmitter = errors.New("unknown emitter")
)

func (c Config) Validate() error {
	if !contains(backends, c.Backend) {
		return fmt.Errorf("%w %q (use %s)", ErrUnknownBackend, c.Backend, strings.Join(backends, ", "))
	}
	if !contains(emitters, c.Emitter) {
		return fmt.Errorf("%w %q (use %s)", ErrUnknownEmitter, c.Emitter, strings.Join(emitters, ", "))
	}
	switch {
	case c.BeamSize < 1:
		return fmt.Errorf("beam size must be positive, got %d", c.BeamSize)
	case c.BestOf < 1:
		return fmt.Errorf("best-of must be positive, got %d", c.BestOf)
	case c.Temperature < 0:
		return fmt.Errorf("temperature must not be negative, got %g", c.Temperature)
	case c.Patience < 0:
		return fmt.Errorf("patience must not be negative, got %g", c.Patience)
	case c.Workers < 1:
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	case c.MinDuration <= 0:
		return fmt.Errorf("minimum duration must be positive, got %g", c.MinDuration)
	case c.MaxCharsPerSecond <= 0:
		return fmt.Errorf("maximum rate must be positive, got %g", c.MaxCharsPerSecond)
	}
	if c.Backend == BackendGroq && c.GroqKey == "" {
		return errors.New("groq backend needs GROQ_API_KEY")
	}
	return nil
}

func (c Config) Transcriber() transcriber.Settings {
	return transcriber.Settings{
		Backend:   c.Backend,
		Model:     c.Model,
		Device:    c.Device,
		Python:    c.Python,
		GroqKey:   c.GroqKey,
		OpenAIKey: c.OpenAIKey,
		OpenAIURL: c.OpenAIURL,
	}
}

// Decoding options are forwarded to the backend unchanged.
func (c Config) Decoding() transcriber.Options {
	return transcriber.Options{
		Language:    c.Language,
		Prompt:      c.Prompt,
		BeamSize:    c.BeamSize,
		BestOf:      c.BestOf,
		Temperature: c.Temperature,
		Patience:    c.Patience,
		Threads:     c.Threads,
	}
}

func (c Config) Filter() transcript.Filter {
	return transcript.Filter{
		MinDuration:       c.MinDuration,
		MaxCharsPerSecond: c.MaxCharsPerSecond,
		MinFlaggedLength:  c.MinFlaggedLength,
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
