package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"pttwhisper/transcript"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"GROQ_API_KEY", "OPENAI_API_KEY", "OPENAI_BASE_URL", "PTT_BACKEND", "PTT_MODEL", "PTT_PROMPT", "PTT_PYTHON", "PTT_RECORDINGS"} {
		t.Setenv(k, "")
	}
}

func TestParseDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Parse(nil)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Backend != BackendFasterWhisper {
		t.Errorf("Backend = %q, want %q", cfg.Backend, BackendFasterWhisper)
	}
	if cfg.MinDuration != 0.45 || cfg.MaxCharsPerSecond != 25 || cfg.MinFlaggedLength != 40 {
		t.Errorf("unexpected filter defaults: %+v", cfg)
	}
	if cfg.Workers != 1 {
		t.Errorf("Workers = %d, want 1", cfg.Workers)
	}
}

func TestParseFlags(t *testing.T) {
	clearEnv(t)
	cfg, err := Parse([]string{"-backend", "fake", "-beam", "3", "-temperature", "0.2", "-emit", "console", "-keep"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Backend != BackendFake || cfg.BeamSize != 3 || cfg.Temperature != 0.2 || cfg.Emitter != EmitterConsole || !cfg.KeepRecordings {
		t.Errorf("flags not applied: %+v", cfg)
	}
}

func TestEnvSelectsGroq(t *testing.T) {
	clearEnv(t)
	t.Setenv("GROQ_API_KEY", "gsk_test")
	cfg, err := Parse(nil)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Backend != BackendGroq {
		t.Errorf("Backend = %q, want groq", cfg.Backend)
	}
}

func TestFlagOverridesEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("PTT_BACKEND", "openai")
	cfg, err := Parse([]string{"-backend", "fake"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Backend != BackendFake {
		t.Errorf("Backend = %q, want fake", cfg.Backend)
	}
}

func TestValidate(t *testing.T) {
	for _, tt := range []struct {
		name   string
		mutate func(*Config)
		target error
	}{
		{"unknown backend", func(c *Config) { c.Backend = "vosk" }, ErrUnknownBackend},
		{"unknown emitter", func(c *Config) { c.Emitter = "morse" }, ErrUnknownEmitter},
		{"zero beam", func(c *Config) { c.BeamSize = 0 }, nil},
		{"negative temperature", func(c *Config) { c.Temperature = -1 }, nil},
		{"zero workers", func(c *Config) { c.Workers = 0 }, nil},
		{"zero min duration", func(c *Config) { c.MinDuration = 0 }, nil},
		{"groq without key", func(c *Config) { c.Backend = BackendGroq; c.GroqKey = "" }, nil},
	} {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.target != nil && !errors.Is(err, tt.target) {
				t.Errorf("error %v does not wrap %v", err, tt.target)
			}
		})
	}
	if err := Default().Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestLoadEnvFiles(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.env")
	if err := os.WriteFile(path, []byte("PTT_MODEL=medium.en\nexport PTT_PROMPT=\"Hello, world.\"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PTT_ENV", path)
	t.Setenv("HOME", dir)
	os.Unsetenv("PTT_MODEL")
	os.Unsetenv("PTT_PROMPT")
	t.Cleanup(func() {
		os.Unsetenv("PTT_MODEL")
		os.Unsetenv("PTT_PROMPT")
	})

	LoadEnvFiles()

	if got := os.Getenv("PTT_MODEL"); got != "medium.en" {
		t.Errorf("PTT_MODEL = %q, want medium.en", got)
	}
	if got := os.Getenv("PTT_PROMPT"); got != "Hello, world." {
		t.Errorf("PTT_PROMPT = %q, want %q", got, "Hello, world.")
	}
}

func TestConversions(t *testing.T) {
	clearEnv(t)
	cfg, err := Parse([]string{"-backend", "openai", "-lang", "de", "-prompt", "Hallo.", "-beam", "2", "-threads", "4", "-openai-url", "http://localhost:8080/v1"})
	if err != nil {
		t.Fatal(err)
	}
	opts := cfg.Decoding()
	if opts.Language != "de" || opts.Prompt != "Hallo." || opts.BeamSize != 2 || opts.Threads != 4 {
		t.Errorf("Decoding() = %+v", opts)
	}
	s := cfg.Transcriber()
	if s.Backend != BackendOpenAI || s.OpenAIURL != "http://localhost:8080/v1" {
		t.Errorf("Transcriber() = %+v", s)
	}
	if cfg.Filter() != transcript.DefaultFilter() {
		t.Errorf("Filter() = %+v, want defaults", cfg.Filter())
	}
}
