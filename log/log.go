package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	diagLog        zerolog.Logger
	diagFile       *os.File
	transcribeFile *os.File
	logMu          sync.Mutex
	logReady       bool
	pid            int
	dir            string
)

const envLogPath = "PTT_LOG_PATH"

// Recognition describes one finished recognition task.
type Recognition struct {
	ID        int
	Backend   string
	Segments  int
	Chars     int
	DurationS float64
	ElapsedMs float64
	Accepted  bool
}

func ResolveDir(flagPath string) (string, error) {
	// Priority 1: -logpath flag
	if flagPath != "" {
		return absolute(flagPath)
	}

	// Priority 2: PTT_LOG_PATH environment variable
	if envPath := os.Getenv(envLogPath); envPath != "" {
		return absolute(envPath)
	}

	// Priority 3: Default OS-specific location
	return getDefaultDir()
}

func absolute(p string) (string, error) {
	if filepath.IsAbs(p) {
		return p, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, p), nil
}

func SetDir(d string) {
	dir = d
}

func Dir() string {
	return dir
}

func EnsureDir() error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	return nil
}

// Init opens the log files in Dir. When console is non-nil, diagnostics are
// mirrored to it as well.
func Init(console io.Writer) error {
	logMu.Lock()
	defer logMu.Unlock()

	if err := EnsureDir(); err != nil {
		return err
	}

	pid = os.Getpid()

	var err error

	diagPath := filepath.Join(dir, "diagnostics_log.txt")
	diagFile, err = os.OpenFile(diagPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	transcribePath := filepath.Join(dir, "transcribe_log.txt")
	transcribeFile, err = os.OpenFile(transcribePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		diagFile.Close()
		return err
	}

	var out io.Writer = zerolog.ConsoleWriter{
		Out:        diagFile,
		TimeFormat: "2006-01-02 15:04:05",
		NoColor:    true,
	}
	if console != nil {
		out = zerolog.MultiLevelWriter(out, zerolog.ConsoleWriter{
			Out:        console,
			TimeFormat: "15:04:05",
		})
	}
	diagLog = zerolog.New(out).With().Timestamp().Int("pid", pid).Logger()

	logReady = true
	return nil
}

func Close() {
	logMu.Lock()
	defer logMu.Unlock()
	if diagFile != nil {
		diagFile.Close()
		diagFile = nil
	}
	if transcribeFile != nil {
		transcribeFile.Close()
		transcribeFile = nil
	}
	logReady = false
}

func ready() bool {
	logMu.Lock()
	defer logMu.Unlock()
	return logReady
}

func Info(msg string) {
	if ready() {
		diagLog.Info().Msg(msg)
	}
}

func Infof(format string, args ...any) {
	if ready() {
		diagLog.Info().Msg(fmt.Sprintf(format, args...))
	}
}

func Error(msg string) {
	if ready() {
		diagLog.Error().Msg(msg)
	}
}

func Errorf(format string, args ...any) {
	if ready() {
		diagLog.Error().Msg(fmt.Sprintf(format, args...))
	}
}

func Warn(msg string) {
	if ready() {
		diagLog.Warn().Msg(msg)
	}
}

func Warnf(format string, args ...any) {
	if ready() {
		diagLog.Warn().Msg(fmt.Sprintf(format, args...))
	}
}

func SessionStart(runID, backend, model, emitter string) {
	if !ready() {
		return
	}
	diagLog.Info().
		Str("run", runID).
		Str("backend", backend).
		Str("model", model).
		Str("emitter", emitter).
		Msg("session_start")
}

func SessionEnd(count int) {
	if !ready() {
		return
	}
	diagLog.Info().
		Int("count", count).
		Msg("session_end")
}

func RecordingStart(id int, path string) {
	if !ready() {
		return
	}
	diagLog.Info().Int("id", id).Str("path", path).Msg("recording_start")
}

func RecordingStop(id int, durationS float64, pending int) {
	if !ready() {
		return
	}
	diagLog.Info().
		Int("id", id).
		Float64("duration_s", durationS).
		Int("pending", pending).
		Msg("recording_stop")
}

func RecognitionDone(r Recognition) {
	if !ready() {
		return
	}
	diagLog.Info().
		Int("id", r.ID).
		Str("backend", r.Backend).
		Int("segments", r.Segments).
		Int("chars", r.Chars).
		Float64("duration_s", r.DurationS).
		Float64("elapsed_ms", r.ElapsedMs).
		Bool("accepted", r.Accepted).
		Msg("recognition")
}

func Hallucination(id int, reason string, rate float64) {
	if !ready() {
		return
	}
	diagLog.Warn().
		Int("id", id).
		Str("reason", reason).
		Float64("chars_per_s", rate).
		Msg("hallucination")
}

func EmitFailure(symbol rune, err error) {
	if !ready() {
		return
	}
	diagLog.Warn().Str("symbol", string(symbol)).Err(err).Msg("emit_failure")
}

func IndicatorFailure(status string, err error) {
	if !ready() {
		return
	}
	diagLog.Warn().Str("status", status).Err(err).Msg("indicator_failure")
}

func TranscriptionText(text string) {
	logMu.Lock()
	defer logMu.Unlock()
	if !logReady {
		return
	}
	line := fmt.Sprintf("%s\t[%d]\t%s\n", time.Now().Format("2006-01-02 15:04:05"), pid, text)
	transcribeFile.WriteString(line)
}
