//go:build integration

package test_test

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

var testBinary string

func TestMain(m *testing.M) {
	testBinary = os.Getenv("PTT_TEST_BIN")
	if testBinary == "" {
		fmt.Fprintln(os.Stderr, "PTT_TEST_BIN not set; build pttwhisper and point PTT_TEST_BIN at it")
		os.Exit(1)
	}
	os.Exit(m.Run())
}

// writeToneWAV writes a 440 Hz tone so the recording has a real duration.
func writeToneWAV(t *testing.T, durationS float64) string {
	t.Helper()
	const headerSize = 44
	const sampleRate = 16000
	numSamples := int(sampleRate * durationS)
	dataSize := numSamples * 2

	buf := make([]byte, headerSize+dataSize)
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(headerSize-8+dataSize))
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(buf[22:24], 1) // mono
	binary.LittleEndian.PutUint32(buf[24:28], sampleRate)
	binary.LittleEndian.PutUint32(buf[28:32], sampleRate*2)
	binary.LittleEndian.PutUint16(buf[32:34], 2)  // block align
	binary.LittleEndian.PutUint16(buf[34:36], 16) // bits per sample
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataSize))
	for i := 0; i < numSamples; i++ {
		v := int16(8000 * math.Sin(2*math.Pi*440*float64(i)/sampleRate))
		binary.LittleEndian.PutUint16(buf[headerSize+2*i:], uint16(v))
	}

	path := filepath.Join(t.TempDir(), "tone.wav")
	if err := os.WriteFile(path, buf, 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func cmds(parts ...string) string {
	return strings.Join(parts, "\n") + "\n"
}

type result struct {
	logDir string
	stdout string
}

func runPTT(t *testing.T, stdin string, args ...string) result {
	t.Helper()
	logDir := t.TempDir()
	cmdArgs := append([]string{"-logpath", logDir, "-recordings", t.TempDir(), "-emit", "console", "-led=false"}, args...)

	cmd := exec.Command(testBinary, cmdArgs...)
	cmd.Stdin = strings.NewReader(stdin)
	cmd.Env = os.Environ()

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		t.Fatalf("pttwhisper exited with error: %v\nstderr: %s", err, stderr.String())
	}
	return result{logDir: logDir, stdout: stdout.String()}
}

func readLog(t *testing.T, logDir, filename string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(logDir, filename))
	if err != nil {
		if os.IsNotExist(err) {
			return ""
		}
		t.Fatalf("failed to read %s: %v", filename, err)
	}
	return string(data)
}

func requireTranscription(t *testing.T, logDir string) string {
	t.Helper()
	text := readLog(t, logDir, "transcribe_log.txt")
	if strings.TrimSpace(text) == "" {
		t.Fatal("transcribe_log.txt is empty, expected transcribed words")
	}
	return text
}

func requireGroqKey(t *testing.T) {
	t.Helper()
	if os.Getenv("GROQ_API_KEY") == "" {
		t.Skip("GROQ_API_KEY not set")
	}
}

func TestFakeBackendDictation(t *testing.T) {
	wav := writeToneWAV(t, 1.0)
	r := runPTT(t, cmds("KEYDOWN", "WAIT_AUDIO_DONE", "KEYUP", "WAIT", "QUIT"), "-backend", "fake", "-test", wav)
	if strings.TrimSpace(r.stdout) != "Hello world" {
		t.Errorf("stdout = %q", r.stdout)
	}
	text := requireTranscription(t, r.logDir)
	if !strings.Contains(text, "Hello world") {
		t.Errorf("transcribe log = %q", text)
	}
	diag := readLog(t, r.logDir, "diagnostics_log.txt")
	for _, ev := range []string{"session_start", "recording_start", "recording_stop", "recognition", "session_end"} {
		if !strings.Contains(diag, ev) {
			t.Errorf("diagnostics missing %s", ev)
		}
	}
}

func TestOverlappingRecordings(t *testing.T) {
	wav := writeToneWAV(t, 1.0)
	r := runPTT(t, cmds(
		"KEYDOWN", "WAIT_AUDIO_DONE", "KEYUP",
		"KEYDOWN", "WAIT_AUDIO_DONE", "KEYUP",
		"WAIT", "QUIT",
	), "-backend", "fake", "-test", wav)
	if n := strings.Count(r.stdout, "Hello world"); n != 2 {
		t.Errorf("emitted %d transcripts, want 2\n%s", n, r.stdout)
	}
}

func TestShortPressIsDiscarded(t *testing.T) {
	wav := writeToneWAV(t, 1.0)
	r := runPTT(t, cmds("KEYDOWN", "SLEEP 100", "KEYUP", "WAIT", "QUIT"), "-backend", "fake", "-test", wav)
	if strings.TrimSpace(r.stdout) != "" {
		t.Errorf("short recording emitted %q", r.stdout)
	}
	if diag := readLog(t, r.logDir, "diagnostics_log.txt"); !strings.Contains(diag, "hallucination") {
		t.Error("expected a hallucination entry in diagnostics")
	}
}

func TestFileMode(t *testing.T) {
	wav := writeToneWAV(t, 1.0)
	r := runPTT(t, "", "-backend", "fake", "-file", wav)
	if strings.TrimSpace(r.stdout) != "Hello world" {
		t.Errorf("stdout = %q", r.stdout)
	}
}

func TestGroqWords(t *testing.T) {
	requireGroqKey(t)
	wav := writeToneWAV(t, 1.5)
	r := runPTT(t, cmds("KEYDOWN", "WAIT_AUDIO_DONE", "KEYUP", "WAIT", "QUIT"), "-backend", "groq", "-test", wav)
	_ = readLog(t, r.logDir, "diagnostics_log.txt")
}
