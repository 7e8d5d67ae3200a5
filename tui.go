package main

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"pttwhisper/audio"
	"pttwhisper/config"
	"pttwhisper/indicator"
	"pttwhisper/session"
	"pttwhisper/transcriber"
)

type statusMsg struct{ Status indicator.Status }
type eventMsg struct{ Event session.Event }
type tickMsg time.Time

type eyeMode int

const (
	eyeIdle eyeMode = iota
	eyeListening
	eyeBusy
	eyeWarn
	eyeModes
)

func modeFor(s indicator.Status) eyeMode {
	switch s {
	case indicator.Listening:
		return eyeListening
	case indicator.Transcribing:
		return eyeBusy
	case indicator.Hallucination, indicator.Error:
		return eyeWarn
	default:
		return eyeIdle
	}
}

type tuiModel struct {
	status         indicator.Status
	frame          int
	recordingSince time.Time
	pending        int
	width, height  int
	header         string // "[faster-whisper | small.en | en]"
	device         string
	key            string
	bluetooth      bool

	accepted  int
	rejected  int
	failed    int
	lastText  string
	lastNote  string    // why the last recording produced no text
	elapsedMs []float64 // recognition latency, in arrival order
}

// Lamp colors per mode, innermost ring first. Index 0 is unlit.
var lampColors = [eyeModes][]string{
	eyeIdle:      {"", "231", "224", "217", "210", "160", "124", "88", "52", "236", "255"},
	eyeListening: {"", "226", "220", "214", "208", "196", "160", "124", "88", "236", "255"},
	eyeBusy:      {"", "159", "123", "87", "51", "39", "33", "27", "21", "236", "255"},
	eyeWarn:      {"", "230", "229", "228", "220", "214", "208", "172", "130", "236", "255"},
}

const (
	lampRings = 9 // color indices 1..9 are rings, 10 is the highlight
	lampGlint = 10
)

// fg[m][i] styles a full or half cell; pair[m][top][bottom] a split cell.
var lampStyles struct {
	fg   [eyeModes][lampGlint + 1]lipgloss.Style
	pair [eyeModes][lampGlint + 1][lampGlint + 1]lipgloss.Style
}

func init() {
	for m, colors := range lampColors {
		for i := 1; i < len(colors); i++ {
			lampStyles.fg[m][i] = lipgloss.NewStyle().Foreground(lipgloss.Color(colors[i]))
			for j := 1; j < len(colors); j++ {
				lampStyles.pair[m][i][j] = lampStyles.fg[m][i].Background(lipgloss.Color(colors[j]))
			}
		}
	}
}

// TUI is the terminal status view. It shows indicator statuses and session
// events, so it is installed both as an indicator and as the session observer.
type TUI struct {
	p        *tea.Program
	done     chan struct{}
	quitOnce sync.Once
}

func NewTUI(header, deviceName, key string) *TUI {
	m := tuiModel{
		status:    indicator.Idle,
		header:    header,
		device:    deviceLine(deviceName),
		key:       key,
		bluetooth: audio.IsBluetooth(deviceName),
	}
	return &TUI{
		p:    tea.NewProgram(m, tea.WithAltScreen()),
		done: make(chan struct{}),
	}
}

// Start runs the program in the background. The returned channel closes
// when the user quits the view.
func (t *TUI) Start() <-chan struct{} {
	go func() {
		defer close(t.done)
		if _, err := t.p.Run(); err != nil {
			fmt.Printf("TUI error: %v\n", err)
		}
	}()
	return t.done
}

func (t *TUI) SetStatus(s indicator.Status) error {
	t.p.Send(statusMsg{Status: s})
	return nil
}

// Close is a no-op; Quit tears the view down after the session has closed.
func (t *TUI) Close() error { return nil }

func (t *TUI) Observe(ev session.Event) {
	t.p.Send(eventMsg{Event: ev})
}

func (t *TUI) Quit() {
	t.quitOnce.Do(func() {
		t.p.Quit()
		<-t.done
	})
}

func headerLine(tr transcriber.Transcriber, cfg config.Config) string {
	parts := []string{tr.Name()}
	if cfg.Model != "" {
		parts = append(parts, cfg.Model)
	}
	lang := cfg.Language
	if lang == "" {
		lang = "auto"
	}
	parts = append(parts, lang)
	return "[" + strings.Join(parts, " | ") + "]"
}

func deviceLine(name string) string {
	if name == "" {
		name = "system default"
	}
	return "mic: " + name
}

func tuiTick() tea.Cmd {
	return tea.Tick(60*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m tuiModel) Init() tea.Cmd {
	return tuiTick()
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		}

	case tickMsg:
		m.frame++
		return m, tuiTick()

	case statusMsg:
		m.status = msg.Status

	case eventMsg:
		m = m.apply(msg.Event)
	}
	return m, nil
}

func (m tuiModel) apply(ev session.Event) tuiModel {
	switch ev.Kind {
	case session.RecordingStarted:
		m.recordingSince = time.Now()
		m.pending = ev.Pending
	case session.RecordingFailed:
		m.lastNote = "microphone: " + ev.Err.Error()
	case session.RecordingStopped:
		m.recordingSince = time.Time{}
		m.pending = ev.Pending
	case session.Recognized:
		if m.pending > 0 {
			m.pending--
		}
		m.elapsedMs = append(m.elapsedMs, float64(ev.Elapsed.Milliseconds()))
		switch {
		case ev.Err != nil:
			m.failed++
			m.lastNote = "recognition failed: " + ev.Err.Error()
		case !ev.Verdict.Accepted:
			m.rejected++
			m.lastNote = fmt.Sprintf("discarded %q (%s)", ev.Text, ev.Verdict.Reason)
		case ev.Verdict.Text != "":
			m.accepted++
			m.lastText = ev.Verdict.Text
			m.lastNote = ""
		}
	}
	return m
}

func (m tuiModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	const eyeWidth = 45
	mode := modeFor(m.status)
	eye := renderLamp(m.frame, mode)

	var infoLines []string
	infoLines = append(infoLines, m.statusLine())

	if m.pending > 0 {
		infoLines = append(infoLines, lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Render(fmt.Sprintf("  %d waiting for recognition", m.pending)))
	}

	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	if m.header != "" {
		infoLines = append(infoLines, lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Render(m.header))
	}
	if m.device != "" {
		line := m.device
		if m.bluetooth {
			line += " (BT!)"
		}
		infoLines = append(infoLines, dim.Render(line))
	}

	if table := renderLatencyTable(m.elapsedMs); table != "" {
		infoLines = append(infoLines, "")
		for _, line := range strings.Split(table, "\n") {
			infoLines = append(infoLines, dim.Render(line))
		}
	}

	infoLines = append(infoLines, "")
	helpStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	boldStyle := helpStyle.Bold(true)
	infoLines = append(infoLines, boldStyle.Render(m.key)+helpStyle.Render(" hold to dictate, q to quit"))
	infoLines = append(infoLines, helpStyle.Render("pttwhisper "+version))

	for _, line := range infoLines {
		eye += line + "\n"
	}
	eyeLines := strings.Split(eye, "\n")

	logWidth := max(m.width-eyeWidth-1, 20)
	wrapWidth := max(logWidth-2, 10)

	var logContent strings.Builder
	logContent.WriteString(lipgloss.NewStyle().
		Foreground(lipgloss.Color("246")).
		Render(fmt.Sprintf("Dictated %d, discarded %d, failed %d", m.accepted, m.rejected, m.failed)) + "\n\n")
	if m.lastText != "" {
		textStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
		for _, line := range wrapText(m.lastText, wrapWidth) {
			logContent.WriteString(textStyle.Render(line) + "\n")
		}
	} else {
		logContent.WriteString(dim.Render("No transcriptions yet") + "\n")
	}
	if m.lastNote != "" {
		noteStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
		logContent.WriteString("\n")
		for _, line := range wrapText(m.lastNote, wrapWidth) {
			logContent.WriteString(noteStyle.Render(line) + "\n")
		}
	}

	logPanel := lipgloss.NewStyle().
		Width(logWidth).
		Height(m.height).
		PaddingLeft(1).
		Render(logContent.String())

	// Pad eye panel to full height (eye at top)
	eyePadded := make([]string, m.height)
	for i := range eyePadded {
		if i < len(eyeLines) {
			eyePadded[i] = eyeLines[i]
		} else {
			eyePadded[i] = strings.Repeat(" ", eyeWidth-1)
		}
	}

	eyePanel := lipgloss.NewStyle().
		Width(eyeWidth - 1).
		Height(m.height).
		Render(strings.Join(eyePadded, "\n"))

	return lipgloss.JoinHorizontal(lipgloss.Top, eyePanel, logPanel)
}

func (m tuiModel) statusLine() string {
	switch m.status {
	case indicator.Listening:
		d := 0.0
		if !m.recordingSince.IsZero() {
			d = time.Since(m.recordingSince).Seconds()
		}
		return lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true).
			Render(fmt.Sprintf("● REC %.1fs", d))
	case indicator.Transcribing:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Render("◐ TRANSCRIBING")
	case indicator.Hallucination:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("208")).Render("⚠ DISCARDED")
	case indicator.Error:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("160")).Render("✕ ERROR")
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Render("○ STANDBY")
	}
}

const (
	lampW = 44
	lampH = 15 // text rows; each holds two pixel rows
)

// pulse is how far the rings swell at frame for mode, in pixels.
func pulse(frame int, mode eyeMode) float64 {
	t := float64(frame)
	switch mode {
	case eyeListening:
		return 1.0 + 1.2*math.Sin(t*0.10)
	case eyeBusy:
		return -0.4 + 0.8*math.Sin(t*0.25)
	case eyeWarn:
		if frame/8%2 == 0 {
			return 0.6
		}
		return -0.6
	default:
		return -0.6 + 0.4*math.Sin(t*0.08)
	}
}

// renderLamp draws concentric rings that pulse with the session status,
// using half-block characters so each cell carries two pixels.
func renderLamp(frame int, mode eyeMode) string {
	var px [lampH * 2][lampW]uint8
	cx, cy := float64(lampW)/2, float64(lampH)
	swell := pulse(frame, mode)

	for y := range px {
		for x := range px[y] {
			d := math.Hypot(float64(x)-cx, float64(y)-cy)
			for ring := 1; ring <= lampRings; ring++ {
				// inner rings react more than the rim
				r := 1.2*float64(ring) + swell*float64(lampRings-ring)/float64(lampRings)
				if d < r {
					px[y][x] = uint8(ring)
					break
				}
			}
		}
	}
	// a small highlight above and left of center
	gx, gy := cx-3, cy-4
	for y := range px {
		for x := range px[y] {
			dx, dy := float64(x)-gx, (float64(y)-gy)*1.5
			if px[y][x] != 0 && dx*dx+dy*dy < 1.5 {
				px[y][x] = lampGlint
			}
		}
	}

	fg, pair := &lampStyles.fg[mode], &lampStyles.pair[mode]
	var b strings.Builder
	for row := 0; row < lampH; row++ {
		for x := 0; x < lampW; x++ {
			top, bot := px[row*2][x], px[row*2+1][x]
			switch {
			case top == 0 && bot == 0:
				b.WriteByte(' ')
			case top == bot:
				b.WriteString(fg[top].Render("█"))
			case bot == 0:
				b.WriteString(fg[top].Render("▀"))
			case top == 0:
				b.WriteString(fg[bot].Render("▄"))
			default:
				b.WriteString(pair[top][bot].Render("▀"))
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// wrapText breaks text on spaces into lines of at most width runes. Words
// longer than width are split.
func wrapText(text string, width int) []string {
	width = max(width, 1)
	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{""}
	}
	var lines []string
	var line []rune
	for _, w := range words {
		word := []rune(w)
		for len(word) > width {
			if len(line) > 0 {
				lines = append(lines, string(line))
				line = line[:0]
			}
			lines = append(lines, string(word[:width]))
			word = word[width:]
		}
		switch {
		case len(line) == 0:
			line = append(line, word...)
		case len(line)+1+len(word) <= width:
			line = append(append(line, ' '), word...)
		default:
			lines = append(lines, string(line))
			line = append(line[:0], word...)
		}
	}
	if len(line) > 0 {
		lines = append(lines, string(line))
	}
	return lines
}

// renderLatencyTable summarises recognition latency, or returns "" before
// the first recognition.
func renderLatencyTable(elapsedMs []float64) string {
	if len(elapsedMs) == 0 {
		return ""
	}
	sorted := append([]float64(nil), elapsedMs...)
	sort.Float64s(sorted)
	s := [5]float64{
		sorted[0],
		percentile(sorted, 0.50),
		percentile(sorted, 0.90),
		percentile(sorted, 0.95),
		sorted[len(sorted)-1],
	}
	return fmt.Sprintf(
		"        %5s %5s %5s %5s %5s\n"+
			"ms      %5.0f %5.0f %5.0f %5.0f %5.0f",
		"min", "p50", "p90", "p95", "max",
		s[0], s[1], s[2], s[3], s[4],
	)
}

func percentile(sorted []float64, p float64) float64 {
	idx := int(float64(len(sorted)-1) * p)
	return sorted[idx]
}
