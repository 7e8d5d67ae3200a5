//go:build linux

package hotkey

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

const (
	evKey      = 1
	keyRelease = 0
	keyPress   = 1
	keyRepeat  = 2
	keyLCtrl   = 29
	keyRCtrl   = 97
	keyLShift  = 42
	keyRShift  = 54
	keySpace   = 57
)

const inputEventSize = 24

const DefaultKey = "numlock"

// Single keys addressable by name, as evdev codes.
var keyCodes = map[string]uint16{
	"numlock":    69,
	"scrolllock": 70,
	"pause":      119,
	"f13":        183,
	"f14":        184,
	"f15":        185,
	"f16":        186,
	"rightctrl":  keyRCtrl,
}

const comboName = "ctrl+shift+space"

func KeyNames() []string {
	names := make([]string, 0, len(keyCodes)+1)
	for n := range keyCodes {
		names = append(names, n)
	}
	sort.Strings(names)
	return append(names, comboName)
}

type inputEvent struct {
	typ   uint16
	code  uint16
	value int32
}

func decodeEvents(buf []byte) []inputEvent {
	var evs []inputEvent
	for i := 0; i+inputEventSize <= len(buf); i += inputEventSize {
		evs = append(evs, inputEvent{
			typ:   binary.LittleEndian.Uint16(buf[i+16:]),
			code:  binary.LittleEndian.Uint16(buf[i+18:]),
			value: int32(binary.LittleEndian.Uint32(buf[i+20:])),
		})
	}
	return evs
}

// matcher tracks one device's key state and reports push-to-talk edges.
type matcher struct {
	single    uint16 // 0 means the ctrl+shift+space combo
	ctrlHeld  bool
	shiftHeld bool
	l         latch
}

const (
	edgeNone = iota
	edgeDown
	edgeUp
)

func (m *matcher) feed(ev inputEvent) int {
	if ev.typ != evKey || ev.value == keyRepeat {
		return edgeNone
	}
	pressed := ev.value == keyPress
	released := ev.value == keyRelease

	if m.single != 0 {
		if ev.code != m.single {
			return edgeNone
		}
		if pressed && m.l.press() {
			return edgeDown
		}
		if released && m.l.release() {
			return edgeUp
		}
		return edgeNone
	}

	switch ev.code {
	case keyLCtrl, keyRCtrl:
		m.ctrlHeld = pressed || (!released && m.ctrlHeld)
	case keyLShift, keyRShift:
		m.shiftHeld = pressed || (!released && m.shiftHeld)
	case keySpace:
		if pressed && m.ctrlHeld && m.shiftHeld && m.l.press() {
			return edgeDown
		}
		if released && m.l.release() {
			return edgeUp
		}
	}
	return edgeNone
}

type linuxHotkey struct {
	name    string
	single  uint16
	keydown chan struct{}
	keyup   chan struct{}
	files   []*os.File
	stop    chan struct{}
	once    sync.Once
}

// New returns the evdev listener for the named key. An empty name selects
// DefaultKey.
func New(name string) (Hotkey, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = DefaultKey
	}
	h := &linuxHotkey{
		name:    name,
		keydown: make(chan struct{}, 1),
		keyup:   make(chan struct{}, 1),
	}
	if name != comboName {
		code, ok := keyCodes[name]
		if !ok {
			return nil, fmt.Errorf("%w %q (use %s)", ErrUnknownKey, name, strings.Join(KeyNames(), ", "))
		}
		h.single = code
	}
	return h, nil
}

func (h *linuxHotkey) Register() error {
	keyboards, err := findKeyboards()
	if err != nil {
		return fmt.Errorf("finding keyboards: %w", err)
	}
	if len(keyboards) == 0 {
		return fmt.Errorf("no keyboard devices found (is user in 'input' group?)")
	}

	h.stop = make(chan struct{})

	for _, path := range keyboards {
		f, err := os.Open(path)
		if err != nil {
			continue
		}
		h.files = append(h.files, f)
		go h.readEvents(f)
	}

	if len(h.files) == 0 {
		return fmt.Errorf("could not open any keyboard device (run: sudo usermod -aG input $USER, then re-login)")
	}

	return nil
}

func (h *linuxHotkey) readEvents(f *os.File) {
	buf := make([]byte, inputEventSize*16)
	m := &matcher{single: h.single}

	for {
		select {
		case <-h.stop:
			return
		default:
		}

		n, err := f.Read(buf)
		if err != nil {
			return
		}

		for _, ev := range decodeEvents(buf[:n]) {
			switch m.feed(ev) {
			case edgeDown:
				h.send(h.keydown)
			case edgeUp:
				h.send(h.keyup)
			}
		}
	}
}

// send blocks so a release is never lost behind a slow consumer.
func (h *linuxHotkey) send(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	case <-h.stop:
	}
}

func (h *linuxHotkey) Unregister() {
	h.once.Do(func() {
		if h.stop != nil {
			close(h.stop)
		}
		for _, f := range h.files {
			f.Close()
		}
	})
}

func (h *linuxHotkey) Keydown() <-chan struct{} {
	return h.keydown
}

func (h *linuxHotkey) Keyup() <-chan struct{} {
	return h.keyup
}

func (h *linuxHotkey) String() string { return h.name }

func findKeyboards() ([]string, error) {
	entries, err := os.ReadDir("/dev/input")
	if err != nil {
		return nil, err
	}

	var keyboards []string
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), "event") {
			continue
		}
		path := filepath.Join("/dev/input", e.Name())
		if isKeyboard(e.Name()) {
			keyboards = append(keyboards, path)
		}
	}
	return keyboards, nil
}

func isKeyboard(eventName string) bool {
	capsPath := filepath.Join("/sys/class/input", eventName, "device", "capabilities", "key")
	data, err := os.ReadFile(capsPath)
	if err != nil {
		return false
	}
	caps := strings.TrimSpace(string(data))
	return len(caps) > 10
}

func Diagnose() (string, error) {
	keyboards, err := findKeyboards()
	if err != nil {
		return "", fmt.Errorf("cannot scan input devices: %w", err)
	}
	if len(keyboards) == 0 {
		return "", fmt.Errorf("no keyboard devices found (is user in 'input' group?)")
	}

	var opened string
	for _, path := range keyboards {
		f, err := os.Open(path)
		if err == nil {
			f.Close()
			opened = path
			break
		}
	}
	if opened == "" {
		return "", fmt.Errorf("found %d keyboard(s) but cannot open any (run: sudo usermod -aG input $USER)", len(keyboards))
	}

	return fmt.Sprintf("%d keyboard(s) found, opened %s", len(keyboards), opened), nil
}
