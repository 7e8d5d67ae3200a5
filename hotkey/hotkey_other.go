//go:build !linux

package hotkey

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.design/x/hotkey"
)

const DefaultKey = "ctrl+shift+space"

var keyChoices = map[string]func() *hotkey.Hotkey{
	DefaultKey: func() *hotkey.Hotkey {
		return hotkey.New([]hotkey.Modifier{hotkey.ModCtrl, hotkey.ModShift}, hotkey.KeySpace)
	},
	"f13": func() *hotkey.Hotkey { return hotkey.New(nil, hotkey.KeyF13) },
	"f14": func() *hotkey.Hotkey { return hotkey.New(nil, hotkey.KeyF14) },
	"f15": func() *hotkey.Hotkey { return hotkey.New(nil, hotkey.KeyF15) },
	"f16": func() *hotkey.Hotkey { return hotkey.New(nil, hotkey.KeyF16) },
}

func KeyNames() []string {
	names := make([]string, 0, len(keyChoices))
	for n := range keyChoices {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

type xHotkey struct {
	name    string
	hk      *hotkey.Hotkey
	keydown chan struct{}
	keyup   chan struct{}
	stop    chan struct{}
	once    sync.Once
}

func New(name string) (Hotkey, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = DefaultKey
	}
	mk, ok := keyChoices[name]
	if !ok {
		return nil, fmt.Errorf("%w %q (use %s)", ErrUnknownKey, name, strings.Join(KeyNames(), ", "))
	}
	return &xHotkey{
		name:    name,
		hk:      mk(),
		keydown: make(chan struct{}, 1),
		keyup:   make(chan struct{}, 1),
		stop:    make(chan struct{}),
	}, nil
}

func (h *xHotkey) Register() error {
	if err := h.hk.Register(); err != nil {
		return err
	}
	go h.forward()
	return nil
}

func (h *xHotkey) forward() {
	var l latch
	for {
		var out chan struct{}
		select {
		case <-h.stop:
			return
		case <-h.hk.Keydown():
			if l.press() {
				out = h.keydown
			}
		case <-h.hk.Keyup():
			if l.release() {
				out = h.keyup
			}
		}
		if out == nil {
			continue
		}
		select {
		case out <- struct{}{}:
		case <-h.stop:
			return
		}
	}
}

func (h *xHotkey) Unregister() {
	h.once.Do(func() {
		close(h.stop)
		h.hk.Unregister()
	})
}

func (h *xHotkey) Keydown() <-chan struct{} {
	return h.keydown
}

func (h *xHotkey) Keyup() <-chan struct{} {
	return h.keyup
}

func (h *xHotkey) String() string { return h.name }

func Diagnose() (string, error) {
	return "hotkey support available (" + strings.Join(KeyNames(), ", ") + ")", nil
}
