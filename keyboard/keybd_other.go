//go:build !linux

package keyboard

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/micmonay/keybd_event"
)

var (
	kb     keybd_event.KeyBonding
	kbMu   sync.Mutex
	kbOnce sync.Once
	kbErr  error
)

func Init() error {
	kbOnce.Do(func() {
		kb, kbErr = keybd_event.NewKeyBonding()
	})
	return kbErr
}

var letterKeys = [26]int{
	keybd_event.VK_A, keybd_event.VK_B, keybd_event.VK_C, keybd_event.VK_D, keybd_event.VK_E,
	keybd_event.VK_F, keybd_event.VK_G, keybd_event.VK_H, keybd_event.VK_I, keybd_event.VK_J,
	keybd_event.VK_K, keybd_event.VK_L, keybd_event.VK_M, keybd_event.VK_N, keybd_event.VK_O,
	keybd_event.VK_P, keybd_event.VK_Q, keybd_event.VK_R, keybd_event.VK_S, keybd_event.VK_T,
	keybd_event.VK_U, keybd_event.VK_V, keybd_event.VK_W, keybd_event.VK_X, keybd_event.VK_Y,
	keybd_event.VK_Z,
}

var digitKeys = [10]int{
	keybd_event.VK_0, keybd_event.VK_1, keybd_event.VK_2, keybd_event.VK_3, keybd_event.VK_4,
	keybd_event.VK_5, keybd_event.VK_6, keybd_event.VK_7, keybd_event.VK_8, keybd_event.VK_9,
}

func charToKey(c rune) (vk int, shift bool, ok bool) {
	switch {
	case c >= 'a' && c <= 'z':
		return letterKeys[c-'a'], false, true
	case c >= 'A' && c <= 'Z':
		return letterKeys[c-'A'], true, true
	case c >= '0' && c <= '9':
		return digitKeys[c-'0'], false, true
	case c == ' ':
		return keybd_event.VK_SPACE, false, true
	}
	return 0, false, false
}

func launch(vk int, shift, ctrl, super bool) error {
	kbMu.Lock()
	defer kbMu.Unlock()
	kb.Clear()
	kb.SetKeys(vk)
	kb.HasSHIFT(shift)
	kb.HasCTRL(ctrl)
	kb.HasSuper(super)
	return kb.Launching()
}

// pasteChord sends Cmd+V on macOS and Ctrl+V elsewhere.
func pasteChord() error {
	if err := Init(); err != nil {
		return err
	}
	mac := runtime.GOOS == "darwin"
	return launch(keybd_event.VK_V, false, !mac, mac)
}

// KeybdTapper types letters, digits and spaces; everything else is left to
// the clipboard fallback.
type KeybdTapper struct{}

func NewTapper() (Tapper, error) {
	if err := Init(); err != nil {
		return nil, err
	}
	return KeybdTapper{}, nil
}

func (KeybdTapper) Tap(r rune) error {
	vk, shift, ok := charToKey(r)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnmappable, r)
	}
	return launch(vk, shift, false, false)
}

// Verify checks that the keyboard event binding is initialized.
func Verify() (string, error) {
	if err := Init(); err != nil {
		return "", err
	}
	if runtime.GOOS == "darwin" {
		return "keyboard event binding OK (Cmd+V)", nil
	}
	return "keyboard event binding OK (Ctrl+V)", nil
}
