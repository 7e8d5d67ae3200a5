package keyboard

import cb "github.com/atotto/clipboard"

// SystemClipboard is the desktop clipboard with the platform paste chord.
type SystemClipboard struct{}

func (SystemClipboard) Read() (string, error) {
	return cb.ReadAll()
}

func (SystemClipboard) Write(text string) error {
	return cb.WriteAll(text)
}

func (SystemClipboard) PasteChord() error {
	return pasteChord()
}

// ClipboardAvailable reports whether a clipboard utility is usable.
func ClipboardAvailable() bool {
	return !cb.Unsupported
}
