//go:build linux

package keyboard

import "testing"

func TestCharToKey(t *testing.T) {
	for _, tt := range []struct {
		c     rune
		code  uint16
		shift bool
		ok    bool
	}{
		{'a', 30, false, true},
		{'Z', 44, true, true},
		{'0', 11, false, true},
		{' ', 57, false, true},
		{'.', 52, false, true},
		{'?', 53, true, true},
		{'é', 0, false, false},
	} {
		code, shift, ok := charToKey(tt.c)
		if code != tt.code || shift != tt.shift || ok != tt.ok {
			t.Errorf("charToKey(%q) = %d, %v, %v; want %d, %v, %v", tt.c, code, shift, ok, tt.code, tt.shift, tt.ok)
		}
	}
}
