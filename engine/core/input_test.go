package core

import "testing"

func TestDigitIndex(t *testing.T) {
	tests := []struct {
		key  KeyCode
		want int
		ok   bool
	}{
		{KEY_1, 1, true},
		{KEY_4, 4, true},
		{KEY_9, 9, true},
		{KEY_0, 10, true},
		{KEY_NUMPAD1, 1, true},
		{KEY_NUMPAD9, 9, true},
		{KEY_A, 0, false},
		{KEY_ESCAPE, 0, false},
	}
	for _, tt := range tests {
		got, ok := DigitIndex(tt.key)
		if got != tt.want || ok != tt.ok {
			t.Fatalf("DigitIndex(%#x) = %d,%v want %d,%v", tt.key, got, ok, tt.want, tt.ok)
		}
	}
}
