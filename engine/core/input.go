package core

// Key code definitions
type KeyCode uint16

const (
	KEY_BACKSPACE KeyCode = 0x08
	KEY_TAB       KeyCode = 0x09
	KEY_ENTER     KeyCode = 0x0D
	KEY_ESCAPE    KeyCode = 0x1B
	KEY_SPACE     KeyCode = 0x20

	KEY_0 KeyCode = 0x30
	KEY_1 KeyCode = 0x31
	KEY_2 KeyCode = 0x32
	KEY_3 KeyCode = 0x33
	KEY_4 KeyCode = 0x34
	KEY_5 KeyCode = 0x35
	KEY_6 KeyCode = 0x36
	KEY_7 KeyCode = 0x37
	KEY_8 KeyCode = 0x38
	KEY_9 KeyCode = 0x39

	KEY_A KeyCode = 0x41
	KEY_P KeyCode = 0x50
	KEY_R KeyCode = 0x52
	KEY_Z KeyCode = 0x5A

	KEY_NUMPAD0 KeyCode = 0x60
	KEY_NUMPAD1 KeyCode = 0x61
	KEY_NUMPAD9 KeyCode = 0x69

	KEY_UNKNOWN KeyCode = 0xFFFF
)

// DigitIndex returns the 1-based number printed on a digit key (top row or
// numpad) and true, or 0 and false for any other key. KEY_0 maps to 10.
func DigitIndex(k KeyCode) (int, bool) {
	switch {
	case k >= KEY_1 && k <= KEY_9:
		return int(k-KEY_1) + 1, true
	case k == KEY_0:
		return 10, true
	case k >= KEY_NUMPAD1 && k <= KEY_NUMPAD9:
		return int(k-KEY_NUMPAD1) + 1, true
	case k == KEY_NUMPAD0:
		return 10, true
	}
	return 0, false
}
