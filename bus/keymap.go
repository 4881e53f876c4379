package bus

// Keyboard scan codes. The keyboard sends a make code on key down and
// the same code with the high bit set on key up.

// keySentinel is queued for any key with no entry in the table,
// matching the keyboard's response to a key it does not know.
const keySentinel uint8 = 0x7f

// Named keys the front end can feed in alongside printable runes.
const (
	KeyReturn    rune = '\r'
	KeyTab       rune = '\t'
	KeyBackspace rune = 0x08
	KeyEscape    rune = 0x1b
	KeySpace     rune = ' '
)

var keymap = map[rune]uint8{
	KeySpace:     0x01,
	KeyTab:       0x02,
	KeyReturn:    0x03,
	KeyBackspace: 0x04,
	KeyEscape:    0x05,

	'1': 0x06, '2': 0x07, '3': 0x08, '4': 0x09, '5': 0x0a,
	'6': 0x0b, '7': 0x0c, '8': 0x0d, '9': 0x0e, '0': 0x0f,

	'a': 0x10, 'b': 0x11, 'c': 0x12, 'd': 0x13, 'e': 0x14,
	'f': 0x15, 'g': 0x16, 'h': 0x17, 'i': 0x18, 'j': 0x19,
	'k': 0x1a, 'l': 0x1b, 'm': 0x1c, 'n': 0x1d, 'o': 0x1e,
	'p': 0x1f, 'q': 0x20, 'r': 0x21, 's': 0x22, 't': 0x23,
	'u': 0x24, 'v': 0x25, 'w': 0x26, 'x': 0x27, 'y': 0x28,
	'z': 0x29,

	'-': 0x2a, '=': 0x2b, '[': 0x2c, ']': 0x2d, ';': 0x2e,
	'\'': 0x2f, '`': 0x30, '\\': 0x31, ',': 0x32, '.': 0x33,
	'/': 0x34,
}

// scanCode maps a host key to its make code.
func scanCode(key rune) uint8 {
	if code, ok := keymap[key]; ok {
		return code
	}
	return keySentinel
}
