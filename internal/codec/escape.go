package codec

// needsEscape[b] is true when byte b cannot appear unescaped inside a
// quoted string: every control character, the quote, and the backslash.
var needsEscape = [256]bool{}

// escapeAs[b] names the short escape for byte b, or escU when byte b
// requires the six-byte \u00XX form (the remaining control bytes); it is
// escNone (0) for bytes that don't need escaping at all.
var escapeAs = [256]byte{}

const (
	escNone = 0
	escU    = 'u'
)

func init() {
	for b := 0; b <= 0x1F; b++ {
		needsEscape[b] = true
		escapeAs[b] = escU
	}
	needsEscape['"'] = true
	escapeAs['"'] = '"'
	needsEscape['\\'] = true
	escapeAs['\\'] = '\\'

	escapeAs['\b'] = 'b'
	escapeAs['\t'] = 't'
	escapeAs['\n'] = 'n'
	escapeAs['\f'] = 'f'
	escapeAs['\r'] = 'r'
}

const hexDigits = "0123456789abcdef"
