// Package sanitize cleans raw text arriving from chat and HTTP shells
// before it is classified into input events.
package sanitize

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultMaxBytes covers a full 4096-character Telegram message in any script.
const DefaultMaxBytes = 16 << 10

var (
	ErrTooLarge    = errors.New("input exceeds maximum allowed size")
	ErrInvalidUTF8 = errors.New("input contains invalid UTF-8 sequences")
)

// Text rejects oversized or malformed input and strips control characters
// other than newline, tab and carriage return. A maxBytes of zero or less
// selects DefaultMaxBytes.
func Text(input string, maxBytes int) (string, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	// Rejected, never truncated: a cut message would be stored as if complete.
	if len(input) > maxBytes {
		return "", fmt.Errorf("%w: size=%d limit=%d", ErrTooLarge, len(input), maxBytes)
	}
	if !utf8.ValidString(input) {
		return "", ErrInvalidUTF8
	}
	if strings.IndexFunc(input, unsafeControl) < 0 {
		return input, nil
	}

	var b strings.Builder
	b.Grow(len(input))
	for _, r := range input {
		if !unsafeControl(r) {
			b.WriteRune(r)
		}
	}
	return b.String(), nil
}

func unsafeControl(r rune) bool {
	return unicode.IsControl(r) && r != '\n' && r != '\t' && r != '\r'
}
