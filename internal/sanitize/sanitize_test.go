package sanitize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestText_SizeLimit(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		wantErr bool
	}{
		{"under limit", 9, false},
		{"exact limit", 10, false},
		{"over limit", 11, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Text(strings.Repeat("a", tt.size), 10)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrTooLarge)
				return
			}
			assert.NoError(t, err)
		})
	}

	_, err := Text(strings.Repeat("я", DefaultMaxBytes/2), 0)
	assert.NoError(t, err, "the default limit fits a long Cyrillic message")
}

func TestText_ControlChars(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain", "Привет", "Привет"},
		{"safe controls", "Line1\nLine2\tTabbed\r", "Line1\nLine2\tTabbed\r"},
		{"ansi", "\x1b[31mRed\x1b[0m", "[31mRed[0m"},
		{"null", "Null\x00Byte", "NullByte"},
		{"bell", "Ding\x07", "Ding"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Text(tt.input, 0)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestText_InvalidUTF8(t *testing.T) {
	_, err := Text("\xbd\xb2\x3d\xbc\x20\xe2\x8c\x98", 0)
	assert.ErrorIs(t, err, ErrInvalidUTF8)
}
