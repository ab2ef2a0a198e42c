package cli

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	// DefaultMaxInputSize bounds one prompt line.
	DefaultMaxInputSize = 1024
	// EnvMaxInputSize overrides the default.
	EnvMaxInputSize = "STAGEFLOW_MAX_INPUT_SIZE"
)

var (
	ErrInputTooLarge = errors.New("input exceeds maximum allowed size")
	ErrInvalidUTF8   = errors.New("input contains invalid UTF-8 sequences")
)

// SanitizeInput rejects oversized or malformed prompt lines and strips
// control characters other than tab and line breaks.
func SanitizeInput(input string) (string, error) {
	limit := maxInputSize()
	if len(input) > limit {
		return "", fmt.Errorf("%w: size=%d limit=%d", ErrInputTooLarge, len(input), limit)
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
	return unicode.IsControl(r) && r != '\t' && r != '\n' && r != '\r'
}

func maxInputSize() int {
	if val := os.Getenv(EnvMaxInputSize); val != "" {
		if size, err := strconv.Atoi(val); err == nil && size > 0 {
			return size
		}
	}
	return DefaultMaxInputSize
}
