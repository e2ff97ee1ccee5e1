package session

import (
	"math/rand/v2"
	"strings"
)

const (
	CodeLength   = 6
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// NewCode draws a session code of CodeLength characters from [A-Z0-9].
func NewCode(rng *rand.Rand) string {
	var sb strings.Builder
	sb.Grow(CodeLength)
	for range CodeLength {
		var i int
		if rng != nil {
			i = rng.IntN(len(codeAlphabet))
		} else {
			i = rand.IntN(len(codeAlphabet))
		}
		sb.WriteByte(codeAlphabet[i])
	}
	return sb.String()
}

// NormalizeCode trims and upper-cases user input.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidCode reports whether code is exactly CodeLength characters of [A-Z0-9].
func ValidCode(code string) bool {
	if len(code) != CodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if !strings.ContainsRune(codeAlphabet, rune(code[i])) {
			return false
		}
	}
	return true
}
