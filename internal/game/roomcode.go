package game

import (
	"math/rand"
	"strings"
)

// codeAlphabet excludes visually ambiguous characters (0/O, 1/I).
const (
	codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	codeLength   = 6
)

// NewRoomCode returns a random 6-character room code.
func NewRoomCode(rnd *rand.Rand) string {
	var b strings.Builder
	b.Grow(codeLength)
	for i := 0; i < codeLength; i++ {
		b.WriteByte(codeAlphabet[rnd.Intn(len(codeAlphabet))])
	}
	return b.String()
}

// NormalizeCode cleans user input into room-code form: trimmed, uppercased,
// stripped of anything outside A-Z0-9 and cut to 6 characters.
func NormalizeCode(raw string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(strings.TrimSpace(raw)) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
		if b.Len() == codeLength {
			break
		}
	}
	return b.String()
}
