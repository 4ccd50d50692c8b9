package utils

import (
	"crypto/rand"
	"math/big"
	"strings"
)

// InviteAlphabet omits 0, O, I and 1 so codes survive being read aloud.
const InviteAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// InviteCodeLength is the length of every invite code.
const InviteCodeLength = 6

// GenerateInviteCode creates a random code from InviteAlphabet using crypto/rand.
func GenerateInviteCode() (string, error) {
	max := big.NewInt(int64(len(InviteAlphabet)))
	buf := make([]byte, InviteCodeLength)
	for i := range buf {
		v, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = InviteAlphabet[v.Int64()]
	}
	return string(buf), nil
}

// NormalizeInviteCode upper-cases and trims user input.
func NormalizeInviteCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// IsInviteCodeShape reports whether code is six ASCII letters or digits.
func IsInviteCodeShape(code string) bool {
	if len(code) != InviteCodeLength {
		return false
	}
	for _, r := range code {
		if !(r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z' || r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}
