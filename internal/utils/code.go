package utils

import (
    "crypto/rand"
    "math/big"
    "strings"
)

// CodeLength is the number of random characters in a verification code,
// not counting any event prefix.
const CodeLength = 16

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// GenerateCode returns prefix followed by CodeLength random characters
// drawn from a mixed-case alphanumeric alphabet, uppercased for display.
func GenerateCode(prefix string) (string, error) {
    alphabetLen := big.NewInt(int64(len(codeAlphabet)))
    var b strings.Builder
    b.Grow(len(prefix) + CodeLength)
    b.WriteString(strings.ToUpper(strings.TrimSpace(prefix)))
    for i := 0; i < CodeLength; i++ {
        n, err := rand.Int(rand.Reader, alphabetLen)
        if err != nil {
            return "", err
        }
        b.WriteByte(codeAlphabet[n.Int64()])
    }
    return strings.ToUpper(b.String()), nil
}

// NormalizeCode canonicalizes user-typed input for lookup.
func NormalizeCode(raw string) string {
    return strings.ToUpper(strings.TrimSpace(raw))
}

// MaskCode keeps only the first four characters so logs can correlate a
// code without exposing it.  It counts runes, and invalid UTF-8 bytes in
// raw client input come out as U+FFFD.
func MaskCode(code string) string {
    r := []rune(code)
    if len(r) <= 4 {
        return "****"
    }
    return string(r[:4]) + "…"
}
