package utils

import (
    "crypto/sha256"
    "crypto/subtle"
    "encoding/hex"
    "net/url"
    "sort"
    "strings"
)

// CheckMacField is the parameter name carrying the gateway check value.
const CheckMacField = "CheckMacValue"

// dotNetUnescapes restores characters that the gateway's .NET style
// encoder leaves literal but url.QueryEscape escapes.
var dotNetUnescapes = strings.NewReplacer(
    "%21", "!",
    "%2a", "*",
    "%28", "(",
    "%29", ")",
)

// CheckMacPayload builds the lowercase, URL-encoded string that is hashed
// into the check value.  Keys are sorted case-insensitively and the
// CheckMacValue field itself is ignored.
func CheckMacPayload(params map[string]string, hashKey, hashIV string) string {
    keys := make([]string, 0, len(params))
    for k := range params {
        if k == CheckMacField {
            continue
        }
        keys = append(keys, k)
    }
    sort.Slice(keys, func(i, j int) bool {
        return strings.ToLower(keys[i]) < strings.ToLower(keys[j])
    })

    var b strings.Builder
    b.WriteString("HashKey=")
    b.WriteString(hashKey)
    for _, k := range keys {
        b.WriteByte('&')
        b.WriteString(k)
        b.WriteByte('=')
        b.WriteString(params[k])
    }
    b.WriteString("&HashIV=")
    b.WriteString(hashIV)

    encoded := strings.ToLower(url.QueryEscape(b.String()))
    encoded = strings.ReplaceAll(encoded, "~", "%7e")
    return dotNetUnescapes.Replace(encoded)
}

// CheckMacValue computes the SHA-256 check value as uppercase hex.
func CheckMacValue(params map[string]string, hashKey, hashIV string) string {
    sum := sha256.Sum256([]byte(CheckMacPayload(params, hashKey, hashIV)))
    return strings.ToUpper(hex.EncodeToString(sum[:]))
}

// VerifyCheckMac reports whether params carry a valid check value.
func VerifyCheckMac(params map[string]string, hashKey, hashIV string) bool {
    got := strings.ToUpper(params[CheckMacField])
    if got == "" {
        return false
    }
    want := CheckMacValue(params, hashKey, hashIV)
    return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}
