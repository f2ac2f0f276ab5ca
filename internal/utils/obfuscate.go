package utils

import "encoding/base64"

// EncodeAPIKey wraps a third-party API key in standard base64 before it is
// put on the wire.  This is obfuscation, not encryption: anyone holding the
// response can decode it.  Replacing it with real encryption changes the
// agent contract.
func EncodeAPIKey(key string) string {
    return base64.StdEncoding.EncodeToString([]byte(key))
}

// DecodeAPIKey reverses EncodeAPIKey.
func DecodeAPIKey(encoded string) (string, error) {
    b, err := base64.StdEncoding.DecodeString(encoded)
    if err != nil {
        return "", err
    }
    return string(b), nil
}
