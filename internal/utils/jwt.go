package utils // package utils provides helper functions for token creation, verification and hashing

import (
    "crypto/rand"   // secure random number generation
    "crypto/sha256" // SHA‑256 hashing for refresh tokens
    "encoding/hex"  // hex encoding and decoding functions
    "errors"        // sentinel errors for credential failures
    "strconv"       // parsing string subjects
    "strings"       // bearer prefix handling
    "time"          // time utilities for generating expirations

    "github.com/golang-jwt/jwt/v5" // JWT library for creating and verifying signed tokens
)

// Credential failures.  Callers must not echo the distinction back to
// clients; both are answered with a generic 401.
var (
    // ErrMissingOrMalformed means no credential or not in "Bearer <token>" form.
    ErrMissingOrMalformed = errors.New("missing or malformed credential")
    // ErrInvalidToken means a well-formed token failed signature, expiry or claim checks.
    ErrInvalidToken = errors.New("invalid token")
)

const bearerPrefix = "Bearer "

// Identity is the verified caller extracted from an access token.
type Identity struct {
    UserID uint64 // sub claim
    Email  string // email claim (may be empty for legacy tokens)
    Role   string // role claim
}

// AccessToken represents a signed JWT access token along with its expiry.
type AccessToken struct {
    Token string    // the serialized JWT string
    Exp   time.Time // the UTC expiration time
}

// RefreshToken represents a long‑lived token used to obtain new access
// tokens.  Only a SHA‑256 hash of Raw is persisted.
type RefreshToken struct {
    Raw string    // raw token string returned to the client
    Exp time.Time // UTC expiration time
}

// NewAccessToken builds and signs an HS256 JWT for a user.  The JWT carries
// sub, email, role, exp and iat claims.
func NewAccessToken(secret string, userID uint64, email, role string, ttlMin int) (AccessToken, error) {
    now := time.Now().UTC()
    exp := now.Add(time.Duration(ttlMin) * time.Minute)
    claims := jwt.MapClaims{
        "sub":   strconv.FormatUint(userID, 10),
        "email": email,
        "role":  role,
        "exp":   exp.Unix(),
        "iat":   now.Unix(),
    }
    t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
    signed, err := t.SignedString([]byte(secret))
    if err != nil {
        return AccessToken{}, err
    }
    return AccessToken{Token: signed, Exp: exp}, nil
}

// VerifyBearer validates an Authorization header value and returns the
// caller identity.  It never returns a partially verified identity.
func VerifyBearer(secret, header string) (Identity, error) {
    if !strings.HasPrefix(header, bearerPrefix) {
        return Identity{}, ErrMissingOrMalformed
    }
    raw := strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))
    if raw == "" || strings.Count(raw, ".") != 2 {
        return Identity{}, ErrMissingOrMalformed
    }
    return ParseAccessToken(secret, raw)
}

// ParseAccessToken verifies a raw JWT string signed with secret.
func ParseAccessToken(secret, raw string) (Identity, error) {
    tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
        // Reject anything that is not HMAC so "alg":"none" and RSA confusion fail.
        if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
            return nil, ErrInvalidToken
        }
        return []byte(secret), nil
    }, jwt.WithExpirationRequired())
    if err != nil || !tok.Valid {
        return Identity{}, ErrInvalidToken
    }
    claims, ok := tok.Claims.(jwt.MapClaims)
    if !ok {
        return Identity{}, ErrInvalidToken
    }
    uid, ok := subjectID(claims["sub"])
    if !ok {
        return Identity{}, ErrInvalidToken
    }
    email, _ := claims["email"].(string)
    role, _ := claims["role"].(string)
    return Identity{UserID: uid, Email: email, Role: role}, nil
}

// subjectID accepts both numeric and string encodings of the subject.
func subjectID(v interface{}) (uint64, bool) {
    switch s := v.(type) {
    case float64:
        if s <= 0 {
            return 0, false
        }
        return uint64(s), true
    case string:
        n, err := strconv.ParseUint(s, 10, 64)
        if err != nil || n == 0 {
            return 0, false
        }
        return n, true
    }
    return 0, false
}

// NewRefreshToken returns a cryptographically secure random token and its
// expiration time.
func NewRefreshToken(ttlDays int) (RefreshToken, error) {
    raw, err := randomHex(48) // 48 bytes -> 96 hex chars
    if err != nil {
        return RefreshToken{}, err
    }
    return RefreshToken{
        Raw: raw,
        Exp: time.Now().UTC().Add(time.Duration(ttlDays) * 24 * time.Hour),
    }, nil
}

// HashRefreshRaw returns the SHA‑256 hash of the raw refresh token as hex.
func HashRefreshRaw(raw string) string {
    sum := sha256.Sum256([]byte(raw))
    return hex.EncodeToString(sum[:])
}

func randomHex(n int) (string, error) {
    buf := make([]byte, n)
    if _, err := rand.Read(buf); err != nil {
        return "", err
    }
    return hex.EncodeToString(buf), nil
}
