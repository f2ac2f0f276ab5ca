package model

import "time"

// User represents an application user record as stored in the `users`
// table.  The json tags are omitted because these structs are used by the
// repository layer; handlers define their own response types.
//
// Fields:
//  ID             – primary key identifier of the user.
//  Email          – unique email address.
//  PasswordHash   – bcrypt hashed password.
//  Role           – role claim placed into access tokens (CUSTOMER).
//  Points         – loyalty point balance.
//  ExternalAPIKey – third-party API key handed to the agent; nil when unset.
//  IsActive       – whether the account is active.
//  CreatedAt      – timestamp of creation.
//  UpdatedAt      – timestamp of last update.
type User struct {
    ID             uint64    // users.id
    Email          string    // users.email
    PasswordHash   string    // users.password_hash
    Role           string    // users.role
    Points         int64     // users.points
    ExternalAPIKey *string   // users.external_api_key (nullable)
    IsActive       bool      // users.is_active
    CreatedAt      time.Time // users.created_at
    UpdatedAt      time.Time // users.updated_at
}

// HasAPIKey reports whether the user configured a non-empty external key.
func (u User) HasAPIKey() bool {
    return u.ExternalAPIKey != nil && *u.ExternalAPIKey != ""
}

// RefreshToken models an entry in the `refresh_tokens` table.  Only the
// SHA‑256 hash of the token value is stored.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – owner of the token.
//  TokenHash – SHA‑256 hex digest of the token value.
//  ExpiresAt – expiration timestamp of the token.
//  RevokedAt – when the token was revoked (null if still active).
//  CreatedAt – timestamp of creation.
type RefreshToken struct {
    ID        uint64     // refresh_tokens.id
    UserID    uint64     // refresh_tokens.user_id
    TokenHash string     // refresh_tokens.token_hash
    ExpiresAt time.Time  // refresh_tokens.expires_at
    RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
    CreatedAt time.Time  // refresh_tokens.created_at
}
