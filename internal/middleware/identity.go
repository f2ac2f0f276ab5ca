package middleware

import (
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/tixcode/internal/utils"
)

// Context keys written by JWTAuth.
const (
    identityKey = "identity"
    userIDKey   = "user_id"
    roleKey     = "role"
)

func setIdentity(c echo.Context, id utils.Identity) {
    c.Set(identityKey, id)
    c.Set(userIDKey, id.UserID)
    c.Set(roleKey, id.Role)
}

// IdentityFrom returns the identity stored by JWTAuth.
func IdentityFrom(c echo.Context) (utils.Identity, bool) {
    id, ok := c.Get(identityKey).(utils.Identity)
    return id, ok && id.UserID != 0
}

// userKey identifies the caller for rate limiting and logs; anonymous
// callers share "anon".
func userKey(c echo.Context) string {
    if id, ok := IdentityFrom(c); ok {
        return strconv.FormatUint(id.UserID, 10)
    }
    return "anon"
}
