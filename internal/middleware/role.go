package middleware

import (
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/tixcode/internal/utils"
)

// Roles assigned by a RolePolicy.
const (
    RoleCustomer = "CUSTOMER"
    RoleAdmin    = "ADMIN"
)

// RolePolicy decides which role an authenticated identity acts with.
type RolePolicy interface {
    Role(id utils.Identity) string
}

// EmailAllowlist grants RoleAdmin to a fixed set of email addresses and
// falls back to the role carried in the token.
type EmailAllowlist struct {
    admins map[string]struct{}
}

// NewEmailAllowlist builds a policy from admin emails (case-insensitive).
func NewEmailAllowlist(emails []string) EmailAllowlist {
    m := make(map[string]struct{}, len(emails))
    for _, e := range emails {
        if e = strings.ToLower(strings.TrimSpace(e)); e != "" {
            m[e] = struct{}{}
        }
    }
    return EmailAllowlist{admins: m}
}

func (p EmailAllowlist) Role(id utils.Identity) string {
    if _, ok := p.admins[strings.ToLower(id.Email)]; ok && id.Email != "" {
        return RoleAdmin
    }
    if id.Role == RoleAdmin {
        // Admin claims are only honoured through the allowlist.
        return RoleCustomer
    }
    if id.Role == "" {
        return RoleCustomer
    }
    return id.Role
}

// RequireRole lets the request through only when policy assigns the caller
// one of roles.  It must run after JWTAuth.
func RequireRole(policy RolePolicy, roles ...string) echo.MiddlewareFunc {
    allowed := make(map[string]bool, len(roles))
    for _, r := range roles {
        allowed[r] = true
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            id, ok := IdentityFrom(c)
            if !ok {
                return fail(c, http.StatusUnauthorized, "unauthorized")
            }
            role := policy.Role(id)
            if !allowed[role] {
                return fail(c, http.StatusForbidden, "forbidden")
            }
            c.Set(roleKey, role)
            return next(c)
        }
    }
}
