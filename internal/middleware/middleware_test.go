package middleware

import (
    "context"
    "errors"
    "log/slog"
    "net/http"
    "net/http/httptest"
    "strings"
    "testing"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/tixcode/internal/config"
    "github.com/iliyamo/tixcode/internal/utils"
)

const secret = "mw-secret"

var discard = slog.New(slog.NewTextHandler(&strings.Builder{}, nil))

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
    rec := httptest.NewRecorder()
    e.ServeHTTP(rec, req)
    return rec
}

func bearer(t *testing.T, uid uint64, email string) string {
    at, err := utils.NewAccessToken(secret, uid, email, RoleCustomer, 5)
    require.NoError(t, err)
    return "Bearer " + at.Token
}

func TestJWTAuth(t *testing.T) {
    e := echo.New()
    e.GET("/me", func(c echo.Context) error {
        id, ok := IdentityFrom(c)
        require.True(t, ok)
        return c.String(http.StatusOK, id.Email)
    }, JWTAuth(secret, discard))

    for _, h := range []string{"", "Bearer junk", "Basic abc", "Bearer a.b.c"} {
        req := httptest.NewRequest(http.MethodGet, "/me", nil)
        req.Header.Set(echo.HeaderAuthorization, h)
        rec := serve(e, req)
        assert.Equal(t, http.StatusUnauthorized, rec.Code)
        assert.JSONEq(t, `{"success":false,"message":"unauthorized"}`, rec.Body.String())
    }

    req := httptest.NewRequest(http.MethodGet, "/me", nil)
    req.Header.Set(echo.HeaderAuthorization, bearer(t, 3, "fan@example.com"))
    rec := serve(e, req)
    assert.Equal(t, http.StatusOK, rec.Code)
    assert.Equal(t, "fan@example.com", rec.Body.String())
}

type stubPolicy string

func (s stubPolicy) Role(utils.Identity) string { return string(s) }

func TestRequireRoleConsultsPolicy(t *testing.T) {
    for policy, want := range map[stubPolicy]int{RoleAdmin: http.StatusOK, RoleCustomer: http.StatusForbidden} {
        e := echo.New()
        e.POST("/admin", func(c echo.Context) error { return c.NoContent(http.StatusOK) },
            JWTAuth(secret, discard), RequireRole(policy, RoleAdmin))
        req := httptest.NewRequest(http.MethodPost, "/admin", nil)
        req.Header.Set(echo.HeaderAuthorization, bearer(t, 1, "x@example.com"))
        assert.Equal(t, want, serve(e, req).Code, string(policy))
    }
}

func TestEmailAllowlist(t *testing.T) {
    p := NewEmailAllowlist([]string{" Boss@Example.com ", ""})
    assert.Equal(t, RoleAdmin, p.Role(utils.Identity{UserID: 1, Email: "boss@example.com"}))
    assert.Equal(t, RoleCustomer, p.Role(utils.Identity{UserID: 2, Email: "fan@example.com", Role: RoleCustomer}))
    assert.Equal(t, RoleCustomer, p.Role(utils.Identity{UserID: 3, Email: "mallory@example.com", Role: RoleAdmin}))
    assert.Equal(t, RoleCustomer, p.Role(utils.Identity{UserID: 4}))
}

func TestRateLimitWith(t *testing.T) {
    cfg := config.RateLimitConfig{Enabled: true, Capacity: 2, Prefix: "rl:agent", KeyStrategy: "user_route"}
    var keys []string
    calls := 0
    take := func(_ context.Context, key string) (decision, error) {
        keys = append(keys, key)
        calls++
        if calls > 2 {
            return decision{allowed: false, retry: 1500 * time.Millisecond}, nil
        }
        return decision{allowed: true, remaining: int64(2 - calls)}, nil
    }
    e := echo.New()
    e.POST("/v1/codes/redeem", func(c echo.Context) error { return c.NoContent(http.StatusOK) },
        JWTAuth(secret, discard), rateLimitWith(cfg, take, discard))

    var last *httptest.ResponseRecorder
    for i := 0; i < 3; i++ {
        req := httptest.NewRequest(http.MethodPost, "/v1/codes/redeem", nil)
        req.Header.Set(echo.HeaderAuthorization, bearer(t, 9, ""))
        last = serve(e, req)
    }
    assert.Equal(t, http.StatusTooManyRequests, last.Code)
    assert.Equal(t, "2", last.Header().Get("Retry-After"))
    assert.Equal(t, "rl:agent:user:9:route:POST /v1/codes/redeem", keys[0])
}

func TestRateLimitFailsOpen(t *testing.T) {
    take := func(context.Context, string) (decision, error) { return decision{}, errors.New("redis down") }
    e := echo.New()
    e.GET("/x", func(c echo.Context) error { return c.NoContent(http.StatusOK) },
        rateLimitWith(config.RateLimitConfig{Capacity: 1}, take, discard))
    assert.Equal(t, http.StatusOK, serve(e, httptest.NewRequest(http.MethodGet, "/x", nil)).Code)
}

func TestParseDecision(t *testing.T) {
    d, ok := parseDecision([]interface{}{int64(0), int64(0), int64(250)})
    require.True(t, ok)
    assert.False(t, d.allowed)
    assert.Equal(t, 250*time.Millisecond, d.retry)
    _, ok = parseDecision("nope")
    assert.False(t, ok)
}

func TestCachePayloadRoundTrip(t *testing.T) {
    h := http.Header{"Content-Type": []string{"application/json"}}
    bs, err := encodePayload(http.StatusOK, h, []byte(`{"success":true}`))
    require.NoError(t, err)
    status, hdr, body, ok := decodePayload(bs)
    require.True(t, ok)
    assert.Equal(t, http.StatusOK, status)
    assert.Equal(t, "application/json", hdr.Get("Content-Type"))
    assert.Equal(t, `{"success":true}`, string(body))

    _, _, _, ok = decodePayload([]byte{0, 0})
    assert.False(t, ok)
}

func TestCacheKeyIncludesPathParams(t *testing.T) {
    cfg := config.CacheConfig{Prefix: "cache:events", KeyStrategy: "route_query"}
    e := echo.New()
    key := func(id string) string {
        c := e.NewContext(httptest.NewRequest(http.MethodGet, "/v1/events/"+id, nil), httptest.NewRecorder())
        c.SetPath("/v1/events/:id")
        c.SetParamNames("id")
        c.SetParamValues(id)
        return cacheKey(cfg, c)
    }
    assert.NotEqual(t, key("1"), key("2"))
    assert.True(t, strings.HasPrefix(key("1"), "cache:events:"))
}

func TestDisabledMiddlewaresPassThrough(t *testing.T) {
    e := echo.New()
    e.GET("/x", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) },
        ResponseCache(config.CacheConfig{Enabled: true}, nil, discard),
        RateLimit(config.RateLimitConfig{Enabled: true}, nil, discard))
    assert.Equal(t, http.StatusNoContent, serve(e, httptest.NewRequest(http.MethodGet, "/x", nil)).Code)
}
