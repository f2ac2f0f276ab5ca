package handler

import (
    "context"
    "errors"
    "log/slog"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/tixcode/internal/clock"
    "github.com/iliyamo/tixcode/internal/config"
    "github.com/iliyamo/tixcode/internal/middleware"
    "github.com/iliyamo/tixcode/internal/model"
    "github.com/iliyamo/tixcode/internal/repository"
    "github.com/iliyamo/tixcode/internal/utils"
)

// Accounts is the user storage the auth endpoints need.
type Accounts interface {
    Create(ctx context.Context, email, password, role string, cost int) (uint64, error)
    GetByEmail(ctx context.Context, email string) (model.User, error)
    GetByID(ctx context.Context, id uint64) (model.User, error)
    SetAPIKey(ctx context.Context, id uint64, key string) error
}

// Sessions stores hashed refresh tokens.
type Sessions interface {
    StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
    ValidateRefresh(ctx context.Context, tokenHash string, now time.Time) (uint64, error)
    RevokeByHash(ctx context.Context, tokenHash string) error
}

// AuthHandler bundles dependencies for auth and account endpoints.
type AuthHandler struct {
    Cfg    config.Config
    Users  Accounts
    Tokens Sessions
    Policy middleware.RolePolicy
    Clock  clock.Clock
    Logger *slog.Logger
}

func NewAuthHandler(cfg config.Config, u Accounts, t Sessions, policy middleware.RolePolicy, clk clock.Clock, logger *slog.Logger) *AuthHandler {
    return &AuthHandler{Cfg: cfg, Users: u, Tokens: t, Policy: policy, Clock: clk, Logger: logger}
}

// ----- DTOs -----

type credentialsReq struct {
    Email    string `json:"email"`
    Password string `json:"password"`
}
type refreshReq struct {
    RefreshToken string `json:"refresh_token"`
}
type apiKeyReq struct {
    APIKey string `json:"apiKey"`
}

type tokenPart struct {
    Token   string    `json:"token"`
    Expires time.Time `json:"expires"`
}
type userPart struct {
    ID    uint64 `json:"id"`
    Email string `json:"email"`
    Role  string `json:"role"`
}
type authResp struct {
    User    userPart  `json:"user"`
    Access  tokenPart `json:"access"`
    Refresh tokenPart `json:"refresh"`
}
type meResp struct {
    userPart
    Points    int64 `json:"points"`
    HasAPIKey bool  `json:"hasApiKey"`
}

// Register creates a CUSTOMER account and returns tokens immediately.
// Elevated roles are never self-assigned.
func (h *AuthHandler) Register(c echo.Context) error {
    req, err := bindCredentials(c)
    if err != nil {
        return fail(c, http.StatusBadRequest, err.Error())
    }
    if len(req.Password) < 8 {
        return fail(c, http.StatusBadRequest, "password must be at least 8 characters")
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    uid, err := h.Users.Create(ctx, req.Email, req.Password, middleware.RoleCustomer, h.Cfg.BcryptCost)
    if errors.Is(err, repository.ErrEmailExists) {
        return fail(c, http.StatusConflict, "email already exists")
    }
    if err != nil {
        h.Logger.ErrorContext(ctx, "create user failed", "op", "auth.register", "error", err)
        return fail(c, http.StatusInternalServerError, "internal error")
    }
    resp, err := h.issuePair(ctx, model.User{ID: uid, Email: req.Email, Role: middleware.RoleCustomer})
    if err != nil {
        h.Logger.ErrorContext(ctx, "issue tokens failed", "op", "auth.register", "user_id", uid, "error", err)
        return fail(c, http.StatusInternalServerError, "internal error")
    }
    return ok(c, http.StatusCreated, resp)
}

// Login verifies credentials and returns a new token pair.  Unknown email
// and wrong password get the same answer.
func (h *AuthHandler) Login(c echo.Context) error {
    req, err := bindCredentials(c)
    if err != nil {
        return fail(c, http.StatusBadRequest, err.Error())
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    u, err := h.Users.GetByEmail(ctx, req.Email)
    if errors.Is(err, repository.ErrNotFound) {
        return fail(c, http.StatusUnauthorized, "invalid credentials")
    }
    if err != nil {
        h.Logger.ErrorContext(ctx, "load user failed", "op", "auth.login", "error", err)
        return fail(c, http.StatusInternalServerError, "internal error")
    }
    if !u.IsActive || !utils.VerifyPassword(u.PasswordHash, req.Password) {
        return fail(c, http.StatusUnauthorized, "invalid credentials")
    }
    resp, err := h.issuePair(ctx, u)
    if err != nil {
        h.Logger.ErrorContext(ctx, "issue tokens failed", "op", "auth.login", "user_id", u.ID, "error", err)
        return fail(c, http.StatusInternalServerError, "internal error")
    }
    return ok(c, http.StatusOK, resp)
}

// Refresh validates a refresh token by hash, revokes it and issues a new pair.
func (h *AuthHandler) Refresh(c echo.Context) error {
    var req refreshReq
    if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
        return fail(c, http.StatusBadRequest, "refresh_token required")
    }
    hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    userID, err := h.Tokens.ValidateRefresh(ctx, hash, h.Clock.Now())
    if err != nil {
        return fail(c, http.StatusUnauthorized, "invalid refresh")
    }
    if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
        h.Logger.ErrorContext(ctx, "revoke refresh failed", "op", "auth.refresh", "user_id", userID, "error", err)
        return fail(c, http.StatusInternalServerError, "internal error")
    }
    u, err := h.Users.GetByID(ctx, userID)
    if errors.Is(err, repository.ErrNotFound) || (err == nil && !u.IsActive) {
        return fail(c, http.StatusUnauthorized, "invalid refresh")
    }
    if err != nil {
        h.Logger.ErrorContext(ctx, "load user failed", "op", "auth.refresh", "user_id", userID, "error", err)
        return fail(c, http.StatusInternalServerError, "internal error")
    }
    resp, err := h.issuePair(ctx, u)
    if err != nil {
        h.Logger.ErrorContext(ctx, "issue tokens failed", "op", "auth.refresh", "user_id", userID, "error", err)
        return fail(c, http.StatusInternalServerError, "internal error")
    }
    return ok(c, http.StatusOK, resp)
}

// RefreshAccess returns a new access token without rotating the refresh
// token.
func (h *AuthHandler) RefreshAccess(c echo.Context) error {
    var req refreshReq
    if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
        return fail(c, http.StatusBadRequest, "refresh_token required")
    }
    hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    userID, err := h.Tokens.ValidateRefresh(ctx, hash, h.Clock.Now())
    if err != nil {
        return fail(c, http.StatusUnauthorized, "invalid refresh")
    }
    u, err := h.Users.GetByID(ctx, userID)
    if errors.Is(err, repository.ErrNotFound) || (err == nil && !u.IsActive) {
        return fail(c, http.StatusUnauthorized, "invalid refresh")
    }
    if err != nil {
        h.Logger.ErrorContext(ctx, "load user failed", "op", "auth.refresh_access", "user_id", userID, "error", err)
        return fail(c, http.StatusInternalServerError, "internal error")
    }
    access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Email, u.Role, h.Cfg.AccessTTLMin)
    if err != nil {
        h.Logger.ErrorContext(ctx, "issue access failed", "op", "auth.refresh_access", "user_id", userID, "error", err)
        return fail(c, http.StatusInternalServerError, "internal error")
    }
    return ok(c, http.StatusOK, echo.Map{"access": tokenPart{Token: access.Token, Expires: access.Exp}})
}

// Logout revokes the presented refresh token.  Access tokens simply expire.
func (h *AuthHandler) Logout(c echo.Context) error {
    var req refreshReq
    _ = c.Bind(&req)
    raw := strings.TrimSpace(req.RefreshToken)
    if raw == "" {
        return fail(c, http.StatusBadRequest, "refresh_token required")
    }
    hash := utils.HashRefreshRaw(raw)

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    if _, err := h.Tokens.ValidateRefresh(ctx, hash, h.Clock.Now()); err != nil {
        return fail(c, http.StatusUnauthorized, "invalid refresh token")
    }
    if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
        h.Logger.ErrorContext(ctx, "revoke refresh failed", "op", "auth.logout", "error", err)
        return fail(c, http.StatusInternalServerError, "internal error")
    }
    return c.NoContent(http.StatusNoContent)
}

// Me returns the caller's account summary.  The API key itself is never
// echoed; only whether one is configured.
func (h *AuthHandler) Me(c echo.Context) error {
    id, found := middleware.IdentityFrom(c)
    if !found {
        return fail(c, http.StatusUnauthorized, "unauthorized")
    }
    u, err := h.Users.GetByID(c.Request().Context(), id.UserID)
    if errors.Is(err, repository.ErrNotFound) {
        return fail(c, http.StatusNotFound, "user not found")
    }
    if err != nil {
        h.Logger.ErrorContext(c.Request().Context(), "load user failed", "op", "account.me", "user_id", id.UserID, "error", err)
        return fail(c, http.StatusInternalServerError, "internal error")
    }
    return ok(c, http.StatusOK, meResp{
        userPart:  userPart{ID: u.ID, Email: u.Email, Role: h.Policy.Role(id)},
        Points:    u.Points,
        HasAPIKey: u.HasAPIKey(),
    })
}

// SetAPIKey stores the external API key handed to the agent on redemption.
// An empty key clears it.
func (h *AuthHandler) SetAPIKey(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return fail(c, http.StatusUnauthorized, "unauthorized")
    }
    var req apiKeyReq
    if err := c.Bind(&req); err != nil {
        return fail(c, http.StatusBadRequest, "invalid body")
    }
    key := strings.TrimSpace(req.APIKey)
    if len(key) > 255 {
        return fail(c, http.StatusBadRequest, "apiKey too long")
    }
    err = h.Users.SetAPIKey(c.Request().Context(), uid, key)
    if errors.Is(err, repository.ErrNotFound) {
        return fail(c, http.StatusNotFound, "user not found")
    }
    if err != nil {
        h.Logger.ErrorContext(c.Request().Context(), "store api key failed", "op", "account.api_key", "user_id", uid, "error", err)
        return fail(c, http.StatusInternalServerError, "internal error")
    }
    return ok(c, http.StatusOK, echo.Map{"hasApiKey": key != ""})
}

func bindCredentials(c echo.Context) (credentialsReq, error) {
    var req credentialsReq
    if err := c.Bind(&req); err != nil {
        return req, errors.New("invalid body")
    }
    req.Email = strings.ToLower(strings.TrimSpace(req.Email))
    if req.Email == "" || req.Password == "" {
        return req, errors.New("email/password required")
    }
    return req, nil
}

func (h *AuthHandler) issuePair(ctx context.Context, u model.User) (authResp, error) {
    access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Email, u.Role, h.Cfg.AccessTTLMin)
    if err != nil {
        return authResp{}, err
    }
    refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
    if err != nil {
        return authResp{}, err
    }
    if err := h.Tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
        return authResp{}, err
    }
    return authResp{
        User:    userPart{ID: u.ID, Email: u.Email, Role: u.Role},
        Access:  tokenPart{Token: access.Token, Expires: access.Exp},
        Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp}, // raw back to client
    }, nil
}
