package handler

import (
    "context"
    "log/slog"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/tixcode/internal/model"
    "github.com/iliyamo/tixcode/internal/service"
)

// Service surfaces used by CodeHandler; satisfied by the service package.
type (
    CodeIssuer interface {
        Issue(ctx context.Context, in service.IssueInput) (model.VerificationCode, error)
    }
    CodeRedeemer interface {
        Redeem(ctx context.Context, code string, requesterID uint64) (service.PurchaseConfiguration, error)
    }
    CodeBinder interface {
        Bind(ctx context.Context, in service.BindInput) (service.BindingResult, error)
    }
    PreferenceEditor interface {
        Update(ctx context.Context, code string, requesterID uint64, p model.Preferences) (service.PreferenceUpdate, error)
    }
    CodeLister interface {
        ListOwned(ctx context.Context, ownerID uint64) ([]model.OwnedCode, error)
    }
)

// CodeHandler serves the verification code endpoints used by the web
// front end and the desktop agent.
type CodeHandler struct {
    Issuer      CodeIssuer
    Redeemer    CodeRedeemer
    Binder      CodeBinder
    Preferences PreferenceEditor
    Lister      CodeLister
    PricePoints int64
    Logger      *slog.Logger
}

// ----- DTOs -----

type purchaseReq struct {
    EventID        uint64         `json:"eventId"`
    Preferences    preferencesDTO `json:"preferences"`
    PaymentOutcome string         `json:"paymentOutcome"`
}
type codeReq struct {
    VerificationCode string `json:"verificationCode"`
}
type bindReq struct {
    VerificationCode  string `json:"verificationCode"`
    ExternalAccountID string `json:"externalAccountId"`
    DeviceID          string `json:"deviceId"`
}

type issuedResp struct {
    VerificationCode       string         `json:"verificationCode"`
    EventID                uint64         `json:"eventId"`
    Preferences            preferencesDTO `json:"preferences"`
    RemainingModifications int            `json:"remainingModifications"`
    CreatedAt              time.Time      `json:"createdAt"`
}
type redeemResp struct {
    Event            eventSummaryDTO `json:"event"`
    Preferences      preferencesDTO  `json:"preferences"`
    APIKey           string          `json:"apiKey"`
    VerificationCode string          `json:"verificationCode"`
    UserID           uint64          `json:"userId"`
    ServerTime       time.Time       `json:"serverTime"`
}
type eventSummaryDTO struct {
    ID               uint64    `json:"id"`
    Name             string    `json:"name"`
    ActivityURL      string    `json:"activityUrl"`
    ActualTicketTime time.Time `json:"actualTicketTime"`
    Venue            string    `json:"venue"`
}
type bindResp struct {
    Bound        bool      `json:"bound"`
    AlreadyBound bool      `json:"alreadyBound"`
    BoundAccount string    `json:"boundAccount"`
    DeviceID     string    `json:"deviceId,omitempty"`
    BindDate     time.Time `json:"bindDate"`
}
type preferencesResp struct {
    VerificationCode       string         `json:"verificationCode"`
    Preferences            preferencesDTO `json:"preferences"`
    ModificationCount      int            `json:"modificationCount"`
    RemainingModifications int            `json:"remainingModifications"`
}

// Purchase spends points on a code for one event.  Gateway purchases go
// through PaymentHandler instead.
func (h *CodeHandler) Purchase(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return fail(c, http.StatusUnauthorized, "unauthorized")
    }
    var req purchaseReq
    if err := c.Bind(&req); err != nil {
        return fail(c, http.StatusBadRequest, "invalid body")
    }
    if req.EventID == 0 {
        return fail(c, http.StatusBadRequest, "eventId required")
    }
    kind := strings.ToLower(strings.TrimSpace(req.PaymentOutcome))
    if kind == "" {
        kind = string(service.PurchasePoints)
    }
    if kind != string(service.PurchasePoints) {
        return respondError(c, h.Logger, "codes.purchase", service.ErrUnknownPurchase, "event_id", req.EventID)
    }

    rec, err := h.Issuer.Issue(c.Request().Context(), service.IssueInput{
        OwnerID:     uid,
        EventID:     req.EventID,
        Preferences: req.Preferences.model(),
        Purchase:    service.PurchaseOutcome{Kind: service.PurchasePoints, Points: h.PricePoints},
    })
    if err != nil {
        return respondError(c, h.Logger, "codes.purchase", err, "event_id", req.EventID)
    }
    return ok(c, http.StatusCreated, issuedResp{
        VerificationCode:       rec.Code,
        EventID:                rec.EventID,
        Preferences:            toPreferencesDTO(rec.Preferences),
        RemainingModifications: rec.RemainingModifications(),
        CreatedAt:              rec.CreatedAt,
    })
}

// Redeem hands the agent its purchasing configuration.  Codes that do not
// exist and codes owned by someone else are answered identically.
func (h *CodeHandler) Redeem(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return fail(c, http.StatusUnauthorized, "unauthorized")
    }
    var req codeReq
    if err := c.Bind(&req); err != nil {
        return fail(c, http.StatusBadRequest, "invalid body")
    }
    cfg, err := h.Redeemer.Redeem(c.Request().Context(), req.VerificationCode, uid)
    if err != nil {
        return respondError(c, h.Logger, "codes.redeem", err, "code", service.CodePrefix(req.VerificationCode))
    }
    return ok(c, http.StatusOK, redeemResp{
        Event: eventSummaryDTO{
            ID:               cfg.Event.ID,
            Name:             cfg.Event.Name,
            ActivityURL:      cfg.Event.ActivityURL,
            ActualTicketTime: cfg.Event.ActualTicketTime,
            Venue:            cfg.Event.Venue,
        },
        Preferences:      toPreferencesDTO(cfg.Preferences),
        APIKey:           cfg.APIKey,
        VerificationCode: cfg.Code,
        UserID:           cfg.UserID,
        ServerTime:       cfg.ServerTime,
    })
}

// Bind attaches the agent's ticketing account to a code.
func (h *CodeHandler) Bind(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return fail(c, http.StatusUnauthorized, "unauthorized")
    }
    var req bindReq
    if err := c.Bind(&req); err != nil {
        return fail(c, http.StatusBadRequest, "invalid body")
    }
    res, err := h.Binder.Bind(c.Request().Context(), service.BindInput{
        Code:              req.VerificationCode,
        RequesterID:       uid,
        ExternalAccountID: req.ExternalAccountID,
        DeviceID:          req.DeviceID,
        RemoteAddr:        c.RealIP(),
    })
    if err != nil {
        return respondError(c, h.Logger, "codes.bind", err, "code", service.CodePrefix(req.VerificationCode))
    }
    return ok(c, http.StatusOK, bindResp{
        Bound:        res.Bound,
        AlreadyBound: res.AlreadyBound,
        BoundAccount: res.Account,
        DeviceID:     res.DeviceID,
        BindDate:     res.BoundAt,
    })
}

// List returns the caller's codes, newest first, with their derived status.
func (h *CodeHandler) List(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return fail(c, http.StatusUnauthorized, "unauthorized")
    }
    codes, err := h.Lister.ListOwned(c.Request().Context(), uid)
    if err != nil {
        return respondError(c, h.Logger, "codes.list", err)
    }
    out := make([]ownedCodeDTO, 0, len(codes))
    for _, oc := range codes {
        out = append(out, toOwnedCodeDTO(oc))
    }
    return ok(c, http.StatusOK, out)
}

// UpdatePreferences replaces the preferences on one of the caller's codes.
func (h *CodeHandler) UpdatePreferences(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return fail(c, http.StatusUnauthorized, "unauthorized")
    }
    code := c.Param("code")
    var req preferencesDTO
    if err := c.Bind(&req); err != nil {
        return fail(c, http.StatusBadRequest, "invalid body")
    }
    upd, err := h.Preferences.Update(c.Request().Context(), code, uid, req.model())
    if err != nil {
        return respondError(c, h.Logger, "codes.preferences", err, "code", service.CodePrefix(code))
    }
    return ok(c, http.StatusOK, preferencesResp{
        VerificationCode:       upd.Code.Code,
        Preferences:            toPreferencesDTO(upd.Code.Preferences),
        ModificationCount:      upd.Code.ModificationCount,
        RemainingModifications: upd.Remaining,
    })
}
