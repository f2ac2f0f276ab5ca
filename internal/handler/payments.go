package handler

import (
    "context"
    "errors"
    "log/slog"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/tixcode/internal/model"
    "github.com/iliyamo/tixcode/internal/service"
)

// Payments is the gateway checkout flow.
type Payments interface {
    CreateOrder(ctx context.Context, userID, eventID uint64, p model.Preferences) (service.Checkout, error)
    HandleNotify(ctx context.Context, params map[string]string) error
}

// PaymentHandler starts gateway checkouts and receives the gateway's
// server-to-server completion notice.
type PaymentHandler struct {
    Payments Payments
    Logger   *slog.Logger
}

type orderReq struct {
    EventID     uint64         `json:"eventId"`
    Preferences preferencesDTO `json:"preferences"`
}
type checkoutResp struct {
    TradeNo    string            `json:"tradeNo"`
    AmountTWD  int               `json:"amount"`
    GatewayURL string            `json:"gatewayUrl"`
    Fields     map[string]string `json:"fields"`
}

// CreateOrder records a pending order and returns the form the browser
// posts to the gateway.
func (h *PaymentHandler) CreateOrder(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return fail(c, http.StatusUnauthorized, "unauthorized")
    }
    var req orderReq
    if err := c.Bind(&req); err != nil {
        return fail(c, http.StatusBadRequest, "invalid body")
    }
    if req.EventID == 0 {
        return fail(c, http.StatusBadRequest, "eventId required")
    }
    co, err := h.Payments.CreateOrder(c.Request().Context(), uid, req.EventID, req.Preferences.model())
    if err != nil {
        return respondError(c, h.Logger, "payments.order", err, "event_id", req.EventID)
    }
    return ok(c, http.StatusCreated, checkoutResp{
        TradeNo:    co.Order.TradeNo,
        AmountTWD:  co.Order.AmountTWD,
        GatewayURL: co.GatewayURL,
        Fields:     co.Fields,
    })
}

// Notify answers the gateway in its own plain text protocol: "1|OK" when
// the notice was accepted (or was a repeat), "0|reason" otherwise so the
// gateway retries.
func (h *PaymentHandler) Notify(c echo.Context) error {
    form, err := c.FormParams()
    if err != nil {
        return c.String(http.StatusBadRequest, "0|invalid form")
    }
    params := make(map[string]string, len(form))
    for k, v := range form {
        if len(v) > 0 {
            params[k] = v[0]
        }
    }
    ctx := c.Request().Context()
    if err := h.Payments.HandleNotify(ctx, params); err != nil {
        switch {
        case errors.Is(err, service.ErrInvalidCheckMac):
            h.Logger.WarnContext(ctx, "rejected payment notice", "op", "payments.notify", "remote", c.RealIP())
            return c.String(http.StatusBadRequest, "0|CheckMacValue Error")
        case errors.Is(err, service.ErrOrderNotFound), errors.Is(err, service.ErrMissingParameters):
            h.Logger.WarnContext(ctx, "payment notice for unknown order", "op", "payments.notify", "trade_no", params["MerchantTradeNo"])
            return c.String(http.StatusOK, "0|order not found")
        default:
            h.Logger.ErrorContext(ctx, "payment notice failed", "op", "payments.notify", "trade_no", params["MerchantTradeNo"], "error", err)
            return c.String(http.StatusOK, "0|error")
        }
    }
    return c.String(http.StatusOK, "1|OK")
}
