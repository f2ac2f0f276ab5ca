package handler

import (
    "errors"
    "log/slog"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/tixcode/internal/service"
)

// errorStatus maps service errors to the status and client message.  The
// first match wins; unknown errors become a generic 500.
var errorStatus = []struct {
    err    error
    status int
    msg    string
}{
    {service.ErrInvalidPreferences, http.StatusBadRequest, "preferences: sessionIndex and ticketCount must be at least 1"},
    {service.ErrMissingParameters, http.StatusBadRequest, "missing required parameters"},
    {service.ErrUnknownPurchase, http.StatusBadRequest, "unsupported paymentOutcome"},
    {service.ErrNoAPIKeyConfigured, http.StatusBadRequest, "configure your API key in settings"},
    {service.ErrCodeNotFound, http.StatusNotFound, "invalid code or no access"},
    {service.ErrEventNotFound, http.StatusNotFound, "event not found"},
    {service.ErrUserNotFound, http.StatusNotFound, "user not found"},
    {service.ErrOrderNotFound, http.StatusNotFound, "payment order not found"},
    {service.ErrInsufficientPoints, http.StatusPaymentRequired, "insufficient points"},
    {service.ErrModificationLimitExceeded, http.StatusForbidden, "no preference edits remaining"},
    {service.ErrBindingConflict, http.StatusConflict, "this code is already bound to another account"},
    {service.ErrCodeAlreadyIssued, http.StatusConflict, "you already have a code for this event"},
    {service.ErrOrderAlreadyProcessed, http.StatusConflict, "payment order already processed"},
    {service.ErrCodeExpired, http.StatusGone, "event has ended"},
    {service.ErrEventExpired, http.StatusGone, "event has ended"},
}

func statusFor(err error) (int, string) {
    for _, e := range errorStatus {
        if errors.Is(err, e.err) {
            return e.status, e.msg
        }
    }
    return http.StatusInternalServerError, "internal error"
}

// respondError logs err with the operation context and writes the mapped
// envelope.  attrs must never include a full code or API key.
func respondError(c echo.Context, log *slog.Logger, op string, err error, attrs ...any) error {
    status, msg := statusFor(err)
    attrs = append([]any{"op", op, "status", status, "error", err}, attrs...)
    if uid, idErr := getUserID(c); idErr == nil {
        attrs = append(attrs, "user_id", uid)
    }
    ctx := c.Request().Context()
    if status >= http.StatusInternalServerError {
        log.ErrorContext(ctx, "request failed", attrs...)
    } else {
        log.InfoContext(ctx, "request rejected", attrs...)
    }
    return fail(c, status, msg)
}
