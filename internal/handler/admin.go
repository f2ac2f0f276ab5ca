package handler

import (
    "context"
    "log/slog"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/tixcode/internal/service"
)

// CodeSweeper reconciles code status with event end dates.
type CodeSweeper interface {
    RunOnce(ctx context.Context) (service.SweepResult, error)
}

// AdminHandler exposes maintenance operations to allowlisted admins.
type AdminHandler struct {
    Sweeper CodeSweeper
    Logger  *slog.Logger
}

// Sweep runs one sweep immediately instead of waiting for the ticker.
func (h *AdminHandler) Sweep(c echo.Context) error {
    res, err := h.Sweeper.RunOnce(c.Request().Context())
    if err != nil {
        return respondError(c, h.Logger, "admin.sweep", err)
    }
    return ok(c, http.StatusOK, echo.Map{"expired": res.Expired, "purged": res.Purged})
}
