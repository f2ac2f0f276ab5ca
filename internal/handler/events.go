package handler

import (
    "context"
    "log/slog"
    "net/http"
    "strconv"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/tixcode/internal/model"
    "github.com/iliyamo/tixcode/internal/repository"
)

// EventCatalog lists the events codes can be bought for.
type EventCatalog interface {
    SearchEvents(ctx context.Context, q repository.EventSearchQuery) ([]model.Event, int64, error)
    Event(ctx context.Context, id uint64) (model.Event, error)
}

// EventHandler serves the public event browse endpoints.
type EventHandler struct {
    Catalog EventCatalog
    Logger  *slog.Logger
}

const (
    defaultPageSize = 20
    maxPageSize     = 100
)

// List returns events ordered by ticket time.
// Query: ?name=&venue=&when=upcoming|onsale|any&limit=20&offset=0
func (h *EventHandler) List(c echo.Context) error {
    q := repository.EventSearchQuery{
        Name:   strings.TrimSpace(c.QueryParam("name")),
        Venue:  strings.TrimSpace(c.QueryParam("venue")),
        When:   c.QueryParam("when"),
        Limit:  defaultPageSize,
    }
    if v, err := strconv.Atoi(c.QueryParam("limit")); err == nil && v > 0 {
        q.Limit = v
    }
    if q.Limit > maxPageSize {
        q.Limit = maxPageSize
    }
    if v, err := strconv.Atoi(c.QueryParam("offset")); err == nil && v > 0 {
        q.Offset = v
    }
    events, total, err := h.Catalog.SearchEvents(c.Request().Context(), q)
    if err != nil {
        return respondError(c, h.Logger, "events.list", err)
    }
    out := make([]eventDTO, 0, len(events))
    for _, e := range events {
        out = append(out, toEventDTO(e))
    }
    return ok(c, http.StatusOK, echo.Map{"items": out, "total": total, "limit": q.Limit, "offset": q.Offset})
}

// Get returns one event.
func (h *EventHandler) Get(c echo.Context) error {
    id, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil || id == 0 {
        return fail(c, http.StatusBadRequest, "invalid id")
    }
    e, err := h.Catalog.Event(c.Request().Context(), id)
    if err != nil {
        return respondError(c, h.Logger, "events.get", err, "event_id", id)
    }
    return ok(c, http.StatusOK, toEventDTO(e))
}
