package handler

import (
    "errors"
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/tixcode/internal/middleware"
)

// envelope is the body of every JSON response.
type envelope struct {
    Success bool        `json:"success"`
    Message string      `json:"message,omitempty"`
    Data    interface{} `json:"data,omitempty"`
}

func ok(c echo.Context, status int, data interface{}) error {
    return c.JSON(status, envelope{Success: true, Data: data})
}

func fail(c echo.Context, status int, msg string) error {
    return c.JSON(status, envelope{Success: false, Message: msg})
}

var errNoIdentity = errors.New("no authenticated identity in context")

// getUserID returns the caller's id as stored by the auth middleware.
func getUserID(c echo.Context) (uint64, error) {
    if id, ok := middleware.IdentityFrom(c); ok {
        return id.UserID, nil
    }
    switch t := c.Get("user_id").(type) {
    case uint64:
        if t != 0 {
            return t, nil
        }
    case string:
        if n, err := strconv.ParseUint(t, 10, 64); err == nil && n != 0 {
            return n, nil
        }
    }
    return 0, errNoIdentity
}
