package middleware // middleware holds the echo middleware shared by the route groups

import (
    "log/slog"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/tixcode/internal/utils"
)

// JWTAuth validates the Authorization header on every request it wraps and
// stores the verified identity in the context.  Failures are answered with
// a generic 401; the reason is only logged at debug level.
func JWTAuth(secret string, logger *slog.Logger) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            id, err := utils.VerifyBearer(secret, c.Request().Header.Get(echo.HeaderAuthorization))
            if err != nil {
                logger.DebugContext(c.Request().Context(), "rejected credential",
                    "path", c.Path(), "reason", err)
                return fail(c, http.StatusUnauthorized, "unauthorized")
            }
            setIdentity(c, id)
            return next(c)
        }
    }
}

// fail writes the standard error envelope.
func fail(c echo.Context, status int, msg string) error {
    return c.JSON(status, echo.Map{"success": false, "message": msg})
}
