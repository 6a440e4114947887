package middleware

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/cmis-dev/event-registration/internal/model"
)

// RequireRole enforces that the authenticated user holds one of the
// given roles.  It assumes JWTAuth has already stored the "role" claim
// in the context; requests without an allowed role get 403.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
    allowed := make(map[model.Role]bool, len(roles))
    for _, r := range roles {
        allowed[r] = true
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            role, _ := c.Get("role").(string)
            if !allowed[model.Role(role)] {
                return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
            }
            return next(c)
        }
    }
}

// ForbidRole rejects requests whose role is in the given set.  Used to
// keep admin accounts from registering for events.
func ForbidRole(roles ...model.Role) echo.MiddlewareFunc {
    denied := make(map[model.Role]bool, len(roles))
    for _, r := range roles {
        denied[r] = true
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            role, _ := c.Get("role").(string)
            if denied[model.Role(role)] {
                return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden for this role"})
            }
            return next(c)
        }
    }
}
