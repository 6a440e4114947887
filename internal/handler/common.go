// Package handler implements the HTTP endpoints of the API.  Handlers
// assume JWT authentication and role checks have been applied by
// middleware where required.
package handler

import (
    "errors"

    "github.com/labstack/echo/v4"
)

// getUserID extracts the authenticated user's ID from the context.  It
// is stored by the JWT middleware as a uint64.
func getUserID(c echo.Context) (uint64, error) {
    if id, ok := c.Get("user_id").(uint64); ok && id != 0 {
        return id, nil
    }
    return 0, errors.New("missing user_id in context")
}
