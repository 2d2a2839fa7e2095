package routes

import "github.com/labstack/echo/v4"

// errorJSON writes {"detail": msg}, the error shape clients of the API
// already understand.
func errorJSON(c echo.Context, code int, msg string) error {
	return c.JSON(code, map[string]string{"detail": msg})
}
