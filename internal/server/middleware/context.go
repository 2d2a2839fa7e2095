package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/OFFIS-RIT/bookgraph/internal/app"
)

// AppContext gives handlers access to the process dependencies.
type AppContext struct {
	echo.Context
	App *app.App
}

func AppContextMiddleware(a *app.App) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			return next(&AppContext{Context: c, App: a})
		}
	}
}

// App returns the dependencies of the request.
func App(c echo.Context) *app.App {
	return c.(*AppContext).App
}
