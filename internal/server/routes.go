package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/OFFIS-RIT/bookgraph/internal/app"
	"github.com/OFFIS-RIT/bookgraph/internal/server/middleware"
	"github.com/OFFIS-RIT/bookgraph/internal/server/routes"
)

func RegisterRoutes(e *echo.Echo, a *app.App) {
	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"message": "BookAnalyzer API is running"})
	})
	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	})
	e.GET("/metrics", echo.WrapHandler(a.Metrics.Handler()))

	api := e.Group("", middleware.TokenAuth(a.Config.APIToken))

	// Upload and analysis
	api.POST("/upload", routes.UploadHandler)
	api.POST("/analyze", routes.AnalyzeHandler)
	api.GET("/status/:task_id", routes.GetStatusHandler)

	// Results
	api.GET("/books", routes.GetBooksHandler)
	api.GET("/book/:book_id", routes.GetBookGraphHandler)
	api.POST("/query", routes.QueryHandler)
}
