package routes

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/OFFIS-RIT/bookgraph/internal/server/middleware"
	"github.com/OFFIS-RIT/bookgraph/internal/task"
)

func GetStatusHandler(c echo.Context) error {
	t, err := middleware.App(c).Tasks.Get(c.Request().Context(), c.Param("task_id"))
	if errors.Is(err, task.ErrNotFound) {
		return errorJSON(c, http.StatusNotFound, "Task not found")
	}
	if err != nil {
		return errorJSON(c, http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, t)
}
