package routes

import (
	"net/http"
	"path/filepath"

	"github.com/labstack/echo/v4"

	"github.com/OFFIS-RIT/bookgraph/internal/queue"
	"github.com/OFFIS-RIT/bookgraph/internal/server/middleware"
	"github.com/OFFIS-RIT/bookgraph/internal/storage"
	"github.com/OFFIS-RIT/bookgraph/internal/task"
	"github.com/OFFIS-RIT/bookgraph/pkg/loader"
	"github.com/OFFIS-RIT/bookgraph/pkg/logger"
)

// AnalyzeHandler starts an analysis of an uploaded file and returns the
// task to poll.
func AnalyzeHandler(c echo.Context) error {
	type analyzeBody struct {
		Filename string `json:"filename" validate:"required"`
		APIKey   string `json:"api_key"`
		Title    string `json:"title"`
	}

	body := new(analyzeBody)
	if err := c.Bind(body); err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(body); err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid request body")
	}

	ctx := c.Request().Context()
	a := middleware.App(c)
	filename := filepath.Base(body.Filename)

	exists, err := a.Blobs.Exists(ctx, storage.UploadKey(filename))
	if err != nil {
		logger.Error("[Analyze] Failed to look up upload", "filename", filename, "err", err)
		return errorJSON(c, http.StatusInternalServerError, err.Error())
	}
	if !exists {
		return errorJSON(c, http.StatusNotFound, "File not found")
	}

	t, err := a.Tasks.Create(ctx)
	if err != nil {
		logger.Error("[Analyze] Failed to create task", "err", err)
		return errorJSON(c, http.StatusInternalServerError, err.Error())
	}

	bookID := loader.BookID(filename)
	title := body.Title
	if title == "" {
		title = bookID
	}
	job := queue.Job{
		TaskID:   t.ID,
		BookID:   bookID,
		Title:    title,
		Filename: filename,
		APIKey:   body.APIKey,
	}
	if err := a.Dispatcher.Submit(ctx, job); err != nil {
		logger.Error("[Analyze] Failed to dispatch job", "task_id", t.ID, "err", err)
		if _, uErr := a.Tasks.Update(ctx, t.ID, task.Fail(err)); uErr != nil {
			logger.Warn("[Analyze] Failed to mark task failed", "task_id", t.ID, "err", uErr)
		}
		return errorJSON(c, http.StatusInternalServerError, err.Error())
	}

	logger.Info("[Analyze] Analysis started", "task_id", t.ID, "book_id", bookID)
	return c.JSON(http.StatusOK, map[string]string{
		"task_id": t.ID,
		"status":  string(task.StatusProcessing),
	})
}
