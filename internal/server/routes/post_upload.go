package routes

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"unicode/utf8"

	"github.com/labstack/echo/v4"

	"github.com/OFFIS-RIT/bookgraph/internal/server/middleware"
	"github.com/OFFIS-RIT/bookgraph/internal/storage"
	"github.com/OFFIS-RIT/bookgraph/pkg/chunk"
	"github.com/OFFIS-RIT/bookgraph/pkg/loader"
	"github.com/OFFIS-RIT/bookgraph/pkg/logger"
)

type uploadResponse struct {
	Filename        string `json:"filename"`
	Message         string `json:"message"`
	TextLength      int    `json:"text_length"`
	EstimatedTokens int    `json:"estimated_tokens"`
}

// UploadHandler stores a book file and checks that text can be extracted
// from it. Files without text are removed again.
func UploadHandler(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "No file uploaded")
	}
	filename := filepath.Base(fh.Filename)

	format, err := loader.DetectFormat(filename)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "Unsupported file format. Please upload PDF or TXT.")
	}

	f, err := fh.Open()
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "Could not read uploaded file")
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "Could not read uploaded file")
	}

	ctx := c.Request().Context()
	a := middleware.App(c)
	key := storage.UploadKey(filename)
	if err := a.Blobs.Put(ctx, key, data); err != nil {
		logger.Error("[Upload] Failed to store upload", "filename", filename, "err", err)
		return errorJSON(c, http.StatusInternalServerError, err.Error())
	}

	text, err := loader.Extract(ctx, format, data)
	if err != nil {
		if delErr := a.Blobs.Delete(ctx, key); delErr != nil {
			logger.Warn("[Upload] Failed to remove unusable upload", "filename", filename, "err", delErr)
		}
		if errors.Is(err, loader.ErrEmptyText) {
			return errorJSON(c, http.StatusBadRequest, "Failed to extract text from file. File might be empty or corrupted.")
		}
		logger.Error("[Upload] Text extraction failed", "filename", filename, "err", err)
		return errorJSON(c, http.StatusInternalServerError, err.Error())
	}

	logger.Info("[Upload] File uploaded", "filename", filename, "bytes", len(data))
	return c.JSON(http.StatusOK, uploadResponse{
		Filename:        filename,
		Message:         "File uploaded successfully",
		TextLength:      utf8.RuneCountInString(text),
		EstimatedTokens: chunk.EstimateTokens(text),
	})
}
