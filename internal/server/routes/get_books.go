package routes

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/OFFIS-RIT/bookgraph/internal/server/middleware"
	"github.com/OFFIS-RIT/bookgraph/internal/storage"
)

// GetBooksHandler returns the catalogue keyed by book ID.
func GetBooksHandler(c echo.Context) error {
	books, err := middleware.App(c).Books.All(c.Request().Context())
	if err != nil {
		return errorJSON(c, http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, books)
}

// GetBookGraphHandler returns the stored graph document as is.
func GetBookGraphHandler(c echo.Context) error {
	bookID := c.Param("book_id")
	if bookID == "" || bookID == "." || bookID == ".." {
		return errorJSON(c, http.StatusNotFound, "Graph not found")
	}

	data, err := middleware.App(c).Blobs.Get(c.Request().Context(), storage.GraphKey(bookID))
	if errors.Is(err, storage.ErrNotFound) {
		return errorJSON(c, http.StatusNotFound, "Graph not found")
	}
	if err != nil {
		return errorJSON(c, http.StatusInternalServerError, err.Error())
	}
	return c.JSONBlob(http.StatusOK, data)
}
