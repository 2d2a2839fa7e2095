package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/OFFIS-RIT/bookgraph/internal/server/middleware"
	"github.com/OFFIS-RIT/bookgraph/pkg/logger"
)

// QueryHandler answers a question about an indexed book.
func QueryHandler(c echo.Context) error {
	type queryBody struct {
		BookID string `json:"book_id" validate:"required"`
		Query  string `json:"query" validate:"required"`
		APIKey string `json:"api_key"`
	}

	body := new(queryBody)
	if err := c.Bind(body); err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(body); err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid request body")
	}

	a := middleware.App(c)
	answerer, err := a.Answerer(body.APIKey)
	if err != nil {
		a.Metrics.QueryAnswered("error")
		return errorJSON(c, http.StatusInternalServerError, err.Error())
	}

	ans, err := answerer.Answer(c.Request().Context(), body.BookID, body.Query)
	if err != nil {
		logger.Error("[Query] Failed to answer question", "book_id", body.BookID, "err", err)
		a.Metrics.QueryAnswered("error")
		return errorJSON(c, http.StatusInternalServerError, err.Error())
	}

	if ans.NotIndexed {
		a.Metrics.QueryAnswered("not_indexed")
	} else {
		a.Metrics.QueryAnswered("answered")
	}
	return c.JSON(http.StatusOK, ans)
}
