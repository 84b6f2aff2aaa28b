package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/gtd_stock/internal/models"
	"github.com/GTDGit/gtd_stock/internal/utils"
)

// SearchService resolves free-text queries.
type SearchService interface {
	Search(ctx context.Context, query string) (*models.SearchResult, error)
}

// SearchHandler handles the global search endpoint.
type SearchHandler struct {
	search SearchService
}

// NewSearchHandler constructs a SearchHandler.
func NewSearchHandler(search SearchService) *SearchHandler {
	return &SearchHandler{search: search}
}

// Search handles GET /v1/search?q=
func (h *SearchHandler) Search(c *gin.Context) {
	result, err := h.search.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		utils.Fail(c, err, "Search failed")
		return
	}
	utils.Success(c, 200, "Search completed", result)
}
