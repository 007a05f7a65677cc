package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"carpool/internal/middleware"
	"carpool/internal/service"
)

const searchDateLayout = "2006-01-02"

// SearchHandler handles ride search.
type SearchHandler struct {
	searchService *service.SearchService
}

// NewSearchHandler creates a new SearchHandler.
func NewSearchHandler(searchService *service.SearchService) *SearchHandler {
	return &SearchHandler{searchService: searchService}
}

// Search handles GET /v1/rides/search?origin=&destination=&from=&to=
//
// from and to are calendar days (YYYY-MM-DD, UTC); to includes the whole day.
func (h *SearchHandler) Search(c *gin.Context) {
	from, err := parseSearchDate(c.Query("from"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid from date, expected YYYY-MM-DD"})
		return
	}
	to, err := parseSearchDate(c.Query("to"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid to date, expected YYYY-MM-DD"})
		return
	}
	if !to.IsZero() {
		to = to.Add(24*time.Hour - time.Nanosecond)
	}

	rides, err := h.searchService.Search(c.Request.Context(), service.SearchRequest{
		CallerID:    middleware.CallerID(c),
		Origin:      c.Query("origin"),
		Destination: c.Query("destination"),
		From:        from,
		To:          to,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRideResponses(rides))
}

func parseSearchDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(searchDateLayout, s)
}
