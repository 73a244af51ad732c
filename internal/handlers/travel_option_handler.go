package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/travel-booking-backend/internal/models"
)

// TravelOptionFinder is the search side used by TravelOptionHandler.
// *services.SearchService implements it.
type TravelOptionFinder interface {
	Search(ctx context.Context, req *models.SearchRequest) ([]models.TravelOption, error)
	GetTravelOption(ctx context.Context, id uuid.UUID) (*models.TravelOption, error)
	PopularRoutes(ctx context.Context, limit int) ([]models.PopularRoute, error)
}

// TravelOptionHandler handles HTTP requests for travel options
type TravelOptionHandler struct {
	finder TravelOptionFinder
	logger *logrus.Logger
}

// NewTravelOptionHandler creates a new travel option handler
func NewTravelOptionHandler(finder TravelOptionFinder, logger *logrus.Logger) *TravelOptionHandler {
	return &TravelOptionHandler{finder: finder, logger: logger}
}

// Search handles GET /api/v1/travel-options/search
// @Summary Search travel options
// @Description Options on a route and date with enough free seats, cheapest first
// @Tags Travel Options
// @Produce json
// @Param type query string false "flight, train, bus or all"
// @Param source query string true "Source city"
// @Param destination query string true "Destination city"
// @Param departureDate query string true "YYYY-MM-DD"
// @Param passengers query int false "1-10, default 1"
// @Param maxPrice query string false "Upper price bound"
// @Success 200 {array} models.TravelOption
// @Failure 400 {object} ErrorResponse
// @Router /api/v1/travel-options/search [get]
func (h *TravelOptionHandler) Search(c *gin.Context) {
	var req models.SearchRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, "Invalid search parameters")
		return
	}

	options, err := h.finder.Search(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, options)
}

// GetTravelOption handles GET /api/v1/travel-options/:id
// @Summary Get a travel option
// @Tags Travel Options
// @Produce json
// @Param id path string true "Travel option ID"
// @Success 200 {object} models.TravelOption
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/travel-options/{id} [get]
func (h *TravelOptionHandler) GetTravelOption(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "Invalid travel option ID")
		return
	}

	option, err := h.finder.GetTravelOption(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, option)
}

// PopularRoutes handles GET /api/v1/travel-options/popular-routes
func (h *TravelOptionHandler) PopularRoutes(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			badRequest(c, "limit must be a number")
			return
		}
		limit = parsed
	}

	routes, err := h.finder.PopularRoutes(c.Request.Context(), limit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, routes)
}
