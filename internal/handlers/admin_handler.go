package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/travel-booking-backend/internal/models"
)

// InventoryManager is the inventory side used by AdminHandler.
// *services.InventoryService implements it.
type InventoryManager interface {
	CreateTravelOption(ctx context.Context, req *models.CreateTravelOptionRequest) (*models.TravelOption, error)
	SeedSampleData(ctx context.Context) (int, error)
	AuditInventory(ctx context.Context) ([]models.InventoryDiscrepancy, error)
}

// AdminHandler handles admin-related HTTP requests
type AdminHandler struct {
	inventory InventoryManager
	logger    *logrus.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(inventory InventoryManager, logger *logrus.Logger) *AdminHandler {
	return &AdminHandler{
		inventory: inventory,
		logger:    logger,
	}
}

// SeedResponse reports how many travel options were seeded
type SeedResponse struct {
	Created int `json:"created"`
}

// CreateTravelOption handles POST /api/v1/admin/travel-options
// @Summary Create a travel option
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.CreateTravelOptionRequest true "Travel option"
// @Success 201 {object} models.TravelOption
// @Failure 400 {object} ErrorResponse
// @Router /api/v1/admin/travel-options [post]
func (h *AdminHandler) CreateTravelOption(c *gin.Context) {
	var req models.CreateTravelOptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.WithError(err).Debug("Invalid travel option payload")
		badRequest(c, "Invalid travel option data")
		return
	}

	option, err := h.inventory.CreateTravelOption(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, option)
}

// SeedSampleData handles POST /api/v1/admin/seed
func (h *AdminHandler) SeedSampleData(c *gin.Context) {
	created, err := h.inventory.SeedSampleData(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, SeedResponse{Created: created})
}

// AuditInventory handles GET /api/v1/admin/inventory/audit
func (h *AdminHandler) AuditInventory(c *gin.Context) {
	discrepancies, err := h.inventory.AuditInventory(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	if discrepancies == nil {
		discrepancies = []models.InventoryDiscrepancy{}
	}
	c.JSON(http.StatusOK, discrepancies)
}
