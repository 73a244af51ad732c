package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/travel-booking-backend/internal/models"
	"github.com/smarttransit/travel-booking-backend/internal/services"
)

// IdempotencyKeyHeader lets clients retry POST /bookings safely
const IdempotencyKeyHeader = "Idempotency-Key"

// BookingManager is the booking side used by BookingHandler.
// *services.BookingService implements it.
type BookingManager interface {
	CreateBooking(ctx context.Context, userID uuid.UUID, req *models.CreateBookingRequest) (*models.BookingWithTravelOption, bool, error)
	CancelBooking(ctx context.Context, bookingID, userID uuid.UUID) (*models.Booking, error)
	GetUserBookings(ctx context.Context, userID uuid.UUID, scope models.BookingScope) ([]models.BookingWithTravelOption, error)
	GetBookingForUser(ctx context.Context, bookingID, userID uuid.UUID) (*models.BookingWithTravelOption, error)
}

// TicketRenderer renders a booking's e-ticket. *services.TicketService implements it.
type TicketRenderer interface {
	RenderTicket(booking *models.BookingWithTravelOption) ([]byte, error)
}

// BookingHandler handles HTTP requests for the caller's bookings
type BookingHandler struct {
	bookings BookingManager
	tickets  TicketRenderer
	logger   *logrus.Logger
}

// NewBookingHandler creates a new booking handler
func NewBookingHandler(bookings BookingManager, tickets TicketRenderer, logger *logrus.Logger) *BookingHandler {
	return &BookingHandler{
		bookings: bookings,
		tickets:  tickets,
		logger:   logger,
	}
}

// CancelBookingResponse is returned by PATCH /bookings/:id/cancel
type CancelBookingResponse struct {
	Message string          `json:"message"`
	Booking *models.Booking `json:"booking"`
}

// CreateBooking handles POST /api/v1/bookings
// @Summary Book seats on a travel option
// @Description The total price is computed server-side. Send an Idempotency-Key header to retry safely.
// @Tags Bookings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param Idempotency-Key header string false "Client-chosen key, at most 64 characters"
// @Param request body models.CreateBookingRequest true "Booking details"
// @Success 201 {object} models.BookingWithTravelOption
// @Success 200 {object} models.BookingWithTravelOption "Replay of an earlier request with the same key"
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/bookings [post]
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}

	var req models.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.WithError(err).Debug("Invalid create booking payload")
		badRequest(c, "Invalid booking data")
		return
	}
	req.IdempotencyKey = c.GetHeader(IdempotencyKeyHeader)

	booking, replayed, err := h.bookings.CreateBooking(c.Request.Context(), user.UserID, &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	status := http.StatusCreated
	if replayed {
		status = http.StatusOK
	}
	c.JSON(status, booking)
}

// GetUserBookings handles GET /api/v1/bookings?scope=all|upcoming|past
func (h *BookingHandler) GetUserBookings(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}

	scope, err := models.ParseBookingScope(c.Query("scope"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	bookings, err := h.bookings.GetUserBookings(c.Request.Context(), user.UserID, scope)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, bookings)
}

// GetBooking handles GET /api/v1/bookings/:id
func (h *BookingHandler) GetBooking(c *gin.Context) {
	booking, ok := h.loadOwnBooking(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, booking)
}

// DownloadTicket handles GET /api/v1/bookings/:id/ticket
func (h *BookingHandler) DownloadTicket(c *gin.Context) {
	booking, ok := h.loadOwnBooking(c)
	if !ok {
		return
	}

	pdf, err := h.tickets.RenderTicket(booking)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, services.TicketFilename(booking)))
	c.Data(http.StatusOK, "application/pdf", pdf)
}

// CancelBooking handles PATCH /api/v1/bookings/:id/cancel
// @Summary Cancel a booking
// @Description Returns the seats to the travel option. Bookings of other users are reported as not found.
// @Tags Bookings
// @Produce json
// @Security BearerAuth
// @Param id path string true "Booking ID"
// @Success 200 {object} CancelBookingResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "Already cancelled"
// @Router /api/v1/bookings/{id}/cancel [patch]
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}

	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "Invalid booking ID")
		return
	}

	booking, err := h.bookings.CancelBooking(c.Request.Context(), bookingID, user.UserID)
	if models.IsAuthorization(err) {
		err = &models.NotFoundError{Resource: "booking", ID: bookingID.String()}
	}
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, CancelBookingResponse{
		Message: "Booking cancelled successfully",
		Booking: booking,
	})
}

func (h *BookingHandler) loadOwnBooking(c *gin.Context) (*models.BookingWithTravelOption, bool) {
	user, ok := requireUser(c)
	if !ok {
		return nil, false
	}

	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "Invalid booking ID")
		return nil, false
	}

	booking, err := h.bookings.GetBookingForUser(c.Request.Context(), bookingID, user.UserID)
	if err != nil {
		respondError(c, h.logger, err)
		return nil, false
	}
	return booking, true
}
