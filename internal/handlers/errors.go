package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/travel-booking-backend/internal/middleware"
	"github.com/smarttransit/travel-booking-backend/internal/models"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// respondError maps domain errors to HTTP responses. Unknown errors are logged and
// reported as a generic 500.
func respondError(c *gin.Context, logger *logrus.Logger, err error) {
	var (
		validationErr    *models.ValidationError
		notFoundErr      *models.NotFoundError
		capacityErr      *models.CapacityError
		authorizationErr *models.AuthorizationError
		invalidStateErr  *models.InvalidStateError
	)

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: validationErr.Error(), Code: "VALIDATION_ERROR"})
	case errors.As(err, &notFoundErr):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "not_found", Message: notFoundMessage(notFoundErr.Resource), Code: "NOT_FOUND"})
	case errors.As(err, &capacityErr):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "insufficient_seats", Message: capacityErr.Error(), Code: "INSUFFICIENT_SEATS"})
	case errors.As(err, &authorizationErr):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "forbidden", Message: authorizationErr.Error(), Code: "FORBIDDEN"})
	case errors.As(err, &invalidStateErr):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "invalid_state", Message: invalidStateErr.Error(), Code: "INVALID_STATE"})
	default:
		logger.WithFields(logrus.Fields{
			"path":       c.Request.URL.Path,
			"request_id": middleware.GetRequestID(c),
		}).WithError(err).Error("Request failed")
		c.Error(err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal_error", Message: "An unexpected error occurred. Please try again later.", Code: "INTERNAL_ERROR"})
	}
}

func notFoundMessage(resource string) string {
	switch resource {
	case "travel option":
		return "Travel option not found"
	case "booking":
		return "Booking not found"
	}
	return "Resource not found"
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid_request", Message: message, Code: "INVALID_REQUEST"})
}

// requireUser reads the authenticated user or writes a 401
func requireUser(c *gin.Context) (middleware.UserContext, bool) {
	user, ok := middleware.GetUserContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "User not authenticated", Code: "MISSING_USER_CONTEXT"})
	}
	return user, ok
}
