package ginserver

import (
	"errors"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	bookingapp "shorestay/internal/app/handlers/booking"
	"shorestay/internal/app/policies"
	"shorestay/internal/domain/listings"
	"shorestay/internal/domain/pricing"
	"shorestay/internal/domain/reservation"
	"shorestay/internal/domain/shared/daterange"
)

// writeError translates application errors into HTTP responses with a small
// stable body. Unrecognized errors become a 500 with a generic message so
// internals never leak to clients.
func writeError(c *gin.Context, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, reservation.ErrNotFound) || errors.Is(err, listings.ErrListingNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, reservation.ErrDatesConflict) ||
		errors.Is(err, reservation.ErrDuplicateTransaction) ||
		errors.Is(err, reservation.ErrConcurrentUpdate) ||
		errors.Is(err, reservation.ErrOrderAlreadyAttached):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, daterange.ErrInvalidRange) ||
		errors.Is(err, pricing.ErrInvalidDateRange) ||
		errors.Is(err, pricing.ErrHouseRuleViolated) ||
		errors.Is(err, pricing.ErrInvalidRate) ||
		errors.Is(err, reservation.ErrInvalidGuests) ||
		errors.Is(err, reservation.ErrInvalidOccupancy) ||
		errors.Is(err, reservation.ErrContactRequired) ||
		errors.Is(err, reservation.ErrInvalidState) ||
		errors.Is(err, bookingapp.ErrUnknownStatus) ||
		errors.Is(err, policies.ErrOrderNotApproved):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		var gatewayErr *policies.GatewayError
		if errors.As(err, &gatewayErr) {
			c.JSON(http.StatusBadGateway, gin.H{"error": "payment processor rejected the request"})
			return
		}
		if logger != nil {
			logger.Error("request failed", "error", err, "path", c.FullPath())
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
