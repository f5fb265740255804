package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"shorestay/internal/app/commands"
	bookingapp "shorestay/internal/app/handlers/booking"
)

type AdminHTTP interface {
	OverrideStatus(c *gin.Context)
}

type AdminHandler struct {
	Commands commands.Bus
	Logger   *slog.Logger
}

type overrideStatusRequest struct {
	Status string `json:"status"`
}

// OverrideStatus lets support staff force a reservation into a state, e.g.
// confirming a booking settled over the phone. Confirming still honors the
// no-double-booking rule.
func (h AdminHandler) OverrideStatus(c *gin.Context) {
	if _, ok := requireRole(c, "admin"); !ok {
		return
	}
	var req overrideStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cmd := bookingapp.OverrideStatusCommand{
		ReservationID: c.Param("id"),
		Status:        req.Status,
	}
	result, err := commands.Dispatch[bookingapp.OverrideStatusCommand, *bookingapp.OverrideStatusResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ AdminHTTP = AdminHandler{}
