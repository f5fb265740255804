package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"shorestay/internal/app/commands"
	bookingapp "shorestay/internal/app/handlers/booking"
)

type PaymentHandler struct {
	Commands commands.Bus
	Logger   *slog.Logger
}

type capturePaymentRequest struct {
	OrderID string `json:"order_id"`
	PayerID string `json:"payer_id"`
}

// Capture is called when the payer returns from the processor's approval
// flow. It settles the order and confirms the reservation.
func (h PaymentHandler) Capture(c *gin.Context) {
	var req capturePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.OrderID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "order_id is required"})
		return
	}
	cmd := bookingapp.CapturePaymentCommand{OrderID: req.OrderID, PayerID: req.PayerID}
	result, err := commands.Dispatch[bookingapp.CapturePaymentCommand, *bookingapp.CapturePaymentResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type cancelPaymentRequest struct {
	OrderID string `json:"order_id"`
	Reason  string `json:"reason"`
}

func (h PaymentHandler) Cancel(c *gin.Context) {
	var req cancelPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.OrderID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "order_id is required"})
		return
	}
	cmd := bookingapp.CancelBookingCommand{OrderID: req.OrderID, Reason: req.Reason}
	result, err := commands.Dispatch[bookingapp.CancelBookingCommand, *bookingapp.CancelBookingResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ PaymentHTTP = PaymentHandler{}
