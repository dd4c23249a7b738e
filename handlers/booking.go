package handlers

import (
	"errors"
	"net/http"
	"time"

	"bookline/models"
	"bookline/services/scheduling"
	"bookline/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ReserveRequest is the payload for claiming a slot.
type ReserveRequest struct {
	ServiceID    string    `json:"serviceId" binding:"required"`
	SpecialistID string    `json:"specialistId" binding:"required"`
	CustomerID   string    `json:"customerId" binding:"required"`
	Start        time.Time `json:"start" binding:"required"`
	End          time.Time `json:"end" binding:"required"`
}

// ReserveHandler claims a slot, creating a pending booking.
// POST /api/bookings/reserve
func (hb *HandlerBundle) ReserveHandler(c *gin.Context) {
	var req ReserveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid reservation payload", err.Error())
		return
	}
	interval, err := models.NewTimeInterval(req.Start, req.End)
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid interval", err.Error())
		return
	}

	booking, err := hb.Gate.Reserve(c.Request.Context(), req.ServiceID, req.SpecialistID, req.CustomerID, interval)
	if err != nil {
		switch {
		case errors.Is(err, scheduling.ErrSlotUnavailable):
			// The caller should re-query availability, not retry this interval.
			utils.JSONError(c, http.StatusConflict, "Slot unavailable", "re-query availability and choose another slot")
		case errors.Is(err, scheduling.ErrInvalidInterval):
			utils.JSONError(c, http.StatusBadRequest, "Invalid interval", "")
		default:
			getLogger(c).Error("reservation failed", zap.Error(err))
			utils.JSONError(c, http.StatusInternalServerError, "Reservation failed", "")
		}
		return
	}
	c.JSON(http.StatusCreated, booking)
}

// ConfirmBookingHandler promotes a pending booking while its hold is live.
// POST /api/bookings/:id/confirm
func (hb *HandlerBundle) ConfirmBookingHandler(c *gin.Context) {
	booking, err := hb.Gate.Confirm(c.Request.Context(), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, scheduling.ErrBookingNotFound):
			utils.JSONError(c, http.StatusNotFound, "Booking not found", "")
		case errors.Is(err, scheduling.ErrHoldExpired):
			utils.JSONError(c, http.StatusGone, "Reservation hold expired", "reserve again")
		default:
			utils.JSONError(c, http.StatusConflict, "Confirmation failed", err.Error())
		}
		return
	}
	c.JSON(http.StatusOK, booking)
}

// CancelBookingHandler releases a pending or confirmed booking.
// DELETE /api/bookings/:id
func (hb *HandlerBundle) CancelBookingHandler(c *gin.Context) {
	if err := hb.Gate.Cancel(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, scheduling.ErrBookingNotFound) {
			utils.JSONError(c, http.StatusNotFound, "Booking not found", "")
			return
		}
		utils.JSONError(c, http.StatusConflict, "Cancellation failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
}
