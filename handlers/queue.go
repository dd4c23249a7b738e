package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"bookline/services/queue"
	"bookline/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// EnqueueRequest is the payload for a walk-in arrival.
type EnqueueRequest struct {
	CustomerID string `json:"customerId" binding:"required"`
	ServiceID  string `json:"serviceId" binding:"required"`
	Priority   int    `json:"priority"`
}

// CheckInRequest is the payload for an arrived appointment.
type CheckInRequest struct {
	CustomerID      string    `json:"customerId" binding:"required"`
	ServiceID       string    `json:"serviceId" binding:"required"`
	AppointmentTime time.Time `json:"appointmentTime" binding:"required"`
	Priority        int       `json:"priority"`
}

// PresenceRequest carries an external specialist active/inactive signal.
type PresenceRequest struct {
	SpecialistID string `json:"specialistId" binding:"required"`
	Active       *bool  `json:"active" binding:"required"`
}

// EnqueueHandler adds a walk-in ticket.
// POST /api/shops/:shopId/queue
func (hb *HandlerBundle) EnqueueHandler(c *gin.Context) {
	var req EnqueueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid enqueue payload", err.Error())
		return
	}
	ticket, err := hb.Queue.Enqueue(c.Request.Context(), c.Param("shopId"), req.CustomerID, req.ServiceID, req.Priority)
	if err != nil {
		hb.queueError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ticket)
}

// CheckInHandler adds a ticket for an arrived appointment.
// POST /api/shops/:shopId/queue/check-in
func (hb *HandlerBundle) CheckInHandler(c *gin.Context) {
	var req CheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid check-in payload", err.Error())
		return
	}
	ticket, err := hb.Queue.CheckIn(c.Request.Context(), c.Param("shopId"), req.CustomerID, req.ServiceID, req.AppointmentTime, req.Priority)
	if err != nil {
		hb.queueError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ticket)
}

// QueueSnapshotHandler returns the positional tickets in rank order.
// GET /api/shops/:shopId/queue
func (hb *HandlerBundle) QueueSnapshotHandler(c *gin.Context) {
	shopID := c.Param("shopId")
	c.JSON(http.StatusOK, gin.H{
		"shopId":  shopID,
		"halted":  hb.Queue.Halted(shopID),
		"tickets": hb.Queue.Snapshot(shopID),
	})
}

// EstimateHandler predicts the wait for a queue position.
// GET /api/shops/:shopId/queue/estimate?position=3
func (hb *HandlerBundle) EstimateHandler(c *gin.Context) {
	position, err := strconv.Atoi(c.Query("position"))
	if err != nil || position < 1 {
		utils.JSONError(c, http.StatusBadRequest, "Invalid position", "position must be a positive integer")
		return
	}
	wait, err := hb.Queue.EstimateWait(c.Request.Context(), c.Param("shopId"), position)
	if err != nil {
		if errors.Is(err, queue.ErrTicketNotFound) {
			utils.JSONError(c, http.StatusNotFound, "No ticket at position", "")
			return
		}
		getLogger(c).Error("estimate failed", zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "Estimate failed", "")
		return
	}
	c.JSON(http.StatusOK, gin.H{"position": position, "waitMinutes": int(wait.Minutes())})
}

// TicketTransitionHandler applies a state transition to a ticket.
// POST /api/shops/:shopId/queue/tickets/:ticketId/:action
func (hb *HandlerBundle) TicketTransitionHandler(c *gin.Context) {
	shopID := c.Param("shopId")
	ticketID := c.Param("ticketId")

	var err error
	switch action := c.Param("action"); action {
	case "call":
		err = hb.Queue.Call(c.Request.Context(), shopID, ticketID, c.Query("specialistId"))
	case "start":
		err = hb.Queue.StartService(c.Request.Context(), shopID, ticketID)
	case "complete":
		err = hb.Queue.Complete(c.Request.Context(), shopID, ticketID)
	case "no-show":
		err = hb.Queue.NoShow(c.Request.Context(), shopID, ticketID)
	case "cancel":
		err = hb.Queue.Cancel(c.Request.Context(), shopID, ticketID)
	default:
		utils.JSONError(c, http.StatusNotFound, "Unknown transition", action)
		return
	}
	if err != nil {
		hb.queueError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// PresenceHandler feeds a specialist activation change into the balancer.
// POST /api/shops/:shopId/presence
func (hb *HandlerBundle) PresenceHandler(c *gin.Context) {
	var req PresenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid presence payload", err.Error())
		return
	}
	if err := hb.Queue.HandlePresenceChange(c.Request.Context(), c.Param("shopId"), req.SpecialistID, *req.Active); err != nil {
		hb.queueError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// QueueResetHandler clears a halted queue after operator remediation.
// POST /api/shops/:shopId/queue/reset
func (hb *HandlerBundle) QueueResetHandler(c *gin.Context) {
	if err := hb.Queue.ResetHalted(c.Request.Context(), c.Param("shopId")); err != nil {
		utils.JSONError(c, http.StatusConflict, "Reset failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (hb *HandlerBundle) queueError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, queue.ErrQueueHalted), errors.Is(err, queue.ErrQueueInconsistent):
		utils.JSONError(c, http.StatusServiceUnavailable, "Queue halted", err.Error())
	case errors.Is(err, queue.ErrTicketNotFound):
		utils.JSONError(c, http.StatusNotFound, "Ticket not found", "")
	case errors.Is(err, queue.ErrInvalidTransition):
		utils.JSONError(c, http.StatusConflict, "Invalid transition", err.Error())
	default:
		getLogger(c).Error("queue operation failed", zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "Queue operation failed", "")
	}
}
