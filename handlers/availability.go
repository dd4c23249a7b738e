package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"bookline/services/scheduling"
	"bookline/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AvailabilityHandler returns the open intervals for a service on a date.
// GET /api/availability?serviceId=...&date=2006-01-02
func (hb *HandlerBundle) AvailabilityHandler(c *gin.Context) {
	serviceID := c.Query("serviceId")
	dateStr := c.Query("date")
	if serviceID == "" || dateStr == "" {
		utils.JSONError(c, http.StatusBadRequest, "Missing query parameters", "serviceId and date are required")
		return
	}
	date, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid date", "date must be formatted as YYYY-MM-DD")
		return
	}

	avail, err := hb.Availability.AvailabilityFor(c.Request.Context(), serviceID, date)
	if err != nil {
		if errors.Is(err, scheduling.ErrNoQualifiedSpecialist) {
			// Distinct from "no open time": this service is not offered here.
			utils.JSONError(c, http.StatusUnprocessableEntity, "Service not offered", err.Error())
			return
		}
		getLogger(c).Error("availability query failed", zap.String("serviceID", serviceID), zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "Availability query failed", "")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"serviceId":    serviceID,
		"date":         dateStr,
		"availability": avail,
	})
}

// SlotsHandler discretizes availability into bookable candidates.
// GET /api/slots?serviceId=...&date=...&granularity=30&limit=50
func (hb *HandlerBundle) SlotsHandler(c *gin.Context) {
	serviceID := c.Query("serviceId")
	dateStr := c.Query("date")
	if serviceID == "" || dateStr == "" {
		utils.JSONError(c, http.StatusBadRequest, "Missing query parameters", "serviceId and date are required")
		return
	}
	date, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid date", "date must be formatted as YYYY-MM-DD")
		return
	}

	svc, err := hb.Availability.Shops.GetService(c.Request.Context(), serviceID)
	if err != nil {
		utils.JSONError(c, http.StatusNotFound, "Unknown service", "")
		return
	}
	avail, err := hb.Availability.AvailabilityFor(c.Request.Context(), serviceID, date)
	if err != nil {
		if errors.Is(err, scheduling.ErrNoQualifiedSpecialist) {
			utils.JSONError(c, http.StatusUnprocessableEntity, "Service not offered", err.Error())
			return
		}
		utils.JSONError(c, http.StatusInternalServerError, "Availability query failed", "")
		return
	}

	granularity := time.Duration(0)
	if g := c.Query("granularity"); g != "" {
		minutes, err := strconv.Atoi(g)
		if err != nil || minutes <= 0 {
			utils.JSONError(c, http.StatusBadRequest, "Invalid granularity", "granularity must be a positive minute count")
			return
		}
		granularity = time.Duration(minutes) * time.Minute
	}
	limit := 100
	if l := c.Query("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}

	it := scheduling.NewSlotIterator(avail,
		time.Duration(svc.DurationMinutes)*time.Minute,
		time.Duration(svc.BufferMinutes)*time.Minute,
		granularity)
	c.JSON(http.StatusOK, gin.H{
		"serviceId": serviceID,
		"date":      dateStr,
		"slots":     it.Take(limit),
	})
}
