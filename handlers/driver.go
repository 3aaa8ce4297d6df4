package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"shophand/services"
)

type OnlineRequest struct {
	IsOnline *bool `json:"isOnline" binding:"required"`
}

func (h *Handler) CreateDriver(c *gin.Context) {
	var req services.DriverDraft
	if !bindJSON(c, &req) {
		return
	}
	d, err := h.Drivers.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, d)
}

func (h *Handler) GetOnlineDrivers(c *gin.Context) {
	drivers, err := h.Drivers.ListOnline(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, drivers)
}

// SetDriverStatus toggles whether the driver takes orders
func (h *Handler) SetDriverStatus(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req OnlineRequest
	if !bindJSON(c, &req) {
		return
	}
	d, err := h.Drivers.SetOnline(c.Request.Context(), id, *req.IsOnline)
	if err != nil {
		respondError(c, err)
		return
	}
	state := "offline"
	if d.IsOnline {
		state = "online"
	}
	c.JSON(http.StatusOK, gin.H{"message": "Driver is now " + state, "driver": d})
}

func (h *Handler) UpdateDriverLocation(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req services.LocationUpdate
	if !bindJSON(c, &req) {
		return
	}
	d, err := h.Drivers.UpdateLocation(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// GetDriverDeliveries returns the driver's deliveries and earnings
func (h *Handler) GetDriverDeliveries(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	sum, err := h.Drivers.Deliveries(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}
