package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"shophand/models"
	"shophand/services"
)

type StatusRequest struct {
	Status models.OrderStatus `json:"status" binding:"required"`
}

type AssignDriverRequest struct {
	DriverID uint `json:"driverId" binding:"required"`
}

// CreateOrder stores an order and its items in one step
func (h *Handler) CreateOrder(c *gin.Context) {
	var req services.CreateOrderRequest
	if !bindJSON(c, &req) {
		return
	}
	order, err := h.Orders.CreateOrder(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

// GetOrder returns one order with enriched items and its status history
func (h *Handler) GetOrder(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	order, err := h.Orders.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *Handler) GetUserOrders(c *gin.Context) {
	userID, ok := idParam(c, "userId")
	if !ok {
		return
	}
	orders, err := h.Orders.ListByUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (h *Handler) GetDriverOrders(c *gin.Context) {
	driverID, ok := idParam(c, "driverId")
	if !ok {
		return
	}
	orders, err := h.Orders.ListByDriver(c.Request.Context(), driverID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

// GetAvailableOrders lists pending orders no driver has taken
func (h *Handler) GetAvailableOrders(c *gin.Context) {
	orders, err := h.Orders.AvailablePickups(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

// UpdateOrderStatus advances an order; illegal transitions answer 422
func (h *Handler) UpdateOrderStatus(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req StatusRequest
	if !bindJSON(c, &req) {
		return
	}
	order, err := h.Orders.UpdateStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Order status updated to " + string(order.Status), "order": order})
}

// AssignDriver sets the driver and moves the order to confirmed
func (h *Handler) AssignDriver(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req AssignDriverRequest
	if !bindJSON(c, &req) {
		return
	}
	order, err := h.Orders.AssignDriver(c.Request.Context(), id, req.DriverID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Driver assigned successfully", "order": order})
}
