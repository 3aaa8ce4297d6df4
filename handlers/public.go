package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"shophand/apperr"
	"shophand/models"
	"shophand/services"
	"shophand/statemachine"
)

// Health pings the store
func (h *Handler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := h.Store.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": "store unreachable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "ShopHand Parts Delivery API",
		"version": "1.0.0",
	})
}

func (h *Handler) Welcome(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message":   "Welcome to the ShopHand parts delivery API",
		"docs":      "/api/state-machine",
		"health":    "/health",
		"userTypes": []models.UserType{models.UserCustomer, models.UserDriver, models.UserBusiness},
	})
}

// GetStateMachineInfo returns the full order state machine
func (h *Handler) GetStateMachineInfo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"state_machine":   statemachine.GetAllTransitions(),
		"terminal_states": []models.OrderStatus{models.StatusDelivered, models.StatusCancelled},
		"description":     "Parts delivery order lifecycle",
	})
}

// GetEarnings evaluates the driver payout formula for ?total=
func (h *Handler) GetEarnings(c *gin.Context) {
	total, err := decimal.NewFromString(c.Query("total"))
	if err != nil || total.IsNegative() {
		respondError(c, apperr.Invalid("total", "decimal"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"total": total, "earnings": services.ComputeEarnings(total)})
}
