package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetBusinessSummary aggregates orders, drivers and stock for the dashboard
func (h *Handler) GetBusinessSummary(c *gin.Context) {
	sum, err := h.Analytics.Summary(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

// GetAutomationMetrics returns the simulated platform metrics
func (h *Handler) GetAutomationMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, h.Metrics.Snapshot())
}
