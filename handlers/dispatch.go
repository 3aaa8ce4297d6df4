package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"shophand/logging"
)

// DispatchOrder assigns the nearest free driver to one order
func (h *Handler) DispatchOrder(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	a, err := h.Dispatcher.DispatchOrder(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Driver dispatched", "assignment": a})
}

// RunDispatch makes one dispatch pass over every available order
func (h *Handler) RunDispatch(c *gin.Context) {
	assignments, err := h.Dispatcher.Run(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	logging.Audit(c, "dispatch.run", map[string]any{"assigned": len(assignments)})
	c.JSON(http.StatusOK, gin.H{"count": len(assignments), "assignments": assignments})
}
