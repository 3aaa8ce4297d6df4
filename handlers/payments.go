package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"shophand/services"
)

func (h *Handler) ProcessPayment(c *gin.Context) {
	var req services.ChargeRequest
	if !bindJSON(c, &req) {
		return
	}
	txID, err := h.Payments.ProcessPayment(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"transactionId": txID})
}

// TransferFunds is safe to repeat: the transaction id is the idempotency key
func (h *Handler) TransferFunds(c *gin.Context) {
	var req services.TransferRequest
	if !bindJSON(c, &req) {
		return
	}
	ok, err := h.Payments.TransferFunds(c.Request.Context(), c.Param("txId"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": ok})
}
