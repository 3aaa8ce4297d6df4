// Package handlers exposes the marketplace services as JSON endpoints.
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"shophand/apperr"
	"shophand/automation"
	"shophand/logging"
	"shophand/middleware"
	"shophand/models"
	"shophand/services"
	"shophand/statemachine"
	"shophand/store"
)

// Handler carries every dependency the endpoints need
type Handler struct {
	Store      store.Store
	Auth       *middleware.Auth
	Users      *services.UserService
	Catalog    *services.CatalogService
	Orders     *services.OrderService
	Drivers    *services.DriverService
	Dispatcher *services.Dispatcher
	Payments   *services.PaymentService
	Analytics  *services.AnalyticsService
	Metrics    *automation.Metrics
}

// respondError writes err with the status its type maps to. Server side
// failures are logged and answered with a generic message.
func respondError(c *gin.Context, err error) {
	status := apperr.Status(err)
	if status >= http.StatusInternalServerError {
		logging.Error(c, "request.failed", err, nil)
		msg := "Internal server error"
		var uerr *apperr.UpstreamError
		if errors.As(err, &uerr) {
			msg = uerr.Service + " unavailable"
		}
		c.JSON(status, gin.H{"error": msg})
		return
	}

	var (
		verr *apperr.ValidationError
		terr *apperr.InvalidTransitionError
	)
	switch {
	case errors.As(err, &verr):
		c.JSON(status, gin.H{"error": "Validation failed", "fields": verr.Fields})
	case errors.As(err, &terr):
		c.JSON(status, gin.H{
			"error":             "Invalid status transition",
			"reason":            terr.Error(),
			"current_state":     terr.From,
			"valid_transitions": statemachine.ValidTransitionsFrom(models.OrderStatus(terr.From)),
		})
	default:
		c.JSON(status, gin.H{"error": err.Error()})
	}
}

// bindJSON decodes the body into dst and reports failures as a 400
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, apperr.FromBinding(err))
		return false
	}
	return true
}

// idParam reads a positive integer path parameter
func idParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 0)
	if err != nil || id == 0 {
		respondError(c, apperr.Invalid(name, "numeric"))
		return 0, false
	}
	return uint(id), true
}

// optionalID reads an optional positive integer query parameter
func optionalID(c *gin.Context, name string) (uint, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	id, err := strconv.ParseUint(raw, 10, 0)
	if err != nil {
		respondError(c, apperr.Invalid(name, "numeric"))
		return 0, false
	}
	return uint(id), true
}
