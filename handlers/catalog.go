package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"shophand/apperr"
	"shophand/services"
	"shophand/store"
)

func (h *Handler) ListCategories(c *gin.Context) {
	cats, err := h.Catalog.ListCategories(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cats)
}

// ListPartners returns active partners only
func (h *Handler) ListPartners(c *gin.Context) {
	partners, err := h.Catalog.ListPartners(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, partners)
}

func (h *Handler) ListVehicles(c *gin.Context) {
	vehicles, err := h.Catalog.ListVehicles(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, vehicles)
}

// ListParts filters by ?categoryId, ?partnerId and ?search
func (h *Handler) ListParts(c *gin.Context) {
	categoryID, ok := optionalID(c, "categoryId")
	if !ok {
		return
	}
	partnerID, ok := optionalID(c, "partnerId")
	if !ok {
		return
	}
	parts, err := h.Catalog.ListParts(c.Request.Context(), store.PartFilter{
		CategoryID: categoryID,
		PartnerID:  partnerID,
		Search:     c.Query("search"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, parts)
}

// SearchPartsByVehicle needs all of ?make, ?model and ?year
func (h *Handler) SearchPartsByVehicle(c *gin.Context) {
	var q services.VehicleQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondError(c, apperr.FromBinding(err))
		return
	}
	parts, err := h.Catalog.SearchByVehicle(c.Request.Context(), q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, parts)
}

func (h *Handler) GetPart(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	part, err := h.Catalog.GetPart(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, part)
}

func (h *Handler) CreateCategory(c *gin.Context) {
	var req services.CategoryDraft
	if !bindJSON(c, &req) {
		return
	}
	cat, err := h.Catalog.CreateCategory(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, cat)
}

func (h *Handler) CreatePartner(c *gin.Context) {
	var req services.PartnerDraft
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.Catalog.CreatePartner(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *Handler) CreateVehicle(c *gin.Context) {
	var req services.VehicleDraft
	if !bindJSON(c, &req) {
		return
	}
	v, err := h.Catalog.CreateVehicle(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, v)
}

func (h *Handler) CreatePart(c *gin.Context) {
	var req services.PartDraft
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.Catalog.CreatePart(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}
