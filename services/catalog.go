package services

import (
	"context"

	"github.com/shopspring/decimal"

	"shophand/apperr"
	"shophand/models"
	"shophand/store"
)

// PartView is a part enriched with its partner and category
type PartView struct {
	models.Part
	Partner  *models.Partner  `json:"partner"`
	Category *models.Category `json:"category"`
}

// VehicleQuery is the make/model/year lookup of a compatibility search
type VehicleQuery struct {
	Make  string `form:"make" binding:"required"`
	Model string `form:"model" binding:"required"`
	Year  int    `form:"year" binding:"required,min=1900,max=2100"`
}

type CategoryDraft struct {
	Name        string `json:"name" binding:"required,max=100"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

type PartnerDraft struct {
	Name               string             `json:"name" binding:"required,max=200"`
	Type               models.PartnerType `json:"type" binding:"required,oneof=dealership retail dismantler"`
	Address            string             `json:"address" binding:"required"`
	Phone              string             `json:"phone"`
	Email              string             `json:"email" binding:"omitempty,email"`
	PickupInstructions string             `json:"pickupInstructions"`
	IsActive           *bool              `json:"isActive"`
	Latitude           *float64           `json:"latitude" binding:"omitempty,min=-90,max=90"`
	Longitude          *float64           `json:"longitude" binding:"omitempty,min=-180,max=180"`
}

type VehicleDraft struct {
	Make     string `json:"make" binding:"required"`
	Model    string `json:"model" binding:"required"`
	Year     int    `json:"year" binding:"required,min=1900,max=2100"`
	Engine   string `json:"engine"`
	Category string `json:"category"`
}

type PartDraft struct {
	Name                 string               `json:"name" binding:"required,max=200"`
	Description          string               `json:"description"`
	PartNumber           string               `json:"partNumber"`
	CategoryID           uint                 `json:"categoryId" binding:"required"`
	PartnerID            uint                 `json:"partnerId" binding:"required"`
	Price                *decimal.Decimal     `json:"price" binding:"required"`
	OriginalPrice        *decimal.Decimal     `json:"originalPrice"`
	Condition            models.PartCondition `json:"condition" binding:"omitempty,oneof=new used refurbished"`
	Source               models.PartSource    `json:"source" binding:"omitempty,oneof=oem aftermarket recycled"`
	Stock                int                  `json:"stock" binding:"min=0"`
	VehicleCompatibility []uint               `json:"vehicleCompatibility"`
	ImageURL             string               `json:"imageUrl" binding:"omitempty,url"`
	IsActive             *bool                `json:"isActive"`
}

type CatalogService struct {
	store store.Store
}

func NewCatalogService(s store.Store) *CatalogService {
	return &CatalogService{store: s}
}

func (c *CatalogService) ListCategories(ctx context.Context) ([]models.Category, error) {
	return c.store.ListCategories(ctx)
}

// ListPartners returns active partners only
func (c *CatalogService) ListPartners(ctx context.Context) ([]models.Partner, error) {
	return c.store.ListPartners(ctx, true)
}

func (c *CatalogService) ListVehicles(ctx context.Context) ([]models.Vehicle, error) {
	return c.store.ListVehicles(ctx)
}

func (c *CatalogService) ListParts(ctx context.Context, f store.PartFilter) ([]PartView, error) {
	parts, err := c.store.ListParts(ctx, f)
	if err != nil {
		return nil, err
	}
	return c.enrichAll(ctx, parts)
}

// SearchByVehicle returns the active parts compatible with one vehicle. An
// unknown vehicle yields an empty list.
func (c *CatalogService) SearchByVehicle(ctx context.Context, q VehicleQuery) ([]PartView, error) {
	if err := check(q); err != nil {
		return nil, err
	}
	parts, err := c.store.SearchPartsByVehicle(ctx, q.Make, q.Model, q.Year)
	if err != nil {
		return nil, err
	}
	return c.enrichAll(ctx, parts)
}

func (c *CatalogService) GetPart(ctx context.Context, id uint) (*PartView, error) {
	p, err := c.store.GetPart(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apperr.NotFound("part", id)
	}
	view, err := c.enrich(ctx, *p, lookups{})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// lookups memoizes partner and category reads across one enrichment pass
type lookups struct {
	partners   map[uint]*models.Partner
	categories map[uint]*models.Category
}

func (c *CatalogService) enrichAll(ctx context.Context, parts []models.Part) ([]PartView, error) {
	out := make([]PartView, 0, len(parts))
	memo := lookups{partners: map[uint]*models.Partner{}, categories: map[uint]*models.Category{}}
	for _, p := range parts {
		v, err := c.enrich(ctx, p, memo)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (c *CatalogService) enrich(ctx context.Context, p models.Part, memo lookups) (PartView, error) {
	view := PartView{Part: p}
	partner, ok := memo.partners[p.PartnerID]
	if !ok {
		var err error
		if partner, err = c.store.GetPartner(ctx, p.PartnerID); err != nil {
			return view, err
		}
		if memo.partners != nil {
			memo.partners[p.PartnerID] = partner
		}
	}
	category, ok := memo.categories[p.CategoryID]
	if !ok {
		var err error
		if category, err = c.store.GetCategory(ctx, p.CategoryID); err != nil {
			return view, err
		}
		if memo.categories != nil {
			memo.categories[p.CategoryID] = category
		}
	}
	view.Partner = partner
	view.Category = category
	return view, nil
}

func (c *CatalogService) CreateCategory(ctx context.Context, d CategoryDraft) (*models.Category, error) {
	if err := check(d); err != nil {
		return nil, err
	}
	cat := &models.Category{Name: d.Name, Description: d.Description, Icon: d.Icon}
	if err := c.store.CreateCategory(ctx, cat); err != nil {
		return nil, err
	}
	return cat, nil
}

func (c *CatalogService) CreatePartner(ctx context.Context, d PartnerDraft) (*models.Partner, error) {
	if err := check(d); err != nil {
		return nil, err
	}
	if (d.Latitude == nil) != (d.Longitude == nil) {
		field := "latitude"
		if d.Longitude == nil {
			field = "longitude"
		}
		return nil, apperr.Invalid(field, "required_with")
	}
	p := &models.Partner{
		Name:               d.Name,
		Type:               d.Type,
		Address:            d.Address,
		Phone:              d.Phone,
		Email:              d.Email,
		PickupInstructions: d.PickupInstructions,
		IsActive:           d.IsActive == nil || *d.IsActive,
		Latitude:           d.Latitude,
		Longitude:          d.Longitude,
	}
	if err := c.store.CreatePartner(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (c *CatalogService) CreateVehicle(ctx context.Context, d VehicleDraft) (*models.Vehicle, error) {
	if err := check(d); err != nil {
		return nil, err
	}
	existing, err := c.store.FindVehicle(ctx, d.Make, d.Model, d.Year)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperr.Conflict("vehicle %s %s %d already exists with id %d", d.Make, d.Model, d.Year, existing.ID)
	}
	v := &models.Vehicle{Make: d.Make, Model: d.Model, Year: d.Year, Engine: d.Engine, Category: d.Category}
	if err := c.store.CreateVehicle(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

func (c *CatalogService) CreatePart(ctx context.Context, d PartDraft) (*PartView, error) {
	if err := check(d); err != nil {
		return nil, err
	}
	verr := &apperr.ValidationError{}
	if d.Price.IsNegative() {
		verr.Fields = append(verr.Fields, apperr.FieldError{Field: "price", Rule: "gte", Param: "0"})
	}
	if cat, err := c.store.GetCategory(ctx, d.CategoryID); err != nil {
		return nil, err
	} else if cat == nil {
		verr.Fields = append(verr.Fields, apperr.FieldError{Field: "categoryId", Rule: "exists"})
	}
	if partner, err := c.store.GetPartner(ctx, d.PartnerID); err != nil {
		return nil, err
	} else if partner == nil {
		verr.Fields = append(verr.Fields, apperr.FieldError{Field: "partnerId", Rule: "exists"})
	}
	for _, id := range d.VehicleCompatibility {
		v, err := c.store.GetVehicle(ctx, id)
		if err != nil {
			return nil, err
		}
		if v == nil {
			verr.Fields = append(verr.Fields, apperr.FieldError{Field: "vehicleCompatibility", Rule: "exists", Param: itoa(id)})
		}
	}
	if len(verr.Fields) > 0 {
		return nil, verr
	}

	p := models.Part{
		Name:                 d.Name,
		Description:          d.Description,
		PartNumber:           d.PartNumber,
		CategoryID:           d.CategoryID,
		PartnerID:            d.PartnerID,
		Price:                *d.Price,
		OriginalPrice:        d.OriginalPrice,
		Condition:            d.Condition,
		Source:               d.Source,
		Stock:                d.Stock,
		VehicleCompatibility: models.NewVehicleIDs(d.VehicleCompatibility...),
		ImageURL:             d.ImageURL,
		IsActive:             d.IsActive == nil || *d.IsActive,
	}
	if p.Condition == "" {
		p.Condition = models.ConditionNew
	}
	if p.Source == "" {
		p.Source = models.SourceAftermarket
	}
	if err := c.store.CreatePart(ctx, &p); err != nil {
		return nil, err
	}
	view, err := c.enrich(ctx, p, lookups{})
	if err != nil {
		return nil, err
	}
	return &view, nil
}
