package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PartnerType is the kind of supplier location
type PartnerType string

const (
	PartnerDealership PartnerType = "dealership"
	PartnerRetail     PartnerType = "retail"
	PartnerDismantler PartnerType = "dismantler"
)

// Partner is a parts supplier location drivers pick up from
type Partner struct {
	ID                 uint        `json:"id" gorm:"primaryKey"`
	Name               string      `json:"name" gorm:"not null"`
	Type               PartnerType `json:"type"`
	Address            string      `json:"address" gorm:"not null"`
	Phone              string      `json:"phone"`
	Email              string      `json:"email"`
	IsActive           bool        `json:"isActive"`
	PickupInstructions string      `json:"pickupInstructions"`
	Latitude           *float64    `json:"latitude,omitempty"`
	Longitude          *float64    `json:"longitude,omitempty"`
	CreatedAt          time.Time   `json:"createdAt"`
}

// HasPosition reports whether the partner registered pickup coordinates
func (p *Partner) HasPosition() bool {
	return p.Latitude != nil && p.Longitude != nil
}

type Vehicle struct {
	ID       uint   `json:"id" gorm:"primaryKey"`
	Make     string `json:"make" gorm:"not null;index:idx_vehicle_lookup"`
	Model    string `json:"model" gorm:"not null;index:idx_vehicle_lookup"`
	Year     int    `json:"year" gorm:"not null;index:idx_vehicle_lookup"`
	Engine   string `json:"engine"`
	Category string `json:"category"`
}

type Category struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	Name        string `json:"name" gorm:"not null"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

type PartCondition string

const (
	ConditionNew         PartCondition = "new"
	ConditionUsed        PartCondition = "used"
	ConditionRefurbished PartCondition = "refurbished"
)

type PartSource string

const (
	SourceOEM         PartSource = "oem"
	SourceAftermarket PartSource = "aftermarket"
	SourceRecycled    PartSource = "recycled"
)

type Part struct {
	ID                   uint             `json:"id" gorm:"primaryKey"`
	Name                 string           `json:"name" gorm:"not null"`
	Description          string           `json:"description"`
	PartNumber           string           `json:"partNumber"`
	CategoryID           uint             `json:"categoryId" gorm:"not null;index"`
	PartnerID            uint             `json:"partnerId" gorm:"not null;index"`
	Price                decimal.Decimal  `json:"price" gorm:"type:text;not null"`
	OriginalPrice        *decimal.Decimal `json:"originalPrice,omitempty" gorm:"type:text"`
	Condition            PartCondition    `json:"condition" gorm:"default:'new'"`
	Source               PartSource       `json:"source" gorm:"default:'aftermarket'"`
	Stock                int              `json:"stock" gorm:"default:0"`
	VehicleCompatibility VehicleIDs       `json:"vehicleCompatibility" gorm:"type:text"`
	ImageURL             string           `json:"imageUrl"`
	IsActive             bool             `json:"isActive"`
	CreatedAt            time.Time        `json:"createdAt"`
}
