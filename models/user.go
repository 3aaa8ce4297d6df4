package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// UserType defines the kind of account in the marketplace
type UserType string

const (
	UserCustomer UserType = "customer"
	UserDriver   UserType = "driver"
	UserBusiness UserType = "business"
)

// Valid reports whether t is one of the known account types
func (t UserType) Valid() bool {
	switch t {
	case UserCustomer, UserDriver, UserBusiness:
		return true
	}
	return false
}

type User struct {
	ID               uint      `json:"id" gorm:"primaryKey"`
	Username         string    `json:"username" gorm:"uniqueIndex;not null"`
	Email            string    `json:"email" gorm:"uniqueIndex;not null"`
	PasswordHash     string    `json:"-" gorm:"not null"`
	FirstName        string    `json:"firstName"`
	LastName         string    `json:"lastName"`
	UserType         UserType  `json:"userType" gorm:"not null;default:'customer'"`
	IsActive         bool      `json:"isActive"`
	SubscriptionTier string    `json:"subscriptionTier" gorm:"default:'free'"`
	CreatedAt        time.Time `json:"createdAt"`
}

// Driver is the delivery profile of a driver-type user
type Driver struct {
	ID              uint            `json:"id" gorm:"primaryKey"`
	UserID          uint            `json:"userId" gorm:"uniqueIndex;not null"`
	VehicleType     string          `json:"vehicleType"`
	LicensePlate    string          `json:"licensePlate"`
	Rating          decimal.Decimal `json:"rating" gorm:"type:text"`
	TotalDeliveries int             `json:"totalDeliveries" gorm:"default:0"`
	IsOnline        bool            `json:"isOnline" gorm:"default:false"`
	IsVerified      bool            `json:"isVerified" gorm:"default:false"`
	Latitude        *float64        `json:"latitude,omitempty"`
	Longitude       *float64        `json:"longitude,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// DefaultDriverRating is assigned to every newly registered driver
var DefaultDriverRating = decimal.RequireFromString("5.00")

// HasPosition reports whether the driver has reported a location
func (d *Driver) HasPosition() bool {
	return d.Latitude != nil && d.Longitude != nil
}
