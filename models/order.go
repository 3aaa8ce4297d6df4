package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus represents all possible states of a parts delivery order
type OrderStatus string

const (
	StatusPending        OrderStatus = "pending"
	StatusConfirmed      OrderStatus = "confirmed"
	StatusPickedUp       OrderStatus = "picked_up"
	StatusOutForDelivery OrderStatus = "out_for_delivery"
	StatusDelivered      OrderStatus = "delivered"
	StatusCancelled      OrderStatus = "cancelled"
)

// AllStatuses lists every status in lifecycle order
var AllStatuses = []OrderStatus{
	StatusPending, StatusConfirmed, StatusPickedUp, StatusOutForDelivery, StatusDelivered, StatusCancelled,
}

func (s OrderStatus) Valid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition can leave s
func (s OrderStatus) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// Active is true while a driver is working the order
func (s OrderStatus) Active() bool {
	return s == StatusConfirmed || s == StatusPickedUp || s == StatusOutForDelivery
}

type Order struct {
	ID                    uint            `json:"id" gorm:"primaryKey"`
	UserID                uint            `json:"userId" gorm:"not null;index"`
	DriverID              *uint           `json:"driverId" gorm:"index"`
	Status                OrderStatus     `json:"status" gorm:"not null;default:'pending';index"`
	TotalAmount           decimal.Decimal `json:"totalAmount" gorm:"type:text;not null"`
	DeliveryFee           decimal.Decimal `json:"deliveryFee" gorm:"type:text"`
	PlatformFee           decimal.Decimal `json:"platformFee" gorm:"type:text"`
	DeliveryAddress       string          `json:"deliveryAddress" gorm:"not null"`
	PickupAddress         string          `json:"pickupAddress"`
	CustomerNotes         string          `json:"customerNotes"`
	EstimatedDeliveryTime *time.Time      `json:"estimatedDeliveryTime"`
	ActualDeliveryTime    *time.Time      `json:"actualDeliveryTime"`
	CreatedAt             time.Time       `json:"createdAt"`
	UpdatedAt             time.Time       `json:"updatedAt"`
}

// Unassigned reports whether the order is an available pickup
func (o *Order) Unassigned() bool {
	return o.DriverID == nil && o.Status == StatusPending
}

type OrderItem struct {
	ID       uint            `json:"id" gorm:"primaryKey"`
	OrderID  uint            `json:"orderId" gorm:"not null;index"`
	PartID   uint            `json:"partId" gorm:"not null"`
	Quantity int             `json:"quantity" gorm:"not null"`
	Price    decimal.Decimal `json:"price" gorm:"type:text;not null"` // snapshot price at time of order
}

// OrderEvent tracks every status or driver change of an order
type OrderEvent struct {
	ID         uint        `json:"id" gorm:"primaryKey"`
	OrderID    uint        `json:"orderId" gorm:"not null;index"`
	FromStatus OrderStatus `json:"fromStatus"`
	ToStatus   OrderStatus `json:"toStatus" gorm:"not null"`
	DriverID   *uint       `json:"driverId"`
	Note       string      `json:"note"`
	CreatedAt  time.Time   `json:"createdAt"`
}

type DeliveryStatus string

const (
	DeliveryAssigned  DeliveryStatus = "assigned"
	DeliveryPickedUp  DeliveryStatus = "picked_up"
	DeliveryDelivered DeliveryStatus = "delivered"
)

// Delivery is a read model derived from an order and its events, never stored
type Delivery struct {
	OrderID      uint            `json:"orderId"`
	DriverID     uint            `json:"driverId"`
	Status       DeliveryStatus  `json:"status"`
	AssignedAt   time.Time       `json:"assignedAt"`
	PickupTime   *time.Time      `json:"pickupTime"`
	DeliveryTime *time.Time      `json:"deliveryTime"`
	Earnings     decimal.Decimal `json:"earnings"`
}
