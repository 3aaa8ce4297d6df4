// Package store defines the data store contract every backend implements.
//
// Lookups of a missing id return a nil record and a nil error; only backend
// failures surface as errors.
package store

import (
	"context"
	"errors"
	"fmt"

	"shophand/models"
)

var (
	// ErrInsufficientStock is returned by CreateOrder when a part cannot cover an item
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrDuplicate is returned when a unique key (email, username, driver user) is taken
	ErrDuplicate = errors.New("duplicate record")
)

// MissingPartError is returned by CreateOrder when an item names an unknown part
type MissingPartError struct {
	Index  int
	PartID uint
}

func (e *MissingPartError) Error() string {
	return fmt.Sprintf("item %d: part %d does not exist", e.Index, e.PartID)
}

// StockError carries the part that could not cover its item
type StockError struct {
	Index     int
	PartID    uint
	Requested int
	Available int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("item %d: part %d has %d in stock, %d requested", e.Index, e.PartID, e.Available, e.Requested)
}

func (e *StockError) Unwrap() error { return ErrInsufficientStock }

// PartFilter narrows ListParts. Zero values do not filter.
type PartFilter struct {
	CategoryID      uint
	PartnerID       uint
	Search          string // case-insensitive substring of name or description
	IncludeInactive bool
}

// OrderFilter narrows ListOrders. Zero values do not filter.
type OrderFilter struct {
	UserID     uint
	DriverID   uint
	Status     models.OrderStatus
	Unassigned bool
}

// OrderMutation changes an order in place inside UpdateOrder
type OrderMutation func(o *models.Order) error

type Store interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id uint) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)

	CreateDriver(ctx context.Context, d *models.Driver) error
	GetDriver(ctx context.Context, id uint) (*models.Driver, error)
	GetDriverByUserID(ctx context.Context, userID uint) (*models.Driver, error)
	ListDrivers(ctx context.Context, onlineOnly bool) ([]models.Driver, error)
	SetDriverOnline(ctx context.Context, id uint, online bool) (*models.Driver, error)
	SetDriverLocation(ctx context.Context, id uint, lat, lng float64) (*models.Driver, error)
	IncrementDriverDeliveries(ctx context.Context, id uint) error

	CreatePartner(ctx context.Context, p *models.Partner) error
	GetPartner(ctx context.Context, id uint) (*models.Partner, error)
	ListPartners(ctx context.Context, activeOnly bool) ([]models.Partner, error)

	CreateVehicle(ctx context.Context, v *models.Vehicle) error
	GetVehicle(ctx context.Context, id uint) (*models.Vehicle, error)
	ListVehicles(ctx context.Context) ([]models.Vehicle, error)
	FindVehicle(ctx context.Context, make, model string, year int) (*models.Vehicle, error)

	CreateCategory(ctx context.Context, c *models.Category) error
	GetCategory(ctx context.Context, id uint) (*models.Category, error)
	ListCategories(ctx context.Context) ([]models.Category, error)

	CreatePart(ctx context.Context, p *models.Part) error
	GetPart(ctx context.Context, id uint) (*models.Part, error)
	ListParts(ctx context.Context, f PartFilter) ([]models.Part, error)
	SearchPartsByVehicle(ctx context.Context, make, model string, year int) ([]models.Part, error)

	// CreateOrder stores the order, its items and the initial event, and
	// decrements stock, all or nothing. Item prices are captured from the parts.
	CreateOrder(ctx context.Context, o *models.Order, items []models.OrderItem) error
	GetOrder(ctx context.Context, id uint) (*models.Order, error)
	ListOrders(ctx context.Context, f OrderFilter) ([]models.Order, error)
	// UpdateOrder applies mutate atomically and records an event when the
	// status or driver changed. Returns nil, nil for an unknown id.
	UpdateOrder(ctx context.Context, id uint, mutate OrderMutation) (*models.Order, error)
	ListOrderItems(ctx context.Context, orderID uint) ([]models.OrderItem, error)
	ListOrderEvents(ctx context.Context, orderID uint) ([]models.OrderEvent, error)

	Ping(ctx context.Context) error
	Close() error
}

// EventFor builds the event UpdateOrder records for a change, or nil when
// neither status nor driver moved.
func EventFor(before, after *models.Order) *models.OrderEvent {
	driverChanged := !sameDriver(before.DriverID, after.DriverID)
	if before.Status == after.Status && !driverChanged {
		return nil
	}
	ev := &models.OrderEvent{
		OrderID:    after.ID,
		FromStatus: before.Status,
		ToStatus:   after.Status,
		DriverID:   after.DriverID,
		CreatedAt:  after.UpdatedAt,
	}
	switch {
	case driverChanged && after.DriverID != nil:
		ev.Note = fmt.Sprintf("driver %d assigned", *after.DriverID)
	case before.Status != after.Status:
		ev.Note = "status " + string(before.Status) + " → " + string(after.Status)
	}
	return ev
}

func sameDriver(a, b *uint) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
