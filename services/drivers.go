package services

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"shophand/apperr"
	"shophand/logging"
	"shophand/models"
	"shophand/store"
)

type DriverDraft struct {
	UserID       uint   `json:"userId" binding:"required"`
	VehicleType  string `json:"vehicleType" binding:"required,max=50"`
	LicensePlate string `json:"licensePlate" binding:"required,max=20"`
	IsOnline     bool   `json:"isOnline"`
	IsVerified   bool   `json:"isVerified"`
}

type LocationUpdate struct {
	Latitude  *float64 `json:"latitude" binding:"required,min=-90,max=90"`
	Longitude *float64 `json:"longitude" binding:"required,min=-180,max=180"`
}

// DeliverySummary is a driver's derived delivery history
type DeliverySummary struct {
	DriverID        uint              `json:"driverId"`
	Deliveries      []models.Delivery `json:"deliveries"`
	Completed       int               `json:"completed"`
	TotalEarnings   decimal.Decimal   `json:"totalEarnings"`
	PendingEarnings decimal.Decimal   `json:"pendingEarnings"`
}

type DriverService struct {
	store store.Store
}

func NewDriverService(s store.Store) *DriverService {
	return &DriverService{store: s}
}

// Register creates the driver profile of an existing driver-type user
func (s *DriverService) Register(ctx context.Context, d DriverDraft) (*models.Driver, error) {
	if err := check(d); err != nil {
		return nil, err
	}
	user, err := s.store.GetUser(ctx, d.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, &apperr.ValidationError{Fields: []apperr.FieldError{{Field: "userId", Rule: "exists"}}}
	}
	if user.UserType != models.UserDriver {
		return nil, &apperr.ValidationError{Fields: []apperr.FieldError{{Field: "userId", Rule: "usertype", Param: string(models.UserDriver)}}}
	}
	driver := &models.Driver{
		UserID:       d.UserID,
		VehicleType:  d.VehicleType,
		LicensePlate: d.LicensePlate,
		IsOnline:     d.IsOnline,
		IsVerified:   d.IsVerified,
	}
	if err := s.store.CreateDriver(ctx, driver); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.Conflict("user %d already has a driver profile", d.UserID)
		}
		return nil, err
	}
	logging.Audit(nil, "driver.registered", map[string]any{"driver_id": driver.ID, "user_id": d.UserID})
	return driver, nil
}

func (s *DriverService) Get(ctx context.Context, id uint) (*models.Driver, error) {
	d, err := s.store.GetDriver(ctx, id)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, apperr.NotFound("driver", id)
	}
	return d, nil
}

func (s *DriverService) ListOnline(ctx context.Context) ([]models.Driver, error) {
	return s.store.ListDrivers(ctx, true)
}

func (s *DriverService) SetOnline(ctx context.Context, id uint, online bool) (*models.Driver, error) {
	d, err := s.store.SetDriverOnline(ctx, id, online)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, apperr.NotFound("driver", id)
	}
	logging.Audit(nil, "driver.status_changed", map[string]any{"driver_id": id, "online": online})
	return d, nil
}

func (s *DriverService) UpdateLocation(ctx context.Context, id uint, loc LocationUpdate) (*models.Driver, error) {
	if err := check(loc); err != nil {
		return nil, err
	}
	d, err := s.store.SetDriverLocation(ctx, id, *loc.Latitude, *loc.Longitude)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, apperr.NotFound("driver", id)
	}
	return d, nil
}

// Deliveries rebuilds the driver's deliveries from orders and their events.
// Only delivered orders count towards TotalEarnings.
func (s *DriverService) Deliveries(ctx context.Context, driverID uint) (*DeliverySummary, error) {
	if _, err := s.Get(ctx, driverID); err != nil {
		return nil, err
	}
	orders, err := s.store.ListOrders(ctx, store.OrderFilter{DriverID: driverID})
	if err != nil {
		return nil, err
	}
	sum := &DeliverySummary{
		DriverID:        driverID,
		Deliveries:      []models.Delivery{},
		TotalEarnings:   decimal.Zero,
		PendingEarnings: decimal.Zero,
	}
	for _, o := range orders {
		events, err := s.store.ListOrderEvents(ctx, o.ID)
		if err != nil {
			return nil, err
		}
		d, ok := DeriveDelivery(o, events)
		if !ok {
			continue
		}
		sum.Deliveries = append(sum.Deliveries, d)
		if d.Status == models.DeliveryDelivered {
			sum.Completed++
			sum.TotalEarnings = sum.TotalEarnings.Add(d.Earnings)
		} else {
			sum.PendingEarnings = sum.PendingEarnings.Add(d.Earnings)
		}
	}
	return sum, nil
}

// DeriveDelivery projects an order and its events onto the delivery read
// model. Orders without a driver and cancelled orders have no delivery.
func DeriveDelivery(o models.Order, events []models.OrderEvent) (models.Delivery, bool) {
	if o.DriverID == nil || o.Status == models.StatusCancelled {
		return models.Delivery{}, false
	}
	d := models.Delivery{
		OrderID:    o.ID,
		DriverID:   *o.DriverID,
		Status:     models.DeliveryAssigned,
		AssignedAt: o.UpdatedAt,
		Earnings:   ComputeEarnings(o.TotalAmount),
	}
	assigned := false
	for _, ev := range events {
		at := ev.CreatedAt
		if !assigned && ev.DriverID != nil && *ev.DriverID == *o.DriverID {
			d.AssignedAt = at
			assigned = true
		}
		switch ev.ToStatus {
		case models.StatusPickedUp:
			if d.PickupTime == nil {
				d.PickupTime = &at
			}
		case models.StatusDelivered:
			d.DeliveryTime = &at
		}
	}
	switch o.Status {
	case models.StatusPickedUp, models.StatusOutForDelivery:
		d.Status = models.DeliveryPickedUp
	case models.StatusDelivered:
		d.Status = models.DeliveryDelivered
		if d.DeliveryTime == nil {
			d.DeliveryTime = o.ActualDeliveryTime
		}
	}
	return d, true
}
