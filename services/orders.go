package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"shophand/apperr"
	"shophand/logging"
	"shophand/models"
	"shophand/statemachine"
	"shophand/store"
)

const (
	baseDeliveryMinutes    = 45
	perItemDeliveryMinutes = 5
)

// OrderDraft is the order half of a checkout request
type OrderDraft struct {
	UserID          uint               `json:"userId" binding:"required"`
	TotalAmount     *decimal.Decimal   `json:"totalAmount" binding:"required"`
	DeliveryFee     *decimal.Decimal   `json:"deliveryFee"`
	PlatformFee     *decimal.Decimal   `json:"platformFee"`
	DeliveryAddress string             `json:"deliveryAddress" binding:"required,max=500"`
	PickupAddress   string             `json:"pickupAddress" binding:"max=500"`
	CustomerNotes   string             `json:"customerNotes" binding:"max=1000"`
	Status          models.OrderStatus `json:"status" binding:"omitempty,oneof=pending"`
}

// ItemDraft is one line of a checkout. Any client supplied price is ignored;
// the part's current price is captured instead.
type ItemDraft struct {
	PartID   uint             `json:"partId" binding:"required"`
	Quantity int              `json:"quantity" binding:"required,min=1"`
	Price    *decimal.Decimal `json:"price"`
}

type CreateOrderRequest struct {
	Order OrderDraft  `json:"order" binding:"required"`
	Items []ItemDraft `json:"items" binding:"required,min=1,dive"`
}

// ItemView is an order line, with its part when the caller asked for enrichment
type ItemView struct {
	models.OrderItem
	Part *PartView `json:"part,omitempty"`
}

type OrderView struct {
	models.Order
	Items  []ItemView          `json:"items"`
	Events []models.OrderEvent `json:"events,omitempty"`
}

type OrderService struct {
	store   store.Store
	catalog *CatalogService
	now     Clock
}

func NewOrderService(s store.Store, catalog *CatalogService, now Clock) *OrderService {
	if now == nil {
		now = time.Now
	}
	return &OrderService{store: s, catalog: catalog, now: now}
}

// CreateOrder validates the draft and stores the order and its items in one
// step; nothing is kept when any part is unknown or short of stock.
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*OrderView, error) {
	if err := check(req); err != nil {
		return nil, err
	}
	d := req.Order
	if d.TotalAmount.IsNegative() {
		return nil, &apperr.ValidationError{Fields: []apperr.FieldError{{Field: "order.totalAmount", Rule: "gte", Param: "0"}}}
	}
	user, err := s.store.GetUser(ctx, d.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, &apperr.ValidationError{Fields: []apperr.FieldError{{Field: "order.userId", Rule: "exists"}}}
	}

	eta := s.now().Add(time.Duration(baseDeliveryMinutes+perItemDeliveryMinutes*len(req.Items)) * time.Minute)
	order := models.Order{
		UserID:                d.UserID,
		Status:                models.StatusPending,
		TotalAmount:           *d.TotalAmount,
		DeliveryFee:           orZero(d.DeliveryFee),
		PlatformFee:           orZero(d.PlatformFee),
		DeliveryAddress:       d.DeliveryAddress,
		PickupAddress:         d.PickupAddress,
		CustomerNotes:         d.CustomerNotes,
		EstimatedDeliveryTime: &eta,
	}
	if order.PickupAddress == "" {
		if order.PickupAddress, err = s.pickupFor(ctx, req.Items[0].PartID); err != nil {
			return nil, err
		}
	}

	items := make([]models.OrderItem, len(req.Items))
	for i, it := range req.Items {
		items[i] = models.OrderItem{PartID: it.PartID, Quantity: it.Quantity}
	}

	if err := s.store.CreateOrder(ctx, &order, items); err != nil {
		var missing *store.MissingPartError
		var short *store.StockError
		switch {
		case errors.As(err, &missing):
			return nil, &apperr.ValidationError{Fields: []apperr.FieldError{
				{Field: fmt.Sprintf("items[%d].partId", missing.Index), Rule: "exists"},
			}}
		case errors.As(err, &short):
			return nil, apperr.Conflict("part %d has %d in stock, %d requested", short.PartID, short.Available, short.Requested)
		}
		return nil, err
	}

	logging.Audit(nil, "order.created", map[string]any{
		"order_id": order.ID, "user_id": order.UserID, "items": len(items), "total": order.TotalAmount.StringFixed(2),
	})
	view := &OrderView{Order: order, Items: make([]ItemView, len(items))}
	for i, it := range items {
		view.Items[i] = ItemView{OrderItem: it}
	}
	return view, nil
}

// pickupFor defaults the pickup to the address of the partner stocking the part
func (s *OrderService) pickupFor(ctx context.Context, partID uint) (string, error) {
	part, err := s.store.GetPart(ctx, partID)
	if err != nil || part == nil {
		return "", err
	}
	partner, err := s.store.GetPartner(ctx, part.PartnerID)
	if err != nil || partner == nil {
		return "", err
	}
	return partner.Address, nil
}

// UpdateStatus moves an order along the state machine. Setting the current
// status again changes nothing.
func (s *OrderService) UpdateStatus(ctx context.Context, id uint, status models.OrderStatus) (*models.Order, error) {
	if !status.Valid() {
		return nil, &apperr.ValidationError{Fields: []apperr.FieldError{{Field: "status", Rule: "oneof", Param: statusList()}}}
	}
	var from models.OrderStatus
	order, err := s.store.UpdateOrder(ctx, id, func(o *models.Order) error {
		from = o.Status
		if !statemachine.CanTransition(o.Status, status) {
			return &apperr.InvalidTransitionError{
				From:    string(o.Status),
				To:      string(status),
				Allowed: statemachine.DescribeValidFrom(o.Status),
			}
		}
		if status == models.StatusDelivered && o.Status != models.StatusDelivered {
			at := s.now()
			o.ActualDeliveryTime = &at
		}
		o.Status = status
		return nil
	})
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, apperr.NotFound("order", id)
	}
	if from == status {
		return order, nil
	}

	if status == models.StatusDelivered && order.DriverID != nil {
		if err := s.store.IncrementDriverDeliveries(ctx, *order.DriverID); err != nil {
			return nil, err
		}
	}
	logging.Audit(nil, "order.status_changed", map[string]any{
		"order_id": id, "from": from, "to": status,
	})
	return order, nil
}

// AssignDriver sets the driver and forces the order to confirmed, whatever
// its current status.
func (s *OrderService) AssignDriver(ctx context.Context, id, driverID uint) (*models.Order, error) {
	driver, err := s.store.GetDriver(ctx, driverID)
	if err != nil {
		return nil, err
	}
	if driver == nil {
		return nil, apperr.NotFound("driver", driverID)
	}
	order, err := s.store.UpdateOrder(ctx, id, func(o *models.Order) error {
		o.DriverID = &driverID
		o.Status = models.StatusConfirmed
		return nil
	})
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, apperr.NotFound("order", id)
	}
	logging.Audit(nil, "order.driver_assigned", map[string]any{"order_id": id, "driver_id": driverID})
	return order, nil
}

// claimPickup assigns driverID only if the order is still an available
// pickup when the update applies. Otherwise it is a ConflictError.
func (s *OrderService) claimPickup(ctx context.Context, id, driverID uint) (*models.Order, error) {
	order, err := s.store.UpdateOrder(ctx, id, func(o *models.Order) error {
		if !o.Unassigned() {
			return apperr.Conflict("order %d is no longer awaiting pickup", id)
		}
		o.DriverID = &driverID
		o.Status = models.StatusConfirmed
		return nil
	})
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, apperr.NotFound("order", id)
	}
	logging.Audit(nil, "order.driver_assigned", map[string]any{"order_id": id, "driver_id": driverID, "dispatch": true})
	return order, nil
}

// Get returns one order with enriched items and its event history
func (s *OrderService) Get(ctx context.Context, id uint) (*OrderView, error) {
	o, err := s.store.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, apperr.NotFound("order", id)
	}
	view, err := s.view(ctx, *o, true)
	if err != nil {
		return nil, err
	}
	if view.Events, err = s.store.ListOrderEvents(ctx, id); err != nil {
		return nil, err
	}
	return &view, nil
}

func (s *OrderService) ListByUser(ctx context.Context, userID uint) ([]OrderView, error) {
	return s.list(ctx, store.OrderFilter{UserID: userID}, false)
}

func (s *OrderService) ListByDriver(ctx context.Context, driverID uint) ([]OrderView, error) {
	return s.list(ctx, store.OrderFilter{DriverID: driverID}, false)
}

// AvailablePickups lists pending orders no driver holds yet, items enriched
func (s *OrderService) AvailablePickups(ctx context.Context) ([]OrderView, error) {
	views, err := s.list(ctx, store.OrderFilter{Status: models.StatusPending, Unassigned: true}, true)
	if err != nil {
		return nil, err
	}
	out := views[:0]
	for _, v := range views {
		if v.Unassigned() {
			out = append(out, v)
		}
	}
	return out, nil
}

func (s *OrderService) list(ctx context.Context, f store.OrderFilter, enrich bool) ([]OrderView, error) {
	orders, err := s.store.ListOrders(ctx, f)
	if err != nil {
		return nil, err
	}
	out := make([]OrderView, 0, len(orders))
	for _, o := range orders {
		v, err := s.view(ctx, o, enrich)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *OrderService) view(ctx context.Context, o models.Order, enrich bool) (OrderView, error) {
	items, err := s.store.ListOrderItems(ctx, o.ID)
	if err != nil {
		return OrderView{}, err
	}
	view := OrderView{Order: o, Items: make([]ItemView, len(items))}
	for i, it := range items {
		view.Items[i] = ItemView{OrderItem: it}
		if !enrich {
			continue
		}
		part, err := s.store.GetPart(ctx, it.PartID)
		if err != nil {
			return OrderView{}, err
		}
		if part == nil {
			continue
		}
		pv, err := s.catalog.enrich(ctx, *part, lookups{})
		if err != nil {
			return OrderView{}, err
		}
		view.Items[i].Part = &pv
	}
	return view, nil
}

func orZero(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}

func statusList() string {
	s := ""
	for i, st := range models.AllStatuses {
		if i > 0 {
			s += " "
		}
		s += string(st)
	}
	return s
}
