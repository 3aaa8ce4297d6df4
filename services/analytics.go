package services

import (
	"context"

	"github.com/shopspring/decimal"

	"shophand/models"
	"shophand/store"
)

// BusinessSummary is the dashboard snapshot for business accounts
type BusinessSummary struct {
	TotalOrders       int                        `json:"totalOrders"`
	OrdersByStatus    map[models.OrderStatus]int `json:"ordersByStatus"`
	Revenue           decimal.Decimal            `json:"revenue"`
	PlatformFees      decimal.Decimal            `json:"platformFees"`
	DeliveryFees      decimal.Decimal            `json:"deliveryFees"`
	AverageOrderValue decimal.Decimal            `json:"averageOrderValue"`
	ActiveDeliveries  int                        `json:"activeDeliveries"`
	AvailablePickups  int                        `json:"availablePickups"`
	OnlineDrivers     int                        `json:"onlineDrivers"`
	TotalDrivers      int                        `json:"totalDrivers"`
	ActiveParts       int                        `json:"activeParts"`
	LowStockParts     int                        `json:"lowStockParts"`
}

const lowStockThreshold = 5

type AnalyticsService struct {
	store store.Store
}

func NewAnalyticsService(s store.Store) *AnalyticsService {
	return &AnalyticsService{store: s}
}

// Summary aggregates orders, drivers and stock. Revenue and fees count
// delivered orders only.
func (a *AnalyticsService) Summary(ctx context.Context) (*BusinessSummary, error) {
	orders, err := a.store.ListOrders(ctx, store.OrderFilter{})
	if err != nil {
		return nil, err
	}
	drivers, err := a.store.ListDrivers(ctx, false)
	if err != nil {
		return nil, err
	}
	parts, err := a.store.ListParts(ctx, store.PartFilter{})
	if err != nil {
		return nil, err
	}

	sum := &BusinessSummary{
		TotalOrders:       len(orders),
		OrdersByStatus:    map[models.OrderStatus]int{},
		Revenue:           decimal.Zero,
		PlatformFees:      decimal.Zero,
		DeliveryFees:      decimal.Zero,
		AverageOrderValue: decimal.Zero,
		TotalDrivers:      len(drivers),
		ActiveParts:       len(parts),
	}
	for _, st := range models.AllStatuses {
		sum.OrdersByStatus[st] = 0
	}
	delivered := 0
	for _, o := range orders {
		sum.OrdersByStatus[o.Status]++
		if o.Status.Active() {
			sum.ActiveDeliveries++
		}
		if o.Unassigned() {
			sum.AvailablePickups++
		}
		if o.Status == models.StatusDelivered {
			delivered++
			sum.Revenue = sum.Revenue.Add(o.TotalAmount)
			sum.PlatformFees = sum.PlatformFees.Add(o.PlatformFee)
			sum.DeliveryFees = sum.DeliveryFees.Add(o.DeliveryFee)
		}
	}
	if delivered > 0 {
		sum.AverageOrderValue = sum.Revenue.Div(decimal.NewFromInt(int64(delivered))).Round(2)
	}
	for _, d := range drivers {
		if d.IsOnline {
			sum.OnlineDrivers++
		}
	}
	for _, p := range parts {
		if p.Stock < lowStockThreshold {
			sum.LowStockParts++
		}
	}
	return sum, nil
}
