package services_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"shophand/models"
)

func TestBusinessSummary(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	d := e.driver(t, "dana", false, 0, 0)
	done := e.order(t, "100.00")
	active := e.order(t, "40.00")
	e.order(t, "20.00")
	cancelled := e.order(t, "15.00")

	for _, id := range []uint{done.ID, active.ID} {
		if _, err := e.orders.AssignDriver(ctx, id, d.ID); err != nil {
			t.Fatal(err)
		}
	}
	for _, st := range []models.OrderStatus{models.StatusPickedUp, models.StatusOutForDelivery, models.StatusDelivered} {
		if _, err := e.orders.UpdateStatus(ctx, done.ID, st); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := e.orders.UpdateStatus(ctx, cancelled.ID, models.StatusCancelled); err != nil {
		t.Fatal(err)
	}

	sum, err := e.analytics.Summary(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if sum.TotalOrders != 4 {
		t.Errorf("total orders = %d", sum.TotalOrders)
	}
	if sum.OrdersByStatus[models.StatusDelivered] != 1 || sum.OrdersByStatus[models.StatusPending] != 1 ||
		sum.OrdersByStatus[models.StatusConfirmed] != 1 || sum.OrdersByStatus[models.StatusCancelled] != 1 {
		t.Errorf("by status = %v", sum.OrdersByStatus)
	}
	if !sum.Revenue.Equal(decimal.RequireFromString("100")) || !sum.AverageOrderValue.Equal(decimal.RequireFromString("100")) {
		t.Errorf("revenue = %s avg = %s", sum.Revenue, sum.AverageOrderValue)
	}
	if sum.ActiveDeliveries != 1 || sum.AvailablePickups != 1 {
		t.Errorf("active = %d available = %d", sum.ActiveDeliveries, sum.AvailablePickups)
	}
	if sum.OnlineDrivers != 1 || sum.TotalDrivers != 1 {
		t.Errorf("drivers = %d/%d", sum.OnlineDrivers, sum.TotalDrivers)
	}
	// pads 10-4 = 6, filter untouched at 10
	if sum.ActiveParts != 2 || sum.LowStockParts != 0 {
		t.Errorf("parts = %d low = %d", sum.ActiveParts, sum.LowStockParts)
	}
}
