package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"shophand/models"
	"shophand/services"
	"shophand/store/memstore"
)

var fixedNow = time.Date(2024, 5, 14, 10, 30, 0, 0, time.UTC)

type env struct {
	store      *memstore.Store
	users      *services.UserService
	catalog    *services.CatalogService
	orders     *services.OrderService
	drivers    *services.DriverService
	dispatcher *services.Dispatcher
	analytics  *services.AnalyticsService

	customer models.User
	partner  models.Partner
	category models.Category
	camry    models.Vehicle
	pads     models.Part
	filter   models.Part
}

var geo = services.NewStaticGeocoder(map[string]services.Point{
	"1 Main St":   {Lat: 40.7128, Lng: -74.0060},
	"99 Depot Rd": {Lat: 40.7306, Lng: -73.9352},
})

func newEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()
	clock := func() time.Time { return fixedNow }
	st := memstore.New(memstore.WithClock(clock))
	e := &env{store: st}
	e.users = services.NewUserService(st, bcrypt.MinCost)
	e.catalog = services.NewCatalogService(st)
	e.orders = services.NewOrderService(st, e.catalog, clock)
	e.drivers = services.NewDriverService(st)
	e.dispatcher = services.NewDispatcher(st, e.orders, services.HaversineCost(geo))
	e.analytics = services.NewAnalyticsService(st)

	u, err := e.users.Register(ctx, services.RegisterRequest{
		Username: "casey", Email: "casey@example.com", Password: "secret123", UserType: models.UserCustomer,
	})
	if err != nil {
		t.Fatalf("register customer: %v", err)
	}
	e.customer = *u

	cat, err := e.catalog.CreateCategory(ctx, services.CategoryDraft{Name: "Brakes"})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	e.category = *cat
	partner, err := e.catalog.CreatePartner(ctx, services.PartnerDraft{Name: "AutoZone", Type: models.PartnerRetail, Address: "1 Main St"})
	if err != nil {
		t.Fatalf("create partner: %v", err)
	}
	e.partner = *partner
	camry, err := e.catalog.CreateVehicle(ctx, services.VehicleDraft{Make: "Toyota", Model: "Camry", Year: 2019})
	if err != nil {
		t.Fatalf("create vehicle: %v", err)
	}
	e.camry = *camry

	pads, err := e.catalog.CreatePart(ctx, services.PartDraft{
		Name: "Brake Pads", CategoryID: cat.ID, PartnerID: partner.ID, Price: dec("89.99"), Stock: 10,
		VehicleCompatibility: []uint{camry.ID},
	})
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	e.pads = pads.Part
	filter, err := e.catalog.CreatePart(ctx, services.PartDraft{
		Name: "Oil Filter", CategoryID: cat.ID, PartnerID: partner.ID, Price: dec("12.99"), Stock: 10,
	})
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	e.filter = filter.Part
	return e
}

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

// driver registers an online driver, placed at lat/lng when pos is true
func (e *env) driver(t *testing.T, name string, pos bool, lat, lng float64) models.Driver {
	t.Helper()
	ctx := context.Background()
	u, err := e.users.Register(ctx, services.RegisterRequest{
		Username: name, Email: name + "@example.com", Password: "secret123", UserType: models.UserDriver,
	})
	if err != nil {
		t.Fatalf("register driver user: %v", err)
	}
	d, err := e.drivers.Register(ctx, services.DriverDraft{UserID: u.ID, VehicleType: "van", LicensePlate: "TX-1", IsOnline: true})
	if err != nil {
		t.Fatalf("register driver: %v", err)
	}
	if pos {
		if d, err = e.drivers.UpdateLocation(ctx, d.ID, services.LocationUpdate{Latitude: &lat, Longitude: &lng}); err != nil {
			t.Fatalf("update location: %v", err)
		}
	}
	return *d
}

func (e *env) order(t *testing.T, total string, items ...services.ItemDraft) *services.OrderView {
	t.Helper()
	if len(items) == 0 {
		items = []services.ItemDraft{{PartID: e.pads.ID, Quantity: 1}}
	}
	o, err := e.orders.CreateOrder(context.Background(), services.CreateOrderRequest{
		Order: services.OrderDraft{UserID: e.customer.ID, TotalAmount: dec(total), DeliveryAddress: "9 Elm St"},
		Items: items,
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	return o
}
