package store_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm/logger"

	"shophand/models"
	"shophand/store"
	"shophand/store/memstore"
	"shophand/store/sqlstore"
)

// backends returns a fresh instance of every Store implementation
func backends(t *testing.T) map[string]store.Store {
	t.Helper()
	sql, err := sqlstore.Open(sqlstore.Options{
		DSN:      filepath.Join(t.TempDir(), "test.db"),
		Timeout:  5 * time.Second,
		LogLevel: logger.Silent,
	})
	if err != nil {
		t.Fatalf("open sqlstore: %v", err)
	}
	t.Cleanup(func() { sql.Close() })
	return map[string]store.Store{
		"memory": memstore.New(),
		"sqlite": sql,
	}
}

func eachBackend(t *testing.T, fn func(t *testing.T, s store.Store)) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) { fn(t, s) })
	}
}

func price(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fixture struct {
	user     models.User
	category models.Category
	partner  models.Partner
	camry    models.Vehicle
	pads     models.Part
	rotor    models.Part
}

func seed(t *testing.T, ctx context.Context, s store.Store) fixture {
	t.Helper()
	var f fixture
	f.user = models.User{Username: "ana", Email: "ana@example.com", PasswordHash: "x", UserType: models.UserCustomer, IsActive: true}
	if err := s.CreateUser(ctx, &f.user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	f.category = models.Category{Name: "Brakes"}
	if err := s.CreateCategory(ctx, &f.category); err != nil {
		t.Fatalf("create category: %v", err)
	}
	f.partner = models.Partner{Name: "AutoZone", Type: models.PartnerRetail, Address: "1 Main St", IsActive: true}
	if err := s.CreatePartner(ctx, &f.partner); err != nil {
		t.Fatalf("create partner: %v", err)
	}
	f.camry = models.Vehicle{Make: "Toyota", Model: "Camry", Year: 2019}
	if err := s.CreateVehicle(ctx, &f.camry); err != nil {
		t.Fatalf("create vehicle: %v", err)
	}
	f.pads = models.Part{
		Name: "Brake Pads", Description: "Ceramic front pads", CategoryID: f.category.ID, PartnerID: f.partner.ID,
		Price: price("89.99"), Stock: 5, IsActive: true, VehicleCompatibility: models.NewVehicleIDs(f.camry.ID),
	}
	if err := s.CreatePart(ctx, &f.pads); err != nil {
		t.Fatalf("create part: %v", err)
	}
	f.rotor = models.Part{
		Name: "Rotor", Description: "Vented disc", CategoryID: f.category.ID, PartnerID: f.partner.ID,
		Price: price("120.50"), Stock: 1, IsActive: true,
	}
	if err := s.CreatePart(ctx, &f.rotor); err != nil {
		t.Fatalf("create part: %v", err)
	}
	return f
}

func TestIDsAreSequentialPerType(t *testing.T) {
	eachBackend(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		f := seed(t, ctx, s)
		if f.category.ID != 1 || f.partner.ID != 1 || f.pads.ID != 1 || f.rotor.ID != 2 {
			t.Fatalf("unexpected ids: category=%d partner=%d parts=%d,%d", f.category.ID, f.partner.ID, f.pads.ID, f.rotor.ID)
		}
	})
}

func TestGetMissingReturnsNil(t *testing.T) {
	eachBackend(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		u, err := s.GetUser(ctx, 99)
		if err != nil || u != nil {
			t.Fatalf("GetUser(99) = %v, %v; want nil, nil", u, err)
		}
		o, err := s.GetOrder(ctx, 99)
		if err != nil || o != nil {
			t.Fatalf("GetOrder(99) = %v, %v; want nil, nil", o, err)
		}
		updated, err := s.UpdateOrder(ctx, 99, func(o *models.Order) error { return nil })
		if err != nil || updated != nil {
			t.Fatalf("UpdateOrder(99) = %v, %v; want nil, nil", updated, err)
		}
	})
}

func TestDuplicateUser(t *testing.T) {
	eachBackend(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		seed(t, ctx, s)
		dup := models.User{Username: "ana", Email: "other@example.com", PasswordHash: "x", UserType: models.UserCustomer}
		if err := s.CreateUser(ctx, &dup); !errors.Is(err, store.ErrDuplicate) {
			t.Fatalf("expected ErrDuplicate, got %v", err)
		}
	})
}

func TestDriverDefaults(t *testing.T) {
	eachBackend(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		d := models.Driver{UserID: 7, VehicleType: "van", TotalDeliveries: 40}
		if err := s.CreateDriver(ctx, &d); err != nil {
			t.Fatalf("create driver: %v", err)
		}
		got, err := s.GetDriver(ctx, d.ID)
		if err != nil || got == nil {
			t.Fatalf("get driver: %v, %v", got, err)
		}
		if !got.Rating.Equal(models.DefaultDriverRating) {
			t.Errorf("rating = %s, want 5.00", got.Rating)
		}
		if got.TotalDeliveries != 0 {
			t.Errorf("total deliveries = %d, want 0", got.TotalDeliveries)
		}

		if _, err := s.SetDriverOnline(ctx, d.ID, true); err != nil {
			t.Fatalf("set online: %v", err)
		}
		moved, err := s.SetDriverLocation(ctx, d.ID, 40.7, -74.0)
		if err != nil || moved == nil || !moved.HasPosition() {
			t.Fatalf("set location: %v, %v", moved, err)
		}
		online, _ := s.ListDrivers(ctx, true)
		if len(online) != 1 || !online[0].IsOnline {
			t.Fatalf("online drivers = %+v", online)
		}
		missing, err := s.SetDriverOnline(ctx, 404, true)
		if err != nil || missing != nil {
			t.Fatalf("SetDriverOnline(404) = %v, %v", missing, err)
		}
	})
}

func TestListPartsFilters(t *testing.T) {
	eachBackend(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		f := seed(t, ctx, s)
		hidden := models.Part{Name: "Old Pads", CategoryID: f.category.ID, PartnerID: f.partner.ID, Price: price("1"), IsActive: false}
		if err := s.CreatePart(ctx, &hidden); err != nil {
			t.Fatal(err)
		}

		all, _ := s.ListParts(ctx, store.PartFilter{})
		if len(all) != 2 {
			t.Fatalf("active parts = %d, want 2", len(all))
		}
		withInactive, _ := s.ListParts(ctx, store.PartFilter{IncludeInactive: true})
		if len(withInactive) != 3 {
			t.Fatalf("all parts = %d, want 3", len(withInactive))
		}
		search, _ := s.ListParts(ctx, store.PartFilter{Search: "CERAMIC"})
		if len(search) != 1 || search[0].ID != f.pads.ID {
			t.Fatalf("search = %+v", search)
		}
		none, _ := s.ListParts(ctx, store.PartFilter{CategoryID: 42})
		if len(none) != 0 {
			t.Fatalf("category filter returned %d parts", len(none))
		}
	})
}

func TestSearchPartsByVehicle(t *testing.T) {
	eachBackend(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		f := seed(t, ctx, s)

		parts, err := s.SearchPartsByVehicle(ctx, "toyota", "CAMRY", 2019)
		if err != nil {
			t.Fatal(err)
		}
		if len(parts) != 1 || parts[0].ID != f.pads.ID {
			t.Fatalf("got %+v, want only brake pads", parts)
		}
		if !parts[0].VehicleCompatibility.Contains(f.camry.ID) {
			t.Fatalf("compatibility lost in round trip: %v", parts[0].VehicleCompatibility)
		}

		empty, err := s.SearchPartsByVehicle(ctx, "Toyota", "Camry", 1999)
		if err != nil {
			t.Fatal(err)
		}
		if empty == nil || len(empty) != 0 {
			t.Fatalf("unknown vehicle should yield an empty slice, got %#v", empty)
		}
	})
}

func TestCreateOrderIsAtomic(t *testing.T) {
	eachBackend(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		f := seed(t, ctx, s)

		o := models.Order{UserID: f.user.ID, TotalAmount: price("210.49"), DeliveryAddress: "9 Elm St"}
		items := []models.OrderItem{
			{PartID: f.pads.ID, Quantity: 2},
			{PartID: f.rotor.ID, Quantity: 1},
		}
		if err := s.CreateOrder(ctx, &o, items); err != nil {
			t.Fatalf("create order: %v", err)
		}
		if o.ID == 0 || o.Status != models.StatusPending {
			t.Fatalf("order = %+v", o)
		}
		stored, _ := s.ListOrderItems(ctx, o.ID)
		if len(stored) != 2 {
			t.Fatalf("items = %d, want 2", len(stored))
		}
		for _, it := range stored {
			if it.OrderID != o.ID {
				t.Errorf("item %d bound to order %d", it.ID, it.OrderID)
			}
		}
		if !stored[0].Price.Equal(price("89.99")) {
			t.Errorf("captured price = %s", stored[0].Price)
		}
		pads, _ := s.GetPart(ctx, f.pads.ID)
		if pads.Stock != 3 {
			t.Errorf("pads stock = %d, want 3", pads.Stock)
		}

		// rotor is now out of stock: nothing of the second order may persist
		second := models.Order{UserID: f.user.ID, TotalAmount: price("210.49"), DeliveryAddress: "9 Elm St"}
		err := s.CreateOrder(ctx, &second, []models.OrderItem{
			{PartID: f.pads.ID, Quantity: 1},
			{PartID: f.rotor.ID, Quantity: 1},
		})
		var stockErr *store.StockError
		if !errors.As(err, &stockErr) || !errors.Is(err, store.ErrInsufficientStock) {
			t.Fatalf("expected StockError, got %v", err)
		}
		if stockErr.Index != 1 {
			t.Errorf("failing index = %d, want 1", stockErr.Index)
		}
		orders, _ := s.ListOrders(ctx, store.OrderFilter{})
		if len(orders) != 1 {
			t.Fatalf("orders = %d, want 1", len(orders))
		}
		pads, _ = s.GetPart(ctx, f.pads.ID)
		if pads.Stock != 3 {
			t.Errorf("pads stock after failed order = %d, want 3", pads.Stock)
		}

		err = s.CreateOrder(ctx, &second, []models.OrderItem{{PartID: 999, Quantity: 1}})
		var missing *store.MissingPartError
		if !errors.As(err, &missing) || missing.PartID != 999 {
			t.Fatalf("expected MissingPartError, got %v", err)
		}
	})
}

func TestUpdateOrderRecordsEvents(t *testing.T) {
	eachBackend(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		f := seed(t, ctx, s)
		o := models.Order{UserID: f.user.ID, TotalAmount: price("89.99"), DeliveryAddress: "9 Elm St"}
		if err := s.CreateOrder(ctx, &o, []models.OrderItem{{PartID: f.pads.ID, Quantity: 1}}); err != nil {
			t.Fatal(err)
		}

		driverID := uint(3)
		updated, err := s.UpdateOrder(ctx, o.ID, func(o *models.Order) error {
			o.DriverID = &driverID
			o.Status = models.StatusConfirmed
			return nil
		})
		if err != nil {
			t.Fatal(err)
		}
		if updated.DriverID == nil || *updated.DriverID != driverID || updated.Status != models.StatusConfirmed {
			t.Fatalf("updated = %+v", updated)
		}

		// no change, no event
		if _, err := s.UpdateOrder(ctx, o.ID, func(o *models.Order) error { return nil }); err != nil {
			t.Fatal(err)
		}

		events, _ := s.ListOrderEvents(ctx, o.ID)
		if len(events) != 2 {
			t.Fatalf("events = %d, want 2: %+v", len(events), events)
		}
		if events[0].ToStatus != models.StatusPending || events[1].ToStatus != models.StatusConfirmed {
			t.Fatalf("event statuses = %s, %s", events[0].ToStatus, events[1].ToStatus)
		}
		if events[1].FromStatus != models.StatusPending {
			t.Errorf("from status = %s", events[1].FromStatus)
		}

		byDriver, _ := s.ListOrders(ctx, store.OrderFilter{DriverID: driverID})
		if len(byDriver) != 1 {
			t.Fatalf("orders for driver = %d", len(byDriver))
		}
		unassigned, _ := s.ListOrders(ctx, store.OrderFilter{Unassigned: true})
		if len(unassigned) != 0 {
			t.Fatalf("unassigned = %d", len(unassigned))
		}

		boom := errors.New("boom")
		if _, err := s.UpdateOrder(ctx, o.ID, func(o *models.Order) error {
			o.Status = models.StatusCancelled
			return boom
		}); !errors.Is(err, boom) {
			t.Fatalf("mutation error not returned: %v", err)
		}
		again, _ := s.GetOrder(ctx, o.ID)
		if again.Status != models.StatusConfirmed {
			t.Fatalf("failed mutation leaked: %s", again.Status)
		}
	})
}

func TestEventFor(t *testing.T) {
	d := uint(2)
	before := &models.Order{ID: 1, Status: models.StatusPending}
	if ev := store.EventFor(before, &models.Order{ID: 1, Status: models.StatusPending}); ev != nil {
		t.Fatalf("expected nil event, got %+v", ev)
	}
	ev := store.EventFor(before, &models.Order{ID: 1, Status: models.StatusConfirmed, DriverID: &d})
	if ev == nil || ev.Note != "driver 2 assigned" {
		t.Fatalf("event = %+v", ev)
	}
}
