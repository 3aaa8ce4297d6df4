package seed

import (
	"context"
	"io"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"shophand/logging"
	"shophand/services"
	"shophand/store"
	"shophand/store/memstore"
)

func TestLoadIsIdempotent(t *testing.T) {
	logging.SetOutput(io.Discard)
	ctx := context.Background()
	st := memstore.New()
	catalog := services.NewCatalogService(st)
	svc := Services{
		Users:   services.NewUserService(st, bcrypt.MinCost),
		Catalog: catalog,
		Drivers: services.NewDriverService(st),
	}

	res, err := Load(ctx, st, svc)
	if err != nil {
		t.Fatal(err)
	}
	want := Result{Users: 4, Drivers: 2, Partners: 3, Vehicles: 3, Categories: 4, Parts: 6}
	if *res != want {
		t.Fatalf("result = %+v, want %+v", *res, want)
	}

	again, err := Load(ctx, st, svc)
	if err != nil {
		t.Fatal(err)
	}
	if !again.Skipped {
		t.Fatal("second load did not skip")
	}
	parts, _ := st.ListParts(ctx, store.PartFilter{})
	if len(parts) != 6 {
		t.Fatalf("parts after reload = %d", len(parts))
	}

	// every partner address resolves, so dispatch can price every pickup
	geo := services.NewStaticGeocoder(Addresses)
	partners, _ := catalog.ListPartners(ctx)
	for _, p := range partners {
		if _, ok, _ := geo.Geocode(ctx, p.Address); !ok {
			t.Errorf("partner %s address %q has no coordinates", p.Name, p.Address)
		}
	}
}
