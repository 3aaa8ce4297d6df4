package services_test

import (
	"context"
	"errors"
	"testing"

	"shophand/apperr"
	"shophand/models"
	"shophand/services"
	"shophand/store"
)

func TestListPartsEnrichesPartnerAndCategory(t *testing.T) {
	e := newEnv(t)
	parts, err := e.catalog.ListParts(context.Background(), store.PartFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(parts) != 2 {
		t.Fatalf("parts = %d, want 2", len(parts))
	}
	for _, p := range parts {
		if p.Partner == nil || p.Partner.Name != "AutoZone" {
			t.Errorf("part %d partner = %+v", p.ID, p.Partner)
		}
		if p.Category == nil || p.Category.Name != "Brakes" {
			t.Errorf("part %d category = %+v", p.ID, p.Category)
		}
	}
}

func TestListPartsHidesInactive(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	off := false
	if _, err := e.catalog.CreatePart(ctx, services.PartDraft{
		Name: "Discontinued Rotor", CategoryID: e.category.ID, PartnerID: e.partner.ID, Price: dec("40"), IsActive: &off,
	}); err != nil {
		t.Fatal(err)
	}
	parts, _ := e.catalog.ListParts(ctx, store.PartFilter{})
	if len(parts) != 2 {
		t.Fatalf("active parts = %d, want 2", len(parts))
	}
	parts, _ = e.catalog.ListParts(ctx, store.PartFilter{Search: "ROTOR", IncludeInactive: true})
	if len(parts) != 1 {
		t.Fatalf("search with inactive = %d, want 1", len(parts))
	}
}

func TestSearchByVehicle(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	parts, err := e.catalog.SearchByVehicle(ctx, services.VehicleQuery{Make: "toyota", Model: "CAMRY", Year: 2019})
	if err != nil {
		t.Fatal(err)
	}
	if len(parts) != 1 || parts[0].ID != e.pads.ID {
		t.Fatalf("compatible parts = %+v, want pads only", parts)
	}

	parts, err = e.catalog.SearchByVehicle(ctx, services.VehicleQuery{Make: "Toyota", Model: "Camry", Year: 2020})
	if err != nil || len(parts) != 0 {
		t.Fatalf("unknown vehicle = %v, %v", parts, err)
	}

	_, err = e.catalog.SearchByVehicle(ctx, services.VehicleQuery{Make: "Toyota", Model: "Camry"})
	var verr *apperr.ValidationError
	if !errors.As(err, &verr) || verr.Fields[0].Field != "year" {
		t.Fatalf("missing year: %v", err)
	}
}

func TestGetPart(t *testing.T) {
	e := newEnv(t)
	p, err := e.catalog.GetPart(context.Background(), e.pads.ID)
	if err != nil {
		t.Fatal(err)
	}
	if p.Name != "Brake Pads" || p.Partner == nil || p.Category == nil {
		t.Fatalf("part = %+v", p)
	}
	if _, err := e.catalog.GetPart(context.Background(), 404); apperr.Status(err) != 404 {
		t.Fatalf("missing part: %v", err)
	}
}

func TestCreatePartDefaultsAndReferences(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	if e.pads.Condition != models.ConditionNew || e.pads.Source != models.SourceAftermarket {
		t.Errorf("defaults = %s/%s", e.pads.Condition, e.pads.Source)
	}

	_, err := e.catalog.CreatePart(ctx, services.PartDraft{
		Name: "Ghost", CategoryID: 404, PartnerID: 405, Price: dec("-1"), VehicleCompatibility: []uint{e.camry.ID, 406},
	})
	var verr *apperr.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	want := map[string]bool{"price": true, "categoryId": true, "partnerId": true, "vehicleCompatibility": true}
	for _, f := range verr.Fields {
		delete(want, f.Field)
	}
	if len(want) != 0 {
		t.Fatalf("fields %+v missing %v", verr.Fields, want)
	}

	_, err = e.catalog.CreatePart(ctx, services.PartDraft{
		Name: "Bad", CategoryID: e.category.ID, PartnerID: e.partner.ID, Price: dec("1"), Condition: "broken",
	})
	if !errors.As(err, &verr) || verr.Fields[0].Field != "condition" {
		t.Fatalf("bad condition: %v", err)
	}
}

func TestCreateVehicleRejectsDuplicates(t *testing.T) {
	e := newEnv(t)
	_, err := e.catalog.CreateVehicle(context.Background(), services.VehicleDraft{Make: "TOYOTA", Model: "camry", Year: 2019})
	if apperr.Status(err) != 409 {
		t.Fatalf("duplicate vehicle: %v", err)
	}
	_, err = e.catalog.CreateVehicle(context.Background(), services.VehicleDraft{Make: "Ford", Model: "F-150", Year: 1850})
	if apperr.Status(err) != 400 {
		t.Fatalf("year out of range: %v", err)
	}
}

func TestListPartnersActiveOnly(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	off := false
	if _, err := e.catalog.CreatePartner(ctx, services.PartnerDraft{
		Name: "Closed Yard", Type: models.PartnerDismantler, Address: "2 Side St", IsActive: &off,
	}); err != nil {
		t.Fatal(err)
	}
	partners, err := e.catalog.ListPartners(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(partners) != 1 || partners[0].Name != "AutoZone" {
		t.Fatalf("partners = %+v", partners)
	}
}

func TestCreatePartnerCoordinates(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	lat, lng, bad := 30.25, -97.75, 123.0

	cases := []struct {
		name  string
		lat   *float64
		lng   *float64
		field string
	}{
		{"latitude only", &lat, nil, "longitude"},
		{"longitude only", nil, &lng, "latitude"},
		{"latitude out of range", &bad, &lng, "latitude"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.catalog.CreatePartner(ctx, services.PartnerDraft{
				Name: "Yard", Type: models.PartnerDismantler, Address: "3 Side St", Latitude: tc.lat, Longitude: tc.lng,
			})
			var verr *apperr.ValidationError
			if !errors.As(err, &verr) || verr.Fields[0].Field != tc.field {
				t.Fatalf("expected %s validation error, got %v", tc.field, err)
			}
		})
	}

	p, err := e.catalog.CreatePartner(ctx, services.PartnerDraft{
		Name: "Yard", Type: models.PartnerDismantler, Address: "3 Side St", Latitude: &lat, Longitude: &lng,
	})
	if err != nil {
		t.Fatal(err)
	}
	if !p.HasPosition() || *p.Latitude != lat {
		t.Fatalf("partner = %+v", p)
	}
}
