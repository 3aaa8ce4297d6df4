// Package seed loads the demo catalog, accounts and drivers.
package seed

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"shophand/services"
	"shophand/store"
)

// DemoPassword is shared by every demo account
const DemoPassword = "password123"

// Addresses is the geocoder address book for the demo partners and drivers
var Addresses = map[string]services.Point{
	"1200 Industrial Blvd, Austin, TX":  {Lat: 30.3322, Lng: -97.7110},
	"455 Congress Ave, Austin, TX":      {Lat: 30.2672, Lng: -97.7431},
	"8800 Salvage Rd, Pflugerville, TX": {Lat: 30.4394, Lng: -97.6200},
}

type Result struct {
	Skipped    bool `json:"skipped"`
	Users      int  `json:"users"`
	Drivers    int  `json:"drivers"`
	Partners   int  `json:"partners"`
	Vehicles   int  `json:"vehicles"`
	Categories int  `json:"categories"`
	Parts      int  `json:"parts"`
}

type Services struct {
	Users   *services.UserService
	Catalog *services.CatalogService
	Drivers *services.DriverService
}

func money(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func ptr[T any](v T) *T { return &v }

// Load inserts the demo data through the services. It does nothing when the
// store already holds categories.
func Load(ctx context.Context, s store.Store, svc Services) (*Result, error) {
	existing, err := s.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return &Result{Skipped: true}, nil
	}
	res := &Result{}

	accounts := []services.RegisterRequest{
		{Username: "owner", Email: "owner@shophand.dev", FirstName: "Olivia", LastName: "Owner", UserType: "business"},
		{Username: "casey", Email: "casey@shophand.dev", FirstName: "Casey", LastName: "Customer", UserType: "customer"},
		{Username: "dana", Email: "dana@shophand.dev", FirstName: "Dana", LastName: "Driver", UserType: "driver"},
		{Username: "drew", Email: "drew@shophand.dev", FirstName: "Drew", LastName: "Driver", UserType: "driver"},
	}
	userIDs := map[string]uint{}
	for _, a := range accounts {
		a.Password = DemoPassword
		u, err := svc.Users.Register(ctx, a)
		if err != nil {
			return nil, fmt.Errorf("seed user %s: %w", a.Username, err)
		}
		userIDs[a.Username] = u.ID
		res.Users++
	}

	drivers := []struct {
		username string
		draft    services.DriverDraft
		lat, lng float64
	}{
		{"dana", services.DriverDraft{VehicleType: "pickup truck", LicensePlate: "TX-4821", IsOnline: true, IsVerified: true}, 30.2849, -97.7341},
		{"drew", services.DriverDraft{VehicleType: "cargo van", LicensePlate: "TX-9917", IsOnline: true, IsVerified: true}, 30.4000, -97.6800},
	}
	for _, d := range drivers {
		d.draft.UserID = userIDs[d.username]
		drv, err := svc.Drivers.Register(ctx, d.draft)
		if err != nil {
			return nil, fmt.Errorf("seed driver %s: %w", d.username, err)
		}
		lat, lng := d.lat, d.lng
		if _, err := svc.Drivers.UpdateLocation(ctx, drv.ID, services.LocationUpdate{Latitude: &lat, Longitude: &lng}); err != nil {
			return nil, err
		}
		res.Drivers++
	}

	categoryIDs := map[string]uint{}
	for _, c := range []services.CategoryDraft{
		{Name: "Brakes", Description: "Pads, rotors, calipers", Icon: "disc"},
		{Name: "Engine", Description: "Filters, belts, ignition", Icon: "engine"},
		{Name: "Suspension", Description: "Struts, shocks, control arms", Icon: "spring"},
		{Name: "Electrical", Description: "Batteries, alternators, starters", Icon: "battery"},
	} {
		cat, err := svc.Catalog.CreateCategory(ctx, c)
		if err != nil {
			return nil, fmt.Errorf("seed category %s: %w", c.Name, err)
		}
		categoryIDs[c.Name] = cat.ID
		res.Categories++
	}

	partnerIDs := map[string]uint{}
	for _, p := range []services.PartnerDraft{
		{Name: "Capitol Toyota Parts", Type: "dealership", Address: "1200 Industrial Blvd, Austin, TX", Phone: "512-555-0100", PickupInstructions: "Parts counter, door 3"},
		{Name: "AutoZone Congress", Type: "retail", Address: "455 Congress Ave, Austin, TX", Phone: "512-555-0142"},
		{Name: "Hill Country Dismantlers", Type: "dismantler", Address: "8800 Salvage Rd, Pflugerville, TX", Phone: "512-555-0199", PickupInstructions: "Ring bell at yard gate"},
	} {
		partner, err := svc.Catalog.CreatePartner(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("seed partner %s: %w", p.Name, err)
		}
		partnerIDs[p.Name] = partner.ID
		res.Partners++
	}

	vehicleIDs := map[string]uint{}
	for _, v := range []services.VehicleDraft{
		{Make: "Toyota", Model: "Camry", Year: 2019, Engine: "2.5L I4", Category: "sedan"},
		{Make: "Honda", Model: "Civic", Year: 2020, Engine: "2.0L I4", Category: "compact"},
		{Make: "Ford", Model: "F-150", Year: 2018, Engine: "5.0L V8", Category: "truck"},
	} {
		vehicle, err := svc.Catalog.CreateVehicle(ctx, v)
		if err != nil {
			return nil, fmt.Errorf("seed vehicle %s %s: %w", v.Make, v.Model, err)
		}
		vehicleIDs[v.Model] = vehicle.ID
		res.Vehicles++
	}

	parts := []services.PartDraft{
		{Name: "Ceramic Brake Pads", Description: "Front axle, low dust", PartNumber: "BP-2019-CAM",
			CategoryID: categoryIDs["Brakes"], PartnerID: partnerIDs["Capitol Toyota Parts"], Price: money("89.99"),
			Condition: "new", Source: "oem", Stock: 24, VehicleCompatibility: []uint{vehicleIDs["Camry"]}},
		{Name: "Vented Brake Rotor", Description: "Front, pair", PartNumber: "BR-220",
			CategoryID: categoryIDs["Brakes"], PartnerID: partnerIDs["AutoZone Congress"], Price: money("129.50"), OriginalPrice: money("149.00"),
			Condition: "new", Source: "aftermarket", Stock: 10, VehicleCompatibility: []uint{vehicleIDs["Camry"], vehicleIDs["Civic"]}},
		{Name: "Oil Filter", Description: "Spin-on cartridge", PartNumber: "OF-77",
			CategoryID: categoryIDs["Engine"], PartnerID: partnerIDs["AutoZone Congress"], Price: money("12.99"),
			Condition: "new", Source: "aftermarket", Stock: 80, VehicleCompatibility: []uint{vehicleIDs["Camry"], vehicleIDs["Civic"], vehicleIDs["F-150"]}},
		{Name: "Rear Shock Absorber", Description: "Gas charged", PartNumber: "SA-150R",
			CategoryID: categoryIDs["Suspension"], PartnerID: partnerIDs["Hill Country Dismantlers"], Price: money("45.00"), OriginalPrice: money("110.00"),
			Condition: "used", Source: "recycled", Stock: 3, VehicleCompatibility: []uint{vehicleIDs["F-150"]}},
		{Name: "Alternator", Description: "Remanufactured, 150A", PartNumber: "ALT-150",
			CategoryID: categoryIDs["Electrical"], PartnerID: partnerIDs["Hill Country Dismantlers"], Price: money("189.00"),
			Condition: "refurbished", Source: "recycled", Stock: 4, VehicleCompatibility: []uint{vehicleIDs["F-150"]}},
		{Name: "AGM Battery", Description: "Group 24F, 710 CCA", PartNumber: "BAT-24F",
			CategoryID: categoryIDs["Electrical"], PartnerID: partnerIDs["Capitol Toyota Parts"], Price: money("219.99"),
			Condition: "new", Source: "oem", Stock: 0, IsActive: ptr(true), VehicleCompatibility: []uint{vehicleIDs["Camry"]}},
	}
	for _, p := range parts {
		if _, err := svc.Catalog.CreatePart(ctx, p); err != nil {
			return nil, fmt.Errorf("seed part %s: %w", p.Name, err)
		}
		res.Parts++
	}
	return res, nil
}
