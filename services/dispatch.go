package services

import (
	"cmp"
	"context"
	"errors"
	"math"
	"slices"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"shophand/apperr"
	"shophand/logging"
	"shophand/models"
	"shophand/store"
)

var (
	earningsFloor = decimal.NewFromInt(12)
	earningsRate  = decimal.RequireFromString("0.08")
	earningsBase  = decimal.NewFromInt(5)
)

// ComputeEarnings is the driver payout for an order total:
// max(12, total*0.08 + 5), rounded to cents.
func ComputeEarnings(total decimal.Decimal) decimal.Decimal {
	e := total.Mul(earningsRate).Add(earningsBase)
	if e.LessThan(earningsFloor) {
		e = earningsFloor
	}
	return e.Round(2)
}

// Point is a WGS84 coordinate in degrees
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Haversine returns the great-circle distance between a and b in km
func Haversine(a, b Point) float64 {
	// R is the earth radius in km
	const R = 6371
	phi1 := a.Lat * math.Pi / 180
	phi2 := b.Lat * math.Pi / 180
	dPhi := (b.Lat - a.Lat) * math.Pi / 180
	dLambda := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	return R * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// Geocoder resolves an address to a coordinate. ok is false when the address
// is unknown.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (p Point, ok bool, err error)
}

// StaticGeocoder is a fixed address book, matched case-insensitively
type StaticGeocoder map[string]Point

func NewStaticGeocoder(book map[string]Point) StaticGeocoder {
	g := make(StaticGeocoder, len(book))
	for addr, p := range book {
		g[normalizeAddress(addr)] = p
	}
	return g
}

func (g StaticGeocoder) Geocode(_ context.Context, address string) (Point, bool, error) {
	p, ok := g[normalizeAddress(address)]
	return p, ok, nil
}

// PartnerGeocoder resolves an address to the coordinates a partner
// registered with it, and asks fallback for any other address.
type PartnerGeocoder struct {
	store    store.Store
	fallback Geocoder
}

func NewPartnerGeocoder(s store.Store, fallback Geocoder) *PartnerGeocoder {
	return &PartnerGeocoder{store: s, fallback: fallback}
}

func (g *PartnerGeocoder) Geocode(ctx context.Context, address string) (Point, bool, error) {
	partners, err := g.store.ListPartners(ctx, false)
	if err != nil {
		return Point{}, false, err
	}
	key := normalizeAddress(address)
	for _, p := range partners {
		if p.HasPosition() && normalizeAddress(p.Address) == key {
			return Point{Lat: *p.Latitude, Lng: *p.Longitude}, true, nil
		}
	}
	if g.fallback == nil {
		return Point{}, false, nil
	}
	return g.fallback.Geocode(ctx, address)
}

func normalizeAddress(a string) string {
	return strings.Join(strings.Fields(strings.ToLower(a)), " ")
}

// CostFunc prices sending driver d to order o. ok false means the driver
// cannot be considered for this order.
type CostFunc func(ctx context.Context, d models.Driver, o models.Order) (cost float64, ok bool, err error)

// HaversineCost measures the distance from the driver's last reported
// position to the order's pickup address.
func HaversineCost(g Geocoder) CostFunc {
	return func(ctx context.Context, d models.Driver, o models.Order) (float64, bool, error) {
		if !d.HasPosition() || o.PickupAddress == "" {
			return 0, false, nil
		}
		pickup, ok, err := g.Geocode(ctx, o.PickupAddress)
		if err != nil || !ok {
			return 0, false, err
		}
		return Haversine(Point{Lat: *d.Latitude, Lng: *d.Longitude}, pickup), true, nil
	}
}

type Assignment struct {
	OrderID    uint            `json:"orderId"`
	DriverID   uint            `json:"driverId"`
	DistanceKm float64         `json:"distanceKm"`
	Earnings   decimal.Decimal `json:"earnings"`
}

// Dispatcher matches available orders to online drivers by lowest cost
type Dispatcher struct {
	mu     sync.Mutex
	store  store.Store
	orders *OrderService
	cost   CostFunc
}

func NewDispatcher(s store.Store, orders *OrderService, cost CostFunc) *Dispatcher {
	return &Dispatcher{store: s, orders: orders, cost: cost}
}

// Run makes one pass over every available order, oldest first. A driver gets
// at most one order per pass and none while holding an active order.
func (d *Dispatcher) Run(ctx context.Context) ([]Assignment, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	available, err := d.store.ListOrders(ctx, store.OrderFilter{Status: models.StatusPending, Unassigned: true})
	if err != nil {
		return nil, err
	}
	drivers, err := d.candidates(ctx)
	if err != nil {
		return nil, err
	}

	out := []Assignment{}
	for _, o := range available {
		if len(drivers) == 0 {
			break
		}
		a, idx, err := d.pick(ctx, o, drivers)
		if err != nil {
			return out, err
		}
		if a == nil {
			continue
		}
		if _, err := d.orders.claimPickup(ctx, o.ID, a.DriverID); err != nil {
			var cerr *apperr.ConflictError
			if errors.As(err, &cerr) {
				// taken or cancelled since the listing; the driver stays free
				continue
			}
			return out, err
		}
		drivers = append(drivers[:idx], drivers[idx+1:]...)
		out = append(out, *a)
	}
	logging.Info(nil, "dispatch.round", map[string]any{"available": len(available), "assigned": len(out)})
	return out, nil
}

// DispatchOrder assigns the cheapest free driver to one order
func (d *Dispatcher) DispatchOrder(ctx context.Context, orderID uint) (*Assignment, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	o, err := d.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, apperr.NotFound("order", orderID)
	}
	if !o.Unassigned() {
		return nil, apperr.Conflict("order %d is not awaiting pickup", orderID)
	}
	drivers, err := d.candidates(ctx)
	if err != nil {
		return nil, err
	}
	a, _, err := d.pick(ctx, *o, drivers)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, apperr.Conflict("no available driver for order %d", orderID)
	}
	if _, err := d.orders.claimPickup(ctx, o.ID, a.DriverID); err != nil {
		return nil, err
	}
	return a, nil
}

// candidates are online drivers without an active order, by ascending id
func (d *Dispatcher) candidates(ctx context.Context) ([]models.Driver, error) {
	online, err := d.store.ListDrivers(ctx, true)
	if err != nil {
		return nil, err
	}
	orders, err := d.store.ListOrders(ctx, store.OrderFilter{})
	if err != nil {
		return nil, err
	}
	busy := map[uint]bool{}
	for _, o := range orders {
		if o.DriverID != nil && o.Status.Active() {
			busy[*o.DriverID] = true
		}
	}
	free := make([]models.Driver, 0, len(online))
	for _, drv := range online {
		if !busy[drv.ID] {
			free = append(free, drv)
		}
	}
	slices.SortFunc(free, func(a, b models.Driver) int { return cmp.Compare(a.ID, b.ID) })
	return free, nil
}

// pick returns the lowest cost driver for o and its index in drivers. Ties
// go to the lower id because drivers are sorted and only a strictly lower
// cost replaces the current best.
func (d *Dispatcher) pick(ctx context.Context, o models.Order, drivers []models.Driver) (*Assignment, int, error) {
	best := -1
	var bestCost float64
	for i, drv := range drivers {
		cost, ok, err := d.cost(ctx, drv, o)
		if err != nil {
			return nil, -1, err
		}
		if !ok {
			continue
		}
		if best < 0 || cost < bestCost {
			best, bestCost = i, cost
		}
	}
	if best < 0 {
		return nil, -1, nil
	}
	return &Assignment{
		OrderID:    o.ID,
		DriverID:   drivers[best].ID,
		DistanceKm: math.Round(bestCost*100) / 100,
		Earnings:   ComputeEarnings(o.TotalAmount),
	}, best, nil
}

