// Package memstore is the process-local Store. Every table sits behind one
// RWMutex so multi-table writes such as CreateOrder stay atomic.
package memstore

import (
	"context"
	"strings"
	"sync"
	"time"

	"shophand/models"
	"shophand/store"
)

type Store struct {
	mu  sync.RWMutex
	now func() time.Time

	users      *table[models.User]
	drivers    *table[models.Driver]
	partners   *table[models.Partner]
	vehicles   *table[models.Vehicle]
	categories *table[models.Category]
	parts      *table[models.Part]
	orders     *table[models.Order]
	items      *table[models.OrderItem]
	events     *table[models.OrderEvent]
}

type Option func(*Store)

// WithClock replaces time.Now for timestamps
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(opts ...Option) *Store {
	s := &Store{
		now:        time.Now,
		users:      newTable[models.User](),
		drivers:    newTable[models.Driver](),
		partners:   newTable[models.Partner](),
		vehicles:   newTable[models.Vehicle](),
		categories: newTable[models.Category](),
		parts:      newTable[models.Part](),
		orders:     newTable[models.Order](),
		items:      newTable[models.OrderItem](),
		events:     newTable[models.OrderEvent](),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ store.Store = (*Store)(nil)

func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }
func (s *Store) Close() error                   { return nil }

// ── Users ────────────────────────────────────────────────────────────────────

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	taken := false
	s.users.each(func(x models.User) bool {
		taken = strings.EqualFold(x.Email, u.Email) || strings.EqualFold(x.Username, u.Username)
		return !taken
	})
	if taken {
		return store.ErrDuplicate
	}
	u.ID = s.users.nextID()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.now()
	}
	if u.SubscriptionTier == "" {
		u.SubscriptionTier = "free"
	}
	s.users.put(u.ID, *u)
	return nil
}

func (s *Store) GetUser(ctx context.Context, id uint) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users.get(id)
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findUser(func(u models.User) bool { return strings.EqualFold(u.Email, email) })
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.findUser(func(u models.User) bool { return strings.EqualFold(u.Username, username) })
}

func (s *Store) findUser(match func(models.User) bool) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var found *models.User
	s.users.each(func(u models.User) bool {
		if match(u) {
			found = &u
			return false
		}
		return true
	})
	return found, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.users.filter(nil), nil
}

// ── Drivers ──────────────────────────────────────────────────────────────────

func (s *Store) CreateDriver(ctx context.Context, d *models.Driver) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	taken := false
	s.drivers.each(func(x models.Driver) bool {
		taken = x.UserID == d.UserID
		return !taken
	})
	if taken {
		return store.ErrDuplicate
	}
	d.ID = s.drivers.nextID()
	if d.Rating.IsZero() {
		d.Rating = models.DefaultDriverRating
	}
	d.TotalDeliveries = 0
	if d.CreatedAt.IsZero() {
		d.CreatedAt = s.now()
	}
	s.drivers.put(d.ID, copyDriver(*d))
	return nil
}

func (s *Store) GetDriver(ctx context.Context, id uint) (*models.Driver, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.drivers.get(id)
	if !ok {
		return nil, nil
	}
	d = copyDriver(d)
	return &d, nil
}

func (s *Store) GetDriverByUserID(ctx context.Context, userID uint) (*models.Driver, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var found *models.Driver
	s.drivers.each(func(d models.Driver) bool {
		if d.UserID == userID {
			d = copyDriver(d)
			found = &d
			return false
		}
		return true
	})
	return found, nil
}

func (s *Store) ListDrivers(ctx context.Context, onlineOnly bool) ([]models.Driver, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.drivers.filter(func(d models.Driver) bool { return !onlineOnly || d.IsOnline })
	for i := range out {
		out[i] = copyDriver(out[i])
	}
	return out, nil
}

func (s *Store) SetDriverOnline(ctx context.Context, id uint, online bool) (*models.Driver, error) {
	return s.updateDriver(id, func(d *models.Driver) { d.IsOnline = online })
}

func (s *Store) SetDriverLocation(ctx context.Context, id uint, lat, lng float64) (*models.Driver, error) {
	return s.updateDriver(id, func(d *models.Driver) {
		d.Latitude = &lat
		d.Longitude = &lng
	})
}

func (s *Store) IncrementDriverDeliveries(ctx context.Context, id uint) error {
	_, err := s.updateDriver(id, func(d *models.Driver) { d.TotalDeliveries++ })
	return err
}

func (s *Store) updateDriver(id uint, fn func(d *models.Driver)) (*models.Driver, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.drivers.get(id)
	if !ok {
		return nil, nil
	}
	d = copyDriver(d)
	fn(&d)
	s.drivers.put(id, d)
	out := copyDriver(d)
	return &out, nil
}

// ── Catalog ──────────────────────────────────────────────────────────────────

func (s *Store) CreatePartner(ctx context.Context, p *models.Partner) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = s.partners.nextID()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now()
	}
	s.partners.put(p.ID, *p)
	return nil
}

func (s *Store) GetPartner(ctx context.Context, id uint) (*models.Partner, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.partners.get(id)
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (s *Store) ListPartners(ctx context.Context, activeOnly bool) ([]models.Partner, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.partners.filter(func(p models.Partner) bool { return !activeOnly || p.IsActive }), nil
}

func (s *Store) CreateVehicle(ctx context.Context, v *models.Vehicle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v.ID = s.vehicles.nextID()
	s.vehicles.put(v.ID, *v)
	return nil
}

func (s *Store) GetVehicle(ctx context.Context, id uint) (*models.Vehicle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.vehicles.get(id)
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func (s *Store) ListVehicles(ctx context.Context) ([]models.Vehicle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.vehicles.filter(nil), nil
}

func (s *Store) FindVehicle(ctx context.Context, make, model string, year int) (*models.Vehicle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findVehicle(make, model, year), nil
}

func (s *Store) findVehicle(make, model string, year int) *models.Vehicle {
	var found *models.Vehicle
	s.vehicles.each(func(v models.Vehicle) bool {
		if strings.EqualFold(v.Make, make) && strings.EqualFold(v.Model, model) && v.Year == year {
			found = &v
			return false
		}
		return true
	})
	return found
}

func (s *Store) CreateCategory(ctx context.Context, c *models.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.categories.nextID()
	s.categories.put(c.ID, *c)
	return nil
}

func (s *Store) GetCategory(ctx context.Context, id uint) (*models.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.categories.get(id)
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (s *Store) ListCategories(ctx context.Context) ([]models.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.categories.filter(nil), nil
}

func (s *Store) CreatePart(ctx context.Context, p *models.Part) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = s.parts.nextID()
	p.VehicleCompatibility = p.VehicleCompatibility.Normalize()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now()
	}
	s.parts.put(p.ID, copyPart(*p))
	return nil
}

func (s *Store) GetPart(ctx context.Context, id uint) (*models.Part, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.parts.get(id)
	if !ok {
		return nil, nil
	}
	p = copyPart(p)
	return &p, nil
}

func (s *Store) ListParts(ctx context.Context, f store.PartFilter) ([]models.Part, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	search := strings.ToLower(strings.TrimSpace(f.Search))
	out := s.parts.filter(func(p models.Part) bool {
		if !f.IncludeInactive && !p.IsActive {
			return false
		}
		if f.CategoryID != 0 && p.CategoryID != f.CategoryID {
			return false
		}
		if f.PartnerID != 0 && p.PartnerID != f.PartnerID {
			return false
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(p.Name), search) &&
			!strings.Contains(strings.ToLower(p.Description), search) {
			return false
		}
		return true
	})
	for i := range out {
		out[i] = copyPart(out[i])
	}
	return out, nil
}

func (s *Store) SearchPartsByVehicle(ctx context.Context, make, model string, year int) ([]models.Part, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v := s.findVehicle(make, model, year)
	if v == nil {
		return []models.Part{}, nil
	}
	out := s.parts.filter(func(p models.Part) bool {
		return p.IsActive && p.VehicleCompatibility.Contains(v.ID)
	})
	for i := range out {
		out[i] = copyPart(out[i])
	}
	return out, nil
}

// ── Orders ───────────────────────────────────────────────────────────────────

func (s *Store) CreateOrder(ctx context.Context, o *models.Order, items []models.OrderItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Check everything before touching any table.
	need := map[uint]int{}
	parts := make([]models.Part, len(items))
	for i, it := range items {
		p, ok := s.parts.get(it.PartID)
		if !ok {
			return &store.MissingPartError{Index: i, PartID: it.PartID}
		}
		need[it.PartID] += it.Quantity
		if need[it.PartID] > p.Stock {
			return &store.StockError{Index: i, PartID: p.ID, Requested: need[it.PartID], Available: p.Stock}
		}
		parts[i] = p
	}

	now := s.now()
	for partID, qty := range need {
		p, _ := s.parts.get(partID)
		p.Stock -= qty
		s.parts.put(partID, p)
	}

	o.ID = s.orders.nextID()
	if o.Status == "" {
		o.Status = models.StatusPending
	}
	o.CreatedAt = now
	o.UpdatedAt = now
	s.orders.put(o.ID, copyOrder(*o))

	for i := range items {
		items[i].ID = s.items.nextID()
		items[i].OrderID = o.ID
		items[i].Price = parts[i].Price
		s.items.put(items[i].ID, items[i])
	}

	ev := models.OrderEvent{
		ID:        s.events.nextID(),
		OrderID:   o.ID,
		ToStatus:  o.Status,
		DriverID:  o.DriverID,
		Note:      "order created",
		CreatedAt: now,
	}
	s.events.put(ev.ID, ev)
	return nil
}

func (s *Store) GetOrder(ctx context.Context, id uint) (*models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders.get(id)
	if !ok {
		return nil, nil
	}
	o = copyOrder(o)
	return &o, nil
}

func (s *Store) ListOrders(ctx context.Context, f store.OrderFilter) ([]models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.orders.filter(func(o models.Order) bool {
		if f.UserID != 0 && o.UserID != f.UserID {
			return false
		}
		if f.DriverID != 0 && (o.DriverID == nil || *o.DriverID != f.DriverID) {
			return false
		}
		if f.Status != "" && o.Status != f.Status {
			return false
		}
		if f.Unassigned && o.DriverID != nil {
			return false
		}
		return true
	})
	for i := range out {
		out[i] = copyOrder(out[i])
	}
	return out, nil
}

func (s *Store) UpdateOrder(ctx context.Context, id uint, mutate store.OrderMutation) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.orders.get(id)
	if !ok {
		return nil, nil
	}
	before := copyOrder(current)
	after := copyOrder(current)
	if err := mutate(&after); err != nil {
		return nil, err
	}
	after.ID = id
	after.UpdatedAt = s.now()
	s.orders.put(id, after)

	if ev := store.EventFor(&before, &after); ev != nil {
		ev.ID = s.events.nextID()
		s.events.put(ev.ID, *ev)
	}
	out := copyOrder(after)
	return &out, nil
}

func (s *Store) ListOrderItems(ctx context.Context, orderID uint) ([]models.OrderItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.items.filter(func(it models.OrderItem) bool { return it.OrderID == orderID }), nil
}

func (s *Store) ListOrderEvents(ctx context.Context, orderID uint) ([]models.OrderEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.events.filter(func(ev models.OrderEvent) bool { return ev.OrderID == orderID }), nil
}

// ── copies ───────────────────────────────────────────────────────────────────
// Rows hold pointers and slices; callers get their own copies.

func copyDriver(d models.Driver) models.Driver {
	if d.Latitude != nil {
		lat := *d.Latitude
		d.Latitude = &lat
	}
	if d.Longitude != nil {
		lng := *d.Longitude
		d.Longitude = &lng
	}
	return d
}

func copyPart(p models.Part) models.Part {
	p.VehicleCompatibility = append(models.VehicleIDs{}, p.VehicleCompatibility...)
	if p.OriginalPrice != nil {
		op := *p.OriginalPrice
		p.OriginalPrice = &op
	}
	return p
}

func copyOrder(o models.Order) models.Order {
	if o.DriverID != nil {
		id := *o.DriverID
		o.DriverID = &id
	}
	if o.EstimatedDeliveryTime != nil {
		t := *o.EstimatedDeliveryTime
		o.EstimatedDeliveryTime = &t
	}
	if o.ActualDeliveryTime != nil {
		t := *o.ActualDeliveryTime
		o.ActualDeliveryTime = &t
	}
	return o
}
