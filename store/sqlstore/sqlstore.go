// Package sqlstore is the gorm-backed Store. Each operation runs under its
// own timeout and is retried once when the failure looks transient.
package sqlstore

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"shophand/models"
	"shophand/store"
)

type Options struct {
	DSN      string
	Timeout  time.Duration
	Now      func() time.Time
	LogLevel logger.LogLevel
}

type Store struct {
	db      *gorm.DB
	timeout time.Duration
	now     func() time.Time
}

var _ store.Store = (*Store)(nil)

// Open connects to the sqlite database at opts.DSN and migrates all models
func Open(opts Options) (*Store, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.LogLevel == 0 {
		opts.LogLevel = logger.Warn
	}
	db, err := gorm.Open(sqlite.Open(opts.DSN), &gorm.Config{
		Logger:         logger.Default.LogMode(opts.LogLevel),
		NowFunc:        opts.Now,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// sqlite allows a single writer; one connection also keeps :memory: databases whole
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&models.User{},
		&models.Driver{},
		&models.Partner{},
		&models.Vehicle{},
		&models.Category{},
		&models.Part{},
		&models.Order{},
		&models.OrderItem{},
		&models.OrderEvent{},
	)
	if err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return &Store{db: db, timeout: opts.Timeout, now: opts.Now}, nil
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return sqlDB.PingContext(ctx)
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// run executes fn with a per-attempt timeout, retrying once on a transient error
func (s *Store) run(ctx context.Context, fn func(db *gorm.DB) error) error {
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		opCtx, cancel := context.WithTimeout(ctx, s.timeout)
		err = fn(s.db.WithContext(opCtx))
		cancel()
		if err == nil || !transient(err) || ctx.Err() != nil {
			break
		}
	}
	return translate(err)
}

func transient(err error) bool {
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}

func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return store.ErrDuplicate
	}
	return err
}

// first loads one row or returns nil, nil when none matches
func first[T any](s *Store, ctx context.Context, query func(db *gorm.DB) *gorm.DB) (*T, error) {
	var row T
	err := s.run(ctx, func(db *gorm.DB) error { return query(db).First(&row).Error })
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func find[T any](s *Store, ctx context.Context, query func(db *gorm.DB) *gorm.DB) ([]T, error) {
	rows := []T{}
	err := s.run(ctx, func(db *gorm.DB) error { return query(db).Order("id asc").Find(&rows).Error })
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func byID(id uint) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB { return db.Where("id = ?", id) }
}

func all(db *gorm.DB) *gorm.DB { return db }

// ── Users ────────────────────────────────────────────────────────────────────

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	if u.SubscriptionTier == "" {
		u.SubscriptionTier = "free"
	}
	return s.run(ctx, func(db *gorm.DB) error { return db.Create(u).Error })
}

func (s *Store) GetUser(ctx context.Context, id uint) (*models.User, error) {
	return first[models.User](s, ctx, byID(id))
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return first[models.User](s, ctx, func(db *gorm.DB) *gorm.DB {
		return db.Where("LOWER(email) = LOWER(?)", email)
	})
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return first[models.User](s, ctx, func(db *gorm.DB) *gorm.DB {
		return db.Where("LOWER(username) = LOWER(?)", username)
	})
}

func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	return find[models.User](s, ctx, all)
}

// ── Drivers ──────────────────────────────────────────────────────────────────

func (s *Store) CreateDriver(ctx context.Context, d *models.Driver) error {
	if d.Rating.IsZero() {
		d.Rating = models.DefaultDriverRating
	}
	d.TotalDeliveries = 0
	return s.run(ctx, func(db *gorm.DB) error { return db.Create(d).Error })
}

func (s *Store) GetDriver(ctx context.Context, id uint) (*models.Driver, error) {
	return first[models.Driver](s, ctx, byID(id))
}

func (s *Store) GetDriverByUserID(ctx context.Context, userID uint) (*models.Driver, error) {
	return first[models.Driver](s, ctx, func(db *gorm.DB) *gorm.DB {
		return db.Where("user_id = ?", userID)
	})
}

func (s *Store) ListDrivers(ctx context.Context, onlineOnly bool) ([]models.Driver, error) {
	return find[models.Driver](s, ctx, func(db *gorm.DB) *gorm.DB {
		if onlineOnly {
			return db.Where("is_online = ?", true)
		}
		return db
	})
}

func (s *Store) SetDriverOnline(ctx context.Context, id uint, online bool) (*models.Driver, error) {
	return s.updateDriver(ctx, id, map[string]any{"is_online": online})
}

func (s *Store) SetDriverLocation(ctx context.Context, id uint, lat, lng float64) (*models.Driver, error) {
	return s.updateDriver(ctx, id, map[string]any{"latitude": lat, "longitude": lng})
}

func (s *Store) IncrementDriverDeliveries(ctx context.Context, id uint) error {
	return s.run(ctx, func(db *gorm.DB) error {
		return db.Model(&models.Driver{}).Where("id = ?", id).
			Update("total_deliveries", gorm.Expr("total_deliveries + 1")).Error
	})
}

func (s *Store) updateDriver(ctx context.Context, id uint, fields map[string]any) (*models.Driver, error) {
	err := s.run(ctx, func(db *gorm.DB) error {
		return db.Model(&models.Driver{}).Where("id = ?", id).Updates(fields).Error
	})
	if err != nil {
		return nil, err
	}
	return s.GetDriver(ctx, id)
}

// ── Catalog ──────────────────────────────────────────────────────────────────

func (s *Store) CreatePartner(ctx context.Context, p *models.Partner) error {
	return s.run(ctx, func(db *gorm.DB) error { return db.Create(p).Error })
}

func (s *Store) GetPartner(ctx context.Context, id uint) (*models.Partner, error) {
	return first[models.Partner](s, ctx, byID(id))
}

func (s *Store) ListPartners(ctx context.Context, activeOnly bool) ([]models.Partner, error) {
	return find[models.Partner](s, ctx, func(db *gorm.DB) *gorm.DB {
		if activeOnly {
			return db.Where("is_active = ?", true)
		}
		return db
	})
}

func (s *Store) CreateVehicle(ctx context.Context, v *models.Vehicle) error {
	return s.run(ctx, func(db *gorm.DB) error { return db.Create(v).Error })
}

func (s *Store) GetVehicle(ctx context.Context, id uint) (*models.Vehicle, error) {
	return first[models.Vehicle](s, ctx, byID(id))
}

func (s *Store) ListVehicles(ctx context.Context) ([]models.Vehicle, error) {
	return find[models.Vehicle](s, ctx, all)
}

func (s *Store) FindVehicle(ctx context.Context, make, model string, year int) (*models.Vehicle, error) {
	return first[models.Vehicle](s, ctx, func(db *gorm.DB) *gorm.DB {
		return db.Where("LOWER(make) = LOWER(?) AND LOWER(model) = LOWER(?) AND year = ?", make, model, year).
			Order("id asc")
	})
}

func (s *Store) CreateCategory(ctx context.Context, c *models.Category) error {
	return s.run(ctx, func(db *gorm.DB) error { return db.Create(c).Error })
}

func (s *Store) GetCategory(ctx context.Context, id uint) (*models.Category, error) {
	return first[models.Category](s, ctx, byID(id))
}

func (s *Store) ListCategories(ctx context.Context) ([]models.Category, error) {
	return find[models.Category](s, ctx, all)
}

func (s *Store) CreatePart(ctx context.Context, p *models.Part) error {
	p.VehicleCompatibility = p.VehicleCompatibility.Normalize()
	return s.run(ctx, func(db *gorm.DB) error { return db.Create(p).Error })
}

func (s *Store) GetPart(ctx context.Context, id uint) (*models.Part, error) {
	return first[models.Part](s, ctx, byID(id))
}

func (s *Store) ListParts(ctx context.Context, f store.PartFilter) ([]models.Part, error) {
	return find[models.Part](s, ctx, func(db *gorm.DB) *gorm.DB {
		if !f.IncludeInactive {
			db = db.Where("is_active = ?", true)
		}
		if f.CategoryID != 0 {
			db = db.Where("category_id = ?", f.CategoryID)
		}
		if f.PartnerID != 0 {
			db = db.Where("partner_id = ?", f.PartnerID)
		}
		if search := strings.ToLower(strings.TrimSpace(f.Search)); search != "" {
			like := "%" + search + "%"
			db = db.Where("(LOWER(name) LIKE ? OR LOWER(description) LIKE ?)", like, like)
		}
		return db
	})
}

// SearchPartsByVehicle filters compatibility in Go: the id set is a JSON
// column and sqlite has no portable containment operator for it.
func (s *Store) SearchPartsByVehicle(ctx context.Context, make, model string, year int) ([]models.Part, error) {
	v, err := s.FindVehicle(ctx, make, model, year)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return []models.Part{}, nil
	}
	parts, err := s.ListParts(ctx, store.PartFilter{})
	if err != nil {
		return nil, err
	}
	out := []models.Part{}
	for _, p := range parts {
		if p.VehicleCompatibility.Contains(v.ID) {
			out = append(out, p)
		}
	}
	return out, nil
}

// ── Orders ───────────────────────────────────────────────────────────────────

func (s *Store) CreateOrder(ctx context.Context, o *models.Order, items []models.OrderItem) error {
	if o.Status == "" {
		o.Status = models.StatusPending
	}
	return s.run(ctx, func(db *gorm.DB) error {
		return db.Transaction(func(tx *gorm.DB) error {
			need := map[uint]int{}
			prices := make([]models.Part, len(items))
			for i, it := range items {
				var p models.Part
				err := tx.Where("id = ?", it.PartID).First(&p).Error
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return &store.MissingPartError{Index: i, PartID: it.PartID}
				}
				if err != nil {
					return err
				}
				need[it.PartID] += it.Quantity
				if need[it.PartID] > p.Stock {
					return &store.StockError{Index: i, PartID: p.ID, Requested: need[it.PartID], Available: p.Stock}
				}
				prices[i] = p
			}

			for partID, qty := range need {
				res := tx.Model(&models.Part{}).
					Where("id = ? AND stock >= ?", partID, qty).
					Update("stock", gorm.Expr("stock - ?", qty))
				if res.Error != nil {
					return res.Error
				}
				if res.RowsAffected == 0 {
					return fmt.Errorf("part %d: %w", partID, store.ErrInsufficientStock)
				}
			}

			o.ID = 0
			if err := tx.Create(o).Error; err != nil {
				return err
			}
			for i := range items {
				items[i].ID = 0
				items[i].OrderID = o.ID
				items[i].Price = prices[i].Price
			}
			if len(items) > 0 {
				if err := tx.Create(&items).Error; err != nil {
					return err
				}
			}
			ev := models.OrderEvent{
				OrderID:   o.ID,
				ToStatus:  o.Status,
				DriverID:  o.DriverID,
				Note:      "order created",
				CreatedAt: o.CreatedAt,
			}
			return tx.Create(&ev).Error
		})
	})
}

func (s *Store) GetOrder(ctx context.Context, id uint) (*models.Order, error) {
	return first[models.Order](s, ctx, byID(id))
}

func (s *Store) ListOrders(ctx context.Context, f store.OrderFilter) ([]models.Order, error) {
	return find[models.Order](s, ctx, func(db *gorm.DB) *gorm.DB {
		if f.UserID != 0 {
			db = db.Where("user_id = ?", f.UserID)
		}
		if f.DriverID != 0 {
			db = db.Where("driver_id = ?", f.DriverID)
		}
		if f.Status != "" {
			db = db.Where("status = ?", f.Status)
		}
		if f.Unassigned {
			db = db.Where("driver_id IS NULL")
		}
		return db
	})
}

var errOrderMissing = errors.New("order missing")

func (s *Store) UpdateOrder(ctx context.Context, id uint, mutate store.OrderMutation) (*models.Order, error) {
	var out models.Order
	err := s.run(ctx, func(db *gorm.DB) error {
		return db.Transaction(func(tx *gorm.DB) error {
			var current models.Order
			err := tx.Where("id = ?", id).First(&current).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errOrderMissing
			}
			if err != nil {
				return err
			}
			before := current
			if current.DriverID != nil {
				d := *current.DriverID
				before.DriverID = &d
			}
			if err := mutate(&current); err != nil {
				return err
			}
			current.ID = id
			current.UpdatedAt = s.now()
			if err := tx.Save(&current).Error; err != nil {
				return err
			}
			if ev := store.EventFor(&before, &current); ev != nil {
				if err := tx.Create(ev).Error; err != nil {
					return err
				}
			}
			out = current
			return nil
		})
	})
	if errors.Is(err, errOrderMissing) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Store) ListOrderItems(ctx context.Context, orderID uint) ([]models.OrderItem, error) {
	return find[models.OrderItem](s, ctx, func(db *gorm.DB) *gorm.DB {
		return db.Where("order_id = ?", orderID)
	})
}

func (s *Store) ListOrderEvents(ctx context.Context, orderID uint) ([]models.OrderEvent, error) {
	return find[models.OrderEvent](s, ctx, func(db *gorm.DB) *gorm.DB {
		return db.Where("order_id = ?", orderID)
	})
}
