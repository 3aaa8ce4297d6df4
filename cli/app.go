package cli

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"shophand/automation"
	"shophand/config"
	"shophand/handlers"
	"shophand/logging"
	"shophand/middleware"
	"shophand/payment"
	"shophand/seed"
	"shophand/services"
	"shophand/store"
	"shophand/store/memstore"
	"shophand/store/sqlstore"
)

// app is the wired service graph shared by every subcommand
type app struct {
	cfg        *config.Config
	store      store.Store
	redis      *redis.Client
	users      *services.UserService
	catalog    *services.CatalogService
	orders     *services.OrderService
	drivers    *services.DriverService
	dispatcher *services.Dispatcher
	payments   *services.PaymentService
	analytics  *services.AnalyticsService
	engine     *automation.Engine
}

func openStore(cfg *config.Config) (store.Store, error) {
	switch cfg.Storage.Driver {
	case "sqlite":
		return sqlstore.Open(sqlstore.Options{DSN: cfg.Storage.DSN, Timeout: cfg.Storage.Timeout})
	default:
		return memstore.New(), nil
	}
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	st, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, store: st}

	a.users = services.NewUserService(st, bcrypt.DefaultCost)
	a.catalog = services.NewCatalogService(st)
	a.orders = services.NewOrderService(st, a.catalog, time.Now)
	a.drivers = services.NewDriverService(st)
	a.analytics = services.NewAnalyticsService(st)
	geo := services.NewPartnerGeocoder(st, services.NewStaticGeocoder(seed.Addresses))
	a.dispatcher = services.NewDispatcher(st, a.orders, services.HaversineCost(geo))

	var processor payment.Processor = payment.NewSimulatedProcessor()
	if cfg.Payment.BaseURL != "" {
		processor = payment.NewHTTPProcessor(cfg.Payment.BaseURL, cfg.Payment.APIKey, cfg.Payment.Timeout)
	}
	var idem payment.Idempotency = payment.NewMemoryIdempotency()
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := client.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			client.Close()
			logging.Warn(nil, "redis.unavailable", map[string]any{"addr": cfg.Redis.Addr, "err": err.Error()})
		} else {
			a.redis = client
			idem = payment.NewRedisIdempotency(client)
		}
	}
	a.payments = services.NewPaymentService(processor, idem, cfg.Payment.MaxAttempts)

	var rng *rand.Rand
	if cfg.Automation.Seed != 0 {
		rng = rand.New(rand.NewSource(cfg.Automation.Seed))
	}
	a.engine = automation.NewEngine(automation.NewMetrics(), st, rng)
	return a, nil
}

func (a *app) handler() *handlers.Handler {
	return &handlers.Handler{
		Store:      a.store,
		Auth:       middleware.NewAuth(a.cfg.Auth.JWTSecret, a.cfg.Auth.TokenTTL),
		Users:      a.users,
		Catalog:    a.catalog,
		Orders:     a.orders,
		Drivers:    a.drivers,
		Dispatcher: a.dispatcher,
		Payments:   a.payments,
		Analytics:  a.analytics,
		Metrics:    a.engine.Metrics(),
	}
}

func (a *app) seed(ctx context.Context) (*seed.Result, error) {
	return seed.Load(ctx, a.store, seed.Services{Users: a.users, Catalog: a.catalog, Drivers: a.drivers})
}

// scheduler registers the simulation tasks and, when configured, auto-dispatch
func (a *app) scheduler(start time.Time) *automation.Scheduler {
	s := automation.NewScheduler(start)
	a.engine.Register(s)
	if every := a.cfg.Dispatch.AutoInterval; every > 0 {
		s.Add(automation.Task{
			Name:     "dispatch",
			Interval: every,
			Run: func(ctx context.Context, _ time.Time) {
				if _, err := a.dispatcher.Run(ctx); err != nil {
					logging.Error(nil, "dispatch.auto", err, nil)
				}
			},
		})
	}
	return s
}

func (a *app) Close() error {
	if a.redis != nil {
		a.redis.Close()
	}
	if err := a.store.Close(); err != nil {
		return fmt.Errorf("close store: %w", err)
	}
	return nil
}
