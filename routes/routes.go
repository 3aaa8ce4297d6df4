package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"shophand/apperr"
	"shophand/handlers"
	"shophand/middleware"
	"shophand/models"
)

func init() {
	// binding errors name json fields, matching the service validator
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		apperr.UseJSONNames(v)
	}
}

// NewRouter builds the engine with the shared middleware and every route
func NewRouter(h *handlers.Handler) *gin.Engine {
	r := gin.New()
	var obs middleware.LatencyObserver
	if h.Metrics != nil {
		obs = h.Metrics
	}
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.RequestLogger(obs), middleware.CORS())

	r.GET("/health", h.Health)
	r.GET("/", h.Welcome)
	SetupRoutes(r, h)
	return r
}

func SetupRoutes(r *gin.Engine, h *handlers.Handler) {
	// ── Public routes ──────────────────────────────────────────────
	public := r.Group("/api")
	{
		// Auth
		public.POST("/auth/register", h.Register)
		public.POST("/auth/login", h.Login)

		// Catalog
		public.GET("/categories", h.ListCategories)
		public.GET("/partners", h.ListPartners)
		public.GET("/vehicles", h.ListVehicles)
		public.GET("/parts", h.ListParts)
		public.GET("/parts/search", h.SearchPartsByVehicle)
		public.GET("/parts/:id", h.GetPart)

		// Orders
		public.POST("/orders", h.CreateOrder)
		public.GET("/orders/available", h.GetAvailableOrders)
		public.GET("/orders/user/:userId", h.GetUserOrders)
		public.GET("/orders/driver/:driverId", h.GetDriverOrders)
		public.GET("/orders/:id", h.GetOrder)
		public.PATCH("/orders/:id/status", h.UpdateOrderStatus)
		public.PATCH("/orders/:id/assign-driver", h.AssignDriver)
		public.POST("/orders/:id/dispatch", h.DispatchOrder)

		// Drivers
		public.POST("/drivers", h.CreateDriver)
		public.GET("/drivers/online", h.GetOnlineDrivers)
		public.PATCH("/drivers/:id/status", h.SetDriverStatus)
		public.PATCH("/drivers/:id/location", h.UpdateDriverLocation)
		public.GET("/drivers/:id/deliveries", h.GetDriverDeliveries)
		public.GET("/earnings", h.GetEarnings)

		// Payments
		public.POST("/payments", h.ProcessPayment)
		public.POST("/payments/:txId/transfer", h.TransferFunds)

		// State machine info
		public.GET("/state-machine", h.GetStateMachineInfo)
		public.GET("/automation/metrics", h.GetAutomationMetrics)
	}

	// ── Authenticated routes ───────────────────────────────────────
	auth := r.Group("/api")
	auth.Use(h.Auth.AuthRequired())
	{
		auth.GET("/auth/me", h.GetProfile)
	}

	// ── Business routes ────────────────────────────────────────────
	business := r.Group("/api")
	business.Use(h.Auth.AuthRequired(), middleware.RoleRequired(models.UserBusiness))
	{
		business.POST("/categories", h.CreateCategory)
		business.POST("/partners", h.CreatePartner)
		business.POST("/vehicles", h.CreateVehicle)
		business.POST("/parts", h.CreatePart)
		business.POST("/dispatch/run", h.RunDispatch)
		business.GET("/business/summary", h.GetBusinessSummary)
	}
}
