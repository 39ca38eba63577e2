package router

import (
	"time"

	"akppos/internal/auth"
	"akppos/internal/config"
	"akppos/internal/handler"
	"akppos/internal/infra"
	"akppos/internal/metrics"
	"akppos/internal/middleware"
	"akppos/internal/model"
	"akppos/internal/repository"
	"akppos/internal/service"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Deps are the process-wide resources built by the composition root.
// Invoices and Enqueuer are shared with the worker pool.
type Deps struct {
	DB       *gorm.DB
	Redis    *redis.Client
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	Tokens   *auth.Manager
	Invoices service.InvoiceService
	Enqueuer service.InvoiceEnqueuer
	EmailCB  *infra.CircuitBreaker
}

// New wires repositories, services and handlers and returns the Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, d Deps) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(d.Metrics))
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(cfg.CORSOrigin))
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(1000, time.Minute)) // per IP

	// ── Repositories ─────────────────────────────────────────────────────────
	tx := repository.NewTxRunner(d.DB)
	userRepo := repository.NewUserRepository(d.DB)
	tenantRepo := repository.NewTenantRepository(d.DB)
	settingsRepo := repository.NewSettingsRepository(d.DB)
	productRepo := repository.NewProductRepository(d.DB)
	categoryRepo := repository.NewCategoryRepository(d.DB)
	ledgerRepo := repository.NewInventoryLogRepository(d.DB)
	orderRepo := repository.NewOrderRepository(d.DB)

	// ── Services ─────────────────────────────────────────────────────────────
	authSvc := service.NewAuthService(tx, userRepo, tenantRepo, settingsRepo, d.Tokens)
	userSvc := service.NewUserService(userRepo)
	settingsSvc := service.NewSettingsService(tx, settingsRepo, tenantRepo)
	productSvc := service.NewProductService(tx, productRepo, categoryRepo, ledgerRepo, d.Redis, d.Metrics)
	categorySvc := service.NewCategoryService(categoryRepo, productRepo)
	inventorySvc := service.NewInventoryService(tx, productRepo, ledgerRepo, cfg.LowStockThreshold, d.Metrics)
	orderSvc := service.NewOrderService(tx, orderRepo, productRepo, ledgerRepo, d.Enqueuer, d.Metrics,
		service.OrderOptions{VerifyTotals: cfg.CheckoutVerifyTotals})
	dashboardSvc := service.NewDashboardService(orderRepo, productRepo, cfg.LowStockThreshold)

	// ── Handlers ─────────────────────────────────────────────────────────────
	authH := handler.NewAuthHandler(authSvc)
	usersH := handler.NewUsersHandler(userSvc)
	productsH := handler.NewProductsHandler(productSvc, inventorySvc)
	categoriesH := handler.NewCategoriesHandler(categorySvc)
	ordersH := handler.NewOrdersHandler(orderSvc, d.Invoices)
	reportsH := handler.NewReportsHandler(inventorySvc, dashboardSvc)
	settingsH := handler.NewSettingsHandler(settingsSvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(d.DB, d.Redis, d.EmailCB))
	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(metrics.Handler(d.Gatherer)))
	}

	jwtMW := middleware.JWTAuth(d.Tokens)
	anyRole := middleware.RequireRole(model.RoleAdmin, model.RoleStaff)
	adminOnly := middleware.RequireRole(model.RoleAdmin)

	authG := r.Group("/v1/auth")
	{
		authG.POST("/login", middleware.LoginRateLimiter(), authH.Login)
		authG.POST("/register", middleware.LoginRateLimiter(), authH.Register)
		authG.GET("/me", jwtMW, authH.Me)
	}

	v1 := r.Group("/v1", jwtMW)
	{
		users := v1.Group("/users", adminOnly)
		{
			users.GET("", usersH.List)
			users.POST("", usersH.Create)
			users.PUT("/:id", usersH.Update)
			users.DELETE("/:id", usersH.Delete)
		}

		// Catalog reads for every role, writes for ADMIN
		v1.GET("/products", anyRole, productsH.List)
		v1.GET("/products/barcode/:barcode", anyRole, productsH.GetByBarcode)
		v1.GET("/products/:id", anyRole, productsH.Get)
		products := v1.Group("/products", adminOnly)
		{
			products.POST("", productsH.Create)
			products.PUT("/:id", productsH.Update)
			products.PATCH("/:id/stock", productsH.SetStock)
			products.DELETE("/:id", productsH.Deactivate)
		}

		v1.GET("/categories", anyRole, categoriesH.List)
		categories := v1.Group("/categories", adminOnly)
		{
			categories.POST("", categoriesH.Create)
			categories.PUT("/:id", categoriesH.Rename)
			categories.DELETE("/:id", categoriesH.Delete)
		}

		orders := v1.Group("/orders", anyRole)
		{
			orders.POST("", ordersH.Checkout)
			orders.GET("", ordersH.List)
			orders.GET("/:id", ordersH.Get)
			orders.GET("/:id/invoice", ordersH.Invoice)
			orders.GET("/:id/invoice/pdf", ordersH.InvoicePDF)
		}

		v1.GET("/settings", anyRole, settingsH.Get)
		v1.PUT("/settings", adminOnly, settingsH.Update)

		v1.GET("/inventory/logs", adminOnly, reportsH.InventoryLogs)
		v1.GET("/reports/low-stock", adminOnly, reportsH.LowStock)
		v1.GET("/dashboard/stats", adminOnly, reportsH.DashboardStats)
	}

	// Swagger UI, only outside production
	if !cfg.IsProduction() {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
