package router

import (
	"context"
	"time"

	"minimalgym/internal/config"
	"minimalgym/internal/handler"
	"minimalgym/internal/middleware"
	"minimalgym/internal/model"
	"minimalgym/internal/repository"
	"minimalgym/internal/service"
	"minimalgym/internal/worker"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Services is the service layer shared by the HTTP routes and the background
// jobs started from cmd/server.
type Services struct {
	Cash          service.CashService
	Snapshot      service.SnapshotService
	Sales         service.SaleService
	Payments      service.PaymentService
	Stock         service.StockService
	Subscriptions service.SubscriptionService
	Expenses      service.ExpenseService
}

// NewServices wires repositories into services. Dependency graph:
// Service ← Ledger ← Repository ← DB. dispatcher may be nil, which disables
// receipt jobs.
func NewServices(cfg *config.Config, db *gorm.DB, dispatcher *worker.Dispatcher) *Services {
	// ── Repositories ─────────────────────────────────────────────────────────
	userRepo := repository.NewUserRepository(db)
	cashRepo := repository.NewCashRepository(db)
	saleRepo := repository.NewSaleRepository(db)
	inventoryRepo := repository.NewInventoryRepository(db)
	productRepo := repository.NewProductRepository(db)
	memberRepo := repository.NewMemberRepository(db)
	settingRepo := repository.NewSettingRepository(db)
	methodRepo := repository.NewPaymentMethodRepository(db)
	subscriptionRepo := repository.NewSubscriptionRepository(db)
	expenseRepo := repository.NewExpenseRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	ledger := service.NewLedger(cashRepo, saleRepo, subscriptionRepo, expenseRepo, methodRepo, cfg.CashMethodName)

	return &Services{
		Cash:          service.NewCashService(cashRepo, ledger, service.NewPasswordVerifier(userRepo)),
		Snapshot:      service.NewSnapshotService(ledger),
		Sales:         service.NewSaleService(saleRepo, inventoryRepo, productRepo, memberRepo, settingRepo, cashRepo, dispatcher),
		Payments:      service.NewPaymentService(saleRepo, inventoryRepo, cashRepo, methodRepo, ledger),
		Stock:         service.NewStockService(inventoryRepo, productRepo),
		Subscriptions: service.NewSubscriptionService(subscriptionRepo, memberRepo, cashRepo, methodRepo, ledger),
		Expenses:      service.NewExpenseService(expenseRepo, methodRepo, cashRepo, ledger),
	}
}

// New returns a configured Gin engine. rdb may be nil. Background middleware
// work stops when ctx is cancelled.
func New(ctx context.Context, cfg *config.Config, db *gorm.DB, rdb *redis.Client, svcs *Services) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(cfg.AllowedOrigins()...))
	r.Use(middleware.ErrorHandler())
	if cfg.RateLimitPerMinute > 0 {
		r.Use(middleware.RateLimiter(ctx, cfg.RateLimitPerMinute, time.Minute))
	}

	// ── Handlers ─────────────────────────────────────────────────────────────
	cashH := handler.NewCashHandler(svcs.Cash, svcs.Snapshot)
	salesH := handler.NewSalesHandler(svcs.Sales, svcs.Payments)
	inventoryH := handler.NewInventoryHandler(svcs.Stock)
	subsH := handler.NewSubscriptionsHandler(svcs.Subscriptions)
	expensesH := handler.NewExpensesHandler(svcs.Expenses)

	// ── Routes ───────────────────────────────────────────────────────────────

	r.GET("/health", handler.Health(db, rdb))

	anyRole := middleware.RequireRole(model.RoleStaff, model.RoleAdmin)
	adminOnly := middleware.RequireRole(model.RoleAdmin)

	v1 := r.Group("/v1", middleware.JWTAuth(cfg.JWTSecret), anyRole)
	{
		cash := v1.Group("/cash-sessions")
		{
			cash.POST("", cashH.Open)
			cash.GET("/open", cashH.GetOpen)
			cash.GET("/open/snapshot", cashH.OpenSnapshot)
			cash.POST("/movements", cashH.AddMovement)
			cash.GET("/:id", cashH.Get)
			cash.GET("/:id/snapshot", cashH.Snapshot)
			cash.POST("/:id/close", cashH.Close)
		}

		sales := v1.Group("/sales")
		{
			sales.POST("", salesH.Create)
			sales.GET("/:id", salesH.Get)
			sales.POST("/:id/payments", adminOnly, salesH.AddPayment)
			sales.POST("/:id/payments/batch", salesH.AddPayments)
			sales.POST("/:id/refund", adminOnly, salesH.Refund)
		}

		inv := v1.Group("/inventory")
		{
			inv.POST("/movements", inventoryH.RecordMovement)
			inv.GET("/:productId/stock", inventoryH.GetStock)
			inv.GET("/:productId/movements", inventoryH.ListMovements)
		}

		subs := v1.Group("/subscriptions")
		{
			subs.POST("", subsH.Create)
			subs.GET("/:id", subsH.Get)
			subs.POST("/:id/renew", subsH.Renew)
			subs.POST("/:id/change-plan", subsH.ChangePlan)
			subs.POST("/:id/activate", subsH.Activate)
			subs.POST("/:id/pause", subsH.Pause)
			subs.POST("/:id/resume", subsH.Resume)
			subs.POST("/:id/cancel", subsH.Cancel)
			subs.POST("/:id/payments", subsH.AddPayment)
		}
		v1.GET("/members/:memberId/subscriptions", subsH.ListByMember)

		v1.POST("/expenses", expensesH.Create)
	}

	// Swagger UI outside production only
	if !cfg.IsProduction() {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
