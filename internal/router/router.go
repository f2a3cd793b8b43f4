package router

import (
	"time"

	"tallerops/internal/config"
	"tallerops/internal/handler"
	"tallerops/internal/middleware"
	"tallerops/internal/repository"
	"tallerops/internal/service"
	"tallerops/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(1000, time.Minute)) // 1000 req/min per IP

	// ── Repositories ─────────────────────────────────────────────────────────
	cashboxRepo := repository.NewCashboxRepository(db)
	saleRepo := repository.NewSaleRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	dispatcher := worker.NewDispatcher(rdb)
	cacheTTL := time.Duration(cfg.ActiveSessionCacheTTL) * time.Second
	cashboxSvc := service.NewCashboxService(cashboxRepo, saleRepo, rdb, dispatcher, cacheTTL)
	saleSvc := service.NewSaleService(saleRepo, cashboxRepo)

	// ── Handlers ─────────────────────────────────────────────────────────────
	cashboxH := handler.NewCashboxHandler(cashboxSvc)
	salesH := handler.NewSalesHandler(saleSvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb))

	// Protected routes
	jwtMW := middleware.JWTAuth(cfg.JWTSecret)
	v1 := r.Group("/v1", jwtMW)
	{
		// Roles: cashier, supervisor, admin — declared per-endpoint
		v1.POST("/sales", middleware.RequireRole("cashier", "supervisor", "admin"), salesH.RecordSale)
		v1.GET("/sales", middleware.RequireRole("cashier", "supervisor", "admin"), salesH.ListSales)

		box := v1.Group("/cashbox")
		{
			box.POST("/open", middleware.RequireRole("cashier", "supervisor", "admin"), cashboxH.Open)
			box.GET("/active", middleware.RequireRole("cashier", "supervisor", "admin"), cashboxH.GetActive)
			box.POST("/movements", middleware.RequireRole("cashier", "supervisor", "admin"), cashboxH.AddMovement)
			box.GET("/:id/movements", middleware.RequireRole("cashier", "supervisor", "admin"), cashboxH.ListMovements)
			box.GET("/:id/report", middleware.RequireRole("cashier", "supervisor", "admin"), cashboxH.Report)
			box.POST("/close", middleware.RequireRole("cashier", "supervisor", "admin"), cashboxH.Close)
			box.GET("/history", middleware.RequireRole("supervisor", "admin"), cashboxH.History)
		}
	}

	return r
}
