package router

import (
	"time"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/weps89/lb-electronica/internal/config"
	"github.com/weps89/lb-electronica/internal/handler"
	"github.com/weps89/lb-electronica/internal/middleware"
	"github.com/weps89/lb-electronica/internal/model"
	"github.com/weps89/lb-electronica/internal/repository"
	"github.com/weps89/lb-electronica/internal/service"
)

var (
	adminOnly = middleware.RequireRole(string(model.RoleAdmin))
	anyRole   = middleware.RequireRole(string(model.RoleAdmin), string(model.RoleCashier))
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
	r.Use(middleware.RateLimiter(1000, time.Minute))

	// Repositories
	userRepo := repository.NewUserRepository(db)
	productRepo := repository.NewProductRepository(db)
	stockRepo := repository.NewStockRepository(db)
	saleRepo := repository.NewSaleRepository(db)
	cashRepo := repository.NewCashRepository(db)
	customerRepo := repository.NewCustomerRepository(db)
	rateRepo := repository.NewExchangeRateRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	// Services
	auditSvc := service.NewAuditService(auditRepo)
	rateSvc := service.NewExchangeRateService(rateRepo, rdb, auditSvc)
	customerSvc := service.NewCustomerService(customerRepo)
	authSvc := service.NewAuthService(userRepo, cfg, auditSvc)
	productSvc := service.NewProductService(productRepo, rateSvc, rdb, auditSvc)
	stockSvc := service.NewStockService(stockRepo, productRepo, rateSvc, auditSvc, cfg)
	saleSvc := service.NewSaleService(saleRepo, productRepo, stockRepo, cashRepo, rateSvc, customerSvc, auditSvc)
	cashSvc := service.NewCashService(cashRepo, saleRepo, auditSvc)

	// Handlers
	authH := handler.NewAuthHandler(authSvc)
	productsH := handler.NewProductsHandler(productSvc)
	priceH := handler.NewPriceCheckHandler(productSvc)
	stockH := handler.NewStockHandler(stockSvc)
	salesH := handler.NewSalesHandler(saleSvc)
	cashH := handler.NewCashHandler(cashSvc)
	customersH := handler.NewCustomersHandler(customerSvc)
	ratesH := handler.NewExchangeRatesHandler(rateSvc)

	// Public
	r.GET("/health", handler.Health(db, rdb))
	r.GET("/v1/price/:barcode", priceH.GetByBarcode)

	auth := r.Group("/v1/auth")
	{
		auth.POST("/login", middleware.LoginRateLimiter(), authH.Login)
		auth.POST("/refresh", middleware.LoginRateLimiter(), authH.Refresh)
	}

	// Protected
	jwtMW := middleware.JWTAuth(cfg.JWTSecret)
	v1 := r.Group("/v1", jwtMW)
	{
		v1.POST("/users", adminOnly, authH.CreateUser)

		v1.GET("/products", anyRole, productsH.List)
		v1.GET("/products/low-stock", anyRole, productsH.LowStock)
		v1.GET("/products/:id", anyRole, productsH.Get)
		prods := v1.Group("/products", adminOnly)
		{
			prods.POST("", productsH.Create)
			prods.PUT("/:id", productsH.Update)
			prods.DELETE("/:id", productsH.Deactivate)
			prods.PATCH("/:id/reactivate", productsH.Reactivate)
		}

		stock := v1.Group("/stock", adminOnly)
		{
			stock.POST("/entries", stockH.IngestLot)
			stock.GET("/entries", stockH.ListEntries)
			stock.GET("/entries/:id", stockH.GetEntry)
			stock.POST("/out", stockH.StockOut)
			stock.POST("/adjust", stockH.Adjust)
			stock.GET("/ledger", stockH.ListLedger)
		}

		sales := v1.Group("/sales", anyRole)
		{
			sales.POST("", salesH.Create)
			sales.GET("", salesH.List)
			sales.GET("/pending", salesH.Pending)
			sales.GET("/:id", salesH.Get)
			sales.POST("/collect", salesH.Collect)
			sales.DELETE("/:id", salesH.Cancel)
		}

		cash := v1.Group("/cash", anyRole)
		{
			cash.POST("/open", cashH.Open)
			cash.POST("/movements", cashH.Movement)
			cash.POST("/close", cashH.Close)
			cash.GET("/current", cashH.Current)
			cash.GET("/my-day", cashH.MyDay)
			cash.GET("/sessions", cashH.Sessions)
		}

		v1.GET("/customers", anyRole, customersH.Search)
		v1.POST("/customers", anyRole, customersH.Upsert)

		v1.GET("/rates/current", anyRole, ratesH.Current)
		v1.POST("/rates", adminOnly, ratesH.Set)
		v1.GET("/rates", adminOnly, ratesH.History)
	}

	// Swagger UI — not mounted in production
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
