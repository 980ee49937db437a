package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	_ "workshop/api/swagger" // swagger docs
	"workshop/internal/access"
	"workshop/internal/config"
	"workshop/internal/database"
	"workshop/internal/events"
	"workshop/internal/handler"
	"workshop/internal/logger"
	"workshop/internal/middleware"
	"workshop/internal/model"
	"workshop/internal/repository"
	"workshop/internal/repository/memory"
	"workshop/internal/seed"
	"workshop/internal/service"
	"workshop/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// @title           Workshop API
// @version         1.0
// @description     Order-to-production workflow: orders, products and stock, production stages, work logs and salaries.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := godotenv.Load("configs/.env"); err != nil {
		log.Println("No configs/.env file found or error loading it")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	zlog, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Logger setup failed: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var repos repository.Repositories
	switch cfg.StorageDriver {
	case config.DriverMemory:
		repos = memory.NewStore().Repositories()
		zlog.Warn("using in-memory storage; data is lost on restart")
	default:
		db, err := database.NewConnection(cfg.DSN(), zlog)
		if err != nil {
			zlog.Fatal("database connection failed", zap.Error(err))
		}
		zlog.Info("connected to PostgreSQL", zap.String("host", cfg.DB.Host), zap.String("database", cfg.DB.Name))
		repos = repository.NewGormRepositories(db)
	}

	// Set up WebSocket Hub
	wsHub := websocket.NewHub(zlog)
	go wsHub.Run(ctx)

	publishers := []events.Publisher{wsHub}
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := events.NewKafkaProducer(cfg.Kafka.Brokers)
		if err != nil {
			zlog.Fatal("kafka producer setup failed", zap.Error(err))
		}
		kafka := events.NewKafkaPublisher(producer, cfg.Kafka.Topic, zlog)
		defer func() {
			if err := kafka.Close(); err != nil {
				zlog.Warn("kafka producer close failed", zap.Error(err))
			}
		}()
		publishers = append(publishers, kafka)
		zlog.Info("publishing events to kafka", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	}

	// Set up dependencies (Repository -> Service -> Handler)
	deps := &service.Deps{
		Repos:     repos,
		Publisher: events.Multi(publishers...),
		Log:       zlog,
	}
	productService := service.NewProductService(deps)
	orderService := service.NewOrderService(deps)
	productionService := service.NewProductionService(deps)
	salaryService := service.NewSalaryService(deps)
	auditService := service.NewAuditService(deps)
	statisticsService := service.NewStatisticsService(deps)

	if cfg.CatalogFile != "" {
		cat, err := seed.LoadCatalogFile(cfg.CatalogFile)
		if err != nil {
			zlog.Fatal("catalog load failed", zap.Error(err))
		}
		created, err := seed.Apply(ctx, productService, access.Actor{Role: model.RoleAdmin}, cat, zlog)
		if err != nil {
			zlog.Fatal("catalog seed failed", zap.Error(err))
		}
		zlog.Info("catalog seeded", zap.String("file", cfg.CatalogFile), zap.Int("created", created))
	}

	// Set up Gin Router
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(logger.RequestLogger(zlog), gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK", "ws_clients": wsHub.ClientCount()})
	})

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	secret := []byte(cfg.JWTSecret)
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, secret)
	})

	api := router.Group("/api", middleware.Authenticate(secret))
	handler.NewIdentityHandler().RegisterRoutes(api)
	handler.NewProductHandler(productService).RegisterRoutes(api)
	handler.NewOrderHandler(orderService).RegisterRoutes(api)
	handler.NewProductionHandler(productionService).RegisterRoutes(api)
	handler.NewSalaryHandler(salaryService).RegisterRoutes(api)
	handler.NewAuditHandler(auditService).RegisterRoutes(api)
	handler.NewStatisticsHandler(statisticsService).RegisterRoutes(api)

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zlog.Info("server listening", zap.Int("port", cfg.Port), zap.String("storage", cfg.StorageDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zlog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error("graceful shutdown failed", zap.Error(err))
	}
}
