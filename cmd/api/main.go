package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"verdant/cultivation-portal/cultivation-backend/internal/auth"
	"verdant/cultivation-portal/cultivation-backend/internal/batches"
	"verdant/cultivation-portal/cultivation-backend/internal/catalog"
	"verdant/cultivation-portal/cultivation-backend/internal/config"
	"verdant/cultivation-portal/cultivation-backend/internal/dashboard"
	"verdant/cultivation-portal/cultivation-backend/internal/database"
	"verdant/cultivation-portal/cultivation-backend/internal/facilities"
	"verdant/cultivation-portal/cultivation-backend/internal/notifications"
	wsock "verdant/cultivation-portal/cultivation-backend/internal/notifications/websocket"
	"verdant/cultivation-portal/cultivation-backend/internal/orders"
	"verdant/cultivation-portal/cultivation-backend/internal/templates"
	"verdant/cultivation-portal/cultivation-backend/pkg/logger"
)

const dashboardCacheTTL = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}

	if err := database.AutoMigrate(db,
		&auth.User{},
		&catalog.CropType{}, &catalog.Cultivar{},
		&facilities.Area{},
		&templates.ProductionTemplate{}, &templates.TemplatePhase{}, &templates.TemplateActivity{},
		&orders.ProductionOrder{}, &orders.OrderPhase{}, &orders.ScheduledActivity{}, &orders.OrderCounter{},
		&batches.Batch{}, &batches.Plant{}, &batches.BatchCodeCounter{},
		&notifications.Event{},
	); err != nil {
		log.Fatal("Failed to run migrations", zap.Error(err))
	}

	// Separate read-side connection for the dashboard queries.
	readDB, err := sqlx.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatal("Failed to open read connection", zap.Error(err))
	}
	defer readDB.Close()

	wsManager := wsock.NewManager(log)
	defer wsManager.Close()

	notificationService := notifications.NewService(db, wsManager, log)

	authService := auth.NewService(db, log, cfg.Security.JWTSecret, cfg.Security.TokenLifetime, cfg.Security.BCryptCost)
	catalogService := catalog.NewService(catalog.NewRepository(db), log)
	facilityService := facilities.NewService(facilities.NewRepository(db), log)
	templateRepo := templates.NewRepository(db)
	templateService := templates.NewService(templateRepo, log)
	batchService := batches.NewService(db, log)
	orderService := orders.NewService(db, templateRepo, catalogService, notificationService, log,
		cfg.Production.CompanyCode, cfg.Production.DefaultBatchSize)
	dashboardService := dashboard.NewService(dashboard.NewPostgresRepository(readDB), dashboardCacheTTL, log)

	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authHandler := auth.NewHandler(authService)
	authHandler.RegisterRoutes(router.Group("/api/v1/auth"))

	api := router.Group("/api/v1")
	api.Use(auth.Middleware(authService))
	{
		authHandler.RegisterProtectedRoutes(api.Group("/auth"))
		catalog.NewHandler(catalogService).RegisterRoutes(api)
		facilities.NewHandler(facilityService).RegisterRoutes(api)
		templates.NewHandler(templateService).RegisterRoutes(api.Group("/templates"))
		orders.NewHandler(orderService).RegisterRoutes(api)
		batches.NewHandler(batchService).RegisterRoutes(api)
		notifications.NewHandler(notificationService).RegisterRoutes(api)
		dashboard.NewHandler(dashboardService).RegisterRoutes(api)

		api.GET("/ws", func(c *gin.Context) {
			actor, err := auth.ActorFromContext(c)
			if err != nil {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
				return
			}
			if _, err := wsManager.HandleConnection(c.Writer, c.Request, actor.String()); err != nil {
				log.Warn("WebSocket upgrade failed", zap.Error(err))
			}
		})
	}

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error("Forced shutdown", zap.Error(err))
	}
}
