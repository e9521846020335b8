package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/main4/cmms/internal/events"
	"github.com/main4/cmms/internal/handler"
	"github.com/main4/cmms/internal/middleware"
	"github.com/main4/cmms/internal/model"
	"github.com/main4/cmms/internal/notify"
	"github.com/main4/cmms/pkg/cache"
	"github.com/main4/cmms/pkg/config"
	"github.com/main4/cmms/pkg/database"
	"github.com/main4/cmms/pkg/jwtutil"
	"github.com/main4/cmms/pkg/logger"
	"github.com/main4/cmms/pkg/mailer"
	"github.com/main4/cmms/prometheus"
	"go.uber.org/zap"
)

func main() {
	// Load configuration from .env file and environment variables
	cfg, err := config.Load("cmms")
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger with config
	if err := logger.InitLogger(&logger.LogConfig{
		Level:       cfg.Log.Level,
		Environment: cfg.Server.Env,
		ServiceName: cfg.ServiceName,
	}); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	log := logger.GetLogger()
	log.Info("Starting maintenance service...", cfg.LogConfig()...)

	// Initialize database
	if _, err := database.InitDB(&cfg.DB); err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	log.Info("Database connection established")

	if err := database.MigrateModels(
		&model.User{},
		&model.Tenant{},
		&model.UserTenant{},
		&model.UserInvitation{},
		&model.Address{},
		&model.AddressContact{},
		&model.Category{},
		&model.AssetPrefix{},
		&model.LocationLevel{},
		&model.Department{},
		&model.Location{},
		&model.Asset{},
		&model.WorkOrder{},
		&model.WorkOrderComment{},
		&model.TimeRecord{},
		&model.InventoryPart{},
		&model.ServiceContract{},
		&model.ContractReminderLog{},
		&model.PMSchedule{},
		&model.ChecklistRecord{},
		&model.FilterPreset{},
		&model.EmailLog{},
	); err != nil {
		log.Fatal("Failed to run database migrations", zap.Error(err))
	}
	log.Info("Database migrations complete")

	// The list cache is best effort; a missing Redis only costs performance
	if err := cache.Init(&cfg.Redis); err != nil {
		log.Warn("Redis unavailable, list caching disabled", zap.Error(err))
	} else {
		log.Info("Redis cache initialized", zap.String("addr", cfg.Redis.Addr()))
	}

	// Entity event publishing is disabled when no broker is configured
	events.Init(&cfg.Kafka, log)

	// Initialize JWT utility
	jwtUtil := jwtutil.NewJWTUtil(&jwtutil.JWTConfig{
		SigningKey:      cfg.JWT.SigningKey,
		ExpirationHours: cfg.JWT.ExpirationHours,
	})
	handler.SetJWTUtil(jwtUtil)
	handler.SetConfig(cfg)

	mail := mailer.New(&cfg.Mail)
	handler.SetMailer(mail)

	// Background notification jobs
	jobCtx, cancelJobs := context.WithCancel(context.Background())
	notifier := notify.New(mail, &cfg.Notify, log)
	notifier.Start(jobCtx)

	// Initialize Echo framework
	e := echo.New()
	e.HideBanner = true

	// Apply global middleware - order matters
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(middleware.RequestIDMiddleware())
	e.Use(logger.Middleware())
	e.Use(prometheus.MetricsMiddleware())

	// Public routes - no authentication required
	e.GET("/health", handler.HealthCheck)
	e.GET("/metrics", handler.MetricsHandler)

	auth := e.Group("/auth")
	auth.POST("/register", handler.Register)
	auth.POST("/login", handler.Login)
	auth.POST("/accept-invitation", handler.AcceptInvitation)

	// API routes - all require authentication
	api := e.Group("/api")
	api.Use(middleware.JWTAuthMiddleware(jwtUtil))

	api.GET("/me", handler.Me)

	tenants := api.Group("/tenants")
	tenants.POST("", handler.CreateTenant)
	tenants.GET("/current", handler.GetTenant)
	tenants.GET("/current/members", handler.ListTenantMembers)
	tenants.PUT("/current/members/:id/role", handler.UpdateMemberRole, middleware.RequireAdmin())

	invitations := api.Group("/invitations", middleware.RequireAdmin())
	invitations.POST("", handler.CreateInvitation)
	invitations.GET("", handler.ListInvitations)
	invitations.DELETE("/:id", handler.RevokeInvitation)

	addresses := api.Group("/addresses")
	addresses.GET("", handler.ListAddresses)
	addresses.POST("", handler.CreateAddress)
	addresses.GET("/:id", handler.GetAddress)
	addresses.PUT("/:id", handler.UpdateAddress)
	addresses.DELETE("/:id", handler.DeleteAddress)
	addresses.GET("/:address_id/contacts", handler.ListAddressContacts)
	addresses.POST("/:address_id/contacts", handler.CreateAddressContact)
	addresses.PUT("/:address_id/contacts/:id", handler.UpdateAddressContact)
	addresses.DELETE("/:address_id/contacts/:id", handler.DeleteAddressContact)

	categories := api.Group("/categories")
	categories.GET("", handler.ListCategories)
	categories.POST("", handler.CreateCategory)
	categories.PUT("/:id", handler.UpdateCategory)
	categories.DELETE("/:id", handler.DeleteCategory)
	categories.POST("/import", handler.ImportCategories)

	prefixes := api.Group("/asset-prefixes")
	prefixes.GET("", handler.ListPrefixes)
	prefixes.POST("", handler.CreatePrefix)
	prefixes.PUT("/:id", handler.UpdatePrefix)
	prefixes.DELETE("/:id", handler.DeletePrefix)
	prefixes.POST("/import", handler.ImportPrefixes)
	prefixes.GET("/export", handler.ExportPrefixes)

	levels := api.Group("/location-levels")
	levels.GET("", handler.ListLocationLevels)
	levels.POST("", handler.CreateLocationLevel)
	levels.PUT("/:id", handler.UpdateLocationLevel)
	levels.DELETE("/:id", handler.DeleteLocationLevel)

	departments := api.Group("/departments")
	departments.GET("", handler.ListDepartments)
	departments.POST("", handler.CreateDepartment)
	departments.PUT("/:id", handler.UpdateDepartment)
	departments.DELETE("/:id", handler.DeleteDepartment)

	locations := api.Group("/locations")
	locations.GET("", handler.ListLocations)
	locations.POST("", handler.CreateLocation)
	locations.POST("/bulk", handler.BulkCreateLocations)
	locations.GET("/:id", handler.GetLocation)
	locations.PUT("/:id", handler.UpdateLocation)
	locations.DELETE("/:id", handler.DeleteLocation)

	assets := api.Group("/assets")
	assets.GET("", handler.ListAssets)
	assets.POST("", handler.CreateAsset)
	assets.POST("/labels", handler.PrintAssetLabels)
	assets.GET("/:id", handler.GetAsset)
	assets.PUT("/:id", handler.UpdateAsset)
	assets.DELETE("/:id", handler.DeleteAsset)

	workOrders := api.Group("/work-orders")
	workOrders.GET("", handler.ListWorkOrders)
	workOrders.POST("", handler.CreateWorkOrder)
	workOrders.GET("/export", handler.ExportWorkOrders)
	workOrders.GET("/:id", handler.GetWorkOrder)
	workOrders.PUT("/:id", handler.UpdateWorkOrder)
	workOrders.DELETE("/:id", handler.DeleteWorkOrder)
	workOrders.POST("/:id/comments", handler.AddWorkOrderComment)

	timeRecords := api.Group("/time-records")
	timeRecords.GET("", handler.ListTimeRecords)
	timeRecords.POST("", handler.CreateTimeRecord)
	timeRecords.PUT("/:id", handler.UpdateTimeRecord)
	timeRecords.DELETE("/:id", handler.DeleteTimeRecord)

	parts := api.Group("/inventory-parts")
	parts.GET("", handler.ListParts)
	parts.POST("", handler.CreatePart)
	parts.GET("/:id", handler.GetPart)
	parts.PUT("/:id", handler.UpdatePart)
	parts.POST("/:id/adjust-stock", handler.AdjustStock)
	parts.DELETE("/:id", handler.DeletePart)

	contracts := api.Group("/service-contracts")
	contracts.GET("", handler.ListContracts)
	contracts.POST("", handler.CreateContract)
	contracts.GET("/:id", handler.GetContract)
	contracts.PUT("/:id", handler.UpdateContract)
	contracts.DELETE("/:id", handler.DeleteContract)

	pmSchedules := api.Group("/pm-schedules")
	pmSchedules.GET("", handler.ListPMSchedules)
	pmSchedules.POST("", handler.CreatePMSchedule)
	pmSchedules.PUT("/:id", handler.UpdatePMSchedule)
	pmSchedules.POST("/:id/complete", handler.CompletePMSchedule)
	pmSchedules.DELETE("/:id", handler.DeletePMSchedule)

	checklists := api.Group("/checklists")
	checklists.GET("", handler.ListChecklists)
	checklists.POST("", handler.CreateChecklist)
	checklists.PUT("/:id", handler.UpdateChecklist)
	checklists.DELETE("/:id", handler.DeleteChecklist)

	presets := api.Group("/filter-presets")
	presets.GET("", handler.ListPresets)
	presets.POST("", handler.CreatePreset)
	presets.PUT("/:id", handler.UpdatePreset)
	presets.DELETE("/:id", handler.DeletePreset)
	presets.GET("/export", handler.ExportPresets)
	presets.POST("/import", handler.StagePresetImport)
	presets.POST("/import/confirm", handler.ConfirmPresetImport)

	// Start server
	go func() {
		log.Info("Starting server", zap.String("port", cfg.Server.Port))
		if err := e.Start(":" + cfg.Server.Port); err != nil {
			log.Info("Server stopped", zap.Error(err))
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down...")

	cancelJobs()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Error("Server shutdown failed", zap.Error(err))
	}

	events.Shutdown()
	if err := cache.Close(); err != nil {
		log.Warn("Failed to close Redis connection", zap.Error(err))
	}
	log.Info("Shutdown complete")
}
