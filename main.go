package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/behark/car-wash-premium-migrated-sub002/internal/clock"
	"github.com/behark/car-wash-premium-migrated-sub002/internal/consumer"
	"github.com/behark/car-wash-premium-migrated-sub002/internal/di"
	"github.com/behark/car-wash-premium-migrated-sub002/internal/domain"
	"github.com/behark/car-wash-premium-migrated-sub002/internal/metrics"
	"github.com/behark/car-wash-premium-migrated-sub002/internal/repository"
	"github.com/behark/car-wash-premium-migrated-sub002/pkg/config"
	"github.com/behark/car-wash-premium-migrated-sub002/pkg/database"
	"github.com/behark/car-wash-premium-migrated-sub002/pkg/kafka"
	"github.com/behark/car-wash-premium-migrated-sub002/pkg/logger"
	pkgredis "github.com/behark/car-wash-premium-migrated-sub002/pkg/redis"
	"github.com/behark/car-wash-premium-migrated-sub002/pkg/telemetry"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logCfg := &logger.Config{
		Level:       cfg.App.Environment,
		ServiceName: cfg.App.Name,
		Development: cfg.IsDevelopment(),
	}
	if err := logger.Init(logCfg); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	appLog := logger.Get()
	appLog.Info("Starting Availability Service...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	ctx := context.Background()

	// Initialize OpenTelemetry
	if _, err := telemetry.Init(ctx, &telemetry.Config{
		Enabled:        cfg.OTel.Enabled,
		ServiceName:    cfg.OTel.ServiceName,
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
		CollectorAddr:  cfg.OTel.CollectorAddr,
		SampleRatio:    cfg.OTel.SampleRatio,
	}); err != nil {
		appLog.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = telemetry.Shutdown(shutdownCtx)
	}()

	if err := metrics.Init(); err != nil {
		appLog.Warn("Failed to create metric instruments", zap.Error(err))
	}

	clk := clock.NewSystem()

	// Connect the booking database. Without it the service falls back to
	// a seeded in-memory schedule, useful for local development only.
	var db *database.PostgresDB
	var scheduleRepo repository.ScheduleRepository

	db, err = database.NewPostgres(ctx, &database.PostgresConfig{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		MaxConns:        int32(cfg.Database.MaxOpenConns),
		MinConns:        int32(cfg.Database.MaxIdleConns),
		MaxConnLifetime: cfg.Database.ConnMaxLifetime,
		MaxConnIdleTime: cfg.Database.ConnMaxIdleTime,
		ConnectTimeout:  5 * time.Second,
		MaxRetries:      3,
		RetryInterval:   time.Second,
		EnableTracing:   cfg.OTel.Enabled,
	})
	if err != nil {
		if cfg.IsProduction() {
			appLog.Fatal("Database connection failed", zap.Error(err))
		}
		appLog.Warn("Database connection failed, using in-memory schedule", zap.Error(err))
		scheduleRepo = seededMemorySchedule()
		db = nil
	} else {
		defer db.Close()
		scheduleRepo = repository.NewPostgresScheduleRepository(db.Pool())
		appLog.Info("Database connected")
	}

	// Connect the hold store. The in-memory fallback keeps hold semantics
	// within a single process only.
	var redisClient *pkgredis.Client
	var holdRepo repository.HoldRepository

	redisClient, err = pkgredis.NewClient(ctx, &pkgredis.Config{
		Host:          cfg.Redis.Host,
		Port:          cfg.Redis.Port,
		Password:      cfg.Redis.Password,
		DB:            cfg.Redis.DB,
		PoolSize:      cfg.Redis.PoolSize,
		MinIdleConns:  cfg.Redis.MinIdleConns,
		DialTimeout:   cfg.Redis.DialTimeout,
		ReadTimeout:   cfg.Redis.ReadTimeout,
		WriteTimeout:  cfg.Redis.WriteTimeout,
		MaxRetries:    3,
		RetryInterval: time.Second,
	})
	if err != nil {
		if cfg.IsProduction() {
			appLog.Fatal("Redis connection failed", zap.Error(err))
		}
		appLog.Warn("Redis connection failed, using in-memory hold store", zap.Error(err))
		holdRepo = repository.NewMemoryHoldRepository(clk)
		redisClient = nil
	} else {
		defer redisClient.Close()
		redisHolds := repository.NewRedisHoldRepository(redisClient, clk)
		if err := redisHolds.LoadScripts(ctx); err != nil {
			appLog.Warn("Failed to pre-load Lua scripts", zap.Error(err))
		} else {
			appLog.Info("Lua scripts pre-loaded into Redis")
		}
		holdRepo = redisHolds
		appLog.Info("Redis connected")
	}

	// Build dependency injection container
	container := di.NewContainer(&di.ContainerConfig{
		Config:       cfg,
		DB:           db,
		Redis:        redisClient,
		Clock:        clk,
		HoldRepo:     holdRepo,
		ScheduleRepo: scheduleRepo,
	})
	defer container.Shutdown()

	// Booking confirmations over Kafka; disabled without brokers
	var bookingConsumer *consumer.BookingConsumer
	if cfg.Kafka.Enabled() {
		kafkaConsumer, err := kafka.NewConsumer(ctx, &kafka.ConsumerConfig{
			Brokers:       cfg.Kafka.Brokers,
			GroupID:       cfg.Kafka.ConsumerGroup,
			Topics:        []string{cfg.Kafka.ConfirmTopic},
			ClientID:      cfg.Kafka.ClientID,
			MaxRetries:    3,
			RetryInterval: time.Second,
		})
		if err != nil {
			appLog.Warn("Kafka connection failed, confirmations disabled", zap.Error(err))
		} else {
			bookingConsumer = consumer.NewBookingConsumer(kafkaConsumer, container.HoldService)
			bookingConsumer.Start()
			defer bookingConsumer.Stop()
			appLog.Info("Kafka booking consumer started",
				zap.Strings("brokers", cfg.Kafka.Brokers),
				zap.String("topic", cfg.Kafka.ConfirmTopic),
			)
		}
	} else {
		appLog.Info("Kafka disabled, booking confirmations will not consume holds")
	}

	container.ReconcileWorker.Start()

	// Setup Gin
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", container.HealthHandler.Liveness)
	router.GET("/health/ready", container.HealthHandler.Readiness)

	router.GET("/ws", container.WSHandler.Handle)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/availability/:date", container.AvailabilityHandler.GetAvailability)
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		appLog.Info("Availability Service listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Fatal("Server forced to shutdown", zap.Error(err))
	}

	appLog.Info("Server exited gracefully")
}

// seededMemorySchedule is the development fallback: open Monday through
// Saturday with a midday break, no holidays, no bookings.
func seededMemorySchedule() *repository.MemoryScheduleRepository {
	repo := repository.NewMemoryScheduleRepository()
	for day := time.Monday; day <= time.Saturday; day++ {
		repo.SetBusinessHours(&domain.BusinessHours{
			Weekday:    day,
			IsOpen:     true,
			StartTime:  "08:00",
			EndTime:    "18:00",
			BreakStart: "12:00",
			BreakEnd:   "13:00",
		})
	}
	return repo
}
