package di

import (
	"github.com/behark/car-wash-premium-migrated-sub002/internal/clock"
	"github.com/behark/car-wash-premium-migrated-sub002/internal/handler"
	"github.com/behark/car-wash-premium-migrated-sub002/internal/hub"
	"github.com/behark/car-wash-premium-migrated-sub002/internal/repository"
	"github.com/behark/car-wash-premium-migrated-sub002/internal/service"
	"github.com/behark/car-wash-premium-migrated-sub002/internal/worker"
	"github.com/behark/car-wash-premium-migrated-sub002/internal/ws"
	"github.com/behark/car-wash-premium-migrated-sub002/pkg/config"
	"github.com/behark/car-wash-premium-migrated-sub002/pkg/database"
	"github.com/behark/car-wash-premium-migrated-sub002/pkg/redis"
)

// Container holds all dependencies for the availability service
type Container struct {
	// Infrastructure
	DB    *database.PostgresDB
	Redis *redis.Client
	Clock clock.Clock

	// Repositories
	HoldRepo     repository.HoldRepository
	ScheduleRepo repository.ScheduleRepository

	// Hub
	Hub         *hub.Hub
	Broadcaster *hub.Broadcaster

	// Services
	AvailabilityService *service.AvailabilityService
	HoldService         *service.HoldService
	ExpiryScheduler     *service.ExpiryScheduler

	// Workers
	ReconcileWorker *worker.ReconcileWorker

	// Handlers
	WSHandler           *ws.Handler
	AvailabilityHandler *handler.AvailabilityHandler
	HealthHandler       *handler.HealthHandler
}

// ContainerConfig contains configuration for building the container
type ContainerConfig struct {
	Config       *config.Config
	DB           *database.PostgresDB
	Redis        *redis.Client
	Clock        clock.Clock
	HoldRepo     repository.HoldRepository
	ScheduleRepo repository.ScheduleRepository
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *ContainerConfig) *Container {
	clk := cfg.Clock
	if clk == nil {
		clk = clock.NewSystem()
	}

	c := &Container{
		DB:           cfg.DB,
		Redis:        cfg.Redis,
		Clock:        clk,
		HoldRepo:     cfg.HoldRepo,
		ScheduleRepo: cfg.ScheduleRepo,
	}

	booking := cfg.Config.Booking

	// Availability
	c.AvailabilityService = service.NewAvailabilityService(
		c.ScheduleRepo,
		c.HoldRepo,
		booking,
		cfg.Config.Location(),
		clk,
	)

	// Hub and broadcaster
	c.Hub = hub.New()
	c.Broadcaster = hub.NewBroadcaster(c.Hub, c.AvailabilityService, booking.StoreTimeout)

	// Holds
	c.ExpiryScheduler = service.NewExpiryScheduler()
	c.HoldService = service.NewHoldService(
		c.HoldRepo,
		c.AvailabilityService,
		c.ExpiryScheduler,
		c.Broadcaster,
		booking,
		clk,
	)

	// Workers
	c.ReconcileWorker = worker.NewReconcileWorker(
		c.HoldRepo,
		c.HoldService,
		c.Hub,
		booking.ReconcileInterval,
		booking.StoreTimeout,
	)

	// Handlers
	c.WSHandler = ws.NewHandler(
		c.Hub,
		c.Broadcaster,
		c.HoldService,
		cfg.Config.RateLimit,
		booking.StoreTimeout,
	)
	c.AvailabilityHandler = handler.NewAvailabilityHandler(c.AvailabilityService)

	c.HealthHandler = handler.NewHealthHandler(cfg.Config.App.Version)
	if c.Redis != nil {
		c.HealthHandler.AddCheck("redis", c.Redis.HealthCheck)
	}
	if c.DB != nil {
		c.HealthHandler.AddCheck("postgres", c.DB.HealthCheck)
	}

	return c
}

// Shutdown stops the container's background components
func (c *Container) Shutdown() {
	c.ReconcileWorker.Stop()
	c.ExpiryScheduler.Stop()
}
