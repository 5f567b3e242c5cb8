package bootstrap

import (
	"context"
	"sync"

	"minerva/internal/adapters/ai"
	"minerva/internal/adapters/config"
	pgclient "minerva/internal/adapters/postgres"
	redisclient "minerva/internal/adapters/redis"
	"minerva/internal/adapters/telegram"
	"minerva/internal/api"
	"minerva/internal/api/health"
	"minerva/internal/cache"
	"minerva/internal/domain/profile"
	"minerva/internal/domain/research"
	"minerva/internal/providers"
	profilesvc "minerva/internal/services/profile"
	researchsvc "minerva/internal/services/research"
	"minerva/internal/workers"
	"minerva/internal/workflows"
	"minerva/pkg/errors"
	"minerva/pkg/logger"
)

// Container holds all application dependencies and their lifecycle
// Components are organized in initialization order
type Container struct {
	// Core configuration & logging
	Config       *config.Config
	Log          *logger.Logger
	ErrorTracker errors.Tracker

	// Infrastructure Layer (optional data stores)
	PG    *pgclient.Client
	Redis *redisclient.Client

	// Domain Layer - Repositories
	Repos *Repositories

	// Domain Layer - Services
	Services *Services

	// External Adapters
	Adapters *Adapters

	// Business Logic
	Business *Business

	// Application Layer
	Application *Application

	// Background Processing
	Background *Background

	// Lifecycle management
	Lifecycle *Lifecycle
	WG        *sync.WaitGroup
	Context   context.Context
	Cancel    context.CancelFunc
}

// Repositories groups all domain repositories. Backed by Postgres when a
// host is configured, otherwise by in-memory stores.
type Repositories struct {
	Research research.Repository
	Profile  profile.Repository
}

// Services groups all domain services
type Services struct {
	Research *researchsvc.Service // Research lifecycle orchestrator
	Profile  *profilesvc.Service  // Stored research profiles (CRUD)
}

// Adapters groups all external adapters
type Adapters struct {
	// Data providers
	Market       providers.MarketDataProvider
	Fundamentals providers.FundamentalDataProvider
	Selector     *providers.Selector

	// Tool result cache
	CacheBackend cache.Backend
	Cache        *cache.Manager

	// AI
	AIRegistry *ai.ProviderRegistry
	AIProvider ai.Provider // default provider, nil when none configured
}

// Business groups business logic components
type Business struct {
	Executors []workflows.Executor
}

// Application groups application layer components
type Application struct {
	HTTPServer    *api.Server
	HealthHandler *health.Handler
}

// Background groups all background processing components
type Background struct {
	Scheduler *workers.Scheduler
	Notifier  *telegram.Notifier // nil when Telegram is not configured
}

// NewContainer creates a new dependency container
func NewContainer() *Container {
	ctx, cancel := context.WithCancel(context.Background())

	return &Container{
		Repos:       &Repositories{},
		Services:    &Services{},
		Adapters:    &Adapters{},
		Business:    &Business{},
		Application: &Application{},
		Background:  &Background{},
		Lifecycle:   NewLifecycle(),
		WG:          &sync.WaitGroup{},
		Context:     ctx,
		Cancel:      cancel,
	}
}

// MustInit initializes all components in the correct order
// Panics on any initialization error (fail-fast at startup)
func (c *Container) MustInit() {
	c.MustInitConfig()
	c.MustInitInfrastructure()
	c.MustInitRepositories()
	c.MustInitAdapters()
	c.MustInitBusiness()
	c.MustInitServices()
	c.MustInitApplication()
	c.MustInitBackground()
}

// Start starts all background components
func (c *Container) Start() error {
	c.Log.Info("Starting all systems...")

	// Start background workers
	if len(c.Background.Scheduler.GetWorkers()) > 0 {
		if err := c.Background.Scheduler.Start(c.Context); err != nil {
			return errors.Wrap(err, "failed to start workers")
		}
		c.Log.Infow("✓ Workers started", "count", len(c.Background.Scheduler.GetWorkers()))
	}

	// Start HTTP server
	c.WG.Add(1)
	go func() {
		defer c.WG.Done()
		if err := c.Application.HTTPServer.Start(); err != nil {
			c.Log.Errorf("HTTP server failed: %v", err)
			c.Cancel() // Trigger shutdown on fatal HTTP error
		}
	}()

	c.Log.Info("✓ All systems operational")
	return nil
}

// Shutdown performs graceful shutdown in the correct order
func (c *Container) Shutdown() {
	c.Log.Info("Initiating graceful shutdown...")

	c.Cancel()

	c.Lifecycle.Shutdown(
		c.WG,
		c.Application.HTTPServer,
		c.Background.Scheduler,
		c.PG,
		c.Redis,
		c.ErrorTracker,
		c.Log,
	)
}
