package bootstrap

import (
	"context"
	"strings"
	"time"

	"minerva/internal/adapters/ai"
	"minerva/internal/adapters/config"
	"minerva/internal/adapters/edgar"
	errnoop "minerva/internal/adapters/errors/noop"
	"minerva/internal/adapters/errors/sentry"
	pgclient "minerva/internal/adapters/postgres"
	redisclient "minerva/internal/adapters/redis"
	"minerva/internal/adapters/telegram"
	"minerva/internal/adapters/yahoo"
	"minerva/internal/api"
	"minerva/internal/api/health"
	"minerva/internal/cache"
	"minerva/internal/metrics"
	"minerva/internal/providers"
	"minerva/internal/repository/memory"
	pgrepo "minerva/internal/repository/postgres"
	profilesvc "minerva/internal/services/profile"
	researchsvc "minerva/internal/services/research"
	"minerva/internal/workers"
	"minerva/internal/workflows"
	"minerva/pkg/errors"
	"minerva/pkg/logger"
	"minerva/pkg/templates"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

// ========================================
// Phase 1: Configuration & Logging
// ========================================

// MustInitConfig loads configuration and initializes logger
func (c *Container) MustInitConfig() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}
	c.Config = cfg

	// Initialize logger
	if err := logger.Init(cfg.App.LogLevel, cfg.App.Env); err != nil {
		panic("failed to init logger: " + err.Error())
	}

	c.Log = logger.Get()
	c.Log.Infof("Starting %s in %s mode", cfg.App.Name, cfg.App.Env)

	// Initialize error tracker
	c.ErrorTracker = provideErrorTracker(cfg, c.Log)
	logger.SetErrorTracker(c.ErrorTracker)
}

// ========================================
// Phase 2: Infrastructure Layer
// ========================================

// MustInitInfrastructure connects the optional data stores. Both Postgres and
// Redis may be absent: the engine then runs on in-memory repositories and a
// local cache backend.
func (c *Container) MustInitInfrastructure() {
	var err error

	// PostgreSQL
	if c.Config.Postgres.Enabled() {
		c.Log.Info("Connecting to PostgreSQL...")
		c.PG, err = pgclient.NewClient(c.Config.Postgres)
		if err != nil {
			c.Log.Fatalf("failed to connect postgres: %v", err)
		}

		migrateCtx, cancel := context.WithTimeout(c.Context, 30*time.Second)
		if err := pgrepo.Migrate(migrateCtx, c.PG.DB()); err != nil {
			cancel()
			c.Log.Fatalf("failed to migrate postgres schema: %v", err)
		}
		cancel()
		c.Log.Info("✓ PostgreSQL connected")
	} else {
		c.Log.Info("PostgreSQL not configured, research will be stored in memory")
	}

	// Redis
	if c.Config.Redis.Enabled() {
		c.Log.Info("Connecting to Redis...")
		c.Redis, err = redisclient.NewClient(c.Config.Redis)
		if err != nil {
			c.Log.Fatalf("failed to connect redis: %v", err)
		}
		c.Log.Info("✓ Redis connected")
	}
}

// ========================================
// Phase 3: Domain Layer - Repositories
// ========================================

// MustInitRepositories initializes all domain repositories
func (c *Container) MustInitRepositories() {
	if c.PG != nil {
		c.Repos.Research = pgrepo.NewResearchRepository(c.PG.DB())
		c.Repos.Profile = pgrepo.NewProfileRepository(c.PG.DB())
	} else {
		c.Repos.Research = memory.NewResearchRepository()
		c.Repos.Profile = memory.NewProfileRepository()
	}

	c.Log.Info("✓ Repositories initialized")
}

// ========================================
// Phase 4: External Adapters
// ========================================

// MustInitAdapters initializes external adapters (data providers, cache, AI)
func (c *Container) MustInitAdapters() {
	// Market data: Yahoo Finance serves quotes, history and search
	yahooClient := yahoo.NewClient(yahoo.Config{
		BaseURL: c.Config.Providers.YahooBaseURL,
	})
	c.Adapters.Market = yahooClient
	c.Log.Info("✓ Market data provider initialized (yahoo)")

	// Fundamentals: SEC EDGAR serves statements and filings
	edgarClient := edgar.NewClient(edgar.Config{
		BaseURL:    c.Config.Providers.EdgarBaseURL,
		UserAgent:  c.Config.Providers.EdgarUserAgent,
		RatePerSec: c.Config.Providers.EdgarRatePerSec,
	})
	c.Adapters.Fundamentals = edgarClient
	c.Log.Info("✓ Fundamental data provider initialized (edgar)")

	// Provider routing is fixed here; nothing picks providers per request
	c.Adapters.Selector = providers.NewSelector(
		c.Adapters.Market,
		c.Adapters.Fundamentals,
		provideFilingsOverride(c.Config.Providers, yahooClient, edgarClient, c.Log),
	)

	// Tool result cache
	c.Adapters.CacheBackend = provideCacheBackend(c.Config.Cache, c.Redis, c.Log)
	c.Adapters.Cache = cache.NewManager(c.Adapters.CacheBackend, c.Config.Cache.TTL, c.Log)
	c.Log.Infow("✓ Cache initialized",
		"backend", c.Adapters.CacheBackend.Name(),
		"ttl", c.Config.Cache.TTL,
	)

	// AI providers
	registry, err := ai.BuildRegistry(c.Config.AI, c.Log)
	if err != nil {
		c.Log.Fatalf("failed to build AI registry: %v", err)
	}
	c.Adapters.AIRegistry = registry

	provider, err := registry.Default()
	if err != nil {
		// Agentic research degrades to a failure payload without a provider;
		// static research keeps working.
		c.Log.Warnf("No LLM provider available, agentic research will fail until one is configured: %v", err)
	} else {
		c.Adapters.AIProvider = provider
		c.Log.Infof("✓ AI provider initialized: %s (%s)", provider.Name(), provider.Model())
	}
}

// ========================================
// Phase 5: Business Logic
// ========================================

// MustInitBusiness initializes the workflow executors
func (c *Container) MustInitBusiness() {
	static := workflows.NewStatic(c.Adapters.Market, c.Adapters.Fundamentals, c.Log)
	agentic := workflows.NewAgentic(
		c.Config.Workflow,
		c.Adapters.AIProvider,
		c.Adapters.Selector,
		c.Adapters.Cache,
		templates.Get(),
		c.Log,
	)

	c.Business.Executors = []workflows.Executor{static, agentic}

	c.Log.With("executors", len(c.Business.Executors)).Info("✓ Business logic initialized")
}

// ========================================
// Phase 6: Domain Services
// ========================================

// MustInitServices initializes domain services
func (c *Container) MustInitServices() {
	c.Services.Research = researchsvc.NewService(
		c.Repos.Research,
		c.Repos.Profile,
		c.Business.Executors,
		c.Log,
	)
	c.Services.Profile = profilesvc.NewService(c.Repos.Profile, c.Log)

	c.Log.Info("✓ Services initialized")
}

// ========================================
// Phase 7: Application Layer
// ========================================

// MustInitApplication initializes application layer (HTTP)
func (c *Container) MustInitApplication() {
	// Health handler tolerates absent stores
	var pgDB *sqlx.DB
	if c.PG != nil {
		pgDB = c.PG.DB()
	}
	var redisCli *redis.Client
	if c.Redis != nil {
		redisCli = c.Redis.Client()
	}
	c.Application.HealthHandler = health.New(
		c.Log,
		pgDB,
		redisCli,
		c.Config.App.Name,
		c.Config.App.Version,
	)

	// HTTP server
	c.Application.HTTPServer = api.NewServer(
		api.ServerConfig{
			Port:        c.Config.Server.Port,
			ServiceName: c.Config.App.Name,
			Version:     c.Config.App.Version,
		},
		c.Application.HealthHandler,
		api.NewResearchHandler(c.Services.Research, c.Log),
		api.NewProfileHandler(c.Services.Profile, c.Log),
		c.Log,
	)

	// Initialize metrics
	metrics.Init()
	c.Log.Info("✓ Metrics initialized")

	c.Log.Info("✓ Application layer initialized")
}

// ========================================
// Phase 8: Background Processing
// ========================================

// MustInitBackground initializes background workers and notifications
func (c *Container) MustInitBackground() {
	c.Background.Notifier = provideNotifier(c.Config, c.Log)

	c.Background.Scheduler = workers.NewScheduler()

	// Keep the interface nil when Telegram is off: a typed nil would pass the
	// worker's notifier check.
	var notifier workers.ResearchNotifier
	if c.Background.Notifier != nil {
		notifier = c.Background.Notifier
	}
	c.Background.Scheduler.RegisterWorker(
		workers.NewExecutionWorker(c.Config.Workers, c.Services.Research, notifier),
	)

	c.Log.Info("✓ Background processing initialized")
}

// ========================================
// Helper Provider Functions
// ========================================

func provideErrorTracker(cfg *config.Config, log *logger.Logger) errors.Tracker {
	if !cfg.ErrorTracking.Enabled || cfg.ErrorTracking.SentryDSN == "" {
		log.Info("Error tracking disabled")
		return errnoop.New()
	}

	tracker, err := sentry.New(cfg.ErrorTracking.SentryDSN, cfg.ErrorTracking.Environment)
	if err != nil {
		log.Warnf("Failed to initialize Sentry: %v", err)
		return errnoop.New()
	}

	log.Info("✓ Error tracking initialized (Sentry)")
	return tracker
}

// provideFilingsOverride resolves the optional FILINGS_PROVIDER routing. An
// unknown name is a configuration mistake, logged and ignored.
func provideFilingsOverride(
	cfg config.ProvidersConfig,
	yahooClient *yahoo.Client,
	edgarClient *edgar.Client,
	log *logger.Logger,
) providers.FundamentalDataProvider {
	name := strings.ToLower(strings.TrimSpace(cfg.FilingsProvider))
	switch name {
	case "":
		return nil
	case "edgar":
		log.Info("SEC filings routed to edgar")
		return edgarClient
	case "yahoo":
		log.Info("SEC filings routed to yahoo")
		return yahooClient
	default:
		log.Warnf("Unknown filings provider %q, using default fundamentals provider", cfg.FilingsProvider)
		return nil
	}
}

func provideCacheBackend(cfg config.CacheConfig, redisClient *redisclient.Client, log *logger.Logger) cache.Backend {
	switch strings.ToLower(cfg.Backend) {
	case "redis":
		if redisClient == nil {
			log.Warn("Redis cache backend requested but Redis is not configured, using memory")
			return cache.NewMemoryBackend()
		}
		return cache.NewRedisBackend(redisClient, log)
	case "memory":
		return cache.NewMemoryBackend()
	case "file", "":
		backend, err := cache.NewFileBackend(cfg.Dir, log)
		if err != nil {
			log.Warnf("Failed to open file cache at %s, using memory: %v", cfg.Dir, err)
			return cache.NewMemoryBackend()
		}
		return backend
	default:
		log.Warnf("Unknown cache backend %q, using memory", cfg.Backend)
		return cache.NewMemoryBackend()
	}
}

func provideNotifier(cfg *config.Config, log *logger.Logger) *telegram.Notifier {
	if !cfg.Telegram.Enabled() {
		log.Info("Telegram notifications disabled")
		return nil
	}

	notifier, err := telegram.NewNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, templates.Get(), log)
	if err != nil {
		log.Warnf("Failed to initialize Telegram notifier: %v", err)
		return nil
	}

	log.Info("✓ Telegram notifier initialized")
	return notifier
}
