// Package app wires configuration into the catalog, cache, search and chat
// components shared by the API server and the CLI.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Thomaz-Klifson/car-search/internal/cache"
	"github.com/Thomaz-Klifson/car-search/internal/catalog"
	"github.com/Thomaz-Klifson/car-search/internal/chat"
	"github.com/Thomaz-Klifson/car-search/internal/config"
	"github.com/Thomaz-Klifson/car-search/internal/llm"
	"github.com/Thomaz-Klifson/car-search/internal/observability"
	"github.com/Thomaz-Klifson/car-search/internal/search"
	"github.com/Thomaz-Klifson/car-search/internal/storage"
)

// ErrChatUnavailable is returned when a chat turn is requested without a
// configured model provider.
var ErrChatUnavailable = errors.New("chat is unavailable: no LLM API key configured")

// SearchCacheKeyPrefix prefixes every cached search result.
const SearchCacheKeyPrefix = "search:"

// App holds the wired components.
type App struct {
	Config       *config.Config
	Logger       *observability.Logger
	Catalog      *catalog.Catalog
	Executor     *search.CachedExecutor
	Orchestrator *search.Orchestrator
	Tools        *chat.Registry
	Presenter    catalog.Presenter
	Cache        cache.Client
	// Redis is set when the redis cache driver is active
	Redis *cache.RedisClient
	// Driver is nil when no LLM API key is configured
	Driver *chat.Driver
}

// New builds every component from cfg. The caller must Close the App.
func New(ctx context.Context, cfg *config.Config, logger *observability.Logger) (*App, error) {
	if logger == nil {
		logger = observability.Nop()
	}

	cat, err := LoadCatalog(ctx, cfg)
	if err != nil {
		return nil, err
	}
	logger.Info().
		Str("source", cfg.Catalog.Source).
		Int("entries", cat.Len()).
		Msg("Catalog loaded")

	cacheClient, redisClient, err := OpenCache(cfg)
	if err != nil {
		return nil, err
	}

	a := &App{
		Config:    cfg,
		Logger:    logger,
		Catalog:   cat,
		Presenter: catalog.Presenter{Placeholder: cfg.Catalog.ImagePlaceholder},
		Cache:     cacheClient,
		Redis:     redisClient,
	}

	a.Executor = search.NewCachedExecutor(search.NewCatalogExecutor(cat), cacheClient, logger, search.CacheConfig{
		TTL:       cfg.Cache.TTL,
		KeyPrefix: SearchCacheKeyPrefix,
		Enabled:   cfg.Cache.Enabled,
	})
	a.Orchestrator = search.NewOrchestrator(a.Executor, cat, logger)
	a.Tools = chat.NewRegistry(a.Executor, logger)

	if cfg.LLM.APIKey == "" {
		logger.Warn().Msg("No LLM API key configured, chat is disabled")
		return a, nil
	}

	provider, err := NewProvider(cfg, logger)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	deps := chat.Deps{
		Provider:  provider,
		Tools:     a.Tools,
		Fallback:  a.Orchestrator,
		Presenter: a.Presenter,
		Logger:    logger,
	}
	if redisClient != nil {
		deps.Publisher = redisClient
	}

	a.Driver, err = chat.NewDriver(deps, chat.DriverConfig{
		MaxIterations: cfg.LLM.MaxIterations,
		TurnTimeout:   cfg.LLM.TurnTimeout,
		SystemPrompt:  cfg.LLM.SystemPrompt,
		EventsChannel: cfg.Cache.EventsChannel,
	})
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("create chat driver: %w", err)
	}

	return a, nil
}

// Chat runs one conversation turn.
func (a *App) Chat(ctx context.Context, conversation []llm.Message) (*chat.TurnResult, error) {
	if a.Driver == nil {
		return nil, ErrChatUnavailable
	}
	return a.Driver.Run(ctx, conversation)
}

// Close releases the cache connection.
func (a *App) Close() error {
	if a.Cache != nil {
		return a.Cache.Close()
	}
	return nil
}

// LoadCatalog loads the catalog from the configured source.
func LoadCatalog(ctx context.Context, cfg *config.Config) (*catalog.Catalog, error) {
	switch cfg.Catalog.Source {
	case "file":
		c, err := catalog.Load(ctx, catalog.FileSource{Path: cfg.Catalog.Path})
		if err != nil {
			return nil, fmt.Errorf("load catalog file: %w", err)
		}
		return c, nil
	case "database":
		db, err := OpenDatabase(ctx, cfg)
		if err != nil {
			return nil, err
		}
		defer db.Close()

		c, err := catalog.Load(ctx, storage.NewCatalogRepository(db))
		if err != nil {
			return nil, fmt.Errorf("load catalog table: %w", err)
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown catalog source: %s", cfg.Catalog.Source)
	}
}

// OpenDatabase opens the configured SQL database.
func OpenDatabase(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	open := storage.OpenConfig{Driver: cfg.Database.Driver, DSN: cfg.DatabaseDSN()}
	switch cfg.Database.Driver {
	case "sqlite":
		open.MaxOpenConns = cfg.Database.SQLite.MaxOpenConns
	case "postgres":
		open.MaxOpenConns = cfg.Database.Postgres.MaxOpenConns
		open.MaxIdleConns = cfg.Database.Postgres.MaxIdleConns
		open.ConnMaxLifetime = cfg.Database.Postgres.ConnMaxLifetime
	}

	db, err := storage.Open(ctx, open)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.Database.Driver, err)
	}
	return db, nil
}

// OpenCache creates the configured cache. The redis client is returned
// separately so callers can publish through it.
func OpenCache(cfg *config.Config) (cache.Client, *cache.RedisClient, error) {
	if cfg.Cache.Driver != "redis" {
		return cache.NewMemoryClient(cfg.Cache.MaxEntries), nil, nil
	}

	rc, err := cache.NewRedisClient(cache.RedisConfig{
		Addr:     cfg.Cache.Redis.Addr,
		Password: cfg.Cache.Redis.Password,
		DB:       cfg.Cache.Redis.DB,
		PoolSize: cfg.Cache.Redis.PoolSize,
		Prefix:   cfg.Cache.Redis.Prefix,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("connect to redis: %w", err)
	}
	return rc, rc, nil
}

// NewProvider creates the OpenAI-compatible chat provider.
func NewProvider(cfg *config.Config, logger *observability.Logger) (llm.Provider, error) {
	p, err := llm.NewOpenAIProvider(llm.OpenAIConfig{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Retry: llm.RetryConfig{
			MaxRetries:     cfg.LLM.Retry.MaxRetries,
			InitialBackoff: cfg.LLM.Retry.InitialBackoff,
			MaxBackoff:     cfg.LLM.Retry.MaxBackoff,
		},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create llm provider: %w", err)
	}
	return p, nil
}
