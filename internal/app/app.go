// Package app wires configuration into the store, ERP client, refresher and
// services shared by the server and the CLI.
package app

import (
	"context"
	"errors"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/Jobly-Solutions/steeltiger-middleware/config"
	httpDelivery "github.com/Jobly-Solutions/steeltiger-middleware/internal/delivery/http"
	"github.com/Jobly-Solutions/steeltiger-middleware/internal/domain"
	"github.com/Jobly-Solutions/steeltiger-middleware/internal/infrastructure/cache"
	"github.com/Jobly-Solutions/steeltiger-middleware/internal/infrastructure/llm"
	"github.com/Jobly-Solutions/steeltiger-middleware/internal/infrastructure/refresh"
	"github.com/Jobly-Solutions/steeltiger-middleware/internal/infrastructure/steeltiger"
	"github.com/Jobly-Solutions/steeltiger-middleware/internal/usecase"
)

// App holds the wired dependencies
type App struct {
	Config *config.Config
	Logger zerolog.Logger

	Store     domain.DatasetStore
	Client    *steeltiger.Client // nil without ERP credentials
	Refresher *refresh.Refresher // nil without ERP credentials
	Queries   *usecase.QueryService
	Datasets  *usecase.DatasetService

	closers []io.Closer
}

// New builds every dependency from cfg
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger}

	a.Store = a.newStore()

	// Left nil when unconfigured
	var (
		provider   domain.DatasetProvider
		refresher  domain.DatasetRefresher
		summarizer domain.Summarizer
	)

	if cfg.Provider.Configured() {
		a.Client = steeltiger.NewClient(steeltiger.Config{
			APIURL:        cfg.Provider.APIURL,
			AuthURL:       cfg.Provider.AuthURL,
			License:       cfg.Provider.License,
			User:          cfg.Provider.User,
			Password:      cfg.Provider.Password,
			CUIT:          cfg.Provider.CUIT,
			Email:         cfg.Provider.AuthEmail(),
			Timeout:       cfg.Provider.Timeout,
			MaxAttempts:   cfg.Provider.MaxAttempts,
			RatePerSecond: cfg.Provider.RatePerSecond,
			Burst:         cfg.Provider.Burst,
		}, logger)
		a.Refresher = refresh.NewRefresher(a.Client, a.Store, refresh.Config{
			Datasets:    usecase.KnownDatasets,
			Timeout:     cfg.Refresh.Timeout,
			Concurrency: cfg.Refresh.Concurrency,
		}, logger)

		provider = a.Client
		refresher = a.Refresher
	} else {
		logger.Warn().Msg("ERP license not configured, serving stored datasets only")
	}

	s, err := llm.New(ctx, llm.Config{
		Provider:  cfg.LLM.Provider,
		APIKey:    cfg.LLM.APIKey,
		Model:     cfg.LLM.Model,
		BaseURL:   cfg.LLM.BaseURL,
		MaxTokens: cfg.LLM.MaxTokens,
		Timeout:   cfg.LLM.Timeout,
	}, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	if s != nil {
		summarizer = s
		if c, ok := s.(io.Closer); ok {
			a.closers = append(a.closers, c)
		}
	}

	queryLogger := logger
	if cfg.Matching.EnableDebugLogging {
		queryLogger = logger.Level(zerolog.DebugLevel)
	}

	a.Queries = usecase.NewQueryService(a.Store, provider, refresher, summarizer, usecase.QueryServiceConfig{
		DefaultList:      cfg.Matching.DefaultList,
		PhonePlaceholder: cfg.Matching.DirectPlaceholder,
		CountryCode:      cfg.Matching.CountryCode,
		MinSimilarity:    cfg.Matching.MinSimilarity,
	}, queryLogger)
	a.Datasets = usecase.NewDatasetService(a.Store)

	logger.Info().
		Str("cache", cfg.Cache.Type).
		Bool("provider", a.Client != nil).
		Str("llm", cfg.LLM.Provider).
		Float64("min_similarity", cfg.Matching.MinSimilarity).
		Msg("dependencies initialized")

	return a, nil
}

// newStore opens the configured store. An unreachable Redis falls back to
// memory so the service still starts.
func (a *App) newStore() domain.DatasetStore {
	cfg := a.Config.Cache
	if cfg.Type == "redis" {
		store, err := cache.NewRedisStore(cache.RedisConfig{
			URL:    cfg.RedisURL,
			Prefix: cfg.KeyPrefix,
			TTL:    cfg.TTL,
		}, a.Logger)
		if err == nil {
			a.closers = append(a.closers, store)
			return store
		}
		a.Logger.Error().Err(err).Msg("redis unavailable, using in-memory store")
	}

	store := cache.NewMemoryStore(cfg.TTL)
	a.closers = append(a.closers, store)
	return store
}

// Router builds the HTTP router
func (a *App) Router() *gin.Engine {
	var (
		refresher  httpDelivery.Refresher
		authorizer httpDelivery.Authorizer
	)
	if a.Refresher != nil {
		refresher = a.Refresher
	}
	if a.Client != nil {
		authorizer = a.Client
	}

	handler := httpDelivery.NewHandler(a.Queries, a.Datasets, refresher, authorizer)
	return httpDelivery.SetupRouter(a.Config, handler, a.Logger)
}

// Scheduler returns the refresh scheduler, or nil without ERP credentials
func (a *App) Scheduler() (*refresh.Scheduler, error) {
	if a.Refresher == nil {
		return nil, nil
	}
	return refresh.NewScheduler(a.Refresher, refresh.SchedulerConfig{
		Schedule: a.Config.Refresh.Cron,
		OnStart:  a.Config.Refresh.OnStart,
		Timeout:  a.Config.Refresh.Timeout,
	}, a.Logger)
}

// Close releases the store and summarizer connections
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
