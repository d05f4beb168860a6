// Package refresh reloads the ERP datasets into the dataset store, on demand
// and on a schedule.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/Jobly-Solutions/steeltiger-middleware/internal/domain"
)

// Config holds configuration for the refresher
type Config struct {
	Datasets    []string      // keys to reload
	Timeout     time.Duration // bound on one full refresh, zero for none
	Concurrency int           // parallel fetches, zero fetches all at once
}

// Result reports one full refresh
type Result struct {
	RefreshedAt time.Time               `json:"refreshedAt"`
	Datasets    []domain.DatasetSummary `json:"datasets"`
	Failed      []string                `json:"failed,omitempty"`
}

// Refresher fetches every configured dataset and stores the ones that
// arrive. Failed datasets keep their previous stored copy.
type Refresher struct {
	provider domain.DatasetProvider
	store    domain.DatasetStore
	config   Config
	logger   zerolog.Logger
	now      func() time.Time

	mu sync.Mutex // one refresh at a time

	failMu   sync.RWMutex
	failures map[string]string // dataset -> error of its latest failed fetch
}

// NewRefresher creates a refresher for the given datasets
func NewRefresher(provider domain.DatasetProvider, store domain.DatasetStore, config Config, logger zerolog.Logger) *Refresher {
	return &Refresher{
		provider: provider,
		store:    store,
		config:   config,
		logger:   logger.With().Str("component", "refresher").Logger(),
		now:      time.Now,
		failures: make(map[string]string),
	}
}

// LastFailures returns the datasets whose latest fetch failed, with the
// error. A later successful fetch clears the entry.
func (r *Refresher) LastFailures() map[string]string {
	r.failMu.RLock()
	defer r.failMu.RUnlock()

	out := make(map[string]string, len(r.failures))
	for k, v := range r.failures {
		out[k] = v
	}
	return out
}

// RefreshDatasets reloads every dataset, reporting a failure if any of them
// could not be fetched or stored
func (r *Refresher) RefreshDatasets(ctx context.Context) error {
	_, err := r.Refresh(ctx)
	return err
}

// Refresh reloads every dataset concurrently and returns what was stored.
// The error joins the per-dataset failures and wraps domain.ErrRefreshFailed.
func (r *Refresher) Refresh(ctx context.Context) (Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.Timeout)
		defer cancel()
	}

	start := r.now()
	summaries := make([]domain.DatasetSummary, len(r.config.Datasets))
	failures := make([]error, len(r.config.Datasets))

	var g errgroup.Group
	if r.config.Concurrency > 0 {
		g.SetLimit(r.config.Concurrency)
	}

	for i, key := range r.config.Datasets {
		i, key := i, key
		g.Go(func() error {
			summary, err := r.refreshOne(ctx, key)
			if err != nil {
				failures[i] = fmt.Errorf("%s: %w", key, err)
				return nil
			}
			summaries[i] = summary
			return nil
		})
	}
	_ = g.Wait()

	result := Result{RefreshedAt: r.now().UTC(), Datasets: make([]domain.DatasetSummary, 0, len(summaries))}
	var errs []error
	r.failMu.Lock()
	for i, key := range r.config.Datasets {
		if failures[i] != nil {
			result.Failed = append(result.Failed, key)
			errs = append(errs, failures[i])
			r.failures[key] = failures[i].Error()
			continue
		}
		delete(r.failures, key)
		result.Datasets = append(result.Datasets, summaries[i])
	}
	r.failMu.Unlock()

	log := r.logger.Info()
	if len(errs) > 0 {
		log = r.logger.Warn().Strs("failed", result.Failed)
	}
	log.Int("stored", len(result.Datasets)).Dur("elapsed", r.now().Sub(start)).Msg("datasets refreshed")

	if len(errs) > 0 {
		return result, fmt.Errorf("%w: %w", domain.ErrRefreshFailed, errors.Join(errs...))
	}
	return result, nil
}

func (r *Refresher) refreshOne(ctx context.Context, key string) (domain.DatasetSummary, error) {
	dataset, err := r.provider.FetchDataset(ctx, key)
	if err != nil {
		return domain.DatasetSummary{}, err
	}
	if dataset.Meta.FetchedAt.IsZero() {
		dataset.Meta.FetchedAt = r.now().UTC()
	}
	if err := r.store.PutDataset(ctx, key, dataset); err != nil {
		return domain.DatasetSummary{}, err
	}
	return domain.DatasetSummary{
		Key:       key,
		Count:     len(dataset.Rows),
		FetchedAt: dataset.Meta.FetchedAt,
	}, nil
}
