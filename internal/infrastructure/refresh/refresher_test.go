package refresh

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jobly-Solutions/steeltiger-middleware/internal/domain"
	"github.com/Jobly-Solutions/steeltiger-middleware/internal/infrastructure/cache"
)

// MockProvider is a concurrency-safe mock implementation of domain.DatasetProvider
type MockProvider struct {
	mu       sync.Mutex
	rows     map[string][]domain.Row
	failures map[string]error
	calls    []string
	inFlight atomic.Int32
	peak     atomic.Int32
	delay    time.Duration
}

func (m *MockProvider) FetchDataset(ctx context.Context, key string) (domain.Dataset, error) {
	n := m.inFlight.Add(1)
	defer m.inFlight.Add(-1)
	for {
		peak := m.peak.Load()
		if n <= peak || m.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	if m.delay > 0 {
		time.Sleep(m.delay)
	}

	m.mu.Lock()
	m.calls = append(m.calls, key)
	err := m.failures[key]
	rows := m.rows[key]
	m.mu.Unlock()

	if err != nil {
		return domain.Dataset{}, err
	}
	return domain.Dataset{Meta: domain.DatasetMeta{Dataset: key, Count: len(rows)}, Rows: rows}, nil
}

var allDatasets = []string{domain.DatasetProducts, domain.DatasetPrices, domain.DatasetClients, domain.DatasetClientsIA}

func TestRefresh_StoresEveryDataset(t *testing.T) {
	provider := &MockProvider{rows: map[string][]domain.Row{
		domain.DatasetProducts: {{domain.FieldCode: "ASE011"}, {domain.FieldCode: "ASE012"}},
		domain.DatasetPrices:   {{domain.FieldCode: "ASE011"}},
	}}
	store := cache.NewMemoryStore(0)
	defer store.Close()

	refresher := NewRefresher(provider, store, Config{Datasets: allDatasets}, zerolog.Nop())
	result, err := refresher.Refresh(context.Background())

	require.NoError(t, err)
	assert.Empty(t, result.Failed)
	require.Len(t, result.Datasets, 4)
	assert.Equal(t, domain.DatasetProducts, result.Datasets[0].Key)
	assert.Equal(t, 2, result.Datasets[0].Count)
	assert.False(t, result.Datasets[0].FetchedAt.IsZero())
	assert.False(t, result.RefreshedAt.IsZero())

	assert.Len(t, store.GetDataset(context.Background(), domain.DatasetProducts).Rows, 2)
	assert.Len(t, store.GetDataset(context.Background(), domain.DatasetPrices).Rows, 1)
	assert.ElementsMatch(t, allDatasets, store.Keys(context.Background()))
}

func TestRefresh_PartialFailureKeepsPreviousCopy(t *testing.T) {
	store := cache.NewMemoryStore(0)
	defer store.Close()
	ctx := context.Background()

	old := domain.Dataset{Rows: []domain.Row{{domain.FieldCode: "OLD"}}}
	require.NoError(t, store.PutDataset(ctx, domain.DatasetPrices, old))

	provider := &MockProvider{
		rows: map[string][]domain.Row{domain.DatasetProducts: {{domain.FieldCode: "NEW"}}},
		failures: map[string]error{
			domain.DatasetPrices: errors.New("HTTP 500: boom"),
		},
	}

	refresher := NewRefresher(provider, store, Config{Datasets: []string{domain.DatasetProducts, domain.DatasetPrices}}, zerolog.Nop())
	result, err := refresher.Refresh(ctx)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRefreshFailed)
	assert.Contains(t, err.Error(), "lista_precios: HTTP 500: boom")
	assert.Equal(t, []string{domain.DatasetPrices}, result.Failed)
	require.Len(t, result.Datasets, 1)
	assert.Equal(t, domain.DatasetProducts, result.Datasets[0].Key)

	prices := store.GetDataset(ctx, domain.DatasetPrices)
	require.Len(t, prices.Rows, 1)
	assert.Equal(t, "OLD", prices.Rows[0].Str(domain.FieldCode))
}

func TestRefresher_LastFailures(t *testing.T) {
	store := cache.NewMemoryStore(0)
	defer store.Close()
	ctx := context.Background()

	provider := &MockProvider{failures: map[string]error{
		domain.DatasetPrices:  errors.New("HTTP 500: boom"),
		domain.DatasetClients: errors.New("timeout"),
	}}
	refresher := NewRefresher(provider, store, Config{Datasets: allDatasets}, zerolog.Nop())
	assert.Empty(t, refresher.LastFailures())

	_, err := refresher.Refresh(ctx)
	require.Error(t, err)
	assert.Equal(t, map[string]string{
		domain.DatasetPrices:  "lista_precios: HTTP 500: boom",
		domain.DatasetClients: "clientes: timeout",
	}, refresher.LastFailures())

	provider.mu.Lock()
	delete(provider.failures, domain.DatasetClients)
	provider.mu.Unlock()

	_, err = refresher.Refresh(ctx)
	require.Error(t, err)
	failures := refresher.LastFailures()
	assert.Len(t, failures, 1)
	assert.Contains(t, failures, domain.DatasetPrices)

	failures[domain.DatasetProducts] = "mutated"
	assert.NotContains(t, refresher.LastFailures(), domain.DatasetProducts)
}

func TestRefresh_ConcurrencyLimit(t *testing.T) {
	provider := &MockProvider{delay: 20 * time.Millisecond}
	store := cache.NewMemoryStore(0)
	defer store.Close()

	refresher := NewRefresher(provider, store, Config{Datasets: allDatasets, Concurrency: 2}, zerolog.Nop())
	_, err := refresher.Refresh(context.Background())

	require.NoError(t, err)
	assert.Len(t, provider.calls, 4)
	assert.LessOrEqual(t, provider.peak.Load(), int32(2))
}

func TestRefreshDatasets(t *testing.T) {
	store := cache.NewMemoryStore(0)
	defer store.Close()

	ok := NewRefresher(&MockProvider{}, store, Config{Datasets: allDatasets}, zerolog.Nop())
	assert.NoError(t, ok.RefreshDatasets(context.Background()))

	failing := NewRefresher(&MockProvider{failures: map[string]error{
		domain.DatasetClients: domain.ErrProviderNotConfigured,
	}}, store, Config{Datasets: allDatasets}, zerolog.Nop())
	err := failing.RefreshDatasets(context.Background())
	assert.ErrorIs(t, err, domain.ErrRefreshFailed)
	assert.ErrorIs(t, err, domain.ErrProviderNotConfigured)
}
