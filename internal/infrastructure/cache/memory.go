package cache

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Jobly-Solutions/steeltiger-middleware/internal/domain"
)

const cleanupInterval = 10 * time.Minute

// datasetItem represents a stored dataset with expiration
type datasetItem struct {
	Dataset    domain.Dataset
	Expiration time.Time // zero means never
}

func (i datasetItem) expired(now time.Time) bool {
	return !i.Expiration.IsZero() && now.After(i.Expiration)
}

// MemoryStore is a thread-safe in-memory dataset store with optional TTL
type MemoryStore struct {
	data  map[string]datasetItem
	ttl   time.Duration
	mutex sync.RWMutex
	stop  chan struct{}
	once  sync.Once
}

// NewMemoryStore creates a new in-memory store. A zero ttl keeps datasets
// until they are replaced.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	store := &MemoryStore{
		data: make(map[string]datasetItem),
		ttl:  ttl,
		stop: make(chan struct{}),
	}

	if ttl > 0 {
		go store.cleanupExpired()
	}

	return store
}

// GetDataset returns the stored dataset, or an empty one on a miss
func (s *MemoryStore) GetDataset(ctx context.Context, key string) domain.Dataset {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	item, exists := s.data[key]
	if !exists || item.expired(time.Now()) {
		return domain.EmptyDataset(key)
	}

	return item.Dataset
}

// PutDataset replaces the dataset stored under key. Readers holding the
// previous dataset keep their copy.
func (s *MemoryStore) PutDataset(ctx context.Context, key string, dataset domain.Dataset) error {
	rows := make([]domain.Row, len(dataset.Rows))
	copy(rows, dataset.Rows)
	dataset.Rows = rows
	dataset.Meta.Dataset = key
	dataset.Meta.Count = len(rows)

	item := datasetItem{Dataset: dataset}
	if s.ttl > 0 {
		item.Expiration = time.Now().Add(s.ttl)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.data[key] = item

	return nil
}

// Keys returns the keys of every live dataset, sorted
func (s *MemoryStore) Keys(ctx context.Context) []string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	now := time.Now()
	keys := make([]string, 0, len(s.data))
	for key, item := range s.data {
		if !item.expired(now) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

// Delete removes a dataset from the store
func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	delete(s.data, key)
	return nil
}

// Size returns the current number of stored datasets (for debugging/monitoring)
func (s *MemoryStore) Size() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.data)
}

// Clear removes all datasets from the store
func (s *MemoryStore) Clear() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.data = make(map[string]datasetItem)
}

// Close stops the expiry sweep
func (s *MemoryStore) Close() error {
	s.once.Do(func() { close(s.stop) })
	return nil
}

// cleanupExpired removes expired datasets periodically
func (s *MemoryStore) cleanupExpired() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.removeExpired(time.Now())
		}
	}
}

func (s *MemoryStore) removeExpired(now time.Time) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for key, item := range s.data {
		if item.expired(now) {
			delete(s.data, key)
		}
	}
}
