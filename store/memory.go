package store

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"go.pilab.hu/oauthkit/domain"
	oautherrors "go.pilab.hu/oauthkit/errors"
)

// DefaultRetention bounds how long an untouched record is kept. Records must
// outlive their token's expiry so a refresh can still read them; retention
// only prunes flows that were abandoned entirely.
const DefaultRetention = 30 * 24 * time.Hour

// MemoryStore implements TokenStore using ttlcache.
type MemoryStore struct {
	cache *ttlcache.Cache[string, *domain.TokenRecord]
}

// NewMemoryStore creates an in-memory token store with automatic cleanup of
// abandoned records. A retention of zero uses DefaultRetention.
func NewMemoryStore(retention time.Duration) *MemoryStore {
	if retention <= 0 {
		retention = DefaultRetention
	}

	cache := ttlcache.New(
		ttlcache.WithTTL[string, *domain.TokenRecord](retention),
	)

	// Start the cleanup process
	go cache.Start()

	return &MemoryStore{
		cache: cache,
	}
}

// Get implements TokenStore.Get.
func (s *MemoryStore) Get(_ context.Context, serviceName string) (*domain.TokenRecord, error) {
	item := s.cache.Get(serviceName)
	if item == nil {
		return nil, oautherrors.ErrTokenNotFound
	}

	// Copy so callers cannot mutate the stored record in place.
	record := *item.Value()
	return &record, nil
}

// Put implements TokenStore.Put.
func (s *MemoryStore) Put(_ context.Context, serviceName string, record *domain.TokenRecord) error {
	stored := *record
	s.cache.Set(serviceName, &stored, ttlcache.DefaultTTL)
	return nil
}

// Delete implements TokenStore.Delete.
func (s *MemoryStore) Delete(_ context.Context, serviceName string) error {
	s.cache.Delete(serviceName)
	return nil
}

// Close stops the cleanup goroutine.
func (s *MemoryStore) Close() error {
	s.cache.Stop()
	return nil
}
