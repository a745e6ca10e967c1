package storage

import (
	"context"
	"sync"

	"github.com/hanzlahyasir/price-alert-notifier-telegram-bot/internal/models"
)

// Serialize wraps a backend so that writes run one at a time and never
// overlap reads. Reads may run concurrently with each other.
func Serialize(backend Store) Store {
	if s, ok := backend.(*serialized); ok {
		return s
	}
	return &serialized{backend: backend}
}

type serialized struct {
	mu      sync.RWMutex
	backend Store
}

func (s *serialized) Get(ctx context.Context, site, code string) (models.ProductRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.backend.Get(ctx, site, code)
}

func (s *serialized) List(ctx context.Context, f Filter) ([]models.ProductRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.backend.List(ctx, f)
}

func (s *serialized) Upsert(ctx context.Context, u models.ProductUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backend.Upsert(ctx, u)
}

func (s *serialized) SetTracked(ctx context.Context, site, code string, tracked bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backend.SetTracked(ctx, site, code, tracked)
}

func (s *serialized) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backend.Close()
}
