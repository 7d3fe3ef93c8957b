package checkpoint

import (
	"context"
	"sync"
	"time"
)

// Store is a durable string key-value store. Get reports absence with ok=false.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Clear(ctx context.Context, key string) error
}

// Locker grants a time-bounded exclusive lease on a key to one holder.
type Locker interface {
	Acquire(ctx context.Context, key, holder string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key, holder string) error
}

type lease struct {
	holder  string
	expires time.Time
}

// MemStore keeps everything in process memory.
type MemStore struct {
	mu     sync.Mutex
	values map[string]string
	leases map[string]lease
	now    func() time.Time
}

func NewMemStore() *MemStore {
	return &MemStore{
		values: make(map[string]string),
		leases: make(map[string]lease),
		now:    time.Now,
	}
}

func (m *MemStore) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemStore) Clear(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

func (m *MemStore) Acquire(_ context.Context, key, holder string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	if cur, ok := m.leases[key]; ok && cur.holder != holder && now.Before(cur.expires) {
		return false, nil
	}
	m.leases[key] = lease{holder: holder, expires: now.Add(ttl)}
	return true, nil
}

func (m *MemStore) Release(_ context.Context, key, holder string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.leases[key]; ok && cur.holder == holder {
		delete(m.leases, key)
	}
	return nil
}
