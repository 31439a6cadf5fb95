package handlers

import (
	"context"
	"sync"
	"time"

	"github.com/tablehop/apiserver/internal/store"
	"github.com/tablehop/apiserver/types"
)

type memUsers struct {
	mu    sync.Mutex
	users map[string]types.User
}

func (m *memUsers) GetByUsername(_ context.Context, username string) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[username]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return u, nil
}

func (m *memUsers) Create(_ context.Context, user types.User) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.Username]; ok {
		return types.User{}, store.ErrConflict
	}
	user.ID = len(m.users) + 1
	m.users[user.Username] = user
	return user, nil
}

type memRestaurants struct {
	mu    sync.Mutex
	items []types.Restaurant
}

func (m *memRestaurants) List(context.Context) ([]types.Restaurant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]types.Restaurant{}, m.items...), nil
}

func (m *memRestaurants) Get(_ context.Context, id int) (types.Restaurant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.items {
		if r.ID == id {
			return r, nil
		}
	}
	return types.Restaurant{}, store.ErrNotFound
}

func (m *memRestaurants) Create(_ context.Context, r types.Restaurant) (types.Restaurant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.ID = len(m.items) + 1
	r.CreatedAt = time.Now()
	m.items = append(m.items, r)
	return r, nil
}

type memReservations struct {
	mu          sync.Mutex
	items       []types.Reservation
	restaurants *memRestaurants
}

func (m *memReservations) List(ctx context.Context) ([]types.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]types.Reservation, 0, len(m.items))
	for _, res := range m.items {
		rest, err := m.restaurants.Get(ctx, res.RestaurantID)
		if err != nil {
			return nil, err
		}
		res.Restaurant = &rest
		out = append(out, res)
	}
	return out, nil
}

func (m *memReservations) Create(_ context.Context, res types.Reservation) (types.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res.ID = int64(len(m.items) + 1)
	res.CreatedAt = time.Now()
	m.items = append(m.items, res)
	return res, nil
}

func (m *memReservations) DeleteByExternalID(_ context.Context, externalID string) (types.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, res := range m.items {
		if res.ExternalID == externalID {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return res, nil
		}
	}
	return types.Reservation{}, store.ErrNotFound
}

type memRevoker struct {
	mu      sync.Mutex
	revoked map[string]bool
	err     error
}

func (m *memRevoker) Revoke(_ context.Context, id string, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.revoked == nil {
		m.revoked = map[string]bool{}
	}
	m.revoked[id] = true
	return nil
}

func (m *memRevoker) IsRevoked(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	return m.revoked[id], nil
}
