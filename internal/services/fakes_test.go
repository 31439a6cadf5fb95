package services

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/tablehop/apiserver/internal/store"
	"github.com/tablehop/apiserver/types"
)

type fakeUserRepo struct {
	mu     sync.Mutex
	users  map[string]types.User
	getErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]types.User{}}
}

func (r *fakeUserRepo) GetByUsername(_ context.Context, username string) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return types.User{}, r.getErr
	}
	u, ok := r.users[username]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return u, nil
}

func (r *fakeUserRepo) Create(_ context.Context, user types.User) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.Username]; ok {
		return types.User{}, store.ErrConflict
	}
	user.ID = len(r.users) + 1
	user.CreatedAt = time.Now()
	r.users[user.Username] = user
	return user, nil
}

type fakeRestaurantRepo struct {
	mu          sync.Mutex
	restaurants []types.Restaurant
	listErr     error
}

func (r *fakeRestaurantRepo) List(context.Context) ([]types.Restaurant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	return append([]types.Restaurant{}, r.restaurants...), nil
}

func (r *fakeRestaurantRepo) Get(_ context.Context, id int) (types.Restaurant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rest := range r.restaurants {
		if rest.ID == id {
			return rest, nil
		}
	}
	return types.Restaurant{}, store.ErrNotFound
}

func (r *fakeRestaurantRepo) Create(_ context.Context, restaurant types.Restaurant) (types.Restaurant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	restaurant.ID = len(r.restaurants) + 1
	restaurant.CreatedAt = time.Now()
	r.restaurants = append(r.restaurants, restaurant)
	return restaurant, nil
}

type fakeReservationRepo struct {
	mu           sync.Mutex
	nextID       int64
	reservations []types.Reservation
	restaurants  *fakeRestaurantRepo
	createErr    error
}

func (r *fakeReservationRepo) List(ctx context.Context) ([]types.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]types.Reservation, 0, len(r.reservations))
	for _, res := range r.reservations {
		rest, err := r.restaurants.Get(ctx, res.RestaurantID)
		if err != nil {
			return nil, err
		}
		res.Restaurant = &rest
		out = append(out, res)
	}
	return out, nil
}

func (r *fakeReservationRepo) Create(_ context.Context, reservation types.Reservation) (types.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return types.Reservation{}, r.createErr
	}
	r.nextID++
	reservation.ID = r.nextID
	reservation.CreatedAt = time.Now()
	r.reservations = append(r.reservations, reservation)
	return reservation, nil
}

func (r *fakeReservationRepo) DeleteByExternalID(_ context.Context, externalID string) (types.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, res := range r.reservations {
		if res.ExternalID == externalID {
			r.reservations = append(r.reservations[:i], r.reservations[i+1:]...)
			return res, nil
		}
	}
	return types.Reservation{}, store.ErrNotFound
}

type publishedMessage struct {
	channel string
	data    []byte
	attrs   map[string]string
}

type fakePublisher struct {
	mu       sync.Mutex
	messages []publishedMessage
	err      error
}

func (p *fakePublisher) Publish(_ context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return "", p.err
	}
	p.messages = append(p.messages, publishedMessage{channel: channel, data: data, attrs: attrs})
	return "msg-id", nil
}

type fakeObjects struct {
	key         string
	data        []byte
	size        int64
	contentType string
	err         error
}

func (o *fakeObjects) Put(_ context.Context, key string, r io.Reader, size int64, contentType string) error {
	if o.err != nil {
		return o.err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	o.key, o.data, o.size, o.contentType = key, data, size, contentType
	return nil
}
