package services

import (
	"context"

	"github.com/tablehop/apiserver/types"
)

// RestaurantRepository defines persistence operations for the catalog.
type RestaurantRepository interface {
	List(ctx context.Context) ([]types.Restaurant, error)
	Get(ctx context.Context, id int) (types.Restaurant, error)
	Create(ctx context.Context, restaurant types.Restaurant) (types.Restaurant, error)
}

// RestaurantService encapsulates catalog use-cases.
type RestaurantService struct {
	repo RestaurantRepository
}

func NewRestaurantService(repo RestaurantRepository) *RestaurantService {
	return &RestaurantService{repo: repo}
}

func (s *RestaurantService) List(ctx context.Context) ([]types.Restaurant, error) {
	return s.repo.List(ctx)
}

func (s *RestaurantService) Create(ctx context.Context, restaurant types.Restaurant) (types.Restaurant, error) {
	return s.repo.Create(ctx, restaurant)
}
