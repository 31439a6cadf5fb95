package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tablehop/apiserver/internal/logging"
	"github.com/tablehop/apiserver/internal/services"
	"github.com/tablehop/apiserver/types"
)

// RestaurantHandler provides HTTP handlers for the restaurant catalog.
type RestaurantHandler struct {
	restaurantService *services.RestaurantService
	logger            logging.Logger
}

func NewRestaurantHandler(restaurantService *services.RestaurantService, logger logging.Logger) *RestaurantHandler {
	return &RestaurantHandler{
		restaurantService: restaurantService,
		logger:            logger,
	}
}

// RestaurantRouter registers catalog routes. Listing is public; adding
// requires authMiddleware.
func RestaurantRouter(r chi.Router, restaurantService *services.RestaurantService, authMiddleware func(http.Handler) http.Handler, logger logging.Logger) {
	handler := NewRestaurantHandler(restaurantService, logger)

	r.Get("/", handler.ListRestaurants)
	r.With(authMiddleware).Post("/", handler.CreateRestaurant)
}

func (h *RestaurantHandler) ListRestaurants(w http.ResponseWriter, r *http.Request) {
	restaurants, err := h.restaurantService.List(r.Context())
	if err != nil {
		h.logger.Error(r.Context(), "list restaurants", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch restaurants")
		return
	}
	writeJSON(w, http.StatusOK, restaurants)
}

func (h *RestaurantHandler) CreateRestaurant(w http.ResponseWriter, r *http.Request) {
	var req CreateRestaurantRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	restaurant, err := h.restaurantService.Create(r.Context(), types.Restaurant{
		Name:     req.Name,
		Location: req.Location,
		Cuisine:  req.Cuisine,
	})
	if err != nil {
		h.logger.Error(r.Context(), "create restaurant", "name", req.Name, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to add restaurant")
		return
	}
	writeJSON(w, http.StatusCreated, restaurant)
}

type CreateRestaurantRequest struct {
	Name     string `json:"name" validate:"required"`
	Location string `json:"location" validate:"required"`
	Cuisine  string `json:"cuisine" validate:"required"`
}
