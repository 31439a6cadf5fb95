package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tablehop/apiserver/internal/logging"
	"github.com/tablehop/apiserver/internal/services"
	"github.com/tablehop/apiserver/types"
)

// ReservationHandler provides HTTP handlers for reservations.
type ReservationHandler struct {
	reservationService *services.ReservationService
	logger             logging.Logger
}

func NewReservationHandler(reservationService *services.ReservationService, logger logging.Logger) *ReservationHandler {
	return &ReservationHandler{
		reservationService: reservationService,
		logger:             logger,
	}
}

// ReservationRouter registers reservation routes, all behind authMiddleware.
func ReservationRouter(r chi.Router, reservationService *services.ReservationService, authMiddleware func(http.Handler) http.Handler, logger logging.Logger) {
	handler := NewReservationHandler(reservationService, logger)

	r.Use(authMiddleware)
	r.Get("/", handler.ListReservations)
	r.Post("/", handler.CreateReservation)
	r.Delete("/{id}", handler.DeleteReservation)
}

func (h *ReservationHandler) ListReservations(w http.ResponseWriter, r *http.Request) {
	reservations, err := h.reservationService.List(r.Context())
	if err != nil {
		h.logger.Error(r.Context(), "list reservations", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch reservations")
		return
	}
	writeJSON(w, http.StatusOK, reservations)
}

func (h *ReservationHandler) CreateReservation(w http.ResponseWriter, r *http.Request) {
	var req CreateReservationRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	reservation, err := h.reservationService.Create(r.Context(), types.Reservation{
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		Date:         req.Date,
		Time:         req.Time,
		Guests:       req.Guests,
		RestaurantID: req.RestaurantID,
	})
	if err != nil {
		if errors.Is(err, services.ErrRestaurantNotFound) {
			writeError(w, http.StatusNotFound, "Restaurant not found")
			return
		}
		h.logger.Error(r.Context(), "create reservation", "restaurant_id", req.RestaurantID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to create reservation")
		return
	}
	writeJSON(w, http.StatusCreated, reservation)
}

func (h *ReservationHandler) DeleteReservation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	deleted, err := h.reservationService.Delete(r.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrReservationNotFound) {
			writeError(w, http.StatusNotFound, "Reservation not found")
			return
		}
		h.logger.Error(r.Context(), "delete reservation", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to delete reservation")
		return
	}
	writeJSON(w, http.StatusOK, deleted)
}

type CreateReservationRequest struct {
	Name         string `json:"name" validate:"required"`
	Email        string `json:"email" validate:"required"`
	Phone        string `json:"phone" validate:"required"`
	Date         string `json:"date" validate:"required"`
	Time         string `json:"time" validate:"required"`
	Guests       int    `json:"guests" validate:"required,min=1"`
	RestaurantID int    `json:"restaurantId" validate:"required,min=1"`
}
