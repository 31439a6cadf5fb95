package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tablehop/apiserver/internal/auth"
	"github.com/tablehop/apiserver/internal/logging"
	"github.com/tablehop/apiserver/internal/services"
	"github.com/tablehop/apiserver/types"
)

type testAPI struct {
	router  http.Handler
	tokens  *auth.TokenService
	revoker *memRevoker
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	revoker := &memRevoker{}
	tokens := auth.NewTokenService("test-secret", auth.DefaultTokenTTL, auth.WithRevoker(revoker))
	restaurants := &memRestaurants{}
	reservations := &memReservations{restaurants: restaurants}
	logger := logging.Nop()

	userService := services.NewUserService(&memUsers{users: map[string]types.User{}}, tokens, 4)
	restaurantService := services.NewRestaurantService(restaurants)
	reservationService := services.NewReservationService(reservations, restaurants)
	authMiddleware := RequireAuth(tokens, logger)

	r := chi.NewRouter()
	r.Get("/healthz", Healthz)
	r.Route("/api", func(r chi.Router) {
		AuthRouter(r, userService, authMiddleware, logger)
		r.Route("/restaurants", func(r chi.Router) {
			RestaurantRouter(r, restaurantService, authMiddleware, logger)
		})
		r.Route("/reservations", func(r chi.Router) {
			ReservationRouter(r, reservationService, authMiddleware, logger)
		})
	})

	return &testAPI{router: r, tokens: tokens, revoker: revoker}
}

func (a *testAPI) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func messageOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	return decodeBody[ErrorResponse](t, rec).Message
}

func (a *testAPI) login(t *testing.T, username, password string) string {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/api/register", "", map[string]string{"username": username, "password": password})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = a.do(t, http.MethodPost, "/api/login", "", map[string]string{"username": username, "password": password})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decodeBody[LoginResponse](t, rec).Token
}

func TestHealthz(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRegister(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/api/register", "", map[string]string{"username": "alice", "password": "pw1"})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "User registered successfully", messageOf(t, rec))

	rec = api.do(t, http.MethodPost, "/api/register", "", map[string]string{"username": "alice", "password": "other"})
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Username already exists", messageOf(t, rec))
}

func TestRegister_Validation(t *testing.T) {
	api := newTestAPI(t)

	cases := []struct {
		name string
		body any
		msg  string
	}{
		{"missing password", map[string]string{"username": "bob"}, "password is required"},
		{"blank username", map[string]string{"username": "   ", "password": "x"}, "username is required"},
		{"not an object", "nope", "invalid request body"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := api.do(t, http.MethodPost, "/api/register", "", tc.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tc.msg, messageOf(t, rec))
		})
	}
}

func TestRegister_PasswordTooLong(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/api/register", "", map[string]string{"username": "alice", "password": strings.Repeat("a", 73)})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "password must be at most 72 bytes", messageOf(t, rec))

	rec = api.do(t, http.MethodPost, "/api/register", "", map[string]string{"username": "alice", "password": strings.Repeat("a", 72)})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = api.do(t, http.MethodPost, "/api/login", "", map[string]string{"username": "alice", "password": strings.Repeat("a", 73)})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Incorrect Password", messageOf(t, rec))
}

func TestLogin(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(t, http.MethodPost, "/api/register", "", map[string]string{"username": "alice", "password": "pw1"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = api.do(t, http.MethodPost, "/api/login", "", map[string]string{"username": "bob", "password": "pw1"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid Username", messageOf(t, rec))

	rec = api.do(t, http.MethodPost, "/api/login", "", map[string]string{"username": "alice", "password": "wrong"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Incorrect Password", messageOf(t, rec))

	rec = api.do(t, http.MethodPost, "/api/login", "", map[string]string{"username": "alice", "password": "pw1"})
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[LoginResponse](t, rec)
	assert.Equal(t, "Login successful", resp.Message)

	claims, err := api.tokens.Verify(t.Context(), resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Username)
}

func TestRequireAuth(t *testing.T) {
	api := newTestAPI(t)
	body := map[string]string{"name": "Cafe", "location": "Main St", "cuisine": "French"}

	rec := api.do(t, http.MethodPost, "/api/restaurants", "", body)
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "No token provided", messageOf(t, rec))

	rec = api.do(t, http.MethodPost, "/api/restaurants", "garbage", body)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Unauthorized", messageOf(t, rec))

	other := auth.NewTokenService("another-secret", auth.DefaultTokenTTL)
	forged, err := other.Issue("alice")
	require.NoError(t, err)
	rec = api.do(t, http.MethodGet, "/api/reservations", forged, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuth_ExpiredToken(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	tokens := auth.NewTokenService("test-secret", time.Hour, auth.WithClock(func() time.Time { return now }))
	token, err := tokens.Issue("alice")
	require.NoError(t, err)

	gate := RequireAuth(tokens, logging.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		require.True(t, ok)
		writeJSON(w, http.StatusOK, map[string]string{"username": claims.Username})
	}))
	serve := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		gate.ServeHTTP(rec, req)
		return rec
	}

	now = now.Add(59 * time.Minute)
	rec := serve()
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"username":"alice"}`, rec.Body.String())

	now = now.Add(2 * time.Minute)
	rec = serve()
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Unauthorized", messageOf(t, rec))
}

func TestRequireAuth_RevokerFailure(t *testing.T) {
	api := newTestAPI(t)
	token := api.login(t, "alice", "pw1")

	api.revoker.err = errors.New("redis down")
	rec := api.do(t, http.MethodGet, "/api/reservations", token, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestBearerToken(t *testing.T) {
	cases := map[string]bool{
		"":               false,
		"Bearer":         false,
		"Bearer   ":      false,
		"Basic abc":      false,
		"Bearer abc":     true,
		"bearer abc":     true,
		"  Bearer abc  ": true,
	}
	for header, ok := range cases {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", header)
		token, err := bearerToken(r)
		if ok {
			require.NoError(t, err, header)
			assert.Equal(t, "abc", token)
		} else {
			assert.ErrorIs(t, err, errMissingToken, header)
		}
	}
}

func TestReservationLifecycle(t *testing.T) {
	api := newTestAPI(t)
	token := api.login(t, "alice", "pw1")

	rec := api.do(t, http.MethodPost, "/api/restaurants", token, map[string]string{"name": "Cafe", "location": "Main St", "cuisine": "French"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	cafe := decodeBody[types.Restaurant](t, rec)
	assert.Equal(t, 1, cafe.ID)

	rec = api.do(t, http.MethodGet, "/api/restaurants", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]types.Restaurant](t, rec), 1)

	booking := map[string]any{
		"name": "Alice", "email": "alice@example.com", "phone": "555-0100",
		"date": "2024-06-01", "time": "19:00", "guests": 2, "restaurantId": 99,
	}
	rec = api.do(t, http.MethodPost, "/api/reservations", token, booking)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Restaurant not found", messageOf(t, rec))

	booking["restaurantId"] = cafe.ID
	rec = api.do(t, http.MethodPost, "/api/reservations", token, booking)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeBody[map[string]any](t, rec)
	id, _ := created["id"].(string)
	_, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.EqualValues(t, cafe.ID, created["restaurantId"])

	rec = api.do(t, http.MethodGet, "/api/reservations", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	listed := decodeBody[[]types.Reservation](t, rec)
	require.Len(t, listed, 1)
	require.NotNil(t, listed[0].Restaurant)
	assert.Equal(t, "Cafe", listed[0].Restaurant.Name)

	rec = api.do(t, http.MethodDelete, "/api/reservations/"+id, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, id, decodeBody[types.Reservation](t, rec).ExternalID)

	rec = api.do(t, http.MethodDelete, "/api/reservations/"+id, token, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Reservation not found", messageOf(t, rec))

	rec = api.do(t, http.MethodGet, "/api/reservations", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestCreateReservation_Validation(t *testing.T) {
	api := newTestAPI(t)
	token := api.login(t, "alice", "pw1")

	rec := api.do(t, http.MethodPost, "/api/reservations", token, map[string]any{
		"name": "Alice", "email": "a@x", "phone": "1", "date": "d", "time": "t", "guests": 0, "restaurantId": 1,
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "guests is required", messageOf(t, rec))

	rec = api.do(t, http.MethodPost, "/api/reservations", token, map[string]any{
		"name": "Alice", "email": "a@x", "phone": "1", "date": "d", "time": "t", "guests": 2,
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "restaurantId is required", messageOf(t, rec))
}

func TestDeleteReservation_NotUUID(t *testing.T) {
	api := newTestAPI(t)
	token := api.login(t, "alice", "pw1")

	rec := api.do(t, http.MethodDelete, "/api/reservations/not-a-uuid", token, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLogout(t *testing.T) {
	api := newTestAPI(t)
	token := api.login(t, "alice", "pw1")

	rec := api.do(t, http.MethodPost, "/api/logout", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Logged out", messageOf(t, rec))

	rec = api.do(t, http.MethodGet, "/api/reservations", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
