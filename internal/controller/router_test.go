package controller

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Freeeeeet/slotswap/internal/auth"
	"github.com/Freeeeeet/slotswap/internal/controller/handlers"
	"github.com/Freeeeeet/slotswap/internal/model"
	"github.com/Freeeeeet/slotswap/internal/repository/memory"
	"github.com/Freeeeeet/slotswap/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

type apiClient struct {
	t      *testing.T
	router *gin.Engine
	store  *memory.Store
}

func newAPI(t *testing.T, cfg RouterConfig) *apiClient {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := memory.NewStore()
	require.NoError(t, err)

	logger := zap.NewNop()
	h := handlers.NewHandlers(
		service.NewEventService(store, logger),
		service.NewSwapService(store, nil, logger),
		service.NewQueryService(store, logger),
		store,
		logger,
	)
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = testSecret
	}
	return &apiClient{t: t, router: NewRouter(h, cfg, logger), store: store}
}

func (c *apiClient) user(name string) string {
	c.t.Helper()
	id := uuid.NewString()
	require.NoError(c.t, c.store.PutUser(&model.User{ID: id, Name: name, Email: name + "@example.com"}))
	return id
}

func (c *apiClient) do(method, path, userID string, body any) *httptest.ResponseRecorder {
	c.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(c.t, json.NewEncoder(&buf).Encode(b))
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		token, err := auth.MakeToken(userID, testSecret, time.Minute)
		require.NoError(c.t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	c.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

type errBody struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

func (c *apiClient) createEvent(userID, title string, hour int, status model.EventStatus) model.Event {
	c.t.Helper()
	st := time.Date(2025, 3, 10, 9+hour, 0, 0, 0, time.UTC)
	w := c.do(http.MethodPost, "/api/events", userID, map[string]any{
		"title":      title,
		"start_time": st,
		"end_time":   st.Add(time.Hour),
		"status":     status,
	})
	require.Equal(c.t, http.StatusCreated, w.Code, w.Body.String())
	return decode[model.Event](c.t, w)
}

func TestHealthz(t *testing.T) {
	api := newAPI(t, RouterConfig{})

	w := api.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestAuthentication(t *testing.T) {
	api := newAPI(t, RouterConfig{})

	w := api.do(http.MethodGet, "/api/events", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "unauthorized", decode[errBody](t, w).Code)

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec := httptest.NewRecorder()
	api.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// uid должен быть UUID
	token, err := auth.MakeToken("alice", testSecret, time.Minute)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	api.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestEventsCRUD(t *testing.T) {
	api := newAPI(t, RouterConfig{})
	alice := api.user("alice")
	bob := api.user("bob")

	e := api.createEvent(alice, "Planning", 0, "")
	assert.Equal(t, model.EventStatusBusy, e.Status)
	assert.Equal(t, alice, e.UserID)

	w := api.do(http.MethodGet, "/api/events", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]model.Event](t, w), 1)

	w = api.do(http.MethodGet, "/api/events/"+e.ID, bob, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = api.do(http.MethodPut, "/api/events/"+e.ID, alice, map[string]any{"status": "SWAPPABLE"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, model.EventStatusSwappable, decode[model.Event](t, w).Status)

	w = api.do(http.MethodPut, "/api/events/"+e.ID, alice, map[string]any{"title": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_input", decode[errBody](t, w).Code)

	w = api.do(http.MethodDelete, "/api/events/"+e.ID, alice, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = api.do(http.MethodGet, "/api/events/"+e.ID, alice, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateEvent_BadInput(t *testing.T) {
	api := newAPI(t, RouterConfig{})
	alice := api.user("alice")

	w := api.do(http.MethodPost, "/api/events", alice, `{"title": "Planning", "start_time": "tomorrow"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(http.MethodPost, "/api/events", alice, map[string]any{
		"title":      "Planning",
		"start_time": "2025-03-10T10:00:00Z",
		"end_time":   "2025-03-10T09:00:00Z",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(http.MethodGet, "/api/events/not-a-uuid", alice, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSwapFlow(t *testing.T) {
	api := newAPI(t, RouterConfig{})
	alice := api.user("alice")
	bob := api.user("bob")

	a := api.createEvent(alice, "Alice's slot", 0, model.EventStatusSwappable)
	b := api.createEvent(bob, "Bob's slot", 2, model.EventStatusSwappable)

	w := api.do(http.MethodGet, "/api/swappable-slots", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	slots := decode[[]model.Event](t, w)
	require.Len(t, slots, 1)
	assert.Equal(t, b.ID, slots[0].ID)
	require.NotNil(t, slots[0].Owner)
	assert.Equal(t, "bob", slots[0].Owner.Name)

	w = api.do(http.MethodPost, "/api/swap-request", alice, map[string]string{
		"my_slot_id":    a.ID,
		"their_slot_id": b.ID,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	req := decode[model.SwapRequest](t, w)
	assert.Equal(t, model.SwapStatusPending, req.Status)

	// Повторная заявка на тот же слот
	w = api.do(http.MethodPost, "/api/swap-request", alice, map[string]string{
		"my_slot_id":    a.ID,
		"their_slot_id": b.ID,
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "conflict", decode[errBody](t, w).Code)

	w = api.do(http.MethodPost, "/api/swap-response/"+req.ID, alice, map[string]bool{"accepted": true})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = api.do(http.MethodPost, "/api/swap-response/"+req.ID, bob, map[string]string{"accepted": "yes"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(http.MethodPost, "/api/swap-response/"+req.ID, bob, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(http.MethodPost, "/api/swap-response/"+req.ID, bob, map[string]bool{"accepted": true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, model.SwapStatusAccepted, decode[model.SwapRequest](t, w).Status)

	w = api.do(http.MethodPost, "/api/swap-response/"+req.ID, bob, map[string]bool{"accepted": false})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "invalid_state", decode[errBody](t, w).Code)

	w = api.do(http.MethodGet, "/api/events/"+a.ID, bob, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, model.EventStatusBusy, decode[model.Event](t, w).Status)

	w = api.do(http.MethodGet, "/api/swap-requests", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[[]model.SwapRequest](t, w)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].Receiver)
	assert.Equal(t, "bob", list[0].Receiver.Name)

	w = api.do(http.MethodGet, "/api/swap-requests/"+req.ID, bob, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	carol := api.user("carol")
	w = api.do(http.MethodGet, "/api/swap-requests/"+req.ID, carol, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSwapRequest_MissingFields(t *testing.T) {
	api := newAPI(t, RouterConfig{})
	alice := api.user("alice")

	w := api.do(http.MethodPost, "/api/swap-request", alice, map[string]string{"my_slot_id": uuid.NewString()})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_input", decode[errBody](t, w).Code)
}

func TestRateLimit(t *testing.T) {
	api := newAPI(t, RouterConfig{RateLimitRPS: 0.001, RateLimitBurst: 2})
	alice := api.user("alice")

	for i := 0; i < 2; i++ {
		w := api.do(http.MethodGet, "/api/events", alice, nil)
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := api.do(http.MethodGet, "/api/events", alice, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	// Лимит считается на пользователя
	w = api.do(http.MethodGet, "/api/events", api.user("bob"), nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestWeekCalendar(t *testing.T) {
	api := newAPI(t, RouterConfig{})
	alice := api.user("alice")
	api.createEvent(alice, "Planning", 0, model.EventStatusSwappable)

	w := api.do(http.MethodGet, "/api/calendar/week?date=2025-03-10&tz=Europe/Moscow", alice, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG")))

	w = api.do(http.MethodGet, "/api/calendar/week?date=10.03.2025", alice, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(http.MethodGet, "/api/calendar/week?tz=Mars/Olympus", alice, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
