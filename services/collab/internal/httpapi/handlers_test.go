package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cs3219-g21/roommanager/internal/logging"
	"github.com/cs3219-g21/roommanager/internal/models"
	"github.com/cs3219-g21/roommanager/internal/questionclient"
	"github.com/cs3219-g21/roommanager/internal/reviewclient"
	"github.com/cs3219-g21/roommanager/internal/roomsvc"
	"github.com/cs3219-g21/roommanager/internal/wsgateway"
)

const testSecret = "test-secret"

func setupTestHandlers(t *testing.T) (*Handlers, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	qServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"title":"Two Sum","difficulty":"Easy","category":"Array"}`))
	}))
	t.Cleanup(qServer.Close)
	reviewServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(reviewServer.Close)

	gw := wsgateway.New("", logging.New())
	svc := roomsvc.New(rdb, rdb, gw, questionclient.New(qServer.URL), reviewclient.New(reviewServer.URL),
		logging.New(), "test-consumer", 100*time.Millisecond, time.Second, 10*time.Millisecond, time.Second)
	return New(svc, logging.New(), testSecret), rdb
}

func signTestToken(t *testing.T, matchID, userID string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"match_id": matchID,
		"user_id":  userID,
		"exp":      jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func withRouteParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestReconnect_MissingHeaderIsBadRequest(t *testing.T) {
	h, _ := setupTestHandlers(t)
	req := httptest.NewRequest(http.MethodPost, "/reconnect", nil)
	rec := httptest.NewRecorder()

	h.Reconnect(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReconnect_NoRoomIsBadRequest(t *testing.T) {
	h, _ := setupTestHandlers(t)
	req := httptest.NewRequest(http.MethodPost, "/reconnect", nil)
	req.Header.Set(userIDHeader, "ghost")
	rec := httptest.NewRecorder()

	h.Reconnect(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var resp models.MessageResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.NotEmpty(t, resp.Message)
}

func TestExit_MissingHeaderIsBadRequest(t *testing.T) {
	h, _ := setupTestHandlers(t)
	req := httptest.NewRequest(http.MethodPost, "/exit", nil)
	rec := httptest.NewRecorder()

	h.Exit(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestConnect_InvalidTokenIsBadRequest(t *testing.T) {
	h, _ := setupTestHandlers(t)
	req := httptest.NewRequest(http.MethodPost, "/connect/room-1", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	req = withRouteParam(req, "room_id", "room-1")
	rec := httptest.NewRecorder()

	h.Connect(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestConnect_TokenRoomMismatchIsBadRequest(t *testing.T) {
	h, _ := setupTestHandlers(t)
	token := signTestToken(t, "room-other", "alice")
	req := httptest.NewRequest(http.MethodPost, "/connect/room-1", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	req = withRouteParam(req, "room_id", "room-1")
	rec := httptest.NewRecorder()

	h.Connect(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestConnect_NoRoomForUserIsBadRequest(t *testing.T) {
	h, _ := setupTestHandlers(t)
	token := signTestToken(t, "room-1", "alice")
	req := httptest.NewRequest(http.MethodPost, "/connect/room-1", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	req = withRouteParam(req, "room_id", "room-1")
	rec := httptest.NewRecorder()

	h.Connect(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTerminate_MissingBodyIsBadRequest(t *testing.T) {
	h, _ := setupTestHandlers(t)
	req := httptest.NewRequest(http.MethodPost, "/terminate/room-1", bytes.NewReader(nil))
	req.Header.Set(userIDHeader, "alice")
	req = withRouteParam(req, "room_id", "room-1")
	rec := httptest.NewRecorder()

	h.Terminate(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTerminate_NotInRoomIsBadRequest(t *testing.T) {
	h, _ := setupTestHandlers(t)
	body, _ := json.Marshal(models.TerminateRequest{Data: "solution"})
	req := httptest.NewRequest(http.MethodPost, "/terminate/room-1", bytes.NewReader(body))
	req.Header.Set(userIDHeader, "alice")
	req = withRouteParam(req, "room_id", "room-1")
	rec := httptest.NewRecorder()

	h.Terminate(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
