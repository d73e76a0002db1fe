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
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cs3219-g21/matchmaker/internal/logging"
	"github.com/cs3219-g21/matchmaker/internal/matchsvc"
	"github.com/cs3219-g21/matchmaker/internal/models"
)

func setupTestHandlers(t *testing.T) *Handlers {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	svc := matchsvc.New(rdb, logging.New(), time.Second, 200*time.Millisecond, 150*time.Millisecond, 60*time.Millisecond)
	return New(svc, logging.New(), "test-secret")
}

func TestFindMatch_BadRequest(t *testing.T) {
	h := setupTestHandlers(t)
	body, _ := json.Marshal(models.FindMatchRequest{UserID: "alice"})
	req := httptest.NewRequest(http.MethodPost, "/find_match", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.FindMatch(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFindMatch_TimeoutResponse(t *testing.T) {
	h := setupTestHandlers(t)
	body, _ := json.Marshal(models.FindMatchRequest{UserID: "solo", Difficulty: "Hard", Category: "Graphs"})
	req := httptest.NewRequest(http.MethodPost, "/find_match", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.FindMatch(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp models.FindMatchResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "no_match", resp.Status)
}

func TestTerminateMatch_NotQueuedReturnsBadRequest(t *testing.T) {
	h := setupTestHandlers(t)
	body, _ := json.Marshal(models.FindMatchRequest{UserID: "ghost", Difficulty: "Easy", Category: "Array"})
	req := httptest.NewRequest(http.MethodDelete, "/terminate_match", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.TerminateMatch(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestConfirmMatch_InvalidMatchID(t *testing.T) {
	h := setupTestHandlers(t)
	body, _ := json.Marshal(models.ConfirmMatchRequest{UserID: "alice"})
	req := httptest.NewRequest(http.MethodPost, "/confirm_match/does-not-exist", bytes.NewReader(body))
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("match_id", "does-not-exist")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	rec := httptest.NewRecorder()

	h.ConfirmMatch(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
