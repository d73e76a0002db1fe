// Package httpapi is the matchmaker's HTTP boundary: one handler per
// public operation, translating internal errors to client/conflict/
// transient status codes.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/cs3219-g21/matchmaker/internal/confirmation"
	"github.com/cs3219-g21/matchmaker/internal/httpmetrics"
	"github.com/cs3219-g21/matchmaker/internal/logging"
	"github.com/cs3219-g21/matchmaker/internal/matchsvc"
	"github.com/cs3219-g21/matchmaker/internal/models"
)

const serviceLabel = "matchmaker"
const roomTokenTTL = 10 * time.Minute

func timeNowPlus(d time.Duration) time.Time { return time.Now().Add(d) }

// Handlers wires the matchmaker service into chi HTTP handlers.
type Handlers struct {
	svc       *matchsvc.Service
	log       *logging.Logger
	jwtSecret []byte
}

func New(svc *matchsvc.Service, log *logging.Logger, jwtSecret string) *Handlers {
	return &Handlers{svc: svc, log: log, jwtSecret: []byte(jwtSecret)}
}

// FindMatch handles POST /find_match.
func (h *Handlers) FindMatch(w http.ResponseWriter, r *http.Request) {
	var req models.FindMatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" || req.Difficulty == "" || req.Category == "" {
		writeJSON(w, http.StatusBadRequest, models.FindMatchResponse{Message: "user_id, difficulty and category are required"})
		return
	}

	httpmetrics.FindMatchWaiterStarted(serviceLabel)
	defer httpmetrics.FindMatchWaiterEnded(serviceLabel)

	result, err := h.svc.FindMatch(r.Context(), req.UserID, req.UserName, req.Difficulty, req.Category)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, models.FindMatchResponse{
		MatchID: result.MatchID,
		Status:  result.Status,
		Message: result.Message,
	})
}

// TerminateMatch handles DELETE /terminate_match.
func (h *Handlers) TerminateMatch(w http.ResponseWriter, r *http.Request) {
	var req models.FindMatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" || req.Difficulty == "" || req.Category == "" {
		writeJSON(w, http.StatusBadRequest, models.TerminateMatchResponse{Message: "user_id, difficulty and category are required"})
		return
	}
	if err := h.svc.TerminateMatch(r.Context(), req.UserID, req.Difficulty, req.Category); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.TerminateMatchResponse{Message: "request terminated"})
}

// ConfirmMatch handles POST /confirm_match/{match_id}.
func (h *Handlers) ConfirmMatch(w http.ResponseWriter, r *http.Request) {
	matchID := chi.URLParam(r, "match_id")
	var req models.ConfirmMatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" || matchID == "" {
		writeJSON(w, http.StatusBadRequest, models.ConfirmMatchResponse{Message: "invalid match id or user id"})
		return
	}

	result, err := h.svc.ConfirmMatch(r.Context(), matchID, req.UserID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if result.Declined {
		writeJSON(w, http.StatusOK, models.ConfirmMatchResponse{Message: "partner_declined"})
		return
	}

	details := h.toWireDetails(matchID, result.Details, req.UserID)
	writeJSON(w, http.StatusOK, models.ConfirmMatchResponse{MatchDetails: details, Message: result.Message})
}

// toWireDetails builds the wire-level MatchDetails. matchID is threaded in
// explicitly since confirmation.Record stores only the pair/bucket fields,
// not its own key.
func (h *Handlers) toWireDetails(matchID string, rec *confirmation.Record, userID string) *models.MatchDetails {
	if rec == nil {
		return nil
	}
	details := &models.MatchDetails{
		MatchID:    matchID,
		Partner:    rec.Partner(userID),
		Difficulty: rec.Difficulty,
		Category:   rec.Category,
	}
	if token, err := h.signRoomToken(matchID, userID); err == nil {
		details.RoomToken = token
	} else {
		h.log.Warn("confirm_match: failed to sign room token", err)
	}
	return details
}

func (h *Handlers) signRoomToken(matchID, userID string) (string, error) {
	claims := jwt.MapClaims{
		"match_id": matchID,
		"user_id":  userID,
		"exp":      jwt.NewNumericDate(timeNowPlus(roomTokenTTL)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(h.jwtSecret)
}

func (h *Handlers) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, matchsvc.ErrAlreadyQueued), errors.Is(err, matchsvc.ErrNotQueued),
		errors.Is(err, matchsvc.ErrInvalidMatch), errors.Is(err, matchsvc.ErrNotMember):
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
	case errors.Is(err, matchsvc.ErrSupersededByNew):
		writeJSON(w, http.StatusConflict, map[string]string{"message": err.Error()})
	case errors.Is(err, matchsvc.ErrTransientStore):
		h.log.Error("transient store error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "temporarily unavailable, please retry"})
	default:
		h.log.Error("unexpected error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
