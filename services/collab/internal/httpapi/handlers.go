// Package httpapi is the room manager's HTTP boundary: one handler per
// public operation, translating internal errors to client/transient status
// codes.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cs3219-g21/roommanager/internal/logging"
	"github.com/cs3219-g21/roommanager/internal/models"
	"github.com/cs3219-g21/roommanager/internal/roomsvc"
	"github.com/cs3219-g21/roommanager/internal/roomtoken"
)

const userIDHeader = "X-User-ID"

// Handlers wires the room manager service into chi HTTP handlers.
type Handlers struct {
	svc       *roomsvc.Service
	log       *logging.Logger
	jwtSecret []byte
}

func New(svc *roomsvc.Service, log *logging.Logger, jwtSecret string) *Handlers {
	return &Handlers{svc: svc, log: log, jwtSecret: []byte(jwtSecret)}
}

// Connect handles POST /connect/{room_id}. Membership is proven by the
// room token issued at confirm_match, not by the X-User-ID header; the
// token is verified before anything touches Redis.
func (h *Handlers) Connect(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "room_id")
	claims, err := h.authenticateRoomToken(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.MessageResponse{Message: "invalid or expired room token"})
		return
	}
	if claims.MatchID != roomID {
		writeJSON(w, http.StatusBadRequest, models.MessageResponse{Message: "room token does not match room id"})
		return
	}

	resp, err := h.svc.Connect(r.Context(), claims.UserID, roomID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Reconnect handles POST /reconnect.
func (h *Handlers) Reconnect(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get(userIDHeader)
	if userID == "" {
		writeJSON(w, http.StatusBadRequest, models.MessageResponse{Message: "X-User-ID header is required"})
		return
	}

	if err := h.svc.Reconnect(r.Context(), userID); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.MessageResponse{Message: "reconnected"})
}

// Exit handles POST /exit.
func (h *Handlers) Exit(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get(userIDHeader)
	if userID == "" {
		writeJSON(w, http.StatusBadRequest, models.MessageResponse{Message: "X-User-ID header is required"})
		return
	}

	if err := h.svc.Exit(r.Context(), userID); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.MessageResponse{Message: "exited"})
}

// Terminate handles POST /terminate/{room_id}.
func (h *Handlers) Terminate(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get(userIDHeader)
	roomID := chi.URLParam(r, "room_id")
	if userID == "" || roomID == "" {
		writeJSON(w, http.StatusBadRequest, models.MessageResponse{Message: "X-User-ID header and room id are required"})
		return
	}

	var req models.TerminateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.MessageResponse{Message: "invalid request body"})
		return
	}

	if err := h.svc.Terminate(r.Context(), userID, roomID, req.Data); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.MessageResponse{Message: "terminated"})
}

func (h *Handlers) authenticateRoomToken(r *http.Request) (*roomtoken.RoomTokenClaims, error) {
	raw, err := roomtoken.ExtractTokenFromHeader(r.Header.Get("Authorization"))
	if err != nil {
		return nil, err
	}
	return roomtoken.Validate(raw, h.jwtSecret)
}

func (h *Handlers) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, roomsvc.ErrNoRoom), errors.Is(err, roomsvc.ErrRoomMismatch),
		errors.Is(err, roomsvc.ErrNoHeartbeat), errors.Is(err, roomsvc.ErrQuestionFailed):
		writeJSON(w, http.StatusBadRequest, models.MessageResponse{Message: err.Error()})
	case errors.Is(err, roomsvc.ErrTransientStore):
		h.log.Error("transient store error", err)
		writeJSON(w, http.StatusInternalServerError, models.MessageResponse{Message: "temporarily unavailable, please retry"})
	default:
		h.log.Error("unexpected error", err)
		writeJSON(w, http.StatusInternalServerError, models.MessageResponse{Message: "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
