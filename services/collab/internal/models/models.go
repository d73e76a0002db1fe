// Package models holds the wire-level and Redis-hash shapes used across the
// room manager, matching the matchmaker's own internal/models package.
package models

import "time"

// Question is the payload returned by the question-bank collaborator and
// mirrored into both halves of a room.
type Question struct {
	Title          string `json:"title"`
	Description    string `json:"description"`
	CodeTemplate   string `json:"code_template"`
	SolutionSample string `json:"solution_sample"`
	Difficulty     string `json:"difficulty"`
	Category       string `json:"category"`
}

// RoomSnapshot mirrors one userroom:{user_id} hash: the full room state as
// seen by one of its two occupants. Two such
// snapshots exist per room, one per user, sharing every field except
// Partner/PartnerName which naturally differ by perspective.
type RoomSnapshot struct {
	MatchID     string
	Partner     string
	PartnerName string
	Difficulty  string
	Category    string
	StartTime   time.Time

	HasQuestion bool
	Question    Question
}

// CreateRoomEvent mirrors the create_room hash, published by the
// matchmaker on double confirmation and consumed-and-deleted by the room
// manager's match-confirmed poller.
type CreateRoomEvent struct {
	MatchID     string
	UserOne     string
	UserOneName string
	UserTwo     string
	UserTwoName string
	Difficulty  string
	Category    string
}

// ConnectResponse is returned by connect(user_id, room_id).
type ConnectResponse struct {
	Question    Question `json:"question"`
	PartnerName string   `json:"partner_name"`
}

// MessageResponse is the generic {message} envelope shared by
// reconnect/exit/terminate.
type MessageResponse struct {
	Message string `json:"message"`
}

// TerminateRequest is the body of POST /terminate/{room_id}.
type TerminateRequest struct {
	Data string `json:"data"`
}

// GatewayFrame is the outbound JSON frame sent over the single gateway
// WebSocket connection: partner_left / partner_join / match_terminate
// notifications.
type GatewayFrame struct {
	UserID  string `json:"user_id"`
	RoomID  string `json:"room_id"`
	Message string `json:"message"`
}

const (
	MsgPartnerLeft    = "partner_left"
	MsgPartnerJoin    = "partner_join"
	MsgMatchTerminate = "match_terminate"
)

// InboundFrame is a frame received from a client through the gateway
// connection - today only the heartbeat ping carries no room_id.
type InboundFrame struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

// ReviewSubmission is the payload POSTed to the review collaborator on
// terminate.
type ReviewSubmission struct {
	Title             string   `json:"title"`
	Description       string   `json:"description"`
	CodeTemplate      string   `json:"code_template"`
	SolutionSample    string   `json:"solution_sample"`
	Difficulty        string   `json:"difficulty"`
	Category          string   `json:"category"`
	TimeElapsedSec    int64    `json:"time_elapsed"`
	SubmittedSolution string   `json:"submitted_solution"`
	Users             []string `json:"users"`
}
