// Package models holds the wire-level request/response shapes for the
// matchmaker HTTP surface.
package models

// FindMatchRequest is the body of POST /find_match and DELETE /terminate_match.
type FindMatchRequest struct {
	UserID     string `json:"user_id"`
	UserName   string `json:"user_name,omitempty"`
	Difficulty string `json:"difficulty"`
	Category   string `json:"category"`
}

// FindMatchResponse is returned by POST /find_match.
type FindMatchResponse struct {
	MatchID string `json:"match_id,omitempty"`
	Status  string `json:"status,omitempty"`
	Message string `json:"message"`
}

// TerminateMatchResponse is returned by DELETE /terminate_match.
type TerminateMatchResponse struct {
	Message string `json:"message"`
}

// ConfirmMatchRequest is the body of POST /confirm_match/{match_id}.
type ConfirmMatchRequest struct {
	UserID string `json:"user_id"`
}

// MatchDetails describes a confirmed pairing, carried on successful confirm.
type MatchDetails struct {
	MatchID    string `json:"match_id"`
	Partner    string `json:"partner_id"`
	Difficulty string `json:"difficulty"`
	Category   string `json:"category"`
	RoomToken  string `json:"room_token,omitempty"`
}

// ConfirmMatchResponse is returned by POST /confirm_match/{match_id}.
type ConfirmMatchResponse struct {
	MatchDetails *MatchDetails `json:"match_details,omitempty"`
	Message      string        `json:"message"`
}
