package types

import (
	"github.com/DoyleJ11/floorclash/internal/lobby"
	"github.com/DoyleJ11/floorclash/internal/store"
)

// IntentRequest is what the host's HTTP surface accepts on behalf of the
// host participant.
type IntentRequest struct {
	Type  string  `json:"type"` // "RequestColor" | "PlayerReady" | "RequestReset" | "Move"
	Color string  `json:"color,omitempty"`
	X     float64 `json:"x,omitempty"`
	Y     float64 `json:"y,omitempty"`
	Z     float64 `json:"z,omitempty"`
}

type SessionResponse struct {
	Code    string      `json:"code"`
	Members []uint64    `json:"members,omitempty"`
	View    *lobby.View `json:"view,omitempty"`
}

type HistoryResponse struct {
	Code   string              `json:"code"`
	Rounds []store.MatchResult `json:"rounds"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
