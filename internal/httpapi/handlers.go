package httpapi

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/DoyleJ11/floorclash/internal/engine"
	"github.com/DoyleJ11/floorclash/internal/hub"
	"github.com/DoyleJ11/floorclash/internal/lobby"
	"github.com/DoyleJ11/floorclash/internal/store"
	"github.com/DoyleJ11/floorclash/internal/types"
)

var ErrUnknownIntent = errors.New("unknown intent")

func GenerateCode() (string, error) {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	code := make([]byte, 6)
	for i := 0; i < 6; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		code[i] = charset[num.Int64()]
	}
	return string(code), nil
}

func CreateSession(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var sess *hub.Session
		for sess == nil {
			c, err := GenerateCode()
			if err != nil {
				writeError(w, http.StatusInternalServerError, "failed to generate code")
				return
			}
			if h.Lookup(r.Context(), c) != nil {
				log.Debug("collision on code, regenerating", zap.String("code", c))
				continue
			}

			reply := make(chan *hub.Session, 1)
			select {
			case h.Inbox() <- hub.CreateSession{Code: c, Reply: reply}:
			case <-r.Context().Done():
				return
			}
			if sess = <-reply; sess == nil {
				writeError(w, http.StatusInternalServerError, "failed to create session")
				return
			}
		}

		writeJSON(w, http.StatusCreated, types.SessionResponse{Code: sess.Code})
	}
}

func GetSession(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := chi.URLParam(r, "code")
		sess := h.Lookup(r.Context(), code)
		if sess == nil {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}

		view, err := sess.Lobby.State(r.Context())
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}

		ids := sess.Router.Participants()
		members := make([]uint64, len(ids))
		for i, id := range ids {
			members[i] = uint64(id)
		}
		writeJSON(w, http.StatusOK, types.SessionResponse{Code: code, Members: members, View: &view})
	}
}

// DeleteSession stops a session's lobby and forgets its code. Attached peers
// are disconnected.
func DeleteSession(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := chi.URLParam(r, "code")
		if h.Lookup(r.Context(), code) == nil {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		select {
		case h.Inbox() <- hub.RemoveSession{Code: code}:
		case <-r.Context().Done():
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// ResultHistory lists the archived rounds of a session.
type ResultHistory interface {
	History(ctx context.Context, code string) ([]store.MatchResult, error)
}

func GetHistory(archive ResultHistory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if archive == nil {
			writeError(w, http.StatusServiceUnavailable, "results archive disabled")
			return
		}
		code := chi.URLParam(r, "code")
		rows, err := archive.History(r.Context(), code)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "history unavailable")
			return
		}
		writeJSON(w, http.StatusOK, types.HistoryResponse{Code: code, Rounds: rows})
	}
}

// PostIntent drives the host participant of a session.
func PostIntent(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := chi.URLParam(r, "code")
		sess := h.Lookup(r.Context(), code)
		if sess == nil {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}

		var req types.IntentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "malformed intent")
			return
		}
		msg, err := toLobbyMsg(req)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := sess.Lobby.Send(r.Context(), msg); err != nil {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}
}

func toLobbyMsg(req types.IntentRequest) (lobby.Msg, error) {
	switch strings.ToLower(req.Type) {
	case "requestcolor", "color":
		c, err := engine.ParseColor(req.Color)
		if err != nil {
			return nil, err
		}
		return lobby.RequestColor{Color: c}, nil
	case "ready", "playerready":
		return lobby.Ready{}, nil
	case "reset", "requestreset":
		return lobby.Reset{}, nil
	case "move":
		return lobby.Move{Position: engine.Vec3{X: req.X, Y: req.Y, Z: req.Z}}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownIntent, req.Type)
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, types.ErrorResponse{Error: msg})
}
