package hub

import (
	"context"

	"github.com/DoyleJ11/floorclash/internal/lobby"
)

type HubMsg interface{ isHubMsg() }

type CreateSession struct {
	Code  string
	Reply chan *Session
}

type GetSession struct {
	Code  string
	Reply chan *Session
}

type RemoveSession struct {
	Code string
}

type ShutdownHub struct{}

type Hub struct {
	inbox    chan HubMsg
	sessions map[string]*Session
	factory  Factory
	ctx      context.Context
	cancel   context.CancelFunc
}

func (CreateSession) isHubMsg() {}
func (GetSession) isHubMsg()    {}
func (RemoveSession) isHubMsg() {}
func (ShutdownHub) isHubMsg()   {}

func NewHub(parent context.Context, factory Factory) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:    make(chan HubMsg, 64),
		sessions: make(map[string]*Session),
		factory:  factory,
		ctx:      ctx,
		cancel:   cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

// Lookup returns the session for code, or nil.
func (h *Hub) Lookup(ctx context.Context, code string) *Session {
	reply := make(chan *Session, 1)
	select {
	case h.inbox <- GetSession{Code: code, Reply: reply}:
	case <-ctx.Done():
		return nil
	}
	select {
	case s := <-reply:
		return s
	case <-ctx.Done():
		return nil
	}
}

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateSession:
				msg.Reply <- h.ensure(msg.Code)

			case GetSession:
				msg.Reply <- h.sessions[msg.Code] // may be nil

			case RemoveSession:
				if s := h.sessions[msg.Code]; s != nil {
					s.Lobby.Inbox() <- lobby.Shutdown{}
					delete(h.sessions, msg.Code)
				}

			case ShutdownHub:
				h.shutdown()
				h.cancel()
				return
			}
		}
	}
}

func (h *Hub) ensure(code string) *Session {
	if s := h.sessions[code]; s != nil {
		return s
	}
	s := h.factory(h.ctx, code)
	h.sessions[code] = s
	return s
}

func (h *Hub) shutdown() {
	for _, s := range h.sessions {
		select {
		case s.Lobby.Inbox() <- lobby.Shutdown{}:
		case <-s.Lobby.Done():
		}
	}
	clear(h.sessions)
}
