package ws

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/DoyleJ11/floorclash/internal/engine"
	"github.com/DoyleJ11/floorclash/internal/hub"
	"github.com/DoyleJ11/floorclash/internal/lobby"
	"github.com/DoyleJ11/floorclash/internal/replication"
)

const writeTimeout = 3 * time.Second

type Options struct {
	// FrameRate caps how many frames per second a peer may send; excess
	// frames wait rather than being dropped.
	FrameRate float64
	Logger    *zap.Logger
}

// Handler attaches a peer to a hosted session and relays its frames through
// the session router.
func Handler(h *hub.Hub, opts Options) http.HandlerFunc {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.FrameRate <= 0 {
		opts.FrameRate = 120
	}

	return func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			return
		}

		sess := h.Lookup(r.Context(), code)
		if sess == nil {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}

		out := replication.NewQueue[replication.Frame]()
		id, err := sess.Router.Attach(func(id engine.ParticipantID, roster []engine.ParticipantID) replication.Endpoint {
			out.Push(replication.Frame{
				Type:    replication.FrameWelcome,
				Welcome: &replication.Welcome{ID: id, Participants: roster},
			})
			return outbox{out}
		})
		if errors.Is(err, replication.ErrSessionFull) {
			http.Error(w, "session full", http.StatusConflict)
			return
		}
		if err != nil {
			http.Error(w, "attach failed", http.StatusInternalServerError)
			return
		}

		log := opts.Logger.With(zap.String("session", code), zap.Uint64("peer", uint64(id)))

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			// In dev ONLY, you can loosen origin checks:
			// OriginPatterns: []string{"http://localhost:*", "http://127.0.0.1:*"},
		})
		if err != nil {
			sess.Router.Detach(id)
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		if err := sess.Lobby.Send(r.Context(), lobby.Connected{ID: id}); err != nil {
			sess.Router.Detach(id)
			return
		}
		defer func() {
			sess.Router.Detach(id)
			_ = sess.Lobby.Send(context.Background(), lobby.Disconnected{ID: id})
		}()

		// Writer goroutine
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go writeFrames(writeCtx, conn, out, log)
		go func() {
			select {
			case <-sess.Lobby.Done():
				conn.Close(websocket.StatusGoingAway, "session closed")
			case <-writeCtx.Done():
			}
		}()

		// Reader loop
		limiter := rate.NewLimiter(rate.Limit(opts.FrameRate), int(opts.FrameRate))
		for {
			if err := limiter.Wait(r.Context()); err != nil {
				return
			}
			_, data, err := conn.Read(r.Context())
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					log.Info("peer left")
				default:
					log.Warn("peer read failed", zap.Error(err))
				}
				return
			}

			f, err := replication.DecodeFrame(data)
			if err != nil || f.Type != replication.FrameCall {
				log.Warn("bad frame from peer", zap.Error(err))
				continue
			}
			if f.Envelope.From != id {
				log.Warn("spoofed sender dropped", zap.Uint64("claimed", uint64(f.Envelope.From)))
				continue
			}
			sess.Router.Route(*f.Envelope)
		}
	}
}

// outbox adapts a frame queue into a router endpoint.
type outbox struct {
	q *replication.Queue[replication.Frame]
}

func (o outbox) Deliver(env replication.Envelope) {
	o.q.Push(replication.Frame{Type: replication.FrameCall, Envelope: &env})
}

func writeFrames(ctx context.Context, conn *websocket.Conn, q *replication.Queue[replication.Frame], log *zap.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-q.Ready():
		}
		for {
			f, ok := q.Pop()
			if !ok {
				break
			}
			payload, err := replication.EncodeFrame(f)
			if err != nil {
				log.Warn("frame not encodable", zap.Error(err))
				continue
			}
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err = conn.Write(wctx, websocket.MessageText, payload)
			cancel()
			if err != nil {
				log.Warn("write failed", zap.Error(err))
				return
			}
		}
	}
}
