package ws

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/floorclash/internal/engine"
	"github.com/DoyleJ11/floorclash/internal/replication"
)

const welcomeTimeout = 10 * time.Second

var ErrNoWelcome = errors.New("host did not send a welcome frame")

// Peer is the non-host end of a session link. Everything its machine sends
// goes up to the host, which routes it back down when the call targets this
// participant too.
type Peer struct {
	conn    *websocket.Conn
	out     *replication.Queue[replication.Frame]
	welcome replication.Welcome
	log     *zap.Logger
}

// Dial connects to the host's websocket endpoint for session code and waits
// for the welcome frame that assigns this participant's id.
func Dial(ctx context.Context, hostURL, code string, logger *zap.Logger) (*Peer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	u, err := url.Parse(hostURL)
	if err != nil {
		return nil, fmt.Errorf("parse host url: %w", err)
	}
	q := u.Query()
	q.Set("code", code)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.Dial(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", u.Redacted(), err)
	}

	wctx, cancel := context.WithTimeout(ctx, welcomeTimeout)
	defer cancel()
	_, data, err := conn.Read(wctx)
	if err != nil {
		conn.Close(websocket.StatusProtocolError, "no welcome")
		return nil, fmt.Errorf("read welcome: %w", err)
	}
	f, err := replication.DecodeFrame(data)
	if err != nil || f.Type != replication.FrameWelcome {
		conn.Close(websocket.StatusProtocolError, "no welcome")
		return nil, ErrNoWelcome
	}

	p := &Peer{
		conn:    conn,
		out:     replication.NewQueue[replication.Frame](),
		welcome: *f.Welcome,
	}
	p.log = logger.Named("peer").With(zap.Uint64("self", uint64(p.welcome.ID)))
	p.log.Info("joined session", zap.String("code", code))
	return p, nil
}

func (p *Peer) ID() engine.ParticipantID { return p.welcome.ID }

// Participants is the roster at the time this peer attached, itself included.
func (p *Peer) Participants() []engine.ParticipantID {
	return append([]engine.ParticipantID(nil), p.welcome.Participants...)
}

// Replicator is what the peer's Machine sends through.
func (p *Peer) Replicator() engine.Replicator {
	return replication.NewSender(p.ID(), func(env replication.Envelope) {
		p.out.Push(replication.Frame{Type: replication.FrameCall, Envelope: &env})
	})
}

// Run pumps frames both ways until ctx ends or the host closes the link.
// Incoming calls are handed to ep in arrival order.
func (p *Peer) Run(ctx context.Context, ep replication.Endpoint) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		writeFrames(ctx, p.conn, p.out, p.log)
		return nil
	})

	g.Go(func() error {
		// The writer stops once the host link is gone.
		defer cancel()
		for {
			_, data, err := p.conn.Read(ctx)
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					return nil
				}
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("read from host: %w", err)
			}
			f, err := replication.DecodeFrame(data)
			if err != nil || f.Type != replication.FrameCall {
				p.log.Warn("bad frame from host", zap.Error(err))
				continue
			}
			ep.Deliver(*f.Envelope)
		}
	})

	err := g.Wait()
	p.conn.Close(websocket.StatusNormalClosure, "bye")
	return err
}

func (p *Peer) Close() error {
	return p.conn.Close(websocket.StatusNormalClosure, "bye")
}
