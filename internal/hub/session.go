package hub

import (
	"context"

	"go.uber.org/zap"

	"github.com/DoyleJ11/floorclash/internal/arena"
	"github.com/DoyleJ11/floorclash/internal/display"
	"github.com/DoyleJ11/floorclash/internal/engine"
	"github.com/DoyleJ11/floorclash/internal/lobby"
	"github.com/DoyleJ11/floorclash/internal/replication"
)

// Session is one match hosted by this process: the host participant's lobby
// and the router every peer of the match attaches to.
type Session struct {
	Code   string
	Lobby  *lobby.Lobby
	Router *replication.Router
}

type Factory func(ctx context.Context, code string) *Session

type Deps struct {
	Rules    engine.Rules
	Layout   arena.Layout
	TickRate int
	Seed     uint64
	// Results, when set, returns the sink a session's round results go to.
	Results func(code string) engine.ResultSink
	Logger  *zap.Logger
}

// NewSessionFactory builds host sessions. The host participant is connected
// as soon as the session exists, which moves it to waiting for a peer.
func NewSessionFactory(d Deps) Factory {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return func(ctx context.Context, code string) *Session {
		log := d.Logger.With(zap.String("session", code))
		router := replication.NewRouter(d.Rules.MaxParticipants, log)
		world := arena.New(d.Layout)
		board := display.NewBoard(log)

		var sink engine.ResultSink
		if d.Results != nil {
			sink = d.Results(code)
		}

		m := engine.NewMachine(engine.Options{
			Self:       engine.HostID,
			Rules:      d.Rules,
			Roster:     d.Layout.Roster(),
			Replicator: router.Sender(engine.HostID),
			World:      world,
			Presenter:  board,
			Results:    sink,
			Rand:       engine.NewRand(d.Seed),
			Logger:     log,
		})
		lb := lobby.NewLobby(ctx, m, lobby.Config{
			TickRate: d.TickRate,
			Board:    board,
			Arena:    world,
			Logger:   log,
		})
		router.AttachHost(lb)
		lb.Inbox() <- lobby.Connected{ID: engine.HostID}

		log.Info("session created")
		return &Session{Code: code, Lobby: lb, Router: router}
	}
}
