package lobby

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/floorclash/internal/arena"
	"github.com/DoyleJ11/floorclash/internal/display"
	"github.com/DoyleJ11/floorclash/internal/engine"
	"github.com/DoyleJ11/floorclash/internal/replication"
)

var ErrClosed = errors.New("lobby closed")

type Msg interface{ isLobbyMsg() }

type Connected struct{ ID engine.ParticipantID }

func (Connected) isLobbyMsg() {}

type Disconnected struct{ ID engine.ParticipantID }

func (Disconnected) isLobbyMsg() {}

type RequestColor struct{ Color engine.Color }

func (RequestColor) isLobbyMsg() {}

type Ready struct{}

func (Ready) isLobbyMsg() {}

type Reset struct{}

func (Reset) isLobbyMsg() {}

type Move struct{ Position engine.Vec3 }

func (Move) isLobbyMsg() {}

// Tick advances the session clock by hand. Used when the lobby runs without
// its own ticker.
type Tick struct{ Elapsed float64 }

func (Tick) isLobbyMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isLobbyMsg() {}

type Shutdown struct{}

func (Shutdown) isLobbyMsg() {}

type View struct {
	Version int             `json:"version"`
	Session engine.Snapshot `json:"session"`
	Screen  display.Frame   `json:"screen"`
	Avatars []arena.Avatar  `json:"avatars,omitempty"`
	Tiles   []arena.Tile    `json:"tiles,omitempty"`
}

type Config struct {
	// TickRate is the number of frame ticks per second. Zero disables the
	// internal clock; ticks then only come from Tick messages.
	TickRate int
	Board    *display.Board
	Arena    *arena.Arena
	Logger   *zap.Logger
}

// Lobby is one participant's thread of control. Intents, frame ticks and
// replicated calls are all applied to the Machine from the loop goroutine,
// one at a time.
type Lobby struct {
	inbox   chan Msg
	mail    *replication.Queue[replication.Envelope]
	machine *engine.Machine
	cfg     Config
	version int
	log     *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewLobby(parent context.Context, m *engine.Machine, cfg Config) *Lobby {
	ctx, cancel := context.WithCancel(parent)
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	l := &Lobby{
		inbox:   make(chan Msg, 64),
		mail:    replication.NewQueue[replication.Envelope](),
		machine: m,
		cfg:     cfg,
		log:     cfg.Logger.Named("lobby"),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	go l.loop()
	return l
}

// Deliver queues a replicated call. It never blocks, so the lobby's own
// machine may broadcast to itself from inside the loop.
func (l *Lobby) Deliver(env replication.Envelope) {
	l.mail.Push(env)
}

// Inbox exposes the intent channel for tests and transports.
func (l *Lobby) Inbox() chan<- Msg { return l.inbox }

// Send posts msg unless ctx ends or the lobby has shut down first.
func (l *Lobby) Send(ctx context.Context, msg Msg) error {
	select {
	case <-l.done:
		return ErrClosed
	default:
	}
	select {
	case l.inbox <- msg:
		return nil
	case <-l.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// State asks the loop for a consistent view.
func (l *Lobby) State(ctx context.Context) (View, error) {
	reply := make(chan View, 1)
	if err := l.Send(ctx, GetState{Reply: reply}); err != nil {
		return View{}, err
	}
	select {
	case v := <-reply:
		return v, nil
	case <-l.done:
		return View{}, ErrClosed
	case <-ctx.Done():
		return View{}, ctx.Err()
	}
}

func (l *Lobby) Done() <-chan struct{} { return l.done }

func (l *Lobby) loop() {
	defer close(l.done)

	var frames <-chan time.Time
	if l.cfg.TickRate > 0 {
		t := time.NewTicker(time.Second / time.Duration(l.cfg.TickRate))
		defer t.Stop()
		frames = t.C
	}
	last := time.Now()

	for {
		select {
		case <-l.ctx.Done():
			l.shutdown()
			return

		case <-l.mail.Ready():
			l.drain()

		case now := <-frames:
			l.machine.Tick(now.Sub(last).Seconds())
			last = now
			l.drain()

		case m := <-l.inbox:
			if _, ok := m.(Shutdown); ok {
				l.shutdown()
				return
			}
			l.handle(m)
			// Calls the machine just sent to itself are applied before the
			// next intent is read.
			l.drain()
		}
	}
}

func (l *Lobby) handle(m Msg) {
	switch msg := m.(type) {
	case Connected:
		l.machine.OnPlayerConnected(msg.ID)
	case Disconnected:
		l.machine.OnPlayerDisconnected(msg.ID)
	case RequestColor:
		l.machine.RequestColor(msg.Color)
	case Ready:
		l.machine.PlayerReady()
	case Reset:
		l.machine.RequestReset()
	case Move:
		l.machine.RequestMove(msg.Position)
	case Tick:
		l.machine.Tick(msg.Elapsed)
	case GetState:
		msg.Reply <- l.view()
		return
	}
	l.version++
}

func (l *Lobby) drain() {
	for {
		env, ok := l.mail.Pop()
		if !ok {
			return
		}
		l.machine.Apply(env.From, env.Call)
		l.version++
	}
}

func (l *Lobby) view() View {
	v := View{
		Version: l.version,
		Session: l.machine.Snapshot(),
	}
	if l.cfg.Board != nil {
		v.Screen = l.cfg.Board.Frame()
	}
	if l.cfg.Arena != nil {
		v.Avatars = l.cfg.Arena.Avatars()
		v.Tiles = l.cfg.Arena.Tiles()
	}
	return v
}

func (l *Lobby) shutdown() {
	l.log.Debug("lobby shutting down", zap.Int("pending", l.mail.Len()))
	l.cancel()
}
