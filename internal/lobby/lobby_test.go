package lobby

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/floorclash/internal/arena"
	"github.com/DoyleJ11/floorclash/internal/display"
	"github.com/DoyleJ11/floorclash/internal/engine"
	"github.com/DoyleJ11/floorclash/internal/replication"
)

type peerLink struct {
	mu   sync.Mutex
	envs []replication.Envelope
}

func (p *peerLink) Deliver(env replication.Envelope) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.envs = append(p.envs, env)
}

func (p *peerLink) calls() []engine.CallKind {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []engine.CallKind
	for _, e := range p.envs {
		out = append(out, e.Call.Kind())
	}
	return out
}

type hostLobby struct {
	lb     *Lobby
	router *replication.Router
	peer   *peerLink
	peerID engine.ParticipantID
}

// newHostLobby runs a host lobby without its own clock, with one attached
// peer link that records what the host routes to it.
func newHostLobby(t *testing.T) *hostLobby {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	layout := arena.DefaultLayout()
	router := replication.NewRouter(2, nil)
	world := arena.New(layout)
	board := display.NewBoard(nil)
	m := engine.NewMachine(engine.Options{
		Self:       engine.HostID,
		Roster:     layout.Roster(),
		Replicator: router.Sender(engine.HostID),
		World:      world,
		Presenter:  board,
		Rand:       engine.NewRand(3),
	})
	lb := NewLobby(ctx, m, Config{Board: board, Arena: world})
	router.AttachHost(lb)

	peer := &peerLink{}
	id, err := router.Attach(func(engine.ParticipantID, []engine.ParticipantID) replication.Endpoint { return peer })
	require.NoError(t, err)

	return &hostLobby{lb: lb, router: router, peer: peer, peerID: id}
}

// helper: read the state with a timeout so tests never hang
func state(t *testing.T, lb *Lobby) View {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	v, err := lb.State(ctx)
	require.NoError(t, err)
	return v
}

func send(t *testing.T, lb *Lobby, msgs ...Msg) {
	t.Helper()
	for _, m := range msgs {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		require.NoError(t, lb.Send(ctx, m))
		cancel()
	}
}

func TestLobby_ConnectsAndStartsSetup(t *testing.T) {
	h := newHostLobby(t)

	send(t, h.lb, Connected{ID: engine.HostID})
	v := state(t, h.lb)
	assert.Equal(t, engine.PhaseWaiting, v.Session.Phase)

	send(t, h.lb, Connected{ID: h.peerID})
	v = state(t, h.lb)
	assert.Equal(t, engine.PhaseColorSelect, v.Session.Phase, "own broadcast applied before the next message")
	assert.Equal(t, engine.PhaseColorSelect, v.Screen.Phase)
	assert.Len(t, v.Avatars, 2)
	assert.Equal(t, []engine.CallKind{engine.CallStartSetup}, h.peer.calls())
}

func TestLobby_RunsRoundFromIntentsAndDeliveries(t *testing.T) {
	h := newHostLobby(t)
	send(t, h.lb, Connected{ID: engine.HostID}, Connected{ID: h.peerID})

	send(t, h.lb, RequestColor{Color: engine.ColorGreen}, Ready{})
	h.lb.Deliver(replication.Envelope{
		From:   h.peerID,
		Target: replication.Target{Kind: replication.TargetHost},
		Call:   engine.PlayerReady{},
	})

	require.Eventually(t, func() bool {
		return state(t, h.lb).Session.Phase == engine.PhaseCountdown
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, engine.ColorGreen, state(t, h.lb).Session.Color)

	send(t, h.lb, Tick{Elapsed: 3})
	v := state(t, h.lb)
	assert.Equal(t, engine.PhaseActive, v.Session.Phase)
	assert.Equal(t, 1, v.Session.Round)

	send(t, h.lb, Move{Position: engine.Vec3{X: -5, Z: -5}}, Tick{Elapsed: 30})
	v = state(t, h.lb)
	assert.Equal(t, engine.PhaseEnded, v.Session.Phase)
	require.NotNil(t, v.Session.Result)
	assert.Equal(t, engine.HostName, v.Session.Result.Winner)
	assert.True(t, v.Screen.EndScreen)

	assert.Equal(t, []engine.CallKind{
		engine.CallStartSetup,
		engine.CallAnnounceColor,
		engine.CallStartCountdown,
		engine.CallStartGame,
		engine.CallMoveAvatar,
		engine.CallGameEnd,
	}, h.peer.calls(), "the peer never sees the host's color confirm")
}

func TestLobby_VersionIncrementsOnChanges(t *testing.T) {
	h := newHostLobby(t)

	v0 := state(t, h.lb).Version
	assert.Equal(t, v0, state(t, h.lb).Version, "reads do not bump the version")

	send(t, h.lb, Connected{ID: engine.HostID})
	assert.Greater(t, state(t, h.lb).Version, v0)
}

func TestLobby_ShutdownClosesInbox(t *testing.T) {
	h := newHostLobby(t)
	h.lb.Inbox() <- Shutdown{}

	select {
	case <-h.lb.Done():
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for lobby to stop")
	}

	err := h.lb.Send(context.Background(), Ready{})
	assert.ErrorIs(t, err, ErrClosed)
	_, err = h.lb.State(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestLobby_OwnClockAdvancesCountdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	router := replication.NewRouter(2, nil)
	rules := engine.DefaultRules()
	rules.CountdownSeconds = 0.05
	m := engine.NewMachine(engine.Options{
		Self:       engine.HostID,
		Rules:      rules,
		Replicator: router.Sender(engine.HostID),
		World:      arena.New(arena.DefaultLayout()),
		Presenter:  display.NewBoard(nil),
	})
	lb := NewLobby(ctx, m, Config{TickRate: 100})
	router.AttachHost(lb)

	send(t, lb, Connected{ID: engine.HostID}, Connected{ID: 1})
	lb.Deliver(replication.Envelope{From: engine.HostID, Target: replication.Target{Kind: replication.TargetEveryone}, Call: engine.StartCountdown{}})

	require.Eventually(t, func() bool {
		return state(t, lb).Session.Phase == engine.PhaseActive
	}, 2*time.Second, 10*time.Millisecond)
}
