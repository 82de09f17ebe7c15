package engine_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/floorclash/internal/arena"
	"github.com/DoyleJ11/floorclash/internal/display"
	"github.com/DoyleJ11/floorclash/internal/engine"
	"github.com/DoyleJ11/floorclash/internal/replication"
)

type participant struct {
	m     *engine.Machine
	arena *arena.Arena
	board *display.Board
}

type archive []engine.Result

func (a *archive) RecordResult(r engine.Result) { *a = append(*a, r) }

// newSession wires a host and one peer over a synchronous network and
// connects both.
func newSession(t *testing.T) (*replication.Network, *participant, *participant, *archive) {
	t.Helper()
	return newSessionOn(t, arena.DefaultLayout())
}

func newSessionOn(t *testing.T, layout arena.Layout) (*replication.Network, *participant, *participant, *archive) {
	t.Helper()
	net := replication.NewNetwork(nil)
	results := &archive{}

	build := func(id engine.ParticipantID) *participant {
		p := &participant{arena: arena.New(layout), board: display.NewBoard(nil)}
		opts := engine.Options{
			Self:       id,
			Roster:     layout.Roster(),
			Replicator: net.Sender(id),
			World:      p.arena,
			Presenter:  p.board,
			Rand:       engine.NewRand(42),
			Now:        func() time.Time { return time.Unix(1700000000, 0) },
		}
		if id == engine.HostID {
			opts.Results = results
		}
		p.m = engine.NewMachine(opts)
		net.Join(id, p.m)
		return p
	}
	host, peer := build(engine.HostID), build(1)

	for _, id := range []engine.ParticipantID{engine.HostID, 1} {
		peer.m.OnPlayerConnected(id)
		host.m.OnPlayerConnected(id)
	}
	net.Flush()
	require.Equal(t, engine.PhaseColorSelect, host.m.Phase())
	require.Equal(t, engine.PhaseColorSelect, peer.m.Phase())
	return net, host, peer, results
}

func tickBoth(net *replication.Network, dt float64, ps ...*participant) {
	for _, p := range ps {
		p.m.Tick(dt)
	}
	net.Flush()
}

func startMatch(t *testing.T, net *replication.Network, host, peer *participant) {
	t.Helper()
	host.m.PlayerReady()
	peer.m.PlayerReady()
	net.Flush()
	require.Equal(t, engine.PhaseCountdown, host.m.Phase())
	require.Equal(t, engine.PhaseCountdown, peer.m.Phase())

	tickBoth(net, 3, host, peer)
	require.Equal(t, engine.PhaseActive, host.m.Phase())
	require.Equal(t, engine.PhaseActive, peer.m.Phase())
}

func TestSession_ContestedColorGoesToFirstRequest(t *testing.T) {
	net, host, peer, _ := newSession(t)

	host.m.RequestColor(engine.ColorRed)
	peer.m.RequestColor(engine.ColorRed)
	net.Flush()

	assert.Equal(t, engine.ColorRed, host.m.Snapshot().Color)
	assert.Empty(t, peer.m.Snapshot().Color)

	peer.m.RequestColor(engine.ColorBlue)
	net.Flush()
	assert.Equal(t, engine.ColorBlue, peer.m.Snapshot().Color)
	assert.Equal(t, engine.ColorBlue, peer.board.Frame().Color)

	for _, p := range []*participant{host, peer} {
		red, _ := p.arena.Avatar(engine.HostID)
		blue, _ := p.arena.Avatar(1)
		assert.Equal(t, engine.ColorRed, red.Color, "every replica colours the host's avatar")
		assert.Equal(t, engine.ColorBlue, blue.Color, "every replica colours the peer's avatar")
	}
}

func TestSession_PaintedTilesMatchAcrossReplicas(t *testing.T) {
	net, host, peer, _ := newSession(t)
	host.m.RequestColor(engine.ColorGreen)
	peer.m.RequestColor(engine.ColorYellow)
	net.Flush()
	startMatch(t, net, host, peer)

	host.m.RequestMove(host.arena.TileCenter(1, 1))
	peer.m.RequestMove(peer.arena.TileCenter(4, 4))
	net.Flush()

	assert.Equal(t, host.arena.Tiles(), peer.arena.Tiles())
	tile := host.arena.Tiles()[4*6+4]
	assert.Equal(t, engine.ClientName, tile.Owner)
	assert.Equal(t, engine.ColorYellow, tile.Color)
}

func TestSession_FullRound(t *testing.T) {
	net, host, peer, results := newSession(t)
	startMatch(t, net, host, peer)

	for _, tile := range [][2]int{{0, 0}, {1, 0}, {2, 0}} {
		host.m.RequestMove(host.arena.TileCenter(tile[0], tile[1]))
	}
	for _, tile := range [][2]int{{0, 5}, {1, 5}} {
		peer.m.RequestMove(peer.arena.TileCenter(tile[0], tile[1]))
	}
	net.Flush()
	assert.Equal(t, host.arena.Tiles(), peer.arena.Tiles(), "both floors saw the same moves")

	tickBoth(net, 2, host, peer)
	assert.Equal(t, host.m.Snapshot().Walls, peer.m.Snapshot().Walls, "wall toggles are replicated")

	tickBoth(net, 28, host, peer)
	require.Equal(t, engine.PhaseEnded, host.m.Phase())
	require.Equal(t, engine.PhaseEnded, peer.m.Phase())

	hs, ps := host.m.Snapshot(), peer.m.Snapshot()
	require.NotNil(t, hs.Result)
	require.NotNil(t, ps.Result)
	want := []engine.Score{{Name: engine.HostName, Score: 3}, {Name: engine.ClientName, Score: 2}}
	assert.Equal(t, want, hs.Result.Scores)
	assert.Equal(t, want, ps.Result.Scores)
	assert.Equal(t, "You win", hs.Result.Text)
	assert.Equal(t, "You lose", ps.Result.Text)

	require.Len(t, *results, 1)
	assert.Equal(t, 1, (*results)[0].Round)

	winner, ok := host.arena.Avatar(engine.HostID)
	require.True(t, ok)
	assert.False(t, winner.Visible)
	assert.True(t, winner.Celebrating)

	frame := peer.board.Frame()
	assert.True(t, frame.EndScreen)
	assert.Equal(t, "You lose", frame.ResultText)
}

func TestSession_ScorelessRoundGoesToFirstEntry(t *testing.T) {
	net, host, peer, results := newSession(t)
	startMatch(t, net, host, peer)

	tickBoth(net, 30, host, peer)
	require.Equal(t, engine.PhaseEnded, host.m.Phase())
	require.Equal(t, engine.PhaseEnded, peer.m.Phase())

	want := []engine.Score{{Name: engine.HostName, Score: 0}, {Name: engine.ClientName, Score: 0}}
	for _, p := range []*participant{host, peer} {
		res := p.m.Snapshot().Result
		require.NotNil(t, res)
		assert.Equal(t, want, res.Scores)
		assert.Equal(t, engine.HostName, res.Winner)
	}
	assert.Equal(t, "You win", host.m.Snapshot().Result.Text)
	assert.Equal(t, "You lose", peer.m.Snapshot().Result.Text)

	require.Len(t, *results, 1)
	assert.Equal(t, engine.HostName, (*results)[0].Winner)
}

func TestSession_MoveQueuedBeforeGameEndMissesHostTally(t *testing.T) {
	net, host, peer, results := newSession(t)
	startMatch(t, net, host, peer)

	peer.m.RequestMove(peer.arena.TileCenter(2, 2))
	host.m.Tick(30)
	net.Flush()

	assert.Equal(t, host.arena.Tiles(), peer.arena.Tiles(), "the late move still paints both floors")
	assert.Equal(t, engine.ClientName, host.arena.Tiles()[2*6+2].Owner)

	peer.m.Tick(30)
	net.Flush()

	hostScores := host.m.Snapshot().Result.Scores
	peerScores := peer.m.Snapshot().Result.Scores
	assert.Equal(t, engine.Score{Name: engine.ClientName, Score: 0}, hostScores[1])
	assert.Equal(t, engine.Score{Name: engine.ClientName, Score: 1}, peerScores[1])

	require.Len(t, *results, 1)
	assert.Equal(t, hostScores, (*results)[0].Scores, "the archive keeps the host's tally")
}

func TestSession_OccupiedWallNeverToggles(t *testing.T) {
	layout := arena.DefaultLayout()
	layout.Walls = layout.Walls[:3]
	net, host, peer, _ := newSessionOn(t, layout)
	startMatch(t, net, host, peer)

	held := host.m.Snapshot().Walls
	require.Len(t, held, 3)
	blocked := held[1]
	host.m.RequestMove(blocked.Position)
	net.Flush()

	toggled := false
	for elapsed := 0.0; elapsed < 30; elapsed += 0.5 {
		tickBoth(net, 0.5, host, peer)
		hw, pw := host.m.Snapshot().Walls, peer.m.Snapshot().Walls
		require.Equal(t, hw, pw, "wall state diverged at %.1fs", elapsed)
		require.Equal(t, blocked.Active, hw[1].Active, "occupied wall toggled at %.1fs", elapsed)
		if hw[0].Active != held[0].Active || hw[2].Active != held[2].Active {
			toggled = true
		}
	}
	assert.True(t, toggled, "the free walls were never toggled")
	assert.Equal(t, engine.PhaseEnded, host.m.Phase())
}

func TestSession_ResetFromPeerStartsNextRound(t *testing.T) {
	net, host, peer, results := newSession(t)
	startMatch(t, net, host, peer)
	host.m.RequestMove(host.arena.TileCenter(3, 3))
	net.Flush()
	tickBoth(net, 30, host, peer)
	require.Equal(t, engine.PhaseEnded, peer.m.Phase())

	peer.m.RequestReset()
	net.Flush()

	assert.Equal(t, engine.PhaseCountdown, host.m.Phase())
	assert.Equal(t, engine.PhaseCountdown, peer.m.Phase())
	assert.Nil(t, host.m.Snapshot().Result)
	assert.False(t, peer.board.Frame().EndScreen)
	for _, tile := range host.arena.Tiles() {
		assert.Empty(t, tile.Owner)
	}
	av, _ := host.arena.Avatar(engine.HostID)
	assert.True(t, av.Visible)
	assert.False(t, av.Celebrating)

	tickBoth(net, 3, host, peer)
	tickBoth(net, 30, host, peer)
	assert.Equal(t, 2, host.m.Snapshot().Round)
	assert.Len(t, *results, 2)
}

func TestSession_MovesIgnoredOutsideMatch(t *testing.T) {
	net, host, peer, _ := newSession(t)

	peer.m.RequestMove(engine.Vec3{X: 1, Z: 1})
	net.Flush()

	av, _ := host.arena.Avatar(1)
	assert.Equal(t, engine.Vec3{X: 5, Z: 5}, av.Position)
}

func TestSession_LostGameEndLeavesPeerActive(t *testing.T) {
	net, host, peer, _ := newSession(t)
	startMatch(t, net, host, peer)
	net.DropWhen(func(to engine.ParticipantID, env replication.Envelope) bool {
		return to == 1 && env.Call.Kind() == engine.CallGameEnd
	})

	tickBoth(net, 30, host, peer)

	assert.Equal(t, engine.PhaseEnded, host.m.Phase())
	assert.Equal(t, engine.PhaseActive, peer.m.Phase())
	assert.NotNil(t, peer.m.Snapshot().Result, "the peer still scores its own round")
	assert.False(t, peer.m.Snapshot().MatchRunning)
}

func TestSession_RepeatedBroadcastsTransitionOnce(t *testing.T) {
	net, host, peer, _ := newSession(t)
	startMatch(t, net, host, peer)

	host.m.Apply(engine.HostID, engine.StartGame{})
	peer.m.Apply(engine.HostID, engine.StartGame{})
	host.m.Apply(engine.HostID, engine.StartSetup{})

	assert.Equal(t, 1, host.m.Snapshot().Round)
	assert.Equal(t, 1, peer.m.Snapshot().Round)
	assert.Equal(t, engine.PhaseActive, host.m.Phase())
}

func TestSession_PeerCannotForgeHostCalls(t *testing.T) {
	net, host, peer, _ := newSession(t)

	net.Route(replication.Envelope{
		From:   1,
		Target: replication.Target{Kind: replication.TargetEveryone},
		Call:   engine.StartCountdown{},
	})
	net.Flush()

	assert.Equal(t, engine.PhaseColorSelect, host.m.Phase())
	assert.Equal(t, engine.PhaseColorSelect, peer.m.Phase())
}
