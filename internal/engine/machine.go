package engine

import (
	"math"
	"math/rand/v2"
	"slices"
	"time"

	"go.uber.org/zap"
)

// Options is everything a Machine needs from its surroundings. Nothing is
// looked up globally.
type Options struct {
	Self       ParticipantID
	Rules      Rules
	Roster     *Roster
	Replicator Replicator
	World      World
	Presenter  Presenter
	Results    ResultSink // optional, host only
	Rand       *rand.Rand
	Now        func() time.Time
	Logger     *zap.Logger
}

// Machine is one participant's copy of the session. It is not safe for
// concurrent use: every method must be called from the participant's single
// thread of control (see lobby.Lobby).
type Machine struct {
	self    ParticipantID
	rules   Rules
	roster  *Roster
	rep     Replicator
	world   World
	view    Presenter
	results ResultSink
	now     func() time.Time
	log     *zap.Logger

	colors *ColorRegistry
	tally  *ScoreTally
	walls  *WallToggleScheduler

	phase        Phase
	participants []ParticipantID
	readyCount   int
	color        Color
	round        int
	result       *Result

	countdownRemaining float64
	matchRemaining     float64
	countdownRunning   bool
	matchRunning       bool
}

func NewMachine(o Options) *Machine {
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Rand == nil {
		o.Rand = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Roster == nil {
		o.Roster = NewRoster(nil)
	}
	if o.Rules == (Rules{}) {
		o.Rules = DefaultRules()
	}

	m := &Machine{
		self:    o.Self,
		rules:   o.Rules,
		roster:  o.Roster,
		rep:     o.Replicator,
		world:   o.World,
		view:    o.Presenter,
		results: o.Results,
		now:     o.Now,
		log:     o.Logger.Named("engine").With(zap.Uint64("self", uint64(o.Self))),

		colors: NewColorRegistry(),
		tally:  NewScoreTally(),

		phase:              PhaseLobby,
		countdownRemaining: o.Rules.CountdownSeconds,
		matchRemaining:     o.Rules.MatchSeconds,
	}
	m.walls = NewWallToggleScheduler(m.roster, m.rules.WallToggleSeconds, m.rules.WallProximity,
		o.Rand, m.positions, m.wallDecided)
	return m
}

func (m *Machine) IsHost() bool { return m.self == HostID }

func (m *Machine) Self() ParticipantID { return m.self }

func (m *Machine) Phase() Phase { return m.phase }

// OnPlayerConnected records a newly accepted connection. The first one moves
// the session out of the lobby; on the host, a full roster starts setup.
func (m *Machine) OnPlayerConnected(id ParticipantID) {
	m.log.Info("player connected", zap.Uint64("participant", uint64(id)))
	if !slices.Contains(m.participants, id) {
		m.participants = append(m.participants, id)
		slices.Sort(m.participants)
		m.world.AddParticipant(id, NameFor(id))
	}

	if m.phase == PhaseLobby {
		m.enter(PhaseWaiting)
	}
	if m.IsHost() && m.phase == PhaseWaiting && len(m.participants) == m.rules.MaxParticipants {
		m.rep.Broadcast(StartSetup{})
	}
}

// OnPlayerDisconnected is accepted but not acted upon; a session does not
// recover from losing a participant.
func (m *Machine) OnPlayerDisconnected(id ParticipantID) {
	m.log.Warn("player disconnected; disconnect handling is not implemented",
		zap.Uint64("participant", uint64(id)))
}

func (m *Machine) RequestColor(c Color) {
	m.rep.SendToHost(CheckForColor{Color: c, Requester: m.self})
}

// PlayerReady signals readiness. Only the host's count decides anything; a
// peer keeps a local count and forwards the signal.
func (m *Machine) PlayerReady() {
	if m.IsHost() {
		m.markReady(m.self)
		return
	}
	m.readyCount++
	m.rep.SendToHost(PlayerReady{})
}

func (m *Machine) RequestReset() {
	m.rep.Broadcast(ResetGame{})
}

func (m *Machine) RequestMove(pos Vec3) {
	m.rep.Broadcast(MoveAvatar{Participant: m.self, Position: pos})
}

// Apply executes a replicated call received from participant from.
func (m *Machine) Apply(from ParticipantID, call Call) {
	spec, ok := SpecFor(call.Kind())
	if !ok {
		m.log.Warn("unknown call dropped", zap.String("call", string(call.Kind())))
		return
	}
	if spec.Authority == AuthorityHostOnly && !m.IsHost() {
		m.log.Warn("host-only call reached a peer", zap.String("call", string(call.Kind())))
		return
	}
	if spec.HostIssued && from != HostID {
		m.log.Warn("host call from non-host dropped",
			zap.String("call", string(call.Kind())), zap.Uint64("from", uint64(from)))
		return
	}

	switch c := call.(type) {
	case StartSetup:
		m.enter(PhaseColorSelect)

	case CheckForColor:
		if c.Requester != from {
			m.log.Warn("color request for another participant dropped",
				zap.Uint64("from", uint64(from)), zap.Uint64("requester", uint64(c.Requester)))
			return
		}
		if _, err := ParseColor(string(c.Color)); err != nil {
			m.log.Warn("color request dropped", zap.String("color", string(c.Color)), zap.Error(err))
			return
		}
		if !m.colors.TryClaim(c.Color) {
			m.log.Debug("color already claimed", zap.String("color", string(c.Color)),
				zap.Uint64("requester", uint64(c.Requester)))
			return
		}
		m.rep.SendTo(c.Requester, ColorConfirm{Color: c.Color})

	case ColorConfirm:
		m.color = c.Color
		m.view.ShowColorConfirmed(c.Color)
		m.rep.Broadcast(AnnounceColor{Participant: m.self, Color: c.Color})

	case AnnounceColor:
		if c.Participant != from {
			m.log.Warn("color announcement for another participant dropped",
				zap.Uint64("from", uint64(from)), zap.Uint64("participant", uint64(c.Participant)))
			return
		}
		if _, err := ParseColor(string(c.Color)); err != nil {
			m.log.Warn("color announcement dropped", zap.String("color", string(c.Color)), zap.Error(err))
			return
		}
		m.world.AssignColor(c.Participant, c.Color)

	case PlayerReady:
		m.markReady(from)

	case StartCountdown:
		if !m.enter(PhaseCountdown) {
			return
		}
		m.countdownRemaining = m.rules.CountdownSeconds
		m.countdownRunning = true
		m.view.ShowCountdown(ceil(m.countdownRemaining))

	case StartGame:
		if !m.enter(PhaseActive) {
			return
		}
		m.countdownRunning = false
		m.matchRemaining = m.rules.MatchSeconds
		m.matchRunning = true
		m.round++
		m.world.SetSurfacesActive(true)
		m.world.SetMovement(true)
		if m.IsHost() {
			m.walls.Start()
		}

	case NotifyWallStateChange:
		if !m.roster.Set(c.Index, c.Active) {
			m.log.Debug("wall index out of range", zap.Int("index", c.Index))
			return
		}
		m.view.ShowWall(c.Index, c.Active)

	case GameEnd:
		if !m.enter(PhaseEnded) {
			return
		}
		m.world.SetSurfacesActive(false)
		m.world.SetMovement(false)
		if m.IsHost() {
			m.walls.Stop()
		}

	case ResetGame:
		m.reset()

	case MoveAvatar:
		if c.Participant != from {
			m.log.Warn("move for another participant dropped",
				zap.Uint64("from", uint64(from)), zap.Uint64("participant", uint64(c.Participant)))
			return
		}
		m.world.MoveParticipant(c.Participant, c.Position)
	}
}

// Tick advances the local timers by elapsed seconds. Every participant ticks;
// only the host turns a zero crossing into a transition.
func (m *Machine) Tick(elapsed float64) {
	if elapsed < 0 {
		return
	}

	if m.countdownRunning {
		m.countdownRemaining -= elapsed
		if m.countdownRemaining <= 0 {
			m.countdownRemaining = 0
			m.countdownRunning = false
			if m.IsHost() {
				m.rep.Broadcast(StartGame{})
			}
		}
		m.view.ShowCountdown(ceil(m.countdownRemaining))
	}

	if !m.matchRunning {
		return
	}
	m.matchRemaining -= elapsed
	if m.matchRemaining <= 0 {
		m.matchRemaining = 0
		m.matchRunning = false
		if m.IsHost() {
			m.rep.Broadcast(GameEnd{})
		}
		m.computeResult()
	} else if m.IsHost() {
		m.walls.Advance(elapsed)
	}
	m.view.ShowMatchTimer(ceil(m.matchRemaining))
}

func (m *Machine) markReady(from ParticipantID) {
	if m.phase != PhaseColorSelect {
		m.log.Debug("ready ignored outside color select",
			zap.Uint64("from", uint64(from)), zap.Stringer("phase", m.phase))
		return
	}
	m.readyCount++
	m.log.Info("player ready", zap.Uint64("from", uint64(from)), zap.Int("ready", m.readyCount))
	if m.readyCount == m.rules.ReadyThreshold {
		m.log.Info("starting countdown")
		m.rep.Broadcast(StartCountdown{})
	}
}

func (m *Machine) reset() {
	if m.phase != PhaseEnded {
		m.log.Debug("reset ignored", zap.Stringer("phase", m.phase))
		return
	}
	m.view.HideResult()
	if err := m.world.ResetParticipants(); err != nil {
		m.log.Warn("avatar reset incomplete", zap.Error(err))
	}
	m.world.ResetSurfaces()
	m.countdownRemaining = m.rules.CountdownSeconds
	m.matchRemaining = m.rules.MatchSeconds
	m.countdownRunning = false
	m.matchRunning = false
	m.tally.Clear()
	m.result = nil

	if m.IsHost() {
		m.rep.Broadcast(StartCountdown{})
	}
}

func (m *Machine) computeResult() {
	m.tally.Clear()
	for _, p := range m.world.Participants() {
		m.tally.Register(p.Name)
	}
	for _, owner := range m.world.SurfaceOwners() {
		m.tally.RecordSurfaceOwner(owner)
	}

	winner, _ := m.tally.Winner()
	res := Result{
		Round:   m.round,
		Winner:  winner,
		Scores:  m.tally.Entries(),
		Text:    m.resultText(winner),
		Listing: m.tally.Format(),
		EndedAt: m.now(),
	}
	m.result = &res
	m.log.Info("round finished", zap.Int("round", res.Round), zap.String("winner", winner))
	m.view.ShowResult(res)

	if !m.IsHost() {
		return
	}
	if err := m.world.StartVictory(winner); err != nil {
		m.log.Warn("victory effect skipped", zap.String("winner", winner), zap.Error(err))
	}
	if m.results != nil {
		m.results.RecordResult(res)
	}
}

func (m *Machine) resultText(winner string) string {
	hostWon := winner == HostName
	if hostWon == m.IsHost() {
		return "You win"
	}
	return "You lose"
}

func (m *Machine) enter(p Phase) bool {
	if !m.phase.CanTransitionTo(p) {
		m.log.Debug("transition rejected", zap.Stringer("from", m.phase), zap.Stringer("to", p))
		return false
	}
	m.log.Info("phase changed", zap.Stringer("from", m.phase), zap.Stringer("to", p))
	m.phase = p
	m.view.ShowPhase(p)
	return true
}

func (m *Machine) positions() []Vec3 {
	ps := m.world.Participants()
	out := make([]Vec3, len(ps))
	for i, p := range ps {
		out[i] = p.Position
	}
	return out
}

func (m *Machine) wallDecided(d WallDecision) {
	if d.Flipped {
		m.log.Debug("wall toggled", zap.Int("index", d.Index), zap.Bool("active", d.Active))
	} else {
		m.log.Debug("wall can't be toggled", zap.Int("index", d.Index))
	}
	m.view.ShowWall(d.Index, d.Active)
	m.rep.Broadcast(NotifyWallStateChange{Index: d.Index, Active: d.Active})
}

func ceil(seconds float64) int {
	return int(math.Ceil(seconds))
}
