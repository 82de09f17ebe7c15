package replication

import (
	"slices"

	"go.uber.org/zap"

	"github.com/DoyleJ11/floorclash/internal/engine"
)

// Handler applies a delivered call. *engine.Machine satisfies it.
type Handler interface {
	Apply(from engine.ParticipantID, call engine.Call)
}

// Network connects several participants inside one goroutine. Nothing is
// delivered until Flush, which makes multi-participant runs deterministic.
// Each recipient sees envelopes in the order they were routed.
type Network struct {
	ids      []engine.ParticipantID
	handlers map[engine.ParticipantID]Handler
	pending  map[engine.ParticipantID][]Envelope
	drop     func(to engine.ParticipantID, env Envelope) bool
	log      *zap.Logger
}

func NewNetwork(logger *zap.Logger) *Network {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Network{
		handlers: make(map[engine.ParticipantID]Handler),
		pending:  make(map[engine.ParticipantID][]Envelope),
		log:      logger.Named("network"),
	}
}

func (n *Network) Join(id engine.ParticipantID, h Handler) {
	if !slices.Contains(n.ids, id) {
		n.ids = append(n.ids, id)
		slices.Sort(n.ids)
	}
	n.handlers[id] = h
}

func (n *Network) Sender(from engine.ParticipantID) engine.Replicator {
	return NewSender(from, n.Route)
}

// DropWhen installs a loss model: envelopes for which f returns true are
// discarded instead of queued.
func (n *Network) DropWhen(f func(to engine.ParticipantID, env Envelope) bool) {
	n.drop = f
}

func (n *Network) Route(env Envelope) {
	if err := Validate(env); err != nil {
		n.log.Warn("envelope dropped", zap.Error(err))
		return
	}
	for _, to := range Recipients(env, n.ids) {
		if n.drop != nil && n.drop(to, env) {
			continue
		}
		n.pending[to] = append(n.pending[to], env)
	}
}

func (n *Network) Pending() int {
	total := 0
	for _, q := range n.pending {
		total += len(q)
	}
	return total
}

// Flush delivers queued envelopes, one per recipient per round, until no
// handler produced anything new. It returns the number delivered.
func (n *Network) Flush() int {
	delivered := 0
	for {
		progressed := false
		for _, id := range n.ids {
			q := n.pending[id]
			if len(q) == 0 {
				continue
			}
			env := q[0]
			n.pending[id] = q[1:]
			n.handlers[id].Apply(env.From, env.Call)
			delivered++
			progressed = true
		}
		if !progressed {
			return delivered
		}
	}
}
