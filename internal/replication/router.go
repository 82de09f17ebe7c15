package replication

import (
	"maps"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/DoyleJ11/floorclash/internal/engine"
)

// Router is the host's switchboard. Every envelope of a session passes
// through it: the host's own sends and everything peers send up their link.
type Router struct {
	mu        sync.RWMutex
	endpoints map[engine.ParticipantID]Endpoint
	nextID    engine.ParticipantID
	max       int
	log       *zap.Logger
}

func NewRouter(max int, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		endpoints: make(map[engine.ParticipantID]Endpoint),
		nextID:    engine.HostID + 1,
		max:       max,
		log:       logger.Named("router"),
	}
}

func (r *Router) AttachHost(ep Endpoint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.endpoints[engine.HostID] = ep
}

// Attach assigns the next participant id and registers the endpoint built by
// newEndpoint. The factory runs under the router lock, so anything it queues
// on the endpoint precedes every envelope routed to it. Ids are never reused.
func (r *Router) Attach(newEndpoint func(id engine.ParticipantID, roster []engine.ParticipantID) Endpoint) (engine.ParticipantID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.endpoints) >= r.max {
		return 0, ErrSessionFull
	}
	id := r.nextID
	r.nextID++

	roster := append(r.idsLocked(), id)
	slices.Sort(roster)
	r.endpoints[id] = newEndpoint(id, roster)
	r.log.Info("participant attached", zap.Uint64("participant", uint64(id)))
	return id, nil
}

func (r *Router) Detach(id engine.ParticipantID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.endpoints, id)
	r.log.Info("participant detached", zap.Uint64("participant", uint64(id)))
}

func (r *Router) Participants() []engine.ParticipantID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.idsLocked()
}

// Route delivers env to every recipient its target names.
func (r *Router) Route(env Envelope) {
	if err := Validate(env); err != nil {
		r.log.Warn("envelope dropped", zap.Uint64("from", uint64(env.From)), zap.Error(err))
		return
	}

	r.mu.RLock()
	ids := r.idsLocked()
	targets := make([]Endpoint, 0, len(ids))
	for _, id := range Recipients(env, ids) {
		targets = append(targets, r.endpoints[id])
	}
	r.mu.RUnlock()

	if len(targets) == 0 {
		r.log.Debug("envelope has no recipient",
			zap.String("call", string(env.Call.Kind())), zap.String("target", string(env.Target.Kind)))
	}
	for _, ep := range targets {
		ep.Deliver(env)
	}
}

// Sender returns the Replicator for the participant routing through r in
// process, which is the host.
func (r *Router) Sender(from engine.ParticipantID) engine.Replicator {
	return NewSender(from, r.Route)
}

func (r *Router) idsLocked() []engine.ParticipantID {
	return slices.Sorted(maps.Keys(r.endpoints))
}
