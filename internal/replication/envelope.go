package replication

import (
	"errors"
	"fmt"
	"slices"

	"github.com/DoyleJ11/floorclash/internal/engine"
)

var (
	ErrSessionFull   = errors.New("session full")
	ErrUnknownCall   = errors.New("unknown call")
	ErrMisroutedCall = errors.New("call target does not match its authority")
)

type TargetKind string

const (
	TargetEveryone TargetKind = "everyone"
	TargetHost     TargetKind = "host"
	TargetSingle   TargetKind = "single"
)

type Target struct {
	Kind TargetKind           `json:"kind"`
	ID   engine.ParticipantID `json:"id,omitempty"`
}

// Envelope is one replicated call in flight.
type Envelope struct {
	From   engine.ParticipantID
	Target Target
	Call   engine.Call
}

// Endpoint is where a router hands envelopes for one participant.
// Deliver must not block.
type Endpoint interface {
	Deliver(env Envelope)
}

// Validate checks that the envelope's target agrees with the authority class
// of its call.
func Validate(env Envelope) error {
	if env.Call == nil {
		return ErrUnknownCall
	}
	spec, ok := engine.SpecFor(env.Call.Kind())
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCall, env.Call.Kind())
	}

	var want TargetKind
	switch spec.Authority {
	case engine.AuthorityBroadcast:
		want = TargetEveryone
	case engine.AuthorityHostOnly:
		want = TargetHost
	case engine.AuthorityTargeted:
		want = TargetSingle
	}
	if env.Target.Kind != want {
		return fmt.Errorf("%w: %s sent to %s", ErrMisroutedCall, env.Call.Kind(), env.Target.Kind)
	}
	return nil
}

// Recipients resolves env's target against the connected ids, in ascending
// id order.
func Recipients(env Envelope, ids []engine.ParticipantID) []engine.ParticipantID {
	switch env.Target.Kind {
	case TargetEveryone:
		out := slices.Clone(ids)
		slices.Sort(out)
		return out
	case TargetHost:
		if slices.Contains(ids, engine.HostID) {
			return []engine.ParticipantID{engine.HostID}
		}
	case TargetSingle:
		if slices.Contains(ids, env.Target.ID) {
			return []engine.ParticipantID{env.Target.ID}
		}
	}
	return nil
}

type sender struct {
	from  engine.ParticipantID
	route func(Envelope)
}

// NewSender adapts a routing function into the Replicator a Machine talks to.
func NewSender(from engine.ParticipantID, route func(Envelope)) engine.Replicator {
	return sender{from: from, route: route}
}

func (s sender) Broadcast(call engine.Call) {
	s.route(Envelope{From: s.from, Target: Target{Kind: TargetEveryone}, Call: call})
}

func (s sender) SendToHost(call engine.Call) {
	s.route(Envelope{From: s.from, Target: Target{Kind: TargetHost}, Call: call})
}

func (s sender) SendTo(id engine.ParticipantID, call engine.Call) {
	s.route(Envelope{From: s.from, Target: Target{Kind: TargetSingle, ID: id}, Call: call})
}
