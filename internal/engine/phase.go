package engine

import "slices"

type Phase string

const (
	PhaseLobby       Phase = "lobby"
	PhaseWaiting     Phase = "waiting_for_second_player"
	PhaseColorSelect Phase = "color_select"
	PhaseCountdown   Phase = "countdown"
	PhaseActive      Phase = "active"
	PhaseEnded       Phase = "ended"
)

var transitions = map[Phase][]Phase{
	PhaseLobby:       {PhaseWaiting},
	PhaseWaiting:     {PhaseColorSelect},
	PhaseColorSelect: {PhaseCountdown},
	PhaseCountdown:   {PhaseActive},
	PhaseActive:      {PhaseEnded},
	PhaseEnded:       {PhaseCountdown}, // reset
}

func (p Phase) String() string { return string(p) }

// CanTransitionTo reports whether target directly follows p. Re-entering the
// current phase is never allowed, which is what keeps every transition
// exactly-once when a broadcast is applied twice.
func (p Phase) CanTransitionTo(target Phase) bool {
	return slices.Contains(transitions[p], target)
}
