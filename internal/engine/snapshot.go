package engine

// Snapshot is a read-only copy of a Machine's state for views and tests.
type Snapshot struct {
	Self               ParticipantID   `json:"self"`
	Host               bool            `json:"host"`
	Phase              Phase           `json:"phase"`
	Participants       []ParticipantID `json:"participants"`
	ReadyCount         int             `json:"ready_count"`
	Color              Color           `json:"color,omitempty"`
	Round              int             `json:"round"`
	CountdownRemaining float64         `json:"countdown_remaining"`
	MatchRemaining     float64         `json:"match_remaining"`
	CountdownRunning   bool            `json:"countdown_running"`
	MatchRunning       bool            `json:"match_running"`
	WallsScheduled     bool            `json:"walls_scheduled"`
	Walls              []Wall          `json:"walls"`
	Scores             []Score         `json:"scores"`
	Result             *Result         `json:"result,omitempty"`
}

func (m *Machine) Snapshot() Snapshot {
	s := Snapshot{
		Self:               m.self,
		Host:               m.IsHost(),
		Phase:              m.phase,
		Participants:       append([]ParticipantID(nil), m.participants...),
		ReadyCount:         m.readyCount,
		Color:              m.color,
		Round:              m.round,
		CountdownRemaining: m.countdownRemaining,
		MatchRemaining:     m.matchRemaining,
		CountdownRunning:   m.countdownRunning,
		MatchRunning:       m.matchRunning,
		WallsScheduled:     m.walls.Running(),
		Walls:              m.roster.Walls(),
		Scores:             m.tally.Entries(),
	}
	if m.result != nil {
		r := *m.result
		s.Result = &r
	}
	return s
}

// ColorClaimed reports whether the host's registry holds c. Peers never
// claim anything locally.
func (m *Machine) ColorClaimed(c Color) bool {
	return m.colors.Claimed(c)
}
