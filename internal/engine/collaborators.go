package engine

import "time"

// World is the in-game scene as seen by the session: avatars and the floor
// tiles that act as scoring surfaces.
type World interface {
	// AddParticipant spawns the avatar of a newly connected participant.
	AddParticipant(id ParticipantID, name string)
	// Participants returns every avatar ordered by ascending id.
	Participants() []Participant
	// SurfaceOwners returns the owner name of every scoring surface; an
	// unpainted surface reports "".
	SurfaceOwners() []string
	MoveParticipant(id ParticipantID, pos Vec3) bool
	AssignColor(id ParticipantID, c Color)
	SetMovement(enabled bool)
	SetSurfacesActive(active bool)
	ResetParticipants() error
	ResetSurfaces()
	StartVictory(name string) error
}

// Presenter receives everything the session wants displayed.
type Presenter interface {
	ShowPhase(p Phase)
	ShowCountdown(seconds int)
	ShowMatchTimer(seconds int)
	ShowWall(index int, active bool)
	ShowColorConfirmed(c Color)
	ShowResult(r Result)
	HideResult()
}

// Result is one finished round as computed by a participant.
type Result struct {
	Round   int       `json:"round"`
	Winner  string    `json:"winner"`
	Scores  []Score   `json:"scores"`
	Text    string    `json:"text"`
	Listing string    `json:"listing"`
	EndedAt time.Time `json:"ended_at"`
}

// ResultSink receives the host's round results.
type ResultSink interface {
	RecordResult(r Result)
}
