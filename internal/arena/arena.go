package arena

import (
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"

	"github.com/DoyleJ11/floorclash/internal/engine"
)

var (
	ErrNoVictoryRig       = errors.New("avatar has no victory rig")
	ErrUnknownParticipant = errors.New("unknown participant")
)

type Avatar struct {
	ID          engine.ParticipantID `json:"id"`
	Name        string               `json:"name"`
	Position    engine.Vec3          `json:"position"`
	Color       engine.Color         `json:"color,omitempty"`
	Visible     bool                 `json:"visible"`
	Celebrating bool                 `json:"celebrating"`
	HasRig      bool                 `json:"-"`
}

// Tile is one scoring surface. Owner is the name of the last avatar that
// stepped on it while surfaces were active.
type Tile struct {
	Column int          `json:"column"`
	Row    int          `json:"row"`
	Owner  string       `json:"owner,omitempty"`
	Color  engine.Color `json:"color,omitempty"`
}

// Arena is an in-memory engine.World. Like the Machine it belongs to, it is
// confined to one goroutine.
type Arena struct {
	layout         Layout
	avatars        map[engine.ParticipantID]*Avatar
	tiles          []Tile
	movement       bool
	surfacesActive bool
}

func New(l Layout) *Arena {
	a := &Arena{
		layout:  l,
		avatars: make(map[engine.ParticipantID]*Avatar),
		tiles:   make([]Tile, 0, l.Columns*l.Rows),
	}
	for r := range l.Rows {
		for c := range l.Columns {
			a.tiles = append(a.tiles, Tile{Column: c, Row: r})
		}
	}
	return a
}

func (a *Arena) AddParticipant(id engine.ParticipantID, name string) {
	if _, ok := a.avatars[id]; ok {
		return
	}
	a.avatars[id] = &Avatar{
		ID:       id,
		Name:     name,
		Position: a.layout.spawn(id),
		Visible:  true,
		HasRig:   true,
	}
}

func (a *Arena) Participants() []engine.Participant {
	out := make([]engine.Participant, 0, len(a.avatars))
	for _, id := range slices.Sorted(maps.Keys(a.avatars)) {
		av := a.avatars[id]
		out = append(out, engine.Participant{ID: av.ID, Name: av.Name, Position: av.Position})
	}
	return out
}

func (a *Arena) SurfaceOwners() []string {
	out := make([]string, len(a.tiles))
	for i, t := range a.tiles {
		out[i] = t.Owner
	}
	return out
}

// MoveParticipant places the avatar at pos and, while surfaces are active,
// paints the tile underneath. Moves are refused while movement is disabled.
func (a *Arena) MoveParticipant(id engine.ParticipantID, pos engine.Vec3) bool {
	av, ok := a.avatars[id]
	if !ok || !a.movement {
		return false
	}
	av.Position = pos
	if a.surfacesActive {
		if i, ok := a.tileAt(pos); ok {
			a.tiles[i].Owner = av.Name
			a.tiles[i].Color = av.Color
		}
	}
	return true
}

func (a *Arena) AssignColor(id engine.ParticipantID, c engine.Color) {
	if av, ok := a.avatars[id]; ok {
		av.Color = c
	}
}

func (a *Arena) SetMovement(enabled bool) { a.movement = enabled }

func (a *Arena) SetSurfacesActive(active bool) { a.surfacesActive = active }

// ResetParticipants returns every avatar to its spawn, shows it again and
// ends any victory effect. Avatars without a rig are still reset; their
// absence is reported in the joined error.
func (a *Arena) ResetParticipants() error {
	var errs []error
	for _, id := range slices.Sorted(maps.Keys(a.avatars)) {
		av := a.avatars[id]
		av.Position = a.layout.spawn(id)
		av.Visible = true
		if !av.HasRig {
			errs = append(errs, fmt.Errorf("%s: %w", av.Name, ErrNoVictoryRig))
			continue
		}
		av.Celebrating = false
	}
	return errors.Join(errs...)
}

func (a *Arena) ResetSurfaces() {
	for i := range a.tiles {
		a.tiles[i].Owner = ""
		a.tiles[i].Color = ""
	}
}

// StartVictory hides the winner's avatar and plays its victory effect.
func (a *Arena) StartVictory(name string) error {
	for _, id := range slices.Sorted(maps.Keys(a.avatars)) {
		av := a.avatars[id]
		if av.Name != name {
			continue
		}
		av.Visible = false
		if !av.HasRig {
			return fmt.Errorf("%s: %w", name, ErrNoVictoryRig)
		}
		av.Celebrating = true
		return nil
	}
	return fmt.Errorf("%q: %w", name, ErrUnknownParticipant)
}

// SetVictoryRig marks whether participant id's avatar carries the child rig
// the victory effect plays on.
func (a *Arena) SetVictoryRig(id engine.ParticipantID, present bool) {
	if av, ok := a.avatars[id]; ok {
		av.HasRig = present
	}
}

func (a *Arena) Avatar(id engine.ParticipantID) (Avatar, bool) {
	av, ok := a.avatars[id]
	if !ok {
		return Avatar{}, false
	}
	return *av, true
}

func (a *Arena) Avatars() []Avatar {
	out := make([]Avatar, 0, len(a.avatars))
	for _, id := range slices.Sorted(maps.Keys(a.avatars)) {
		out = append(out, *a.avatars[id])
	}
	return out
}

func (a *Arena) Tiles() []Tile { return slices.Clone(a.tiles) }

func (a *Arena) MovementEnabled() bool { return a.movement }

func (a *Arena) SurfacesActive() bool { return a.surfacesActive }

// TileCenter is the position of the middle of tile (column, row).
func (a *Arena) TileCenter(column, row int) engine.Vec3 {
	s := a.layout.TileSize
	return engine.Vec3{
		X: a.layout.Origin.X + (float64(column)+0.5)*s,
		Y: a.layout.Origin.Y,
		Z: a.layout.Origin.Z + (float64(row)+0.5)*s,
	}
}

func (a *Arena) tileAt(pos engine.Vec3) (int, bool) {
	s := a.layout.TileSize
	if s <= 0 {
		return 0, false
	}
	c := int(math.Floor((pos.X - a.layout.Origin.X) / s))
	r := int(math.Floor((pos.Z - a.layout.Origin.Z) / s))
	if c < 0 || c >= a.layout.Columns || r < 0 || r >= a.layout.Rows {
		return 0, false
	}
	return r*a.layout.Columns + c, true
}
