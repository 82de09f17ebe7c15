package arena

import (
	"fmt"

	"github.com/DoyleJ11/floorclash/internal/engine"
)

// WallSpec places one toggleable wall.
type WallSpec struct {
	Position engine.Vec3
	Active   bool
}

// Layout is the static scene shared by every participant of a session. Both
// sides must build their arena from the same layout.
type Layout struct {
	Origin   engine.Vec3 // corner of tile (0, 0)
	TileSize float64
	Columns  int
	Rows     int
	Spawns   []engine.Vec3
	Walls    []WallSpec
}

func DefaultLayout() Layout {
	return Layout{
		Origin:   engine.Vec3{X: -6, Z: -6},
		TileSize: 2,
		Columns:  6,
		Rows:     6,
		Spawns: []engine.Vec3{
			{X: -5, Z: -5},
			{X: 5, Z: 5},
		},
		Walls: []WallSpec{
			{Position: engine.Vec3{X: 0, Z: -3}, Active: true},
			{Position: engine.Vec3{X: 0, Z: 3}, Active: true},
			{Position: engine.Vec3{X: -3, Z: 0}, Active: true},
			{Position: engine.Vec3{X: 3, Z: 0}, Active: true},
			{Position: engine.Vec3{X: -3, Z: -3}},
			{Position: engine.Vec3{X: 3, Z: 3}},
		},
	}
}

// Roster builds the wall roster: walls that start active come first, then the
// ones that start hidden, each group in layout order.
func (l Layout) Roster() *engine.Roster {
	walls := make([]engine.Wall, 0, len(l.Walls))
	for _, active := range []bool{true, false} {
		for i, w := range l.Walls {
			if w.Active != active {
				continue
			}
			walls = append(walls, engine.Wall{
				Name:     fmt.Sprintf("Wall%d", i),
				Active:   w.Active,
				Position: w.Position,
			})
		}
	}
	return engine.NewRoster(walls)
}

func (l Layout) spawn(id engine.ParticipantID) engine.Vec3 {
	if len(l.Spawns) == 0 {
		return engine.Vec3{}
	}
	return l.Spawns[int(id%engine.ParticipantID(len(l.Spawns)))]
}
