package engine

import (
	"errors"
	"math"
	"strings"
)

var ErrUnknownColor = errors.New("unknown color")

// ParticipantID is the connection identifier assigned when a participant
// attaches. The host always holds HostID.
type ParticipantID uint64

const HostID ParticipantID = 0

const (
	HostName   = "Host"
	ClientName = "Client"
)

// NameFor returns the display name used for scoring and result text.
func NameFor(id ParticipantID) string {
	if id == HostID {
		return HostName
	}
	return ClientName
}

type Color string

const (
	ColorRed     Color = "red"
	ColorBlue    Color = "blue"
	ColorGreen   Color = "green"
	ColorYellow  Color = "yellow"
	ColorMagenta Color = "magenta"
	ColorCyan    Color = "cyan"
)

var Palette = []Color{ColorRed, ColorBlue, ColorGreen, ColorYellow, ColorMagenta, ColorCyan}

func ParseColor(s string) (Color, error) {
	c := Color(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Palette {
		if c == known {
			return c, nil
		}
	}
	return "", ErrUnknownColor
}

type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func (v Vec3) Distance(o Vec3) float64 {
	dx, dy, dz := v.X-o.X, v.Y-o.Y, v.Z-o.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

type Participant struct {
	ID       ParticipantID
	Name     string
	Position Vec3
}

// Rules are the tunables of a match. Both sides of a session must agree on
// them; nothing negotiates them at runtime.
type Rules struct {
	CountdownSeconds  float64
	MatchSeconds      float64
	WallToggleSeconds float64
	WallProximity     float64
	ReadyThreshold    int
	MaxParticipants   int
}

func DefaultRules() Rules {
	return Rules{
		CountdownSeconds:  3,
		MatchSeconds:      30,
		WallToggleSeconds: 2,
		WallProximity:     1,
		ReadyThreshold:    2,
		MaxParticipants:   2,
	}
}
