package console

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/DoyleJ11/floorclash/internal/engine"
	"github.com/DoyleJ11/floorclash/internal/lobby"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrUsage          = errors.New("bad arguments")
)

// Command is one parsed console line. Exactly one of Msg, ShowState and Quit
// is meaningful.
type Command struct {
	Msg       lobby.Msg
	ShowState bool
	Quit      bool
}

const Help = `commands:
  color <name>   request a color (red, blue, green, yellow, magenta, cyan)
  ready          mark yourself ready
  reset          start the next round after a match ends
  move <x> <z>   move your avatar
  state          print the session state
  quit           leave`

// Parse turns a console line into a Command. Blank lines parse to the zero
// Command.
func Parse(line string) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}, nil
	}

	switch cmd, args := strings.ToLower(fields[0]), fields[1:]; cmd {
	case "color":
		if len(args) != 1 {
			return Command{}, fmt.Errorf("%w: color <name>", ErrUsage)
		}
		c, err := engine.ParseColor(args[0])
		if err != nil {
			return Command{}, err
		}
		return Command{Msg: lobby.RequestColor{Color: c}}, nil

	case "ready":
		return Command{Msg: lobby.Ready{}}, nil

	case "reset":
		return Command{Msg: lobby.Reset{}}, nil

	case "move":
		if len(args) != 2 {
			return Command{}, fmt.Errorf("%w: move <x> <z>", ErrUsage)
		}
		x, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return Command{}, fmt.Errorf("%w: x: %v", ErrUsage, err)
		}
		z, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return Command{}, fmt.Errorf("%w: z: %v", ErrUsage, err)
		}
		return Command{Msg: lobby.Move{Position: engine.Vec3{X: x, Z: z}}}, nil

	case "state":
		return Command{ShowState: true}, nil

	case "quit", "exit":
		return Command{Quit: true}, nil

	default:
		return Command{}, fmt.Errorf("%w: %q", ErrUnknownCommand, cmd)
	}
}

// Describe renders a lobby view for the console.
func Describe(v lobby.View) string {
	var b strings.Builder
	s := v.Session
	fmt.Fprintf(&b, "phase: %s  round: %d  you: %s\n", s.Phase, s.Round, engine.NameFor(s.Self))
	if s.Color != "" {
		fmt.Fprintf(&b, "color: %s\n", s.Color)
	}
	if s.CountdownRunning {
		fmt.Fprintf(&b, "countdown: %d\n", v.Screen.Countdown)
	}
	if s.MatchRunning {
		fmt.Fprintf(&b, "time left: %d\n", v.Screen.MatchTimer)
	}
	for _, w := range s.Walls {
		state := "down"
		if w.Active {
			state = "up"
		}
		fmt.Fprintf(&b, "%s: %s\n", w.Name, state)
	}
	if v.Screen.EndScreen {
		b.WriteString(v.Screen.ResultText)
		b.WriteString("\n")
		b.WriteString(v.Screen.ScoreText)
	}
	return b.String()
}
