package engine

import (
	"fmt"
	"strings"
)

type Score struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// ScoreTally counts scoring surfaces per participant name. Entries keep the
// order in which names were registered; Winner relies on that order.
type ScoreTally struct {
	order  []string
	counts map[string]int
}

func NewScoreTally() *ScoreTally {
	return &ScoreTally{counts: map[string]int{}}
}

// Register adds name with a score of 0. Registering twice is a no-op.
func (t *ScoreTally) Register(name string) {
	if _, ok := t.counts[name]; ok {
		return
	}
	t.order = append(t.order, name)
	t.counts[name] = 0
}

// RecordSurfaceOwner credits one surface to name. Unregistered names,
// including the empty owner of an unpainted surface, are ignored.
func (t *ScoreTally) RecordSurfaceOwner(name string) {
	if _, ok := t.counts[name]; !ok {
		return
	}
	t.counts[name]++
}

// Winner returns the first registered entry with the strictly highest score.
// Ties therefore go to whoever was registered first.
func (t *ScoreTally) Winner() (string, int) {
	winner, highest := "", -1
	for _, name := range t.order {
		if t.counts[name] <= highest {
			continue
		}
		highest = t.counts[name]
		winner = name
	}
	return winner, highest
}

func (t *ScoreTally) Entries() []Score {
	out := make([]Score, 0, len(t.order))
	for _, name := range t.order {
		out = append(out, Score{Name: name, Score: t.counts[name]})
	}
	return out
}

func (t *ScoreTally) Len() int { return len(t.order) }

func (t *ScoreTally) Clear() {
	t.order = nil
	clear(t.counts)
}

// Format renders the score listing shown on the end screen.
func (t *ScoreTally) Format() string {
	var b strings.Builder
	b.WriteString("Player Scores:\n")
	for _, e := range t.Entries() {
		fmt.Fprintf(&b, "%s: %d\n", e.Name, e.Score)
	}
	return b.String()
}
