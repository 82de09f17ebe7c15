package engine

import "math/rand/v2"

type Wall struct {
	Index    int    `json:"index"`
	Name     string `json:"name"`
	Active   bool   `json:"active"`
	Position Vec3   `json:"position"`
}

// Roster is the fixed, ordered list of toggleable walls. It is built once at
// session setup and never resized; only the Active flags change.
type Roster struct {
	walls []Wall
}

// NewRoster indexes walls in the order given.
func NewRoster(walls []Wall) *Roster {
	r := &Roster{walls: make([]Wall, len(walls))}
	for i, w := range walls {
		w.Index = i
		r.walls[i] = w
	}
	return r
}

func (r *Roster) Len() int { return len(r.walls) }

func (r *Roster) At(i int) (Wall, bool) {
	if i < 0 || i >= len(r.walls) {
		return Wall{}, false
	}
	return r.walls[i], true
}

// Set updates the active flag of wall i. Out-of-range indexes are ignored and
// reported as false.
func (r *Roster) Set(i int, active bool) bool {
	if i < 0 || i >= len(r.walls) {
		return false
	}
	r.walls[i].Active = active
	return true
}

func (r *Roster) Walls() []Wall {
	out := make([]Wall, len(r.walls))
	copy(out, r.walls)
	return out
}

// WallDecision is the outcome of one scheduler interval.
type WallDecision struct {
	Index   int
	Active  bool
	Flipped bool
}

// WallToggleScheduler picks a random wall every interval and decides its new
// state. It is advanced by the host's frame tick, so Stop takes effect before
// the next Advance and nothing already accumulated can fire afterwards.
type WallToggleScheduler struct {
	roster    *Roster
	interval  float64
	threshold float64
	rng       *rand.Rand
	positions func() []Vec3
	emit      func(WallDecision)

	elapsed float64
	running bool
}

func NewWallToggleScheduler(roster *Roster, interval, threshold float64, rng *rand.Rand,
	positions func() []Vec3, emit func(WallDecision)) *WallToggleScheduler {
	return &WallToggleScheduler{
		roster:    roster,
		interval:  interval,
		threshold: threshold,
		rng:       rng,
		positions: positions,
		emit:      emit,
	}
}

// Start arms the scheduler; the first decision comes one full interval later.
func (s *WallToggleScheduler) Start() {
	s.elapsed = 0
	s.running = true
}

func (s *WallToggleScheduler) Stop() {
	s.running = false
	s.elapsed = 0
}

func (s *WallToggleScheduler) Running() bool { return s.running }

// Advance moves the scheduler clock by dt seconds and fires one decision per
// completed interval.
func (s *WallToggleScheduler) Advance(dt float64) {
	if !s.running || s.interval <= 0 {
		return
	}
	s.elapsed += dt
	for s.running && s.elapsed >= s.interval {
		s.elapsed -= s.interval
		s.fire()
	}
}

func (s *WallToggleScheduler) fire() {
	n := s.roster.Len()
	if n == 0 {
		return
	}
	d := s.Decide(s.rng.IntN(n))
	s.roster.Set(d.Index, d.Active)
	if s.emit != nil {
		s.emit(d)
	}
}

// Decide computes the new state of wall i: unchanged while any participant
// stands closer than the threshold, negated otherwise.
func (s *WallToggleScheduler) Decide(i int) WallDecision {
	w, _ := s.roster.At(i)
	for _, p := range s.positions() {
		if p.Distance(w.Position) < s.threshold {
			return WallDecision{Index: i, Active: w.Active}
		}
	}
	return WallDecision{Index: i, Active: !w.Active, Flipped: true}
}

// NewRand returns a generator for seed. Seed 0 yields nil, which makes
// NewMachine fall back to a time-seeded generator.
func NewRand(seed uint64) *rand.Rand {
	if seed == 0 {
		return nil
	}
	return rand.New(rand.NewPCG(seed, seed))
}
