package display

import (
	"maps"
	"sync"

	"go.uber.org/zap"

	"github.com/DoyleJ11/floorclash/internal/engine"
)

// Frame is what a participant's screen shows at one moment.
type Frame struct {
	Phase      engine.Phase   `json:"phase"`
	Countdown  int            `json:"countdown"`
	MatchTimer int            `json:"match_timer"`
	Color      engine.Color   `json:"color,omitempty"`
	Walls      map[int]bool   `json:"walls"`
	EndScreen  bool           `json:"end_screen"`
	ResultText string         `json:"result_text,omitempty"`
	ScoreText  string         `json:"score_text,omitempty"`
	Result     *engine.Result `json:"-"`
}

// Board is an engine.Presenter that keeps the latest frame and narrates
// changes to a zap logger. Timer values are only logged when the displayed
// second changes.
type Board struct {
	mu    sync.RWMutex
	frame Frame
	log   *zap.Logger
}

func NewBoard(logger *zap.Logger) *Board {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Board{
		frame: Frame{Phase: engine.PhaseLobby, Walls: map[int]bool{}},
		log:   logger.Named("display"),
	}
}

func (b *Board) ShowPhase(p engine.Phase) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.frame.Phase = p
	b.log.Info("screen", zap.Stringer("phase", p))
}

func (b *Board) ShowCountdown(seconds int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.frame.Countdown == seconds {
		return
	}
	b.frame.Countdown = seconds
	b.log.Info("countdown", zap.Int("seconds", seconds))
}

func (b *Board) ShowMatchTimer(seconds int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.frame.MatchTimer == seconds {
		return
	}
	b.frame.MatchTimer = seconds
	b.log.Debug("match timer", zap.Int("seconds", seconds))
}

func (b *Board) ShowWall(index int, active bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.frame.Walls[index] = active
	b.log.Debug("wall", zap.Int("index", index), zap.Bool("active", active))
}

func (b *Board) ShowColorConfirmed(c engine.Color) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.frame.Color = c
	b.log.Info("color confirmed", zap.String("color", string(c)))
}

func (b *Board) ShowResult(r engine.Result) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.frame.EndScreen = true
	b.frame.ResultText = r.Text
	b.frame.ScoreText = r.Listing
	b.frame.Result = &r
	b.log.Info("result", zap.String("text", r.Text), zap.String("winner", r.Winner))
}

func (b *Board) HideResult() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.frame.EndScreen = false
	b.frame.ResultText = ""
	b.frame.ScoreText = ""
	b.frame.Result = nil
}

// Frame returns a copy of the current frame.
func (b *Board) Frame() Frame {
	b.mu.RLock()
	defer b.mu.RUnlock()
	f := b.frame
	f.Walls = maps.Clone(b.frame.Walls)
	return f
}
