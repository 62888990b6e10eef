// Package advisor suggests moves with a depth-limited minimax search and
// alpha-beta pruning over the static evaluation in Evaluate.
package advisor

import (
	"math"
	"sort"
	"time"

	"github.com/Pszemocny/4-in-a-row/internal/game"
	"github.com/Pszemocny/4-in-a-row/internal/logger"
)

const (
	// DefaultDepth is the number of plies searched from the root
	DefaultDepth = 4
	// WinScore is the value of a won position before the depth adjustment
	WinScore = 100000
)

// Observer receives the cost of every finished search
type Observer interface {
	ObserveSearch(d time.Duration, nodes int)
}

// Option configures an Advisor
type Option func(a *Advisor)

// WithDepth sets the search depth. Non-positive values are ignored.
func WithDepth(depth int) Option {
	return func(a *Advisor) {
		if depth > 0 {
			a.depth = depth
		}
	}
}

// WithObserver reports search cost to o
func WithObserver(o Observer) Option {
	return func(a *Advisor) {
		if o != nil {
			a.observer = o
		}
	}
}

// Suggestion is the advisor's answer for one position
type Suggestion struct {
	Move  game.Move
	Score int
	Nodes int
}

// Advisor holds only configuration; it is safe to share between goroutines
// because every search works on its own board copies.
type Advisor struct {
	depth    int
	observer Observer
}

// New creates an Advisor searching DefaultDepth plies unless configured otherwise
func New(opts ...Option) *Advisor {
	a := &Advisor{depth: DefaultDepth}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Depth returns the configured search depth
func (a *Advisor) Depth() int {
	return a.depth
}

// Evaluate is the static heuristic, see the package function
func (a *Advisor) Evaluate(board game.Board, player game.Player) int {
	return Evaluate(board, player)
}

// FindBestMove returns the best move for player on board. The second result
// is false when the board has no empty cell or player is not a real player,
// meaning there is nothing to suggest.
func (a *Advisor) FindBestMove(board game.Board, player game.Player) (Suggestion, bool) {
	if !player.Valid() {
		return Suggestion{}, false
	}
	moves := board.EmptyCells()
	if len(moves) == 0 {
		return Suggestion{}, false
	}
	OrderByCenter(moves)

	start := time.Now()
	s := &search{max: player, min: player.Opponent()}

	best := Suggestion{Score: math.MinInt}
	found := false
	for _, m := range moves {
		child := board.With(m, player)
		score := s.minimax(child, a.depth-1, math.MinInt, math.MaxInt, false)
		if !found || score > best.Score {
			best.Move = m
			best.Score = score
			found = true
		}
	}
	best.Nodes = s.nodes

	elapsed := time.Since(start)
	if a.observer != nil {
		a.observer.ObserveSearch(elapsed, s.nodes)
	}
	logger.Debug("Search finished", logger.Fields{
		"player":  player.String(),
		"row":     best.Move.Row,
		"col":     best.Move.Col,
		"score":   best.Score,
		"nodes":   s.nodes,
		"elapsed": elapsed.String(),
	})
	return best, true
}

// OrderByCenter sorts moves by ascending Manhattan distance from the board
// centre. The sort is stable so equally distant moves keep their order.
func OrderByCenter(moves []game.Move) {
	sort.SliceStable(moves, func(i, j int) bool {
		return centerDistance(moves[i]) < centerDistance(moves[j])
	})
}

// centerDistance is twice the Manhattan distance to the centre point, which
// keeps the value integral on an even-sized board.
func centerDistance(m game.Move) int {
	return abs(2*m.Row-(game.Size-1)) + abs(2*m.Col-(game.Size-1))
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
