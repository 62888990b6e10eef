package game

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/exp/rand"
)

var (
	ErrGameOver      = errors.New("game is already over")
	ErrCellOccupied  = errors.New("cell is already occupied")
	ErrOutOfBounds   = errors.New("position is outside the board")
	ErrInvalidPlayer = errors.New("invalid player")
)

// Outcome is the state of a game after a move
type Outcome int

const (
	Ongoing Outcome = iota
	Win
	Draw
)

func (o Outcome) String() string {
	switch o {
	case Win:
		return "win"
	case Draw:
		return "draw"
	default:
		return "ongoing"
	}
}

// PlayerInfo is opaque display metadata attached to a player
type PlayerInfo struct {
	Name  string `json:"name" yaml:"name" validate:"required"`
	Color string `json:"color" yaml:"color" validate:"required"`
}

// Result describes what a successful ApplyMove did
type Result struct {
	Outcome     Outcome
	Move        Move
	PlacedBy    Player
	Winner      Player
	WinnerInfo  PlayerInfo
	WinningLine []Move
	NextPlayer  Player
}

// Snapshot is a detached copy of the engine state
type Snapshot struct {
	Board       Board
	Current     Player
	Over        bool
	Players     [2]PlayerInfo
	WinningLine []Move
	Moves       int
}

// Info returns the metadata of p, or the zero value for PlayerNone
func (s Snapshot) Info(p Player) PlayerInfo {
	if !p.Valid() {
		return PlayerInfo{}
	}
	return s.Players[p-1]
}

// Option configures an Engine
type Option func(e *Engine)

// WithRand fixes the seed used to pick a random starting player
func WithRand(seed uint64) Option {
	return func(e *Engine) {
		e.rng = rand.New(rand.NewSource(seed))
	}
}

// Engine owns the authoritative board and turn state of one game.
// It is not safe for concurrent use; callers serialize access.
type Engine struct {
	board       Board
	current     Player
	over        bool
	players     [2]PlayerInfo
	winningLine []Move
	moves       int
	rng         *rand.Rand
}

// NewEngine creates an engine with an empty board and PlayerA to move
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		current: PlayerA,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rng == nil {
		e.rng = rand.New(rand.NewSource(uint64(time.Now().UnixNano())))
	}
	return e
}

// NewGame resets the board. When starting is PlayerNone the first player is
// chosen uniformly at random.
func (e *Engine) NewGame(a, b PlayerInfo, starting Player) error {
	if starting != PlayerNone && !starting.Valid() {
		return fmt.Errorf("starting player %d: %w", starting, ErrInvalidPlayer)
	}
	if starting == PlayerNone {
		starting = Player(e.rng.Intn(2) + 1)
	}

	e.board = Board{}
	e.players = [2]PlayerInfo{a, b}
	e.current = starting
	e.over = false
	e.winningLine = nil
	e.moves = 0
	return nil
}

// ApplyMove places the current player's stone on (row, col). A rejected move
// leaves the state unchanged.
func (e *Engine) ApplyMove(row, col int) (Result, error) {
	if e.over {
		return Result{}, ErrGameOver
	}
	if !InBounds(row, col) {
		return Result{}, fmt.Errorf("(%d,%d): %w", row, col, ErrOutOfBounds)
	}
	if e.board[row][col] != PlayerNone {
		return Result{}, fmt.Errorf("(%d,%d): %w", row, col, ErrCellOccupied)
	}

	mover := e.current
	e.board[row][col] = mover
	e.moves++

	res := Result{
		Move:     Move{Row: row, Col: col},
		PlacedBy: mover,
	}

	if line := e.board.LineThrough(row, col); line != nil {
		e.over = true
		e.winningLine = line
		res.Outcome = Win
		res.Winner = mover
		res.WinnerInfo = e.players[mover-1]
		res.WinningLine = append([]Move(nil), line...)
		return res, nil
	}

	if e.board.Full() {
		e.over = true
		res.Outcome = Draw
		return res, nil
	}

	e.current = mover.Opponent()
	res.Outcome = Ongoing
	res.NextPlayer = e.current
	return res, nil
}

// CurrentPlayer returns the player to move
func (e *Engine) CurrentPlayer() Player {
	return e.current
}

// CurrentInfo returns the metadata of the player to move
func (e *Engine) CurrentInfo() PlayerInfo {
	return e.players[e.current-1]
}

// Players returns the metadata of both seats, PlayerA first
func (e *Engine) Players() [2]PlayerInfo {
	return e.players
}

// MoveCount returns the number of stones placed in the current game
func (e *Engine) MoveCount() int {
	return e.moves
}

// IsOver reports whether the game reached a win or a draw
func (e *Engine) IsOver() bool {
	return e.over
}

// Snapshot returns a copy of the board and metadata
func (e *Engine) Snapshot() Snapshot {
	return Snapshot{
		Board:       e.board,
		Current:     e.current,
		Over:        e.over,
		Players:     e.players,
		WinningLine: append([]Move(nil), e.winningLine...),
		Moves:       e.moves,
	}
}
