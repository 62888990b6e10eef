package interfaces

import (
	"github.com/gorilla/websocket"

	"github.com/Pszemocny/4-in-a-row/internal/advisor"
	"github.com/Pszemocny/4-in-a-row/internal/game"
	"github.com/Pszemocny/4-in-a-row/internal/store"
	"github.com/Pszemocny/4-in-a-row/pkg/models"
)

// Hub defines the interface for hub operations needed by clients
type Hub interface {
	// RegisterClient attaches a new session to the client and waits until it is running
	RegisterClient(client Client)

	// UnregisterClient closes the client's session and its send channel
	UnregisterClient(client Client)
}

// Client defines the interface for client operations needed by the hub
type Client interface {
	// GetID returns the client's unique identifier
	GetID() string

	// GetSendChannel returns the client's message sending channel
	GetSendChannel() chan []byte

	// CloseSend closes the send channel once; later calls do nothing
	CloseSend()

	// GetConnection returns the client's websocket connection
	GetConnection() *websocket.Conn

	// SetSession sets the client's session
	SetSession(session Session)

	// GetSession gets the client's session
	GetSession() Session
}

// Session is the per-client game session as seen by the transport layer
type Session interface {
	// GetID returns the session identifier
	GetID() string

	// StartGame begins a new series between two players
	StartGame(payload models.StartGamePayload)

	// MakeMove submits a move for the player to move
	MakeMove(move models.MovePayload)

	// Control sends a payload-free command such as TOGGLE_HINTS or NEW_ROUND
	Control(msgType string)

	// RequestStats asks for the record of the named player
	RequestStats(name string)

	// Close stops the session and waits for it to finish
	Close()
}

// Advisor suggests moves for a board position
type Advisor interface {
	FindBestMove(board game.Board, player game.Player) (advisor.Suggestion, bool)
}

// Store is the persistent state consumed by sessions
type Store interface {
	Players() (store.Players, error)
	SavePlayers(p store.Players) error
	History() ([]store.Match, error)
	AddMatch(m store.Match) (store.Match, error)
	CurrentScore() (store.Score, error)
	SaveCurrentScore(score store.Score) error
	ResetCurrentScore() error
	ResetScores() error
	PlayerStats(name string) (store.Stats, error)
}
