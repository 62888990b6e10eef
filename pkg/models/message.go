package models

import (
	"encoding/json"
	"time"
)

// Client to server message types
const (
	TypeStartGame   = "START_GAME"
	TypeMakeMove    = "MAKE_MOVE"
	TypeToggleHints = "TOGGLE_HINTS"
	TypeNewRound    = "NEW_ROUND"
	TypeEndSession  = "END_SESSION"
	TypeResetScores = "RESET_SCORES"
	TypeGetHistory  = "GET_HISTORY"
	TypeGetStats    = "GET_STATS"
	TypeGetPlayers  = "GET_PLAYERS"
)

// Server to client message types
const (
	TypeGameStarted  = "GAME_STARTED"
	TypeRoundStarted = "ROUND_STARTED"
	TypeMoveResult   = "MOVE_RESULT"
	TypeRoundOver    = "ROUND_OVER"
	TypeHint         = "HINT"
	TypeHintsToggled = "HINTS_TOGGLED"
	TypeHistory      = "HISTORY"
	TypeStats        = "STATS"
	TypePlayers      = "PLAYERS"
	TypeScoresReset  = "SCORES_RESET"
	TypeSessionEnded = "SESSION_ENDED"
)

// BaseMessage is the most basic message structure
type BaseMessage struct {
	Type string `json:"type"`
}

// Envelope is used for initial message deserialization
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// MovePayload contains the data for a move in the game
type MovePayload struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// PlayerInfo is the display metadata of one seat
type PlayerInfo struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// StartGamePayload contains the players of a new session
type StartGamePayload struct {
	Player1 PlayerInfo `json:"player1"`
	Player2 PlayerInfo `json:"player2"`
}

// MakeMovePayload contains data for making a move. Move is nil when the
// client omitted it.
type MakeMovePayload struct {
	Move *MovePayload `json:"move"`
}

// GetStatsPayload names the player whose stats are requested
type GetStatsPayload struct {
	Name string `json:"name"`
}

// Score is the running score of the session
type Score struct {
	Player1 int `json:"player1"`
	Player2 int `json:"player2"`
}

// Outcome describes the result of a move attempt. Winner is nil unless the
// move won the game; Reason is set when Success is false.
type Outcome struct {
	Success      bool          `json:"success"`
	Winner       *int          `json:"winner"`
	WinningCells []MovePayload `json:"winningCells"`
	Draw         bool          `json:"draw"`
	Reason       string        `json:"reason,omitempty"`
}

// RoundInfo is one entry of the session's round list
type RoundInfo struct {
	Round     int       `json:"round"`
	Winner    *int      `json:"winner"`
	Timestamp time.Time `json:"timestamp"`
}

// GameStartedResponse is sent when a session or a new round begins
type GameStartedResponse struct {
	Type          string             `json:"type"`
	SessionID     string             `json:"sessionId"`
	Board         [][]int            `json:"board"`
	Players       map[int]PlayerInfo `json:"players"`
	CurrentPlayer int                `json:"currentPlayer"`
	Round         int                `json:"round"`
	Score         Score              `json:"score"`
	HintsEnabled  bool               `json:"hintsEnabled"`
}

// MoveResultResponse is sent after every move attempt
type MoveResultResponse struct {
	Type          string      `json:"type"`
	Outcome       Outcome     `json:"outcome"`
	Board         [][]int     `json:"board"`
	LastMove      MovePayload `json:"lastMove"`
	PlacedBy      int         `json:"placedBy,omitempty"`
	CurrentPlayer int         `json:"currentPlayer"`
}

// RoundOverResponse is sent once a round ends in a win or a draw
type RoundOverResponse struct {
	Type       string      `json:"type"`
	Winner     *int        `json:"winner"`
	WinnerName string      `json:"winnerName,omitempty"`
	Draw       bool        `json:"draw"`
	Score      Score       `json:"score"`
	Rounds     []RoundInfo `json:"rounds"`
}

// HintResponse carries the advisor's suggestion for the player to move
type HintResponse struct {
	Type   string      `json:"type"`
	Player int         `json:"player"`
	Move   MovePayload `json:"move"`
	Score  int         `json:"score"`
}

// HintsToggledResponse confirms the hint mode
type HintsToggledResponse struct {
	Type    string `json:"type"`
	Enabled bool   `json:"enabled"`
}

// MatchInfo is one stored match
type MatchInfo struct {
	ID           string    `json:"id"`
	Player1Name  string    `json:"player1Name"`
	Player2Name  string    `json:"player2Name"`
	Player1Color string    `json:"player1Color"`
	Player2Color string    `json:"player2Color"`
	Winner       *int      `json:"winner"`
	Date         time.Time `json:"date"`
}

// HistoryResponse lists stored matches, newest first
type HistoryResponse struct {
	Type    string      `json:"type"`
	Matches []MatchInfo `json:"matches"`
}

// StatsResponse carries the record of one player
type StatsResponse struct {
	Type   string `json:"type"`
	Name   string `json:"name"`
	Wins   int    `json:"wins"`
	Losses int    `json:"losses"`
	Draws  int    `json:"draws"`
	Total  int    `json:"total"`
}

// PlayersResponse carries the saved player settings
type PlayersResponse struct {
	Type    string     `json:"type"`
	Player1 PlayerInfo `json:"player1"`
	Player2 PlayerInfo `json:"player2"`
}

// ScoreResponse is sent after the score is reset
type ScoreResponse struct {
	Type  string `json:"type"`
	Score Score  `json:"score"`
}

// ErrorResponse is sent when an error occurs
type ErrorResponse struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
