package errors

import (
	"encoding/json"
	stderrors "errors"

	"github.com/Pszemocny/4-in-a-row/internal/game"
	"github.com/Pszemocny/4-in-a-row/internal/logger"
	"github.com/Pszemocny/4-in-a-row/pkg/models"
)

// Error types
const (
	ErrorGameOver           = "ERROR_GAME_OVER"
	ErrorCellOccupied       = "ERROR_CELL_OCCUPIED"
	ErrorOutOfBounds        = "ERROR_OUT_OF_BOUNDS"
	ErrorInvalidMove        = "ERROR_INVALID_MOVE"
	ErrorNoGame             = "ERROR_NO_GAME"
	ErrorInvalidMessage     = "ERROR_INVALID_MESSAGE"
	ErrorInvalidPayload     = "ERROR_INVALID_PAYLOAD"
	ErrorStorage            = "ERROR_STORAGE"
	ErrorInternal           = "ERROR_INTERNAL"
	ErrorUnknownMessageType = "ERROR_UNKNOWN_MESSAGE_TYPE"
)

// MoveReason maps a rejected ApplyMove error to its reason code
func MoveReason(err error) string {
	switch {
	case stderrors.Is(err, game.ErrGameOver):
		return ErrorGameOver
	case stderrors.Is(err, game.ErrCellOccupied):
		return ErrorCellOccupied
	case stderrors.Is(err, game.ErrOutOfBounds):
		return ErrorOutOfBounds
	default:
		return ErrorInvalidMove
	}
}

// SendError sends a structured error message to the client. The send never
// blocks; a full or abandoned channel drops the message.
func SendError(channel chan []byte, errorType, message string, clientID string) {
	errorMsg := models.ErrorResponse{
		Type:    errorType,
		Message: message,
	}

	msgBytes, err := json.Marshal(errorMsg)
	if err != nil {
		logger.Error("Failed to marshal error message", logger.Fields{
			"error":     err.Error(),
			"errorType": errorType,
			"clientID":  clientID,
		})
		return
	}

	logger.Warn(message, logger.Fields{
		"errorType": errorType,
		"clientID":  clientID,
	})

	select {
	case channel <- msgBytes:
	default:
		logger.Warn("Could not deliver error, channel full or closed", logger.Fields{
			"errorType": errorType,
			"clientID":  clientID,
		})
	}
}

// NoGame reports a game command sent before START_GAME
func NoGame(channel chan []byte, clientID string) {
	SendError(channel, ErrorNoGame, "No game has been started", clientID)
}

// InvalidMessage creates an invalid message error
func InvalidMessage(channel chan []byte, clientID string) {
	SendError(channel, ErrorInvalidMessage, "Invalid message format", clientID)
}

// InvalidPayload creates an invalid payload error
func InvalidPayload(channel chan []byte, context string, clientID string) {
	SendError(channel, ErrorInvalidPayload, "Invalid data: "+context, clientID)
}

// Storage reports a failure of the persistent store
func Storage(channel chan []byte, clientID string) {
	SendError(channel, ErrorStorage, "Could not access saved data", clientID)
}

// Internal creates an internal error
func Internal(channel chan []byte, clientID string) {
	SendError(channel, ErrorInternal, "Internal server error", clientID)
}

// UnknownMessageType creates an unknown message type error
func UnknownMessageType(channel chan []byte, msgType string, clientID string) {
	SendError(channel, ErrorUnknownMessageType, "Unknown message type: "+msgType, clientID)
}
