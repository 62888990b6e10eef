package client

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pszemocny/4-in-a-row/internal/errors"
	"github.com/Pszemocny/4-in-a-row/pkg/models"
)

type recordingSession struct {
	moves    []models.MovePayload
	controls []string
}

func (s *recordingSession) GetID() string { return "session-1" }
func (s *recordingSession) StartGame(models.StartGamePayload) {}
func (s *recordingSession) MakeMove(move models.MovePayload) { s.moves = append(s.moves, move) }
func (s *recordingSession) Control(msgType string) { s.controls = append(s.controls, msgType) }
func (s *recordingSession) RequestStats(string) {}
func (s *recordingSession) Close() {}

func newTestClient() (*Client, *recordingSession) {
	c := NewClient("client-1", nil, nil)
	s := &recordingSession{}
	c.SetSession(s)
	return c, s
}

func lastError(t *testing.T, c *Client) string {
	t.Helper()
	require.Len(t, c.Send, 1)
	var msg models.ErrorResponse
	require.NoError(t, json.Unmarshal(<-c.Send, &msg))
	return msg.Type
}

func TestDispatchMakeMove(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		err     string
	}{
		{"missing payload", ``, errors.ErrorInvalidPayload},
		{"null payload", `null`, errors.ErrorInvalidPayload},
		{"empty object", `{}`, errors.ErrorInvalidPayload},
		{"null move", `{"move":null}`, errors.ErrorInvalidPayload},
		{"wrong type", `"sideways"`, errors.ErrorInvalidPayload},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, s := newTestClient()
			c.dispatch(models.Envelope{Type: models.TypeMakeMove, Payload: json.RawMessage(tt.payload)})

			assert.Equal(t, tt.err, lastError(t, c))
			assert.Empty(t, s.moves, "a malformed move must not reach the session")
		})
	}

	t.Run("valid move", func(t *testing.T) {
		c, s := newTestClient()
		c.dispatch(models.Envelope{Type: models.TypeMakeMove, Payload: json.RawMessage(`{"move":{"row":0,"col":0}}`)})

		assert.Empty(t, c.Send)
		assert.Equal(t, []models.MovePayload{{Row: 0, Col: 0}}, s.moves)
	})
}

func TestDispatchControlAndUnknown(t *testing.T) {
	c, s := newTestClient()
	c.dispatch(models.Envelope{Type: models.TypeNewRound})
	assert.Equal(t, []string{models.TypeNewRound}, s.controls)

	c.dispatch(models.Envelope{Type: "DANCE"})
	assert.Equal(t, errors.ErrorUnknownMessageType, lastError(t, c))
}

func TestRepliesAfterCloseSend(t *testing.T) {
	c, _ := newTestClient()
	c.CloseSend()

	assert.NotPanics(t, func() {
		c.CloseSend()
		c.dispatch(models.Envelope{Type: "DANCE"})
		c.dispatch(models.Envelope{Type: models.TypeMakeMove, Payload: json.RawMessage(`{}`)})
	})

	_, ok := <-c.Send
	assert.False(t, ok)
}
