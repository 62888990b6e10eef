package session

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pszemocny/4-in-a-row/internal/advisor"
	"github.com/Pszemocny/4-in-a-row/internal/errors"
	"github.com/Pszemocny/4-in-a-row/internal/game"
	"github.com/Pszemocny/4-in-a-row/internal/interfaces"
	"github.com/Pszemocny/4-in-a-row/internal/metrics"
	"github.com/Pszemocny/4-in-a-row/internal/store"
	"github.com/Pszemocny/4-in-a-row/pkg/models"
)

type fakeClient struct {
	id      string
	send    chan []byte
	session interfaces.Session
}

func newFakeClient() *fakeClient {
	return &fakeClient{id: "client-1", send: make(chan []byte, 64)}
}

func (c *fakeClient) GetID() string { return c.id }
func (c *fakeClient) GetSendChannel() chan []byte { return c.send }
func (c *fakeClient) GetConnection() *websocket.Conn { return nil }
func (c *fakeClient) SetSession(s interfaces.Session) { c.session = s }
func (c *fakeClient) GetSession() interfaces.Session { return c.session }
func (c *fakeClient) CloseSend() {}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

// newTestSession builds a session without starting Run
func newTestSession(t *testing.T, st *store.Store, opts ...Option) (*Session, *fakeClient) {
	t.Helper()
	c := newFakeClient()
	opts = append([]Option{WithEngine(game.NewEngine(game.WithRand(7)))}, opts...)
	s := NewSession(context.Background(), "session-1", c, advisor.New(advisor.WithDepth(2)), st, opts...)
	c.SetSession(s)
	return s, c
}

// runTestSession builds a session and runs it until the test ends
func runTestSession(t *testing.T, st *store.Store) (*Session, *fakeClient) {
	t.Helper()
	s, c := newTestSession(t, st)
	go s.Run()
	t.Cleanup(s.Close)
	return s, c
}

func receive(t *testing.T, c *fakeClient) (string, []byte) {
	t.Helper()
	select {
	case msg := <-c.send:
		var base models.BaseMessage
		require.NoError(t, json.Unmarshal(msg, &base))
		return base.Type, msg
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a message")
	}
	return "", nil
}

// expect reads the next message, checks its type and decodes it into out
func expect(t *testing.T, c *fakeClient, msgType string, out any) {
	t.Helper()
	got, msg := receive(t, c)
	require.Equal(t, msgType, got, string(msg))
	if out != nil {
		require.NoError(t, json.Unmarshal(msg, out))
	}
}

func startGame(t *testing.T, s *Session, c *fakeClient, payload models.StartGamePayload) models.GameStartedResponse {
	t.Helper()
	s.StartGame(payload)
	var started models.GameStartedResponse
	expect(t, c, models.TypeGameStarted, &started)
	return started
}

// playWin lets the player to move win along row 0 while the other fills row 1
func playWin(t *testing.T, s *Session, c *fakeClient) models.RoundOverResponse {
	t.Helper()
	moves := []models.MovePayload{
		{Row: 0, Col: 0}, {Row: 1, Col: 0},
		{Row: 0, Col: 1}, {Row: 1, Col: 1},
		{Row: 0, Col: 2}, {Row: 1, Col: 2},
		{Row: 0, Col: 3},
	}
	for _, m := range moves {
		s.MakeMove(m)
		var res models.MoveResultResponse
		expect(t, c, models.TypeMoveResult, &res)
		require.True(t, res.Outcome.Success)
	}
	var over models.RoundOverResponse
	expect(t, c, models.TypeRoundOver, &over)
	return over
}

func TestStartGameDefaults(t *testing.T) {
	s, c := runTestSession(t, newTestStore(t))

	started := startGame(t, s, c, models.StartGamePayload{
		Player1: models.PlayerInfo{Name: "  "},
		Player2: models.PlayerInfo{Name: " Bob ", Color: "#ff0000"},
	})

	assert.Equal(t, "session-1", started.SessionID)
	assert.Equal(t, models.PlayerInfo{Name: "Player 1", Color: "#3498db"}, started.Players[1])
	assert.Equal(t, models.PlayerInfo{Name: "Bob", Color: "#ff0000"}, started.Players[2])
	assert.Contains(t, []int{1, 2}, started.CurrentPlayer)
	assert.Equal(t, 1, started.Round)
	assert.Equal(t, models.Score{}, started.Score)
	assert.False(t, started.HintsEnabled)
	require.Len(t, started.Board, game.Size)
	for _, row := range started.Board {
		assert.Equal(t, []int{0, 0, 0, 0, 0, 0}, row)
	}
}

func TestStartGameSavesPlayers(t *testing.T) {
	st := newTestStore(t)
	s, c := runTestSession(t, st)

	startGame(t, s, c, models.StartGamePayload{
		Player1: models.PlayerInfo{Name: "Ann", Color: "#111111"},
		Player2: models.PlayerInfo{Name: "Bob", Color: "#222222"},
	})

	s.Control(models.TypeGetPlayers)
	var players models.PlayersResponse
	expect(t, c, models.TypePlayers, &players)
	assert.Equal(t, "Ann", players.Player1.Name)
	assert.Equal(t, "#222222", players.Player2.Color)
}

func TestStartGameKeepsScoreForSamePlayers(t *testing.T) {
	st := newTestStore(t)
	require.NoError(t, st.SavePlayers(store.Players{
		Player1: game.PlayerInfo{Name: "Ann", Color: "#111111"},
		Player2: game.PlayerInfo{Name: "Bob", Color: "#222222"},
	}))
	require.NoError(t, st.SaveCurrentScore(store.Score{Player1: 2, Player2: 1}))

	s, c := runTestSession(t, st)
	started := startGame(t, s, c, models.StartGamePayload{
		Player1: models.PlayerInfo{Name: "Ann"},
		Player2: models.PlayerInfo{Name: "Bob"},
	})
	assert.Equal(t, models.Score{Player1: 2, Player2: 1}, started.Score)

	started = startGame(t, s, c, models.StartGamePayload{
		Player1: models.PlayerInfo{Name: "Ann"},
		Player2: models.PlayerInfo{Name: "Carl"},
	})
	assert.Equal(t, models.Score{}, started.Score, "a new pairing starts from zero")
}

func TestMoveWithoutGame(t *testing.T) {
	s, c := runTestSession(t, newTestStore(t))

	s.MakeMove(models.MovePayload{Row: 0, Col: 0})
	expect(t, c, errors.ErrorNoGame, nil)

	s.Control(models.TypeNewRound)
	expect(t, c, errors.ErrorNoGame, nil)
}

func TestRejectedMoves(t *testing.T) {
	s, c := runTestSession(t, newTestStore(t))
	started := startGame(t, s, c, models.StartGamePayload{})

	tests := []struct {
		name   string
		move   models.MovePayload
		reason string
	}{
		{"out of bounds", models.MovePayload{Row: 6, Col: 0}, errors.ErrorOutOfBounds},
		{"negative", models.MovePayload{Row: 0, Col: -1}, errors.ErrorOutOfBounds},
		{"occupied", models.MovePayload{Row: 2, Col: 2}, errors.ErrorCellOccupied},
	}

	s.MakeMove(models.MovePayload{Row: 2, Col: 2})
	var first models.MoveResultResponse
	expect(t, c, models.TypeMoveResult, &first)
	require.True(t, first.Outcome.Success)
	assert.Equal(t, started.CurrentPlayer, first.PlacedBy)
	assert.Equal(t, started.CurrentPlayer, first.Board[2][2])
	assert.Equal(t, 3-started.CurrentPlayer, first.CurrentPlayer)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s.MakeMove(tt.move)
			var res models.MoveResultResponse
			expect(t, c, models.TypeMoveResult, &res)
			assert.False(t, res.Outcome.Success)
			assert.Equal(t, tt.reason, res.Outcome.Reason)
			assert.Equal(t, 3-started.CurrentPlayer, res.CurrentPlayer, "turn does not change")
		})
	}
}

func TestWinIsRecorded(t *testing.T) {
	st := newTestStore(t)
	s, c := runTestSession(t, st)
	started := startGame(t, s, c, models.StartGamePayload{
		Player1: models.PlayerInfo{Name: "Ann"},
		Player2: models.PlayerInfo{Name: "Bob"},
	})
	winner := started.CurrentPlayer

	over := playWin(t, s, c)
	require.NotNil(t, over.Winner)
	assert.Equal(t, winner, *over.Winner)
	assert.False(t, over.Draw)
	assert.Equal(t, started.Players[winner].Name, over.WinnerName)
	require.Len(t, over.Rounds, 1)
	assert.Equal(t, 1, over.Rounds[0].Round)

	expected := models.Score{}
	if winner == 1 {
		expected.Player1 = 1
	} else {
		expected.Player2 = 1
	}
	assert.Equal(t, expected, over.Score)

	history, err := st.History()
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.NotNil(t, history[0].Winner)
	assert.Equal(t, winner, *history[0].Winner)
	assert.Equal(t, "Ann", history[0].Player1Name)

	score, err := st.CurrentScore()
	require.NoError(t, err)
	assert.Equal(t, expected.Player1, score.Player1)
	assert.Equal(t, expected.Player2, score.Player2)

	// The finished board accepts nothing
	s.MakeMove(models.MovePayload{Row: 5, Col: 5})
	var res models.MoveResultResponse
	expect(t, c, models.TypeMoveResult, &res)
	assert.False(t, res.Outcome.Success)
	assert.Equal(t, errors.ErrorGameOver, res.Outcome.Reason)

	s.RequestStats(started.Players[winner].Name)
	var stats models.StatsResponse
	expect(t, c, models.TypeStats, &stats)
	assert.Equal(t, 1, stats.Wins)
	assert.Equal(t, 1, stats.Total)
}

func TestWinningMoveReportsLine(t *testing.T) {
	s, c := runTestSession(t, newTestStore(t))
	started := startGame(t, s, c, models.StartGamePayload{})

	moves := []models.MovePayload{
		{Row: 0, Col: 0}, {Row: 1, Col: 0},
		{Row: 0, Col: 1}, {Row: 1, Col: 1},
		{Row: 0, Col: 2}, {Row: 1, Col: 2},
	}
	for _, m := range moves {
		s.MakeMove(m)
		expect(t, c, models.TypeMoveResult, nil)
	}

	s.MakeMove(models.MovePayload{Row: 0, Col: 3})
	var res models.MoveResultResponse
	expect(t, c, models.TypeMoveResult, &res)
	require.True(t, res.Outcome.Success)
	require.NotNil(t, res.Outcome.Winner)
	assert.Equal(t, started.CurrentPlayer, *res.Outcome.Winner)
	assert.ElementsMatch(t, []models.MovePayload{
		{Row: 0, Col: 0}, {Row: 0, Col: 1}, {Row: 0, Col: 2}, {Row: 0, Col: 3},
	}, res.Outcome.WinningCells)

	expect(t, c, models.TypeRoundOver, nil)
}

func TestNewRoundAlternatesStarter(t *testing.T) {
	s, c := runTestSession(t, newTestStore(t))
	started := startGame(t, s, c, models.StartGamePayload{})
	first := started.CurrentPlayer

	playWin(t, s, c)

	s.Control(models.TypeNewRound)
	var round models.GameStartedResponse
	expect(t, c, models.TypeRoundStarted, &round)
	assert.Equal(t, 3-first, round.CurrentPlayer)
	assert.Equal(t, 2, round.Round)
	assert.Equal(t, started.Players, round.Players)
	for _, row := range round.Board {
		assert.Equal(t, []int{0, 0, 0, 0, 0, 0}, row)
	}

	s.Control(models.TypeNewRound)
	expect(t, c, models.TypeRoundStarted, &round)
	assert.Equal(t, first, round.CurrentPlayer)
}

func TestHintsDeliverSuggestion(t *testing.T) {
	s, c := runTestSession(t, newTestStore(t))
	started := startGame(t, s, c, models.StartGamePayload{})

	s.Control(models.TypeToggleHints)
	var toggled models.HintsToggledResponse
	expect(t, c, models.TypeHintsToggled, &toggled)
	assert.True(t, toggled.Enabled)

	var hint models.HintResponse
	expect(t, c, models.TypeHint, &hint)
	assert.Equal(t, started.CurrentPlayer, hint.Player)
	assert.True(t, game.InBounds(hint.Move.Row, hint.Move.Col))

	// A move triggers a fresh hint for the other player
	s.MakeMove(hint.Move)
	expect(t, c, models.TypeMoveResult, nil)
	expect(t, c, models.TypeHint, &hint)
	assert.Equal(t, 3-started.CurrentPlayer, hint.Player)

	s.Control(models.TypeToggleHints)
	expect(t, c, models.TypeHintsToggled, &toggled)
	assert.False(t, toggled.Enabled)
}

func TestToggleHintsIgnoredAfterRound(t *testing.T) {
	s, c := runTestSession(t, newTestStore(t))
	startGame(t, s, c, models.StartGamePayload{})
	playWin(t, s, c)

	s.Control(models.TypeToggleHints)
	s.Control(models.TypeGetPlayers)
	expect(t, c, models.TypePlayers, nil)
}

func TestStaleHintIsDiscarded(t *testing.T) {
	reg := prometheus.NewRegistry()
	s, c := newTestSession(t, newTestStore(t), WithMetrics(metrics.New(reg)))

	s.handleStart(models.StartGamePayload{})
	expect(t, c, models.TypeGameStarted, nil)
	s.hintsEnabled = true

	hint := hintResult{
		generation: s.generation - 1,
		player:     s.Engine.CurrentPlayer(),
		suggestion: advisor.Suggestion{Move: game.Move{Row: 2, Col: 3}},
		ok:         true,
	}
	s.handleHint(hint)
	assert.Empty(t, c.send, "hint for an older position must not be sent")

	s.hintsEnabled = false
	hint.generation = s.generation
	s.handleHint(hint)
	assert.Empty(t, c.send, "hint after hints were disabled must not be sent")

	s.hintsEnabled = true
	s.handleHint(hint)
	var msg models.HintResponse
	expect(t, c, models.TypeHint, &msg)
	assert.Equal(t, models.MovePayload{Row: 2, Col: 3}, msg.Move)

	s.handleHint(hintResult{generation: s.generation})
	assert.Empty(t, c.send)

	expected := `
# HELP fourinrow_hints_total Hint searches by result.
# TYPE fourinrow_hints_total counter
fourinrow_hints_total{result="delivered"} 1
fourinrow_hints_total{result="no_move"} 1
fourinrow_hints_total{result="stale"} 2
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "fourinrow_hints_total"))
}

func TestEndSession(t *testing.T) {
	st := newTestStore(t)
	s, c := runTestSession(t, st)
	startGame(t, s, c, models.StartGamePayload{})
	playWin(t, s, c)

	s.Control(models.TypeEndSession)
	expect(t, c, models.TypeSessionEnded, nil)

	score, err := st.CurrentScore()
	require.NoError(t, err)
	assert.Equal(t, store.Score{}, score)

	history, err := st.History()
	require.NoError(t, err)
	assert.Len(t, history, 1, "history survives the end of a session")

	s.MakeMove(models.MovePayload{Row: 0, Col: 0})
	expect(t, c, errors.ErrorNoGame, nil)
}

func TestResetScoresAndHistory(t *testing.T) {
	st := newTestStore(t)
	s, c := runTestSession(t, st)
	startGame(t, s, c, models.StartGamePayload{Player1: models.PlayerInfo{Name: "Ann"}})
	playWin(t, s, c)

	s.Control(models.TypeGetHistory)
	var history models.HistoryResponse
	expect(t, c, models.TypeHistory, &history)
	require.Len(t, history.Matches, 1)
	assert.Equal(t, "Ann", history.Matches[0].Player1Name)

	s.Control(models.TypeResetScores)
	var reset models.ScoreResponse
	expect(t, c, models.TypeScoresReset, &reset)
	assert.Equal(t, models.Score{}, reset.Score)

	s.Control(models.TypeGetHistory)
	expect(t, c, models.TypeHistory, &history)
	assert.Empty(t, history.Matches)

	players, err := st.Players()
	require.NoError(t, err)
	assert.Equal(t, "Ann", players.Player1.Name, "player settings are kept")
}

func TestUnknownControl(t *testing.T) {
	s, c := runTestSession(t, newTestStore(t))
	s.Control("DANCE")
	expect(t, c, errors.ErrorUnknownMessageType, nil)
}

func TestCloseStopsSession(t *testing.T) {
	s, _ := newTestSession(t, newTestStore(t))
	go s.Run()
	s.Close()

	done := make(chan struct{})
	go func() {
		s.MakeMove(models.MovePayload{})
		s.Control(models.TypeNewRound)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("commands to a closed session must not block")
	}
}
