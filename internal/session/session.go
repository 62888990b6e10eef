package session

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/Pszemocny/4-in-a-row/internal/advisor"
	"github.com/Pszemocny/4-in-a-row/internal/errors"
	"github.com/Pszemocny/4-in-a-row/internal/game"
	"github.com/Pszemocny/4-in-a-row/internal/interfaces"
	"github.com/Pszemocny/4-in-a-row/internal/logger"
	"github.com/Pszemocny/4-in-a-row/internal/metrics"
	"github.com/Pszemocny/4-in-a-row/internal/store"
	"github.com/Pszemocny/4-in-a-row/pkg/models"
)

// hintResult is the answer of one background search, tagged with the
// generation it was requested for
type hintResult struct {
	generation uint64
	player     game.Player
	suggestion advisor.Suggestion
	ok         bool
}

// Session is a hot-seat series between two players sharing one client.
// All state is owned by the Run goroutine; other goroutines talk to it
// through the command channels.
type Session struct {
	ID      string             // Unique session identifier
	Client  interfaces.Client  // Connection both players share
	Engine  *game.Engine       // Authoritative board of the current round
	advisor interfaces.Advisor // Move suggestions
	store   interfaces.Store   // Players, history and score
	metrics *metrics.Metrics   // May be nil

	start       chan models.StartGamePayload
	receiveMove chan models.MovePayload
	control     chan string
	stats       chan string
	hintResults chan hintResult

	started      bool
	players      [2]game.PlayerInfo
	score        store.Score
	lastStarter  game.Player
	hintsEnabled bool
	generation   uint64
	rounds       []models.RoundInfo

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// Option configures a Session
type Option func(s *Session)

// WithEngine replaces the default engine, mainly to seed the starter choice in tests
func WithEngine(e *game.Engine) Option {
	return func(s *Session) {
		if e != nil {
			s.Engine = e
		}
	}
}

// WithMetrics records moves and hints on m
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Session) {
		s.metrics = m
	}
}

// NewSession creates a session bound to client. Run must be started by the caller.
func NewSession(parentCtx context.Context, id string, client interfaces.Client,
	adv interfaces.Advisor, st interfaces.Store, opts ...Option) *Session {
	ctx, cancel := context.WithCancel(parentCtx)

	s := &Session{
		ID:          id,
		Client:      client,
		Engine:      game.NewEngine(),
		advisor:     adv,
		store:       st,
		start:       make(chan models.StartGamePayload),
		receiveMove: make(chan models.MovePayload),
		control:     make(chan string),
		stats:       make(chan string),
		hintResults: make(chan hintResult),
		ctx:         ctx,
		cancel:      cancel,
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetID implements interfaces.Session
func (s *Session) GetID() string {
	return s.ID
}

// StartGame implements interfaces.Session
func (s *Session) StartGame(payload models.StartGamePayload) {
	select {
	case s.start <- payload:
	case <-s.ctx.Done():
	}
}

// MakeMove implements interfaces.Session
func (s *Session) MakeMove(move models.MovePayload) {
	select {
	case s.receiveMove <- move:
	case <-s.ctx.Done():
	}
}

// Control implements interfaces.Session
func (s *Session) Control(msgType string) {
	select {
	case s.control <- msgType:
	case <-s.ctx.Done():
	}
}

// RequestStats implements interfaces.Session
func (s *Session) RequestStats(name string) {
	select {
	case s.stats <- name:
	case <-s.ctx.Done():
	}
}

// Close cancels the session and waits for Run to return. In-flight hint
// searches finish in the background and their results are dropped.
func (s *Session) Close() {
	s.cancel()
	<-s.done
	logger.Info("Session closed", logger.Fields{"sessionID": s.ID})
}

// Run is the session's main loop
func (s *Session) Run() {
	defer close(s.done)

	for {
		select {
		case <-s.ctx.Done():
			return

		case payload := <-s.start:
			s.handleStart(payload)

		case move := <-s.receiveMove:
			s.handleMove(move)

		case msgType := <-s.control:
			s.handleControl(msgType)

		case name := <-s.stats:
			s.handleStats(name)

		case res := <-s.hintResults:
			s.handleHint(res)
		}
	}
}

func (s *Session) handleControl(msgType string) {
	switch msgType {
	case models.TypeToggleHints:
		s.toggleHints()
	case models.TypeNewRound:
		s.newRound()
	case models.TypeEndSession:
		s.endSession()
	case models.TypeResetScores:
		s.resetScores()
	case models.TypeGetHistory:
		s.sendHistory()
	case models.TypeGetPlayers:
		s.sendPlayers()
	default:
		errors.UnknownMessageType(s.Client.GetSendChannel(), msgType, s.Client.GetID())
	}
}

// handleStart begins a new series. The first starter is random; empty
// names and colours fall back to the defaults.
func (s *Session) handleStart(payload models.StartGamePayload) {
	p1 := playerInfo(payload.Player1, store.DefaultPlayer1)
	p2 := playerInfo(payload.Player2, store.DefaultPlayer2)

	saved, err := s.store.Players()
	if err != nil {
		logger.Error("Could not load saved players", logger.Fields{"sessionID": s.ID, "error": err.Error()})
	}
	if err := s.store.SavePlayers(store.Players{Player1: p1, Player2: p2}); err != nil {
		logger.Error("Could not save players", logger.Fields{"sessionID": s.ID, "error": err.Error()})
		errors.Storage(s.Client.GetSendChannel(), s.Client.GetID())
	}

	// A different pairing starts from zero
	s.score = store.Score{}
	if err == nil && saved.Player1.Name == p1.Name && saved.Player2.Name == p2.Name {
		if score, scoreErr := s.store.CurrentScore(); scoreErr == nil {
			s.score = score
		}
	}

	s.players = [2]game.PlayerInfo{p1, p2}
	if err := s.Engine.NewGame(p1, p2, game.PlayerNone); err != nil {
		logger.Error("Could not start game", logger.Fields{"sessionID": s.ID, "error": err.Error()})
		errors.Internal(s.Client.GetSendChannel(), s.Client.GetID())
		return
	}
	s.started = true
	s.lastStarter = s.Engine.CurrentPlayer()
	s.hintsEnabled = false
	s.rounds = nil
	s.generation++

	logger.Info("Game started", logger.Fields{
		"sessionID": s.ID,
		"player1":   p1.Name,
		"player2":   p2.Name,
		"starter":   s.lastStarter.String(),
	})
	s.send(s.startedMessage(models.TypeGameStarted))
}

// newRound restarts the board; the player who did not start last time begins
func (s *Session) newRound() {
	if !s.started {
		errors.NoGame(s.Client.GetSendChannel(), s.Client.GetID())
		return
	}

	next := s.lastStarter.Opponent()
	if err := s.Engine.NewGame(s.players[0], s.players[1], next); err != nil {
		errors.Internal(s.Client.GetSendChannel(), s.Client.GetID())
		return
	}
	s.lastStarter = next
	s.generation++

	logger.Info("New round", logger.Fields{
		"sessionID": s.ID,
		"round":     len(s.rounds) + 1,
		"starter":   next.String(),
	})
	s.send(s.startedMessage(models.TypeRoundStarted))
	s.requestHint()
}

func (s *Session) handleMove(move models.MovePayload) {
	if !s.started {
		errors.NoGame(s.Client.GetSendChannel(), s.Client.GetID())
		return
	}

	res, err := s.Engine.ApplyMove(move.Row, move.Col)
	if err != nil {
		reason := errors.MoveReason(err)
		s.metrics.ObserveMove("rejected")
		logger.Debug("Move rejected", logger.Fields{
			"sessionID": s.ID,
			"row":       move.Row,
			"col":       move.Col,
			"reason":    reason,
		})
		s.send(models.MoveResultResponse{
			Type:          models.TypeMoveResult,
			Outcome:       models.Outcome{Success: false, Reason: reason, WinningCells: []models.MovePayload{}},
			Board:         s.Engine.Snapshot().Board.Grid(),
			LastMove:      move,
			CurrentPlayer: int(s.Engine.CurrentPlayer()),
		})
		return
	}

	// Any pending hint refers to the previous position
	s.generation++
	s.metrics.ObserveMove(res.Outcome.String())

	s.send(models.MoveResultResponse{
		Type:          models.TypeMoveResult,
		Outcome:       outcomeMessage(res),
		Board:         s.Engine.Snapshot().Board.Grid(),
		LastMove:      move,
		PlacedBy:      int(res.PlacedBy),
		CurrentPlayer: int(s.Engine.CurrentPlayer()),
	})

	switch res.Outcome {
	case game.Win:
		s.finishRound(res.Winner, res.WinnerInfo.Name)
	case game.Draw:
		s.finishRound(game.PlayerNone, "")
	default:
		s.requestHint()
	}
}

// finishRound updates the score, records the match and reports the round
func (s *Session) finishRound(winner game.Player, winnerName string) {
	var winnerNum *int
	switch winner {
	case game.PlayerA:
		s.score.Player1++
		winnerNum = intPtr(1)
	case game.PlayerB:
		s.score.Player2++
		winnerNum = intPtr(2)
	}

	if winnerNum != nil {
		if err := s.store.SaveCurrentScore(s.score); err != nil {
			logger.Error("Could not save score", logger.Fields{"sessionID": s.ID, "error": err.Error()})
		}
	}

	if _, err := s.store.AddMatch(store.Match{
		Player1Name:  s.players[0].Name,
		Player2Name:  s.players[1].Name,
		Player1Color: s.players[0].Color,
		Player2Color: s.players[1].Color,
		Winner:       winnerNum,
	}); err != nil {
		logger.Error("Could not record match", logger.Fields{"sessionID": s.ID, "error": err.Error()})
		errors.Storage(s.Client.GetSendChannel(), s.Client.GetID())
	}

	s.rounds = append(s.rounds, models.RoundInfo{
		Round:     len(s.rounds) + 1,
		Winner:    winnerNum,
		Timestamp: time.Now().UTC(),
	})

	logger.Info("Round over", logger.Fields{
		"sessionID": s.ID,
		"winner":    winner.String(),
		"score":     s.score,
	})
	s.send(models.RoundOverResponse{
		Type:       models.TypeRoundOver,
		Winner:     winnerNum,
		WinnerName: winnerName,
		Draw:       winnerNum == nil,
		Score:      scoreMessage(s.score),
		Rounds:     append([]models.RoundInfo(nil), s.rounds...),
	})
}

// toggleHints flips hint mode. It is ignored once the round is over.
func (s *Session) toggleHints() {
	if !s.started || s.Engine.IsOver() {
		return
	}
	s.hintsEnabled = !s.hintsEnabled
	s.generation++

	s.send(models.HintsToggledResponse{Type: models.TypeHintsToggled, Enabled: s.hintsEnabled})
	s.requestHint()
}

// requestHint starts a background search for the player to move when
// hints are on. The result comes back through hintResults.
func (s *Session) requestHint() {
	if !s.hintsEnabled || !s.started || s.Engine.IsOver() {
		return
	}

	gen := s.generation
	snap := s.Engine.Snapshot()
	go func() {
		suggestion, ok := s.advisor.FindBestMove(snap.Board, snap.Current)
		select {
		case s.hintResults <- hintResult{generation: gen, player: snap.Current, suggestion: suggestion, ok: ok}:
		case <-s.ctx.Done():
		}
	}()
}

// handleHint delivers a search result unless the position, the hint mode or
// the round changed since it was requested
func (s *Session) handleHint(res hintResult) {
	if res.generation != s.generation || !s.hintsEnabled || s.Engine.IsOver() {
		s.metrics.ObserveHint(metrics.HintStale)
		logger.Debug("Discarding stale hint", logger.Fields{
			"sessionID":  s.ID,
			"generation": res.generation,
			"current":    s.generation,
		})
		return
	}
	if !res.ok {
		s.metrics.ObserveHint(metrics.HintNoMove)
		return
	}

	s.metrics.ObserveHint(metrics.HintDelivered)
	s.send(models.HintResponse{
		Type:   models.TypeHint,
		Player: int(res.player),
		Move:   models.MovePayload{Row: res.suggestion.Move.Row, Col: res.suggestion.Move.Col},
		Score:  res.suggestion.Score,
	})
}

// endSession leaves the series; the running score is forgotten
func (s *Session) endSession() {
	if err := s.store.ResetCurrentScore(); err != nil {
		logger.Error("Could not reset score", logger.Fields{"sessionID": s.ID, "error": err.Error()})
	}
	s.score = store.Score{}
	s.hintsEnabled = false
	s.started = false
	s.rounds = nil
	s.generation++

	s.send(models.BaseMessage{Type: models.TypeSessionEnded})
}

// resetScores clears history and score but keeps player settings
func (s *Session) resetScores() {
	if err := s.store.ResetScores(); err != nil {
		logger.Error("Could not reset scores", logger.Fields{"sessionID": s.ID, "error": err.Error()})
		errors.Storage(s.Client.GetSendChannel(), s.Client.GetID())
		return
	}
	s.score = store.Score{}
	s.send(models.ScoreResponse{Type: models.TypeScoresReset, Score: scoreMessage(s.score)})
}

func (s *Session) sendHistory() {
	history, err := s.store.History()
	if err != nil {
		errors.Storage(s.Client.GetSendChannel(), s.Client.GetID())
		return
	}
	matches := make([]models.MatchInfo, 0, len(history))
	for _, m := range history {
		matches = append(matches, models.MatchInfo{
			ID:           m.ID,
			Player1Name:  m.Player1Name,
			Player2Name:  m.Player2Name,
			Player1Color: m.Player1Color,
			Player2Color: m.Player2Color,
			Winner:       m.Winner,
			Date:         m.Date,
		})
	}
	s.send(models.HistoryResponse{Type: models.TypeHistory, Matches: matches})
}

func (s *Session) sendPlayers() {
	p, err := s.store.Players()
	if err != nil {
		errors.Storage(s.Client.GetSendChannel(), s.Client.GetID())
		return
	}
	s.send(models.PlayersResponse{
		Type:    models.TypePlayers,
		Player1: models.PlayerInfo{Name: p.Player1.Name, Color: p.Player1.Color},
		Player2: models.PlayerInfo{Name: p.Player2.Name, Color: p.Player2.Color},
	})
}

func (s *Session) handleStats(name string) {
	st, err := s.store.PlayerStats(name)
	if err != nil {
		errors.Storage(s.Client.GetSendChannel(), s.Client.GetID())
		return
	}
	s.send(models.StatsResponse{
		Type:   models.TypeStats,
		Name:   name,
		Wins:   st.Wins,
		Losses: st.Losses,
		Draws:  st.Draws,
		Total:  st.Total,
	})
}

func (s *Session) startedMessage(msgType string) models.GameStartedResponse {
	snap := s.Engine.Snapshot()
	return models.GameStartedResponse{
		Type:      msgType,
		SessionID: s.ID,
		Board:     snap.Board.Grid(),
		Players: map[int]models.PlayerInfo{
			1: {Name: s.players[0].Name, Color: s.players[0].Color},
			2: {Name: s.players[1].Name, Color: s.players[1].Color},
		},
		CurrentPlayer: int(snap.Current),
		Round:         len(s.rounds) + 1,
		Score:         scoreMessage(s.score),
		HintsEnabled:  s.hintsEnabled,
	}
}

// send marshals v and queues it for the client without blocking
func (s *Session) send(v any) {
	msgBytes, err := json.Marshal(v)
	if err != nil {
		logger.Error("Could not marshal message", logger.Fields{"sessionID": s.ID, "error": err.Error()})
		return
	}
	select {
	case s.Client.GetSendChannel() <- msgBytes:
	default:
		logger.Warn("Could not send message, channel full or closed", logger.Fields{
			"clientID":  s.Client.GetID(),
			"sessionID": s.ID,
		})
	}
}

func outcomeMessage(res game.Result) models.Outcome {
	out := models.Outcome{
		Success:      true,
		Draw:         res.Outcome == game.Draw,
		WinningCells: make([]models.MovePayload, 0, len(res.WinningLine)),
	}
	if res.Outcome == game.Win {
		out.Winner = intPtr(int(res.Winner))
	}
	for _, m := range res.WinningLine {
		out.WinningCells = append(out.WinningCells, models.MovePayload{Row: m.Row, Col: m.Col})
	}
	return out
}

func playerInfo(p models.PlayerInfo, fallback game.PlayerInfo) game.PlayerInfo {
	info := game.PlayerInfo{
		Name:  strings.TrimSpace(p.Name),
		Color: strings.TrimSpace(p.Color),
	}
	if info.Name == "" {
		info.Name = fallback.Name
	}
	if info.Color == "" {
		info.Color = fallback.Color
	}
	return info
}

func scoreMessage(s store.Score) models.Score {
	return models.Score{Player1: s.Player1, Player2: s.Player2}
}

func intPtr(v int) *int {
	return &v
}
