// Package store persists player settings, match history and the running
// score in an embedded BadgerDB.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/Pszemocny/4-in-a-row/internal/game"
	"github.com/Pszemocny/4-in-a-row/internal/logger"
)

// HistoryLimit is the number of matches kept; older ones are evicted first
const HistoryLimit = 100

var (
	keyPlayers      = []byte("4inrow_players")
	keyHistory      = []byte("4inrow_history")
	keyCurrentScore = []byte("4inrow_current_score")
)

// Default player settings used until the first SavePlayers
var (
	DefaultPlayer1 = game.PlayerInfo{Name: "Player 1", Color: "#3498db"}
	DefaultPlayer2 = game.PlayerInfo{Name: "Player 2", Color: "#27ae60"}
)

// Players holds the display settings of both seats
type Players struct {
	Player1 game.PlayerInfo `json:"player1"`
	Player2 game.PlayerInfo `json:"player2"`
}

// Match is one finished game. Winner is 1 or 2, nil for a draw.
type Match struct {
	ID           string    `json:"id"`
	Player1Name  string    `json:"player1Name"`
	Player2Name  string    `json:"player2Name"`
	Player1Color string    `json:"player1Color"`
	Player2Color string    `json:"player2Color"`
	Winner       *int      `json:"winner"`
	Date         time.Time `json:"date"`
}

// Score is the running score of the current pairing
type Score struct {
	Player1 int `json:"player1"`
	Player2 int `json:"player2"`
}

// Stats summarises the history of one player name
type Stats struct {
	Wins   int `json:"wins"`
	Losses int `json:"losses"`
	Draws  int `json:"draws"`
	Total  int `json:"total"`
}

// Config holds configuration for the underlying BadgerDB instance
type Config struct {
	// Path is the directory for database files, ignored when InMemory is true
	Path string
	// InMemory keeps everything in RAM; used by tests and throwaway servers
	InMemory bool
	// SyncWrites fsyncs every write
	SyncWrites bool
}

// Store is safe for concurrent use
type Store struct {
	db       *badger.DB
	validate *validator.Validate
	now      func() time.Time

	// mu serializes read-modify-write sequences such as AddMatch
	mu sync.Mutex
}

// badgerLogger routes BadgerDB's internal logging through logrus, demoting
// its chatty info output to debug
type badgerLogger struct{}

func (badgerLogger) Errorf(format string, args ...interface{}) {
	logger.Log.WithField("component", "badger").Errorf(format, args...)
}

func (badgerLogger) Warningf(format string, args ...interface{}) {
	logger.Log.WithField("component", "badger").Warnf(format, args...)
}

func (badgerLogger) Infof(format string, args ...interface{}) {
	logger.Log.WithField("component", "badger").Debugf(format, args...)
}

func (badgerLogger) Debugf(format string, args ...interface{}) {
	logger.Log.WithField("component", "badger").Debugf(format, args...)
}

// Open opens the database described by cfg
func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent store")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create store directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).
		WithNumVersionsToKeep(1).
		WithLogger(badgerLogger{})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}

	return &Store{
		db:       db,
		validate: validator.New(),
		now:      time.Now,
	}, nil
}

// OpenInMemory opens a store that lives only as long as the process
func OpenInMemory() (*Store, error) {
	return Open(Config{InMemory: true})
}

// Close releases the database
func (s *Store) Close() error {
	return s.db.Close()
}

// Players returns the saved settings or the defaults
func (s *Store) Players() (Players, error) {
	players := Players{Player1: DefaultPlayer1, Player2: DefaultPlayer2}
	if err := s.get(keyPlayers, &players); err != nil {
		return Players{}, err
	}
	return players, nil
}

// SavePlayers stores the settings; names and colours must be non-empty
func (s *Store) SavePlayers(p Players) error {
	if err := s.validate.Struct(p); err != nil {
		return fmt.Errorf("invalid players: %w", err)
	}
	return s.put(keyPlayers, p)
}

// History returns the recorded matches, newest first
func (s *Store) History() ([]Match, error) {
	var history []Match
	if err := s.get(keyHistory, &history); err != nil {
		return nil, err
	}
	if history == nil {
		history = []Match{}
	}
	return history, nil
}

// AddMatch records m as the newest match and evicts the oldest beyond
// HistoryLimit. ID and Date are assigned here.
func (s *Store) AddMatch(m Match) (Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m.ID = uuid.NewString()
	m.Date = s.now().UTC()

	history, err := s.History()
	if err != nil {
		return Match{}, err
	}
	history = append([]Match{m}, history...)
	if len(history) > HistoryLimit {
		history = history[:HistoryLimit]
	}
	if err := s.put(keyHistory, history); err != nil {
		return Match{}, err
	}
	return m, nil
}

// CurrentScore returns the running score, zero when none is saved
func (s *Store) CurrentScore() (Score, error) {
	var score Score
	if err := s.get(keyCurrentScore, &score); err != nil {
		return Score{}, err
	}
	return score, nil
}

// SaveCurrentScore stores the running score
func (s *Store) SaveCurrentScore(score Score) error {
	return s.put(keyCurrentScore, score)
}

// ResetCurrentScore forgets the running score
func (s *Store) ResetCurrentScore() error {
	return s.delete(keyCurrentScore)
}

// ResetScores clears history and running score but keeps player settings
func (s *Store) ResetScores() error {
	return s.delete(keyHistory, keyCurrentScore)
}

// ResetAll clears everything
func (s *Store) ResetAll() error {
	return s.delete(keyPlayers, keyHistory, keyCurrentScore)
}

// PlayerStats counts wins, losses and draws of the player called name in
// either seat
func (s *Store) PlayerStats(name string) (Stats, error) {
	history, err := s.History()
	if err != nil {
		return Stats{}, err
	}

	var st Stats
	for _, m := range history {
		var seat int
		switch name {
		case m.Player1Name:
			seat = 1
		case m.Player2Name:
			seat = 2
		default:
			continue
		}
		switch {
		case m.Winner == nil:
			st.Draws++
		case *m.Winner == seat:
			st.Wins++
		default:
			st.Losses++
		}
	}
	st.Total = st.Wins + st.Losses + st.Draws
	return st, nil
}

// get decodes the value under key into out; a missing key leaves out untouched
func (s *Store) get(key []byte, out any) error {
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, out)
		})
	})
	if err != nil {
		return fmt.Errorf("read %s: %w", key, err)
	}
	return nil
}

func (s *Store) put(key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	}); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

func (s *Store) delete(keys ...[]byte) error {
	if err := s.db.Update(func(txn *badger.Txn) error {
		for _, k := range keys {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	return nil
}
