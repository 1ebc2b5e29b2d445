package server

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

type GameStore interface {
	// AmbientGame returns the first game, creating it when none exists.
	AmbientGame(ctx context.Context) (Game, error)
	// FindAmbientGame is AmbientGame without the create.
	FindAmbientGame(ctx context.Context) (Game, bool, error)
	// AddScore atomically adds delta to the game's score and returns the
	// updated game.
	AddScore(ctx context.Context, id uint, delta int) (Game, error)
	ListGames(ctx context.Context) ([]GameSummary, error)
}

type UserStore interface {
	FindUser(ctx context.Context, id uint) (User, bool, error)
	CreateUser(ctx context.Context) (User, error)
	AssignGame(ctx context.Context, userID, gameID uint) error
}

type EventLog interface {
	RecordEvent(ctx context.Context, gameID uint, eventType string, payload EventPayload) error
}

// Store keeps users, games and events in memory. It backs the server when no
// database is configured.
type Store struct {
	mu          sync.Mutex
	nextUserID  uint
	nextGameID  uint
	nextEventID uint
	users       map[uint]User
	games       map[uint]Game
	events      []Event
}

func NewStore() *Store {
	return &Store{
		nextUserID:  1,
		nextGameID:  1,
		nextEventID: 1,
		users:       make(map[uint]User),
		games:       make(map[uint]Game),
	}
}

func (s *Store) CreateGame(name string) Game {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createGameLocked(name)
}

func (s *Store) createGameLocked(name string) Game {
	game := Game{
		ID:   s.nextGameID,
		Name: name,
	}
	s.nextGameID++
	s.games[game.ID] = game
	return game
}

func (s *Store) AmbientGame(ctx context.Context) (Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if game, found := s.firstGameLocked(); found {
		return game, nil
	}
	return s.createGameLocked(ambientGameName), nil
}

func (s *Store) FindAmbientGame(ctx context.Context) (Game, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	game, found := s.firstGameLocked()
	return game, found, nil
}

func (s *Store) firstGameLocked() (Game, bool) {
	var first Game
	found := false
	for _, game := range s.games {
		if !found || game.ID < first.ID {
			first = game
			found = true
		}
	}
	return first, found
}

// GetGame reads a game by id.
func (s *Store) GetGame(ctx context.Context, id uint) (Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	game, ok := s.games[id]
	if !ok {
		return Game{}, ErrGameNotFound
	}
	return game, nil
}

func (s *Store) AddScore(ctx context.Context, id uint, delta int) (Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	game, ok := s.games[id]
	if !ok {
		return Game{}, ErrGameNotFound
	}
	score, err := addScore(game.Score, delta)
	if err != nil {
		return Game{}, err
	}
	game.Score = score
	s.games[id] = game
	return game, nil
}

func (s *Store) ListGames(ctx context.Context) ([]GameSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := make([]GameSummary, 0, len(s.games))
	for _, game := range s.games {
		list = append(list, GameSummary{
			ID:   game.ID,
			Name: game.Name,
		})
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].ID < list[j].ID
	})
	return list, nil
}

func (s *Store) FindUser(ctx context.Context, id uint) (User, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	return user, ok, nil
}

func (s *Store) CreateUser(ctx context.Context) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user := User{ID: s.nextUserID}
	s.nextUserID++
	s.users[user.ID] = user
	return user, nil
}

func (s *Store) AssignGame(ctx context.Context, userID, gameID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return errors.New("user not found")
	}
	if _, ok := s.games[gameID]; !ok {
		return ErrGameNotFound
	}
	id := gameID
	user.GameID = &id
	s.users[userID] = user
	return nil
}

func (s *Store) RecordEvent(ctx context.Context, gameID uint, eventType string, payload EventPayload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, Event{
		ID:        s.nextEventID,
		GameID:    gameID,
		UserID:    payload.UserID,
		Type:      eventType,
		Payload:   payload,
		CreatedAt: timeNowUTC(),
	})
	s.nextEventID++
	return nil
}

func (s *Store) Events(gameID uint) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := make([]Event, 0)
	for _, event := range s.events {
		if event.GameID == gameID {
			list = append(list, event)
		}
	}
	return list
}

func timeNowUTC() time.Time {
	return time.Now().UTC()
}
