package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
)

// Listener receives broadcast payloads for a game. Deliver must not block;
// it reports whether the payload was accepted.
type Listener interface {
	Deliver(payload []byte) bool
}

type scoreBroadcast struct {
	Score int `json:"score"`
}

// Relay owns the subscription lifecycle and relays score updates to every
// listener of a game. Updates to one game are serialized; different games do
// not contend.
type Relay struct {
	games  GameStore
	users  UserStore
	events EventLog
	hub    *wsHub

	locksMu sync.Mutex
	locks   map[uint]*sync.Mutex
}

func NewRelay(games GameStore, users UserStore, events EventLog) *Relay {
	return &Relay{
		games:  games,
		users:  users,
		events: events,
		hub:    newWSHub(),
		locks:  make(map[uint]*sync.Mutex),
	}
}

// Subscribe resolves the ambient game and registers listener under it.
func (r *Relay) Subscribe(ctx context.Context, user User, listener Listener) (Game, error) {
	game, err := r.games.AmbientGame(ctx)
	if err != nil {
		return Game{}, fmt.Errorf("resolve ambient game: %w", err)
	}
	added := r.hub.Add(game.ID, listener)
	if user.ID != 0 && r.users != nil {
		if err := r.users.AssignGame(ctx, user.ID, game.ID); err != nil {
			log.Printf("assign game failed game_id=%d user_id=%d error=%v", game.ID, user.ID, err)
		}
	}
	if !added {
		return game, nil
	}
	r.recordEvent(ctx, game.ID, eventSubscribed, EventPayload{
		UserID:    user.ID,
		Listeners: r.hub.Count(game.ID),
	})
	log.Printf("subscribed game_id=%d user_id=%d listeners=%d", game.ID, user.ID, r.hub.Count(game.ID))
	return game, nil
}

// Unsubscribe removes listener from the game. It is safe to call more than once.
func (r *Relay) Unsubscribe(ctx context.Context, gameID uint, user User, listener Listener) {
	if !r.hub.Remove(gameID, listener) {
		return
	}
	r.recordEvent(ctx, gameID, eventUnsubscribed, EventPayload{
		UserID:    user.ID,
		Listeners: r.hub.Count(gameID),
	})
	log.Printf("unsubscribed game_id=%d user_id=%d listeners=%d", gameID, user.ID, r.hub.Count(gameID))
}

// ScoreUpdate validates data, adds its score to the game and broadcasts the
// new total to every listener of the game, the sender included. Invalid data
// leaves the score untouched and broadcasts nothing.
func (r *Relay) ScoreUpdate(ctx context.Context, gameID uint, data json.RawMessage) (int, error) {
	delta, err := decodeScoreUpdate(data)
	if err != nil {
		return 0, err
	}

	lock := r.gameLock(gameID)
	lock.Lock()
	defer lock.Unlock()

	game, err := r.games.AddScore(ctx, gameID, delta)
	if err != nil {
		return 0, fmt.Errorf("update score game_id=%d: %w", gameID, err)
	}
	delivered := r.hub.Broadcast(game.ID, scoreBroadcast{Score: game.Score})
	log.Printf("score updated game_id=%d delta=%d score=%d delivered=%d", game.ID, delta, game.Score, delivered)
	return game.Score, nil
}

func (r *Relay) Listeners(gameID uint) int {
	return r.hub.Count(gameID)
}

func (r *Relay) gameLock(gameID uint) *sync.Mutex {
	r.locksMu.Lock()
	defer r.locksMu.Unlock()
	lock := r.locks[gameID]
	if lock == nil {
		lock = &sync.Mutex{}
		r.locks[gameID] = lock
	}
	return lock
}

func (r *Relay) recordEvent(ctx context.Context, gameID uint, eventType string, payload EventPayload) {
	if r.events == nil {
		return
	}
	if err := r.events.RecordEvent(ctx, gameID, eventType, payload); err != nil {
		log.Printf("record event failed game_id=%d type=%s error=%v", gameID, eventType, err)
	}
}
