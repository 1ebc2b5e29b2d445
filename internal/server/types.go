package server

import (
	"fmt"
	"math"
	"time"
)

const ambientGameName = "default"

// Scores are stored in an int4 column.
const (
	minScore = math.MinInt32
	maxScore = math.MaxInt32
)

const (
	eventSubscribed   = "subscribed"
	eventUnsubscribed = "unsubscribed"
)

const (
	commandSubscribe   = "subscribe"
	commandUnsubscribe = "unsubscribe"
	commandScoreUpdate = "scoreUpdate"
	commandPing        = "ping"
)

const (
	replyConfirmSubscription   = "confirm_subscription"
	replyConfirmUnsubscription = "confirm_unsubscription"
	replyPong                  = "pong"
	replyError                 = "error"
)

type User struct {
	ID       uint    `json:"id"`
	Name     string  `json:"name"`
	Position float64 `json:"position"`
	GameID   *uint   `json:"game_id"`
}

type Game struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// GameSummary is the public listing shape. It carries no score.
type GameSummary struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

type Event struct {
	ID        uint
	GameID    uint
	UserID    uint
	Type      string
	Payload   EventPayload
	CreatedAt time.Time
}

// addScore returns score+delta, or ErrInvalidPayload when the total leaves the
// stored range.
func addScore(score, delta int) (int, error) {
	if delta > 0 && score > maxScore-delta || delta < 0 && score < minScore-delta {
		return 0, fmt.Errorf("%w: score is out of range", ErrInvalidPayload)
	}
	return score + delta, nil
}
