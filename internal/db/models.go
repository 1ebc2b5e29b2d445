package db

import (
	"time"

	"gorm.io/datatypes"
)

type User struct {
	ID        uint    `gorm:"primaryKey"`
	Name      string  `gorm:"size:64"`
	Position  float64 `gorm:"not null;default:0"`
	GameID    *uint   `gorm:"index"`
	Game      *Game
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

type Game struct {
	ID        uint      `gorm:"primaryKey"`
	Name      string    `gorm:"size:64;uniqueIndex;not null"`
	Score     int       `gorm:"not null;default:0"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
	Users     []User
	Events    []Event
}

// Event is a connection lifecycle record. Score changes are not logged here.
type Event struct {
	ID        uint           `gorm:"primaryKey"`
	GameID    uint           `gorm:"index;not null"`
	UserID    *uint          `gorm:"index"`
	Type      string         `gorm:"size:64;not null"`
	Payload   datatypes.JSON `gorm:"type:jsonb;not null"`
	CreatedAt time.Time      `gorm:"not null"`
}
