package server

import (
	"context"
	"encoding/json"
	"errors"

	"scoreboard/internal/db"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// gormStore implements GameStore, UserStore and EventLog on Postgres.
type gormStore struct {
	db *gorm.DB
}

func newGormStore(conn *gorm.DB) *gormStore {
	return &gormStore{db: conn}
}

func (s *gormStore) AmbientGame(ctx context.Context) (Game, error) {
	game, found, err := s.FindAmbientGame(ctx)
	if err != nil {
		return Game{}, err
	}
	if found {
		return game, nil
	}
	record := db.Game{Name: ambientGameName}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		if !isUniqueViolation(err) {
			return Game{}, err
		}
		// Another connection created it first.
		if err := s.db.WithContext(ctx).Where("name = ?", ambientGameName).First(&record).Error; err != nil {
			return Game{}, err
		}
	}
	return gameFromRecord(record), nil
}

func (s *gormStore) FindAmbientGame(ctx context.Context) (Game, bool, error) {
	var record db.Game
	if err := s.db.WithContext(ctx).Order("id").First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Game{}, false, nil
		}
		return Game{}, false, err
	}
	return gameFromRecord(record), true, nil
}

func (s *gormStore) AddScore(ctx context.Context, id uint, delta int) (Game, error) {
	var record db.Game
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&record, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrGameNotFound
			}
			return err
		}
		score, err := addScore(record.Score, delta)
		if err != nil {
			return err
		}
		record.Score = score
		return tx.Model(&db.Game{}).Where("id = ?", record.ID).Update("score", record.Score).Error
	})
	if err != nil {
		return Game{}, err
	}
	return gameFromRecord(record), nil
}

func (s *gormStore) ListGames(ctx context.Context) ([]GameSummary, error) {
	var records []db.Game
	if err := s.db.WithContext(ctx).Select("id", "name").Order("id").Find(&records).Error; err != nil {
		return nil, err
	}
	list := make([]GameSummary, 0, len(records))
	for _, record := range records {
		list = append(list, GameSummary{
			ID:   record.ID,
			Name: record.Name,
		})
	}
	return list, nil
}

func (s *gormStore) FindUser(ctx context.Context, id uint) (User, bool, error) {
	var record db.User
	if err := s.db.WithContext(ctx).First(&record, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return User{}, false, nil
		}
		return User{}, false, err
	}
	return userFromRecord(record), true, nil
}

func (s *gormStore) CreateUser(ctx context.Context) (User, error) {
	record := db.User{}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return User{}, err
	}
	return userFromRecord(record), nil
}

func (s *gormStore) AssignGame(ctx context.Context, userID, gameID uint) error {
	return s.db.WithContext(ctx).
		Model(&db.User{}).
		Where("id = ?", userID).
		Update("game_id", gameID).Error
}

func (s *gormStore) RecordEvent(ctx context.Context, gameID uint, eventType string, payload EventPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	event := db.Event{
		GameID:  gameID,
		Type:    eventType,
		Payload: datatypes.JSON(data),
	}
	if payload.UserID != 0 {
		userID := payload.UserID
		event.UserID = &userID
	}
	return s.db.WithContext(ctx).Create(&event).Error
}

func gameFromRecord(record db.Game) Game {
	return Game{
		ID:    record.ID,
		Name:  record.Name,
		Score: record.Score,
	}
}

func userFromRecord(record db.User) User {
	user := User{
		ID:       record.ID,
		Name:     record.Name,
		Position: record.Position,
	}
	if record.GameID != nil {
		gameID := *record.GameID
		user.GameID = &gameID
	}
	return user
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
