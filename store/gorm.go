// Package store persists match history.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/bellapacxx/roshambo-backend/game"
	"github.com/bellapacxx/roshambo-backend/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	startedColumns   = []string{"status", "opponent_user_id", "opponent_name", "started_at"}
	completedColumns = []string{"status", "opponent_user_id", "opponent_name", "winner", "winner_user_id",
		"end_reason", "life_one", "life_two", "rounds_played", "ended_at"}
)

// GormStore keeps match records in postgres.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Create(ctx context.Context, rec *models.MatchRecord) error {
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(rec).Error; err != nil {
		return fmt.Errorf("create match %s: %w", rec.ID, err)
	}
	return nil
}

func (s *GormStore) MarkStarted(ctx context.Context, rec *models.MatchRecord) error {
	return s.upsert(ctx, rec, startedColumns)
}

func (s *GormStore) MarkCompleted(ctx context.Context, rec *models.MatchRecord) error {
	return s.upsert(ctx, rec, completedColumns)
}

// upsert writes cols of rec, creating the row if it is missing. Completed rows
// are left alone.
func (s *GormStore) upsert(ctx context.Context, rec *models.MatchRecord, cols []string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.MatchRecord
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&existing, "id = ?", rec.ID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tx.Create(rec).Error
		}
		if err != nil {
			return err
		}
		if existing.Status == models.MatchCompleted {
			return nil
		}
		return tx.Model(&existing).Select(cols).Updates(rec).Error
	})
	if err != nil {
		return fmt.Errorf("write match %s as %s: %w", rec.ID, rec.Status, err)
	}
	return nil
}

// Delete removes a match that never started.
func (s *GormStore) Delete(ctx context.Context, id string) error {
	err := s.db.WithContext(ctx).
		Where("id = ? AND status = ?", id, models.MatchCreated).
		Delete(&models.MatchRecord{}).Error
	if err != nil {
		return fmt.Errorf("delete match %s: %w", id, err)
	}
	return nil
}

func (s *GormStore) Get(ctx context.Context, id string) (*models.MatchRecord, error) {
	var rec models.MatchRecord
	err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, game.ErrMatchNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get match %s: %w", id, err)
	}
	return &rec, nil
}

func (s *GormStore) ListByPlayer(ctx context.Context, userID string, limit int) ([]models.MatchRecord, error) {
	var recs []models.MatchRecord
	err := s.db.WithContext(ctx).
		Where("owner_user_id = ? OR opponent_user_id = ?", userID, userID).
		Order("created_at desc").
		Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("list matches for %s: %w", userID, err)
	}
	return recs, nil
}
