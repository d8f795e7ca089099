package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bellapacxx/roshambo-backend/config"
	"github.com/bellapacxx/roshambo-backend/game"
	"github.com/bellapacxx/roshambo-backend/models"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Discard})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := config.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func createdRecord(id, owner string) *models.MatchRecord {
	return &models.MatchRecord{
		ID:          id,
		OwnerUserID: owner,
		OwnerName:   "owner " + owner,
		Mode:        string(game.FixedRounds),
		Rounds:      3,
		MoveTimeout: 10,
		Config:      []byte(`{"rounds":3}`),
		Status:      models.MatchCreated,
	}
}

func TestGormStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewGormStore(newTestDB(t))

	if err := s.Create(ctx, createdRecord("m1", "alice")); err != nil {
		t.Fatalf("create: %v", err)
	}
	// a second create is ignored
	if err := s.Create(ctx, createdRecord("m1", "mallory")); err != nil {
		t.Fatalf("duplicate create: %v", err)
	}

	started := time.Now().UTC()
	if err := s.MarkStarted(ctx, &models.MatchRecord{ID: "m1", Status: models.MatchStarted,
		OpponentUserID: "bob", OpponentName: "bob", StartedAt: &started}); err != nil {
		t.Fatalf("start: %v", err)
	}

	ended := started.Add(time.Minute)
	if err := s.MarkCompleted(ctx, &models.MatchRecord{ID: "m1", Status: models.MatchCompleted,
		OpponentUserID: "bob", OpponentName: "bob", Winner: "one", WinnerUserID: "alice",
		EndReason: game.EndRounds, LifeOne: 4, LifeTwo: 2, RoundsPlayed: 3, EndedAt: &ended}); err != nil {
		t.Fatalf("complete: %v", err)
	}

	rec, err := s.Get(ctx, "m1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.OwnerUserID != "alice" || rec.OpponentUserID != "bob" {
		t.Fatalf("players = %s/%s", rec.OwnerUserID, rec.OpponentUserID)
	}
	if rec.Status != models.MatchCompleted || rec.Winner != "one" || rec.LifeOne != 4 || rec.LifeTwo != 2 {
		t.Fatalf("record = %+v", rec)
	}
	if rec.Rounds != 3 || string(rec.Config) != `{"rounds":3}` {
		t.Fatalf("offer settings lost: rounds=%d config=%s", rec.Rounds, rec.Config)
	}
}

func TestGormStoreCompletedIsFinal(t *testing.T) {
	ctx := context.Background()
	s := NewGormStore(newTestDB(t))

	done := &models.MatchRecord{ID: "m2", OwnerUserID: "alice", Status: models.MatchCompleted, Winner: "two", LifeTwo: 5}
	if err := s.MarkCompleted(ctx, done); err != nil {
		t.Fatalf("complete without create: %v", err)
	}
	if err := s.MarkStarted(ctx, &models.MatchRecord{ID: "m2", Status: models.MatchStarted, OpponentUserID: "eve"}); err != nil {
		t.Fatalf("late start: %v", err)
	}
	if err := s.MarkCompleted(ctx, &models.MatchRecord{ID: "m2", Status: models.MatchCompleted, Winner: "one"}); err != nil {
		t.Fatalf("second complete: %v", err)
	}
	if err := s.Delete(ctx, "m2"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	rec, err := s.Get(ctx, "m2")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.Status != models.MatchCompleted || rec.Winner != "two" || rec.OpponentUserID != "" {
		t.Fatalf("completed record changed: %+v", rec)
	}
}

func TestGormStoreDeleteOnlyUnstarted(t *testing.T) {
	ctx := context.Background()
	s := NewGormStore(newTestDB(t))

	s.Create(ctx, createdRecord("open", "alice"))
	s.Create(ctx, createdRecord("live", "alice"))
	s.MarkStarted(ctx, &models.MatchRecord{ID: "live", Status: models.MatchStarted, OpponentUserID: "bob"})

	if err := s.Delete(ctx, "open"); err != nil {
		t.Fatalf("delete open: %v", err)
	}
	if err := s.Delete(ctx, "live"); err != nil {
		t.Fatalf("delete live: %v", err)
	}
	if _, err := s.Get(ctx, "open"); !errors.Is(err, game.ErrMatchNotFound) {
		t.Fatalf("open match still stored: %v", err)
	}
	if _, err := s.Get(ctx, "live"); err != nil {
		t.Fatalf("started match was deleted: %v", err)
	}
}

func TestGormStoreListByPlayer(t *testing.T) {
	ctx := context.Background()
	s := NewGormStore(newTestDB(t))

	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		rec := createdRecord(id, "alice")
		rec.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		s.Create(ctx, rec)
	}
	other := createdRecord("d", "carol")
	other.CreatedAt = base.Add(5 * time.Hour)
	s.Create(ctx, other)
	s.MarkStarted(ctx, &models.MatchRecord{ID: "d", Status: models.MatchStarted, OpponentUserID: "alice"})

	recs, err := s.ListByPlayer(ctx, "alice", 3)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("len = %d, want 3", len(recs))
	}
	if recs[0].ID != "d" || recs[1].ID != "c" {
		t.Fatalf("order = %s,%s,%s; want newest first", recs[0].ID, recs[1].ID, recs[2].ID)
	}
}
