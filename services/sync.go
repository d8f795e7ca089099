package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/bellapacxx/roshambo-backend/game"
	"github.com/bellapacxx/roshambo-backend/models"
	"github.com/jinzhu/copier"
	"go.uber.org/zap"
)

// MatchStore is the durable home of match history.
type MatchStore interface {
	Create(ctx context.Context, rec *models.MatchRecord) error
	MarkStarted(ctx context.Context, rec *models.MatchRecord) error
	MarkCompleted(ctx context.Context, rec *models.MatchRecord) error
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*models.MatchRecord, error)
	ListByPlayer(ctx context.Context, userID string, limit int) ([]models.MatchRecord, error)
}

type syncOp int

const (
	opCreated syncOp = iota
	opStarted
	opCompleted
	opWithdrawn
)

func (o syncOp) String() string {
	return [...]string{"created", "started", "completed", "withdrawn"}[o]
}

type syncJob struct {
	op  syncOp
	rec models.MatchRecord
}

// PersistenceSync writes match history in the background. Writes are applied in
// the order they were recorded; when the queue is full a write is dropped.
type PersistenceSync struct {
	store   MatchStore
	log     *zap.SugaredLogger
	timeout time.Duration
	done    chan struct{}

	mu     sync.Mutex
	closed bool
	queue  chan syncJob
}

func NewPersistenceSync(store MatchStore, log *zap.SugaredLogger, queueSize int, timeout time.Duration) *PersistenceSync {
	s := &PersistenceSync{
		store:   store,
		log:     log,
		timeout: timeout,
		queue:   make(chan syncJob, queueSize),
		done:    make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *PersistenceSync) run() {
	defer close(s.done)
	for job := range s.queue {
		s.apply(job)
	}
}

func (s *PersistenceSync) apply(job syncJob) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Errorf("[Sync %s] recovered from panic: %v", job.rec.ID, r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	var err error
	switch job.op {
	case opCreated:
		err = s.store.Create(ctx, &job.rec)
	case opStarted:
		err = s.store.MarkStarted(ctx, &job.rec)
	case opCompleted:
		err = s.store.MarkCompleted(ctx, &job.rec)
	case opWithdrawn:
		err = s.store.Delete(ctx, job.rec.ID)
	}
	if err != nil {
		s.log.Errorf("[Sync %s] %s write failed: %v", job.rec.ID, job.op, err)
		return
	}
	s.log.Debugf("[Sync %s] %s", job.rec.ID, job.op)
}

func (s *PersistenceSync) enqueue(op syncOp, rec models.MatchRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		s.log.Warnf("[Sync %s] dropped %s write after shutdown", rec.ID, op)
		return
	}
	select {
	case s.queue <- syncJob{op: op, rec: rec}:
	default:
		s.log.Warnf("[Sync %s] queue full, dropped %s write", rec.ID, op)
	}
}

func (s *PersistenceSync) RecordCreated(o game.Offer) {
	s.enqueue(opCreated, s.offerRecord(o))
}

func (s *PersistenceSync) RecordStarted(o game.Offer, v game.RoomView) {
	rec := s.offerRecord(o)
	rec.Status = models.MatchStarted
	rec.OpponentUserID = v.PlayerTwo.UserID
	rec.OpponentName = v.PlayerTwo.DisplayName
	started := v.StartedAt
	rec.StartedAt = &started
	s.enqueue(opStarted, rec)
}

func (s *PersistenceSync) RecordCompleted(v game.RoomView, endedAt time.Time) {
	rec := models.MatchRecord{
		ID:             v.ID,
		OwnerUserID:    v.PlayerOne.UserID,
		OwnerName:      v.PlayerOne.DisplayName,
		OpponentUserID: v.PlayerTwo.UserID,
		OpponentName:   v.PlayerTwo.DisplayName,
		Mode:           string(v.Mode),
		Rounds:         v.TargetRounds,
		MoveTimeout:    v.MoveTimeout,
		Status:         models.MatchCompleted,
		Winner:         winnerLabel(v.Winner),
		WinnerUserID:   winnerUserID(v),
		EndReason:      v.EndReason,
		LifeOne:        v.PlayerOne.Life,
		LifeTwo:        v.PlayerTwo.Life,
		RoundsPlayed:   v.RoundsPlayed,
		EndedAt:        &endedAt,
	}
	s.enqueue(opCompleted, rec)
}

func (s *PersistenceSync) RecordWithdrawn(offerID string) {
	s.enqueue(opWithdrawn, models.MatchRecord{ID: offerID})
}

// Close stops accepting writes and waits for the queue to drain or ctx to end.
func (s *PersistenceSync) Close(ctx context.Context) error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// offerRecord logs a failed field copy and still returns the owner and status
// fields, which are set by hand.
func (s *PersistenceSync) offerRecord(o game.Offer) models.MatchRecord {
	rec, err := offerRecord(o)
	if err != nil {
		s.log.Errorf("[Sync %s] %v", o.ID, err)
	}
	return rec
}

func offerRecord(o game.Offer) (models.MatchRecord, error) {
	var rec models.MatchRecord
	// ID, Mode, Rounds, MoveTimeout, Private and CreatedAt share names
	copyErr := copier.Copy(&rec, &o)
	rec.OwnerUserID = o.Owner.UserID
	rec.OwnerName = o.Owner.DisplayName
	rec.Status = models.MatchCreated
	rec.Config, _ = json.Marshal(map[string]any{
		"mode":         o.Mode,
		"rounds":       o.Rounds,
		"move_timeout": o.MoveTimeout,
		"private":      o.Private,
		"card_budget":  o.Owner.CardBudget,
	})
	if copyErr != nil {
		return rec, fmt.Errorf("copy offer fields: %w", copyErr)
	}
	return rec, nil
}

func winnerLabel(w string) string {
	if w == "" {
		return "draw"
	}
	return w
}

func winnerUserID(v game.RoomView) string {
	switch v.Winner {
	case game.SlotOne.String():
		return v.PlayerOne.UserID
	case game.SlotTwo.String():
		return v.PlayerTwo.UserID
	}
	return ""
}
