package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bellapacxx/roshambo-backend/game"
	"github.com/bellapacxx/roshambo-backend/models"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestPersistenceSyncOrder(t *testing.T) {
	store := newMemStore()
	s := NewPersistenceSync(store, nopLog, 16, time.Second)

	o := game.Offer{ID: "m1", Mode: game.FixedRounds, Rounds: 3, MoveTimeout: 10,
		Owner: game.Seat{UserID: "alice", DisplayName: "alice's game", CardBudget: 4}, CreatedAt: time.Now().UTC()}
	view := game.RoomView{ID: "m1", Mode: game.FixedRounds, TargetRounds: 3,
		PlayerOne: game.Player{UserID: "alice", Life: 4}, PlayerTwo: game.Player{UserID: "bob", Life: 2},
		Terminal: true, Winner: "one", EndReason: game.EndRounds, RoundsPlayed: 3}

	s.RecordCreated(o)
	s.RecordStarted(o, view)
	s.RecordCompleted(view, time.Now().UTC())
	s.RecordWithdrawn("m1")

	if err := s.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
	want := "[create:m1 start:m1 complete:m1 delete:m1]"
	if got := fmt.Sprint(store.opList()); got != want {
		t.Fatalf("ops = %s, want %s", got, want)
	}

	rec, err := store.Get(context.Background(), "m1")
	if err != nil {
		t.Fatalf("completed record deleted: %v", err)
	}
	if rec.WinnerUserID != "alice" || rec.LifeOne != 4 || rec.Status != models.MatchCompleted {
		t.Fatalf("record = %+v", rec)
	}
}

func TestOfferRecord(t *testing.T) {
	o := game.Offer{ID: "m1", Mode: game.AllCards, MoveTimeout: 7, Private: true,
		Owner: game.Seat{UserID: "alice", DisplayName: "duel", CardBudget: 9}}
	rec, err := offerRecord(o)
	if err != nil {
		t.Fatalf("offerRecord: %v", err)
	}
	if rec.ID != "m1" || rec.Mode != "AllCards" || rec.MoveTimeout != 7 || !rec.Private {
		t.Fatalf("copied fields = %+v", rec)
	}
	if rec.OwnerUserID != "alice" || rec.OwnerName != "duel" || rec.Status != models.MatchCreated {
		t.Fatalf("owner fields = %+v", rec)
	}
	if string(rec.Config) == "" {
		t.Fatalf("config not encoded")
	}
}

func TestPersistenceSyncFailuresLogged(t *testing.T) {
	store := newMemStore()
	store.fail = errors.New("database down")
	s := NewPersistenceSync(store, nopLog, 4, time.Second)

	s.RecordWithdrawn("m1")
	s.RecordWithdrawn("m2")
	if err := s.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
	if n := len(store.opList()); n != 2 {
		t.Fatalf("attempted %d writes, want 2", n)
	}
	// writes after close are dropped, not panics
	s.RecordWithdrawn("m3")
}

func TestPersistenceSyncQueueFull(t *testing.T) {
	store := newMemStore()
	store.block = make(chan struct{})
	s := NewPersistenceSync(store, nopLog, 1, time.Second)

	began := time.Now()
	for i := 0; i < 10; i++ {
		s.RecordWithdrawn(fmt.Sprintf("m%d", i))
	}
	if time.Since(began) > 500*time.Millisecond {
		t.Fatalf("recording blocked on a stalled store")
	}
	close(store.block)
	s.Close(context.Background())
	if n := len(store.opList()); n >= 10 {
		t.Fatalf("all %d writes applied; expected drops", n)
	}
}

func TestPersistenceSyncRecordAfterClose(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	store := newMemStore()
	s := NewPersistenceSync(store, zap.New(core).Sugar(), 4, time.Second)

	s.RecordWithdrawn("m1")
	if err := s.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := s.Close(context.Background()); err != nil {
		t.Fatalf("second close: %v", err)
	}

	s.RecordWithdrawn("m2")
	s.RecordCreated(game.Offer{ID: "m3"})

	if n := len(store.opList()); n != 1 {
		t.Fatalf("applied %d writes, want 1", n)
	}
	if n := logs.FilterMessageSnippet("after shutdown").Len(); n != 2 {
		t.Fatalf("logged %d dropped writes, want 2", n)
	}
}
