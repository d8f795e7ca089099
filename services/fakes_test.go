package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bellapacxx/roshambo-backend/game"
	"github.com/bellapacxx/roshambo-backend/models"
	"go.uber.org/zap"
)

var nopLog = zap.NewNop().Sugar()

// recorder is a Notifier that keeps every event.
type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Notify(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) find(kind EventKind, conn string) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Event
	for _, ev := range r.events {
		if ev.Kind != kind {
			continue
		}
		for _, id := range ev.Recipients {
			if id == conn {
				out = append(out, ev)
				break
			}
		}
	}
	return out
}

func (r *recorder) last(t *testing.T, kind EventKind, conn string) Event {
	t.Helper()
	evs := r.find(kind, conn)
	if len(evs) == 0 {
		t.Fatalf("no %s event for %s", kind, conn)
	}
	return evs[len(evs)-1]
}

// waitFor polls until conn has received a kind event.
func (r *recorder) waitFor(t *testing.T, kind EventKind, conn string) Event {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if evs := r.find(kind, conn); len(evs) > 0 {
			return evs[len(evs)-1]
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s to %s", kind, conn)
	return Event{}
}

// memStore is an in-memory MatchStore. When block is set every call waits on it.
type memStore struct {
	mu    sync.Mutex
	ops   []string
	recs  map[string]models.MatchRecord
	fail  error
	block chan struct{}
}

func newMemStore() *memStore {
	return &memStore{recs: make(map[string]models.MatchRecord)}
}

func (m *memStore) record(op string, rec *models.MatchRecord) error {
	if m.block != nil {
		<-m.block
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops = append(m.ops, op+":"+rec.ID)
	if m.fail != nil {
		return m.fail
	}
	if cur, ok := m.recs[rec.ID]; ok && cur.Status == models.MatchCompleted {
		return nil
	}
	if op == "delete" {
		delete(m.recs, rec.ID)
		return nil
	}
	m.recs[rec.ID] = *rec
	return nil
}

func (m *memStore) Create(_ context.Context, rec *models.MatchRecord) error {
	return m.record("create", rec)
}
func (m *memStore) MarkStarted(_ context.Context, rec *models.MatchRecord) error {
	return m.record("start", rec)
}
func (m *memStore) MarkCompleted(_ context.Context, rec *models.MatchRecord) error {
	return m.record("complete", rec)
}
func (m *memStore) Delete(_ context.Context, id string) error {
	return m.record("delete", &models.MatchRecord{ID: id})
}

func (m *memStore) Get(_ context.Context, id string) (*models.MatchRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.recs[id]
	if !ok {
		return nil, game.ErrMatchNotFound
	}
	return &rec, nil
}

func (m *memStore) ListByPlayer(_ context.Context, userID string, _ int) ([]models.MatchRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.MatchRecord
	for _, rec := range m.recs {
		if rec.OwnerUserID == userID || rec.OpponentUserID == userID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (m *memStore) opList() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.ops...)
}

// fakeLedger records debits and fails them when err is set.
type fakeLedger struct {
	mu      sync.Mutex
	debits  []string
	lookups []string
	err     error
}

func (l *fakeLedger) Deduct(_ context.Context, accountRef string, card game.Card) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.debits = append(l.debits, accountRef+":"+string(card))
	return l.err
}

func (l *fakeLedger) Balance(_ context.Context, accountRef string) (Inventory, error) {
	l.mu.Lock()
	l.lookups = append(l.lookups, accountRef)
	l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	return Inventory{game.Rock: 1, game.Paper: 2, game.Scissors: 3}, nil
}

func (l *fakeLedger) Grant(context.Context, string, game.Card, int64) error {
	return errors.New("not supported")
}

func (l *fakeLedger) debitList() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.debits...)
}
