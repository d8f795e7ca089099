package services

import (
	"sync"
	"time"
)

// ExpireFunc runs on its own goroutine when a countdown elapses.
type ExpireFunc func(roomID string, token uint64)

type armedTimer struct {
	timer *time.Timer
	token uint64
}

// RoundTimer keeps at most one countdown per room. Every Arm gets a fresh
// token; an expiry only fires if its token is still the armed one.
type RoundTimer struct {
	mu     sync.Mutex
	timers map[string]*armedTimer
	seq    uint64
}

func NewRoundTimer() *RoundTimer {
	return &RoundTimer{timers: make(map[string]*armedTimer)}
}

// Arm replaces any countdown for roomID and returns the new token.
func (rt *RoundTimer) Arm(roomID string, d time.Duration, onExpire ExpireFunc) uint64 {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if old, ok := rt.timers[roomID]; ok {
		old.timer.Stop()
	}
	rt.seq++
	token := rt.seq
	rt.timers[roomID] = &armedTimer{
		token: token,
		timer: time.AfterFunc(d, func() {
			if rt.consume(roomID, token) {
				onExpire(roomID, token)
			}
		}),
	}
	return token
}

// consume removes the entry for roomID if token is still current.
func (rt *RoundTimer) consume(roomID string, token uint64) bool {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	cur, ok := rt.timers[roomID]
	if !ok || cur.token != token {
		return false
	}
	delete(rt.timers, roomID)
	return true
}

// Cancel is safe to call when no countdown is armed.
func (rt *RoundTimer) Cancel(roomID string) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if t, ok := rt.timers[roomID]; ok {
		t.timer.Stop()
		delete(rt.timers, roomID)
	}
}

func (rt *RoundTimer) Active(roomID string) bool {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	_, ok := rt.timers[roomID]
	return ok
}

// Stop cancels every countdown.
func (rt *RoundTimer) Stop() {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	for id, t := range rt.timers {
		t.timer.Stop()
		delete(rt.timers, id)
	}
}
