package services

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestRoundTimerFiresOnce(t *testing.T) {
	rt := NewRoundTimer()
	var fired atomic.Int32
	got := make(chan uint64, 4)

	token := rt.Arm("r1", 5*time.Millisecond, func(id string, tok uint64) {
		fired.Add(1)
		got <- tok
	})

	select {
	case tok := <-got:
		if tok != token {
			t.Fatalf("token = %d, want %d", tok, token)
		}
	case <-time.After(time.Second):
		t.Fatalf("timer never fired")
	}
	time.Sleep(20 * time.Millisecond)
	if fired.Load() != 1 {
		t.Fatalf("fired %d times", fired.Load())
	}
	if rt.Active("r1") {
		t.Fatalf("timer still active after firing")
	}
}

func TestRoundTimerCancel(t *testing.T) {
	rt := NewRoundTimer()
	var fired atomic.Int32

	rt.Arm("r1", 10*time.Millisecond, func(string, uint64) { fired.Add(1) })
	rt.Cancel("r1")
	rt.Cancel("r1")
	rt.Cancel("never-armed")

	time.Sleep(30 * time.Millisecond)
	if fired.Load() != 0 {
		t.Fatalf("cancelled timer fired")
	}
}

func TestRoundTimerRearmReplaces(t *testing.T) {
	rt := NewRoundTimer()
	got := make(chan uint64, 4)
	onExpire := func(_ string, tok uint64) { got <- tok }

	first := rt.Arm("r1", 5*time.Millisecond, onExpire)
	second := rt.Arm("r1", 15*time.Millisecond, onExpire)
	if first == second {
		t.Fatalf("re-arm reused token %d", first)
	}

	select {
	case tok := <-got:
		if tok != second {
			t.Fatalf("fired token %d, want %d", tok, second)
		}
	case <-time.After(time.Second):
		t.Fatalf("timer never fired")
	}
	select {
	case tok := <-got:
		t.Fatalf("replaced timer also fired with %d", tok)
	case <-time.After(30 * time.Millisecond):
	}
}

func TestRoundTimerRoomsIndependent(t *testing.T) {
	rt := NewRoundTimer()
	got := make(chan string, 4)

	rt.Arm("a", 5*time.Millisecond, func(id string, _ uint64) { got <- id })
	rt.Arm("b", 5*time.Millisecond, func(id string, _ uint64) { got <- id })
	rt.Cancel("a")

	select {
	case id := <-got:
		if id != "b" {
			t.Fatalf("fired for %s", id)
		}
	case <-time.After(time.Second):
		t.Fatalf("room b timer never fired")
	}
	rt.Stop()
}
