package services

import (
	"context"
	"slices"
	"testing"
	"time"

	"github.com/bellapacxx/roshambo-backend/game"
)

func TestHandleRawRejections(t *testing.T) {
	h := newHarness(t)
	s := Session{ConnID: "c1", Identity: player("c1")}
	ctx := context.Background()

	tests := []struct {
		name string
		raw  string
		code string
	}{
		{"bad json", `{"action":`, "invalid_request"},
		{"unknown action", `{"action":"bingo"}`, "invalid_request"},
		{"bad mode", `{"action":"create-offer","name":"x","mode":"Blitz","move_timeout":5}`, "invalid_request"},
		{"bad card", `{"action":"submit-card","room_id":"r","card":"Lizard"}`, "invalid_request"},
		{"missing room", `{"action":"submit-card","room_id":"r","card":"rock"}`, "room_not_found"},
		{"join without id", `{"action":"join-offer"}`, "invalid_request"},
		{"join without code", `{"action":"join-private-offer"}`, "invalid_request"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := len(h.events.find(EventRejected, "c1"))
			h.e.HandleRaw(ctx, s, []byte(tt.raw))
			evs := h.events.find(EventRejected, "c1")
			if len(evs) != before+1 {
				t.Fatalf("no operation-rejected event")
			}
			if p := evs[len(evs)-1].Payload.(RejectedPayload); p.Code != tt.code {
				t.Fatalf("code = %q (%s), want %q", p.Code, p.Reason, tt.code)
			}
		})
	}
}

func TestHandleDuplicateOffer(t *testing.T) {
	h := newHarness(t)
	s := Session{ConnID: "c1", Identity: player("c1")}
	raw := []byte(`{"action":"create-offer","name":"duel","mode":"Rounds","rounds":3,"move_timeout":15}`)

	h.e.HandleRaw(context.Background(), s, raw)
	h.e.HandleRaw(context.Background(), s, raw)

	created := h.events.last(t, EventRoomCreated, "c1").Payload.(game.Offer)
	if created.Mode != game.FixedRounds || created.Owner.DisplayName != "duel" {
		t.Fatalf("offer = %+v", created)
	}
	rej := h.events.last(t, EventRejected, "c1").Payload.(RejectedPayload)
	if rej.Code != "duplicate_offer" || rej.Action != ActionCreateOffer {
		t.Fatalf("rejection = %+v", rej)
	}
}

func TestHandleListAndWithdraw(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	owner := Session{ConnID: "c1", Identity: player("c1")}
	other := Session{ConnID: "c2", Identity: player("c2")}

	h.e.HandleRaw(ctx, owner, []byte(`{"action":"create-offer","mode":"All cards","move_timeout":15}`))
	h.e.HandleRaw(ctx, other, []byte(`{"action":"list-offers"}`))
	offers := h.events.last(t, EventOffers, "c2").Payload.([]game.Offer)
	if len(offers) != 1 || offers[0].Owner.DisplayName != "player c1" {
		t.Fatalf("offers = %+v", offers)
	}

	h.e.HandleRaw(ctx, owner, []byte(`{"action":"withdraw-offer"}`))
	h.e.HandleRaw(ctx, owner, []byte(`{"action":"withdraw-offer"}`))
	if n := len(h.events.find(EventOfferWithdrawn, "c1")); n != 1 {
		t.Fatalf("offer-withdrawn sent %d times", n)
	}
	if len(h.events.find(EventRejected, "c1")) != 0 {
		t.Fatalf("withdraw was rejected")
	}
}

func TestHandleBalance(t *testing.T) {
	h := newHarness(t)
	s := Session{ConnID: "c1", Identity: player("c1")}

	h.e.HandleRaw(context.Background(), s, []byte(`{"action":"balance"}`))
	bal := h.events.last(t, EventBalance, "c1").Payload.(BalancePayload)
	if bal.AccountRef != "acct-c1" || bal.Inventory[game.Scissors] != 3 {
		t.Fatalf("balance = %+v", bal)
	}
}

func TestHandleChargesSeatedIdentity(t *testing.T) {
	h := newHarness(t)
	room := h.start(t, "c1", "c2", matchOpts{mode: game.FixedRounds, rounds: 3})
	s := Session{ConnID: "c1", Identity: player("c1")}
	ctx := context.Background()

	h.e.HandleRaw(ctx, s, []byte(`{"action":"submit-card","room_id":"`+room+`","card":"rock","account_ref":"acct-victim"}`))
	if n := len(h.events.find(EventRejected, "c1")); n != 0 {
		t.Fatalf("submit rejected %d times", n)
	}
	deadline := time.Now().Add(time.Second)
	for len(h.ledger.debitList()) == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if got := h.ledger.debitList(); !slices.Equal(got, []string{"acct-c1:Rock"}) {
		t.Fatalf("debits = %v, want [acct-c1:Rock]", got)
	}

	h.e.HandleRaw(ctx, s, []byte(`{"action":"balance","account_ref":"acct-victim"}`))
	bal := h.events.last(t, EventBalance, "c1").Payload.(BalancePayload)
	if bal.AccountRef != "acct-c1" {
		t.Fatalf("balance for %q, want acct-c1", bal.AccountRef)
	}
	h.ledger.mu.Lock()
	lookups := append([]string(nil), h.ledger.lookups...)
	h.ledger.mu.Unlock()
	if slices.Contains(lookups, "acct-victim") {
		t.Fatalf("ledger was asked for another account: %v", lookups)
	}
}
