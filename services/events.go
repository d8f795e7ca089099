package services

import "github.com/bellapacxx/roshambo-backend/game"

type EventKind string

const (
	EventRoomCreated    EventKind = "room-created"
	EventRoomJoined     EventKind = "room-joined"
	EventCardAccepted   EventKind = "card-accepted"
	EventOpponentPlayed EventKind = "opponent-played"
	EventRoundResult    EventKind = "round-result"
	EventMatchFinished  EventKind = "match-finished"
	EventRejected       EventKind = "operation-rejected"
	EventLedgerFailed   EventKind = "ledger-failed"
	EventOfferWithdrawn EventKind = "offer-withdrawn"
	EventOfferExpired   EventKind = "offer-expired"
	EventOffers         EventKind = "offers"
	EventBalance        EventKind = "balance"
)

// Event is one outbound message addressed to a set of connections.
type Event struct {
	Kind       EventKind `json:"type"`
	Payload    any       `json:"payload"`
	Recipients []string  `json:"-"`
}

// Notifier delivers events to connected players. Implementations must not block.
type Notifier interface {
	Notify(ev Event)
}

type RoundResultPayload struct {
	RoomID string `json:"room_id"`
	game.RoundResult
}

type MatchFinishedPayload struct {
	RoomID       string `json:"room_id"`
	Winner       string `json:"winner"` // one | two | draw
	WinnerUserID string `json:"winner_user_id,omitempty"`
	Reason       string `json:"reason"`
	LifeOne      int    `json:"life_one"`
	LifeTwo      int    `json:"life_two"`
	RoundsPlayed int    `json:"rounds_played"`
}

type RejectedPayload struct {
	Action string `json:"action,omitempty"`
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

type CardAcceptedPayload struct {
	RoomID string    `json:"room_id"`
	Round  int       `json:"round"`
	Card   game.Card `json:"card"`
}

type OpponentPlayedPayload struct {
	RoomID string `json:"room_id"`
	Round  int    `json:"round"`
}

type LedgerFailedPayload struct {
	RoomID string    `json:"room_id"`
	Card   game.Card `json:"card"`
	Code   string    `json:"code"`
	Reason string    `json:"reason"`
}

type BalancePayload struct {
	AccountRef string    `json:"account_ref"`
	Inventory  Inventory `json:"inventory"`
}

// Rejection builds the operation-rejected event for a failed action.
func Rejection(connID, action string, err error) Event {
	return Event{
		Kind:       EventRejected,
		Payload:    RejectedPayload{Action: action, Code: game.CodeOf(err), Reason: err.Error()},
		Recipients: []string{connID},
	}
}
