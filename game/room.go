package game

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// StartingLife is every player's life total when a room opens.
const StartingLife = 3

type Mode string

const (
	FixedRounds Mode = "FixedRounds"
	AllCards    Mode = "AllCards"
)

// ParseMode also accepts the labels older clients send ("Rounds", "All cards").
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), " ", "")) {
	case "fixedrounds", "rounds":
		return FixedRounds, nil
	case "allcards":
		return AllCards, nil
	}
	return "", Invalid("game type must be Rounds or All cards")
}

type Slot int

const (
	NoSlot Slot = iota
	SlotOne
	SlotTwo
)

func (s Slot) String() string {
	switch s {
	case SlotOne:
		return "one"
	case SlotTwo:
		return "two"
	}
	return ""
}

func (s Slot) Opponent() Slot {
	switch s {
	case SlotOne:
		return SlotTwo
	case SlotTwo:
		return SlotOne
	}
	return NoSlot
}

// End reasons recorded on terminal rooms.
const (
	EndLife    = "life"
	EndRounds  = "rounds"
	EndCards   = "cards"
	EndTimeout = "timeout"
	EndLeft    = "left"
)

type Player struct {
	ConnID      string `json:"-"`
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	AccountRef  string `json:"-"`
	Budget      int    `json:"card_budget"`
	Life        int    `json:"life"`
	CardsPlayed int    `json:"cards_played"`
	Pending     Card   `json:"-"`
}

func (p *Player) hasPending() bool { return p.Pending != "" }

// Room is one live match between two seated players. All fields are guarded by
// the room lock; callers take it with Lock before using any method.
type Room struct {
	ID           string
	Mode         Mode
	TargetRounds int
	MoveTimeout  int
	Private      bool
	Players      [2]Player
	Round        int
	RoundsPlayed int
	Terminal     bool
	Winner       Slot
	EndReason    string
	CreatedAt    time.Time
	StartedAt    time.Time
	EndedAt      time.Time

	// TimerToken identifies the countdown armed for the current round.
	TimerToken uint64

	mu sync.Mutex
}

func (r *Room) Lock()   { r.mu.Lock() }
func (r *Room) Unlock() { r.mu.Unlock() }

func (r *Room) Player(s Slot) *Player {
	switch s {
	case SlotOne:
		return &r.Players[0]
	case SlotTwo:
		return &r.Players[1]
	}
	return nil
}

func (r *Room) SlotOf(connID string) Slot {
	switch connID {
	case r.Players[0].ConnID:
		return SlotOne
	case r.Players[1].ConnID:
		return SlotTwo
	}
	return NoSlot
}

// ConnIDs returns both players' connection ids, player one first.
func (r *Room) ConnIDs() []string {
	return []string{r.Players[0].ConnID, r.Players[1].ConnID}
}

func (r *Room) PendingCount() int {
	n := 0
	for i := range r.Players {
		if r.Players[i].hasPending() {
			n++
		}
	}
	return n
}

type RoundResult struct {
	Round    int     `json:"round"`
	CardOne  Card    `json:"card_one"`
	CardTwo  Card    `json:"card_two"`
	Outcome  Outcome `json:"-"`
	Summary  string  `json:"summary"`
	LifeOne  int     `json:"life_one"`
	LifeTwo  int     `json:"life_two"`
	Finished bool    `json:"finished"`
}

type SubmitResult struct {
	// FirstOfRound is set when the play opened the round's first pending slot.
	FirstOfRound bool
	// Replaced is set when the slot already had a pending card this round.
	Replaced bool
	// Round is non-nil when the play completed the round.
	Round *RoundResult
}

// Submit records a card for slot and resolves the round once both slots are
// filled. A slot may replace its own pending card until the opponent plays.
func (r *Room) Submit(slot Slot, card Card) (SubmitResult, error) {
	var res SubmitResult
	if r.Terminal {
		return res, ErrRoomTerminal
	}
	p := r.Player(slot)
	if p == nil {
		return res, ErrInvalidSlot
	}
	if !card.Valid() {
		return res, Invalid(fmt.Sprintf("unknown card %q", card))
	}

	res.Replaced = p.hasPending()
	res.FirstOfRound = !res.Replaced && r.PendingCount() == 0
	p.Pending = card

	if r.PendingCount() == 2 {
		round := r.resolve()
		res.Round = &round
	}
	return res, nil
}

func (r *Room) resolve() RoundResult {
	one, two := &r.Players[0], &r.Players[1]
	res := RoundResult{
		Round:   r.Round,
		CardOne: one.Pending,
		CardTwo: two.Pending,
		Outcome: Resolve(one.Pending, two.Pending),
		Summary: Summary(one.Pending, two.Pending),
	}

	r.RoundsPlayed++
	one.CardsPlayed++
	two.CardsPlayed++

	switch res.Outcome {
	case PlayerOneWins:
		one.Life++
		two.Life = max(two.Life-1, 0)
	case PlayerTwoWins:
		two.Life++
		one.Life = max(one.Life-1, 0)
	}
	one.Pending, two.Pending = "", ""

	switch {
	case one.Life == 0:
		r.finish(SlotTwo, EndLife)
	case two.Life == 0:
		r.finish(SlotOne, EndLife)
	case r.TargetRounds > 0 && r.RoundsPlayed >= r.TargetRounds:
		r.finish(r.leader(), EndRounds)
	case budgetSpent(one) || budgetSpent(two):
		r.finish(r.leader(), EndCards)
	default:
		r.Round++
	}

	res.LifeOne, res.LifeTwo = one.Life, two.Life
	res.Finished = r.Terminal
	return res
}

func budgetSpent(p *Player) bool {
	return p.Budget > 0 && p.CardsPlayed >= p.Budget
}

// leader is the slot with more life, or NoSlot on a tie.
func (r *Room) leader() Slot {
	switch {
	case r.Players[0].Life > r.Players[1].Life:
		return SlotOne
	case r.Players[1].Life > r.Players[0].Life:
		return SlotTwo
	}
	return NoSlot
}

func (r *Room) finish(winner Slot, reason string) {
	r.Terminal = true
	r.Winner = winner
	r.EndReason = reason
	r.EndedAt = time.Now().UTC()
}

// Timeout ends the match because the round clock ran out. A player who did not
// play loses; when neither played the match is a draw.
func (r *Room) Timeout() error {
	if r.Terminal {
		return ErrRoomTerminal
	}
	one, two := r.Players[0].hasPending(), r.Players[1].hasPending()
	switch {
	case one && !two:
		r.finish(SlotOne, EndTimeout)
	case two && !one:
		r.finish(SlotTwo, EndTimeout)
	default:
		r.finish(NoSlot, EndTimeout)
	}
	r.Players[0].Pending, r.Players[1].Pending = "", ""
	return nil
}

// Forfeit ends the match with the leaving slot's opponent as winner.
func (r *Room) Forfeit(leaver Slot) error {
	if r.Terminal {
		return ErrRoomTerminal
	}
	if leaver == NoSlot {
		return ErrInvalidSlot
	}
	r.finish(leaver.Opponent(), EndLeft)
	return nil
}

// RoomView is the client-facing snapshot of a room.
type RoomView struct {
	ID           string    `json:"id"`
	Mode         Mode      `json:"mode"`
	TargetRounds int       `json:"rounds"`
	MoveTimeout  int       `json:"move_timeout"`
	Round        int       `json:"round"`
	RoundsPlayed int       `json:"rounds_played"`
	PlayerOne    Player    `json:"player_one"`
	PlayerTwo    Player    `json:"player_two"`
	Terminal     bool      `json:"terminal"`
	Winner       string    `json:"winner,omitempty"`
	EndReason    string    `json:"end_reason,omitempty"`
	StartedAt    time.Time `json:"started_at"`
}

func (r *Room) View() RoomView {
	return RoomView{
		ID:           r.ID,
		Mode:         r.Mode,
		TargetRounds: r.TargetRounds,
		MoveTimeout:  r.MoveTimeout,
		Round:        r.Round,
		RoundsPlayed: r.RoundsPlayed,
		PlayerOne:    r.Players[0],
		PlayerTwo:    r.Players[1],
		Terminal:     r.Terminal,
		Winner:       r.Winner.String(),
		EndReason:    r.EndReason,
		StartedAt:    r.StartedAt,
	}
}
