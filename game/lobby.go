package game

import (
	"crypto/rand"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const joinCodeLetters = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// JoinCodeLength is the length of private offer codes.
const JoinCodeLength = 6

// Seat identifies a player taking part in an offer or room.
type Seat struct {
	ConnID      string `json:"-"`
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	AccountRef  string `json:"-"`
	CardBudget  int    `json:"card_budget"`
}

// OfferConfig is what a player asks for when opening a game.
type OfferConfig struct {
	Mode        Mode
	Rounds      int
	MoveTimeout int
	Private     bool
}

// Offer is an open game waiting for an opponent.
type Offer struct {
	ID          string    `json:"id"`
	Owner       Seat      `json:"owner"`
	Mode        Mode      `json:"mode"`
	Rounds      int       `json:"rounds"`
	MoveTimeout int       `json:"move_timeout"`
	Private     bool      `json:"private"`
	JoinCode    string    `json:"join_code,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Limits bounds what an offer may request.
type Limits struct {
	MaxRounds      int
	MaxMoveTimeout int
}

// Lobby is the matchmaking queue of open offers. Each connection owns at most
// one open offer.
type Lobby struct {
	limits  Limits
	mu      sync.Mutex
	offers  map[string]*Offer
	byOwner map[string]string // conn id -> offer id
	byCode  map[string]string // join code -> offer id
	now     func() time.Time
}

func NewLobby(limits Limits) *Lobby {
	return &Lobby{
		limits:  limits,
		offers:  make(map[string]*Offer),
		byOwner: make(map[string]string),
		byCode:  make(map[string]string),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (l *Lobby) validate(owner Seat, cfg OfferConfig) error {
	if strings.TrimSpace(owner.DisplayName) == "" {
		return Invalid("you need to specify the game name")
	}
	if owner.ConnID == "" {
		return Invalid("missing connection")
	}
	switch cfg.Mode {
	case FixedRounds:
		if cfg.Rounds < 1 {
			return Invalid("rounds must be at least 1")
		}
	case AllCards:
		if cfg.Rounds < 0 {
			return Invalid("rounds cannot be negative")
		}
	default:
		return Invalid("game type must be Rounds or All cards")
	}
	if l.limits.MaxRounds > 0 && cfg.Rounds > l.limits.MaxRounds {
		return Invalid(fmt.Sprintf("rounds cannot exceed %d", l.limits.MaxRounds))
	}
	if cfg.MoveTimeout < 1 {
		return Invalid("move timeout must be at least 1 second")
	}
	if l.limits.MaxMoveTimeout > 0 && cfg.MoveTimeout > l.limits.MaxMoveTimeout {
		return Invalid(fmt.Sprintf("move timeout cannot exceed %d seconds", l.limits.MaxMoveTimeout))
	}
	if owner.CardBudget < 0 {
		return Invalid("card budget cannot be negative")
	}
	return nil
}

// CreateOffer opens a new offer owned by owner.ConnID.
func (l *Lobby) CreateOffer(owner Seat, cfg OfferConfig) (Offer, error) {
	if err := l.validate(owner, cfg); err != nil {
		return Offer{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.byOwner[owner.ConnID]; ok {
		return Offer{}, ErrDuplicateOffer
	}

	o := &Offer{
		ID:          uuid.NewString(),
		Owner:       owner,
		Mode:        cfg.Mode,
		Rounds:      cfg.Rounds,
		MoveTimeout: cfg.MoveTimeout,
		Private:     cfg.Private,
		CreatedAt:   l.now(),
	}
	if o.Private {
		code, err := l.uniqueCode()
		if err != nil {
			return Offer{}, External("join_code", err)
		}
		o.JoinCode = code
		l.byCode[code] = o.ID
	}
	l.offers[o.ID] = o
	l.byOwner[owner.ConnID] = o.ID
	return *o, nil
}

func (l *Lobby) uniqueCode() (string, error) {
	for {
		code, err := randomCode(JoinCodeLength)
		if err != nil {
			return "", err
		}
		if _, taken := l.byCode[code]; !taken {
			return code, nil
		}
	}
}

func randomCode(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	for i := range b {
		b[i] = joinCodeLetters[b[i]%byte(len(joinCodeLetters))]
	}
	return string(b), nil
}

// ListPublic returns public offers, oldest first.
func (l *Lobby) ListPublic() []Offer {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Offer, 0, len(l.offers))
	for _, o := range l.offers {
		if !o.Private {
			out = append(out, *o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// RegisterFunc publishes a freshly seated room. It runs under the lobby lock,
// so the room is visible before its offer leaves the lobby. An error keeps the
// offer open.
type RegisterFunc func(*Room) error

// Accept removes a public or private offer by id and seats joiner in a new room.
// register may be nil.
func (l *Lobby) Accept(offerID string, joiner Seat, register RegisterFunc) (Offer, *Room, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.take(offerID, joiner, register)
}

// AcceptCode is Accept for private offers addressed by join code.
func (l *Lobby) AcceptCode(code string, joiner Seat, register RegisterFunc) (Offer, *Room, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	id, ok := l.byCode[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return Offer{}, nil, ErrOfferNotFound
	}
	return l.take(id, joiner, register)
}

func (l *Lobby) take(offerID string, joiner Seat, register RegisterFunc) (Offer, *Room, error) {
	o, ok := l.offers[offerID]
	if !ok {
		return Offer{}, nil, ErrOfferNotFound
	}
	if o.Owner.ConnID == joiner.ConnID {
		return Offer{}, nil, ErrOwnOffer
	}
	if joiner.CardBudget < 0 {
		return Offer{}, nil, Invalid("card budget cannot be negative")
	}
	room := newRoom(*o, joiner, l.now())
	if register != nil {
		if err := register(room); err != nil {
			return Offer{}, nil, err
		}
	}
	l.remove(o)
	return *o, room, nil
}

func newRoom(o Offer, joiner Seat, now time.Time) *Room {
	r := &Room{
		ID:           o.ID,
		Mode:         o.Mode,
		TargetRounds: o.Rounds,
		MoveTimeout:  o.MoveTimeout,
		Private:      o.Private,
		Round:        1,
		CreatedAt:    o.CreatedAt,
		StartedAt:    now,
	}
	r.Players[0] = seatPlayer(o.Owner)
	r.Players[1] = seatPlayer(joiner)
	return r
}

func seatPlayer(s Seat) Player {
	return Player{
		ConnID:      s.ConnID,
		UserID:      s.UserID,
		DisplayName: s.DisplayName,
		AccountRef:  s.AccountRef,
		Budget:      s.CardBudget,
		Life:        StartingLife,
	}
}

// Withdraw drops the offer owned by connID. It reports false when there was none.
func (l *Lobby) Withdraw(connID string) (Offer, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	id, ok := l.byOwner[connID]
	if !ok {
		return Offer{}, false
	}
	o := l.offers[id]
	l.remove(o)
	return *o, true
}

// Expired drops and returns every offer created before cutoff.
func (l *Lobby) Expired(cutoff time.Time) []Offer {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []Offer
	for _, o := range l.offers {
		if o.CreatedAt.Before(cutoff) {
			out = append(out, *o)
			l.remove(o)
		}
	}
	return out
}

func (l *Lobby) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.offers)
}

func (l *Lobby) remove(o *Offer) {
	delete(l.offers, o.ID)
	delete(l.byOwner, o.Owner.ConnID)
	if o.JoinCode != "" {
		delete(l.byCode, o.JoinCode)
	}
}
