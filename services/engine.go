package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bellapacxx/roshambo-backend/game"
	"go.uber.org/zap"
)

type EngineConfig struct {
	// MoveGrace is added to every round's move timeout.
	MoveGrace time.Duration
	// TimeoutUnit scales an offer's move timeout. Defaults to a second.
	TimeoutUnit   time.Duration
	LedgerTimeout time.Duration
	OfferTTL      time.Duration
	Limits        game.Limits
}

// Engine runs every live match. Each room is mutated only under its own lock,
// and nothing blocking happens while that lock is held: events, ledger calls
// and persistence are dispatched after it is released.
type Engine struct {
	cfg      EngineConfig
	rooms    *Registry
	lobby    *game.Lobby
	timers   *RoundTimer
	notifier Notifier
	ledger   Ledger
	sync     *PersistenceSync
	log      *zap.SugaredLogger
}

// NewEngine builds an engine. ledger may be nil to run without inventory.
func NewEngine(cfg EngineConfig, notifier Notifier, ledger Ledger, sync *PersistenceSync, log *zap.SugaredLogger) *Engine {
	if cfg.TimeoutUnit <= 0 {
		cfg.TimeoutUnit = time.Second
	}
	if cfg.LedgerTimeout <= 0 {
		cfg.LedgerTimeout = 5 * time.Second
	}
	return &Engine{
		cfg:      cfg,
		rooms:    NewRegistry(),
		lobby:    game.NewLobby(cfg.Limits),
		timers:   NewRoundTimer(),
		notifier: notifier,
		ledger:   ledger,
		sync:     sync,
		log:      log,
	}
}

type CreateOfferRequest struct {
	ConnID      string
	Identity    Identity
	Name        string
	Mode        game.Mode
	Rounds      int
	MoveTimeout int
	Private     bool
	CardBudget  int
}

type JoinOfferRequest struct {
	ConnID     string
	Identity   Identity
	OfferID    string
	JoinCode   string
	CardBudget int
}

// SubmitCardRequest carries no ledger account: plays are charged to the
// account of the identity that was seated.
type SubmitCardRequest struct {
	ConnID string
	RoomID string
	Card   game.Card
}

type RoomJoinedPayload struct {
	Room game.RoomView `json:"room"`
	// Slot is the recipient's seat.
	Slot string `json:"slot"`
}

func seatFor(connID string, id Identity, name string, budget int) game.Seat {
	if strings.TrimSpace(name) == "" {
		name = id.DisplayName
	}
	return game.Seat{
		ConnID:      connID,
		UserID:      id.UserID,
		DisplayName: name,
		AccountRef:  id.AccountRef,
		CardBudget:  budget,
	}
}

// CreateOffer opens a game in the lobby for req.ConnID.
func (e *Engine) CreateOffer(_ context.Context, req CreateOfferRequest) (game.Offer, error) {
	seat := seatFor(req.ConnID, req.Identity, req.Name, req.CardBudget)
	o, err := e.lobby.CreateOffer(seat, game.OfferConfig{
		Mode:        req.Mode,
		Rounds:      req.Rounds,
		MoveTimeout: req.MoveTimeout,
		Private:     req.Private,
	})
	if err != nil {
		return game.Offer{}, err
	}

	e.log.Infof("[Offer %s] created by %s (mode=%s rounds=%d private=%v)", o.ID, seat.UserID, o.Mode, o.Rounds, o.Private)
	e.sync.RecordCreated(o)
	e.notifier.Notify(Event{Kind: EventRoomCreated, Payload: o, Recipients: []string{req.ConnID}})
	return o, nil
}

func (e *Engine) ListOffers() []game.Offer {
	return e.lobby.ListPublic()
}

// JoinOffer accepts an open offer by id, or by join code when one is given.
func (e *Engine) JoinOffer(_ context.Context, req JoinOfferRequest) (game.RoomView, error) {
	seat := seatFor(req.ConnID, req.Identity, "", req.CardBudget)

	var (
		offer game.Offer
		room  *game.Room
		err   error
	)
	// The room is registered, and left locked, before the offer leaves the
	// lobby, so a disconnecting owner always finds one or the other.
	register := func(r *game.Room) error {
		r.Lock()
		if _, err := e.rooms.Create(r); err != nil {
			r.Unlock()
			e.log.Errorf("[Room %s] could not register: %v", r.ID, err)
			return err
		}
		return nil
	}
	if req.JoinCode != "" {
		offer, room, err = e.lobby.AcceptCode(req.JoinCode, seat, register)
	} else {
		offer, room, err = e.lobby.Accept(req.OfferID, seat, register)
	}
	if err != nil {
		return game.RoomView{}, err
	}

	e.armLocked(room)
	view := room.View()
	conns := room.ConnIDs()
	room.Unlock()

	e.log.Infof("[Room %s] %s joined %s", view.ID, view.PlayerTwo.UserID, view.PlayerOne.UserID)
	e.sync.RecordStarted(offer, view)
	e.notifier.Notify(Event{Kind: EventRoomJoined, Payload: RoomJoinedPayload{Room: view, Slot: game.SlotOne.String()}, Recipients: conns[:1]})
	e.notifier.Notify(Event{Kind: EventRoomJoined, Payload: RoomJoinedPayload{Room: view, Slot: game.SlotTwo.String()}, Recipients: conns[1:]})
	return view, nil
}

// SubmitCard plays a card for the caller's seat in req.RoomID.
func (e *Engine) SubmitCard(_ context.Context, req SubmitCardRequest) error {
	room, err := e.rooms.Get(req.RoomID)
	if err != nil {
		return err
	}

	room.Lock()
	slot := room.SlotOf(req.ConnID)
	round := room.Round
	res, err := room.Submit(slot, req.Card)
	if err != nil {
		room.Unlock()
		return err
	}

	accountRef := room.Player(slot).AccountRef
	conns := room.ConnIDs()
	opponent := room.Player(slot.Opponent()).ConnID

	events := []Event{{
		Kind:       EventCardAccepted,
		Payload:    CardAcceptedPayload{RoomID: room.ID, Round: round, Card: req.Card},
		Recipients: []string{req.ConnID},
	}}
	var done *finished
	switch {
	case res.Round != nil:
		e.timers.Cancel(room.ID)
		events = append(events, Event{
			Kind:       EventRoundResult,
			Payload:    RoundResultPayload{RoomID: room.ID, RoundResult: *res.Round},
			Recipients: conns,
		})
		if res.Round.Finished {
			done = e.finishLocked(room)
		} else {
			e.armLocked(room)
		}
	case res.FirstOfRound:
		// the opponent's clock restarts once a round has its first card
		e.armLocked(room)
		events = append(events, Event{
			Kind:       EventOpponentPlayed,
			Payload:    OpponentPlayedPayload{RoomID: room.ID, Round: round},
			Recipients: []string{opponent},
		})
	}
	room.Unlock()

	e.log.Debugf("[Room %s] %s played round %d", req.RoomID, slot, round)
	e.deduct(req.RoomID, req.ConnID, accountRef, req.Card)
	for _, ev := range events {
		e.notifier.Notify(ev)
	}
	e.complete(done)
	return nil
}

// LeaveMatch forfeits the caller's seat. Leaving a finished or unknown room is a no-op.
func (e *Engine) LeaveMatch(_ context.Context, roomID, connID string) error {
	room, err := e.rooms.Get(roomID)
	if err != nil {
		return nil
	}

	room.Lock()
	if room.Terminal {
		room.Unlock()
		return nil
	}
	slot := room.SlotOf(connID)
	if err := room.Forfeit(slot); err != nil {
		room.Unlock()
		return err
	}
	done := e.finishLocked(room)
	room.Unlock()

	e.log.Infof("[Room %s] %s left", roomID, slot)
	e.complete(done)
	return nil
}

// WithdrawOffer drops the caller's open offer. It reports whether there was one.
func (e *Engine) WithdrawOffer(_ context.Context, connID string) bool {
	o, ok := e.lobby.Withdraw(connID)
	if !ok {
		return false
	}
	e.log.Infof("[Offer %s] withdrawn", o.ID)
	e.sync.RecordWithdrawn(o.ID)
	e.notifier.Notify(Event{Kind: EventOfferWithdrawn, Payload: o, Recipients: []string{connID}})
	return true
}

// Disconnect cleans up after a connection: its open offer is withdrawn and
// every match it sits in is forfeited.
func (e *Engine) Disconnect(ctx context.Context, connID string) {
	if o, ok := e.lobby.Withdraw(connID); ok {
		e.log.Infof("[Offer %s] owner disconnected", o.ID)
		e.sync.RecordWithdrawn(o.ID)
	}
	for _, room := range e.rooms.ForConn(connID) {
		if err := e.LeaveMatch(ctx, room.ID, connID); err != nil {
			e.log.Warnf("[Room %s] leave on disconnect: %v", room.ID, err)
		}
	}
}

// ExpireOffers drops offers older than the configured TTL and returns how many.
// Tombstones of rooms that ended more than a TTL ago are forgotten too.
func (e *Engine) ExpireOffers(now time.Time) int {
	if e.cfg.OfferTTL <= 0 {
		return 0
	}
	e.rooms.Prune(now.Add(-e.cfg.OfferTTL))
	expired := e.lobby.Expired(now.Add(-e.cfg.OfferTTL))
	for _, o := range expired {
		e.sync.RecordWithdrawn(o.ID)
		e.notifier.Notify(Event{Kind: EventOfferExpired, Payload: o, Recipients: []string{o.Owner.ConnID}})
	}
	return len(expired)
}

var errLedgerDisabled = &game.Error{Kind: game.KindExternal, Code: "ledger_disabled", Message: "card inventory is not configured"}

func (e *Engine) Balance(ctx context.Context, accountRef string) (Inventory, error) {
	if e.ledger == nil {
		return nil, errLedgerDisabled
	}
	if accountRef == "" {
		return nil, game.Invalid("account reference is required")
	}
	inv, err := e.ledger.Balance(ctx, accountRef)
	if err != nil {
		return nil, game.External("ledger_unavailable", err)
	}
	return inv, nil
}

// Reject tells connID that action failed.
func (e *Engine) Reject(connID, action string, err error) {
	e.notifier.Notify(Rejection(connID, action, err))
}

type EngineStats struct {
	Rooms  int `json:"rooms"`
	Offers int `json:"offers"`
}

func (e *Engine) Stats() EngineStats {
	return EngineStats{Rooms: e.rooms.Len(), Offers: e.lobby.Len()}
}

// Close stops all round timers and drains pending persistence writes.
func (e *Engine) Close(ctx context.Context) error {
	e.timers.Stop()
	return e.sync.Close(ctx)
}

func (e *Engine) roundDuration(room *game.Room) time.Duration {
	return time.Duration(room.MoveTimeout)*e.cfg.TimeoutUnit + e.cfg.MoveGrace
}

func (e *Engine) armLocked(room *game.Room) {
	room.TimerToken = e.timers.Arm(room.ID, e.roundDuration(room), e.timeoutExpire)
}

// timeoutExpire runs when a round's clock runs out. The room is looked up
// again; a stale token means the round moved on and nothing happens.
func (e *Engine) timeoutExpire(roomID string, token uint64) {
	room, err := e.rooms.Get(roomID)
	if err != nil {
		return
	}

	room.Lock()
	if room.Terminal || room.TimerToken != token {
		room.Unlock()
		return
	}
	if err := room.Timeout(); err != nil {
		room.Unlock()
		return
	}
	done := e.finishLocked(room)
	room.Unlock()

	e.log.Infof("[Room %s] round %d timed out", roomID, done.view.Round)
	e.complete(done)
}

type finished struct {
	view    game.RoomView
	endedAt time.Time
	conns   []string
}

// finishLocked tears down a room that just turned terminal.
func (e *Engine) finishLocked(room *game.Room) *finished {
	e.timers.Cancel(room.ID)
	e.rooms.Remove(room.ID)
	return &finished{view: room.View(), endedAt: room.EndedAt, conns: room.ConnIDs()}
}

func (e *Engine) complete(f *finished) {
	if f == nil {
		return
	}
	v := f.view
	e.log.Infof("[Room %s] finished: winner=%s reason=%s life=%d/%d", v.ID, winnerLabel(v.Winner), v.EndReason, v.PlayerOne.Life, v.PlayerTwo.Life)
	e.sync.RecordCompleted(v, f.endedAt)
	e.notifier.Notify(Event{
		Kind: EventMatchFinished,
		Payload: MatchFinishedPayload{
			RoomID:       v.ID,
			Winner:       winnerLabel(v.Winner),
			WinnerUserID: winnerUserID(v),
			Reason:       v.EndReason,
			LifeOne:      v.PlayerOne.Life,
			LifeTwo:      v.PlayerTwo.Life,
			RoundsPlayed: v.RoundsPlayed,
		},
		Recipients: f.conns,
	})
}

// deduct charges the played card in the background. A failed charge does not
// undo the play; the player is told through a ledger-failed event.
func (e *Engine) deduct(roomID, connID, accountRef string, card game.Card) {
	if e.ledger == nil || accountRef == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), e.cfg.LedgerTimeout)
		defer cancel()

		if err := e.ledger.Deduct(ctx, accountRef, card); err != nil {
			e.log.Warnf("[Room %s] ledger debit of %s for %s failed: %v", roomID, card, accountRef, err)
			e.notifier.Notify(Event{
				Kind: EventLedgerFailed,
				Payload: LedgerFailedPayload{
					RoomID: roomID,
					Card:   card,
					Code:   game.CodeOf(err),
					Reason: fmt.Sprintf("could not charge %s: %v", card, err),
				},
				Recipients: []string{connID},
			})
		}
	}()
}
