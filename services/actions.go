package services

import (
	"context"
	"encoding/json"

	"github.com/bellapacxx/roshambo-backend/game"
)

// Inbound actions a client may send over its connection.
const (
	ActionCreateOffer      = "create-offer"
	ActionListOffers       = "list-offers"
	ActionJoinOffer        = "join-offer"
	ActionJoinPrivateOffer = "join-private-offer"
	ActionSubmitCard       = "submit-card"
	ActionLeaveMatch       = "leave-match"
	ActionWithdrawOffer    = "withdraw-offer"
	ActionBalance          = "balance"
)

type InboundMessage struct {
	Action      string `json:"action"`
	RoomID      string `json:"room_id"`
	OfferID     string `json:"offer_id"`
	JoinCode    string `json:"join_code"`
	Card        string `json:"card"`
	Name        string `json:"name"`
	Mode        string `json:"mode"`
	Rounds      int    `json:"rounds"`
	MoveTimeout int    `json:"move_timeout"`
	Private     bool   `json:"private"`
	CardBudget  int    `json:"card_budget"`
}

// Session is the authenticated connection an action arrived on.
type Session struct {
	ConnID   string
	Identity Identity
}

// HandleRaw decodes one frame and runs it. Failures are reported back to the
// sender as operation-rejected events.
func (e *Engine) HandleRaw(ctx context.Context, s Session, raw []byte) {
	var msg InboundMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		e.Reject(s.ConnID, "", game.Invalid("message is not valid JSON"))
		return
	}
	if err := e.Handle(ctx, s, msg); err != nil {
		e.log.Debugf("[Client %s] %s rejected: %v", s.ConnID, msg.Action, err)
		e.Reject(s.ConnID, msg.Action, err)
	}
}

func (e *Engine) Handle(ctx context.Context, s Session, msg InboundMessage) error {
	switch msg.Action {
	case ActionCreateOffer:
		mode, err := game.ParseMode(msg.Mode)
		if err != nil {
			return err
		}
		_, err = e.CreateOffer(ctx, CreateOfferRequest{
			ConnID:      s.ConnID,
			Identity:    s.Identity,
			Name:        msg.Name,
			Mode:        mode,
			Rounds:      msg.Rounds,
			MoveTimeout: msg.MoveTimeout,
			Private:     msg.Private,
			CardBudget:  msg.CardBudget,
		})
		return err

	case ActionListOffers:
		e.notifier.Notify(Event{Kind: EventOffers, Payload: e.ListOffers(), Recipients: []string{s.ConnID}})
		return nil

	case ActionJoinOffer, ActionJoinPrivateOffer:
		req := JoinOfferRequest{
			ConnID:     s.ConnID,
			Identity:   s.Identity,
			CardBudget: msg.CardBudget,
		}
		if msg.Action == ActionJoinPrivateOffer {
			if msg.JoinCode == "" {
				return game.Invalid("join code is required")
			}
			req.JoinCode = msg.JoinCode
		} else {
			if msg.OfferID == "" {
				return game.Invalid("offer id is required")
			}
			req.OfferID = msg.OfferID
		}
		_, err := e.JoinOffer(ctx, req)
		return err

	case ActionSubmitCard:
		card, err := game.ParseCard(msg.Card)
		if err != nil {
			return err
		}
		return e.SubmitCard(ctx, SubmitCardRequest{
			ConnID: s.ConnID,
			RoomID: msg.RoomID,
			Card:   card,
		})

	case ActionLeaveMatch:
		return e.LeaveMatch(ctx, msg.RoomID, s.ConnID)

	case ActionWithdrawOffer:
		e.WithdrawOffer(ctx, s.ConnID)
		return nil

	case ActionBalance:
		// a connection only ever sees its own inventory
		ref := s.Identity.AccountRef
		inv, err := e.Balance(ctx, ref)
		if err != nil {
			return err
		}
		e.notifier.Notify(Event{Kind: EventBalance, Payload: BalancePayload{AccountRef: ref, Inventory: inv}, Recipients: []string{s.ConnID}})
		return nil
	}
	return game.Invalid("unknown action " + msg.Action)
}
