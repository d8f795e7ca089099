package game

import "errors"

type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindNotFound   ErrorKind = "not_found"
	KindConflict   ErrorKind = "conflict"
	KindExternal   ErrorKind = "external"
)

// Error is the error type every engine operation fails with. Code is stable and
// is what clients see in operation-rejected events.
type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Message }

var (
	ErrRoomNotFound    = &Error{KindNotFound, "room_not_found", "room not found"}
	ErrOfferNotFound   = &Error{KindNotFound, "offer_not_found", "game offer not found"}
	ErrDuplicateOffer  = &Error{KindConflict, "duplicate_offer", "you can only create one game per user"}
	ErrOwnOffer        = &Error{KindConflict, "own_offer", "you cannot join your own game"}
	ErrInvalidSlot     = &Error{KindConflict, "invalid_slot", "player is not seated in this room"}
	ErrRoomTerminal    = &Error{KindConflict, "room_terminal", "match already finished"}
	ErrDuplicateRoom   = &Error{KindConflict, "duplicate_room", "room id already in use"}
	ErrUnauthenticated = &Error{KindValidation, "unauthenticated", "missing or invalid credentials"}
	ErrMatchNotFound   = &Error{KindNotFound, "match_not_found", "match not found"}
	ErrNoCards         = &Error{KindConflict, "insufficient_cards", "no cards of that type left"}
)

func Invalid(msg string) *Error {
	return &Error{Kind: KindValidation, Code: "invalid_request", Message: msg}
}

func External(code string, err error) *Error {
	return &Error{Kind: KindExternal, Code: code, Message: err.Error()}
}

// KindOf classifies err, looking through wrapping. Unknown errors are external.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindExternal
}

// CodeOf returns the stable code of err, or "internal" for foreign errors.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return "internal"
}
