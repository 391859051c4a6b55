package domain

import "fmt"

type RoomErrorKind string

const (
	ErrKindMissingID        RoomErrorKind = "missing_id"
	ErrKindAlreadyExists    RoomErrorKind = "already_exists"
	ErrKindNotFound         RoomErrorKind = "not_found"
	ErrKindOwnerUnavailable RoomErrorKind = "owner_unavailable"
	ErrKindInvalidID        RoomErrorKind = "invalid_id"
	ErrKindRateLimited      RoomErrorKind = "rate_limited"
)

var messages = map[RoomErrorKind]string{
	ErrKindMissingID:        "room id is required",
	ErrKindAlreadyExists:    "room already exists",
	ErrKindNotFound:         "room not found",
	ErrKindOwnerUnavailable: "room owner is gone",
	ErrKindInvalidID:        "room id too long",
	ErrKindRateLimited:      "too many room requests",
}

// RoomError is a create/join failure reported to the requester only.
type RoomError struct {
	Kind   RoomErrorKind
	RoomID RoomID
}

// Sentinels for errors.Is; they match any RoomError of the same kind.
var (
	ErrMissingID        = &RoomError{Kind: ErrKindMissingID}
	ErrAlreadyExists    = &RoomError{Kind: ErrKindAlreadyExists}
	ErrNotFound         = &RoomError{Kind: ErrKindNotFound}
	ErrOwnerUnavailable = &RoomError{Kind: ErrKindOwnerUnavailable}
	ErrInvalidID        = &RoomError{Kind: ErrKindInvalidID}
	ErrRateLimited      = &RoomError{Kind: ErrKindRateLimited}
)

func NewRoomError(kind RoomErrorKind, id RoomID) *RoomError {
	return &RoomError{Kind: kind, RoomID: id}
}

func (e *RoomError) Message() string {
	if m, ok := messages[e.Kind]; ok {
		return m
	}
	return string(e.Kind)
}

func (e *RoomError) Error() string {
	if e.RoomID == "" {
		return e.Message()
	}
	return fmt.Sprintf("%s: %q", e.Message(), e.RoomID)
}

func (e *RoomError) Is(target error) bool {
	t, ok := target.(*RoomError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.RoomID == "" || t.RoomID == e.RoomID)
}
