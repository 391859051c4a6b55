package domain

import "strings"

const DefaultMaxRoomIDLen = 64

type RoomID string

// Room is a named rendezvous between its owner and at most one joiner.
type Room struct {
	ID     RoomID
	Owner  ConnID
	Joiner ConnID
	InUse  bool
}

// ParseRoomID trims raw and checks it against maxLen (bytes).
// maxLen <= 0 means DefaultMaxRoomIDLen.
func ParseRoomID(raw string, maxLen int) (RoomID, error) {
	if maxLen <= 0 {
		maxLen = DefaultMaxRoomIDLen
	}
	id := strings.TrimSpace(raw)
	if id == "" {
		return "", NewRoomError(ErrKindMissingID, "")
	}
	if len(id) > maxLen {
		return "", NewRoomError(ErrKindInvalidID, RoomID(id))
	}
	return RoomID(id), nil
}
