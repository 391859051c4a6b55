// Package protocol defines the signaling envelope exchanged with clients
// and the wire codecs that frame it.
package protocol

import (
	"errors"
	"fmt"

	"github.com/dkeye/Pairline/internal/core"
)

// Kind is the envelope "type" field.
type Kind string

const (
	KindFind       Kind = "find"
	KindCreateRoom Kind = "create_room"
	KindJoinRoom   Kind = "join_room"
	KindOffer      Kind = "offer"
	KindAnswer     Kind = "answer"
	KindICE        Kind = "ice"
	KindLeave      Kind = "leave"
	KindPing       Kind = "ping"

	KindFound       Kind = "found"
	KindFoundRoom   Kind = "found_room"
	KindRoomCreated Kind = "room_created"
	KindRoomError   Kind = "room_error"
	KindRoomClosed  Kind = "room_closed"
	KindPong        Kind = "pong"
	KindError       Kind = "error"
)

var inbound = map[Kind]struct{}{
	KindFind:       {},
	KindCreateRoom: {},
	KindJoinRoom:   {},
	KindOffer:      {},
	KindAnswer:     {},
	KindICE:        {},
	KindLeave:      {},
	KindPing:       {},
}

// ParseInbound maps a client supplied type onto the closed set of
// requests the server handles.
func ParseInbound(s string) (Kind, bool) {
	k := Kind(s)
	_, ok := inbound[k]
	return k, ok
}

// IsNegotiation reports whether k is relayed to the partner untouched.
func (k Kind) IsNegotiation() bool {
	return k == KindOffer || k == KindAnswer || k == KindICE
}

type Found struct {
	IsInitiator bool `json:"isInitiator" msgpack:"isInitiator"`
}

type FoundRoom struct {
	RoomID      string `json:"roomId" msgpack:"roomId"`
	IsInitiator bool   `json:"isInitiator" msgpack:"isInitiator"`
}

type RoomCreated struct {
	RoomID string `json:"roomId" msgpack:"roomId"`
}

type RoomClosed struct {
	RoomID string `json:"roomId" msgpack:"roomId"`
}

type RoomError struct {
	Kind    string `json:"kind" msgpack:"kind"`
	RoomID  string `json:"roomId,omitempty" msgpack:"roomId,omitempty"`
	Message string `json:"message" msgpack:"message"`
}

type Error struct {
	Message string `json:"message" msgpack:"message"`
}

// Envelope is a decoded frame. Payload stays in the codec's own encoding.
type Envelope struct {
	Type    Kind
	Payload []byte
}

var (
	ErrMissingType  = errors.New("missing type")
	ErrBadPayload   = errors.New("bad payload")
	ErrUnknownCodec = errors.New("unknown codec")
)

// Codec frames envelopes for one wire format. Raw payloads are carried
// through untouched, so both ends of a relay must share a codec.
type Codec interface {
	Name() string
	// Binary selects websocket binary frames instead of text frames.
	Binary() bool
	Decode(core.Frame) (Envelope, error)
	// DecodeRoomID accepts either a bare string or {"roomId": "..."}.
	DecodeRoomID(payload []byte) (string, error)
	Encode(kind Kind, v any) (core.Frame, error)
	EncodeRaw(kind Kind, payload []byte) (core.Frame, error)
}

const (
	CodecJSON    = "json"
	CodecMsgpack = "msgpack"
)

func NewCodec(name string) (Codec, error) {
	switch name {
	case "", CodecJSON:
		return JSONCodec{}, nil
	case CodecMsgpack:
		return MsgpackCodec{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
	}
}
