package protocol

import (
	"fmt"

	"github.com/dkeye/Pairline/internal/core"
	"github.com/vmihailenco/msgpack/v5"
)

type msgpackEnvelope struct {
	Type    Kind               `msgpack:"type"`
	Payload msgpack.RawMessage `msgpack:"payload,omitempty"`
}

// MsgpackCodec frames envelopes as msgpack maps in binary frames, for
// native clients that do not want to pay for JSON.
type MsgpackCodec struct{}

func (MsgpackCodec) Name() string { return CodecMsgpack }
func (MsgpackCodec) Binary() bool { return true }

func (MsgpackCodec) Decode(f core.Frame) (Envelope, error) {
	var env msgpackEnvelope
	if err := msgpack.Unmarshal(f, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode msgpack envelope: %w", err)
	}
	if env.Type == "" {
		return Envelope{}, ErrMissingType
	}
	return Envelope{Type: env.Type, Payload: []byte(env.Payload)}, nil
}

func (MsgpackCodec) DecodeRoomID(payload []byte) (string, error) {
	if len(payload) == 0 {
		return "", nil
	}
	var s string
	if err := msgpack.Unmarshal(payload, &s); err == nil {
		return s, nil
	}
	var obj struct {
		RoomID string `msgpack:"roomId"`
	}
	if err := msgpack.Unmarshal(payload, &obj); err != nil {
		return "", ErrBadPayload
	}
	return obj.RoomID, nil
}

func (c MsgpackCodec) Encode(kind Kind, v any) (core.Frame, error) {
	if v == nil {
		return c.EncodeRaw(kind, nil)
	}
	b, err := msgpack.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", kind, err)
	}
	return c.EncodeRaw(kind, b)
}

func (MsgpackCodec) EncodeRaw(kind Kind, payload []byte) (core.Frame, error) {
	b, err := msgpack.Marshal(&msgpackEnvelope{Type: kind, Payload: msgpack.RawMessage(payload)})
	if err != nil {
		return nil, fmt.Errorf("encode %s envelope: %w", kind, err)
	}
	return b, nil
}
