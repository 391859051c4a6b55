package protocol

import (
	"fmt"

	"github.com/dkeye/Pairline/internal/core"
	json "github.com/goccy/go-json"
)

type jsonEnvelope struct {
	Type    Kind            `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// JSONCodec frames envelopes as JSON text, the browser client's format.
type JSONCodec struct{}

func (JSONCodec) Name() string { return CodecJSON }
func (JSONCodec) Binary() bool { return false }

func (JSONCodec) Decode(f core.Frame) (Envelope, error) {
	var env jsonEnvelope
	if err := json.Unmarshal(f, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode json envelope: %w", err)
	}
	if env.Type == "" {
		return Envelope{}, ErrMissingType
	}
	return Envelope{Type: env.Type, Payload: []byte(env.Payload)}, nil
}

func (JSONCodec) DecodeRoomID(payload []byte) (string, error) {
	if len(payload) == 0 {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(payload, &s); err == nil {
		return s, nil
	}
	var obj struct {
		RoomID string `json:"roomId"`
	}
	if err := json.Unmarshal(payload, &obj); err != nil {
		return "", ErrBadPayload
	}
	return obj.RoomID, nil
}

func (c JSONCodec) Encode(kind Kind, v any) (core.Frame, error) {
	if v == nil {
		return c.EncodeRaw(kind, nil)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", kind, err)
	}
	return c.EncodeRaw(kind, b)
}

// EncodeRaw splices payload into the envelope as is. Marshalling it again
// would compact whitespace and escape <, > and &.
func (JSONCodec) EncodeRaw(kind Kind, payload []byte) (core.Frame, error) {
	typ, err := json.Marshal(kind)
	if err != nil {
		return nil, fmt.Errorf("encode %s envelope: %w", kind, err)
	}
	buf := make([]byte, 0, len(typ)+len(payload)+22)
	buf = append(buf, `{"type":`...)
	buf = append(buf, typ...)
	if len(payload) > 0 {
		if !json.Valid(payload) {
			return nil, fmt.Errorf("encode %s envelope: %w", kind, ErrBadPayload)
		}
		buf = append(buf, `,"payload":`...)
		buf = append(buf, payload...)
	}
	return append(buf, '}'), nil
}
