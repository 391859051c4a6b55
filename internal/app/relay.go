package app

import (
	"errors"

	"github.com/dkeye/Pairline/internal/core"
	"github.com/dkeye/Pairline/internal/domain"
	"github.com/dkeye/Pairline/internal/protocol"
)

var (
	ErrNoPartner    = errors.New("no partner")
	ErrNotRelayable = errors.New("not a negotiation message")
)

// Relay frames negotiation messages for the sender's partner. The payload
// is never decoded.
type Relay struct {
	Codec protocol.Codec
}

func NewRelay(codec protocol.Codec) *Relay {
	return &Relay{Codec: codec}
}

// Route resolves the partner of from and returns the frame to hand it.
// ErrNoPartner means the message should be dropped silently.
func (r *Relay) Route(reg *Registry, from domain.ConnID, kind protocol.Kind, payload []byte) (*Conn, core.Frame, error) {
	if !kind.IsNegotiation() {
		return nil, nil, ErrNotRelayable
	}
	sender, ok := reg.Lookup(from)
	if !ok || sender.Partner == "" {
		return nil, nil, ErrNoPartner
	}
	partner, ok := reg.Lookup(sender.Partner)
	if !ok || partner.Partner != from {
		return nil, nil, ErrNoPartner
	}
	frame, err := r.Codec.EncodeRaw(kind, payload)
	if err != nil {
		return nil, nil, err
	}
	return partner, frame, nil
}
