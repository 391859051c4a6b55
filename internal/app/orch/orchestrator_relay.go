package orch

import (
	"errors"

	"github.com/dkeye/Pairline/internal/app"
	"github.com/dkeye/Pairline/internal/domain"
	"github.com/dkeye/Pairline/internal/protocol"
	"github.com/rs/zerolog/log"
)

// Forward relays a negotiation message to the sender's partner. Without a
// partner the message is dropped and nil is returned.
func (o *Orchestrator) Forward(id domain.ConnID, kind protocol.Kind, payload []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	partner, frame, err := o.Relay.Route(o.Registry, id, kind, payload)
	switch {
	case errors.Is(err, app.ErrNoPartner):
		log.Debug().Str("module", "orch").Str("conn", string(id)).Str("kind", string(kind)).Msg("no partner, dropped")
		return nil
	case err != nil:
		return err
	}
	o.deliver(partner, kind, frame)
	return nil
}
