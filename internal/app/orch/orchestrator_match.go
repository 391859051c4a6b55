package orch

import (
	"github.com/dkeye/Pairline/internal/domain"
	"github.com/dkeye/Pairline/internal/protocol"
	"github.com/rs/zerolog/log"
)

// Find enters random matchmaking. A paired or room-bound connection is
// detached first ("next"). The waiter becomes the non-initiator, the
// newcomer the initiator.
func (o *Orchestrator) Find(id domain.ConnID) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	c, ok := o.Registry.Lookup(id)
	if !ok {
		return ErrUnknownConn
	}
	if w, ok := o.Match.Waiting(); ok && w == id {
		return nil
	}
	o.detach(c)

	for {
		waiterID, matched := o.Match.Request(id)
		if !matched {
			c.State = domain.StateWaiting
			log.Info().Str("module", "orch").Str("conn", string(id)).Msg("waiting for partner")
			return nil
		}
		waiter, ok := o.Registry.Lookup(waiterID)
		if !ok {
			// slot is empty again, next Request parks id
			log.Warn().Str("module", "orch").Str("waiter", string(waiterID)).Msg("stale waiter dropped")
			continue
		}
		o.link(waiter, c)
		o.send(waiter, protocol.KindFound, protocol.Found{IsInitiator: false})
		o.send(c, protocol.KindFound, protocol.Found{IsInitiator: true})
		return nil
	}
}
