package orch

import (
	"github.com/dkeye/Pairline/internal/app"
	"github.com/dkeye/Pairline/internal/domain"
	"github.com/dkeye/Pairline/internal/protocol"
	"github.com/rs/zerolog/log"
)

// Leave ends whatever the connection is doing but keeps it registered,
// so the same socket can find again. Unknown ids are ignored.
func (o *Orchestrator) Leave(id domain.ConnID) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if c, ok := o.Registry.Lookup(id); ok {
		log.Info().Str("module", "orch").Str("conn", string(id)).Msg("leave")
		o.detach(c)
	}
}

// Disconnect tears the connection down and unregisters it. Safe to call
// any number of times.
func (o *Orchestrator) Disconnect(id domain.ConnID) {
	o.mu.Lock()
	defer o.mu.Unlock()

	c, ok := o.Registry.Lookup(id)
	if !ok {
		return
	}
	o.detach(c)
	o.Registry.Unregister(id)
	o.Limiter.Forget(id)
	log.Info().Str("module", "orch").Str("conn", string(id)).Msg("disconnected")
}

// detach clears the waiting slot, the room and the partner of c, in that
// order. Each step checks its own precondition, which makes it idempotent.
func (o *Orchestrator) detach(c *app.Conn) {
	if o.Match.Cancel(c.ID) {
		log.Debug().Str("module", "orch").Str("conn", string(c.ID)).Msg("left waiting slot")
	}

	if c.RoomID != "" {
		if room, ok := o.Rooms.Get(c.RoomID); ok {
			switch c.ID {
			case room.Owner:
				o.closeRoom(room)
			case room.Joiner:
				o.Rooms.Release(room.ID)
			}
		}
		c.RoomID = ""
	}

	if c.Partner != "" {
		if p, ok := o.Registry.Lookup(c.Partner); ok && p.Partner == c.ID {
			p.Partner = ""
			if p.RoomID != "" {
				p.State = domain.StateRoomPending
			} else {
				p.State = domain.StateIdle
			}
			o.send(p, protocol.KindLeave, nil)
			log.Info().Str("module", "orch").Str("conn", string(c.ID)).Str("partner", string(p.ID)).Msg("unpaired")
		}
		c.Partner = ""
	}

	c.State = domain.StateIdle
}

func (o *Orchestrator) closeRoom(room *domain.Room) {
	if j, ok := o.Registry.Lookup(room.Joiner); ok && j.RoomID == room.ID {
		j.RoomID = ""
		o.send(j, protocol.KindRoomClosed, protocol.RoomClosed{RoomID: string(room.ID)})
	}
	o.Rooms.Delete(room.ID)
}
