package orch

import (
	"errors"

	"github.com/dkeye/Pairline/internal/app"
	"github.com/dkeye/Pairline/internal/domain"
	"github.com/dkeye/Pairline/internal/protocol"
	"github.com/rs/zerolog/log"
)

// CreateRoom registers a room owned by id. Failures leave every
// connection, the requester included, exactly as they were.
func (o *Orchestrator) CreateRoom(id domain.ConnID, raw string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	c, ok := o.Registry.Lookup(id)
	if !ok {
		return ErrUnknownConn
	}
	if !o.Limiter.Allow(id) {
		return o.reject(c, domain.NewRoomError(domain.ErrKindRateLimited, ""))
	}
	roomID, err := domain.ParseRoomID(raw, o.MaxRoomIDLen)
	if err != nil {
		return o.reject(c, err)
	}
	if o.Rooms.Exists(roomID) {
		return o.reject(c, domain.NewRoomError(domain.ErrKindAlreadyExists, roomID))
	}

	o.detach(c)
	if err := o.Rooms.Create(roomID, c.ID); err != nil {
		return o.reject(c, err)
	}
	c.RoomID = roomID
	c.State = domain.StateRoomPending
	o.send(c, protocol.KindRoomCreated, protocol.RoomCreated{RoomID: string(roomID)})
	return nil
}

// JoinRoom pairs id with the owner of the room. The owner, present
// longer, is the initiator.
func (o *Orchestrator) JoinRoom(id domain.ConnID, raw string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	c, ok := o.Registry.Lookup(id)
	if !ok {
		return ErrUnknownConn
	}
	if !o.Limiter.Allow(id) {
		return o.reject(c, domain.NewRoomError(domain.ErrKindRateLimited, ""))
	}
	roomID, err := domain.ParseRoomID(raw, o.MaxRoomIDLen)
	if err != nil {
		return o.reject(c, err)
	}
	owner, err := o.Rooms.Admit(roomID, c.ID, o.Registry)
	if err != nil {
		return o.reject(c, err)
	}

	// owner is RoomPending without a partner, so detaching c cannot touch it
	o.detach(c)
	o.Rooms.Claim(roomID, c.ID)
	c.RoomID = roomID
	o.link(owner, c)
	o.send(owner, protocol.KindFoundRoom, protocol.FoundRoom{RoomID: string(roomID), IsInitiator: true})
	o.send(c, protocol.KindFoundRoom, protocol.FoundRoom{RoomID: string(roomID), IsInitiator: false})
	return nil
}

func (o *Orchestrator) reject(c *app.Conn, err error) error {
	var re *domain.RoomError
	if !errors.As(err, &re) {
		log.Error().Err(err).Str("module", "orch").Str("conn", string(c.ID)).Msg("room request failed")
		return err
	}
	log.Info().Str("module", "orch").Str("conn", string(c.ID)).Str("room", string(re.RoomID)).Str("kind", string(re.Kind)).Msg("room request rejected")
	o.send(c, protocol.KindRoomError, protocol.RoomError{
		Kind:    string(re.Kind),
		RoomID:  string(re.RoomID),
		Message: re.Message(),
	})
	return err
}
