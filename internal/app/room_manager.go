package app

import (
	"github.com/dkeye/Pairline/internal/domain"
	"github.com/rs/zerolog/log"
)

type RoomInfo struct {
	ID    domain.RoomID `json:"roomId"`
	InUse bool          `json:"inUse"`
}

// RoomManager maps room ids to their owner and joiner.
// Not synchronized; the orchestrator serializes every call.
type RoomManager struct {
	rooms map[domain.RoomID]*domain.Room
}

func NewRoomManager() *RoomManager {
	return &RoomManager{rooms: make(map[domain.RoomID]*domain.Room)}
}

func (m *RoomManager) Exists(id domain.RoomID) bool {
	_, ok := m.rooms[id]
	return ok
}

// Create never overwrites: an existing id fails with AlreadyExists.
func (m *RoomManager) Create(id domain.RoomID, owner domain.ConnID) error {
	if id == "" {
		return domain.NewRoomError(domain.ErrKindMissingID, "")
	}
	if _, ok := m.rooms[id]; ok {
		return domain.NewRoomError(domain.ErrKindAlreadyExists, id)
	}
	m.rooms[id] = &domain.Room{ID: id, Owner: owner}
	log.Info().Str("module", "app.rooms").Str("room", string(id)).Str("owner", string(owner)).Msg("room created")
	return nil
}

func (m *RoomManager) Get(id domain.RoomID) (*domain.Room, bool) {
	r, ok := m.rooms[id]
	return r, ok
}

// Admit checks that joiner may enter room id and returns the owner.
// A room whose owner no longer waits in it is deleted here.
func (m *RoomManager) Admit(id domain.RoomID, joiner domain.ConnID, reg *Registry) (*Conn, error) {
	if id == "" {
		return nil, domain.NewRoomError(domain.ErrKindMissingID, "")
	}
	room, ok := m.rooms[id]
	if !ok || room.InUse || room.Owner == joiner {
		return nil, domain.NewRoomError(domain.ErrKindNotFound, id)
	}
	owner, ok := reg.Lookup(room.Owner)
	if !ok || owner.RoomID != id || owner.State != domain.StateRoomPending {
		m.Delete(id)
		log.Warn().Str("module", "app.rooms").Str("room", string(id)).Str("owner", string(room.Owner)).Msg("stale room dropped")
		return nil, domain.NewRoomError(domain.ErrKindOwnerUnavailable, id)
	}
	return owner, nil
}

// Claim marks the room taken by joiner.
func (m *RoomManager) Claim(id domain.RoomID, joiner domain.ConnID) bool {
	room, ok := m.rooms[id]
	if !ok || room.InUse {
		return false
	}
	room.InUse = true
	room.Joiner = joiner
	return true
}

// Release reopens the room after its joiner left.
func (m *RoomManager) Release(id domain.RoomID) {
	if room, ok := m.rooms[id]; ok {
		room.InUse = false
		room.Joiner = ""
	}
}

func (m *RoomManager) Delete(id domain.RoomID) bool {
	if _, ok := m.rooms[id]; !ok {
		return false
	}
	delete(m.rooms, id)
	log.Info().Str("module", "app.rooms").Str("room", string(id)).Msg("room deleted")
	return true
}

func (m *RoomManager) Info(id domain.RoomID) (RoomInfo, bool) {
	room, ok := m.rooms[id]
	if !ok {
		return RoomInfo{}, false
	}
	return RoomInfo{ID: room.ID, InUse: room.InUse}, true
}

func (m *RoomManager) List() []RoomInfo {
	out := make([]RoomInfo, 0, len(m.rooms))
	for _, r := range m.rooms {
		out = append(out, RoomInfo{ID: r.ID, InUse: r.InUse})
	}
	return out
}

func (m *RoomManager) Len() int { return len(m.rooms) }
