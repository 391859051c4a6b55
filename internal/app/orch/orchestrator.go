// Package orch owns all shared pairing state. Every exported method is one
// critical section under a single mutex. Notifications are queued with
// non-blocking sends while the lock is held.
package orch

import (
	"errors"
	"sync"

	"github.com/dkeye/Pairline/internal/app"
	"github.com/dkeye/Pairline/internal/core"
	"github.com/dkeye/Pairline/internal/domain"
	"github.com/dkeye/Pairline/internal/protocol"
	"github.com/rs/zerolog/log"
)

var ErrUnknownConn = errors.New("unknown connection")

type Orchestrator struct {
	mu sync.Mutex

	Registry *app.Registry
	Match    *app.Matchmaker
	Rooms    *app.RoomManager
	Relay    *app.Relay
	Policy   app.Policy
	Limiter  *app.RoomRateLimiter
	Codec    protocol.Codec

	MaxRoomIDLen int
}

type Options struct {
	Codec        protocol.Codec
	Policy       app.Policy
	Limiter      *app.RoomRateLimiter
	MaxRoomIDLen int
}

func New(opts Options) *Orchestrator {
	codec := opts.Codec
	if codec == nil {
		codec = protocol.JSONCodec{}
	}
	policy := opts.Policy
	if policy == nil {
		policy = app.SimplePolicy{}
	}
	return &Orchestrator{
		Registry:     app.NewRegistry(),
		Match:        app.NewMatchmaker(),
		Rooms:        app.NewRoomManager(),
		Relay:        app.NewRelay(codec),
		Policy:       policy,
		Limiter:      opts.Limiter,
		Codec:        codec,
		MaxRoomIDLen: opts.MaxRoomIDLen,
	}
}

// Connect registers a freshly upgraded connection in the Idle state.
func (o *Orchestrator) Connect(c *app.Conn) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.Registry.Register(c)
}

// CloseAll kicks every live connection; used on shutdown.
func (o *Orchestrator) CloseAll() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.Registry.Each(func(c *app.Conn) { c.Kick() })
}

func (o *Orchestrator) send(c *app.Conn, kind protocol.Kind, v any) bool {
	f, err := o.Codec.Encode(kind, v)
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Str("kind", string(kind)).Msg("encode")
		return false
	}
	return o.deliver(c, kind, f)
}

func (o *Orchestrator) deliver(c *app.Conn, kind protocol.Kind, f core.Frame) bool {
	err := c.Signal.TrySend(f)
	if err == nil {
		return true
	}
	logger := log.With().Str("module", "orch").Str("conn", string(c.ID)).Str("kind", string(kind)).Logger()
	if !errors.Is(err, core.ErrBackpressure) {
		logger.Debug().Err(err).Msg("deliver skipped")
		return false
	}
	switch o.Policy.OnBackPressure(c) {
	case app.KickMember:
		logger.Warn().Msg("send queue full, kicking")
		c.Kick()
	case app.DropFrame, app.NoAction:
		logger.Warn().Msg("send queue full, dropping")
	}
	return false
}

// link pairs a and b symmetrically.
func (o *Orchestrator) link(a, b *app.Conn) {
	a.Partner, b.Partner = b.ID, a.ID
	a.State, b.State = domain.StatePaired, domain.StatePaired
	log.Info().Str("module", "orch").Str("a", string(a.ID)).Str("b", string(b.ID)).Msg("paired")
}

// ConnView is a read-only copy of a connection's pairing state.
type ConnView struct {
	ID      domain.ConnID
	Partner domain.ConnID
	RoomID  domain.RoomID
	State   domain.ConnState
}

func (o *Orchestrator) View(id domain.ConnID) (ConnView, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	c, ok := o.Registry.Lookup(id)
	if !ok {
		return ConnView{}, false
	}
	return ConnView{ID: c.ID, Partner: c.Partner, RoomID: c.RoomID, State: c.State}, true
}

type Stats struct {
	Connections int  `json:"connections"`
	Waiting     bool `json:"waiting"`
	Pairs       int  `json:"pairs"`
	Rooms       int  `json:"rooms"`
	RoomsInUse  int  `json:"roomsInUse"`
}

func (o *Orchestrator) Stats() Stats {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, waiting := o.Match.Waiting()
	st := Stats{
		Connections: o.Registry.Len(),
		Waiting:     waiting,
		Pairs:       o.Registry.Pairs(),
		Rooms:       o.Rooms.Len(),
	}
	for _, r := range o.Rooms.List() {
		if r.InUse {
			st.RoomsInUse++
		}
	}
	return st
}

func (o *Orchestrator) RoomInfo(id domain.RoomID) (app.RoomInfo, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.Rooms.Info(id)
}
