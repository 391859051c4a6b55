package app

import (
	"context"
	"errors"

	"github.com/dkeye/Pairline/internal/core"
	"github.com/dkeye/Pairline/internal/domain"
	"github.com/rs/zerolog/log"
)

var ErrAlreadyRegistered = errors.New("connection already registered")

// Conn is the per-connection pairing state. Partner and RoomID are ids,
// never pointers, so a departed connection cannot be reached through them.
type Conn struct {
	ID      domain.ConnID
	Token   string
	Signal  core.SignalConnection
	Partner domain.ConnID
	RoomID  domain.RoomID
	State   domain.ConnState

	cancel context.CancelFunc
}

func NewConn(id domain.ConnID, token string, sig core.SignalConnection, cancel context.CancelFunc) *Conn {
	return &Conn{ID: id, Token: token, Signal: sig, State: domain.StateIdle, cancel: cancel}
}

// Kick cancels the connection context and closes its transport. The
// adapter's read loop then reports the disconnect.
func (c *Conn) Kick() {
	if c.cancel != nil {
		c.cancel()
	}
	if c.Signal != nil {
		c.Signal.Close()
	}
}

// Registry tracks live connections. It is not synchronized; the
// orchestrator serializes every call.
type Registry struct {
	conns map[domain.ConnID]*Conn
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[domain.ConnID]*Conn)}
}

func (r *Registry) Register(c *Conn) error {
	if _, ok := r.conns[c.ID]; ok {
		return ErrAlreadyRegistered
	}
	r.conns[c.ID] = c
	log.Info().Str("module", "app.registry").Str("conn", string(c.ID)).Str("token", c.Token).Msg("registered")
	return nil
}

// Unregister is idempotent and reports whether an entry was removed.
func (r *Registry) Unregister(id domain.ConnID) bool {
	if _, ok := r.conns[id]; !ok {
		return false
	}
	delete(r.conns, id)
	log.Info().Str("module", "app.registry").Str("conn", string(id)).Msg("unregistered")
	return true
}

func (r *Registry) Lookup(id domain.ConnID) (*Conn, bool) {
	if id == "" {
		return nil, false
	}
	c, ok := r.conns[id]
	return c, ok
}

func (r *Registry) Len() int { return len(r.conns) }

// Pairs counts linked pairs, each once.
func (r *Registry) Pairs() int {
	n := 0
	for _, c := range r.conns {
		if c.Partner != "" {
			n++
		}
	}
	return n / 2
}

// Each visits every live connection.
func (r *Registry) Each(fn func(*Conn)) {
	for _, c := range r.conns {
		fn(c)
	}
}
