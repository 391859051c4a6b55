package signal

import (
	"errors"
	"fmt"

	"github.com/dkeye/Pairline/internal/app/orch"
	"github.com/dkeye/Pairline/internal/domain"
	"github.com/dkeye/Pairline/internal/protocol"
	"github.com/rs/zerolog/log"
)

// dispatch routes one inbound frame. Bad frames are answered with an
// error event and the connection stays open.
func (ctl *SignalWSController) dispatch(id domain.ConnID, c *WsSignalConn, data []byte) {
	env, err := ctl.codec.Decode(data)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("conn", string(id)).Msg("bad frame")
		ctl.sendError(c, "malformed message")
		return
	}
	kind, ok := protocol.ParseInbound(string(env.Type))
	if !ok {
		log.Warn().Str("module", "signal").Str("conn", string(id)).Str("type", string(env.Type)).Msg("unknown signal")
		ctl.sendError(c, fmt.Sprintf("unknown message type %q", env.Type))
		return
	}

	switch kind {
	case protocol.KindFind:
		ctl.report(id, kind, ctl.Orch.Find(id))
	case protocol.KindCreateRoom:
		ctl.handleCreateRoom(id, c, env.Payload)
	case protocol.KindJoinRoom:
		ctl.handleJoinRoom(id, c, env.Payload)
	case protocol.KindOffer, protocol.KindAnswer, protocol.KindICE:
		ctl.handleNegotiation(id, kind, env.Payload)
	case protocol.KindLeave:
		ctl.Orch.Leave(id)
	case protocol.KindPing:
		ctl.handlePing(c)
	}
}

func (ctl *SignalWSController) handlePing(c *WsSignalConn) {
	ctl.sendEvent(c, protocol.KindPong, nil)
}

func (ctl *SignalWSController) sendError(c *WsSignalConn, msg string) {
	ctl.sendEvent(c, protocol.KindError, protocol.Error{Message: msg})
}

func (ctl *SignalWSController) sendEvent(c *WsSignalConn, kind protocol.Kind, v any) {
	f, err := ctl.codec.Encode(kind, v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Str("kind", string(kind)).Msg("encode")
		return
	}
	if err := c.TrySend(f); err != nil {
		log.Debug().Err(err).Str("module", "signal").Str("kind", string(kind)).Msg("send skipped")
	}
}

// report logs what the orchestrator returned. Room errors were already
// delivered to the client.
func (ctl *SignalWSController) report(id domain.ConnID, kind protocol.Kind, err error) {
	var re *domain.RoomError
	switch {
	case err == nil:
	case errors.As(err, &re):
		log.Debug().Str("module", "signal").Str("conn", string(id)).Str("kind", string(kind)).Str("reason", string(re.Kind)).Msg("request rejected")
	case errors.Is(err, orch.ErrUnknownConn):
		log.Warn().Str("module", "signal").Str("conn", string(id)).Str("kind", string(kind)).Msg("request from unregistered connection")
	default:
		log.Error().Err(err).Str("module", "signal").Str("conn", string(id)).Str("kind", string(kind)).Msg("request failed")
	}
}
