package signal

import (
	"github.com/dkeye/Pairline/internal/domain"
	"github.com/dkeye/Pairline/internal/protocol"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) roomID(id domain.ConnID, c *WsSignalConn, payload []byte) (string, bool) {
	raw, err := ctl.codec.DecodeRoomID(payload)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("conn", string(id)).Msg("bad room payload")
		ctl.sendError(c, "bad room payload")
		return "", false
	}
	return raw, true
}

func (ctl *SignalWSController) handleCreateRoom(id domain.ConnID, c *WsSignalConn, payload []byte) {
	raw, ok := ctl.roomID(id, c, payload)
	if !ok {
		return
	}
	log.Info().Str("module", "signal").Str("conn", string(id)).Str("room", raw).Msg("create room")
	ctl.report(id, protocol.KindCreateRoom, ctl.Orch.CreateRoom(id, raw))
}

func (ctl *SignalWSController) handleJoinRoom(id domain.ConnID, c *WsSignalConn, payload []byte) {
	raw, ok := ctl.roomID(id, c, payload)
	if !ok {
		return
	}
	log.Info().Str("module", "signal").Str("conn", string(id)).Str("room", raw).Msg("join room")
	ctl.report(id, protocol.KindJoinRoom, ctl.Orch.JoinRoom(id, raw))
}
