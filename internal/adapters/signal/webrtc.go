package signal

import (
	"github.com/dkeye/Pairline/internal/domain"
	"github.com/dkeye/Pairline/internal/protocol"
)

// handleNegotiation passes SDP and ICE payloads through untouched; the
// server never interprets them.
func (ctl *SignalWSController) handleNegotiation(id domain.ConnID, kind protocol.Kind, payload []byte) {
	ctl.report(id, kind, ctl.Orch.Forward(id, kind, payload))
}
