// Package rtc builds the ICE server list handed to browser peers. The
// server never terminates media; it only vets and publishes the list.
package rtc

import (
	"fmt"

	"github.com/dkeye/Pairline/internal/config"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

type ICEResponse struct {
	ICEServers []webrtc.ICEServer `json:"iceServers"`
}

func ICEServers(servers []config.ICEServer) []webrtc.ICEServer {
	out := make([]webrtc.ICEServer, 0, len(servers))
	for _, s := range servers {
		out = append(out, webrtc.ICEServer{
			URLs:       append([]string(nil), s.URLs...),
			Username:   s.Username,
			Credential: s.Credential,
		})
	}
	return out
}

func Configuration(servers []config.ICEServer) webrtc.Configuration {
	return webrtc.Configuration{ICEServers: ICEServers(servers)}
}

// Check builds a throwaway PeerConnection so pion validates the list the
// same way a peer would.
func Check(servers []config.ICEServer) error {
	pc, err := webrtc.NewPeerConnection(Configuration(servers))
	if err != nil {
		return fmt.Errorf("ice servers: %w", err)
	}
	if err := pc.Close(); err != nil {
		log.Warn().Err(err).Str("module", "rtc").Msg("close probe peer connection")
	}
	log.Info().Str("module", "rtc").Int("servers", len(servers)).Msg("ice servers accepted")
	return nil
}
