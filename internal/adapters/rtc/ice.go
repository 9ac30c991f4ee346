// Package rtc exposes the peer-to-peer configuration clients should use.
// The relay never terminates media itself.
package rtc

import (
	"github.com/dkeye/pinrelay/internal/config"
	"github.com/pion/webrtc/v4"
)

func DefaultWebRTCConfig() webrtc.Configuration {
	return webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{
			{URLs: []string{"stun:stun.l.google.com:19302"}},
			{URLs: []string{"stun:stun1.l.google.com:19302"}},
		},
	}
}

// ConfigFrom builds the client configuration from the ice_servers setting,
// falling back to public STUN when none are configured.
func ConfigFrom(servers []config.ICEServer) webrtc.Configuration {
	if len(servers) == 0 {
		return DefaultWebRTCConfig()
	}
	out := webrtc.Configuration{ICEServers: make([]webrtc.ICEServer, 0, len(servers))}
	for _, s := range servers {
		if len(s.URLs) == 0 {
			continue
		}
		ice := webrtc.ICEServer{URLs: s.URLs}
		if s.Username != "" {
			ice.Username = s.Username
			ice.Credential = s.Credential
			ice.CredentialType = webrtc.ICECredentialTypePassword
		}
		out.ICEServers = append(out.ICEServers, ice)
	}
	return out
}

// ClientConfig is the JSON body handed to browsers and the Android host.
type ClientConfig struct {
	ICEServers []webrtc.ICEServer `json:"iceServers"`
}

func NewClientConfig(c webrtc.Configuration) ClientConfig {
	return ClientConfig{ICEServers: c.ICEServers}
}
