package irc

import "time"

// TCP keepalive tuning applied by Dial when Config.KeepAlive is set.
// Probes start after keepAliveIdle of silence and repeat every
// keepAliveInterval; the peer is dropped after keepAliveCount misses.
const (
	keepAliveIdle     = 30 * time.Second
	keepAliveInterval = 5 * time.Second
	keepAliveCount    = 5
)
