package server

import "time"

const (
	ProtocolVersion   = 1
	writeWait         = 10 * time.Second
	tickRate          = 30 // ticks per second
	moveSpeed         = 6.0
	arenaHalfExtent   = 20.0
	heartbeatInterval = 2 * time.Second
	disconnectAfter   = 3 * heartbeatInterval

	defaultFlashDelay    = 0.4 // seconds a resolved telegraph keeps flashing
	defaultStandInJitter = 0.5 // max offset applied to scripted anchors
)

// TickRate reports the simulation loop frequency in ticks per second.
func TickRate() int {
	return tickRate
}

// HeartbeatInterval reports how often clients are expected to heartbeat.
func HeartbeatInterval() time.Duration {
	return heartbeatInterval
}
