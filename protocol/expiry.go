package protocol

import "time"

// Default TTLs by message category. Commands expire fast: a cleaning
// command delivered after a broker outage must not start a stale run.
var defaultTTLs = map[string]time.Duration{
	TypeHubHeartbeat: 90 * time.Second,
	TypeStateReport:  90 * time.Second,

	TypeCleanSegments: 2 * time.Minute,
	TypeCleanZones:    2 * time.Minute,
	TypeGoTo:          2 * time.Minute,
	TypeBasicControl:  2 * time.Minute,
	TypeFanSpeed:      2 * time.Minute,
	TypeLocate:        2 * time.Minute,

	TypeHubRegister: 5 * time.Minute,
	TypeMapReport:   10 * time.Minute,

	TypeCommandAck:   10 * time.Minute,
	TypeCommandError: 10 * time.Minute,
	TypeRobotEvent:   30 * time.Minute,
}

// FallbackTTL is used when no specific TTL is configured.
const FallbackTTL = 10 * time.Minute

// DefaultTTLFor returns the default TTL for a message type.
func DefaultTTLFor(msgType string) time.Duration {
	if ttl, ok := defaultTTLs[msgType]; ok {
		return ttl
	}
	return FallbackTTL
}

// IsExpired returns true if the envelope has passed its expiry time.
func IsExpired(env *Envelope) bool {
	if env.ExpiresAt.IsZero() {
		return false
	}
	return time.Now().UTC().After(env.ExpiresAt)
}

// IsExpiredHeader checks expiry using only the raw header.
func IsExpiredHeader(hdr *RawHeader) bool {
	if hdr.ExpiresAt.IsZero() {
		return false
	}
	return time.Now().UTC().After(hdr.ExpiresAt)
}
