package engine

import (
	"vachub/mapdata"
	"vachub/valetudo"
)

const (
	EventRobotConnected EventType = iota + 1
	EventRobotDisconnected
	EventStateUpdated
	EventStatusChanged
	EventBatteryUpdated
	EventMapUpdated
	EventSegmentsChanged
	EventJobStarted
	EventJobCompleted
	EventJobFailed
	EventCommandRejected
	EventMessagingConnected
	EventMessagingDisconnected
)

// --- Event payloads ---

type RobotConnectionEvent struct {
	RobotID string
	Detail  string
}

type StateUpdatedEvent struct {
	RobotID string
	State   *valetudo.State
}

type StatusChangedEvent struct {
	RobotID   string
	OldStatus string
	NewStatus string
}

type BatteryEvent struct {
	RobotID string
	Level   int
	Flag    string
}

type MapUpdatedEvent struct {
	RobotID string
	Map     *mapdata.Map
	Raw     []byte
	Nonce   string
	Version int
}

// SegmentsChangedEvent fires when the set of addressable segment ids in a
// robot's map differs from the previous document.
type SegmentsChangedEvent struct {
	RobotID string
	Added   []string
	Removed []string
}

type JobStartedEvent struct {
	JobID   int64
	JobUUID string
	RobotID string
	Kind    string
}

// JobCompletedEvent covers both normal completion and cancellation; Status
// carries the final job status.
type JobCompletedEvent struct {
	JobID   int64
	JobUUID string
	RobotID string
	Kind    string
	Status  string
	Detail  string
}

type JobFailedEvent struct {
	JobID     int64
	JobUUID   string
	RobotID   string
	Kind      string
	ErrorCode string
	Detail    string
}

type CommandRejectedEvent struct {
	RobotID string
	Kind    string
	Reason  string
}

type ConnectionEvent struct {
	Detail string
}
