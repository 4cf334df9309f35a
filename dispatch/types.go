package dispatch

import "errors"

// Job kinds.
const (
	KindCleanSegments = "clean_segments"
	KindCleanZones    = "clean_zones"
	KindGoTo          = "goto"
	KindBasic         = "basic"
	KindFanSpeed      = "fan_speed"
	KindLocate        = "locate"
)

// Job statuses.
const (
	StatusPending    = "pending"
	StatusDispatched = "dispatched"
	StatusRunning    = "running"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
	StatusCancelled  = "cancelled"
)

// Basic control actions.
const (
	ActionStart = "start"
	ActionStop  = "stop"
	ActionPause = "pause"
	ActionHome  = "home"
)

// Command sources recorded on jobs.
const (
	SourceWeb    = "web"
	SourceRemote = "remote"
)

// MaxZones is the firmware's limit on rectangles per zone clean.
const MaxZones = 5

// Validation errors. Commands rejected with one of these never create a
// job row; callers classify them with errors.Is.
var (
	ErrUnknownRobot   = errors.New("unknown robot")
	ErrNotConnected   = errors.New("robot not connected")
	ErrNoMap          = errors.New("no map decoded yet")
	ErrEmptySelection = errors.New("empty selection")
	ErrUnknownSegment = errors.New("unknown segment")
	ErrInvalidZone    = errors.New("invalid zone")
	ErrInvalidTarget  = errors.New("target outside map")
	ErrInvalidAction  = errors.New("invalid action")
)
