package protocol

import "time"

// --- Hub -> Controller payloads ---

// HubRegister is sent by a hub on startup.
type HubRegister struct {
	HubID    string   `json:"hub_id"`
	Hostname string   `json:"hostname"`
	Version  string   `json:"version"`
	RobotIDs []string `json:"robot_ids"`
}

// HubHeartbeat is sent periodically by a hub.
type HubHeartbeat struct {
	HubID        string `json:"hub_id"`
	Uptime       int64  `json:"uptime_s"`
	RobotsOnline int    `json:"robots_online"`
}

// StateReport carries one robot's current state attributes.
type StateReport struct {
	RobotID      string `json:"robot_id"`
	Connected    bool   `json:"connected"`
	Status       string `json:"status,omitempty"`
	StatusFlag   string `json:"status_flag,omitempty"`
	BatteryLevel int    `json:"battery_level,omitempty"`
	BatteryFlag  string `json:"battery_flag,omitempty"`
	FanSpeed     string `json:"fan_speed,omitempty"`
}

// SegmentInfo summarizes one addressable room in a map report.
type SegmentInfo struct {
	ID         string `json:"id"`
	Name       string `json:"name,omitempty"`
	Active     bool   `json:"active,omitempty"`
	PixelCount int    `json:"pixel_count"`
}

// MapReport summarizes one decoded map snapshot. The full document stays on
// the hub; controllers that need pixels fetch it over the hub's HTTP API.
type MapReport struct {
	RobotID     string        `json:"robot_id"`
	SizeX       int           `json:"size_x"`
	SizeY       int           `json:"size_y"`
	PixelSizeMm float64       `json:"pixel_size_mm"`
	Segments    []SegmentInfo `json:"segments"`
	RobotX      int           `json:"robot_x,omitempty"`
	RobotY      int           `json:"robot_y,omitempty"`
	ChargerX    int           `json:"charger_x,omitempty"`
	ChargerY    int           `json:"charger_y,omitempty"`
	FetchedAt   time.Time     `json:"fetched_at"`
}

// RobotEvent is a notable hub-side occurrence (connection changes, job
// transitions).
type RobotEvent struct {
	RobotID string `json:"robot_id"`
	Event   string `json:"event"`
	Detail  string `json:"detail,omitempty"`
}

// CommandAck confirms a command was accepted and names the job created for
// it.
type CommandAck struct {
	CommandUUID string `json:"command_uuid"`
	JobID       int64  `json:"job_id"`
	JobUUID     string `json:"job_uuid"`
}

// CommandError reports a rejected or failed command.
type CommandError struct {
	CommandUUID string `json:"command_uuid"`
	ErrorCode   string `json:"error_code"`
	Detail      string `json:"detail"`
}

// --- Controller -> Hub payloads ---

// Zone is an axis-aligned cleaning rectangle given by opposite corners in
// map pixel coordinates. The hub transforms it into the robot's physical
// space before dispatch.
type Zone struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// CleanSegments starts cleaning of the named rooms.
type CleanSegments struct {
	CommandUUID string   `json:"command_uuid"`
	RobotID     string   `json:"robot_id"`
	SegmentIDs  []string `json:"segment_ids"`
	Iterations  int      `json:"iterations,omitempty"`
}

// CleanZones starts cleaning of pixel-space rectangles.
type CleanZones struct {
	CommandUUID string `json:"command_uuid"`
	RobotID     string `json:"robot_id"`
	Zones       []Zone `json:"zones"`
	Iterations  int    `json:"iterations,omitempty"`
}

// GoTo sends the robot to a pixel-space point.
type GoTo struct {
	CommandUUID string `json:"command_uuid"`
	RobotID     string `json:"robot_id"`
	X           int    `json:"x"`
	Y           int    `json:"y"`
}

// BasicControl is start/stop/pause/home.
type BasicControl struct {
	CommandUUID string `json:"command_uuid"`
	RobotID     string `json:"robot_id"`
	Action      string `json:"action"`
}

// FanSpeed selects a suction preset by name.
type FanSpeed struct {
	CommandUUID string `json:"command_uuid"`
	RobotID     string `json:"robot_id"`
	Preset      string `json:"preset"`
}

// Locate makes the robot announce itself.
type Locate struct {
	CommandUUID string `json:"command_uuid"`
	RobotID     string `json:"robot_id"`
}
