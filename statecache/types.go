package statecache

import "time"

// RobotState is the live view of one robot, refreshed by its poll or SSE
// loop. Attachments maps attachment type to whether it is fitted.
type RobotState struct {
	RobotID      string          `json:"robot_id"`
	Connected    bool            `json:"connected"`
	Mode         string          `json:"mode"`
	Status       string          `json:"status"`
	StatusFlag   string          `json:"status_flag,omitempty"`
	BatteryLevel int             `json:"battery_level"`
	BatteryFlag  string          `json:"battery_flag,omitempty"`
	FanSpeed     string          `json:"fan_speed,omitempty"`
	WaterGrade   string          `json:"water_grade,omitempty"`
	DockStatus   string          `json:"dock_status,omitempty"`
	Attachments  map[string]bool `json:"attachments,omitempty"`
	UpdatedAt    time.Time       `json:"updated_at"`
}
