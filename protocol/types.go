package protocol

// Message type constants for hub <-> controller traffic.
const (
	// Hub -> Controller (published on the state topic)
	TypeHubRegister  = "hub.register"
	TypeHubHeartbeat = "hub.heartbeat"
	TypeStateReport  = "robot.state"
	TypeMapReport    = "robot.map"
	TypeRobotEvent   = "robot.event"
	TypeCommandAck   = "command.ack"
	TypeCommandError = "command.error"

	// Controller -> Hub (published on the command topic)
	TypeCleanSegments = "command.clean_segments"
	TypeCleanZones    = "command.clean_zones"
	TypeGoTo          = "command.goto"
	TypeBasicControl  = "command.basic"
	TypeFanSpeed      = "command.fan_speed"
	TypeLocate        = "command.locate"
)

// Roles for Address.Role.
const (
	RoleHub        = "hub"
	RoleController = "controller"
)

// Basic control actions.
const (
	ActionStart = "start"
	ActionStop  = "stop"
	ActionPause = "pause"
	ActionHome  = "home"
)

// Protocol version.
const Version = 1
