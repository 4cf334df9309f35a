package robot

import (
	"vachub/mapdata"
	"vachub/valetudo"
)

// EventEmitter is the interface the manager uses to report robot activity.
// The engine provides an implementation backed by its event bus; keeping it
// an interface here avoids an import cycle between robot and engine.
type EventEmitter interface {
	EmitRobotConnected(robotID string)
	EmitRobotDisconnected(robotID string, err error)
	EmitStatusChanged(robotID, oldStatus, newStatus string)
	EmitBatteryUpdated(robotID string, level int, flag string)
	EmitStateUpdated(robotID string, state *valetudo.State)
	EmitMapUpdated(robotID string, m *mapdata.Map, raw []byte, nonce string, version int)
}
