package engine

import (
	"vachub/dispatch"
	"vachub/mapdata"
	"vachub/valetudo"
)

// robotEmitter bridges the robot manager's emitter interface to the
// EventBus.
type robotEmitter struct {
	bus *EventBus
}

func (e *robotEmitter) EmitRobotConnected(robotID string) {
	e.bus.Emit(Event{Type: EventRobotConnected, Payload: RobotConnectionEvent{
		RobotID: robotID,
	}})
}

func (e *robotEmitter) EmitRobotDisconnected(robotID string, err error) {
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	e.bus.Emit(Event{Type: EventRobotDisconnected, Payload: RobotConnectionEvent{
		RobotID: robotID,
		Detail:  detail,
	}})
}

func (e *robotEmitter) EmitStatusChanged(robotID, oldStatus, newStatus string) {
	e.bus.Emit(Event{Type: EventStatusChanged, Payload: StatusChangedEvent{
		RobotID:   robotID,
		OldStatus: oldStatus,
		NewStatus: newStatus,
	}})
}

func (e *robotEmitter) EmitBatteryUpdated(robotID string, level int, flag string) {
	e.bus.Emit(Event{Type: EventBatteryUpdated, Payload: BatteryEvent{
		RobotID: robotID,
		Level:   level,
		Flag:    flag,
	}})
}

func (e *robotEmitter) EmitStateUpdated(robotID string, state *valetudo.State) {
	e.bus.Emit(Event{Type: EventStateUpdated, Payload: StateUpdatedEvent{
		RobotID: robotID,
		State:   state,
	}})
}

func (e *robotEmitter) EmitMapUpdated(robotID string, m *mapdata.Map, raw []byte, nonce string, version int) {
	e.bus.Emit(Event{Type: EventMapUpdated, Payload: MapUpdatedEvent{
		RobotID: robotID,
		Map:     m,
		Raw:     raw,
		Nonce:   nonce,
		Version: version,
	}})
}

// dispatchEmitter bridges the dispatch package's emitter interface to the
// EventBus.
type dispatchEmitter struct {
	bus *EventBus
}

func (e *dispatchEmitter) EmitJobStarted(jobID int64, jobUUID, robotID, kind string) {
	e.bus.Emit(Event{Type: EventJobStarted, Payload: JobStartedEvent{
		JobID:   jobID,
		JobUUID: jobUUID,
		RobotID: robotID,
		Kind:    kind,
	}})
}

func (e *dispatchEmitter) EmitJobCompleted(jobID int64, jobUUID, robotID, kind, detail string) {
	e.bus.Emit(Event{Type: EventJobCompleted, Payload: JobCompletedEvent{
		JobID:   jobID,
		JobUUID: jobUUID,
		RobotID: robotID,
		Kind:    kind,
		Status:  dispatch.StatusCompleted,
		Detail:  detail,
	}})
}

func (e *dispatchEmitter) EmitJobFailed(jobID int64, jobUUID, robotID, kind, errorCode, detail string) {
	e.bus.Emit(Event{Type: EventJobFailed, Payload: JobFailedEvent{
		JobID:     jobID,
		JobUUID:   jobUUID,
		RobotID:   robotID,
		Kind:      kind,
		ErrorCode: errorCode,
		Detail:    detail,
	}})
}

func (e *dispatchEmitter) EmitCommandRejected(robotID, kind, reason string) {
	e.bus.Emit(Event{Type: EventCommandRejected, Payload: CommandRejectedEvent{
		RobotID: robotID,
		Kind:    kind,
		Reason:  reason,
	}})
}
