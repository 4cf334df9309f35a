package dispatch

// Emitter is the interface adapters must satisfy to bridge dispatch
// outcomes to the engine's event bus.
type Emitter interface {
	EmitJobStarted(jobID int64, jobUUID, robotID, kind string)
	EmitJobCompleted(jobID int64, jobUUID, robotID, kind, detail string)
	EmitJobFailed(jobID int64, jobUUID, robotID, kind, errorCode, detail string)
	EmitCommandRejected(robotID, kind, reason string)
}
