package engine

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"vachub/dispatch"
	"vachub/mapdata"
	"vachub/protocol"
	"vachub/statecache"
	"vachub/store"
)

func (e *Engine) wireEventHandlers() {
	// Connection transitions: mirror to the cache, audit, notify
	// controllers.
	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(RobotConnectionEvent)
		e.setCacheConnected(ev.RobotID, true)
		e.db.AppendAudit("robot", ev.RobotID, "connected", "", "", "system")
		e.enqueueNotice(ev.RobotID, "connected", ev.Detail)
	}, EventRobotConnected)

	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(RobotConnectionEvent)
		e.setCacheConnected(ev.RobotID, false)
		e.db.AppendAudit("robot", ev.RobotID, "disconnected", "", ev.Detail, "system")
		e.enqueueNotice(ev.RobotID, "disconnected", ev.Detail)
	}, EventRobotDisconnected)

	// Fresh state attributes: refresh the cache and report to controllers.
	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(StateUpdatedEvent)
		e.handleStateUpdated(ev)
	}, EventStateUpdated)

	// Status transitions drive the active job's lifecycle.
	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(StatusChangedEvent)
		e.handleStatusChanged(ev)
	}, EventStatusChanged)

	// A decoded map: cache it, maintain the segment registry, persist a
	// snapshot, summarize for controllers.
	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(MapUpdatedEvent)
		e.handleMapUpdated(ev)
	}, EventMapUpdated)

	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(SegmentsChangedEvent)
		e.logFn("engine: robot %s segments changed (+%d -%d)", ev.RobotID, len(ev.Added), len(ev.Removed))
		e.db.AppendAudit("robot", ev.RobotID, "segments_changed", "",
			fmt.Sprintf("added=%v removed=%v", ev.Added, ev.Removed), "system")
	}, EventSegmentsChanged)

	// Job lifecycle: track, audit, notify.
	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(JobStartedEvent)
		e.mu.Lock()
		e.active[ev.RobotID] = &activeJob{id: ev.JobID, uuid: ev.JobUUID, kind: ev.Kind, status: dispatch.StatusDispatched}
		e.mu.Unlock()
		e.db.AppendAudit("job", ev.JobUUID, "started", "", ev.Kind, "system")
		e.enqueueNotice(ev.RobotID, "job_started", fmt.Sprintf("%s (%s)", ev.Kind, ev.JobUUID))
	}, EventJobStarted)

	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(JobCompletedEvent)
		e.untrack(ev.RobotID, ev.JobID)
		e.db.AppendAudit("job", ev.JobUUID, ev.Status, "", ev.Detail, "system")
		e.bumpCleanedSegments(ev)
		e.enqueueNotice(ev.RobotID, "job_"+ev.Status, fmt.Sprintf("%s (%s)", ev.Kind, ev.JobUUID))
	}, EventJobCompleted)

	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(JobFailedEvent)
		e.untrack(ev.RobotID, ev.JobID)
		e.logFn("engine: job %d failed: %s - %s", ev.JobID, ev.ErrorCode, ev.Detail)
		e.db.AppendAudit("job", ev.JobUUID, "failed", "", ev.Detail, "system")
		e.enqueueNotice(ev.RobotID, "job_failed", fmt.Sprintf("%s: %s", ev.Kind, ev.Detail))
	}, EventJobFailed)

	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(CommandRejectedEvent)
		e.db.AppendAudit("robot", ev.RobotID, "command_rejected", "", fmt.Sprintf("%s: %s", ev.Kind, ev.Reason), "system")
	}, EventCommandRejected)

	e.Events.SubscribeTypes(func(evt Event) {
		e.logFn("engine: %s", evt.Payload.(ConnectionEvent).Detail)
	}, EventMessagingConnected, EventMessagingDisconnected)
}

func (e *Engine) handleStateUpdated(ev StateUpdatedEvent) {
	if e.cache != nil {
		st := &statecache.RobotState{
			RobotID: ev.RobotID,
			// A state update only arrives from a successful fetch.
			Connected:    true,
			Status:       ev.State.Status,
			StatusFlag:   ev.State.StatusFlag,
			BatteryLevel: ev.State.BatteryLevel,
			BatteryFlag:  ev.State.BatteryFlag,
			FanSpeed:     ev.State.FanSpeed,
			WaterGrade:   ev.State.WaterGrade,
			DockStatus:   ev.State.DockStatus,
			UpdatedAt:    time.Now(),
		}
		if rc, ok := e.cfg.Robot(ev.RobotID); ok {
			st.Mode = rc.Mode
		}
		if len(ev.State.Attachments) > 0 {
			st.Attachments = make(map[string]bool, len(ev.State.Attachments))
			for _, a := range ev.State.Attachments {
				st.Attachments[a.Type] = a.Attached
			}
		}
		e.cache.SetState(ev.RobotID, st)
		e.cache.Touch(ev.RobotID)
	}

	if e.reporter != nil {
		e.reporter.RecordState(protocol.StateReport{
			RobotID:      ev.RobotID,
			Connected:    true,
			Status:       ev.State.Status,
			StatusFlag:   ev.State.StatusFlag,
			BatteryLevel: ev.State.BatteryLevel,
			BatteryFlag:  ev.State.BatteryFlag,
			FanSpeed:     ev.State.FanSpeed,
		})
	}
}

// handleStatusChanged walks the tracked job through its lifecycle. The
// dispatcher leaves accepted jobs in dispatched; the robot reporting an
// active status promotes them to running, a settled status after that
// completes them, and an error status fails them.
func (e *Engine) handleStatusChanged(ev StatusChangedEvent) {
	e.mu.Lock()
	aj := e.active[ev.RobotID]
	e.mu.Unlock()
	if aj == nil {
		return
	}

	switch {
	case statusActive(ev.NewStatus):
		if aj.status != dispatch.StatusDispatched {
			return
		}
		if err := e.db.UpdateJobStatus(aj.id, dispatch.StatusRunning, "robot "+ev.NewStatus); err != nil {
			e.logFn("engine: promote job %d: %v", aj.id, err)
			return
		}
		e.mu.Lock()
		aj.status = dispatch.StatusRunning
		e.mu.Unlock()
		e.logFn("engine: job %d (%s) running on %s", aj.id, aj.kind, ev.RobotID)

	case ev.NewStatus == "error":
		detail := "robot reported error"
		if err := e.db.CompleteJob(aj.id, dispatch.StatusFailed, detail); err != nil {
			e.logFn("engine: fail job %d: %v", aj.id, err)
		}
		e.Events.Emit(Event{Type: EventJobFailed, Payload: JobFailedEvent{
			JobID:     aj.id,
			JobUUID:   aj.uuid,
			RobotID:   ev.RobotID,
			Kind:      aj.kind,
			ErrorCode: "robot_error",
			Detail:    detail,
		}})

	case statusSettled(ev.NewStatus):
		// Only a job the robot actually ran completes here; a settled
		// status before any active one is just the robot sitting on its
		// dock while the command is still in flight.
		if aj.status != dispatch.StatusRunning {
			return
		}
		detail := "robot " + ev.NewStatus
		if err := e.db.CompleteJob(aj.id, dispatch.StatusCompleted, detail); err != nil {
			e.logFn("engine: complete job %d: %v", aj.id, err)
		}
		e.Events.Emit(Event{Type: EventJobCompleted, Payload: JobCompletedEvent{
			JobID:   aj.id,
			JobUUID: aj.uuid,
			RobotID: ev.RobotID,
			Kind:    aj.kind,
			Status:  dispatch.StatusCompleted,
			Detail:  detail,
		}})
	}
}

// statusActive reports a firmware status meaning the robot is executing a
// commanded run.
func statusActive(status string) bool {
	return status == "cleaning" || status == "moving" || status == "returning"
}

// statusSettled reports a firmware status meaning a run has ended.
func statusSettled(status string) bool {
	return status == "docked" || status == "idle"
}

func (e *Engine) handleMapUpdated(ev MapUpdatedEvent) {
	if e.cache != nil {
		e.cache.SetMap(ev.RobotID, ev.Map)
	}
	e.syncSegments(ev)
	e.persistSnapshot(ev)
	if e.reporter != nil {
		e.reporter.RecordMap(mapReport(ev))
	}
}

// syncSegments upserts every addressable segment into the registry and
// emits a SegmentsChanged event when the id set differs from the previous
// document. The first map after startup only seeds the comparison set.
func (e *Engine) syncSegments(ev MapUpdatedEvent) {
	current := make(map[string]bool)
	for _, seg := range ev.Map.Segments() {
		if seg.SegmentID == "" {
			continue // decodes fine, but not addressable
		}
		current[seg.SegmentID] = true
		if err := e.db.UpsertSegment(ev.RobotID, seg.SegmentID, seg.Name, len(seg.Pixels)); err != nil {
			e.logFn("engine: upsert segment %s/%s: %v", ev.RobotID, seg.SegmentID, err)
		}
	}

	e.mu.Lock()
	prev := e.lastSegments[ev.RobotID]
	e.lastSegments[ev.RobotID] = current
	e.mu.Unlock()
	if prev == nil {
		return
	}

	var added, removed []string
	for id := range current {
		if !prev[id] {
			added = append(added, id)
		}
	}
	for id := range prev {
		if !current[id] {
			removed = append(removed, id)
		}
	}
	if len(added) == 0 && len(removed) == 0 {
		return
	}
	sort.Strings(added)
	sort.Strings(removed)
	e.Events.Emit(Event{Type: EventSegmentsChanged, Payload: SegmentsChangedEvent{
		RobotID: ev.RobotID,
		Added:   added,
		Removed: removed,
	}})
}

// persistSnapshot stores the decode summary plus raw document, throttled to
// one row per SnapshotMinInterval and pruned to SnapshotRetention rows per
// robot. Skipped updates still refreshed the cache.
func (e *Engine) persistSnapshot(ev MapUpdatedEvent) {
	now := time.Now()
	minInterval := e.cfg.Map.SnapshotMinInterval

	e.mu.Lock()
	last, seen := e.lastSnapshot[ev.RobotID]
	if seen && minInterval > 0 && now.Sub(last) < minInterval {
		e.mu.Unlock()
		return
	}
	e.lastSnapshot[ev.RobotID] = now
	e.mu.Unlock()

	snap := &store.MapSnapshot{
		RobotID:      ev.RobotID,
		Nonce:        ev.Nonce,
		MapVersion:   ev.Version,
		SizeX:        ev.Map.Size.X,
		SizeY:        ev.Map.Size.Y,
		PixelSizeMm:  ev.Map.PixelSizeMm,
		SegmentCount: len(ev.Map.Segments()),
		Raw:          ev.Raw,
	}
	if err := e.db.InsertMapSnapshot(snap); err != nil {
		e.logFn("engine: persist snapshot for %s: %v", ev.RobotID, err)
		return
	}
	if keep := e.cfg.Map.SnapshotRetention; keep > 0 {
		if _, err := e.db.PruneMapSnapshots(ev.RobotID, keep); err != nil {
			e.logFn("engine: prune snapshots for %s: %v", ev.RobotID, err)
		}
	}
}

// mapReport summarizes a decoded document for the controller channel. The
// full pixel data stays on the hub.
func mapReport(ev MapUpdatedEvent) *protocol.MapReport {
	rep := &protocol.MapReport{
		RobotID:     ev.RobotID,
		SizeX:       ev.Map.Size.X,
		SizeY:       ev.Map.Size.Y,
		PixelSizeMm: ev.Map.PixelSizeMm,
		FetchedAt:   time.Now().UTC(),
	}
	for _, seg := range ev.Map.Segments() {
		rep.Segments = append(rep.Segments, protocol.SegmentInfo{
			ID:         seg.SegmentID,
			Name:       seg.Name,
			Active:     seg.Active,
			PixelCount: len(seg.Pixels),
		})
	}
	if pos, ok := ev.Map.EntityByKind(mapdata.EntityRobotPosition); ok && len(pos.Points) > 0 {
		rep.RobotX, rep.RobotY = pos.Points[0].X, pos.Points[0].Y
	}
	if dock, ok := ev.Map.EntityByKind(mapdata.EntityChargerLocation); ok && len(dock.Points) > 0 {
		rep.ChargerX, rep.ChargerY = dock.Points[0].X, dock.Points[0].Y
	}
	return rep
}

// bumpCleanedSegments increments per-segment cleaning counters when a
// segment job finishes. The ids come from the job's recorded args.
func (e *Engine) bumpCleanedSegments(ev JobCompletedEvent) {
	if ev.Kind != dispatch.KindCleanSegments {
		return
	}
	job, err := e.db.GetJob(ev.JobID)
	if err != nil {
		e.logFn("engine: job %d for segment counters: %v", ev.JobID, err)
		return
	}
	var args struct {
		SegmentIDs []string `json:"segment_ids"`
	}
	if err := json.Unmarshal([]byte(job.Args), &args); err != nil {
		e.logFn("engine: job %d args: %v", ev.JobID, err)
		return
	}
	if err := e.db.IncrementSegmentCleaned(ev.RobotID, args.SegmentIDs); err != nil {
		e.logFn("engine: bump cleaned counters: %v", err)
	}
}

// untrack drops the active job if it is still the tracked one.
func (e *Engine) untrack(robotID string, jobID int64) {
	e.mu.Lock()
	if aj := e.active[robotID]; aj != nil && aj.id == jobID {
		delete(e.active, robotID)
	}
	e.mu.Unlock()
}

// setCacheConnected flips the cached connected flag without disturbing the
// rest of the state. Cached entries are shared with readers, so the update
// goes through a copy.
func (e *Engine) setCacheConnected(robotID string, connected bool) {
	if e.cache == nil {
		return
	}
	st, ok := e.cache.State(robotID)
	if !ok {
		if !connected {
			return
		}
		st = &statecache.RobotState{RobotID: robotID}
	}
	next := *st
	next.Connected = connected
	next.UpdatedAt = time.Now()
	e.cache.SetState(robotID, &next)
}

// enqueueNotice queues a robot.event message for the controller channel.
// Notices ride the outbox so a broker outage delays rather than loses
// them.
func (e *Engine) enqueueNotice(robotID, event, detail string) {
	if e.cfg.Messaging.Backend == "" {
		return
	}
	env, err := protocol.NewEnvelope(
		protocol.TypeRobotEvent,
		protocol.Address{Role: protocol.RoleHub, Hub: e.cfg.Messaging.HubID},
		protocol.Address{Role: protocol.RoleController},
		&protocol.RobotEvent{RobotID: robotID, Event: event, Detail: detail},
	)
	if err != nil {
		e.logFn("engine: build %s notice: %v", event, err)
		return
	}
	data, err := env.Encode()
	if err != nil {
		e.logFn("engine: encode %s notice: %v", event, err)
		return
	}
	if err := e.db.EnqueueOutbox(e.cfg.Messaging.StateTopic, data, protocol.TypeRobotEvent, robotID); err != nil {
		e.logFn("engine: enqueue %s notice: %v", event, err)
	}
}
