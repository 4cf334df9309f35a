package dispatch

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"vachub/mapdata"
	"vachub/store"
	"vachub/valetudo"
)

// RobotSource is the live robot view the dispatcher validates against.
// The robot manager implements it.
type RobotSource interface {
	Client(robotID string) (*valetudo.Client, bool)
	IsConnected(robotID string) bool
	Map(robotID string) (*mapdata.Map, bool)
}

// PixelZone is an axis-aligned rectangle in map pixel coordinates, given
// by two opposite corners.
type PixelZone struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// Dispatcher validates commands against the current map, records them as
// jobs and forwards them to the robot firmware. Commands that fail
// validation are rejected without a job row; commands the firmware refuses
// fail their job.
type Dispatcher struct {
	db             *store.DB
	robots         RobotSource
	emitter        Emitter
	defaultPixelMm float64
}

func NewDispatcher(db *store.DB, robots RobotSource, emitter Emitter, defaultPixelMm float64) *Dispatcher {
	return &Dispatcher{
		db:             db,
		robots:         robots,
		emitter:        emitter,
		defaultPixelMm: defaultPixelMm,
	}
}

// CleanSegments starts cleaning of the named rooms. Segment ids must all
// exist in the robot's current map.
func (d *Dispatcher) CleanSegments(robotID string, segmentIDs []string, iterations int, source string) (*store.Job, error) {
	client, err := d.connectedClient(robotID, KindCleanSegments)
	if err != nil {
		return nil, err
	}
	m, ok := d.robots.Map(robotID)
	if !ok {
		return nil, d.reject(robotID, KindCleanSegments, ErrNoMap)
	}
	if len(segmentIDs) == 0 {
		return nil, d.reject(robotID, KindCleanSegments, fmt.Errorf("no segment ids: %w", ErrEmptySelection))
	}
	for _, id := range segmentIDs {
		if _, ok := m.SegmentByID(id); !ok {
			return nil, d.reject(robotID, KindCleanSegments, fmt.Errorf("segment %q: %w", id, ErrUnknownSegment))
		}
	}
	iterations = clampIterations(iterations)

	args := mustJSON(map[string]any{"segment_ids": segmentIDs, "iterations": iterations})
	job, err := d.createJob(robotID, KindCleanSegments, args, source)
	if err != nil {
		return nil, err
	}
	if err := client.CleanSegments(segmentIDs, iterations); err != nil {
		return job, d.failJob(job, err)
	}
	d.accept(job)
	return job, nil
}

// CleanZones starts cleaning of pixel-space rectangles. Zones are
// transformed into the robot's physical space before dispatch.
func (d *Dispatcher) CleanZones(robotID string, zones []PixelZone, iterations int, source string) (*store.Job, error) {
	client, err := d.connectedClient(robotID, KindCleanZones)
	if err != nil {
		return nil, err
	}
	m, ok := d.robots.Map(robotID)
	if !ok {
		return nil, d.reject(robotID, KindCleanZones, ErrNoMap)
	}
	if len(zones) == 0 {
		return nil, d.reject(robotID, KindCleanZones, fmt.Errorf("no zones: %w", ErrEmptySelection))
	}
	if len(zones) > MaxZones {
		return nil, d.reject(robotID, KindCleanZones, fmt.Errorf("%d zones exceeds limit of %d: %w", len(zones), MaxZones, ErrInvalidZone))
	}
	for i, z := range zones {
		if z.X1 == z.X2 || z.Y1 == z.Y2 {
			return nil, d.reject(robotID, KindCleanZones, fmt.Errorf("zone %d has no area: %w", i, ErrInvalidZone))
		}
		if !inBounds(m, mapdata.Point{X: z.X1, Y: z.Y1}) || !inBounds(m, mapdata.Point{X: z.X2, Y: z.Y2}) {
			return nil, d.reject(robotID, KindCleanZones, fmt.Errorf("zone %d outside map: %w", i, ErrInvalidZone))
		}
	}
	iterations = clampIterations(iterations)

	tr := m.Transform(d.defaultPixelMm)
	physZones := make([]valetudo.Zone, len(zones))
	for i, z := range zones {
		p1 := tr.ToPhysical(mapdata.Point{X: z.X1, Y: z.Y1})
		p2 := tr.ToPhysical(mapdata.Point{X: z.X2, Y: z.Y2})
		physZones[i] = valetudo.Zone{X1: p1.X, Y1: p1.Y, X2: p2.X, Y2: p2.Y}
	}

	args := mustJSON(map[string]any{"zones": zones, "zones_mm": physZones, "iterations": iterations})
	job, err := d.createJob(robotID, KindCleanZones, args, source)
	if err != nil {
		return nil, err
	}
	if err := client.CleanZones(physZones, iterations); err != nil {
		return job, d.failJob(job, err)
	}
	d.accept(job)
	return job, nil
}

// GoTo sends the robot to a pixel-space point.
func (d *Dispatcher) GoTo(robotID string, x, y int, source string) (*store.Job, error) {
	client, err := d.connectedClient(robotID, KindGoTo)
	if err != nil {
		return nil, err
	}
	m, ok := d.robots.Map(robotID)
	if !ok {
		return nil, d.reject(robotID, KindGoTo, ErrNoMap)
	}
	p := mapdata.Point{X: x, Y: y}
	if !inBounds(m, p) {
		return nil, d.reject(robotID, KindGoTo, fmt.Errorf("point (%d,%d): %w", x, y, ErrInvalidTarget))
	}

	phys := m.Transform(d.defaultPixelMm).ToPhysical(p)
	args := mustJSON(map[string]any{"x": x, "y": y, "x_mm": phys.X, "y_mm": phys.Y})
	job, err := d.createJob(robotID, KindGoTo, args, source)
	if err != nil {
		return nil, err
	}
	if err := client.GoTo(phys.X, phys.Y); err != nil {
		return job, d.failJob(job, err)
	}
	d.accept(job)
	return job, nil
}

// Basic runs a start/stop/pause/home control action. Start is tracked as a
// running job; the others complete as soon as the firmware accepts them.
func (d *Dispatcher) Basic(robotID, action, source string) (*store.Job, error) {
	client, err := d.connectedClient(robotID, KindBasic)
	if err != nil {
		return nil, err
	}
	switch action {
	case ActionStart, ActionStop, ActionPause, ActionHome:
	default:
		return nil, d.reject(robotID, KindBasic, fmt.Errorf("action %q: %w", action, ErrInvalidAction))
	}

	args := mustJSON(map[string]any{"action": action})
	job, err := d.createJob(robotID, KindBasic, args, source)
	if err != nil {
		return nil, err
	}

	var callErr error
	switch action {
	case ActionStart:
		callErr = client.Start()
	case ActionStop:
		callErr = client.Stop()
	case ActionPause:
		callErr = client.Pause()
	case ActionHome:
		callErr = client.Home()
	}
	if callErr != nil {
		return job, d.failJob(job, callErr)
	}

	if action == ActionStart {
		d.accept(job)
	} else {
		d.complete(job, action)
	}
	return job, nil
}

// SetFanSpeed selects a suction preset. Fire and forget: the job completes
// once the firmware accepts it.
func (d *Dispatcher) SetFanSpeed(robotID, preset, source string) (*store.Job, error) {
	client, err := d.connectedClient(robotID, KindFanSpeed)
	if err != nil {
		return nil, err
	}
	if preset == "" {
		return nil, d.reject(robotID, KindFanSpeed, fmt.Errorf("empty preset: %w", ErrInvalidAction))
	}

	args := mustJSON(map[string]any{"preset": preset})
	job, err := d.createJob(robotID, KindFanSpeed, args, source)
	if err != nil {
		return nil, err
	}
	if err := client.SetFanSpeed(preset); err != nil {
		return job, d.failJob(job, err)
	}
	d.complete(job, preset)
	return job, nil
}

// Locate makes the robot announce itself.
func (d *Dispatcher) Locate(robotID, source string) (*store.Job, error) {
	client, err := d.connectedClient(robotID, KindLocate)
	if err != nil {
		return nil, err
	}

	job, err := d.createJob(robotID, KindLocate, "{}", source)
	if err != nil {
		return nil, err
	}
	if err := client.Locate(); err != nil {
		return job, d.failJob(job, err)
	}
	d.complete(job, "")
	return job, nil
}

// connectedClient resolves the robot and checks it is reachable.
func (d *Dispatcher) connectedClient(robotID, kind string) (*valetudo.Client, error) {
	client, ok := d.robots.Client(robotID)
	if !ok {
		return nil, d.reject(robotID, kind, fmt.Errorf("robot %q: %w", robotID, ErrUnknownRobot))
	}
	if !d.robots.IsConnected(robotID) {
		return nil, d.reject(robotID, kind, fmt.Errorf("robot %q: %w", robotID, ErrNotConnected))
	}
	return client, nil
}

func (d *Dispatcher) reject(robotID, kind string, err error) error {
	log.Printf("dispatch: %s for %s rejected: %v", kind, robotID, err)
	d.emitter.EmitCommandRejected(robotID, kind, err.Error())
	return err
}

func (d *Dispatcher) createJob(robotID, kind, args, source string) (*store.Job, error) {
	job := &store.Job{
		JobUUID: uuid.New().String(),
		RobotID: robotID,
		Kind:    kind,
		Args:    args,
		Source:  source,
		Status:  StatusPending,
	}
	if err := d.db.CreateJob(job); err != nil {
		log.Printf("dispatch: create job: %v", err)
		return nil, fmt.Errorf("create job: %w", err)
	}
	return job, nil
}

// failJob marks the job failed after the firmware refused it and returns
// the wrapped vendor error.
func (d *Dispatcher) failJob(job *store.Job, err error) error {
	log.Printf("dispatch: job %d (%s) for %s failed: %v", job.ID, job.Kind, job.RobotID, err)
	if dbErr := d.db.CompleteJob(job.ID, StatusFailed, err.Error()); dbErr != nil {
		log.Printf("dispatch: mark job %d failed: %v", job.ID, dbErr)
	}
	job.Status = StatusFailed
	d.emitter.EmitJobFailed(job.ID, job.JobUUID, job.RobotID, job.Kind, ErrorCode(err), err.Error())
	return fmt.Errorf("dispatch %s: %w", job.Kind, err)
}

// accept marks a tracked job dispatched. The engine promotes it to running
// and eventually completes it from robot status transitions.
func (d *Dispatcher) accept(job *store.Job) {
	if err := d.db.UpdateJobStatus(job.ID, StatusDispatched, "accepted by firmware"); err != nil {
		log.Printf("dispatch: mark job %d dispatched: %v", job.ID, err)
	}
	job.Status = StatusDispatched
	log.Printf("dispatch: job %d (%s) for %s dispatched", job.ID, job.Kind, job.RobotID)
	d.emitter.EmitJobStarted(job.ID, job.JobUUID, job.RobotID, job.Kind)
}

// complete finishes a fire-and-forget job immediately.
func (d *Dispatcher) complete(job *store.Job, detail string) {
	if err := d.db.CompleteJob(job.ID, StatusCompleted, detail); err != nil {
		log.Printf("dispatch: mark job %d completed: %v", job.ID, err)
	}
	job.Status = StatusCompleted
	log.Printf("dispatch: job %d (%s) for %s completed", job.ID, job.Kind, job.RobotID)
	d.emitter.EmitJobCompleted(job.ID, job.JobUUID, job.RobotID, job.Kind, detail)
}

// ErrorCode classifies a dispatch error for wire replies and HTTP
// responses.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrUnknownRobot):
		return "unknown_robot"
	case errors.Is(err, ErrNotConnected):
		return "not_connected"
	case errors.Is(err, ErrNoMap):
		return "no_map"
	case errors.Is(err, ErrEmptySelection):
		return "empty_selection"
	case errors.Is(err, ErrUnknownSegment):
		return "unknown_segment"
	case errors.Is(err, ErrInvalidZone):
		return "invalid_zone"
	case errors.Is(err, ErrInvalidTarget):
		return "invalid_target"
	case errors.Is(err, ErrInvalidAction):
		return "invalid_action"
	case errors.Is(err, valetudo.ErrNotSupported):
		return "not_supported"
	default:
		return "dispatch_failed"
	}
}

// inBounds checks a pixel point against the map's declared size. Documents
// without a size skip the check.
func inBounds(m *mapdata.Map, p mapdata.Point) bool {
	if m.Size.X <= 0 || m.Size.Y <= 0 {
		return true
	}
	return p.X >= 0 && p.X < m.Size.X && p.Y >= 0 && p.Y < m.Size.Y
}

func clampIterations(n int) int {
	if n < 1 {
		return 1
	}
	if n > 4 {
		return 4
	}
	return n
}

func mustJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(data)
}
