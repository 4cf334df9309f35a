package engine

import (
	"path/filepath"
	"testing"
	"time"

	"vachub/config"
	"vachub/dispatch"
	"vachub/mapdata"
	"vachub/statecache"
	"vachub/store"
	"vachub/valetudo"
)

func testDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(&config.DatabaseConfig{
		Driver: "sqlite",
		SQLite: config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "test.db")},
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// newTestEngine builds a started engine over a temp database and a
// memory-only cache, with no robots and no messaging.
func newTestEngine(t *testing.T, tweak func(*config.Config)) *Engine {
	t.Helper()
	cfg := config.Defaults()
	cfg.Map.SnapshotMinInterval = 0
	if tweak != nil {
		tweak(cfg)
	}
	e := New(Config{
		AppConfig: cfg,
		DB:        testDB(t),
		Cache:     statecache.NewManager(nil),
		LogFunc:   t.Logf,
	})
	e.Start()
	t.Cleanup(e.Stop)
	return e
}

func parseTestMap(t *testing.T, doc string) *mapdata.Map {
	t.Helper()
	m, err := mapdata.ParseMap([]byte(doc))
	if err != nil {
		t.Fatalf("parse test map: %v", err)
	}
	return m
}

const mapDocA = `{
	"size":{"x":200,"y":100},
	"pixelSize":50,
	"layers":[
		{"type":"segment","metaData":{"segmentId":"7","name":"Kitchen"},"compressedPixels":[10,10,5]},
		{"type":"segment","metaData":{"segmentId":"9","name":"Hall"},"compressedPixels":[40,12,3]}
	],
	"entities":[]
}`

// mapDocB drops segment 9 and adds segment 12.
const mapDocB = `{
	"size":{"x":200,"y":100},
	"pixelSize":50,
	"layers":[
		{"type":"segment","metaData":{"segmentId":"7","name":"Kitchen"},"compressedPixels":[10,10,5]},
		{"type":"segment","metaData":{"segmentId":"12","name":"Bedroom"},"compressedPixels":[60,30,4]}
	],
	"entities":[]
}`

func emitMap(e *Engine, robotID, doc string, m *mapdata.Map, nonce string) {
	e.Events.Emit(Event{Type: EventMapUpdated, Payload: MapUpdatedEvent{
		RobotID: robotID,
		Map:     m,
		Raw:     []byte(doc),
		Nonce:   nonce,
		Version: 2,
	}})
}

func TestMapUpdated_CachesSnapshotsAndRegistersSegments(t *testing.T) {
	e := newTestEngine(t, nil)
	m := parseTestMap(t, mapDocA)

	emitMap(e, "vac1", mapDocA, m, "n1")

	if cached, ok := e.Cache().Map("vac1"); !ok || cached != m {
		t.Error("decoded map should land in the cache")
	}

	snaps, err := e.DB().ListMapSnapshots("vac1", 10)
	if err != nil {
		t.Fatalf("ListMapSnapshots: %v", err)
	}
	if len(snaps) != 1 {
		t.Fatalf("snapshots = %d, want 1", len(snaps))
	}
	if snaps[0].Nonce != "n1" || snaps[0].SizeX != 200 || snaps[0].SegmentCount != 2 {
		t.Errorf("snapshot = %+v", snaps[0])
	}

	segs, err := e.DB().ListRobotSegments("vac1")
	if err != nil {
		t.Fatalf("ListRobotSegments: %v", err)
	}
	if len(segs) != 2 {
		t.Fatalf("segments = %d, want 2", len(segs))
	}
	if segs[0].SegmentID != "7" || segs[0].Name != "Kitchen" || segs[0].PixelCount != 5 {
		t.Errorf("segment = %+v", segs[0])
	}
}

func TestMapUpdated_SnapshotThrottle(t *testing.T) {
	e := newTestEngine(t, func(cfg *config.Config) {
		cfg.Map.SnapshotMinInterval = time.Hour
	})
	m := parseTestMap(t, mapDocA)

	emitMap(e, "vac1", mapDocA, m, "n1")
	emitMap(e, "vac1", mapDocA, m, "n2")

	count, err := e.DB().CountMapSnapshots("vac1")
	if err != nil {
		t.Fatalf("CountMapSnapshots: %v", err)
	}
	if count != 1 {
		t.Errorf("snapshots = %d, want 1 (second update inside min interval)", count)
	}
}

func TestMapUpdated_SnapshotRetention(t *testing.T) {
	e := newTestEngine(t, func(cfg *config.Config) {
		cfg.Map.SnapshotRetention = 2
	})
	m := parseTestMap(t, mapDocA)

	for _, nonce := range []string{"n1", "n2", "n3"} {
		emitMap(e, "vac1", mapDocA, m, nonce)
	}

	snaps, err := e.DB().ListMapSnapshots("vac1", 10)
	if err != nil {
		t.Fatalf("ListMapSnapshots: %v", err)
	}
	if len(snaps) != 2 {
		t.Fatalf("snapshots = %d, want 2 after pruning", len(snaps))
	}
	// Newest first; the oldest row is the pruned one.
	if snaps[0].Nonce != "n3" || snaps[1].Nonce != "n2" {
		t.Errorf("kept nonces = %s, %s", snaps[0].Nonce, snaps[1].Nonce)
	}
}

func TestMapUpdated_SegmentsChanged(t *testing.T) {
	e := newTestEngine(t, nil)
	var changes []SegmentsChangedEvent
	e.Events.SubscribeTypes(func(evt Event) {
		changes = append(changes, evt.Payload.(SegmentsChangedEvent))
	}, EventSegmentsChanged)

	emitMap(e, "vac1", mapDocA, parseTestMap(t, mapDocA), "n1")
	if len(changes) != 0 {
		t.Fatalf("first map must only seed the comparison set, got %+v", changes)
	}

	emitMap(e, "vac1", mapDocB, parseTestMap(t, mapDocB), "n2")
	if len(changes) != 1 {
		t.Fatalf("changes = %+v, want 1", changes)
	}
	ev := changes[0]
	if len(ev.Added) != 1 || ev.Added[0] != "12" {
		t.Errorf("added = %v", ev.Added)
	}
	if len(ev.Removed) != 1 || ev.Removed[0] != "9" {
		t.Errorf("removed = %v", ev.Removed)
	}

	// Same set again: no event.
	emitMap(e, "vac1", mapDocB, parseTestMap(t, mapDocB), "n3")
	if len(changes) != 1 {
		t.Errorf("unchanged map emitted %+v", changes[1:])
	}
}

func TestConnectionEvents_UpdateCache(t *testing.T) {
	e := newTestEngine(t, nil)

	e.Events.Emit(Event{Type: EventRobotConnected, Payload: RobotConnectionEvent{RobotID: "vac1"}})
	st, ok := e.Cache().State("vac1")
	if !ok || !st.Connected {
		t.Fatalf("state after connect = %+v", st)
	}

	e.Events.Emit(Event{Type: EventStateUpdated, Payload: StateUpdatedEvent{
		RobotID: "vac1",
		State: &valetudo.State{
			Status:       "cleaning",
			BatteryLevel: 76,
			FanSpeed:     "max",
			Attachments:  []valetudo.Attachment{{Type: "watertank", Attached: true}},
		},
	}})
	st, _ = e.Cache().State("vac1")
	if st.Status != "cleaning" || st.BatteryLevel != 76 || !st.Connected {
		t.Errorf("state after update = %+v", st)
	}
	if !st.Attachments["watertank"] {
		t.Errorf("attachments = %v", st.Attachments)
	}

	e.Events.Emit(Event{Type: EventRobotDisconnected, Payload: RobotConnectionEvent{RobotID: "vac1", Detail: "timeout"}})
	st, _ = e.Cache().State("vac1")
	if st.Connected {
		t.Error("state should be disconnected")
	}
	if st.Status != "cleaning" {
		t.Errorf("disconnect must not wipe the last status, got %q", st.Status)
	}
}

func TestJobLifecycle_StatusTransitions(t *testing.T) {
	e := newTestEngine(t, nil)
	var completed []JobCompletedEvent
	e.Events.SubscribeTypes(func(evt Event) {
		completed = append(completed, evt.Payload.(JobCompletedEvent))
	}, EventJobCompleted)

	// Segment registry rows so completion can bump counters.
	emitMap(e, "vac1", mapDocA, parseTestMap(t, mapDocA), "n1")

	job := &store.Job{
		JobUUID: "u1",
		RobotID: "vac1",
		Kind:    dispatch.KindCleanSegments,
		Args:    `{"segment_ids":["7"],"iterations":1}`,
		Status:  dispatch.StatusDispatched,
	}
	if err := e.DB().CreateJob(job); err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	e.Events.Emit(Event{Type: EventJobStarted, Payload: JobStartedEvent{
		JobID: job.ID, JobUUID: job.JobUUID, RobotID: "vac1", Kind: job.Kind,
	}})

	// A settled status before the robot ever went active must not
	// complete the job; the robot is just still on its dock.
	e.Events.Emit(Event{Type: EventStatusChanged, Payload: StatusChangedEvent{RobotID: "vac1", OldStatus: "", NewStatus: "docked"}})
	if got, _ := e.DB().GetJob(job.ID); got.Status != dispatch.StatusDispatched {
		t.Fatalf("status after early docked = %q", got.Status)
	}

	e.Events.Emit(Event{Type: EventStatusChanged, Payload: StatusChangedEvent{RobotID: "vac1", OldStatus: "docked", NewStatus: "cleaning"}})
	if got, _ := e.DB().GetJob(job.ID); got.Status != dispatch.StatusRunning {
		t.Fatalf("status after cleaning = %q", got.Status)
	}

	e.Events.Emit(Event{Type: EventStatusChanged, Payload: StatusChangedEvent{RobotID: "vac1", OldStatus: "cleaning", NewStatus: "returning"}})
	e.Events.Emit(Event{Type: EventStatusChanged, Payload: StatusChangedEvent{RobotID: "vac1", OldStatus: "returning", NewStatus: "docked"}})

	got, err := e.DB().GetJob(job.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.Status != dispatch.StatusCompleted {
		t.Fatalf("final status = %q, want %q", got.Status, dispatch.StatusCompleted)
	}
	if got.CompletedAt == nil {
		t.Error("completed job should have completed_at")
	}
	if len(completed) != 1 || completed[0].JobID != job.ID {
		t.Errorf("completed events = %+v", completed)
	}

	seg, err := e.DB().GetSegment("vac1", "7")
	if err != nil {
		t.Fatalf("GetSegment: %v", err)
	}
	if seg.CleanedCount != 1 {
		t.Errorf("cleaned count = %d, want 1", seg.CleanedCount)
	}

	// Job untracked: a later transition must not touch it again.
	e.Events.Emit(Event{Type: EventStatusChanged, Payload: StatusChangedEvent{RobotID: "vac1", OldStatus: "docked", NewStatus: "cleaning"}})
	e.Events.Emit(Event{Type: EventStatusChanged, Payload: StatusChangedEvent{RobotID: "vac1", OldStatus: "cleaning", NewStatus: "docked"}})
	if len(completed) != 1 {
		t.Errorf("untracked robot produced events: %+v", completed[1:])
	}
}

func TestJobLifecycle_ErrorFailsJob(t *testing.T) {
	e := newTestEngine(t, nil)
	var failed []JobFailedEvent
	e.Events.SubscribeTypes(func(evt Event) {
		failed = append(failed, evt.Payload.(JobFailedEvent))
	}, EventJobFailed)

	job := &store.Job{JobUUID: "u2", RobotID: "vac1", Kind: dispatch.KindBasic, Status: dispatch.StatusDispatched}
	if err := e.DB().CreateJob(job); err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	e.Events.Emit(Event{Type: EventJobStarted, Payload: JobStartedEvent{
		JobID: job.ID, JobUUID: job.JobUUID, RobotID: "vac1", Kind: job.Kind,
	}})
	e.Events.Emit(Event{Type: EventStatusChanged, Payload: StatusChangedEvent{RobotID: "vac1", OldStatus: "idle", NewStatus: "error"}})

	got, err := e.DB().GetJob(job.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.Status != dispatch.StatusFailed {
		t.Errorf("status = %q, want %q", got.Status, dispatch.StatusFailed)
	}
	if len(failed) != 1 || failed[0].ErrorCode != "robot_error" {
		t.Errorf("failed events = %+v", failed)
	}
}

func TestResumeActiveJobs(t *testing.T) {
	db := testDB(t)
	job := &store.Job{JobUUID: "u3", RobotID: "vac1", Kind: dispatch.KindBasic, Status: dispatch.StatusRunning}
	if err := db.CreateJob(job); err != nil {
		t.Fatalf("CreateJob: %v", err)
	}

	cfg := config.Defaults()
	e := New(Config{AppConfig: cfg, DB: db, Cache: statecache.NewManager(nil), LogFunc: t.Logf})
	e.Start()
	t.Cleanup(e.Stop)

	// The resumed job completes off the first settled transition.
	e.Events.Emit(Event{Type: EventStatusChanged, Payload: StatusChangedEvent{RobotID: "vac1", OldStatus: "cleaning", NewStatus: "docked"}})
	got, err := db.GetJob(job.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.Status != dispatch.StatusCompleted {
		t.Errorf("resumed job status = %q, want %q", got.Status, dispatch.StatusCompleted)
	}
}

func TestNotices_EnqueuedForController(t *testing.T) {
	e := newTestEngine(t, func(cfg *config.Config) {
		cfg.Messaging.Backend = "mqtt"
	})

	e.Events.Emit(Event{Type: EventRobotConnected, Payload: RobotConnectionEvent{RobotID: "vac1"}})

	msgs, err := e.DB().ListPendingOutbox(10)
	if err != nil {
		t.Fatalf("ListPendingOutbox: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("outbox = %d messages, want 1", len(msgs))
	}
	if msgs[0].MsgType != "robot.event" || msgs[0].RobotID != "vac1" {
		t.Errorf("outbox message = %+v", msgs[0])
	}
	if msgs[0].Topic != e.AppConfig().Messaging.StateTopic {
		t.Errorf("topic = %q", msgs[0].Topic)
	}
}

func TestNotices_DisabledWithoutBackend(t *testing.T) {
	e := newTestEngine(t, nil)

	e.Events.Emit(Event{Type: EventRobotConnected, Payload: RobotConnectionEvent{RobotID: "vac1"}})

	msgs, err := e.DB().ListPendingOutbox(10)
	if err != nil {
		t.Fatalf("ListPendingOutbox: %v", err)
	}
	if len(msgs) != 0 {
		t.Errorf("outbox should stay empty without a backend, got %d", len(msgs))
	}
}
