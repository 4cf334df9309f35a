// Package engine ties the hub together: it owns the event bus, the robot
// manager and the command dispatcher, and wires robot telemetry events to
// persistence, the state cache and the controller channel.
package engine

import (
	"log"
	"sync"
	"time"

	"vachub/config"
	"vachub/dispatch"
	"vachub/messaging"
	"vachub/robot"
	"vachub/statecache"
	"vachub/store"
)

type LogFunc func(format string, args ...any)

// Config carries the engine's collaborators. MsgClient and Reporter are nil
// when no messaging backend is configured; Cache is nil only in tests.
type Config struct {
	AppConfig *config.Config
	DB        *store.DB
	Cache     *statecache.Manager
	MsgClient *messaging.Client
	Reporter  *messaging.Reporter
	LogFunc   LogFunc
}

// activeJob is the one tracked job per robot whose completion is decided
// from robot status transitions rather than by the dispatcher.
type activeJob struct {
	id     int64
	uuid   string
	kind   string
	status string
}

type Engine struct {
	cfg        *config.Config
	db         *store.DB
	cache      *statecache.Manager
	msgClient  *messaging.Client
	reporter   *messaging.Reporter
	robots     *robot.Manager
	dispatcher *dispatch.Dispatcher
	Events     *EventBus
	logFn      LogFunc
	stopChan   chan struct{}

	mu           sync.Mutex
	active       map[string]*activeJob
	lastSegments map[string]map[string]bool
	lastSnapshot map[string]time.Time
	msgConnected bool
}

// New builds the engine and its robot manager. Nothing runs until Start.
func New(c Config) *Engine {
	logFn := c.LogFunc
	if logFn == nil {
		logFn = log.Printf
	}
	e := &Engine{
		cfg:          c.AppConfig,
		db:           c.DB,
		cache:        c.Cache,
		msgClient:    c.MsgClient,
		reporter:     c.Reporter,
		Events:       NewEventBus(),
		logFn:        logFn,
		stopChan:     make(chan struct{}),
		active:       make(map[string]*activeJob),
		lastSegments: make(map[string]map[string]bool),
		lastSnapshot: make(map[string]time.Time),
	}
	e.robots = robot.NewManager(c.AppConfig, &robotEmitter{bus: e.Events})
	e.dispatcher = dispatch.NewDispatcher(c.DB, e.robots, &dispatchEmitter{bus: e.Events}, c.AppConfig.Map.DefaultPixelSizeMm)
	return e
}

// Start wires the event handlers, resumes jobs left active by a previous
// run, launches the robot loops and begins the connection health loop.
func (e *Engine) Start() {
	e.wireEventHandlers()
	e.resumeActiveJobs()
	e.robots.Start()
	e.checkConnectionStatus()
	go e.connectionHealthLoop()
	e.logFn("engine: started (%d robots)", len(e.cfg.Robots))
}

func (e *Engine) Stop() {
	select {
	case e.stopChan <- struct{}{}:
	default:
	}
	e.robots.Stop()
	e.logFn("engine: stopped")
}

// Accessors
func (e *Engine) DB() *store.DB                    { return e.db }
func (e *Engine) AppConfig() *config.Config        { return e.cfg }
func (e *Engine) Dispatcher() *dispatch.Dispatcher { return e.dispatcher }
func (e *Engine) Robots() *robot.Manager           { return e.robots }
func (e *Engine) Cache() *statecache.Manager       { return e.cache }
func (e *Engine) MsgClient() *messaging.Client     { return e.msgClient }

// resumeActiveJobs reloads the newest dispatched or running job per robot
// so a restart does not orphan jobs whose completion is detected from
// status transitions.
func (e *Engine) resumeActiveJobs() {
	jobs, err := e.db.ListActiveJobs()
	if err != nil {
		e.logFn("engine: resume active jobs: %v", err)
		return
	}
	resumed := 0
	e.mu.Lock()
	for _, j := range jobs {
		if j.Status != dispatch.StatusDispatched && j.Status != dispatch.StatusRunning {
			continue
		}
		if _, tracked := e.active[j.RobotID]; tracked {
			continue // ListActiveJobs is newest first; keep the newest
		}
		e.active[j.RobotID] = &activeJob{id: j.ID, uuid: j.JobUUID, kind: j.Kind, status: j.Status}
		resumed++
	}
	e.mu.Unlock()
	if resumed > 0 {
		e.logFn("engine: resumed %d active jobs", resumed)
	}
}

// checkConnectionStatus emits messaging connectivity transitions. Robot
// connectivity is not checked here; the per-robot loops own those events.
func (e *Engine) checkConnectionStatus() {
	if e.msgClient == nil {
		return
	}
	connected := e.msgClient.IsConnected()
	e.mu.Lock()
	was := e.msgConnected
	e.msgConnected = connected
	e.mu.Unlock()

	if connected && !was {
		e.Events.Emit(Event{Type: EventMessagingConnected, Payload: ConnectionEvent{Detail: "messaging connected"}})
	} else if !connected && was {
		e.Events.Emit(Event{Type: EventMessagingDisconnected, Payload: ConnectionEvent{Detail: "messaging disconnected"}})
	}
}

func (e *Engine) connectionHealthLoop() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-e.stopChan:
			return
		case <-ticker.C:
			e.checkConnectionStatus()
		}
	}
}
