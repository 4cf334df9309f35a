package robot

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"vachub/config"
	"vachub/mapdata"
	"vachub/valetudo"
)

// Manager owns one ManagedRobot per configured robot and runs their
// poll or stream loops.
type Manager struct {
	cfg     *config.Config
	emitter EventEmitter

	mu     sync.RWMutex
	robots map[string]*ManagedRobot
	order  []string
}

// ManagedRobot is the live connection to one robot. Cached state is
// guarded by mu; the loops write, API handlers read.
type ManagedRobot struct {
	cfg     config.RobotConfig
	client  *valetudo.Client
	emitter EventEmitter

	mu         sync.RWMutex
	connected  bool
	lastErr    error
	state      *valetudo.State
	decoded    *mapdata.Map
	rawMap     []byte
	mapNonce   string
	mapVersion int
	mapAt      time.Time

	// sseClient has no timeout; SSE responses stay open indefinitely.
	// Cancellation goes through ctx instead.
	sseClient *http.Client
	ctx       context.Context
	cancel    context.CancelFunc
	stopChan  chan struct{}
	wg        sync.WaitGroup
}

// NewManager builds a manager for every robot in the config. Loops do not
// run until Start.
func NewManager(cfg *config.Config, emitter EventEmitter) *Manager {
	m := &Manager{
		cfg:     cfg,
		emitter: emitter,
		robots:  make(map[string]*ManagedRobot),
	}
	for i := range cfg.Robots {
		rc := cfg.Robots[i]
		ctx, cancel := context.WithCancel(context.Background())
		m.robots[rc.ID] = &ManagedRobot{
			cfg:       rc,
			client:    valetudo.NewClient(rc.BaseURL, rc.Timeout),
			emitter:   emitter,
			sseClient: &http.Client{Timeout: 0},
			ctx:       ctx,
			cancel:    cancel,
			stopChan:  make(chan struct{}),
		}
		m.order = append(m.order, rc.ID)
	}
	return m
}

// Start launches the per-robot loops.
func (m *Manager) Start() {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, id := range m.order {
		r := m.robots[id]
		r.start()
		log.Printf("robot: managing %s at %s (%s mode)", id, r.cfg.BaseURL, r.cfg.Mode)
	}
}

// Stop shuts down all loops and waits for them to exit.
func (m *Manager) Stop() {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, id := range m.order {
		m.robots[id].stop()
	}
	log.Printf("robot: manager stopped")
}

func (m *Manager) get(robotID string) (*ManagedRobot, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.robots[robotID]
	return r, ok
}

// Client returns the HTTP client for a configured robot.
func (m *Manager) Client(robotID string) (*valetudo.Client, bool) {
	r, ok := m.get(robotID)
	if !ok {
		return nil, false
	}
	return r.client, true
}

// IsConnected reports whether the robot answered its most recent poll or
// still holds an open stream.
func (m *Manager) IsConnected(robotID string) bool {
	r, ok := m.get(robotID)
	if !ok {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.connected
}

// Map returns the most recently decoded map document.
func (m *Manager) Map(robotID string) (*mapdata.Map, bool) {
	r, ok := m.get(robotID)
	if !ok {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.decoded == nil {
		return nil, false
	}
	return r.decoded, true
}

// RawMap returns the raw JSON of the most recent map document. The bytes
// are shared; callers must not modify them.
func (m *Manager) RawMap(robotID string) ([]byte, bool) {
	r, ok := m.get(robotID)
	if !ok {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.rawMap == nil {
		return nil, false
	}
	return r.rawMap, true
}

// State returns the most recent state attributes.
func (m *Manager) State(robotID string) (*valetudo.State, bool) {
	r, ok := m.get(robotID)
	if !ok {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.state == nil {
		return nil, false
	}
	return r.state, true
}

// LastError returns the error from the robot's most recent failed fetch,
// nil while healthy.
func (m *Manager) LastError(robotID string) error {
	r, ok := m.get(robotID)
	if !ok {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastErr
}

// RobotIDs returns the managed robot ids in config order.
func (m *Manager) RobotIDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, len(m.order))
	copy(ids, m.order)
	return ids
}

// OnlineCount returns how many robots are currently connected.
func (m *Manager) OnlineCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, r := range m.robots {
		r.mu.RLock()
		if r.connected {
			n++
		}
		r.mu.RUnlock()
	}
	return n
}

func (r *ManagedRobot) start() {
	if r.cfg.Mode == "sse" {
		r.wg.Add(2)
		go r.streamLoop(streamAttributes)
		go r.streamLoop(streamMap)
		return
	}
	r.wg.Add(1)
	go r.pollLoop()
}

func (r *ManagedRobot) stop() {
	select {
	case <-r.stopChan:
	default:
		close(r.stopChan)
	}
	r.cancel()
	r.wg.Wait()

	r.mu.Lock()
	was := r.connected
	r.connected = false
	r.mu.Unlock()
	if was {
		r.emitter.EmitRobotDisconnected(r.cfg.ID, nil)
	}
}

func (r *ManagedRobot) pollLoop() {
	defer r.wg.Done()

	stateTicker := time.NewTicker(r.cfg.PollInterval)
	defer stateTicker.Stop()
	mapTicker := time.NewTicker(r.cfg.MapInterval)
	defer mapTicker.Stop()

	// Immediate first fetch so callers see data before the first tick.
	r.pollState()
	r.pollMap()

	for {
		select {
		case <-r.stopChan:
			return
		case <-stateTicker.C:
			r.pollState()
		case <-mapTicker.C:
			r.pollMap()
		}
	}
}

// pollState fetches the attribute list. State polling owns the connected
// flag in poll mode: a failed fetch marks the robot down, a successful one
// marks it up.
func (r *ManagedRobot) pollState() {
	st, err := r.client.State()
	if err != nil {
		r.markDisconnected(err)
		return
	}
	r.markConnected()
	r.applyState(st)
}

// pollMap fetches the current map document. Map failures do not flip the
// connected flag; the state loop decides that.
func (r *ManagedRobot) pollMap() {
	data, err := r.client.MapJSON()
	if err != nil {
		log.Printf("robot %s: fetch map: %v", r.cfg.ID, err)
		return
	}
	r.applyMapJSON(data)
}

func (r *ManagedRobot) applyState(st *valetudo.State) {
	r.mu.Lock()
	prev := r.state
	r.state = st
	r.mu.Unlock()

	if prev == nil || prev.Status != st.Status {
		old := ""
		if prev != nil {
			old = prev.Status
		}
		r.emitter.EmitStatusChanged(r.cfg.ID, old, st.Status)
	}
	if prev == nil || prev.BatteryLevel != st.BatteryLevel || prev.BatteryFlag != st.BatteryFlag {
		r.emitter.EmitBatteryUpdated(r.cfg.ID, st.BatteryLevel, st.BatteryFlag)
	}
	r.emitter.EmitStateUpdated(r.cfg.ID, st)
}

// applyMapJSON decodes one map document and publishes it. A document that
// fails to decode is dropped whole and the previous map kept; the decoder
// never yields partial documents. Identical raw bytes are skipped so idle
// robots that re-send the same map do not generate update churn.
func (r *ManagedRobot) applyMapJSON(data []byte) {
	r.mu.RLock()
	same := r.rawMap != nil && bytes.Equal(r.rawMap, data)
	r.mu.RUnlock()
	if same {
		return
	}

	var raw mapdata.RawMap
	if err := json.Unmarshal(data, &raw); err != nil {
		log.Printf("robot %s: map json: %v", r.cfg.ID, err)
		return
	}
	decoded, err := mapdata.BuildMap(&raw)
	if err != nil {
		log.Printf("robot %s: decode map: %v (keeping previous map)", r.cfg.ID, err)
		return
	}

	r.mu.Lock()
	r.decoded = decoded
	r.rawMap = data
	r.mapNonce = raw.MetaData.Nonce
	r.mapVersion = raw.MetaData.Version
	r.mapAt = time.Now()
	r.mu.Unlock()

	r.emitter.EmitMapUpdated(r.cfg.ID, decoded, data, raw.MetaData.Nonce, raw.MetaData.Version)
}

func (r *ManagedRobot) markConnected() {
	r.mu.Lock()
	was := r.connected
	r.connected = true
	r.lastErr = nil
	r.mu.Unlock()
	if !was {
		log.Printf("robot %s: connected (%s)", r.cfg.ID, r.cfg.BaseURL)
		r.emitter.EmitRobotConnected(r.cfg.ID)
	}
}

func (r *ManagedRobot) markDisconnected(err error) {
	r.mu.Lock()
	was := r.connected
	r.connected = false
	r.lastErr = err
	r.mu.Unlock()
	if was {
		log.Printf("robot %s: connection lost: %v", r.cfg.ID, err)
		r.emitter.EmitRobotDisconnected(r.cfg.ID, err)
	}
}
