package messaging

import (
	"log"
	"sync"
	"time"

	"vachub/protocol"
)

// Reporter publishes robot telemetry to controllers on the state topic.
// State reports go out immediately when they differ from the last sent one;
// map reports are coalesced and flushed on a timer since they are heavy and
// segment geometry rarely changes mid-run.
type Reporter struct {
	client   *Client
	hubID    string
	topic    string
	interval time.Duration

	mu          sync.Mutex
	lastState   map[string]protocol.StateReport
	pendingMaps map[string]*protocol.MapReport

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewReporter creates a reporter for the given hub identity.
func NewReporter(client *Client, hubID, stateTopic string) *Reporter {
	return &Reporter{
		client:      client,
		hubID:       hubID,
		topic:       stateTopic,
		interval:    60 * time.Second,
		lastState:   make(map[string]protocol.StateReport),
		pendingMaps: make(map[string]*protocol.MapReport),
		stopCh:      make(chan struct{}),
	}
}

// RecordState publishes a state report if it differs from the previous one
// for that robot.
func (r *Reporter) RecordState(rep protocol.StateReport) {
	r.mu.Lock()
	last, seen := r.lastState[rep.RobotID]
	if seen && last == rep {
		r.mu.Unlock()
		return
	}
	r.lastState[rep.RobotID] = rep
	r.mu.Unlock()

	r.publish(protocol.TypeStateReport, &rep)
}

// RecordMap queues a map report for the next flush, replacing any earlier
// unsent report for the same robot.
func (r *Reporter) RecordMap(rep *protocol.MapReport) {
	r.mu.Lock()
	r.pendingMaps[rep.RobotID] = rep
	r.mu.Unlock()
}

// Start begins the periodic map flush loop.
func (r *Reporter) Start() {
	go r.loop()
}

// Stop flushes any pending map reports and halts the loop.
func (r *Reporter) Stop() {
	r.stopOnce.Do(func() {
		close(r.stopCh)
		r.flushMaps()
	})
}

func (r *Reporter) loop() {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			r.flushMaps()
		}
	}
}

func (r *Reporter) flushMaps() {
	r.mu.Lock()
	if len(r.pendingMaps) == 0 {
		r.mu.Unlock()
		return
	}
	snapshot := r.pendingMaps
	r.pendingMaps = make(map[string]*protocol.MapReport)
	r.mu.Unlock()

	for _, rep := range snapshot {
		r.publish(protocol.TypeMapReport, rep)
	}
}

func (r *Reporter) publish(msgType string, payload any) {
	env, err := protocol.NewEnvelope(
		msgType,
		protocol.Address{Role: protocol.RoleHub, Hub: r.hubID},
		protocol.Address{Role: protocol.RoleController},
		payload,
	)
	if err != nil {
		log.Printf("reporter: build %s: %v", msgType, err)
		return
	}
	if err := r.client.PublishEnvelope(r.topic, env); err != nil {
		log.Printf("reporter: send %s: %v", msgType, err)
	}
}
