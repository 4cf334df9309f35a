package messaging

import (
	"log"
	"os"
	"sync"
	"time"

	"vachub/protocol"
)

// Heartbeater sends hub.register on startup and hub.heartbeat periodically
// on the state topic.
type Heartbeater struct {
	client    *Client
	hubID     string
	version   string
	robotIDs  []string
	online    func() int
	topic     string
	interval  time.Duration
	startTime time.Time

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewHeartbeater creates a heartbeater for the given hub identity. online
// reports how many robots are currently connected.
func NewHeartbeater(client *Client, hubID, version string, robotIDs []string, online func() int, stateTopic string) *Heartbeater {
	return &Heartbeater{
		client:   client,
		hubID:    hubID,
		version:  version,
		robotIDs: robotIDs,
		online:   online,
		topic:    stateTopic,
		interval: 60 * time.Second,
		stopCh:   make(chan struct{}),
	}
}

// Start sends an initial registration and begins the heartbeat loop.
func (h *Heartbeater) Start() {
	h.startTime = time.Now()
	h.sendRegister()
	go h.loop()
}

// Stop halts the heartbeat loop.
func (h *Heartbeater) Stop() {
	h.stopOnce.Do(func() { close(h.stopCh) })
}

func (h *Heartbeater) sendRegister() {
	hostname, _ := os.Hostname()
	env, err := protocol.NewEnvelope(
		protocol.TypeHubRegister,
		protocol.Address{Role: protocol.RoleHub, Hub: h.hubID},
		protocol.Address{Role: protocol.RoleController},
		&protocol.HubRegister{
			HubID:    h.hubID,
			Hostname: hostname,
			Version:  h.version,
			RobotIDs: h.robotIDs,
		},
	)
	if err != nil {
		log.Printf("heartbeater: build register: %v", err)
		return
	}
	if err := h.client.PublishEnvelope(h.topic, env); err != nil {
		log.Printf("heartbeater: send register: %v", err)
	} else {
		log.Printf("heartbeater: sent hub.register (hub=%s, robots=%d)", h.hubID, len(h.robotIDs))
	}
}

func (h *Heartbeater) sendHeartbeat() {
	online := 0
	if h.online != nil {
		online = h.online()
	}
	env, err := protocol.NewEnvelope(
		protocol.TypeHubHeartbeat,
		protocol.Address{Role: protocol.RoleHub, Hub: h.hubID},
		protocol.Address{Role: protocol.RoleController},
		&protocol.HubHeartbeat{
			HubID:        h.hubID,
			Uptime:       int64(time.Since(h.startTime).Seconds()),
			RobotsOnline: online,
		},
	)
	if err != nil {
		log.Printf("heartbeater: build heartbeat: %v", err)
		return
	}
	if err := h.client.PublishEnvelope(h.topic, env); err != nil {
		log.Printf("heartbeater: send heartbeat: %v", err)
	}
}

func (h *Heartbeater) loop() {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case <-h.stopCh:
			return
		case <-ticker.C:
			h.sendHeartbeat()
		}
	}
}
