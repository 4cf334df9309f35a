package www

import (
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"vachub/engine"
)

type SSEEvent struct {
	Event string
	Data  string
}

type EventHub struct {
	mu        sync.RWMutex
	clients   map[chan SSEEvent]struct{}
	broadcast chan SSEEvent
	stopChan  chan struct{}
}

func NewEventHub() *EventHub {
	return &EventHub{
		clients:   make(map[chan SSEEvent]struct{}),
		broadcast: make(chan SSEEvent, 256),
		stopChan:  make(chan struct{}),
	}
}

func (h *EventHub) Start() {
	go h.run()
}

func (h *EventHub) Stop() {
	select {
	case h.stopChan <- struct{}{}:
	default:
	}
}

func (h *EventHub) run() {
	keepalive := time.NewTicker(30 * time.Second)
	defer keepalive.Stop()

	for {
		select {
		case <-h.stopChan:
			return
		case evt := <-h.broadcast:
			h.mu.RLock()
			for ch := range h.clients {
				select {
				case ch <- evt:
				default:
					// drop if full
				}
			}
			h.mu.RUnlock()
		case <-keepalive.C:
			h.mu.RLock()
			for ch := range h.clients {
				select {
				case ch <- SSEEvent{Event: "keepalive", Data: "ping"}:
				default:
				}
			}
			h.mu.RUnlock()
		}
	}
}

func (h *EventHub) Broadcast(event, data string) {
	select {
	case h.broadcast <- SSEEvent{Event: event, Data: data}:
	default:
	}
}

func (h *EventHub) AddClient() chan SSEEvent {
	ch := make(chan SSEEvent, 64)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *EventHub) RemoveClient(ch chan SSEEvent) {
	h.mu.Lock()
	delete(h.clients, ch)
	h.mu.Unlock()
	close(ch)
}

func (h *EventHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// SetupEngineListeners wires engine events to SSE broadcasts.
func (h *EventHub) SetupEngineListeners(eng *engine.Engine) {
	eng.Events.SubscribeTypes(func(evt engine.Event) {
		ev := evt.Payload.(engine.RobotConnectionEvent)
		h.Broadcast("robot-update", fmt.Sprintf(`{"type":"connected","robot_id":"%s"}`, ev.RobotID))
	}, engine.EventRobotConnected)

	eng.Events.SubscribeTypes(func(evt engine.Event) {
		ev := evt.Payload.(engine.RobotConnectionEvent)
		h.Broadcast("robot-update", fmt.Sprintf(`{"type":"disconnected","robot_id":"%s"}`, ev.RobotID))
	}, engine.EventRobotDisconnected)

	eng.Events.SubscribeTypes(func(evt engine.Event) {
		ev := evt.Payload.(engine.StatusChangedEvent)
		h.Broadcast("robot-update", fmt.Sprintf(`{"type":"status_changed","robot_id":"%s","new_status":"%s"}`, ev.RobotID, ev.NewStatus))
	}, engine.EventStatusChanged)

	eng.Events.SubscribeTypes(func(evt engine.Event) {
		ev := evt.Payload.(engine.BatteryEvent)
		h.Broadcast("robot-update", fmt.Sprintf(`{"type":"battery","robot_id":"%s","level":%d,"flag":"%s"}`, ev.RobotID, ev.Level, ev.Flag))
	}, engine.EventBatteryUpdated)

	eng.Events.SubscribeTypes(func(evt engine.Event) {
		ev := evt.Payload.(engine.MapUpdatedEvent)
		h.Broadcast("map-update", fmt.Sprintf(`{"type":"map","robot_id":"%s","nonce":"%s","segments":%d}`, ev.RobotID, ev.Nonce, len(ev.Map.Segments())))
	}, engine.EventMapUpdated)

	eng.Events.SubscribeTypes(func(evt engine.Event) {
		ev := evt.Payload.(engine.SegmentsChangedEvent)
		h.Broadcast("map-update", fmt.Sprintf(`{"type":"segments_changed","robot_id":"%s","added":%d,"removed":%d}`, ev.RobotID, len(ev.Added), len(ev.Removed)))
	}, engine.EventSegmentsChanged)

	eng.Events.SubscribeTypes(func(evt engine.Event) {
		ev := evt.Payload.(engine.JobStartedEvent)
		h.Broadcast("job-update", fmt.Sprintf(`{"type":"started","job_id":%d,"robot_id":"%s","kind":"%s"}`, ev.JobID, ev.RobotID, ev.Kind))
	}, engine.EventJobStarted)

	eng.Events.SubscribeTypes(func(evt engine.Event) {
		ev := evt.Payload.(engine.JobCompletedEvent)
		h.Broadcast("job-update", fmt.Sprintf(`{"type":"%s","job_id":%d,"robot_id":"%s"}`, ev.Status, ev.JobID, ev.RobotID))
	}, engine.EventJobCompleted)

	eng.Events.SubscribeTypes(func(evt engine.Event) {
		ev := evt.Payload.(engine.JobFailedEvent)
		h.Broadcast("job-update", fmt.Sprintf(`{"type":"failed","job_id":%d,"robot_id":"%s","error_code":"%s"}`, ev.JobID, ev.RobotID, ev.ErrorCode))
	}, engine.EventJobFailed)

	eng.Events.SubscribeTypes(func(evt engine.Event) {
		ev := evt.Payload.(engine.CommandRejectedEvent)
		// Reason is free text from an error; %q keeps the JSON intact.
		h.Broadcast("job-update", fmt.Sprintf(`{"type":"rejected","robot_id":"%s","kind":"%s","reason":%q}`, ev.RobotID, ev.Kind, ev.Reason))
	}, engine.EventCommandRejected)

	eng.Events.SubscribeTypes(func(evt engine.Event) {
		h.Broadcast("system-status", `{"messaging":"connected"}`)
	}, engine.EventMessagingConnected)

	eng.Events.SubscribeTypes(func(evt engine.Event) {
		h.Broadcast("system-status", `{"messaging":"disconnected"}`)
	}, engine.EventMessagingDisconnected)
}

// SSEHandler serves the SSE endpoint.
func (h *EventHub) SSEHandler(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := h.AddClient()
	defer h.RemoveClient(ch)

	for {
		select {
		case <-r.Context().Done():
			return
		case evt := <-ch:
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Event, evt.Data); err != nil {
				log.Printf("sse: write error: %v", err)
				return
			}
			flusher.Flush()
		}
	}
}
