package robot

import (
	"context"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"time"

	"vachub/valetudo"
)

// Firmware SSE endpoints. Each carries one event type; both are parsed by
// the same reader and dispatched on the event name.
const (
	attributesSSEPath = "/api/v2/robot/state/attributes/sse"
	mapSSEPath        = "/api/v2/robot/state/map/sse"

	eventStateAttributesUpdated = "StateAttributesUpdated"
	eventMapUpdated             = "MapUpdated"
)

// sseStream describes one of the robot's two push streams. ownsConnection
// marks the stream whose health drives the robot's connected flag; only
// the attributes stream does, the map stream reconnects quietly.
type sseStream struct {
	name           string
	path           string
	ownsConnection bool
}

var (
	streamAttributes = sseStream{name: "attributes", path: attributesSSEPath, ownsConnection: true}
	streamMap        = sseStream{name: "map", path: mapSSEPath}
)

// streamLoop keeps one SSE stream open, reconnecting with capped
// exponential backoff until stopped. The attempt counter resets whenever a
// connection delivers at least one event.
func (r *ManagedRobot) streamLoop(s sseStream) {
	defer r.wg.Done()

	attempt := 0
	for {
		select {
		case <-r.stopChan:
			return
		default:
		}

		delivered, err := r.streamConnect(s)
		if err == nil {
			return // clean shutdown
		}
		if delivered {
			attempt = 0
		}
		if s.ownsConnection {
			r.markDisconnected(err)
		} else {
			log.Printf("robot %s: %s stream: %v", r.cfg.ID, s.name, err)
		}

		attempt++
		if !r.streamBackoff(s.name, attempt) {
			return
		}
	}
}

// streamConnect opens the stream and consumes events until it breaks.
// Returns (delivered, nil) only on clean shutdown; otherwise the error
// that ended the connection.
func (r *ManagedRobot) streamConnect(s sseStream) (bool, error) {
	ctx, cancel := context.WithCancel(r.ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.client.BaseURL()+s.path, nil)
	if err != nil {
		return false, fmt.Errorf("sse request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := r.sseClient.Do(req)
	if err != nil {
		if r.ctx.Err() != nil {
			return false, nil
		}
		return false, fmt.Errorf("sse connect: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("sse status %d", resp.StatusCode)
	}

	// Bootstrap over plain HTTP so the cache is warm before the first
	// push arrives; streams only send on change.
	if s.ownsConnection {
		r.pollState()
	} else {
		r.pollMap()
	}

	delivered := false
	reader := NewSSEReader(resp.Body)
	for {
		ev, err := reader.Next()
		if err != nil {
			if r.ctx.Err() != nil {
				return delivered, nil
			}
			if err == io.EOF {
				return delivered, fmt.Errorf("sse stream closed")
			}
			return delivered, fmt.Errorf("sse read: %w", err)
		}
		delivered = true
		r.handleStreamEvent(ev)
	}
}

func (r *ManagedRobot) handleStreamEvent(ev SSERawEvent) {
	switch ev.Event {
	case eventStateAttributesUpdated:
		st, err := valetudo.DecodeStateAttributes([]byte(ev.Data))
		if err != nil {
			log.Printf("robot %s: attributes event: %v", r.cfg.ID, err)
			return
		}
		r.markConnected()
		r.applyState(st)
	case eventMapUpdated:
		r.applyMapJSON([]byte(ev.Data))
	default:
		// Other firmware event types are ignored.
	}
}

// streamBackoff sleeps 1s, 2s, 4s... capped at 30s with +/-20% jitter.
// Returns false if the manager stopped during the wait.
func (r *ManagedRobot) streamBackoff(name string, attempt int) bool {
	shift := attempt - 1
	if shift > 5 {
		shift = 5
	}
	base := time.Duration(1<<uint(shift)) * time.Second
	if base > 30*time.Second {
		base = 30 * time.Second
	}
	delay := time.Duration(float64(base) * (0.8 + 0.4*rand.Float64()))

	log.Printf("robot %s: %s stream reconnect in %v (attempt %d)", r.cfg.ID, name, delay.Round(time.Millisecond), attempt)
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-r.stopChan:
		return false
	case <-timer.C:
		return true
	}
}
