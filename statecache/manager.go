package statecache

import (
	"context"
	"log"
	"sync"
	"time"

	"vachub/mapdata"
)

// Manager keeps the live robot view in memory and mirrors it to Redis so a
// restart can recover the last-known picture before the first poll lands.
// Reads prefer memory; a nil RedisStore degrades to memory only.
type Manager struct {
	mu     sync.RWMutex
	states map[string]*RobotState
	maps   map[string]*mapdata.Map
	seen   map[string]time.Time

	redis *RedisStore
}

func NewManager(redis *RedisStore) *Manager {
	return &Manager{
		states: make(map[string]*RobotState),
		maps:   make(map[string]*mapdata.Map),
		seen:   make(map[string]time.Time),
		redis:  redis,
	}
}

func (m *Manager) SetState(robotID string, st *RobotState) {
	if st.UpdatedAt.IsZero() {
		st.UpdatedAt = time.Now()
	}
	m.mu.Lock()
	m.states[robotID] = st
	m.mu.Unlock()

	if m.redis != nil {
		if err := m.redis.SetState(context.Background(), robotID, st); err != nil {
			log.Printf("statecache: write state for %s: %v", robotID, err)
		}
	}
}

func (m *Manager) State(robotID string) (*RobotState, bool) {
	m.mu.RLock()
	st, ok := m.states[robotID]
	m.mu.RUnlock()
	if ok {
		return st, true
	}

	if m.redis != nil {
		st, err := m.redis.GetState(context.Background(), robotID)
		if err == nil && st != nil {
			m.mu.Lock()
			m.states[robotID] = st
			m.mu.Unlock()
			return st, true
		}
	}
	return nil, false
}

func (m *Manager) SetMap(robotID string, decoded *mapdata.Map) {
	m.mu.Lock()
	m.maps[robotID] = decoded
	m.mu.Unlock()

	if m.redis != nil {
		if err := m.redis.SetMap(context.Background(), robotID, decoded); err != nil {
			log.Printf("statecache: write map for %s: %v", robotID, err)
		}
	}
}

func (m *Manager) Map(robotID string) (*mapdata.Map, bool) {
	m.mu.RLock()
	decoded, ok := m.maps[robotID]
	m.mu.RUnlock()
	if ok {
		return decoded, true
	}

	if m.redis != nil {
		decoded, err := m.redis.GetMap(context.Background(), robotID)
		if err == nil && decoded != nil {
			m.mu.Lock()
			m.maps[robotID] = decoded
			m.mu.Unlock()
			return decoded, true
		}
	}
	return nil, false
}

// Touch records that the robot answered just now.
func (m *Manager) Touch(robotID string) {
	now := time.Now()
	m.mu.Lock()
	m.seen[robotID] = now
	m.mu.Unlock()

	if m.redis != nil {
		if err := m.redis.SetLastSeen(context.Background(), robotID, now); err != nil {
			log.Printf("statecache: write last seen for %s: %v", robotID, err)
		}
	}
}

func (m *Manager) LastSeen(robotID string) (time.Time, bool) {
	m.mu.RLock()
	t, ok := m.seen[robotID]
	m.mu.RUnlock()
	if ok {
		return t, true
	}

	if m.redis != nil {
		t, err := m.redis.GetLastSeen(context.Background(), robotID)
		if err == nil && !t.IsZero() {
			m.mu.Lock()
			m.seen[robotID] = t
			m.mu.Unlock()
			return t, true
		}
	}
	return time.Time{}, false
}

// AllStates returns a snapshot of the in-memory states.
func (m *Manager) AllStates() map[string]*RobotState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	states := make(map[string]*RobotState, len(m.states))
	for id, st := range m.states {
		states[id] = st
	}
	return states
}

// WarmFromRedis pre-populates memory for the configured robots. Called on
// startup so the API serves the last persisted view until fresh data
// arrives.
func (m *Manager) WarmFromRedis(robotIDs []string) {
	if m.redis == nil {
		return
	}
	ctx := context.Background()
	warmed := 0
	for _, id := range robotIDs {
		if st, err := m.redis.GetState(ctx, id); err == nil && st != nil {
			m.mu.Lock()
			m.states[id] = st
			m.mu.Unlock()
			warmed++
		}
		if decoded, err := m.redis.GetMap(ctx, id); err == nil && decoded != nil {
			m.mu.Lock()
			m.maps[id] = decoded
			m.mu.Unlock()
		}
		if t, err := m.redis.GetLastSeen(ctx, id); err == nil && !t.IsZero() {
			m.mu.Lock()
			m.seen[id] = t
			m.mu.Unlock()
		}
	}
	if warmed > 0 {
		log.Printf("statecache: warmed %d robot states from redis", warmed)
	}
}
