package www

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"vachub/mapdata"
	"vachub/statecache"
)

// robotSummary is the list view of one robot: config identity plus whatever
// live or cached state exists.
type robotSummary struct {
	ID        string                 `json:"id"`
	Name      string                 `json:"name"`
	BaseURL   string                 `json:"base_url"`
	Mode      string                 `json:"mode"`
	Connected bool                   `json:"connected"`
	HasMap    bool                   `json:"has_map"`
	State     *statecache.RobotState `json:"state,omitempty"`
	LastSeen  *time.Time             `json:"last_seen,omitempty"`
}

func (h *Handlers) apiListRobots(w http.ResponseWriter, r *http.Request) {
	cfg := h.engine.AppConfig()
	robots := h.engine.Robots()
	cache := h.engine.Cache()

	out := make([]robotSummary, 0, len(cfg.Robots))
	for i := range cfg.Robots {
		rc := &cfg.Robots[i]
		s := robotSummary{
			ID:        rc.ID,
			Name:      rc.Name,
			BaseURL:   rc.BaseURL,
			Mode:      rc.Mode,
			Connected: robots.IsConnected(rc.ID),
		}
		if _, ok := h.currentMap(rc.ID); ok {
			s.HasMap = true
		}
		if st, ok := cache.State(rc.ID); ok {
			s.State = st
		}
		if t, ok := cache.LastSeen(rc.ID); ok {
			s.LastSeen = &t
		}
		out = append(out, s)
	}
	h.jsonOK(w, out)
}

func (h *Handlers) apiRobotState(w http.ResponseWriter, r *http.Request) {
	robotID := chi.URLParam(r, "id")
	if _, ok := h.engine.AppConfig().Robot(robotID); !ok {
		h.jsonError(w, "unknown robot", http.StatusNotFound)
		return
	}
	st, ok := h.engine.Cache().State(robotID)
	if !ok {
		h.jsonError(w, "no state yet", http.StatusNotFound)
		return
	}
	h.jsonOK(w, st)
}

// currentMap prefers the manager's live document and falls back to the
// cache, which may hold a pre-restart map warmed from Redis.
func (h *Handlers) currentMap(robotID string) (*mapdata.Map, bool) {
	if m, ok := h.engine.Robots().Map(robotID); ok {
		return m, true
	}
	return h.engine.Cache().Map(robotID)
}

func (h *Handlers) apiRobotMap(w http.ResponseWriter, r *http.Request) {
	robotID := chi.URLParam(r, "id")
	if _, ok := h.engine.AppConfig().Robot(robotID); !ok {
		h.jsonError(w, "unknown robot", http.StatusNotFound)
		return
	}
	m, ok := h.currentMap(robotID)
	if !ok {
		h.jsonError(w, "no map decoded yet", http.StatusNotFound)
		return
	}
	h.jsonOK(w, m)
}

// apiRobotMapRaw serves the map document exactly as the robot sent it. When
// the manager holds none the newest snapshot's blob stands in.
func (h *Handlers) apiRobotMapRaw(w http.ResponseWriter, r *http.Request) {
	robotID := chi.URLParam(r, "id")
	if _, ok := h.engine.AppConfig().Robot(robotID); !ok {
		h.jsonError(w, "unknown robot", http.StatusNotFound)
		return
	}
	data, ok := h.engine.Robots().RawMap(robotID)
	if !ok {
		snap, err := h.engine.DB().LatestMapSnapshot(robotID)
		if err != nil {
			h.jsonError(w, "no map document", http.StatusNotFound)
			return
		}
		data = snap.Raw
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func (h *Handlers) apiRobotSegments(w http.ResponseWriter, r *http.Request) {
	segs, err := h.engine.DB().ListRobotSegments(chi.URLParam(r, "id"))
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, segs)
}

func (h *Handlers) apiSegmentAt(w http.ResponseWriter, r *http.Request) {
	robotID := chi.URLParam(r, "id")
	x, errX := strconv.Atoi(r.URL.Query().Get("x"))
	y, errY := strconv.Atoi(r.URL.Query().Get("y"))
	if errX != nil || errY != nil {
		h.jsonError(w, "x and y must be integer pixel coordinates", http.StatusBadRequest)
		return
	}
	m, ok := h.currentMap(robotID)
	if !ok {
		h.jsonError(w, "no map decoded yet", http.StatusNotFound)
		return
	}

	id, found := m.SegmentAt(mapdata.Point{X: x, Y: y})
	resp := map[string]any{"x": x, "y": y, "found": found}
	if found {
		resp["segment_id"] = id
		if seg, ok := m.SegmentByID(id); ok && seg.Name != "" {
			resp["name"] = seg.Name
		}
	}
	h.jsonOK(w, resp)
}

func (h *Handlers) apiListSnapshots(w http.ResponseWriter, r *http.Request) {
	snaps, err := h.engine.DB().ListMapSnapshots(chi.URLParam(r, "id"), queryLimit(r, 20))
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, snaps)
}

// apiGetSnapshot returns one snapshot with its blob re-decoded, so history
// browsing gets the same model shape as the live map endpoint.
func (h *Handlers) apiGetSnapshot(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	snap, err := h.engine.DB().GetMapSnapshot(id)
	if err != nil {
		h.jsonError(w, "not found", http.StatusNotFound)
		return
	}
	m, err := mapdata.ParseMap(snap.Raw)
	if err != nil {
		h.jsonError(w, "snapshot decode: "+err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, map[string]any{"snapshot": snap, "map": m})
}

func (h *Handlers) apiListJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.engine.DB().ListJobs(r.URL.Query().Get("status"), queryLimit(r, 100))
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, jobs)
}

func (h *Handlers) apiGetJob(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	job, err := h.engine.DB().GetJob(id)
	if err != nil {
		h.jsonError(w, "not found", http.StatusNotFound)
		return
	}
	history, err := h.engine.DB().ListJobHistory(id)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, map[string]any{"job": job, "history": history})
}

func (h *Handlers) apiRobotJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.engine.DB().ListRobotJobs(chi.URLParam(r, "id"), queryLimit(r, 50))
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, jobs)
}

func (h *Handlers) apiAuditLog(w http.ResponseWriter, r *http.Request) {
	entries, err := h.engine.DB().ListAuditLog(queryLimit(r, 100))
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, entries)
}

func (h *Handlers) apiHealth(w http.ResponseWriter, r *http.Request) {
	messaging := false
	if mc := h.engine.MsgClient(); mc != nil {
		messaging = mc.IsConnected()
	}
	h.jsonOK(w, map[string]any{
		"status":        "ok",
		"robots_total":  len(h.engine.AppConfig().Robots),
		"robots_online": h.engine.Robots().OnlineCount(),
		"messaging":     messaging,
	})
}

func queryLimit(r *http.Request, def int) int {
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func (h *Handlers) jsonOK(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func (h *Handlers) jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
