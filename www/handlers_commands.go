package www

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"vachub/dispatch"
	"vachub/store"
	"vachub/valetudo"
)

// commandStatus classifies a dispatch error into an HTTP status: 404 for a
// robot the config does not know, 409 for a robot that cannot take commands
// right now, 400 for bad arguments, 501 for missing firmware capabilities
// and 502 when the firmware itself refused.
func commandStatus(err error) int {
	switch {
	case errors.Is(err, dispatch.ErrUnknownRobot):
		return http.StatusNotFound
	case errors.Is(err, dispatch.ErrNotConnected), errors.Is(err, dispatch.ErrNoMap):
		return http.StatusConflict
	case errors.Is(err, dispatch.ErrUnknownSegment),
		errors.Is(err, dispatch.ErrEmptySelection),
		errors.Is(err, dispatch.ErrInvalidZone),
		errors.Is(err, dispatch.ErrInvalidTarget),
		errors.Is(err, dispatch.ErrInvalidAction):
		return http.StatusBadRequest
	case errors.Is(err, valetudo.ErrNotSupported):
		return http.StatusNotImplemented
	default:
		return http.StatusBadGateway
	}
}

// respondCommand writes the job on success, or the classified error. A
// vendor failure already has a failed job row; it rides along so the caller
// can show the job id.
func (h *Handlers) respondCommand(w http.ResponseWriter, job *store.Job, err error) {
	if err != nil {
		resp := map[string]any{"error": err.Error(), "code": dispatch.ErrorCode(err)}
		if job != nil {
			resp["job"] = job
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(commandStatus(err))
		json.NewEncoder(w).Encode(resp)
		return
	}
	h.jsonOK(w, job)
}

func (h *Handlers) apiCleanSegments(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SegmentIDs []string `json:"segment_ids"`
		Iterations int      `json:"iterations"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	job, err := h.engine.Dispatcher().CleanSegments(chi.URLParam(r, "id"), req.SegmentIDs, req.Iterations, dispatch.SourceWeb)
	h.respondCommand(w, job, err)
}

func (h *Handlers) apiCleanZones(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Zones      []dispatch.PixelZone `json:"zones"`
		Iterations int                  `json:"iterations"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	job, err := h.engine.Dispatcher().CleanZones(chi.URLParam(r, "id"), req.Zones, req.Iterations, dispatch.SourceWeb)
	h.respondCommand(w, job, err)
}

func (h *Handlers) apiGoTo(w http.ResponseWriter, r *http.Request) {
	var req struct {
		X int `json:"x"`
		Y int `json:"y"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	job, err := h.engine.Dispatcher().GoTo(chi.URLParam(r, "id"), req.X, req.Y, dispatch.SourceWeb)
	h.respondCommand(w, job, err)
}

func (h *Handlers) apiBasicControl(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Action string `json:"action"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	job, err := h.engine.Dispatcher().Basic(chi.URLParam(r, "id"), req.Action, dispatch.SourceWeb)
	h.respondCommand(w, job, err)
}

func (h *Handlers) apiFanSpeed(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Preset string `json:"preset"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	job, err := h.engine.Dispatcher().SetFanSpeed(chi.URLParam(r, "id"), req.Preset, dispatch.SourceWeb)
	h.respondCommand(w, job, err)
}

func (h *Handlers) apiLocate(w http.ResponseWriter, r *http.Request) {
	job, err := h.engine.Dispatcher().Locate(chi.URLParam(r, "id"), dispatch.SourceWeb)
	h.respondCommand(w, job, err)
}
