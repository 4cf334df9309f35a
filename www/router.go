// Package www serves the hub's JSON API and SSE event stream. There is no
// HTML in here: map documents go out as the decoded model and rendering is
// the caller's problem.
package www

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"

	"vachub/engine"
)

type Handlers struct {
	engine   *engine.Engine
	sessions *sessions.CookieStore
	eventHub *EventHub
}

// NewRouter builds the HTTP handler and returns it with a stop function
// that shuts down the SSE hub.
func NewRouter(eng *engine.Engine) (http.Handler, func()) {
	hub := NewEventHub()
	hub.Start()
	hub.SetupEngineListeners(eng)

	h := &Handlers{
		engine:   eng,
		sessions: newSessionStore(eng.AppConfig().Web.SessionSecret),
		eventHub: hub,
	}

	h.ensureDefaultAdmin(eng.DB())

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	// Public routes
	r.Get("/healthz", h.apiHealth)
	r.Post("/api/login", h.handleLogin)
	r.Post("/api/logout", h.handleLogout)

	// SSE
	r.Get("/events", hub.SSEHandler)

	// Session-guarded API
	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)
		r.Route("/api", func(r chi.Router) {
			r.Get("/robots", h.apiListRobots)
			r.Get("/robots/{id}/state", h.apiRobotState)
			r.Get("/robots/{id}/map", h.apiRobotMap)
			r.Get("/robots/{id}/map/raw", h.apiRobotMapRaw)
			r.Get("/robots/{id}/segments", h.apiRobotSegments)
			r.Get("/robots/{id}/segment-at", h.apiSegmentAt)
			r.Get("/robots/{id}/snapshots", h.apiListSnapshots)
			r.Get("/robots/{id}/jobs", h.apiRobotJobs)
			r.Get("/snapshots/{id}", h.apiGetSnapshot)
			r.Get("/jobs", h.apiListJobs)
			r.Get("/jobs/{id}", h.apiGetJob)
			r.Get("/audit", h.apiAuditLog)

			r.Post("/robots/{id}/clean/segments", h.apiCleanSegments)
			r.Post("/robots/{id}/clean/zones", h.apiCleanZones)
			r.Post("/robots/{id}/goto", h.apiGoTo)
			r.Post("/robots/{id}/control", h.apiBasicControl)
			r.Post("/robots/{id}/fan-speed", h.apiFanSpeed)
			r.Post("/robots/{id}/locate", h.apiLocate)
		})
	})

	stopFn := func() {
		hub.Stop()
	}

	return r, stopFn
}

func (h *Handlers) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	user, err := h.engine.DB().GetAdminUser(req.Username)
	if err != nil || !checkPassword(user.PasswordHash, req.Password) {
		h.jsonError(w, "invalid username or password", http.StatusUnauthorized)
		return
	}

	session, _ := h.sessions.Get(r, sessionName)
	session.Values["authenticated"] = true
	session.Values["username"] = req.Username
	if err := session.Save(r, w); err != nil {
		log.Printf("auth: session save error: %v", err)
	}

	h.jsonOK(w, map[string]string{"status": "ok", "username": req.Username})
}

func (h *Handlers) handleLogout(w http.ResponseWriter, r *http.Request) {
	session, _ := h.sessions.Get(r, sessionName)
	session.Values["authenticated"] = false
	session.Values["username"] = ""
	session.Save(r, w)
	h.jsonOK(w, map[string]string{"status": "ok"})
}
