// Package server exposes the approval engine over an action-oriented JSON
// HTTP surface: one logical endpoint per transition, plus history, listing,
// and escalation resolution endpoints.
package server

import (
	"net/http"

	"github.com/sellerdesk/approvals/internal/auth/actortoken"
	"github.com/sellerdesk/approvals/internal/platform/httpx"
	"github.com/sellerdesk/approvals/internal/storage"
	"github.com/sellerdesk/approvals/internal/workflow/engine"
	"github.com/sellerdesk/approvals/internal/workflow/projection"
)

// Server wires the engine and its read paths to HTTP handlers.
type Server struct {
	engine     *engine.Engine
	projection *projection.Projection
	store      storage.Store
	tokens     actortoken.Config
}

// New builds the API server.
func New(eng *engine.Engine, proj *projection.Projection, store storage.Store, tokens actortoken.Config) *Server {
	return &Server{engine: eng, projection: proj, store: store, tokens: tokens}
}

// Handler returns the routed HTTP handler with shared middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /up", s.handleHealth)

	// Single and bulk transitions share a prefix whose shapes overlap
	// ({id}/transitions/{action} vs transitions/{action}/bulk), so the
	// remainder is dispatched manually.
	mux.HandleFunc("POST /entities/{type}/{rest...}", s.requireActor(s.handleEntityPost))
	mux.HandleFunc("GET /entities/{type}", s.requireActor(s.handleQuery))
	mux.HandleFunc("GET /entities/{type}/{id}/history", s.requireActor(s.handleHistory))

	mux.HandleFunc("GET /escalations", s.requireActor(s.handleListEscalations))
	mux.HandleFunc("POST /escalations/{id}/confirm", s.requireActor(s.handleConfirm))
	mux.HandleFunc("POST /escalations/{id}/dismiss", s.requireActor(s.handleDismiss))

	return httpx.Chain(mux, httpx.RequestID(), httpx.Trace("approvals"), httpx.RecoverPanic())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
