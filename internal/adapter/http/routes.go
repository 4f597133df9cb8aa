package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// MountRoutes registers all API routes on the given chi router.
func MountRoutes(r chi.Router, h *Handlers) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"version":"0.1.0"}`))
		})

		// Event ledger
		r.Post("/events", h.AppendEvent)
		r.Get("/events", h.ListEvents)
		r.Get("/events/unprocessed", h.ListUnprocessedEvents)
		r.Post("/events/replay", h.ReplayEvents)
		r.Get("/events/stats", h.EventStats)
		r.Get("/events/{id}", h.GetEvent)

		// Agent actions / approval gate
		r.Get("/agent-actions", h.ListActions)
		r.Get("/agent-actions/pending", h.ListPendingActions)
		r.Get("/agent-actions/{id}", h.GetAction)
		r.Post("/agent-actions/{id}/approve", h.ApproveAction)
		r.Post("/agent-actions/{id}/reject", h.RejectAction)

		// Follow-up signals
		r.Get("/signals", h.ListSignals)
		r.Post("/signals/{id}/resolve", h.ResolveSignal)
		r.Post("/signals/{id}/undo", h.UndoSignal)

		// Interaction boundary (sync agents and UI)
		r.Post("/interactions", h.LogInteraction)

		r.Get("/health", h.Health)
	})
}
