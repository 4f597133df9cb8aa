package http

import (
	"net/http"

	"github.com/rainmakerhq/rainmaker/internal/domain/event"
	"github.com/rainmakerhq/rainmaker/internal/domain/interaction"
	"github.com/rainmakerhq/rainmaker/internal/domain/outreach"
	"github.com/rainmakerhq/rainmaker/internal/domain/signal"
	"github.com/rainmakerhq/rainmaker/internal/service"
)

// Handlers holds dependencies for all HTTP handlers.
type Handlers struct {
	EventLog     *service.EventLogService
	Approvals    *service.ApprovalService
	Signals      *service.SignalService
	Interactions *service.InteractionService

	// Healthy reports collaborator connectivity for the health endpoint.
	Healthy func() map[string]bool
}

// --- Events ---

func (h *Handlers) AppendEvent(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[event.AppendRequest](w, r)
	if !ok {
		return
	}

	ev, err := h.EventLog.Append(r.Context(), req)
	if err != nil {
		writeDomainError(w, err, "event not found")
		return
	}
	writeJSON(w, http.StatusCreated, ev)
}

func (h *Handlers) ListEvents(w http.ResponseWriter, r *http.Request) {
	category := event.Category(r.URL.Query().Get("category"))

	events, err := h.EventLog.List(r.Context(), category, limitParam(r, 50))
	if err != nil {
		writeDomainError(w, err, "events not found")
		return
	}
	if events == nil {
		events = []event.SystemEvent{}
	}
	writeJSON(w, http.StatusOK, events)
}

func (h *Handlers) ListUnprocessedEvents(w http.ResponseWriter, r *http.Request) {
	category := event.Category(r.URL.Query().Get("category"))

	events, err := h.EventLog.ListUnprocessed(r.Context(), category, limitParam(r, 50))
	if err != nil {
		writeDomainError(w, err, "events not found")
		return
	}
	if events == nil {
		events = []event.SystemEvent{}
	}
	writeJSON(w, http.StatusOK, events)
}

func (h *Handlers) ReplayEvents(w http.ResponseWriter, r *http.Request) {
	n, err := h.EventLog.Replay(r.Context(), limitParam(r, 50))
	if err != nil {
		writeDomainError(w, err, "replay failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"replayed": n})
}

func (h *Handlers) GetEvent(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")

	ev, err := h.EventLog.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "event not found")
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

func (h *Handlers) EventStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.EventLog.Stats(r.Context())
	if err != nil {
		writeDomainError(w, err, "stats unavailable")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// --- Agent actions ---

func (h *Handlers) ListActions(w http.ResponseWriter, r *http.Request) {
	actions, err := h.Approvals.List(r.Context(), limitParam(r, 50))
	if err != nil {
		writeDomainError(w, err, "actions not found")
		return
	}
	writeJSON(w, http.StatusOK, orEmptySlice(actions))
}

func (h *Handlers) ListPendingActions(w http.ResponseWriter, r *http.Request) {
	actions, err := h.Approvals.ListPending(r.Context())
	if err != nil {
		writeDomainError(w, err, "actions not found")
		return
	}
	writeJSON(w, http.StatusOK, orEmptySlice(actions))
}

func (h *Handlers) GetAction(w http.ResponseWriter, r *http.Request) {
	a, err := h.Approvals.Get(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "action not found")
		return
	}
	writeJSON(w, http.StatusOK, a)
}

type decisionRequest struct {
	DecidedBy string `json:"decided_by"`
}

func (h *Handlers) ApproveAction(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[decisionRequest](w, r)
	if !ok {
		return
	}

	a, err := h.Approvals.Approve(r.Context(), urlParam(r, "id"), req.DecidedBy)
	if err != nil {
		writeDomainError(w, err, "action not found")
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *Handlers) RejectAction(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[decisionRequest](w, r)
	if !ok {
		return
	}

	a, err := h.Approvals.Reject(r.Context(), urlParam(r, "id"), req.DecidedBy)
	if err != nil {
		writeDomainError(w, err, "action not found")
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// --- Signals ---

func (h *Handlers) ListSignals(w http.ResponseWriter, r *http.Request) {
	signals, err := h.Signals.List(r.Context(), limitParam(r, 50))
	if err != nil {
		writeDomainError(w, err, "signals not found")
		return
	}
	writeJSON(w, http.StatusOK, orEmptySlice(signals))
}

type resolveRequest struct {
	ResolutionType string `json:"resolution_type"`
}

type resolveResponse struct {
	Signal   *signal.FollowUpSignal `json:"signal"`
	Artifact *outreach.ArtifactRef  `json:"artifact,omitempty"`
}

func (h *Handlers) ResolveSignal(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[resolveRequest](w, r)
	if !ok {
		return
	}

	resolved, artifact, err := h.Signals.Resolve(r.Context(), urlParam(r, "id"), signal.ResolutionType(req.ResolutionType))
	if err != nil {
		writeDomainError(w, err, "signal not found")
		return
	}
	writeJSON(w, http.StatusOK, resolveResponse{Signal: resolved, Artifact: artifact})
}

func (h *Handlers) UndoSignal(w http.ResponseWriter, r *http.Request) {
	restored, err := h.Signals.Undo(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "signal not found")
		return
	}
	writeJSON(w, http.StatusOK, restored)
}

// --- Interactions ---

type logInteractionResponse struct {
	Interaction *interaction.Interaction `json:"interaction"`
	EventID     string                   `json:"event_id"`
}

func (h *Handlers) LogInteraction(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[interaction.LogRequest](w, r)
	if !ok {
		return
	}

	created, ev, err := h.Interactions.Log(r.Context(), req)
	if err != nil {
		writeDomainError(w, err, "person not found")
		return
	}
	writeJSON(w, http.StatusCreated, logInteractionResponse{Interaction: created, EventID: ev.ID})
}

// --- Health ---

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{"status": "ok"}
	if h.Healthy != nil {
		resp["components"] = h.Healthy()
	}
	writeJSON(w, http.StatusOK, resp)
}

// orEmptySlice keeps list responses as [] instead of null.
func orEmptySlice[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
