package ws

import (
	"context"
	"encoding/json"
	"log/slog"
)

// Event type constants for WebSocket messages.
const (
	EventActionPending  = "action.pending"
	EventActionExecuted = "action.executed"
	EventSignalCreated  = "signal.created"
	EventSignalResolved = "signal.resolved"
)

// ActionPendingEvent is broadcast when a medium or high risk proposal lands
// in the approval queue.
type ActionPendingEvent struct {
	ActionID   string `json:"action_id"`
	AgentName  string `json:"agent_name"`
	ActionType string `json:"action_type"`
	RiskLevel  string `json:"risk_level"`
	PersonID   string `json:"person_id,omitempty"`
	Reasoning  string `json:"reasoning"`
}

// ActionExecutedEvent is broadcast after the dispatcher performs an effect.
type ActionExecutedEvent struct {
	ActionID   string `json:"action_id"`
	ActionType string `json:"action_type"`
	Artifact   string `json:"artifact,omitempty"` // "draft" or "task"
	ArtifactID string `json:"artifact_id,omitempty"`
}

// SignalCreatedEvent is broadcast when the signal engine surfaces a new
// follow-up prompt.
type SignalCreatedEvent struct {
	SignalID      string `json:"signal_id"`
	PersonID      string `json:"person_id"`
	PriorityScore int    `json:"priority_score"`
	Reasoning     string `json:"reasoning"`
}

// SignalResolvedEvent is broadcast on resolution, skip, or undo.
type SignalResolvedEvent struct {
	SignalID       string `json:"signal_id"`
	Status         string `json:"status"`
	ResolutionType string `json:"resolution_type,omitempty"`
}

// BroadcastEvent is a convenience method that marshals a typed event and broadcasts it.
func (h *Hub) BroadcastEvent(ctx context.Context, eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal ws event payload", "type", eventType, "error", err)
		return
	}

	h.Broadcast(ctx, Message{
		Type:    eventType,
		Payload: json.RawMessage(data),
	})
}
