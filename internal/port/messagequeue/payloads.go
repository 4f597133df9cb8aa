package messagequeue

// EventAppendedPayload is the schema for events.appended messages.
type EventAppendedPayload struct {
	EventID   string `json:"event_id"`
	EventType string `json:"event_type"`
	Category  string `json:"category"`
	PersonID  string `json:"person_id,omitempty"`
}

// ActionPayload is the schema for actions.pending and actions.executed.
type ActionPayload struct {
	ActionID   string `json:"action_id"`
	AgentName  string `json:"agent_name"`
	ActionType string `json:"action_type"`
	RiskLevel  string `json:"risk_level"`
	Status     string `json:"status"`
}

// SignalPayload is the schema for signals.created and signals.resolved.
type SignalPayload struct {
	SignalID       string `json:"signal_id"`
	PersonID       string `json:"person_id"`
	PriorityScore  int    `json:"priority_score"`
	Status         string `json:"status"`
	ResolutionType string `json:"resolution_type,omitempty"`
}
