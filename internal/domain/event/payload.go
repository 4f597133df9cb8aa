package event

// Typed payloads for orchestrator-emitted events. Third-party events keep an
// opaque Payload; these structs are marshalled into it for the types we own so
// the bytes round-trip through storage unchanged.

// InteractionLoggedPayload is the payload for communication.logged events.
type InteractionLoggedPayload struct {
	InteractionID string `json:"interaction_id"`
	Source        string `json:"source"`
	Summary       string `json:"summary"`
	Content       string `json:"content,omitempty"`
}

// LeadCreatedPayload is the payload for lead.created events.
type LeadCreatedPayload struct {
	LeadSource string `json:"lead_source"`
	Inquiry    string `json:"inquiry,omitempty"`
}

// DealStagePayload is the payload for transaction.stage_changed events.
type DealStagePayload struct {
	DealID    string `json:"deal_id"`
	FromStage string `json:"from_stage"`
	ToStage   string `json:"to_stage"`
}

// LifeEventPayload is the payload for intelligence.life_event events.
type LifeEventPayload struct {
	Kind   string `json:"kind"` // e.g. "new_baby", "job_change", "move"
	Cue    string `json:"cue"`  // the phrase that triggered detection
	Source string `json:"source_event_id,omitempty"`
}

// Metadata records who or what triggered an event.
type Metadata struct {
	TriggeredBy string `json:"triggered_by,omitempty"` // "user", "sync-agent", or an agent name
	AgentName   string `json:"agent_name,omitempty"`
	RequestID   string `json:"request_id,omitempty"`
}
