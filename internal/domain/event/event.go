// Package event defines the SystemEvent domain entity, the append-only fact
// ledger everything downstream reacts to.
package event

import (
	"encoding/json"
	"slices"
	"time"
)

// Category groups event types by the part of the relationship lifecycle they
// belong to.
type Category string

const (
	CategoryLead          Category = "lead"
	CategoryRelationship  Category = "relationship"
	CategoryTransaction   Category = "transaction"
	CategoryCommunication Category = "communication"
	CategoryIntelligence  Category = "intelligence"
)

// Categories lists all valid event categories.
var Categories = []Category{
	CategoryLead,
	CategoryRelationship,
	CategoryTransaction,
	CategoryCommunication,
	CategoryIntelligence,
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	return slices.Contains(Categories, c)
}

// Type identifies the kind of system event, dot-namespaced by category.
type Type string

const (
	TypeLeadCreated         Type = "lead.created"
	TypeLeadQualified       Type = "lead.qualified"
	TypeRelationshipUpdated Type = "relationship.updated"
	TypeAnniversary         Type = "relationship.anniversary"
	TypeDealStageChanged    Type = "transaction.stage_changed"
	TypeDealClosed          Type = "transaction.closed"
	TypeInteractionLogged   Type = "communication.logged"
	TypeContextEnriched     Type = "intelligence.context_enriched"
	TypeLifeEventDetected   Type = "intelligence.life_event"
)

// SystemEvent is an immutable fact. Rows are appended once and never updated
// except for the processed-by ledger, and never deleted.
type SystemEvent struct {
	ID             string          `json:"id"`
	Type           Type            `json:"event_type"`
	Category       Category        `json:"event_category"`
	SubjectPerson  string          `json:"subject_person_id,omitempty"`
	SubjectDeal    string          `json:"subject_deal_id,omitempty"`
	SourceEntity   string          `json:"source_entity,omitempty"`
	SourceEntityID string          `json:"source_entity_id,omitempty"`
	Payload        json.RawMessage `json:"payload,omitempty"`
	Metadata       json.RawMessage `json:"metadata,omitempty"`
	ProcessedAt    *time.Time      `json:"processed_at,omitempty"`
	ProcessedBy    []string        `json:"processed_by"`
	CreatedAt      time.Time       `json:"created_at"`
}

// ProcessedByAgent reports whether the named agent has already recorded itself
// against this event. Re-delivery to such an agent must be a no-op.
func (e *SystemEvent) ProcessedByAgent(agent string) bool {
	return slices.Contains(e.ProcessedBy, agent)
}

// FullyProcessed reports whether every agent in required has processed the
// event. The required set is the currently registered interested agents, which
// the caller resolves through the registry.
func (e *SystemEvent) FullyProcessed(required []string) bool {
	for _, a := range required {
		if !e.ProcessedByAgent(a) {
			return false
		}
	}
	return true
}

// AppendRequest carries the fields the caller supplies on append. ID,
// CreatedAt and the processed ledger are owned by the store.
type AppendRequest struct {
	Type           Type            `json:"event_type"`
	Category       Category        `json:"event_category"`
	SubjectPerson  string          `json:"subject_person_id,omitempty"`
	SubjectDeal    string          `json:"subject_deal_id,omitempty"`
	SourceEntity   string          `json:"source_entity,omitempty"`
	SourceEntityID string          `json:"source_entity_id,omitempty"`
	Payload        json.RawMessage `json:"payload,omitempty"`
	Metadata       json.RawMessage `json:"metadata,omitempty"`
}

// Stats is the aggregate view served by GET /events/stats.
type Stats struct {
	TotalEvents       int            `json:"total_events"`
	UnprocessedEvents int            `json:"unprocessed_events"`
	PendingApprovals  int            `json:"pending_approvals"`
	EventsByCategory  map[string]int `json:"events_by_category"`
	RegisteredAgents  []string       `json:"registered_agents"`
}
