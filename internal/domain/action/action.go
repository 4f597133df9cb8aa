// Package action defines the AgentAction entity: a proposal by an agent and
// its disposition through the approval gate.
package action

import (
	"encoding/json"
	"time"
)

// RiskLevel classifies an action's potential for unwanted external effect.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// rank orders risk levels for comparison. Unknown levels rank highest.
func (r RiskLevel) rank() int {
	switch r {
	case RiskLow:
		return 0
	case RiskMedium:
		return 1
	case RiskHigh:
		return 2
	default:
		return 3
	}
}

// AtLeast reports whether r is at or above the given floor.
func (r RiskLevel) AtLeast(floor RiskLevel) bool {
	return r.rank() >= floor.rank()
}

// Max returns the higher of r and other.
func (r RiskLevel) Max(other RiskLevel) RiskLevel {
	if other.rank() > r.rank() {
		return other
	}
	return r
}

// RequiresApproval reports whether a human decision is required before any
// execution attempt.
func (r RiskLevel) RequiresApproval() bool {
	return r != RiskLow
}

// Status is the approval-gate state of an action.
type Status string

const (
	StatusProposed Status = "proposed"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusExecuted Status = "executed"
	StatusFailed   Status = "failed"
)

// AutoApprover is recorded as the approver for low-risk actions executed
// without a human decision.
const AutoApprover = "auto"

// AgentAction is an agent's proposal and its disposition. Rows are never
// deleted; failed and rejected actions remain for audit.
type AgentAction struct {
	ID              string          `json:"id"`
	EventID         string          `json:"event_id,omitempty"`
	AgentName       string          `json:"agent_name"`
	ActionType      string          `json:"action_type"`
	RiskLevel       RiskLevel       `json:"risk_level"`
	Status          Status          `json:"status"`
	TargetPerson    string          `json:"target_person_id,omitempty"`
	TargetDeal      string          `json:"target_deal_id,omitempty"`
	TargetEntity    string          `json:"target_entity,omitempty"`
	TargetEntityID  string          `json:"target_entity_id,omitempty"`
	ProposedContent json.RawMessage `json:"proposed_content,omitempty"`
	Reasoning       string          `json:"reasoning"`
	ApprovedBy      string          `json:"approved_by,omitempty"`
	ApprovedAt      *time.Time      `json:"approved_at,omitempty"`
	ExecutedAt      *time.Time      `json:"executed_at,omitempty"`
	ErrorMessage    string          `json:"error_message,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// Draft is what an agent's proposal function emits; the pipeline turns drafts
// into persisted AgentActions after clamping risk against the central policy.
type Draft struct {
	ActionType      string
	RiskLevel       RiskLevel
	TargetPerson    string
	TargetDeal      string
	TargetEntity    string
	TargetEntityID  string
	ProposedContent json.RawMessage
	Reasoning       string
}

// DraftContent is the typed proposed_content for draft-producing action types.
type DraftContent struct {
	Kind    string `json:"kind"` // "text", "email", "handwritten_note"
	Prompt  string `json:"prompt,omitempty"`
	Subject string `json:"subject,omitempty"`
}

// TaskContent is the typed proposed_content for task-producing action types.
type TaskContent struct {
	Title string     `json:"title"`
	DueAt *time.Time `json:"due_at,omitempty"`
	Notes string     `json:"notes,omitempty"`
}

// NoteContent is the typed proposed_content for CRM note sync actions.
type NoteContent struct {
	Body string `json:"body"`
}
