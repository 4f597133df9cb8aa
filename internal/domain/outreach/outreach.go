// Package outreach defines the downstream artifacts the dispatcher creates:
// message drafts and follow-up tasks. Both carry the originating action or
// signal as their source key, which is what makes dispatch idempotent and
// lets undo find what a resolution created.
package outreach

import "time"

// SourceKind distinguishes which record an artifact was created for.
type SourceKind string

const (
	SourceAction SourceKind = "action"
	SourceSignal SourceKind = "signal"
)

// DraftKind is the channel a draft is written for.
type DraftKind string

const (
	DraftText            DraftKind = "text"
	DraftEmail           DraftKind = "email"
	DraftHandwrittenNote DraftKind = "handwritten_note"
)

// Draft is a generated message awaiting the operator's review in the UI.
type Draft struct {
	ID         string     `json:"id"`
	PersonID   string     `json:"person_id"`
	Kind       DraftKind  `json:"kind"`
	Subject    string     `json:"subject,omitempty"`
	Body       string     `json:"body"`
	SourceKind SourceKind `json:"source_kind"`
	SourceID   string     `json:"source_id"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Task is a follow-up to-do, optionally mirrored to the external CRM.
type Task struct {
	ID         string     `json:"id"`
	PersonID   string     `json:"person_id"`
	Title      string     `json:"title"`
	Notes      string     `json:"notes,omitempty"`
	DueAt      *time.Time `json:"due_at,omitempty"`
	SourceKind SourceKind `json:"source_kind"`
	SourceID   string     `json:"source_id"`
	ExternalID string     `json:"external_id,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// ArtifactRef is the reference returned to callers after a resolution or
// execution that created something downstream.
type ArtifactRef struct {
	Kind string `json:"kind"` // "draft" or "task"
	ID   string `json:"id"`
}
