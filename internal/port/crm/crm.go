// Package crm defines the external CRM sync port (interface).
package crm

import (
	"context"
	"time"
)

// NotePayload is the body of a note pushed to the external CRM.
type NotePayload struct {
	PersonID string `json:"person_id"`
	Body     string `json:"body"`
}

// TaskPayload is the body of a task pushed to the external CRM.
type TaskPayload struct {
	PersonID string     `json:"person_id"`
	Title    string     `json:"title"`
	DueAt    *time.Time `json:"due_at,omitempty"`
}

// Syncer pushes records to the external CRM and returns its identifiers.
// Treated as a fallible black box; a failed push surfaces as a collaborator
// failure on the originating action.
type Syncer interface {
	CreateNote(ctx context.Context, p NotePayload) (externalID string, err error)
	CreateTask(ctx context.Context, p TaskPayload) (externalID string, err error)
}
