// Package interaction defines logged conversations, the raw activity that
// feeds the event pipeline.
package interaction

import "time"

// Source identifies where a logged conversation came from. The non-manual
// values are pushed by the local sync agents.
type Source string

const (
	SourceManual   Source = "manual"
	SourceIMessage Source = "imessage"
	SourceWhatsApp Source = "whatsapp"
	SourceFathom   Source = "fathom"
	SourceGranola  Source = "granola"
	SourcePlaud    Source = "plaud"
)

// Valid reports whether s is a known source.
func (s Source) Valid() bool {
	switch s {
	case SourceManual, SourceIMessage, SourceWhatsApp, SourceFathom, SourceGranola, SourcePlaud:
		return true
	}
	return false
}

// Interaction is a logged conversation with a person.
type Interaction struct {
	ID         string    `json:"id"`
	PersonID   string    `json:"person_id"`
	Source     Source    `json:"source"`
	Summary    string    `json:"summary"`
	Content    string    `json:"content,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// LogRequest is the boundary input for logging a conversation.
type LogRequest struct {
	PersonID   string     `json:"person_id"`
	Source     Source     `json:"source"`
	Summary    string     `json:"summary"`
	Content    string     `json:"content,omitempty"`
	OccurredAt *time.Time `json:"occurred_at,omitempty"`
}
