// Package generator defines the content-generation port (interface). The
// implementation is a fallible, latency-bearing black box; callers must not
// assume success.
package generator

import "context"

// PersonContext is the relationship context handed to the generator.
type PersonContext struct {
	Name             string `json:"name"`
	Segment          string `json:"segment"`
	FORDNotes        string `json:"ford_notes,omitempty"`
	DaysSinceContact int    `json:"days_since_contact,omitempty"`
}

// InteractionContext is the triggering conversation, if any.
type InteractionContext struct {
	Summary string `json:"summary,omitempty"`
	Content string `json:"content,omitempty"`
}

// Generator produces message text for a person and channel kind
// ("text", "email", "handwritten_note").
type Generator interface {
	Generate(ctx context.Context, pc PersonContext, ic InteractionContext, kind string) (string, error)
}
