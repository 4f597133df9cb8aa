// Package person defines the read-only person reference the orchestrator
// joins into signal listings and feeds into agent proposal context.
package person

import (
	"encoding/json"
	"time"
)

// Segment is the relationship value tier. "A" is highest.
type Segment string

const (
	SegmentA Segment = "A"
	SegmentB Segment = "B"
	SegmentC Segment = "C"
	SegmentD Segment = "D"
)

// Person is a row in the wider application's contacts table. The orchestrator
// never writes it; ownership stays with the CRUD layer.
type Person struct {
	ID              string          `json:"id"`
	FirstName       string          `json:"first_name"`
	LastName        string          `json:"last_name"`
	Segment         Segment         `json:"segment"`
	LastContactedAt *time.Time      `json:"last_contacted_at,omitempty"`
	FORDNotes       json.RawMessage `json:"ford_notes,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// FullName returns "First Last" for display and draft prompts.
func (p *Person) FullName() string {
	if p.LastName == "" {
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}

// FORD is the relationship-note taxonomy (Family, Occupation, Recreation,
// Dreams) kept as qualitative context on a person.
type FORD struct {
	Family     string `json:"family,omitempty"`
	Occupation string `json:"occupation,omitempty"`
	Recreation string `json:"recreation,omitempty"`
	Dreams     string `json:"dreams,omitempty"`
}

// Summary is the trimmed person view joined into signal listings.
type Summary struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Segment         Segment    `json:"segment"`
	LastContactedAt *time.Time `json:"last_contacted_at,omitempty"`
}
