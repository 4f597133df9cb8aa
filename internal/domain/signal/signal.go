// Package signal defines the FollowUpSignal entity: a time-bounded, scored
// prompt asking the operator to decide how (or whether) to follow up with a
// person, with one-tap resolution and a short undo window.
package signal

import "time"

// Status is the lifecycle state of a signal.
type Status string

const (
	StatusPending  Status = "pending"
	StatusResolved Status = "resolved"
	StatusSkipped  Status = "skipped"
	StatusExpired  Status = "expired"
)

// ResolutionType is how the operator chose to act on a signal.
type ResolutionType string

const (
	ResolveText            ResolutionType = "text"
	ResolveEmail           ResolutionType = "email"
	ResolveHandwrittenNote ResolutionType = "handwritten_note"
	ResolveTask            ResolutionType = "task"
	ResolveSkip            ResolutionType = "skip"
)

// Valid reports whether rt is a known resolution type.
func (rt ResolutionType) Valid() bool {
	switch rt {
	case ResolveText, ResolveEmail, ResolveHandwrittenNote, ResolveTask, ResolveSkip:
		return true
	}
	return false
}

// CreatesArtifact reports whether resolving with rt produces a downstream
// draft or task. Skip never does.
func (rt ResolutionType) CreatesArtifact() bool {
	return rt != ResolveSkip && rt.Valid()
}

// UndoWindow is the grace period after a skip resolution during which undo is
// accepted. Matches the dashboard's toast timeout.
const UndoWindow = 10 * time.Second

// FollowUpSignal is a human decision checkpoint derived from the event stream.
// The person it references is a read-only foreign reference.
type FollowUpSignal struct {
	ID             string         `json:"id"`
	PersonID       string         `json:"person_id"`
	InteractionID  string         `json:"interaction_id,omitempty"`
	Reasoning      string         `json:"reasoning"`
	PriorityScore  int            `json:"priority_score"`
	Status         Status         `json:"status"`
	ResolutionType ResolutionType `json:"resolution_type,omitempty"`
	ResolvedAt     *time.Time     `json:"resolved_at,omitempty"`
	ExpiresAt      time.Time      `json:"expires_at"`
	CreatedAt      time.Time      `json:"created_at"`
}

// Actionable reports whether the signal can still be resolved at the given
// instant. Expiry is passive: it is evaluated on read, not by an active timer.
func (s *FollowUpSignal) Actionable(now time.Time) bool {
	return s.Status == StatusPending && now.Before(s.ExpiresAt)
}

// UndoableAt reports whether an undo is valid at the given instant: only skip
// resolutions, and only within the undo window.
func (s *FollowUpSignal) UndoableAt(now time.Time) bool {
	if s.Status != StatusSkipped || s.ResolvedAt == nil {
		return false
	}
	return now.Sub(*s.ResolvedAt) <= UndoWindow
}

// CreateRequest carries the fields the signal engine supplies on creation.
type CreateRequest struct {
	PersonID      string
	InteractionID string
	Reasoning     string
	PriorityScore int
	ExpiresAt     time.Time
}
