// Package eventlog defines the event log port (interface).
package eventlog

import (
	"context"

	"github.com/rainmakerhq/rainmaker/internal/domain/event"
)

// Store is the port interface for the append-only system event ledger.
// Append is the only write path; events are immutable afterwards except for
// the processed-by ledger.
type Store interface {
	// Append inserts a new event and returns it with its assigned ID.
	Append(ctx context.Context, req event.AppendRequest) (*event.SystemEvent, error)

	// Get returns a single event by ID.
	Get(ctx context.Context, id string) (*event.SystemEvent, error)

	// List returns events newest first, optionally filtered by category.
	List(ctx context.Context, category event.Category, limit int) ([]event.SystemEvent, error)

	// ListUnprocessed returns events whose processed-by ledger does not yet
	// contain every name in registered, oldest first, optionally filtered by
	// category. Processing is a per-agent set, so an event partially covered
	// after a failure still comes back. An empty registered set matches
	// nothing.
	ListUnprocessed(ctx context.Context, category event.Category, registered []string, limit int) ([]event.SystemEvent, error)

	// MarkProcessed records the agent in the event's processed-by set.
	// Idempotent: a second call with the same agent is a no-op, and the
	// first-processed timestamp is never rewritten. Unknown id fails with
	// domain.ErrNotFound.
	MarkProcessed(ctx context.Context, id, agentName string) error

	// Stats returns aggregate event counts. PendingApprovals and
	// RegisteredAgents are filled in by the service layer.
	Stats(ctx context.Context) (*event.Stats, error)
}
