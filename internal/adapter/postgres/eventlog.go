package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rainmakerhq/rainmaker/internal/domain"
	"github.com/rainmakerhq/rainmaker/internal/domain/event"
)

// EventStore implements eventlog.Store using PostgreSQL (append-only).
type EventStore struct {
	pool *pgxpool.Pool
}

// NewEventStore creates a new EventStore backed by the given connection pool.
func NewEventStore(pool *pgxpool.Pool) *EventStore {
	return &EventStore{pool: pool}
}

// eventColumns is the SELECT column list for system_events queries.
const eventColumns = `id, event_type, event_category,
	COALESCE(subject_person_id::text, ''), COALESCE(subject_deal_id::text, ''),
	COALESCE(source_entity, ''), COALESCE(source_entity_id, ''),
	payload, metadata, processed_at, processed_by, created_at`

func scanEvent(row scannable) (event.SystemEvent, error) {
	var ev event.SystemEvent
	err := row.Scan(
		&ev.ID, &ev.Type, &ev.Category,
		&ev.SubjectPerson, &ev.SubjectDeal,
		&ev.SourceEntity, &ev.SourceEntityID,
		&ev.Payload, &ev.Metadata, &ev.ProcessedAt, &ev.ProcessedBy, &ev.CreatedAt,
	)
	ev.ProcessedBy = orEmpty(ev.ProcessedBy)
	return ev, err
}

// Append inserts a new event into the ledger and returns the stored row.
func (s *EventStore) Append(ctx context.Context, req event.AppendRequest) (*event.SystemEvent, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO system_events (tenant_id, event_type, event_category, subject_person_id, subject_deal_id, source_entity, source_entity_id, payload, metadata)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING `+eventColumns,
		tenantFromCtx(ctx), string(req.Type), string(req.Category),
		nullIfEmpty(req.SubjectPerson), nullIfEmpty(req.SubjectDeal),
		nullIfEmpty(req.SourceEntity), nullIfEmpty(req.SourceEntityID),
		req.Payload, req.Metadata)

	ev, err := scanEvent(row)
	if err != nil {
		return nil, fmt.Errorf("append event: %w", err)
	}
	return &ev, nil
}

// Get returns a single event by ID.
func (s *EventStore) Get(ctx context.Context, id string) (*event.SystemEvent, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM system_events WHERE id = $1 AND tenant_id = $2`,
		id, tenantFromCtx(ctx))

	ev, err := scanEvent(row)
	if err != nil {
		return nil, notFoundWrap(err, "get event %s", id)
	}
	return &ev, nil
}

// List returns events newest first, optionally filtered by category.
func (s *EventStore) List(ctx context.Context, category event.Category, limit int) ([]event.SystemEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT ` + eventColumns + ` FROM system_events WHERE tenant_id = $1`
	args := []any{tenantFromCtx(ctx)}
	if category != "" {
		query += ` AND event_category = $2`
		args = append(args, string(category))
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT %d`, limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	return collectEvents(rows)
}

// ListUnprocessed returns events whose processed-by ledger does not yet
// cover the registered agent set, oldest first so the pipeline replays in
// append order. processed_at only records the first touch; coverage is
// decided against the array.
func (s *EventStore) ListUnprocessed(ctx context.Context, category event.Category, registered []string, limit int) ([]event.SystemEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT ` + eventColumns + ` FROM system_events WHERE tenant_id = $1 AND NOT (processed_by @> $2)`
	args := []any{tenantFromCtx(ctx), registered}
	if category != "" {
		query += ` AND event_category = $3`
		args = append(args, string(category))
	}
	query += fmt.Sprintf(` ORDER BY created_at ASC LIMIT %d`, limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list unprocessed events: %w", err)
	}
	defer rows.Close()

	return collectEvents(rows)
}

func collectEvents(rows pgx.Rows) ([]event.SystemEvent, error) {
	var events []event.SystemEvent
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// MarkProcessed appends the agent to the event's processed-by set. The
// first-processed timestamp is set once and never rewritten; a repeat call
// for the same agent is a no-op.
func (s *EventStore) MarkProcessed(ctx context.Context, id, agentName string) error {
	tid := tenantFromCtx(ctx)
	tag, err := s.pool.Exec(ctx,
		`UPDATE system_events
		 SET processed_by = array_append(processed_by, $3),
		     processed_at = COALESCE(processed_at, now())
		 WHERE id = $1 AND tenant_id = $2 AND NOT ($3 = ANY(processed_by))`,
		id, tid, agentName)
	if err != nil {
		return fmt.Errorf("mark event %s processed: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		// Either the event does not exist or the agent already processed it.
		var exists bool
		err := s.pool.QueryRow(ctx,
			`SELECT true FROM system_events WHERE id = $1 AND tenant_id = $2`, id, tid).Scan(&exists)
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("mark event %s processed: %w", id, domain.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("mark event %s processed: %w", id, err)
		}
	}
	return nil
}

// Stats returns aggregate event counts. The approval and registry fields are
// filled in by the service layer.
func (s *EventStore) Stats(ctx context.Context) (*event.Stats, error) {
	tid := tenantFromCtx(ctx)

	stats := &event.Stats{EventsByCategory: make(map[string]int)}

	rows, err := s.pool.Query(ctx,
		`SELECT event_category, COUNT(*), COUNT(*) FILTER (WHERE processed_at IS NULL)
		 FROM system_events WHERE tenant_id = $1 GROUP BY event_category`, tid)
	if err != nil {
		return nil, fmt.Errorf("event stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var category string
		var total, unprocessed int
		if err := rows.Scan(&category, &total, &unprocessed); err != nil {
			return nil, fmt.Errorf("scan event stats: %w", err)
		}
		stats.EventsByCategory[category] = total
		stats.TotalEvents += total
		stats.UnprocessedEvents += unprocessed
	}
	return stats, rows.Err()
}
