package postgres

import (
	"context"
	"fmt"

	"github.com/rainmakerhq/rainmaker/internal/domain"
	"github.com/rainmakerhq/rainmaker/internal/domain/outreach"
)

// --- Outreach artifacts ---
//
// Drafts and tasks are keyed on (source_kind, source_id): one artifact per
// originating action or signal resolution. The dispatcher checks the key
// before creating, which is what makes execution idempotent.

const draftColumns = `id, person_id, kind, COALESCE(subject, ''), body, source_kind, source_id, created_at`

func scanDraft(row scannable) (outreach.Draft, error) {
	var d outreach.Draft
	err := row.Scan(&d.ID, &d.PersonID, &d.Kind, &d.Subject, &d.Body, &d.SourceKind, &d.SourceID, &d.CreatedAt)
	return d, err
}

func (s *Store) CreateDraft(ctx context.Context, d *outreach.Draft) (*outreach.Draft, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO outreach_drafts (tenant_id, person_id, kind, subject, body, source_kind, source_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+draftColumns,
		tenantFromCtx(ctx), d.PersonID, string(d.Kind), d.Subject, d.Body, string(d.SourceKind), d.SourceID)

	created, err := scanDraft(row)
	if err != nil {
		return nil, fmt.Errorf("create draft: %w", err)
	}
	return &created, nil
}

func (s *Store) GetDraftBySource(ctx context.Context, kind outreach.SourceKind, sourceID string) (*outreach.Draft, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+draftColumns+` FROM outreach_drafts WHERE source_kind = $1 AND source_id = $2 AND tenant_id = $3`,
		string(kind), sourceID, tenantFromCtx(ctx))

	d, err := scanDraft(row)
	if err != nil {
		return nil, notFoundWrap(err, "get draft for %s %s", kind, sourceID)
	}
	return &d, nil
}

// DeleteDraftBySource removes the draft a resolution created, for undo.
// Deleting a draft that is already gone is not an error.
func (s *Store) DeleteDraftBySource(ctx context.Context, kind outreach.SourceKind, sourceID string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM outreach_drafts WHERE source_kind = $1 AND source_id = $2 AND tenant_id = $3`,
		string(kind), sourceID, tenantFromCtx(ctx))
	if err != nil {
		return fmt.Errorf("delete draft for %s %s: %w", kind, sourceID, err)
	}
	return nil
}

const taskColumns = `id, person_id, title, COALESCE(notes, ''), due_at, source_kind, source_id, COALESCE(external_id, ''), created_at`

func scanTask(row scannable) (outreach.Task, error) {
	var t outreach.Task
	err := row.Scan(&t.ID, &t.PersonID, &t.Title, &t.Notes, &t.DueAt, &t.SourceKind, &t.SourceID, &t.ExternalID, &t.CreatedAt)
	return t, err
}

func (s *Store) CreateTask(ctx context.Context, t *outreach.Task) (*outreach.Task, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO outreach_tasks (tenant_id, person_id, title, notes, due_at, source_kind, source_id, external_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING `+taskColumns,
		tenantFromCtx(ctx), t.PersonID, t.Title, t.Notes, t.DueAt, string(t.SourceKind), t.SourceID, nullIfEmpty(t.ExternalID))

	created, err := scanTask(row)
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return &created, nil
}

func (s *Store) GetTaskBySource(ctx context.Context, kind outreach.SourceKind, sourceID string) (*outreach.Task, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+taskColumns+` FROM outreach_tasks WHERE source_kind = $1 AND source_id = $2 AND tenant_id = $3`,
		string(kind), sourceID, tenantFromCtx(ctx))

	t, err := scanTask(row)
	if err != nil {
		return nil, notFoundWrap(err, "get task for %s %s", kind, sourceID)
	}
	return &t, nil
}

// SetTaskExternalID records the CRM-side ID after a successful mirror sync.
func (s *Store) SetTaskExternalID(ctx context.Context, id, externalID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE outreach_tasks SET external_id = $3 WHERE id = $1 AND tenant_id = $2`,
		id, tenantFromCtx(ctx), externalID)
	if err != nil {
		return fmt.Errorf("set task %s external id: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("set task %s external id: %w", id, domain.ErrNotFound)
	}
	return nil
}
