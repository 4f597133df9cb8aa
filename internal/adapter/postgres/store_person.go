package postgres

import (
	"context"
	"fmt"

	"github.com/rainmakerhq/rainmaker/internal/domain/interaction"
	"github.com/rainmakerhq/rainmaker/internal/domain/person"
)

// --- People (read-only foreign references) ---

func (s *Store) GetPerson(ctx context.Context, id string) (*person.Person, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, first_name, last_name, segment, last_contacted_at, ford_notes, created_at
		 FROM people WHERE id = $1 AND tenant_id = $2`,
		id, tenantFromCtx(ctx))

	var p person.Person
	err := row.Scan(&p.ID, &p.FirstName, &p.LastName, &p.Segment, &p.LastContactedAt, &p.FORDNotes, &p.CreatedAt)
	if err != nil {
		return nil, notFoundWrap(err, "get person %s", id)
	}
	return &p, nil
}

// CountOpenDeals counts the person's deals that have not closed, for agent
// proposal context.
func (s *Store) CountOpenDeals(ctx context.Context, personID string) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM deals WHERE person_id = $1 AND tenant_id = $2 AND closed_at IS NULL`,
		personID, tenantFromCtx(ctx)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count open deals for %s: %w", personID, err)
	}
	return count, nil
}

// --- Interactions ---

const interactionColumns = `id, person_id, source, summary, COALESCE(content, ''), occurred_at, created_at`

func scanInteraction(row scannable) (interaction.Interaction, error) {
	var in interaction.Interaction
	err := row.Scan(&in.ID, &in.PersonID, &in.Source, &in.Summary, &in.Content, &in.OccurredAt, &in.CreatedAt)
	return in, err
}

func (s *Store) CreateInteraction(ctx context.Context, req interaction.LogRequest) (*interaction.Interaction, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO interactions (tenant_id, person_id, source, summary, content, occurred_at)
		 VALUES ($1, $2, $3, $4, $5, COALESCE($6, now()))
		 RETURNING `+interactionColumns,
		tenantFromCtx(ctx), req.PersonID, string(req.Source), req.Summary, req.Content, req.OccurredAt)

	in, err := scanInteraction(row)
	if err != nil {
		return nil, fmt.Errorf("create interaction: %w", err)
	}
	return &in, nil
}

func (s *Store) ListRecentInteractions(ctx context.Context, personID string, limit int) ([]interaction.Interaction, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.pool.Query(ctx,
		fmt.Sprintf(`SELECT %s FROM interactions WHERE person_id = $1 AND tenant_id = $2 ORDER BY occurred_at DESC LIMIT %d`, interactionColumns, limit),
		personID, tenantFromCtx(ctx))
	if err != nil {
		return nil, fmt.Errorf("list interactions for %s: %w", personID, err)
	}
	defer rows.Close()

	var interactions []interaction.Interaction
	for rows.Next() {
		in, err := scanInteraction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan interaction: %w", err)
		}
		interactions = append(interactions, in)
	}
	return interactions, rows.Err()
}
