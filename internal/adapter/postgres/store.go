package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rainmakerhq/rainmaker/internal/domain"
	"github.com/rainmakerhq/rainmaker/internal/domain/action"
)

// Store implements database.Store using PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// --- Agent actions ---

// actionColumns is the SELECT column list for agent_actions queries.
const actionColumns = `id, COALESCE(event_id::text, ''), agent_name, action_type, risk_level, status,
	COALESCE(target_person_id::text, ''), COALESCE(target_deal_id::text, ''),
	COALESCE(target_entity, ''), COALESCE(target_entity_id, ''),
	proposed_content, reasoning, COALESCE(approved_by, ''), approved_at, executed_at,
	COALESCE(error_message, ''), created_at`

func scanAction(row scannable) (action.AgentAction, error) {
	var a action.AgentAction
	err := row.Scan(
		&a.ID, &a.EventID, &a.AgentName, &a.ActionType, &a.RiskLevel, &a.Status,
		&a.TargetPerson, &a.TargetDeal,
		&a.TargetEntity, &a.TargetEntityID,
		&a.ProposedContent, &a.Reasoning, &a.ApprovedBy, &a.ApprovedAt, &a.ExecutedAt,
		&a.ErrorMessage, &a.CreatedAt,
	)
	return a, err
}

func (s *Store) CreateAction(ctx context.Context, a *action.AgentAction) (*action.AgentAction, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO agent_actions (tenant_id, event_id, agent_name, action_type, risk_level, status, target_person_id, target_deal_id, target_entity, target_entity_id, proposed_content, reasoning, approved_by, approved_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		 RETURNING `+actionColumns,
		tenantFromCtx(ctx), nullIfEmpty(a.EventID), a.AgentName, a.ActionType,
		string(a.RiskLevel), string(a.Status),
		nullIfEmpty(a.TargetPerson), nullIfEmpty(a.TargetDeal),
		nullIfEmpty(a.TargetEntity), nullIfEmpty(a.TargetEntityID),
		a.ProposedContent, a.Reasoning, nullIfEmpty(a.ApprovedBy), a.ApprovedAt)

	created, err := scanAction(row)
	if err != nil {
		return nil, fmt.Errorf("create action: %w", err)
	}
	return &created, nil
}

func (s *Store) GetAction(ctx context.Context, id string) (*action.AgentAction, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+actionColumns+` FROM agent_actions WHERE id = $1 AND tenant_id = $2`,
		id, tenantFromCtx(ctx))

	a, err := scanAction(row)
	if err != nil {
		return nil, notFoundWrap(err, "get action %s", id)
	}
	return &a, nil
}

func (s *Store) ListActions(ctx context.Context, limit int) ([]action.AgentAction, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		fmt.Sprintf(`SELECT %s FROM agent_actions WHERE tenant_id = $1 ORDER BY created_at DESC LIMIT %d`, actionColumns, limit),
		tenantFromCtx(ctx))
	if err != nil {
		return nil, fmt.Errorf("list actions: %w", err)
	}
	defer rows.Close()

	return collectActions(rows)
}

func (s *Store) ListPendingActions(ctx context.Context) ([]action.AgentAction, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+actionColumns+` FROM agent_actions WHERE tenant_id = $1 AND status = 'proposed' ORDER BY created_at ASC`,
		tenantFromCtx(ctx))
	if err != nil {
		return nil, fmt.Errorf("list pending actions: %w", err)
	}
	defer rows.Close()

	return collectActions(rows)
}

func collectActions(rows pgx.Rows) ([]action.AgentAction, error) {
	var actions []action.AgentAction
	for rows.Next() {
		a, err := scanAction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan action: %w", err)
		}
		actions = append(actions, a)
	}
	return actions, rows.Err()
}

func (s *Store) CountPendingActions(ctx context.Context) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM agent_actions WHERE tenant_id = $1 AND status = 'proposed'`,
		tenantFromCtx(ctx)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count pending actions: %w", err)
	}
	return count, nil
}

// DecideAction transitions proposed -> approved/rejected. The update is
// conditional on the current status so a second decision, or a decision on an
// already-executed action, loses the race and leaves the row untouched.
// The approver columns are written on the approve transition only; a rejected
// row keeps them empty.
func (s *Store) DecideAction(ctx context.Context, id string, to action.Status, decidedBy string) (*action.AgentAction, error) {
	tid := tenantFromCtx(ctx)
	row := s.pool.QueryRow(ctx,
		`UPDATE agent_actions SET status = $3,
		        approved_by = CASE WHEN $3 = 'approved' THEN $4 ELSE approved_by END,
		        approved_at = CASE WHEN $3 = 'approved' THEN now() ELSE approved_at END
		 WHERE id = $1 AND tenant_id = $2 AND status = 'proposed'
		 RETURNING `+actionColumns,
		id, tid, string(to), decidedBy)

	a, err := scanAction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, s.actionStateErr(ctx, id, tid, "decide")
		}
		return nil, fmt.Errorf("decide action %s: %w", id, err)
	}
	return &a, nil
}

// MarkActionExecuted stamps executed_at; valid from approved only.
func (s *Store) MarkActionExecuted(ctx context.Context, id string) error {
	tid := tenantFromCtx(ctx)
	tag, err := s.pool.Exec(ctx,
		`UPDATE agent_actions SET status = 'executed', executed_at = now()
		 WHERE id = $1 AND tenant_id = $2 AND status = 'approved'`,
		id, tid)
	if err != nil {
		return fmt.Errorf("mark action %s executed: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return s.actionStateErr(ctx, id, tid, "mark executed")
	}
	return nil
}

// MarkActionFailed records a collaborator failure. Failed is terminal; the
// row stays for audit and a fresh proposal is the retry path.
func (s *Store) MarkActionFailed(ctx context.Context, id, errorMessage string) error {
	tid := tenantFromCtx(ctx)
	tag, err := s.pool.Exec(ctx,
		`UPDATE agent_actions SET status = 'failed', error_message = $3
		 WHERE id = $1 AND tenant_id = $2 AND status = 'approved'`,
		id, tid, errorMessage)
	if err != nil {
		return fmt.Errorf("mark action %s failed: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return s.actionStateErr(ctx, id, tid, "mark failed")
	}
	return nil
}

// actionStateErr distinguishes a missing action from one in the wrong state
// after a conditional update matched no rows.
func (s *Store) actionStateErr(ctx context.Context, id, tid, op string) error {
	var status string
	err := s.pool.QueryRow(ctx,
		`SELECT status FROM agent_actions WHERE id = $1 AND tenant_id = $2`, id, tid).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s action %s: %w", op, id, domain.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("%s action %s: %w", op, id, err)
	}
	return fmt.Errorf("%s action %s in status %s: %w", op, id, status, domain.ErrInvalidState)
}
