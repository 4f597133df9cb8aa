package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/rainmakerhq/rainmaker/internal/domain"
	"github.com/rainmakerhq/rainmaker/internal/domain/signal"
	"github.com/rainmakerhq/rainmaker/internal/port/database"
)

// --- Follow-up signals ---

// signalColumns is the SELECT column list for followup_signals queries.
const signalColumns = `id, person_id, COALESCE(interaction_id::text, ''), reasoning, priority_score,
	status, COALESCE(resolution_type, ''), resolved_at, expires_at, created_at`

func scanSignal(row scannable) (signal.FollowUpSignal, error) {
	var sg signal.FollowUpSignal
	err := row.Scan(
		&sg.ID, &sg.PersonID, &sg.InteractionID, &sg.Reasoning, &sg.PriorityScore,
		&sg.Status, &sg.ResolutionType, &sg.ResolvedAt, &sg.ExpiresAt, &sg.CreatedAt,
	)
	return sg, err
}

func (s *Store) CreateSignal(ctx context.Context, req signal.CreateRequest) (*signal.FollowUpSignal, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO followup_signals (tenant_id, person_id, interaction_id, reasoning, priority_score, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+signalColumns,
		tenantFromCtx(ctx), req.PersonID, nullIfEmpty(req.InteractionID),
		req.Reasoning, req.PriorityScore, req.ExpiresAt)

	sg, err := scanSignal(row)
	if err != nil {
		return nil, fmt.Errorf("create signal: %w", err)
	}
	return &sg, nil
}

func (s *Store) GetSignal(ctx context.Context, id string) (*signal.FollowUpSignal, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+signalColumns+` FROM followup_signals WHERE id = $1 AND tenant_id = $2`,
		id, tenantFromCtx(ctx))

	sg, err := scanSignal(row)
	if err != nil {
		return nil, notFoundWrap(err, "get signal %s", id)
	}
	return &sg, nil
}

// ListSignals returns actionable signals joined with their person summary,
// highest priority first. Expiry is passive: a pending signal past expires_at
// is filtered here even before the sweeper flips its status.
func (s *Store) ListSignals(ctx context.Context, limit int) ([]database.SignalWithPerson, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		fmt.Sprintf(`SELECT s.id, s.person_id, COALESCE(s.interaction_id::text, ''), s.reasoning, s.priority_score,
			s.status, COALESCE(s.resolution_type, ''), s.resolved_at, s.expires_at, s.created_at,
			p.id, TRIM(p.first_name || ' ' || p.last_name), p.segment, p.last_contacted_at
		 FROM followup_signals s
		 JOIN people p ON p.id = s.person_id
		 WHERE s.tenant_id = $1 AND s.status = 'pending' AND s.expires_at > now()
		 ORDER BY s.priority_score DESC, s.created_at ASC LIMIT %d`, limit),
		tenantFromCtx(ctx))
	if err != nil {
		return nil, fmt.Errorf("list signals: %w", err)
	}
	defer rows.Close()

	var out []database.SignalWithPerson
	for rows.Next() {
		var swp database.SignalWithPerson
		sg := &swp.Signal
		if err := rows.Scan(
			&sg.ID, &sg.PersonID, &sg.InteractionID, &sg.Reasoning, &sg.PriorityScore,
			&sg.Status, &sg.ResolutionType, &sg.ResolvedAt, &sg.ExpiresAt, &sg.CreatedAt,
			&swp.Person.ID, &swp.Person.Name, &swp.Person.Segment, &swp.Person.LastContactedAt,
		); err != nil {
			return nil, fmt.Errorf("scan signal: %w", err)
		}
		out = append(out, swp)
	}
	return out, rows.Err()
}

// ResolveSignal transitions pending -> resolved/skipped. The update is
// conditional on the signal still being actionable at now, so a resolution
// racing the sweeper (or arriving after expiry) loses cleanly.
func (s *Store) ResolveSignal(ctx context.Context, id string, rt signal.ResolutionType, now time.Time) (*signal.FollowUpSignal, error) {
	tid := tenantFromCtx(ctx)
	to := signal.StatusResolved
	if rt == signal.ResolveSkip {
		to = signal.StatusSkipped
	}

	row := s.pool.QueryRow(ctx,
		`UPDATE followup_signals SET status = $3, resolution_type = $4, resolved_at = $5
		 WHERE id = $1 AND tenant_id = $2 AND status = 'pending' AND expires_at > $5
		 RETURNING `+signalColumns,
		id, tid, string(to), string(rt), now)

	sg, err := scanSignal(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, s.signalStateErr(ctx, id, tid, now, "resolve")
		}
		return nil, fmt.Errorf("resolve signal %s: %w", id, err)
	}
	return &sg, nil
}

// UndoSignal returns a skip resolution to pending. Only skips can be undone,
// and only within the undo window measured from resolved_at. Score and expiry
// are left untouched.
func (s *Store) UndoSignal(ctx context.Context, id string, now time.Time) (*signal.FollowUpSignal, error) {
	tid := tenantFromCtx(ctx)
	row := s.pool.QueryRow(ctx,
		`UPDATE followup_signals SET status = 'pending', resolution_type = NULL, resolved_at = NULL
		 WHERE id = $1 AND tenant_id = $2 AND status = 'skipped' AND resolution_type = 'skip' AND resolved_at >= $3
		 RETURNING `+signalColumns,
		id, tid, now.Add(-signal.UndoWindow))

	sg, err := scanSignal(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if _, getErr := s.GetSignal(ctx, id); getErr != nil {
				return nil, getErr
			}
			return nil, fmt.Errorf("undo signal %s: %w", id, domain.ErrUndoNotAvailable)
		}
		return nil, fmt.Errorf("undo signal %s: %w", id, err)
	}
	return &sg, nil
}

// ExpireSignals flips pending signals past their expiry to expired. It runs
// as background maintenance and deliberately spans tenants. Idempotent: a
// second sweep matches nothing, and a resolution racing the sweep wins or
// loses atomically on the status condition.
func (s *Store) ExpireSignals(ctx context.Context, now time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE followup_signals SET status = 'expired' WHERE status = 'pending' AND expires_at <= $1`,
		now)
	if err != nil {
		return 0, fmt.Errorf("expire signals: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// signalStateErr distinguishes missing, expired, and already-resolved signals
// after a conditional update matched no rows.
func (s *Store) signalStateErr(ctx context.Context, id, tid string, now time.Time, op string) error {
	var status string
	var expiresAt time.Time
	err := s.pool.QueryRow(ctx,
		`SELECT status, expires_at FROM followup_signals WHERE id = $1 AND tenant_id = $2`, id, tid).
		Scan(&status, &expiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s signal %s: %w", op, id, domain.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("%s signal %s: %w", op, id, err)
	}
	if status == string(signal.StatusExpired) || (status == string(signal.StatusPending) && !expiresAt.After(now)) {
		return fmt.Errorf("%s signal %s: %w", op, id, domain.ErrAlreadyExpired)
	}
	return fmt.Errorf("%s signal %s in status %s: %w", op, id, status, domain.ErrInvalidState)
}
