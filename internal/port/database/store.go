// Package database defines the relational store port (interface) for
// everything except the event ledger.
package database

import (
	"context"
	"time"

	"github.com/rainmakerhq/rainmaker/internal/domain/action"
	"github.com/rainmakerhq/rainmaker/internal/domain/interaction"
	"github.com/rainmakerhq/rainmaker/internal/domain/outreach"
	"github.com/rainmakerhq/rainmaker/internal/domain/person"
	"github.com/rainmakerhq/rainmaker/internal/domain/signal"
)

// SignalWithPerson is a signal joined with its person summary for listings.
type SignalWithPerson struct {
	Signal signal.FollowUpSignal `json:"signal"`
	Person person.Summary        `json:"person"`
}

// Store is the port interface for database operations.
type Store interface {
	// Agent actions
	CreateAction(ctx context.Context, a *action.AgentAction) (*action.AgentAction, error)
	GetAction(ctx context.Context, id string) (*action.AgentAction, error)
	ListActions(ctx context.Context, limit int) ([]action.AgentAction, error)
	ListPendingActions(ctx context.Context) ([]action.AgentAction, error)
	CountPendingActions(ctx context.Context) (int, error)
	// DecideAction transitions proposed -> approved/rejected. The update is
	// conditional on current status; a decided action yields
	// domain.ErrInvalidState and keeps the prior decision intact.
	DecideAction(ctx context.Context, id string, to action.Status, decidedBy string) (*action.AgentAction, error)
	// MarkActionExecuted stamps executed_at; valid from approved only.
	MarkActionExecuted(ctx context.Context, id string) error
	// MarkActionFailed records a collaborator failure. Valid from approved.
	MarkActionFailed(ctx context.Context, id, errorMessage string) error

	// Follow-up signals
	CreateSignal(ctx context.Context, req signal.CreateRequest) (*signal.FollowUpSignal, error)
	GetSignal(ctx context.Context, id string) (*signal.FollowUpSignal, error)
	ListSignals(ctx context.Context, limit int) ([]SignalWithPerson, error)
	// ResolveSignal transitions pending -> resolved/skipped iff the signal is
	// still actionable (status pending and expires_at in the future). An
	// expired-but-unswept signal yields domain.ErrAlreadyExpired; any other
	// status yields domain.ErrInvalidState.
	ResolveSignal(ctx context.Context, id string, rt signal.ResolutionType, now time.Time) (*signal.FollowUpSignal, error)
	// UndoSignal returns a skip resolution to pending iff resolved_at is
	// within the undo window. Score and expiry are left untouched.
	UndoSignal(ctx context.Context, id string, now time.Time) (*signal.FollowUpSignal, error)
	// ExpireSignals flips pending signals past their expiry to expired and
	// returns how many rows changed. Idempotent; safe to run concurrently
	// with resolution.
	ExpireSignals(ctx context.Context, now time.Time) (int, error)

	// People (read-only foreign references)
	GetPerson(ctx context.Context, id string) (*person.Person, error)

	// Interactions
	CreateInteraction(ctx context.Context, req interaction.LogRequest) (*interaction.Interaction, error)
	ListRecentInteractions(ctx context.Context, personID string, limit int) ([]interaction.Interaction, error)

	// Outreach artifacts (dispatcher idempotency is keyed on source)
	CreateDraft(ctx context.Context, d *outreach.Draft) (*outreach.Draft, error)
	GetDraftBySource(ctx context.Context, kind outreach.SourceKind, sourceID string) (*outreach.Draft, error)
	DeleteDraftBySource(ctx context.Context, kind outreach.SourceKind, sourceID string) error
	CreateTask(ctx context.Context, t *outreach.Task) (*outreach.Task, error)
	GetTaskBySource(ctx context.Context, kind outreach.SourceKind, sourceID string) (*outreach.Task, error)
	SetTaskExternalID(ctx context.Context, id, externalID string) error
	CountOpenDeals(ctx context.Context, personID string) (int, error)
}
