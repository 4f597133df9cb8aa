package service

import (
	"context"
	"fmt"

	"github.com/rainmakerhq/rainmaker/internal/domain"
	"github.com/rainmakerhq/rainmaker/internal/domain/action"
	"github.com/rainmakerhq/rainmaker/internal/port/database"
)

// ApprovalService is the human side of the gate: listing pending proposals
// and turning a decision into exactly one state transition. A second decision
// on the same action loses the conditional update and surfaces as
// InvalidState, whichever order the requests land in.
type ApprovalService struct {
	store      database.Store
	dispatcher *DispatchService
}

// NewApprovalService creates an ApprovalService.
func NewApprovalService(store database.Store, dispatcher *DispatchService) *ApprovalService {
	return &ApprovalService{store: store, dispatcher: dispatcher}
}

// Get returns an action by ID.
func (s *ApprovalService) Get(ctx context.Context, id string) (*action.AgentAction, error) {
	return s.store.GetAction(ctx, id)
}

// List returns recent actions, newest first.
func (s *ApprovalService) List(ctx context.Context, limit int) ([]action.AgentAction, error) {
	return s.store.ListActions(ctx, limit)
}

// ListPending returns actions awaiting a decision, oldest first.
func (s *ApprovalService) ListPending(ctx context.Context) ([]action.AgentAction, error) {
	return s.store.ListPendingActions(ctx)
}

// Approve transitions a proposed action to approved and dispatches its
// effect. A collaborator failure leaves the action failed; the returned
// error carries domain.ErrCollaborator for the transport layer to map.
func (s *ApprovalService) Approve(ctx context.Context, id, approvedBy string) (*action.AgentAction, error) {
	if approvedBy == "" {
		return nil, fmt.Errorf("approved_by is required: %w", domain.ErrValidation)
	}

	approved, err := s.store.DecideAction(ctx, id, action.StatusApproved, approvedBy)
	if err != nil {
		return nil, err
	}

	if _, err := s.dispatcher.ExecuteAction(ctx, approved); err != nil {
		// Surface the state the dispatch left behind alongside the error.
		if failed, getErr := s.store.GetAction(ctx, id); getErr == nil {
			return failed, err
		}
		return approved, err
	}

	return s.store.GetAction(ctx, id)
}

// Reject transitions a proposed action to rejected. Nothing executes; the row
// stays for audit.
func (s *ApprovalService) Reject(ctx context.Context, id, rejectedBy string) (*action.AgentAction, error) {
	if rejectedBy == "" {
		return nil, fmt.Errorf("rejected_by is required: %w", domain.ErrValidation)
	}
	return s.store.DecideAction(ctx, id, action.StatusRejected, rejectedBy)
}
