package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rainmakerhq/rainmaker/internal/domain"
	"github.com/rainmakerhq/rainmaker/internal/domain/event"
	"github.com/rainmakerhq/rainmaker/internal/domain/interaction"
	"github.com/rainmakerhq/rainmaker/internal/port/database"
)

// InteractionService is the boundary the local sync agents and the UI push
// logged conversations through. Logging stores the interaction, appends
// exactly one communication.logged event, and lets the event log service run
// the pipeline for it.
type InteractionService struct {
	store    database.Store
	eventLog *EventLogService
	contexts *ContextProvider
}

// NewInteractionService creates an InteractionService.
func NewInteractionService(store database.Store, eventLog *EventLogService, contexts *ContextProvider) *InteractionService {
	return &InteractionService{store: store, eventLog: eventLog, contexts: contexts}
}

// Log stores a conversation and appends its event. It returns both so the
// caller can correlate follow-on proposals with the interaction it pushed.
func (s *InteractionService) Log(ctx context.Context, req interaction.LogRequest) (*interaction.Interaction, *event.SystemEvent, error) {
	if req.PersonID == "" {
		return nil, nil, fmt.Errorf("person_id is required: %w", domain.ErrValidation)
	}
	if req.Summary == "" {
		return nil, nil, fmt.Errorf("summary is required: %w", domain.ErrValidation)
	}
	if req.Source == "" {
		req.Source = interaction.SourceManual
	}
	if !req.Source.Valid() {
		return nil, nil, fmt.Errorf("unknown source %q: %w", req.Source, domain.ErrValidation)
	}

	// The person must exist; the FK would catch it anyway but this maps to a
	// clean 404 instead of a constraint violation.
	if _, err := s.store.GetPerson(ctx, req.PersonID); err != nil {
		return nil, nil, err
	}

	created, err := s.store.CreateInteraction(ctx, req)
	if err != nil {
		return nil, nil, err
	}

	// The cached context is stale the moment a new conversation lands.
	s.contexts.Invalidate(ctx, req.PersonID)

	payload, err := json.Marshal(event.InteractionLoggedPayload{
		InteractionID: created.ID,
		Source:        string(created.Source),
		Summary:       created.Summary,
		Content:       created.Content,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("marshal interaction payload: %w", err)
	}

	ev, err := s.eventLog.Append(ctx, event.AppendRequest{
		Type:           event.TypeInteractionLogged,
		Category:       event.CategoryCommunication,
		SubjectPerson:  created.PersonID,
		SourceEntity:   "interaction",
		SourceEntityID: created.ID,
		Payload:        payload,
	})
	if err != nil {
		return nil, nil, err
	}

	return created, ev, nil
}

// ListRecent returns a person's most recent conversations.
func (s *InteractionService) ListRecent(ctx context.Context, personID string, limit int) ([]interaction.Interaction, error) {
	if personID == "" {
		return nil, fmt.Errorf("person_id is required: %w", domain.ErrValidation)
	}
	return s.store.ListRecentInteractions(ctx, personID, limit)
}
