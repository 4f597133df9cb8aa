package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	otelmw "github.com/rainmakerhq/rainmaker/internal/adapter/otel"
	"github.com/rainmakerhq/rainmaker/internal/adapter/ws"
	"github.com/rainmakerhq/rainmaker/internal/domain"
	"github.com/rainmakerhq/rainmaker/internal/domain/action"
	"github.com/rainmakerhq/rainmaker/internal/domain/event"
	"github.com/rainmakerhq/rainmaker/internal/domain/outreach"
	"github.com/rainmakerhq/rainmaker/internal/domain/policy"
	"github.com/rainmakerhq/rainmaker/internal/domain/signal"
	"github.com/rainmakerhq/rainmaker/internal/port/crm"
	"github.com/rainmakerhq/rainmaker/internal/port/database"
	"github.com/rainmakerhq/rainmaker/internal/port/eventlog"
	"github.com/rainmakerhq/rainmaker/internal/port/generator"
	"github.com/rainmakerhq/rainmaker/internal/port/messagequeue"
)

// followUpTaskDue is how far out a task created from a signal resolution is
// due.
const followUpTaskDue = 3 * 24 * time.Hour

// DispatchService is the single place effects happen. Everything upstream
// only writes rows; execution of an approved action or a signal resolution
// funnels through here, keyed on the originating record so a retry after a
// partial failure finds what already exists instead of duplicating it.
type DispatchService struct {
	store    database.Store
	events   eventlog.Store
	gen      generator.Generator
	crm      crm.Syncer
	contexts *ContextProvider
	hub      *ws.Hub
	queue    messagequeue.Queue
	metrics  *otelmw.Metrics
}

// NewDispatchService creates a DispatchService.
func NewDispatchService(store database.Store, events eventlog.Store, gen generator.Generator, syncer crm.Syncer, contexts *ContextProvider) *DispatchService {
	return &DispatchService{store: store, events: events, gen: gen, crm: syncer, contexts: contexts}
}

// SetHub attaches the WebSocket hub for execution notifications.
func (s *DispatchService) SetHub(h *ws.Hub) { s.hub = h }

// SetQueue attaches the message queue for execution notifications.
func (s *DispatchService) SetQueue(q messagequeue.Queue) { s.queue = q }

// SetMetrics attaches metric instruments.
func (s *DispatchService) SetMetrics(m *otelmw.Metrics) { s.metrics = m }

// ExecuteAction performs the effect of an approved action and marks it
// executed. A collaborator failure marks the action failed and returns
// domain.ErrCollaborator; the action is terminal then, retry is a human
// decision above this layer.
func (s *DispatchService) ExecuteAction(ctx context.Context, a *action.AgentAction) (*outreach.ArtifactRef, error) {
	if a.Status != action.StatusApproved {
		return nil, fmt.Errorf("execute action %s in status %s: %w", a.ID, a.Status, domain.ErrInvalidState)
	}

	ctx, span := otelmw.StartDispatchSpan(ctx, a.ID, a.ActionType)
	defer span.End()

	artifact, err := s.performAction(ctx, a)
	if err != nil {
		if markErr := s.store.MarkActionFailed(ctx, a.ID, err.Error()); markErr != nil {
			slog.Error("mark action failed", "action_id", a.ID, "error", markErr)
		}
		if s.metrics != nil {
			s.metrics.ActionsFailed.Add(ctx, 1)
		}
		return nil, fmt.Errorf("execute %s: %v: %w", a.ActionType, err, domain.ErrCollaborator)
	}

	if err := s.store.MarkActionExecuted(ctx, a.ID); err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.ActionsExecuted.Add(ctx, 1)
	}

	s.notifyExecuted(ctx, a, artifact)
	return artifact, nil
}

// performAction routes the action type to its effect. It returns the created
// artifact, if the effect produces one.
func (s *DispatchService) performAction(ctx context.Context, a *action.AgentAction) (*outreach.ArtifactRef, error) {
	switch a.ActionType {
	case policy.ActionDraftWelcome, policy.ActionDraftFollowUp,
		policy.ActionSendMarketUpdate, policy.ActionContactClient:
		return s.createActionDraft(ctx, a)

	case policy.ActionCreateTask, policy.ActionScheduleCheckin:
		return s.createActionTask(ctx, a, false)

	case policy.ActionCreateCRMTask:
		return s.createActionTask(ctx, a, true)

	case policy.ActionSyncCRMNote:
		return nil, s.syncNote(ctx, a)

	case policy.ActionUpdateContext:
		return nil, s.enrichContext(ctx, a)

	default:
		// The policy table clamps unknown types to high risk, but nothing
		// downstream knows how to execute them either.
		return nil, fmt.Errorf("unknown action type %q", a.ActionType)
	}
}

// createActionDraft generates message text and stores it as a draft keyed on
// the action. An existing draft for the action is reused.
func (s *DispatchService) createActionDraft(ctx context.Context, a *action.AgentAction) (*outreach.ArtifactRef, error) {
	if existing, err := s.store.GetDraftBySource(ctx, outreach.SourceAction, a.ID); err == nil {
		return &outreach.ArtifactRef{Kind: "draft", ID: existing.ID}, nil
	}

	var content action.DraftContent
	if len(a.ProposedContent) > 0 {
		if err := json.Unmarshal(a.ProposedContent, &content); err != nil {
			return nil, fmt.Errorf("decode proposed content: %w", err)
		}
	}
	kind := outreach.DraftKind(content.Kind)
	if kind == "" {
		kind = outreach.DraftText
		if a.ActionType == policy.ActionSendMarketUpdate {
			kind = outreach.DraftEmail
		}
	}

	body, err := s.generateBody(ctx, a.TargetPerson, content.Prompt, string(kind))
	if err != nil {
		return nil, err
	}

	draft, err := s.store.CreateDraft(ctx, &outreach.Draft{
		PersonID:   a.TargetPerson,
		Kind:       kind,
		Subject:    content.Subject,
		Body:       body,
		SourceKind: outreach.SourceAction,
		SourceID:   a.ID,
	})
	if err != nil {
		return nil, err
	}
	return &outreach.ArtifactRef{Kind: "draft", ID: draft.ID}, nil
}

// createActionTask stores a task keyed on the action, optionally mirroring it
// to the external CRM.
func (s *DispatchService) createActionTask(ctx context.Context, a *action.AgentAction, mirror bool) (*outreach.ArtifactRef, error) {
	if existing, err := s.store.GetTaskBySource(ctx, outreach.SourceAction, a.ID); err == nil {
		return &outreach.ArtifactRef{Kind: "task", ID: existing.ID}, nil
	}

	var content action.TaskContent
	if len(a.ProposedContent) > 0 {
		if err := json.Unmarshal(a.ProposedContent, &content); err != nil {
			return nil, fmt.Errorf("decode proposed content: %w", err)
		}
	}
	if content.Title == "" {
		content.Title = strings.ReplaceAll(a.ActionType, "_", " ")
	}

	task, err := s.store.CreateTask(ctx, &outreach.Task{
		PersonID:   a.TargetPerson,
		Title:      content.Title,
		Notes:      content.Notes,
		DueAt:      content.DueAt,
		SourceKind: outreach.SourceAction,
		SourceID:   a.ID,
	})
	if err != nil {
		return nil, err
	}

	if mirror {
		externalID, err := s.crm.CreateTask(ctx, crm.TaskPayload{
			PersonID: a.TargetPerson,
			Title:    content.Title,
			DueAt:    content.DueAt,
		})
		if err != nil {
			return nil, fmt.Errorf("mirror task to crm: %w", err)
		}
		if err := s.store.SetTaskExternalID(ctx, task.ID, externalID); err != nil {
			return nil, err
		}
	}

	return &outreach.ArtifactRef{Kind: "task", ID: task.ID}, nil
}

// syncNote pushes a note to the external CRM.
func (s *DispatchService) syncNote(ctx context.Context, a *action.AgentAction) error {
	var content action.NoteContent
	if len(a.ProposedContent) > 0 {
		if err := json.Unmarshal(a.ProposedContent, &content); err != nil {
			return fmt.Errorf("decode proposed content: %w", err)
		}
	}
	if content.Body == "" {
		content.Body = a.Reasoning
	}

	if _, err := s.crm.CreateNote(ctx, crm.NotePayload{PersonID: a.TargetPerson, Body: content.Body}); err != nil {
		return fmt.Errorf("sync note to crm: %w", err)
	}
	return nil
}

// enrichContext appends a derived intelligence event carrying the extracted
// context. No registered agent is interested in context_enriched events, so
// the derivation cannot loop.
func (s *DispatchService) enrichContext(ctx context.Context, a *action.AgentAction) error {
	ev, err := s.events.Append(ctx, event.AppendRequest{
		Type:           event.TypeContextEnriched,
		Category:       event.CategoryIntelligence,
		SubjectPerson:  a.TargetPerson,
		SourceEntity:   "agent_action",
		SourceEntityID: a.ID,
		Payload:        a.ProposedContent,
	})
	if err != nil {
		return fmt.Errorf("append enrichment event: %w", err)
	}

	// The FORD notes the agents read next time around changed.
	s.contexts.Invalidate(ctx, a.TargetPerson)

	slog.Info("context enriched", "person_id", a.TargetPerson, "event_id", ev.ID)
	return nil
}

// ExecuteResolution performs the effect of a non-skip signal resolution:
// exactly one draft or one task, keyed on the signal.
func (s *DispatchService) ExecuteResolution(ctx context.Context, sg *signal.FollowUpSignal) (*outreach.ArtifactRef, error) {
	switch sg.ResolutionType {
	case signal.ResolveText, signal.ResolveEmail, signal.ResolveHandwrittenNote:
		if existing, err := s.store.GetDraftBySource(ctx, outreach.SourceSignal, sg.ID); err == nil {
			return &outreach.ArtifactRef{Kind: "draft", ID: existing.ID}, nil
		}

		body, err := s.generateBody(ctx, sg.PersonID, sg.Reasoning, string(sg.ResolutionType))
		if err != nil {
			return nil, fmt.Errorf("resolution draft: %v: %w", err, domain.ErrCollaborator)
		}

		draft, err := s.store.CreateDraft(ctx, &outreach.Draft{
			PersonID:   sg.PersonID,
			Kind:       outreach.DraftKind(sg.ResolutionType),
			Body:       body,
			SourceKind: outreach.SourceSignal,
			SourceID:   sg.ID,
		})
		if err != nil {
			return nil, err
		}
		return &outreach.ArtifactRef{Kind: "draft", ID: draft.ID}, nil

	case signal.ResolveTask:
		if existing, err := s.store.GetTaskBySource(ctx, outreach.SourceSignal, sg.ID); err == nil {
			return &outreach.ArtifactRef{Kind: "task", ID: existing.ID}, nil
		}

		title := "Follow up"
		if rc, err := s.contexts.Load(ctx, sg.PersonID); err == nil && rc.Person != nil {
			title = "Follow up with " + rc.Person.FullName()
		}
		due := time.Now().Add(followUpTaskDue)

		task, err := s.store.CreateTask(ctx, &outreach.Task{
			PersonID:   sg.PersonID,
			Title:      title,
			Notes:      sg.Reasoning,
			DueAt:      &due,
			SourceKind: outreach.SourceSignal,
			SourceID:   sg.ID,
		})
		if err != nil {
			return nil, err
		}

		// Mirror failure is tolerated: the task exists locally, the CRM
		// copy just has no external ID.
		externalID, err := s.crm.CreateTask(ctx, crm.TaskPayload{PersonID: sg.PersonID, Title: title, DueAt: &due})
		if err != nil {
			slog.Warn("crm task mirror failed", "signal_id", sg.ID, "error", err)
		} else if err := s.store.SetTaskExternalID(ctx, task.ID, externalID); err != nil {
			slog.Warn("record crm task id failed", "task_id", task.ID, "error", err)
		}

		return &outreach.ArtifactRef{Kind: "task", ID: task.ID}, nil

	default:
		return nil, nil
	}
}

// generateBody asks the scribe for message text using the person's context.
func (s *DispatchService) generateBody(ctx context.Context, personID, prompt, kind string) (string, error) {
	rc, err := s.contexts.Load(ctx, personID)
	if err != nil {
		return "", err
	}

	pc := generator.PersonContext{
		Name:    rc.Person.FullName(),
		Segment: string(rc.Person.Segment),
	}
	if len(rc.Person.FORDNotes) > 0 {
		pc.FORDNotes = string(rc.Person.FORDNotes)
	}
	if rc.Person.LastContactedAt != nil {
		pc.DaysSinceContact = int(time.Since(*rc.Person.LastContactedAt).Hours() / 24)
	}

	var ic generator.InteractionContext
	if len(rc.RecentInteractions) > 0 {
		ic.Summary = rc.RecentInteractions[0].Summary
		ic.Content = rc.RecentInteractions[0].Content
	}
	if prompt != "" {
		if ic.Summary == "" {
			ic.Summary = prompt
		} else {
			ic.Summary = prompt + "; " + ic.Summary
		}
	}

	return s.gen.Generate(ctx, pc, ic, kind)
}

// notifyExecuted fans the execution out to the hub and queue. Both are
// notification channels; failure is logged and tolerated.
func (s *DispatchService) notifyExecuted(ctx context.Context, a *action.AgentAction, artifact *outreach.ArtifactRef) {
	wsEvent := ws.ActionExecutedEvent{ActionID: a.ID, ActionType: a.ActionType}
	mqPayload := messagequeue.ActionPayload{
		ActionID:   a.ID,
		AgentName:  a.AgentName,
		ActionType: a.ActionType,
		RiskLevel:  string(a.RiskLevel),
		Status:     string(action.StatusExecuted),
	}
	if artifact != nil {
		wsEvent.Artifact = artifact.Kind
		wsEvent.ArtifactID = artifact.ID
	}

	if s.hub != nil {
		s.hub.BroadcastEvent(ctx, ws.EventActionExecuted, wsEvent)
	}
	if s.queue != nil {
		data, err := json.Marshal(mqPayload)
		if err == nil {
			if err := s.queue.Publish(ctx, messagequeue.SubjectActionExecuted, data); err != nil {
				slog.Warn("publish action executed failed", "action_id", a.ID, "error", err)
			}
		}
	}
}
