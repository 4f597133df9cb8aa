package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	rmhttp "github.com/rainmakerhq/rainmaker/internal/adapter/http"
	"github.com/rainmakerhq/rainmaker/internal/agent"
	"github.com/rainmakerhq/rainmaker/internal/config"
	"github.com/rainmakerhq/rainmaker/internal/domain"
	"github.com/rainmakerhq/rainmaker/internal/domain/action"
	"github.com/rainmakerhq/rainmaker/internal/domain/event"
	"github.com/rainmakerhq/rainmaker/internal/domain/interaction"
	"github.com/rainmakerhq/rainmaker/internal/domain/outreach"
	"github.com/rainmakerhq/rainmaker/internal/domain/person"
	"github.com/rainmakerhq/rainmaker/internal/domain/signal"
	"github.com/rainmakerhq/rainmaker/internal/port/crm"
	"github.com/rainmakerhq/rainmaker/internal/port/database"
	"github.com/rainmakerhq/rainmaker/internal/port/generator"
	"github.com/rainmakerhq/rainmaker/internal/service"
)

// mockStore implements database.Store for handler tests.
type mockStore struct {
	seq     int
	actions map[string]*action.AgentAction
	signals map[string]*signal.FollowUpSignal
	people  map[string]*person.Person
	drafts  map[string]*outreach.Draft
	tasks   map[string]*outreach.Task
}

func newMockStore() *mockStore {
	return &mockStore{
		actions: make(map[string]*action.AgentAction),
		signals: make(map[string]*signal.FollowUpSignal),
		people:  make(map[string]*person.Person),
		drafts:  make(map[string]*outreach.Draft),
		tasks:   make(map[string]*outreach.Task),
	}
}

func (m *mockStore) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq)
}

func (m *mockStore) CreateAction(_ context.Context, a *action.AgentAction) (*action.AgentAction, error) {
	stored := *a
	stored.ID = m.nextID("act")
	m.actions[stored.ID] = &stored
	out := stored
	return &out, nil
}

func (m *mockStore) GetAction(_ context.Context, id string) (*action.AgentAction, error) {
	a, ok := m.actions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := *a
	return &out, nil
}

func (m *mockStore) ListActions(_ context.Context, _ int) ([]action.AgentAction, error) {
	var out []action.AgentAction
	for _, a := range m.actions {
		out = append(out, *a)
	}
	return out, nil
}

func (m *mockStore) ListPendingActions(_ context.Context) ([]action.AgentAction, error) {
	var out []action.AgentAction
	for _, a := range m.actions {
		if a.Status == action.StatusProposed {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *mockStore) CountPendingActions(ctx context.Context) (int, error) {
	pending, _ := m.ListPendingActions(ctx)
	return len(pending), nil
}

func (m *mockStore) DecideAction(_ context.Context, id string, to action.Status, decidedBy string) (*action.AgentAction, error) {
	a, ok := m.actions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if a.Status != action.StatusProposed {
		return nil, fmt.Errorf("in status %s: %w", a.Status, domain.ErrInvalidState)
	}
	a.Status = to
	if to == action.StatusApproved {
		now := time.Now()
		a.ApprovedBy = decidedBy
		a.ApprovedAt = &now
	}
	out := *a
	return &out, nil
}

func (m *mockStore) MarkActionExecuted(_ context.Context, id string) error {
	a, ok := m.actions[id]
	if !ok {
		return domain.ErrNotFound
	}
	now := time.Now()
	a.Status = action.StatusExecuted
	a.ExecutedAt = &now
	return nil
}

func (m *mockStore) MarkActionFailed(_ context.Context, id, msg string) error {
	a, ok := m.actions[id]
	if !ok {
		return domain.ErrNotFound
	}
	a.Status = action.StatusFailed
	a.ErrorMessage = msg
	return nil
}

func (m *mockStore) CreateSignal(_ context.Context, req signal.CreateRequest) (*signal.FollowUpSignal, error) {
	sg := &signal.FollowUpSignal{
		ID:            m.nextID("sig"),
		PersonID:      req.PersonID,
		Reasoning:     req.Reasoning,
		PriorityScore: req.PriorityScore,
		Status:        signal.StatusPending,
		ExpiresAt:     req.ExpiresAt,
	}
	m.signals[sg.ID] = sg
	out := *sg
	return &out, nil
}

func (m *mockStore) GetSignal(_ context.Context, id string) (*signal.FollowUpSignal, error) {
	sg, ok := m.signals[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := *sg
	return &out, nil
}

func (m *mockStore) ListSignals(_ context.Context, _ int) ([]database.SignalWithPerson, error) {
	var out []database.SignalWithPerson
	for _, sg := range m.signals {
		if sg.Status == signal.StatusPending {
			out = append(out, database.SignalWithPerson{Signal: *sg})
		}
	}
	return out, nil
}

func (m *mockStore) ResolveSignal(_ context.Context, id string, rt signal.ResolutionType, now time.Time) (*signal.FollowUpSignal, error) {
	sg, ok := m.signals[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if sg.Status == signal.StatusExpired || (sg.Status == signal.StatusPending && !sg.ExpiresAt.After(now)) {
		return nil, domain.ErrAlreadyExpired
	}
	if sg.Status != signal.StatusPending {
		return nil, domain.ErrInvalidState
	}
	sg.Status = signal.StatusResolved
	if rt == signal.ResolveSkip {
		sg.Status = signal.StatusSkipped
	}
	sg.ResolutionType = rt
	resolvedAt := now
	sg.ResolvedAt = &resolvedAt
	out := *sg
	return &out, nil
}

func (m *mockStore) UndoSignal(_ context.Context, id string, now time.Time) (*signal.FollowUpSignal, error) {
	sg, ok := m.signals[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if !sg.UndoableAt(now) {
		return nil, domain.ErrUndoNotAvailable
	}
	sg.Status = signal.StatusPending
	sg.ResolutionType = ""
	sg.ResolvedAt = nil
	out := *sg
	return &out, nil
}

func (m *mockStore) ExpireSignals(_ context.Context, now time.Time) (int, error) {
	n := 0
	for _, sg := range m.signals {
		if sg.Status == signal.StatusPending && !sg.ExpiresAt.After(now) {
			sg.Status = signal.StatusExpired
			n++
		}
	}
	return n, nil
}

func (m *mockStore) GetPerson(_ context.Context, id string) (*person.Person, error) {
	p, ok := m.people[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := *p
	return &out, nil
}

func (m *mockStore) CreateInteraction(_ context.Context, req interaction.LogRequest) (*interaction.Interaction, error) {
	return &interaction.Interaction{
		ID:       m.nextID("int"),
		PersonID: req.PersonID,
		Source:   req.Source,
		Summary:  req.Summary,
		Content:  req.Content,
	}, nil
}

func (m *mockStore) ListRecentInteractions(_ context.Context, _ string, _ int) ([]interaction.Interaction, error) {
	return nil, nil
}

func (m *mockStore) CountOpenDeals(_ context.Context, _ string) (int, error) { return 0, nil }

func (m *mockStore) CreateDraft(_ context.Context, d *outreach.Draft) (*outreach.Draft, error) {
	stored := *d
	stored.ID = m.nextID("draft")
	m.drafts[string(d.SourceKind)+":"+d.SourceID] = &stored
	out := stored
	return &out, nil
}

func (m *mockStore) GetDraftBySource(_ context.Context, kind outreach.SourceKind, sourceID string) (*outreach.Draft, error) {
	d, ok := m.drafts[string(kind)+":"+sourceID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := *d
	return &out, nil
}

func (m *mockStore) DeleteDraftBySource(_ context.Context, kind outreach.SourceKind, sourceID string) error {
	delete(m.drafts, string(kind)+":"+sourceID)
	return nil
}

func (m *mockStore) CreateTask(_ context.Context, t *outreach.Task) (*outreach.Task, error) {
	stored := *t
	stored.ID = m.nextID("task")
	m.tasks[string(t.SourceKind)+":"+t.SourceID] = &stored
	out := stored
	return &out, nil
}

func (m *mockStore) GetTaskBySource(_ context.Context, kind outreach.SourceKind, sourceID string) (*outreach.Task, error) {
	t, ok := m.tasks[string(kind)+":"+sourceID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := *t
	return &out, nil
}

func (m *mockStore) SetTaskExternalID(_ context.Context, id, externalID string) error {
	for _, t := range m.tasks {
		if t.ID == id {
			t.ExternalID = externalID
			return nil
		}
	}
	return domain.ErrNotFound
}

// mockEventStore implements eventlog.Store for handler tests.
type mockEventStore struct {
	seq    int
	events map[string]*event.SystemEvent
}

func newMockEventStore() *mockEventStore {
	return &mockEventStore{events: make(map[string]*event.SystemEvent)}
}

func (m *mockEventStore) Append(_ context.Context, req event.AppendRequest) (*event.SystemEvent, error) {
	m.seq++
	ev := &event.SystemEvent{
		ID:             fmt.Sprintf("evt-%d", m.seq),
		Type:           req.Type,
		Category:       req.Category,
		SubjectPerson:  req.SubjectPerson,
		SourceEntity:   req.SourceEntity,
		SourceEntityID: req.SourceEntityID,
		Payload:        req.Payload,
		ProcessedBy:    []string{},
		CreatedAt:      time.Now(),
	}
	m.events[ev.ID] = ev
	out := *ev
	return &out, nil
}

func (m *mockEventStore) Get(_ context.Context, id string) (*event.SystemEvent, error) {
	ev, ok := m.events[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := *ev
	return &out, nil
}

func (m *mockEventStore) List(_ context.Context, category event.Category, _ int) ([]event.SystemEvent, error) {
	var out []event.SystemEvent
	for _, ev := range m.events {
		if category == "" || ev.Category == category {
			out = append(out, *ev)
		}
	}
	return out, nil
}

func (m *mockEventStore) ListUnprocessed(_ context.Context, category event.Category, registered []string, _ int) ([]event.SystemEvent, error) {
	var out []event.SystemEvent
	for _, ev := range m.events {
		if !ev.FullyProcessed(registered) && (category == "" || ev.Category == category) {
			out = append(out, *ev)
		}
	}
	return out, nil
}

func (m *mockEventStore) MarkProcessed(_ context.Context, id, agentName string) error {
	ev, ok := m.events[id]
	if !ok {
		return domain.ErrNotFound
	}
	if !ev.ProcessedByAgent(agentName) {
		ev.ProcessedBy = append(ev.ProcessedBy, agentName)
		if ev.ProcessedAt == nil {
			now := time.Now()
			ev.ProcessedAt = &now
		}
	}
	return nil
}

func (m *mockEventStore) Stats(_ context.Context) (*event.Stats, error) {
	stats := &event.Stats{EventsByCategory: make(map[string]int)}
	for _, ev := range m.events {
		stats.TotalEvents++
		stats.EventsByCategory[string(ev.Category)]++
		if ev.ProcessedAt == nil {
			stats.UnprocessedEvents++
		}
	}
	return stats, nil
}

type mockGenerator struct{ err error }

func (g *mockGenerator) Generate(_ context.Context, _ generator.PersonContext, _ generator.InteractionContext, _ string) (string, error) {
	if g.err != nil {
		return "", g.err
	}
	return "generated text", nil
}

type mockSyncer struct{ err error }

func (s *mockSyncer) CreateNote(_ context.Context, _ crm.NotePayload) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "crm-note-1", nil
}

func (s *mockSyncer) CreateTask(_ context.Context, _ crm.TaskPayload) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "crm-task-1", nil
}

type fixture struct {
	store  *mockStore
	events *mockEventStore
	gen    *mockGenerator
	crm    *mockSyncer
	router chi.Router
}

func newFixture() *fixture {
	store := newMockStore()
	events := newMockEventStore()
	gen := &mockGenerator{}
	syncer := &mockSyncer{}

	contexts := service.NewContextProvider(store, nil, 0)
	dispatcher := service.NewDispatchService(store, events, gen, syncer, contexts)
	registry := agent.NewRegistry()
	eventLog := service.NewEventLogService(events, store, registry)
	eventLog.SetPipeline(service.NewPipelineService(events, store, registry, contexts, dispatcher, 2))
	signals := service.NewSignalService(store, dispatcher, config.Signals{
		ScoreThreshold: 45,
		Expiry:         14 * 24 * time.Hour,
	})

	h := &rmhttp.Handlers{
		EventLog:     eventLog,
		Approvals:    service.NewApprovalService(store, dispatcher),
		Signals:      signals,
		Interactions: service.NewInteractionService(store, eventLog, contexts),
		Healthy:      func() map[string]bool { return map[string]bool{"database": true} },
	}

	r := chi.NewRouter()
	rmhttp.MountRoutes(r, h)
	return &fixture{store: store, events: events, gen: gen, crm: syncer, router: r}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestAppendEvent(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodPost, "/api/v1/events", map[string]string{
		"event_type":     "lead.created",
		"event_category": "lead",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var ev event.SystemEvent
	if err := json.Unmarshal(rec.Body.Bytes(), &ev); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.ID == "" || ev.Type != event.TypeLeadCreated {
		t.Fatalf("unexpected event %+v", ev)
	}
}

func TestAppendEventValidation(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodPost, "/api/v1/events", map[string]string{"event_category": "lead"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing type, got %d", rec.Code)
	}

	rec = f.do(t, http.MethodPost, "/api/v1/events", map[string]string{
		"event_type":     "weather.changed",
		"event_category": "weather",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown category, got %d", rec.Code)
	}
}

func TestListEventsEmpty(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodGet, "/api/v1/events", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if body := rec.Body.String(); body != "[]\n" {
		t.Fatalf("expected empty array, got %q", body)
	}
}

func TestReplayEventsNothingPending(t *testing.T) {
	f := newFixture()
	f.do(t, http.MethodPost, "/api/v1/events", map[string]string{
		"event_type":     "lead.created",
		"event_category": "lead",
	})

	rec := f.do(t, http.MethodPost, "/api/v1/events/replay", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var out map[string]int
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out["replayed"] != 0 {
		t.Fatalf("no agent wants the event, expected 0 replayed, got %d", out["replayed"])
	}
}

func TestGetEventNotFound(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodGet, "/api/v1/events/missing", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestEventStats(t *testing.T) {
	f := newFixture()
	f.do(t, http.MethodPost, "/api/v1/events", map[string]string{
		"event_type":     "lead.created",
		"event_category": "lead",
	})

	rec := f.do(t, http.MethodGet, "/api/v1/events/stats", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var stats event.Stats
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stats.TotalEvents != 1 {
		t.Fatalf("expected 1 event, got %d", stats.TotalEvents)
	}
}

func seedProposedAction(f *fixture) *action.AgentAction {
	a, _ := f.store.CreateAction(context.Background(), &action.AgentAction{
		AgentName:    "nurture",
		ActionType:   "crm_sync_note",
		RiskLevel:    action.RiskMedium,
		Status:       action.StatusProposed,
		TargetPerson: "p1",
		Reasoning:    "sync the meeting notes",
	})
	return a
}

func TestApproveAction(t *testing.T) {
	f := newFixture()
	a := seedProposedAction(f)

	rec := f.do(t, http.MethodPost, "/api/v1/agent-actions/"+a.ID+"/approve", map[string]string{"decided_by": "jordan"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var out action.AgentAction
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Status != action.StatusExecuted {
		t.Fatalf("expected executed, got %s", out.Status)
	}
}

func TestApproveActionTwiceConflicts(t *testing.T) {
	f := newFixture()
	a := seedProposedAction(f)

	f.do(t, http.MethodPost, "/api/v1/agent-actions/"+a.ID+"/approve", map[string]string{"decided_by": "jordan"})
	rec := f.do(t, http.MethodPost, "/api/v1/agent-actions/"+a.ID+"/approve", map[string]string{"decided_by": "casey"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 on second decision, got %d", rec.Code)
	}
}

func TestApproveActionRequiresActor(t *testing.T) {
	f := newFixture()
	a := seedProposedAction(f)

	rec := f.do(t, http.MethodPost, "/api/v1/agent-actions/"+a.ID+"/approve", map[string]string{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestApproveActionCollaboratorFailure(t *testing.T) {
	f := newFixture()
	f.crm.err = fmt.Errorf("crm 503")
	a := seedProposedAction(f)

	rec := f.do(t, http.MethodPost, "/api/v1/agent-actions/"+a.ID+"/approve", map[string]string{"decided_by": "jordan"})
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502 for collaborator failure, got %d", rec.Code)
	}
}

func TestRejectAction(t *testing.T) {
	f := newFixture()
	a := seedProposedAction(f)

	rec := f.do(t, http.MethodPost, "/api/v1/agent-actions/"+a.ID+"/reject", map[string]string{"decided_by": "jordan"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var out action.AgentAction
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Status != action.StatusRejected {
		t.Fatalf("expected rejected, got %s", out.Status)
	}
}

func TestListPendingActionsEmpty(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodGet, "/api/v1/agent-actions/pending", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if body := rec.Body.String(); body != "[]\n" {
		t.Fatalf("expected empty array, got %q", body)
	}
}

func seedPendingSignal(f *fixture, expiresAt time.Time) *signal.FollowUpSignal {
	sg, _ := f.store.CreateSignal(context.Background(), signal.CreateRequest{
		PersonID:      "p1",
		Reasoning:     "segment A client; no recorded contact",
		PriorityScore: 65,
		ExpiresAt:     expiresAt,
	})
	return sg
}

func TestResolveSignalSkip(t *testing.T) {
	f := newFixture()
	sg := seedPendingSignal(f, time.Now().Add(time.Hour))

	rec := f.do(t, http.MethodPost, "/api/v1/signals/"+sg.ID+"/resolve", map[string]string{"resolution_type": "skip"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var out struct {
		Signal   *signal.FollowUpSignal `json:"signal"`
		Artifact *outreach.ArtifactRef  `json:"artifact"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Signal.Status != signal.StatusSkipped {
		t.Fatalf("expected skipped, got %s", out.Signal.Status)
	}
	if out.Artifact != nil {
		t.Fatalf("skip must not create an artifact, got %+v", out.Artifact)
	}
}

func TestResolveSignalTaskReturnsArtifact(t *testing.T) {
	f := newFixture()
	f.store.people["p1"] = &person.Person{ID: "p1", FirstName: "Dana", Segment: "A"}
	sg := seedPendingSignal(f, time.Now().Add(time.Hour))

	rec := f.do(t, http.MethodPost, "/api/v1/signals/"+sg.ID+"/resolve", map[string]string{"resolution_type": "task"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var out struct {
		Artifact *outreach.ArtifactRef `json:"artifact"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Artifact == nil || out.Artifact.Kind != "task" {
		t.Fatalf("expected task artifact, got %+v", out.Artifact)
	}
}

func TestResolveSignalUnknownType(t *testing.T) {
	f := newFixture()
	sg := seedPendingSignal(f, time.Now().Add(time.Hour))

	rec := f.do(t, http.MethodPost, "/api/v1/signals/"+sg.ID+"/resolve", map[string]string{"resolution_type": "carrier_pigeon"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestResolveExpiredSignalGone(t *testing.T) {
	f := newFixture()
	sg := seedPendingSignal(f, time.Now().Add(-time.Minute))

	rec := f.do(t, http.MethodPost, "/api/v1/signals/"+sg.ID+"/resolve", map[string]string{"resolution_type": "skip"})
	if rec.Code != http.StatusGone {
		t.Fatalf("expected 410 for expired signal, got %d", rec.Code)
	}
}

func TestUndoSignal(t *testing.T) {
	f := newFixture()
	sg := seedPendingSignal(f, time.Now().Add(time.Hour))
	f.do(t, http.MethodPost, "/api/v1/signals/"+sg.ID+"/resolve", map[string]string{"resolution_type": "skip"})

	rec := f.do(t, http.MethodPost, "/api/v1/signals/"+sg.ID+"/undo", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var out signal.FollowUpSignal
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Status != signal.StatusPending {
		t.Fatalf("expected pending after undo, got %s", out.Status)
	}
}

func TestUndoSignalOutsideWindowGone(t *testing.T) {
	f := newFixture()
	sg := seedPendingSignal(f, time.Now().Add(time.Hour))
	resolvedAt := time.Now().Add(-time.Minute)
	f.store.signals[sg.ID].Status = signal.StatusSkipped
	f.store.signals[sg.ID].ResolutionType = signal.ResolveSkip
	f.store.signals[sg.ID].ResolvedAt = &resolvedAt

	rec := f.do(t, http.MethodPost, "/api/v1/signals/"+sg.ID+"/undo", nil)
	if rec.Code != http.StatusGone {
		t.Fatalf("expected 410 outside the undo window, got %d", rec.Code)
	}
}

func TestLogInteraction(t *testing.T) {
	f := newFixture()
	f.store.people["p1"] = &person.Person{ID: "p1", FirstName: "Dana", Segment: "A"}

	rec := f.do(t, http.MethodPost, "/api/v1/interactions", map[string]string{
		"person_id": "p1",
		"summary":   "Coffee catch-up",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var out struct {
		Interaction *interaction.Interaction `json:"interaction"`
		EventID     string                   `json:"event_id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.EventID == "" || out.Interaction == nil {
		t.Fatalf("unexpected response %+v", out)
	}
	if out.Interaction.Source != interaction.SourceManual {
		t.Fatalf("expected source defaulted to manual, got %s", out.Interaction.Source)
	}
}

func TestLogInteractionUnknownPerson(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodPost, "/api/v1/interactions", map[string]string{
		"person_id": "ghost",
		"summary":   "hi",
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodGet, "/api/v1/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out["status"] != "ok" {
		t.Fatalf("unexpected health body %v", out)
	}
}
