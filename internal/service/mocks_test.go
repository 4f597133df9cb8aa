package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rainmakerhq/rainmaker/internal/agent"
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
	"github.com/rainmakerhq/rainmaker/internal/port/messagequeue"
)

// mockStore is an in-memory database.Store that reproduces the conditional
// update semantics of the SQL implementation, so state-machine tests exercise
// the same transitions the real store enforces.
type mockStore struct {
	mu sync.Mutex

	seq          int
	actions      map[string]*action.AgentAction
	signals      map[string]*signal.FollowUpSignal
	people       map[string]*person.Person
	interactions []interaction.Interaction
	drafts       map[string]*outreach.Draft
	tasks        map[string]*outreach.Task
	openDeals    map[string]int
}

func newMockStore() *mockStore {
	return &mockStore{
		actions:   make(map[string]*action.AgentAction),
		signals:   make(map[string]*signal.FollowUpSignal),
		people:    make(map[string]*person.Person),
		drafts:    make(map[string]*outreach.Draft),
		tasks:     make(map[string]*outreach.Task),
		openDeals: make(map[string]int),
	}
}

var _ database.Store = (*mockStore)(nil)

func (m *mockStore) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq)
}

func sourceKey(kind outreach.SourceKind, sourceID string) string {
	return string(kind) + ":" + sourceID
}

// --- actions ---

func (m *mockStore) CreateAction(_ context.Context, a *action.AgentAction) (*action.AgentAction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := *a
	stored.ID = m.nextID("act")
	stored.CreatedAt = time.Now()
	m.actions[stored.ID] = &stored

	out := stored
	return &out, nil
}

func (m *mockStore) GetAction(_ context.Context, id string) (*action.AgentAction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.actions[id]
	if !ok {
		return nil, fmt.Errorf("get action %s: %w", id, domain.ErrNotFound)
	}
	out := *a
	return &out, nil
}

func (m *mockStore) ListActions(_ context.Context, _ int) ([]action.AgentAction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []action.AgentAction
	for _, a := range m.actions {
		out = append(out, *a)
	}
	return out, nil
}

func (m *mockStore) ListPendingActions(_ context.Context) ([]action.AgentAction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []action.AgentAction
	for _, a := range m.actions {
		if a.Status == action.StatusProposed {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *mockStore) CountPendingActions(ctx context.Context) (int, error) {
	pending, err := m.ListPendingActions(ctx)
	return len(pending), err
}

func (m *mockStore) DecideAction(_ context.Context, id string, to action.Status, decidedBy string) (*action.AgentAction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.actions[id]
	if !ok {
		return nil, fmt.Errorf("decide action %s: %w", id, domain.ErrNotFound)
	}
	if a.Status != action.StatusProposed {
		return nil, fmt.Errorf("decide action %s in status %s: %w", id, a.Status, domain.ErrInvalidState)
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
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.actions[id]
	if !ok {
		return fmt.Errorf("mark executed %s: %w", id, domain.ErrNotFound)
	}
	if a.Status != action.StatusApproved {
		return fmt.Errorf("mark executed %s in status %s: %w", id, a.Status, domain.ErrInvalidState)
	}
	now := time.Now()
	a.Status = action.StatusExecuted
	a.ExecutedAt = &now
	return nil
}

func (m *mockStore) MarkActionFailed(_ context.Context, id, errorMessage string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.actions[id]
	if !ok {
		return fmt.Errorf("mark failed %s: %w", id, domain.ErrNotFound)
	}
	if a.Status != action.StatusApproved {
		return fmt.Errorf("mark failed %s in status %s: %w", id, a.Status, domain.ErrInvalidState)
	}
	a.Status = action.StatusFailed
	a.ErrorMessage = errorMessage
	return nil
}

// --- signals ---

func (m *mockStore) CreateSignal(_ context.Context, req signal.CreateRequest) (*signal.FollowUpSignal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sg := &signal.FollowUpSignal{
		ID:            m.nextID("sig"),
		PersonID:      req.PersonID,
		InteractionID: req.InteractionID,
		Reasoning:     req.Reasoning,
		PriorityScore: req.PriorityScore,
		Status:        signal.StatusPending,
		ExpiresAt:     req.ExpiresAt,
		CreatedAt:     time.Now(),
	}
	m.signals[sg.ID] = sg

	out := *sg
	return &out, nil
}

func (m *mockStore) GetSignal(_ context.Context, id string) (*signal.FollowUpSignal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sg, ok := m.signals[id]
	if !ok {
		return nil, fmt.Errorf("get signal %s: %w", id, domain.ErrNotFound)
	}
	out := *sg
	return &out, nil
}

func (m *mockStore) ListSignals(_ context.Context, _ int) ([]database.SignalWithPerson, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []database.SignalWithPerson
	for _, sg := range m.signals {
		if sg.Status != signal.StatusPending {
			continue
		}
		swp := database.SignalWithPerson{Signal: *sg}
		if p, ok := m.people[sg.PersonID]; ok {
			swp.Person = person.Summary{ID: p.ID, Name: p.FullName(), Segment: p.Segment, LastContactedAt: p.LastContactedAt}
		}
		out = append(out, swp)
	}
	return out, nil
}

func (m *mockStore) ResolveSignal(_ context.Context, id string, rt signal.ResolutionType, now time.Time) (*signal.FollowUpSignal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sg, ok := m.signals[id]
	if !ok {
		return nil, fmt.Errorf("resolve signal %s: %w", id, domain.ErrNotFound)
	}
	if sg.Status == signal.StatusExpired || (sg.Status == signal.StatusPending && !sg.ExpiresAt.After(now)) {
		return nil, fmt.Errorf("resolve signal %s: %w", id, domain.ErrAlreadyExpired)
	}
	if sg.Status != signal.StatusPending {
		return nil, fmt.Errorf("resolve signal %s in status %s: %w", id, sg.Status, domain.ErrInvalidState)
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
	m.mu.Lock()
	defer m.mu.Unlock()

	sg, ok := m.signals[id]
	if !ok {
		return nil, fmt.Errorf("undo signal %s: %w", id, domain.ErrNotFound)
	}
	if !sg.UndoableAt(now) {
		return nil, fmt.Errorf("undo signal %s: %w", id, domain.ErrUndoNotAvailable)
	}
	sg.Status = signal.StatusPending
	sg.ResolutionType = ""
	sg.ResolvedAt = nil

	out := *sg
	return &out, nil
}

func (m *mockStore) ExpireSignals(_ context.Context, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, sg := range m.signals {
		if sg.Status == signal.StatusPending && !sg.ExpiresAt.After(now) {
			sg.Status = signal.StatusExpired
			n++
		}
	}
	return n, nil
}

// --- people / interactions ---

func (m *mockStore) GetPerson(_ context.Context, id string) (*person.Person, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.people[id]
	if !ok {
		return nil, fmt.Errorf("get person %s: %w", id, domain.ErrNotFound)
	}
	out := *p
	return &out, nil
}

func (m *mockStore) CreateInteraction(_ context.Context, req interaction.LogRequest) (*interaction.Interaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	occurred := time.Now()
	if req.OccurredAt != nil {
		occurred = *req.OccurredAt
	}
	in := interaction.Interaction{
		ID:         m.nextID("int"),
		PersonID:   req.PersonID,
		Source:     req.Source,
		Summary:    req.Summary,
		Content:    req.Content,
		OccurredAt: occurred,
		CreatedAt:  time.Now(),
	}
	m.interactions = append(m.interactions, in)
	return &in, nil
}

func (m *mockStore) ListRecentInteractions(_ context.Context, personID string, _ int) ([]interaction.Interaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []interaction.Interaction
	for i := len(m.interactions) - 1; i >= 0; i-- {
		if m.interactions[i].PersonID == personID {
			out = append(out, m.interactions[i])
		}
	}
	return out, nil
}

func (m *mockStore) CountOpenDeals(_ context.Context, personID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.openDeals[personID], nil
}

// --- outreach artifacts ---

func (m *mockStore) CreateDraft(_ context.Context, d *outreach.Draft) (*outreach.Draft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := sourceKey(d.SourceKind, d.SourceID)
	if _, exists := m.drafts[key]; exists {
		return nil, fmt.Errorf("create draft: unique constraint")
	}
	stored := *d
	stored.ID = m.nextID("draft")
	stored.CreatedAt = time.Now()
	m.drafts[key] = &stored

	out := stored
	return &out, nil
}

func (m *mockStore) GetDraftBySource(_ context.Context, kind outreach.SourceKind, sourceID string) (*outreach.Draft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.drafts[sourceKey(kind, sourceID)]
	if !ok {
		return nil, fmt.Errorf("get draft for %s %s: %w", kind, sourceID, domain.ErrNotFound)
	}
	out := *d
	return &out, nil
}

func (m *mockStore) DeleteDraftBySource(_ context.Context, kind outreach.SourceKind, sourceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.drafts, sourceKey(kind, sourceID))
	return nil
}

func (m *mockStore) CreateTask(_ context.Context, t *outreach.Task) (*outreach.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := sourceKey(t.SourceKind, t.SourceID)
	if _, exists := m.tasks[key]; exists {
		return nil, fmt.Errorf("create task: unique constraint")
	}
	stored := *t
	stored.ID = m.nextID("task")
	stored.CreatedAt = time.Now()
	m.tasks[key] = &stored

	out := stored
	return &out, nil
}

func (m *mockStore) GetTaskBySource(_ context.Context, kind outreach.SourceKind, sourceID string) (*outreach.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tasks[sourceKey(kind, sourceID)]
	if !ok {
		return nil, fmt.Errorf("get task for %s %s: %w", kind, sourceID, domain.ErrNotFound)
	}
	out := *t
	return &out, nil
}

func (m *mockStore) SetTaskExternalID(_ context.Context, id, externalID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, t := range m.tasks {
		if t.ID == id {
			t.ExternalID = externalID
			return nil
		}
	}
	return fmt.Errorf("set task %s external id: %w", id, domain.ErrNotFound)
}

// taskByID returns the stored task for assertions.
func (m *mockStore) taskByID(id string) *outreach.Task {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, t := range m.tasks {
		if t.ID == id {
			out := *t
			return &out
		}
	}
	return nil
}

// mockEventStore is an in-memory eventlog.Store.
type mockEventStore struct {
	mu     sync.Mutex
	seq    int
	events map[string]*event.SystemEvent
	order  []string
}

func newMockEventStore() *mockEventStore {
	return &mockEventStore{events: make(map[string]*event.SystemEvent)}
}

func (m *mockEventStore) Append(_ context.Context, req event.AppendRequest) (*event.SystemEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	ev := &event.SystemEvent{
		ID:             fmt.Sprintf("evt-%d", m.seq),
		Type:           req.Type,
		Category:       req.Category,
		SubjectPerson:  req.SubjectPerson,
		SubjectDeal:    req.SubjectDeal,
		SourceEntity:   req.SourceEntity,
		SourceEntityID: req.SourceEntityID,
		Payload:        req.Payload,
		Metadata:       req.Metadata,
		ProcessedBy:    []string{},
		CreatedAt:      time.Now(),
	}
	m.events[ev.ID] = ev
	m.order = append(m.order, ev.ID)

	out := *ev
	return &out, nil
}

func (m *mockEventStore) Get(_ context.Context, id string) (*event.SystemEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ev, ok := m.events[id]
	if !ok {
		return nil, fmt.Errorf("get event %s: %w", id, domain.ErrNotFound)
	}
	out := *ev
	return &out, nil
}

func (m *mockEventStore) List(_ context.Context, category event.Category, _ int) ([]event.SystemEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []event.SystemEvent
	for i := len(m.order) - 1; i >= 0; i-- {
		ev := m.events[m.order[i]]
		if category != "" && ev.Category != category {
			continue
		}
		out = append(out, *ev)
	}
	return out, nil
}

func (m *mockEventStore) ListUnprocessed(_ context.Context, category event.Category, registered []string, _ int) ([]event.SystemEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []event.SystemEvent
	for _, id := range m.order {
		ev := m.events[id]
		if ev.FullyProcessed(registered) {
			continue
		}
		if category != "" && ev.Category != category {
			continue
		}
		out = append(out, *ev)
	}
	return out, nil
}

func (m *mockEventStore) MarkProcessed(_ context.Context, id, agentName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ev, ok := m.events[id]
	if !ok {
		return fmt.Errorf("mark event %s processed: %w", id, domain.ErrNotFound)
	}
	if ev.ProcessedByAgent(agentName) {
		return nil
	}
	ev.ProcessedBy = append(ev.ProcessedBy, agentName)
	if ev.ProcessedAt == nil {
		now := time.Now()
		ev.ProcessedAt = &now
	}
	return nil
}

func (m *mockEventStore) Stats(_ context.Context) (*event.Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

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

// mockQueue implements messagequeue.Queue for testing.
type mockQueue struct {
	mu        sync.Mutex
	published []struct {
		subject string
		data    []byte
	}
	publishErr error
}

func (q *mockQueue) Publish(_ context.Context, subject string, data []byte) error {
	if q.publishErr != nil {
		return q.publishErr
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.published = append(q.published, struct {
		subject string
		data    []byte
	}{subject, data})
	return nil
}

func (q *mockQueue) Subscribe(_ context.Context, _ string, _ messagequeue.Handler) (func(), error) {
	return func() {}, nil
}

func (q *mockQueue) Close() error      { return nil }
func (q *mockQueue) IsConnected() bool { return true }

func (q *mockQueue) subjects() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]string, len(q.published))
	for i, p := range q.published {
		out[i] = p.subject
	}
	return out
}

// mockGenerator implements generator.Generator.
type mockGenerator struct {
	mu    sync.Mutex
	text  string
	err   error
	calls int
}

func (g *mockGenerator) Generate(_ context.Context, _ generator.PersonContext, _ generator.InteractionContext, _ string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.err != nil {
		return "", g.err
	}
	if g.text == "" {
		return "generated text", nil
	}
	return g.text, nil
}

// mockSyncer implements crm.Syncer.
type mockSyncer struct {
	mu      sync.Mutex
	noteErr error
	taskErr error
	notes   []crm.NotePayload
	tasks   []crm.TaskPayload
}

func (s *mockSyncer) CreateNote(_ context.Context, p crm.NotePayload) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.noteErr != nil {
		return "", s.noteErr
	}
	s.notes = append(s.notes, p)
	return fmt.Sprintf("crm-note-%d", len(s.notes)), nil
}

func (s *mockSyncer) CreateTask(_ context.Context, p crm.TaskPayload) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.taskErr != nil {
		return "", s.taskErr
	}
	s.tasks = append(s.tasks, p)
	return fmt.Sprintf("crm-task-%d", len(s.tasks)), nil
}

// env bundles the mock ports and the dispatcher most service tests need.
type env struct {
	store      *mockStore
	events     *mockEventStore
	gen        *mockGenerator
	crm        *mockSyncer
	queue      *mockQueue
	contexts   *ContextProvider
	dispatcher *DispatchService
}

func newEnv() *env {
	store := newMockStore()
	events := newMockEventStore()
	gen := &mockGenerator{}
	syncer := &mockSyncer{}
	contexts := NewContextProvider(store, nil, 0)
	return &env{
		store:      store,
		events:     events,
		gen:        gen,
		crm:        syncer,
		queue:      &mockQueue{},
		contexts:   contexts,
		dispatcher: NewDispatchService(store, events, gen, syncer, contexts),
	}
}

func (e *env) addPerson(id string, seg person.Segment, lastContactedAt *time.Time) *person.Person {
	return seedPerson(e.store, id, seg, lastContactedAt)
}

func seedPerson(store *mockStore, id string, seg person.Segment, lastContactedAt *time.Time) *person.Person {
	p := &person.Person{
		ID:              id,
		FirstName:       "Dana",
		LastName:        "Reeve",
		Segment:         seg,
		LastContactedAt: lastContactedAt,
		CreatedAt:       time.Now(),
	}
	store.people[id] = p
	return p
}

func (e *env) pipeline(agents ...agent.Agent) *PipelineService {
	return NewPipelineService(e.events, e.store, agent.NewRegistry(agents...), e.contexts, e.dispatcher, 2)
}

func daysAgo(n int) *time.Time {
	t := time.Now().Add(-time.Duration(n) * 24 * time.Hour)
	return &t
}

// onlyAction asserts the store holds exactly one action and returns it.
func (m *mockStore) onlyAction(t *testing.T) *action.AgentAction {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.actions) != 1 {
		t.Fatalf("expected exactly 1 action, got %d", len(m.actions))
	}
	for _, a := range m.actions {
		out := *a
		return &out
	}
	return nil
}

// testAgent is a scripted agent for pipeline tests.
type testAgent struct {
	name     string
	category event.Category
	drafts   []action.Draft
	err      error
	panics   bool
}

func (a *testAgent) Name() string { return a.name }

func (a *testAgent) InterestedIn(ev *event.SystemEvent) bool {
	return a.category == "" || ev.Category == a.category
}

func (a *testAgent) Propose(_ context.Context, _ *event.SystemEvent, _ *agent.Context) ([]action.Draft, error) {
	if a.panics {
		panic("scripted panic")
	}
	if a.err != nil {
		return nil, a.err
	}
	return a.drafts, nil
}
