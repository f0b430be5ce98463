package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/masdar-tech/be-ideas-workflow/internal/apperrors"
	"github.com/masdar-tech/be-ideas-workflow/internal/repository"
)

// In-memory fakes mirroring the repository guarantees: guarded stage changes,
// append-only transitions, staleness filtering, the weight cap.

type fakeStore struct {
	mu          sync.Mutex
	seq         int
	requests    map[string]*repository.Request
	transitions []*repository.Transition
	now         func() time.Time
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		requests: make(map[string]*repository.Request),
		now:      time.Now,
	}
}

func (f *fakeStore) Create(ctx context.Context, req *repository.Request) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.seq++
	req.ID = fmt.Sprintf("req-%d", f.seq)
	req.CurrentStageStartedAt = f.now()
	req.CreatedAt = f.now()
	req.UpdatedAt = f.now()

	stored := *req
	f.requests[req.ID] = &stored
	return nil
}

func (f *fakeStore) GetByID(ctx context.Context, id string) (*repository.Request, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	req, ok := f.requests[id]
	if !ok {
		return nil, apperrors.NotFound("request", id)
	}
	clone := *req
	return &clone, nil
}

func (f *fakeStore) UpdateDraft(ctx context.Context, req *repository.Request, ownerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	stored, ok := f.requests[req.ID]
	if !ok || stored.OwnerUserID != ownerID {
		return apperrors.NotFound("request", req.ID)
	}
	if stored.Status != repository.StatusDraft && stored.Status != repository.StatusNeedMoreDetails {
		return apperrors.NotFound("request", req.ID)
	}

	stored.Title = req.Title
	stored.Description = req.Description
	stored.Benefits = req.Benefits
	stored.IdeaTypes = req.IdeaTypes
	stored.OriginatingDepartmentID = req.OriginatingDepartmentID
	stored.UpdatedAt = f.now()
	return nil
}

func (f *fakeStore) SoftDeleteDraft(ctx context.Context, id, ownerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	stored, ok := f.requests[id]
	if !ok || stored.OwnerUserID != ownerID || stored.Status != repository.StatusDraft {
		return apperrors.NotFound("request", id)
	}
	delete(f.requests, id)
	return nil
}

func (f *fakeStore) ApplyStageChange(ctx context.Context, change *repository.StageChange) (*repository.Request, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	req, ok := f.requests[change.RequestID]
	if !ok || req.Status != change.ExpectStatus {
		return nil, apperrors.NotFound("request", change.RequestID)
	}
	if change.GuardAssignee && !ptrEqual(req.CurrentUserID, change.ExpectUserID) {
		return nil, apperrors.NotFound("request", change.RequestID)
	}

	req.Status = change.Status
	req.CurrentDepartmentID = change.DepartmentID
	req.CurrentUserID = change.UserID
	if change.SetPathID != nil {
		req.WorkflowPathID = change.SetPathID
	}
	if change.SetSubmittedAt != nil {
		req.SubmittedAt = change.SetSubmittedAt
	}
	if change.SetCompletedAt != nil {
		req.CompletedAt = change.SetCompletedAt
	}
	if change.SetRejectionReason != nil {
		req.RejectionReason = change.SetRejectionReason
	}
	req.CurrentStageStartedAt = f.now()
	req.SLAReminderSentAt = nil
	req.UpdatedAt = f.now()

	t := change.Transition
	t.ID = fmt.Sprintf("tr-%d", len(f.transitions)+1)
	t.CreatedAt = f.now()
	f.transitions = append(f.transitions, t)

	clone := *req
	return &clone, nil
}

func (f *fakeStore) FindStale(ctx context.Context, q repository.StaleQuery) ([]*repository.Request, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	statuses := make(map[repository.Status]bool, len(q.Statuses))
	for _, s := range q.Statuses {
		statuses[s] = true
	}

	var stale []*repository.Request
	for _, req := range f.requests {
		if !statuses[req.Status] {
			continue
		}
		if req.CurrentStageStartedAt.After(q.Cutoff) {
			continue
		}
		if req.SLAReminderSentAt != nil && req.SLAReminderSentAt.After(q.Cutoff) {
			continue
		}
		if q.DepartmentID != nil && (req.CurrentDepartmentID == nil || *req.CurrentDepartmentID != *q.DepartmentID) {
			continue
		}
		if q.RequirePath && req.WorkflowPathID == nil {
			continue
		}
		switch q.Assignee {
		case repository.AssigneeNone:
			if req.CurrentUserID != nil {
				continue
			}
		case repository.AssigneeSet:
			if req.CurrentUserID == nil {
				continue
			}
		}
		clone := *req
		stale = append(stale, &clone)
	}
	sort.Slice(stale, func(i, j int) bool {
		return stale[i].CurrentStageStartedAt.Before(stale[j].CurrentStageStartedAt)
	})
	return stale, nil
}

func (f *fakeStore) StampReminder(ctx context.Context, id string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if req, ok := f.requests[id]; ok {
		stamped := at
		req.SLAReminderSentAt = &stamped
	}
	return nil
}

func (f *fakeStore) ListByRequest(ctx context.Context, requestID string) ([]*repository.Transition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*repository.Transition
	for _, t := range f.transitions {
		if t.RequestID == requestID {
			clone := *t
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (f *fakeStore) LatestReturnSource(ctx context.Context, requestID, intakeDepartmentID string) (*string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i := len(f.transitions) - 1; i >= 0; i-- {
		t := f.transitions[i]
		if t.RequestID != requestID || t.Action != repository.ActionComplete {
			continue
		}
		if t.ToDepartmentID == nil || *t.ToDepartmentID != intakeDepartmentID {
			continue
		}
		if t.FromDepartmentID == nil {
			continue
		}
		src := *t.FromDepartmentID
		return &src, nil
	}
	return nil, nil
}

// mustGet is a test helper for direct state inspection.
func (f *fakeStore) mustGet(id string) *repository.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[id]
}

func ptrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// ── Departments ──────────────────────────────────────────────────────────────

type fakeDepartments struct {
	departments map[string]*repository.Department
	members     map[string]map[string]repository.Role
	intakeID    string
}

func newFakeDepartments() *fakeDepartments {
	return &fakeDepartments{
		departments: make(map[string]*repository.Department),
		members:     make(map[string]map[string]repository.Role),
	}
}

func (f *fakeDepartments) add(id, name string, intake bool) {
	f.departments[id] = &repository.Department{ID: id, Name: name, Code: id, IsActive: true, IsIntake: intake}
	if intake {
		f.intakeID = id
	}
}

func (f *fakeDepartments) addMember(departmentID, userID string, role repository.Role) {
	if f.members[departmentID] == nil {
		f.members[departmentID] = make(map[string]repository.Role)
	}
	f.members[departmentID][userID] = role
}

func (f *fakeDepartments) GetByID(ctx context.Context, id string) (*repository.Department, error) {
	d, ok := f.departments[id]
	if !ok {
		return nil, apperrors.NotFound("department", id)
	}
	return d, nil
}

func (f *fakeDepartments) IntakeDepartment(ctx context.Context) (*repository.Department, error) {
	if f.intakeID == "" {
		return nil, apperrors.New(apperrors.CodeInvariant, "no intake department is configured")
	}
	return f.departments[f.intakeID], nil
}

func (f *fakeDepartments) IsMember(ctx context.Context, departmentID, userID string, role repository.Role) (bool, error) {
	return f.members[departmentID][userID] == role, nil
}

func (f *fakeDepartments) Managers(ctx context.Context, departmentID string) ([]string, error) {
	var managers []string
	for userID, role := range f.members[departmentID] {
		if role == repository.RoleManager {
			managers = append(managers, userID)
		}
	}
	sort.Strings(managers)
	return managers, nil
}

// ── Paths ────────────────────────────────────────────────────────────────────

type fakePaths struct {
	paths map[string]*repository.WorkflowPath
}

func newFakePaths() *fakePaths {
	return &fakePaths{paths: make(map[string]*repository.WorkflowPath)}
}

func (f *fakePaths) add(id, name string, departmentIDs ...string) {
	path := &repository.WorkflowPath{ID: id, Name: name, IsActive: true}
	for i, deptID := range departmentIDs {
		path.Steps = append(path.Steps, &repository.WorkflowPathStep{
			ID:           fmt.Sprintf("%s-step-%d", id, i+1),
			PathID:       id,
			DepartmentID: deptID,
			StepOrder:    i + 1,
		})
	}
	f.paths[id] = path
}

func (f *fakePaths) GetByID(ctx context.Context, id string) (*repository.WorkflowPath, error) {
	p, ok := f.paths[id]
	if !ok {
		return nil, apperrors.NotFound("workflow_path", id)
	}
	return p, nil
}

// ── Evaluations ──────────────────────────────────────────────────────────────

type fakeEvaluations struct {
	seq           int
	questions     map[string]*repository.EvaluationQuestion
	evaluations   map[string][]*repository.RequestEvaluation
	pathQuestions map[string][]*repository.PathEvaluationQuestion
	pathEvals     map[string]map[string]*repository.PathEvaluation
}

func newFakeEvaluations() *fakeEvaluations {
	return &fakeEvaluations{
		questions:     make(map[string]*repository.EvaluationQuestion),
		evaluations:   make(map[string][]*repository.RequestEvaluation),
		pathQuestions: make(map[string][]*repository.PathEvaluationQuestion),
		pathEvals:     make(map[string]map[string]*repository.PathEvaluation),
	}
}

func (f *fakeEvaluations) activeWeightSum(excludeID string) int {
	sum := 0
	for _, q := range f.questions {
		if q.IsActive && q.ID != excludeID {
			sum += q.Weight
		}
	}
	return sum
}

func (f *fakeEvaluations) CreateQuestion(ctx context.Context, q *repository.EvaluationQuestion) error {
	if q.IsActive && f.activeWeightSum("")+q.Weight > 100 {
		return apperrors.InvalidInput("weight", "active question weights cannot exceed 100")
	}
	f.seq++
	q.ID = fmt.Sprintf("q-%d", f.seq)
	clone := *q
	f.questions[q.ID] = &clone
	return nil
}

func (f *fakeEvaluations) UpdateQuestion(ctx context.Context, q *repository.EvaluationQuestion) error {
	if _, ok := f.questions[q.ID]; !ok {
		return apperrors.NotFound("evaluation_question", q.ID)
	}
	if q.IsActive && f.activeWeightSum(q.ID)+q.Weight > 100 {
		return apperrors.InvalidInput("weight", "active question weights cannot exceed 100")
	}
	clone := *q
	f.questions[q.ID] = &clone
	return nil
}

func (f *fakeEvaluations) GetQuestion(ctx context.Context, id string) (*repository.EvaluationQuestion, error) {
	q, ok := f.questions[id]
	if !ok {
		return nil, apperrors.NotFound("evaluation_question", id)
	}
	return q, nil
}

func (f *fakeEvaluations) ActiveQuestions(ctx context.Context) ([]*repository.EvaluationQuestion, error) {
	var out []*repository.EvaluationQuestion
	for _, q := range f.questions {
		if q.IsActive {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeEvaluations) ReplaceEvaluations(ctx context.Context, requestID string, evals []*repository.RequestEvaluation) error {
	f.evaluations[requestID] = evals
	return nil
}

func (f *fakeEvaluations) TotalScore(ctx context.Context, requestID string) (float64, error) {
	total := 0.0
	for _, e := range f.evaluations[requestID] {
		total += e.Score
	}
	return total, nil
}

func (f *fakeEvaluations) ActivePathQuestions(ctx context.Context, pathID string) ([]*repository.PathEvaluationQuestion, error) {
	return f.pathQuestions[pathID], nil
}

func (f *fakeEvaluations) CreatePathQuestion(ctx context.Context, q *repository.PathEvaluationQuestion) error {
	f.seq++
	q.ID = fmt.Sprintf("pq-%d", f.seq)
	clone := *q
	f.pathQuestions[q.PathID] = append(f.pathQuestions[q.PathID], &clone)
	return nil
}

func (f *fakeEvaluations) addPathQuestion(pathID, id, text string) {
	f.pathQuestions[pathID] = append(f.pathQuestions[pathID], &repository.PathEvaluationQuestion{
		ID: id, PathID: pathID, Text: text, IsActive: true,
	})
}

func (f *fakeEvaluations) UpsertPathEvaluation(ctx context.Context, e *repository.PathEvaluation) error {
	if f.pathEvals[e.RequestID] == nil {
		f.pathEvals[e.RequestID] = make(map[string]*repository.PathEvaluation)
	}
	clone := *e
	f.pathEvals[e.RequestID][e.QuestionID] = &clone
	return nil
}

func (f *fakeEvaluations) PathEvaluations(ctx context.Context, requestID string) ([]*repository.PathEvaluation, error) {
	var out []*repository.PathEvaluation
	for _, e := range f.pathEvals[requestID] {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QuestionID < out[j].QuestionID })
	return out, nil
}

// ── Collaborators ────────────────────────────────────────────────────────────

type sentEvent struct {
	eventType  string
	recipients []string
	payload    map[string]any
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []sentEvent
}

func (f *fakeNotifier) Send(ctx context.Context, eventType string, recipients []string, payload map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, sentEvent{eventType: eventType, recipients: recipients, payload: payload})
}

func (f *fakeNotifier) byType(eventType string) []sentEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []sentEvent
	for _, e := range f.events {
		if e.eventType == eventType {
			out = append(out, e)
		}
	}
	return out
}

func (f *fakeNotifier) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = nil
}

type fakeAuditor struct {
	mu    sync.Mutex
	facts []AuditFact
}

func (f *fakeAuditor) Append(ctx context.Context, fact AuditFact) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.facts = append(f.facts, fact)
}
