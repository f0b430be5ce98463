package service

import (
	"context"
	"time"

	"github.com/masdar-tech/be-ideas-workflow/internal/apperrors"
	"github.com/masdar-tech/be-ideas-workflow/internal/repository"
)

// Consumer-side interfaces for everything the services depend on. The
// repository types satisfy the store interfaces; the NATS clients satisfy
// Notifier and Auditor. Tests substitute in-memory fakes.

// RequestStore persists requests and applies guarded stage changes.
type RequestStore interface {
	Create(ctx context.Context, req *repository.Request) error
	GetByID(ctx context.Context, id string) (*repository.Request, error)
	UpdateDraft(ctx context.Context, req *repository.Request, ownerID string) error
	SoftDeleteDraft(ctx context.Context, id, ownerID string) error
	ApplyStageChange(ctx context.Context, change *repository.StageChange) (*repository.Request, error)
	FindStale(ctx context.Context, q repository.StaleQuery) ([]*repository.Request, error)
	StampReminder(ctx context.Context, id string, at time.Time) error
}

// TransitionStore reads the append-only transition log.
type TransitionStore interface {
	ListByRequest(ctx context.Context, requestID string) ([]*repository.Transition, error)
	LatestReturnSource(ctx context.Context, requestID, intakeDepartmentID string) (*string, error)
}

// DepartmentStore resolves departments and role-tagged memberships.
type DepartmentStore interface {
	GetByID(ctx context.Context, id string) (*repository.Department, error)
	IntakeDepartment(ctx context.Context) (*repository.Department, error)
	IsMember(ctx context.Context, departmentID, userID string, role repository.Role) (bool, error)
	Managers(ctx context.Context, departmentID string) ([]string, error)
}

// PathStore resolves workflow paths with their ordered steps.
type PathStore interface {
	GetByID(ctx context.Context, id string) (*repository.WorkflowPath, error)
}

// EvaluationStore persists both evaluation mechanisms.
type EvaluationStore interface {
	CreateQuestion(ctx context.Context, q *repository.EvaluationQuestion) error
	UpdateQuestion(ctx context.Context, q *repository.EvaluationQuestion) error
	GetQuestion(ctx context.Context, id string) (*repository.EvaluationQuestion, error)
	ActiveQuestions(ctx context.Context) ([]*repository.EvaluationQuestion, error)
	ReplaceEvaluations(ctx context.Context, requestID string, evals []*repository.RequestEvaluation) error
	TotalScore(ctx context.Context, requestID string) (float64, error)
	ActivePathQuestions(ctx context.Context, pathID string) ([]*repository.PathEvaluationQuestion, error)
	CreatePathQuestion(ctx context.Context, q *repository.PathEvaluationQuestion) error
	UpsertPathEvaluation(ctx context.Context, e *repository.PathEvaluation) error
	PathEvaluations(ctx context.Context, requestID string) ([]*repository.PathEvaluation, error)
}

// ── Authorization ────────────────────────────────────────────────────────────

// Permission is the closed set of capability checks. Role-to-permission
// mapping stays data-driven behind the Authorizer; the set of permissions is
// compile-time enumerable.
type Permission string

const (
	// PermTriage grants intake triage authority: route, reject, complete,
	// request details, return to previous department.
	PermTriage Permission = "triage"
	// PermManageDepartment grants manager actions within one department.
	PermManageDepartment Permission = "manage_department"
	// PermWorkRequests grants employee actions on requests assigned to oneself.
	PermWorkRequests Permission = "work_requests"
	// PermEvaluateGeneric grants submitting the weighted generic evaluation.
	PermEvaluateGeneric Permission = "evaluate_generic"
	// PermEvaluatePath grants submitting the per-path checklist evaluation.
	PermEvaluatePath Permission = "evaluate_path"
)

// Authorizer answers capability checks scoped to a department.
type Authorizer interface {
	Can(ctx context.Context, actorID string, perm Permission, departmentID string) (bool, error)
}

// MembershipAuthorizer maps membership roles to permissions: managers of the
// intake department hold triage and generic-evaluation authority; managers of
// any department hold manage and path-evaluation authority over it; employees
// (and managers) hold work authority over their department.
type MembershipAuthorizer struct {
	departments        DepartmentStore
	intakeDepartmentID string
}

// NewMembershipAuthorizer creates an authorizer backed by the department
// directory. intakeDepartmentID is resolved once at startup.
func NewMembershipAuthorizer(departments DepartmentStore, intakeDepartmentID string) *MembershipAuthorizer {
	return &MembershipAuthorizer{departments: departments, intakeDepartmentID: intakeDepartmentID}
}

// Can implements Authorizer.
func (a *MembershipAuthorizer) Can(ctx context.Context, actorID string, perm Permission, departmentID string) (bool, error) {
	switch perm {
	case PermTriage, PermEvaluateGeneric:
		return a.departments.IsMember(ctx, a.intakeDepartmentID, actorID, repository.RoleManager)
	case PermManageDepartment, PermEvaluatePath:
		return a.departments.IsMember(ctx, departmentID, actorID, repository.RoleManager)
	case PermWorkRequests:
		isEmployee, err := a.departments.IsMember(ctx, departmentID, actorID, repository.RoleEmployee)
		if err != nil || isEmployee {
			return isEmployee, err
		}
		return a.departments.IsMember(ctx, departmentID, actorID, repository.RoleManager)
	default:
		return false, apperrors.Newf(apperrors.CodeInternal, "unknown permission %q", perm)
	}
}

// ── External collaborators ───────────────────────────────────────────────────

// Notification event types. Persisted in downstream systems; stable.
const (
	EventPathAssigned       = "request.path_assigned"
	EventAssignedToEmployee = "request.assigned_to_employee"
	EventMovedToDepartment  = "request.moved_to_department"
	EventApproved           = "request.approved"
	EventRejected           = "request.rejected"
	EventNeedMoreDetails    = "request.need_more_details"
	EventCompleted          = "request.completed"
	EventReturned           = "request.returned"

	EventSLAIntakeAssignPath = "sla.dept_a_assign_path"
	EventSLAManagerAssign    = "sla.manager_assign_employee"
	EventSLAEmployeeOverdue  = "sla.employee_work_overdue"
	EventSLAFinalValidation  = "sla.final_validation_overdue"
)

// Notifier delivers an event to recipients with a template context.
// Implementations are fire-and-forget: failures are logged, never returned.
type Notifier interface {
	Send(ctx context.Context, eventType string, recipients []string, payload map[string]any)
}

// AuditFact is one compliance fact emitted per mutating operation.
type AuditFact struct {
	RequestID    string
	Action       repository.Action
	ActorID      string
	StatusBefore repository.Status
	StatusAfter  repository.Status
	Metadata     map[string]any
}

// Auditor appends facts to the external audit sink. Append-only, fire-and-forget.
type Auditor interface {
	Append(ctx context.Context, fact AuditFact)
}
