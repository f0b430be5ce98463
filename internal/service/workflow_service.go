package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/masdar-tech/be-ideas-workflow/internal/apperrors"
	"github.com/masdar-tech/be-ideas-workflow/internal/repository"
)

// WorkflowService owns the request state machine: which statuses a request
// can move between, who may act at each state, and the transition record
// appended for every move. Each operation validates actor authority and
// current-state preconditions, then applies one guarded stage change; the
// request mutation and its transition row commit atomically or not at all.
type WorkflowService struct {
	requests    RequestStore
	transitions TransitionStore
	departments DepartmentStore
	paths       PathStore
	authorizer  Authorizer
	notifier    Notifier
	auditor     Auditor

	// intakeDepartmentID is resolved once at startup and injected; no
	// operation re-queries the flag.
	intakeDepartmentID string

	log zerolog.Logger
}

// NewWorkflowService creates a new WorkflowService.
func NewWorkflowService(
	requests RequestStore,
	transitions TransitionStore,
	departments DepartmentStore,
	paths PathStore,
	authorizer Authorizer,
	notifier Notifier,
	auditor Auditor,
	intakeDepartmentID string,
	log zerolog.Logger,
) *WorkflowService {
	return &WorkflowService{
		requests:           requests,
		transitions:        transitions,
		departments:        departments,
		paths:              paths,
		authorizer:         authorizer,
		notifier:           notifier,
		auditor:            auditor,
		intakeDepartmentID: intakeDepartmentID,
		log:                log,
	}
}

// Comments carries the bilingual free-text comments recorded on a transition.
type Comments struct {
	Ar string
	En string
}

func (c Comments) empty() bool { return c.Ar == "" && c.En == "" }

func (c Comments) arPtr() *string {
	if c.Ar == "" {
		return nil
	}
	return &c.Ar
}

func (c Comments) enPtr() *string {
	if c.En == "" {
		return nil
	}
	return &c.En
}

// DraftInput is the editable content of a request.
type DraftInput struct {
	Title                   string
	Description             string
	Benefits                *string
	IdeaTypes               []string
	OriginatingDepartmentID *string
}

func (in *DraftInput) validate() error {
	if in.Title == "" {
		return apperrors.InvalidInput("title", "title is required")
	}
	if in.Description == "" {
		return apperrors.InvalidInput("description", "description is required")
	}
	return nil
}

// ── Draft lifecycle ──────────────────────────────────────────────────────────

// CreateDraft creates a new draft request owned by ownerID. Drafts have no
// department and no transition record; there is nothing to transition from.
func (s *WorkflowService) CreateDraft(ctx context.Context, ownerID string, in *DraftInput) (*repository.Request, error) {
	if ownerID == "" {
		return nil, apperrors.InvalidInput("owner", "owner is required")
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	req := &repository.Request{
		OwnerUserID:             ownerID,
		Title:                   in.Title,
		Description:             in.Description,
		Benefits:                in.Benefits,
		IdeaTypes:               in.IdeaTypes,
		OriginatingDepartmentID: in.OriginatingDepartmentID,
		Status:                  repository.StatusDraft,
	}
	if err := s.requests.Create(ctx, req); err != nil {
		return nil, err
	}

	s.appendAudit(ctx, AuditFact{
		RequestID:    req.ID,
		Action:       repository.ActionActivate,
		ActorID:      ownerID,
		StatusBefore: repository.StatusDraft,
		StatusAfter:  repository.StatusDraft,
		Metadata:     map[string]any{"title": req.Title},
	})

	s.log.Info().Str("request_id", req.ID).Str("owner", ownerID).Msg("Draft request created")
	return req, nil
}

// UpdateDraft updates a draft (or need_more_details) request's content. Only
// the owner may edit.
func (s *WorkflowService) UpdateDraft(ctx context.Context, requestID, actorID string, in *DraftInput) (*repository.Request, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	req := &repository.Request{
		ID:                      requestID,
		Title:                   in.Title,
		Description:             in.Description,
		Benefits:                in.Benefits,
		IdeaTypes:               in.IdeaTypes,
		OriginatingDepartmentID: in.OriginatingDepartmentID,
	}
	if err := s.requests.UpdateDraft(ctx, req, actorID); err != nil {
		return nil, err
	}
	return s.requests.GetByID(ctx, requestID)
}

// DeleteDraft soft-deletes a draft. Requests are deletable only while draft.
func (s *WorkflowService) DeleteDraft(ctx context.Context, requestID, actorID string) error {
	return s.requests.SoftDeleteDraft(ctx, requestID, actorID)
}

// ── Submission ───────────────────────────────────────────────────────────────

// Submit moves a draft or need_more_details request into the intake
// department as pending. Only the owner may submit.
func (s *WorkflowService) Submit(ctx context.Context, requestID, actorID string) (*repository.Request, error) {
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.OwnerUserID != actorID {
		return nil, apperrors.Unauthorized("only the owner can submit a request")
	}
	if req.Status != repository.StatusDraft && req.Status != repository.StatusNeedMoreDetails {
		return nil, apperrors.NotFound("request", requestID)
	}

	action := repository.ActionSubmit
	if req.Status == repository.StatusNeedMoreDetails {
		action = repository.ActionResubmit
	}

	now := time.Now()
	intakeID := s.intakeDepartmentID
	updated, err := s.applyChange(ctx, req, &repository.StageChange{
		RequestID:      requestID,
		ExpectStatus:   req.Status,
		Status:         repository.StatusPending,
		DepartmentID:   &intakeID,
		SetSubmittedAt: &now,
	}, actorID, action, Comments{})
	if err != nil {
		return nil, err
	}

	s.notifyManagers(ctx, intakeID, EventMovedToDepartment, s.payload(ctx, updated, actorID, nil))
	return updated, nil
}

// ── Intake triage ────────────────────────────────────────────────────────────

// AssignWorkflowPath routes a request sitting in the intake department onto a
// workflow path; the request moves to the path's first department for review.
func (s *WorkflowService) AssignWorkflowPath(ctx context.Context, requestID, actorID, pathID string, comments Comments) (*repository.Request, error) {
	req, err := s.intakeSubject(ctx, requestID, actorID)
	if err != nil {
		return nil, err
	}

	path, err := s.paths.GetByID(ctx, pathID)
	if err != nil {
		return nil, err
	}
	if len(path.Steps) == 0 {
		return nil, apperrors.Newf(apperrors.CodeInvariant, "workflow path %s has no steps", pathID)
	}

	firstDept := path.Steps[0].DepartmentID
	updated, err := s.applyChange(ctx, req, &repository.StageChange{
		RequestID:    requestID,
		ExpectStatus: req.Status,
		Status:       repository.StatusInReview,
		DepartmentID: &firstDept,
		SetPathID:    &path.ID,
	}, actorID, repository.ActionAssignPath, comments)
	if err != nil {
		return nil, err
	}

	s.notifyManagers(ctx, firstDept, EventPathAssigned, s.payload(ctx, updated, actorID, map[string]any{
		"path_name": path.Name,
	}))
	return updated, nil
}

// IntakeReject terminally rejects a request from the intake department. A
// rejection reason is required.
func (s *WorkflowService) IntakeReject(ctx context.Context, requestID, actorID, reason string) (*repository.Request, error) {
	if reason == "" {
		return nil, apperrors.InvalidInput("reason", "rejection reason is required")
	}

	req, err := s.intakeSubject(ctx, requestID, actorID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	updated, err := s.applyChange(ctx, req, &repository.StageChange{
		RequestID:          requestID,
		ExpectStatus:       req.Status,
		Status:             repository.StatusRejected,
		DepartmentID:       req.CurrentDepartmentID,
		SetRejectionReason: &reason,
		SetCompletedAt:     &now,
	}, actorID, repository.ActionReject, Comments{En: reason})
	if err != nil {
		return nil, err
	}

	s.notifier.Send(ctx, EventRejected, []string{updated.OwnerUserID}, s.payload(ctx, updated, actorID, map[string]any{
		"comments": reason,
	}))
	return updated, nil
}

// IntakeRequestMoreDetails sends a request back to its owner for edits. The
// request leaves all departments until resubmission.
func (s *WorkflowService) IntakeRequestMoreDetails(ctx context.Context, requestID, actorID string, comments Comments) (*repository.Request, error) {
	if comments.empty() {
		return nil, apperrors.InvalidInput("comments", "comments are required when requesting details")
	}

	req, err := s.intakeSubject(ctx, requestID, actorID)
	if err != nil {
		return nil, err
	}

	updated, err := s.applyChange(ctx, req, &repository.StageChange{
		RequestID:    requestID,
		ExpectStatus: req.Status,
		Status:       repository.StatusNeedMoreDetails,
	}, actorID, repository.ActionRequestDetails, comments)
	if err != nil {
		return nil, err
	}

	s.notifier.Send(ctx, EventNeedMoreDetails, []string{updated.OwnerUserID}, s.payload(ctx, updated, actorID, map[string]any{
		"comments": comments.En,
	}))
	return updated, nil
}

// IntakeComplete terminally completes a request from the intake department.
func (s *WorkflowService) IntakeComplete(ctx context.Context, requestID, actorID string, comments Comments) (*repository.Request, error) {
	req, err := s.intakeSubject(ctx, requestID, actorID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	updated, err := s.applyChange(ctx, req, &repository.StageChange{
		RequestID:      requestID,
		ExpectStatus:   req.Status,
		Status:         repository.StatusCompleted,
		DepartmentID:   req.CurrentDepartmentID,
		SetCompletedAt: &now,
	}, actorID, repository.ActionComplete, comments)
	if err != nil {
		return nil, err
	}

	s.notifier.Send(ctx, EventCompleted, []string{updated.OwnerUserID}, s.payload(ctx, updated, actorID, nil))
	return updated, nil
}

// IntakeReturnToPreviousDepartment sends a request back to the department it
// most recently arrived at intake from: the latest transition with
// action=complete landing on intake with a non-null from-department. Absence
// of such a transition is an operational defect, not a not-found.
func (s *WorkflowService) IntakeReturnToPreviousDepartment(ctx context.Context, requestID, actorID string, comments Comments) (*repository.Request, error) {
	req, err := s.intakeSubject(ctx, requestID, actorID)
	if err != nil {
		return nil, err
	}

	prevDept, err := s.transitions.LatestReturnSource(ctx, requestID, s.intakeDepartmentID)
	if err != nil {
		return nil, err
	}
	if prevDept == nil {
		return nil, apperrors.New(apperrors.CodeInvariant, "request has no previous department to return to")
	}

	updated, err := s.applyChange(ctx, req, &repository.StageChange{
		RequestID:    requestID,
		ExpectStatus: req.Status,
		Status:       repository.StatusInReview,
		DepartmentID: prevDept,
	}, actorID, repository.ActionReturnToDepartment, comments)
	if err != nil {
		return nil, err
	}

	s.notifyManagers(ctx, *prevDept, EventReturned, s.payload(ctx, updated, actorID, nil))
	return updated, nil
}

// ── Department manager actions ───────────────────────────────────────────────

// AssignToEmployee assigns a request under review to an employee of the same
// department. The assignee guard makes two concurrent managers racing on the
// same request resolve to exactly one winner.
func (s *WorkflowService) AssignToEmployee(ctx context.Context, requestID, actorID, employeeID string, comments Comments) (*repository.Request, error) {
	req, err := s.managerSubject(ctx, requestID, actorID)
	if err != nil {
		return nil, err
	}

	isMember, err := s.memberOfDepartment(ctx, *req.CurrentDepartmentID, employeeID)
	if err != nil {
		return nil, err
	}
	if !isMember {
		return nil, apperrors.InvalidInput("employee", "employee is not a member of the request's department")
	}

	updated, err := s.applyChange(ctx, req, &repository.StageChange{
		RequestID:     requestID,
		ExpectStatus:  req.Status,
		GuardAssignee: true,
		ExpectUserID:  req.CurrentUserID,
		Status:        repository.StatusInReview,
		DepartmentID:  req.CurrentDepartmentID,
		UserID:        &employeeID,
	}, actorID, repository.ActionAssign, comments)
	if err != nil {
		return nil, err
	}

	s.notifier.Send(ctx, EventAssignedToEmployee, []string{employeeID}, s.payload(ctx, updated, actorID, nil))
	return updated, nil
}

// ManagerReturnToIntake sends an unassigned request back to the intake
// department for final validation.
func (s *WorkflowService) ManagerReturnToIntake(ctx context.Context, requestID, actorID string, comments Comments) (*repository.Request, error) {
	req, err := s.managerSubject(ctx, requestID, actorID)
	if err != nil {
		return nil, err
	}
	if req.CurrentUserID != nil {
		return nil, apperrors.NotFound("request", requestID)
	}

	intakeID := s.intakeDepartmentID
	updated, err := s.applyChange(ctx, req, &repository.StageChange{
		RequestID:     requestID,
		ExpectStatus:  req.Status,
		GuardAssignee: true,
		Status:        repository.StatusInReview,
		DepartmentID:  &intakeID,
	}, actorID, repository.ActionComplete, comments)
	if err != nil {
		return nil, err
	}

	payload := s.payload(ctx, updated, actorID, map[string]any{"comments": comments.En})
	s.notifyManagers(ctx, intakeID, EventMovedToDepartment, payload)
	s.notifier.Send(ctx, EventApproved, []string{updated.OwnerUserID}, payload)
	return updated, nil
}

// ManagerAcceptLater parks a request in the department as pending: accepted,
// to be picked up again later.
func (s *WorkflowService) ManagerAcceptLater(ctx context.Context, requestID, actorID string, comments Comments) (*repository.Request, error) {
	req, err := s.managerSubject(ctx, requestID, actorID)
	if err != nil {
		return nil, err
	}
	if req.CurrentUserID != nil {
		return nil, apperrors.NotFound("request", requestID)
	}

	return s.applyChange(ctx, req, &repository.StageChange{
		RequestID:     requestID,
		ExpectStatus:  req.Status,
		GuardAssignee: true,
		Status:        repository.StatusPending,
		DepartmentID:  req.CurrentDepartmentID,
	}, actorID, repository.ActionAcceptLater, comments)
}

// ManagerRejectIdea terminally rejects an idea at the department level.
// Comments are required.
func (s *WorkflowService) ManagerRejectIdea(ctx context.Context, requestID, actorID string, comments Comments) (*repository.Request, error) {
	if comments.empty() {
		return nil, apperrors.InvalidInput("comments", "comments are required when rejecting an idea")
	}

	req, err := s.managerSubject(ctx, requestID, actorID)
	if err != nil {
		return nil, err
	}
	if req.CurrentUserID != nil {
		return nil, apperrors.NotFound("request", requestID)
	}

	now := time.Now()
	updated, err := s.applyChange(ctx, req, &repository.StageChange{
		RequestID:      requestID,
		ExpectStatus:   req.Status,
		GuardAssignee:  true,
		Status:         repository.StatusRejected,
		DepartmentID:   req.CurrentDepartmentID,
		SetCompletedAt: &now,
	}, actorID, repository.ActionRejectIdea, comments)
	if err != nil {
		return nil, err
	}

	s.notifier.Send(ctx, EventRejected, []string{updated.OwnerUserID}, s.payload(ctx, updated, actorID, map[string]any{
		"comments": comments.En,
	}))
	return updated, nil
}

// ── Employee actions ─────────────────────────────────────────────────────────

// EmployeeAccept starts work: the assignee takes an in_review request to
// in_progress.
func (s *WorkflowService) EmployeeAccept(ctx context.Context, requestID, actorID string) (*repository.Request, error) {
	req, err := s.assignedSubject(ctx, requestID, actorID, repository.StatusInReview)
	if err != nil {
		return nil, err
	}

	return s.applyChange(ctx, req, &repository.StageChange{
		RequestID:     requestID,
		ExpectStatus:  repository.StatusInReview,
		GuardAssignee: true,
		ExpectUserID:  &actorID,
		Status:        repository.StatusInProgress,
		DepartmentID:  req.CurrentDepartmentID,
		UserID:        req.CurrentUserID,
	}, actorID, repository.ActionEmployeeAccept, Comments{})
}

// EmployeeMarkMissingRequirement flags an in-progress request as blocked on a
// missing requirement. Comments are required.
func (s *WorkflowService) EmployeeMarkMissingRequirement(ctx context.Context, requestID, actorID string, comments Comments) (*repository.Request, error) {
	if comments.empty() {
		return nil, apperrors.InvalidInput("comments", "comments are required when flagging a missing requirement")
	}

	req, err := s.assignedSubject(ctx, requestID, actorID, repository.StatusInProgress)
	if err != nil {
		return nil, err
	}

	return s.applyChange(ctx, req, &repository.StageChange{
		RequestID:     requestID,
		ExpectStatus:  repository.StatusInProgress,
		GuardAssignee: true,
		ExpectUserID:  &actorID,
		Status:        repository.StatusMissingRequirement,
		DepartmentID:  req.CurrentDepartmentID,
		UserID:        req.CurrentUserID,
	}, actorID, repository.ActionProgressUpdate, comments)
}

// EmployeeResumeWork clears the missing-requirement flag and resumes work.
func (s *WorkflowService) EmployeeResumeWork(ctx context.Context, requestID, actorID string, comments Comments) (*repository.Request, error) {
	req, err := s.assignedSubject(ctx, requestID, actorID, repository.StatusMissingRequirement)
	if err != nil {
		return nil, err
	}

	return s.applyChange(ctx, req, &repository.StageChange{
		RequestID:     requestID,
		ExpectStatus:  repository.StatusMissingRequirement,
		GuardAssignee: true,
		ExpectUserID:  &actorID,
		Status:        repository.StatusInProgress,
		DepartmentID:  req.CurrentDepartmentID,
		UserID:        req.CurrentUserID,
	}, actorID, repository.ActionProgressUpdate, comments)
}

// EmployeeReturnToManager hands a request back to the department: the
// assignee is cleared and the request re-enters review. From in_review the
// transition action is `complete`; from a working status it is
// `employee_complete`.
func (s *WorkflowService) EmployeeReturnToManager(ctx context.Context, requestID, actorID string, comments Comments) (*repository.Request, error) {
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.CurrentUserID == nil || *req.CurrentUserID != actorID {
		return nil, apperrors.NotFound("request", requestID)
	}

	switch req.Status {
	case repository.StatusInReview, repository.StatusInProgress, repository.StatusMissingRequirement:
	default:
		return nil, apperrors.NotFound("request", requestID)
	}

	action := repository.ActionComplete
	if req.Status != repository.StatusInReview {
		action = repository.ActionEmployeeComplete
	}

	updated, err := s.applyChange(ctx, req, &repository.StageChange{
		RequestID:     requestID,
		ExpectStatus:  req.Status,
		GuardAssignee: true,
		ExpectUserID:  &actorID,
		Status:        repository.StatusInReview,
		DepartmentID:  req.CurrentDepartmentID,
	}, actorID, action, comments)
	if err != nil {
		return nil, err
	}

	if req.CurrentDepartmentID != nil {
		s.notifyManagers(ctx, *req.CurrentDepartmentID, EventReturned, s.payload(ctx, updated, actorID, nil))
	}
	return updated, nil
}

// ── Reads ────────────────────────────────────────────────────────────────────

// GetRequest returns a request by ID.
func (s *WorkflowService) GetRequest(ctx context.Context, requestID string) (*repository.Request, error) {
	return s.requests.GetByID(ctx, requestID)
}

// History returns the full ordered transition history of a request.
func (s *WorkflowService) History(ctx context.Context, requestID string) ([]*repository.Transition, error) {
	return s.transitions.ListByRequest(ctx, requestID)
}

// ── Internal helpers ─────────────────────────────────────────────────────────

// intakeSubject loads a request and verifies the triage preconditions: actor
// holds triage authority, the request sits in the intake department with
// status pending or in_review.
func (s *WorkflowService) intakeSubject(ctx context.Context, requestID, actorID string) (*repository.Request, error) {
	if err := s.authorize(ctx, actorID, PermTriage, s.intakeDepartmentID); err != nil {
		return nil, err
	}

	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.CurrentDepartmentID == nil || *req.CurrentDepartmentID != s.intakeDepartmentID {
		return nil, apperrors.NotFound("request", requestID)
	}
	if req.Status != repository.StatusPending && req.Status != repository.StatusInReview {
		return nil, apperrors.NotFound("request", requestID)
	}
	return req, nil
}

// managerSubject loads a request and verifies that the actor manages its
// current department and the request is in review or parked as pending.
func (s *WorkflowService) managerSubject(ctx context.Context, requestID, actorID string) (*repository.Request, error) {
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.CurrentDepartmentID == nil {
		return nil, apperrors.NotFound("request", requestID)
	}
	if err := s.authorize(ctx, actorID, PermManageDepartment, *req.CurrentDepartmentID); err != nil {
		return nil, err
	}
	if req.Status != repository.StatusInReview && req.Status != repository.StatusPending {
		return nil, apperrors.NotFound("request", requestID)
	}
	return req, nil
}

// assignedSubject loads a request and verifies the actor is its current
// assignee and it carries the expected status.
func (s *WorkflowService) assignedSubject(ctx context.Context, requestID, actorID string, status repository.Status) (*repository.Request, error) {
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.CurrentUserID == nil || *req.CurrentUserID != actorID {
		return nil, apperrors.NotFound("request", requestID)
	}
	if req.Status != status {
		return nil, apperrors.NotFound("request", requestID)
	}
	return req, nil
}

func (s *WorkflowService) authorize(ctx context.Context, actorID string, perm Permission, departmentID string) error {
	ok, err := s.authorizer.Can(ctx, actorID, perm, departmentID)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.Unauthorized("actor is not authorized to perform this action")
	}
	return nil
}

// applyChange fills the transition record from the request's current stage,
// applies the guarded change and emits the audit fact. The transition's
// to-fields always equal the request's live fields afterwards.
func (s *WorkflowService) applyChange(
	ctx context.Context,
	req *repository.Request,
	change *repository.StageChange,
	actorID string,
	action repository.Action,
	comments Comments,
) (*repository.Request, error) {
	change.Transition = &repository.Transition{
		RequestID:        req.ID,
		FromDepartmentID: req.CurrentDepartmentID,
		ToDepartmentID:   change.DepartmentID,
		FromUserID:       req.CurrentUserID,
		ToUserID:         change.UserID,
		ActorUserID:      actorID,
		Action:           action,
		FromStatus:       req.Status,
		ToStatus:         change.Status,
		CommentAr:        comments.arPtr(),
		CommentEn:        comments.enPtr(),
	}

	updated, err := s.requests.ApplyStageChange(ctx, change)
	if err != nil {
		return nil, err
	}

	s.appendAudit(ctx, AuditFact{
		RequestID:    req.ID,
		Action:       action,
		ActorID:      actorID,
		StatusBefore: req.Status,
		StatusAfter:  updated.Status,
	})

	s.log.Info().
		Str("request_id", req.ID).
		Str("action", string(action)).
		Str("from_status", string(req.Status)).
		Str("to_status", string(updated.Status)).
		Str("actor", actorID).
		Msg("Request transitioned")

	return updated, nil
}

// memberOfDepartment reports membership in either role.
func (s *WorkflowService) memberOfDepartment(ctx context.Context, departmentID, userID string) (bool, error) {
	isEmployee, err := s.departments.IsMember(ctx, departmentID, userID, repository.RoleEmployee)
	if err != nil || isEmployee {
		return isEmployee, err
	}
	return s.departments.IsMember(ctx, departmentID, userID, repository.RoleManager)
}

// notifyManagers sends one event to every manager of a department.
// Notification failures never surface; an empty manager list sends nothing.
func (s *WorkflowService) notifyManagers(ctx context.Context, departmentID, eventType string, payload map[string]any) {
	managers, err := s.departments.Managers(ctx, departmentID)
	if err != nil {
		s.log.Warn().Err(err).Str("department_id", departmentID).Msg("Could not resolve managers for notification")
		return
	}
	if len(managers) == 0 {
		return
	}
	s.notifier.Send(ctx, eventType, managers, payload)
}

// payload builds the template context for a notification event.
func (s *WorkflowService) payload(ctx context.Context, req *repository.Request, actorID string, extra map[string]any) map[string]any {
	p := map[string]any{
		"request_id":    req.ID,
		"request_title": req.Title,
		"actor_name":    actorID,
	}
	if req.CurrentDepartmentID != nil {
		if dept, err := s.departments.GetByID(ctx, *req.CurrentDepartmentID); err == nil {
			p["department_name"] = dept.Name
		}
	}
	for k, v := range extra {
		p[k] = v
	}
	return p
}

// appendAudit writes an audit fact; failures are handled inside the sink.
func (s *WorkflowService) appendAudit(ctx context.Context, fact AuditFact) {
	if s.auditor == nil {
		return
	}
	s.auditor.Append(ctx, fact)
}
