package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/masdar-tech/be-ideas-workflow/internal/apperrors"
	"github.com/masdar-tech/be-ideas-workflow/internal/repository"
)

// SLAThresholds are the per-stage day limits before a reminder goes out.
type SLAThresholds struct {
	IntakeReviewDays    int
	ManagerReviewDays   int
	EmployeeWorkDays    int
	FinalValidationDays int
}

// SLAService is the periodic sweep that finds requests stalled past a
// per-stage threshold and reminds the responsible managers. It only reads
// request state and writes reminder timestamps, so it is safe to run
// concurrently with live workflow operations. A manager who ignores a
// reminder is re-reminded every N days, not on every sweep run.
type SLAService struct {
	requests    RequestStore
	departments DepartmentStore
	notifier    Notifier
	thresholds  SLAThresholds
	log         zerolog.Logger

	// now is swappable for tests.
	now func() time.Time
}

// NewSLAService creates a new SLAService.
func NewSLAService(
	requests RequestStore,
	departments DepartmentStore,
	notifier Notifier,
	thresholds SLAThresholds,
	log zerolog.Logger,
) *SLAService {
	return &SLAService{
		requests:    requests,
		departments: departments,
		notifier:    notifier,
		thresholds:  thresholds,
		log:         log,
		now:         time.Now,
	}
}

// SweepResult counts the reminders sent by one sweep.
type SweepResult struct {
	IntakeTriage      int
	ManagerAssignment int
	EmployeeWork      int
	FinalValidation   int
}

// Total returns the number of requests reminded across all passes.
func (r SweepResult) Total() int {
	return r.IntakeTriage + r.ManagerAssignment + r.EmployeeWork + r.FinalValidation
}

// Sweep runs the four passes. Pass failures are independent: a failing pass is
// logged and the remaining passes still run. When the intake department cannot
// be resolved, the two intake-bound passes no-op silently.
func (s *SLAService) Sweep(ctx context.Context) (SweepResult, error) {
	var result SweepResult
	var intakeID *string

	intake, err := s.departments.IntakeDepartment(ctx)
	if err != nil {
		if apperrors.HasCode(err, apperrors.CodeInvariant) {
			s.log.Warn().Msg("SLA sweep: intake department unresolved; skipping intake-bound passes")
		} else {
			return result, err
		}
	} else {
		intakeID = &intake.ID
	}

	if intakeID != nil {
		n, err := s.intakeTriagePass(ctx, *intakeID)
		if err != nil {
			s.log.Error().Err(err).Msg("SLA sweep: intake triage pass failed")
		}
		result.IntakeTriage = n
	}

	n, err := s.managerAssignmentPass(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("SLA sweep: manager assignment pass failed")
	}
	result.ManagerAssignment = n

	n, err = s.employeeWorkPass(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("SLA sweep: employee work pass failed")
	}
	result.EmployeeWork = n

	if intakeID != nil {
		n, err := s.finalValidationPass(ctx, *intakeID)
		if err != nil {
			s.log.Error().Err(err).Msg("SLA sweep: final validation pass failed")
		}
		result.FinalValidation = n
	}

	s.log.Info().
		Int("intake_triage", result.IntakeTriage).
		Int("manager_assignment", result.ManagerAssignment).
		Int("employee_work", result.EmployeeWork).
		Int("final_validation", result.FinalValidation).
		Msg("SLA sweep completed")

	return result, nil
}

// intakeTriagePass reminds intake managers about pending requests awaiting a
// workflow path.
func (s *SLAService) intakeTriagePass(ctx context.Context, intakeID string) (int, error) {
	cutoff := s.cutoff(s.thresholds.IntakeReviewDays)
	stale, err := s.requests.FindStale(ctx, repository.StaleQuery{
		Statuses:     []repository.Status{repository.StatusPending},
		DepartmentID: &intakeID,
		Cutoff:       cutoff,
	})
	if err != nil {
		return 0, err
	}
	return s.remind(ctx, stale, intakeID, EventSLAIntakeAssignPath, s.thresholds.IntakeReviewDays)
}

// managerAssignmentPass reminds current-department managers about routed
// requests nobody has picked up.
func (s *SLAService) managerAssignmentPass(ctx context.Context) (int, error) {
	cutoff := s.cutoff(s.thresholds.ManagerReviewDays)
	stale, err := s.requests.FindStale(ctx, repository.StaleQuery{
		Statuses:    []repository.Status{repository.StatusInReview},
		RequirePath: true,
		Assignee:    repository.AssigneeNone,
		Cutoff:      cutoff,
	})
	if err != nil {
		return 0, err
	}
	return s.remindCurrentDepartment(ctx, stale, EventSLAManagerAssign, s.thresholds.ManagerReviewDays)
}

// employeeWorkPass reminds managers about assigned requests that have not
// progressed.
func (s *SLAService) employeeWorkPass(ctx context.Context) (int, error) {
	cutoff := s.cutoff(s.thresholds.EmployeeWorkDays)
	stale, err := s.requests.FindStale(ctx, repository.StaleQuery{
		Statuses: []repository.Status{repository.StatusInProgress, repository.StatusMissingRequirement},
		Assignee: repository.AssigneeSet,
		Cutoff:   cutoff,
	})
	if err != nil {
		return 0, err
	}
	return s.remindCurrentDepartment(ctx, stale, EventSLAEmployeeOverdue, s.thresholds.EmployeeWorkDays)
}

// finalValidationPass reminds intake managers about routed requests sitting
// back in intake awaiting final completion or rejection.
func (s *SLAService) finalValidationPass(ctx context.Context, intakeID string) (int, error) {
	cutoff := s.cutoff(s.thresholds.FinalValidationDays)
	stale, err := s.requests.FindStale(ctx, repository.StaleQuery{
		Statuses:     []repository.Status{repository.StatusInReview},
		RequirePath:  true,
		DepartmentID: &intakeID,
		Cutoff:       cutoff,
	})
	if err != nil {
		return 0, err
	}
	return s.remind(ctx, stale, intakeID, EventSLAFinalValidation, s.thresholds.FinalValidationDays)
}

// remind notifies the managers of one fixed department for every stale
// request, stamping the reminder once per request.
func (s *SLAService) remind(ctx context.Context, stale []*repository.Request, departmentID, eventType string, slaDays int) (int, error) {
	if len(stale) == 0 {
		return 0, nil
	}

	managers, err := s.departments.Managers(ctx, departmentID)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, req := range stale {
		s.sendReminder(ctx, req, managers, eventType, slaDays)
		count++
	}
	return count, nil
}

// remindCurrentDepartment notifies each stale request's own current-department
// managers.
func (s *SLAService) remindCurrentDepartment(ctx context.Context, stale []*repository.Request, eventType string, slaDays int) (int, error) {
	count := 0
	for _, req := range stale {
		if req.CurrentDepartmentID == nil {
			continue
		}
		managers, err := s.departments.Managers(ctx, *req.CurrentDepartmentID)
		if err != nil {
			s.log.Warn().Err(err).
				Str("request_id", req.ID).
				Str("department_id", *req.CurrentDepartmentID).
				Msg("SLA sweep: could not resolve managers")
			continue
		}
		s.sendReminder(ctx, req, managers, eventType, slaDays)
		count++
	}
	return count, nil
}

// sendReminder emits one event per manager and stamps the reminder timestamp
// once for the request. A stamp failure is logged but does not stop the sweep.
func (s *SLAService) sendReminder(ctx context.Context, req *repository.Request, managers []string, eventType string, slaDays int) {
	daysWaiting := int(s.now().Sub(req.CurrentStageStartedAt).Hours() / 24)

	for _, manager := range managers {
		s.notifier.Send(ctx, eventType, []string{manager}, map[string]any{
			"request_id":    req.ID,
			"request_title": req.Title,
			"days_waiting":  daysWaiting,
			"sla_days":      slaDays,
		})
	}

	if err := s.requests.StampReminder(ctx, req.ID, s.now()); err != nil {
		s.log.Warn().Err(err).Str("request_id", req.ID).Msg("SLA sweep: failed to stamp reminder")
	}
}

func (s *SLAService) cutoff(days int) time.Time {
	return s.now().AddDate(0, 0, -days)
}
