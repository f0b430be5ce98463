package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/masdar-tech/be-ideas-workflow/internal/apperrors"
	"github.com/masdar-tech/be-ideas-workflow/internal/repository"
)

// EvaluationService handles both scoring mechanisms. Evaluations are
// advisory: they never drive workflow transitions.
type EvaluationService struct {
	evaluations EvaluationStore
	requests    RequestStore
	authorizer  Authorizer
	auditor     Auditor

	intakeDepartmentID string

	log zerolog.Logger
}

// NewEvaluationService creates a new EvaluationService.
func NewEvaluationService(
	evaluations EvaluationStore,
	requests RequestStore,
	authorizer Authorizer,
	auditor Auditor,
	intakeDepartmentID string,
	log zerolog.Logger,
) *EvaluationService {
	return &EvaluationService{
		evaluations:        evaluations,
		requests:           requests,
		authorizer:         authorizer,
		auditor:            auditor,
		intakeDepartmentID: intakeDepartmentID,
		log:                log,
	}
}

// ── Generic question administration ──────────────────────────────────────────

// CreateQuestion adds a weighted generic question. The weight-cap check
// happens in the store's transaction; a violation leaves existing questions
// unchanged.
func (s *EvaluationService) CreateQuestion(ctx context.Context, actorID string, q *repository.EvaluationQuestion) error {
	if err := s.authorize(ctx, actorID, PermEvaluateGeneric, s.intakeDepartmentID); err != nil {
		return err
	}
	if err := validateQuestion(q); err != nil {
		return err
	}
	return s.evaluations.CreateQuestion(ctx, q)
}

// UpdateQuestion updates a weighted generic question under the same cap.
func (s *EvaluationService) UpdateQuestion(ctx context.Context, actorID string, q *repository.EvaluationQuestion) error {
	if err := s.authorize(ctx, actorID, PermEvaluateGeneric, s.intakeDepartmentID); err != nil {
		return err
	}
	if err := validateQuestion(q); err != nil {
		return err
	}
	return s.evaluations.UpdateQuestion(ctx, q)
}

func validateQuestion(q *repository.EvaluationQuestion) error {
	if q.Text == "" {
		return apperrors.InvalidInput("text", "question text is required")
	}
	if q.Weight < 0 || q.Weight > 100 {
		return apperrors.InvalidInput("weight", "weight must be between 0 and 100")
	}
	return nil
}

// ── Generic evaluation (intake department, weighted 0–100) ───────────────────

// Answer is one generic-evaluation answer.
type Answer struct {
	QuestionID string
	Value      int // 1–10
}

// SubmitGenericEvaluation replaces the request's generic evaluation with the
// given answers. Each score is (answer/10) × question weight; resubmission
// discards all prior rows for the request.
func (s *EvaluationService) SubmitGenericEvaluation(ctx context.Context, requestID, actorID string, answers []Answer) (float64, error) {
	if err := s.authorize(ctx, actorID, PermEvaluateGeneric, s.intakeDepartmentID); err != nil {
		return 0, err
	}
	if len(answers) == 0 {
		return 0, apperrors.InvalidInput("answers", "at least one answer is required")
	}

	// The request must exist (and be visible) before accepting scores.
	if _, err := s.requests.GetByID(ctx, requestID); err != nil {
		return 0, err
	}

	questions, err := s.evaluations.ActiveQuestions(ctx)
	if err != nil {
		return 0, err
	}
	byID := make(map[string]*repository.EvaluationQuestion, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}

	evals := make([]*repository.RequestEvaluation, 0, len(answers))
	for _, a := range answers {
		q, ok := byID[a.QuestionID]
		if !ok {
			return 0, apperrors.InvalidInput("question_id", "unknown or inactive evaluation question")
		}
		if a.Value < 1 || a.Value > 10 {
			return 0, apperrors.InvalidInput("answer", "answer must be between 1 and 10")
		}
		evals = append(evals, &repository.RequestEvaluation{
			RequestID:   requestID,
			QuestionID:  q.ID,
			Answer:      a.Value,
			Score:       float64(a.Value) / 10 * float64(q.Weight),
			EvaluatorID: actorID,
		})
	}

	if err := s.evaluations.ReplaceEvaluations(ctx, requestID, evals); err != nil {
		return 0, err
	}

	total, err := s.evaluations.TotalScore(ctx, requestID)
	if err != nil {
		return 0, err
	}

	if s.auditor != nil {
		s.auditor.Append(ctx, AuditFact{
			RequestID: requestID,
			Action:    repository.ActionApprove,
			ActorID:   actorID,
			Metadata:  map[string]any{"evaluation_total": total, "answers": len(evals)},
		})
	}

	s.log.Info().
		Str("request_id", requestID).
		Float64("total", total).
		Msg("Generic evaluation submitted")

	return total, nil
}

// TotalScore returns the request's current generic-evaluation total.
func (s *EvaluationService) TotalScore(ctx context.Context, requestID string) (float64, error) {
	return s.evaluations.TotalScore(ctx, requestID)
}

// ── Path evaluation (department manager checklist) ───────────────────────────

// CreatePathQuestion adds a checklist question to a workflow path. Checklist
// questions are administered by the intake department alongside the paths
// themselves.
func (s *EvaluationService) CreatePathQuestion(ctx context.Context, actorID string, q *repository.PathEvaluationQuestion) error {
	if err := s.authorize(ctx, actorID, PermEvaluateGeneric, s.intakeDepartmentID); err != nil {
		return err
	}
	if q.PathID == "" {
		return apperrors.InvalidInput("path_id", "path ID is required")
	}
	if q.Text == "" {
		return apperrors.InvalidInput("text", "question text is required")
	}
	return s.evaluations.CreatePathQuestion(ctx, q)
}

// PathQuestions returns a path's active checklist questions.
func (s *EvaluationService) PathQuestions(ctx context.Context, pathID string) ([]*repository.PathEvaluationQuestion, error) {
	return s.evaluations.ActivePathQuestions(ctx, pathID)
}

// ChecklistAnswer is one applied/not-applied answer.
type ChecklistAnswer struct {
	QuestionID string
	IsApplied  bool
	Notes      *string
}

// SubmitPathEvaluation upserts checklist answers for the request against its
// assigned workflow path's active questions. The actor must manage the
// request's current department.
func (s *EvaluationService) SubmitPathEvaluation(ctx context.Context, requestID, actorID string, answers []ChecklistAnswer) error {
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return err
	}
	if req.WorkflowPathID == nil {
		return apperrors.NotFound("request", requestID)
	}
	if req.CurrentDepartmentID == nil {
		return apperrors.NotFound("request", requestID)
	}
	if err := s.authorize(ctx, actorID, PermEvaluatePath, *req.CurrentDepartmentID); err != nil {
		return err
	}
	if len(answers) == 0 {
		return apperrors.InvalidInput("answers", "at least one answer is required")
	}

	questions, err := s.evaluations.ActivePathQuestions(ctx, *req.WorkflowPathID)
	if err != nil {
		return err
	}
	valid := make(map[string]bool, len(questions))
	for _, q := range questions {
		valid[q.ID] = true
	}

	for _, a := range answers {
		if !valid[a.QuestionID] {
			return apperrors.InvalidInput("question_id", "question does not belong to the request's workflow path")
		}
		if err := s.evaluations.UpsertPathEvaluation(ctx, &repository.PathEvaluation{
			RequestID:   requestID,
			QuestionID:  a.QuestionID,
			IsApplied:   a.IsApplied,
			Notes:       a.Notes,
			EvaluatorID: actorID,
		}); err != nil {
			return err
		}
	}

	s.log.Info().
		Str("request_id", requestID).
		Int("answers", len(answers)).
		Msg("Path evaluation submitted")

	return nil
}

// PathEvaluations returns the stored checklist answers for a request.
func (s *EvaluationService) PathEvaluations(ctx context.Context, requestID string) ([]*repository.PathEvaluation, error) {
	return s.evaluations.PathEvaluations(ctx, requestID)
}

func (s *EvaluationService) authorize(ctx context.Context, actorID string, perm Permission, departmentID string) error {
	ok, err := s.authorizer.Can(ctx, actorID, perm, departmentID)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.Unauthorized("actor is not authorized to evaluate")
	}
	return nil
}
