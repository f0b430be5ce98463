package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/masdar-tech/be-ideas-workflow/internal/apperrors"
	"github.com/masdar-tech/be-ideas-workflow/internal/repository"
)

type evaluationFixture struct {
	store *fakeStore
	evals *fakeEvaluations
	svc   *EvaluationService
}

func newEvaluationFixture(t *testing.T) *evaluationFixture {
	t.Helper()

	depts := newFakeDepartments()
	depts.add(deptIntake, "Intake", true)
	depts.add(deptEng, "Engineering", false)
	depts.addMember(deptIntake, userAmal, repository.RoleManager)
	depts.addMember(deptEng, userBadr, repository.RoleManager)

	store := newFakeStore()
	evals := newFakeEvaluations()
	svc := NewEvaluationService(evals, store, NewMembershipAuthorizer(depts, deptIntake),
		&fakeAuditor{}, deptIntake, zerolog.Nop())

	return &evaluationFixture{store: store, evals: evals, svc: svc}
}

func (fx *evaluationFixture) request(t *testing.T, pathID *string, departmentID *string) *repository.Request {
	t.Helper()
	req := &repository.Request{OwnerUserID: userOmar, Title: "t", Description: "d", Status: repository.StatusDraft}
	require.NoError(t, fx.store.Create(context.Background(), req))
	stored := fx.store.mustGet(req.ID)
	stored.Status = repository.StatusInReview
	stored.WorkflowPathID = pathID
	stored.CurrentDepartmentID = departmentID
	return stored
}

func (fx *evaluationFixture) question(t *testing.T, text string, weight int) *repository.EvaluationQuestion {
	t.Helper()
	q := &repository.EvaluationQuestion{Text: text, Weight: weight, IsActive: true}
	require.NoError(t, fx.svc.CreateQuestion(context.Background(), userAmal, q))
	return q
}

func TestEvaluationService_CreateQuestion(t *testing.T) {
	fx := newEvaluationFixture(t)
	ctx := context.Background()

	err := fx.svc.CreateQuestion(ctx, userBadr, &repository.EvaluationQuestion{Text: "Impact?", Weight: 40, IsActive: true})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthorized), "only intake managers administer questions")

	err = fx.svc.CreateQuestion(ctx, userAmal, &repository.EvaluationQuestion{Weight: 40, IsActive: true})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput), "text is required")

	err = fx.svc.CreateQuestion(ctx, userAmal, &repository.EvaluationQuestion{Text: "Impact?", Weight: 120, IsActive: true})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput), "weight must stay within 0-100")

	require.NoError(t, fx.svc.CreateQuestion(ctx, userAmal, &repository.EvaluationQuestion{Text: "Impact?", Weight: 60, IsActive: true}))
}

func TestEvaluationService_WeightCap(t *testing.T) {
	fx := newEvaluationFixture(t)
	ctx := context.Background()

	fx.question(t, "Impact?", 60)
	q2 := fx.question(t, "Feasibility?", 40)

	// Active weights now sum to 100; any addition overflows.
	err := fx.svc.CreateQuestion(ctx, userAmal, &repository.EvaluationQuestion{Text: "Cost?", Weight: 1, IsActive: true})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput))

	// Raising an existing weight past the cap fails; the question keeps its
	// stored weight.
	q2.Weight = 50
	err = fx.svc.UpdateQuestion(ctx, userAmal, q2)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput))

	stored, err := fx.evals.GetQuestion(ctx, q2.ID)
	require.NoError(t, err)
	assert.Equal(t, 40, stored.Weight)

	// Deactivating a question frees its weight.
	q2.Weight = 40
	q2.IsActive = false
	require.NoError(t, fx.svc.UpdateQuestion(ctx, userAmal, q2))
	require.NoError(t, fx.svc.CreateQuestion(ctx, userAmal, &repository.EvaluationQuestion{Text: "Cost?", Weight: 40, IsActive: true}))
}

func TestEvaluationService_SubmitGenericEvaluation(t *testing.T) {
	fx := newEvaluationFixture(t)
	ctx := context.Background()

	q1 := fx.question(t, "Impact?", 60)
	q2 := fx.question(t, "Feasibility?", 40)
	req := fx.request(t, nil, strPtr(deptIntake))

	_, err := fx.svc.SubmitGenericEvaluation(ctx, req.ID, userBadr, []Answer{{QuestionID: q1.ID, Value: 5}})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthorized))

	_, err = fx.svc.SubmitGenericEvaluation(ctx, req.ID, userAmal, nil)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput))

	_, err = fx.svc.SubmitGenericEvaluation(ctx, req.ID, userAmal, []Answer{{QuestionID: "no-such-question", Value: 5}})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput))

	_, err = fx.svc.SubmitGenericEvaluation(ctx, req.ID, userAmal, []Answer{{QuestionID: q1.ID, Value: 11}})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput))

	// (8/10)*60 + (5/10)*40 = 48 + 20 = 68.
	total, err := fx.svc.SubmitGenericEvaluation(ctx, req.ID, userAmal, []Answer{
		{QuestionID: q1.ID, Value: 8},
		{QuestionID: q2.ID, Value: 5},
	})
	require.NoError(t, err)
	assert.InDelta(t, 68.0, total, 0.001)

	// Resubmission replaces the previous evaluation outright.
	total, err = fx.svc.SubmitGenericEvaluation(ctx, req.ID, userAmal, []Answer{
		{QuestionID: q1.ID, Value: 10},
	})
	require.NoError(t, err)
	assert.InDelta(t, 60.0, total, 0.001)

	stored, err := fx.svc.TotalScore(ctx, req.ID)
	require.NoError(t, err)
	assert.InDelta(t, 60.0, stored, 0.001)
}

func TestEvaluationService_SubmitPathEvaluation(t *testing.T) {
	fx := newEvaluationFixture(t)
	ctx := context.Background()

	pathID := "path-1"
	fx.evals.addPathQuestion(pathID, "pq-1", "Security review done?")
	fx.evals.addPathQuestion(pathID, "pq-2", "Budget confirmed?")

	// A request without an assigned path cannot carry a checklist.
	unrouted := fx.request(t, nil, strPtr(deptEng))
	err := fx.svc.SubmitPathEvaluation(ctx, unrouted.ID, userBadr, []ChecklistAnswer{{QuestionID: "pq-1", IsApplied: true}})
	assert.True(t, apperrors.HasCode(err, apperrors.CodePrecondition))

	req := fx.request(t, &pathID, strPtr(deptEng))

	err = fx.svc.SubmitPathEvaluation(ctx, req.ID, userAmal, []ChecklistAnswer{{QuestionID: "pq-1", IsApplied: true}})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthorized), "the current department's manager evaluates")

	err = fx.svc.SubmitPathEvaluation(ctx, req.ID, userBadr, []ChecklistAnswer{{QuestionID: "other-path-q", IsApplied: true}})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput))

	notes := "pending CFO signature"
	err = fx.svc.SubmitPathEvaluation(ctx, req.ID, userBadr, []ChecklistAnswer{
		{QuestionID: "pq-1", IsApplied: true},
		{QuestionID: "pq-2", IsApplied: false, Notes: &notes},
	})
	require.NoError(t, err)

	evals, err := fx.svc.PathEvaluations(ctx, req.ID)
	require.NoError(t, err)
	require.Len(t, evals, 2)

	// Re-answering a question upserts rather than duplicating.
	err = fx.svc.SubmitPathEvaluation(ctx, req.ID, userBadr, []ChecklistAnswer{
		{QuestionID: "pq-2", IsApplied: true},
	})
	require.NoError(t, err)

	evals, err = fx.svc.PathEvaluations(ctx, req.ID)
	require.NoError(t, err)
	require.Len(t, evals, 2)
	for _, e := range evals {
		if e.QuestionID == "pq-2" {
			assert.True(t, e.IsApplied)
		}
	}
}
