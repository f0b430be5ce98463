package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/masdar-tech/be-ideas-workflow/internal/repository"
)

var testThresholds = SLAThresholds{
	IntakeReviewDays:    3,
	ManagerReviewDays:   5,
	EmployeeWorkDays:    7,
	FinalValidationDays: 2,
}

type slaFixture struct {
	store    *fakeStore
	depts    *fakeDepartments
	notifier *fakeNotifier
	svc      *SLAService
	now      time.Time
}

func newSLAFixture(t *testing.T) *slaFixture {
	t.Helper()

	depts := newFakeDepartments()
	depts.add(deptIntake, "Intake", true)
	depts.add(deptEng, "Engineering", false)
	depts.addMember(deptIntake, userAmal, repository.RoleManager)
	depts.addMember(deptEng, userBadr, repository.RoleManager)

	store := newFakeStore()
	notifier := &fakeNotifier{}
	svc := NewSLAService(store, depts, notifier, testThresholds, zerolog.Nop())

	fx := &slaFixture{store: store, depts: depts, notifier: notifier, svc: svc, now: time.Now()}
	svc.now = func() time.Time { return fx.now }
	return fx
}

// seed inserts a request directly in the given stage, started daysAgo days ago.
func (fx *slaFixture) seed(t *testing.T, status repository.Status, departmentID, userID *string, withPath bool, daysAgo int) *repository.Request {
	t.Helper()

	req := &repository.Request{
		OwnerUserID: userOmar,
		Title:       "Stale request",
		Description: "d",
		Status:      repository.StatusDraft,
	}
	require.NoError(t, fx.store.Create(context.Background(), req))

	stored := fx.store.mustGet(req.ID)
	stored.Status = status
	stored.CurrentDepartmentID = departmentID
	stored.CurrentUserID = userID
	if withPath {
		pathID := "path-1"
		stored.WorkflowPathID = &pathID
	}
	stored.CurrentStageStartedAt = fx.now.AddDate(0, 0, -daysAgo)
	return stored
}

func strPtr(s string) *string { return &s }

func TestSLAService_Sweep_FourPasses(t *testing.T) {
	fx := newSLAFixture(t)
	ctx := context.Background()

	intake := strPtr(deptIntake)
	eng := strPtr(deptEng)

	fx.seed(t, repository.StatusPending, intake, nil, false, 4)                          // awaiting triage
	fx.seed(t, repository.StatusInReview, eng, nil, true, 6)                             // awaiting assignment
	fx.seed(t, repository.StatusInProgress, eng, strPtr(userEman), true, 8)              // work overdue
	fx.seed(t, repository.StatusMissingRequirement, eng, strPtr(userEman), true, 8)      // blocked work counts too
	fx.seed(t, repository.StatusInReview, intake, nil, true, 3)                          // final validation overdue
	fresh := fx.seed(t, repository.StatusPending, intake, nil, false, 1)                 // inside the threshold
	fx.seed(t, repository.StatusCompleted, intake, nil, true, 30)                        // terminal, never swept

	result, err := fx.svc.Sweep(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, result.IntakeTriage)
	assert.Equal(t, 1, result.ManagerAssignment)
	assert.Equal(t, 2, result.EmployeeWork)
	assert.Equal(t, 1, result.FinalValidation)
	assert.Equal(t, 5, result.Total())

	assert.Len(t, fx.notifier.byType(EventSLAIntakeAssignPath), 1)
	assert.Len(t, fx.notifier.byType(EventSLAManagerAssign), 1)
	assert.Len(t, fx.notifier.byType(EventSLAEmployeeOverdue), 2)
	assert.Len(t, fx.notifier.byType(EventSLAFinalValidation), 1)

	assert.Nil(t, fresh.SLAReminderSentAt, "fresh requests are not stamped")
}

func TestSLAService_Sweep_ReminderPayload(t *testing.T) {
	fx := newSLAFixture(t)
	ctx := context.Background()

	req := fx.seed(t, repository.StatusPending, strPtr(deptIntake), nil, false, 4)

	_, err := fx.svc.Sweep(ctx)
	require.NoError(t, err)

	events := fx.notifier.byType(EventSLAIntakeAssignPath)
	require.Len(t, events, 1)
	assert.Equal(t, []string{userAmal}, events[0].recipients)
	assert.Equal(t, req.ID, events[0].payload["request_id"])
	assert.Equal(t, 4, events[0].payload["days_waiting"])
	assert.Equal(t, 3, events[0].payload["sla_days"])
}

func TestSLAService_Sweep_Idempotent(t *testing.T) {
	fx := newSLAFixture(t)
	ctx := context.Background()

	fx.seed(t, repository.StatusPending, strPtr(deptIntake), nil, false, 4)

	result, err := fx.svc.Sweep(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, result.Total())

	// A second sweep the same day sends nothing: the reminder stamp is newer
	// than the cutoff.
	result, err = fx.svc.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Total())

	// Once the stamp itself ages past the threshold, the manager is
	// re-reminded.
	fx.now = fx.now.AddDate(0, 0, testThresholds.IntakeReviewDays+1)
	result, err = fx.svc.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Total())
}

func TestSLAService_Sweep_NoIntakeDepartment(t *testing.T) {
	depts := newFakeDepartments()
	depts.add(deptEng, "Engineering", false)
	depts.addMember(deptEng, userBadr, repository.RoleManager)

	store := newFakeStore()
	notifier := &fakeNotifier{}
	svc := NewSLAService(store, depts, notifier, testThresholds, zerolog.Nop())

	now := time.Now()
	svc.now = func() time.Time { return now }

	req := &repository.Request{OwnerUserID: userOmar, Title: "t", Description: "d", Status: repository.StatusDraft}
	require.NoError(t, store.Create(context.Background(), req))
	stored := store.mustGet(req.ID)
	stored.Status = repository.StatusInReview
	eng := deptEng
	path := "path-1"
	stored.CurrentDepartmentID = &eng
	stored.WorkflowPathID = &path
	stored.CurrentStageStartedAt = now.AddDate(0, 0, -10)

	// The intake-bound passes no-op; the department-bound pass still runs.
	result, err := svc.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.IntakeTriage)
	assert.Equal(t, 0, result.FinalValidation)
	assert.Equal(t, 1, result.ManagerAssignment)
}

func TestSLAService_StageChangeClearsReminder(t *testing.T) {
	fx := newSLAFixture(t)
	ctx := context.Background()

	req := fx.seed(t, repository.StatusPending, strPtr(deptIntake), nil, false, 4)

	_, err := fx.svc.Sweep(ctx)
	require.NoError(t, err)
	require.NotNil(t, fx.store.mustGet(req.ID).SLAReminderSentAt)

	// Any stage change resets staleness tracking.
	intake := deptIntake
	_, err = fx.store.ApplyStageChange(ctx, &repository.StageChange{
		RequestID:    req.ID,
		ExpectStatus: repository.StatusPending,
		Status:       repository.StatusInReview,
		DepartmentID: &intake,
		Transition: &repository.Transition{
			RequestID:   req.ID,
			ActorUserID: userAmal,
			Action:      repository.ActionAssignPath,
			FromStatus:  repository.StatusPending,
			ToStatus:    repository.StatusInReview,
		},
	})
	require.NoError(t, err)
	assert.Nil(t, fx.store.mustGet(req.ID).SLAReminderSentAt)
}
