package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/masdar-tech/be-ideas-workflow/internal/apperrors"
	"github.com/masdar-tech/be-ideas-workflow/internal/database"
)

// StageChange is one atomic stage mutation plus the transition record that
// documents it. The update is guarded by the expected status (and optionally
// the expected assignee), so a concurrent actor who already moved the request
// makes this change affect zero rows and fail with a precondition error,
// never silently double-apply.
type StageChange struct {
	RequestID    string
	ExpectStatus Status

	// GuardAssignee, when true, additionally requires current_user_id to
	// still equal ExpectUserID (nil meaning "must be unassigned").
	GuardAssignee bool
	ExpectUserID  *string

	Status       Status
	DepartmentID *string
	UserID       *string

	// Set only when the operation touches them; nil keeps the stored value.
	SetPathID          *string
	SetSubmittedAt     *time.Time
	SetCompletedAt     *time.Time
	SetRejectionReason *string

	// Transition's from/to fields are filled by the caller; id and
	// created_at come from the database.
	Transition *Transition
}

// RequestRepository handles request persistence. Every stage change commits
// the row update and its transition record in one transaction.
type RequestRepository struct {
	db *database.DB
}

// NewRequestRepository creates a new RequestRepository.
func NewRequestRepository(db *database.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

const requestColumns = `
	id, owner_user_id, title, description, benefits, idea_types,
	originating_department_id, status, current_department_id, current_user_id,
	workflow_path_id, current_stage_started_at, sla_reminder_sent_at,
	rejection_reason, submitted_at, completed_at, created_at, updated_at`

// Create inserts a new draft request. Drafts have no department, no assignee
// and no transition record.
func (r *RequestRepository) Create(ctx context.Context, req *Request) error {
	query := `
		INSERT INTO requests (owner_user_id, title, description, benefits, idea_types,
		                      originating_department_id, status, current_stage_started_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING id, current_stage_started_at, created_at, updated_at
	`

	err := r.db.QueryRow(ctx, query,
		req.OwnerUserID,
		req.Title,
		req.Description,
		req.Benefits,
		req.IdeaTypes,
		req.OriginatingDepartmentID,
		req.Status,
	).Scan(&req.ID, &req.CurrentStageStartedAt, &req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeInternal, "failed to create request")
	}
	return nil
}

// GetByID retrieves a request. Soft-deleted drafts are invisible.
func (r *RequestRepository) GetByID(ctx context.Context, id string) (*Request, error) {
	query := `SELECT` + requestColumns + `
		FROM requests
		WHERE id = $1 AND deleted_at IS NULL
	`

	req, err := scanRequest(r.db.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, apperrors.NotFound("request", id)
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to get request")
	}
	return req, nil
}

// UpdateDraft updates the editable content of a draft (or need_more_details)
// request owned by ownerID.
func (r *RequestRepository) UpdateDraft(ctx context.Context, req *Request, ownerID string) error {
	query := `
		UPDATE requests
		SET title       = $3,
		    description = $4,
		    benefits    = $5,
		    idea_types  = $6,
		    originating_department_id = $7,
		    updated_at  = NOW()
		WHERE id = $1 AND owner_user_id = $2
		  AND status IN ('draft', 'need_more_details')
		  AND deleted_at IS NULL
		RETURNING id
	`

	var returnedID string
	err := r.db.QueryRow(ctx, query,
		req.ID, ownerID, req.Title, req.Description, req.Benefits, req.IdeaTypes,
		req.OriginatingDepartmentID,
	).Scan(&returnedID)
	if err == pgx.ErrNoRows {
		return apperrors.NotFound("request", req.ID)
	}
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeInternal, "failed to update draft")
	}
	return nil
}

// SoftDeleteDraft soft-deletes a draft owned by ownerID. Only drafts are
// deletable.
func (r *RequestRepository) SoftDeleteDraft(ctx context.Context, id, ownerID string) error {
	query := `
		UPDATE requests
		SET deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND owner_user_id = $2 AND status = 'draft' AND deleted_at IS NULL
	`

	tag, err := r.db.Exec(ctx, query, id, ownerID)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeInternal, "failed to delete draft")
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("request", id)
	}
	return nil
}

// ApplyStageChange commits a guarded stage mutation and its transition record
// atomically. Stage-start is reset and any pending SLA reminder state is
// cleared, so staleness is always measured against the current stage.
func (r *RequestRepository) ApplyStageChange(ctx context.Context, change *StageChange) (*Request, error) {
	if change.Transition == nil {
		return nil, apperrors.New(apperrors.CodeInternal, "stage change without transition record")
	}

	var updated *Request
	err := r.db.InTransaction(ctx, func(tx pgx.Tx) error {
		query := `
			UPDATE requests
			SET status                   = $3,
			    current_department_id    = $4,
			    current_user_id          = $5,
			    current_stage_started_at = NOW(),
			    sla_reminder_sent_at     = NULL,
			    workflow_path_id         = COALESCE($6, workflow_path_id),
			    submitted_at             = COALESCE($7, submitted_at),
			    completed_at             = COALESCE($8, completed_at),
			    rejection_reason         = COALESCE($9, rejection_reason),
			    updated_at               = NOW()
			WHERE id = $1 AND status = $2 AND deleted_at IS NULL
		`
		args := []any{
			change.RequestID,
			change.ExpectStatus,
			change.Status,
			change.DepartmentID,
			change.UserID,
			change.SetPathID,
			change.SetSubmittedAt,
			change.SetCompletedAt,
			change.SetRejectionReason,
		}
		if change.GuardAssignee {
			query += ` AND current_user_id IS NOT DISTINCT FROM $10`
			args = append(args, change.ExpectUserID)
		}
		query += ` RETURNING` + requestColumns

		req, err := scanRequest(tx.QueryRow(ctx, query, args...))
		if err == pgx.ErrNoRows {
			return apperrors.NotFound("request", change.RequestID)
		}
		if err != nil {
			return apperrors.Wrap(err, apperrors.CodeInternal, "failed to apply stage change")
		}
		updated = req

		t := change.Transition
		insertQuery := `
			INSERT INTO request_transitions
			    (request_id, from_department_id, to_department_id,
			     from_user_id, to_user_id, actor_user_id, action,
			     from_status, to_status, comment_ar, comment_en)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			RETURNING id, created_at
		`
		err = tx.QueryRow(ctx, insertQuery,
			t.RequestID,
			t.FromDepartmentID,
			t.ToDepartmentID,
			t.FromUserID,
			t.ToUserID,
			t.ActorUserID,
			t.Action,
			t.FromStatus,
			t.ToStatus,
			t.CommentAr,
			t.CommentEn,
		).Scan(&t.ID, &t.CreatedAt)
		if err != nil {
			return apperrors.Wrap(err, apperrors.CodeInternal, "failed to record transition")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ── SLA queries ──────────────────────────────────────────────────────────────

// AssigneeFilter narrows stale-request queries by assignment state.
type AssigneeFilter int

const (
	AssigneeAny AssigneeFilter = iota
	AssigneeNone
	AssigneeSet
)

// StaleQuery selects requests whose current stage started at or before Cutoff
// and whose last SLA reminder is absent or at least as old as Cutoff.
type StaleQuery struct {
	Statuses     []Status
	DepartmentID *string
	RequirePath  bool
	Assignee     AssigneeFilter
	Cutoff       time.Time
}

// FindStale returns requests matching the staleness criteria.
func (r *RequestRepository) FindStale(ctx context.Context, q StaleQuery) ([]*Request, error) {
	query := `SELECT` + requestColumns + `
		FROM requests
		WHERE deleted_at IS NULL
		  AND status = ANY($1)
		  AND current_stage_started_at <= $2
		  AND (sla_reminder_sent_at IS NULL OR sla_reminder_sent_at <= $2)
	`

	statuses := make([]string, 0, len(q.Statuses))
	for _, s := range q.Statuses {
		statuses = append(statuses, string(s))
	}
	args := []any{statuses, q.Cutoff}
	argCount := 3

	if q.DepartmentID != nil {
		query += fmt.Sprintf(" AND current_department_id = $%d", argCount)
		args = append(args, *q.DepartmentID)
		argCount++
	}
	if q.RequirePath {
		query += " AND workflow_path_id IS NOT NULL"
	}
	switch q.Assignee {
	case AssigneeNone:
		query += " AND current_user_id IS NULL"
	case AssigneeSet:
		query += " AND current_user_id IS NOT NULL"
	}
	query += " ORDER BY current_stage_started_at ASC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to find stale requests")
	}
	defer rows.Close()

	return scanRequests(rows)
}

// StampReminder records that an SLA reminder was sent for the request. One
// stamp per sweep match, regardless of how many managers were notified.
func (r *RequestRepository) StampReminder(ctx context.Context, id string, at time.Time) error {
	query := `
		UPDATE requests
		SET sla_reminder_sent_at = $2, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`

	_, err := r.db.Exec(ctx, query, id, at)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeInternal, "failed to stamp SLA reminder")
	}
	return nil
}

// ── Listing ──────────────────────────────────────────────────────────────────

// ListByDepartment returns requests currently sitting in a department,
// optionally filtered by status, newest stage first.
func (r *RequestRepository) ListByDepartment(ctx context.Context, departmentID string, status *Status, limit, offset int) ([]*Request, error) {
	query := `SELECT` + requestColumns + `
		FROM requests
		WHERE deleted_at IS NULL AND current_department_id = $1
	`
	args := []any{departmentID}
	argCount := 2

	if status != nil {
		query += fmt.Sprintf(" AND status = $%d", argCount)
		args = append(args, *status)
		argCount++
	}
	query += fmt.Sprintf(" ORDER BY current_stage_started_at DESC LIMIT $%d OFFSET $%d", argCount, argCount+1)
	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to list requests")
	}
	defer rows.Close()

	return scanRequests(rows)
}

// ListByOwner returns a user's own requests, newest first.
func (r *RequestRepository) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*Request, error) {
	query := `SELECT` + requestColumns + `
		FROM requests
		WHERE deleted_at IS NULL AND owner_user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, ownerID, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to list requests")
	}
	defer rows.Close()

	return scanRequests(rows)
}

// ── scan helpers ─────────────────────────────────────────────────────────────

type requestScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row requestScanner) (*Request, error) {
	req := &Request{}
	err := row.Scan(
		&req.ID,
		&req.OwnerUserID,
		&req.Title,
		&req.Description,
		&req.Benefits,
		&req.IdeaTypes,
		&req.OriginatingDepartmentID,
		&req.Status,
		&req.CurrentDepartmentID,
		&req.CurrentUserID,
		&req.WorkflowPathID,
		&req.CurrentStageStartedAt,
		&req.SLAReminderSentAt,
		&req.RejectionReason,
		&req.SubmittedAt,
		&req.CompletedAt,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return req, nil
}

func scanRequests(rows pgx.Rows) ([]*Request, error) {
	var requests []*Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to scan request")
		}
		requests = append(requests, req)
	}
	return requests, nil
}
