package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/masdar-tech/be-ideas-workflow/internal/apperrors"
	"github.com/masdar-tech/be-ideas-workflow/internal/database"
)

// TransitionRepository reads the append-only transition log. Inserts happen
// only inside RequestRepository.ApplyStageChange, in the same transaction as
// the request mutation; the table carries a delete-prevention trigger.
type TransitionRepository struct {
	db *database.DB
}

// NewTransitionRepository creates a new TransitionRepository.
func NewTransitionRepository(db *database.DB) *TransitionRepository {
	return &TransitionRepository{db: db}
}

const transitionColumns = `
	id, request_id, from_department_id, to_department_id,
	from_user_id, to_user_id, actor_user_id, action,
	from_status, to_status, comment_ar, comment_en, created_at`

// ListByRequest returns the full transition history of a request,
// oldest-first. The ordered sequence reconstructs the request's history
// deterministically.
func (r *TransitionRepository) ListByRequest(ctx context.Context, requestID string) ([]*Transition, error) {
	query := `SELECT` + transitionColumns + `
		FROM request_transitions
		WHERE request_id = $1
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.db.Query(ctx, query, requestID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to get transition history")
	}
	defer rows.Close()

	return scanTransitions(rows)
}

// LatestReturnSource resolves where a request in the intake department came
// from: the most recent transition with action=complete that landed on the
// intake department with a non-null from-department. Returns nil when no such
// transition exists; the caller treats that as an invariant violation, not a
// not-found.
func (r *TransitionRepository) LatestReturnSource(ctx context.Context, requestID, intakeDepartmentID string) (*string, error) {
	query := `
		SELECT from_department_id
		FROM request_transitions
		WHERE request_id = $1
		  AND action = $2
		  AND to_department_id = $3
		  AND from_department_id IS NOT NULL
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`

	var fromDepartmentID *string
	err := r.db.QueryRow(ctx, query, requestID, ActionComplete, intakeDepartmentID).Scan(&fromDepartmentID)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to resolve previous department")
	}
	return fromDepartmentID, nil
}

// ── scan helpers ─────────────────────────────────────────────────────────────

type transitionScanner interface {
	Scan(dest ...any) error
}

func scanTransition(row transitionScanner) (*Transition, error) {
	t := &Transition{}
	err := row.Scan(
		&t.ID,
		&t.RequestID,
		&t.FromDepartmentID,
		&t.ToDepartmentID,
		&t.FromUserID,
		&t.ToUserID,
		&t.ActorUserID,
		&t.Action,
		&t.FromStatus,
		&t.ToStatus,
		&t.CommentAr,
		&t.CommentEn,
		&t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func scanTransitions(rows pgx.Rows) ([]*Transition, error) {
	var transitions []*Transition
	for rows.Next() {
		t, err := scanTransition(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to scan transition")
		}
		transitions = append(transitions, t)
	}
	return transitions, nil
}
