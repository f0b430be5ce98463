package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/masdar-tech/be-ideas-workflow/internal/apperrors"
	"github.com/masdar-tech/be-ideas-workflow/internal/database"
)

// EvaluationRepository persists both evaluation mechanisms: the weighted
// generic questions answered by the intake department and the per-path
// applied/not-applied checklists answered by department managers.
type EvaluationRepository struct {
	db *database.DB
}

// NewEvaluationRepository creates a new EvaluationRepository.
func NewEvaluationRepository(db *database.DB) *EvaluationRepository {
	return &EvaluationRepository{db: db}
}

// ── Generic question administration ──────────────────────────────────────────

// CreateQuestion inserts a generic evaluation question. The active-question
// weight sum is checked inside the transaction so concurrent admins cannot
// push it past 100; on violation nothing is written.
func (r *EvaluationRepository) CreateQuestion(ctx context.Context, q *EvaluationQuestion) error {
	return r.db.InTransaction(ctx, func(tx pgx.Tx) error {
		if q.IsActive {
			if err := checkWeightCap(ctx, tx, q.Weight, nil); err != nil {
				return err
			}
		}

		query := `
			INSERT INTO evaluation_questions (text, weight, is_active, position)
			VALUES ($1, $2, $3, $4)
			RETURNING id, created_at, updated_at
		`
		err := tx.QueryRow(ctx, query, q.Text, q.Weight, q.IsActive, q.Position).
			Scan(&q.ID, &q.CreatedAt, &q.UpdatedAt)
		if err != nil {
			return apperrors.Wrap(err, apperrors.CodeInternal, "failed to create evaluation question")
		}
		return nil
	})
}

// UpdateQuestion updates a question under the same weight-cap guard.
func (r *EvaluationRepository) UpdateQuestion(ctx context.Context, q *EvaluationQuestion) error {
	return r.db.InTransaction(ctx, func(tx pgx.Tx) error {
		if q.IsActive {
			if err := checkWeightCap(ctx, tx, q.Weight, &q.ID); err != nil {
				return err
			}
		}

		query := `
			UPDATE evaluation_questions
			SET text = $2, weight = $3, is_active = $4, position = $5, updated_at = NOW()
			WHERE id = $1
			RETURNING updated_at
		`
		err := tx.QueryRow(ctx, query, q.ID, q.Text, q.Weight, q.IsActive, q.Position).
			Scan(&q.UpdatedAt)
		if err == pgx.ErrNoRows {
			return apperrors.NotFound("evaluation_question", q.ID)
		}
		if err != nil {
			return apperrors.Wrap(err, apperrors.CodeInternal, "failed to update evaluation question")
		}
		return nil
	})
}

// checkWeightCap fails when adding weight to the other active questions would
// exceed 100. The sum is taken with the rows locked so two concurrent edits
// cannot both pass.
func checkWeightCap(ctx context.Context, tx pgx.Tx, weight int, excludeID *string) error {
	query := `
		SELECT COALESCE(SUM(weight), 0)
		FROM (
			SELECT weight
			FROM evaluation_questions
			WHERE is_active AND ($1::uuid IS NULL OR id <> $1)
			FOR UPDATE
		) active
	`

	var sum int
	if err := tx.QueryRow(ctx, query, excludeID).Scan(&sum); err != nil {
		return apperrors.Wrap(err, apperrors.CodeInternal, "failed to sum question weights")
	}
	if sum+weight > 100 {
		return apperrors.Newf(apperrors.CodeInvalidInput,
			"active question weights would sum to %d, exceeding 100", sum+weight)
	}
	return nil
}

// ActiveQuestions returns active generic questions in display order.
func (r *EvaluationRepository) ActiveQuestions(ctx context.Context) ([]*EvaluationQuestion, error) {
	query := `
		SELECT id, text, weight, is_active, position, created_at, updated_at
		FROM evaluation_questions
		WHERE is_active
		ORDER BY position ASC
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to list evaluation questions")
	}
	defer rows.Close()

	var questions []*EvaluationQuestion
	for rows.Next() {
		q := &EvaluationQuestion{}
		err := rows.Scan(&q.ID, &q.Text, &q.Weight, &q.IsActive, &q.Position, &q.CreatedAt, &q.UpdatedAt)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to scan evaluation question")
		}
		questions = append(questions, q)
	}
	return questions, nil
}

// GetQuestion retrieves one generic question.
func (r *EvaluationRepository) GetQuestion(ctx context.Context, id string) (*EvaluationQuestion, error) {
	query := `
		SELECT id, text, weight, is_active, position, created_at, updated_at
		FROM evaluation_questions
		WHERE id = $1
	`

	q := &EvaluationQuestion{}
	err := r.db.QueryRow(ctx, query, id).
		Scan(&q.ID, &q.Text, &q.Weight, &q.IsActive, &q.Position, &q.CreatedAt, &q.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, apperrors.NotFound("evaluation_question", id)
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to get evaluation question")
	}
	return q, nil
}

// ── Generic answers ──────────────────────────────────────────────────────────

// ReplaceEvaluations deletes all prior generic answers for the request and
// inserts the new set, atomically. Resubmission is a full replace, not a merge.
func (r *EvaluationRepository) ReplaceEvaluations(ctx context.Context, requestID string, evals []*RequestEvaluation) error {
	return r.db.InTransaction(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM request_evaluations WHERE request_id = $1`, requestID); err != nil {
			return apperrors.Wrap(err, apperrors.CodeInternal, "failed to clear prior evaluations")
		}

		query := `
			INSERT INTO request_evaluations (request_id, question_id, answer, score, evaluator_id)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id, created_at
		`

		for _, e := range evals {
			e.RequestID = requestID
			err := tx.QueryRow(ctx, query, e.RequestID, e.QuestionID, e.Answer, e.Score, e.EvaluatorID).
				Scan(&e.ID, &e.CreatedAt)
			if err != nil {
				return apperrors.Wrap(err, apperrors.CodeInternal, "failed to insert evaluation")
			}
		}
		return nil
	})
}

// TotalScore sums the stored scores for a request.
func (r *EvaluationRepository) TotalScore(ctx context.Context, requestID string) (float64, error) {
	var total float64
	err := r.db.QueryRow(ctx,
		`SELECT COALESCE(SUM(score), 0) FROM request_evaluations WHERE request_id = $1`,
		requestID).Scan(&total)
	if err != nil {
		return 0, apperrors.Wrap(err, apperrors.CodeInternal, "failed to total evaluation score")
	}
	return total, nil
}

// ── Path evaluation ──────────────────────────────────────────────────────────

// ActivePathQuestions returns the active checklist questions of a path.
func (r *EvaluationRepository) ActivePathQuestions(ctx context.Context, pathID string) ([]*PathEvaluationQuestion, error) {
	query := `
		SELECT id, path_id, text, position, is_active, created_at
		FROM path_evaluation_questions
		WHERE path_id = $1 AND is_active
		ORDER BY position ASC
	`

	rows, err := r.db.Query(ctx, query, pathID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to list path questions")
	}
	defer rows.Close()

	var questions []*PathEvaluationQuestion
	for rows.Next() {
		q := &PathEvaluationQuestion{}
		err := rows.Scan(&q.ID, &q.PathID, &q.Text, &q.Position, &q.IsActive, &q.CreatedAt)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to scan path question")
		}
		questions = append(questions, q)
	}
	return questions, nil
}

// CreatePathQuestion inserts a checklist question bound to a path.
func (r *EvaluationRepository) CreatePathQuestion(ctx context.Context, q *PathEvaluationQuestion) error {
	query := `
		INSERT INTO path_evaluation_questions (path_id, text, position, is_active)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	err := r.db.QueryRow(ctx, query, q.PathID, q.Text, q.Position, q.IsActive).
		Scan(&q.ID, &q.CreatedAt)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeInternal, "failed to create path question")
	}
	return nil
}

// UpsertPathEvaluation inserts or updates one checklist answer, unique per
// (request, question).
func (r *EvaluationRepository) UpsertPathEvaluation(ctx context.Context, e *PathEvaluation) error {
	query := `
		INSERT INTO path_evaluations (request_id, question_id, is_applied, notes, evaluator_id)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (request_id, question_id) DO UPDATE
		SET is_applied   = EXCLUDED.is_applied,
		    notes        = EXCLUDED.notes,
		    evaluator_id = EXCLUDED.evaluator_id,
		    updated_at   = NOW()
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRow(ctx, query, e.RequestID, e.QuestionID, e.IsApplied, e.Notes, e.EvaluatorID).
		Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeInternal, "failed to upsert path evaluation")
	}
	return nil
}

// PathEvaluations returns the stored checklist answers for a request.
func (r *EvaluationRepository) PathEvaluations(ctx context.Context, requestID string) ([]*PathEvaluation, error) {
	query := `
		SELECT id, request_id, question_id, is_applied, notes, evaluator_id, created_at, updated_at
		FROM path_evaluations
		WHERE request_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.db.Query(ctx, query, requestID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to list path evaluations")
	}
	defer rows.Close()

	var evals []*PathEvaluation
	for rows.Next() {
		e := &PathEvaluation{}
		err := rows.Scan(&e.ID, &e.RequestID, &e.QuestionID, &e.IsApplied, &e.Notes, &e.EvaluatorID, &e.CreatedAt, &e.UpdatedAt)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to scan path evaluation")
		}
		evals = append(evals, e)
	}
	return evals, nil
}
