package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/masdar-tech/be-ideas-workflow/internal/apperrors"
	"github.com/masdar-tech/be-ideas-workflow/internal/database"
)

// WorkflowPathRepository manages routing templates: ordered department
// sequences a request visits after intake triage. Path + step creation is
// always done together in a single transaction.
type WorkflowPathRepository struct {
	db *database.DB
}

// NewWorkflowPathRepository creates a new WorkflowPathRepository.
func NewWorkflowPathRepository(db *database.DB) *WorkflowPathRepository {
	return &WorkflowPathRepository{db: db}
}

// Create inserts a path and its ordered steps in one transaction. Step order
// is normalized to the 1-based position in the given slice.
func (r *WorkflowPathRepository) Create(ctx context.Context, path *WorkflowPath) error {
	if len(path.Steps) == 0 {
		return apperrors.InvalidInput("steps", "a workflow path requires at least one step")
	}

	return r.db.InTransaction(ctx, func(tx pgx.Tx) error {
		pathQuery := `
			INSERT INTO workflow_paths (name, is_active, position)
			VALUES ($1, $2, $3)
			RETURNING id, created_at, updated_at
		`

		err := tx.QueryRow(ctx, pathQuery, path.Name, path.IsActive, path.Position).
			Scan(&path.ID, &path.CreatedAt, &path.UpdatedAt)
		if err != nil {
			return apperrors.Wrap(err, apperrors.CodeInternal, "failed to create workflow path")
		}

		stepQuery := `
			INSERT INTO workflow_path_steps (path_id, department_id, step_order, requires_approval)
			VALUES ($1, $2, $3, $4)
			RETURNING id, created_at
		`

		for i, step := range path.Steps {
			step.PathID = path.ID
			step.StepOrder = i + 1

			err := tx.QueryRow(ctx, stepQuery,
				step.PathID, step.DepartmentID, step.StepOrder, step.RequiresApproval,
			).Scan(&step.ID, &step.CreatedAt)
			if err != nil {
				return apperrors.Wrap(err, apperrors.CodeInternal, "failed to create workflow path step")
			}
		}
		return nil
	})
}

// GetByID retrieves a path with its steps ordered by step_order.
func (r *WorkflowPathRepository) GetByID(ctx context.Context, id string) (*WorkflowPath, error) {
	query := `
		SELECT id, name, is_active, position, created_at, updated_at
		FROM workflow_paths
		WHERE id = $1
	`

	path := &WorkflowPath{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&path.ID, &path.Name, &path.IsActive, &path.Position, &path.CreatedAt, &path.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, apperrors.NotFound("workflow_path", id)
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to get workflow path")
	}

	steps, err := r.getSteps(ctx, id)
	if err != nil {
		return nil, err
	}
	path.Steps = steps
	return path, nil
}

// List returns active paths ordered by display position, steps included.
func (r *WorkflowPathRepository) List(ctx context.Context) ([]*WorkflowPath, error) {
	query := `
		SELECT id, name, is_active, position, created_at, updated_at
		FROM workflow_paths
		WHERE is_active
		ORDER BY position ASC, name ASC
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to list workflow paths")
	}
	defer rows.Close()

	var paths []*WorkflowPath
	for rows.Next() {
		path := &WorkflowPath{}
		err := rows.Scan(&path.ID, &path.Name, &path.IsActive, &path.Position, &path.CreatedAt, &path.UpdatedAt)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to scan workflow path")
		}
		paths = append(paths, path)
	}
	rows.Close()

	for _, path := range paths {
		steps, err := r.getSteps(ctx, path.ID)
		if err != nil {
			return nil, err
		}
		path.Steps = steps
	}
	return paths, nil
}

func (r *WorkflowPathRepository) getSteps(ctx context.Context, pathID string) ([]*WorkflowPathStep, error) {
	query := `
		SELECT id, path_id, department_id, step_order, requires_approval, created_at
		FROM workflow_path_steps
		WHERE path_id = $1
		ORDER BY step_order ASC
	`

	rows, err := r.db.Query(ctx, query, pathID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to get workflow path steps")
	}
	defer rows.Close()

	var steps []*WorkflowPathStep
	for rows.Next() {
		step := &WorkflowPathStep{}
		err := rows.Scan(&step.ID, &step.PathID, &step.DepartmentID, &step.StepOrder, &step.RequiresApproval, &step.CreatedAt)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to scan workflow path step")
		}
		steps = append(steps, step)
	}
	return steps, nil
}
