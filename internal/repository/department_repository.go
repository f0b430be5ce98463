package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/masdar-tech/be-ideas-workflow/internal/apperrors"
	"github.com/masdar-tech/be-ideas-workflow/internal/database"
)

// DepartmentRepository manages the department directory and role-tagged
// memberships. It also backs the service-layer Authorizer.
type DepartmentRepository struct {
	db *database.DB
}

// NewDepartmentRepository creates a new DepartmentRepository.
func NewDepartmentRepository(db *database.DB) *DepartmentRepository {
	return &DepartmentRepository{db: db}
}

const departmentColumns = `id, name, code, is_active, is_intake, created_at, updated_at`

// Create inserts a department.
func (r *DepartmentRepository) Create(ctx context.Context, d *Department) error {
	query := `
		INSERT INTO departments (name, code, is_active, is_intake)
		VALUES ($1, $2, $3, FALSE)
		RETURNING id, is_intake, created_at, updated_at
	`

	err := r.db.QueryRow(ctx, query, d.Name, d.Code, d.IsActive).
		Scan(&d.ID, &d.IsIntake, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeInternal, "failed to create department")
	}
	return nil
}

// GetByID retrieves a department.
func (r *DepartmentRepository) GetByID(ctx context.Context, id string) (*Department, error) {
	query := `SELECT ` + departmentColumns + ` FROM departments WHERE id = $1`

	d, err := scanDepartment(r.db.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, apperrors.NotFound("department", id)
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to get department")
	}
	return d, nil
}

// IntakeDepartment resolves the single department flagged as intake. Returns
// an invariant error when none is configured.
func (r *DepartmentRepository) IntakeDepartment(ctx context.Context) (*Department, error) {
	query := `SELECT ` + departmentColumns + ` FROM departments WHERE is_intake AND is_active LIMIT 1`

	d, err := scanDepartment(r.db.QueryRow(ctx, query))
	if err == pgx.ErrNoRows {
		return nil, apperrors.New(apperrors.CodeInvariant, "no intake department is configured")
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to resolve intake department")
	}
	return d, nil
}

// SetIntake marks one department as the intake department, clearing the flag
// on all other rows in the same transaction so at most one ever carries it.
func (r *DepartmentRepository) SetIntake(ctx context.Context, id string) error {
	return r.db.InTransaction(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `UPDATE departments SET is_intake = FALSE, updated_at = NOW() WHERE is_intake`); err != nil {
			return apperrors.Wrap(err, apperrors.CodeInternal, "failed to clear intake flag")
		}

		tag, err := tx.Exec(ctx, `UPDATE departments SET is_intake = TRUE, updated_at = NOW() WHERE id = $1 AND is_active`, id)
		if err != nil {
			return apperrors.Wrap(err, apperrors.CodeInternal, "failed to set intake flag")
		}
		if tag.RowsAffected() == 0 {
			return apperrors.NotFound("department", id)
		}
		return nil
	})
}

// List returns departments, optionally only active ones.
func (r *DepartmentRepository) List(ctx context.Context, activeOnly bool) ([]*Department, error) {
	query := `SELECT ` + departmentColumns + ` FROM departments`
	if activeOnly {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY name ASC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to list departments")
	}
	defer rows.Close()

	var departments []*Department
	for rows.Next() {
		d, err := scanDepartment(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to scan department")
		}
		departments = append(departments, d)
	}
	return departments, nil
}

// ── Membership ───────────────────────────────────────────────────────────────

// AddMember upserts a user's role within a department.
func (r *DepartmentRepository) AddMember(ctx context.Context, departmentID, userID string, role Role) error {
	query := `
		INSERT INTO department_members (department_id, user_id, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (department_id, user_id) DO UPDATE SET role = EXCLUDED.role
	`

	if _, err := r.db.Exec(ctx, query, departmentID, userID, role); err != nil {
		return apperrors.Wrap(err, apperrors.CodeInternal, "failed to add department member")
	}
	return nil
}

// RemoveMember removes a user from a department.
func (r *DepartmentRepository) RemoveMember(ctx context.Context, departmentID, userID string) error {
	if _, err := r.db.Exec(ctx,
		`DELETE FROM department_members WHERE department_id = $1 AND user_id = $2`,
		departmentID, userID); err != nil {
		return apperrors.Wrap(err, apperrors.CodeInternal, "failed to remove department member")
	}
	return nil
}

// IsMember reports whether the user holds the given role in the department.
func (r *DepartmentRepository) IsMember(ctx context.Context, departmentID, userID string, role Role) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM department_members
			WHERE department_id = $1 AND user_id = $2 AND role = $3
		)
	`

	var exists bool
	if err := r.db.QueryRow(ctx, query, departmentID, userID, role).Scan(&exists); err != nil {
		return false, apperrors.Wrap(err, apperrors.CodeInternal, "failed to check membership")
	}
	return exists, nil
}

// Managers returns the user IDs of a department's managers.
func (r *DepartmentRepository) Managers(ctx context.Context, departmentID string) ([]string, error) {
	query := `
		SELECT user_id FROM department_members
		WHERE department_id = $1 AND role = $2
		ORDER BY user_id
	`

	rows, err := r.db.Query(ctx, query, departmentID, RoleManager)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to list managers")
	}
	defer rows.Close()

	var managers []string
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to scan manager")
		}
		managers = append(managers, userID)
	}
	return managers, nil
}

// ── scan helper ──────────────────────────────────────────────────────────────

type departmentScanner interface {
	Scan(dest ...any) error
}

func scanDepartment(row departmentScanner) (*Department, error) {
	d := &Department{}
	err := row.Scan(&d.ID, &d.Name, &d.Code, &d.IsActive, &d.IsIntake, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return d, nil
}
