package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/courtside/academy-api/internal/models"
)

// StudentRepository reads and updates enrolled students.
type StudentRepository struct {
	db *sqlx.DB
}

func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

func (r *StudentRepository) FindByID(ctx context.Context, id int64) (*models.Student, error) {
	query := `SELECT id, name, parent_id, trial_status FROM student WHERE id = $1`

	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find student %d: %w", id, err)
	}
	return &student, nil
}

// ListIDs returns the ids of all students, ordered ascending.
func (r *StudentRepository) ListIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	if err := r.db.SelectContext(ctx, &ids, "SELECT id FROM student ORDER BY id"); err != nil {
		return nil, fmt.Errorf("list student ids: %w", err)
	}
	return ids, nil
}

func (r *StudentRepository) UpdateTrialStatus(ctx context.Context, id int64, status models.TrialStatus) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE student SET trial_status = $1 WHERE id = $2", string(status), id)
	if err != nil {
		return fmt.Errorf("update trial status for student %d: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update trial status for student %d: %w", id, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
