package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/courtside/academy-api/internal/models"
)

// SubscriptionRepository reads the session-package catalog.
type SubscriptionRepository struct {
	db *sqlx.DB
}

func NewSubscriptionRepository(db *sqlx.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// FindActiveByStudent returns the student's first active, non-deleted
// subscription, or sql.ErrNoRows when none exists.
func (r *SubscriptionRepository) FindActiveByStudent(ctx context.Context, studentID int64) (*models.Subscription, error) {
	query := `SELECT subscription_id, student_id, package_id, quantity, start_date, status, deleted
		FROM subscription
		WHERE student_id = $1 AND status = 1 AND deleted = 0
		ORDER BY subscription_id
		LIMIT 1`

	var sub models.Subscription
	if err := r.db.GetContext(ctx, &sub, query, studentID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find subscription for student %d: %w", studentID, err)
	}
	return &sub, nil
}

func (r *SubscriptionRepository) GetPackage(ctx context.Context, packageID int64) (*models.Package, error) {
	query := `SELECT package_id, package_name, quantity FROM package WHERE package_id = $1`

	var pkg models.Package
	if err := r.db.GetContext(ctx, &pkg, query, packageID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get package %d: %w", packageID, err)
	}
	return &pkg, nil
}
