package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/courtside/academy-api/internal/models"
)

// CourtRepository reads registered court locations.
type CourtRepository struct {
	db *sqlx.DB
}

func NewCourtRepository(db *sqlx.DB) *CourtRepository {
	return &CourtRepository{db: db}
}

func (r *CourtRepository) FindByID(ctx context.Context, id int64) (*models.Court, error) {
	query := `SELECT id, court_name, address, latitude, longitude FROM court WHERE id = $1`

	var court models.Court
	if err := r.db.GetContext(ctx, &court, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find court %d: %w", id, err)
	}
	return &court, nil
}
