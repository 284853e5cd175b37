package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/memo-edu/memo-api/internal/models"
)

// ProfileRepository persists user academic profiles.
type ProfileRepository struct {
	db *sqlx.DB
}

// NewProfileRepository creates a new repository instance.
func NewProfileRepository(db *sqlx.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// FindByUser returns the user's academic profile or sql.ErrNoRows.
func (r *ProfileRepository) FindByUser(ctx context.Context, userID int64) (*models.AcademicProfile, error) {
	const query = `SELECT user_id, academic_year_id, academic_stream_id, created_at, updated_at FROM user_academic_profiles WHERE user_id = $1`
	var profile models.AcademicProfile
	if err := r.db.GetContext(ctx, &profile, query, userID); err != nil {
		return nil, err
	}
	return &profile, nil
}

// Upsert creates or replaces the user's academic profile.
func (r *ProfileRepository) Upsert(ctx context.Context, profile *models.AcademicProfile) error {
	now := time.Now().UTC()
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}
	profile.UpdatedAt = now

	const query = `INSERT INTO user_academic_profiles (user_id, academic_year_id, academic_stream_id, created_at, updated_at)
VALUES (:user_id, :academic_year_id, :academic_stream_id, :created_at, :updated_at)
ON CONFLICT (user_id) DO UPDATE SET academic_year_id = EXCLUDED.academic_year_id, academic_stream_id = EXCLUDED.academic_stream_id, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, profile); err != nil {
		return fmt.Errorf("upsert academic profile: %w", err)
	}
	return nil
}
