package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/tutoring-api/internal/models"
	appErrors "github.com/noah-isme/tutoring-api/pkg/errors"
)

// QualificationRepository manages qualifications of a subject.
type QualificationRepository struct {
	db *sqlx.DB
}

// NewQualificationRepository constructs a QualificationRepository.
func NewQualificationRepository(db *sqlx.DB) *QualificationRepository {
	return &QualificationRepository{db: db}
}

// ListBySubject returns the qualifications of a subject.
func (r *QualificationRepository) ListBySubject(ctx context.Context, subjectID string) ([]models.Qualification, error) {
	const query = `SELECT id, subject_id, name, created_at, updated_at FROM qualifications WHERE subject_id = $1 ORDER BY name ASC`
	var qualifications []models.Qualification
	if err := r.db.SelectContext(ctx, &qualifications, query, subjectID); err != nil {
		return nil, fmt.Errorf("list qualifications: %w", err)
	}
	return qualifications, nil
}

// FindByID fetches a qualification.
func (r *QualificationRepository) FindByID(ctx context.Context, id string) (*models.Qualification, error) {
	const query = `SELECT id, subject_id, name, created_at, updated_at FROM qualifications WHERE id = $1`
	var q models.Qualification
	if err := r.db.GetContext(ctx, &q, query, id); err != nil {
		return nil, err
	}
	return &q, nil
}

// CountExisting returns how many of ids exist.
func (r *QualificationRepository) CountExisting(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM qualifications WHERE id = ANY($1)`, pq.Array(ids)); err != nil {
		return 0, fmt.Errorf("count qualifications: %w", err)
	}
	return count, nil
}

// Create inserts a qualification.
func (r *QualificationRepository) Create(ctx context.Context, q *models.Qualification) error {
	return insertQualification(ctx, r.db, q, time.Now().UTC())
}

// Rename changes the qualification name.
func (r *QualificationRepository) Rename(ctx context.Context, id, name string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE qualifications SET name = $2, updated_at = $3 WHERE id = $1`, id, name, time.Now().UTC())
	if err != nil {
		return translateCatalogError(err, "rename qualification", appErrors.ErrQualificationDuplicateName, name)
	}
	return expectAffected(res)
}

// Delete removes a qualification.
func (r *QualificationRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM qualifications WHERE id = $1`, id)
	if err != nil {
		return translateDeleteError(err, "qualification")
	}
	return expectAffected(res)
}
