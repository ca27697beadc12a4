package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/tutoring-api/internal/models"
	appErrors "github.com/noah-isme/tutoring-api/pkg/errors"
)

// SubjectRepository manages subjects inside a learning system.
type SubjectRepository struct {
	db *sqlx.DB
}

// NewSubjectRepository constructs a SubjectRepository.
func NewSubjectRepository(db *sqlx.DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

// ListBySystem returns the subjects of a learning system.
func (r *SubjectRepository) ListBySystem(ctx context.Context, systemID string) ([]models.Subject, error) {
	const query = `SELECT id, learning_system_id, name, created_at, updated_at FROM subjects WHERE learning_system_id = $1 ORDER BY name ASC`
	var subjects []models.Subject
	if err := r.db.SelectContext(ctx, &subjects, query, systemID); err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	return subjects, nil
}

// FindByID fetches a subject.
func (r *SubjectRepository) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	const query = `SELECT id, learning_system_id, name, created_at, updated_at FROM subjects WHERE id = $1`
	var subject models.Subject
	if err := r.db.GetContext(ctx, &subject, query, id); err != nil {
		return nil, err
	}
	return &subject, nil
}

// Create inserts a subject.
func (r *SubjectRepository) Create(ctx context.Context, subject *models.Subject) error {
	return insertSubject(ctx, r.db, subject, time.Now().UTC())
}

// Rename changes the subject name.
func (r *SubjectRepository) Rename(ctx context.Context, id, name string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE subjects SET name = $2, updated_at = $3 WHERE id = $1`, id, name, time.Now().UTC())
	if err != nil {
		return translateCatalogError(err, "rename subject", appErrors.ErrSubjectDuplicateName, name)
	}
	return expectAffected(res)
}

// Delete removes a subject and its qualifications.
func (r *SubjectRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM subjects WHERE id = $1`, id)
	if err != nil {
		return translateDeleteError(err, "subject")
	}
	return expectAffected(res)
}
