package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/tutoring-api/internal/models"
	appErrors "github.com/noah-isme/tutoring-api/pkg/errors"
)

type qualificationRepository interface {
	ListBySubject(ctx context.Context, subjectID string) ([]models.Qualification, error)
	FindByID(ctx context.Context, id string) (*models.Qualification, error)
	Create(ctx context.Context, q *models.Qualification) error
	Rename(ctx context.Context, id, name string) error
	Delete(ctx context.Context, id string) error
}

type qualificationSubjectLookup interface {
	FindByID(ctx context.Context, id string) (*models.Subject, error)
}

// QualificationService handles the bookable qualifications of a subject.
type QualificationService struct {
	repo      qualificationRepository
	subjects  qualificationSubjectLookup
	validator *validator.Validate
	logger    *zap.Logger
}

// NewQualificationService creates a new qualification service.
func NewQualificationService(repo qualificationRepository, subjects qualificationSubjectLookup, validate *validator.Validate, logger *zap.Logger) *QualificationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QualificationService{repo: repo, subjects: subjects, validator: validate, logger: logger}
}

// List returns the qualifications of a subject.
func (s *QualificationService) List(ctx context.Context, subjectID string) ([]models.Qualification, error) {
	if err := s.ensureSubject(ctx, subjectID); err != nil {
		return nil, err
	}
	quals, err := s.repo.ListBySubject(ctx, subjectID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal, "failed to list qualifications")
	}
	if quals == nil {
		quals = []models.Qualification{}
	}
	return quals, nil
}

// Get returns a qualification.
func (s *QualificationService) Get(ctx context.Context, id string) (*models.Qualification, error) {
	q, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clonef(appErrors.ErrQualificationNotFound, "qualification with id '%s' was not found", id)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal, "failed to load qualification")
	}
	return q, nil
}

// Add creates a qualification under a subject.
func (s *QualificationService) Add(ctx context.Context, subjectID string, req models.NameRequest) (*models.Qualification, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation, "invalid qualification payload")
	}
	if err := s.ensureSubject(ctx, subjectID); err != nil {
		return nil, err
	}

	q := &models.Qualification{SubjectID: subjectID, Name: strings.TrimSpace(req.Name)}
	if err := s.repo.Create(ctx, q); err != nil {
		return nil, passThrough(err, "failed to create qualification")
	}
	return q, nil
}

// Update renames a qualification.
func (s *QualificationService) Update(ctx context.Context, id string, req models.NameRequest) (*models.Qualification, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation, "invalid qualification payload")
	}
	if err := s.repo.Rename(ctx, id, strings.TrimSpace(req.Name)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clonef(appErrors.ErrQualificationNotFound, "qualification with id '%s' was not found", id)
		}
		return nil, passThrough(err, "failed to update qualification")
	}
	return s.Get(ctx, id)
}

// Remove deletes a qualification. Qualifications referenced by bookings cannot be removed.
func (s *QualificationService) Remove(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clonef(appErrors.ErrQualificationNotFound, "qualification with id '%s' was not found", id)
		}
		return passThrough(err, "failed to delete qualification")
	}
	return nil
}

func (s *QualificationService) ensureSubject(ctx context.Context, subjectID string) error {
	if _, err := s.subjects.FindByID(ctx, subjectID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clonef(appErrors.ErrSubjectNotFound, "subject with id '%s' was not found", subjectID)
		}
		return appErrors.Wrap(err, appErrors.ErrInternal, "failed to load subject")
	}
	return nil
}
