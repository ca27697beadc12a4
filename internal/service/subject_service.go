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

type subjectRepository interface {
	ListBySystem(ctx context.Context, systemID string) ([]models.Subject, error)
	FindByID(ctx context.Context, id string) (*models.Subject, error)
	Create(ctx context.Context, subject *models.Subject) error
	Rename(ctx context.Context, id, name string) error
	Delete(ctx context.Context, id string) error
}

type subjectSystemLookup interface {
	FindByID(ctx context.Context, id string) (*models.LearningSystem, error)
}

// SubjectService handles subjects inside a learning system.
type SubjectService struct {
	repo      subjectRepository
	systems   subjectSystemLookup
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSubjectService creates a new subject service.
func NewSubjectService(repo subjectRepository, systems subjectSystemLookup, validate *validator.Validate, logger *zap.Logger) *SubjectService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubjectService{repo: repo, systems: systems, validator: validate, logger: logger}
}

// List returns the subjects of a learning system.
func (s *SubjectService) List(ctx context.Context, systemID string) ([]models.Subject, error) {
	if err := s.ensureSystem(ctx, systemID); err != nil {
		return nil, err
	}
	subjects, err := s.repo.ListBySystem(ctx, systemID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal, "failed to list subjects")
	}
	if subjects == nil {
		subjects = []models.Subject{}
	}
	return subjects, nil
}

// Add creates a subject under a learning system.
func (s *SubjectService) Add(ctx context.Context, systemID string, req models.NameRequest) (*models.Subject, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation, "invalid subject payload")
	}
	if err := s.ensureSystem(ctx, systemID); err != nil {
		return nil, err
	}

	subject := &models.Subject{LearningSystemID: systemID, Name: strings.TrimSpace(req.Name)}
	if err := s.repo.Create(ctx, subject); err != nil {
		return nil, passThrough(err, "failed to create subject")
	}
	return subject, nil
}

// Update renames a subject.
func (s *SubjectService) Update(ctx context.Context, id string, req models.NameRequest) (*models.Subject, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation, "invalid subject payload")
	}
	if err := s.repo.Rename(ctx, id, strings.TrimSpace(req.Name)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clonef(appErrors.ErrSubjectNotFound, "subject with id '%s' was not found", id)
		}
		return nil, passThrough(err, "failed to update subject")
	}
	subject, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal, "failed to load subject")
	}
	return subject, nil
}

// Remove deletes a subject and its qualifications.
func (s *SubjectService) Remove(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clonef(appErrors.ErrSubjectNotFound, "subject with id '%s' was not found", id)
		}
		return passThrough(err, "failed to delete subject")
	}
	return nil
}

func (s *SubjectService) ensureSystem(ctx context.Context, systemID string) error {
	if _, err := s.systems.FindByID(ctx, systemID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clonef(appErrors.ErrLearningSystemNotFound, "learning system with id '%s' was not found", systemID)
		}
		return appErrors.Wrap(err, appErrors.ErrInternal, "failed to load learning system")
	}
	return nil
}

// passThrough keeps typed errors raised by repositories and wraps anything else as internal.
func passThrough(err error, message string) error {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return appErrors.Wrap(err, appErrors.ErrInternal, message)
}
