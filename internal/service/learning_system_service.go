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

type learningSystemRepository interface {
	List(ctx context.Context) ([]models.LearningSystem, error)
	FindTree(ctx context.Context, id string) (*models.LearningSystem, error)
	CreateTree(ctx context.Context, system *models.LearningSystem) error
	UpdateTree(ctx context.Context, system *models.LearningSystem) error
	Delete(ctx context.Context, id string) error
}

// LearningSystemService manages learning systems and their subject and qualification trees.
type LearningSystemService struct {
	repo      learningSystemRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewLearningSystemService creates a new learning system service.
func NewLearningSystemService(repo learningSystemRepository, validate *validator.Validate, logger *zap.Logger) *LearningSystemService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LearningSystemService{repo: repo, validator: validate, logger: logger}
}

// List returns every learning system without subjects.
func (s *LearningSystemService) List(ctx context.Context) ([]models.LearningSystem, error) {
	systems, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal, "failed to list learning systems")
	}
	if systems == nil {
		systems = []models.LearningSystem{}
	}
	return systems, nil
}

// Get returns a learning system with its full tree.
func (s *LearningSystemService) Get(ctx context.Context, id string) (*models.LearningSystem, error) {
	system, err := s.repo.FindTree(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clonef(appErrors.ErrLearningSystemNotFound, "learning system with id '%s' was not found", id)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal, "failed to load learning system")
	}
	return system, nil
}

// Create inserts a learning system together with its subjects and qualifications.
func (s *LearningSystemService) Create(ctx context.Context, req models.CreateLearningSystemRequest) (*models.LearningSystem, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation, "invalid learning system payload")
	}
	system := &models.LearningSystem{Name: strings.TrimSpace(req.Name), Subjects: buildSubjects(req.Subjects)}
	if err := validateTreeNames(system); err != nil {
		return nil, err
	}

	if err := s.repo.CreateTree(ctx, system); err != nil {
		return nil, s.translateWriteError(err, "failed to create learning system")
	}
	s.logger.Info("learning system created", zap.String("learning_system_id", system.ID), zap.Int("subjects", len(system.Subjects)))
	return system, nil
}

// Update renames a learning system and reconciles its tree with the request.
func (s *LearningSystemService) Update(ctx context.Context, id string, req models.UpdateLearningSystemRequest) (*models.LearningSystem, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation, "invalid learning system payload")
	}
	system := &models.LearningSystem{ID: id, Name: strings.TrimSpace(req.Name), Subjects: buildSubjects(req.Subjects)}
	if err := validateTreeNames(system); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateTree(ctx, system); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clonef(appErrors.ErrLearningSystemNotFound, "learning system with id '%s' was not found", id)
		}
		return nil, s.translateWriteError(err, "failed to update learning system")
	}
	return s.Get(ctx, id)
}

// Delete removes a learning system and everything below it.
func (s *LearningSystemService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clonef(appErrors.ErrLearningSystemNotFound, "learning system with id '%s' was not found", id)
		}
		return s.translateWriteError(err, "failed to delete learning system")
	}
	return nil
}

func (s *LearningSystemService) translateWriteError(err error, message string) error {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		s.logger.Warn("learning system write aborted", zap.Error(err))
	}
	return appErrors.Wrap(err, appErrors.ErrInternal, message)
}

func buildSubjects(inputs []models.SubjectInput) []models.Subject {
	subjects := make([]models.Subject, 0, len(inputs))
	for _, in := range inputs {
		subject := models.Subject{ID: in.ID, Name: strings.TrimSpace(in.Name)}
		for _, q := range in.Qualifications {
			subject.Qualifications = append(subject.Qualifications, models.Qualification{ID: q.ID, Name: strings.TrimSpace(q.Name)})
		}
		subjects = append(subjects, subject)
	}
	return subjects
}

// validateTreeNames rejects duplicate names inside one request before touching the database.
func validateTreeNames(system *models.LearningSystem) error {
	subjects := make(map[string]struct{}, len(system.Subjects))
	for _, subject := range system.Subjects {
		key := strings.ToLower(subject.Name)
		if _, ok := subjects[key]; ok {
			return appErrors.Clonef(appErrors.ErrSubjectDuplicateName, "subject '%s' appears more than once", subject.Name)
		}
		subjects[key] = struct{}{}

		qualifications := make(map[string]struct{}, len(subject.Qualifications))
		for _, q := range subject.Qualifications {
			key := strings.ToLower(q.Name)
			if _, ok := qualifications[key]; ok {
				return appErrors.Clonef(appErrors.ErrQualificationDuplicateName, "qualification '%s' appears more than once in subject '%s'", q.Name, subject.Name)
			}
			qualifications[key] = struct{}{}
		}
	}
	return nil
}
