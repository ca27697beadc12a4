package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/tutoring-api/internal/dto"
	"github.com/noah-isme/tutoring-api/internal/models"
	appErrors "github.com/noah-isme/tutoring-api/pkg/errors"
	"github.com/noah-isme/tutoring-api/pkg/timezone"
)

type personRepository interface {
	FindMember(ctx context.Context, id string) (models.Member, error)
	FindTutor(ctx context.Context, id string) (*models.Tutor, error)
	FindStudent(ctx context.Context, id string) (*models.Student, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	CreateWithAccount(ctx context.Context, person *models.Person, account *models.Account) error
	ReplaceTutorQualifications(ctx context.Context, tutorID string, qualificationIDs []string) error
	ReplaceStudentQualifications(ctx context.Context, studentID string, qualificationIDs []string) error
	ListTutorsByQualification(ctx context.Context, qualificationID string) ([]models.Tutor, error)
}

type personQualificationLookup interface {
	FindByID(ctx context.Context, id string) (*models.Qualification, error)
	CountExisting(ctx context.Context, ids []string) (int, error)
}

// PersonService registers tutors and students and manages their qualifications.
type PersonService struct {
	repo           personRepository
	qualifications personQualificationLookup
	converter      *timezone.Converter
	validator      *validator.Validate
	logger         *zap.Logger
	bcryptCost     int
}

// NewPersonService constructs the service.
func NewPersonService(repo personRepository, qualifications personQualificationLookup, converter *timezone.Converter, validate *validator.Validate, logger *zap.Logger) *PersonService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if converter == nil {
		converter = timezone.NewConverter(nil, nil, nil)
	}
	return &PersonService{
		repo:           repo,
		qualifications: qualifications,
		converter:      converter,
		validator:      validate,
		logger:         logger,
		bcryptCost:     bcrypt.DefaultCost,
	}
}

// Register creates a tutor or student with a login account. The time zone comes from the country code.
func (s *PersonService) Register(ctx context.Context, req models.RegisterPersonRequest) (*dto.PersonResponse, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation, "invalid registration payload")
	}

	zone, ok := s.converter.GetTimeZoneByCountryCode(req.CountryCode)
	if !ok {
		return nil, appErrors.Clonef(appErrors.ErrPersonInvalidCountry, "country code '%s' does not map to a time zone", req.CountryCode)
	}
	if err := s.converter.Validate(zone); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersonInvalidCountry, "country code maps to an unknown time zone")
	}

	exists, err := s.repo.EmailExists(ctx, req.Email)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal, "failed to check email")
	}
	if exists {
		return nil, appErrors.Clonef(appErrors.ErrPersonDuplicateEmail, "email '%s' is already registered", req.Email)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal, "failed to hash password")
	}

	kind := req.Kind()
	person := &models.Person{
		ID:         uuid.NewString(),
		Name:       req.Name,
		Email:      req.Email,
		TimeZoneID: zone,
		Kind:       kind,
	}
	account := &models.Account{
		ID:           uuid.NewString(),
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         models.RoleForKind(kind),
	}
	if err := s.repo.CreateWithAccount(ctx, person, account); err != nil {
		return nil, passThrough(err, "failed to register person")
	}

	s.logger.Info("person registered", zap.String("person_id", person.ID), zap.String("kind", string(kind)), zap.String("time_zone", zone))
	resp := dto.NewPersonResponse(*person)
	return &resp, nil
}

// GetProfile resolves a person of either kind and returns the matching profile.
func (s *PersonService) GetProfile(ctx context.Context, id string) (interface{}, error) {
	member, err := s.repo.FindMember(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clonef(appErrors.ErrNotFound, "person with id '%s' was not found", id)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal, "failed to load person")
	}
	switch m := member.(type) {
	case *models.Tutor:
		return s.tutorProfile(m)
	case *models.Student:
		return studentProfile(m), nil
	default:
		return nil, appErrors.Clonef(appErrors.ErrInternal, "person '%s' has an unsupported kind", id)
	}
}

// GetTutorProfile returns a tutor with qualifications and availability in the tutor's zone.
func (s *PersonService) GetTutorProfile(ctx context.Context, id string) (*dto.TutorProfile, error) {
	tutor, err := s.repo.FindTutor(ctx, id)
	if err := notFoundOr(err, appErrors.ErrTutorNotFound, "tutor", id); err != nil {
		return nil, err
	}
	return s.tutorProfile(tutor)
}

// GetStudentProfile returns a student with the qualifications they follow.
func (s *PersonService) GetStudentProfile(ctx context.Context, id string) (*dto.StudentProfile, error) {
	student, err := s.repo.FindStudent(ctx, id)
	if err := notFoundOr(err, appErrors.ErrStudentNotFound, "student", id); err != nil {
		return nil, err
	}
	return studentProfile(student), nil
}

// SetTutorQualifications replaces the qualifications a tutor offers.
func (s *PersonService) SetTutorQualifications(ctx context.Context, tutorID string, req models.SetQualificationsRequest) (*dto.TutorProfile, error) {
	ids, err := s.checkQualifications(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := s.repo.ReplaceTutorQualifications(ctx, tutorID, ids); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clonef(appErrors.ErrTutorNotFound, "tutor with id '%s' was not found", tutorID)
		}
		return nil, passThrough(err, "failed to update tutor qualifications")
	}
	return s.GetTutorProfile(ctx, tutorID)
}

// SetStudentQualifications replaces the qualifications a student is interested in.
func (s *PersonService) SetStudentQualifications(ctx context.Context, studentID string, req models.SetQualificationsRequest) (*dto.StudentProfile, error) {
	ids, err := s.checkQualifications(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := s.repo.ReplaceStudentQualifications(ctx, studentID, ids); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clonef(appErrors.ErrStudentNotFound, "student with id '%s' was not found", studentID)
		}
		return nil, passThrough(err, "failed to update student qualifications")
	}
	return s.GetStudentProfile(ctx, studentID)
}

// ListTutorsByQualification lists the tutors offering a qualification.
func (s *PersonService) ListTutorsByQualification(ctx context.Context, qualificationID string) ([]dto.TutorSummary, error) {
	_, err := s.qualifications.FindByID(ctx, qualificationID)
	if err := notFoundOr(err, appErrors.ErrQualificationNotFound, "qualification", qualificationID); err != nil {
		return nil, err
	}
	tutors, err := s.repo.ListTutorsByQualification(ctx, qualificationID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal, "failed to list tutors")
	}
	out := make([]dto.TutorSummary, 0, len(tutors))
	for _, t := range tutors {
		out = append(out, dto.TutorSummary{ID: t.ID, Name: t.Name, TimeZoneID: t.TimeZoneID})
	}
	return out, nil
}

func (s *PersonService) checkQualifications(ctx context.Context, req models.SetQualificationsRequest) ([]string, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrQualificationInvalid, "qualification ids must be UUIDs")
	}
	seen := make(map[string]struct{}, len(req.QualificationIDs))
	ids := make([]string, 0, len(req.QualificationIDs))
	for _, id := range req.QualificationIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return ids, nil
	}
	count, err := s.qualifications.CountExisting(ctx, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal, "failed to check qualifications")
	}
	if count != len(ids) {
		return nil, appErrors.Clonef(appErrors.ErrQualificationInvalid, "%d of %d qualification ids do not exist", len(ids)-count, len(ids))
	}
	return ids, nil
}

func (s *PersonService) tutorProfile(tutor *models.Tutor) (*dto.TutorProfile, error) {
	weekly, err := models.NewWeeklyAvailability(tutor.Availabilities)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal, "failed to decode tutor availability")
	}
	views, err := localAvailabilityView(s.converter, tutor.TimeZoneID, weekly)
	if err != nil {
		return nil, err
	}
	quals := tutor.AvailableQualifications
	if quals == nil {
		quals = []models.Qualification{}
	}
	return &dto.TutorProfile{
		PersonResponse: dto.NewPersonResponse(tutor.Person),
		Qualifications: quals,
		Availabilities: views,
	}, nil
}

func studentProfile(student *models.Student) *dto.StudentProfile {
	quals := student.InterestedQualifications
	if quals == nil {
		quals = []models.Qualification{}
	}
	return &dto.StudentProfile{
		PersonResponse: dto.NewPersonResponse(student.Person),
		Qualifications: quals,
	}
}
