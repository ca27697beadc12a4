package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/tutoring-api/internal/dto"
	"github.com/noah-isme/tutoring-api/internal/models"
	appErrors "github.com/noah-isme/tutoring-api/pkg/errors"
	"github.com/noah-isme/tutoring-api/pkg/export"
	"github.com/noah-isme/tutoring-api/pkg/middleware/requestid"
	"github.com/noah-isme/tutoring-api/pkg/timezone"
)

type bookingPersonLoader interface {
	FindStudent(ctx context.Context, id string) (*models.Student, error)
	FindTutor(ctx context.Context, id string) (*models.Tutor, error)
}

type bookingQualificationLoader interface {
	FindByID(ctx context.Context, id string) (*models.Qualification, error)
}

type bookingRepository interface {
	ListByTutorBetween(ctx context.Context, tutorID string, from, to time.Time) ([]models.Booking, error)
	CreateExclusive(ctx context.Context, booking *models.Booking) error
	ListDetails(ctx context.Context, filter models.BookingFilter) ([]models.BookingDetail, int, error)
}

type bookingNotifier interface {
	BookingConfirmed(n BookingNotification) error
}

const bookingScope = "booking"

// BookingServiceParams groups constructor dependencies.
type BookingServiceParams struct {
	People         bookingPersonLoader
	Qualifications bookingQualificationLoader
	Bookings       bookingRepository
	Converter      *timezone.Converter
	Idempotency    *IdempotencyStore
	Notifier       bookingNotifier
	Metrics        *MetricsService
	Exporter       *export.Renderer
	Validator      *validator.Validate
	Logger         *zap.Logger
}

// BookingService creates and lists tutoring sessions.
type BookingService struct {
	people         bookingPersonLoader
	qualifications bookingQualificationLoader
	bookings       bookingRepository
	converter      *timezone.Converter
	idempotency    *IdempotencyStore
	notifier       bookingNotifier
	metrics        *MetricsService
	exporter       *export.Renderer
	resolver       BookingResolver
	validator      *validator.Validate
	logger         *zap.Logger
}

// NewBookingService constructs a BookingService with sane defaults.
func NewBookingService(params BookingServiceParams) *BookingService {
	validate := params.Validator
	if validate == nil {
		validate = validator.New()
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	converter := params.Converter
	if converter == nil {
		converter = timezone.NewConverter(nil, nil, nil)
	}
	exporter := params.Exporter
	if exporter == nil {
		exporter = export.NewRenderer()
	}
	return &BookingService{
		people:         params.People,
		qualifications: params.Qualifications,
		bookings:       params.Bookings,
		converter:      converter,
		idempotency:    params.Idempotency,
		notifier:       params.Notifier,
		metrics:        params.Metrics,
		exporter:       exporter,
		validator:      validate,
		logger:         logger,
	}
}

type bookingParties struct {
	student       *models.Student
	tutor         *models.Tutor
	qualification *models.Qualification
}

// CreateBooking books a one-hour session. StartTime is read in the student's zone. When
// idempotencyKey is set, a repeated request from the same student returns the first response.
func (s *BookingService) CreateBooking(ctx context.Context, req models.CreateBookingRequest, idempotencyKey string) (*dto.BookingResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation, "invalid booking payload")
	}
	localStart, err := time.Parse(models.BookingStartLayout, strings.TrimSpace(req.StartTime))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation, "start_time must use the format YYYY-MM-DDTHH:MM")
	}

	var replayed dto.BookingResponse
	if hit, _ := s.idempotency.Replay(ctx, bookingScope, req.StudentID, idempotencyKey, &replayed); hit {
		s.logger.Info("booking replayed from idempotency key", zap.String("booking_id", replayed.ID), zap.String("student_id", req.StudentID))
		return &replayed, nil
	}

	parties, err := s.loadParties(ctx, req)
	if err != nil {
		return nil, s.reject(err)
	}

	start, err := s.converter.ConvertToUtc(localStart, parties.student.TimeZoneID)
	if err != nil {
		return nil, s.reject(err)
	}
	end := start.Add(models.BookingDuration)
	if !start.After(s.converter.Now()) {
		return nil, s.reject(appErrors.Clonef(appErrors.ErrBookingPastStartTime, "start time %s is not in the future", start.Format(time.RFC3339)))
	}

	existing, err := s.bookings.ListByTutorBetween(ctx, req.TutorID, start, end)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal, "failed to load tutor bookings")
	}
	candidate := BookingCandidate{
		Student:         parties.student,
		Tutor:           parties.tutor,
		QualificationID: req.QualificationID,
		Start:           start,
		End:             end,
		Existing:        existing,
	}
	if err := s.resolver.Check(candidate); err != nil {
		return nil, s.reject(err)
	}

	booking := &models.Booking{
		StudentID:       req.StudentID,
		TutorID:         req.TutorID,
		QualificationID: req.QualificationID,
		StartTime:       start,
		EndTime:         end,
	}
	persistStart := time.Now()
	err = s.bookings.CreateExclusive(ctx, booking)
	s.metrics.ObserveDBQuery("booking_create", time.Since(persistStart))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, s.reject(appErrors.Clonef(appErrors.ErrTutorNotFound, "tutor with id '%s' was not found", req.TutorID))
		}
		return nil, s.reject(passThrough(err, "failed to create booking"))
	}
	s.metrics.RecordBookingCreated()

	resp, err := s.buildResponse(booking, parties)
	if err != nil {
		return nil, err
	}
	s.logger.Info("booking created",
		zap.String("request_id", requestid.FromContext(ctx)),
		zap.String("booking_id", booking.ID),
		zap.String("student_id", booking.StudentID),
		zap.String("tutor_id", booking.TutorID),
		zap.Time("start_utc", booking.StartTime),
	)

	s.notify(parties, resp)
	_ = s.idempotency.Remember(ctx, bookingScope, req.StudentID, idempotencyKey, resp)
	return resp, nil
}

// loadParties fetches the student, tutor and qualification concurrently. Not-found errors are
// reported in that order.
func (s *BookingService) loadParties(ctx context.Context, req models.CreateBookingRequest) (*bookingParties, error) {
	var wg sync.WaitGroup
	var parties bookingParties
	var studentErr, tutorErr, qualificationErr error
	wg.Add(3)
	go func() {
		defer wg.Done()
		parties.student, studentErr = s.people.FindStudent(ctx, req.StudentID)
	}()
	go func() {
		defer wg.Done()
		parties.tutor, tutorErr = s.people.FindTutor(ctx, req.TutorID)
	}()
	go func() {
		defer wg.Done()
		parties.qualification, qualificationErr = s.qualifications.FindByID(ctx, req.QualificationID)
	}()
	wg.Wait()

	if err := notFoundOr(studentErr, appErrors.ErrStudentNotFound, "student", req.StudentID); err != nil {
		return nil, err
	}
	if err := notFoundOr(tutorErr, appErrors.ErrTutorNotFound, "tutor", req.TutorID); err != nil {
		return nil, err
	}
	if err := notFoundOr(qualificationErr, appErrors.ErrQualificationNotFound, "qualification", req.QualificationID); err != nil {
		return nil, err
	}
	return &parties, nil
}

func notFoundOr(err error, notFound *appErrors.Error, entity, id string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clonef(notFound, "%s with id '%s' was not found", entity, id)
	}
	return appErrors.Wrap(err, appErrors.ErrInternal, fmt.Sprintf("failed to load %s", entity))
}

// reject counts a refused booking under its error code.
func (s *BookingService) reject(err error) error {
	appErr := appErrors.FromError(err)
	if appErr.Kind != appErrors.KindUnexpected {
		s.metrics.RecordBookingRejected(appErr.Code)
	}
	return appErr
}

func (s *BookingService) buildResponse(b *models.Booking, parties *bookingParties) (*dto.BookingResponse, error) {
	studentStart, err := s.converter.ConvertFromUtc(b.StartTime, parties.student.TimeZoneID)
	if err != nil {
		return nil, err
	}
	tutorStart, err := s.converter.ConvertFromUtc(b.StartTime, parties.tutor.TimeZoneID)
	if err != nil {
		return nil, err
	}
	return &dto.BookingResponse{
		ID:                b.ID,
		StudentID:         b.StudentID,
		TutorID:           b.TutorID,
		QualificationID:   b.QualificationID,
		StartUTC:          b.StartTime.UTC().Format(time.RFC3339),
		EndUTC:            b.EndTime.UTC().Format(time.RFC3339),
		StudentLocalStart: studentStart.Format(time.RFC3339),
		StudentLocalEnd:   b.EndTime.In(studentStart.Location()).Format(time.RFC3339),
		TutorLocalStart:   tutorStart.Format(time.RFC3339),
		TutorLocalEnd:     b.EndTime.In(tutorStart.Location()).Format(time.RFC3339),
		StudentTimeZone:   parties.student.TimeZoneID,
		TutorTimeZone:     parties.tutor.TimeZoneID,
	}, nil
}

func (s *BookingService) notify(parties *bookingParties, resp *dto.BookingResponse) {
	if s.notifier == nil {
		return
	}
	err := s.notifier.BookingConfirmed(BookingNotification{
		BookingID:         resp.ID,
		QualificationName: parties.qualification.Name,
		StudentName:       parties.student.Name,
		StudentEmail:      parties.student.Email,
		StudentZone:       resp.StudentTimeZone,
		StudentLocalStart: resp.StudentLocalStart,
		TutorName:         parties.tutor.Name,
		TutorEmail:        parties.tutor.Email,
		TutorZone:         resp.TutorTimeZone,
		TutorLocalStart:   resp.TutorLocalStart,
	})
	if err != nil {
		s.logger.Warn("failed to queue booking notification", zap.String("booking_id", resp.ID), zap.Error(err))
	}
}

// ListStudentBookings returns a student's bookings with local times in the student's zone.
func (s *BookingService) ListStudentBookings(ctx context.Context, studentID string, filter models.BookingFilter) ([]dto.BookingListItem, *models.Pagination, error) {
	student, err := s.people.FindStudent(ctx, studentID)
	if err := notFoundOr(err, appErrors.ErrStudentNotFound, "student", studentID); err != nil {
		return nil, nil, err
	}
	filter.StudentID, filter.TutorID = student.ID, ""
	return s.list(ctx, filter, student.TimeZoneID)
}

// ListTutorBookings returns a tutor's bookings with local times in the tutor's zone.
func (s *BookingService) ListTutorBookings(ctx context.Context, tutorID string, filter models.BookingFilter) ([]dto.BookingListItem, *models.Pagination, error) {
	tutor, err := s.people.FindTutor(ctx, tutorID)
	if err := notFoundOr(err, appErrors.ErrTutorNotFound, "tutor", tutorID); err != nil {
		return nil, nil, err
	}
	filter.TutorID, filter.StudentID = tutor.ID, ""
	return s.list(ctx, filter, tutor.TimeZoneID)
}

func (s *BookingService) list(ctx context.Context, filter models.BookingFilter, zone string) ([]dto.BookingListItem, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 500 {
		filter.PageSize = 50
	}
	details, total, err := s.bookings.ListDetails(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal, "failed to list bookings")
	}
	loc, err := s.converter.Location(zone)
	if err != nil {
		return nil, nil, err
	}

	items := make([]dto.BookingListItem, 0, len(details))
	for _, d := range details {
		items = append(items, dto.BookingListItem{
			ID:                d.ID,
			StudentID:         d.StudentID,
			StudentName:       d.StudentName,
			TutorID:           d.TutorID,
			TutorName:         d.TutorName,
			QualificationID:   d.QualificationID,
			QualificationName: d.QualificationName,
			StartUTC:          d.StartTime.UTC().Format(time.RFC3339),
			EndUTC:            d.EndTime.UTC().Format(time.RFC3339),
			LocalStart:        d.StartTime.In(loc).Format(time.RFC3339),
			LocalEnd:          d.EndTime.In(loc).Format(time.RFC3339),
		})
	}
	return items, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// ExportTutorBookings renders a tutor's schedule as CSV or PDF.
func (s *BookingService) ExportTutorBookings(ctx context.Context, tutorID, format string, filter models.BookingFilter) (*export.Document, error) {
	f, err := export.ParseFormat(format)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation, "format must be csv or pdf")
	}
	filter.Page, filter.PageSize = 1, 500
	items, _, err := s.ListTutorBookings(ctx, tutorID, filter)
	if err != nil {
		return nil, err
	}

	data := export.Dataset{Headers: []string{"Booking", "Student", "Qualification", "Start (UTC)", "End (UTC)", "Start (local)", "End (local)"}}
	for _, item := range items {
		data.Rows = append(data.Rows, map[string]string{
			"Booking":       item.ID,
			"Student":       item.StudentName,
			"Qualification": item.QualificationName,
			"Start (UTC)":   item.StartUTC,
			"End (UTC)":     item.EndUTC,
			"Start (local)": item.LocalStart,
			"End (local)":   item.LocalEnd,
		})
	}
	doc, err := s.exporter.Render(f, data, "tutor-"+tutorID+"-bookings", "Tutor bookings")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal, "failed to render bookings export")
	}
	return doc, nil
}
