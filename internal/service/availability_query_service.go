package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/tutoring-api/internal/dto"
	"github.com/noah-isme/tutoring-api/internal/models"
	appErrors "github.com/noah-isme/tutoring-api/pkg/errors"
	"github.com/noah-isme/tutoring-api/pkg/timezone"
)

type availabilityQueryPeople interface {
	FindTutor(ctx context.Context, id string) (*models.Tutor, error)
	ListTutorsByQualification(ctx context.Context, qualificationID string) ([]models.Tutor, error)
}

type availabilityQueryBookings interface {
	ListByTutorBetween(ctx context.Context, tutorID string, from, to time.Time) ([]models.Booking, error)
	ListByTutorsBetween(ctx context.Context, tutorIDs []string, from, to time.Time) (map[string][]models.Booking, error)
}

// AvailabilityQueryService answers "who is free" and "when is this tutor free" questions.
type AvailabilityQueryService struct {
	people         availabilityQueryPeople
	qualifications bookingQualificationLoader
	bookings       availabilityQueryBookings
	converter      *timezone.Converter
	resolver       BookingResolver
	validator      *validator.Validate
	logger         *zap.Logger
}

// NewAvailabilityQueryService constructs the service.
func NewAvailabilityQueryService(people availabilityQueryPeople, qualifications bookingQualificationLoader, bookings availabilityQueryBookings, converter *timezone.Converter, validate *validator.Validate, logger *zap.Logger) *AvailabilityQueryService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if converter == nil {
		converter = timezone.NewConverter(nil, nil, nil)
	}
	return &AvailabilityQueryService{
		people:         people,
		qualifications: qualifications,
		bookings:       bookings,
		converter:      converter,
		validator:      validate,
		logger:         logger,
	}
}

// FindAvailableTutors lists the tutors offering a qualification who could take a one-hour session
// starting at req.Start, read in req.TimeZone (UTC when empty).
func (s *AvailabilityQueryService) FindAvailableTutors(ctx context.Context, req models.FindAvailableTutorsRequest) (*dto.AvailableTutorsResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation, "invalid available tutors query")
	}
	local, err := time.Parse(models.BookingStartLayout, strings.TrimSpace(req.Start))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation, "start must use the format YYYY-MM-DDTHH:MM")
	}
	zone := strings.TrimSpace(req.TimeZone)
	if zone == "" {
		zone = "UTC"
	}
	start, err := s.converter.ConvertToUtc(local, zone)
	if err != nil {
		return nil, err
	}
	if !start.After(s.converter.Now()) {
		return nil, appErrors.Clonef(appErrors.ErrBookingPastStartTime, "start time %s is not in the future", start.Format(time.RFC3339))
	}
	end := start.Add(models.BookingDuration)

	qualification, err := s.qualifications.FindByID(ctx, req.QualificationID)
	if err := notFoundOr(err, appErrors.ErrQualificationNotFound, "qualification", req.QualificationID); err != nil {
		return nil, err
	}

	tutors, err := s.people.ListTutorsByQualification(ctx, req.QualificationID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal, "failed to list tutors")
	}
	ids := make([]string, len(tutors))
	for i, t := range tutors {
		ids[i] = t.ID
	}
	booked, err := s.bookings.ListByTutorsBetween(ctx, ids, start, end)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal, "failed to load bookings")
	}

	available := make([]dto.AvailableTutor, 0, len(tutors))
	for _, tutor := range tutors {
		weekly, err := models.NewWeeklyAvailability(tutor.Availabilities)
		if err != nil {
			s.logger.Warn("skipping tutor with unreadable availability", zap.String("tutor_id", tutor.ID), zap.Error(err))
			continue
		}
		if s.resolver.CheckSchedule(tutor.ID, weekly, start, end, booked[tutor.ID]) != nil {
			continue
		}
		loc, err := s.converter.Location(tutor.TimeZoneID)
		if err != nil {
			s.logger.Warn("skipping tutor with invalid time zone", zap.String("tutor_id", tutor.ID), zap.Error(err))
			continue
		}
		available = append(available, dto.AvailableTutor{
			ID:         tutor.ID,
			Name:       tutor.Name,
			TimeZone:   tutor.TimeZoneID,
			LocalStart: start.In(loc).Format(time.RFC3339),
			LocalEnd:   end.In(loc).Format(time.RFC3339),
		})
	}

	return &dto.AvailableTutorsResponse{
		QualificationID:   qualification.ID,
		QualificationName: qualification.Name,
		RequestedStartUTC: start.Format(time.RFC3339),
		AvailableTutors:   available,
	}, nil
}

type hourWindow struct {
	start time.Time
	end   time.Time
}

// FindTutorAvailability lists the free one-hour windows of a tutor on a calendar date of the viewer's
// zone. Stored slots are cut into hours from their start; the last window of a slot may be shorter.
func (s *AvailabilityQueryService) FindTutorAvailability(ctx context.Context, req models.FindTutorAvailabilityRequest) (*dto.TutorDateAvailabilityResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation, "invalid tutor availability query")
	}
	date := time.Date(req.Year, time.Month(req.Month), req.Day, 0, 0, 0, 0, time.UTC)
	if date.Year() != req.Year || int(date.Month()) != req.Month || date.Day() != req.Day {
		return nil, appErrors.Clonef(appErrors.ErrValidation, "%04d-%02d-%02d is not a valid date", req.Year, req.Month, req.Day)
	}
	loc, err := s.converter.Location(req.TimeZone)
	if err != nil {
		return nil, err
	}

	tutor, err := s.people.FindTutor(ctx, req.TutorID)
	if err := notFoundOr(err, appErrors.ErrTutorNotFound, "tutor", req.TutorID); err != nil {
		return nil, err
	}
	weekly, err := models.NewWeeklyAvailability(tutor.Availabilities)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal, "failed to decode tutor availability")
	}

	windowStart, err := s.converter.ConvertToUtc(date, req.TimeZone)
	if err != nil {
		return nil, err
	}
	windowEnd, err := s.converter.ConvertToUtc(date.AddDate(0, 0, 1), req.TimeZone)
	if err != nil {
		return nil, err
	}
	bookings, err := s.bookings.ListByTutorBetween(ctx, tutor.ID, windowStart, windowEnd.Add(models.BookingDuration))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal, "failed to load bookings")
	}

	var windows []hourWindow
	firstDay := time.Date(windowStart.Year(), windowStart.Month(), windowStart.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
	for day := firstDay; day.Before(windowEnd); day = day.AddDate(0, 0, 1) {
		for _, slot := range weekly.Slots(day.Weekday()) {
			occStart := day.Add(slot.Start)
			occEnd := occStart.Add(slot.Span())
			if !occEnd.After(windowStart) || !occStart.Before(windowEnd) {
				continue
			}
			windows = append(windows, splitHours(occStart, occEnd)...)
		}
	}

	seen := make(map[string]struct{})
	var free []hourWindow
	for _, w := range windows {
		if overlapsAny(w, bookings) {
			continue
		}
		localStart := w.start.In(loc)
		y, m, d := localStart.Date()
		if y != req.Year || int(m) != req.Month || d != req.Day {
			continue
		}
		key := w.start.Format(time.RFC3339) + "/" + w.end.Format(time.RFC3339)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		free = append(free, w)
	}
	sort.Slice(free, func(i, j int) bool {
		if free[i].start.Equal(free[j].start) {
			return free[i].end.Before(free[j].end)
		}
		return free[i].start.Before(free[j].start)
	})

	slots := make([]dto.TimeSlotView, 0, len(free))
	for _, w := range free {
		slots = append(slots, dto.TimeSlotView{
			StartTime: w.start.In(loc).Format("15:04"),
			EndTime:   w.end.In(loc).Format("15:04"),
		})
	}
	return &dto.TutorDateAvailabilityResponse{
		Tutor: dto.TutorRef{ID: tutor.ID, Name: tutor.Name},
		Availability: dto.DateAvailabilityView{
			WeekDay:   date.Weekday().String(),
			TimeSlots: slots,
		},
	}, nil
}

func splitHours(start, end time.Time) []hourWindow {
	var out []hourWindow
	for t := start; t.Before(end); t = t.Add(models.BookingDuration) {
		next := t.Add(models.BookingDuration)
		if next.After(end) {
			next = end
		}
		out = append(out, hourWindow{start: t, end: next})
	}
	return out
}

func overlapsAny(w hourWindow, bookings []models.Booking) bool {
	for _, b := range bookings {
		if b.Overlaps(w.start, w.end) {
			return true
		}
	}
	return false
}
