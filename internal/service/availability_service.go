package service

import (
	"context"
	"database/sql"
	"errors"
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

type availabilityTutorLoader interface {
	FindTutor(ctx context.Context, id string) (*models.Tutor, error)
}

type availabilityWriter interface {
	ReplaceDays(ctx context.Context, tutorID string, rows []models.Availability) error
}

// AvailabilityService publishes the recurring weekly availability of tutors.
type AvailabilityService struct {
	tutors    availabilityTutorLoader
	repo      availabilityWriter
	converter *timezone.Converter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAvailabilityService constructs the service.
func NewAvailabilityService(tutors availabilityTutorLoader, repo availabilityWriter, converter *timezone.Converter, validate *validator.Validate, logger *zap.Logger) *AvailabilityService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if converter == nil {
		converter = timezone.NewConverter(nil, nil, nil)
	}
	return &AvailabilityService{tutors: tutors, repo: repo, converter: converter, validator: validate, logger: logger}
}

type localDaySlots struct {
	day   time.Weekday
	slots []localSlot
}

type localSlot struct {
	start time.Duration
	end   time.Duration
}

// SetTutorAvailability replaces the tutor's slots on every listed local weekday. Days that are not
// listed keep their slots. Slots are converted to UTC and stored under the UTC weekday they start on.
func (s *AvailabilityService) SetTutorAvailability(ctx context.Context, tutorID string, req models.SetAvailabilityRequest) (*dto.TutorAvailabilityResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation, "invalid availability payload")
	}
	days, err := parseDayInputs(req.Availabilities)
	if err != nil {
		return nil, err
	}

	tutor, err := s.tutors.FindTutor(ctx, tutorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clonef(appErrors.ErrTutorNotFound, "tutor with id '%s' was not found", tutorID)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal, "failed to load tutor")
	}
	if len(tutor.AvailableQualifications) == 0 {
		return nil, appErrors.Clonef(appErrors.ErrTutorNoQualifications, "tutor '%s' has no qualifications", tutorID)
	}

	weekly, err := models.NewWeeklyAvailability(tutor.Availabilities)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal, "failed to decode stored availability")
	}

	touched := make(map[time.Weekday]struct{})
	for _, day := range days {
		converted := make([]models.DaySlot, 0, len(day.slots))
		for _, slot := range day.slots {
			ds, err := s.toUTC(tutor.TimeZoneID, day.day, slot)
			if err != nil {
				return nil, err
			}
			converted = append(converted, ds)
		}
		for _, d := range weekly.Replace(day.day, converted) {
			touched[d] = struct{}{}
		}
	}

	existingIDs := make(map[time.Weekday]string, len(tutor.Availabilities))
	for _, row := range tutor.Availabilities {
		existingIDs[row.Day] = row.ID
	}
	rows := make([]models.Availability, 0, len(touched))
	for d := time.Sunday; d <= time.Saturday; d++ {
		if _, ok := touched[d]; !ok {
			continue
		}
		row := models.Availability{ID: existingIDs[d], TutorID: tutorID, Day: d}
		if err := row.SetSlots(weekly.Slots(d)); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal, "failed to encode availability")
		}
		rows = append(rows, row)
	}

	if err := s.repo.ReplaceDays(ctx, tutorID, rows); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal, "failed to save availability")
	}
	s.logger.Info("tutor availability updated",
		zap.String("tutor_id", tutorID),
		zap.Int("local_days", len(days)),
		zap.Int("utc_rows", len(rows)),
	)

	views, err := localAvailabilityView(s.converter, tutor.TimeZoneID, weekly)
	if err != nil {
		return nil, err
	}
	return &dto.TutorAvailabilityResponse{TutorID: tutorID, TimeZone: tutor.TimeZoneID, Availabilities: views}, nil
}

// toUTC anchors a local slot on the next occurrence of its weekday and re-expresses it in UTC.
func (s *AvailabilityService) toUTC(zone string, day time.Weekday, slot localSlot) (models.DaySlot, error) {
	start, err := s.converter.AnchorToUtc(slot.start, zone, day)
	if err != nil {
		return models.DaySlot{}, err
	}
	end, err := s.converter.AnchorToUtc(slot.end, zone, day)
	if err != nil {
		return models.DaySlot{}, err
	}
	span := end.Sub(start)
	if span > timezone.Day {
		span = timezone.Day
	}
	utcStart := timezone.TimeOfDay(start)
	ts, err := models.NewTimeSlot(utcStart, utcStart+span, day)
	if err != nil {
		return models.DaySlot{}, appErrors.Wrap(err, appErrors.ErrAvailabilityInvalidSlot, "time slot collapses across a daylight saving transition")
	}
	return models.DaySlot{Day: start.Weekday(), Slot: ts}, nil
}

// parseDayInputs validates the requested slots. Entries naming the same weekday twice are combined.
func parseDayInputs(inputs []models.DayAvailabilityInput) ([]localDaySlots, error) {
	var days []localDaySlots
	index := make(map[time.Weekday]int)
	for _, in := range inputs {
		day, err := models.ParseWeekday(in.Day)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation, "day must be a weekday name or a number from 0 to 6")
		}
		slots := make([]localSlot, 0, len(in.TimeSlots))
		for _, ts := range in.TimeSlots {
			slot, err := parseLocalSlot(ts)
			if err != nil {
				return nil, err
			}
			slots = append(slots, slot)
		}
		if i, ok := index[day]; ok {
			days[i].slots = append(days[i].slots, slots...)
			continue
		}
		index[day] = len(days)
		days = append(days, localDaySlots{day: day, slots: slots})
	}
	return days, nil
}

func parseLocalSlot(in models.TimeSlotInput) (localSlot, error) {
	start, err := timezone.ParseClock(strings.TrimSpace(in.StartTime))
	if err != nil {
		return localSlot{}, appErrors.Wrap(err, appErrors.ErrAvailabilityInvalidSlot, "start_time must be HH:MM")
	}
	end, err := timezone.ParseClock(strings.TrimSpace(in.EndTime))
	if err != nil {
		return localSlot{}, appErrors.Wrap(err, appErrors.ErrAvailabilityInvalidSlot, "end_time must be HH:MM")
	}
	if start >= timezone.Day {
		return localSlot{}, appErrors.Clonef(appErrors.ErrAvailabilityInvalidSlot, "start_time %s must be before 24:00", in.StartTime)
	}
	// An end at or before the start means the slot runs past midnight.
	if end <= start {
		end += timezone.Day
	}
	if end-start > timezone.Day {
		return localSlot{}, appErrors.Clonef(appErrors.ErrAvailabilityInvalidSlot, "time slot %s-%s is longer than a day", in.StartTime, in.EndTime)
	}
	return localSlot{start: start, end: end}, nil
}

// localAvailabilityView expresses stored UTC slots in zone, grouped by local weekday and sorted by
// start time.
func localAvailabilityView(converter *timezone.Converter, zone string, weekly models.WeeklyAvailability) ([]dto.DayAvailabilityView, error) {
	grouped := make(map[time.Weekday][]localSlot)
	for _, utcDay := range weekly.Days() {
		for _, slot := range weekly.Slots(utcDay) {
			local, err := converter.AnchorFromUtc(slot.Start, zone, utcDay)
			if err != nil {
				return nil, err
			}
			start := timezone.TimeOfDay(local)
			end := start + slot.Span()
			if end > timezone.Day {
				end -= timezone.Day
			}
			grouped[local.Weekday()] = append(grouped[local.Weekday()], localSlot{start: start, end: end})
		}
	}

	views := make([]dto.DayAvailabilityView, 0, len(grouped))
	for d := time.Sunday; d <= time.Saturday; d++ {
		slots, ok := grouped[d]
		if !ok {
			continue
		}
		sort.SliceStable(slots, func(i, j int) bool { return slots[i].start < slots[j].start })
		view := dto.DayAvailabilityView{Day: d.String(), TimeSlots: make([]dto.TimeSlotView, 0, len(slots))}
		for _, slot := range slots {
			view.TimeSlots = append(view.TimeSlots, dto.TimeSlotView{
				StartTime: timezone.FormatClock(slot.start),
				EndTime:   timezone.FormatClock(slot.end),
			})
		}
		views = append(views, view)
	}
	return views, nil
}
