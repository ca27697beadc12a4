package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutoring-api/internal/dto"
	"github.com/noah-isme/tutoring-api/internal/models"
	appErrors "github.com/noah-isme/tutoring-api/pkg/errors"
)

func newQueryFixture(t *testing.T) (*AvailabilityQueryService, *stubPeople, *stubBookings) {
	t.Helper()
	maths := qualification(testQualID, "IGCSE Maths")
	people := newStubPeople()

	// London Monday 09:00-17:00 local.
	london := newTutor(testTutorID, "Europe/London", maths)
	london.Availabilities = []models.Availability{
		availabilityRow(t, "row-1", testTutorID, time.Monday, utcSlot(t, 8*time.Hour, 16*time.Hour, time.Monday)),
	}
	people.tutors[testTutorID] = london

	utc := newTutor(otherTutorID, "UTC", maths)
	utc.Availabilities = []models.Availability{
		availabilityRow(t, "row-2", otherTutorID, time.Monday, utcSlot(t, 8*time.Hour, 17*time.Hour, time.Monday)),
	}
	people.tutors[otherTutorID] = utc

	physicsTutor := newTutor("77777777-7777-4777-8777-777777777777", "UTC", qualification(otherQualID, "A-Level Physics"))
	people.tutors[physicsTutor.ID] = physicsTutor

	bookings := &stubBookings{}
	svc := NewAvailabilityQueryService(people, newStubQualifications(maths, qualification(otherQualID, "A-Level Physics")), bookings, testConverter(), nil, nil)
	return svc, people, bookings
}

func hourlyViews(hours ...int) []dto.TimeSlotView {
	views := make([]dto.TimeSlotView, 0, len(hours))
	for _, h := range hours {
		views = append(views, dto.TimeSlotView{
			StartTime: time.Date(2000, 1, 1, h, 0, 0, 0, time.UTC).Format("15:04"),
			EndTime:   time.Date(2000, 1, 1, h+1, 0, 0, 0, time.UTC).Format("15:04"),
		})
	}
	return views
}

func TestFindTutorAvailabilityListsHourlyWindows(t *testing.T) {
	svc, _, bookings := newQueryFixture(t)

	req := models.FindTutorAvailabilityRequest{TutorID: testTutorID, Year: 2023, Month: 6, Day: 5, TimeZone: "Europe/London"}
	resp, err := svc.FindTutorAvailability(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, dto.TutorRef{ID: testTutorID, Name: "Tutor 2222"}, resp.Tutor)
	assert.Equal(t, "Monday", resp.Availability.WeekDay)
	assert.Equal(t, hourlyViews(9, 10, 11, 12, 13, 14, 15, 16), resp.Availability.TimeSlots)

	bookings.bookings = []models.Booking{{ID: "b1", TutorID: testTutorID, StartTime: utcAt(5, 11, 0), EndTime: utcAt(5, 12, 0)}}
	resp, err = svc.FindTutorAvailability(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, hourlyViews(9, 10, 11, 13, 14, 15, 16), resp.Availability.TimeSlots)
	assert.Equal(t, utcAt(4, 23, 0), bookings.lastWindow[0])
}

func TestFindTutorAvailabilityInViewerZone(t *testing.T) {
	svc, _, _ := newQueryFixture(t)

	req := models.FindTutorAvailabilityRequest{TutorID: testTutorID, Year: 2023, Month: 6, Day: 5, TimeZone: "Asia/Tokyo"}
	resp, err := svc.FindTutorAvailability(context.Background(), req)
	require.NoError(t, err)

	slots := resp.Availability.TimeSlots
	require.Len(t, slots, 7)
	assert.Equal(t, dto.TimeSlotView{StartTime: "17:00", EndTime: "18:00"}, slots[0])
	assert.Equal(t, dto.TimeSlotView{StartTime: "23:00", EndTime: "00:00"}, slots[6])

	req.Day = 6
	resp, err = svc.FindTutorAvailability(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "Tuesday", resp.Availability.WeekDay)
	assert.Equal(t, []dto.TimeSlotView{{StartTime: "00:00", EndTime: "01:00"}}, resp.Availability.TimeSlots)
}

func TestFindTutorAvailabilityRejectsBadInput(t *testing.T) {
	svc, _, _ := newQueryFixture(t)

	_, err := svc.FindTutorAvailability(context.Background(), models.FindTutorAvailabilityRequest{TutorID: testTutorID, Year: 2023, Month: 2, Day: 30, TimeZone: "UTC"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.FindTutorAvailability(context.Background(), models.FindTutorAvailabilityRequest{TutorID: testTutorID, Year: 2023, Month: 6, Day: 5, TimeZone: "Mars/Olympus"})
	assert.True(t, errors.Is(err, appErrors.ErrInvalidTimeZone))

	_, err = svc.FindTutorAvailability(context.Background(), models.FindTutorAvailabilityRequest{TutorID: testStudentID, Year: 2023, Month: 6, Day: 5, TimeZone: "UTC"})
	assert.True(t, errors.Is(err, appErrors.ErrTutorNotFound))
}

func TestFindAvailableTutors(t *testing.T) {
	svc, _, bookings := newQueryFixture(t)
	bookings.bookings = []models.Booking{{ID: "b1", TutorID: otherTutorID, StartTime: utcAt(5, 10, 0), EndTime: utcAt(5, 11, 0)}}

	resp, err := svc.FindAvailableTutors(context.Background(), models.FindAvailableTutorsRequest{
		QualificationID: testQualID,
		Start:           "2023-06-05T11:00",
		TimeZone:        "Europe/London",
	})
	require.NoError(t, err)
	assert.Equal(t, "IGCSE Maths", resp.QualificationName)
	assert.Equal(t, "2023-06-05T10:00:00Z", resp.RequestedStartUTC)
	require.Len(t, resp.AvailableTutors, 1)
	assert.Equal(t, dto.AvailableTutor{
		ID:         testTutorID,
		Name:       "Tutor 2222",
		TimeZone:   "Europe/London",
		LocalStart: "2023-06-05T11:00:00+01:00",
		LocalEnd:   "2023-06-05T12:00:00+01:00",
	}, resp.AvailableTutors[0])
}

func TestFindAvailableTutorsDefaultsToUTC(t *testing.T) {
	svc, _, _ := newQueryFixture(t)

	resp, err := svc.FindAvailableTutors(context.Background(), models.FindAvailableTutorsRequest{QualificationID: testQualID, Start: "2023-06-05T16:00"})
	require.NoError(t, err)
	require.Len(t, resp.AvailableTutors, 1)
	assert.Equal(t, otherTutorID, resp.AvailableTutors[0].ID)

	resp, err = svc.FindAvailableTutors(context.Background(), models.FindAvailableTutorsRequest{QualificationID: testQualID, Start: "2023-06-06T16:00"})
	require.NoError(t, err)
	assert.Empty(t, resp.AvailableTutors)
}

func TestFindAvailableTutorsUnknownQualification(t *testing.T) {
	svc, _, _ := newQueryFixture(t)

	_, err := svc.FindAvailableTutors(context.Background(), models.FindAvailableTutorsRequest{
		QualificationID: "66666666-6666-4666-8666-666666666666",
		Start:           "2023-06-05T11:00",
	})
	assert.True(t, errors.Is(err, appErrors.ErrQualificationNotFound))

	_, err = svc.FindAvailableTutors(context.Background(), models.FindAvailableTutorsRequest{QualificationID: testQualID, Start: "tomorrow"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestFindAvailableTutorsRejectsPastStart(t *testing.T) {
	svc, _, _ := newQueryFixture(t)

	for _, start := range []string{"2023-05-29T11:00", "2023-06-01T00:00"} {
		_, err := svc.FindAvailableTutors(context.Background(), models.FindAvailableTutorsRequest{QualificationID: testQualID, Start: start})
		assert.True(t, errors.Is(err, appErrors.ErrBookingPastStartTime), "%s: %v", start, err)
	}

	// 2023-06-01 01:30 in Tokyo is still the previous evening in UTC.
	_, err := svc.FindAvailableTutors(context.Background(), models.FindAvailableTutorsRequest{
		QualificationID: testQualID,
		Start:           "2023-06-01T01:30",
		TimeZone:        "Asia/Tokyo",
	})
	assert.True(t, errors.Is(err, appErrors.ErrBookingPastStartTime), "%v", err)
}
