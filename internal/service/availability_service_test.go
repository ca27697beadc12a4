package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutoring-api/internal/dto"
	"github.com/noah-isme/tutoring-api/internal/models"
	appErrors "github.com/noah-isme/tutoring-api/pkg/errors"
)

type recordingAvailabilityWriter struct {
	calls int
	rows  []models.Availability
	err   error
}

func (w *recordingAvailabilityWriter) ReplaceDays(ctx context.Context, tutorID string, rows []models.Availability) error {
	w.calls++
	w.rows = rows
	return w.err
}

func newAvailabilityFixture(tutor *models.Tutor) (*AvailabilityService, *recordingAvailabilityWriter) {
	people := newStubPeople()
	if tutor != nil {
		people.tutors[tutor.ID] = tutor
	}
	writer := &recordingAvailabilityWriter{}
	return NewAvailabilityService(people, writer, testConverter(), nil, nil), writer
}

func availabilityRequest(day string, slots ...[2]string) models.SetAvailabilityRequest {
	input := models.DayAvailabilityInput{Day: day}
	for _, s := range slots {
		input.TimeSlots = append(input.TimeSlots, models.TimeSlotInput{StartTime: s[0], EndTime: s[1]})
	}
	return models.SetAvailabilityRequest{Availabilities: []models.DayAvailabilityInput{input}}
}

func decodeRow(t *testing.T, row models.Availability) []models.TimeSlot {
	t.Helper()
	slots, err := row.Slots()
	require.NoError(t, err)
	return slots
}

func TestSetTutorAvailabilityRequiresQualifications(t *testing.T) {
	svc, writer := newAvailabilityFixture(newTutor(testTutorID, "Europe/London"))

	_, err := svc.SetTutorAvailability(context.Background(), testTutorID, availabilityRequest("Monday", [2]string{"09:00", "12:00"}))
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrTutorNoQualifications))
	assert.Zero(t, writer.calls)
}

func TestSetTutorAvailabilityUnknownTutor(t *testing.T) {
	svc, writer := newAvailabilityFixture(nil)

	_, err := svc.SetTutorAvailability(context.Background(), testTutorID, availabilityRequest("Monday", [2]string{"09:00", "12:00"}))
	assert.True(t, errors.Is(err, appErrors.ErrTutorNotFound))
	assert.Zero(t, writer.calls)
}

func TestSetTutorAvailabilityStoresUTC(t *testing.T) {
	svc, writer := newAvailabilityFixture(newTutor(testTutorID, "Europe/London", qualification(testQualID, "IGCSE Maths")))

	resp, err := svc.SetTutorAvailability(context.Background(), testTutorID, availabilityRequest("monday", [2]string{"09:00", "12:00"}))
	require.NoError(t, err)

	require.Len(t, writer.rows, 1)
	assert.Equal(t, time.Monday, writer.rows[0].Day)
	assert.Equal(t, testTutorID, writer.rows[0].TutorID)
	assert.Equal(t, []models.TimeSlot{{Start: 8 * time.Hour, End: 11 * time.Hour, LocalDay: time.Monday}}, decodeRow(t, writer.rows[0]))

	assert.Equal(t, "Europe/London", resp.TimeZone)
	assert.Equal(t, []dto.DayAvailabilityView{
		{Day: "Monday", TimeSlots: []dto.TimeSlotView{{StartTime: "09:00", EndTime: "12:00"}}},
	}, resp.Availabilities)
}

func TestSetTutorAvailabilityReplacesOnlyListedDays(t *testing.T) {
	tutor := newTutor(testTutorID, "Europe/London", qualification(testQualID, "IGCSE Maths"))
	tutor.Availabilities = []models.Availability{
		availabilityRow(t, "row-mon", testTutorID, time.Monday, utcSlot(t, 8*time.Hour, 11*time.Hour, time.Monday)),
		availabilityRow(t, "row-tue", testTutorID, time.Tuesday, utcSlot(t, 8*time.Hour, 9*time.Hour, time.Tuesday)),
	}
	svc, writer := newAvailabilityFixture(tutor)

	resp, err := svc.SetTutorAvailability(context.Background(), testTutorID, availabilityRequest("1", [2]string{"13:00", "14:00"}))
	require.NoError(t, err)

	require.Len(t, writer.rows, 1)
	assert.Equal(t, "row-mon", writer.rows[0].ID)
	assert.Equal(t, []models.TimeSlot{{Start: 12 * time.Hour, End: 13 * time.Hour, LocalDay: time.Monday}}, decodeRow(t, writer.rows[0]))

	assert.Equal(t, []dto.DayAvailabilityView{
		{Day: "Monday", TimeSlots: []dto.TimeSlotView{{StartTime: "13:00", EndTime: "14:00"}}},
		{Day: "Tuesday", TimeSlots: []dto.TimeSlotView{{StartTime: "09:00", EndTime: "10:00"}}},
	}, resp.Availabilities)
}

func TestSetTutorAvailabilityKeepsOverlappingSlotsAndMergesDuplicateDays(t *testing.T) {
	svc, writer := newAvailabilityFixture(newTutor(testTutorID, "UTC", qualification(testQualID, "IGCSE Maths")))

	req := models.SetAvailabilityRequest{Availabilities: []models.DayAvailabilityInput{
		{Day: "Wednesday", TimeSlots: []models.TimeSlotInput{{StartTime: "10:00", EndTime: "12:00"}}},
		{Day: "wednesday", TimeSlots: []models.TimeSlotInput{{StartTime: "09:00", EndTime: "11:00"}}},
	}}
	resp, err := svc.SetTutorAvailability(context.Background(), testTutorID, req)
	require.NoError(t, err)

	require.Len(t, writer.rows, 1)
	assert.Len(t, decodeRow(t, writer.rows[0]), 2)
	require.Len(t, resp.Availabilities, 1)
	assert.Equal(t, []dto.TimeSlotView{
		{StartTime: "09:00", EndTime: "11:00"},
		{StartTime: "10:00", EndTime: "12:00"},
	}, resp.Availabilities[0].TimeSlots)
}

func TestSetTutorAvailabilityCrossesUTCMidnight(t *testing.T) {
	svc, writer := newAvailabilityFixture(newTutor(testTutorID, "Asia/Tokyo", qualification(testQualID, "IGCSE Maths")))

	resp, err := svc.SetTutorAvailability(context.Background(), testTutorID, availabilityRequest("Monday", [2]string{"08:00", "10:00"}))
	require.NoError(t, err)

	require.Len(t, writer.rows, 1)
	assert.Equal(t, time.Sunday, writer.rows[0].Day)
	slots := decodeRow(t, writer.rows[0])
	require.Len(t, slots, 1)
	assert.Equal(t, 23*time.Hour, slots[0].Start)
	assert.Equal(t, time.Hour, slots[0].End)
	assert.Equal(t, time.Monday, slots[0].LocalDay)
	assert.True(t, slots[0].Wraps())

	assert.Equal(t, []dto.DayAvailabilityView{
		{Day: "Monday", TimeSlots: []dto.TimeSlotView{{StartTime: "08:00", EndTime: "10:00"}}},
	}, resp.Availabilities)
}

func TestSetTutorAvailabilityAcceptsSlotPastLocalMidnight(t *testing.T) {
	svc, writer := newAvailabilityFixture(newTutor(testTutorID, "Europe/London", qualification(testQualID, "IGCSE Maths")))

	resp, err := svc.SetTutorAvailability(context.Background(), testTutorID, availabilityRequest("Friday", [2]string{"22:00", "26:00"}))
	require.NoError(t, err)

	require.Len(t, writer.rows, 1)
	assert.Equal(t, time.Friday, writer.rows[0].Day)
	assert.Equal(t, []models.TimeSlot{{Start: 21 * time.Hour, End: time.Hour, LocalDay: time.Friday}}, decodeRow(t, writer.rows[0]))
	assert.Equal(t, []dto.DayAvailabilityView{
		{Day: "Friday", TimeSlots: []dto.TimeSlotView{{StartTime: "22:00", EndTime: "02:00"}}},
	}, resp.Availabilities)
}

func TestSetTutorAvailabilityAcceptsWrappedSlot(t *testing.T) {
	svc, writer := newAvailabilityFixture(newTutor(testTutorID, "Europe/London", qualification(testQualID, "IGCSE Maths")))

	resp, err := svc.SetTutorAvailability(context.Background(), testTutorID, availabilityRequest("Friday", [2]string{"22:00", "02:00"}))
	require.NoError(t, err)

	require.Len(t, writer.rows, 1)
	assert.Equal(t, []models.TimeSlot{{Start: 21 * time.Hour, End: time.Hour, LocalDay: time.Friday}}, decodeRow(t, writer.rows[0]))
	require.Len(t, resp.Availabilities, 1)

	// The echoed slot can be submitted again unchanged.
	echoed := resp.Availabilities[0].TimeSlots[0]
	again, err := svc.SetTutorAvailability(context.Background(), testTutorID, availabilityRequest("Friday", [2]string{echoed.StartTime, echoed.EndTime}))
	require.NoError(t, err)
	assert.Equal(t, resp.Availabilities, again.Availabilities)
}

func TestSetTutorAvailabilityEqualBoundsCoverWholeDay(t *testing.T) {
	svc, writer := newAvailabilityFixture(newTutor(testTutorID, "UTC", qualification(testQualID, "IGCSE Maths")))

	_, err := svc.SetTutorAvailability(context.Background(), testTutorID, availabilityRequest("Monday", [2]string{"12:00", "12:00"}))
	require.NoError(t, err)

	require.Len(t, writer.rows, 1)
	slots := decodeRow(t, writer.rows[0])
	require.Len(t, slots, 1)
	assert.Equal(t, 24*time.Hour, slots[0].Span())
}

func TestSetTutorAvailabilityRejectsInvalidSlots(t *testing.T) {
	cases := map[string]models.SetAvailabilityRequest{
		"start after day":   availabilityRequest("Monday", [2]string{"25:00", "26:00"}),
		"longer than a day": availabilityRequest("Monday", [2]string{"08:00", "33:00"}),
		"malformed":         availabilityRequest("Monday", [2]string{"9am", "10:00"}),
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			svc, writer := newAvailabilityFixture(newTutor(testTutorID, "UTC", qualification(testQualID, "IGCSE Maths")))
			_, err := svc.SetTutorAvailability(context.Background(), testTutorID, req)
			assert.True(t, errors.Is(err, appErrors.ErrAvailabilityInvalidSlot), "%v", err)
			assert.Zero(t, writer.calls)
		})
	}
}

func TestSetTutorAvailabilityRejectsUnknownDay(t *testing.T) {
	svc, _ := newAvailabilityFixture(newTutor(testTutorID, "UTC", qualification(testQualID, "IGCSE Maths")))

	_, err := svc.SetTutorAvailability(context.Background(), testTutorID, availabilityRequest("Funday", [2]string{"09:00", "10:00"}))
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.SetTutorAvailability(context.Background(), testTutorID, models.SetAvailabilityRequest{})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestSetTutorAvailabilityPropagatesStoreFailure(t *testing.T) {
	svc, writer := newAvailabilityFixture(newTutor(testTutorID, "UTC", qualification(testQualID, "IGCSE Maths")))
	writer.err = sql.ErrConnDone

	_, err := svc.SetTutorAvailability(context.Background(), testTutorID, availabilityRequest("Monday", [2]string{"09:00", "10:00"}))
	assert.True(t, errors.Is(err, appErrors.ErrInternal))
}
