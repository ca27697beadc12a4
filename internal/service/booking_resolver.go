package service

import (
	"time"

	"github.com/noah-isme/tutoring-api/internal/models"
	appErrors "github.com/noah-isme/tutoring-api/pkg/errors"
)

// BookingCandidate is everything needed to decide whether a booking may be created.
type BookingCandidate struct {
	Student         *models.Student
	Tutor           *models.Tutor
	QualificationID string
	Start           time.Time
	End             time.Time
	Existing        []models.Booking
}

// BookingResolver decides whether a booking can be created. It performs no I/O.
type BookingResolver struct{}

// Check runs the qualification, interest, availability and overlap checks in that order and returns
// the first failure.
func (r BookingResolver) Check(c BookingCandidate) error {
	if !c.Tutor.Teaches(c.QualificationID) {
		return appErrors.Clonef(appErrors.ErrBookingQualificationUnavailable,
			"tutor '%s' does not offer qualification '%s'", c.Tutor.ID, c.QualificationID)
	}
	if !c.Student.InterestedIn(c.QualificationID) {
		return appErrors.Clonef(appErrors.ErrBookingStudentNotInterested,
			"student '%s' is not interested in qualification '%s'", c.Student.ID, c.QualificationID)
	}
	weekly, err := models.NewWeeklyAvailability(c.Tutor.Availabilities)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal, "failed to decode tutor availability")
	}
	return r.CheckSchedule(c.Tutor.ID, weekly, c.Start, c.End, c.Existing)
}

// CheckSchedule runs only the availability and overlap checks.
func (BookingResolver) CheckSchedule(tutorID string, weekly models.WeeklyAvailability, start, end time.Time, existing []models.Booking) error {
	start, end = start.UTC(), end.UTC()
	if !weekly.ContainsBooking(start, end) {
		return appErrors.Clonef(appErrors.ErrBookingTutorNotAvailable,
			"tutor '%s' is not available from %s to %s", tutorID, start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	for _, b := range existing {
		if b.TutorID == tutorID && b.Overlaps(start, end) {
			return appErrors.Clonef(appErrors.ErrBookingOverlapping,
				"tutor '%s' already has booking '%s' from %s to %s", tutorID, b.ID,
				b.StartTime.UTC().Format(time.RFC3339), b.EndTime.UTC().Format(time.RFC3339))
		}
	}
	return nil
}
