package models

import "time"

// BookingDuration is the fixed length of every session.
const BookingDuration = time.Hour

// BookingStartLayout is the wall-clock format accepted for requested start times.
const BookingStartLayout = "2006-01-02T15:04"

// Booking is a confirmed session. StartTime and EndTime are always UTC.
type Booking struct {
	ID              string    `db:"id" json:"id"`
	StudentID       string    `db:"student_id" json:"student_id"`
	TutorID         string    `db:"tutor_id" json:"tutor_id"`
	QualificationID string    `db:"qualification_id" json:"qualification_id"`
	StartTime       time.Time `db:"start_time" json:"start_time"`
	EndTime         time.Time `db:"end_time" json:"end_time"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// Overlaps reports whether the booking intersects the half-open interval [start, end).
func (b Booking) Overlaps(start, end time.Time) bool {
	return b.StartTime.Before(end) && b.EndTime.After(start)
}

// BookingDetail is a booking joined with the names of everything it references.
type BookingDetail struct {
	Booking
	StudentName       string `db:"student_name" json:"student_name"`
	StudentTimeZone   string `db:"student_time_zone" json:"student_time_zone"`
	TutorName         string `db:"tutor_name" json:"tutor_name"`
	TutorTimeZone     string `db:"tutor_time_zone" json:"tutor_time_zone"`
	QualificationName string `db:"qualification_name" json:"qualification_name"`
}

// BookingFilter narrows booking listings.
type BookingFilter struct {
	StudentID string
	TutorID   string
	From      *time.Time
	To        *time.Time
	Page      int
	PageSize  int
}

// CreateBookingRequest asks for a one-hour session. StartTime is wall-clock time in the student's zone.
type CreateBookingRequest struct {
	StudentID       string `json:"student_id" validate:"required,uuid"`
	TutorID         string `json:"tutor_id" validate:"required,uuid"`
	QualificationID string `json:"qualification_id" validate:"required,uuid"`
	StartTime       string `json:"start_time" validate:"required"`
}

// FindAvailableTutorsRequest searches tutors free at one instant for a qualification.
type FindAvailableTutorsRequest struct {
	QualificationID string `form:"-" validate:"required,uuid"`
	Start           string `form:"start" validate:"required"`
	TimeZone        string `form:"time_zone"`
}

// FindTutorAvailabilityRequest lists a tutor's bookable hours on one calendar date.
type FindTutorAvailabilityRequest struct {
	TutorID  string `form:"-" validate:"required,uuid"`
	Year     int    `form:"year" validate:"gt=2000"`
	Month    int    `form:"month" validate:"min=1,max=12"`
	Day      int    `form:"day" validate:"min=1,max=31"`
	TimeZone string `form:"time_zone" validate:"required"`
}
