package dto

// TimeSlotView renders a slot boundary pair as "HH:mm" strings.
type TimeSlotView struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// DayAvailabilityView lists the slots of one weekday.
type DayAvailabilityView struct {
	Day       string         `json:"day"`
	TimeSlots []TimeSlotView `json:"time_slots"`
}

// TutorAvailabilityResponse is a tutor's weekly availability expressed in the tutor's zone.
type TutorAvailabilityResponse struct {
	TutorID        string                `json:"tutor_id"`
	TimeZone       string                `json:"time_zone"`
	Availabilities []DayAvailabilityView `json:"availabilities"`
}

// TutorRef identifies a tutor in query responses.
type TutorRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// DateAvailabilityView holds the bookable hours of one calendar date.
type DateAvailabilityView struct {
	WeekDay   string         `json:"week_day"`
	TimeSlots []TimeSlotView `json:"time_slots"`
}

// TutorDateAvailabilityResponse lists a tutor's bookable hours on a date, in the viewer's zone.
type TutorDateAvailabilityResponse struct {
	Tutor        TutorRef             `json:"tutor"`
	Availability DateAvailabilityView `json:"availability"`
}

// AvailableTutor is a tutor free at the requested instant.
type AvailableTutor struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	TimeZone   string `json:"time_zone"`
	LocalStart string `json:"local_start"`
	LocalEnd   string `json:"local_end"`
}

// AvailableTutorsResponse answers a search by qualification and instant.
type AvailableTutorsResponse struct {
	QualificationID   string           `json:"qualification_id"`
	QualificationName string           `json:"qualification_name"`
	RequestedStartUTC string           `json:"requested_start_utc"`
	AvailableTutors   []AvailableTutor `json:"available_tutors"`
}
