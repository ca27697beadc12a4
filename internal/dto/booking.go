package dto

// BookingResponse confirms a booking in UTC and in both parties' zones.
type BookingResponse struct {
	ID                string `json:"id"`
	StudentID         string `json:"student_id"`
	TutorID           string `json:"tutor_id"`
	QualificationID   string `json:"qualification_id"`
	StartUTC          string `json:"start_utc"`
	EndUTC            string `json:"end_utc"`
	StudentLocalStart string `json:"student_local_start"`
	StudentLocalEnd   string `json:"student_local_end"`
	TutorLocalStart   string `json:"tutor_local_start"`
	TutorLocalEnd     string `json:"tutor_local_end"`
	StudentTimeZone   string `json:"student_time_zone"`
	TutorTimeZone     string `json:"tutor_time_zone"`
}

// BookingListItem is a row of a booking listing.
type BookingListItem struct {
	ID                string `json:"id"`
	StudentID         string `json:"student_id"`
	StudentName       string `json:"student_name"`
	TutorID           string `json:"tutor_id"`
	TutorName         string `json:"tutor_name"`
	QualificationID   string `json:"qualification_id"`
	QualificationName string `json:"qualification_name"`
	StartUTC          string `json:"start_utc"`
	EndUTC            string `json:"end_utc"`
	LocalStart        string `json:"local_start"`
	LocalEnd          string `json:"local_end"`
}
