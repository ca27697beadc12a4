package dto

import "github.com/noah-isme/tutoring-api/internal/models"

// PersonResponse is returned after registration.
type PersonResponse struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Email      string            `json:"email"`
	TimeZoneID string            `json:"time_zone_id"`
	Kind       models.PersonKind `json:"kind"`
}

// TutorProfile describes a tutor with availability in the tutor's zone.
type TutorProfile struct {
	PersonResponse
	Qualifications []models.Qualification `json:"qualifications"`
	Availabilities []DayAvailabilityView  `json:"availabilities"`
}

// StudentProfile describes a student.
type StudentProfile struct {
	PersonResponse
	Qualifications []models.Qualification `json:"qualifications"`
}

// TutorSummary is a list entry of tutors teaching a qualification.
type TutorSummary struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	TimeZoneID string `json:"time_zone_id"`
}

// NewPersonResponse projects a person record.
func NewPersonResponse(p models.Person) PersonResponse {
	return PersonResponse{ID: p.ID, Name: p.Name, Email: p.Email, TimeZoneID: p.TimeZoneID, Kind: p.Kind}
}
