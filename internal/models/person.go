package models

import "time"

// PersonKind distinguishes the two kinds of people stored in the persons table.
type PersonKind string

const (
	PersonKindTutor   PersonKind = "TUTOR"
	PersonKindStudent PersonKind = "STUDENT"
)

// Person holds the fields shared by tutors and students.
type Person struct {
	ID         string     `db:"id" json:"id"`
	Name       string     `db:"name" json:"name"`
	Email      string     `db:"email" json:"email"`
	TimeZoneID string     `db:"time_zone_id" json:"time_zone_id"`
	Kind       PersonKind `db:"kind" json:"kind"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
}

// Member is either a *Tutor or a *Student. The set is closed: only those two types implement it.
type Member interface {
	Profile() *Person
	member()
}

// Tutor teaches qualifications during weekly availability windows.
type Tutor struct {
	Person
	AvailableQualifications []Qualification `json:"available_qualifications"`
	Availabilities          []Availability  `json:"-"`
}

// Profile implements Member.
func (t *Tutor) Profile() *Person { return &t.Person }
func (*Tutor) member()            {}

// Teaches reports whether the tutor offers the qualification.
func (t *Tutor) Teaches(qualificationID string) bool {
	return containsQualification(t.AvailableQualifications, qualificationID)
}

// Student books sessions for qualifications they are interested in.
type Student struct {
	Person
	InterestedQualifications []Qualification `json:"interested_qualifications"`
}

// Profile implements Member.
func (s *Student) Profile() *Person { return &s.Person }
func (*Student) member()            {}

// InterestedIn reports whether the student follows the qualification.
func (s *Student) InterestedIn(qualificationID string) bool {
	return containsQualification(s.InterestedQualifications, qualificationID)
}

func containsQualification(qualifications []Qualification, id string) bool {
	for _, q := range qualifications {
		if q.ID == id {
			return true
		}
	}
	return false
}

// RegisterPersonRequest registers a tutor or a student with login credentials.
type RegisterPersonRequest struct {
	Name        string `json:"name" validate:"required,min=2,max=50"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8,max=72"`
	CountryCode string `json:"country_code" validate:"required,numeric,len=3"`
	Type        string `json:"type" validate:"required,oneof=tutor student"`
}

// Kind maps the request type onto a PersonKind.
func (r RegisterPersonRequest) Kind() PersonKind {
	if r.Type == "tutor" {
		return PersonKindTutor
	}
	return PersonKindStudent
}
