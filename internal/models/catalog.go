package models

import "time"

// LearningSystem groups subjects under an examination board or curriculum, e.g. "IGCSE".
type LearningSystem struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Subjects  []Subject `db:"-" json:"subjects,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Subject belongs to exactly one learning system.
type Subject struct {
	ID               string          `db:"id" json:"id"`
	LearningSystemID string          `db:"learning_system_id" json:"learning_system_id"`
	Name             string          `db:"name" json:"name"`
	Qualifications   []Qualification `db:"-" json:"qualifications,omitempty"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at" json:"updated_at"`
}

// Qualification is the bookable unit of teaching, e.g. "IGCSE Mathematics (Extended)".
type Qualification struct {
	ID        string    `db:"id" json:"id"`
	SubjectID string    `db:"subject_id" json:"subject_id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// QualificationInput describes a qualification inside a learning system tree. ID is set when an
// existing qualification is being updated.
type QualificationInput struct {
	ID   string `json:"id,omitempty" validate:"omitempty,uuid"`
	Name string `json:"name" validate:"required,min=1,max=100"`
}

// SubjectInput describes a subject inside a learning system tree.
type SubjectInput struct {
	ID             string               `json:"id,omitempty" validate:"omitempty,uuid"`
	Name           string               `json:"name" validate:"required,min=1,max=100"`
	Qualifications []QualificationInput `json:"qualifications" validate:"dive"`
}

// CreateLearningSystemRequest creates a learning system together with its subjects and qualifications.
type CreateLearningSystemRequest struct {
	Name     string         `json:"name" validate:"required,min=2,max=100"`
	Subjects []SubjectInput `json:"subjects" validate:"dive"`
}

// UpdateLearningSystemRequest renames a learning system and reconciles its tree.
type UpdateLearningSystemRequest struct {
	Name     string         `json:"name" validate:"required,min=2,max=100"`
	Subjects []SubjectInput `json:"subjects" validate:"dive"`
}

// NameRequest carries a single name, used to add or rename subjects and qualifications.
type NameRequest struct {
	Name string `json:"name" validate:"required,min=1,max=100"`
}

// SetQualificationsRequest replaces the qualification set of a tutor or student.
type SetQualificationsRequest struct {
	QualificationIDs []string `json:"qualification_ids" validate:"dive,uuid"`
}
