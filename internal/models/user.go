package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleAdmin   UserRole = "ADMIN"
	RoleTutor   UserRole = "TUTOR"
	RoleStudent UserRole = "STUDENT"
)

// RoleForKind returns the role granted to a newly registered person.
func RoleForKind(kind PersonKind) UserRole {
	if kind == PersonKindTutor {
		return RoleTutor
	}
	return RoleStudent
}

// Account stores login credentials for a person. Administrators have no person record.
type Account struct {
	ID           string     `db:"id" json:"id"`
	PersonID     *string    `db:"person_id" json:"person_id,omitempty"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	Role         UserRole   `db:"role" json:"role"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}
