package domain

import "time"

// StaffRole enumerates internal operator roles.
type StaffRole string

const (
	StaffRoleAttendant StaffRole = "ATTENDANT"
	StaffRoleReception StaffRole = "RECEPTION"
	StaffRoleAdmin     StaffRole = "ADMIN"
)

// StaffMember models an attendant, receptionist or administrator.
type StaffMember struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         StaffRole
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
