package models

import "time"

// Role tags carried on User. Only clinicians may manage patients.
const (
	RoleUser      = "user"
	RoleClinician = "clinician"
)

type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"size:80;uniqueIndex;not null" json:"username"`
	Email        string    `gorm:"size:120;uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"size:256;not null" json:"-"`
	Role         string    `gorm:"size:20;not null;default:'user'" json:"role"`
	CreatedAt    time.Time `json:"created_at"`

	Patients []Patient `gorm:"foreignKey:ClinicianID" json:"-"`
}
