package models

import "time"

type Patient struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	FirstName   string    `gorm:"size:50;not null" json:"first_name"`
	LastName    string    `gorm:"size:50;not null" json:"last_name"`
	DateOfBirth time.Time `gorm:"not null" json:"-"`
	Gender      *string   `gorm:"size:20" json:"gender"`
	Email       *string   `gorm:"size:120" json:"email"`
	Phone       *string   `gorm:"size:20" json:"phone"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	ClinicianID uint `gorm:"not null;index" json:"clinician_id"`
	Clinician   User `gorm:"foreignKey:ClinicianID" json:"-"`

	Analyses []Analysis `gorm:"foreignKey:PatientID;constraint:OnDelete:CASCADE" json:"-"`
}

// OwnerID implements policy.Ownable.
func (p *Patient) OwnerID() uint { return p.ClinicianID }
