package models

import (
	"time"

	"gorm.io/datatypes"
)

// Analysis type tags, decided from the uploaded filename suffix.
const (
	AnalysisTypeImage = "image"
	AnalysisTypeVideo = "video"
)

// Analysis lifecycle states.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Analysis is one entry in the per-patient ledger. ClinicianID duplicates the
// owning patient's clinician for O(1) authorization; it is copied from the
// loaded Patient row inside the creating transaction and never taken from
// request input, keeping it equal to Patient.ClinicianID at all times.
type Analysis struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	PatientID    uint           `gorm:"not null;index" json:"patient_id"`
	Patient      Patient        `gorm:"foreignKey:PatientID;constraint:OnDelete:CASCADE" json:"-"`
	ClinicianID  uint           `gorm:"not null;index" json:"clinician_id"`
	AnalysisDate time.Time      `json:"date"`
	AnalysisType string         `gorm:"size:50" json:"type"`
	MediaPath    string         `gorm:"size:255" json:"media_path"`
	Emotions     datatypes.JSON `json:"emotions_detected"`
	Dominant     string         `gorm:"size:50" json:"dominant_emotion"`
	Confidence   float64        `json:"confidence_score"`
	Notes        string         `gorm:"type:text" json:"notes"`
	Status       string         `gorm:"size:20;default:'pending'" json:"status"`
}

// OwnerID implements policy.Ownable.
func (a *Analysis) OwnerID() uint { return a.ClinicianID }
