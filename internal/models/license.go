// internal/models/license.go
package models

import (
	"time"
)

// License is an issued driving credential. For a given (driver, class)
// at most one row has is_active=true at any time.
type License struct {
	BaseModel
	ApplicationID   uint        `json:"application_id" gorm:"uniqueIndex;not null"`
	DriverID        uint        `json:"driver_id" gorm:"not null;index"`
	LicenseClassID  uint        `json:"license_class_id" gorm:"not null;index"`
	SerialNumber    string      `json:"serial_number" gorm:"uniqueIndex;size:36;not null"`
	IssueDate       time.Time   `json:"issue_date" gorm:"not null"`
	ExpirationDate  time.Time   `json:"expiration_date" gorm:"not null"`
	Notes           string      `json:"notes" gorm:"type:text"`
	PaidFees        float64     `json:"paid_fees" gorm:"type:decimal(10,2);not null"`
	IsActive        bool        `json:"is_active" gorm:"default:true;index"`
	IssueReason     IssueReason `json:"issue_reason" gorm:"type:varchar(30);not null"`
	CreatedByUserID uint        `json:"created_by_user_id" gorm:"not null"`

	// Relationships
	Application  Application  `json:"application,omitempty" gorm:"foreignKey:ApplicationID"`
	Driver       Driver       `json:"driver,omitempty" gorm:"foreignKey:DriverID"`
	LicenseClass LicenseClass `json:"license_class,omitempty" gorm:"foreignKey:LicenseClassID"`
}

// IsExpired reports whether the license expiration date has passed.
func (l *License) IsExpired(now time.Time) bool {
	return now.After(l.ExpirationDate)
}

// DetainedLicense is a detention record against exactly one license.
// Once released it is terminal; a later detention creates a new row.
type DetainedLicense struct {
	BaseModel
	LicenseID            uint       `json:"license_id" gorm:"not null;index"`
	DetainDate           time.Time  `json:"detain_date" gorm:"not null"`
	FineFees             float64    `json:"fine_fees" gorm:"type:decimal(10,2);not null"`
	CreatedByUserID      uint       `json:"created_by_user_id" gorm:"not null"`
	IsReleased           bool       `json:"is_released" gorm:"default:false;index"`
	ReleaseDate          *time.Time `json:"release_date"`
	ReleasedByUserID     *uint      `json:"released_by_user_id"`
	ReleaseApplicationID *uint      `json:"release_application_id"`

	// Relationships
	License            License      `json:"license,omitempty" gorm:"foreignKey:LicenseID"`
	ReleaseApplication *Application `json:"release_application,omitempty" gorm:"foreignKey:ReleaseApplicationID"`
}
