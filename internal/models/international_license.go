// internal/models/international_license.go
package models

import (
	"time"
)

// InternationalLicense is issued against an existing local license. The
// at-most-one-active rule is scoped per driver rather than per class.
type InternationalLicense struct {
	BaseModel
	ApplicationID             uint      `json:"application_id" gorm:"uniqueIndex;not null"`
	DriverID                  uint      `json:"driver_id" gorm:"not null;index"`
	IssuedUsingLocalLicenseID uint      `json:"issued_using_local_license_id" gorm:"not null;index"`
	SerialNumber              string    `json:"serial_number" gorm:"uniqueIndex;size:36;not null"`
	IssueDate                 time.Time `json:"issue_date" gorm:"not null"`
	ExpirationDate            time.Time `json:"expiration_date" gorm:"not null"`
	IsActive                  bool      `json:"is_active" gorm:"default:true;index"`
	CreatedByUserID           uint      `json:"created_by_user_id" gorm:"not null"`

	// Relationships
	Application             Application `json:"application,omitempty" gorm:"foreignKey:ApplicationID"`
	Driver                  Driver      `json:"driver,omitempty" gorm:"foreignKey:DriverID"`
	IssuedUsingLocalLicense License     `json:"issued_using_local_license,omitempty" gorm:"foreignKey:IssuedUsingLocalLicenseID"`
}
