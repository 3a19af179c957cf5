// internal/models/application.go
package models

import (
	"time"
)

// Application is the base record for any licensing request. Status moves
// from new to exactly one of cancelled or completed; LastStatusDate is
// updated on every status change.
type Application struct {
	BaseModel
	PersonID          uint              `json:"person_id" gorm:"not null;index"`
	ApplicationDate   time.Time         `json:"application_date" gorm:"not null"`
	ApplicationTypeID uint              `json:"application_type_id" gorm:"not null;index"`
	Status            ApplicationStatus `json:"status" gorm:"type:varchar(20);default:'new';index"`
	LastStatusDate    time.Time         `json:"last_status_date" gorm:"not null"`
	PaidFees          float64           `json:"paid_fees" gorm:"type:decimal(10,2);not null"`
	PaymentReference  string            `json:"payment_reference,omitempty" gorm:"size:255"`
	CreatedByUserID   uint              `json:"created_by_user_id" gorm:"not null"`

	// Relationships
	Person          Person          `json:"person,omitempty" gorm:"foreignKey:PersonID"`
	ApplicationType ApplicationType `json:"application_type,omitempty" gorm:"foreignKey:ApplicationTypeID"`
	CreatedBy       User            `json:"created_by,omitempty" gorm:"foreignKey:CreatedByUserID"`
}

// LocalDrivingLicenseApplication specializes Application with a target
// license class. One-to-one with its base Application row: created
// base-first, deleted specialized-first.
type LocalDrivingLicenseApplication struct {
	BaseModel
	ApplicationID  uint `json:"application_id" gorm:"uniqueIndex;not null"`
	LicenseClassID uint `json:"license_class_id" gorm:"not null;index"`

	// Relationships
	Application  Application  `json:"application,omitempty" gorm:"foreignKey:ApplicationID"`
	LicenseClass LicenseClass `json:"license_class,omitempty" gorm:"foreignKey:LicenseClassID"`
}
