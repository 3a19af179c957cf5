// internal/models/test.go
package models

import (
	"time"
)

// TestAppointment is a scheduled sitting of one test type for one local
// driving license application. It becomes locked exactly when a Test
// result is recorded against it; a locked appointment cannot receive a
// second Test.
type TestAppointment struct {
	BaseModel
	TestTypeID                       uint      `json:"test_type_id" gorm:"not null;index"`
	LocalDrivingLicenseApplicationID uint      `json:"local_driving_license_application_id" gorm:"not null;index"`
	AppointmentDate                  time.Time `json:"appointment_date" gorm:"not null"`
	PaidFees                         float64   `json:"paid_fees" gorm:"type:decimal(10,2);not null"`
	CreatedByUserID                  uint      `json:"created_by_user_id" gorm:"not null"`
	IsLocked                         bool      `json:"is_locked" gorm:"default:false;index"`
	RetakeTestApplicationID          *uint     `json:"retake_test_application_id"`

	// Relationships
	TestType                       TestType                       `json:"test_type,omitempty" gorm:"foreignKey:TestTypeID"`
	LocalDrivingLicenseApplication LocalDrivingLicenseApplication `json:"local_driving_license_application,omitempty" gorm:"foreignKey:LocalDrivingLicenseApplicationID"`
	RetakeTestApplication          *Application                   `json:"retake_test_application,omitempty" gorm:"foreignKey:RetakeTestApplicationID"`
}

// Test is the recorded outcome of one appointment sitting. Immutable once
// created in normal flow.
type Test struct {
	BaseModel
	TestAppointmentID uint   `json:"test_appointment_id" gorm:"uniqueIndex;not null"`
	TestResult        bool   `json:"test_result" gorm:"not null"`
	Notes             string `json:"notes" gorm:"type:text"`
	CreatedByUserID   uint   `json:"created_by_user_id" gorm:"not null"`

	// Relationships
	TestAppointment TestAppointment `json:"test_appointment,omitempty" gorm:"foreignKey:TestAppointmentID"`
}
