// internal/models/common.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uint           `json:"id" gorm:"primarykey"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// JSONB type for PostgreSQL
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}

	return json.Unmarshal(bytes, j)
}

// Enums
type ApplicationStatus string

const (
	ApplicationStatusNew       ApplicationStatus = "new"
	ApplicationStatusCancelled ApplicationStatus = "cancelled"
	ApplicationStatusCompleted ApplicationStatus = "completed"
)

type IssueReason string

const (
	IssueReasonFirstTime          IssueReason = "first_time"
	IssueReasonRenew              IssueReason = "renew"
	IssueReasonReplacementDamaged IssueReason = "replacement_for_damaged"
	IssueReasonReplacementLost    IssueReason = "replacement_for_lost"
)

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

type UserRole string

const (
	UserRoleClerk   UserRole = "clerk"
	UserRoleManager UserRole = "manager"
	UserRoleAdmin   UserRole = "admin"
)

// Seeded application type catalogue identifiers
const (
	ApplicationTypeNewDrivingLicense       uint = 1
	ApplicationTypeRenewDrivingLicense     uint = 2
	ApplicationTypeReplaceLostLicense      uint = 3
	ApplicationTypeReplaceDamagedLicense   uint = 4
	ApplicationTypeReleaseDetainedLicense  uint = 5
	ApplicationTypeNewInternationalLicense uint = 6
	ApplicationTypeRetakeTest              uint = 7
)

// Seeded test type catalogue identifiers
const (
	TestTypeVision  uint = 1
	TestTypeWritten uint = 2
	TestTypeStreet  uint = 3
)
