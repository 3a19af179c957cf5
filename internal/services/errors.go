// internal/services/errors.go
package services

import "errors"

// Validation failures are expected outcomes callers branch on; they are
// distinct from persistence failures, which are wrapped with %w and carry
// the underlying cause.
var (
	// Applications
	ErrPersonNotFound          = errors.New("person not found")
	ErrApplicationNotFound     = errors.New("application not found")
	ErrApplicationNotNew       = errors.New("application is not in the new state")
	ErrActiveApplicationExists = errors.New("person already has an active application of this type")
	ErrLicenseClassNotFound    = errors.New("license class not found")
	ErrApplicationTypeNotFound = errors.New("application type not found")
	ErrUnderMinimumAge         = errors.New("applicant is under the minimum allowed age for this license class")

	// Tests
	ErrAppointmentNotFound       = errors.New("test appointment not found")
	ErrAppointmentLocked         = errors.New("test appointment is locked")
	ErrActiveAppointmentExists   = errors.New("an active appointment already exists for this test")
	ErrPrerequisiteTestNotPassed = errors.New("previous test has not been passed")
	ErrTestAlreadyPassed         = errors.New("this test has already been passed")
	ErrTestTypeNotFound          = errors.New("test type not found")

	// Licenses
	ErrTestsNotComplete           = errors.New("tests not complete")
	ErrLicenseNotFound            = errors.New("license not found")
	ErrLicenseNotActive           = errors.New("license is not active")
	ErrLicenseExpired             = errors.New("license has expired")
	ErrActiveLicenseExists        = errors.New("person already holds an active license of this class")
	ErrLicenseDetained            = errors.New("license is detained")
	ErrDetentionNotFound          = errors.New("detained license record not found")
	ErrDetentionAlreadyReleased   = errors.New("detained license has already been released")
	ErrInvalidReplacementReason   = errors.New("replacement reason must be lost or damaged")
	ErrDriverNotFound             = errors.New("driver not found")
	ErrLocalLicenseRequired       = errors.New("an active local license is required")
)
