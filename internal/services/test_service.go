// internal/services/test_service.go
package services

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/openroads/licensing-backend/internal/models"
	"github.com/openroads/licensing-backend/internal/utils"
)

// TestService enforces the ordered test chain vision -> written -> street,
// tracks per-type trials, and governs scheduling and locking of test
// appointments.
type TestService struct {
	db                  *gorm.DB
	notificationService *NotificationService
}

type ScheduleAppointmentRequest struct {
	LocalApplicationID uint      `json:"local_application_id" validate:"required"`
	TestTypeID         uint      `json:"test_type_id" validate:"required"`
	AppointmentDate    time.Time `json:"appointment_date" validate:"required"`
}

type RecordResultRequest struct {
	AppointmentID uint   `json:"appointment_id" validate:"required"`
	Passed        *bool  `json:"passed" validate:"required"`
	Notes         string `json:"notes,omitempty"`
}

// TestTypeStatus summarizes one test type for an application: how many
// trials were sat and what the latest outcome was. Display data only; the
// authoritative issuance gate is PassedAllTests.
type TestTypeStatus struct {
	TestTypeID uint   `json:"test_type_id"`
	Title      string `json:"title"`
	TrialCount int64  `json:"trial_count"`
	Attended   bool   `json:"attended"`
	Passed     bool   `json:"passed"`
}

func NewTestService(db *gorm.DB, notificationService *NotificationService) *TestService {
	return &TestService{
		db:                  db,
		notificationService: notificationService,
	}
}

// ScheduleAppointment books a sitting of one test type for a local
// application. Rejected while an unlocked appointment exists for the same
// (application, test type) pair, and gated on the previous test in the
// chain having been passed. A repeat sitting creates a completed retake
// application funding the new appointment.
func (s *TestService) ScheduleAppointment(req *ScheduleAppointmentRequest, actingUserID uint) (*models.TestAppointment, error) {
	// Validate request
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	var appointment *models.TestAppointment
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var localApplication models.LocalDrivingLicenseApplication
		if err := tx.Preload("Application").First(&localApplication, req.LocalApplicationID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrApplicationNotFound
			}
			return fmt.Errorf("database error: %w", err)
		}

		// Tests are only sat while the application is pending
		if localApplication.Application.Status != models.ApplicationStatusNew {
			return ErrApplicationNotNew
		}

		var testType models.TestType
		if err := tx.First(&testType, req.TestTypeID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTestTypeNotFound
			}
			return fmt.Errorf("database error: %w", err)
		}

		// Re-sitting a passed test is rejected
		passed, attended, err := lastTestResult(tx, req.LocalApplicationID, req.TestTypeID)
		if err != nil {
			return err
		}
		if attended && passed {
			return ErrTestAlreadyPassed
		}

		// One active (unlocked) appointment per (application, test type)
		active, err := hasActiveAppointment(tx, req.LocalApplicationID, req.TestTypeID)
		if err != nil {
			return err
		}
		if active {
			return ErrActiveAppointmentExists
		}

		// Ordered prerequisite chain, checked here and again when the
		// result is recorded
		ok, err := doesPassPreviousTest(tx, req.LocalApplicationID, req.TestTypeID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrPrerequisiteTestNotPassed
		}

		appointment = &models.TestAppointment{
			TestTypeID:                       req.TestTypeID,
			LocalDrivingLicenseApplicationID: req.LocalApplicationID,
			AppointmentDate:                  req.AppointmentDate,
			PaidFees:                         testType.Fee,
			CreatedByUserID:                  actingUserID,
			IsLocked:                         false,
		}

		// A previous failed trial means this sitting is a retake, funded
		// by its own completed retake application
		trials, err := trialCount(tx, req.LocalApplicationID, req.TestTypeID)
		if err != nil {
			return err
		}
		if trials > 0 {
			retakeApplication, err := createApplication(tx, localApplication.Application.PersonID,
				models.ApplicationTypeRetakeTest, models.ApplicationStatusCompleted, actingUserID)
			if err != nil {
				return err
			}
			appointment.RetakeTestApplicationID = &retakeApplication.ID
		}

		if err := tx.Create(appointment).Error; err != nil {
			return fmt.Errorf("failed to create test appointment: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	// Load relationships
	s.db.Preload("TestType").Preload("LocalDrivingLicenseApplication").
		Preload("LocalDrivingLicenseApplication.Application").
		Preload("LocalDrivingLicenseApplication.Application.Person").
		First(appointment, appointment.ID)

	// Send notification to applicant
	go s.sendAppointmentNotification(appointment)

	return appointment, nil
}

// RecordResult records the outcome of one sitting. The Test row and the
// appointment lock are written in the same transaction; a locked
// appointment never receives a second Test.
func (s *TestService) RecordResult(req *RecordResultRequest, actingUserID uint) (*models.Test, error) {
	// Validate request
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	var test *models.Test
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var appointment models.TestAppointment
		if err := tx.First(&appointment, req.AppointmentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAppointmentNotFound
			}
			return fmt.Errorf("database error: %w", err)
		}

		if appointment.IsLocked {
			return ErrAppointmentLocked
		}

		// The prerequisite gate is authoritative here regardless of what
		// the UI already checked at scheduling time
		ok, err := doesPassPreviousTest(tx, appointment.LocalDrivingLicenseApplicationID, appointment.TestTypeID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrPrerequisiteTestNotPassed
		}

		test = &models.Test{
			TestAppointmentID: appointment.ID,
			TestResult:        *req.Passed,
			Notes:             req.Notes,
			CreatedByUserID:   actingUserID,
		}

		if err := tx.Create(test).Error; err != nil {
			return fmt.Errorf("failed to create test: %w", err)
		}

		if err := tx.Model(&appointment).UpdateColumn("is_locked", true).Error; err != nil {
			return fmt.Errorf("failed to lock appointment: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return test, nil
}

// PassedAllTests reports whether the latest result is a pass for all
// three test types. This is the authoritative "ready to issue" check; a
// passed-count comparison is weaker and never used for admission.
func (s *TestService) PassedAllTests(localApplicationID uint) (bool, error) {
	return passedAllTests(s.db, localApplicationID)
}

func passedAllTests(tx *gorm.DB, localApplicationID uint) (bool, error) {
	for _, testTypeID := range []uint{models.TestTypeVision, models.TestTypeWritten, models.TestTypeStreet} {
		passed, attended, err := lastTestResult(tx, localApplicationID, testTypeID)
		if err != nil {
			return false, err
		}
		if !attended || !passed {
			return false, nil
		}
	}
	return true, nil
}

// GetPassedTestCount returns how many of the three test types currently
// stand passed, for display.
func (s *TestService) GetPassedTestCount(localApplicationID uint) (int, error) {
	count := 0
	for _, testTypeID := range []uint{models.TestTypeVision, models.TestTypeWritten, models.TestTypeStreet} {
		passed, attended, err := lastTestResult(s.db, localApplicationID, testTypeID)
		if err != nil {
			return 0, err
		}
		if attended && passed {
			count++
		}
	}
	return count, nil
}

// GetTrialCount returns how many Test rows exist for the pair.
func (s *TestService) GetTrialCount(localApplicationID, testTypeID uint) (int64, error) {
	return trialCount(s.db, localApplicationID, testTypeID)
}

// DoesPassPreviousTest reports whether the chain prerequisite for the
// given test type is satisfied. The vision test has no prerequisite.
func (s *TestService) DoesPassPreviousTest(localApplicationID, testTypeID uint) (bool, error) {
	return doesPassPreviousTest(s.db, localApplicationID, testTypeID)
}

// IsThereActiveScheduledTest reports whether an unlocked appointment
// exists for the pair.
func (s *TestService) IsThereActiveScheduledTest(localApplicationID, testTypeID uint) (bool, error) {
	return hasActiveAppointment(s.db, localApplicationID, testTypeID)
}

// GetApplicationTestStatus returns the per-type trial/outcome summary for
// one local application.
func (s *TestService) GetApplicationTestStatus(localApplicationID uint) ([]TestTypeStatus, error) {
	var testTypes []models.TestType
	if err := s.db.Order("id").Find(&testTypes).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch test types: %w", err)
	}

	statuses := make([]TestTypeStatus, 0, len(testTypes))
	for _, testType := range testTypes {
		trials, err := trialCount(s.db, localApplicationID, testType.ID)
		if err != nil {
			return nil, err
		}

		passed, attended, err := lastTestResult(s.db, localApplicationID, testType.ID)
		if err != nil {
			return nil, err
		}

		statuses = append(statuses, TestTypeStatus{
			TestTypeID: testType.ID,
			Title:      testType.Title,
			TrialCount: trials,
			Attended:   attended,
			Passed:     attended && passed,
		})
	}

	return statuses, nil
}

func (s *TestService) GetAppointment(appointmentID uint) (*models.TestAppointment, error) {
	var appointment models.TestAppointment
	if err := s.db.Preload("TestType").
		Preload("LocalDrivingLicenseApplication").
		Preload("LocalDrivingLicenseApplication.Application").
		First(&appointment, appointmentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAppointmentNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &appointment, nil
}

func (s *TestService) GetApplicationAppointments(localApplicationID uint) ([]models.TestAppointment, error) {
	var appointments []models.TestAppointment
	if err := s.db.Preload("TestType").
		Where("local_driving_license_application_id = ?", localApplicationID).
		Order("appointment_date DESC").
		Find(&appointments).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch appointments: %w", err)
	}
	return appointments, nil
}

// Query helpers shared with the license lifecycle, transaction-scoped.

func doesPassPreviousTest(tx *gorm.DB, localApplicationID, testTypeID uint) (bool, error) {
	var prerequisite uint
	switch testTypeID {
	case models.TestTypeVision:
		return true, nil
	case models.TestTypeWritten:
		prerequisite = models.TestTypeVision
	case models.TestTypeStreet:
		prerequisite = models.TestTypeWritten
	default:
		return false, ErrTestTypeNotFound
	}

	passed, attended, err := lastTestResult(tx, localApplicationID, prerequisite)
	if err != nil {
		return false, err
	}
	return attended && passed, nil
}

// lastTestResult returns the latest recorded outcome for the pair.
// attended is false when no Test row exists yet.
func lastTestResult(tx *gorm.DB, localApplicationID, testTypeID uint) (passed bool, attended bool, err error) {
	var test models.Test
	queryErr := tx.
		Joins("JOIN test_appointments ON test_appointments.id = tests.test_appointment_id").
		Where("test_appointments.local_driving_license_application_id = ? AND test_appointments.test_type_id = ? AND test_appointments.deleted_at IS NULL",
			localApplicationID, testTypeID).
		Order("tests.id DESC").
		First(&test).Error
	if queryErr != nil {
		if errors.Is(queryErr, gorm.ErrRecordNotFound) {
			return false, false, nil
		}
		return false, false, fmt.Errorf("database error: %w", queryErr)
	}
	return test.TestResult, true, nil
}

func trialCount(tx *gorm.DB, localApplicationID, testTypeID uint) (int64, error) {
	var count int64
	err := tx.Model(&models.Test{}).
		Joins("JOIN test_appointments ON test_appointments.id = tests.test_appointment_id").
		Where("test_appointments.local_driving_license_application_id = ? AND test_appointments.test_type_id = ? AND test_appointments.deleted_at IS NULL",
			localApplicationID, testTypeID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count trials: %w", err)
	}
	return count, nil
}

func hasActiveAppointment(tx *gorm.DB, localApplicationID, testTypeID uint) (bool, error) {
	var count int64
	err := tx.Model(&models.TestAppointment{}).
		Where("local_driving_license_application_id = ? AND test_type_id = ? AND is_locked = ?",
			localApplicationID, testTypeID, false).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to count appointments: %w", err)
	}
	return count > 0, nil
}

func (s *TestService) sendAppointmentNotification(appointment *models.TestAppointment) {
	if s.notificationService == nil {
		return
	}
	s.notificationService.SendAppointmentScheduledEmail(appointment)
}
