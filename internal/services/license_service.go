// internal/services/license_service.go
package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/openroads/licensing-backend/internal/models"
	"github.com/openroads/licensing-backend/internal/utils"
)

// LicenseService orchestrates license issuance, renewal, replacement,
// detention, and release. Every multi-row mutation runs in one
// transaction so the at-most-one-active invariant survives a crash
// between steps.
type LicenseService struct {
	db                  *gorm.DB
	notificationService *NotificationService
}

type IssueFirstTimeRequest struct {
	LocalApplicationID uint   `json:"local_application_id" validate:"required"`
	Notes              string `json:"notes,omitempty"`
}

type RenewLicenseRequest struct {
	LicenseID uint   `json:"license_id" validate:"required"`
	Notes     string `json:"notes,omitempty"`
}

type ReplaceLicenseRequest struct {
	LicenseID uint               `json:"license_id" validate:"required"`
	Reason    models.IssueReason `json:"reason" validate:"required"`
}

type DetainLicenseRequest struct {
	LicenseID uint    `json:"license_id" validate:"required"`
	FineFees  float64 `json:"fine_fees" validate:"required,min=0.01"`
}

type ReleaseLicenseRequest struct {
	DetainedLicenseID uint `json:"detained_license_id" validate:"required"`
}

func NewLicenseService(db *gorm.DB, notificationService *NotificationService) *LicenseService {
	return &LicenseService{
		db:                  db,
		notificationService: notificationService,
	}
}

// IssueFirstTime issues the first license for a local driving license
// application. Preconditions: all three tests stand passed and no active
// license exists for the (person, class) pair. A Driver record is
// created lazily for the person's first license. The source application
// is completed in the same transaction.
func (s *LicenseService) IssueFirstTime(req *IssueFirstTimeRequest, actingUserID uint) (*models.License, error) {
	// Validate request
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	var license *models.License
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var localApplication models.LocalDrivingLicenseApplication
		if err := tx.Preload("Application").Preload("LicenseClass").
			First(&localApplication, req.LocalApplicationID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrApplicationNotFound
			}
			return fmt.Errorf("database error: %w", err)
		}

		if localApplication.Application.Status != models.ApplicationStatusNew {
			return ErrApplicationNotNew
		}

		// Authoritative gate: latest result passes for all three types
		passed, err := passedAllTests(tx, localApplication.ID)
		if err != nil {
			return err
		}
		if !passed {
			return ErrTestsNotComplete
		}

		personID := localApplication.Application.PersonID

		existingID, err := activeLicenseID(tx, personID, localApplication.LicenseClassID)
		if err != nil {
			return err
		}
		if existingID != 0 {
			return ErrActiveLicenseExists
		}

		// Drivers are created lazily on first issuance and reused after
		driver, err := findOrCreateDriver(tx, personID, actingUserID)
		if err != nil {
			return err
		}

		now := time.Now()
		license = &models.License{
			ApplicationID:   localApplication.ApplicationID,
			DriverID:        driver.ID,
			LicenseClassID:  localApplication.LicenseClassID,
			SerialNumber:    uuid.NewString(),
			IssueDate:       now,
			ExpirationDate:  now.AddDate(localApplication.LicenseClass.DefaultValidityYears, 0, 0),
			Notes:           req.Notes,
			PaidFees:        localApplication.LicenseClass.Fee,
			IsActive:        true,
			IssueReason:     models.IssueReasonFirstTime,
			CreatedByUserID: actingUserID,
		}

		if err := tx.Create(license).Error; err != nil {
			return fmt.Errorf("failed to create license: %w", err)
		}

		if err := transitionApplication(tx, &localApplication.Application, models.ApplicationStatusCompleted); err != nil {
			return err
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	// Load relationships
	s.db.Preload("Driver").Preload("Driver.Person").Preload("LicenseClass").
		First(license, license.ID)

	// Send notification to holder
	go s.sendLicenseIssuedNotification(license)

	return license, nil
}

// Renew issues a successor license with a fresh validity window. The
// renewal application, the new license, and the deactivation of the
// predecessor commit together.
func (s *LicenseService) Renew(req *RenewLicenseRequest, actingUserID uint) (*models.License, error) {
	// Validate request
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	var newLicense *models.License
	err := s.db.Transaction(func(tx *gorm.DB) error {
		oldLicense, licenseClass, driver, err := loadActiveLicense(tx, req.LicenseID)
		if err != nil {
			return err
		}

		// Renewal is a same-visit transaction: the application is born
		// completed
		application, err := createApplication(tx, driver.PersonID,
			models.ApplicationTypeRenewDrivingLicense, models.ApplicationStatusCompleted, actingUserID)
		if err != nil {
			return err
		}

		now := time.Now()
		newLicense = &models.License{
			ApplicationID:   application.ID,
			DriverID:        oldLicense.DriverID,
			LicenseClassID:  oldLicense.LicenseClassID,
			SerialNumber:    uuid.NewString(),
			IssueDate:       now,
			ExpirationDate:  now.AddDate(licenseClass.DefaultValidityYears, 0, 0),
			Notes:           req.Notes,
			PaidFees:        licenseClass.Fee,
			IsActive:        true,
			IssueReason:     models.IssueReasonRenew,
			CreatedByUserID: actingUserID,
		}

		if err := tx.Create(newLicense).Error; err != nil {
			return fmt.Errorf("failed to create renewed license: %w", err)
		}

		if err := deactivateLicense(tx, oldLicense.ID); err != nil {
			return err
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return newLicense, nil
}

// Replace issues a successor license for a lost or damaged one. The
// replacement keeps the original expiration date and carries no license
// fee; only the application fee applies.
func (s *LicenseService) Replace(req *ReplaceLicenseRequest, actingUserID uint) (*models.License, error) {
	// Validate request
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	var applicationTypeID uint
	switch req.Reason {
	case models.IssueReasonReplacementLost:
		applicationTypeID = models.ApplicationTypeReplaceLostLicense
	case models.IssueReasonReplacementDamaged:
		applicationTypeID = models.ApplicationTypeReplaceDamagedLicense
	default:
		return nil, ErrInvalidReplacementReason
	}

	var newLicense *models.License
	err := s.db.Transaction(func(tx *gorm.DB) error {
		oldLicense, _, driver, err := loadActiveLicense(tx, req.LicenseID)
		if err != nil {
			return err
		}

		application, err := createApplication(tx, driver.PersonID,
			applicationTypeID, models.ApplicationStatusCompleted, actingUserID)
		if err != nil {
			return err
		}

		newLicense = &models.License{
			ApplicationID:   application.ID,
			DriverID:        oldLicense.DriverID,
			LicenseClassID:  oldLicense.LicenseClassID,
			SerialNumber:    uuid.NewString(),
			IssueDate:       time.Now(),
			ExpirationDate:  oldLicense.ExpirationDate,
			Notes:           oldLicense.Notes,
			PaidFees:        0,
			IsActive:        true,
			IssueReason:     req.Reason,
			CreatedByUserID: actingUserID,
		}

		if err := tx.Create(newLicense).Error; err != nil {
			return fmt.Errorf("failed to create replacement license: %w", err)
		}

		if err := deactivateLicense(tx, oldLicense.ID); err != nil {
			return err
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return newLicense, nil
}

// Detain records a detention against an active license and deactivates
// it in the same transaction. Detention implies deactivation; the
// at-most-one-active invariant is meaningless otherwise.
func (s *LicenseService) Detain(req *DetainLicenseRequest, actingUserID uint) (*models.DetainedLicense, error) {
	// Validate request
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	var detention *models.DetainedLicense
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var license models.License
		if err := tx.First(&license, req.LicenseID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrLicenseNotFound
			}
			return fmt.Errorf("database error: %w", err)
		}

		if !license.IsActive {
			return ErrLicenseNotActive
		}

		detained, err := isDetained(tx, license.ID)
		if err != nil {
			return err
		}
		if detained {
			return ErrLicenseDetained
		}

		detention = &models.DetainedLicense{
			LicenseID:       license.ID,
			DetainDate:      time.Now(),
			FineFees:        req.FineFees,
			CreatedByUserID: actingUserID,
			IsReleased:      false,
		}

		if err := tx.Create(detention).Error; err != nil {
			return fmt.Errorf("failed to create detained license record: %w", err)
		}

		if err := deactivateLicense(tx, license.ID); err != nil {
			return err
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return detention, nil
}

// Release closes a detention: a completed release application is
// created, the detention record becomes terminally released, and the
// license is reactivated, all in one transaction.
func (s *LicenseService) Release(req *ReleaseLicenseRequest, actingUserID uint) (*models.DetainedLicense, error) {
	// Validate request
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	var detention models.DetainedLicense
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&detention, req.DetainedLicenseID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrDetentionNotFound
			}
			return fmt.Errorf("database error: %w", err)
		}

		if detention.IsReleased {
			return ErrDetentionAlreadyReleased
		}

		var license models.License
		if err := tx.Preload("Driver").First(&license, detention.LicenseID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrLicenseNotFound
			}
			return fmt.Errorf("database error: %w", err)
		}

		application, err := createApplication(tx, license.Driver.PersonID,
			models.ApplicationTypeReleaseDetainedLicense, models.ApplicationStatusCompleted, actingUserID)
		if err != nil {
			return err
		}

		now := time.Now()
		if err := tx.Model(&detention).Updates(map[string]interface{}{
			"is_released":            true,
			"release_date":           now,
			"released_by_user_id":    actingUserID,
			"release_application_id": application.ID,
		}).Error; err != nil {
			return fmt.Errorf("failed to mark detention released: %w", err)
		}

		if err := tx.Model(&license).UpdateColumn("is_active", true).Error; err != nil {
			return fmt.Errorf("failed to reactivate license: %w", err)
		}

		detention.IsReleased = true
		detention.ReleaseDate = &now
		detention.ReleasedByUserID = &actingUserID
		detention.ReleaseApplicationID = &application.ID

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &detention, nil
}

// IsDetained reports whether the license has an unreleased detention.
func (s *LicenseService) IsDetained(licenseID uint) (bool, error) {
	return isDetained(s.db, licenseID)
}

// GetActiveLicenseID returns the identifier of the person's active
// license of the given class, or 0 when none exists.
func (s *LicenseService) GetActiveLicenseID(personID, licenseClassID uint) (uint, error) {
	return activeLicenseID(s.db, personID, licenseClassID)
}

// IsLicenseHeldByPerson is the admission check the application intake
// uses before allowing a new application of a class.
func (s *LicenseService) IsLicenseHeldByPerson(personID, licenseClassID uint) (bool, error) {
	id, err := activeLicenseID(s.db, personID, licenseClassID)
	if err != nil {
		return false, err
	}
	return id != 0, nil
}

func (s *LicenseService) GetLicense(licenseID uint) (*models.License, error) {
	var license models.License
	if err := s.db.Preload("Driver").Preload("Driver.Person").Preload("LicenseClass").Preload("Application").
		First(&license, licenseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLicenseNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &license, nil
}

// VerifyLicenseBySerial is the public verification lookup: the license
// must exist, be active, and be unexpired.
func (s *LicenseService) VerifyLicenseBySerial(serialNumber string) (*models.License, error) {
	var license models.License
	if err := s.db.Preload("Driver").Preload("Driver.Person").Preload("LicenseClass").
		Where("serial_number = ?", serialNumber).
		First(&license).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLicenseNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if !license.IsActive {
		return nil, ErrLicenseNotActive
	}

	if license.IsExpired(time.Now()) {
		return nil, ErrLicenseExpired
	}

	return &license, nil
}

// GetPersonLicenses returns the person's license history, newest first.
func (s *LicenseService) GetPersonLicenses(personID uint) ([]models.License, error) {
	var licenses []models.License
	err := s.db.Preload("LicenseClass").
		Joins("JOIN drivers ON drivers.id = licenses.driver_id").
		Where("drivers.person_id = ? AND drivers.deleted_at IS NULL", personID).
		Order("licenses.id DESC").
		Find(&licenses).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch licenses: %w", err)
	}
	return licenses, nil
}

// GetDetainedLicenses returns the queue of unreleased detentions.
func (s *LicenseService) GetDetainedLicenses(params utils.PaginationParams) ([]models.DetainedLicense, int64, error) {
	query := s.db.Model(&models.DetainedLicense{}).
		Where("is_released = ?", false).
		Preload("License").Preload("License.Driver").Preload("License.Driver.Person")

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count detained licenses: %w", err)
	}

	allowedSortFields := []string{"created_at", "detain_date", "fine_fees"}
	query = utils.ApplySort(query, params, allowedSortFields)
	query = utils.ApplyPagination(query, params)

	var detentions []models.DetainedLicense
	if err := query.Find(&detentions).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch detained licenses: %w", err)
	}

	return detentions, total, nil
}

// DeactivateExpiredLicenses flips is_active off for every license whose
// expiration date has passed. Run nightly by the expiration sweep job.
func (s *LicenseService) DeactivateExpiredLicenses(now time.Time) (int64, error) {
	result := s.db.Model(&models.License{}).
		Where("is_active = ? AND expiration_date < ?", true, now).
		UpdateColumn("is_active", false)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to deactivate expired licenses: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// Transaction-scoped helpers shared across the package.

func activeLicenseID(tx *gorm.DB, personID, licenseClassID uint) (uint, error) {
	var license models.License
	err := tx.Select("licenses.id").
		Joins("JOIN drivers ON drivers.id = licenses.driver_id").
		Where("drivers.person_id = ? AND licenses.license_class_id = ? AND licenses.is_active = ? AND drivers.deleted_at IS NULL",
			personID, licenseClassID, true).
		First(&license).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("database error: %w", err)
	}
	return license.ID, nil
}

func isDetained(tx *gorm.DB, licenseID uint) (bool, error) {
	var count int64
	err := tx.Model(&models.DetainedLicense{}).
		Where("license_id = ? AND is_released = ?", licenseID, false).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to count detentions: %w", err)
	}
	return count > 0, nil
}

func findOrCreateDriver(tx *gorm.DB, personID, actingUserID uint) (*models.Driver, error) {
	var driver models.Driver
	err := tx.Where("person_id = ?", personID).First(&driver).Error
	if err == nil {
		return &driver, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("database error: %w", err)
	}

	driver = models.Driver{
		PersonID:        personID,
		CreatedByUserID: actingUserID,
	}
	if err := tx.Create(&driver).Error; err != nil {
		return nil, fmt.Errorf("failed to create driver: %w", err)
	}

	return &driver, nil
}

// loadActiveLicense fetches a license that must be active, undetained,
// and attached to a driver. Used by the renew/replace paths.
func loadActiveLicense(tx *gorm.DB, licenseID uint) (*models.License, *models.LicenseClass, *models.Driver, error) {
	var license models.License
	if err := tx.Preload("LicenseClass").Preload("Driver").
		First(&license, licenseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, nil, ErrLicenseNotFound
		}
		return nil, nil, nil, fmt.Errorf("database error: %w", err)
	}

	if !license.IsActive {
		return nil, nil, nil, ErrLicenseNotActive
	}

	detained, err := isDetained(tx, license.ID)
	if err != nil {
		return nil, nil, nil, err
	}
	if detained {
		return nil, nil, nil, ErrLicenseDetained
	}

	return &license, &license.LicenseClass, &license.Driver, nil
}

func deactivateLicense(tx *gorm.DB, licenseID uint) error {
	result := tx.Model(&models.License{}).
		Where("id = ?", licenseID).
		UpdateColumn("is_active", false)
	if result.Error != nil {
		logrus.WithFields(logrus.Fields{
			"operation":  "deactivate_license",
			"license_id": licenseID,
		}).WithError(result.Error).Error("Failed to deactivate predecessor license")
		return fmt.Errorf("failed to deactivate license: %w", result.Error)
	}
	return nil
}

func (s *LicenseService) sendLicenseIssuedNotification(license *models.License) {
	if s.notificationService == nil {
		return
	}
	s.notificationService.SendLicenseIssuedEmail(license)
}
