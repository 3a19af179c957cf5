// internal/services/international_license_service.go
package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/openroads/licensing-backend/internal/models"
	"github.com/openroads/licensing-backend/internal/utils"
)

// International licenses are valid for one year from issuance.
const internationalLicenseValidityYears = 1

// InternationalLicenseService issues licenses bound to an existing local
// license and a driver record. The at-most-one-active rule is scoped per
// driver; no test prerequisite applies.
type InternationalLicenseService struct {
	db *gorm.DB
}

type IssueInternationalLicenseRequest struct {
	LocalLicenseID uint `json:"local_license_id" validate:"required"`
}

func NewInternationalLicenseService(db *gorm.DB) *InternationalLicenseService {
	return &InternationalLicenseService{db: db}
}

// Issue creates a completed application and an international license
// backed by an active, unexpired local license. An existing active
// international license for the driver is deactivated in the same
// transaction.
func (s *InternationalLicenseService) Issue(req *IssueInternationalLicenseRequest, actingUserID uint) (*models.InternationalLicense, error) {
	// Validate request
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	var international *models.InternationalLicense
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var localLicense models.License
		if err := tx.Preload("Driver").First(&localLicense, req.LocalLicenseID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrLocalLicenseRequired
			}
			return fmt.Errorf("database error: %w", err)
		}

		if !localLicense.IsActive {
			return ErrLicenseNotActive
		}

		now := time.Now()
		if localLicense.IsExpired(now) {
			return ErrLicenseExpired
		}

		application, err := createApplication(tx, localLicense.Driver.PersonID,
			models.ApplicationTypeNewInternationalLicense, models.ApplicationStatusCompleted, actingUserID)
		if err != nil {
			return err
		}

		// At most one active international license per driver
		activeID, err := activeInternationalLicenseID(tx, localLicense.DriverID)
		if err != nil {
			return err
		}
		if activeID != 0 {
			if err := tx.Model(&models.InternationalLicense{}).
				Where("id = ?", activeID).
				UpdateColumn("is_active", false).Error; err != nil {
				return fmt.Errorf("failed to deactivate previous international license: %w", err)
			}
		}

		international = &models.InternationalLicense{
			ApplicationID:             application.ID,
			DriverID:                  localLicense.DriverID,
			IssuedUsingLocalLicenseID: localLicense.ID,
			SerialNumber:              uuid.NewString(),
			IssueDate:                 now,
			ExpirationDate:            now.AddDate(internationalLicenseValidityYears, 0, 0),
			IsActive:                  true,
			CreatedByUserID:           actingUserID,
		}

		if err := tx.Create(international).Error; err != nil {
			return fmt.Errorf("failed to create international license: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	// Load relationships
	s.db.Preload("Driver").Preload("Driver.Person").Preload("IssuedUsingLocalLicense").
		First(international, international.ID)

	return international, nil
}

// GetActiveInternationalLicenseID returns the driver's active
// international license identifier, or 0 when none exists.
func (s *InternationalLicenseService) GetActiveInternationalLicenseID(driverID uint) (uint, error) {
	return activeInternationalLicenseID(s.db, driverID)
}

func (s *InternationalLicenseService) GetInternationalLicense(id uint) (*models.InternationalLicense, error) {
	var international models.InternationalLicense
	if err := s.db.Preload("Driver").Preload("Driver.Person").Preload("IssuedUsingLocalLicense").
		First(&international, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLicenseNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &international, nil
}

// GetDriverInternationalLicenses returns the driver's international
// license history, newest first.
func (s *InternationalLicenseService) GetDriverInternationalLicenses(driverID uint) ([]models.InternationalLicense, error) {
	var licenses []models.InternationalLicense
	if err := s.db.Preload("IssuedUsingLocalLicense").
		Where("driver_id = ?", driverID).
		Order("id DESC").
		Find(&licenses).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch international licenses: %w", err)
	}
	return licenses, nil
}

// DeactivateExpired flips is_active off for every international license
// past its expiration date. Run by the nightly expiration sweep.
func (s *InternationalLicenseService) DeactivateExpired(now time.Time) (int64, error) {
	result := s.db.Model(&models.InternationalLicense{}).
		Where("is_active = ? AND expiration_date < ?", true, now).
		UpdateColumn("is_active", false)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to deactivate expired international licenses: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func activeInternationalLicenseID(tx *gorm.DB, driverID uint) (uint, error) {
	var international models.InternationalLicense
	err := tx.Select("id").
		Where("driver_id = ? AND is_active = ?", driverID, true).
		First(&international).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("database error: %w", err)
	}
	return international.ID, nil
}
