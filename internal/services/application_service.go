// internal/services/application_service.go
package services

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/openroads/licensing-backend/internal/models"
	"github.com/openroads/licensing-backend/internal/utils"
)

// ApplicationService governs the application state machine: applications
// are created new and move to exactly one of cancelled or completed.
// Status is never mutated outside this service or the license lifecycle
// orchestration.
type ApplicationService struct {
	db *gorm.DB
}

type CreateApplicationRequest struct {
	PersonID          uint `json:"person_id" validate:"required"`
	ApplicationTypeID uint `json:"application_type_id" validate:"required"`
}

type CreateLocalApplicationRequest struct {
	PersonID       uint `json:"person_id" validate:"required"`
	LicenseClassID uint `json:"license_class_id" validate:"required"`
}

type ApplicationSearchParams struct {
	utils.PaginationParams
	PersonID          *uint                     `json:"person_id,omitempty"`
	ApplicationTypeID *uint                     `json:"application_type_id,omitempty"`
	Status            *models.ApplicationStatus `json:"status,omitempty"`
}

func NewApplicationService(db *gorm.DB) *ApplicationService {
	return &ApplicationService{db: db}
}

// CreateApplication creates a base application of the given catalogue
// type with the catalogue fee. A person may hold at most one active
// application per type.
func (s *ApplicationService) CreateApplication(req *CreateApplicationRequest, actingUserID uint) (*models.Application, error) {
	// Validate request
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	var application *models.Application
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		application, err = createApplication(tx, req.PersonID, req.ApplicationTypeID, models.ApplicationStatusNew, actingUserID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return application, nil
}

// createApplication is the shared creation path used both for caller-driven
// applications and for the completed same-visit applications the license
// lifecycle creates (renewal, replacement, release, retake).
func createApplication(tx *gorm.DB, personID, applicationTypeID uint, status models.ApplicationStatus, actingUserID uint) (*models.Application, error) {
	var person models.Person
	if err := tx.First(&person, personID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPersonNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	var applicationType models.ApplicationType
	if err := tx.First(&applicationType, applicationTypeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrApplicationTypeNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	// Only caller-driven applications stay pending; one active per
	// (person, type) at a time.
	if status == models.ApplicationStatusNew {
		activeID, err := activeApplicationID(tx, personID, applicationTypeID)
		if err != nil {
			return nil, err
		}
		if activeID != 0 {
			return nil, ErrActiveApplicationExists
		}
	}

	now := time.Now()
	application := &models.Application{
		PersonID:          personID,
		ApplicationDate:   now,
		ApplicationTypeID: applicationTypeID,
		Status:            status,
		LastStatusDate:    now,
		PaidFees:          applicationType.Fee,
		CreatedByUserID:   actingUserID,
	}

	if err := tx.Create(application).Error; err != nil {
		return nil, fmt.Errorf("failed to create application: %w", err)
	}

	return application, nil
}

// CreateLocalApplication creates a base application and its local driving
// license specialization in one transaction, base row first.
func (s *ApplicationService) CreateLocalApplication(req *CreateLocalApplicationRequest, actingUserID uint) (*models.LocalDrivingLicenseApplication, error) {
	// Validate request
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	var localApplication *models.LocalDrivingLicenseApplication
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var person models.Person
		if err := tx.First(&person, req.PersonID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPersonNotFound
			}
			return fmt.Errorf("database error: %w", err)
		}

		var licenseClass models.LicenseClass
		if err := tx.First(&licenseClass, req.LicenseClassID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrLicenseClassNotFound
			}
			return fmt.Errorf("database error: %w", err)
		}

		// Age eligibility at application date
		if person.AgeAt(time.Now()) < licenseClass.MinimumAllowedAge {
			return ErrUnderMinimumAge
		}

		// At most one active application per (person, class)
		activeID, err := activeLocalApplicationID(tx, req.PersonID, req.LicenseClassID)
		if err != nil {
			return err
		}
		if activeID != 0 {
			return ErrActiveApplicationExists
		}

		// Holding an active license of this class is an admission failure
		licenseID, err := activeLicenseID(tx, req.PersonID, req.LicenseClassID)
		if err != nil {
			return err
		}
		if licenseID != 0 {
			return ErrActiveLicenseExists
		}

		application, err := createApplication(tx, req.PersonID, models.ApplicationTypeNewDrivingLicense, models.ApplicationStatusNew, actingUserID)
		if err != nil {
			return err
		}

		localApplication = &models.LocalDrivingLicenseApplication{
			ApplicationID:  application.ID,
			LicenseClassID: req.LicenseClassID,
		}

		if err := tx.Create(localApplication).Error; err != nil {
			return fmt.Errorf("failed to create local driving license application: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	// Load relationships
	s.db.Preload("Application").Preload("Application.Person").Preload("LicenseClass").
		First(localApplication, localApplication.ID)

	return localApplication, nil
}

// CancelApplication moves a new application to cancelled. Calling it on a
// completed or cancelled application is a validation failure, never a
// silent status change.
func (s *ApplicationService) CancelApplication(applicationID uint, actingUserID uint) (*models.Application, error) {
	return s.setApplicationStatus(applicationID, models.ApplicationStatusCancelled)
}

// CompleteApplication moves a new application to completed.
func (s *ApplicationService) CompleteApplication(applicationID uint, actingUserID uint) (*models.Application, error) {
	return s.setApplicationStatus(applicationID, models.ApplicationStatusCompleted)
}

func (s *ApplicationService) setApplicationStatus(applicationID uint, status models.ApplicationStatus) (*models.Application, error) {
	var application models.Application
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&application, applicationID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrApplicationNotFound
			}
			return fmt.Errorf("database error: %w", err)
		}

		return transitionApplication(tx, &application, status)
	})
	if err != nil {
		return nil, err
	}

	return &application, nil
}

// transitionApplication enforces the new -> {cancelled|completed} state
// machine and stamps LastStatusDate.
func transitionApplication(tx *gorm.DB, application *models.Application, status models.ApplicationStatus) error {
	if application.Status != models.ApplicationStatusNew {
		return ErrApplicationNotNew
	}

	application.Status = status
	application.LastStatusDate = time.Now()

	if err := tx.Model(application).Updates(map[string]interface{}{
		"status":           application.Status,
		"last_status_date": application.LastStatusDate,
	}).Error; err != nil {
		return fmt.Errorf("failed to update application status: %w", err)
	}

	return nil
}

// DeleteLocalApplication removes a local driving license application and
// its base application. The specialized row is deleted first; its failure
// aborts the base delete.
func (s *ApplicationService) DeleteLocalApplication(localApplicationID uint, actingUserID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var localApplication models.LocalDrivingLicenseApplication
		if err := tx.First(&localApplication, localApplicationID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrApplicationNotFound
			}
			return fmt.Errorf("database error: %w", err)
		}

		if err := tx.Delete(&localApplication).Error; err != nil {
			return fmt.Errorf("failed to delete local driving license application: %w", err)
		}

		if err := tx.Delete(&models.Application{}, localApplication.ApplicationID).Error; err != nil {
			return fmt.Errorf("failed to delete base application: %w", err)
		}

		return nil
	})
}

// GetActiveApplicationID returns the identifier of the person's active
// (status=new) application of the given type, or 0 when none exists.
func (s *ApplicationService) GetActiveApplicationID(personID, applicationTypeID uint) (uint, error) {
	return activeApplicationID(s.db, personID, applicationTypeID)
}

// GetActiveLocalApplicationID returns the identifier of the person's
// active local driving license application for the given class, or 0.
func (s *ApplicationService) GetActiveLocalApplicationID(personID, licenseClassID uint) (uint, error) {
	return activeLocalApplicationID(s.db, personID, licenseClassID)
}

func activeApplicationID(tx *gorm.DB, personID, applicationTypeID uint) (uint, error) {
	var application models.Application
	err := tx.Select("id").
		Where("person_id = ? AND application_type_id = ? AND status = ?",
			personID, applicationTypeID, models.ApplicationStatusNew).
		First(&application).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("database error: %w", err)
	}
	return application.ID, nil
}

func activeLocalApplicationID(tx *gorm.DB, personID, licenseClassID uint) (uint, error) {
	var localApplication models.LocalDrivingLicenseApplication
	err := tx.
		Joins("JOIN applications ON applications.id = local_driving_license_applications.application_id").
		Where("applications.person_id = ? AND local_driving_license_applications.license_class_id = ? AND applications.status = ? AND applications.deleted_at IS NULL",
			personID, licenseClassID, models.ApplicationStatusNew).
		First(&localApplication).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("database error: %w", err)
	}
	return localApplication.ID, nil
}

func (s *ApplicationService) GetApplication(applicationID uint) (*models.Application, error) {
	var application models.Application
	if err := s.db.Preload("Person").Preload("ApplicationType").
		First(&application, applicationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrApplicationNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &application, nil
}

func (s *ApplicationService) GetLocalApplication(localApplicationID uint) (*models.LocalDrivingLicenseApplication, error) {
	var localApplication models.LocalDrivingLicenseApplication
	if err := s.db.Preload("Application").Preload("Application.Person").Preload("LicenseClass").
		First(&localApplication, localApplicationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrApplicationNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &localApplication, nil
}

func (s *ApplicationService) SearchApplications(params ApplicationSearchParams) ([]models.Application, int64, error) {
	query := s.db.Model(&models.Application{}).
		Preload("Person").Preload("ApplicationType")

	// Apply filters
	if params.PersonID != nil {
		query = query.Where("person_id = ?", *params.PersonID)
	}

	if params.ApplicationTypeID != nil {
		query = query.Where("application_type_id = ?", *params.ApplicationTypeID)
	}

	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}

	// Get total count
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count applications: %w", err)
	}

	// Apply sorting
	allowedSortFields := []string{"created_at", "application_date", "last_status_date", "status"}
	query = utils.ApplySort(query, params.PaginationParams, allowedSortFields)

	// Apply pagination
	query = utils.ApplyPagination(query, params.PaginationParams)

	// Execute query
	var applications []models.Application
	if err := query.Find(&applications).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch applications: %w", err)
	}

	return applications, total, nil
}
