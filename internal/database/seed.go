// internal/database/seed.go
package database

import (
	"fmt"
	"log"

	"gorm.io/gorm"

	"github.com/openroads/licensing-backend/internal/models"
)

// SeedInitialData loads the reference catalogues (application types, test
// types, license classes) and the default admin account. Catalogue rows
// are keyed by fixed identifiers the services rely on.
func SeedInitialData(db *gorm.DB) error {
	log.Println("Seeding initial data...")

	applicationTypes := []models.ApplicationType{
		{ID: models.ApplicationTypeNewDrivingLicense, Title: "New Local Driving License Service", Fee: 15},
		{ID: models.ApplicationTypeRenewDrivingLicense, Title: "Renew Driving License Service", Fee: 7},
		{ID: models.ApplicationTypeReplaceLostLicense, Title: "Replacement for a Lost Driving License", Fee: 10},
		{ID: models.ApplicationTypeReplaceDamagedLicense, Title: "Replacement for a Damaged Driving License", Fee: 10},
		{ID: models.ApplicationTypeReleaseDetainedLicense, Title: "Release Detained Driving License", Fee: 10},
		{ID: models.ApplicationTypeNewInternationalLicense, Title: "New International License", Fee: 20},
		{ID: models.ApplicationTypeRetakeTest, Title: "Retake Test", Fee: 7},
	}

	for _, applicationType := range applicationTypes {
		var count int64
		db.Model(&models.ApplicationType{}).Where("id = ?", applicationType.ID).Count(&count)
		if count == 0 {
			if err := db.Create(&applicationType).Error; err != nil {
				return fmt.Errorf("failed to seed application type %d: %w", applicationType.ID, err)
			}
		}
	}

	testTypes := []models.TestType{
		{ID: models.TestTypeVision, Title: "Vision Test", Description: "Checks the applicant's eyesight meets the minimum standard for driving.", Fee: 5},
		{ID: models.TestTypeWritten, Title: "Written Test", Description: "Theory examination on traffic law and road signs.", Fee: 10},
		{ID: models.TestTypeStreet, Title: "Street Test", Description: "Practical on-road driving examination.", Fee: 15},
	}

	for _, testType := range testTypes {
		var count int64
		db.Model(&models.TestType{}).Where("id = ?", testType.ID).Count(&count)
		if count == 0 {
			if err := db.Create(&testType).Error; err != nil {
				return fmt.Errorf("failed to seed test type %d: %w", testType.ID, err)
			}
		}
	}

	licenseClasses := []models.LicenseClass{
		{ID: 1, Name: "Class 1 - Small Motorcycle", Description: "Motorcycles up to 125cc.", MinimumAllowedAge: 18, DefaultValidityYears: 5, Fee: 15},
		{ID: 2, Name: "Class 2 - Heavy Motorcycle", Description: "Motorcycles above 125cc.", MinimumAllowedAge: 21, DefaultValidityYears: 5, Fee: 20},
		{ID: 3, Name: "Class 3 - Ordinary Driving License", Description: "Private passenger vehicles.", MinimumAllowedAge: 18, DefaultValidityYears: 10, Fee: 20},
		{ID: 4, Name: "Class 4 - Commercial", Description: "Taxis and light commercial transport.", MinimumAllowedAge: 21, DefaultValidityYears: 10, Fee: 30},
		{ID: 5, Name: "Class 5 - Agricultural", Description: "Tractors and agricultural machinery.", MinimumAllowedAge: 21, DefaultValidityYears: 10, Fee: 20},
		{ID: 6, Name: "Class 6 - Small and Medium Bus", Description: "Passenger buses up to 30 seats.", MinimumAllowedAge: 21, DefaultValidityYears: 10, Fee: 40},
		{ID: 7, Name: "Class 7 - Truck and Heavy Vehicle", Description: "Trucks and heavy goods vehicles.", MinimumAllowedAge: 21, DefaultValidityYears: 10, Fee: 50},
	}

	for _, licenseClass := range licenseClasses {
		var count int64
		db.Model(&models.LicenseClass{}).Where("id = ?", licenseClass.ID).Count(&count)
		if count == 0 {
			if err := db.Create(&licenseClass).Error; err != nil {
				return fmt.Errorf("failed to seed license class %d: %w", licenseClass.ID, err)
			}
		}
	}

	// Create default admin user
	var adminCount int64
	db.Model(&models.User{}).Where("role = ?", models.UserRoleAdmin).Count(&adminCount)

	if adminCount == 0 {
		admin := &models.User{
			Username: "admin",
			Role:     models.UserRoleAdmin,
			IsActive: true,
		}

		if err := admin.SetPassword("admin123!@#"); err != nil {
			return fmt.Errorf("failed to set admin password: %w", err)
		}

		if err := db.Create(admin).Error; err != nil {
			return fmt.Errorf("failed to create admin user: %w", err)
		}

		log.Println("Default admin user created successfully")
	}

	log.Println("Initial data seeding completed")
	return nil
}

// Transaction helper
func WithTransaction(db *gorm.DB, fn func(*gorm.DB) error) error {
	tx := db.Begin()
	if tx.Error != nil {
		return tx.Error
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit().Error
}
