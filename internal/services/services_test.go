// internal/services/services_test.go
package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/openroads/licensing-backend/internal/database"
	"github.com/openroads/licensing-backend/internal/models"
)

// testAdminID matches the seeded default admin account.
const testAdminID uint = 1

var testPersonCounter int

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// In-memory sqlite lives per connection
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.RunMigrations(db))
	require.NoError(t, database.SeedInitialData(db))

	return db
}

func createTestCountry(t *testing.T, db *gorm.DB) *models.Country {
	t.Helper()

	country := &models.Country{Name: fmt.Sprintf("Country %d", testPersonCounter)}
	testPersonCounter++
	require.NoError(t, db.Create(country).Error)
	return country
}

func createTestPerson(t *testing.T, db *gorm.DB, age int) *models.Person {
	t.Helper()

	country := createTestCountry(t, db)

	person := &models.Person{
		NationalNo:           fmt.Sprintf("NAT-%06d", testPersonCounter),
		FirstName:            "Test",
		LastName:             fmt.Sprintf("Person%d", testPersonCounter),
		DateOfBirth:          time.Now().AddDate(-age, 0, -1),
		Gender:               models.GenderMale,
		Email:                "",
		NationalityCountryID: country.ID,
	}
	testPersonCounter++
	require.NoError(t, db.Create(person).Error)
	return person
}

// passAllTests walks a local application through the full vision ->
// written -> street chain with passing results.
func passAllTests(t *testing.T, testService *TestService, localApplicationID uint) {
	t.Helper()

	passed := true
	for _, testTypeID := range []uint{models.TestTypeVision, models.TestTypeWritten, models.TestTypeStreet} {
		appointment, err := testService.ScheduleAppointment(&ScheduleAppointmentRequest{
			LocalApplicationID: localApplicationID,
			TestTypeID:         testTypeID,
			AppointmentDate:    time.Now().Add(24 * time.Hour),
		}, testAdminID)
		require.NoError(t, err)

		_, err = testService.RecordResult(&RecordResultRequest{
			AppointmentID: appointment.ID,
			Passed:        &passed,
		}, testAdminID)
		require.NoError(t, err)
	}
}
