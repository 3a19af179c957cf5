// internal/services/test_service_test.go
package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/openroads/licensing-backend/internal/models"
)

type TestServiceTestSuite struct {
	suite.Suite
	db                 *gorm.DB
	service            *TestService
	applicationService *ApplicationService
	localApplication   *models.LocalDrivingLicenseApplication
}

func (suite *TestServiceTestSuite) SetupTest() {
	suite.db = setupTestDB(suite.T())
	suite.service = NewTestService(suite.db, nil)
	suite.applicationService = NewApplicationService(suite.db)

	person := createTestPerson(suite.T(), suite.db, 25)
	localApplication, err := suite.applicationService.CreateLocalApplication(&CreateLocalApplicationRequest{
		PersonID:       person.ID,
		LicenseClassID: 3,
	}, testAdminID)
	suite.Require().NoError(err)
	suite.localApplication = localApplication
}

func (suite *TestServiceTestSuite) schedule(testTypeID uint) (*models.TestAppointment, error) {
	return suite.service.ScheduleAppointment(&ScheduleAppointmentRequest{
		LocalApplicationID: suite.localApplication.ID,
		TestTypeID:         testTypeID,
		AppointmentDate:    time.Now().Add(24 * time.Hour),
	}, testAdminID)
}

func (suite *TestServiceTestSuite) record(appointmentID uint, passed bool) (*models.Test, error) {
	return suite.service.RecordResult(&RecordResultRequest{
		AppointmentID: appointmentID,
		Passed:        &passed,
	}, testAdminID)
}

func (suite *TestServiceTestSuite) TestScheduleVisionTest() {
	appointment, err := suite.schedule(models.TestTypeVision)

	assert.NoError(suite.T(), err)
	assert.False(suite.T(), appointment.IsLocked)
	assert.Equal(suite.T(), 5.0, appointment.PaidFees)
	assert.Nil(suite.T(), appointment.RetakeTestApplicationID)
}

func (suite *TestServiceTestSuite) TestOrderedChainIsEnforced() {
	// Written before vision is rejected
	_, err := suite.schedule(models.TestTypeWritten)
	assert.ErrorIs(suite.T(), err, ErrPrerequisiteTestNotPassed)

	// Street before written is rejected too
	_, err = suite.schedule(models.TestTypeStreet)
	assert.ErrorIs(suite.T(), err, ErrPrerequisiteTestNotPassed)

	// Passing vision unlocks written but not street
	appointment, err := suite.schedule(models.TestTypeVision)
	assert.NoError(suite.T(), err)
	_, err = suite.record(appointment.ID, true)
	assert.NoError(suite.T(), err)

	_, err = suite.schedule(models.TestTypeStreet)
	assert.ErrorIs(suite.T(), err, ErrPrerequisiteTestNotPassed)

	_, err = suite.schedule(models.TestTypeWritten)
	assert.NoError(suite.T(), err)
}

func (suite *TestServiceTestSuite) TestFailedPrerequisiteBlocksNextTest() {
	appointment, err := suite.schedule(models.TestTypeVision)
	assert.NoError(suite.T(), err)
	_, err = suite.record(appointment.ID, false)
	assert.NoError(suite.T(), err)

	_, err = suite.schedule(models.TestTypeWritten)
	assert.ErrorIs(suite.T(), err, ErrPrerequisiteTestNotPassed)
}

func (suite *TestServiceTestSuite) TestOneActiveAppointmentPerTestType() {
	_, err := suite.schedule(models.TestTypeVision)
	assert.NoError(suite.T(), err)

	_, err = suite.schedule(models.TestTypeVision)
	assert.ErrorIs(suite.T(), err, ErrActiveAppointmentExists)
}

func (suite *TestServiceTestSuite) TestRecordResultLocksAppointment() {
	appointment, err := suite.schedule(models.TestTypeVision)
	assert.NoError(suite.T(), err)

	result, err := suite.record(appointment.ID, true)
	assert.NoError(suite.T(), err)
	assert.True(suite.T(), result.TestResult)

	var locked models.TestAppointment
	suite.Require().NoError(suite.db.First(&locked, appointment.ID).Error)
	assert.True(suite.T(), locked.IsLocked)

	// A locked appointment never receives a second result
	_, err = suite.record(appointment.ID, false)
	assert.ErrorIs(suite.T(), err, ErrAppointmentLocked)
}

func (suite *TestServiceTestSuite) TestRecordResultUnknownAppointment() {
	_, err := suite.record(9999, true)
	assert.ErrorIs(suite.T(), err, ErrAppointmentNotFound)
}

func (suite *TestServiceTestSuite) TestRetakeCreatesCompletedApplication() {
	appointment, err := suite.schedule(models.TestTypeVision)
	assert.NoError(suite.T(), err)
	_, err = suite.record(appointment.ID, false)
	assert.NoError(suite.T(), err)

	retake, err := suite.schedule(models.TestTypeVision)
	assert.NoError(suite.T(), err)
	suite.Require().NotNil(retake.RetakeTestApplicationID)

	var retakeApplication models.Application
	suite.Require().NoError(suite.db.First(&retakeApplication, *retake.RetakeTestApplicationID).Error)
	assert.Equal(suite.T(), uint(models.ApplicationTypeRetakeTest), retakeApplication.ApplicationTypeID)
	assert.Equal(suite.T(), models.ApplicationStatusCompleted, retakeApplication.Status)
	assert.Equal(suite.T(), 7.0, retakeApplication.PaidFees)

	trials, err := suite.service.GetTrialCount(suite.localApplication.ID, models.TestTypeVision)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(1), trials)
}

func (suite *TestServiceTestSuite) TestPassedTestCannotBeResat() {
	appointment, err := suite.schedule(models.TestTypeVision)
	assert.NoError(suite.T(), err)
	_, err = suite.record(appointment.ID, true)
	assert.NoError(suite.T(), err)

	_, err = suite.schedule(models.TestTypeVision)
	assert.ErrorIs(suite.T(), err, ErrTestAlreadyPassed)
}

func (suite *TestServiceTestSuite) TestLatestResultGoverns() {
	// Fail vision, retake and pass; the latest result wins
	appointment, err := suite.schedule(models.TestTypeVision)
	assert.NoError(suite.T(), err)
	_, err = suite.record(appointment.ID, false)
	assert.NoError(suite.T(), err)

	retake, err := suite.schedule(models.TestTypeVision)
	assert.NoError(suite.T(), err)
	_, err = suite.record(retake.ID, true)
	assert.NoError(suite.T(), err)

	ok, err := suite.service.DoesPassPreviousTest(suite.localApplication.ID, models.TestTypeWritten)
	assert.NoError(suite.T(), err)
	assert.True(suite.T(), ok)
}

func (suite *TestServiceTestSuite) TestPassedAllTests() {
	passed, err := suite.service.PassedAllTests(suite.localApplication.ID)
	assert.NoError(suite.T(), err)
	assert.False(suite.T(), passed)

	passAllTests(suite.T(), suite.service, suite.localApplication.ID)

	passed, err = suite.service.PassedAllTests(suite.localApplication.ID)
	assert.NoError(suite.T(), err)
	assert.True(suite.T(), passed)

	count, err := suite.service.GetPassedTestCount(suite.localApplication.ID)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), 3, count)
}

func (suite *TestServiceTestSuite) TestScheduleRejectedOnSettledApplication() {
	_, err := suite.applicationService.CancelApplication(suite.localApplication.ApplicationID, testAdminID)
	suite.Require().NoError(err)

	_, err = suite.schedule(models.TestTypeVision)
	assert.ErrorIs(suite.T(), err, ErrApplicationNotNew)
}

func (suite *TestServiceTestSuite) TestGetApplicationTestStatus() {
	appointment, err := suite.schedule(models.TestTypeVision)
	assert.NoError(suite.T(), err)
	_, err = suite.record(appointment.ID, true)
	assert.NoError(suite.T(), err)

	statuses, err := suite.service.GetApplicationTestStatus(suite.localApplication.ID)
	assert.NoError(suite.T(), err)
	suite.Require().Len(statuses, 3)

	assert.Equal(suite.T(), uint(models.TestTypeVision), statuses[0].TestTypeID)
	assert.True(suite.T(), statuses[0].Passed)
	assert.Equal(suite.T(), int64(1), statuses[0].TrialCount)

	assert.False(suite.T(), statuses[1].Attended)
	assert.False(suite.T(), statuses[2].Attended)
}

func TestTestServiceSuite(t *testing.T) {
	suite.Run(t, new(TestServiceTestSuite))
}
