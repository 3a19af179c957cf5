// internal/services/license_service_test.go
package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/openroads/licensing-backend/internal/models"
)

type LicenseServiceTestSuite struct {
	suite.Suite
	db                 *gorm.DB
	service            *LicenseService
	testService        *TestService
	applicationService *ApplicationService
	person             *models.Person
	localApplication   *models.LocalDrivingLicenseApplication
}

func (suite *LicenseServiceTestSuite) SetupTest() {
	suite.db = setupTestDB(suite.T())
	suite.service = NewLicenseService(suite.db, nil)
	suite.testService = NewTestService(suite.db, nil)
	suite.applicationService = NewApplicationService(suite.db)

	suite.person = createTestPerson(suite.T(), suite.db, 25)
	localApplication, err := suite.applicationService.CreateLocalApplication(&CreateLocalApplicationRequest{
		PersonID:       suite.person.ID,
		LicenseClassID: 3,
	}, testAdminID)
	suite.Require().NoError(err)
	suite.localApplication = localApplication
}

// issueLicense walks the person through the full test chain and first
// issuance of a Class 3 license.
func (suite *LicenseServiceTestSuite) issueLicense() *models.License {
	passAllTests(suite.T(), suite.testService, suite.localApplication.ID)

	license, err := suite.service.IssueFirstTime(&IssueFirstTimeRequest{
		LocalApplicationID: suite.localApplication.ID,
	}, testAdminID)
	suite.Require().NoError(err)
	return license
}

func (suite *LicenseServiceTestSuite) TestIssueFirstTimeRequiresAllTests() {
	_, err := suite.service.IssueFirstTime(&IssueFirstTimeRequest{
		LocalApplicationID: suite.localApplication.ID,
	}, testAdminID)

	assert.ErrorIs(suite.T(), err, ErrTestsNotComplete)
}

func (suite *LicenseServiceTestSuite) TestIssueFirstTime() {
	license := suite.issueLicense()

	assert.True(suite.T(), license.IsActive)
	assert.Equal(suite.T(), models.IssueReasonFirstTime, license.IssueReason)
	assert.NotEmpty(suite.T(), license.SerialNumber)
	assert.Equal(suite.T(), 20.0, license.PaidFees)

	// Class 3 validity is 10 years
	expectedExpiry := license.IssueDate.AddDate(10, 0, 0)
	assert.WithinDuration(suite.T(), expectedExpiry, license.ExpirationDate, time.Minute)

	// The source application was completed in the same transaction
	application, err := suite.applicationService.GetApplication(suite.localApplication.ApplicationID)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.ApplicationStatusCompleted, application.Status)

	// A driver record now exists for the person
	var driver models.Driver
	assert.NoError(suite.T(), suite.db.Where("person_id = ?", suite.person.ID).First(&driver).Error)
	assert.Equal(suite.T(), driver.ID, license.DriverID)
}

func (suite *LicenseServiceTestSuite) TestIssueFirstTimeIsNotRepeatable() {
	suite.issueLicense()

	// The application was completed, so a second issuance is rejected
	_, err := suite.service.IssueFirstTime(&IssueFirstTimeRequest{
		LocalApplicationID: suite.localApplication.ID,
	}, testAdminID)
	assert.ErrorIs(suite.T(), err, ErrApplicationNotNew)
}

func (suite *LicenseServiceTestSuite) TestActiveLicenseBlocksNewApplication() {
	suite.issueLicense()

	_, err := suite.applicationService.CreateLocalApplication(&CreateLocalApplicationRequest{
		PersonID:       suite.person.ID,
		LicenseClassID: 3,
	}, testAdminID)
	assert.ErrorIs(suite.T(), err, ErrActiveLicenseExists)

	// A different class is still open
	_, err = suite.applicationService.CreateLocalApplication(&CreateLocalApplicationRequest{
		PersonID:       suite.person.ID,
		LicenseClassID: 1,
	}, testAdminID)
	assert.NoError(suite.T(), err)
}

func (suite *LicenseServiceTestSuite) TestRenew() {
	oldLicense := suite.issueLicense()

	newLicense, err := suite.service.Renew(&RenewLicenseRequest{
		LicenseID: oldLicense.ID,
	}, testAdminID)
	assert.NoError(suite.T(), err)

	assert.True(suite.T(), newLicense.IsActive)
	assert.Equal(suite.T(), models.IssueReasonRenew, newLicense.IssueReason)
	assert.Equal(suite.T(), oldLicense.DriverID, newLicense.DriverID)
	assert.NotEqual(suite.T(), oldLicense.SerialNumber, newLicense.SerialNumber)
	assert.Equal(suite.T(), 20.0, newLicense.PaidFees)

	expectedExpiry := newLicense.IssueDate.AddDate(10, 0, 0)
	assert.WithinDuration(suite.T(), expectedExpiry, newLicense.ExpirationDate, time.Minute)

	// The predecessor is deactivated in the same transaction
	var predecessor models.License
	suite.Require().NoError(suite.db.First(&predecessor, oldLicense.ID).Error)
	assert.False(suite.T(), predecessor.IsActive)

	// Exactly one active license per (person, class)
	activeID, err := suite.service.GetActiveLicenseID(suite.person.ID, 3)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), newLicense.ID, activeID)

	// The renewal created its own completed application
	var renewalApplication models.Application
	suite.Require().NoError(suite.db.First(&renewalApplication, newLicense.ApplicationID).Error)
	assert.Equal(suite.T(), models.ApplicationTypeRenewDrivingLicense, renewalApplication.ApplicationTypeID)
	assert.Equal(suite.T(), models.ApplicationStatusCompleted, renewalApplication.Status)
}

func (suite *LicenseServiceTestSuite) TestRenewInactiveLicense() {
	oldLicense := suite.issueLicense()

	_, err := suite.service.Renew(&RenewLicenseRequest{LicenseID: oldLicense.ID}, testAdminID)
	suite.Require().NoError(err)

	// The deactivated predecessor cannot be renewed again
	_, err = suite.service.Renew(&RenewLicenseRequest{LicenseID: oldLicense.ID}, testAdminID)
	assert.ErrorIs(suite.T(), err, ErrLicenseNotActive)
}

func (suite *LicenseServiceTestSuite) TestReplaceKeepsExpirationDate() {
	oldLicense := suite.issueLicense()

	replacement, err := suite.service.Replace(&ReplaceLicenseRequest{
		LicenseID: oldLicense.ID,
		Reason:    models.IssueReasonReplacementLost,
	}, testAdminID)
	assert.NoError(suite.T(), err)

	assert.True(suite.T(), replacement.IsActive)
	assert.Equal(suite.T(), models.IssueReasonReplacementLost, replacement.IssueReason)
	assert.Equal(suite.T(), oldLicense.ExpirationDate.Unix(), replacement.ExpirationDate.Unix())
	assert.Zero(suite.T(), replacement.PaidFees)
	assert.NotEqual(suite.T(), oldLicense.SerialNumber, replacement.SerialNumber)

	var predecessor models.License
	suite.Require().NoError(suite.db.First(&predecessor, oldLicense.ID).Error)
	assert.False(suite.T(), predecessor.IsActive)

	// The replacement application carries the lost-license catalogue type
	var application models.Application
	suite.Require().NoError(suite.db.First(&application, replacement.ApplicationID).Error)
	assert.Equal(suite.T(), models.ApplicationTypeReplaceLostLicense, application.ApplicationTypeID)
	assert.Equal(suite.T(), 10.0, application.PaidFees)
}

func (suite *LicenseServiceTestSuite) TestReplaceRejectsBadReason() {
	license := suite.issueLicense()

	_, err := suite.service.Replace(&ReplaceLicenseRequest{
		LicenseID: license.ID,
		Reason:    models.IssueReasonRenew,
	}, testAdminID)
	assert.ErrorIs(suite.T(), err, ErrInvalidReplacementReason)
}

func (suite *LicenseServiceTestSuite) TestDetainDeactivatesLicense() {
	license := suite.issueLicense()

	detention, err := suite.service.Detain(&DetainLicenseRequest{
		LicenseID: license.ID,
		FineFees:  50,
	}, testAdminID)
	assert.NoError(suite.T(), err)
	assert.False(suite.T(), detention.IsReleased)
	assert.Equal(suite.T(), 50.0, detention.FineFees)

	var detained models.License
	suite.Require().NoError(suite.db.First(&detained, license.ID).Error)
	assert.False(suite.T(), detained.IsActive)

	held, err := suite.service.IsDetained(license.ID)
	assert.NoError(suite.T(), err)
	assert.True(suite.T(), held)
}

func (suite *LicenseServiceTestSuite) TestDetainedLicenseCannotBeDetainedAgain() {
	license := suite.issueLicense()

	_, err := suite.service.Detain(&DetainLicenseRequest{LicenseID: license.ID, FineFees: 50}, testAdminID)
	suite.Require().NoError(err)

	// Deactivated by detention, so a second detention fails the active check
	_, err = suite.service.Detain(&DetainLicenseRequest{LicenseID: license.ID, FineFees: 75}, testAdminID)
	assert.ErrorIs(suite.T(), err, ErrLicenseNotActive)
}

func (suite *LicenseServiceTestSuite) TestReleaseReactivatesLicense() {
	license := suite.issueLicense()

	detention, err := suite.service.Detain(&DetainLicenseRequest{LicenseID: license.ID, FineFees: 50}, testAdminID)
	suite.Require().NoError(err)

	released, err := suite.service.Release(&ReleaseLicenseRequest{
		DetainedLicenseID: detention.ID,
	}, testAdminID)
	assert.NoError(suite.T(), err)
	assert.True(suite.T(), released.IsReleased)
	suite.Require().NotNil(released.ReleaseDate)
	suite.Require().NotNil(released.ReleaseApplicationID)

	// The release created its own completed application
	var releaseApplication models.Application
	suite.Require().NoError(suite.db.First(&releaseApplication, *released.ReleaseApplicationID).Error)
	assert.Equal(suite.T(), models.ApplicationTypeReleaseDetainedLicense, releaseApplication.ApplicationTypeID)
	assert.Equal(suite.T(), models.ApplicationStatusCompleted, releaseApplication.Status)

	var reactivated models.License
	suite.Require().NoError(suite.db.First(&reactivated, license.ID).Error)
	assert.True(suite.T(), reactivated.IsActive)

	held, err := suite.service.IsDetained(license.ID)
	assert.NoError(suite.T(), err)
	assert.False(suite.T(), held)
}

func (suite *LicenseServiceTestSuite) TestReleaseIsTerminal() {
	license := suite.issueLicense()

	detention, err := suite.service.Detain(&DetainLicenseRequest{LicenseID: license.ID, FineFees: 50}, testAdminID)
	suite.Require().NoError(err)

	_, err = suite.service.Release(&ReleaseLicenseRequest{DetainedLicenseID: detention.ID}, testAdminID)
	suite.Require().NoError(err)

	_, err = suite.service.Release(&ReleaseLicenseRequest{DetainedLicenseID: detention.ID}, testAdminID)
	assert.ErrorIs(suite.T(), err, ErrDetentionAlreadyReleased)
}

func (suite *LicenseServiceTestSuite) TestRedetentionAfterReleaseCreatesNewRecord() {
	license := suite.issueLicense()

	first, err := suite.service.Detain(&DetainLicenseRequest{LicenseID: license.ID, FineFees: 50}, testAdminID)
	suite.Require().NoError(err)
	_, err = suite.service.Release(&ReleaseLicenseRequest{DetainedLicenseID: first.ID}, testAdminID)
	suite.Require().NoError(err)

	second, err := suite.service.Detain(&DetainLicenseRequest{LicenseID: license.ID, FineFees: 80}, testAdminID)
	assert.NoError(suite.T(), err)
	assert.NotEqual(suite.T(), first.ID, second.ID)
}

func (suite *LicenseServiceTestSuite) TestDetainedLicenseCannotBeRenewed() {
	license := suite.issueLicense()

	_, err := suite.service.Detain(&DetainLicenseRequest{LicenseID: license.ID, FineFees: 50}, testAdminID)
	suite.Require().NoError(err)

	_, err = suite.service.Renew(&RenewLicenseRequest{LicenseID: license.ID}, testAdminID)
	assert.ErrorIs(suite.T(), err, ErrLicenseNotActive)
}

func (suite *LicenseServiceTestSuite) TestVerifyLicenseBySerial() {
	license := suite.issueLicense()

	verified, err := suite.service.VerifyLicenseBySerial(license.SerialNumber)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), license.ID, verified.ID)

	_, err = suite.service.VerifyLicenseBySerial("no-such-serial")
	assert.ErrorIs(suite.T(), err, ErrLicenseNotFound)

	_, err = suite.service.Detain(&DetainLicenseRequest{LicenseID: license.ID, FineFees: 50}, testAdminID)
	suite.Require().NoError(err)

	_, err = suite.service.VerifyLicenseBySerial(license.SerialNumber)
	assert.ErrorIs(suite.T(), err, ErrLicenseNotActive)
}

func (suite *LicenseServiceTestSuite) TestDeactivateExpiredLicenses() {
	license := suite.issueLicense()

	// Not yet expired: sweep leaves it alone
	count, err := suite.service.DeactivateExpiredLicenses(time.Now())
	assert.NoError(suite.T(), err)
	assert.Zero(suite.T(), count)

	count, err = suite.service.DeactivateExpiredLicenses(license.ExpirationDate.AddDate(0, 0, 1))
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(1), count)

	var swept models.License
	suite.Require().NoError(suite.db.First(&swept, license.ID).Error)
	assert.False(suite.T(), swept.IsActive)
}

func (suite *LicenseServiceTestSuite) TestGetPersonLicenses() {
	oldLicense := suite.issueLicense()
	_, err := suite.service.Renew(&RenewLicenseRequest{LicenseID: oldLicense.ID}, testAdminID)
	suite.Require().NoError(err)

	licenses, err := suite.service.GetPersonLicenses(suite.person.ID)
	assert.NoError(suite.T(), err)
	assert.Len(suite.T(), licenses, 2)
}

func TestLicenseServiceSuite(t *testing.T) {
	suite.Run(t, new(LicenseServiceTestSuite))
}
