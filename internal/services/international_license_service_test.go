// internal/services/international_license_service_test.go
package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/openroads/licensing-backend/internal/models"
)

type InternationalLicenseServiceTestSuite struct {
	suite.Suite
	db             *gorm.DB
	service        *InternationalLicenseService
	licenseService *LicenseService
	person         *models.Person
	localLicense   *models.License
}

func (suite *InternationalLicenseServiceTestSuite) SetupTest() {
	suite.db = setupTestDB(suite.T())
	suite.service = NewInternationalLicenseService(suite.db)
	suite.licenseService = NewLicenseService(suite.db, nil)

	testService := NewTestService(suite.db, nil)
	applicationService := NewApplicationService(suite.db)

	suite.person = createTestPerson(suite.T(), suite.db, 25)
	localApplication, err := applicationService.CreateLocalApplication(&CreateLocalApplicationRequest{
		PersonID:       suite.person.ID,
		LicenseClassID: 3,
	}, testAdminID)
	suite.Require().NoError(err)

	passAllTests(suite.T(), testService, localApplication.ID)

	suite.localLicense, err = suite.licenseService.IssueFirstTime(&IssueFirstTimeRequest{
		LocalApplicationID: localApplication.ID,
	}, testAdminID)
	suite.Require().NoError(err)
}

func (suite *InternationalLicenseServiceTestSuite) TestIssue() {
	international, err := suite.service.Issue(&IssueInternationalLicenseRequest{
		LocalLicenseID: suite.localLicense.ID,
	}, testAdminID)
	assert.NoError(suite.T(), err)

	assert.True(suite.T(), international.IsActive)
	assert.Equal(suite.T(), suite.localLicense.DriverID, international.DriverID)
	assert.Equal(suite.T(), suite.localLicense.ID, international.IssuedUsingLocalLicenseID)
	assert.NotEmpty(suite.T(), international.SerialNumber)

	// International licenses are valid for one year
	expectedExpiry := international.IssueDate.AddDate(1, 0, 0)
	assert.WithinDuration(suite.T(), expectedExpiry, international.ExpirationDate, time.Minute)

	// Issued in the same visit, so the application is born completed
	var application models.Application
	suite.Require().NoError(suite.db.First(&application, international.ApplicationID).Error)
	assert.Equal(suite.T(), models.ApplicationTypeNewInternationalLicense, application.ApplicationTypeID)
	assert.Equal(suite.T(), models.ApplicationStatusCompleted, application.Status)
	assert.Equal(suite.T(), 20.0, application.PaidFees)
}

func (suite *InternationalLicenseServiceTestSuite) TestIssueRequiresExistingLocalLicense() {
	_, err := suite.service.Issue(&IssueInternationalLicenseRequest{
		LocalLicenseID: 9999,
	}, testAdminID)
	assert.ErrorIs(suite.T(), err, ErrLocalLicenseRequired)
}

func (suite *InternationalLicenseServiceTestSuite) TestIssueRequiresActiveLocalLicense() {
	_, err := suite.licenseService.Detain(&DetainLicenseRequest{
		LicenseID: suite.localLicense.ID,
		FineFees:  50,
	}, testAdminID)
	suite.Require().NoError(err)

	_, err = suite.service.Issue(&IssueInternationalLicenseRequest{
		LocalLicenseID: suite.localLicense.ID,
	}, testAdminID)
	assert.ErrorIs(suite.T(), err, ErrLicenseNotActive)
}

func (suite *InternationalLicenseServiceTestSuite) TestIssueRequiresUnexpiredLocalLicense() {
	past := time.Now().AddDate(-1, 0, 0)
	suite.Require().NoError(suite.db.Model(&models.License{}).
		Where("id = ?", suite.localLicense.ID).
		UpdateColumn("expiration_date", past).Error)

	_, err := suite.service.Issue(&IssueInternationalLicenseRequest{
		LocalLicenseID: suite.localLicense.ID,
	}, testAdminID)
	assert.ErrorIs(suite.T(), err, ErrLicenseExpired)
}

func (suite *InternationalLicenseServiceTestSuite) TestReissueDeactivatesPredecessor() {
	first, err := suite.service.Issue(&IssueInternationalLicenseRequest{
		LocalLicenseID: suite.localLicense.ID,
	}, testAdminID)
	suite.Require().NoError(err)

	second, err := suite.service.Issue(&IssueInternationalLicenseRequest{
		LocalLicenseID: suite.localLicense.ID,
	}, testAdminID)
	assert.NoError(suite.T(), err)
	assert.NotEqual(suite.T(), first.ID, second.ID)

	var predecessor models.InternationalLicense
	suite.Require().NoError(suite.db.First(&predecessor, first.ID).Error)
	assert.False(suite.T(), predecessor.IsActive)

	activeID, err := suite.service.GetActiveInternationalLicenseID(suite.localLicense.DriverID)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), second.ID, activeID)
}

func (suite *InternationalLicenseServiceTestSuite) TestGetDriverInternationalLicenses() {
	_, err := suite.service.Issue(&IssueInternationalLicenseRequest{
		LocalLicenseID: suite.localLicense.ID,
	}, testAdminID)
	suite.Require().NoError(err)
	_, err = suite.service.Issue(&IssueInternationalLicenseRequest{
		LocalLicenseID: suite.localLicense.ID,
	}, testAdminID)
	suite.Require().NoError(err)

	licenses, err := suite.service.GetDriverInternationalLicenses(suite.localLicense.DriverID)
	assert.NoError(suite.T(), err)
	assert.Len(suite.T(), licenses, 2)
}

func (suite *InternationalLicenseServiceTestSuite) TestDeactivateExpired() {
	international, err := suite.service.Issue(&IssueInternationalLicenseRequest{
		LocalLicenseID: suite.localLicense.ID,
	}, testAdminID)
	suite.Require().NoError(err)

	count, err := suite.service.DeactivateExpired(time.Now())
	assert.NoError(suite.T(), err)
	assert.Zero(suite.T(), count)

	count, err = suite.service.DeactivateExpired(international.ExpirationDate.AddDate(0, 0, 1))
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(1), count)

	var swept models.InternationalLicense
	suite.Require().NoError(suite.db.First(&swept, international.ID).Error)
	assert.False(suite.T(), swept.IsActive)
}

func TestInternationalLicenseServiceSuite(t *testing.T) {
	suite.Run(t, new(InternationalLicenseServiceTestSuite))
}
