// internal/handlers/license_test.go
package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/openroads/licensing-backend/internal/database"
	"github.com/openroads/licensing-backend/internal/models"
	"github.com/openroads/licensing-backend/internal/services"
)

// LicenseHandlerTestSuite exercises the license endpoints over HTTP with
// real services on an in-memory database. Authentication middleware is
// replaced with a stub that injects the seeded admin.
type LicenseHandlerTestSuite struct {
	suite.Suite
	db      *gorm.DB
	router  *gin.Engine
	service *services.LicenseService
	person  *models.Person
}

func (suite *LicenseHandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	suite.Require().NoError(err)
	sqlDB, err := db.DB()
	suite.Require().NoError(err)
	sqlDB.SetMaxOpenConns(1)

	suite.Require().NoError(database.RunMigrations(db))
	suite.Require().NoError(database.SeedInitialData(db))
	suite.db = db

	suite.service = services.NewLicenseService(db, nil)
	handler := NewLicenseHandler(suite.service)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("user_id", uint(1))
		c.Set("user_role", string(models.UserRoleAdmin))
		c.Next()
	})
	v1 := router.Group("/v1")
	v1.GET("/verify/licenses/:serial", handler.VerifyLicense)
	v1.POST("/licenses/issue", handler.IssueFirstTime)
	v1.POST("/licenses/detain", handler.Detain)
	v1.GET("/licenses/:id", handler.GetLicense)
	suite.router = router

	suite.person = suite.createPerson()
}

func (suite *LicenseHandlerTestSuite) createPerson() *models.Person {
	country := &models.Country{Name: "Testland"}
	suite.Require().NoError(suite.db.Create(country).Error)

	person := &models.Person{
		NationalNo:           "H-000001",
		FirstName:            "Test",
		LastName:             "Holder",
		DateOfBirth:          time.Now().AddDate(-30, 0, 0),
		Gender:               models.GenderMale,
		NationalityCountryID: country.ID,
	}
	suite.Require().NoError(suite.db.Create(person).Error)
	return person
}

// issueLicense drives the person through application, all three tests
// and first issuance, returning the active license.
func (suite *LicenseHandlerTestSuite) issueLicense() *models.License {
	applicationService := services.NewApplicationService(suite.db)
	testService := services.NewTestService(suite.db, nil)

	localApplication, err := applicationService.CreateLocalApplication(&services.CreateLocalApplicationRequest{
		PersonID:       suite.person.ID,
		LicenseClassID: 3,
	}, 1)
	suite.Require().NoError(err)

	passed := true
	for _, testTypeID := range []uint{models.TestTypeVision, models.TestTypeWritten, models.TestTypeStreet} {
		appointment, err := testService.ScheduleAppointment(&services.ScheduleAppointmentRequest{
			LocalApplicationID: localApplication.ID,
			TestTypeID:         testTypeID,
			AppointmentDate:    time.Now().Add(time.Hour),
		}, 1)
		suite.Require().NoError(err)

		_, err = testService.RecordResult(&services.RecordResultRequest{
			AppointmentID: appointment.ID,
			Passed:        &passed,
		}, 1)
		suite.Require().NoError(err)
	}

	license, err := suite.service.IssueFirstTime(&services.IssueFirstTimeRequest{
		LocalApplicationID: localApplication.ID,
	}, 1)
	suite.Require().NoError(err)
	return license
}

func (suite *LicenseHandlerTestSuite) request(method, path string, body interface{}) *httptest.ResponseRecorder {
	var payload *bytes.Buffer
	if body != nil {
		raw, err := json.Marshal(body)
		suite.Require().NoError(err)
		payload = bytes.NewBuffer(raw)
	} else {
		payload = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, payload)
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	suite.router.ServeHTTP(recorder, req)
	return recorder
}

func (suite *LicenseHandlerTestSuite) TestVerifyActiveLicense() {
	license := suite.issueLicense()

	recorder := suite.request(http.MethodGet, "/v1/verify/licenses/"+license.SerialNumber, nil)
	assert.Equal(suite.T(), http.StatusOK, recorder.Code)

	var response struct {
		Success bool `json:"success"`
		Data    struct {
			Valid bool `json:"valid"`
		} `json:"data"`
	}
	suite.Require().NoError(json.Unmarshal(recorder.Body.Bytes(), &response))
	assert.True(suite.T(), response.Success)
	assert.True(suite.T(), response.Data.Valid)
}

func (suite *LicenseHandlerTestSuite) TestVerifyUnknownSerial() {
	recorder := suite.request(http.MethodGet, "/v1/verify/licenses/no-such-serial", nil)
	assert.Equal(suite.T(), http.StatusNotFound, recorder.Code)
}

func (suite *LicenseHandlerTestSuite) TestVerifyDetainedLicense() {
	license := suite.issueLicense()

	recorder := suite.request(http.MethodPost, "/v1/licenses/detain", gin.H{
		"license_id": license.ID,
		"fine_fees":  50,
	})
	suite.Require().Equal(http.StatusCreated, recorder.Code)

	recorder = suite.request(http.MethodGet, "/v1/verify/licenses/"+license.SerialNumber, nil)
	assert.Equal(suite.T(), http.StatusOK, recorder.Code)

	var response struct {
		Data struct {
			Valid  bool   `json:"valid"`
			Reason string `json:"reason"`
		} `json:"data"`
	}
	suite.Require().NoError(json.Unmarshal(recorder.Body.Bytes(), &response))
	assert.False(suite.T(), response.Data.Valid)
	assert.NotEmpty(suite.T(), response.Data.Reason)
}

func (suite *LicenseHandlerTestSuite) TestIssueBeforeTestsComplete() {
	applicationService := services.NewApplicationService(suite.db)
	localApplication, err := applicationService.CreateLocalApplication(&services.CreateLocalApplicationRequest{
		PersonID:       suite.person.ID,
		LicenseClassID: 3,
	}, 1)
	suite.Require().NoError(err)

	recorder := suite.request(http.MethodPost, "/v1/licenses/issue", gin.H{
		"local_application_id": localApplication.ID,
	})
	assert.Equal(suite.T(), http.StatusBadRequest, recorder.Code)
}

func (suite *LicenseHandlerTestSuite) TestGetLicense() {
	license := suite.issueLicense()

	recorder := suite.request(http.MethodGet, fmt.Sprintf("/v1/licenses/%d", license.ID), nil)
	assert.Equal(suite.T(), http.StatusOK, recorder.Code)

	recorder = suite.request(http.MethodGet, "/v1/licenses/9999", nil)
	assert.Equal(suite.T(), http.StatusNotFound, recorder.Code)
}

func TestLicenseHandlerSuite(t *testing.T) {
	suite.Run(t, new(LicenseHandlerTestSuite))
}
