// internal/services/person_service_test.go
package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/openroads/licensing-backend/internal/config"
	"github.com/openroads/licensing-backend/internal/models"
	"github.com/openroads/licensing-backend/internal/utils"
)

type PersonServiceTestSuite struct {
	suite.Suite
	db      *gorm.DB
	service *PersonService
	country *models.Country
}

func (suite *PersonServiceTestSuite) SetupTest() {
	suite.db = setupTestDB(suite.T())
	storageService, err := NewStorageService(&config.Config{})
	suite.Require().NoError(err)
	suite.service = NewPersonService(suite.db, storageService)
	suite.country = createTestCountry(suite.T(), suite.db)
}

func (suite *PersonServiceTestSuite) createRequest(nationalNo string) *CreatePersonRequest {
	return &CreatePersonRequest{
		NationalNo:           nationalNo,
		FirstName:            "Amira",
		LastName:             "Haddad",
		DateOfBirth:          time.Date(1994, 3, 12, 0, 0, 0, 0, time.UTC),
		Gender:               models.GenderFemale,
		Phone:                "0791234567",
		Email:                "amira@example.com",
		NationalityCountryID: suite.country.ID,
	}
}

func (suite *PersonServiceTestSuite) TestCreatePerson() {
	person, err := suite.service.CreatePerson(suite.createRequest("P-100200"))
	assert.NoError(suite.T(), err)

	assert.NotZero(suite.T(), person.ID)
	assert.Equal(suite.T(), "P-100200", person.NationalNo)
	assert.Equal(suite.T(), models.GenderFemale, person.Gender)
	assert.Equal(suite.T(), suite.country.ID, person.NationalityCountryID)
}

func (suite *PersonServiceTestSuite) TestCreatePersonDuplicateNationalNo() {
	_, err := suite.service.CreatePerson(suite.createRequest("P-100200"))
	suite.Require().NoError(err)

	_, err = suite.service.CreatePerson(suite.createRequest("P-100200"))
	assert.EqualError(suite.T(), err, "a person with this national number already exists")
}

func (suite *PersonServiceTestSuite) TestCreatePersonBadNationalNo() {
	_, err := suite.service.CreatePerson(suite.createRequest("bad"))
	assert.Error(suite.T(), err)
}

func (suite *PersonServiceTestSuite) TestCreatePersonUnknownCountry() {
	request := suite.createRequest("P-100200")
	request.NationalityCountryID = 9999

	_, err := suite.service.CreatePerson(request)
	assert.EqualError(suite.T(), err, "nationality country not found")
}

func (suite *PersonServiceTestSuite) TestUpdatePerson() {
	person, err := suite.service.CreatePerson(suite.createRequest("P-100200"))
	suite.Require().NoError(err)

	updated, err := suite.service.UpdatePerson(person.ID, &UpdatePersonRequest{
		Address: "14 Station Road",
		Phone:   "0799876543",
	})
	assert.NoError(suite.T(), err)

	reloaded, err := suite.service.GetPerson(updated.ID)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "14 Station Road", reloaded.Address)
	assert.Equal(suite.T(), "0799876543", reloaded.Phone)
	// Untouched fields survive a partial update
	assert.Equal(suite.T(), "amira@example.com", reloaded.Email)
}

func (suite *PersonServiceTestSuite) TestUpdateUnknownPerson() {
	_, err := suite.service.UpdatePerson(9999, &UpdatePersonRequest{Address: "nowhere"})
	assert.ErrorIs(suite.T(), err, ErrPersonNotFound)
}

func (suite *PersonServiceTestSuite) TestGetPersonByNationalNo() {
	created, err := suite.service.CreatePerson(suite.createRequest("P-100200"))
	suite.Require().NoError(err)

	person, err := suite.service.GetPersonByNationalNo("P-100200")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), created.ID, person.ID)
	assert.Equal(suite.T(), suite.country.Name, person.NationalityCountry.Name)

	_, err = suite.service.GetPersonByNationalNo("P-999999")
	assert.ErrorIs(suite.T(), err, ErrPersonNotFound)
}

func (suite *PersonServiceTestSuite) TestSearchPersons() {
	_, err := suite.service.CreatePerson(suite.createRequest("P-100200"))
	suite.Require().NoError(err)

	other := suite.createRequest("P-300400")
	other.FirstName = "Omar"
	other.LastName = "Nasser"
	_, err = suite.service.CreatePerson(other)
	suite.Require().NoError(err)

	nationalNo := "P-100200"
	persons, total, err := suite.service.SearchPersons(PersonSearchParams{
		NationalNo: &nationalNo,
	})
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(1), total)
	suite.Require().Len(persons, 1)
	assert.Equal(suite.T(), "Amira", persons[0].FirstName)

	persons, total, err = suite.service.SearchPersons(PersonSearchParams{
		PaginationParams: utils.PaginationParams{Search: "Nasser"},
	})
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(1), total)
	suite.Require().Len(persons, 1)
	assert.Equal(suite.T(), "Omar", persons[0].FirstName)
}

func (suite *PersonServiceTestSuite) TestListCountries() {
	countries, err := suite.service.ListCountries()
	assert.NoError(suite.T(), err)
	assert.NotEmpty(suite.T(), countries)
}

func TestPersonServiceSuite(t *testing.T) {
	suite.Run(t, new(PersonServiceTestSuite))
}
