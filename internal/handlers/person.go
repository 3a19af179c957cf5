// internal/handlers/person.go
package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/openroads/licensing-backend/internal/services"
	"github.com/openroads/licensing-backend/internal/utils"
)

type PersonHandler struct {
	personService *services.PersonService
}

func NewPersonHandler(personService *services.PersonService) *PersonHandler {
	return &PersonHandler{
		personService: personService,
	}
}

// POST /persons
func (h *PersonHandler) CreatePerson(c *gin.Context) {
	var req services.CreatePersonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	person, err := h.personService.CreatePerson(&req)
	if err != nil {
		utils.BadRequestResponse(c, err.Error(), nil)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"person": person,
	})
}

// PUT /persons/:id
func (h *PersonHandler) UpdatePerson(c *gin.Context) {
	personID, ok := parseUintParam(c, "id")
	if !ok {
		utils.BadRequestResponse(c, "Invalid person ID", nil)
		return
	}

	var req services.UpdatePersonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	person, err := h.personService.UpdatePerson(personID, &req)
	if err != nil {
		if errors.Is(err, services.ErrPersonNotFound) {
			utils.NotFoundResponse(c, "person")
			return
		}
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, gin.H{
		"person": person,
	})
}

// GET /persons/:id
func (h *PersonHandler) GetPerson(c *gin.Context) {
	personID, ok := parseUintParam(c, "id")
	if !ok {
		utils.BadRequestResponse(c, "Invalid person ID", nil)
		return
	}

	person, err := h.personService.GetPerson(personID)
	if err != nil {
		if errors.Is(err, services.ErrPersonNotFound) {
			utils.NotFoundResponse(c, "person")
			return
		}
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, gin.H{
		"person": person,
	})
}

// GET /persons/by-national-no/:national_no
func (h *PersonHandler) GetPersonByNationalNo(c *gin.Context) {
	nationalNo := c.Param("national_no")
	if nationalNo == "" {
		utils.BadRequestResponse(c, "Invalid national number", nil)
		return
	}

	person, err := h.personService.GetPersonByNationalNo(nationalNo)
	if err != nil {
		if errors.Is(err, services.ErrPersonNotFound) {
			utils.NotFoundResponse(c, "person")
			return
		}
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, gin.H{
		"person": person,
	})
}

// GET /persons
func (h *PersonHandler) SearchPersons(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	searchParams := services.PersonSearchParams{
		PaginationParams: params,
	}
	if nationalNo := c.Query("national_no"); nationalNo != "" {
		searchParams.NationalNo = &nationalNo
	}

	persons, total, err := h.personService.SearchPersons(searchParams)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	result := utils.CreatePaginationResult(persons, total, params)
	utils.PaginatedResponse(c, result)
}

// POST /persons/:id/photo
func (h *PersonHandler) UploadPhoto(c *gin.Context) {
	personID, ok := parseUintParam(c, "id")
	if !ok {
		utils.BadRequestResponse(c, "Invalid person ID", nil)
		return
	}

	file, header, err := c.Request.FormFile("photo")
	if err != nil {
		utils.BadRequestResponse(c, "Photo file is required", err.Error())
		return
	}
	defer file.Close()

	person, err := h.personService.UploadPhoto(personID, file, header)
	if err != nil {
		if errors.Is(err, services.ErrPersonNotFound) {
			utils.NotFoundResponse(c, "person")
			return
		}
		utils.BadRequestResponse(c, err.Error(), nil)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"person": person,
	})
}

// GET /countries
func (h *PersonHandler) ListCountries(c *gin.Context) {
	countries, err := h.personService.ListCountries()
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, gin.H{
		"countries": countries,
	})
}
