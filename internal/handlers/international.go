// internal/handlers/international.go
package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/openroads/licensing-backend/internal/services"
	"github.com/openroads/licensing-backend/internal/utils"
)

type InternationalLicenseHandler struct {
	internationalService *services.InternationalLicenseService
}

func NewInternationalLicenseHandler(internationalService *services.InternationalLicenseService) *InternationalLicenseHandler {
	return &InternationalLicenseHandler{
		internationalService: internationalService,
	}
}

// POST /international-licenses
func (h *InternationalLicenseHandler) Issue(c *gin.Context) {
	actingUserID, exists := utils.GetUserIDFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var req services.IssueInternationalLicenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	license, err := h.internationalService.Issue(&req, actingUserID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrLicenseNotFound):
			utils.NotFoundResponse(c, "license")
		case errors.Is(err, services.ErrLicenseNotActive),
			errors.Is(err, services.ErrLicenseExpired):
			utils.ConflictResponse(c, err.Error())
		default:
			utils.InternalErrorResponse(c, err.Error())
		}
		return
	}

	utils.CreatedResponse(c, gin.H{
		"international_license": license,
	})
}

// GET /international-licenses/:id
func (h *InternationalLicenseHandler) GetInternationalLicense(c *gin.Context) {
	licenseID, ok := parseUintParam(c, "id")
	if !ok {
		utils.BadRequestResponse(c, "Invalid license ID", nil)
		return
	}

	license, err := h.internationalService.GetInternationalLicense(licenseID)
	if err != nil {
		if errors.Is(err, services.ErrLicenseNotFound) {
			utils.NotFoundResponse(c, "international license")
			return
		}
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, gin.H{
		"international_license": license,
	})
}

// GET /drivers/:id/international-licenses
func (h *InternationalLicenseHandler) GetDriverInternationalLicenses(c *gin.Context) {
	driverID, ok := parseUintParam(c, "id")
	if !ok {
		utils.BadRequestResponse(c, "Invalid driver ID", nil)
		return
	}

	licenses, err := h.internationalService.GetDriverInternationalLicenses(driverID)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, gin.H{
		"international_licenses": licenses,
	})
}
