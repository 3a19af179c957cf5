// internal/handlers/license.go
package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/openroads/licensing-backend/internal/services"
	"github.com/openroads/licensing-backend/internal/utils"
)

type LicenseHandler struct {
	licenseService *services.LicenseService
}

func NewLicenseHandler(licenseService *services.LicenseService) *LicenseHandler {
	return &LicenseHandler{
		licenseService: licenseService,
	}
}

// POST /licenses/issue
func (h *LicenseHandler) IssueFirstTime(c *gin.Context) {
	actingUserID, exists := utils.GetUserIDFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var req services.IssueFirstTimeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	license, err := h.licenseService.IssueFirstTime(&req, actingUserID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrApplicationNotFound):
			utils.NotFoundResponse(c, "application")
		case errors.Is(err, services.ErrApplicationNotNew),
			errors.Is(err, services.ErrActiveLicenseExists):
			utils.ConflictResponse(c, err.Error())
		case errors.Is(err, services.ErrTestsNotComplete):
			utils.BadRequestResponse(c, err.Error(), nil)
		default:
			utils.InternalErrorResponse(c, err.Error())
		}
		return
	}

	utils.CreatedResponse(c, gin.H{
		"license": license,
	})
}

// POST /licenses/renew
func (h *LicenseHandler) Renew(c *gin.Context) {
	actingUserID, exists := utils.GetUserIDFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var req services.RenewLicenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	license, err := h.licenseService.Renew(&req, actingUserID)
	if err != nil {
		h.respondLicenseError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"license": license,
	})
}

// POST /licenses/replace
func (h *LicenseHandler) Replace(c *gin.Context) {
	actingUserID, exists := utils.GetUserIDFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var req services.ReplaceLicenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	license, err := h.licenseService.Replace(&req, actingUserID)
	if err != nil {
		if errors.Is(err, services.ErrInvalidReplacementReason) {
			utils.BadRequestResponse(c, err.Error(), nil)
			return
		}
		h.respondLicenseError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"license": license,
	})
}

// POST /licenses/detain
func (h *LicenseHandler) Detain(c *gin.Context) {
	actingUserID, exists := utils.GetUserIDFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var req services.DetainLicenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	detention, err := h.licenseService.Detain(&req, actingUserID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrLicenseNotFound):
			utils.NotFoundResponse(c, "license")
		case errors.Is(err, services.ErrLicenseNotActive),
			errors.Is(err, services.ErrLicenseDetained):
			utils.ConflictResponse(c, err.Error())
		default:
			utils.InternalErrorResponse(c, err.Error())
		}
		return
	}

	utils.CreatedResponse(c, gin.H{
		"detention": detention,
	})
}

// POST /licenses/release
func (h *LicenseHandler) Release(c *gin.Context) {
	actingUserID, exists := utils.GetUserIDFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var req services.ReleaseLicenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	detention, err := h.licenseService.Release(&req, actingUserID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrDetentionNotFound):
			utils.NotFoundResponse(c, "detention record")
		case errors.Is(err, services.ErrDetentionAlreadyReleased):
			utils.ConflictResponse(c, err.Error())
		default:
			utils.InternalErrorResponse(c, err.Error())
		}
		return
	}

	utils.SuccessResponse(c, gin.H{
		"detention": detention,
	})
}

// GET /licenses/:id
func (h *LicenseHandler) GetLicense(c *gin.Context) {
	licenseID, ok := parseUintParam(c, "id")
	if !ok {
		utils.BadRequestResponse(c, "Invalid license ID", nil)
		return
	}

	license, err := h.licenseService.GetLicense(licenseID)
	if err != nil {
		if errors.Is(err, services.ErrLicenseNotFound) {
			utils.NotFoundResponse(c, "license")
			return
		}
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, gin.H{
		"license": license,
	})
}

// GET /licenses/verify/:serial — public verification endpoint
func (h *LicenseHandler) VerifyLicense(c *gin.Context) {
	serial := c.Param("serial")
	if serial == "" {
		utils.BadRequestResponse(c, "Invalid serial number", nil)
		return
	}

	license, err := h.licenseService.VerifyLicenseBySerial(serial)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrLicenseNotFound):
			utils.NotFoundResponse(c, "license")
		case errors.Is(err, services.ErrLicenseNotActive),
			errors.Is(err, services.ErrLicenseExpired):
			utils.SuccessResponse(c, gin.H{
				"valid":  false,
				"reason": err.Error(),
			})
		default:
			utils.InternalErrorResponse(c, err.Error())
		}
		return
	}

	utils.SuccessResponse(c, gin.H{
		"valid":   true,
		"license": license,
	})
}

// GET /persons/:id/licenses
func (h *LicenseHandler) GetPersonLicenses(c *gin.Context) {
	personID, ok := parseUintParam(c, "id")
	if !ok {
		utils.BadRequestResponse(c, "Invalid person ID", nil)
		return
	}

	licenses, err := h.licenseService.GetPersonLicenses(personID)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, gin.H{
		"licenses": licenses,
	})
}

// GET /licenses/detained
func (h *LicenseHandler) GetDetainedLicenses(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	detentions, total, err := h.licenseService.GetDetainedLicenses(params)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	result := utils.CreatePaginationResult(detentions, total, params)
	utils.PaginatedResponse(c, result)
}

func (h *LicenseHandler) respondLicenseError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrLicenseNotFound):
		utils.NotFoundResponse(c, "license")
	case errors.Is(err, services.ErrLicenseNotActive),
		errors.Is(err, services.ErrLicenseDetained):
		utils.ConflictResponse(c, err.Error())
	default:
		utils.InternalErrorResponse(c, err.Error())
	}
}
