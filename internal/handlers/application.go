// internal/handlers/application.go
package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/openroads/licensing-backend/internal/models"
	"github.com/openroads/licensing-backend/internal/services"
	"github.com/openroads/licensing-backend/internal/utils"
)

type ApplicationHandler struct {
	applicationService *services.ApplicationService
}

func NewApplicationHandler(applicationService *services.ApplicationService) *ApplicationHandler {
	return &ApplicationHandler{
		applicationService: applicationService,
	}
}

// POST /applications
func (h *ApplicationHandler) CreateApplication(c *gin.Context) {
	actingUserID, exists := utils.GetUserIDFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var req services.CreateApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	application, err := h.applicationService.CreateApplication(&req, actingUserID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrPersonNotFound):
			utils.NotFoundResponse(c, "person")
		case errors.Is(err, services.ErrApplicationTypeNotFound):
			utils.NotFoundResponse(c, "application type")
		case errors.Is(err, services.ErrActiveApplicationExists):
			utils.ConflictResponse(c, err.Error())
		default:
			utils.InternalErrorResponse(c, err.Error())
		}
		return
	}

	utils.CreatedResponse(c, gin.H{
		"application": application,
	})
}

// POST /applications/local
func (h *ApplicationHandler) CreateLocalApplication(c *gin.Context) {
	actingUserID, exists := utils.GetUserIDFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var req services.CreateLocalApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	localApplication, err := h.applicationService.CreateLocalApplication(&req, actingUserID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrPersonNotFound):
			utils.NotFoundResponse(c, "person")
		case errors.Is(err, services.ErrLicenseClassNotFound):
			utils.NotFoundResponse(c, "license class")
		case errors.Is(err, services.ErrUnderMinimumAge):
			utils.BadRequestResponse(c, err.Error(), nil)
		case errors.Is(err, services.ErrActiveApplicationExists),
			errors.Is(err, services.ErrActiveLicenseExists):
			utils.ConflictResponse(c, err.Error())
		default:
			utils.InternalErrorResponse(c, err.Error())
		}
		return
	}

	utils.CreatedResponse(c, gin.H{
		"local_application": localApplication,
	})
}

// PUT /applications/:id/cancel
func (h *ApplicationHandler) CancelApplication(c *gin.Context) {
	actingUserID, exists := utils.GetUserIDFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	applicationID, ok := parseUintParam(c, "id")
	if !ok {
		utils.BadRequestResponse(c, "Invalid application ID", nil)
		return
	}

	application, err := h.applicationService.CancelApplication(applicationID, actingUserID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrApplicationNotFound):
			utils.NotFoundResponse(c, "application")
		case errors.Is(err, services.ErrApplicationNotNew):
			utils.ConflictResponse(c, err.Error())
		default:
			utils.InternalErrorResponse(c, err.Error())
		}
		return
	}

	utils.SuccessResponse(c, gin.H{
		"application": application,
	})
}

// PUT /applications/:id/complete
func (h *ApplicationHandler) CompleteApplication(c *gin.Context) {
	actingUserID, exists := utils.GetUserIDFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	applicationID, ok := parseUintParam(c, "id")
	if !ok {
		utils.BadRequestResponse(c, "Invalid application ID", nil)
		return
	}

	application, err := h.applicationService.CompleteApplication(applicationID, actingUserID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrApplicationNotFound):
			utils.NotFoundResponse(c, "application")
		case errors.Is(err, services.ErrApplicationNotNew):
			utils.ConflictResponse(c, err.Error())
		default:
			utils.InternalErrorResponse(c, err.Error())
		}
		return
	}

	utils.SuccessResponse(c, gin.H{
		"application": application,
	})
}

// DELETE /applications/local/:id
func (h *ApplicationHandler) DeleteLocalApplication(c *gin.Context) {
	actingUserID, exists := utils.GetUserIDFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	localApplicationID, ok := parseUintParam(c, "id")
	if !ok {
		utils.BadRequestResponse(c, "Invalid application ID", nil)
		return
	}

	if err := h.applicationService.DeleteLocalApplication(localApplicationID, actingUserID); err != nil {
		switch {
		case errors.Is(err, services.ErrApplicationNotFound):
			utils.NotFoundResponse(c, "application")
		case errors.Is(err, services.ErrApplicationNotNew):
			utils.ConflictResponse(c, err.Error())
		default:
			utils.InternalErrorResponse(c, err.Error())
		}
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": "Application deleted",
	})
}

// GET /applications/:id
func (h *ApplicationHandler) GetApplication(c *gin.Context) {
	applicationID, ok := parseUintParam(c, "id")
	if !ok {
		utils.BadRequestResponse(c, "Invalid application ID", nil)
		return
	}

	application, err := h.applicationService.GetApplication(applicationID)
	if err != nil {
		if errors.Is(err, services.ErrApplicationNotFound) {
			utils.NotFoundResponse(c, "application")
			return
		}
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, gin.H{
		"application": application,
	})
}

// GET /applications/local/:id
func (h *ApplicationHandler) GetLocalApplication(c *gin.Context) {
	localApplicationID, ok := parseUintParam(c, "id")
	if !ok {
		utils.BadRequestResponse(c, "Invalid application ID", nil)
		return
	}

	localApplication, err := h.applicationService.GetLocalApplication(localApplicationID)
	if err != nil {
		if errors.Is(err, services.ErrApplicationNotFound) {
			utils.NotFoundResponse(c, "application")
			return
		}
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, gin.H{
		"local_application": localApplication,
	})
}

// GET /applications
func (h *ApplicationHandler) SearchApplications(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	searchParams := services.ApplicationSearchParams{
		PaginationParams: params,
	}

	if personID, ok := parseUintQuery(c, "person_id"); ok {
		searchParams.PersonID = &personID
	}
	if typeID, ok := parseUintQuery(c, "application_type_id"); ok {
		searchParams.ApplicationTypeID = &typeID
	}
	if status := c.Query("status"); status != "" {
		appStatus := models.ApplicationStatus(status)
		searchParams.Status = &appStatus
	}

	applications, total, err := h.applicationService.SearchApplications(searchParams)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	result := utils.CreatePaginationResult(applications, total, params)
	utils.PaginatedResponse(c, result)
}
