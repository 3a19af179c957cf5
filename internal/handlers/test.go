// internal/handlers/test.go
package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/openroads/licensing-backend/internal/services"
	"github.com/openroads/licensing-backend/internal/utils"
)

type TestHandler struct {
	testService *services.TestService
}

func NewTestHandler(testService *services.TestService) *TestHandler {
	return &TestHandler{
		testService: testService,
	}
}

// POST /tests/appointments
func (h *TestHandler) ScheduleAppointment(c *gin.Context) {
	actingUserID, exists := utils.GetUserIDFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var req services.ScheduleAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	appointment, err := h.testService.ScheduleAppointment(&req, actingUserID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrApplicationNotFound):
			utils.NotFoundResponse(c, "application")
		case errors.Is(err, services.ErrTestTypeNotFound):
			utils.NotFoundResponse(c, "test type")
		case errors.Is(err, services.ErrApplicationNotNew):
			utils.ConflictResponse(c, err.Error())
		case errors.Is(err, services.ErrTestAlreadyPassed),
			errors.Is(err, services.ErrActiveAppointmentExists):
			utils.ConflictResponse(c, err.Error())
		case errors.Is(err, services.ErrPrerequisiteTestNotPassed):
			utils.BadRequestResponse(c, err.Error(), nil)
		default:
			utils.InternalErrorResponse(c, err.Error())
		}
		return
	}

	utils.CreatedResponse(c, gin.H{
		"appointment": appointment,
	})
}

// POST /tests/results
func (h *TestHandler) RecordResult(c *gin.Context) {
	actingUserID, exists := utils.GetUserIDFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var req services.RecordResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	result, err := h.testService.RecordResult(&req, actingUserID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrAppointmentNotFound):
			utils.NotFoundResponse(c, "appointment")
		case errors.Is(err, services.ErrAppointmentLocked):
			utils.ConflictResponse(c, err.Error())
		case errors.Is(err, services.ErrPrerequisiteTestNotPassed):
			utils.BadRequestResponse(c, err.Error(), nil)
		default:
			utils.InternalErrorResponse(c, err.Error())
		}
		return
	}

	utils.CreatedResponse(c, gin.H{
		"result": result,
	})
}

// GET /tests/appointments/:id
func (h *TestHandler) GetAppointment(c *gin.Context) {
	appointmentID, ok := parseUintParam(c, "id")
	if !ok {
		utils.BadRequestResponse(c, "Invalid appointment ID", nil)
		return
	}

	appointment, err := h.testService.GetAppointment(appointmentID)
	if err != nil {
		if errors.Is(err, services.ErrAppointmentNotFound) {
			utils.NotFoundResponse(c, "appointment")
			return
		}
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, gin.H{
		"appointment": appointment,
	})
}

// GET /applications/local/:id/appointments
func (h *TestHandler) GetApplicationAppointments(c *gin.Context) {
	localApplicationID, ok := parseUintParam(c, "id")
	if !ok {
		utils.BadRequestResponse(c, "Invalid application ID", nil)
		return
	}

	appointments, err := h.testService.GetApplicationAppointments(localApplicationID)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, gin.H{
		"appointments": appointments,
	})
}

// GET /applications/local/:id/test-status
func (h *TestHandler) GetApplicationTestStatus(c *gin.Context) {
	localApplicationID, ok := parseUintParam(c, "id")
	if !ok {
		utils.BadRequestResponse(c, "Invalid application ID", nil)
		return
	}

	status, err := h.testService.GetApplicationTestStatus(localApplicationID)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	passedAll, err := h.testService.PassedAllTests(localApplicationID)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, gin.H{
		"tests":      status,
		"passed_all": passedAll,
	})
}
