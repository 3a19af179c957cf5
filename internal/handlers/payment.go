// internal/handlers/payment.go
package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/openroads/licensing-backend/internal/services"
	"github.com/openroads/licensing-backend/internal/utils"
)

type PaymentHandler struct {
	paymentService *services.PaymentService
}

func NewPaymentHandler(paymentService *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
	}
}

// POST /payments/applications/:id/intent
func (h *PaymentHandler) CreateApplicationPaymentIntent(c *gin.Context) {
	applicationID, ok := parseUintParam(c, "id")
	if !ok {
		utils.BadRequestResponse(c, "Invalid application ID", nil)
		return
	}

	intent, err := h.paymentService.CreateApplicationPaymentIntent(applicationID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrApplicationNotFound):
			utils.NotFoundResponse(c, "application")
		case errors.Is(err, services.ErrApplicationNotNew):
			utils.ConflictResponse(c, err.Error())
		default:
			utils.BadRequestResponse(c, err.Error(), nil)
		}
		return
	}

	utils.SuccessResponse(c, intent)
}

// POST /payments/appointments/:id/intent
func (h *PaymentHandler) CreateAppointmentPaymentIntent(c *gin.Context) {
	appointmentID, ok := parseUintParam(c, "id")
	if !ok {
		utils.BadRequestResponse(c, "Invalid appointment ID", nil)
		return
	}

	intent, err := h.paymentService.CreateAppointmentPaymentIntent(appointmentID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrAppointmentNotFound):
			utils.NotFoundResponse(c, "test appointment")
		case errors.Is(err, services.ErrAppointmentLocked):
			utils.ConflictResponse(c, err.Error())
		default:
			utils.BadRequestResponse(c, err.Error(), nil)
		}
		return
	}

	utils.SuccessResponse(c, intent)
}

// POST /payments/detentions/:id/intent
func (h *PaymentHandler) CreateDetentionPaymentIntent(c *gin.Context) {
	detainedLicenseID, ok := parseUintParam(c, "id")
	if !ok {
		utils.BadRequestResponse(c, "Invalid detention ID", nil)
		return
	}

	intent, err := h.paymentService.CreateDetentionPaymentIntent(detainedLicenseID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrDetentionNotFound):
			utils.NotFoundResponse(c, "detention record")
		case errors.Is(err, services.ErrDetentionAlreadyReleased):
			utils.ConflictResponse(c, err.Error())
		default:
			utils.BadRequestResponse(c, err.Error(), nil)
		}
		return
	}

	utils.SuccessResponse(c, intent)
}

// POST /payments/confirm
func (h *PaymentHandler) ConfirmApplicationPayment(c *gin.Context) {
	var req services.ConfirmPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	if err := h.paymentService.ConfirmApplicationPayment(&req); err != nil {
		if errors.Is(err, services.ErrApplicationNotFound) {
			utils.NotFoundResponse(c, "application")
			return
		}
		utils.BadRequestResponse(c, err.Error(), nil)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": "Payment confirmed",
	})
}

// POST /payments/refund
func (h *PaymentHandler) RefundApplicationPayment(c *gin.Context) {
	var req services.RefundApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	if err := h.paymentService.RefundApplicationPayment(&req); err != nil {
		if errors.Is(err, services.ErrApplicationNotFound) {
			utils.NotFoundResponse(c, "application")
			return
		}
		utils.BadRequestResponse(c, err.Error(), nil)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": "Refund processed",
	})
}
