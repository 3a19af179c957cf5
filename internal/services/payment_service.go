// internal/services/payment_service.go
package services

import (
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"
	"github.com/stripe/stripe-go/v74/refund"
	"gorm.io/gorm"

	"github.com/openroads/licensing-backend/internal/config"
	"github.com/openroads/licensing-backend/internal/models"
	"github.com/openroads/licensing-backend/internal/utils"
)

// PaymentService collects application fees and detention fines through
// Stripe. The PaidFees amount is fixed by the catalogue at application
// time; the payment intent only collects it.
type PaymentService struct {
	db     *gorm.DB
	config *config.Config
}

type PaymentIntentResponse struct {
	ClientSecret string  `json:"client_secret"`
	PaymentID    string  `json:"payment_id"`
	Status       string  `json:"status"`
	Amount       float64 `json:"amount"`
}

type ConfirmPaymentRequest struct {
	ApplicationID   uint   `json:"application_id" validate:"required"`
	PaymentIntentID string `json:"payment_intent_id" validate:"required"`
}

type RefundApplicationRequest struct {
	ApplicationID uint   `json:"application_id" validate:"required"`
	Reason        string `json:"reason" validate:"required"`
}

func NewPaymentService(db *gorm.DB, config *config.Config) *PaymentService {
	// Initialize Stripe
	stripe.Key = config.Payment.StripeSecretKey

	return &PaymentService{
		db:     db,
		config: config,
	}
}

// CreateApplicationPaymentIntent opens a Stripe payment intent for the
// fee of a pending application.
func (s *PaymentService) CreateApplicationPaymentIntent(applicationID uint) (*PaymentIntentResponse, error) {
	var application models.Application
	if err := s.db.First(&application, applicationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrApplicationNotFound
		}
		return nil, fmt.Errorf("failed to fetch application: %w", err)
	}

	if application.Status != models.ApplicationStatusNew {
		return nil, ErrApplicationNotNew
	}
	if application.PaymentReference != "" {
		return nil, errors.New("application fee has already been paid")
	}

	return s.createIntent(application.PaidFees, map[string]string{
		"application_id": fmt.Sprintf("%d", application.ID),
		"purpose":        "application_fee",
	})
}

// CreateAppointmentPaymentIntent opens a Stripe payment intent for the
// sitting fee of an unlocked test appointment.
func (s *PaymentService) CreateAppointmentPaymentIntent(appointmentID uint) (*PaymentIntentResponse, error) {
	var appointment models.TestAppointment
	if err := s.db.First(&appointment, appointmentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAppointmentNotFound
		}
		return nil, fmt.Errorf("failed to fetch appointment: %w", err)
	}

	if appointment.IsLocked {
		return nil, ErrAppointmentLocked
	}

	return s.createIntent(appointment.PaidFees, map[string]string{
		"appointment_id": fmt.Sprintf("%d", appointment.ID),
		"purpose":        "test_fee",
	})
}

// CreateDetentionPaymentIntent opens a Stripe payment intent for the
// fine of an unreleased detention.
func (s *PaymentService) CreateDetentionPaymentIntent(detainedLicenseID uint) (*PaymentIntentResponse, error) {
	var detention models.DetainedLicense
	if err := s.db.First(&detention, detainedLicenseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDetentionNotFound
		}
		return nil, fmt.Errorf("failed to fetch detention record: %w", err)
	}

	if detention.IsReleased {
		return nil, ErrDetentionAlreadyReleased
	}

	return s.createIntent(detention.FineFees, map[string]string{
		"detained_license_id": fmt.Sprintf("%d", detention.ID),
		"purpose":             "detention_fine",
	})
}

// ConfirmApplicationPayment checks the payment intent status with
// Stripe and records the reference on the application.
func (s *PaymentService) ConfirmApplicationPayment(req *ConfirmPaymentRequest) error {
	if err := utils.ValidateStruct(req); err != nil {
		return err
	}

	pi, err := paymentintent.Get(req.PaymentIntentID, nil)
	if err != nil {
		return fmt.Errorf("failed to get payment intent: %w", err)
	}

	if pi.Status != stripe.PaymentIntentStatusSucceeded {
		return fmt.Errorf("payment has not succeeded, current status is %s", pi.Status)
	}

	var application models.Application
	if err := s.db.First(&application, req.ApplicationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrApplicationNotFound
		}
		return fmt.Errorf("failed to fetch application: %w", err)
	}

	if err := s.db.Model(&application).
		UpdateColumn("payment_reference", pi.ID).Error; err != nil {
		return fmt.Errorf("failed to record payment reference: %w", err)
	}

	return nil
}

// RefundApplicationPayment refunds the fee of a cancelled application.
func (s *PaymentService) RefundApplicationPayment(req *RefundApplicationRequest) error {
	if err := utils.ValidateStruct(req); err != nil {
		return err
	}

	var application models.Application
	if err := s.db.First(&application, req.ApplicationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrApplicationNotFound
		}
		return fmt.Errorf("failed to fetch application: %w", err)
	}

	if application.Status != models.ApplicationStatusCancelled {
		return errors.New("can only refund cancelled applications")
	}
	if application.PaymentReference == "" {
		return errors.New("application has no recorded payment")
	}

	refundAmountCents := int64(application.PaidFees * 100)
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(application.PaymentReference),
		Amount:        stripe.Int64(refundAmountCents),
		Reason:        stripe.String("requested_by_customer"),
	}

	if _, err := refund.New(params); err != nil {
		return fmt.Errorf("failed to process refund: %w", err)
	}

	if err := s.db.Model(&application).
		UpdateColumn("payment_reference", "").Error; err != nil {
		return fmt.Errorf("failed to clear payment reference: %w", err)
	}

	return nil
}

func (s *PaymentService) createIntent(amount float64, metadata map[string]string) (*PaymentIntentResponse, error) {
	if amount <= 0 {
		return nil, errors.New("amount must be positive")
	}

	currency := s.config.Payment.Currency
	if currency == "" {
		currency = "usd"
	}

	// Convert amount to cents for Stripe
	amountInCents := int64(amount * 100)

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amountInCents),
		Currency: stripe.String(currency),
	}
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	idempotencyKey, err := utils.GenerateIdempotencyKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate idempotency key: %w", err)
	}
	params.SetIdempotencyKey(idempotencyKey)

	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}

	return &PaymentIntentResponse{
		ClientSecret: pi.ClientSecret,
		PaymentID:    pi.ID,
		Status:       string(pi.Status),
		Amount:       amount,
	}, nil
}
