// internal/router/router.go
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/openroads/licensing-backend/internal/config"
	"github.com/openroads/licensing-backend/internal/handlers"
	"github.com/openroads/licensing-backend/internal/middleware"
	"github.com/openroads/licensing-backend/internal/services"
	"github.com/openroads/licensing-backend/internal/utils"
)

func Initialize(db *gorm.DB, cfg *config.Config) *gin.Engine {
	// Initialize services
	notificationService := services.NewNotificationService(db, cfg)
	storageService, _ := services.NewStorageService(cfg)

	authService := services.NewAuthService(db, cfg)
	personService := services.NewPersonService(db, storageService)
	applicationService := services.NewApplicationService(db)
	testService := services.NewTestService(db, notificationService)
	licenseService := services.NewLicenseService(db, notificationService)
	internationalService := services.NewInternationalLicenseService(db)
	paymentService := services.NewPaymentService(db, cfg)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	personHandler := handlers.NewPersonHandler(personService)
	applicationHandler := handlers.NewApplicationHandler(applicationService)
	testHandler := handlers.NewTestHandler(testService)
	licenseHandler := handlers.NewLicenseHandler(licenseService)
	internationalHandler := handlers.NewInternationalLicenseHandler(internationalService)
	paymentHandler := handlers.NewPaymentHandler(paymentService)

	// Set JWT secret
	utils.SetJWTSecret(cfg.JWT.SecretKey)

	// Initialize Gin router
	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS())
	r.Use(middleware.GeneralRateLimit())
	r.Use(middleware.AuditLogMiddleware(db))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": "1.0.0",
		})
	})

	// API v1 routes
	v1 := r.Group("/v1")
	{
		// Authentication routes
		auth := v1.Group("/auth")
		auth.Use(middleware.AuthRateLimit())
		{
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.RefreshToken)
			auth.POST("/register", middleware.AuthRequired(), middleware.AdminRequired(), authHandler.RegisterUser)
			auth.GET("/me", middleware.AuthRequired(), authHandler.GetCurrentUser)
		}

		// Public license verification
		verify := v1.Group("/verify")
		{
			verify.GET("/licenses/:serial", licenseHandler.VerifyLicense)
		}

		// Country catalogue
		countries := v1.Group("/countries")
		countries.Use(middleware.AuthRequired())
		{
			countries.GET("", personHandler.ListCountries)
		}

		// Person registry
		persons := v1.Group("/persons")
		persons.Use(middleware.AuthRequired())
		{
			persons.GET("", personHandler.SearchPersons)
			persons.POST("", personHandler.CreatePerson)
			persons.GET("/by-national-no/:national_no", personHandler.GetPersonByNationalNo)
			persons.GET("/:id", personHandler.GetPerson)
			persons.PUT("/:id", personHandler.UpdatePerson)
			persons.POST("/:id/photo", middleware.UploadRateLimit(), personHandler.UploadPhoto)
			persons.GET("/:id/licenses", licenseHandler.GetPersonLicenses)
		}

		// Applications
		applications := v1.Group("/applications")
		applications.Use(middleware.AuthRequired())
		{
			applications.GET("", applicationHandler.SearchApplications)
			applications.POST("", applicationHandler.CreateApplication)
			applications.POST("/local", applicationHandler.CreateLocalApplication)
			applications.GET("/local/:id", applicationHandler.GetLocalApplication)
			applications.GET("/local/:id/appointments", testHandler.GetApplicationAppointments)
			applications.GET("/local/:id/test-status", testHandler.GetApplicationTestStatus)
			applications.DELETE("/local/:id", middleware.ManagerRequired(), applicationHandler.DeleteLocalApplication)
			applications.GET("/:id", applicationHandler.GetApplication)
			applications.PUT("/:id/cancel", applicationHandler.CancelApplication)
			applications.PUT("/:id/complete", middleware.ManagerRequired(), applicationHandler.CompleteApplication)
		}

		// Tests
		tests := v1.Group("/tests")
		tests.Use(middleware.AuthRequired())
		{
			tests.POST("/appointments", testHandler.ScheduleAppointment)
			tests.GET("/appointments/:id", testHandler.GetAppointment)
			tests.POST("/results", testHandler.RecordResult)
		}

		// Licenses
		licenses := v1.Group("/licenses")
		licenses.Use(middleware.AuthRequired())
		{
			licenses.POST("/issue", licenseHandler.IssueFirstTime)
			licenses.POST("/renew", licenseHandler.Renew)
			licenses.POST("/replace", licenseHandler.Replace)
			licenses.POST("/detain", middleware.ManagerRequired(), licenseHandler.Detain)
			licenses.POST("/release", middleware.ManagerRequired(), licenseHandler.Release)
			licenses.GET("/detained", licenseHandler.GetDetainedLicenses)
			licenses.GET("/:id", licenseHandler.GetLicense)
		}

		// International licenses
		international := v1.Group("/international-licenses")
		international.Use(middleware.AuthRequired())
		{
			international.POST("", internationalHandler.Issue)
			international.GET("/:id", internationalHandler.GetInternationalLicense)
		}

		drivers := v1.Group("/drivers")
		drivers.Use(middleware.AuthRequired())
		{
			drivers.GET("/:id/international-licenses", internationalHandler.GetDriverInternationalLicenses)
		}

		// Payments
		payments := v1.Group("/payments")
		payments.Use(middleware.AuthRequired())
		{
			payments.POST("/applications/:id/intent", paymentHandler.CreateApplicationPaymentIntent)
			payments.POST("/appointments/:id/intent", paymentHandler.CreateAppointmentPaymentIntent)
			payments.POST("/detentions/:id/intent", paymentHandler.CreateDetentionPaymentIntent)
			payments.POST("/confirm", paymentHandler.ConfirmApplicationPayment)
			payments.POST("/refund", middleware.ManagerRequired(), paymentHandler.RefundApplicationPayment)
		}
	}

	// Static file serving (for development)
	if cfg.Environment == "development" {
		r.Static("/uploads", "./uploads")
	}

	return r
}
