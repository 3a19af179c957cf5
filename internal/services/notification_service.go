// internal/services/notification_service.go
package services

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/openroads/licensing-backend/internal/config"
	"github.com/openroads/licensing-backend/internal/models"
)

// NotificationService sends applicant-facing emails. When SMTP is not
// configured it logs the message instead of failing.
type NotificationService struct {
	db     *gorm.DB
	config *config.Config
}

type EmailTemplate struct {
	Subject string
	Body    string
}

func NewNotificationService(db *gorm.DB, config *config.Config) *NotificationService {
	return &NotificationService{
		db:     db,
		config: config,
	}
}

func (s *NotificationService) SendAppointmentScheduledEmail(appointment *models.TestAppointment) error {
	person := appointment.LocalDrivingLicenseApplication.Application.Person
	if person.Email == "" {
		return nil
	}

	data := map[string]interface{}{
		"ApplicantName":   fmt.Sprintf("%s %s", person.FirstName, person.LastName),
		"TestTypeName":    appointment.TestType.Title,
		"AppointmentDate": appointment.AppointmentDate.Format("Monday, 2 January 2006 at 15:04"),
		"PaidFees":        appointment.PaidFees,
		"AuthorityName":   s.config.Email.FromName,
	}

	subject := "Test Appointment Scheduled - " + appointment.TestType.Title
	template := s.getEmailTemplate("appointment_scheduled")
	body, err := s.renderTemplate(template.Body, data)
	if err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}

	return s.sendEmail(person.Email, subject, body)
}

func (s *NotificationService) SendLicenseIssuedEmail(license *models.License) error {
	person := license.Driver.Person
	if person.Email == "" {
		return nil
	}

	data := map[string]interface{}{
		"HolderName":     fmt.Sprintf("%s %s", person.FirstName, person.LastName),
		"LicenseClass":   license.LicenseClass.Name,
		"SerialNumber":   license.SerialNumber,
		"IssueDate":      license.IssueDate.Format("2 January 2006"),
		"ExpirationDate": license.ExpirationDate.Format("2 January 2006"),
		"AuthorityName":  s.config.Email.FromName,
	}

	subject := "Driving License Issued - " + license.LicenseClass.Name
	template := s.getEmailTemplate("license_issued")
	body, err := s.renderTemplate(template.Body, data)
	if err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}

	return s.sendEmail(person.Email, subject, body)
}

// Helper methods
func (s *NotificationService) sendEmail(to, subject, body string) error {
	if s.config.Email.SMTPHost == "" || s.config.Email.SMTPUsername == "" {
		// Email not configured, just log
		logrus.WithFields(logrus.Fields{
			"to":      to,
			"subject": subject,
		}).Info("Email delivery skipped, SMTP not configured")
		return nil
	}

	// Setup authentication
	auth := smtp.PlainAuth("", s.config.Email.SMTPUsername, s.config.Email.SMTPPassword, s.config.Email.SMTPHost)

	// Compose message
	msg := []byte(fmt.Sprintf("To: %s\r\nSubject: %s\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n%s", to, subject, body))

	// Send email
	addr := fmt.Sprintf("%s:%s", s.config.Email.SMTPHost, s.config.Email.SMTPPort)
	return smtp.SendMail(addr, auth, s.config.Email.FromEmail, []string{to}, msg)
}

func (s *NotificationService) renderTemplate(templateStr string, data interface{}) (string, error) {
	tmpl, err := template.New("email").Parse(templateStr)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}

func (s *NotificationService) getEmailTemplate(templateType string) EmailTemplate {
	templates := map[string]EmailTemplate{
		"appointment_scheduled": {
			Subject: "Test Appointment Scheduled",
			Body: `
<!DOCTYPE html>
<html>
<body>
	<h2>Appointment Confirmed</h2>
	<p>Dear {{.ApplicantName}},</p>
	<p>Your {{.TestTypeName}} has been scheduled for {{.AppointmentDate}}.</p>
	<p>The appointment fee of {{.PaidFees}} has been recorded. Please bring your national identification on the day.</p>
	<p>Best regards,<br>{{.AuthorityName}}</p>
</body>
</html>`,
		},
		"license_issued": {
			Subject: "Driving License Issued",
			Body: `
<!DOCTYPE html>
<html>
<body>
	<h2>License Issued</h2>
	<p>Dear {{.HolderName}},</p>
	<p>Your {{.LicenseClass}} driving license has been issued.</p>
	<p>Serial number: {{.SerialNumber}}<br>Issued: {{.IssueDate}}<br>Expires: {{.ExpirationDate}}</p>
	<p>You can collect the physical card from any service office.</p>
	<p>Best regards,<br>{{.AuthorityName}}</p>
</body>
</html>`,
		},
	}

	if template, exists := templates[templateType]; exists {
		return template
	}

	// Default template
	return EmailTemplate{
		Subject: "Notification",
		Body:    "<p>{{.Message}}</p>",
	}
}
