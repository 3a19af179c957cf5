// internal/jobs/scheduler.go
package jobs

import (
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/openroads/licensing-backend/internal/config"
	"github.com/openroads/licensing-backend/internal/services"
)

// Scheduler runs periodic maintenance work. Currently a nightly sweep
// that deactivates licenses whose expiration date has passed.
type Scheduler struct {
	cron                 *cron.Cron
	licenseService       *services.LicenseService
	internationalService *services.InternationalLicenseService
	config               *config.Config
}

func NewScheduler(db *gorm.DB, cfg *config.Config) *Scheduler {
	return &Scheduler{
		cron:                 cron.New(),
		licenseService:       services.NewLicenseService(db, nil),
		internationalService: services.NewInternationalLicenseService(db),
		config:               cfg,
	}
}

func (s *Scheduler) Start() error {
	schedule := s.config.Jobs.ExpirationSweepSchedule

	if _, err := s.cron.AddFunc(schedule, s.runExpirationSweep); err != nil {
		return err
	}

	s.cron.Start()
	logrus.WithField("schedule", schedule).Info("Expiration sweep scheduled")
	return nil
}

func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *Scheduler) runExpirationSweep() {
	now := time.Now()

	deactivated, err := s.licenseService.DeactivateExpiredLicenses(now)
	if err != nil {
		logrus.WithError(err).Error("License expiration sweep failed")
	} else if deactivated > 0 {
		logrus.WithField("count", deactivated).Info("Deactivated expired licenses")
	}

	intlDeactivated, err := s.internationalService.DeactivateExpired(now)
	if err != nil {
		logrus.WithError(err).Error("International license expiration sweep failed")
	} else if intlDeactivated > 0 {
		logrus.WithField("count", intlDeactivated).Info("Deactivated expired international licenses")
	}
}
