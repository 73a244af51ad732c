package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/travel-booking-backend/internal/models"
)

// InventoryAuditor runs the seat conservation check
type InventoryAuditor interface {
	AuditInventory(ctx context.Context) ([]models.InventoryDiscrepancy, error)
}

// auditJobTimeout bounds one scheduled audit run
const auditJobTimeout = 2 * time.Minute

// CronService manages scheduled background jobs
type CronService struct {
	cron          *cron.Cron
	auditor       InventoryAuditor
	auditSchedule string
	logger        *logrus.Logger
}

// NewCronService creates a new CronService. auditSchedule is a six-field spec with
// seconds first, e.g. "0 0 * * * *" for hourly.
func NewCronService(auditor InventoryAuditor, auditSchedule string, logger *logrus.Logger) *CronService {
	return &CronService{
		cron:          cron.New(cron.WithSeconds()),
		auditor:       auditor,
		auditSchedule: auditSchedule,
		logger:        logger,
	}
}

// Start schedules all jobs and starts the scheduler
func (s *CronService) Start() error {
	if _, err := s.cron.AddFunc(s.auditSchedule, s.inventoryAuditJob); err != nil {
		return fmt.Errorf("failed to schedule inventory audit job: %w", err)
	}
	s.logger.WithField("schedule", s.auditSchedule).Info("Scheduled: inventory audit")

	s.cron.Start()
	s.logger.Info("Cron service started")
	return nil
}

// Stop stops the scheduler and waits for running jobs to finish
func (s *CronService) Stop() {
	s.logger.Info("Stopping cron service...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Cron service stopped")
}

func (s *CronService) inventoryAuditJob() {
	ctx, cancel := context.WithTimeout(context.Background(), auditJobTimeout)
	defer cancel()

	if _, err := s.auditor.AuditInventory(ctx); err != nil {
		s.logger.WithError(err).Error("[CRON] Inventory audit failed")
	}
}
