package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/winova/contest-api/internal/models"
	"github.com/winova/contest-api/internal/repository"
	"github.com/winova/contest-api/pkg/config"
	"github.com/winova/contest-api/pkg/jobs"
)

type sweepEntryRepository interface {
	ListExpiredPending(ctx context.Context, cutoff time.Time, limit int) ([]models.Entry, error)
	CancelIfPending(ctx context.Context, entryID string) (bool, error)
}

type sweepContestRepository interface {
	ReleaseSlot(ctx context.Context, contestID string) error
	FindCounterDrift(ctx context.Context) ([]repository.CounterDrift, error)
}

type sweepPaymentRepository interface {
	MarkCancelled(ctx context.Context, userID, contestID string) error
}

// ReconciliationService recovers capacity leaked by reservations whose
// payment never completed, and reports admitted_count drift. Expired
// reservations are released through a worker queue so a slow release never
// stalls the sweep loop; drift is only ever logged for operators.
type ReconciliationService struct {
	entries  sweepEntryRepository
	contests sweepContestRepository
	payments sweepPaymentRepository
	audit    auditWriter
	metrics  *MetricsService

	ttl       time.Duration
	interval  time.Duration
	batchSize int

	queue  *jobs.Queue
	logger *zap.Logger
	cancel context.CancelFunc
	wg     sync.WaitGroup
	now    func() time.Time
}

// NewReconciliationService constructs ReconciliationService.
func NewReconciliationService(entries sweepEntryRepository, contests sweepContestRepository, payments sweepPaymentRepository, audit auditWriter, metrics *MetricsService, cfg config.AdmissionConfig, logger *zap.Logger) *ReconciliationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &ReconciliationService{
		entries:   entries,
		contests:  contests,
		payments:  payments,
		audit:     audit,
		metrics:   metrics,
		ttl:       cfg.ReservationTTL,
		interval:  cfg.SweepInterval,
		batchSize: cfg.SweepBatchSize,
		logger:    logger,
		now:       time.Now,
	}
	s.queue = jobs.NewQueue("reservation-expiry", s.handleExpiry, jobs.QueueConfig{
		Workers: cfg.SweepWorkers,
		Logger:  logger,
	})
	return s
}

// Start launches the queue workers and the periodic sweep loop.
func (s *ReconciliationService) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.queue.Start(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Sweep(ctx)
			}
		}
	}()
	s.logger.Sugar().Infow("reconciliation sweep started", "interval", s.interval, "reservation_ttl", s.ttl)
}

// Stop halts the sweep loop and drains the workers.
func (s *ReconciliationService) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	s.queue.Stop()
}

// Sweep runs one reconciliation pass: expired reservations are queued for
// release and counter drift is surfaced.
func (s *ReconciliationService) Sweep(ctx context.Context) {
	cutoff := s.now().UTC().Add(-s.ttl)
	expired, err := s.entries.ListExpiredPending(ctx, cutoff, s.batchSize)
	if err != nil {
		s.logger.Error("failed to list expired reservations", zap.Error(err))
	} else {
		for _, entry := range expired {
			if err := s.queue.Enqueue(jobs.Job{ID: entry.ID, Type: "expire_reservation", Payload: entry}); err != nil {
				s.logger.Warn("failed to enqueue reservation expiry", zap.String("entry_id", entry.ID), zap.Error(err))
			}
		}
		if len(expired) > 0 {
			s.logger.Sugar().Infow("queued expired reservations", "count", len(expired))
		}
	}

	drift, err := s.contests.FindCounterDrift(ctx)
	if err != nil {
		s.logger.Error("failed to check admitted_count drift", zap.Error(err))
		return
	}
	for _, d := range drift {
		s.logger.Warn("admitted_count disagrees with held entries",
			zap.String("contest_id", d.ContestID),
			zap.Int("admitted_count", d.AdmittedCount),
			zap.Int("held_entries", d.HeldEntries))
	}
}

// handleExpiry cancels one expired PENDING entry and releases its slot. The
// cancel is a compare-and-set, so an entry whose payment completed between
// the sweep and this job is left alone.
func (s *ReconciliationService) handleExpiry(ctx context.Context, job jobs.Job) error {
	entry, ok := job.Payload.(models.Entry)
	if !ok {
		s.logger.Error("unexpected expiry job payload", zap.String("job_id", job.ID))
		return nil
	}

	cancelled, err := s.entries.CancelIfPending(ctx, entry.ID)
	if err != nil {
		return err
	}
	if !cancelled {
		return nil
	}

	if err := s.payments.MarkCancelled(ctx, entry.UserID, entry.ContestID); err != nil {
		s.logger.Warn("failed to void payment for expired reservation",
			zap.String("entry_id", entry.ID), zap.Error(err))
	}
	if err := s.contests.ReleaseSlot(ctx, entry.ContestID); err != nil {
		return err
	}

	s.metrics.RecordSlotReclaimed()
	if s.audit != nil {
		detail, _ := json.Marshal(map[string]string{"contest_id": entry.ContestID})
		_ = s.audit.CreateAuditLog(ctx, &models.AuditLog{
			UserID:     &entry.UserID,
			Action:     models.AuditActionReservationExpired,
			Resource:   "entry",
			ResourceID: &entry.ID,
			Detail:     detail,
		})
	}
	s.logger.Info("released expired reservation",
		zap.String("entry_id", entry.ID),
		zap.String("contest_id", entry.ContestID))
	return nil
}
