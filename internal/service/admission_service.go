package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/winova/contest-api/internal/models"
	appErrors "github.com/winova/contest-api/pkg/errors"
)

type admissionContestRepository interface {
	FindByID(ctx context.Context, id string) (*models.Contest, error)
	TryReserveSlot(ctx context.Context, contestID string) (bool, error)
	ReleaseSlot(ctx context.Context, contestID string) error
}

// AdmissionService gates how many entries a contest may hold. It is the only
// writer of admitted_count, and the reserve step is a single conditional
// update so no two callers can pass a stale capacity check.
type AdmissionService struct {
	contests admissionContestRepository
	metrics  *MetricsService
	logger   *zap.Logger
	now      func() time.Time
}

// NewAdmissionService constructs AdmissionService.
func NewAdmissionService(contests admissionContestRepository, metrics *MetricsService, logger *zap.Logger) *AdmissionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdmissionService{contests: contests, metrics: metrics, logger: logger, now: time.Now}
}

// TryAdmit reserves one capacity slot for the contest. The returned contest
// reflects pre-reservation state and is used by callers for fee lookup.
func (s *AdmissionService) TryAdmit(ctx context.Context, contestID string) (*models.Contest, error) {
	contest, err := s.contests.FindByID(ctx, contestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "contest not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load contest")
	}

	if !contest.OpenAt(s.now().UTC()) {
		s.metrics.RecordAdmission("inactive")
		return nil, appErrors.ErrContestInactive
	}

	reserved, err := s.contests.TryReserveSlot(ctx, contestID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reserve slot")
	}
	if !reserved {
		s.metrics.RecordAdmission("capacity_exceeded")
		return nil, appErrors.ErrCapacityExceeded
	}

	s.metrics.RecordAdmission("admitted")
	return contest, nil
}

// Release returns a reserved slot to capacity. Called when entry creation
// fails after a successful reservation and by the reconciliation sweep.
func (s *AdmissionService) Release(ctx context.Context, contestID string) error {
	if err := s.contests.ReleaseSlot(ctx, contestID); err != nil {
		s.logger.Error("failed to release contest slot", zap.String("contest_id", contestID), zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to release slot")
	}
	s.metrics.RecordAdmission("released")
	return nil
}
