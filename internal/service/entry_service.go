package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/winova/contest-api/internal/models"
	"github.com/winova/contest-api/internal/repository"
	appErrors "github.com/winova/contest-api/pkg/errors"
)

type entryRepository interface {
	Create(ctx context.Context, entry *models.Entry) error
	FindByID(ctx context.Context, id string) (*models.Entry, error)
	FindByUserAndContest(ctx context.Context, userID, contestID string) (*models.Entry, error)
	ListByUser(ctx context.Context, userID string, page, pageSize int) ([]models.EntryDetail, int, error)
	RecordQuizResult(ctx context.Context, entryID string, selectedAnswer int, qualified bool, submittedAt time.Time) (bool, error)
}

type entryAdmitter interface {
	TryAdmit(ctx context.Context, contestID string) (*models.Contest, error)
	Release(ctx context.Context, contestID string) error
}

// EnterContestRequest describes an entry creation request.
type EnterContestRequest struct {
	ContestID string `json:"contest_id" validate:"required"`
}

// EntryService is the authoritative ledger of (user, contest) entries.
type EntryService struct {
	entries   entryRepository
	admission entryAdmitter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEntryService constructs EntryService.
func NewEntryService(entries entryRepository, admission entryAdmitter, validate *validator.Validate, logger *zap.Logger) *EntryService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EntryService{entries: entries, admission: admission, validator: validate, logger: logger}
}

// Enter admits the user and records a PENDING entry. Admission and entry
// creation form one logical transaction: any failure after the reservation
// releases the slot before the error propagates.
func (s *EntryService) Enter(ctx context.Context, userID string, req EnterContestRequest) (*models.Entry, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid entry payload")
	}

	if _, err := s.admission.TryAdmit(ctx, req.ContestID); err != nil {
		return nil, err
	}

	entry := &models.Entry{UserID: userID, ContestID: req.ContestID}
	if err := s.entries.Create(ctx, entry); err != nil {
		if releaseErr := s.admission.Release(ctx, req.ContestID); releaseErr != nil {
			s.logger.Error("failed to roll back reservation after entry conflict",
				zap.String("contest_id", req.ContestID), zap.Error(releaseErr))
		}
		if errors.Is(err, repository.ErrDuplicateEntry) {
			return nil, appErrors.ErrAlreadyEntered
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create entry")
	}

	return entry, nil
}

// ListByUser returns the caller's entries with pagination metadata.
func (s *EntryService) ListByUser(ctx context.Context, userID string, page, pageSize int) ([]models.EntryDetail, *models.Pagination, error) {
	entries, total, err := s.entries.ListByUser(ctx, userID, page, pageSize)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list entries")
	}
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}
	return entries, pagination, nil
}

// RecordQuizResult finalizes qualification for an entry, exactly once. The
// repository update is a compare-and-set on quiz_state; when it matches zero
// rows the entry is re-read to report the precise precondition that failed.
func (s *EntryService) RecordQuizResult(ctx context.Context, entryID string, selectedAnswer int, correct bool) (*models.Entry, error) {
	updated, err := s.entries.RecordQuizResult(ctx, entryID, selectedAnswer, correct, time.Now().UTC())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record quiz result")
	}
	if !updated {
		entry, findErr := s.entries.FindByID(ctx, entryID)
		if findErr != nil {
			if errors.Is(findErr, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "entry not found")
			}
			return nil, appErrors.Wrap(findErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load entry")
		}
		if entry.QuizState == models.QuizStateAttempted {
			return nil, appErrors.ErrAlreadyAttempted
		}
		return nil, appErrors.ErrPaymentRequired
	}

	entry, err := s.entries.FindByID(ctx, entryID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load entry")
	}
	return entry, nil
}
