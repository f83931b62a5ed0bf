package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/winova/contest-api/internal/models"
	appErrors "github.com/winova/contest-api/pkg/errors"
)

type quizRepository interface {
	FindActiveByContest(ctx context.Context, contestID string) (*models.Quiz, error)
}

type quizEntryReader interface {
	FindByUserAndContest(ctx context.Context, userID, contestID string) (*models.Entry, error)
}

// quizLedger is the entry ledger capability the evaluator delegates the
// write-once state transition to.
type quizLedger interface {
	RecordQuizResult(ctx context.Context, entryID string, selectedAnswer int, correct bool) (*models.Entry, error)
}

// QuizCache is the optional cache used for the public quiz view.
type QuizCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// SubmitAnswerRequest carries a quiz submission.
type SubmitAnswerRequest struct {
	SelectedAnswer *int `json:"selected_answer" validate:"required"`
}

// QuizService grades qualifying quiz submissions. It holds no persisted state
// beyond the quiz definitions; qualification itself lives on the entry.
type QuizService struct {
	quizzes  quizRepository
	entries  quizEntryReader
	ledger   quizLedger
	cache    QuizCache
	cacheTTL time.Duration
	metrics  *MetricsService

	validator *validator.Validate
	logger    *zap.Logger
}

// NewQuizService constructs QuizService.
func NewQuizService(quizzes quizRepository, entries quizEntryReader, ledger quizLedger, cache QuizCache, cacheTTL time.Duration, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *QuizService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}
	return &QuizService{
		quizzes:   quizzes,
		entries:   entries,
		ledger:    ledger,
		cache:     cache,
		cacheTTL:  cacheTTL,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
	}
}

// PublicQuiz returns the entrant-facing quiz view for a contest. The correct
// answer index is stripped before the payload ever leaves this service.
func (s *QuizService) PublicQuiz(ctx context.Context, contestID string) (*models.QuizPublic, bool, error) {
	cacheKey := fmt.Sprintf("quiz:contest:%s", contestID)
	if s.cache != nil {
		var cached models.QuizPublic
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			s.metrics.RecordCacheOperation(true)
			return &cached, true, nil
		}
		s.metrics.RecordCacheOperation(false)
	}

	quiz, err := s.quizzes.FindActiveByContest(ctx, contestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, appErrors.ErrQuizNotFound
		}
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load quiz")
	}

	view := quiz.PublicView()
	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, view, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache quiz view", zap.String("contest_id", contestID), zap.Error(err))
		}
	}
	return &view, false, nil
}

// Submit grades a single answer and finalizes qualification exactly once.
// Preconditions are checked in order so each failure maps to its own
// rejection: missing entry, unpaid entry, prior attempt, missing quiz.
func (s *QuizService) Submit(ctx context.Context, userID, contestID string, req SubmitAnswerRequest) (*models.QuizOutcome, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid submission payload")
	}

	entry, err := s.entries.FindByUserAndContest(ctx, userID, contestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "entry not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load entry")
	}
	if entry.PaymentState != models.PaymentStatePaid {
		return nil, appErrors.ErrPaymentRequired
	}
	if entry.QuizState == models.QuizStateAttempted {
		return nil, appErrors.ErrAlreadyAttempted
	}

	quiz, err := s.quizzes.FindActiveByContest(ctx, contestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrQuizNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load quiz")
	}

	selected := *req.SelectedAnswer
	if selected < 0 || selected >= len(quiz.Options) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "selected answer out of range")
	}

	correct := selected == quiz.CorrectAnswer
	updated, err := s.ledger.RecordQuizResult(ctx, entry.ID, selected, correct)
	if err != nil {
		return nil, err
	}

	s.metrics.RecordQuizSubmission(correct)
	return &models.QuizOutcome{
		Correct:       correct,
		Explanation:   quiz.Explanation,
		CorrectAnswer: quiz.CorrectAnswer,
		Qualified:     updated.Qualified,
	}, nil
}
