package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/winova/contest-api/internal/models"
	"github.com/winova/contest-api/internal/service"
	"github.com/winova/contest-api/pkg/response"
)

type quizRepoStub struct {
	quiz *models.Quiz
}

func (s *quizRepoStub) FindActiveByContest(ctx context.Context, contestID string) (*models.Quiz, error) {
	if s.quiz == nil || s.quiz.ContestID != contestID {
		return nil, sql.ErrNoRows
	}
	cp := *s.quiz
	return &cp, nil
}

type quizLedgerStub struct{}

func (s *quizLedgerStub) RecordQuizResult(ctx context.Context, entryID string, selectedAnswer int, correct bool) (*models.Entry, error) {
	return &models.Entry{
		ID:             entryID,
		PaymentState:   models.PaymentStatePaid,
		QuizState:      models.QuizStateAttempted,
		Qualified:      correct,
		SelectedAnswer: &selectedAnswer,
	}, nil
}

func newQuizHandler(quizzes *quizRepoStub, entries *paymentEntriesStub) *QuizHandler {
	svc := service.NewQuizService(quizzes, entries, &quizLedgerStub{}, nil, time.Minute, nil, validator.New(), zap.NewNop())
	return NewQuizHandler(svc)
}

func contestQuiz() *models.Quiz {
	return &models.Quiz{
		ID:            "q1",
		ContestID:     "c1",
		Question:      "Capital of France?",
		Options:       models.Options{"Paris", "London", "Berlin"},
		CorrectAnswer: 0,
		Explanation:   "Paris is the capital.",
		IsActive:      true,
	}
}

func TestQuizHandlerGet(t *testing.T) {
	handler := newQuizHandler(&quizRepoStub{quiz: contestQuiz()}, &paymentEntriesStub{})

	c, w := testContext(t, http.MethodGet, "/quizzes/contest/c1", nil)
	c.Params = gin.Params{{Key: "contestId", Value: "c1"}}

	handler.Get(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Capital of France?")
	assert.NotContains(t, w.Body.String(), "correct_answer")
}

func TestQuizHandlerGetMissing(t *testing.T) {
	handler := newQuizHandler(&quizRepoStub{}, &paymentEntriesStub{})

	c, w := testContext(t, http.MethodGet, "/quizzes/contest/c9", nil)
	c.Params = gin.Params{{Key: "contestId", Value: "c9"}}

	handler.Get(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestQuizHandlerSubmit(t *testing.T) {
	entries := &paymentEntriesStub{entry: &models.Entry{ID: "e1", UserID: "u1", ContestID: "c1", PaymentState: models.PaymentStatePaid, QuizState: models.QuizStateNotAttempted}}
	handler := newQuizHandler(&quizRepoStub{quiz: contestQuiz()}, entries)

	answer := 0
	body, _ := json.Marshal(service.SubmitAnswerRequest{SelectedAnswer: &answer})
	c, w := testContext(t, http.MethodPost, "/quizzes/contest/c1/submit", body)
	c.Params = gin.Params{{Key: "contestId", Value: "c1"}}
	authenticate(c, "u1", models.RoleUser)

	handler.Submit(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	outcome, ok := envelope.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, true, outcome["correct"])
	assert.Equal(t, true, outcome["qualified"])
}

func TestQuizHandlerSubmitUnauthorized(t *testing.T) {
	handler := newQuizHandler(&quizRepoStub{quiz: contestQuiz()}, &paymentEntriesStub{})

	answer := 0
	body, _ := json.Marshal(service.SubmitAnswerRequest{SelectedAnswer: &answer})
	c, w := testContext(t, http.MethodPost, "/quizzes/contest/c1/submit", body)
	c.Params = gin.Params{{Key: "contestId", Value: "c1"}}

	handler.Submit(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestQuizHandlerSubmitUnpaid(t *testing.T) {
	entries := &paymentEntriesStub{entry: &models.Entry{ID: "e1", UserID: "u1", ContestID: "c1", PaymentState: models.PaymentStatePending, QuizState: models.QuizStateNotAttempted}}
	handler := newQuizHandler(&quizRepoStub{quiz: contestQuiz()}, entries)

	answer := 0
	body, _ := json.Marshal(service.SubmitAnswerRequest{SelectedAnswer: &answer})
	c, w := testContext(t, http.MethodPost, "/quizzes/contest/c1/submit", body)
	c.Params = gin.Params{{Key: "contestId", Value: "c1"}}
	authenticate(c, "u1", models.RoleUser)

	handler.Submit(c)
	assert.Equal(t, http.StatusPaymentRequired, w.Code)
}
