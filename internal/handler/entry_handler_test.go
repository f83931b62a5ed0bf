package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/winova/contest-api/internal/middleware"
	"github.com/winova/contest-api/internal/models"
	"github.com/winova/contest-api/internal/service"
	appErrors "github.com/winova/contest-api/pkg/errors"
	"github.com/winova/contest-api/pkg/response"
)

type entryRepoStub struct {
	created   []*models.Entry
	createErr error
	list      []models.EntryDetail
	total     int
}

func (s *entryRepoStub) Create(ctx context.Context, entry *models.Entry) error {
	if s.createErr != nil {
		return s.createErr
	}
	entry.ID = "e1"
	entry.PaymentState = models.PaymentStatePending
	entry.QuizState = models.QuizStateNotAttempted
	s.created = append(s.created, entry)
	return nil
}

func (s *entryRepoStub) FindByID(ctx context.Context, id string) (*models.Entry, error) {
	return nil, sql.ErrNoRows
}

func (s *entryRepoStub) FindByUserAndContest(ctx context.Context, userID, contestID string) (*models.Entry, error) {
	return nil, sql.ErrNoRows
}

func (s *entryRepoStub) ListByUser(ctx context.Context, userID string, page, pageSize int) ([]models.EntryDetail, int, error) {
	return s.list, s.total, nil
}

func (s *entryRepoStub) RecordQuizResult(ctx context.Context, entryID string, selectedAnswer int, qualified bool, submittedAt time.Time) (bool, error) {
	return false, nil
}

type admitterStub struct {
	err error
}

func (s *admitterStub) TryAdmit(ctx context.Context, contestID string) (*models.Contest, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.Contest{ID: contestID, Capacity: 10}, nil
}

func (s *admitterStub) Release(ctx context.Context, contestID string) error { return nil }

func newEntryHandler(repo *entryRepoStub, admitter *admitterStub) *EntryHandler {
	svc := service.NewEntryService(repo, admitter, validator.New(), zap.NewNop())
	return NewEntryHandler(svc)
}

func testContext(t *testing.T, method, target string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	c.Request = req
	return c, w
}

func authenticate(c *gin.Context, userID string, role models.UserRole) {
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: userID, Role: role})
}

func TestEntryHandlerCreate(t *testing.T) {
	repo := &entryRepoStub{}
	handler := newEntryHandler(repo, &admitterStub{})

	body, _ := json.Marshal(service.EnterContestRequest{ContestID: "c1"})
	c, w := testContext(t, http.MethodPost, "/entries", body)
	authenticate(c, "u1", models.RoleUser)

	handler.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Nil(t, envelope.Error)
	require.Len(t, repo.created, 1)
	assert.Equal(t, "u1", repo.created[0].UserID)
}

func TestEntryHandlerCreateUnauthorized(t *testing.T) {
	handler := newEntryHandler(&entryRepoStub{}, &admitterStub{})

	body, _ := json.Marshal(service.EnterContestRequest{ContestID: "c1"})
	c, w := testContext(t, http.MethodPost, "/entries", body)

	handler.Create(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestEntryHandlerCreateInvalidBody(t *testing.T) {
	handler := newEntryHandler(&entryRepoStub{}, &admitterStub{})

	c, w := testContext(t, http.MethodPost, "/entries", []byte(`not json`))
	authenticate(c, "u1", models.RoleUser)

	handler.Create(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEntryHandlerCreateContestFull(t *testing.T) {
	handler := newEntryHandler(&entryRepoStub{}, &admitterStub{err: appErrors.ErrCapacityExceeded})

	body, _ := json.Marshal(service.EnterContestRequest{ContestID: "c1"})
	c, w := testContext(t, http.MethodPost, "/entries", body)
	authenticate(c, "u1", models.RoleUser)

	handler.Create(c)
	require.Equal(t, http.StatusConflict, w.Code)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "CAPACITY_EXCEEDED", envelope.Error.Code)
}

func TestEntryHandlerListMine(t *testing.T) {
	repo := &entryRepoStub{
		list:  []models.EntryDetail{{Entry: models.Entry{ID: "e1", UserID: "u1"}, ContestTitle: "Summer Giveaway"}},
		total: 1,
	}
	handler := newEntryHandler(repo, &admitterStub{})

	c, w := testContext(t, http.MethodGet, "/entries/user?page=1&limit=20", nil)
	authenticate(c, "u1", models.RoleUser)

	handler.ListMine(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Pagination)
	assert.Equal(t, 1, envelope.Pagination.TotalCount)
}
