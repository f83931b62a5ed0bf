package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/winova/contest-api/internal/models"
	appErrors "github.com/winova/contest-api/pkg/errors"
)

type mockAdmissionContests struct {
	contest  *models.Contest
	slots    int
	released int
}

func (m *mockAdmissionContests) FindByID(ctx context.Context, id string) (*models.Contest, error) {
	if m.contest == nil || m.contest.ID != id {
		return nil, sql.ErrNoRows
	}
	cp := *m.contest
	return &cp, nil
}

func (m *mockAdmissionContests) TryReserveSlot(ctx context.Context, contestID string) (bool, error) {
	if m.slots > 0 {
		m.slots--
		return true, nil
	}
	return false, nil
}

func (m *mockAdmissionContests) ReleaseSlot(ctx context.Context, contestID string) error {
	m.released++
	m.slots++
	return nil
}

func openContest(id string, capacity int) *models.Contest {
	now := time.Now().UTC()
	return &models.Contest{
		ID:        id,
		Title:     "Summer Giveaway",
		EntryFee:  500,
		Capacity:  capacity,
		IsActive:  true,
		StartTime: now.Add(-time.Hour),
		EndTime:   now.Add(time.Hour),
	}
}

func TestAdmissionServiceAdmitsUntilCapacity(t *testing.T) {
	repo := &mockAdmissionContests{contest: openContest("c1", 2), slots: 2}
	svc := NewAdmissionService(repo, nil, zap.NewNop())

	for i := 0; i < 2; i++ {
		contest, err := svc.TryAdmit(context.Background(), "c1")
		require.NoError(t, err)
		assert.Equal(t, "c1", contest.ID)
	}

	_, err := svc.TryAdmit(context.Background(), "c1")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrCapacityExceeded))
}

func TestAdmissionServiceContestNotFound(t *testing.T) {
	svc := NewAdmissionService(&mockAdmissionContests{}, nil, zap.NewNop())

	_, err := svc.TryAdmit(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestAdmissionServiceContestInactive(t *testing.T) {
	contest := openContest("c1", 10)
	contest.IsActive = false
	repo := &mockAdmissionContests{contest: contest, slots: 10}
	svc := NewAdmissionService(repo, nil, zap.NewNop())

	_, err := svc.TryAdmit(context.Background(), "c1")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrContestInactive))
	assert.Equal(t, 10, repo.slots)
}

func TestAdmissionServiceContestOutsideWindow(t *testing.T) {
	contest := openContest("c1", 10)
	contest.StartTime = time.Now().UTC().Add(time.Hour)
	contest.EndTime = time.Now().UTC().Add(2 * time.Hour)
	repo := &mockAdmissionContests{contest: contest, slots: 10}
	svc := NewAdmissionService(repo, nil, zap.NewNop())

	_, err := svc.TryAdmit(context.Background(), "c1")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrContestInactive))
}

func TestAdmissionServiceRelease(t *testing.T) {
	repo := &mockAdmissionContests{contest: openContest("c1", 1), slots: 1}
	svc := NewAdmissionService(repo, nil, zap.NewNop())

	_, err := svc.TryAdmit(context.Background(), "c1")
	require.NoError(t, err)
	require.NoError(t, svc.Release(context.Background(), "c1"))
	assert.Equal(t, 1, repo.released)
	assert.Equal(t, 1, repo.slots)
}
