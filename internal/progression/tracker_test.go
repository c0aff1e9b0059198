package progression

import (
	"context"
	"sync"
	"testing"
	"time"

	"ecoQuestAPI/internal/types/mission"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCatalog struct {
	missions map[uuid.UUID]*mission.Mission
}

func (c *fakeCatalog) GetMission(_ context.Context, id uuid.UUID) (*mission.Mission, error) {
	m, ok := c.missions[id]
	if !ok {
		return nil, ErrMissionNotFound
	}
	return m, nil
}

type pairKey struct {
	user    uuid.UUID
	mission uuid.UUID
}

type fakeProgressStore struct {
	mu   sync.Mutex
	rows map[pairKey]*mission.Progress
}

func newFakeProgressStore() *fakeProgressStore {
	return &fakeProgressStore{rows: make(map[pairKey]*mission.Progress)}
}

func (s *fakeProgressStore) GetProgress(_ context.Context, userID, missionID uuid.UUID) (*mission.Progress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[pairKey{userID, missionID}]
	if !ok {
		return nil, nil
	}
	cp := *row
	return &cp, nil
}

func (s *fakeProgressStore) InsertProgress(_ context.Context, p *mission.Progress) (*mission.Progress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := pairKey{p.UserID, p.MissionID}
	if _, exists := s.rows[key]; exists {
		return nil, ErrAlreadyStarted
	}
	cp := *p
	s.rows[key] = &cp
	out := cp
	return &out, nil
}

func (s *fakeProgressStore) SetProgressValue(_ context.Context, userID, missionID uuid.UUID, value int) (*mission.Progress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[pairKey{userID, missionID}]
	if !ok || row.Status != mission.StatusActive {
		return nil, ErrNotActive
	}
	row.Progress = value
	cp := *row
	return &cp, nil
}

func (s *fakeProgressStore) AttachVerification(_ context.Context, userID, missionID uuid.UUID, photoURL string) (*mission.Progress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[pairKey{userID, missionID}]
	if !ok || row.Status != mission.StatusActive {
		return nil, ErrNotActive
	}
	row.VerificationPhoto = &photoURL
	cp := *row
	return &cp, nil
}

func (s *fakeProgressStore) CompleteProgress(_ context.Context, userID, missionID uuid.UUID, photoURL *string, at time.Time) (*mission.Progress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[pairKey{userID, missionID}]
	if !ok || row.Status != mission.StatusActive {
		return nil, ErrCompletionGuardFailed
	}
	row.Status = mission.StatusCompleted
	row.Progress = 100
	row.CompletedAt = &at
	if photoURL != nil {
		row.VerificationPhoto = photoURL
	}
	cp := *row
	return &cp, nil
}

type fakeLedger struct {
	mu     sync.Mutex
	total  int
	awards []int
}

func (l *fakeLedger) AwardPoints(_ context.Context, _ uuid.UUID, amount int) (int, int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.total += amount
	l.awards = append(l.awards, amount)
	return l.total, Level(l.total), nil
}

func newTestTracker(t *testing.T) (*Tracker, *fakeProgressStore, *fakeLedger, uuid.UUID, uuid.UUID) {
	t.Helper()
	missionID := uuid.New()
	userID := uuid.New()
	catalog := &fakeCatalog{missions: map[uuid.UUID]*mission.Mission{
		missionID: {
			ID:         missionID,
			Title:      "Bike to work",
			Category:   mission.CategoryTransport,
			Difficulty: mission.DifficultyEasy,
			Points:     50,
		},
	}}
	store := newFakeProgressStore()
	ledger := &fakeLedger{}
	return NewTracker(catalog, store, ledger), store, ledger, userID, missionID
}

func TestStartMission(t *testing.T) {
	tracker, _, _, userID, missionID := newTestTracker(t)

	p, err := tracker.StartMission(context.Background(), userID, missionID)
	require.NoError(t, err)
	assert.Equal(t, mission.StatusActive, p.Status)
	assert.Equal(t, 0, p.Progress)
	assert.False(t, p.StartedAt.IsZero())
	assert.Nil(t, p.CompletedAt)
}

func TestStartMissionUnknownMission(t *testing.T) {
	tracker, _, _, userID, _ := newTestTracker(t)

	_, err := tracker.StartMission(context.Background(), userID, uuid.New())
	assert.ErrorIs(t, err, ErrMissionNotFound)
}

func TestStartMissionTwiceRejected(t *testing.T) {
	tracker, store, _, userID, missionID := newTestTracker(t)
	ctx := context.Background()

	_, err := tracker.StartMission(ctx, userID, missionID)
	require.NoError(t, err)

	_, err = tracker.StartMission(ctx, userID, missionID)
	assert.ErrorIs(t, err, ErrAlreadyStarted)

	// state unchanged: still exactly one row, still at progress 0
	row, err := store.GetProgress(ctx, userID, missionID)
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, 0, row.Progress)
	assert.Len(t, store.rows, 1)
}

func TestUpdateProgress(t *testing.T) {
	tracker, _, _, userID, missionID := newTestTracker(t)
	ctx := context.Background()

	_, err := tracker.StartMission(ctx, userID, missionID)
	require.NoError(t, err)

	p, err := tracker.UpdateProgress(ctx, userID, missionID, 25)
	require.NoError(t, err)
	assert.Equal(t, 25, p.Progress)
	assert.Equal(t, mission.StatusActive, p.Status)

	p, err = tracker.UpdateProgress(ctx, userID, missionID, 75)
	require.NoError(t, err)
	assert.Equal(t, 75, p.Progress)
}

func TestUpdateProgressOutOfRange(t *testing.T) {
	tracker, _, _, userID, missionID := newTestTracker(t)
	ctx := context.Background()

	_, err := tracker.StartMission(ctx, userID, missionID)
	require.NoError(t, err)

	_, err = tracker.UpdateProgress(ctx, userID, missionID, -1)
	assert.True(t, IsValidationError(err))

	_, err = tracker.UpdateProgress(ctx, userID, missionID, 101)
	assert.True(t, IsValidationError(err))
}

func TestUpdateProgressCannotDecrease(t *testing.T) {
	tracker, _, _, userID, missionID := newTestTracker(t)
	ctx := context.Background()

	_, err := tracker.StartMission(ctx, userID, missionID)
	require.NoError(t, err)
	_, err = tracker.UpdateProgress(ctx, userID, missionID, 50)
	require.NoError(t, err)

	_, err = tracker.UpdateProgress(ctx, userID, missionID, 25)
	assert.True(t, IsValidationError(err))
}

func TestUpdateProgressWithoutActiveRow(t *testing.T) {
	tracker, _, _, userID, missionID := newTestTracker(t)
	ctx := context.Background()

	// absent
	_, err := tracker.UpdateProgress(ctx, userID, missionID, 25)
	assert.ErrorIs(t, err, ErrNotActive)

	// completed
	_, err = tracker.StartMission(ctx, userID, missionID)
	require.NoError(t, err)
	_, err = tracker.CompleteMission(ctx, userID, missionID, nil)
	require.NoError(t, err)

	_, err = tracker.UpdateProgress(ctx, userID, missionID, 50)
	assert.ErrorIs(t, err, ErrNotActive)
}

func TestSubmitVerification(t *testing.T) {
	tracker, _, _, userID, missionID := newTestTracker(t)
	ctx := context.Background()

	_, err := tracker.StartMission(ctx, userID, missionID)
	require.NoError(t, err)

	p, err := tracker.SubmitVerification(ctx, userID, missionID, "https://cdn.example.com/proof.jpg")
	require.NoError(t, err)
	require.NotNil(t, p.VerificationPhoto)
	assert.Equal(t, "https://cdn.example.com/proof.jpg", *p.VerificationPhoto)
	// evidence, not a transition
	assert.Equal(t, mission.StatusActive, p.Status)
}

func TestCompleteMission(t *testing.T) {
	tracker, _, ledger, userID, missionID := newTestTracker(t)
	ctx := context.Background()

	_, err := tracker.StartMission(ctx, userID, missionID)
	require.NoError(t, err)

	photo := "https://cdn.example.com/done.jpg"
	result, err := tracker.CompleteMission(ctx, userID, missionID, &photo)
	require.NoError(t, err)

	assert.Equal(t, mission.StatusCompleted, result.Progress.Status)
	assert.Equal(t, 100, result.Progress.Progress)
	require.NotNil(t, result.Progress.CompletedAt)
	require.NotNil(t, result.Progress.VerificationPhoto)
	assert.Equal(t, photo, *result.Progress.VerificationPhoto)
	assert.Equal(t, 50, result.TotalPointsAfter)
	assert.Equal(t, 1, result.LevelAfter)
	assert.Equal(t, []int{50}, ledger.awards)
}

func TestCompleteMissionTwiceAwardsOnce(t *testing.T) {
	tracker, _, ledger, userID, missionID := newTestTracker(t)
	ctx := context.Background()

	_, err := tracker.StartMission(ctx, userID, missionID)
	require.NoError(t, err)

	_, err = tracker.CompleteMission(ctx, userID, missionID, nil)
	require.NoError(t, err)

	_, err = tracker.CompleteMission(ctx, userID, missionID, nil)
	assert.ErrorIs(t, err, ErrAlreadyCompleted)
	assert.Equal(t, 50, ledger.total)
	assert.Len(t, ledger.awards, 1)
}

func TestCompleteMissionWithoutActiveRow(t *testing.T) {
	tracker, _, ledger, userID, missionID := newTestTracker(t)

	_, err := tracker.CompleteMission(context.Background(), userID, missionID, nil)
	assert.ErrorIs(t, err, ErrNotActive)
	assert.Zero(t, ledger.total)
}

func TestCompleteMissionUnknownMission(t *testing.T) {
	tracker, _, ledger, userID, _ := newTestTracker(t)

	_, err := tracker.CompleteMission(context.Background(), userID, uuid.New(), nil)
	assert.ErrorIs(t, err, ErrMissionNotFound)
	assert.Zero(t, ledger.total)
}

func TestConcurrentCompleteAwardsExactlyOnce(t *testing.T) {
	tracker, _, ledger, userID, missionID := newTestTracker(t)
	ctx := context.Background()

	_, err := tracker.StartMission(ctx, userID, missionID)
	require.NoError(t, err)

	const attempts = 8
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = tracker.CompleteMission(ctx, userID, missionID, nil)
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
			continue
		}
		if !assert.True(t,
			err == ErrAlreadyCompleted || err == ErrCompletionGuardFailed,
			"unexpected error: %v", err) {
			return
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 50, ledger.total)
	assert.Len(t, ledger.awards, 1)
}

func TestCompletedAtComesFromClock(t *testing.T) {
	tracker, _, _, userID, missionID := newTestTracker(t)
	ctx := context.Background()

	frozen := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	tracker.now = func() time.Time { return frozen }

	_, err := tracker.StartMission(ctx, userID, missionID)
	require.NoError(t, err)

	result, err := tracker.CompleteMission(ctx, userID, missionID, nil)
	require.NoError(t, err)
	assert.Equal(t, frozen, *result.Progress.CompletedAt)
	assert.Equal(t, frozen, result.Progress.StartedAt)
}
