package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ecoQuestAPI/internal/progression"
	"ecoQuestAPI/internal/types/mission"
	"ecoQuestAPI/middleware"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubResolver struct {
	id  uuid.UUID
	err error
}

func (s *stubResolver) UserIDByClerkID(ctx context.Context, clerkID string) (uuid.UUID, error) {
	return s.id, s.err
}

type memCatalog struct {
	missions map[uuid.UUID]*mission.Mission
}

func (c *memCatalog) GetMission(ctx context.Context, missionID uuid.UUID) (*mission.Mission, error) {
	m, ok := c.missions[missionID]
	if !ok {
		return nil, progression.ErrMissionNotFound
	}
	return m, nil
}

type memKey struct {
	user    uuid.UUID
	mission uuid.UUID
}

type memStore struct {
	rows map[memKey]*mission.Progress
}

func newMemStore() *memStore {
	return &memStore{rows: make(map[memKey]*mission.Progress)}
}

func (s *memStore) GetProgress(ctx context.Context, userID, missionID uuid.UUID) (*mission.Progress, error) {
	p, ok := s.rows[memKey{userID, missionID}]
	if !ok {
		return nil, nil
	}
	copied := *p
	return &copied, nil
}

func (s *memStore) InsertProgress(ctx context.Context, p *mission.Progress) (*mission.Progress, error) {
	key := memKey{p.UserID, p.MissionID}
	if _, ok := s.rows[key]; ok {
		return nil, progression.ErrAlreadyStarted
	}
	copied := *p
	s.rows[key] = &copied
	return p, nil
}

func (s *memStore) SetProgressValue(ctx context.Context, userID, missionID uuid.UUID, value int) (*mission.Progress, error) {
	p, ok := s.rows[memKey{userID, missionID}]
	if !ok || p.Status != mission.StatusActive {
		return nil, progression.ErrNotActive
	}
	p.Progress = value
	copied := *p
	return &copied, nil
}

func (s *memStore) AttachVerification(ctx context.Context, userID, missionID uuid.UUID, photoURL string) (*mission.Progress, error) {
	p, ok := s.rows[memKey{userID, missionID}]
	if !ok || p.Status != mission.StatusActive {
		return nil, progression.ErrNotActive
	}
	p.VerificationPhoto = &photoURL
	copied := *p
	return &copied, nil
}

func (s *memStore) CompleteProgress(ctx context.Context, userID, missionID uuid.UUID, photoURL *string, at time.Time) (*mission.Progress, error) {
	p, ok := s.rows[memKey{userID, missionID}]
	if !ok || p.Status != mission.StatusActive {
		return nil, progression.ErrCompletionGuardFailed
	}
	p.Status = mission.StatusCompleted
	p.Progress = 100
	p.CompletedAt = &at
	if photoURL != nil {
		p.VerificationPhoto = photoURL
	}
	copied := *p
	return &copied, nil
}

type memLedger struct {
	total  int
	awards int
}

func (l *memLedger) AwardPoints(ctx context.Context, userID uuid.UUID, amount int) (int, int, error) {
	l.total += amount
	l.awards++
	return l.total, progression.Level(l.total), nil
}

func newTestHandler(t *testing.T, m *mission.Mission, userID uuid.UUID) (*MissionHandler, *memLedger) {
	t.Helper()

	catalog := &memCatalog{missions: map[uuid.UUID]*mission.Mission{}}
	if m != nil {
		catalog.missions[m.ID] = m
	}
	ledger := &memLedger{}
	tracker := progression.NewTracker(catalog, newMemStore(), ledger)

	return NewMissionHandler(nil, tracker, &stubResolver{id: userID}), ledger
}

func authedRequest(method, target, body string, missionID string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	req = mux.SetURLVars(req, map[string]string{"id": missionID})
	ctx := context.WithValue(req.Context(), middleware.ClerkIDKey, "clerk_test")
	return req.WithContext(ctx)
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestStartMissionCreatesActiveRow(t *testing.T) {
	userID := uuid.New()
	m := &mission.Mission{ID: uuid.New(), Title: "Meatless Monday", Points: 50}
	h, _ := newTestHandler(t, m, userID)

	rec := httptest.NewRecorder()
	h.StartMission(rec, authedRequest("POST", "/api/v1/missions/"+m.ID.String()+"/start", "", m.ID.String()))

	require.Equal(t, http.StatusCreated, rec.Code)
	body := decodeBody(t, rec)
	um := body["userMission"].(map[string]any)
	assert.Equal(t, "active", um["status"])
	assert.Equal(t, float64(0), um["progress"])
}

func TestStartMissionTwiceConflicts(t *testing.T) {
	userID := uuid.New()
	m := &mission.Mission{ID: uuid.New(), Title: "Bike to Work", Points: 30}
	h, _ := newTestHandler(t, m, userID)

	rec := httptest.NewRecorder()
	h.StartMission(rec, authedRequest("POST", "/start", "", m.ID.String()))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	h.StartMission(rec, authedRequest("POST", "/start", "", m.ID.String()))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestStartUnknownMissionNotFound(t *testing.T) {
	h, _ := newTestHandler(t, nil, uuid.New())

	unknown := uuid.New().String()
	rec := httptest.NewRecorder()
	h.StartMission(rec, authedRequest("POST", "/start", "", unknown))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStartMissionRequiresAuth(t *testing.T) {
	m := &mission.Mission{ID: uuid.New(), Title: "Shorter Showers", Points: 20}
	h, _ := newTestHandler(t, m, uuid.New())

	req := httptest.NewRequest("POST", "/start", nil)
	req = mux.SetURLVars(req, map[string]string{"id": m.ID.String()})
	rec := httptest.NewRecorder()
	h.StartMission(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestStartMissionRejectsBadID(t *testing.T) {
	h, _ := newTestHandler(t, nil, uuid.New())

	rec := httptest.NewRecorder()
	h.StartMission(rec, authedRequest("POST", "/start", "", "not-a-uuid"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateProgress(t *testing.T) {
	userID := uuid.New()
	m := &mission.Mission{ID: uuid.New(), Title: "Zero Waste Week", Points: 80}
	h, _ := newTestHandler(t, m, userID)

	rec := httptest.NewRecorder()
	h.StartMission(rec, authedRequest("POST", "/start", "", m.ID.String()))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	h.UpdateProgress(rec, authedRequest("PUT", "/progress", `{"progress": 40}`, m.ID.String()))
	require.Equal(t, http.StatusOK, rec.Code)
	um := decodeBody(t, rec)["userMission"].(map[string]any)
	assert.Equal(t, float64(40), um["progress"])

	rec = httptest.NewRecorder()
	h.UpdateProgress(rec, authedRequest("PUT", "/progress", `{"progress": 150}`, m.ID.String()))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.UpdateProgress(rec, authedRequest("PUT", "/progress", `{"progress": 10}`, m.ID.String()))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateProgressWithoutStartNotFound(t *testing.T) {
	m := &mission.Mission{ID: uuid.New(), Title: "Plant a Tree", Points: 60}
	h, _ := newTestHandler(t, m, uuid.New())

	rec := httptest.NewRecorder()
	h.UpdateProgress(rec, authedRequest("PUT", "/progress", `{"progress": 10}`, m.ID.String()))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSubmitVerification(t *testing.T) {
	userID := uuid.New()
	m := &mission.Mission{ID: uuid.New(), Title: "Compost Starter", Points: 40}
	h, _ := newTestHandler(t, m, userID)

	rec := httptest.NewRecorder()
	h.StartMission(rec, authedRequest("POST", "/start", "", m.ID.String()))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	h.SubmitVerification(rec, authedRequest("POST", "/verification", `{"photoUrl": "https://cdn/photo.jpg"}`, m.ID.String()))
	require.Equal(t, http.StatusOK, rec.Code)
	um := decodeBody(t, rec)["userMission"].(map[string]any)
	assert.Equal(t, "https://cdn/photo.jpg", um["verificationPhoto"])
	assert.Equal(t, "active", um["status"])

	rec = httptest.NewRecorder()
	h.SubmitVerification(rec, authedRequest("POST", "/verification", `{"photoUrl": ""}`, m.ID.String()))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCompleteMissionAwardsPointsOnce(t *testing.T) {
	userID := uuid.New()
	m := &mission.Mission{ID: uuid.New(), Title: "Meatless Monday", Points: 50}
	h, ledger := newTestHandler(t, m, userID)

	rec := httptest.NewRecorder()
	h.StartMission(rec, authedRequest("POST", "/start", "", m.ID.String()))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	h.CompleteMission(rec, authedRequest("POST", "/complete", "", m.ID.String()))
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, float64(50), body["totalPointsAfter"])
	assert.Equal(t, float64(1), body["levelAfter"])
	progress := body["progress"].(map[string]any)
	assert.Equal(t, "completed", progress["status"])
	assert.Equal(t, float64(100), progress["progress"])
	assert.NotEmpty(t, progress["completedAt"])
	assert.Equal(t, 1, ledger.awards)

	rec = httptest.NewRecorder()
	h.CompleteMission(rec, authedRequest("POST", "/complete", "", m.ID.String()))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, 1, ledger.awards)
}

func TestCompleteMissionWithoutStartNotFound(t *testing.T) {
	m := &mission.Mission{ID: uuid.New(), Title: "Bike to Work", Points: 30}
	h, ledger := newTestHandler(t, m, uuid.New())

	rec := httptest.NewRecorder()
	h.CompleteMission(rec, authedRequest("POST", "/complete", "", m.ID.String()))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, 0, ledger.awards)
}

func TestCompleteMissionAttachesPhoto(t *testing.T) {
	userID := uuid.New()
	m := &mission.Mission{ID: uuid.New(), Title: "Beach Cleanup", Points: 100}
	h, _ := newTestHandler(t, m, userID)

	rec := httptest.NewRecorder()
	h.StartMission(rec, authedRequest("POST", "/start", "", m.ID.String()))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	h.CompleteMission(rec, authedRequest("POST", "/complete", `{"photoUrl": "https://cdn/proof.jpg"}`, m.ID.String()))
	require.Equal(t, http.StatusOK, rec.Code)
	progress := decodeBody(t, rec)["progress"].(map[string]any)
	assert.Equal(t, "https://cdn/proof.jpg", progress["verificationPhoto"])
}

func TestUnknownUserUnauthorized(t *testing.T) {
	m := &mission.Mission{ID: uuid.New(), Title: "Plant a Tree", Points: 60}
	catalog := &memCatalog{missions: map[uuid.UUID]*mission.Mission{m.ID: m}}
	tracker := progression.NewTracker(catalog, newMemStore(), &memLedger{})
	h := NewMissionHandler(nil, tracker, &stubResolver{err: context.DeadlineExceeded})

	rec := httptest.NewRecorder()
	h.StartMission(rec, authedRequest("POST", "/start", "", m.ID.String()))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
