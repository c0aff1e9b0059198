package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"ecoQuestAPI/internal/progression"
	"ecoQuestAPI/internal/types/mission"
	"ecoQuestAPI/middleware"
	"ecoQuestAPI/services"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type MissionHandler struct {
	missionService *services.MissionService
	tracker        *progression.Tracker
	users          userResolver
}

func NewMissionHandler(missionService *services.MissionService, tracker *progression.Tracker, users userResolver) *MissionHandler {
	return &MissionHandler{
		missionService: missionService,
		tracker:        tracker,
		users:          users,
	}
}

func (h *MissionHandler) ListMissions(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	filter := mission.ListFilter{
		Category:   r.URL.Query().Get("category"),
		Difficulty: r.URL.Query().Get("difficulty"),
	}

	missions, err := h.missionService.ListMissions(ctx, filter)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "could not fetch missions")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{"missions": missions})
}

func (h *MissionHandler) ListUserMissions(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := h.resolveUser(ctx, w)
	if !ok {
		return
	}

	userMissions, err := h.missionService.ListUserMissions(ctx, userID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "could not fetch user missions")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{"userMissions": userMissions})
}

func (h *MissionHandler) StartMission(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := h.resolveUser(ctx, w)
	if !ok {
		return
	}

	missionID, ok := missionIDFromPath(w, r)
	if !ok {
		return
	}

	p, err := h.tracker.StartMission(ctx, userID, missionID)
	if err != nil {
		respondWithError(w, missionErrorStatus(err), err.Error())
		return
	}

	respondWithJSON(w, http.StatusCreated, map[string]any{"userMission": p})
}

func (h *MissionHandler) UpdateProgress(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := h.resolveUser(ctx, w)
	if !ok {
		return
	}

	missionID, ok := missionIDFromPath(w, r)
	if !ok {
		return
	}

	var body mission.UpdateProgressRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	p, err := h.tracker.UpdateProgress(ctx, userID, missionID, body.Progress)
	if err != nil {
		respondWithError(w, missionErrorStatus(err), err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{"userMission": p})
}

func (h *MissionHandler) SubmitVerification(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := h.resolveUser(ctx, w)
	if !ok {
		return
	}

	missionID, ok := missionIDFromPath(w, r)
	if !ok {
		return
	}

	var body mission.VerificationRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	p, err := h.tracker.SubmitVerification(ctx, userID, missionID, body.PhotoURL)
	if err != nil {
		respondWithError(w, missionErrorStatus(err), err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{"userMission": p})
}

func (h *MissionHandler) CompleteMission(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := h.resolveUser(ctx, w)
	if !ok {
		return
	}

	missionID, ok := missionIDFromPath(w, r)
	if !ok {
		return
	}

	var body mission.CompleteRequest
	if r.Body != nil {
		// body is optional; ignore decode errors on an empty body
		_ = json.NewDecoder(r.Body).Decode(&body)
	}

	var photo *string
	if body.PhotoURL != "" {
		photo = &body.PhotoURL
	}

	result, err := h.tracker.CompleteMission(ctx, userID, missionID, photo)
	if err != nil {
		respondWithError(w, missionErrorStatus(err), err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

func (h *MissionHandler) resolveUser(ctx context.Context, w http.ResponseWriter) (uuid.UUID, bool) {
	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return uuid.Nil, false
	}

	userID, err := h.users.UserIDByClerkID(ctx, clerkID)
	if err != nil {
		respondWithError(w, http.StatusUnauthorized, "Unknown user")
		return uuid.Nil, false
	}
	return userID, true
}

func missionIDFromPath(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid mission id")
		return uuid.Nil, false
	}
	return id, true
}

func missionErrorStatus(err error) int {
	switch {
	case errors.Is(err, progression.ErrMissionNotFound):
		return http.StatusNotFound
	case errors.Is(err, progression.ErrNotActive):
		return http.StatusNotFound
	case errors.Is(err, progression.ErrAlreadyStarted):
		return http.StatusConflict
	case errors.Is(err, progression.ErrAlreadyCompleted):
		return http.StatusConflict
	case errors.Is(err, progression.ErrCompletionGuardFailed):
		return http.StatusConflict
	case progression.IsValidationError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
