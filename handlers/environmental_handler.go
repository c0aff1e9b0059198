package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"ecoQuestAPI/internal/types/envdata"
	"ecoQuestAPI/middleware"
	"ecoQuestAPI/services"
)

type EnvironmentalHandler struct {
	envService *services.EnvironmentalService
}

func NewEnvironmentalHandler(envService *services.EnvironmentalService) *EnvironmentalHandler {
	return &EnvironmentalHandler{
		envService: envService,
	}
}

func (h *EnvironmentalHandler) ListDataPoints(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	points, err := h.envService.ListDataPoints(ctx, clerkID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "could not fetch environmental data")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{"environmentalData": points})
}

func (h *EnvironmentalHandler) RecordDataPoint(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req envdata.RecordDataPointRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	point, err := h.envService.RecordDataPoint(ctx, clerkID, &req)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondWithJSON(w, http.StatusCreated, map[string]any{"dataPoint": point})
}
