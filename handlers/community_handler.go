package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"ecoQuestAPI/internal/types/community"
	"ecoQuestAPI/middleware"
	"ecoQuestAPI/services"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type CommunityHandler struct {
	communityService *services.CommunityService
}

func NewCommunityHandler(communityService *services.CommunityService) *CommunityHandler {
	return &CommunityHandler{
		communityService: communityService,
	}
}

func (h *CommunityHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	posts, err := h.communityService.ListPosts(ctx, clerkID, limit)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "could not fetch posts")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{"posts": posts})
}

func (h *CommunityHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req community.CreatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	post, err := h.communityService.CreatePost(ctx, clerkID, &req)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondWithJSON(w, http.StatusCreated, map[string]any{"post": post})
}

func (h *CommunityHandler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	postID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid post id")
		return
	}

	liked, err := h.communityService.ToggleLike(ctx, clerkID, postID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "could not toggle like")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]bool{"liked": liked})
}

func (h *CommunityHandler) ListGroups(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	groups, err := h.communityService.ListGroups(ctx, r.URL.Query().Get("location"))
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "could not fetch groups")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{"groups": groups})
}
