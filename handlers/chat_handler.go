package handlers

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"ecoQuestAPI/internal/assistant"
	"ecoQuestAPI/middleware"

	"github.com/google/uuid"
)

type ChatHandler struct {
	proxy *assistant.Proxy
	users userResolver
}

func NewChatHandler(proxy *assistant.Proxy, users userResolver) *ChatHandler {
	return &ChatHandler{
		proxy: proxy,
		users: users,
	}
}

// Chat streams the assistant's reply as `0:<json-string>\n` lines followed by
// a `[DONE]\n` terminator. Chunks are flushed as they arrive from the model;
// client disconnect cancels the request context, which stops the model pull.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	// No timeout here: the stream lives as long as the model talks and
	// the client listens.
	ctx := r.Context()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	if h.proxy == nil {
		respondWithError(w, http.StatusServiceUnavailable, "Assistant is not configured")
		return
	}

	var body assistant.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	// A missing profile degrades to an unpersonalized conversation.
	userID, err := h.users.UserIDByClerkID(ctx, clerkID)
	if err != nil {
		log.Printf("Chat: could not resolve user %s, continuing without context: %v", clerkID, err)
		userID = uuid.Nil
	}

	stream, err := h.proxy.Converse(ctx, userID, body.Messages)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondWithError(w, http.StatusInternalServerError, "Streaming unsupported")
		return
	}

	middleware.CountChatStream()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")

	wroteChunk := false
	for chunk, streamErr := range stream {
		if streamErr != nil {
			if !wroteChunk {
				// nothing sent yet: a clean error response, not a partial stream
				respondWithError(w, http.StatusInternalServerError, "Assistant unavailable")
				return
			}
			// mid-stream failure: truncate, never fabricate a completion
			log.Printf("Chat: stream aborted for %s: %v", clerkID, streamErr)
			return
		}

		encoded, err := json.Marshal(chunk)
		if err != nil {
			log.Printf("Chat: failed to encode chunk: %v", err)
			return
		}
		fmt.Fprintf(w, "0:%s\n", encoded)
		flusher.Flush()
		wroteChunk = true
	}

	fmt.Fprint(w, "[DONE]\n")
	flusher.Flush()
}
