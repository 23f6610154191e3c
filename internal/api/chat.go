// Package api exposes the chat and management HTTP surfaces plus the MCP
// server. The chat endpoint is the main entry point: one POST per user turn.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/schedchat/schedchat/internal/dialogue"
	"github.com/schedchat/schedchat/internal/storage"
)

const maxRequestBodySize = 1 << 20 // 1MB

// TurnHandler processes one chat turn. Implemented by dialogue.Controller.
type TurnHandler interface {
	HandleTurn(ctx context.Context, userID, message string) (dialogue.TurnResult, error)
}

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

// NewChatHandler returns the public chat surface: health plus the turn endpoint.
func NewChatHandler(turns TurnHandler) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth)
	r.Post("/chat", handleChat(turns))

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func handleChat(turns TurnHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.UserID == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "user_id is required")
			return
		}
		if req.Message == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "message is required")
			return
		}

		result, err := turns.HandleTurn(r.Context(), req.UserID, req.Message)
		if errors.Is(err, storage.ErrVersionConflict) {
			httpError(w, http.StatusConflict, "conflict", "another turn for this user is in flight, retry")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "processing turn: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(result)
	}
}
