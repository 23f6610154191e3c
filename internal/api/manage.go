package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/schedchat/schedchat/internal/storage"
)

// AppDeps holds dependencies for the authenticated management API.
type AppDeps struct {
	Store *storage.Store
	Token string
}

// NewAppHandler returns the bearer-authenticated management surface: listing
// what the assistant has created and inspecting or resetting conversations.
// Mounted under /users.
func NewAppHandler(deps AppDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(BearerAuth(deps.Token))

	r.Get("/{userID}/tasks", handleListTasks(deps))
	r.Get("/{userID}/meetings", handleListMeetings(deps))
	r.Get("/{userID}/conversation", handleGetConversation(deps))
	r.Delete("/{userID}/conversation", handleDeleteConversation(deps))

	return r
}

func handleListTasks(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "userID")
		limit := parseIntParam(r, "limit", 20, 100)

		tasks, err := deps.Store.ListTasks(r.Context(), userID, limit)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list tasks: %v", err)
			return
		}
		if tasks == nil {
			tasks = []storage.Task{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(tasks)
	}
}

func handleListMeetings(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "userID")
		limit := parseIntParam(r, "limit", 20, 100)

		meetings, err := deps.Store.ListMeetings(r.Context(), userID, limit)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list meetings: %v", err)
			return
		}
		if meetings == nil {
			meetings = []storage.Meeting{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(meetings)
	}
}

func handleGetConversation(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "userID")

		conv, err := deps.Store.FindConversation(r.Context(), userID)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "conversation not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get conversation: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"user_id":    conv.UserID,
			"messages":   conv.Messages,
			"pending":    conv.Pending,
			"version":    conv.Version,
			"updated_at": conv.UpdatedAt,
		})
	}
}

func handleDeleteConversation(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "userID")

		err := deps.Store.DeleteConversation(r.Context(), userID)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "conversation not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to delete conversation: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "deleted"})
	}
}

func parseIntParam(r *http.Request, key string, defaultVal, maxVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	if maxVal > 0 && v > maxVal {
		return maxVal
	}
	return v
}
