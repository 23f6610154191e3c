package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/schedchat/schedchat/internal/dialogue"
	"github.com/schedchat/schedchat/internal/storage"
)

type fakeTurns struct {
	result dialogue.TurnResult
	err    error

	gotUserID  string
	gotMessage string
}

func (f *fakeTurns) HandleTurn(ctx context.Context, userID, message string) (dialogue.TurnResult, error) {
	f.gotUserID = userID
	f.gotMessage = message
	return f.result, f.err
}

func TestChat_HappyPath(t *testing.T) {
	turns := &fakeTurns{
		result: dialogue.TurnResult{
			Success:  true,
			Response: "Done! I've created \"call John\".",
			Action:   dialogue.ActionTaskCreated,
		},
	}
	h := NewChatHandler(turns)

	body := `{"user_id":"alice","message":"yes"}`
	req := httptest.NewRequest("POST", "/chat", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if turns.gotUserID != "alice" || turns.gotMessage != "yes" {
		t.Errorf("handler got %q/%q", turns.gotUserID, turns.gotMessage)
	}

	var result dialogue.TurnResult
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if result.Action != dialogue.ActionTaskCreated {
		t.Errorf("action = %q, want create_task_success", result.Action)
	}
}

func TestChat_Validation(t *testing.T) {
	h := NewChatHandler(&fakeTurns{})

	tests := []struct {
		name string
		body string
	}{
		{"missing user_id", `{"message":"hi"}`},
		{"missing message", `{"user_id":"alice"}`},
		{"not json", `hello`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/chat", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
		})
	}
}

func TestChat_VersionConflictIs409(t *testing.T) {
	h := NewChatHandler(&fakeTurns{err: storage.ErrVersionConflict})

	req := httptest.NewRequest("POST", "/chat", strings.NewReader(`{"user_id":"alice","message":"hi"}`))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", w.Code)
	}
}

func TestHealth(t *testing.T) {
	h := NewChatHandler(&fakeTurns{})

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestBearerAuth(t *testing.T) {
	handler := BearerAuth("secret")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"valid token", "Bearer secret", http.StatusNoContent},
		{"wrong token", "Bearer nope", http.StatusUnauthorized},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic secret", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/users/alice/tasks", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}
