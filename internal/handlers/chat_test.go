package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"

	"github.com/sarrietav-dev/ai-backlog/internal/platform/openai"
	"github.com/sarrietav-dev/ai-backlog/internal/services"
	"github.com/sarrietav-dev/ai-backlog/internal/types"
)

type fakeChatService struct {
	services.ChatService

	streamReplyFn func(ctx context.Context, backlogID, userID uuid.UUID, messages []openai.Message, onDelta func(delta string)) (*types.ChatMessage, error)
}

func (f *fakeChatService) StreamReply(ctx context.Context, backlogID, userID uuid.UUID, messages []openai.Message, onDelta func(delta string)) (*types.ChatMessage, error) {
	return f.streamReplyFn(ctx, backlogID, userID, messages, onDelta)
}

func TestChatStreamWritesPlainTextDeltas(t *testing.T) {
	userID := uuid.New()
	backlogID := uuid.New()
	handler := NewChatHandler(handlerTestLogger(t), &fakeChatService{
		streamReplyFn: func(ctx context.Context, gotBacklog, gotUser uuid.UUID, messages []openai.Message, onDelta func(delta string)) (*types.ChatMessage, error) {
			if gotBacklog != backlogID || gotUser != userID {
				t.Fatalf("ids: backlog=%s user=%s", gotBacklog, gotUser)
			}
			onDelta("Hello")
			onDelta(" there")
			return &types.ChatMessage{Content: "Hello there"}, nil
		},
	})

	body := map[string]any{
		"backlogId": backlogID.String(),
		"messages":  []map[string]string{{"role": "user", "content": "hi"}},
	}
	w := doJSON(t, handler.Stream, http.MethodPost, "/api/chat", body, &userID)
	if w.Code != http.StatusOK {
		t.Fatalf("status: want=200 got=%d", w.Code)
	}
	if got := w.Header().Get("Content-Type"); got != "text/plain; charset=utf-8" {
		t.Fatalf("content type: got %q", got)
	}
	if w.Body.String() != "Hello there" {
		t.Fatalf("body: got %q", w.Body.String())
	}
}

func TestChatStreamNotFoundBeforeFirstDelta(t *testing.T) {
	userID := uuid.New()
	handler := NewChatHandler(handlerTestLogger(t), &fakeChatService{
		streamReplyFn: func(ctx context.Context, backlogID, gotUser uuid.UUID, messages []openai.Message, onDelta func(delta string)) (*types.ChatMessage, error) {
			return nil, services.ErrNotFound
		},
	})

	body := map[string]any{
		"backlogId": uuid.New().String(),
		"message":   "hi",
	}
	w := doJSON(t, handler.Stream, http.MethodPost, "/api/chat", body, &userID)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status: want=404 got=%d body=%s", w.Code, w.Body.String())
	}
}

func TestChatStreamRejectsBadBacklogID(t *testing.T) {
	userID := uuid.New()
	handler := NewChatHandler(handlerTestLogger(t), &fakeChatService{})

	body := map[string]any{"backlogId": "nope", "message": "hi"}
	w := doJSON(t, handler.Stream, http.MethodPost, "/api/chat", body, &userID)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status: want=400 got=%d", w.Code)
	}
}
