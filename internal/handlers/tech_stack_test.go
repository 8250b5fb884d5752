package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/google/uuid"

	"github.com/sarrietav-dev/ai-backlog/internal/services"
	"github.com/sarrietav-dev/ai-backlog/internal/types"
)

type fakeTechStackService struct {
	services.TechStackService

	getLatestFn func(ctx context.Context, backlogID, userID uuid.UUID) (*types.TechStackSuggestion, error)
}

func (f *fakeTechStackService) GetLatest(ctx context.Context, backlogID, userID uuid.UUID) (*types.TechStackSuggestion, error) {
	return f.getLatestFn(ctx, backlogID, userID)
}

func TestTechStackGetCachedEmptyBacklog(t *testing.T) {
	userID := uuid.New()
	handler := NewTechStackHandler(handlerTestLogger(t), &fakeTechStackService{
		getLatestFn: func(ctx context.Context, backlogID, gotUser uuid.UUID) (*types.TechStackSuggestion, error) {
			return nil, nil
		},
	})

	path := "/api/get-cached-tech-stack?backlogId=" + uuid.New().String()
	w := doJSON(t, handler.GetCached, http.MethodGet, path, nil, &userID)
	if w.Code != http.StatusOK {
		t.Fatalf("status: want=200 got=%d body=%s", w.Code, w.Body.String())
	}

	var resp struct {
		Cached bool                       `json:"cached"`
		Data   *types.TechStackSuggestion `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Cached || resp.Data != nil {
		t.Fatalf("want cached=false without data, got %s", w.Body.String())
	}
}

func TestTechStackGetCachedHit(t *testing.T) {
	userID := uuid.New()
	suggestion := &types.TechStackSuggestion{
		ID:          uuid.New(),
		UserID:      userID,
		ProjectType: "web application",
		Complexity:  types.ComplexityModerate,
	}
	handler := NewTechStackHandler(handlerTestLogger(t), &fakeTechStackService{
		getLatestFn: func(ctx context.Context, backlogID, gotUser uuid.UUID) (*types.TechStackSuggestion, error) {
			return suggestion, nil
		},
	})

	path := "/api/get-cached-tech-stack?backlogId=" + uuid.New().String()
	w := doJSON(t, handler.GetCached, http.MethodGet, path, nil, &userID)
	if w.Code != http.StatusOK {
		t.Fatalf("status: want=200 got=%d body=%s", w.Code, w.Body.String())
	}

	var resp struct {
		Cached bool                       `json:"cached"`
		Data   *types.TechStackSuggestion `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !resp.Cached || resp.Data == nil || resp.Data.ProjectType != "web application" {
		t.Fatalf("unexpected response: %s", w.Body.String())
	}
}

func TestTechStackGetCachedForeignBacklogMasked(t *testing.T) {
	userID := uuid.New()
	handler := NewTechStackHandler(handlerTestLogger(t), &fakeTechStackService{
		getLatestFn: func(ctx context.Context, backlogID, gotUser uuid.UUID) (*types.TechStackSuggestion, error) {
			return nil, services.ErrNotFound
		},
	})

	path := "/api/get-cached-tech-stack?backlogId=" + uuid.New().String()
	w := doJSON(t, handler.GetCached, http.MethodGet, path, nil, &userID)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status: want=404 got=%d body=%s", w.Code, w.Body.String())
	}
}
