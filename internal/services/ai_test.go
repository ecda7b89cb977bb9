package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/taskhive/backend/internal/config"
	"github.com/taskhive/backend/internal/models"
	"github.com/taskhive/backend/internal/testutil"
	"gorm.io/gorm"
)

func TestParseVerdict(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantScore float64
		wantWarn  bool
		wantErr   bool
	}{
		{"plain json", `{"score": 91, "feedback": "clear", "consistency_warning": false}`, 91, false, false},
		{"fenced json", "```json\n{\"score\": 40, \"feedback\": \"off task\", \"consistency_warning\": true}\n```", 40, true, false},
		{"prose around json", `Here is my grade: {"score": 77.5, "feedback": "ok"} thanks`, 77.5, false, false},
		{"score out of range", `{"score": 140}`, 0, false, true},
		{"free text score", "Score: 85/100, mostly correct", 85, false, false},
		{"bare fraction", "I'd give it 60 / 100.", 60, false, false},
		{"nothing usable", "looks fine to me", 0, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := parseVerdict(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", v)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if v.Score != tt.wantScore {
				t.Errorf("Score = %v, want %v", v.Score, tt.wantScore)
			}
			if v.ConsistencyWarning != tt.wantWarn {
				t.Errorf("ConsistencyWarning = %v, want %v", v.ConsistencyWarning, tt.wantWarn)
			}
		})
	}
}

func TestParseContent(t *testing.T) {
	c, err := ParseContent(models.TaskTypeTextAnnotation, "  the cat is happy ")
	require.NoError(t, err)
	require.Equal(t, "the cat is happy", c.Text)
	require.Equal(t, "the cat is happy", c.PromptText())

	c, err = ParseContent(models.TaskTypeComparison, `{"preferred": " a ", "reasoning": "fewer errors"}`)
	require.NoError(t, err)
	require.Equal(t, "A", c.Preferred)
	require.Contains(t, c.PromptText(), "Preferred response: A")

	_, err = ParseContent(models.TaskTypeComparison, `{"preferred": "C"}`)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	require.Equal(t, "content.preferred", verr.Field)

	_, err = ParseContent(models.TaskTypeComparison, "A is better")
	require.True(t, errors.As(err, &verr))

	_, err = ParseContent(models.TaskTypeImageLabeling, "")
	require.True(t, errors.As(err, &verr))

	_, err = ParseContent("AUDIO", "x")
	require.Error(t, err)
}

func TestSubmissionContent_HashIgnoresCaseAndSpacing(t *testing.T) {
	a, _ := ParseContent(models.TaskTypeTextAnnotation, "Hello   World")
	b, _ := ParseContent(models.TaskTypeTextAnnotation, "hello world")
	c, _ := ParseContent(models.TaskTypeClassification, "hello world")
	require.Equal(t, a.Hash(), b.Hash())
	require.NotEqual(t, a.Hash(), c.Hash(), "task type is part of the fingerprint")

	decoded, err := DecodeContent(a.JSON())
	require.NoError(t, err)
	require.Equal(t, a, decoded)
}

func TestBuildTriagePrompt(t *testing.T) {
	content := SubmissionContent{Kind: models.TaskTypeTextAnnotation, Text: "negative"}
	prompt := buildTriagePrompt(content, TaskContext{
		ProjectTitle: "Reviews",
		TaskType:     models.TaskTypeTextAnnotation,
		Domain:       "GENERAL",
		Description:  "Label sentiment",
		TaskContent:  "Terrible service",
		TaskImageURL: "https://cdn.example.com/1.png",
	})

	for _, want := range []string{"Project: Reviews", "Instructions:\nLabel sentiment", "Task:\nTerrible service", "Task image: https://cdn.example.com/1.png", "Freelancer answer:\nnegative"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

// fakeChatServer speaks enough of the OpenAI chat completions API for AIService.
func fakeChatServer(t *testing.T, status int, reply string) (*httptest.Server, *atomic.Int32) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error": {"message": "upstream unavailable", "type": "server_error"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"model":   "test-model",
			"choices": []map[string]interface{}{{"index": 0, "message": map[string]string{"role": "assistant", "content": reply}, "finish_reason": "stop"}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func addLLMConfig(t *testing.T, db *gorm.DB, name, baseURL string, priority int, isDefault bool) {
	t.Helper()
	require.NoError(t, db.Create(&models.LLMConfig{
		Name:      name,
		Provider:  "openai",
		BaseURL:   baseURL,
		APIKey:    "sk-test",
		Model:     "test-model",
		MaxTokens: 256,
		Priority:  priority,
		IsDefault: isDefault,
		IsActive:  true,
	}).Error)
}

func TestAIService_FallsBackToNextProvider(t *testing.T) {
	db := testutil.NewTestDB(t)
	broken, brokenHits := fakeChatServer(t, http.StatusInternalServerError, "")
	healthy, healthyHits := fakeChatServer(t, http.StatusOK, `{"score": 88, "feedback": "good", "consistency_warning": false}`)

	addLLMConfig(t, db, "primary", broken.URL+"/v1", 1, true)
	addLLMConfig(t, db, "secondary", healthy.URL+"/v1", 2, false)

	scorer := NewLLMScorer(NewAIService(db, nil))
	verdict, err := scorer.Score(context.Background(), SubmissionContent{Kind: models.TaskTypeTextAnnotation, Text: "x"}, TaskContext{})
	require.NoError(t, err)
	require.Equal(t, 88.0, verdict.Score)
	require.Positive(t, brokenHits.Load())
	require.EqualValues(t, 1, healthyHits.Load())
}

func TestAIService_NoConfig(t *testing.T) {
	db := testutil.NewTestDB(t)
	_, err := NewAIService(db, &config.OpenAIConfig{}).Complete(context.Background(), "hi")
	require.ErrorIs(t, err, errNoLLMConfig)
}

func TestLLMScorer_UnparseableReply(t *testing.T) {
	db := testutil.NewTestDB(t)
	srv, _ := fakeChatServer(t, http.StatusOK, "I cannot grade this")
	addLLMConfig(t, db, "only", srv.URL+"/v1", 1, true)

	_, err := NewLLMScorer(NewAIService(db, nil)).Score(context.Background(), SubmissionContent{Text: "x"}, TaskContext{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "only")
}

func TestLLMConfigService_SingleDefault(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := NewLLMConfigService(db, NewAIService(db, nil))

	first, err := svc.Create(&CreateLLMConfigRequest{Name: "a", Provider: "openai", APIKey: "sk-aaaaaaaaaaaa", IsDefault: true, IsActive: true})
	require.NoError(t, err)
	require.Equal(t, "sk-a****aaaa", first.APIKeyMask)

	second, err := svc.Create(&CreateLLMConfigRequest{Name: "b", Provider: "anthropic", APIKey: "key", IsDefault: true, IsActive: false})
	require.NoError(t, err)

	reloaded, err := svc.GetByID(first.ID)
	require.NoError(t, err)
	require.False(t, reloaded.IsDefault)

	b, err := svc.GetByID(second.ID)
	require.NoError(t, err)
	require.True(t, b.IsDefault)
	require.False(t, b.IsActive)

	_, err = svc.Create(&CreateLLMConfigRequest{Name: "c", Provider: "openai"})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr), "api key is required for hosted providers")

	_, err = svc.Create(&CreateLLMConfigRequest{Name: "local", Provider: "ollama", BaseURL: "http://localhost:11434", IsActive: true})
	require.NoError(t, err)

	_, err = svc.Create(&CreateLLMConfigRequest{Name: "d", Provider: "cohere", APIKey: "x"})
	require.True(t, errors.As(err, &verr))

	require.NoError(t, svc.Delete(first.ID))
	require.ErrorIs(t, svc.Delete(first.ID), ErrNotFound)
}

func TestLLMConfigService_TestUsesStoredConfig(t *testing.T) {
	db := testutil.NewTestDB(t)
	srv, hits := fakeChatServer(t, http.StatusOK, `{"score": 100, "feedback": "ok"}`)
	svc := NewLLMConfigService(db, NewAIService(db, nil))

	cfg, err := svc.Create(&CreateLLMConfigRequest{Name: "primary", Provider: "openai", BaseURL: srv.URL + "/v1", APIKey: "sk-test", Model: "m", IsActive: true})
	require.NoError(t, err)

	require.NoError(t, svc.Test(context.Background(), cfg.ID))
	require.EqualValues(t, 1, hits.Load())
	require.ErrorIs(t, svc.Test(context.Background(), 999), ErrNotFound)
}
