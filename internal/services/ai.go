package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ollama/ollama/api"
	"github.com/sashabaranov/go-openai"
	"github.com/taskhive/backend/internal/config"
	"github.com/taskhive/backend/internal/models"
	"github.com/taskhive/backend/pkg/logger"
	"google.golang.org/genai"
	"gorm.io/gorm"
)

var errNoLLMConfig = errors.New("no LLM configuration available")

// AIService sends prompts to the configured LLM providers, trying each active config in order.
type AIService struct {
	db     *gorm.DB
	config *config.OpenAIConfig
}

func NewAIService(db *gorm.DB, cfg *config.OpenAIConfig) *AIService {
	return &AIService{
		db:     db,
		config: cfg,
	}
}

// Completion is the raw model output and which config produced it.
type Completion struct {
	Content   string
	ModelName string
}

// Complete runs the prompt against the ordered provider list and returns the first success.
func (s *AIService) Complete(ctx context.Context, prompt string) (*Completion, error) {
	llmConfigs := s.orderedLLMConfigs()
	if len(llmConfigs) == 0 {
		return nil, errNoLLMConfig
	}

	var lastErr error
	for i := range llmConfigs {
		llmConfig := &llmConfigs[i]
		logger.Debug().Str("llm", llmConfig.Name).Str("model", llmConfig.Model).
			Msgf("[AI] Attempting LLM %d/%d", i+1, len(llmConfigs))

		content, err := s.callLLM(ctx, llmConfig, prompt)
		if err == nil {
			return &Completion{Content: content, ModelName: llmConfig.Name}, nil
		}

		lastErr = err
		// The deadline is shared by all providers; once it fires there is no point trying more.
		if ctx.Err() != nil {
			break
		}
		logger.Warnf("[AI] LLM %s failed: %v, trying next...", llmConfig.Name, err)
	}

	return nil, fmt.Errorf("all LLMs failed, last error: %w", lastErr)
}

func (s *AIService) orderedLLMConfigs() []models.LLMConfig {
	var configs []models.LLMConfig
	s.db.Where("is_active = ?", true).
		Order("is_default DESC").
		Order("priority ASC").
		Order("id ASC").
		Find(&configs)

	if len(configs) == 0 && s.config != nil && s.config.APIKey != "" {
		configs = append(configs, models.LLMConfig{
			Name:     "fallback",
			Provider: "openai",
			BaseURL:  s.config.BaseURL,
			APIKey:   s.config.APIKey,
			Model:    s.config.Model,
		})
	}

	return configs
}

func (s *AIService) callLLM(ctx context.Context, llmConfig *models.LLMConfig, prompt string) (string, error) {
	switch llmConfig.Provider {
	case "anthropic":
		return s.callAnthropic(ctx, llmConfig, prompt)
	case "ollama":
		return s.callOllama(ctx, llmConfig, prompt)
	case "gemini":
		return s.callGemini(ctx, llmConfig, prompt)
	case "azure":
		return s.callOpenAICompatible(ctx, openai.DefaultAzureConfig(llmConfig.APIKey, llmConfig.BaseURL), llmConfig, prompt)
	default:
		clientConfig := openai.DefaultConfig(llmConfig.APIKey)
		if llmConfig.BaseURL != "" {
			clientConfig.BaseURL = llmConfig.BaseURL
		}
		return s.callOpenAICompatible(ctx, clientConfig, llmConfig, prompt)
	}
}

// callOpenAICompatible serves OpenAI, Azure (model = deployment name) and compatible endpoints.
func (s *AIService) callOpenAICompatible(ctx context.Context, clientConfig openai.ClientConfig, llmConfig *models.LLMConfig, prompt string) (string, error) {
	client := openai.NewClientWithConfig(clientConfig)

	req := openai.ChatCompletionRequest{
		Model: llmConfig.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: triageSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: float32(llmConfig.Temperature),
	}
	if llmConfig.MaxTokens > 0 {
		req.MaxTokens = llmConfig.MaxTokens
	}

	resp, err := client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%s API error: %w", llmConfig.Provider, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from %s", llmConfig.Provider)
	}

	return resp.Choices[0].Message.Content, nil
}

func (s *AIService) callAnthropic(ctx context.Context, llmConfig *models.LLMConfig, prompt string) (string, error) {
	opts := []option.RequestOption{option.WithAPIKey(llmConfig.APIKey)}
	if llmConfig.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(llmConfig.BaseURL))
	}
	client := anthropic.NewClient(opts...)

	maxTokens := int64(llmConfig.MaxTokens)
	if maxTokens == 0 {
		maxTokens = 1024
	}

	model := llmConfig.Model
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}

	resp, err := client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: triageSystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("Anthropic API error: %w", err)
	}

	var content strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}
	return content.String(), nil
}

func (s *AIService) callOllama(ctx context.Context, llmConfig *models.LLMConfig, prompt string) (string, error) {
	baseURL := llmConfig.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid Ollama base URL: %w", err)
	}
	client := api.NewClient(u, http.DefaultClient)

	model := llmConfig.Model
	if model == "" {
		model = "llama3"
	}

	stream := false
	var content strings.Builder
	err = client.Chat(ctx, &api.ChatRequest{
		Model: model,
		Messages: []api.Message{
			{Role: "system", Content: triageSystemPrompt},
			{Role: "user", Content: prompt},
		},
		Format: []byte(`"json"`),
		Stream: &stream,
		Options: map[string]interface{}{
			"temperature": llmConfig.Temperature,
		},
	}, func(resp api.ChatResponse) error {
		content.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("Ollama API error: %w", err)
	}

	return content.String(), nil
}

func (s *AIService) callGemini(ctx context.Context, llmConfig *models.LLMConfig, prompt string) (string, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  llmConfig.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return "", fmt.Errorf("Gemini client error: %w", err)
	}

	model := llmConfig.Model
	if model == "" {
		model = "gemini-2.5-flash"
	}

	temperature := float32(llmConfig.Temperature)
	resp, err := client.Models.GenerateContent(ctx, model, genai.Text(prompt), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(triageSystemPrompt, genai.RoleUser),
		Temperature:       &temperature,
		ResponseMIMEType:  "application/json",
	})
	if err != nil {
		return "", fmt.Errorf("Gemini API error: %w", err)
	}

	return resp.Text(), nil
}

// TestConnection sends a trivial prompt through one specific config.
func (s *AIService) TestConnection(ctx context.Context, llmConfig *models.LLMConfig) error {
	_, err := s.callLLM(ctx, llmConfig, `Reply with {"score": 100, "feedback": "ok", "consistency_warning": false}`)
	return err
}
