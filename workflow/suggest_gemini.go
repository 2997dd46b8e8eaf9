package workflow

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/AltairaLabs/PromptKit/runtime/providers"
	"github.com/AltairaLabs/PromptKit/runtime/providers/gemini"
	"github.com/AltairaLabs/PromptKit/runtime/types"
	"github.com/pkg/errors"
)

const (
	DefaultGeminiModel   = "gemini-3-flash-preview"
	DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	// GeminiAPIKeyEnv provider从这个环境变量读key
	GeminiAPIKeyEnv = "GEMINI_API_KEY"

	geminiProviderID = "ezyflow-suggest"
)

// suggestionSchema 返回结构: [{id,label,description,type}]
var suggestionSchema = json.RawMessage(`{
  "type": "ARRAY",
  "items": {
    "type": "OBJECT",
    "properties": {
      "id": {"type": "STRING"},
      "label": {"type": "STRING", "description": "Name of the step"},
      "description": {"type": "STRING", "description": "Detailed description of what happens"},
      "type": {"type": "STRING", "enum": ["action", "trigger", "condition"]}
    },
    "required": ["id", "label", "description", "type"]
  }
}`)

type suggestionPredictor interface {
	Predict(ctx context.Context, req providers.PredictionRequest) (providers.PredictionResponse, error)
}

// GeminiSuggester 调用gemini生成步骤建议, 要求返回符合suggestionSchema的json
type GeminiSuggester struct {
	model     string
	timeout   time.Duration
	predictor suggestionPredictor
}

// NewGeminiSuggester apiKey为空时沿用环境变量 GEMINI_API_KEY / GOOGLE_API_KEY
func NewGeminiSuggester(model string, baseURL string, apiKey string, timeout time.Duration) *GeminiSuggester {
	if model == "" {
		model = DefaultGeminiModel
	}
	if baseURL == "" {
		baseURL = DefaultGeminiBaseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if apiKey != "" {
		// provider只从环境变量取key
		_ = os.Setenv(GeminiAPIKeyEnv, apiKey)
	}
	provider := gemini.NewProvider(geminiProviderID, model, baseURL, providers.ProviderDefaults{
		Temperature: 0.2,
		TopP:        0.95,
		MaxTokens:   2048,
	}, false)
	return &GeminiSuggester{
		model:     model,
		timeout:   timeout,
		predictor: provider,
	}
}

func suggestionPrompt(prompt string) string {
	return "Suggest a business workflow for: " + prompt + ". Break it down into discrete steps."
}

func (s *GeminiSuggester) Suggest(ctx context.Context, prompt string) ([]Suggestion, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.predictor.Predict(ctx, providers.PredictionRequest{
		Messages: []types.Message{
			{Role: "user", Content: suggestionPrompt(prompt)},
		},
		ResponseFormat: &providers.ResponseFormat{
			Type:       providers.ResponseFormatJSONSchema,
			JSONSchema: suggestionSchema,
		},
	})
	if err != nil {
		return nil, errors.WithMessagef(err, "gemini predict failed, model: %s", s.model)
	}
	return ParseSuggestions(ctx, []byte(resp.Content)), nil
}
