package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/timmy/foodlens/internal/domain"
	"github.com/timmy/foodlens/internal/imaging"
	"github.com/timmy/foodlens/internal/logger"
	"github.com/timmy/foodlens/internal/prompts"
)

// Analyzer sends normalized images to an OpenAI-compatible multimodal
// chat-completion endpoint and enforces the FoodAssessment contract on the
// free-text response. Analyze never fails the caller: every internal error
// becomes a fallback assessment.
type Analyzer struct {
	client      *resty.Client
	model       string
	endpoint    string
	maxTokens   int
	temperature float32
	log         *logger.Logger
}

// AnalyzerConfig holds configuration for the vision analyzer.
type AnalyzerConfig struct {
	Model       string
	APIKey      string
	BaseURL     string
	MaxTokens   int
	Temperature float32
}

// NewAnalyzer creates an analyzer bound to the configured endpoint.
func NewAnalyzer(cfg *AnalyzerConfig, log *logger.Logger) *Analyzer {
	client := resty.New()
	client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	client.SetHeader("Content-Type", "application/json")
	client.SetTimeout(60 * time.Second)

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 500
	}
	temperature := cfg.Temperature
	if temperature <= 0 {
		// Low temperature keeps the structured output stable across calls.
		temperature = 0.2
	}

	return &Analyzer{
		client:      client,
		model:       cfg.Model,
		endpoint:    baseURL + "/chat/completions",
		maxTokens:   maxTokens,
		temperature: temperature,
		log:         log,
	}
}

// OpenAI-compatible chat completion request/response structures.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float32       `json:"temperature"`
}

type chatMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"` // string for system, []interface{} for user with images
}

type chatTextContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type chatImageContent struct {
	Type     string       `json:"type"`
	ImageURL chatImageURL `json:"image_url"`
}

type chatImageURL struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Analyze submits the normalized image and returns a valid FoodAssessment.
// Model failure, malformed output, missing fields, and out-of-enum health
// values all degrade to the fallback assessment instead of an error.
func (a *Analyzer) Analyze(ctx context.Context, img *imaging.Normalized) *domain.FoodAssessment {
	raw, err := a.call(ctx, img.Data)
	if err != nil {
		a.log.WithError(err).Error("Vision API call failed")
		return domain.FallbackAssessment("Analysis failed: " + err.Error())
	}

	assessment, err := ParseAssessment(raw)
	if err != nil {
		a.log.WithFields(logger.Fields{
			"raw_length": len(raw),
		}).WithError(err).Warn("Model response violated the output contract")
		return domain.FallbackAssessment("Analysis failed: " + err.Error())
	}

	return assessment
}

func (a *Analyzer) call(ctx context.Context, jpegData []byte) (string, error) {
	dataURL := fmt.Sprintf("data:image/jpeg;base64,%s", base64.StdEncoding.EncodeToString(jpegData))

	req := chatRequest{
		Model: a.model,
		Messages: []chatMessage{
			{
				Role:    "system",
				Content: prompts.NutritionistSystemPrompt,
			},
			{
				Role: "user",
				Content: []interface{}{
					chatImageContent{
						Type:     "image_url",
						ImageURL: chatImageURL{URL: dataURL},
					},
					chatTextContent{
						Type: "text",
						Text: prompts.NutritionistUserPrompt,
					},
				},
			},
		},
		MaxTokens:   a.maxTokens,
		Temperature: a.temperature,
	}

	var resp chatResponse
	httpResp, err := a.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&resp).
		Post(a.endpoint)
	if err != nil {
		return "", fmt.Errorf("vision API request failed: %w", err)
	}

	if httpResp.StatusCode() < 200 || httpResp.StatusCode() >= 300 {
		if resp.Error != nil {
			return "", fmt.Errorf("vision API returned HTTP %d: %s", httpResp.StatusCode(), resp.Error.Message)
		}
		return "", fmt.Errorf("vision API returned HTTP %d", httpResp.StatusCode())
	}
	if resp.Error != nil {
		return "", fmt.Errorf("vision API error: %s", resp.Error.Message)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in vision API response")
	}

	return resp.Choices[0].Message.Content, nil
}

// ParseAssessment extracts a FoodAssessment from the model's free-text
// response. The text is stripped of code fences, the first balanced JSON
// object is located, and the result is validated against the closed health
// enum and required fields.
func ParseAssessment(raw string) (*domain.FoodAssessment, error) {
	content := stripCodeFences(raw)

	jsonStr, err := extractJSONObject(content)
	if err != nil {
		return nil, err
	}

	var assessment domain.FoodAssessment
	if err := json.Unmarshal([]byte(jsonStr), &assessment); err != nil {
		return nil, fmt.Errorf("model returned malformed JSON: %w", err)
	}

	if assessment.Food == "" || assessment.Health == "" ||
		assessment.Reason == "" || assessment.NextMeal == "" {
		return nil, fmt.Errorf("model response missing required fields")
	}

	if v := domain.HealthVerdict(strings.ToLower(strings.TrimSpace(string(assessment.Health)))); v != assessment.Health {
		assessment.Health = v
	}
	if !assessment.Health.Valid() {
		return nil, fmt.Errorf("model returned invalid health value %q", assessment.Health)
	}

	return &assessment, nil
}

// stripCodeFences removes markdown fencing the model sometimes wraps around
// its JSON despite being told not to.
func stripCodeFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// extractJSONObject returns the first balanced {...} in content.
func extractJSONObject(content string) (string, error) {
	start := strings.Index(content, "{")
	if start == -1 {
		return "", fmt.Errorf("no JSON object in model response")
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(content); i++ {
		c := content[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return content[start : i+1], nil
			}
		}
	}
	return "", fmt.Errorf("incomplete JSON object in model response")
}
