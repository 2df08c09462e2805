// internal/capabilities/genai.go
package capabilities

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"appointment-scheduler/internal/common/config"
	"appointment-scheduler/internal/common/logger"
)

var (
	// ErrEmptyOutput marks a model response with no usable content.
	ErrEmptyOutput = errors.New("capability returned empty output")
	// ErrMalformedOutput marks a model response that is not the agreed JSON.
	ErrMalformedOutput = errors.New("capability returned malformed output")
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// GenAIClient talks to an OpenAI-compatible chat-completions endpoint and
// asks for a single JSON object per call. Shared by the entity extraction
// and normalization capabilities.
type GenAIClient struct {
	baseURL    string
	apiKey     string
	model      string
	maxRetries int
	client     *http.Client
	logger     logger.Logger
}

func NewGenAIClient(cfg config.CapabilitiesConfig, log logger.Logger) *GenAIClient {
	return &GenAIClient{
		baseURL:    strings.TrimSuffix(cfg.GenAI.BaseURL, "/"),
		apiKey:     cfg.GenAI.APIKey,
		model:      cfg.GenAI.Model,
		maxRetries: cfg.GenAI.MaxRetries,
		// No client timeout; the per-call context carries the deadline.
		client: &http.Client{},
		logger: log.With(map[string]interface{}{"component": "genai"}),
	}
}

// queryJSON sends messages and decodes the model's JSON object reply into a
// generic map. Transport failures and non-200s are retried with backoff;
// malformed content is not, the model already got its chance.
func (g *GenAIClient) queryJSON(ctx context.Context, messages []chatMessage) (map[string]interface{}, error) {
	requestBody := map[string]interface{}{
		"model":           g.model,
		"messages":        messages,
		"response_format": map[string]string{"type": "json_object"},
	}
	body, _ := json.Marshal(requestBody)

	var resp *http.Response
	var lastErr error

	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(100*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			g.baseURL+"/openai/v1/chat/completions", bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+g.apiKey)

		resp, lastErr = g.client.Do(req)
		if lastErr == nil {
			if resp.StatusCode == http.StatusOK {
				break
			}
			resp.Body.Close()
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
			resp = nil
		}

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	if resp == nil {
		return nil, fmt.Errorf("chat completion failed: %w", lastErr)
	}
	defer resp.Body.Close()

	var completion struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	if len(completion.Choices) == 0 || strings.TrimSpace(completion.Choices[0].Message.Content) == "" {
		return nil, ErrEmptyOutput
	}

	var out map[string]interface{}
	if err := json.Unmarshal([]byte(completion.Choices[0].Message.Content), &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	return out, nil
}

// --- lenient field accessors ---
//
// Models return nulls, empty strings, numbers-as-strings, and percentage
// scales. These helpers fold all of that into the typed contract.

func stringField(m map[string]interface{}, key string) *string {
	v, ok := m[key]
	if !ok || v == nil {
		return nil
	}
	s, ok := v.(string)
	if !ok {
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "null") {
		return nil
	}
	return &s
}

func confidenceField(m map[string]interface{}, key string) float64 {
	v, ok := m[key]
	if !ok || v == nil {
		return 0
	}

	var c float64
	switch t := v.(type) {
	case float64:
		c = t
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0
		}
		c = parsed
	default:
		return 0
	}

	// Percentage-scale scores come back from some models.
	if c > 1 && c <= 100 {
		c = c / 100
	}
	if c < 0 {
		c = 0
	}
	if c > 1 {
		c = 1
	}
	return c
}
