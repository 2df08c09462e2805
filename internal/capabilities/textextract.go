// internal/capabilities/textextract.go
package capabilities

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"appointment-scheduler/internal/common/config"
	"appointment-scheduler/internal/common/logger"
)

// OCRClient calls the text-extraction service: POST image bytes, get back
// {text, confidence}.
type OCRClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  logger.Logger
}

func NewOCRClient(cfg config.CapabilitiesConfig, log logger.Logger) *OCRClient {
	return &OCRClient{
		baseURL: strings.TrimSuffix(cfg.OCR.BaseURL, "/"),
		apiKey:  cfg.OCR.APIKey,
		client:  &http.Client{},
		logger:  log.With(map[string]interface{}{"component": "ocr"}),
	}
}

func (c *OCRClient) ExtractText(ctx context.Context, image []byte) (OCRResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/recognize", bytes.NewReader(image))
	if err != nil {
		return OCRResult{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return OCRResult{}, fmt.Errorf("ocr request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return OCRResult{}, fmt.Errorf("ocr request failed: status %d", resp.StatusCode)
	}

	var raw map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return OCRResult{}, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}

	text := ""
	if t := stringField(raw, "text"); t != nil {
		text = *t
	}
	if strings.TrimSpace(text) == "" {
		return OCRResult{}, ErrEmptyOutput
	}

	return OCRResult{
		Text:       strings.TrimSpace(text),
		Confidence: confidenceField(raw, "confidence"),
	}, nil
}
