// internal/capabilities/genai_test.go
package capabilities

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"appointment-scheduler/internal/common/config"
	"appointment-scheduler/internal/common/logger"
)

// ==========================
// Test Helper Functions
// ==========================

// chatCompletionServer fakes the OpenAI-compatible endpoint, returning the
// given JSON object as the single choice's message content.
func chatCompletionServer(t *testing.T, content map[string]interface{}) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/openai/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		payload, err := json.Marshal(content)
		require.NoError(t, err)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"content": string(payload)}},
			},
		})
	}))
}

func newTestClient(t *testing.T, baseURL string) *GenAIClient {
	cfg := config.CapabilitiesConfig{}
	cfg.GenAI.BaseURL = baseURL
	cfg.GenAI.APIKey = "test-key"
	cfg.GenAI.Model = "llama-3.3-70b-versatile"
	cfg.GenAI.MaxRetries = 2
	return NewGenAIClient(cfg, logger.NewTestLogger(t))
}

// ==========================
// Entity Extraction Tests
// ==========================

func TestExtractEntities(t *testing.T) {
	srv := chatCompletionServer(t, map[string]interface{}{
		"department":  "dentist",
		"date_phrase": "next monday",
		"time_phrase": nil,
		"confidence":  0.92,
	})
	defer srv.Close()

	entities, err := newTestClient(t, srv.URL).ExtractEntities(context.Background(), "dentist next monday")
	require.NoError(t, err)

	require.NotNil(t, entities.Department)
	assert.Equal(t, "dentist", *entities.Department)
	require.NotNil(t, entities.DatePhrase)
	assert.Equal(t, "next monday", *entities.DatePhrase)
	assert.Nil(t, entities.TimePhrase)
	assert.InDelta(t, 0.92, entities.Confidence, 0.0001)
}

func TestExtractEntities_AllAbsent(t *testing.T) {
	srv := chatCompletionServer(t, map[string]interface{}{
		"department":  nil,
		"date_phrase": "null",
		"time_phrase": "",
	})
	defer srv.Close()

	entities, err := newTestClient(t, srv.URL).ExtractEntities(context.Background(), "hello")
	require.NoError(t, err)

	assert.Nil(t, entities.Department)
	assert.Nil(t, entities.DatePhrase)
	assert.Nil(t, entities.TimePhrase)
	// Missing confidence folds to 0, never an error.
	assert.Zero(t, entities.Confidence)
}

func TestExtractEntities_RetriesTransientFailure(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"content": `{"department":"cardiology","confidence":0.8}`}},
			},
		})
	}))
	defer srv.Close()

	entities, err := newTestClient(t, srv.URL).ExtractEntities(context.Background(), "heart doctor")
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
	require.NotNil(t, entities.Department)
	assert.Equal(t, "cardiology", *entities.Department)
}

func TestExtractEntities_MalformedContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"content": "sure! here is the json you asked for"}},
			},
		})
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL).ExtractEntities(context.Background(), "dentist")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedOutput)
}

func TestExtractEntities_EmptyContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{},
		})
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL).ExtractEntities(context.Background(), "dentist")
	assert.ErrorIs(t, err, ErrEmptyOutput)
}

// ==========================
// Normalization Tests
// ==========================

func TestNormalize(t *testing.T) {
	srv := chatCompletionServer(t, map[string]interface{}{
		"date":       "2025-07-21",
		"time":       "15:00",
		"confidence": 0.9,
	})
	defer srv.Close()

	normalizer := NewDateTimeNormalizer(newTestClient(t, srv.URL), "2025-07-15", "Asia/Kolkata")
	date := "next monday"
	tm := "3 pm"

	normalized, err := normalizer.Normalize(context.Background(), &date, &tm)
	require.NoError(t, err)

	require.NotNil(t, normalized.Date)
	assert.Equal(t, "2025-07-21", *normalized.Date)
	require.NotNil(t, normalized.Time)
	assert.Equal(t, "15:00", *normalized.Time)
	assert.InDelta(t, 0.9, normalized.Confidence, 0.0001)
}

func TestNormalize_NilPhrases(t *testing.T) {
	srv := chatCompletionServer(t, map[string]interface{}{
		"date":       nil,
		"time":       nil,
		"confidence": 0.1,
	})
	defer srv.Close()

	normalizer := NewDateTimeNormalizer(newTestClient(t, srv.URL), "2025-07-15", "Asia/Kolkata")
	normalized, err := normalizer.Normalize(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Nil(t, normalized.Date)
	assert.Nil(t, normalized.Time)
}

// ==========================
// Lenient Decoding Tests
// ==========================

func TestConfidenceField(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]interface{}
		want float64
	}{
		{"plain number", map[string]interface{}{"confidence": 0.85}, 0.85},
		{"missing key", map[string]interface{}{}, 0},
		{"explicit null", map[string]interface{}{"confidence": nil}, 0},
		{"number as string", map[string]interface{}{"confidence": "0.75"}, 0.75},
		{"percentage scale", map[string]interface{}{"confidence": 85.0}, 0.85},
		{"percentage as string", map[string]interface{}{"confidence": "92"}, 0.92},
		{"negative clamps to zero", map[string]interface{}{"confidence": -0.3}, 0},
		{"above 100 clamps to one", map[string]interface{}{"confidence": 250.0}, 1},
		{"unparseable string", map[string]interface{}{"confidence": "high"}, 0},
		{"wrong type", map[string]interface{}{"confidence": true}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, confidenceField(tt.raw, "confidence"), 0.0001)
		})
	}
}

func TestStringField(t *testing.T) {
	assert.Nil(t, stringField(map[string]interface{}{}, "k"))
	assert.Nil(t, stringField(map[string]interface{}{"k": nil}, "k"))
	assert.Nil(t, stringField(map[string]interface{}{"k": ""}, "k"))
	assert.Nil(t, stringField(map[string]interface{}{"k": "  "}, "k"))
	assert.Nil(t, stringField(map[string]interface{}{"k": "null"}, "k"))
	assert.Nil(t, stringField(map[string]interface{}{"k": "NULL"}, "k"))
	assert.Nil(t, stringField(map[string]interface{}{"k": 42.0}, "k"))

	got := stringField(map[string]interface{}{"k": " dentist "}, "k")
	require.NotNil(t, got)
	assert.Equal(t, "dentist", *got)
}
