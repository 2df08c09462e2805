// internal/capabilities/normalize.go
package capabilities

import (
	"context"
	"fmt"
)

// DateTimeNormalizer resolves extracted phrases into a concrete date and
// time against a reference date and timezone fixed at construction, so a
// job's "next Friday" means the same thing on every redelivery.
type DateTimeNormalizer struct {
	genai         *GenAIClient
	referenceDate string // YYYY-MM-DD
	timezone      string
}

func NewDateTimeNormalizer(genai *GenAIClient, referenceDate, timezone string) *DateTimeNormalizer {
	return &DateTimeNormalizer{
		genai:         genai,
		referenceDate: referenceDate,
		timezone:      timezone,
	}
}

func (n *DateTimeNormalizer) systemPrompt() string {
	return fmt.Sprintf(`You are an expert date and time normalization system.
- The current date is %s. The target timezone is "%s".
- Convert the user's date phrase into a strict "YYYY-MM-DD" format. Do NOT include any time information in the date field.
- Convert the user's time phrase into a strict "HH:mm" (24-hour) format.
- "confidence": Your confidence in the normalization from 0.0 to 1.0.
Respond ONLY with a single, valid JSON object with keys "date", "time", and "confidence". If a value cannot be normalized, use null.`,
		n.referenceDate, n.timezone)
}

// Normalize converts the date/time phrases. Either output may be absent; a
// missing confidence is reported as 0, never left undefined.
func (n *DateTimeNormalizer) Normalize(ctx context.Context, datePhrase, timePhrase *string) (Normalized, error) {
	raw, err := n.genai.queryJSON(ctx, []chatMessage{
		{Role: "system", Content: n.systemPrompt()},
		{Role: "user", Content: fmt.Sprintf("Date Phrase: %q, Time Phrase: %q", deref(datePhrase), deref(timePhrase))},
	})
	if err != nil {
		return Normalized{}, fmt.Errorf("normalization: %w", err)
	}

	return Normalized{
		Date:       stringField(raw, "date"),
		Time:       stringField(raw, "time"),
		Confidence: confidenceField(raw, "confidence"),
	}, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
