// internal/capabilities/entities.go
package capabilities

import (
	"context"
	"fmt"
)

const entityExtractionSystemPrompt = `You are an expert entity extraction system. From the user's text, extract the raw phrases for the appointment department, date, and time.
- "date_phrase": The exact words used for the date (e.g., "next Friday", "tomorrow", "sep 25th").
- "time_phrase": The exact words used for the time (e.g., "3 pm", "noon", "at 4").
- "department": The requested department (e.g., "dentist", "cardiology").
- "confidence": Your confidence in the extraction from 0.0 to 1.0.
Respond ONLY with a single, valid JSON object with these keys. If a value is not found, use null.`

// ExtractEntities asks the model for the department, date and time phrases
// in the raw text. Any of the three may come back absent.
func (g *GenAIClient) ExtractEntities(ctx context.Context, text string) (Entities, error) {
	raw, err := g.queryJSON(ctx, []chatMessage{
		{Role: "system", Content: entityExtractionSystemPrompt},
		{Role: "user", Content: text},
	})
	if err != nil {
		return Entities{}, fmt.Errorf("entity extraction: %w", err)
	}

	entities := Entities{
		Department: stringField(raw, "department"),
		DatePhrase: stringField(raw, "date_phrase"),
		TimePhrase: stringField(raw, "time_phrase"),
		Confidence: confidenceField(raw, "confidence"),
	}

	g.logger.Debug("entities extracted", map[string]interface{}{
		"hasDepartment": entities.Department != nil,
		"hasDatePhrase": entities.DatePhrase != nil,
		"hasTimePhrase": entities.TimePhrase != nil,
		"confidence":    entities.Confidence,
	})

	return entities, nil
}
